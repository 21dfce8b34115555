package nugetify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/nugetify/ledger"
	"github.com/willibrandon/nugetify/msbuild"
	"github.com/willibrandon/nugetify/observability"
	"github.com/willibrandon/nugetify/packaging"
	"github.com/willibrandon/nugetify/repository"
	"github.com/willibrandon/nugetify/solution"
)

const commandSln = "\r\n" +
	"Microsoft Visual Studio Solution File, Format Version 12.00\r\n" +
	`Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "App", "App\App.csproj", "{11111111-1111-1111-1111-111111111111}"` + "\r\n" +
	"EndProject\r\n" +
	`Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "Core", "Core\Core.csproj", "{22222222-2222-2222-2222-222222222222}"` + "\r\n" +
	"EndProject\r\n" +
	`Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "Utility", "Utility\Utility.csproj", "{33333333-3333-3333-3333-333333333333}"` + "\r\n" +
	"EndProject\r\n" +
	"Global\r\n" +
	"EndGlobal\r\n"

const appProject = `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="4.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup>
    <AssemblyName>App</AssemblyName>
  </PropertyGroup>
  <ItemGroup>
    <Reference Include="Foo">
      <HintPath>..\lib\Foo.dll</HintPath>
    </Reference>
    <Reference Include="System.Xml" />
  </ItemGroup>
  <ItemGroup>
    <ProjectReference Include="..\Utility\Utility.csproj" />
    <ProjectReference Include="..\Core\Core.csproj" />
  </ItemGroup>
</Project>
`

const coreProject = `<Project ToolsVersion="4.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup>
    <AssemblyName>Contoso.Core</AssemblyName>
  </PropertyGroup>
</Project>
`

const plainProject = `<Project ToolsVersion="4.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
</Project>
`

func writeCommandSolution(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "App", "App.csproj"), appProject)
	writeFile(t, filepath.Join(dir, "Core", "Core.csproj"), coreProject)
	writeFile(t, filepath.Join(dir, "Utility", "Utility.csproj"), plainProject)
	return writeFile(t, filepath.Join(dir, "All.sln"), commandSln)
}

func commandFeed() *repository.MemorySource {
	return repository.NewMemorySource("feed",
		repository.NewPackage("Foo", "1.0", "lib/net40/Foo.dll"),
		repository.NewPackage("Foo", "1.2", "lib/net40/Foo.dll"),
		repository.NewPackage("Utility", "2.0.0", "lib/net40/Utility.dll"),
	)
}

func hintPathOf(t *testing.T, p *msbuild.Project, include string) string {
	t.Helper()
	for _, item := range p.BinaryReferences() {
		if item.Include() == include {
			hint, _ := item.Metadata("HintPath")
			return hint
		}
	}
	t.Fatalf("no reference %s", include)
	return ""
}

func TestCommand_Solution(t *testing.T) {
	slnPath := writeCommandSolution(t)
	dir := filepath.Dir(slnPath)
	logger := observability.NewMemoryLogger()

	cmd := &Command{Source: commandFeed(), Logger: logger}
	summary, err := cmd.Run(context.Background(), Options{Path: slnPath, WriteNuspec: true})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, []string{"Utility"}, summary.Pruned)
	require.Len(t, summary.Projects, 2)
	assert.Equal(t, "App", summary.Projects[0].Name)
	assert.Equal(t, StatusCompleted, summary.Projects[0].Status)
	assert.Equal(t, "Core", summary.Projects[1].Name)
	assert.Zero(t, summary.Failed())

	sol, err := solution.ParseFile(slnPath)
	require.NoError(t, err)
	require.Len(t, sol.Projects, 2)

	app, err := msbuild.LoadProject(filepath.Join(dir, "App", "App.csproj"), nil)
	require.NoError(t, err)
	assert.Contains(t, hintPathOf(t, app, "Foo"), `lib\net40\Foo.dll`)
	assert.Contains(t, hintPathOf(t, app, "Utility"), `lib\net40\Utility.dll`)
	require.Len(t, app.ProjectReferences(), 1)
	assert.Equal(t, `..\Core\Core.csproj`, app.ProjectReferences()[0].Include())
	assert.True(t, app.HasItemInclude(ledger.FileName))

	pc, err := ledger.LoadPackagesConfig(filepath.Join(dir, "App", ledger.FileName))
	require.NoError(t, err)
	got := map[string]string{}
	for _, e := range pc.Entries() {
		got[e.ID] = e.VersionString
	}
	assert.Equal(t, map[string]string{"Foo": "1.2", "Utility": "2.0.0"}, got)

	repos, err := ledger.NewSharedRepository(filepath.Join(dir, "packages")).Repositories()
	require.NoError(t, err)
	assert.Equal(t, []string{`..\App\packages.config`}, repos)

	nuspec, err := os.ReadFile(filepath.Join(dir, "App", "App"+packaging.ManifestExtension))
	require.NoError(t, err)
	assert.Contains(t, string(nuspec), `id="Contoso.Core"`)
	assert.Contains(t, string(nuspec), `id="Utility"`)
	assert.Contains(t, string(nuspec), `id="Foo"`)

	assert.Contains(t, logger.Messages(observability.InfoLevel), "Complete!")
}

func TestCommand_SkipsPublishedProject(t *testing.T) {
	slnPath := writeCommandSolution(t)
	feed := commandFeed()
	feed.Add(repository.NewPackage("App", "1.0.0"))

	cmd := &Command{Source: feed}
	summary, err := cmd.Run(context.Background(), Options{Path: slnPath})
	require.NoError(t, err)

	require.NotEmpty(t, summary.Projects)
	assert.Equal(t, "App", summary.Projects[0].Name)
	assert.Equal(t, StatusSkipped, summary.Projects[0].Status)

	_, err = os.Stat(filepath.Join(filepath.Dir(slnPath), "App", ledger.FileName))
	assert.True(t, os.IsNotExist(err))
}

func TestCommand_Project(t *testing.T) {
	slnPath := writeCommandSolution(t)
	projectPath := filepath.Join(filepath.Dir(slnPath), "App", "App.csproj")

	cmd := &Command{Source: commandFeed()}
	summary, err := cmd.Run(context.Background(), Options{Path: projectPath})
	require.NoError(t, err)

	assert.Empty(t, summary.Pruned)
	require.Len(t, summary.Projects, 1)
	assert.Equal(t, StatusCompleted, summary.Projects[0].Status)

	repos, err := ledger.NewSharedRepository(filepath.Join(filepath.Dir(projectPath), "packages")).Repositories()
	require.NoError(t, err)
	assert.Equal(t, []string{`..\packages.config`}, repos)

	_, err = os.Stat(filepath.Join(filepath.Dir(projectPath), "App"+packaging.ManifestExtension))
	assert.True(t, os.IsNotExist(err))
}

func TestCommand_DirectoryInput(t *testing.T) {
	slnPath := writeCommandSolution(t)

	cmd := &Command{Source: commandFeed()}
	summary, err := cmd.Run(context.Background(), Options{Path: filepath.Dir(slnPath)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Utility"}, summary.Pruned)
}

func TestCommand_MalformedBuildProperties(t *testing.T) {
	slnPath := writeCommandSolution(t)

	cmd := &Command{Source: commandFeed()}
	_, err := cmd.Run(context.Background(), Options{Path: slnPath, BuildProperties: "Configuration"})
	require.ErrorIs(t, err, ErrMalformedBuildProperty)

	data, err := os.ReadFile(slnPath)
	require.NoError(t, err)
	assert.Equal(t, commandSln, string(data))
}

func TestCommand_MissingInput(t *testing.T) {
	cmd := &Command{Source: commandFeed()}
	_, err := cmd.Run(context.Background(), Options{Path: filepath.Join(t.TempDir(), "missing.sln")})
	require.ErrorIs(t, err, ErrInputNotFound)
}

func TestCommand_BrokenProjectDoesNotStopRun(t *testing.T) {
	slnPath := writeCommandSolution(t)
	writeFile(t, filepath.Join(filepath.Dir(slnPath), "Core", "Core.csproj"), "<Project>")

	cmd := &Command{Source: commandFeed()}
	summary, err := cmd.Run(context.Background(), Options{Path: slnPath})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed())
	var statuses []string
	for _, p := range summary.Projects {
		statuses = append(statuses, p.Name+":"+p.Status)
	}
	assert.ElementsMatch(t, []string{"Core:failed", "App:completed"}, statuses)
}
