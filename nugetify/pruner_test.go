package nugetify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/nugetify/observability"
	"github.com/willibrandon/nugetify/repository"
	"github.com/willibrandon/nugetify/solution"
)

const prunerSln = "\r\n" +
	"Microsoft Visual Studio Solution File, Format Version 12.00\r\n" +
	"# Visual Studio 2013\r\n" +
	`Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "App", "App\App.csproj", "{11111111-1111-1111-1111-111111111111}"` + "\r\n" +
	"EndProject\r\n" +
	`Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "Utility", "Utility\Utility.csproj", "{22222222-2222-2222-2222-222222222222}"` + "\r\n" +
	"\tProjectSection(ProjectDependencies) = postProject\r\n" +
	"\t\t{11111111-1111-1111-1111-111111111111} = {11111111-1111-1111-1111-111111111111}\r\n" +
	"\tEndProjectSection\r\n" +
	"EndProject\r\n" +
	`Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "Utility.Tests", "Utility.Tests\Utility.Tests.csproj", "{33333333-3333-3333-3333-333333333333}"` + "\r\n" +
	"EndProject\r\n" +
	`Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "Core", "Core\Core.csproj", "{44444444-4444-4444-4444-444444444444}"` + "\r\n" +
	"EndProject\r\n" +
	"Global\r\n" +
	"EndGlobal\r\n"

func writeSolution(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "All.sln")
	require.NoError(t, os.WriteFile(path, []byte(prunerSln), 0644))
	return path
}

func TestPruner_RemovesPublishedProjects(t *testing.T) {
	path := writeSolution(t)
	src := repository.NewMemorySource("feed",
		repository.NewPackage("App", "1.0.0"),
		repository.NewPackage("utility", "1.0.0"),
		repository.NewPackage("Core", "3.0.0"),
	)

	logger := observability.NewMemoryLogger()
	removed, err := NewPruner(src, logger).Prune(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Utility", "Core"}, removed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `"App", "App\App.csproj"`)
	assert.Contains(t, text, `"Utility.Tests", "Utility.Tests\Utility.Tests.csproj"`)
	assert.NotContains(t, text, `"Utility", "Utility\Utility.csproj"`)
	assert.NotContains(t, text, "ProjectDependencies")
	assert.NotContains(t, text, `"Core"`)
	assert.True(t, strings.HasSuffix(text, "Global\r\nEndGlobal\r\n"))

	sol, err := solution.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, sol.Projects, 2)
	assert.Equal(t, "App", sol.Projects[0].Name)
	assert.Equal(t, "Utility.Tests", sol.Projects[1].Name)

	assert.Equal(t, []string{
		"Checking for projects in solution that are NuGet packages...",
		"Removed 2 projects from the solution:",
		"Utility",
		"Core",
	}, logger.Messages(observability.InfoLevel))
}

func TestPruner_NothingToRemove(t *testing.T) {
	path := writeSolution(t)
	src := repository.NewMemorySource("feed", repository.NewPackage("Newtonsoft.Json", "6.0.1"))

	removed, err := NewPruner(src, nil).Prune(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, removed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, prunerSln, string(data))
}

func TestPruner_KeepsSolutionFolderWithSameName(t *testing.T) {
	folder := `Project("{2150E333-8FDC-42A3-9474-1A3956D46DE8}") = "Utility", "Utility", "{55555555-5555-5555-5555-555555555555}"` + "\r\n" +
		"EndProject\r\n"
	sln := strings.Replace(prunerSln, "Global\r\n", folder+"Global\r\n", 1)
	path := filepath.Join(t.TempDir(), "All.sln")
	require.NoError(t, os.WriteFile(path, []byte(sln), 0644))

	src := repository.NewMemorySource("feed", repository.NewPackage("Utility", "1.0.0"))

	removed, err := NewPruner(src, nil).Prune(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Utility"}, removed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.NotContains(t, text, `"Utility", "Utility\Utility.csproj"`)
	assert.Contains(t, text, folder)

	sol, err := solution.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, sol.SolutionFolders, 1)
	assert.Equal(t, "Utility", sol.SolutionFolders[0].Name)
	assert.Len(t, sol.Projects, 3)
}

func TestPruner_Errors(t *testing.T) {
	_, err := NewPruner(repository.NewMemorySource("feed"), nil).Prune(context.Background(), filepath.Join(t.TempDir(), "Missing.sln"))
	var parseErr *solution.ParseError
	assert.ErrorAs(t, err, &parseErr)

	boom := errors.New("feed offline")
	_, err = NewPruner(failingSource{err: boom}, nil).Prune(context.Background(), writeSolution(t))
	assert.ErrorIs(t, err, boom)
}
