package nugetify

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/nugetify/repository"
)

func TestHintPathGenerator_ForAssembly(t *testing.T) {
	solutionDir := filepath.Join(t.TempDir(), "src")
	projectDir := filepath.Join(solutionDir, "App")
	foo := repository.NewPackage("Foo", "1.2", "lib/net40/Foo.dll", "lib/net40/Foo.xml")

	tests := []struct {
		name        string
		packagesDir string
		want        string
	}{
		{"project packages folder", "", `packages\Foo.1.2\lib\net40\Foo.dll`},
		{"relative shared folder", "packages", `..\packages\Foo.1.2\lib\net40\Foo.dll`},
		{"absolute shared folder", filepath.Join(solutionDir, "lib", "packages"), `..\lib\packages\Foo.1.2\lib\net40\Foo.dll`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := HintPathGenerator{PackagesDir: tt.packagesDir}

			got, err := g.ForAssembly(solutionDir, projectDir, foo, "Foo.dll")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHintPathGenerator_FileSelection(t *testing.T) {
	projectDir := t.TempDir()
	g := HintPathGenerator{}

	t.Run("exact name preferred over suffix", func(t *testing.T) {
		pkg := repository.NewPackage("Foo", "1.0.0", "lib/NotFoo.dll", "lib/net45/Foo.dll")

		got, err := g.ForAssembly(projectDir, projectDir, pkg, "Foo.dll")
		require.NoError(t, err)
		assert.Equal(t, `packages\Foo.1.0.0\lib\net45\Foo.dll`, got)
	})

	t.Run("case insensitive", func(t *testing.T) {
		pkg := repository.NewPackage("Foo", "1.0.0", `lib\FOO.DLL`)

		got, err := g.ForAssembly(projectDir, projectDir, pkg, "foo.dll")
		require.NoError(t, err)
		assert.Equal(t, `packages\Foo.1.0.0\lib\FOO.DLL`, got)
	})

	t.Run("suffix fallback", func(t *testing.T) {
		pkg := repository.NewPackage("Foo", "1.0.0", "lib/net40/Foo.dll", "lib/net45/Foo.dll")

		got, err := g.ForAssembly(projectDir, projectDir, pkg, `net45\Foo.dll`)
		require.NoError(t, err)
		assert.Equal(t, `packages\Foo.1.0.0\lib\net45\Foo.dll`, got)
	})

	t.Run("suffix must start at a path separator", func(t *testing.T) {
		pkg := repository.NewPackage("Foo", "1.0.0", "lib/NotFoo.dll", "lib/Contoso.Foo.dll")

		_, err := g.ForAssembly(projectDir, projectDir, pkg, "Foo.dll")
		assert.ErrorIs(t, err, ErrFileNotInPackage)
	})

	t.Run("missing file", func(t *testing.T) {
		pkg := repository.NewPackage("Foo", "1.0.0", "lib/Bar.dll")

		_, err := g.ForAssembly(projectDir, projectDir, pkg, "Foo.dll")
		assert.ErrorIs(t, err, ErrFileNotInPackage)
	})
}
