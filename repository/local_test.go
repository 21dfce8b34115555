package repository

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPackage(t *testing.T, path, id, ver string, files ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	w := zip.NewWriter(f)
	nuspec := fmt.Sprintf(`<?xml version="1.0"?>
<package><metadata><id>%s</id><version>%s</version><authors>t</authors><description>d</description></metadata></package>`, id, ver)

	entries := append([]string{id + ".nuspec"}, files...)
	for _, name := range entries {
		fw, err := w.Create(name)
		require.NoError(t, err)
		content := "binary"
		if name == id+".nuspec" {
			content = nuspec
		}
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestLocalSource_Packages(t *testing.T) {
	root := t.TempDir()
	writeTestPackage(t, filepath.Join(root, "Foo.1.0.nupkg"), "Foo", "1.0", "lib/net40/Foo.dll")
	writeTestPackage(t, filepath.Join(root, "Foo.1.2", "Foo.1.2.nupkg"), "Foo", "1.2", "lib/net45/Foo.dll", "lib/net45/Foo.xml")
	writeTestPackage(t, filepath.Join(root, "Foo.1.2.symbols.nupkg"), "Foo", "1.2", "lib/net45/Foo.pdb")
	require.NoError(t, os.WriteFile(filepath.Join(root, "Broken.1.0.nupkg"), []byte("not a zip"), 0644))

	src, err := NewLocalSource(root, WithConcurrency(2))
	require.NoError(t, err)

	pkgs, err := src.Packages(context.Background())
	require.NoError(t, err)
	require.Len(t, pkgs, 2)

	assert.Equal(t, "Foo", pkgs[0].ID())
	assert.Equal(t, "1.0", pkgs[0].Version().String())
	assert.Equal(t, []string{"lib/net40/Foo.dll"}, pkgs[0].Files())
	assert.Equal(t, "1.2", pkgs[1].Version().String())
	assert.Equal(t, []string{"lib/net45/Foo.dll", "lib/net45/Foo.xml"}, pkgs[1].Files())
	assert.True(t, pkgs[1].IsListed())
	assert.Equal(t, filepath.Join(root, "Foo.1.2", "Foo.1.2.nupkg"), pkgs[1].(*LocalPackage).Path())
}

func TestLocalSource_CachesListings(t *testing.T) {
	root := t.TempDir()
	writeTestPackage(t, filepath.Join(root, "Bar.2.0.nupkg"), "Bar", "2.0", "lib/Bar.dll")

	src, err := NewLocalSource(root)
	require.NoError(t, err)

	first, err := src.Packages(context.Background())
	require.NoError(t, err)
	second, err := src.Packages(context.Background())
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Same(t, first[0], second[0])
	assert.Equal(t, 1, src.cache.Len())
}

func TestLocalSource_MissingRoot(t *testing.T) {
	src, err := NewLocalSource(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)

	_, err = src.Packages(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalSource_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTestPackage(t, filepath.Join(root, "Bar.2.0.nupkg"), "Bar", "2.0", "lib/Bar.dll")

	src, err := NewLocalSource(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = src.Packages(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
