package nugetify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installInGAC(t *testing.T, root, layout, name, folder string) {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(layout), name, folder)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".dll"), []byte("MZ"), 0644))
}

func TestGACDirectory_Contains(t *testing.T) {
	root := t.TempDir()
	installInGAC(t, root, "assembly/GAC_MSIL", "System.Web.Mvc", "3.0.0.0__31bf3856ad364e35")
	installInGAC(t, root, "Microsoft.NET/assembly/GAC_MSIL", "System.Net.Http", "v4.0_4.0.0.0__b03f5f7f11d50a3a")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assembly", "GAC_MSIL", "Empty", "1.0.0.0__0123456789abcdef"), 0755))

	gac := NewGACDirectory(root)

	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"net20 layout", "System.Web.Mvc, Version=3.0.0.0, Culture=neutral, PublicKeyToken=31bf3856ad364e35", true},
		{"net40 layout", "System.Net.Http, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b03f5f7f11d50a3a", true},
		{"version mismatch", "System.Web.Mvc, Version=4.0.0.0, Culture=neutral, PublicKeyToken=31bf3856ad364e35", false},
		{"token mismatch", "System.Web.Mvc, Version=3.0.0.0, Culture=neutral, PublicKeyToken=0000000000000000", false},
		{"culture mismatch", "System.Web.Mvc, Version=3.0.0.0, Culture=de-DE, PublicKeyToken=31bf3856ad364e35", false},
		{"name only", "System.Web.Mvc", true},
		{"folder without binary", "Empty, Version=1.0.0.0", false},
		{"absent", "Contoso.Core, Version=1.0.0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gac.Contains(ParseAssemblyName(tt.id)))
		})
	}
}

func TestNoGlobalCache(t *testing.T) {
	assert.False(t, NoGlobalCache{}.Contains(AssemblyIdentity{Name: "System"}))
}

func TestDefaultGACRoots(t *testing.T) {
	t.Setenv("WINDIR", `C:\Windows`)
	assert.Equal(t, []string{`C:\Windows`}, DefaultGACRoots())
}
