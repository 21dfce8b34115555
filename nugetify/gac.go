package nugetify

import (
	"os"
	"path/filepath"
	"strings"
)

// GlobalCache answers whether a fully qualified identity resolves in the
// platform's global assembly cache.
type GlobalCache interface {
	Contains(id AssemblyIdentity) bool
}

// NoGlobalCache resolves nothing. It stands in on hosts without a GAC.
type NoGlobalCache struct{}

// Contains always returns false.
func (NoGlobalCache) Contains(AssemblyIdentity) bool { return false }

// gacLayouts are the cache folders under a Windows directory, .NET 2.0 and
// .NET 4.0 style.
var gacLayouts = []string{
	"assembly/GAC_MSIL",
	"assembly/GAC_32",
	"assembly/GAC_64",
	"assembly/GAC",
	"Microsoft.NET/assembly/GAC_MSIL",
	"Microsoft.NET/assembly/GAC_32",
	"Microsoft.NET/assembly/GAC_64",
}

// GACDirectory looks identities up in GAC folder layouts under one or more
// roots, each normally a Windows directory.
type GACDirectory struct {
	Roots []string
}

// NewGACDirectory creates a GACDirectory over roots.
func NewGACDirectory(roots ...string) *GACDirectory {
	return &GACDirectory{Roots: roots}
}

// DefaultGACRoots returns %WINDIR% (or %SystemRoot%) when set.
func DefaultGACRoots() []string {
	for _, key := range []string{"WINDIR", "SystemRoot"} {
		if dir := os.Getenv(key); dir != "" {
			return []string{dir}
		}
	}
	return nil
}

// Contains reports whether some layout holds <Name>/<folder>/<Name>.dll
// with a folder matching the identity's version, culture and token.
func (g *GACDirectory) Contains(id AssemblyIdentity) bool {
	if id.Name == "" {
		return false
	}

	for _, root := range g.Roots {
		for _, layout := range gacLayouts {
			dir := filepath.Join(root, filepath.FromSlash(layout), id.Name)
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if !e.IsDir() || !matchesGACFolder(e.Name(), id) {
					continue
				}
				if info, err := os.Stat(filepath.Join(dir, e.Name(), id.Name+".dll")); err == nil && !info.IsDir() {
					return true
				}
			}
		}
	}
	return false
}

// matchesGACFolder checks a "[v4.0_]version_culture_token" folder name.
// Identity fields left empty match any value.
func matchesGACFolder(folder string, id AssemblyIdentity) bool {
	parts := strings.Split(strings.TrimPrefix(folder, "v4.0_"), "_")
	if len(parts) != 3 {
		return false
	}
	ver, culture, token := parts[0], parts[1], parts[2]

	if id.Version != "" && ver != id.Version {
		return false
	}
	if id.Culture != "" {
		want := id.Culture
		if strings.EqualFold(want, "neutral") {
			want = ""
		}
		if !strings.EqualFold(culture, want) {
			return false
		}
	}
	if id.PublicKeyToken != "" && !strings.EqualFold(token, id.PublicKeyToken) {
		return false
	}
	return true
}
