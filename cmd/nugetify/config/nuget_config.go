// Package config reads package sources from NuGet.config files.
package config

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// NuGetConfig represents the parts of a NuGet.config file nugetify reads
type NuGetConfig struct {
	XMLName                xml.Name                `xml:"configuration"`
	PackageSources         *PackageSources         `xml:"packageSources"`
	DisabledPackageSources *DisabledPackageSources `xml:"disabledPackageSources,omitempty"`

	// path is the file the config was loaded from
	path string
}

// DisabledPackageSources contains disabled package source definitions
type DisabledPackageSources struct {
	Add []DisabledPackageSource `xml:"add"`
}

// DisabledPackageSource represents a disabled package source
type DisabledPackageSource struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

// PackageSources contains package source definitions
type PackageSources struct {
	Clear *struct{}       `xml:"clear"`
	Add   []PackageSource `xml:"add"`
}

// PackageSource represents a package source
type PackageSource struct {
	Key             string `xml:"key,attr"`
	Value           string `xml:"value,attr"`
	ProtocolVersion string `xml:"protocolVersion,attr,omitempty"`
	Enabled         string `xml:"enabled,attr,omitempty"`
}

// LoadNuGetConfig loads a NuGet.config file
func LoadNuGetConfig(path string) (*NuGetConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	config, err := ParseNuGetConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	config.path = path
	return config, nil
}

// ParseNuGetConfig parses NuGet.config XML from a reader
func ParseNuGetConfig(r io.Reader) (*NuGetConfig, error) {
	var config NuGetConfig
	decoder := xml.NewDecoder(r)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config XML: %w", err)
	}

	return &config, nil
}

// Path returns the file the config was loaded from
func (c *NuGetConfig) Path() string {
	return c.path
}

// IsSourceDisabled checks if a source is disabled
func (c *NuGetConfig) IsSourceDisabled(key string) bool {
	if c.DisabledPackageSources == nil {
		return false
	}

	for _, disabled := range c.DisabledPackageSources.Add {
		if strings.EqualFold(disabled.Key, key) && strings.EqualFold(disabled.Value, "true") {
			return true
		}
	}

	return false
}

// GetEnabledPackageSources returns the enabled package sources declared by
// this file. A source is enabled unless disabledPackageSources lists it or
// its enabled attribute is "false".
func (c *NuGetConfig) GetEnabledPackageSources() []PackageSource {
	if c.PackageSources == nil {
		return nil
	}

	var enabled []PackageSource
	for _, source := range c.PackageSources.Add {
		if c.IsSourceDisabled(source.Key) || strings.EqualFold(source.Enabled, "false") {
			continue
		}
		enabled = append(enabled, source)
	}

	return enabled
}

// IsLocal reports whether the source is a folder rather than a feed URL
func (s PackageSource) IsLocal() bool {
	u, err := url.Parse(s.Value)
	if err != nil || u.Scheme == "" {
		return true
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return false
	case "file":
		return true
	}
	// A drive letter parses as a one-letter scheme.
	return len(u.Scheme) == 1
}

// LocalPath returns the folder a local source points at. Relative paths are
// relative to the directory of the config that declared them.
func (s PackageSource) LocalPath(configDir string) string {
	value := s.Value
	if u, err := url.Parse(value); err == nil && strings.EqualFold(u.Scheme, "file") {
		value = u.Path
	}
	value = filepath.FromSlash(strings.ReplaceAll(value, "\\", "/"))
	if filepath.IsAbs(value) || configDir == "" || (len(value) > 1 && value[1] == ':') {
		return value
	}
	return filepath.Join(configDir, value)
}

// GetUserConfigPath returns the user-level NuGet.config path
func GetUserConfigPath() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "NuGet", "NuGet.Config")
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nuget", "NuGet", "NuGet.Config")
}

// GetConfigHierarchy returns the existing config files that apply to
// workingDirectory, nearest first, followed by the user config.
func GetConfigHierarchy(workingDirectory string) []string {
	var paths []string

	dir := workingDirectory
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			dir = "."
		}
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	for {
		for _, name := range []string{"NuGet.Config", "NuGet.config", "nuget.config"} {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				paths = append(paths, configPath)
				break
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if user := GetUserConfigPath(); user != "" {
		if _, err := os.Stat(user); err == nil {
			paths = append(paths, user)
		}
	}

	return paths
}

// ResolvedSource is an enabled source with local paths made absolute
type ResolvedSource struct {
	Name  string
	Value string
	Local bool
	// Path is set for local sources
	Path string
}

// ResolveSources merges the enabled sources of the given config files.
// Files are listed nearest first; a nearer file's definition of a key wins
// and a <clear/> stops inheritance from files further away.
func ResolveSources(paths []string) ([]ResolvedSource, error) {
	var sources []ResolvedSource
	seen := make(map[string]bool)

	for _, path := range paths {
		cfg, err := LoadNuGetConfig(path)
		if err != nil {
			return nil, err
		}

		dir := filepath.Dir(path)
		for _, s := range cfg.GetEnabledPackageSources() {
			key := strings.ToLower(s.Key)
			if seen[key] {
				continue
			}
			seen[key] = true

			rs := ResolvedSource{Name: s.Key, Value: s.Value, Local: s.IsLocal()}
			if rs.Local {
				rs.Path = s.LocalPath(dir)
			}
			sources = append(sources, rs)
		}

		if cfg.PackageSources != nil && cfg.PackageSources.Clear != nil {
			break
		}
	}

	return sources, nil
}
