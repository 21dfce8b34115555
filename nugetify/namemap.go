package nugetify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// NameMap translates binary file stems to package ids for packages whose
// id differs from the assembly they ship, e.g. "log4net" -> "log4net.Core".
// Lookups are exact.
type NameMap struct {
	names map[string]string
}

// NewNameMap creates a map from stem to package id.
func NewNameMap(names map[string]string) *NameMap {
	m := &NameMap{names: make(map[string]string, len(names))}
	for stem, id := range names {
		m.names[stem] = id
	}
	return m
}

// LoadNameMap reads a JSON object of stem to id. Files ending in .yaml or
// .yml are read as YAML mappings instead.
func LoadNameMap(path string) (*NameMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference map: %w", err)
	}

	names := make(map[string]string)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &names)
	default:
		err = json.Unmarshal(data, &names)
	}
	if err != nil {
		return nil, fmt.Errorf("parse reference map %s: %w", path, err)
	}

	return &NameMap{names: names}, nil
}

// DefaultNameMapPath returns %LOCALAPPDATA%/NuGet/referencemap.json, or
// ~/.nuget/referencemap.json when LOCALAPPDATA is not set.
func DefaultNameMapPath() string {
	if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
		return filepath.Join(dir, "NuGet", "referencemap.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nuget", "referencemap.json")
}

// LoadDefaultNameMap loads the map at DefaultNameMapPath. A missing file
// gives an empty map.
func LoadDefaultNameMap() (*NameMap, error) {
	path := DefaultNameMapPath()
	if path == "" {
		return NewNameMap(nil), nil
	}

	m, err := LoadNameMap(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewNameMap(nil), nil
	}
	return m, err
}

// PackageID returns the mapped id for stem, or stem itself. A nil map maps
// nothing.
func (m *NameMap) PackageID(stem string) string {
	if m == nil {
		return stem
	}
	if id, ok := m.names[stem]; ok {
		return id
	}
	return stem
}

// Len returns the number of entries.
func (m *NameMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.names)
}
