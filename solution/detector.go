package solution

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// InputKind says whether a command targets a whole solution or one project.
type InputKind int

const (
	// KindSolution is a .sln file
	KindSolution InputKind = iota
	// KindProject is a .csproj file
	KindProject
)

// Input is the resolved target of a command.
type Input struct {
	Path string
	Kind InputKind
}

// IsSolutionFile checks if a file path has a solution file extension
func IsSolutionFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".sln"
}

// IsProjectFile checks if a file path has a project file extension
func IsProjectFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".csproj" || ext == ".vbproj" || ext == ".fsproj"
}

// DetectInput resolves a command argument to a solution or project file.
//
// A directory resolves to its first *.sln file, or failing that its first
// *.csproj file, in name order. Missing paths return an error wrapping
// os.ErrNotExist.
func DetectInput(path string) (*Input, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("could not find file : %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}

	if info.IsDir() {
		found, err := firstMatch(path, "*.sln", "*.csproj")
		if err != nil {
			return nil, err
		}
		if found == "" {
			return nil, fmt.Errorf("could not find a solution or project file in : %s: %w", path, os.ErrNotExist)
		}
		path = found
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	switch {
	case IsSolutionFile(absPath):
		return &Input{Path: absPath, Kind: KindSolution}, nil
	case strings.EqualFold(filepath.Ext(absPath), ".csproj"):
		return &Input{Path: absPath, Kind: KindProject}, nil
	default:
		return nil, fmt.Errorf("unsupported input (must be a .sln or .csproj file): %s", path)
	}
}

func firstMatch(dir string, patterns ...string) (string, error) {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", fmt.Errorf("error searching %s: %w", dir, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && !info.IsDir() {
				return m, nil
			}
		}
	}
	return "", nil
}
