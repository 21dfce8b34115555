// Package solution parses Visual Studio .sln files and locates the solution
// or project a command should operate on.
package solution

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Solution represents a parsed .sln file
type Solution struct {
	// FilePath is the absolute path to the solution file
	FilePath string

	// FormatVersion is the solution file format version (e.g., "12.00" for VS 2013+)
	FormatVersion string

	// VisualStudioVersion is the Visual Studio version that created the file
	VisualStudioVersion string

	// Projects contains all projects in declaration order (excludes solution folders)
	Projects []Project

	// SolutionFolders contains virtual folders for organizing projects
	SolutionFolders []SolutionFolder

	// SolutionDir is the directory containing the solution file
	SolutionDir string
}

// Project represents a project entry in a solution
type Project struct {
	// Name is the display name of the project
	Name string

	// Path is the project file path as written in the solution, with forward slashes
	Path string

	// GUID is the unique identifier for this project instance
	GUID string

	// TypeGUID identifies the project type (C#, VB.NET, F#, etc.)
	TypeGUID string
}

// SolutionFolder represents a virtual folder in the solution
type SolutionFolder struct {
	Name string
	GUID string
}

// ParseError represents an error during solution file parsing
type ParseError struct {
	// FilePath is the path to the file being parsed
	FilePath string

	// Line is the line number where the error occurred
	Line int

	// Message describes what went wrong
	Message string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// ProjectType GUIDs for common project types
const (
	// ProjectTypeCSProject identifies a C# project (classic)
	ProjectTypeCSProject = "{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}"

	// ProjectTypeCSProjectSDK identifies a SDK-style C# project
	ProjectTypeCSProjectSDK = "{9A19103F-16F7-4668-BE54-9A1E7A4F7556}"

	// ProjectTypeVBProject identifies a VB.NET project
	ProjectTypeVBProject = "{F184B08F-C81C-45F6-A57F-5ABD9991F28F}"

	// ProjectTypeSolutionFolder identifies a solution folder
	ProjectTypeSolutionFolder = "{2150E333-8FDC-42A3-9474-1A3956D46DE8}"
)

// IsProjectFile returns true if the path looks like an MSBuild project file
func (p *Project) IsProjectFile() bool {
	return IsProjectFile(p.Path)
}

// GetAbsolutePath returns the absolute path to the project file
func (p *Project) GetAbsolutePath(solutionDir string) string {
	return ResolveProjectPath(solutionDir, p.Path)
}

// GetProjectByName finds a project by its name (case-insensitive)
func (s *Solution) GetProjectByName(name string) (*Project, bool) {
	for i := range s.Projects {
		if strings.EqualFold(s.Projects[i].Name, name) {
			return &s.Projects[i], true
		}
	}
	return nil, false
}

// ProjectFiles returns the absolute paths of every MSBuild project in
// declaration order.
func (s *Solution) ProjectFiles() []string {
	paths := make([]string, 0, len(s.Projects))
	for _, project := range s.Projects {
		if project.IsProjectFile() {
			paths = append(paths, project.GetAbsolutePath(s.SolutionDir))
		}
	}
	return paths
}

// NormalizePath converts Windows-style paths to forward slash format
func NormalizePath(path string) string {
	normalized := strings.ReplaceAll(path, "\\", "/")

	for strings.Contains(normalized, "//") {
		normalized = strings.ReplaceAll(normalized, "//", "/")
	}

	return normalized
}

// ResolveProjectPath resolves a project path from a solution file
func ResolveProjectPath(solutionDir, projectPath string) string {
	if projectPath == "" {
		return ""
	}

	normalized := filepath.FromSlash(NormalizePath(projectPath))

	if filepath.IsAbs(normalized) {
		return filepath.Clean(normalized)
	}

	return filepath.Clean(filepath.Join(solutionDir, normalized))
}
