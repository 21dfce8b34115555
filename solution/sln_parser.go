package solution

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	formatVersionRegex = regexp.MustCompile(`^Microsoft Visual Studio Solution File, Format Version (\S+)`)
	vsVersionRegex     = regexp.MustCompile(`^VisualStudioVersion = (\S+)`)

	// Project("{TYPE-GUID}") = "Name", "Path", "{GUID}"
	projectRegex = regexp.MustCompile(
		`(?i)^Project\("\{([A-F0-9-]+)\}"\)\s*=\s*"([^"]+)",\s*"([^"]+)",\s*"\{([A-F0-9-]+)\}"`,
	)
)

// ParseFile reads and parses a .sln file.
func ParseFile(path string) (*Solution, error) {
	if strings.ToLower(filepath.Ext(path)) != ".sln" {
		return nil, &ParseError{FilePath: path, Message: "not a .sln file"}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{
			FilePath: path,
			Message:  fmt.Sprintf("cannot open file: %v", err),
		}
	}
	defer func() { _ = file.Close() }()

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	return Parse(file, absPath)
}

// Parse parses solution text. path is recorded on the result and used to
// derive SolutionDir. UTF-8 and UTF-16 text with a byte order mark are
// both accepted.
func Parse(r io.Reader, path string) (*Solution, error) {
	sol := &Solution{
		FilePath:        path,
		SolutionDir:     filepath.Dir(path),
		Projects:        []Project{},
		SolutionFolders: []SolutionFolder{},
	}

	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	scanner := bufio.NewScanner(decoded)
	lineNum := 0
	openLine := 0
	var current *Project

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		trimmedLine := strings.TrimSpace(line)

		if trimmedLine == "" || strings.HasPrefix(trimmedLine, "#") {
			continue
		}

		if matches := formatVersionRegex.FindStringSubmatch(trimmedLine); matches != nil {
			sol.FormatVersion = matches[1]
			continue
		}

		if matches := vsVersionRegex.FindStringSubmatch(trimmedLine); matches != nil {
			sol.VisualStudioVersion = matches[1]
			continue
		}

		if matches := projectRegex.FindStringSubmatch(trimmedLine); matches != nil {
			if current != nil {
				return nil, &ParseError{
					FilePath: path,
					Line:     lineNum,
					Message:  fmt.Sprintf("project %q opened before %q was closed", matches[2], current.Name),
				}
			}
			current = &Project{
				Name:     matches[2],
				Path:     NormalizePath(matches[3]),
				GUID:     "{" + strings.ToUpper(matches[4]) + "}",
				TypeGUID: "{" + strings.ToUpper(matches[1]) + "}",
			}
			openLine = lineNum
			continue
		}

		if trimmedLine == "EndProject" && current != nil {
			if current.TypeGUID == ProjectTypeSolutionFolder {
				sol.SolutionFolders = append(sol.SolutionFolders, SolutionFolder{
					Name: current.Name,
					GUID: current.GUID,
				})
			} else {
				sol.Projects = append(sol.Projects, *current)
			}
			current = nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, &ParseError{
			FilePath: path,
			Message:  fmt.Sprintf("error reading file: %v", err),
		}
	}

	if current != nil {
		return nil, &ParseError{
			FilePath: path,
			Line:     openLine,
			Message:  "unexpected end of file: missing EndProject",
		}
	}

	return sol, nil
}
