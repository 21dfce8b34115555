// Package version provides NuGet package and assembly version parsing and comparison.
//
// It accepts NuGet SemVer 2.0 strings as well as the 4-part versions found in
// assembly identities and legacy packages.config files.
//
// Example:
//
//	v, err := version.Parse("2.3.0.0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(v.Major, v.Minor) // 2 3
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// NuGetVersion represents a package or assembly version.
//
// SemVer 2.0 (Major.Minor.Patch[-Prerelease][+Metadata]) and legacy
// 4-part (Major.Minor.Build.Revision) forms share this type.
type NuGetVersion struct {
	Major    int
	Minor    int
	Patch    int
	Revision int

	// IsLegacyVersion is set for 4-part versions.
	IsLegacyVersion bool

	// ReleaseLabels holds the prerelease labels, e.g. ["beta", "1"] for "1.0.0-beta.1".
	ReleaseLabels []string

	// Metadata is ignored in comparisons.
	Metadata string

	originalString string
}

// String returns the version as it was parsed, or a formatted form for
// versions built in code.
func (v *NuGetVersion) String() string {
	if v.originalString != "" {
		return v.originalString
	}
	return v.format()
}

func (v *NuGetVersion) format() string {
	var b strings.Builder

	if v.IsLegacyVersion {
		fmt.Fprintf(&b, "%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Revision)
	} else {
		fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	}

	if v.IsPrerelease() {
		b.WriteString("-")
		b.WriteString(strings.Join(v.ReleaseLabels, "."))
	}

	if v.Metadata != "" {
		b.WriteString("+")
		b.WriteString(v.Metadata)
	}

	return b.String()
}

// Parse parses a version string.
//
// Between two and four numeric components are accepted, so assembly
// versions such as "4.0.0.0" and short forms such as "1.2" both parse.
func Parse(s string) (*NuGetVersion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("version string cannot be empty")
	}

	v := &NuGetVersion{originalString: s}

	versionPart, metadata, _ := strings.Cut(s, "+")
	v.Metadata = metadata

	numberPart, labels, hasLabels := strings.Cut(versionPart, "-")
	if hasLabels {
		if labels == "" {
			return nil, fmt.Errorf("invalid version format: %q", s)
		}
		v.ReleaseLabels = strings.Split(labels, ".")
	}

	numbers := strings.Split(numberPart, ".")
	if len(numbers) < 2 || len(numbers) > 4 {
		return nil, fmt.Errorf("invalid version format: %q", s)
	}

	parts := make([]int, 4)
	names := [...]string{"major version", "minor version", "patch version", "revision"}
	for i, n := range numbers {
		value, err := strconv.Atoi(n)
		if err != nil || value < 0 {
			return nil, fmt.Errorf("invalid %s: %q", names[i], n)
		}
		parts[i] = value
	}

	v.Major, v.Minor, v.Patch, v.Revision = parts[0], parts[1], parts[2], parts[3]
	v.IsLegacyVersion = len(numbers) == 4

	return v, nil
}

// MustParse parses a version string and panics on error.
// Use this only when you know the version string is valid.
func MustParse(s string) *NuGetVersion {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// New builds a version from numeric components.
func New(major, minor, patch, revision int) *NuGetVersion {
	return &NuGetVersion{
		Major:           major,
		Minor:           minor,
		Patch:           patch,
		Revision:        revision,
		IsLegacyVersion: revision != 0,
	}
}
