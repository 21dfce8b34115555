package version

import (
	"fmt"
	"strings"
)

// Range represents a range of acceptable versions.
//
// Syntax:
//
//	[1.0, 2.0]   - 1.0 ≤ x ≤ 2.0 (inclusive)
//	(1.0, 2.0)   - 1.0 < x < 2.0 (exclusive)
//	[1.0, 2.0)   - 1.0 ≤ x < 2.0 (mixed)
//	[1.0, )      - x ≥ 1.0 (open upper)
//	(, 2.0]      - x ≤ 2.0 (open lower)
//	[1.0]        - x == 1.0 (exact)
//	1.0          - x ≥ 1.0 (implicit minimum)
type Range struct {
	MinVersion   *NuGetVersion
	MaxVersion   *NuGetVersion
	MinInclusive bool
	MaxInclusive bool
}

// Upper bound used for references whose assembly version is unknown.
var unboundedCeiling = New(9999, 9999, 0, 0)

// ParseVersionRange parses a version range string.
func ParseVersionRange(s string) (*Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("version range cannot be empty")
	}

	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "(") {
		return parseRangeSyntax(s)
	}

	v, err := Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid version range: %w", err)
	}

	return &Range{MinVersion: v, MinInclusive: true}, nil
}

// MustParseRange parses a version range string and panics on error.
func MustParseRange(s string) *Range {
	r, err := ParseVersionRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

func parseRangeSyntax(s string) (*Range, error) {
	if !strings.HasSuffix(s, "]") && !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("range must end with ] or )")
	}

	r := &Range{
		MinInclusive: strings.HasPrefix(s, "["),
		MaxInclusive: strings.HasSuffix(s, "]"),
	}

	parts := strings.Split(s[1:len(s)-1], ",")

	var minPart, maxPart string
	switch len(parts) {
	case 1:
		minPart = strings.TrimSpace(parts[0])
		maxPart = minPart
	case 2:
		minPart = strings.TrimSpace(parts[0])
		maxPart = strings.TrimSpace(parts[1])
	default:
		return nil, fmt.Errorf("range must have one or two parts separated by comma")
	}

	var err error
	if minPart != "" {
		if r.MinVersion, err = Parse(minPart); err != nil {
			return nil, fmt.Errorf("invalid min version: %w", err)
		}
	}
	if maxPart != "" {
		if r.MaxVersion, err = Parse(maxPart); err != nil {
			return nil, fmt.Errorf("invalid max version: %w", err)
		}
	}

	return r, nil
}

// SafeRange returns the range of package versions considered compatible
// with a reference declared at assemblyVersion: the same major.minor family,
// [declared, major.(minor+1).0).
//
// An empty or unparsable assemblyVersion widens the range to every version
// below 9999.9999.
func SafeRange(assemblyVersion string) *Range {
	declared, err := Parse(assemblyVersion)
	if err != nil {
		return &Range{
			MinVersion:   New(0, 0, 0, 0),
			MinInclusive: true,
			MaxVersion:   unboundedCeiling,
		}
	}

	return &Range{
		MinVersion:   declared,
		MinInclusive: true,
		MaxVersion:   New(declared.Major, declared.Minor+1, 0, 0),
	}
}

// Satisfies returns true if the version satisfies this range.
func (r *Range) Satisfies(v *NuGetVersion) bool {
	if v == nil {
		return false
	}

	if r.MinVersion != nil {
		cmp := v.Compare(r.MinVersion)
		if cmp < 0 || (cmp == 0 && !r.MinInclusive) {
			return false
		}
	}

	if r.MaxVersion != nil {
		cmp := v.Compare(r.MaxVersion)
		if cmp > 0 || (cmp == 0 && !r.MaxInclusive) {
			return false
		}
	}

	return true
}

// String returns the bracket form of the range.
func (r *Range) String() string {
	minBracket, maxBracket := "(", ")"
	if r.MinInclusive {
		minBracket = "["
	}
	if r.MaxInclusive {
		maxBracket = "]"
	}

	var minStr, maxStr string
	if r.MinVersion != nil {
		minStr = r.MinVersion.String()
	}
	if r.MaxVersion != nil {
		maxStr = r.MaxVersion.String()
	}

	return fmt.Sprintf("%s%s, %s%s", minBracket, minStr, maxStr, maxBracket)
}
