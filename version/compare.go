package version

import (
	"strconv"
	"strings"
)

// Compare returns -1, 0 or 1 when v is lower than, equal to or higher than other.
//
// Numeric components are compared first, including the revision of 4-part
// versions (a missing revision counts as zero). A release version sorts
// above any prerelease of the same numbers. Metadata is ignored.
func (v *NuGetVersion) Compare(other *NuGetVersion) int {
	if v == other {
		return 0
	}
	if v == nil {
		return -1
	}
	if other == nil {
		return 1
	}

	for _, pair := range [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
		{v.Revision, other.Revision},
	} {
		if c := compareInt(pair[0], pair[1]); c != 0 {
			return c
		}
	}

	return compareReleaseLabels(v, other)
}

// Equals reports whether both versions compare equal.
func (v *NuGetVersion) Equals(other *NuGetVersion) bool {
	return v.Compare(other) == 0
}

// GreaterThan reports whether v sorts above other.
func (v *NuGetVersion) GreaterThan(other *NuGetVersion) bool {
	return v.Compare(other) > 0
}

// LessThan reports whether v sorts below other.
func (v *NuGetVersion) LessThan(other *NuGetVersion) bool {
	return v.Compare(other) < 0
}

// IsPrerelease reports whether the version carries a non-empty release label.
func (v *NuGetVersion) IsPrerelease() bool {
	for _, label := range v.ReleaseLabels {
		if label != "" {
			return true
		}
	}
	return false
}

// SameMajorMinor reports whether both versions share Major and Minor.
func (v *NuGetVersion) SameMajorMinor(other *NuGetVersion) bool {
	if v == nil || other == nil {
		return false
	}
	return v.Major == other.Major && v.Minor == other.Minor
}

// ToNormalizedString returns Major.Minor.Patch[.Revision][-labels] without
// metadata and without leading zeros.
func (v *NuGetVersion) ToNormalizedString() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(v.Major))
	b.WriteString(".")
	b.WriteString(strconv.Itoa(v.Minor))
	b.WriteString(".")
	b.WriteString(strconv.Itoa(v.Patch))
	if v.Revision > 0 {
		b.WriteString(".")
		b.WriteString(strconv.Itoa(v.Revision))
	}
	if v.IsPrerelease() {
		b.WriteString("-")
		b.WriteString(strings.Join(v.ReleaseLabels, "."))
	}
	return b.String()
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareReleaseLabels(a, b *NuGetVersion) int {
	aPre, bPre := a.IsPrerelease(), b.IsPrerelease()
	switch {
	case !aPre && !bPre:
		return 0
	case !aPre:
		return 1
	case !bPre:
		return -1
	}

	n := min(len(a.ReleaseLabels), len(b.ReleaseLabels))
	for i := range n {
		if c := compareLabel(a.ReleaseLabels[i], b.ReleaseLabels[i]); c != 0 {
			return c
		}
	}

	return compareInt(len(a.ReleaseLabels), len(b.ReleaseLabels))
}

// compareLabel orders numeric labels numerically and below alphanumeric ones;
// alphanumeric labels compare case-insensitively.
func compareLabel(a, b string) int {
	aNum, aErr := strconv.Atoi(a)
	bNum, bErr := strconv.Atoi(b)

	switch {
	case aErr == nil && bErr == nil:
		return compareInt(aNum, bNum)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}

	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
