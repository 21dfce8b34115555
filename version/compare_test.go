package version

import "testing"

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		v1       string
		v2       string
		expected int
	}{
		{"equal", "1.0.0", "1.0.0", 0},
		{"major less", "1.0.0", "2.0.0", -1},
		{"minor greater", "1.1.0", "1.0.0", 1},
		{"patch less", "1.0.0", "1.0.1", -1},
		{"short form equals long form", "1.2", "1.2.0", 0},
		{"assembly version equals semver", "2.3.0.0", "2.3.0", 0},
		{"revision counts", "1.0.0.1", "1.0.0", 1},
		{"revision less", "1.0.0.0", "1.0.0.1", -1},
		{"release > prerelease", "1.0.0", "1.0.0-beta", 1},
		{"prerelease alpha < beta", "1.0.0-alpha", "1.0.0-beta", -1},
		{"labels case-insensitive", "1.0.0-BETA", "1.0.0-beta", 0},
		{"numeric < alphanumeric", "1.0.0-1", "1.0.0-alpha", -1},
		{"numeric labels numerically", "1.0.0-rc.2", "1.0.0-rc.10", -1},
		{"shorter label list", "1.0.0-alpha", "1.0.0-alpha.1", -1},
		{"metadata ignored", "1.0.0+a", "1.0.0+b", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustParse(tt.v1).Compare(MustParse(tt.v2))
			if got != tt.expected {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.v1, tt.v2, got, tt.expected)
			}
		})
	}
}

func TestCompare_Nil(t *testing.T) {
	v := MustParse("1.0.0")
	if v.Compare(nil) != 1 {
		t.Error("Compare(nil) should be 1")
	}
	var none *NuGetVersion
	if none.Compare(v) != -1 {
		t.Error("nil.Compare(v) should be -1")
	}
}

func TestGreaterThanLessThan(t *testing.T) {
	low, high := MustParse("1.0"), MustParse("1.2")
	if !high.GreaterThan(low) || high.LessThan(low) {
		t.Error("1.2 should be greater than 1.0")
	}
	if !low.LessThan(high) {
		t.Error("1.0 should be less than 1.2")
	}
	if !low.Equals(MustParse("1.0.0.0")) {
		t.Error("1.0 should equal 1.0.0.0")
	}
}

func TestSameMajorMinor(t *testing.T) {
	tests := []struct {
		v1, v2 string
		want   bool
	}{
		{"2.3.0.0", "2.3.7", true},
		{"2.3.0.0", "2.4.0", false},
		{"1.0", "2.0", false},
	}

	for _, tt := range tests {
		if got := MustParse(tt.v1).SameMajorMinor(MustParse(tt.v2)); got != tt.want {
			t.Errorf("SameMajorMinor(%s, %s) = %v, want %v", tt.v1, tt.v2, got, tt.want)
		}
	}
}

func TestToNormalizedString(t *testing.T) {
	tests := []struct{ input, want string }{
		{"1.01.1", "1.1.1"},
		{"1.2", "1.2.0"},
		{"2.3.0.0", "2.3.0"},
		{"2.3.0.4", "2.3.0.4"},
		{"1.0.0-beta+meta", "1.0.0-beta"},
	}

	for _, tt := range tests {
		if got := MustParse(tt.input).ToNormalizedString(); got != tt.want {
			t.Errorf("ToNormalizedString(%s) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
