package msbuild

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperties_Expand(t *testing.T) {
	props := NewProperties(map[string]string{"SolutionDir": `C:\src\`, "Configuration": "Debug"})

	assert.Equal(t, `C:\src\packages`, props.Expand(`$(SolutionDir)packages`))
	assert.Equal(t, "bin/Debug/", props.Expand("bin/$(configuration)/"))
	assert.Equal(t, "x", props.Expand("x$(Undefined)"))
	assert.Equal(t, "@(Compile)%(Identity)", props.Expand("@(Compile)%(Identity)"))
	assert.Equal(t, "$(Broken", props.Expand("$(Broken"))
}

func TestEvaluateCondition(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "exists.txt"), []byte("x"), 0644))

	props := NewProperties(map[string]string{
		"Configuration": "Debug",
		"Platform":      "AnyCPU",
		"Version":       "4",
		"Flag":          "true",
	})

	tests := []struct {
		name      string
		condition string
		want      bool
	}{
		{"empty", "", true},
		{"config platform", `'$(Configuration)|$(Platform)' == 'Debug|AnyCPU'`, true},
		{"case insensitive", `'$(Configuration)' == 'DEBUG'`, true},
		{"not equal", `'$(Configuration)' != 'Release'`, true},
		{"undefined is empty", `'$(Missing)' == ''`, true},
		{"and", `'$(Configuration)' == 'Debug' and '$(Platform)' == 'x86'`, false},
		{"or", `'$(Configuration)' == 'Release' or '$(Platform)' == 'AnyCPU'`, true},
		{"not", `!('$(Configuration)' == 'Release')`, true},
		{"numeric", `'$(Version)' >= '3.5'`, true},
		{"numeric less", `$(Version) < 2`, false},
		{"boolean property", `$(Flag)`, true},
		{"negated boolean", `!$(Flag)`, false},
		{"literal false", `false`, false},
		{"exists relative", `Exists('exists.txt')`, true},
		{"exists missing", `Exists('nope.txt')`, false},
		{"exists empty", `Exists('$(Missing)')`, false},
		{"trailing slash", `HasTrailingSlash('$(Configuration)\')`, true},
		{"parenthesized", `('$(Flag)' == 'true') and ($(Version) > 1)`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateCondition(tt.condition, props, dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateCondition_Errors(t *testing.T) {
	props := NewProperties(nil)

	for _, condition := range []string{
		`'a' == 'b`,
		`'a' ==`,
		`('a' == 'a'`,
		`'abc'`,
		`'a' < 'b'`,
		`Unknown('x')`,
		`'a' == 'a' 'b'`,
	} {
		t.Run(condition, func(t *testing.T) {
			_, err := EvaluateCondition(condition, props, ".")
			assert.Error(t, err)
		})
	}
}
