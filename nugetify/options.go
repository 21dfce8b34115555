package nugetify

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"

	"github.com/willibrandon/nugetify/packaging"
)

// Options are the inputs of one nugetify run.
type Options struct {
	// Path is a .sln file, a .csproj file, or a directory holding one.
	Path string
	// BuildProperties is a comma-separated list of Key=Value pairs applied
	// when projects are loaded.
	BuildProperties string
	// PackagesDir overrides the packages folder hint paths point into.
	PackagesDir string
	// WriteNuspec writes <AssemblyName>.nuspec next to each project.
	WriteNuspec bool
	Nuspec      packaging.DescriptorMetadata
}

// ParseBuildProperties parses "Key=Value,Key2=Value2". Keys and values are
// trimmed; an empty list gives an empty map.
func ParseBuildProperties(s string) (map[string]string, error) {
	props := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return props, nil
	}

	for _, pair := range strings.Split(s, ",") {
		kv := strings.Split(pair, "=")
		if len(kv) != 2 {
			msg := fmt.Sprintf("Key value pair near %s is formatted incorrectly", kv[0])
			return nil, zerr.With(zerr.Wrap(ErrMalformedBuildProperty, msg), "pair", pair)
		}
		props[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return props, nil
}
