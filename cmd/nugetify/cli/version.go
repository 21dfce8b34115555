package cli

import (
	"fmt"
	"runtime"
)

// Version information (set by main from ldflags)
var (
	Version = "0.0.0-dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// GetVersion returns the version string
func GetVersion() string {
	return Version
}

// GetFullVersion returns detailed version information
func GetFullVersion() string {
	return fmt.Sprintf("nugetify version %s\ncommit: %s\nbuilt: %s\ngo: %s",
		Version, Commit, Date, runtime.Version())
}
