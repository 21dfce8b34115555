package nugetify

import "go.trai.ch/zerr"

var (
	// ErrInputNotFound is returned when the command target does not exist or
	// a directory holds no solution or project file.
	ErrInputNotFound = zerr.New("input not found")

	// ErrMalformedBuildProperty is returned for a build property list entry
	// that is not a single key=value pair.
	ErrMalformedBuildProperty = zerr.New("malformed build property")

	// ErrFileNotInPackage is returned when a resolved package holds no file
	// matching the reference's binary name.
	ErrFileNotInPackage = zerr.New("file not found in package")

	// ErrNotManagedAssembly is returned when a probed file carries no CLI
	// metadata or no assembly manifest.
	ErrNotManagedAssembly = zerr.New("not a managed assembly")

	// ErrProbeTimeout is returned when an identity probe exceeds its deadline.
	ErrProbeTimeout = zerr.New("identity probe timed out")
)
