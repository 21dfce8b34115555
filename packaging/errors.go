package packaging

import "errors"

var (
	// ErrInvalidPackage indicates the package structure is invalid
	ErrInvalidPackage = errors.New("invalid package structure")

	// ErrNuspecNotFound indicates no .nuspec file was found
	ErrNuspecNotFound = errors.New("nuspec file not found")

	// ErrMultipleNuspecs indicates multiple .nuspec files were found
	ErrMultipleNuspecs = errors.New("multiple nuspec files found")

	// ErrFileNotFound indicates a requested entry is absent from the package
	ErrFileNotFound = errors.New("file not found in package")
)
