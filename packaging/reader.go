// Package packaging provides read access to NuGet packages (.nupkg files) and
// writes package descriptors (.nuspec files).
package packaging

import (
	"archive/zip"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/willibrandon/nugetify/version"
)

// PackageReader provides read access to .nupkg files.
type PackageReader struct {
	zipReader   *zip.ReadCloser
	zipReaderAt *zip.Reader // For in-memory ZIPs
	isClosable  bool

	// Cached values
	nuspec      *Nuspec
	identity    *PackageIdentity
	nuspecEntry *zip.File
}

// PackageIdentity represents a package ID and version.
type PackageIdentity struct {
	ID      string
	Version *version.NuGetVersion
}

// String returns "ID Version" format.
func (p *PackageIdentity) String() string {
	return fmt.Sprintf("%s %s", p.ID, p.Version.String())
}

// OpenPackage opens a .nupkg file from a file path.
func OpenPackage(path string) (*PackageReader, error) {
	zipReader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}

	return &PackageReader{
		zipReader:  zipReader,
		isClosable: true,
	}, nil
}

// OpenPackageFromReaderAt opens a package from a ReaderAt.
func OpenPackageFromReaderAt(r io.ReaderAt, size int64) (*PackageReader, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open package from reader: %w", err)
	}

	return &PackageReader{
		zipReaderAt: zipReader,
		isClosable:  false,
	}, nil
}

// Close closes the package reader.
func (r *PackageReader) Close() error {
	if !r.isClosable || r.zipReader == nil {
		return nil
	}
	return r.zipReader.Close()
}

// Files returns the list of files in the ZIP.
func (r *PackageReader) Files() []*zip.File {
	if r.zipReader != nil {
		return r.zipReader.File
	}
	return r.zipReaderAt.File
}

// ContentPaths returns the package's content file paths in archive order,
// with OPC and manifest entries removed. Paths are URL-unescaped because
// packers escape spaces and other characters in part names.
func (r *PackageReader) ContentPaths() []string {
	var paths []string
	for _, file := range r.Files() {
		if strings.HasSuffix(file.Name, "/") || IsPackageMetadataFile(file.Name) {
			continue
		}

		name := file.Name
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
		paths = append(paths, name)
	}
	return paths
}

// GetNuspecFile finds and returns the .nuspec file entry.
// Nuspec should be at the root level with .nuspec extension.
func (r *PackageReader) GetNuspecFile() (*zip.File, error) {
	if r.nuspecEntry != nil {
		return r.nuspecEntry, nil
	}

	var candidates []*zip.File
	for _, file := range r.Files() {
		// Nuspec must be at root (no directory separator)
		if !strings.Contains(file.Name, "/") && IsManifestFile(file.Name) {
			candidates = append(candidates, file)
		}
	}

	if len(candidates) == 0 {
		return nil, ErrNuspecNotFound
	}

	if len(candidates) > 1 {
		return nil, ErrMultipleNuspecs
	}

	r.nuspecEntry = candidates[0]
	return r.nuspecEntry, nil
}

// OpenNuspec opens the .nuspec file for reading.
func (r *PackageReader) OpenNuspec() (io.ReadCloser, error) {
	nuspecFile, err := r.GetNuspecFile()
	if err != nil {
		return nil, err
	}

	return nuspecFile.Open()
}

// GetNuspec parses and caches the package manifest.
func (r *PackageReader) GetNuspec() (*Nuspec, error) {
	if r.nuspec != nil {
		return r.nuspec, nil
	}

	rc, err := r.OpenNuspec()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	nuspec, err := ParseNuspec(rc)
	if err != nil {
		return nil, err
	}

	r.nuspec = nuspec
	return nuspec, nil
}

// GetIdentity returns the package id and version declared by the manifest.
func (r *PackageReader) GetIdentity() (*PackageIdentity, error) {
	if r.identity != nil {
		return r.identity, nil
	}

	nuspec, err := r.GetNuspec()
	if err != nil {
		return nil, err
	}

	identity, err := nuspec.GetParsedIdentity()
	if err != nil {
		return nil, err
	}

	r.identity = identity
	return identity, nil
}

// GetFile finds a file by path (case-insensitive).
func (r *PackageReader) GetFile(filePath string) (*zip.File, error) {
	// Normalize path separators
	normalizedPath := strings.ReplaceAll(filePath, "\\", "/")

	for _, file := range r.Files() {
		if strings.EqualFold(file.Name, normalizedPath) {
			return file, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
}

// HasFile checks if a file exists in the package.
func (r *PackageReader) HasFile(filePath string) bool {
	_, err := r.GetFile(filePath)
	return err == nil
}
