package packaging

import (
	"path"
	"strings"
)

// Package metadata files
const (
	PackageExtension        = ".nupkg"
	ManifestExtension       = ".nuspec"
	SignatureFile           = ".signature.p7s"
	PackageRelationshipFile = "_rels/.rels"
	ContentTypesFile        = "[Content_Types].xml"
	PSMDCPFile              = "package/services/metadata/core-properties/"
)

// LibFolder is the folder binaries are installed from.
const LibFolder = "lib/"

// IsLibFile checks if a file is in the lib/ folder
func IsLibFile(filePath string) bool {
	return strings.HasPrefix(strings.ToLower(filePath), LibFolder)
}

// IsManifestFile checks if a file is a .nuspec manifest
func IsManifestFile(filePath string) bool {
	return strings.HasSuffix(strings.ToLower(filePath), ManifestExtension)
}

// IsPackageMetadataFile checks if a file is package metadata rather than content.
func IsPackageMetadataFile(filePath string) bool {
	lower := strings.ToLower(filePath)
	return lower == SignatureFile ||
		strings.HasPrefix(lower, "_rels/") ||
		lower == strings.ToLower(ContentTypesFile) ||
		strings.HasPrefix(lower, PSMDCPFile) ||
		(!strings.Contains(lower, "/") && IsManifestFile(filePath))
}

// IsAssembly checks if file is a managed assembly
func IsAssembly(filePath string) bool {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".dll", ".exe", ".winmd":
		return true
	default:
		return false
	}
}
