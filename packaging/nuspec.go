package packaging

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/willibrandon/nugetify/version"
)

// Nuspec represents a parsed .nuspec manifest.
type Nuspec struct {
	XMLName  xml.Name       `xml:"package"`
	Metadata NuspecMetadata `xml:"metadata"`
	Files    []NuspecFile   `xml:"files>file"`
}

// NuspecMetadata represents the metadata section.
//
// Field order matches the order NuGet writes manifest elements in.
type NuspecMetadata struct {
	ID                       string               `xml:"id"`
	Version                  string               `xml:"version"`
	Title                    string               `xml:"title,omitempty"`
	Authors                  string               `xml:"authors"`
	Owners                   string               `xml:"owners,omitempty"`
	LicenseURL               string               `xml:"licenseUrl,omitempty"`
	ProjectURL               string               `xml:"projectUrl,omitempty"`
	IconURL                  string               `xml:"iconUrl,omitempty"`
	RequireLicenseAcceptance bool                 `xml:"requireLicenseAcceptance"`
	Description              string               `xml:"description"`
	Summary                  string               `xml:"summary,omitempty"`
	ReleaseNotes             string               `xml:"releaseNotes,omitempty"`
	Copyright                string               `xml:"copyright,omitempty"`
	Tags                     string               `xml:"tags,omitempty"`
	Dependencies             *DependenciesElement `xml:"dependencies,omitempty"`
}

// DependenciesElement represents the dependencies container.
type DependenciesElement struct {
	Groups []DependencyGroup `xml:"group"`
	// Legacy: dependencies without groups (applies to all frameworks)
	Dependencies []Dependency `xml:"dependency"`
}

// DependencyGroup represents dependencies for a specific framework.
type DependencyGroup struct {
	TargetFramework string       `xml:"targetFramework,attr,omitempty"`
	Dependencies    []Dependency `xml:"dependency"`
}

// Dependency represents a package dependency.
type Dependency struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr,omitempty"` // Version range string
}

// NuspecFile represents a file entry in the nuspec.
type NuspecFile struct {
	Source  string `xml:"src,attr"`
	Target  string `xml:"target,attr,omitempty"`
	Exclude string `xml:"exclude,attr,omitempty"`
}

// ParseNuspec parses a .nuspec XML document.
//
// Namespaced and namespace-free manifests decode the same way.
func ParseNuspec(r io.Reader) (*Nuspec, error) {
	decoder := xml.NewDecoder(r)

	var nuspec Nuspec
	if err := decoder.Decode(&nuspec); err != nil {
		return nil, fmt.Errorf("parse nuspec: %w", err)
	}

	return &nuspec, nil
}

// GetParsedIdentity returns the package identity from nuspec.
func (n *Nuspec) GetParsedIdentity() (*PackageIdentity, error) {
	if strings.TrimSpace(n.Metadata.ID) == "" {
		return nil, fmt.Errorf("%w: missing package id", ErrInvalidPackage)
	}

	ver, err := version.Parse(n.Metadata.Version)
	if err != nil {
		return nil, fmt.Errorf("parse version: %w", err)
	}

	return &PackageIdentity{
		ID:      strings.TrimSpace(n.Metadata.ID),
		Version: ver,
	}, nil
}

// GetAuthors returns the list of authors.
func (n *Nuspec) GetAuthors() []string {
	return splitList(n.Metadata.Authors)
}

// GetOwners returns the list of owners.
func (n *Nuspec) GetOwners() []string {
	return splitList(n.Metadata.Owners)
}

// GetTags returns the list of tags.
func (n *Nuspec) GetTags() []string {
	// Tags are space-separated
	return strings.Fields(n.Metadata.Tags)
}

// GetDependencyIDs returns every dependency id across all groups, in
// document order and without duplicates.
func (n *Nuspec) GetDependencyIDs() []string {
	if n.Metadata.Dependencies == nil {
		return []string{}
	}

	seen := make(map[string]bool)
	ids := []string{}
	add := func(deps []Dependency) {
		for _, dep := range deps {
			key := strings.ToLower(dep.ID)
			if dep.ID == "" || seen[key] {
				continue
			}
			seen[key] = true
			ids = append(ids, dep.ID)
		}
	}

	add(n.Metadata.Dependencies.Dependencies)
	for _, group := range n.Metadata.Dependencies.Groups {
		add(group.Dependencies)
	}

	return ids
}

// splitList splits a comma-separated manifest field.
func splitList(s string) []string {
	if s == "" {
		return []string{}
	}

	items := strings.Split(s, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}

	return items
}
