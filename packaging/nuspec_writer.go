package packaging

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Descriptor template tokens substituted by `nuget pack` for fields the
// caller did not supply.
const (
	PlaceholderVersion    = "$version$"
	PlaceholderAuthor     = "$author$"
	PlaceholderTags       = "$tags$"
	PlaceholderLicenseURL = "$licenseurl$"
	PlaceholderCopyright  = "$copyright$"
	PlaceholderIconURL    = "$iconurl$"
	PlaceholderProjectURL = "$projecturl$"
)

// DefaultDescriptorFramework is the target framework label of the single
// dependency group written into generated descriptors.
const DefaultDescriptorFramework = ".NET Framework, Version=4.0"

// DescriptorMetadata carries caller-supplied descriptor fields. Empty
// fields fall back to the assembly name or a template placeholder.
type DescriptorMetadata struct {
	ID                       string
	Title                    string
	Description              string
	Author                   string
	Owners                   string
	Tags                     string
	LicenseURL               string
	ProjectURL               string
	IconURL                  string
	Copyright                string
	ReleaseNotes             string
	RequireLicenseAcceptance bool
}

// DescriptorBuilder builds the package descriptor for one project.
type DescriptorBuilder struct {
	assemblyName    string
	metadata        DescriptorMetadata
	dependencies    []string
	targetFramework string
}

// NewDescriptorBuilder creates a builder for a project producing assemblyName.
func NewDescriptorBuilder(assemblyName string) *DescriptorBuilder {
	return &DescriptorBuilder{
		assemblyName:    assemblyName,
		targetFramework: DefaultDescriptorFramework,
	}
}

// FileName returns the descriptor file name, <assemblyName>.nuspec.
func (b *DescriptorBuilder) FileName() string {
	return b.assemblyName + ManifestExtension
}

// SetMetadata sets the caller-supplied metadata.
func (b *DescriptorBuilder) SetMetadata(metadata DescriptorMetadata) *DescriptorBuilder {
	b.metadata = metadata
	return b
}

// SetDependencies sets the dependency ids listed in the descriptor.
func (b *DescriptorBuilder) SetDependencies(ids []string) *DescriptorBuilder {
	b.dependencies = append([]string(nil), ids...)
	return b
}

// SetTargetFramework overrides the dependency group's framework label.
func (b *DescriptorBuilder) SetTargetFramework(tfm string) *DescriptorBuilder {
	b.targetFramework = tfm
	return b
}

// Build returns the descriptor structure.
func (b *DescriptorBuilder) Build() *Nuspec {
	m := b.metadata

	owners := firstNonEmpty(m.Owners, m.Author, PlaceholderAuthor)

	nuspec := &Nuspec{
		XMLName: xml.Name{Local: "package"},
		Metadata: NuspecMetadata{
			ID:                       firstNonEmpty(m.ID, b.assemblyName),
			Version:                  PlaceholderVersion,
			Title:                    firstNonEmpty(m.Title, b.assemblyName),
			Authors:                  firstNonEmpty(m.Author, PlaceholderAuthor),
			Owners:                   owners,
			LicenseURL:               firstNonEmpty(m.LicenseURL, PlaceholderLicenseURL),
			ProjectURL:               firstNonEmpty(m.ProjectURL, PlaceholderProjectURL),
			IconURL:                  firstNonEmpty(m.IconURL, PlaceholderIconURL),
			RequireLicenseAcceptance: m.RequireLicenseAcceptance,
			Description:              firstNonEmpty(m.Description, b.assemblyName),
			ReleaseNotes:             m.ReleaseNotes,
			Copyright:                firstNonEmpty(m.Copyright, PlaceholderCopyright),
			Tags:                     firstNonEmpty(m.Tags, PlaceholderTags),
		},
		Files: []NuspecFile{
			{Source: b.assemblyName + ".dll", Target: "lib"},
		},
	}

	group := DependencyGroup{TargetFramework: b.targetFramework}
	for _, id := range b.dependencies {
		group.Dependencies = append(group.Dependencies, Dependency{ID: id})
	}
	nuspec.Metadata.Dependencies = &DependenciesElement{Groups: []DependencyGroup{group}}

	return nuspec
}

// GenerateNuspecXML encodes a descriptor. No schema namespace is written.
func GenerateNuspecXML(nuspec *Nuspec) ([]byte, error) {
	var buf strings.Builder
	buf.WriteString(xml.Header)

	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")

	if err := encoder.Encode(nuspec); err != nil {
		return nil, fmt.Errorf("encode nuspec: %w", err)
	}
	buf.WriteString("\n")

	return []byte(buf.String()), nil
}

// Save writes the descriptor into dir and returns the written path.
func (b *DescriptorBuilder) Save(dir string) (string, error) {
	data, err := GenerateNuspecXML(b.Build())
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, b.FileName())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write nuspec %s: %w", path, err)
	}

	return path, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
