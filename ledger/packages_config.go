// Package ledger reads and writes the per-project packages.config ledger
// and the solution-level repositories.config registration file.
package ledger

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/willibrandon/nugetify/version"
)

// FileName is the ledger file name inside a project directory.
const FileName = "packages.config"

// Entry is one package recorded in a ledger.
type Entry struct {
	ID string
	// Version is nil when the recorded version string does not parse.
	Version         *version.NuGetVersion
	VersionString   string
	TargetFramework string
	// AllowedVersions is the version constraint the entry declares, if any.
	AllowedVersions string
}

type packagesXML struct {
	XMLName  xml.Name     `xml:"packages"`
	Packages []packageXML `xml:"package"`
}

type packageXML struct {
	ID              string `xml:"id,attr"`
	Version         string `xml:"version,attr"`
	TargetFramework string `xml:"targetFramework,attr,omitempty"`
	// Other carries every other attribute so it is written back unchanged.
	Other []xml.Attr `xml:",any,attr"`
}

func (p packageXML) attr(name string) string {
	for _, a := range p.Other {
		if a.Name.Space == "" && strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}

// PackagesConfig is a packages.config ledger. Entries are unique by id;
// elements loaded from the file, duplicates included, are written back as
// they were read.
type PackagesConfig struct {
	Path     string
	entries  []Entry
	elements []packageXML
	dirty    bool
}

// LoadPackagesConfig reads a ledger. A missing file yields an empty ledger
// that is created on Save.
func LoadPackagesConfig(path string) (*PackagesConfig, error) {
	pc := &PackagesConfig{Path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return pc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc packagesXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	pc.elements = doc.Packages
	for _, p := range doc.Packages {
		if p.ID == "" || pc.HasID(p.ID) {
			continue
		}
		v, _ := version.Parse(p.Version)
		pc.entries = append(pc.entries, Entry{
			ID:              p.ID,
			Version:         v,
			VersionString:   p.Version,
			TargetFramework: p.TargetFramework,
			AllowedVersions: p.attr("allowedVersions"),
		})
	}

	return pc, nil
}

// Entries returns the recorded packages in file order.
func (pc *PackagesConfig) Entries() []Entry {
	return append([]Entry(nil), pc.entries...)
}

// Entry returns the entry recorded for id (case-insensitive).
func (pc *PackagesConfig) Entry(id string) (Entry, bool) {
	for _, e := range pc.entries {
		if strings.EqualFold(e.ID, id) {
			return e, true
		}
	}
	return Entry{}, false
}

// HasID reports whether a package id is recorded (case-insensitive).
func (pc *PackagesConfig) HasID(id string) bool {
	_, ok := pc.Entry(id)
	return ok
}

// EntryExists reports whether the exact id and version are recorded.
func (pc *PackagesConfig) EntryExists(id string, v *version.NuGetVersion) bool {
	for _, e := range pc.entries {
		if strings.EqualFold(e.ID, id) && e.Version != nil && e.Version.Equals(v) {
			return true
		}
	}
	return false
}

// AddEntry records a package unless its id is already present. Existing
// entries are never updated. It reports whether an entry was added.
func (pc *PackagesConfig) AddEntry(id string, v *version.NuGetVersion) bool {
	if pc.HasID(id) {
		return false
	}
	pc.entries = append(pc.entries, Entry{ID: id, Version: v, VersionString: v.String()})
	pc.elements = append(pc.elements, packageXML{ID: id, Version: v.String()})
	pc.dirty = true
	return true
}

// IsModified reports whether entries were added since loading.
func (pc *PackagesConfig) IsModified() bool {
	return pc.dirty
}

// Save writes the ledger sorted by id when it has been modified. Elements
// read from the file keep all of their attributes.
func (pc *PackagesConfig) Save() error {
	if !pc.dirty {
		return nil
	}

	doc := packagesXML{Packages: append([]packageXML(nil), pc.elements...)}
	sort.SliceStable(doc.Packages, func(i, j int) bool {
		return strings.ToLower(doc.Packages[i].ID) < strings.ToLower(doc.Packages[j].ID)
	})

	if err := writeXML(pc.Path, doc, "package"); err != nil {
		return err
	}

	pc.dirty = false
	return nil
}

// writeXML writes v with an XML declaration. Empty elements named in
// selfClosing are written in the short form NuGet uses.
func writeXML(path string, v any, selfClosing ...string) error {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	for _, name := range selfClosing {
		out = bytes.ReplaceAll(out, []byte("></"+name+">"), []byte(" />"))
	}

	data := append([]byte("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"), out...)
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
