package repository

import (
	"context"
	"sync"

	"github.com/willibrandon/nugetify/version"
)

// MemoryPackage is a package held in memory.
type MemoryPackage struct {
	PackageID      string
	PackageVersion *version.NuGetVersion
	PackageFiles   []string
	Unlisted       bool
}

// NewPackage creates a listed in-memory package. It panics on an invalid version.
func NewPackage(id, ver string, files ...string) *MemoryPackage {
	return &MemoryPackage{
		PackageID:      id,
		PackageVersion: version.MustParse(ver),
		PackageFiles:   files,
	}
}

func (p *MemoryPackage) ID() string                     { return p.PackageID }
func (p *MemoryPackage) Version() *version.NuGetVersion { return p.PackageVersion }
func (p *MemoryPackage) Files() []string                { return p.PackageFiles }
func (p *MemoryPackage) IsListed() bool                 { return !p.Unlisted }

// MemorySource is a source backed by a package slice.
type MemorySource struct {
	name string

	mu       sync.RWMutex
	packages []Package
}

// NewMemorySource creates a source holding pkgs in the given order.
func NewMemorySource(name string, pkgs ...Package) *MemorySource {
	return &MemorySource{name: name, packages: pkgs}
}

// Add appends packages to the source.
func (s *MemorySource) Add(pkgs ...Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages = append(s.packages, pkgs...)
}

// Name returns the source name.
func (s *MemorySource) Name() string {
	return s.name
}

// Packages returns a copy of the package list.
func (s *MemorySource) Packages(ctx context.Context) ([]Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Package(nil), s.packages...), nil
}
