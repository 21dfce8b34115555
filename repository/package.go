// Package repository provides queryable package sources: local package
// folders, in-memory collections and ordered aggregates of both.
package repository

import (
	"context"
	"strings"

	"github.com/willibrandon/nugetify/version"
)

// Package is a read-only view of one package in a source.
type Package interface {
	ID() string
	Version() *version.NuGetVersion
	// Files returns the contained file paths in package order, using
	// forward slashes.
	Files() []string
	IsListed() bool
}

// Source is an ordered, queryable collection of packages.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string
	// Packages returns every package in source order.
	Packages(ctx context.Context) ([]Package, error)
}

// IsReleaseVersion reports whether a package version has no prerelease label.
func IsReleaseVersion(p Package) bool {
	return !p.Version().IsPrerelease()
}

// Identity returns "<id>.<version>", the folder name NuGet uses for an
// installed package.
func Identity(p Package) string {
	return p.ID() + "." + p.Version().String()
}

// FindPackagesByID returns the packages whose id matches, case-insensitively,
// in source order.
func FindPackagesByID(ctx context.Context, src Source, id string) ([]Package, error) {
	pkgs, err := src.Packages(ctx)
	if err != nil {
		return nil, err
	}

	var matches []Package
	for _, p := range pkgs {
		if strings.EqualFold(p.ID(), id) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// FindPackage returns the package with the given id and version, or nil.
func FindPackage(ctx context.Context, src Source, id string, v *version.NuGetVersion) (Package, error) {
	matches, err := FindPackagesByID(ctx, src, id)
	if err != nil {
		return nil, err
	}

	for _, p := range matches {
		if p.Version().Equals(v) {
			return p, nil
		}
	}
	return nil, nil
}

// Exists reports whether any package with the id is in the source.
func Exists(ctx context.Context, src Source, id string) (bool, error) {
	matches, err := FindPackagesByID(ctx, src, id)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// Highest returns the highest-versioned package. Equal versions keep the
// first one encountered.
func Highest(pkgs []Package) Package {
	var best Package
	for _, p := range pkgs {
		if best == nil || p.Version().GreaterThan(best.Version()) {
			best = p
		}
	}
	return best
}
