package repository

import (
	"context"
	"strings"
)

// FilteredSource exposes the packages of an inner source that satisfy a predicate.
type FilteredSource struct {
	inner Source
	keep  func(Package) bool
	label string
}

// Filter returns a source restricted to packages for which keep returns true.
func Filter(src Source, label string, keep func(Package) bool) *FilteredSource {
	return &FilteredSource{inner: src, keep: keep, label: label}
}

// ReleaseListed restricts a source to listed packages without prerelease labels.
func ReleaseListed(src Source) *FilteredSource {
	return Filter(src, "release,listed", func(p Package) bool {
		return p.IsListed() && IsReleaseVersion(p)
	})
}

// WithIDs restricts a source to packages whose id is in ids (case-insensitive).
func WithIDs(src Source, ids []string) *FilteredSource {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[strings.ToLower(id)] = struct{}{}
	}
	return Filter(src, "ids", func(p Package) bool {
		_, ok := set[strings.ToLower(p.ID())]
		return ok
	})
}

// Name returns the inner source name qualified by the filter label.
func (f *FilteredSource) Name() string {
	return f.inner.Name() + "[" + f.label + "]"
}

// Packages returns the matching packages in inner source order.
func (f *FilteredSource) Packages(ctx context.Context) ([]Package, error) {
	pkgs, err := f.inner.Packages(ctx)
	if err != nil {
		return nil, err
	}

	kept := make([]Package, 0, len(pkgs))
	for _, p := range pkgs {
		if f.keep(p) {
			kept = append(kept, p)
		}
	}
	return kept, nil
}
