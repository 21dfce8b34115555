package repository

import (
	"context"
	"fmt"
	"strings"
)

// AggregateSource concatenates several sources in configuration order.
type AggregateSource struct {
	sources []Source
}

// NewAggregateSource combines sources. Earlier sources come first in
// Packages, so they win version ties.
func NewAggregateSource(sources ...Source) *AggregateSource {
	return &AggregateSource{sources: sources}
}

// Sources returns the combined sources.
func (a *AggregateSource) Sources() []Source {
	return a.sources
}

// Name joins the names of the combined sources.
func (a *AggregateSource) Name() string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return strings.Join(names, ";")
}

// Packages returns every package of every source. Any source failure fails
// the whole listing.
func (a *AggregateSource) Packages(ctx context.Context) ([]Package, error) {
	var all []Package
	for _, s := range a.sources {
		pkgs, err := s.Packages(ctx)
		if err != nil {
			return nil, fmt.Errorf("list packages in %s: %w", s.Name(), err)
		}
		all = append(all, pkgs...)
	}
	return all, nil
}
