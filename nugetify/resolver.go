package nugetify

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/willibrandon/nugetify/observability"
	"github.com/willibrandon/nugetify/repository"
	"github.com/willibrandon/nugetify/version"
)

// Mode selects how many candidates a resolution keeps per key.
type Mode int

const (
	// BestMatch keeps only the highest-versioned candidate.
	BestMatch Mode = iota
	// Exhaustive keeps every candidate in source order.
	Exhaustive
)

func (m Mode) String() string {
	if m == Exhaustive {
		return "exhaustive"
	}
	return "best_match"
}

// Target asks for a package by id for one resolution key. Range limits the
// acceptable versions; nil accepts any.
type Target struct {
	Key       string
	PackageID string
	Range     *version.Range
}

// Resolver finds the packages in a source that satisfy references.
type Resolver struct {
	source repository.Source
	logger observability.Logger
}

// NewResolver creates a resolver over src.
func NewResolver(src repository.Source, logger observability.Logger) *Resolver {
	if logger == nil {
		logger = observability.NewNullLogger()
	}
	return &Resolver{source: src, logger: logger}
}

// Resolve maps each binary file name to the packages containing a file of
// exactly that name. Names differing only in case share one outcome.
func (r *Resolver) Resolve(ctx context.Context, assemblies []string, mode Mode) (m *ResolutionMap, err error) {
	ctx, span := observability.StartResolveSpan(ctx, mode.String(), len(assemblies), r.source.Name())
	defer func() { observability.EndSpanWithError(span, err) }()
	defer r.observe(mode, time.Now())

	seen := make(map[string]struct{}, len(assemblies))
	keys := make([]string, 0, len(assemblies))
	for _, assembly := range assemblies {
		folded := strings.ToLower(assembly)
		if _, dup := seen[folded]; dup {
			r.logger.Warn("Same assembly resolution will be used for both assembly references to {Assembly}", assembly)
			continue
		}
		seen[folded] = struct{}{}
		keys = append(keys, assembly)
	}

	pkgs, err := r.source.Packages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list packages in %s: %w", r.source.Name(), err)
	}

	// One pass over every package's files; each package appears once per
	// file name.
	index := make(map[string][]repository.Package)
	for _, p := range pkgs {
		for _, f := range p.Files() {
			name := path.Base(strings.ReplaceAll(f, `\`, "/"))
			list := index[name]
			if len(list) > 0 && list[len(list)-1] == p {
				continue
			}
			index[name] = append(list, p)
		}
	}

	r.logger.Info("Searching through {Count} packages", len(pkgs))
	mappings := make([]Mapping, 0, len(keys))
	for _, key := range keys {
		r.logger.Info("Checking packages for {Assembly}", key)
		mappings = append(mappings, Mapping{Key: key, Packages: choose(index[key], mode)})
	}

	m = NewResolutionMap(mappings...)
	observability.RecordResolution(ctx, len(m.Resolved()), len(m.Failed()))
	return m, nil
}

// ResolveByPackageID maps each target key to the packages with the target's
// id whose version is in the target's range. Keys differing only in case
// share one outcome.
func (r *Resolver) ResolveByPackageID(ctx context.Context, targets []Target, mode Mode) (m *ResolutionMap, err error) {
	ctx, span := observability.StartResolveSpan(ctx, mode.String(), len(targets), r.source.Name())
	defer func() { observability.EndSpanWithError(span, err) }()
	defer r.observe(mode, time.Now())

	pkgs, err := r.source.Packages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list packages in %s: %w", r.source.Name(), err)
	}

	r.logger.Info("Searching through {Count} packages", len(pkgs))
	seen := make(map[string]struct{}, len(targets))
	mappings := make([]Mapping, 0, len(targets))
	for _, target := range targets {
		folded := strings.ToLower(target.Key)
		if _, dup := seen[folded]; dup {
			r.logger.Warn("Same assembly resolution will be used for both assembly references to {Assembly}", target.Key)
			continue
		}
		seen[folded] = struct{}{}

		r.logger.Info("Checking packages for {Assembly}", target.Key)
		var matches []repository.Package
		for _, p := range pkgs {
			if !strings.EqualFold(p.ID(), target.PackageID) {
				continue
			}
			if target.Range != nil && !target.Range.Satisfies(p.Version()) {
				continue
			}
			matches = append(matches, p)
		}
		mappings = append(mappings, Mapping{Key: target.Key, Packages: choose(matches, mode)})
	}

	m = NewResolutionMap(mappings...)
	observability.RecordResolution(ctx, len(m.Resolved()), len(m.Failed()))
	return m, nil
}

func (r *Resolver) observe(mode Mode, start time.Time) {
	observability.ResolutionDuration.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
}

func choose(pkgs []repository.Package, mode Mode) []repository.Package {
	if len(pkgs) == 0 {
		return nil
	}
	if mode == Exhaustive {
		return pkgs
	}
	return []repository.Package{repository.Highest(pkgs)}
}
