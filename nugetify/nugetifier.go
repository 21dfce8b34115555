package nugetify

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/willibrandon/nugetify/ledger"
	"github.com/willibrandon/nugetify/observability"
	"github.com/willibrandon/nugetify/repository"
	"github.com/willibrandon/nugetify/version"
)

// Registrar records a project's ledger path so tooling that shares the
// packages folder can find it.
type Registrar interface {
	RegisterRepository(ledgerPath string) (bool, error)
}

// Config configures a Nugetifier for one project.
type Config struct {
	Project   Project
	Source    repository.Source
	Names     *NameMap
	HintPaths HintPathGenerator
	Logger    observability.Logger
}

// Nugetifier converts one project's binary and project references into
// package references.
type Nugetifier struct {
	project   Project
	source    repository.Source
	names     *NameMap
	hintPaths HintPathGenerator
	logger    observability.Logger

	ledger   *ledger.PackagesConfig
	knownIDs map[string]struct{}
}

// New loads the project's ledger and prepares a Nugetifier.
func New(cfg Config) (*Nugetifier, error) {
	if cfg.Project == nil {
		return nil, errors.New("nugetifier requires a project")
	}
	if cfg.Source == nil {
		return nil, errors.New("nugetifier requires a package source")
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNullLogger()
	}

	pc, err := ledger.LoadPackagesConfig(filepath.Join(cfg.Project.Dir(), ledger.FileName))
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{})
	for _, e := range pc.Entries() {
		known[strings.ToLower(e.ID)] = struct{}{}
	}

	return &Nugetifier{
		project:   cfg.Project,
		source:    cfg.Source,
		names:     cfg.Names,
		hintPaths: cfg.HintPaths,
		logger:    cfg.Logger,
		ledger:    pc,
		knownIDs:  known,
	}, nil
}

// Ledger returns the project's packages.config, including entries added
// but not yet saved.
func (n *Nugetifier) Ledger() *ledger.PackagesConfig {
	return n.ledger
}

// PackageID returns the package id a reference is expected to come from:
// its file stem, translated through the name map.
func (n *Nugetifier) PackageID(ref Reference) string {
	dll := ref.DllName()
	return n.names.PackageID(strings.TrimSuffix(dll, path.Ext(dll)))
}

// NugetifyReferences points every convertible reference that a package
// satisfies at that package's content, and returns the packages the project
// now references. References already satisfied by a ledger entry reuse that
// entry; the rest are resolved against the release, listed packages of the
// source. New ledger entries are kept in memory until
// AddNugetReferenceMetadata.
func (n *Nugetifier) NugetifyReferences(ctx context.Context, solutionDir string) ([]repository.Package, error) {
	var candidates []Reference
	for _, ref := range append(n.project.ProjectReferences(ctx), n.project.BinaryReferences(ctx)...) {
		switch {
		case !ref.Condition():
			n.logger.Debug("Skipping {Assembly}: condition does not apply", ref.DllName())
			observability.ReferencesTotal.WithLabelValues(observability.OutcomeSkipped).Inc()
		case !ref.CanConvert():
			n.logger.Debug("Skipping {Assembly}: no locatable binary", ref.DllName())
			observability.ReferencesTotal.WithLabelValues(observability.OutcomeSkipped).Inc()
		default:
			candidates = append(candidates, ref)
		}
	}

	existing, err := n.existingMappings(ctx, candidates)
	if err != nil {
		return nil, err
	}

	var remaining []Reference
	for _, ref := range candidates {
		if existing.Candidates(ref.DllName()) == nil {
			remaining = append(remaining, ref)
		}
	}

	resolved, err := n.resolve(ctx, remaining)
	if err != nil {
		return nil, err
	}

	all := existing.Merge(resolved)
	var (
		failed     []string
		referenced []repository.Package
		seen       = make(map[string]struct{})
	)
	for _, key := range all.Resolved() {
		ref := findReference(candidates, key)
		if ref == nil {
			continue
		}

		pkg := all.Chosen(key)
		n.logRewrite(ref, pkg)

		hint, err := n.hintPaths.ForAssembly(solutionDir, n.project.Dir(), pkg, key)
		if err == nil {
			err = ref.ConvertToPackageReference(hint)
		}
		if err != nil {
			n.logger.Warn("Not converting {Assembly}: {Error}", key, err)
			observability.ReferencesTotal.WithLabelValues(observability.OutcomeFailed).Inc()
			failed = append(failed, key)
			continue
		}

		outcome := observability.OutcomeResolved
		if existing.Candidates(key) != nil {
			outcome = observability.OutcomeExisting
		}
		observability.ReferencesTotal.WithLabelValues(outcome).Inc()

		identity := strings.ToLower(repository.Identity(pkg))
		if _, dup := seen[identity]; !dup {
			seen[identity] = struct{}{}
			referenced = append(referenced, pkg)
		}
	}

	observability.ReferencesTotal.WithLabelValues(observability.OutcomeFailed).Add(float64(len(resolved.Failed())))
	resolved.Without(failed...).OutputPackageConfigFile(n.ledger, n.logger)

	return referenced, nil
}

func (n *Nugetifier) resolve(ctx context.Context, refs []Reference) (*ResolutionMap, error) {
	if len(refs) == 0 {
		n.logger.Info("No references found to resolve")
		return NewResolutionMap(), nil
	}

	n.logger.Info("Checking feed for {Count} references...", len(refs))

	targets := make([]Target, 0, len(refs))
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		id := n.PackageID(ref)
		targets = append(targets, Target{Key: ref.DllName(), PackageID: id, Range: SafeRange(ref)})
		ids = append(ids, id)
	}

	src := repository.ReleaseListed(repository.WithIDs(n.source, ids))
	m, err := NewResolver(src, n.logger).ResolveByPackageID(ctx, targets, BestMatch)
	if err != nil {
		return nil, err
	}

	n.logger.Info("Found {Count} package to assembly mappings on feed...", len(m.Resolved()))
	for _, key := range m.Failed() {
		n.logger.Warn("Could not match: {Assembly}", key)
	}
	return m, nil
}

// existingMappings maps references to the packages their ledger entries
// name, when the entry's version is in the reference's safe range and the
// package is still in the source.
func (n *Nugetifier) existingMappings(ctx context.Context, refs []Reference) (*ResolutionMap, error) {
	var mappings []Mapping
	for _, entry := range n.ledger.Entries() {
		if entry.Version == nil {
			continue
		}

		var match Reference
		for _, ref := range refs {
			if strings.EqualFold(n.PackageID(ref), entry.ID) && SafeRange(ref).Satisfies(entry.Version) {
				match = ref
				break
			}
		}
		if match == nil {
			continue
		}

		pkg, err := repository.FindPackage(ctx, n.source, entry.ID, entry.Version)
		if err != nil {
			return nil, fmt.Errorf("find %s %s: %w", entry.ID, entry.VersionString, err)
		}
		if pkg == nil {
			continue
		}

		mappings = append(mappings, Mapping{Key: match.DllName(), Packages: []repository.Package{pkg}})
	}
	return NewResolutionMap(mappings...), nil
}

func findReference(refs []Reference, key string) Reference {
	for _, ref := range refs {
		if ref.IsForAssembly(key) {
			return ref
		}
	}
	return nil
}

// logRewrite reports a conversion at info level when the package id is the
// reference's own name and the declared major.minor, if known, matches.
// Anything else is a warning for review.
func (n *Nugetifier) logRewrite(ref Reference, pkg repository.Package) {
	id := ref.Identity()

	matches := strings.EqualFold(pkg.ID(), id.Name)
	if matches && id.Version != "" {
		if declared, err := version.Parse(id.Version); err == nil {
			matches = declared.SameMajorMinor(pkg.Version())
		}
	}

	log := n.logger.Warn
	if matches {
		log = n.logger.Info
	}

	if id.Version == "" {
		log("Attempting to update hintpaths for {Name} using package {PackageId} version {PackageVersion}",
			id.Name, pkg.ID(), pkg.Version().String())
		return
	}
	log("Attempting to update hintpaths for {Name} version {Version} using package {PackageId} version {PackageVersion}",
		id.Name, id.Version, pkg.ID(), pkg.Version().String())
}

// AddNugetReferenceMetadata records pkgs in the project's ledger, saves it,
// registers it with registrar and lists it in the project. It returns the
// packages whose ids the ledger did not hold when it was loaded.
func (n *Nugetifier) AddNugetReferenceMetadata(ctx context.Context, registrar Registrar, pkgs []repository.Package) ([]repository.Package, error) {
	n.logger.InfoContext(ctx, "Checking for any project references for {File}...", ledger.FileName)
	if len(pkgs) == 0 {
		return nil, nil
	}

	n.logger.InfoContext(ctx, "Creating {File}", ledger.FileName)
	for _, p := range pkgs {
		if n.ledger.AddEntry(p.ID(), p.Version()) {
			continue
		}
		if entry, ok := n.ledger.Entry(p.ID()); ok && (entry.Version == nil || !entry.Version.Equals(p.Version())) {
			n.logger.WarnContext(ctx, "{File} keeps {PackageId} {LedgerVersion} but references now point at {Version}",
				ledger.FileName, entry.ID, entry.VersionString, p.Version().String())
		}
	}
	if err := n.ledger.Save(); err != nil {
		return nil, err
	}

	if registrar != nil {
		if _, err := registrar.RegisterRepository(n.ledger.Path); err != nil {
			return nil, fmt.Errorf("register %s: %w", n.ledger.Path, err)
		}
	}
	n.project.AddFile(ledger.FileName)

	var added []repository.Package
	for _, p := range pkgs {
		key := strings.ToLower(p.ID())
		if _, known := n.knownIDs[key]; known {
			continue
		}
		n.knownIDs[key] = struct{}{}
		added = append(added, p)
	}
	observability.PackagesAddedTotal.Add(float64(len(added)))

	return added, nil
}

// ManifestDependencies returns, once each, the assembly names of the
// project references still in the project followed by the ids of pkgs.
func (n *Nugetifier) ManifestDependencies(ctx context.Context, pkgs []repository.Package) []string {
	var names []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for _, ref := range n.project.ProjectReferences(ctx) {
		add(ref.Identity().Name)
	}
	for _, p := range pkgs {
		add(p.ID())
	}
	return names
}
