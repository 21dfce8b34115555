package repository

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/willibrandon/nugetify/observability"
	"github.com/willibrandon/nugetify/packaging"
	"github.com/willibrandon/nugetify/version"
)

const (
	defaultCacheSize = 4096
	symbolsSuffix    = ".symbols.nupkg"
)

// LocalPackage is a package read from a .nupkg file on disk.
type LocalPackage struct {
	id      string
	version *version.NuGetVersion
	files   []string
	path    string
}

func (p *LocalPackage) ID() string                     { return p.id }
func (p *LocalPackage) Version() *version.NuGetVersion { return p.version }
func (p *LocalPackage) Files() []string                { return p.files }
func (p *LocalPackage) IsListed() bool                 { return true }

// Path returns the .nupkg file path.
func (p *LocalPackage) Path() string { return p.path }

// LocalSource is a folder feed. Every .nupkg below the root is a package,
// which covers flat feeds, hierarchical feeds and installed packages folders.
//
// Package listings are cached by file path, size and modification time, so
// repeated queries only reopen archives that changed.
type LocalSource struct {
	root        string
	logger      observability.Logger
	concurrency int
	cache       *lru.Cache[uint64, *LocalPackage]
}

// LocalSourceOption configures a LocalSource.
type LocalSourceOption func(*localSourceConfig)

type localSourceConfig struct {
	logger      observability.Logger
	concurrency int
	cacheSize   int
}

// WithLogger sets the logger used for skipped packages.
func WithLogger(logger observability.Logger) LocalSourceOption {
	return func(c *localSourceConfig) { c.logger = logger }
}

// WithConcurrency bounds the number of archives read in parallel.
func WithConcurrency(n int) LocalSourceOption {
	return func(c *localSourceConfig) { c.concurrency = n }
}

// WithCacheSize sets the number of package listings kept in memory.
func WithCacheSize(n int) LocalSourceOption {
	return func(c *localSourceConfig) { c.cacheSize = n }
}

// NewLocalSource creates a source for the folder at root.
func NewLocalSource(root string, opts ...LocalSourceOption) (*LocalSource, error) {
	cfg := localSourceConfig{
		logger:      observability.NewNullLogger(),
		concurrency: runtime.GOMAXPROCS(0),
		cacheSize:   defaultCacheSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.concurrency < 1 {
		cfg.concurrency = 1
	}

	cache, err := lru.New[uint64, *LocalPackage](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create package cache: %w", err)
	}

	return &LocalSource{
		root:        root,
		logger:      cfg.logger,
		concurrency: cfg.concurrency,
		cache:       cache,
	}, nil
}

// Name returns the folder path.
func (s *LocalSource) Name() string {
	return s.root
}

// Packages reads every package below the root, ordered by file path.
// Archives that cannot be read are logged and skipped.
func (s *LocalSource) Packages(ctx context.Context) ([]Package, error) {
	paths, err := s.packageFiles()
	if err != nil {
		return nil, err
	}

	found := make([]*LocalPackage, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pkg, err := s.load(path)
			if err != nil {
				s.logger.WarnContext(gctx, "Skipping package {Path}: {Error}", path, err)
				return nil
			}
			found[i] = pkg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pkgs := make([]Package, 0, len(found))
	for _, p := range found {
		if p != nil {
			pkgs = append(pkgs, p)
		}
	}
	return pkgs, nil
}

func (s *LocalSource) packageFiles() ([]string, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("local source %s: %w", s.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local source %s: not a directory", s.root)
	}

	var paths []string
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := strings.ToLower(d.Name())
		if d.IsDir() || !strings.HasSuffix(name, packaging.PackageExtension) || strings.HasSuffix(name, symbolsSuffix) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan local source %s: %w", s.root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

func (s *LocalSource) load(path string) (*LocalPackage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	key := fingerprint(path, info)
	if pkg, ok := s.cache.Get(key); ok {
		observability.PackageCacheTotal.WithLabelValues("hit").Inc()
		return pkg, nil
	}
	observability.PackageCacheTotal.WithLabelValues("miss").Inc()

	reader, err := packaging.OpenPackage(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	identity, err := reader.GetIdentity()
	if err != nil {
		return nil, err
	}

	pkg := &LocalPackage{
		id:      identity.ID,
		version: identity.Version,
		files:   reader.ContentPaths(),
		path:    path,
	}
	s.cache.Add(key, pkg)
	return pkg, nil
}

func fingerprint(path string, info fs.FileInfo) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(path)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(strconv.FormatInt(info.Size(), 10))
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(strconv.FormatInt(info.ModTime().UnixNano(), 10))
	return d.Sum64()
}
