package ledger

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// RepositoriesFileName is the registration file inside the shared packages directory.
const RepositoriesFileName = "repositories.config"

type repositoriesXML struct {
	XMLName      xml.Name        `xml:"repositories"`
	Repositories []repositoryXML `xml:"repository"`
}

type repositoryXML struct {
	Path string `xml:"path,attr"`
}

// SharedRepository is the solution-level packages directory. It records
// every project ledger in repositories.config so that restore tooling can
// discover them. Registration is safe for concurrent use.
type SharedRepository struct {
	Dir string

	mu sync.Mutex
}

// NewSharedRepository returns the shared repository rooted at dir,
// typically <solutionDir>/packages.
func NewSharedRepository(dir string) *SharedRepository {
	return &SharedRepository{Dir: dir}
}

// ConfigPath returns the path of repositories.config.
func (r *SharedRepository) ConfigPath() string {
	return filepath.Join(r.Dir, RepositoriesFileName)
}

// RegisterRepository adds a ledger path to repositories.config. The path is
// stored relative to the packages directory with backslash separators.
// It reports whether the file changed.
func (r *SharedRepository) RegisterRepository(ledgerPath string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rel, err := filepath.Rel(r.Dir, ledgerPath)
	if err != nil {
		rel = ledgerPath
	}
	rel = strings.ReplaceAll(filepath.ToSlash(rel), "/", "\\")

	paths, err := r.load()
	if err != nil {
		return false, err
	}
	for _, p := range paths {
		if strings.EqualFold(p, rel) {
			return false, nil
		}
	}
	paths = append(paths, rel)
	sort.SliceStable(paths, func(i, j int) bool {
		return strings.ToLower(paths[i]) < strings.ToLower(paths[j])
	})

	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return false, fmt.Errorf("create %s: %w", r.Dir, err)
	}

	doc := repositoriesXML{}
	for _, p := range paths {
		doc.Repositories = append(doc.Repositories, repositoryXML{Path: p})
	}
	if err := writeXML(r.ConfigPath(), doc, "repository"); err != nil {
		return false, err
	}

	return true, nil
}

// Repositories returns the registered ledger paths as stored.
func (r *SharedRepository) Repositories() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *SharedRepository) load() ([]string, error) {
	data, err := os.ReadFile(r.ConfigPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.ConfigPath(), err)
	}

	var doc repositoriesXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.ConfigPath(), err)
	}

	paths := make([]string, 0, len(doc.Repositories))
	for _, repo := range doc.Repositories {
		if repo.Path != "" {
			paths = append(paths, repo.Path)
		}
	}
	return paths, nil
}
