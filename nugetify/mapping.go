package nugetify

import (
	"sync"

	"github.com/willibrandon/nugetify/ledger"
	"github.com/willibrandon/nugetify/observability"
	"github.com/willibrandon/nugetify/repository"
)

// Mapping is one resolution key, a binary file name, and its candidate
// packages.
type Mapping struct {
	Key      string
	Packages []repository.Package
}

// ResolutionMap holds resolution outcomes in key order. A key with no
// candidates is failed; any other key is resolved. The map is not changed
// after construction.
type ResolutionMap struct {
	keys       []string
	candidates map[string][]repository.Package

	once     sync.Once
	resolved []string
	failed   []string
}

// NewResolutionMap builds a map from mappings. A repeated key keeps its
// first position and takes the later candidates.
func NewResolutionMap(mappings ...Mapping) *ResolutionMap {
	m := &ResolutionMap{candidates: make(map[string][]repository.Package, len(mappings))}
	for _, mapping := range mappings {
		if _, ok := m.candidates[mapping.Key]; !ok {
			m.keys = append(m.keys, mapping.Key)
		}
		m.candidates[mapping.Key] = append([]repository.Package(nil), mapping.Packages...)
	}
	return m
}

func (m *ResolutionMap) partition() {
	m.once.Do(func() {
		for _, key := range m.keys {
			if len(m.candidates[key]) > 0 {
				m.resolved = append(m.resolved, key)
			} else {
				m.failed = append(m.failed, key)
			}
		}
	})
}

// Keys returns every key in order.
func (m *ResolutionMap) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of keys.
func (m *ResolutionMap) Len() int {
	return len(m.keys)
}

// Candidates returns the candidate packages for key.
func (m *ResolutionMap) Candidates(key string) []repository.Package {
	return m.candidates[key]
}

// Resolved returns the keys with at least one candidate.
func (m *ResolutionMap) Resolved() []string {
	m.partition()
	return m.resolved
}

// Failed returns the keys without candidates.
func (m *ResolutionMap) Failed() []string {
	m.partition()
	return m.failed
}

// Chosen returns the highest-versioned candidate for key, or nil.
func (m *ResolutionMap) Chosen(key string) repository.Package {
	return repository.Highest(m.candidates[key])
}

// Merge returns a map holding m's keys followed by other's new keys.
// Candidates from other win for keys present in both.
func (m *ResolutionMap) Merge(other *ResolutionMap) *ResolutionMap {
	mappings := make([]Mapping, 0, len(m.keys)+len(other.keys))
	for _, key := range m.keys {
		mappings = append(mappings, Mapping{Key: key, Packages: m.candidates[key]})
	}
	for _, key := range other.keys {
		mappings = append(mappings, Mapping{Key: key, Packages: other.candidates[key]})
	}
	return NewResolutionMap(mappings...)
}

// Without returns a map with the given keys marked failed.
func (m *ResolutionMap) Without(keys ...string) *ResolutionMap {
	drop := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		drop[key] = struct{}{}
	}

	mappings := make([]Mapping, 0, len(m.keys))
	for _, key := range m.keys {
		if _, ok := drop[key]; ok {
			mappings = append(mappings, Mapping{Key: key})
			continue
		}
		mappings = append(mappings, Mapping{Key: key, Packages: m.candidates[key]})
	}
	return NewResolutionMap(mappings...)
}

// OutputPackageConfigFile adds the chosen package of every resolved key to
// pc, skipping ids the ledger already lists at any version. It returns the
// packages added.
func (m *ResolutionMap) OutputPackageConfigFile(pc *ledger.PackagesConfig, logger observability.Logger) []repository.Package {
	var added []repository.Package
	for _, key := range m.Resolved() {
		candidates := m.candidates[key]
		chosen := repository.Highest(candidates)
		if len(candidates) > 1 {
			logger.Info("{Key} : Choosing {PackageId} ({Version}) from {Count} choices.",
				key, chosen.ID(), chosen.Version().String(), len(candidates))
		}

		if pc.AddEntry(chosen.ID(), chosen.Version()) {
			added = append(added, chosen)
		}
	}
	return added
}
