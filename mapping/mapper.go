// Package mapping joins classified elements against the external keyed
// dataset, producing forward and reverse mappings plus unmapped
// diagnostics.
package mapping

import (
	"errors"
	"sort"
	"sync"

	"github.com/sitelens/sitelens/classify"
	"github.com/sitelens/sitelens/dataset"
	"github.com/sitelens/sitelens/index"
)

// Mapper errors.
var (
	// ErrNoDataset is returned when Join runs before a dataset upload.
	ErrNoDataset = errors.New("no dataset loaded")
)

// Entry is the forward mapping for one element: its normalized key, every
// dataset row sharing that key, and the element's attributes. Rows are
// never collapsed; sub-components of one entity stay separate.
type Entry struct {
	Key     string               `json:"key"`
	Records []dataset.Record     `json:"records"`
	Attrs   *classify.Attributes `json:"attrs"`
}

// Stats summarizes join coverage.
type Stats struct {
	// Total is the number of classified elements considered.
	Total int `json:"total"`

	// Mapped is the number of elements with at least one dataset row.
	Mapped int `json:"mapped"`

	// UnmappedElements is the number of elements without a row.
	UnmappedElements int `json:"unmappedElements"`

	// UnmappedKeys is the number of distinct element keys absent from
	// the dataset.
	UnmappedKeys int `json:"unmappedKeys"`

	// CoveragePercent is Mapped / Total * 100.
	CoveragePercent float64 `json:"coveragePercent"`
}

// Mapper owns the element↔schedule mapping state. Every Join rebuilds it
// in full; there is no incremental diff.
type Mapper struct {
	mu           sync.RWMutex
	forward      map[index.ID]*Entry
	reverse      map[string][]index.ID
	unmappedIDs  []index.ID
	unmappedKeys []string
	stats        Stats
}

// NewMapper creates an empty Mapper.
func NewMapper() *Mapper {
	m := &Mapper{}
	m.reset()
	return m
}

func (m *Mapper) reset() {
	m.forward = make(map[index.ID]*Entry)
	m.reverse = make(map[string][]index.ID)
	m.unmappedIDs = nil
	m.unmappedKeys = nil
	m.stats = Stats{}
}

// elementKey resolves an element's join key from its attributes using the
// dataset's declared key field, normalized the same way dataset keys are.
func elementKey(attrs *classify.Attributes, keyField string) string {
	var raw string
	switch keyField {
	case "plot":
		raw = attrs.Plot
	case "block":
		raw = attrs.Block
	case "neighborhood":
		raw = attrs.Neighborhood
	case "villaType":
		raw = attrs.VillaType
	default:
		raw = attrs.Plot
	}
	return dataset.NormalizeKey(raw)
}

// Join rebuilds the mapping from the classified store and the uploaded
// dataset, replacing all prior mapping state. Elements whose key misses
// the dataset — or who carry no key at all — land in the unmapped
// diagnostics; the join itself never fails on them.
func (m *Mapper) Join(store *index.Store, ds *dataset.Dataset) (Stats, error) {
	if ds == nil {
		return Stats{}, ErrNoDataset
	}

	all := store.All()
	ids := make([]index.ID, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()

	missingKeys := make(map[string]bool)
	for _, id := range ids {
		attrs := all[id]
		key := elementKey(attrs, ds.KeyField())
		if key == "" {
			m.unmappedIDs = append(m.unmappedIDs, id)
			continue
		}

		records := ds.Records(key)
		if len(records) == 0 {
			m.unmappedIDs = append(m.unmappedIDs, id)
			if !missingKeys[key] {
				missingKeys[key] = true
				m.unmappedKeys = append(m.unmappedKeys, key)
			}
			continue
		}

		m.forward[id] = &Entry{Key: key, Records: records, Attrs: attrs}
		m.reverse[key] = append(m.reverse[key], id)
	}
	sort.Strings(m.unmappedKeys)

	m.stats = Stats{
		Total:            len(ids),
		Mapped:           len(m.forward),
		UnmappedElements: len(m.unmappedIDs),
		UnmappedKeys:     len(m.unmappedKeys),
	}
	if m.stats.Total > 0 {
		m.stats.CoveragePercent = float64(m.stats.Mapped) / float64(m.stats.Total) * 100
	}
	return m.stats, nil
}

// Entry returns the forward mapping for id, or nil when unmapped.
func (m *Mapper) Entry(id index.ID) *Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.forward[id]
}

// IDs returns the elements mapped to key, normalizing key first.
func (m *Mapper) IDs(key string) []index.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.reverse[dataset.NormalizeKey(key)]
	out := make([]index.ID, len(ids))
	copy(out, ids)
	return out
}

// UnmappedIDs returns the classified elements without a dataset row, in
// ascending id order.
func (m *Mapper) UnmappedIDs() []index.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]index.ID, len(m.unmappedIDs))
	copy(out, m.unmappedIDs)
	return out
}

// UnmappedKeys returns the distinct element keys absent from the dataset,
// sorted.
func (m *Mapper) UnmappedKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.unmappedKeys))
	copy(out, m.unmappedKeys)
	return out
}

// Stats returns the coverage statistics of the last Join.
func (m *Mapper) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}
