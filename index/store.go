// Package index maintains the primary attribute store and the secondary
// value-to-ids indices over classified elements.
package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/sitelens/sitelens/classify"
)

// ID identifies one scene-graph element.
type ID = int64

// Store owns classification results for one engine instance: the primary
// id→attributes map plus one value→ids index per dimension. State persists
// for the instance's lifetime; Clear resets everything atomically before a
// re-scan. There is no incremental update.
type Store struct {
	mu      sync.RWMutex
	attrs   map[ID]*classify.Attributes
	indices map[classify.Dimension]map[string][]ID
}

// NewStore creates an empty Store with one index per dimension.
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.attrs = make(map[ID]*classify.Attributes)
	s.indices = make(map[classify.Dimension]map[string][]ID, len(classify.Dimensions()))
	for _, dim := range classify.Dimensions() {
		s.indices[dim] = make(map[string][]ID)
	}
}

// normalizeKey maps a raw dimension value to its index key. Neighborhood
// and phase values group case- and whitespace-insensitively. Block and
// plot keys keep their original form: purely-numeric and alphanumeric
// variants coexist and must stay distinguishable.
func normalizeKey(dim classify.Dimension, value string) string {
	switch dim {
	case classify.DimNeighborhood, classify.DimPhase:
		return strings.ToLower(strings.TrimSpace(value))
	default:
		return value
	}
}

// Merge records one classified element: the attribute record plus one
// index entry per non-empty dimension value.
func (s *Store) Merge(id ID, attrs *classify.Attributes) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attrs[id] = attrs
	for _, dim := range classify.Dimensions() {
		value := attrs.DimensionValue(dim)
		if value == "" {
			continue
		}
		key := normalizeKey(dim, value)
		s.indices[dim][key] = append(s.indices[dim][key], id)
	}
}

// Attributes returns the attribute record for id, or nil when the id was
// never classified.
func (s *Store) Attributes(id ID) *classify.Attributes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attrs[id]
}

// IDs returns the ids indexed under value in the given dimension. The
// lookup normalizes the value the same way indexing did.
func (s *Store) IDs(dim classify.Dimension, value string) []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.indices[dim][normalizeKey(dim, value)]
	out := make([]ID, len(ids))
	copy(out, ids)
	return out
}

// Values returns the distinct index keys for a dimension, sorted with the
// numeric-aware comparator.
func (s *Store) Values(dim classify.Dimension) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]string, 0, len(s.indices[dim]))
	for v := range s.indices[dim] {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		return numericLess(values[i], values[j])
	})
	return values
}

// Groups returns the full value→ids mapping for a dimension, with ids
// copied so callers cannot mutate index state.
func (s *Store) Groups(dim classify.Dimension) map[string][]ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]ID, len(s.indices[dim]))
	for v, ids := range s.indices[dim] {
		cp := make([]ID, len(ids))
		copy(cp, ids)
		out[v] = cp
	}
	return out
}

// All returns every classified id with its attribute record.
func (s *Store) All() map[ID]*classify.Attributes {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[ID]*classify.Attributes, len(s.attrs))
	for id, attrs := range s.attrs {
		out[id] = attrs
	}
	return out
}

// Len returns the number of classified elements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attrs)
}

// Clear atomically resets all attribute and index state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}
