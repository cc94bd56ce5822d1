// Package dataset loads the externally supplied tabular schedule and
// indexes its rows by a declared key column.
package dataset

import (
	"sort"
	"strings"
)

// DefaultKeyField is the key column joined against element attributes.
const DefaultKeyField = "plot"

// keyPrefixes are stripped from key values during normalization. Schedule
// exports routinely prefix plot numbers with the entity kind.
var keyPrefixes = []string{"plot", "villa", "unit"}

// Row is one parsed row of the external dataset: column name → value.
// Parsing mechanics live with the source (CSV here); the engine only
// depends on this shape.
type Row map[string]string

// Value returns the value of the named column, falling back to a
// case-insensitive header match.
func (r Row) Value(column string) string {
	if v, ok := r[column]; ok {
		return strings.TrimSpace(v)
	}
	for header, v := range r {
		if strings.EqualFold(header, column) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Columns maps canonical column names the engine reads (key, status,
// precaster, …) to the headers the uploaded file actually uses.
type Columns map[string]string

// Resolve returns the header for a canonical column name, defaulting to
// the canonical name itself.
func (c Columns) Resolve(canonical string) string {
	if header, ok := c[canonical]; ok && header != "" {
		return header
	}
	return canonical
}

// Record is one external row with its normalized key. Multiple records
// may share a key: sub-components of the same entity stay separate rows.
type Record struct {
	// Key is the normalized key value.
	Key string `json:"key"`

	// Row is the raw parsed row.
	Row Row `json:"row"`
}

// Dataset is one uploaded schedule, indexed by normalized key. A new
// upload replaces the previous Dataset wholesale; there is no merging.
type Dataset struct {
	keyField string
	columns  Columns
	rows     []Row
	byKey    map[string][]Record
	skipped  int
}

// New indexes rows by the configured key column. keyField empty means
// DefaultKeyField. Rows without a usable key value are counted but kept
// out of the index.
func New(rows []Row, keyField string, columns Columns) *Dataset {
	if keyField == "" {
		keyField = DefaultKeyField
	}
	d := &Dataset{
		keyField: keyField,
		columns:  columns,
		rows:     rows,
		byKey:    make(map[string][]Record),
	}

	header := columns.Resolve(keyField)
	for _, row := range rows {
		key := NormalizeKey(row.Value(header))
		if key == "" {
			d.skipped++
			continue
		}
		d.byKey[key] = append(d.byKey[key], Record{Key: key, Row: row})
	}
	return d
}

// NormalizeKey canonicalizes a key value: trim, lower-case, strip known
// entity-kind prefixes and their separators.
func NormalizeKey(value string) string {
	key := strings.ToLower(strings.TrimSpace(value))
	for _, prefix := range keyPrefixes {
		if strings.HasPrefix(key, prefix) {
			key = strings.TrimLeft(strings.TrimPrefix(key, prefix), " -_#.")
			break
		}
	}
	return key
}

// KeyField returns the declared key column.
func (d *Dataset) KeyField() string {
	return d.keyField
}

// Columns returns the canonical→header column map.
func (d *Dataset) Columns() Columns {
	return d.columns
}

// Records returns all rows sharing the normalized form of key.
func (d *Dataset) Records(key string) []Record {
	return d.byKey[NormalizeKey(key)]
}

// Keys returns every distinct normalized key, sorted.
func (d *Dataset) Keys() []string {
	keys := make([]string, 0, len(d.byKey))
	for k := range d.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of indexed rows.
func (d *Dataset) Len() int {
	return len(d.rows) - d.skipped
}

// Skipped returns the number of rows dropped for a missing key value.
func (d *Dataset) Skipped() int {
	return d.skipped
}
