package mapping

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sitelens/sitelens/index"
)

// UnmappedElement is one unmapped element in the diagnostics export,
// carrying enough attributes to locate it in the source model.
type UnmappedElement struct {
	ID           index.ID `json:"id"`
	Key          string   `json:"key,omitempty"`
	Block        string   `json:"block,omitempty"`
	Plot         string   `json:"plot,omitempty"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	VillaType    string   `json:"villaType,omitempty"`
	SourceFile   string   `json:"sourceFile,omitempty"`
}

// Diagnostics is the JSON-serializable unmapped report surfaced to the
// visualization layer.
type Diagnostics struct {
	KeyField         string            `json:"keyField"`
	Stats            Stats             `json:"stats"`
	UnmappedElements []UnmappedElement `json:"unmappedElements"`
	UnmappedKeys     []string          `json:"unmappedKeys"`
}

// Diagnostics builds the unmapped report from the last Join, resolving
// element attributes from the store.
func (m *Mapper) Diagnostics(store *index.Store, keyField string) *Diagnostics {
	ids := m.UnmappedIDs()
	report := &Diagnostics{
		KeyField:         keyField,
		Stats:            m.Stats(),
		UnmappedKeys:     m.UnmappedKeys(),
		UnmappedElements: make([]UnmappedElement, 0, len(ids)),
	}
	for _, id := range ids {
		elem := UnmappedElement{ID: id}
		if attrs := store.Attributes(id); attrs != nil {
			elem.Key = elementKey(attrs, keyField)
			elem.Block = attrs.Block
			elem.Plot = attrs.Plot
			elem.Neighborhood = attrs.Neighborhood
			elem.VillaType = attrs.VillaType
			elem.SourceFile = attrs.SourceFile
		}
		report.UnmappedElements = append(report.UnmappedElements, elem)
	}
	return report
}

// WriteJSON writes the report as indented JSON.
func (d *Diagnostics) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}
	return nil
}
