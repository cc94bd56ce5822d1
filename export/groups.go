// Package export builds the JSON-serializable output surface consumed by
// the visualization layer: per-dimension grouped id lists and per-id
// attribute records.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sitelens/sitelens/classify"
	"github.com/sitelens/sitelens/index"
)

// Group is one value bucket within a dimension.
type Group struct {
	Value string     `json:"value"`
	Count int        `json:"count"`
	IDs   []index.ID `json:"ids"`
}

// DimensionView lists a dimension's groups in numeric-aware value order.
type DimensionView struct {
	Dimension classify.Dimension `json:"dimension"`
	Groups    []Group            `json:"groups"`
}

// View is the full grouped export across all dimensions.
type View struct {
	Classified int             `json:"classified"`
	Dimensions []DimensionView `json:"dimensions"`
}

// BuildView snapshots the store's indices into a deterministic grouped
// view: dimensions in declaration order, values in numeric-aware order.
func BuildView(store *index.Store) *View {
	view := &View{
		Classified: store.Len(),
		Dimensions: make([]DimensionView, 0, len(classify.Dimensions())),
	}

	for _, dim := range classify.Dimensions() {
		groups := store.Groups(dim)
		dv := DimensionView{Dimension: dim, Groups: make([]Group, 0, len(groups))}
		for _, value := range store.Values(dim) {
			ids := groups[value]
			dv.Groups = append(dv.Groups, Group{Value: value, Count: len(ids), IDs: ids})
		}
		view.Dimensions = append(view.Dimensions, dv)
	}
	return view
}

// WriteJSON writes the view as indented JSON.
func (v *View) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode grouped view: %w", err)
	}
	return nil
}
