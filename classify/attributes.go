// Package classify decides whether a scene element is a tracked domain
// entity and extracts its canonical attributes from raw property records.
package classify

// Attributes is the normalized per-element attribute record. Fields are
// optional; the empty string means the attribute is absent. An Attributes
// value is derived once per element during classification and not mutated
// afterwards except by a full re-scan.
type Attributes struct {
	// Identity attributes. At least one of Block, Plot, VillaType or
	// Neighborhood is non-empty on every classified element, and it was
	// set by a primary extraction rule.
	Block        string `json:"block,omitempty"`
	Plot         string `json:"plot,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	VillaType    string `json:"villaType,omitempty"`

	// Descriptive attributes.
	Name       string `json:"name,omitempty"`
	Type       string `json:"type,omitempty"`
	Family     string `json:"family,omitempty"`
	Category   string `json:"category,omitempty"`
	Phase      string `json:"phase,omitempty"`
	Level      string `json:"level,omitempty"`
	SourceFile string `json:"sourceFile,omitempty"`

	// Schedule date attributes, kept as raw strings from the model.
	PlannedStart  string `json:"plannedStart,omitempty"`
	PlannedFinish string `json:"plannedFinish,omitempty"`
	ActualStart   string `json:"actualStart,omitempty"`
	ActualFinish  string `json:"actualFinish,omitempty"`

	// Zone is derived from infrastructure network names by a fallback
	// rule only. It is stripped before an element is accepted as a
	// domain entity.
	Zone string `json:"zone,omitempty"`
}

// HasIdentity reports whether at least one identity attribute is set.
func (a *Attributes) HasIdentity() bool {
	return a.Block != "" || a.Plot != "" || a.VillaType != "" || a.Neighborhood != ""
}

// Dimension names the secondary indices built over classified elements.
type Dimension string

// Index dimensions.
const (
	DimBlock        Dimension = "block"
	DimPlot         Dimension = "plot"
	DimNeighborhood Dimension = "neighborhood"
	DimPhase        Dimension = "phase"
	DimComponent    Dimension = "component"
)

// Dimensions lists every index dimension in a stable order.
func Dimensions() []Dimension {
	return []Dimension{DimBlock, DimPlot, DimNeighborhood, DimPhase, DimComponent}
}

// DimensionValue returns the attribute value backing an index dimension.
// The component dimension groups elements by construction component, which
// the model carries as the element family.
func (a *Attributes) DimensionValue(d Dimension) string {
	switch d {
	case DimBlock:
		return a.Block
	case DimPlot:
		return a.Plot
	case DimNeighborhood:
		return a.Neighborhood
	case DimPhase:
		return a.Phase
	case DimComponent:
		return a.Family
	default:
		return ""
	}
}
