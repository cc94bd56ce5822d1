// Package property provides raw property records and candidate-name
// resolution against one element's property set.
package property

import (
	"fmt"
	"strings"
)

// Record is one raw property as fetched from the scene graph provider.
// Records are ephemeral: fetched per batch and discarded after classification.
type Record struct {
	// Category groups related properties (e.g. "Element", "Item").
	Category string `json:"category"`

	// DisplayName is the property name as shown to users.
	DisplayName string `json:"displayName"`

	// DisplayValue is the property value. Providers deliver strings,
	// numbers and booleans; everything else is coerced via fmt.
	DisplayValue any `json:"displayValue"`
}

// Path returns the category-qualified property path ("Category/DisplayName").
func (r Record) Path() string {
	return r.Category + "/" + r.DisplayName
}

// StringValue returns the display value coerced to a trimmed string.
// An empty string is treated as an absent value by callers.
func (r Record) StringValue() string {
	switch v := r.DisplayValue.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		// JSON numbers arrive as float64; keep integral values compact.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}
