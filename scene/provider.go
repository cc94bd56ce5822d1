// Package scene defines the scene-graph provider interface the engine
// consumes, plus an in-memory implementation backed by a JSON scene dump.
package scene

import (
	"context"
	"errors"

	"github.com/sitelens/sitelens/property"
)

// ID identifies one scene-graph element.
type ID = int64

// ElementProperties is one element's property bag as returned by a bulk
// fetch.
type ElementProperties struct {
	ID         ID                `json:"id"`
	Properties []property.Record `json:"properties"`
}

// Provider is the scene-graph collaborator: element ids, hierarchy and
// property bags. Implementations are expected to be I/O bound; every
// method takes a context.
type Provider interface {
	// AllLeafIDs returns the leaf ids of the default traversal root.
	AllLeafIDs(ctx context.Context) ([]ID, error)

	// BulkProperties fetches property records for ids. nameFilter, when
	// non-empty, restricts records to the named properties.
	BulkProperties(ctx context.Context, ids []ID, nameFilter []string) ([]ElementProperties, error)

	// EnumerateSubtree returns the leaf ids under root. Domain geometry
	// may live outside the default traversal root, so scans union this
	// with AllLeafIDs.
	EnumerateSubtree(ctx context.Context, root ID) ([]ID, error)
}

// Provider errors.
var (
	// ErrUnknownNode is returned when a subtree root does not exist.
	ErrUnknownNode = errors.New("unknown scene node")
)
