package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sitelens/sitelens/property"
)

// Node is one scene-graph node in a JSON scene dump. Interior nodes carry
// children; leaves carry property records.
type Node struct {
	ID         ID                `json:"id"`
	Name       string            `json:"name,omitempty"`
	Children   []ID              `json:"children,omitempty"`
	Properties []property.Record `json:"properties,omitempty"`
}

// Graph is an in-memory scene graph implementing Provider. It serves as
// the file-backed provider for the CLI and as the test double for the
// scanner and engine.
type Graph struct {
	root  ID
	nodes map[ID]*Node
}

// NewGraph builds a Graph from nodes rooted at root.
func NewGraph(root ID, nodes []Node) (*Graph, error) {
	g := &Graph{root: root, nodes: make(map[ID]*Node, len(nodes))}
	for i := range nodes {
		n := &nodes[i]
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %d", n.ID)
		}
		g.nodes[n.ID] = n
	}
	if _, ok := g.nodes[root]; !ok {
		return nil, fmt.Errorf("root node %d: %w", root, ErrUnknownNode)
	}
	return g, nil
}

// sceneFile is the JSON scene dump layout.
type sceneFile struct {
	Root  ID     `json:"root"`
	Nodes []Node `json:"nodes"`
}

// LoadFile reads a JSON scene dump from path.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene file: %w", err)
	}

	var file sceneFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse scene file: %w", err)
	}

	g, err := NewGraph(file.Root, file.Nodes)
	if err != nil {
		return nil, fmt.Errorf("build scene graph: %w", err)
	}
	return g, nil
}

// AllLeafIDs returns the leaf ids under the default root.
func (g *Graph) AllLeafIDs(ctx context.Context) ([]ID, error) {
	return g.EnumerateSubtree(ctx, g.root)
}

// EnumerateSubtree returns the leaf ids under root using an explicit
// stack; deep hierarchies must not grow the call stack.
func (g *Graph) EnumerateSubtree(_ context.Context, root ID) ([]ID, error) {
	if _, ok := g.nodes[root]; !ok {
		return nil, fmt.Errorf("subtree root %d: %w", root, ErrUnknownNode)
	}

	var leaves []ID
	seen := make(map[ID]bool)
	stack := []ID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true

		node, ok := g.nodes[id]
		if !ok {
			// Dangling child reference; skip rather than fail the
			// whole traversal.
			continue
		}
		if len(node.Children) == 0 {
			leaves = append(leaves, id)
			continue
		}
		stack = append(stack, node.Children...)
	}
	return leaves, nil
}

// BulkProperties returns property records for ids. Unknown ids yield an
// entry with nil properties so callers can count them as skipped.
func (g *Graph) BulkProperties(_ context.Context, ids []ID, nameFilter []string) ([]ElementProperties, error) {
	filter := make(map[string]bool, len(nameFilter))
	for _, name := range nameFilter {
		filter[name] = true
	}

	out := make([]ElementProperties, 0, len(ids))
	for _, id := range ids {
		node, ok := g.nodes[id]
		if !ok {
			out = append(out, ElementProperties{ID: id})
			continue
		}
		records := node.Properties
		if len(filter) > 0 {
			records = nil
			for _, rec := range node.Properties {
				if filter[rec.DisplayName] {
					records = append(records, rec)
				}
			}
		}
		out = append(out, ElementProperties{ID: id, Properties: records})
	}
	return out, nil
}
