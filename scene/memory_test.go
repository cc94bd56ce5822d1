package scene

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/sitelens/sitelens/property"
)

func testGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewGraph(1, []Node{
		{ID: 1, Name: "model", Children: []ID{2, 3}},
		{ID: 2, Name: "villas", Children: []ID{4, 5}},
		{ID: 3, Name: "roads", Children: []ID{6}},
		{ID: 4, Properties: []property.Record{{Category: "Element", DisplayName: "Plot", DisplayValue: "425"}}},
		{ID: 5, Properties: []property.Record{{Category: "Element", DisplayName: "Block", DisplayValue: "39"}}},
		{ID: 6, Properties: []property.Record{{Category: "Element", DisplayName: "Category", DisplayValue: "Roads"}}},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g
}

func sortedIDs(ids []ID) []ID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestGraphAllLeafIDs(t *testing.T) {
	g := testGraph(t)
	ids, err := g.AllLeafIDs(context.Background())
	if err != nil {
		t.Fatalf("AllLeafIDs: %v", err)
	}
	got := sortedIDs(ids)
	want := []ID{4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("leaves = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("leaves = %v, want %v", got, want)
		}
	}
}

func TestGraphEnumerateSubtree(t *testing.T) {
	g := testGraph(t)

	ids, err := g.EnumerateSubtree(context.Background(), 2)
	if err != nil {
		t.Fatalf("EnumerateSubtree: %v", err)
	}
	got := sortedIDs(ids)
	if len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Errorf("subtree(2) = %v, want [4 5]", got)
	}

	if _, err := g.EnumerateSubtree(context.Background(), 999); err == nil {
		t.Error("expected error for unknown subtree root")
	}
}

func TestGraphDeepHierarchy(t *testing.T) {
	// A degenerate 50k-deep chain must traverse without recursion.
	const depth = 50000
	nodes := make([]Node, depth)
	for i := 0; i < depth; i++ {
		nodes[i] = Node{ID: ID(i + 1)}
		if i < depth-1 {
			nodes[i].Children = []ID{ID(i + 2)}
		}
	}
	g, err := NewGraph(1, nodes)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	ids, err := g.AllLeafIDs(context.Background())
	if err != nil {
		t.Fatalf("AllLeafIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != depth {
		t.Errorf("expected single leaf %d, got %v", depth, ids)
	}
}

func TestGraphBulkProperties(t *testing.T) {
	g := testGraph(t)

	props, err := g.BulkProperties(context.Background(), []ID{4, 999}, nil)
	if err != nil {
		t.Fatalf("BulkProperties: %v", err)
	}
	if len(props) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(props))
	}
	if len(props[0].Properties) != 1 || props[0].Properties[0].DisplayName != "Plot" {
		t.Errorf("unexpected properties for id 4: %+v", props[0])
	}
	if props[1].Properties != nil {
		t.Errorf("unknown id should carry nil properties, got %+v", props[1])
	}
}

func TestGraphBulkPropertiesNameFilter(t *testing.T) {
	g, err := NewGraph(1, []Node{
		{ID: 1, Properties: []property.Record{
			{Category: "Element", DisplayName: "Plot", DisplayValue: "425"},
			{Category: "Element", DisplayName: "Color", DisplayValue: "red"},
		}},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	props, err := g.BulkProperties(context.Background(), []ID{1}, []string{"Plot"})
	if err != nil {
		t.Fatalf("BulkProperties: %v", err)
	}
	if len(props[0].Properties) != 1 || props[0].Properties[0].DisplayName != "Plot" {
		t.Errorf("filter should keep only Plot, got %+v", props[0].Properties)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.json")
	content := `{
		"root": 1,
		"nodes": [
			{"id": 1, "children": [2]},
			{"id": 2, "properties": [{"category": "Element", "displayName": "Block", "displayValue": "39"}]}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	g, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	ids, err := g.AllLeafIDs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != 2 {
		t.Errorf("leaves = %v, want [2]", ids)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
