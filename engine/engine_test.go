package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitelens/sitelens/classify"
	"github.com/sitelens/sitelens/config"
	"github.com/sitelens/sitelens/dataset"
	"github.com/sitelens/sitelens/export"
	"github.com/sitelens/sitelens/property"
	"github.com/sitelens/sitelens/scene"
)

// villaScene builds a flat scene with n villa leaves (plots 1..n).
func villaScene(t *testing.T, n int) *scene.Graph {
	t.Helper()
	nodes := make([]scene.Node, 0, n+1)
	root := scene.Node{ID: 1}
	for i := 0; i < n; i++ {
		id := scene.ID(i + 2)
		root.Children = append(root.Children, id)
		nodes = append(nodes, scene.Node{ID: id, Properties: []property.Record{
			{Category: "Element", DisplayName: "Plot", DisplayValue: fmt.Sprintf("%d", i+1)},
			{Category: "Element", DisplayName: "Block", DisplayValue: "B1"},
		}})
	}
	nodes = append(nodes, root)
	g, err := scene.NewGraph(1, nodes)
	require.NoError(t, err)
	return g
}

func TestEngineScan(t *testing.T) {
	g := villaScene(t, 10)
	e, err := New(g, nil)
	require.NoError(t, err)

	runID, stats, err := e.Scan(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, runID)
	assert.Equal(t, 10, stats.TotalScanned)
	assert.Equal(t, 10, stats.Classified)
	assert.Equal(t, 10, e.Store().Len())

	attrs := e.Attributes(2)
	require.NotNil(t, attrs)
	assert.Equal(t, "1", attrs.Plot)
	assert.Equal(t, "B1", attrs.Block)
}

func TestEngineScanReplacesState(t *testing.T) {
	g := villaScene(t, 5)
	e, err := New(g, nil)
	require.NoError(t, err)

	first, _, err := e.Scan(context.Background())
	require.NoError(t, err)
	second, stats, err := e.Scan(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "each scan gets a fresh run id")
	assert.Equal(t, 5, stats.TotalScanned)
	assert.Equal(t, 5, e.Store().Len(), "re-scan replaces, never accumulates")
}

func TestEngineJoin(t *testing.T) {
	g := villaScene(t, 4)
	e, err := New(g, nil)
	require.NoError(t, err)
	_, _, err = e.Scan(context.Background())
	require.NoError(t, err)

	e.LoadDataset([]dataset.Row{
		{"plot": "1", "status": "complete"},
		{"plot": "2", "status": "in progress"},
	})

	stats, err := e.Join()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Mapped)
	assert.InDelta(t, 50.0, stats.CoveragePercent, 0.001)

	entry := e.Mapper().Entry(2)
	require.NotNil(t, entry)
	assert.Equal(t, "1", entry.Key)

	assert.Equal(t, stats, e.Coverage())
}

func TestEngineJoinWithoutDataset(t *testing.T) {
	g := villaScene(t, 1)
	e, err := New(g, nil)
	require.NoError(t, err)
	_, _, err = e.Scan(context.Background())
	require.NoError(t, err)

	_, err = e.Join()
	assert.Error(t, err)
}

func TestEngineDiagnostics(t *testing.T) {
	g := villaScene(t, 3)
	e, err := New(g, nil)
	require.NoError(t, err)
	_, _, err = e.Scan(context.Background())
	require.NoError(t, err)

	e.LoadDataset([]dataset.Row{
		{"plot": "1", "status": "done"},
		{"plot": "77", "status": "done"},
	})
	_, err = e.Join()
	require.NoError(t, err)

	diag := e.Diagnostics()
	assert.Equal(t, "plot", diag.KeyField)
	assert.Len(t, diag.UnmappedElements, 2)
	assert.Equal(t, []string{"2", "3"}, diag.UnmappedKeys)
}

func TestEngineGroupedView(t *testing.T) {
	g := villaScene(t, 3)
	e, err := New(g, nil)
	require.NoError(t, err)
	_, _, err = e.Scan(context.Background())
	require.NoError(t, err)

	view := e.GroupedView()
	assert.Equal(t, 3, view.Classified)

	var blocks *export.DimensionView
	for i := range view.Dimensions {
		if view.Dimensions[i].Dimension == classify.DimBlock {
			blocks = &view.Dimensions[i]
		}
	}
	require.NotNil(t, blocks)
	require.Len(t, blocks.Groups, 1)
	assert.Equal(t, "B1", blocks.Groups[0].Value)
	assert.Equal(t, 3, blocks.Groups[0].Count)
}

func TestEngineClear(t *testing.T) {
	g := villaScene(t, 2)
	e, err := New(g, nil)
	require.NoError(t, err)
	_, _, err = e.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, e.Store().Len())

	e.Clear()
	assert.Equal(t, 0, e.Store().Len())
	assert.Nil(t, e.Mapper().Entry(2))
}

func TestEngineCandidateOverrides(t *testing.T) {
	nodes := []scene.Node{
		{ID: 1, Children: []scene.ID{2}},
		{ID: 2, Properties: []property.Record{
			{Category: "Custom", DisplayName: "ParcelRef", DisplayValue: "42"},
		}},
	}
	g, err := scene.NewGraph(1, nodes)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Attributes = map[string][]string{
		string(classify.AttrPlot): {"ParcelRef"},
	}

	e, err := New(g, cfg)
	require.NoError(t, err)
	_, stats, err := e.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Classified)
	attrs := e.Attributes(2)
	require.NotNil(t, attrs)
	assert.Equal(t, "42", attrs.Plot)
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scan.BatchSize = -1

	_, err := New(villaScene(t, 1), cfg)
	assert.Error(t, err)
}
