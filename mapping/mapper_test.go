package mapping

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/sitelens/sitelens/classify"
	"github.com/sitelens/sitelens/dataset"
	"github.com/sitelens/sitelens/index"
)

func scheduleDataset(rows []dataset.Row) *dataset.Dataset {
	return dataset.New(rows, "plot", nil)
}

func TestJoinForwardAndReverse(t *testing.T) {
	store := index.NewStore()
	store.Merge(10, &classify.Attributes{Plot: "425", Block: "39"})

	ds := scheduleDataset([]dataset.Row{
		{"Plot": "425", "Status": "Raft Completed"},
	})

	m := NewMapper()
	stats, err := m.Join(store, ds)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	if stats.Mapped != 1 || stats.Total != 1 {
		t.Errorf("stats = %+v, want 1/1 mapped", stats)
	}
	if stats.CoveragePercent != 100 {
		t.Errorf("coverage = %f, want 100", stats.CoveragePercent)
	}

	entry := m.Entry(10)
	if entry == nil {
		t.Fatal("expected forward entry for id 10")
	}
	if entry.Key != "425" {
		t.Errorf("entry key = %q, want 425", entry.Key)
	}
	if len(entry.Records) != 1 || entry.Records[0].Row.Value("Status") != "Raft Completed" {
		t.Errorf("entry records = %+v", entry.Records)
	}

	if ids := m.IDs("425"); !reflect.DeepEqual(ids, []index.ID{10}) {
		t.Errorf("reverse[425] = %v, want [10]", ids)
	}
}

func TestJoinSubComponentsRetained(t *testing.T) {
	store := index.NewStore()
	store.Merge(10, &classify.Attributes{Plot: "425"})

	ds := scheduleDataset([]dataset.Row{
		{"Plot": "425", "Status": "Raft Completed", "Component": "Raft"},
		{"Plot": "425", "Status": "In Progress", "Component": "Walls"},
	})

	m := NewMapper()
	if _, err := m.Join(store, ds); err != nil {
		t.Fatalf("Join: %v", err)
	}

	entry := m.Entry(10)
	if entry == nil || len(entry.Records) != 2 {
		t.Fatalf("expected both sub-component rows, got %+v", entry)
	}
}

func TestJoinUnmapped(t *testing.T) {
	store := index.NewStore()
	store.Merge(1, &classify.Attributes{Plot: "425"})
	store.Merge(2, &classify.Attributes{Plot: "777"})
	store.Merge(3, &classify.Attributes{Plot: "777"}) // same missing key twice
	store.Merge(4, &classify.Attributes{Block: "39"}) // no plot at all

	ds := scheduleDataset([]dataset.Row{
		{"Plot": "425", "Status": "Done"},
	})

	m := NewMapper()
	stats, err := m.Join(store, ds)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	if stats.Mapped != 1 {
		t.Errorf("mapped = %d, want 1", stats.Mapped)
	}
	if got := m.UnmappedIDs(); !reflect.DeepEqual(got, []index.ID{2, 3, 4}) {
		t.Errorf("unmapped ids = %v, want [2 3 4]", got)
	}
	// Keys deduplicate; the keyless element contributes no key.
	if got := m.UnmappedKeys(); !reflect.DeepEqual(got, []string{"777"}) {
		t.Errorf("unmapped keys = %v, want [777]", got)
	}
	if want := 25.0; stats.CoveragePercent != want {
		t.Errorf("coverage = %f, want %f", stats.CoveragePercent, want)
	}
}

func TestJoinReplacesPriorState(t *testing.T) {
	store := index.NewStore()
	store.Merge(1, &classify.Attributes{Plot: "425"})

	m := NewMapper()
	if _, err := m.Join(store, scheduleDataset([]dataset.Row{{"Plot": "999"}})); err != nil {
		t.Fatal(err)
	}
	if m.Entry(1) != nil {
		t.Fatal("id 1 should be unmapped against the first dataset")
	}

	// A new upload replaces all mapping state.
	if _, err := m.Join(store, scheduleDataset([]dataset.Row{{"Plot": "425"}})); err != nil {
		t.Fatal(err)
	}
	if m.Entry(1) == nil {
		t.Error("id 1 should map against the second dataset")
	}
	if len(m.UnmappedIDs()) != 0 || len(m.UnmappedKeys()) != 0 {
		t.Error("unmapped state from the first join should be gone")
	}
}

func TestJoinNoDataset(t *testing.T) {
	m := NewMapper()
	if _, err := m.Join(index.NewStore(), nil); err != ErrNoDataset {
		t.Errorf("err = %v, want ErrNoDataset", err)
	}
}

func TestJoinKeyNormalization(t *testing.T) {
	store := index.NewStore()
	store.Merge(1, &classify.Attributes{Plot: "425"})

	// Dataset keys carry a prefix; element keys are bare numbers.
	ds := scheduleDataset([]dataset.Row{
		{"Plot": "Villa-425", "Status": "Done"},
	})

	m := NewMapper()
	stats, err := m.Join(store, ds)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Mapped != 1 {
		t.Errorf("normalized keys should match, stats = %+v", stats)
	}
}

func TestDiagnosticsExport(t *testing.T) {
	store := index.NewStore()
	store.Merge(1, &classify.Attributes{Plot: "425", Block: "39", SourceFile: "nbh3.nwc"})

	m := NewMapper()
	if _, err := m.Join(store, scheduleDataset([]dataset.Row{{"Plot": "1"}})); err != nil {
		t.Fatal(err)
	}

	report := m.Diagnostics(store, "plot")
	if len(report.UnmappedElements) != 1 {
		t.Fatalf("unmapped elements = %d, want 1", len(report.UnmappedElements))
	}
	elem := report.UnmappedElements[0]
	if elem.ID != 1 || elem.Key != "425" || elem.Block != "39" {
		t.Errorf("unexpected element %+v", elem)
	}

	var buf bytes.Buffer
	if err := report.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded Diagnostics
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded.KeyField != "plot" || len(decoded.UnmappedKeys) != 1 {
		t.Errorf("decoded report = %+v", decoded)
	}
}
