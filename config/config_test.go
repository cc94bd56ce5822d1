package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scan.BatchSize != 5000 {
		t.Errorf("expected default batch size 5000, got %d", cfg.Scan.BatchSize)
	}
	if cfg.Dataset.KeyField != "plot" {
		t.Errorf("expected default key field plot, got %s", cfg.Dataset.KeyField)
	}
	if cfg.NATS.SubjectPrefix != "sitelens" {
		t.Errorf("expected default subject prefix sitelens, got %s", cfg.NATS.SubjectPrefix)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero batch size",
			modify:  func(c *Config) { c.Scan.BatchSize = 0 },
			wantErr: true,
		},
		{
			name:    "negative batch size",
			modify:  func(c *Config) { c.Scan.BatchSize = -1 },
			wantErr: true,
		},
		{
			name:    "zero attempts",
			modify:  func(c *Config) { c.Scan.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "unknown key field",
			modify:  func(c *Config) { c.Dataset.KeyField = "color" },
			wantErr: true,
		},
		{
			name:    "block key field",
			modify:  func(c *Config) { c.Dataset.KeyField = "block" },
			wantErr: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	other := &Config{
		Scan: ScanConfig{BatchSize: 1000, SubtreeRoots: []int64{42}},
		Dataset: DatasetConfig{
			Path:     "schedule.csv",
			KeyField: "block",
			Columns:  map[string]string{"status": "Progress"},
		},
		Attributes: map[string][]string{
			"block": {"Custom Block"},
		},
		NATS: NATSConfig{URL: "nats://localhost:4222"},
	}

	base.Merge(other)

	if base.Scan.BatchSize != 1000 {
		t.Errorf("batch size = %d, want 1000", base.Scan.BatchSize)
	}
	if len(base.Scan.SubtreeRoots) != 1 || base.Scan.SubtreeRoots[0] != 42 {
		t.Errorf("subtree roots = %v", base.Scan.SubtreeRoots)
	}
	if base.Dataset.KeyField != "block" {
		t.Errorf("key field = %s, want block", base.Dataset.KeyField)
	}
	if base.Dataset.WatchDebounce != 500*time.Millisecond {
		t.Errorf("merge should keep unset defaults, debounce = %v", base.Dataset.WatchDebounce)
	}
	if base.Attributes["block"][0] != "Custom Block" {
		t.Errorf("attributes = %v", base.Attributes)
	}
	if base.NATS.URL != "nats://localhost:4222" {
		t.Errorf("nats url = %s", base.NATS.URL)
	}

	base.Merge(nil) // must be a no-op
	if base.Scan.BatchSize != 1000 {
		t.Error("Merge(nil) should not change anything")
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "sitelens.yaml")

	cfg := DefaultConfig()
	cfg.Dataset.Path = "data/schedule.csv"
	cfg.Attributes = map[string][]string{"plot": {"Element/Plot", "Plot"}}

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if loaded.Dataset.Path != "data/schedule.csv" {
		t.Errorf("dataset path = %s", loaded.Dataset.Path)
	}
	if len(loaded.Attributes["plot"]) != 2 {
		t.Errorf("attributes = %v", loaded.Attributes)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("scan: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
