// Package engine wires the classification pipeline into one explicitly
// constructed object: scanner, store, dataset and joiner. Callers create
// an Engine and pass it where needed; there is no process-wide state.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sitelens/sitelens/classify"
	"github.com/sitelens/sitelens/config"
	"github.com/sitelens/sitelens/dataset"
	"github.com/sitelens/sitelens/export"
	"github.com/sitelens/sitelens/index"
	"github.com/sitelens/sitelens/mapping"
	"github.com/sitelens/sitelens/metric"
	"github.com/sitelens/sitelens/publish"
	"github.com/sitelens/sitelens/scan"
	"github.com/sitelens/sitelens/scene"
)

// Engine owns all mutable classification and mapping state for one scene.
// Scans and joins replace state wholesale; there are no incremental
// updates.
type Engine struct {
	cfg        *config.Config
	provider   scene.Provider
	classifier *classify.Classifier
	store      *index.Store
	mapper     *mapping.Mapper
	logger     *slog.Logger
	metrics    *metric.Metrics
	publisher  *publish.Publisher
	progress   scan.Progress

	mu sync.Mutex
	ds *dataset.Dataset
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger; nil means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPublisher attaches a NATS event publisher.
func WithPublisher(p *publish.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithProgress attaches a scan progress callback.
func WithProgress(p scan.Progress) Option {
	return func(e *Engine) { e.progress = p }
}

// New creates an Engine for provider using cfg. cfg nil means defaults.
func New(provider scene.Provider, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		provider: provider,
		store:    index.NewStore(),
		mapper:   mapping.NewMapper(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	e.classifier = classify.NewClassifier(nil, candidateOverrides(cfg.Attributes))
	return e, nil
}

// candidateOverrides converts the config's attribute candidate lists to
// typed overrides, dropping unknown attribute names.
func candidateOverrides(attrs map[string][]string) map[classify.Attribute][]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[classify.Attribute][]string, len(attrs))
	for name, candidates := range attrs {
		out[classify.Attribute(name)] = candidates
	}
	return out
}

// Scan clears all engine state and classifies the full element
// population. Returns the run id alongside the deterministic statistics.
func (e *Engine) Scan(ctx context.Context) (string, *scan.Stats, error) {
	runID := uuid.New().String()
	e.logger.Info("starting scan", "run_id", runID)

	e.Clear()

	scanner := scan.New(e.provider, e.classifier, e.store, scan.Config{
		BatchSize:      e.cfg.Scan.BatchSize,
		SubtreeRoots:   e.cfg.Scan.SubtreeRoots,
		PropertyFilter: e.cfg.Scan.PropertyFilter,
		BatchTimeout:   e.cfg.Scan.BatchTimeout,
		Retry: scan.RetryConfig{
			MaxAttempts:       e.cfg.Scan.MaxAttempts,
			BackoffBase:       scan.DefaultRetryConfig().BackoffBase,
			BackoffMultiplier: scan.DefaultRetryConfig().BackoffMultiplier,
			MaxBackoff:        scan.DefaultRetryConfig().MaxBackoff,
		},
		Progress: func(percent float64, message string) {
			if e.progress != nil {
				e.progress(percent, message)
			}
			if err := e.publisher.ScanProgress(runID, percent, message); err != nil {
				e.logger.Warn("publish scan progress", "error", err)
			}
		},
	}, e.logger, e.metrics)

	stats, err := scanner.Scan(ctx)
	if err != nil {
		return runID, stats, err
	}

	if err := e.publisher.ScanComplete(runID, stats); err != nil {
		e.logger.Warn("publish scan completion", "error", err)
	}
	return runID, stats, nil
}

// LoadDataset replaces the current schedule dataset with rows.
func (e *Engine) LoadDataset(rows []dataset.Row) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ds = dataset.New(rows, e.cfg.Dataset.KeyField, e.cfg.Dataset.Columns)
	e.logger.Info("dataset loaded", "rows", e.ds.Len(), "skipped", e.ds.Skipped())
}

// LoadDatasetFile parses a CSV schedule file and replaces the current
// dataset.
func (e *Engine) LoadDatasetFile(path string) error {
	ds, err := dataset.LoadCSV(path, e.cfg.Dataset.KeyField, e.cfg.Dataset.Columns)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	e.mu.Lock()
	e.ds = ds
	e.mu.Unlock()
	e.logger.Info("dataset loaded", "path", path, "rows", ds.Len(), "skipped", ds.Skipped())
	return nil
}

// Join rebuilds the element↔schedule mapping against the loaded dataset.
func (e *Engine) Join() (mapping.Stats, error) {
	e.mu.Lock()
	ds := e.ds
	e.mu.Unlock()

	stats, err := e.mapper.Join(e.store, ds)
	if err != nil {
		return stats, err
	}

	if e.metrics != nil {
		e.metrics.RecordCoverage(stats.CoveragePercent, stats.UnmappedElements, stats.UnmappedKeys)
	}
	if err := e.publisher.Coverage("", stats); err != nil {
		e.logger.Warn("publish coverage", "error", err)
	}
	e.logger.Info("join complete",
		"mapped", stats.Mapped,
		"total", stats.Total,
		"coverage_percent", stats.CoveragePercent)
	return stats, nil
}

// WatchDataset starts watching the configured schedule file, reloading
// the dataset and re-joining on every change. Runs until ctx is done.
func (e *Engine) WatchDataset(ctx context.Context) error {
	path := e.cfg.Dataset.Path
	if path == "" {
		return fmt.Errorf("dataset.path is not configured")
	}

	watcher, err := dataset.NewWatcher(path, e.cfg.Dataset.WatchDebounce, e.logger, func(p string) {
		if err := e.LoadDatasetFile(p); err != nil {
			e.logger.Error("dataset reload failed", "path", p, "error", err)
			return
		}
		if _, err := e.Join(); err != nil {
			e.logger.Error("re-join after reload failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("create dataset watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start dataset watcher: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = watcher.Stop()
	}()
	return nil
}

// Coverage returns the coverage statistics of the last join.
func (e *Engine) Coverage() mapping.Stats {
	return e.mapper.Stats()
}

// Store exposes the classified attribute and index state.
func (e *Engine) Store() *index.Store {
	return e.store
}

// Mapper exposes the element↔schedule mapping state.
func (e *Engine) Mapper() *mapping.Mapper {
	return e.mapper
}

// Attributes returns the classified attributes for id, or nil.
func (e *Engine) Attributes(id index.ID) *classify.Attributes {
	return e.store.Attributes(id)
}

// GroupedView builds the per-dimension grouped export for the UI layer.
func (e *Engine) GroupedView() *export.View {
	return export.BuildView(e.store)
}

// Diagnostics builds the unmapped-diagnostics report of the last join.
func (e *Engine) Diagnostics() *mapping.Diagnostics {
	return e.mapper.Diagnostics(e.store, e.keyField())
}

// Clear atomically resets all classification and mapping state.
func (e *Engine) Clear() {
	e.store.Clear()
	e.mapper = mapping.NewMapper()
}

func (e *Engine) keyField() string {
	if e.cfg.Dataset.KeyField != "" {
		return e.cfg.Dataset.KeyField
	}
	return dataset.DefaultKeyField
}
