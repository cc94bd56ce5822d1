// Package scan drives classification over the full element population in
// bounded batches.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sitelens/sitelens/classify"
	"github.com/sitelens/sitelens/index"
	"github.com/sitelens/sitelens/metric"
	"github.com/sitelens/sitelens/scene"
)

// DefaultBatchSize bounds how many elements one property fetch covers.
const DefaultBatchSize = 5000

// Scanner errors.
var (
	// ErrNoProvider is returned when no scene graph provider is configured.
	ErrNoProvider = errors.New("no scene graph provider")

	// ErrAborted is returned when a batch fetch fails after all retries.
	// Batches merged before the failure remain in the store.
	ErrAborted = errors.New("scan aborted")
)

// Progress receives per-batch progress updates: a percentage in (0,100]
// and a human-readable message.
type Progress func(percent float64, message string)

// Config holds scanner configuration.
type Config struct {
	// BatchSize is the maximum elements per property fetch.
	// Zero means DefaultBatchSize.
	BatchSize int

	// SubtreeRoots designates subtrees known to host domain geometry.
	// Their leaf ids are unioned with the default traversal before
	// scanning; domain entities may live outside the default root.
	SubtreeRoots []scene.ID

	// PropertyFilter restricts bulk fetches to the named properties.
	// Empty fetches everything.
	PropertyFilter []string

	// BatchTimeout bounds one fetch attempt. Zero means no timeout; a
	// stalled provider then blocks the scan indefinitely.
	BatchTimeout time.Duration

	// Retry configures per-batch fetch retries.
	Retry RetryConfig

	// Progress, when set, is invoked after every merged batch.
	Progress Progress
}

// Stats aggregates one scan. Counts are deterministic for an unchanged
// provider: two scans of the same scene yield identical Stats.
type Stats struct {
	// TotalScanned is the number of unique ids scanned.
	TotalScanned int `json:"totalScanned"`

	// Classified is the number of elements accepted as domain entities.
	Classified int `json:"classified"`

	// Skipped counts elements with malformed or missing property bags.
	Skipped int `json:"skipped"`

	// Batches is the number of property fetches performed.
	Batches int `json:"batches"`

	// PerDimension counts classified elements carrying each dimension.
	PerDimension map[classify.Dimension]int `json:"perDimensionCounts"`

	// AnalysisRatePercent is Classified / TotalScanned * 100.
	AnalysisRatePercent float64 `json:"analysisRatePercent"`
}

// Scanner runs classification over the deduplicated id population in
// bounded batches, merging results into the shared store. Fetches are
// awaited sequentially, one batch at a time; the store is mutated only
// between fetches, so a single Scanner needs no locking of its own.
type Scanner struct {
	provider   scene.Provider
	classifier *classify.Classifier
	store      *index.Store
	config     Config
	logger     *slog.Logger
	metrics    *metric.Metrics
}

// New creates a Scanner. logger and metrics may be nil.
func New(provider scene.Provider, classifier *classify.Classifier, store *index.Store, cfg Config, logger *slog.Logger, metrics *metric.Metrics) *Scanner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		provider:   provider,
		classifier: classifier,
		store:      store,
		config:     cfg,
		logger:     logger,
		metrics:    metrics,
	}
}

// Scan classifies the full element population and merges domain entities
// into the store. The context is checked at every batch boundary; a fetch
// failure after retries aborts the scan with ErrAborted, keeping batches
// merged so far.
func (s *Scanner) Scan(ctx context.Context) (*Stats, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}

	start := time.Now()

	ids, err := s.collectIDs(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalScanned: len(ids),
		PerDimension: make(map[classify.Dimension]int, len(classify.Dimensions())),
	}
	if len(ids) == 0 {
		return stats, nil
	}

	batches := (len(ids) + s.config.BatchSize - 1) / s.config.BatchSize
	s.logger.Info("scan started",
		"elements", len(ids),
		"batch_size", s.config.BatchSize,
		"batches", batches)

	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("%w: %w", ErrAborted, err)
		}

		lo := b * s.config.BatchSize
		hi := min(lo+s.config.BatchSize, len(ids))
		batch := ids[lo:hi]

		props, err := s.fetchBatch(ctx, batch)
		if err != nil {
			return stats, fmt.Errorf("%w: batch %d/%d: %w", ErrAborted, b+1, batches, err)
		}

		classified, skipped := s.mergeBatch(props, stats)
		stats.Batches++

		if s.metrics != nil {
			s.metrics.RecordBatch(len(batch), classified, skipped)
		}
		if s.config.Progress != nil {
			percent := float64(b+1) / float64(batches) * 100
			s.config.Progress(percent, fmt.Sprintf("scanned %d of %d elements", hi, len(ids)))
		}
	}

	if stats.TotalScanned > 0 {
		stats.AnalysisRatePercent = float64(stats.Classified) / float64(stats.TotalScanned) * 100
	}
	if s.metrics != nil {
		s.metrics.RecordScanDuration(time.Since(start))
	}
	s.logger.Info("scan complete",
		"classified", stats.Classified,
		"skipped", stats.Skipped,
		"rate_percent", stats.AnalysisRatePercent,
		"duration", time.Since(start))

	return stats, nil
}

// collectIDs unions the default traversal with the designated subtrees,
// deduplicates, and sorts for deterministic batch boundaries.
func (s *Scanner) collectIDs(ctx context.Context) ([]scene.ID, error) {
	primary, err := s.provider.AllLeafIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate leaf ids: %w", err)
	}

	seen := make(map[scene.ID]bool, len(primary))
	ids := make([]scene.ID, 0, len(primary))
	for _, id := range primary {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, root := range s.config.SubtreeRoots {
		secondary, err := s.provider.EnumerateSubtree(ctx, root)
		if err != nil {
			return nil, fmt.Errorf("enumerate subtree %d: %w", root, err)
		}
		for _, id := range secondary {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// fetchBatch fetches one batch's properties, retrying with exponential
// backoff before giving up.
func (s *Scanner) fetchBatch(ctx context.Context, batch []scene.ID) ([]scene.ElementProperties, error) {
	var lastErr error
	for attempt := 0; attempt < s.config.Retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			if s.metrics != nil {
				s.metrics.RecordRetry()
			}
			wait := s.config.Retry.backoff(attempt - 1)
			s.logger.Warn("batch fetch failed, retrying",
				"attempt", attempt,
				"backoff", wait,
				"error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		props, err := s.fetchOnce(ctx, batch)
		if err == nil {
			return props, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch properties after %d attempts: %w", s.config.Retry.MaxAttempts, lastErr)
}

func (s *Scanner) fetchOnce(ctx context.Context, batch []scene.ID) ([]scene.ElementProperties, error) {
	if s.config.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.BatchTimeout)
		defer cancel()
	}
	return s.provider.BulkProperties(ctx, batch, s.config.PropertyFilter)
}

// mergeBatch classifies every element of one fetched batch and merges the
// domain entities into the store. Elements with missing property bags are
// skipped and counted; the scan continues.
func (s *Scanner) mergeBatch(props []scene.ElementProperties, stats *Stats) (classified, skipped int) {
	for _, elem := range props {
		if len(elem.Properties) == 0 {
			skipped++
			continue
		}
		attrs, ok := s.classifier.Classify(elem.Properties)
		if !ok {
			continue
		}
		s.store.Merge(elem.ID, attrs)
		classified++
		for _, dim := range classify.Dimensions() {
			if attrs.DimensionValue(dim) != "" {
				stats.PerDimension[dim]++
			}
		}
	}
	stats.Classified += classified
	stats.Skipped += skipped
	return classified, skipped
}
