// Package publish delivers scan and mapping events to the visualization
// collaborator over NATS.
package publish

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sitelens/sitelens/mapping"
	"github.com/sitelens/sitelens/scan"
)

// Subject suffixes under the configured prefix.
const (
	SubjectScanProgress = "scan.progress"
	SubjectScanComplete = "scan.complete"
	SubjectCoverage     = "mapping.coverage"
)

// ProgressEvent reports one merged batch.
type ProgressEvent struct {
	RunID     string    `json:"run_id"`
	Percent   float64   `json:"percent"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanEvent reports a completed scan.
type ScanEvent struct {
	RunID     string      `json:"run_id"`
	Stats     *scan.Stats `json:"stats"`
	Timestamp time.Time   `json:"timestamp"`
}

// CoverageEvent reports join coverage after a dataset upload.
type CoverageEvent struct {
	RunID     string        `json:"run_id"`
	Stats     mapping.Stats `json:"stats"`
	Timestamp time.Time     `json:"timestamp"`
}

// Publisher publishes engine events. A nil Publisher, or one without a
// connection, degrades gracefully: every publish becomes a no-op.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

// New creates a Publisher over an existing connection. nc may be nil.
func New(nc *nats.Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = "sitelens"
	}
	return &Publisher{nc: nc, prefix: prefix}
}

// Connect dials NATS and returns a Publisher. An empty URL returns a
// disabled Publisher rather than an error.
func Connect(url, prefix string) (*Publisher, error) {
	if url == "" {
		return New(nil, prefix), nil
	}
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return New(nc, prefix), nil
}

// Close drains the underlying connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}

// ScanProgress publishes one batch progress update.
func (p *Publisher) ScanProgress(runID string, percent float64, message string) error {
	return p.publish(SubjectScanProgress, ProgressEvent{
		RunID:     runID,
		Percent:   percent,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// ScanComplete publishes final scan statistics.
func (p *Publisher) ScanComplete(runID string, stats *scan.Stats) error {
	return p.publish(SubjectScanComplete, ScanEvent{
		RunID:     runID,
		Stats:     stats,
		Timestamp: time.Now(),
	})
}

// Coverage publishes join coverage statistics.
func (p *Publisher) Coverage(runID string, stats mapping.Stats) error {
	return p.publish(SubjectCoverage, CoverageEvent{
		RunID:     runID,
		Stats:     stats,
		Timestamp: time.Now(),
	})
}

func (p *Publisher) publish(suffix string, event any) error {
	if p == nil || p.nc == nil {
		return nil // publishing disabled
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", suffix, err)
	}
	if err := p.nc.Publish(p.prefix+"."+suffix, data); err != nil {
		return fmt.Errorf("publish %s: %w", suffix, err)
	}
	return nil
}
