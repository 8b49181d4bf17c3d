// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

// Package statsd mirrors the library's internal Statistics counters out to
// a statsd-compatible backend, the same self-observability channel the
// teacher exposes directly in its own internal package.
package statsd

import (
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/nexustrace/nexustrace-go/internal/log"
	"github.com/nexustrace/nexustrace-go/internal/pipeline"
)

// ClientIface is the subset of *statsd.Client this package depends on,
// narrowed so tests can substitute a recording fake without standing up a
// real UDP socket.
type ClientIface interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
	Close() error
}

// Reporter periodically emits a Statistics snapshot as statsd gauges. It
// reports deltas for monotonic counters as Count and absolute levels (like
// max queue depth) as Gauge.
type Reporter struct {
	client ClientIface
	stats  *pipeline.Statistics
	tags   []string
	prefix string

	last pipeline.Snapshot
}

// NewReporter dials a statsd client at addr (e.g. "127.0.0.1:8125") with
// the given metric name prefix and constant tags.
func NewReporter(addr, prefix string, tags []string) (*Reporter, error) {
	c, err := statsd.New(addr, statsd.WithNamespace(prefix))
	if err != nil {
		return nil, err
	}
	return &Reporter{client: c, prefix: prefix, tags: tags}, nil
}

// NewReporterWithClient builds a Reporter around an already-constructed
// client, primarily for tests.
func NewReporterWithClient(c ClientIface, stats *pipeline.Statistics, tags []string) *Reporter {
	return &Reporter{client: c, stats: stats, tags: tags}
}

// Attach binds the Reporter to the Statistics instance it reports on.
func (r *Reporter) Attach(stats *pipeline.Statistics) { r.stats = stats }

// ReportOnce emits one snapshot's worth of metrics.
func (r *Reporter) ReportOnce() {
	if r.stats == nil {
		return
	}
	snap := r.stats.Snapshot()
	r.countDelta("activities_created", snap.ActivitiesCreated, r.last.ActivitiesCreated)
	r.countDelta("activities_completed", snap.ActivitiesCompleted, r.last.ActivitiesCompleted)
	r.countDelta("items_enqueued", snap.ItemsEnqueued, r.last.ItemsEnqueued)
	r.countDelta("items_processed", snap.ItemsProcessed, r.last.ItemsProcessed)
	r.countDelta("items_dropped", snap.ItemsDropped, r.last.ItemsDropped)
	r.countDelta("restarts", snap.Restarts, r.last.Restarts)
	r.countDelta("exceptions_tracked", snap.ExceptionsTracked, r.last.ExceptionsTracked)
	r.countDelta("circuit_opens", snap.CircuitOpens, r.last.CircuitOpens)
	r.gauge("max_queue_depth", float64(snap.MaxQueueDepth))
	r.last = snap
}

func (r *Reporter) countDelta(name string, current, previous int64) {
	delta := current - previous
	if delta == 0 {
		return
	}
	if err := r.client.Count(name, delta, r.tags, 1); err != nil {
		log.Debug("nexustrace: statsd count %s failed: %v", name, err)
	}
}

func (r *Reporter) gauge(name string, value float64) {
	if err := r.client.Gauge(name, value, r.tags, 1); err != nil {
		log.Debug("nexustrace: statsd gauge %s failed: %v", name, err)
	}
}

// Run calls ReportOnce every interval until stop is closed (then closes the
// client), matching the
// background ticking pattern used throughout the ambient stack's
// supervised goroutines.
func (r *Reporter) Run(stop <-chan struct{}, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			_ = r.client.Close()
			return
		case <-t.C:
			r.ReportOnce()
		}
	}
}
