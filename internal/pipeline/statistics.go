// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

// Package pipeline implements a bounded, drop-oldest work queue serviced
// by a single supervised consumer goroutine, plus lock-free Statistics
// counters for self-observability.
package pipeline

import "sync/atomic"

// Statistics exposes the library's self-observability counters as
// wait-free atomics: concurrent producers and consumers mutate via atomic
// add/CAS; snapshots read consistent per-counter but not across counters.
type Statistics struct {
	activitiesCreated       atomic.Int64
	activitiesCompleted     atomic.Int64
	itemsEnqueued           atomic.Int64
	itemsProcessed          atomic.Int64
	itemsDropped            atomic.Int64
	restarts                atomic.Int64
	exceptionsTracked       atomic.Int64
	correlationIDsGenerated atomic.Int64
	maxQueueDepth           atomic.Int64
	internalErrors          atomic.Int64
	circuitOpens            atomic.Int64
}

// Snapshot is a point-in-time, per-counter-consistent read of Statistics.
type Snapshot struct {
	ActivitiesCreated       int64
	ActivitiesCompleted     int64
	ItemsEnqueued           int64
	ItemsProcessed          int64
	ItemsDropped            int64
	Restarts                int64
	ExceptionsTracked       int64
	CorrelationIDsGenerated int64
	MaxQueueDepth           int64
	InternalErrors          int64
	CircuitOpens            int64
}

// Snapshot reads every counter. Each individual field is wait-free and
// consistent; the Snapshot as a whole is not a single atomic transaction
// across fields.
func (s *Statistics) Snapshot() Snapshot {
	return Snapshot{
		ActivitiesCreated:       s.activitiesCreated.Load(),
		ActivitiesCompleted:     s.activitiesCompleted.Load(),
		ItemsEnqueued:           s.itemsEnqueued.Load(),
		ItemsProcessed:          s.itemsProcessed.Load(),
		ItemsDropped:            s.itemsDropped.Load(),
		Restarts:                s.restarts.Load(),
		ExceptionsTracked:       s.exceptionsTracked.Load(),
		CorrelationIDsGenerated: s.correlationIDsGenerated.Load(),
		MaxQueueDepth:           s.maxQueueDepth.Load(),
		InternalErrors:          s.internalErrors.Load(),
		CircuitOpens:            s.circuitOpens.Load(),
	}
}

// Reset zeroes every counter. The only operation allowed to make these
// monotonic counters decrease.
func (s *Statistics) Reset() {
	s.activitiesCreated.Store(0)
	s.activitiesCompleted.Store(0)
	s.itemsEnqueued.Store(0)
	s.itemsProcessed.Store(0)
	s.itemsDropped.Store(0)
	s.restarts.Store(0)
	s.exceptionsTracked.Store(0)
	s.correlationIDsGenerated.Store(0)
	s.maxQueueDepth.Store(0)
	s.internalErrors.Store(0)
	s.circuitOpens.Store(0)
}

// ActivitiesCreated returns the number of spans/operations started.
func (s *Statistics) ActivitiesCreated() int64 { return s.activitiesCreated.Load() }

// ActivitiesCompleted returns the number of spans/operations finished.
func (s *Statistics) ActivitiesCompleted() int64 { return s.activitiesCompleted.Load() }

// NoteActivityCreated increments activities_created. Exported for the
// tracer package, which owns Span lifecycle but shares this Statistics
// instance with the pipeline it feeds.
func (s *Statistics) NoteActivityCreated() { s.activitiesCreated.Add(1) }

// NoteActivityCompleted increments activities_completed. Exported for the
// tracer package to call from Span.Finish.
func (s *Statistics) NoteActivityCompleted() { s.activitiesCompleted.Add(1) }

// NoteCorrelationIDGenerated increments correlation_ids_generated.
func (s *Statistics) NoteCorrelationIDGenerated() { s.correlationIDsGenerated.Add(1) }

// NoteExceptionTracked increments exceptions_tracked.
func (s *Statistics) NoteExceptionTracked() { s.exceptionsTracked.Add(1) }

// NoteInternalError increments internal_errors, for misuse the library
// swallows rather than propagates (Span.WithTag with an empty key).
func (s *Statistics) NoteInternalError() { s.internalErrors.Add(1) }

// NoteMaxQueueDepth records depth as the new high-water mark if it exceeds
// the previous one. Safe for concurrent use from the single producer-side
// caller path (Worker.TryEnqueue).
func (s *Statistics) NoteMaxQueueDepth(depth int64) {
	for {
		cur := s.maxQueueDepth.Load()
		if depth <= cur {
			return
		}
		if s.maxQueueDepth.CompareAndSwap(cur, depth) {
			return
		}
	}
}

// NoteItemEnqueued increments items_enqueued.
func (s *Statistics) NoteItemEnqueued() { s.itemsEnqueued.Add(1) }

// NoteItemDropped increments items_dropped.
func (s *Statistics) NoteItemDropped() { s.itemsDropped.Add(1) }

// NoteItemProcessed increments items_processed.
func (s *Statistics) NoteItemProcessed() { s.itemsProcessed.Add(1) }

// NoteRestart increments restarts.
func (s *Statistics) NoteRestart() { s.restarts.Add(1) }

// NoteCircuitOpen increments circuit_opens.
func (s *Statistics) NoteCircuitOpen() { s.circuitOpens.Add(1) }
