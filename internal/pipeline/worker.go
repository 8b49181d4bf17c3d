// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// WorkItem is one unit handed to the background pipeline: an effect
// callback plus an operation tag and enqueue timestamp. The worker itself
// only runs Effect; the tag and timestamp are carried for collaborators
// such as the onDrop callback.
type WorkItem struct {
	OperationType string
	Enqueued      time.Time
	Effect        func(context.Context) error
}

// FlushResult reports the outcome of a bounded drain.
type FlushResult struct {
	Flushed   int
	Remaining int
	TimedOut  bool
	Duration  time.Duration
}

// circuitState tracks the open/half-open/closed lifecycle of the worker's
// breaker: a consumer that keeps failing stops trying on every single item
// and instead backs off rather than hammering a downstream that is
// already down.
type circuitState int32

const (
	circuitClosed circuitState = iota
	circuitOpen
)

// Worker is the single supervised consumer of a bounded, drop-oldest
// queue. Producers call TryEnqueue from any goroutine; exactly one
// goroutine, started by Run, drains the queue and invokes each item's
// Effect.
type Worker struct {
	capacity int
	stats    *Statistics

	// breakerThreshold consecutive Effect failures trip the breaker;
	// breakerCooldown is how long the breaker stays open before items are
	// accepted and pulled again.
	breakerThreshold int
	breakerCooldown  time.Duration
	maxBackoff       time.Duration

	mu        sync.Mutex
	items     []WorkItem
	closed    bool
	circuit   circuitState
	openUntil time.Time
	notify    chan struct{}
	onDrop    func(WorkItem)
	onError   func(error)
}

// NewWorker constructs a Worker with the given bounded capacity. onDrop and
// onError may be nil.
func NewWorker(capacity int, stats *Statistics, onDrop func(WorkItem), onError func(error)) *Worker {
	if capacity < 1 {
		capacity = 1
	}
	return &Worker{
		capacity:         capacity,
		stats:            stats,
		breakerThreshold: 5,
		breakerCooldown:  time.Second,
		maxBackoff:       30 * time.Second,
		notify:           make(chan struct{}, 1),
		onDrop:           onDrop,
		onError:          onError,
	}
}

// TryEnqueue appends item, dropping the oldest queued item instead of
// rejecting item itself when the queue is already at capacity. It reports
// false, without enqueueing, when the worker is closed or the circuit
// breaker is open — a tripped breaker stops pulling new work until its
// cooldown expires rather than queueing (and drop-oldest'ing) behind a
// downstream that is already failing. Safe for concurrent use by any
// number of producer goroutines.
func (w *Worker) TryEnqueue(item WorkItem) bool {
	w.mu.Lock()
	if w.closed || w.circuitOpenLocked(time.Now()) {
		w.mu.Unlock()
		w.stats.NoteItemDropped()
		if w.onDrop != nil {
			w.onDrop(item)
		}
		return false
	}
	var dropped *WorkItem
	if len(w.items) >= w.capacity {
		d := w.items[0]
		dropped = &d
		w.items = w.items[1:]
	}
	w.items = append(w.items, item)
	depth := int64(len(w.items))
	w.mu.Unlock()

	w.stats.NoteItemEnqueued()
	w.stats.NoteMaxQueueDepth(depth)
	if dropped != nil {
		w.stats.NoteItemDropped()
		if w.onDrop != nil {
			w.onDrop(*dropped)
		}
	}
	select {
	case w.notify <- struct{}{}:
	default:
	}
	return true
}

// circuitOpenLocked reports whether the breaker is currently open, closing
// it first if its cooldown has elapsed. Callers must hold w.mu.
func (w *Worker) circuitOpenLocked(now time.Time) bool {
	if w.circuit != circuitOpen {
		return false
	}
	if now.Before(w.openUntil) {
		return true
	}
	w.circuit = circuitClosed
	return false
}

// tripBreaker opens the circuit for breakerCooldown, starting at now.
func (w *Worker) tripBreaker(now time.Time) {
	w.mu.Lock()
	w.circuit = circuitOpen
	w.openUntil = now.Add(w.breakerCooldown)
	w.mu.Unlock()
	w.stats.NoteCircuitOpen()
}

func (w *Worker) dequeueAll() []WorkItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	items := w.items
	w.items = nil
	return items
}

func (w *Worker) depth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// Run drains the queue until ctx is canceled, restarting the consumption
// loop with exponential backoff if it panics (a tripped breaker pauses
// the loop but does not restart it). Run blocks until ctx is done and the
// loop has exited; callers typically run it in its own goroutine via an
// errgroup (as tracer.Start and RunSupervised do).
func (w *Worker) Run(ctx context.Context) error {
	backoff := 100 * time.Millisecond
	for {
		err := w.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			// runOnce only returns nil error when ctx is done; reaching
			// here without ctx.Err set means a clean internal stop was
			// requested, which currently never happens, but handle it
			// defensively rather than spinning.
			return nil
		}
		w.stats.NoteRestart()
		if w.onError != nil {
			w.onError(err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > w.maxBackoff {
			backoff = w.maxBackoff
		}
	}
}

// runOnce is the consumption loop body, isolated so Run can restart it after
// a panic without unwinding past the supervisor.
func (w *Worker) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()

	consecutiveFailures := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.notify:
		case <-time.After(200 * time.Millisecond):
			// Periodic wake to notice breaker cooldown expiry and closed
			// items that arrived between notify drains.
		}

		w.mu.Lock()
		open := w.circuitOpenLocked(time.Now())
		w.mu.Unlock()
		if open {
			continue
		}

		items := w.dequeueAll()
		for _, item := range items {
			if ctx.Err() != nil {
				return nil
			}
			effErr := w.invoke(ctx, item)
			if effErr != nil {
				consecutiveFailures++
				if w.onError != nil {
					w.onError(effErr)
				}
				if consecutiveFailures >= w.breakerThreshold {
					w.tripBreaker(time.Now())
					consecutiveFailures = 0
					break
				}
				continue
			}
			consecutiveFailures = 0
			w.stats.NoteItemProcessed()
		}
	}
}

func (w *Worker) invoke(ctx context.Context, item WorkItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	if item.Effect == nil {
		return nil
	}
	return item.Effect(ctx)
}

// Flush drains whatever is currently queued, invoking each item's Effect
// directly (bypassing the notify channel) up to deadline, and reports how
// much was flushed versus left behind. A deadline of zero or less expires
// before the first item runs. It does not stop the background Run loop;
// if Run is still active it keeps taking items from the same queue while
// Flush runs.
func (w *Worker) Flush(ctx context.Context, deadline time.Duration) FlushResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	items := w.dequeueAll()
	flushed := 0
	for i, item := range items {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.items = append(items[i:], w.items...)
			w.mu.Unlock()
			return FlushResult{Flushed: flushed, Remaining: len(items) - i + w.depth(), TimedOut: true, Duration: time.Since(start)}
		default:
		}
		if err := w.invoke(ctx, item); err != nil {
			if w.onError != nil {
				w.onError(err)
			}
			continue
		}
		w.stats.NoteItemProcessed()
		flushed++
	}
	return FlushResult{Flushed: flushed, Remaining: w.depth(), Duration: time.Since(start)}
}

// Close marks the worker closed: further TryEnqueue calls are dropped
// immediately rather than queued. Idempotent.
func (w *Worker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

type panicError struct{ value interface{} }

func (p panicError) Error() string {
	return "pipeline: recovered panic in work item"
}

// RunSupervised starts w.Run under an errgroup bound to ctx, returning the
// group so callers can Wait for a clean stop after canceling ctx.
func RunSupervised(ctx context.Context, w *Worker) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	return g, gctx
}
