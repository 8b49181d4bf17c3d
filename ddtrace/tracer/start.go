// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package tracer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nexustrace/nexustrace-go/internal/correlation"
	"github.com/nexustrace/nexustrace-go/internal/lifecycle"
	"github.com/nexustrace/nexustrace-go/internal/log"
)

var startMu sync.Mutex
var runCancel context.CancelFunc
var runGroup *errgroup.Group

func init() {
	// Wired once, at load time, rather than per-Tracer-construction: this
	// always reports against whichever Tracer is current, matching the
	// other package-level functions (CorrelationID, StartSpanFromContext)
	// that already route through GetGlobalTracer instead of a captured
	// instance.
	correlation.GeneratedHook = func() {
		GetGlobalTracer().Stats().NoteCorrelationIDGenerated()
	}
}

// Start constructs a Tracer from opts, installs it as the global tracer,
// and starts its background pipeline worker. It is the package-level
// convenience entry point a host calls once at process startup.
func Start(opts ...TracerOption) {
	startMu.Lock()
	defer startMu.Unlock()

	t := NewTracer(opts...)
	SetGlobalTracer(t)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return t.Worker().Run(gctx) })
	runCancel = cancel
	runGroup = g
}

// Stop force-closes every span still open, closes the pipeline worker to
// new items, flushes whatever is left in the queue with a 5-second bound,
// then cancels the running worker and restores the no-op global tracer.
// Safe to call even if Start was never called.
func Stop() {
	startMu.Lock()
	cancel := runCancel
	g := runGroup
	runCancel = nil
	runGroup = nil
	startMu.Unlock()

	t := GetGlobalTracer()
	t.ForceCloseOpenSpans()
	t.Worker().Close()
	t.Worker().Flush(context.Background(), 5*time.Second)

	if cancel != nil {
		cancel()
	}
	if g != nil {
		_ = g.Wait()
	}
	SetGlobalTracer(nil)
}

// ShutdownHook adapts the package-level tracer lifecycle to
// internal/lifecycle's host-agnostic Hook interface, so a LifetimeManager
// can drain the tracer's pipeline alongside other managed resources
// instead of the host calling Stop directly. Before draining the queue it
// force-closes every span still open, with status Error("process
// terminating"), so in-flight work is reported rather than dropped.
func ShutdownHook() lifecycle.Hook {
	return lifecycle.HookFunc(func(ctx context.Context, reason lifecycle.Reason) error {
		t := GetGlobalTracer()
		if n := t.ForceCloseOpenSpans(); n > 0 {
			log.Debug("nexustrace: force-closed %d span(s) still open at shutdown", n)
		}
		t.Worker().Close()
		res := t.Worker().Flush(ctx, 5*time.Second)
		if res.Remaining > 0 {
			return lifecycle.ErrIncompleteFlush
		}
		return nil
	})
}

// StartSpanFromContext is a convenience wrapping GetGlobalTracer().StartSpan,
// matching the shape most call sites actually want.
func StartSpanFromContext(ctx context.Context, name string, opts ...StartSpanOption) (*Span, context.Context) {
	return GetGlobalTracer().StartSpan(ctx, name, opts...)
}

// correlationFallback derives a correlation id from the span open in ctx,
// wiring internal/correlation.TraceIDFallback without an import cycle
// (correlation must not import tracer).
func correlationFallback(ctx context.Context) (string, bool) {
	s, ok := SpanFromContext(ctx)
	if !ok {
		return "", false
	}
	return s.TraceID().String(), true
}

// CorrelationID returns the ambient correlation identifier for ctx,
// falling back to the current span's trace id and finally to a generated
// value
func CorrelationID(ctx context.Context) string {
	return correlation.Current(ctx, correlationFallback)
}
