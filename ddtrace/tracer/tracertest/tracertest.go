// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

// Package tracertest provides an in-memory tracer.Dispatcher for host unit
// tests, built around an explicit Dispatcher collaborator instead of a
// global transport.
package tracertest

import (
	"context"
	"sync"

	"github.com/nexustrace/nexustrace-go/ddtrace/tracer"
)

// Recorder is a tracer.Dispatcher that stores every finished, recorded span
// it receives, for assertions in host tests.
type Recorder struct {
	mu    sync.Mutex
	spans []*tracer.FinishedSpan
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Dispatch implements tracer.Dispatcher.
func (r *Recorder) Dispatch(_ context.Context, s *tracer.FinishedSpan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = append(r.spans, s)
	return nil
}

// FinishedSpans returns a snapshot of every span recorded so far, in
// Finish order.
func (r *Recorder) FinishedSpans() []*tracer.FinishedSpan {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*tracer.FinishedSpan, len(r.spans))
	copy(out, r.spans)
	return out
}

// Reset clears every recorded span.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = nil
}

// NewTracer builds a *tracer.Tracer wired to a fresh Recorder and starts its
// pipeline worker against ctx, returning both so a test can start spans and
// then assert on the Recorder. Callers should cancel ctx at the end of the
// test to stop the worker goroutine; Close and Flush do not stop it.
func NewTracer(ctx context.Context, opts ...tracer.TracerOption) (*tracer.Tracer, *Recorder) {
	rec := NewRecorder()
	allOpts := append([]tracer.TracerOption{tracer.WithDispatcher(rec)}, opts...)
	tr := tracer.NewTracer(allOpts...)
	go func() { _ = tr.Worker().Run(ctx) }()
	return tr, rec
}
