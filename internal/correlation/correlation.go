// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

// Package correlation implements an ambient correlation frame. Go has no
// built-in async-local storage, so a flow id rides along context.Context
// -- the mechanism every blocking Go API already threads through
// suspension points -- and keys a process-wide frame map. A call site
// without the context returned by Begin cannot see the frame.
package correlation

import (
	"context"
	"encoding/hex"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

type frame struct {
	explicit string
	hasValue bool
}

type ctxKey struct{}

// Guard restores the previous frame when released. It must be released
// exactly once, typically via defer, mirroring the scoped-acquisition
// pattern used for Span ownership.
type Guard struct {
	flowID   uint64
	previous frame
	hadPrev  bool
}

// Release pops the frame pushed by the matching Begin call, restoring
// whatever frame -- explicit or absent -- preceded it. Nesting is LIFO:
// releasing out of order still only ever restores this guard's own
// "previous" snapshot, so callers that release in LIFO order (the only
// supported order) see the exact stack-before-push state.
func (g *Guard) Release() {
	if g == nil {
		return
	}
	store.pop(g.flowID, g.previous, g.hadPrev)
}

// goroutineStore holds the frames, keyed by the flow id that Begin mints
// and stores in the returned context, rather than the raw runtime goroutine
// id (which Go does not expose as API); this keeps the lifetime of an
// entry tied to explicit Begin/Release pairs instead of goroutine exit,
// which nexustrace cannot observe.
type goroutineStore struct {
	mu     sync.RWMutex
	frames map[uint64]frame
	nextID uint64
}

var store = &goroutineStore{frames: make(map[uint64]frame)}

func (s *goroutineStore) get(id uint64) (frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.frames[id]
	return f, ok
}

func (s *goroutineStore) push(id uint64, f frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[id] = f
}

func (s *goroutineStore) pop(id uint64, previous frame, hadPrev bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hadPrev {
		s.frames[id] = previous
	} else {
		delete(s.frames, id)
		generated.Delete(id)
	}
}

func (s *goroutineStore) newFlowID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// flowIDFromContext extracts the flow id threaded in ctx, if any.
func flowIDFromContext(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(ctxKey{}).(uint64)
	return id, ok
}

// Begin pushes value as the explicit correlation id for the returned
// context's flow, and returns a Guard that restores the prior frame. The
// returned context must be threaded by the caller into downstream calls for
// the value to be observable there. A nil ctx is treated as
// context.Background(); the value is then visible only through the
// returned context.
func Begin(ctx context.Context, value string) (context.Context, *Guard) {
	if ctx == nil {
		ctx = context.Background()
	}
	id, ok := flowIDFromContext(ctx)
	if !ok {
		id = store.newFlowID()
		ctx = context.WithValue(ctx, ctxKey{}, id)
	}
	previous, hadPrev := store.get(id)
	store.push(id, frame{explicit: value, hasValue: true})
	return ctx, &Guard{flowID: id, previous: previous, hadPrev: hadPrev}
}

// Clear removes any explicit value for ctx's flow.
func Clear(ctx context.Context) {
	id, ok := flowIDFromContext(ctx)
	if !ok {
		return
	}
	store.mu.Lock()
	delete(store.frames, id)
	store.mu.Unlock()
}

// Raw returns only the explicitly pushed value for ctx's flow, without
// falling back to a span trace id or a generated value the way Current
// does.
func Raw(ctx context.Context) (string, bool) {
	id, ok := flowIDFromContext(ctx)
	if !ok {
		return "", false
	}
	f, ok := store.get(id)
	if !ok || !f.hasValue {
		return "", false
	}
	return f.explicit, true
}

// TraceIDFallback is supplied by the tracer package so correlation can
// derive an id from the current span without importing the tracer (which
// would create an import cycle); it returns ok=false when there is no open
// span for ctx.
type TraceIDFallback func(ctx context.Context) (traceIDHex string, ok bool)

// Current returns, in priority order: an explicit value pushed via Begin;
// the current span's trace id (if fallback is non-nil and reports one); or
// a freshly generated 32-hex id cached for the remainder of ctx's flow.
func Current(ctx context.Context, fallback TraceIDFallback) string {
	if v, ok := Raw(ctx); ok {
		return v
	}
	if fallback != nil {
		if id, ok := fallback(ctx); ok && id != "" {
			return id
		}
	}
	return generatedFor(ctx)
}

// generated caches the synthesized id per flow so repeated observations
// within the same flow (with no explicit value and no span) are stable.
var generated sync.Map // uint64 flow id -> string

func generatedFor(ctx context.Context) string {
	id, ok := flowIDFromContext(ctx)
	if !ok {
		// No flow established at all: generate without caching, there is
		// nothing to key the cache on.
		return newRandomID()
	}
	if v, ok := generated.Load(id); ok {
		return v.(string)
	}
	v := newRandomID()
	actual, _ := generated.LoadOrStore(id, v)
	return actual.(string)
}

// GeneratedHook, when non-nil, is invoked once for every fallback
// correlation id this package actually generates (cache hits in
// generatedFor don't count). It lets a collaborator that owns a
// Statistics instance (the tracer package, wiring
// internal/pipeline.Statistics.NoteCorrelationIDGenerated) observe real
// generation without this package importing anything tracer- or
// pipeline-specific.
var GeneratedHook func()

// newRandomID generates the fallback 32-hex correlation id from a UUIDv4's
// raw bytes reformatted without dashes, rather than a bespoke random-hex
// scheme.
func newRandomID() string {
	if GeneratedHook != nil {
		GeneratedHook()
	}
	id, err := uuid.NewRandom()
	if err != nil {
		// Degrade to a process-unique counter rather than panic: correlation
		// ids are diagnostic, not load-bearing for correctness.
		return strconv.FormatUint(store.newFlowID(), 16)
	}
	return hex.EncodeToString(id[:])
}
