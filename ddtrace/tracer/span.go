// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package tracer

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/nexustrace/nexustrace-go/ddtrace/ext"
	"github.com/nexustrace/nexustrace-go/internal/exceptions"
)

// Event is one named, timestamped occurrence recorded on a span while it is
// open.
type Event struct {
	Name       string
	Time       time.Time
	Attributes map[string]interface{}
}

// Span is the data object representing one timed operation: immutable
// identity, mutable attributes/events/status until Finish is called exactly
// once.
type Span struct {
	mu sync.Mutex

	name     string
	kind     ext.SpanKind
	start    time.Time
	end      time.Time
	finished bool

	traceID  TraceID
	spanID   SpanID
	parentID SpanID
	sampled  bool
	recorded bool // false when the sampler said Drop

	status     ext.StatusCode
	statusDesc string

	attributes map[string]interface{}
	events     []Event
	links      []SpanContext

	parent *Span // in-process parent, nil for roots
	tracer *Tracer
}

// Name returns the operation name the span was started with.
func (s *Span) Name() string { return s.name }

// Kind returns the span's role (internal/client/server/producer/consumer).
func (s *Span) Kind() ext.SpanKind { return s.kind }

// SpanContext returns the immutable propagation unit for this span. It is
// valid before and after Finish.
func (s *Span) SpanContext() SpanContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SpanContext{
		TraceID:      s.traceID,
		SpanID:       s.spanID,
		ParentSpanID: s.parentID,
		Sampled:      s.sampled,
	}
}

// TraceID returns the id of the trace this span belongs to.
func (s *Span) TraceID() TraceID { return s.traceID }

// SpanID returns this span's own id.
func (s *Span) SpanID() SpanID { return s.spanID }

// Sampled reports the sampled bit carried by this span's context.
func (s *Span) Sampled() bool { return s.sampled }

// Recorded reports whether the sampler decided to keep this span at all
// (RecordOnly or RecordAndExport); a Drop decision still lets the span
// exist for parent/child attribute propagation but Recorded is false and
// the span is never enqueued.
func (s *Span) Recorded() bool { return s.recorded }

// WithTag appends or overwrites an attribute. key must be non-empty;
// empty keys are silently ignored rather than panicking,
// consistent with section 7's "the telemetry library must not make the
// host fail."
func (s *Span) WithTag(key string, value interface{}) *Span {
	if key == "" {
		s.tracer.stats.NoteInternalError()
		return s
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return s
	}
	if s.attributes == nil {
		s.attributes = make(map[string]interface{}, 1)
	}
	s.attributes[key] = value
	return s
}

// Tag returns the value most recently set for key, and whether it exists.
func (s *Span) Tag(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attributes[key]
	return v, ok
}

// RecordEvent appends an event with the current wall-clock time. Events are
// ordered by call order, which is also monotonic wall-clock order since a
// Span is only mutated by its single owning goroutine.
func (s *Span) RecordEvent(name string, attributes map[string]interface{}) *Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return s
	}
	s.events = append(s.events, Event{Name: name, Time: s.tracer.now(), Attributes: attributes})
	return s
}

// RecordException appends an "exception" event with the attributes named
// in the ext package (exception.type, exception.message, exception.stacktrace),
// and sets the span's status to Error unless a terminal status is already
// set. It never panics regardless of what err is.
func (s *Span) RecordException(err error) *Span {
	if err == nil {
		return s
	}
	attrs := map[string]interface{}{
		ext.ExceptionType:    fmt.Sprintf("%T", err),
		ext.ExceptionMessage: err.Error(),
	}
	// Only attach a stack trace when we can plausibly say one exists: Go
	// errors don't carry frames by default, so this only fires for callers
	// that wrap with a stack-capturing error type. Otherwise this package
	// forbids emitting a stacktrace attribute at all.
	var topFrame string
	if st, ok := err.(interface{ StackTrace() string }); ok {
		if trace := st.StackTrace(); trace != "" {
			attrs[ext.ExceptionStacktrace] = trace
			topFrame = exceptions.TopFrame(trace)
		}
	}
	if topFrame == "" {
		// err carries no stack of its own: fall back to the function that
		// called RecordException itself, which at least varies by call
		// site the way a captured stack's top frame would.
		topFrame = callerFuncName(2)
	}
	s.RecordEvent("exception", attrs)
	if s.tracer != nil && s.tracer.exceptions != nil {
		s.tracer.exceptions.Record(fmt.Sprintf("%T", err), topFrame, err)
		s.tracer.stats.NoteExceptionTracked()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == ext.StatusUnset {
		s.status = ext.StatusError
		s.statusDesc = err.Error()
	}
	return s
}

// Succeed sets the terminal status to Ok. The first of Succeed/Fail to run
// wins; later calls are no-ops.
func (s *Span) Succeed() *Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == ext.StatusUnset {
		s.status = ext.StatusOK
	}
	return s
}

// Fail sets the terminal status to Error with err's message as description.
// As with Succeed, only the first call has effect.
func (s *Span) Fail(err error) *Span {
	if err == nil {
		return s.Succeed()
	}
	s.mu.Lock()
	if s.status == ext.StatusUnset {
		s.status = ext.StatusError
		s.statusDesc = err.Error()
	}
	s.mu.Unlock()
	return s
}

// Status returns the span's current terminal status and description.
func (s *Span) Status() (ext.StatusCode, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.statusDesc
}

// Duration returns End-Start. It is only meaningful after Finish.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.end.IsZero() {
		return 0
	}
	return s.end.Sub(s.start)
}

// Finish records the end time, freezes the span and hands it to the
// tracer's dispatch pipeline. Calling Finish more than once is a no-op
//. After Finish returns,
// ownership of the span's data has moved to the background pipeline and
// further mutation from the producer goroutine is undefined, per spec
// section 4.3's Ordering rule -- callers must not retain writable
// references across Finish.
func (s *Span) Finish() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.end = s.tracer.now()
	if s.status == ext.StatusUnset {
		s.status = ext.StatusOK
	}
	recorded := s.recorded
	s.mu.Unlock()

	s.tracer.openSpans.Delete(s)
	s.tracer.stats.NoteActivityCompleted()
	if recorded {
		s.tracer.dispatch(s)
	}
}

// snapshot copies the span's finished state into an immutable FinishedSpan
// for the dispatcher. Called once, from Finish, after the span is already
// marked finished so no further mutation races with the copy.
func (s *Span) snapshot() *FinishedSpan {
	s.mu.Lock()
	defer s.mu.Unlock()
	attrs := make(map[string]interface{}, len(s.attributes))
	for k, v := range s.attributes {
		attrs[k] = v
	}
	events := make([]Event, len(s.events))
	copy(events, s.events)
	links := make([]SpanContext, len(s.links))
	copy(links, s.links)
	return &FinishedSpan{
		Name:       s.name,
		Kind:       s.kind,
		Start:      s.start,
		End:        s.end,
		Status:     s.status,
		StatusDesc: s.statusDesc,
		TraceID:    s.traceID,
		SpanID:     s.spanID,
		ParentID:   s.parentID,
		Attributes: attrs,
		Events:     events,
		Links:      links,
	}
}

// snapshotStackTrace is a convenience for collaborators that want a
// best-effort Go stack trace attached to a RecordException call (by
// implementing the StackTrace() string interface RecordException looks
// for); it is not invoked automatically since Go has no reliable way to
// tell from an error value alone whether it was actually thrown versus
// merely constructed.
func snapshotStackTrace() string {
	return string(debug.Stack())
}

// callerFuncName returns the qualified name of the function skip frames up
// the call stack from its own caller (skip=1 is callerFuncName's own
// caller, skip=2 that caller's caller, and so on), or "" if the stack
// doesn't go that deep.
func callerFuncName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return ""
	}
	return fn.Name()
}
