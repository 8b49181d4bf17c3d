// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package tracer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nexustrace/nexustrace-go/ddtrace/ext"
	"github.com/nexustrace/nexustrace-go/internal/exceptions"
	"github.com/nexustrace/nexustrace-go/internal/log"
	"github.com/nexustrace/nexustrace-go/internal/pipeline"
)

type ctxSpanKey struct{}

// StartSpanOption configures a single StartSpan call.
type StartSpanOption func(*startSpanConfig)

type startSpanConfig struct {
	kind   ext.SpanKind
	parent *Span
	links  []SpanContext
	start  time.Time
}

// WithSpanKind sets the span's kind; the default is Internal.
func WithSpanKind(kind ext.SpanKind) StartSpanOption {
	return func(c *startSpanConfig) { c.kind = kind }
}

// ChildOf overrides parent selection: instead of reading the current span
// out of context, the new span is a child of parent. Passing a nil parent
// forces a new root, same as having no current span.
func ChildOf(parent *Span) StartSpanOption {
	return func(c *startSpanConfig) { c.parent = parent }
}

// WithLink attaches a causal link to another trace, without establishing a
// parent/child relationship.
func WithLink(sc SpanContext) StartSpanOption {
	return func(c *startSpanConfig) { c.links = append(c.links, sc) }
}

// WithStartTime overrides the span's start time; used by tests and by
// collaborators reconstructing spans for already-elapsed work.
func WithStartTime(t time.Time) StartSpanOption {
	return func(c *startSpanConfig) { c.start = t }
}

// Dispatcher is the collaborator a concrete exporter implements to receive
// finished, recorded spans from the background pipeline. Export must not
// block the caller's own goroutine tree indefinitely; the pipeline already
// runs it off the producer's call stack.
type Dispatcher interface {
	Dispatch(ctx context.Context, s *FinishedSpan) error
}

// DispatcherFunc adapts a plain function to Dispatcher.
type DispatcherFunc func(ctx context.Context, s *FinishedSpan) error

func (f DispatcherFunc) Dispatch(ctx context.Context, s *FinishedSpan) error { return f(ctx, s) }

// FinishedSpan is the immutable view of a Span handed to a Dispatcher; it
// is a snapshot because a Span must never be mutated after Finish
// transfers ownership to the pipeline.
type FinishedSpan struct {
	Name       string
	Kind       ext.SpanKind
	Start      time.Time
	End        time.Time
	Status     ext.StatusCode
	StatusDesc string
	TraceID    TraceID
	SpanID     SpanID
	ParentID   SpanID
	Attributes map[string]interface{}
	Events     []Event
	Links      []SpanContext
}

// Tracer starts spans, performs parent selection and sampling, and feeds
// finished spans to the background delivery pipeline.
type Tracer struct {
	sampler    Sampler
	dispatcher Dispatcher
	worker     *pipeline.Worker
	stats      *pipeline.Statistics
	exceptions *exceptions.Aggregator
	nowFunc    func() time.Time

	// openSpans tracks every started-but-not-yet-finished Span so a
	// coordinated shutdown can force-close whatever is still open instead
	// of silently dropping it. Keyed by *Span; the value carries no
	// information.
	openSpans sync.Map
}

// TracerOption configures a Tracer at construction.
type TracerOption func(*Tracer)

// WithSampler installs a non-default Sampler; the default is AlwaysOnSampler.
func WithSampler(s Sampler) TracerOption {
	return func(t *Tracer) { t.sampler = s }
}

// WithDispatcher installs the collaborator that receives recorded,
// finished spans. Without one, recorded spans are still dequeued and
// processed (advancing statistics) but have nothing to export to.
func WithDispatcher(d Dispatcher) TracerOption {
	return func(t *Tracer) { t.dispatcher = d }
}

// WithQueueCapacity bounds the pipeline's queue. Default is 2048.
func WithQueueCapacity(n int) TracerOption {
	return func(t *Tracer) {
		t.worker = pipeline.NewWorker(n, t.stats, nil, func(err error) {
			log.Debug("nexustrace: pipeline item failed: %v", err)
		})
	}
}

// WithExceptionAggregator replaces the collaborator that fingerprints and
// counts exceptions recorded on spans; NewTracer installs a fresh
// exceptions.NewAggregator() by default. Passing nil disables aggregation:
// RecordException still sets span status and appends the event.
func WithExceptionAggregator(a *exceptions.Aggregator) TracerOption {
	return func(t *Tracer) { t.exceptions = a }
}

// NewTracer constructs a Tracer ready to start spans. Callers must run
// t.Worker().Run(ctx) (the package-level Start does this for the global
// tracer) for enqueued spans to ever actually reach the dispatcher.
func NewTracer(opts ...TracerOption) *Tracer {
	stats := &pipeline.Statistics{}
	t := &Tracer{
		sampler:    AlwaysOnSampler{},
		stats:      stats,
		exceptions: exceptions.NewAggregator(),
		nowFunc:    time.Now,
	}
	t.worker = pipeline.NewWorker(2048, stats, nil, func(err error) {
		log.Debug("nexustrace: pipeline item failed: %v", err)
	})
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Worker returns the Tracer's background pipeline worker, so a
// LifetimeManager (or a test) can drive its Run/Flush lifecycle.
func (t *Tracer) Worker() *pipeline.Worker { return t.worker }

// Stats returns the Tracer's statistics counters.
func (t *Tracer) Stats() *pipeline.Statistics { return t.stats }

// Exceptions returns the Tracer's exception aggregator: the default one
// NewTracer creates, or the one set via WithExceptionAggregator (nil if
// that option was given nil).
func (t *Tracer) Exceptions() *exceptions.Aggregator { return t.exceptions }

func (t *Tracer) now() time.Time { return t.nowFunc() }

// SpanFromContext returns the currently open span stored in ctx, if any.
func SpanFromContext(ctx context.Context) (*Span, bool) {
	s, ok := ctx.Value(ctxSpanKey{}).(*Span)
	return s, ok
}

// ContextWithSpan returns a copy of ctx carrying s as the current span.
func ContextWithSpan(ctx context.Context, s *Span) context.Context {
	return context.WithValue(ctx, ctxSpanKey{}, s)
}

// StartSpan opens a new span named name, selecting its parent from ctx
// (unless overridden by ChildOf) and consulting the sampler for a Decision
//. It returns the new
// span and a context carrying it, so the caller can thread that context to
// children and to correlation.Current.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...StartSpanOption) (*Span, context.Context) {
	cfg := startSpanConfig{kind: ext.KindInternal, start: t.now()}
	for _, opt := range opts {
		opt(&cfg)
	}

	parent := cfg.parent
	if parent == nil {
		if p, ok := SpanFromContext(ctx); ok {
			parent = p
		}
	}

	s := &Span{
		name:   name,
		kind:   cfg.kind,
		start:  cfg.start,
		tracer: t,
		parent: parent,
		links:  cfg.links,
	}

	var in SamplingInput
	in.Name = name
	if parent != nil {
		pctx := parent.SpanContext()
		s.traceID = pctx.TraceID
		s.parentID = pctx.SpanID
		in.TraceID = pctx.TraceID
		in.HasParent = true
		in.ParentSampled = pctx.Sampled
	} else {
		s.traceID = NewTraceID()
		in.TraceID = s.traceID
	}
	s.spanID = NewSpanID()

	decision := Drop
	if t.sampler != nil {
		decision = t.sampler.Sample(in)
	}
	switch decision {
	case RecordAndExport:
		s.sampled = true
		s.recorded = true
	case RecordOnly:
		s.recorded = true
	}

	t.stats.NoteActivityCreated()
	t.openSpans.Store(s, struct{}{})
	return s, ContextWithSpan(ctx, s)
}

// errProcessTerminating is the status description stamped onto every span
// still open when ForceCloseOpenSpans runs.
var errProcessTerminating = errors.New("process terminating")

// ForceCloseOpenSpans closes every span this Tracer started but that has
// not yet called Finish, setting its status to Error with "process
// terminating" and handing it to the pipeline exactly as a normal Finish
// would. It is the last step of a coordinated shutdown, run from
// ShutdownHook, so a span still open when the process exits is reported
// rather than silently dropped. It returns how many spans it closed.
func (t *Tracer) ForceCloseOpenSpans() int {
	var n int
	t.openSpans.Range(func(key, _ interface{}) bool {
		s := key.(*Span)
		s.Fail(errProcessTerminating)
		s.Finish()
		n++
		return true
	})
	return n
}

// dispatch hands a finished, recorded span to the background pipeline as a
// WorkItem. Called exactly once per span, from Span.Finish.
func (t *Tracer) dispatch(s *Span) {
	fs := s.snapshot()
	t.worker.TryEnqueue(pipeline.WorkItem{
		OperationType: s.Name(),
		Enqueued:      t.now(),
		Effect: func(ctx context.Context) error {
			if t.dispatcher == nil {
				return nil
			}
			return t.dispatcher.Dispatch(ctx, fs)
		},
	})
}
