// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package tracer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexustrace/nexustrace-go/ddtrace/ext"
)

func TestForceCloseOpenSpansClosesOnlyUnfinishedSpans(t *testing.T) {
	tr := NewTracer()
	open, _ := tr.StartSpan(context.Background(), "open")
	finished, _ := tr.StartSpan(context.Background(), "finished")
	finished.Succeed()
	finished.Finish()

	n := tr.ForceCloseOpenSpans()
	assert.Equal(t, 1, n)

	status, desc := open.Status()
	assert.Equal(t, ext.StatusError, status)
	assert.Equal(t, "process terminating", desc)

	finishedStatus, _ := finished.Status()
	assert.Equal(t, ext.StatusOK, finishedStatus, "already-finished spans must not be touched")
}

func TestForceCloseOpenSpansIsIdempotent(t *testing.T) {
	tr := NewTracer()
	tr.StartSpan(context.Background(), "open")

	assert.Equal(t, 1, tr.ForceCloseOpenSpans())
	assert.Equal(t, 0, tr.ForceCloseOpenSpans())
}

func TestStartSpanRootHasNewTraceID(t *testing.T) {
	tr := NewTracer()
	s, _ := tr.StartSpan(context.Background(), "root")
	assert.False(t, s.TraceID().IsZero())
	assert.True(t, s.SpanContext().ParentSpanID.IsZero())
}

func TestStartSpanChildInheritsTraceIDFromContext(t *testing.T) {
	tr := NewTracer()
	parent, ctx := tr.StartSpan(context.Background(), "parent")
	child, _ := tr.StartSpan(ctx, "child")

	assert.Equal(t, parent.TraceID(), child.TraceID())
	assert.Equal(t, parent.SpanID(), child.SpanContext().ParentSpanID)
}

func TestChildOfOverridesContextParent(t *testing.T) {
	tr := NewTracer()
	ctxParent, ctx := tr.StartSpan(context.Background(), "ctx-parent")
	explicitParent, _ := tr.StartSpan(context.Background(), "explicit-parent")

	child, _ := tr.StartSpan(ctx, "child", ChildOf(explicitParent))
	assert.Equal(t, explicitParent.TraceID(), child.TraceID())
	assert.NotEqual(t, ctxParent.TraceID(), child.TraceID())
}

func TestWithSpanKindSetsKind(t *testing.T) {
	tr := NewTracer()
	s, _ := tr.StartSpan(context.Background(), "op", WithSpanKind(ext.KindServer))
	assert.Equal(t, ext.KindServer, s.Kind())
}

func TestWithStartTimeOverridesStart(t *testing.T) {
	tr := NewTracer()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := tr.StartSpan(context.Background(), "op", WithStartTime(fixed))
	s.Finish()
	assert.True(t, s.Duration() >= 0)
}

func TestStartSpanConsultsSamplerAndSetsRecorded(t *testing.T) {
	tr := NewTracer(WithSampler(AlwaysOffSampler{}))
	s, _ := tr.StartSpan(context.Background(), "op")
	assert.False(t, s.Recorded())
	assert.False(t, s.Sampled())
}

func TestStartSpanIncrementsActivitiesCreated(t *testing.T) {
	tr := NewTracer()
	tr.StartSpan(context.Background(), "op")
	assert.Equal(t, int64(1), tr.Stats().Snapshot().ActivitiesCreated)
}

func TestSpanFromContextRoundTrip(t *testing.T) {
	tr := NewTracer()
	s, ctx := tr.StartSpan(context.Background(), "op")
	got, ok := SpanFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestSpanFromContextAbsent(t *testing.T) {
	_, ok := SpanFromContext(context.Background())
	assert.False(t, ok)
}

func TestWithQueueCapacityRebuildsWorker(t *testing.T) {
	tr := NewTracer(WithQueueCapacity(1))
	tr.StartSpan(context.Background(), "a")
	s2, _ := tr.StartSpan(context.Background(), "b")
	s3, _ := tr.StartSpan(context.Background(), "c")
	s2.Finish()
	s3.Finish()
	// Capacity 1 means enqueuing the second finished span should have
	// dropped the first rather than grown the queue.
	assert.Equal(t, int64(1), tr.Stats().Snapshot().MaxQueueDepth)
}
