// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package tracer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexustrace/nexustrace-go/ddtrace/ext"
)

func TestStartStopLifecycle(t *testing.T) {
	Start()
	defer Stop()

	s, ctx := StartSpanFromContext(context.Background(), "op")
	assert.False(t, s.TraceID().IsZero())
	s.Finish()

	assert.NotEqual(t, context.Background(), ctx)
}

func TestStopWithoutStartIsSafe(t *testing.T) {
	Stop()
	assert.NotNil(t, GetGlobalTracer())
}

func TestCorrelationIDFallsBackToSpanTraceID(t *testing.T) {
	Start()
	defer Stop()

	s, ctx := StartSpanFromContext(context.Background(), "op")
	defer s.Finish()

	assert.Equal(t, s.TraceID().String(), CorrelationID(ctx))
}

func TestShutdownHookFlushesWorker(t *testing.T) {
	Start()
	defer Stop()

	hook := ShutdownHook()
	err := hook.Notify(context.Background(), 0)
	assert.NoError(t, err)
}

func TestShutdownHookForceClosesOpenSpans(t *testing.T) {
	Start()
	defer Stop()

	s, _ := StartSpanFromContext(context.Background(), "never-finished")

	hook := ShutdownHook()
	require.NoError(t, hook.Notify(context.Background(), 0))

	status, desc := s.Status()
	assert.Equal(t, ext.StatusError, status)
	assert.Equal(t, "process terminating", desc)
}

func TestCorrelationIDGeneratesAndCountsStatistic(t *testing.T) {
	Start()
	defer Stop()

	before := GetGlobalTracer().Stats().Snapshot().CorrelationIDsGenerated
	id := CorrelationID(context.Background())
	assert.Len(t, id, 32)
	assert.Equal(t, before+1, GetGlobalTracer().Stats().Snapshot().CorrelationIDsGenerated)
}
