// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package tracer

import "sync/atomic"

// noopTracer satisfies every call with a Drop decision and a discarded
// dispatch, so that host code calling through the package-level Start/Stop
// functions before SetGlobalTracer is ever called behaves safely rather
// than nil-panicking: a telemetry library must never make the host fail.
var noopTracer = NewTracer(WithSampler(AlwaysOffSampler{}))

var globalTracer atomic.Value // *Tracer

func init() {
	globalTracer.Store(noopTracer)
}

// GetGlobalTracer returns the process-wide Tracer. It never returns nil.
func GetGlobalTracer() *Tracer {
	return globalTracer.Load().(*Tracer)
}

// SetGlobalTracer installs t as the process-wide Tracer; a nil t installs
// the no-op tracer. The previously installed tracer is not stopped or
// flushed: its worker keeps whatever it had queued.
func SetGlobalTracer(t *Tracer) {
	if t == nil {
		t = noopTracer
	}
	globalTracer.Store(t)
}
