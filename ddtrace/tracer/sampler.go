// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package tracer

import (
	"encoding/binary"
	"sync"

	"golang.org/x/time/rate"
)

// Decision is the outcome of consulting a Sampler when a span starts (spec
// section 4.3, Sampling).
type Decision int

const (
	// Drop discards the span: it still links into the parent/child chain
	// for in-process attribute propagation but is never enqueued.
	Drop Decision = iota
	// RecordOnly keeps the span for in-process statistics/local consumers
	// but does not mark it for export.
	RecordOnly
	// RecordAndExport keeps the span and marks it for export.
	RecordAndExport
)

// SamplingInput is what a Sampler is consulted with at span-start time.
type SamplingInput struct {
	TraceID       TraceID
	ParentSampled bool
	HasParent     bool
	Name          string
	Attributes    map[string]interface{}
}

// Sampler decides whether a newly started span is recorded, and if so
// whether it is also marked for export.
type Sampler interface {
	Sample(SamplingInput) Decision
}

// AlwaysOnSampler records and exports every span. It is the default when no
// sampler is configured, matching the library's "must not silently drop
// telemetry the host didn't ask it to drop" stance.
type AlwaysOnSampler struct{}

func (AlwaysOnSampler) Sample(SamplingInput) Decision { return RecordAndExport }

// AlwaysOffSampler records nothing. Useful for tests and for hosts that
// disable tracing entirely at the config layer instead of the sampler.
type AlwaysOffSampler struct{}

func (AlwaysOffSampler) Sample(SamplingInput) Decision { return Drop }

// ParentBasedSampler defers to the parent's sampled bit when a parent
// exists, and falls back to Root for trace roots (the common composition
// pattern for propagating a sampling decision through a whole trace).
type ParentBasedSampler struct {
	Root Sampler
}

func (p ParentBasedSampler) Sample(in SamplingInput) Decision {
	if in.HasParent {
		if in.ParentSampled {
			return RecordAndExport
		}
		return Drop
	}
	if p.Root == nil {
		return AlwaysOnSampler{}.Sample(in)
	}
	return p.Root.Sample(in)
}

// RateSampler samples a fraction of root spans using a token-bucket limiter
// rather than a weighted coin flip, so a burst of traffic cannot exceed a
// configured spans-per-second ceiling regardless of how many trace roots
// start in the same instant. The limiter is golang.org/x/time/rate's token
// bucket rather than a hand-rolled one.
type RateSampler struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

// NewRateSampler returns a RateSampler admitting up to spansPerSecond root
// spans per second, with a burst equal to one second's worth of traffic.
func NewRateSampler(spansPerSecond float64) *RateSampler {
	if spansPerSecond <= 0 {
		return &RateSampler{limiter: rate.NewLimiter(0, 0)}
	}
	burst := int(spansPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateSampler{limiter: rate.NewLimiter(rate.Limit(spansPerSecond), burst)}
}

func (r *RateSampler) Sample(in SamplingInput) Decision {
	if in.HasParent {
		if in.ParentSampled {
			return RecordAndExport
		}
		return Drop
	}
	r.mu.Lock()
	allow := r.limiter.Allow()
	r.mu.Unlock()
	if allow {
		return RecordAndExport
	}
	return Drop
}

// TraceIDRatioSampler samples a fixed fraction of root spans deterministically
// from the trace id itself, rather than from a stateful rate limiter: every
// process in a distributed trace that shares the same sampler configuration
// makes the same decision for the same trace id, without any coordination.
// This is the other half of the common priority/rate-sampler split (spec
// section 4.3, Sampling): RateSampler caps absolute throughput, while
// TraceIDRatioSampler gives a stable, reproducible percentage.
type TraceIDRatioSampler struct {
	// threshold is ratio expressed as a cutoff against the trace id's low
	// 64 bits interpreted as an unsigned fraction of the id space.
	threshold uint64
}

// NewTraceIDRatioSampler returns a sampler admitting approximately ratio
// (clamped to [0,1]) of root spans.
func NewTraceIDRatioSampler(ratio float64) *TraceIDRatioSampler {
	if ratio < 0 {
		ratio = 0
	}
	if ratio >= 1 {
		// float64(^uint64(0)) rounds up to 2^64, which does not convert back
		// to a uint64; use the exact maximum instead.
		return &TraceIDRatioSampler{threshold: ^uint64(0)}
	}
	return &TraceIDRatioSampler{threshold: uint64(ratio * float64(^uint64(0)))}
}

func (s *TraceIDRatioSampler) Sample(in SamplingInput) Decision {
	if in.HasParent {
		if in.ParentSampled {
			return RecordAndExport
		}
		return Drop
	}
	v := binary.BigEndian.Uint64(in.TraceID[8:])
	if v <= s.threshold {
		return RecordAndExport
	}
	return Drop
}
