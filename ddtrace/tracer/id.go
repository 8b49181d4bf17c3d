// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package tracer

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// TraceID is the 128-bit identifier of a distributed trace. The zero value
// is reserved to mean "invalid" and is never emitted by NewTraceID.
type TraceID [16]byte

// SpanID is the 64-bit identifier of a single operation within a trace. The
// zero value is reserved to mean "invalid" and is never emitted by NewSpanID.
type SpanID [8]byte

var (
	zeroTraceID TraceID
	zeroSpanID  SpanID
)

// IsZero reports whether id is the reserved all-zero value.
func (id TraceID) IsZero() bool { return id == zeroTraceID }

// IsZero reports whether id is the reserved all-zero value.
func (id SpanID) IsZero() bool { return id == zeroSpanID }

// String renders id as 32 lowercase hex characters, per W3C trace-id.
func (id TraceID) String() string { return hex.EncodeToString(id[:]) }

// String renders id as 16 lowercase hex characters, per W3C parent-id.
func (id SpanID) String() string { return hex.EncodeToString(id[:]) }

// Lower64 returns the low 64 bits of the trace id, for vendors that only
// accept a 64-bit identifier.
func (id TraceID) Lower64() uint64 {
	return binary.BigEndian.Uint64(id[8:])
}

// AsUint64 returns the span id interpreted as a big-endian uint64.
func (id SpanID) AsUint64() uint64 {
	return binary.BigEndian.Uint64(id[:])
}

// OTelTraceID reinterprets id as an OpenTelemetry trace.TraceID, so that
// boundary code can hand it to an OTel-speaking collaborator without a
// conversion library. This is the one place the core depends on the OTel
// wire types, matching spec's "reuses an existing tracing standard's
// semantic conventions" non-goal.
func (id TraceID) OTelTraceID() oteltrace.TraceID { return oteltrace.TraceID(id) }

// OTelSpanID reinterprets id as an OpenTelemetry trace.SpanID.
func (id SpanID) OTelSpanID() oteltrace.SpanID { return oteltrace.SpanID(id) }

// ParseTraceID decodes 32 lowercase hex characters into a TraceID. It does
// not reject the all-zero value; callers that need that check (e.g. the
// traceparent parser) do it explicitly so this function stays reusable for
// contexts where all-zero is meaningful (e.g. comparisons).
func ParseTraceID(s string) (TraceID, error) {
	var id TraceID
	if len(s) != 32 {
		return id, errMalformedID
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, errMalformedID
	}
	copy(id[:], b)
	return id, nil
}

// ParseSpanID decodes 16 lowercase hex characters into a SpanID.
func ParseSpanID(s string) (SpanID, error) {
	var id SpanID
	if len(s) != 16 {
		return id, errMalformedID
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, errMalformedID
	}
	copy(id[:], b)
	return id, nil
}

// NewTraceID returns a cryptographically random, non-zero trace id. The
// all-zero draw is astronomically unlikely but is resampled defensively
//
func NewTraceID() TraceID {
	var id TraceID
	for {
		if _, err := rand.Read(id[:]); err != nil {
			panic("nexustrace: system randomness unavailable: " + err.Error())
		}
		if !id.IsZero() {
			return id
		}
	}
}

// NewSpanID returns a cryptographically random, non-zero span id.
func NewSpanID() SpanID {
	var id SpanID
	for {
		if _, err := rand.Read(id[:]); err != nil {
			panic("nexustrace: system randomness unavailable: " + err.Error())
		}
		if !id.IsZero() {
			return id
		}
	}
}
