// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

// Package ext holds the semantic attribute and tag names shared across the
// tracer, exporters and host instrumentation. Names reuse OpenTelemetry's
// semantic conventions where one already exists instead of inventing a
// competing vocabulary.
package ext

import semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

// Standard span attribute keys. These reuse OpenTelemetry's own exception
// event and general span convention keys rather than inventing a
// competing vocabulary.
const (
	ExceptionType       = string(semconv.ExceptionTypeKey)
	ExceptionMessage    = string(semconv.ExceptionMessageKey)
	ExceptionStacktrace = string(semconv.ExceptionStacktraceKey)

	Component   = "component"
	PeerService = string(semconv.PeerServiceKey)
)

// SpanKind enumerates the role an operation plays in a request.
type SpanKind int

const (
	// KindInternal is the default: an operation with no remote counterpart.
	KindInternal SpanKind = iota
	// KindClient marks an outbound call to another service.
	KindClient
	// KindServer marks the handling side of an inbound call.
	KindServer
	// KindProducer marks a message being handed to an async broker.
	KindProducer
	// KindConsumer marks a message being received from an async broker.
	KindConsumer
)

func (k SpanKind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindProducer:
		return "producer"
	case KindConsumer:
		return "consumer"
	default:
		return "internal"
	}
}

// StatusCode is the terminal outcome of a span
type StatusCode int

const (
	StatusUnset StatusCode = iota
	StatusOK
	StatusError
)

func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "unset"
	}
}
