// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package tracer

import "context"

// Wrap is the compile-time stand-in for the dynamic-proxy-per-method
// pattern other platforms use to instrument every call on an interface
// automatically: instead of synthesizing a dispatcher at runtime, a
// collaborator wraps each method by hand (or via go generate) with a call
// to Wrap, which opens a span, runs fn, and records any returned error as
// the span's terminal status before finishing it.
func Wrap(ctx context.Context, name string, fn func(context.Context) error, opts ...StartSpanOption) error {
	span, spanCtx := StartSpanFromContext(ctx, name, opts...)
	defer span.Finish()
	err := fn(spanCtx)
	if err != nil {
		span.RecordException(err)
	}
	span.Fail(err)
	return err
}

// WrapValue is Wrap's generic counterpart for functions that also return a
// value, for the common "do the call, get a result or an error" shape.
func WrapValue[T any](ctx context.Context, name string, fn func(context.Context) (T, error), opts ...StartSpanOption) (T, error) {
	span, spanCtx := StartSpanFromContext(ctx, name, opts...)
	defer span.Finish()
	result, err := fn(spanCtx)
	if err != nil {
		span.RecordException(err)
	}
	span.Fail(err)
	return result, err
}
