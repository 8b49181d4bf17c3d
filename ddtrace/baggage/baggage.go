// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

// Package baggage carries the W3C Baggage header's key/value pairs through
// context.Context alongside traceparent/tracestate.
package baggage

import "context"

type baggageKey struct{}

// Set returns a copy of ctx with key set to value in its baggage map.
func Set(ctx context.Context, key, value string) context.Context {
	m := copyBaggage(ctx)
	m[key] = value
	return withBaggage(ctx, m)
}

// Get returns the baggage value for key and whether it was present.
func Get(ctx context.Context, key string) (string, bool) {
	m, ok := baggageMap(ctx)
	if !ok {
		return "", false
	}
	v, ok := m[key]
	return v, ok
}

func baggageMap(ctx context.Context) (map[string]string, bool) {
	m, ok := ctx.Value(baggageKey{}).(map[string]string)
	return m, ok
}

// All returns a copy of every baggage entry in ctx.
func All(ctx context.Context) map[string]string {
	return copyBaggage(ctx)
}

// Remove returns a copy of ctx with key deleted from its baggage map.
func Remove(ctx context.Context, key string) context.Context {
	m := copyBaggage(ctx)
	delete(m, key)
	return withBaggage(ctx, m)
}

// Clear returns a copy of ctx with an empty baggage map.
func Clear(ctx context.Context) context.Context {
	return withBaggage(ctx, map[string]string{})
}

func copyBaggage(ctx context.Context) map[string]string {
	out := map[string]string{}
	if m, ok := baggageMap(ctx); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func withBaggage(ctx context.Context, m map[string]string) context.Context {
	return context.WithValue(ctx, baggageKey{}, m)
}
