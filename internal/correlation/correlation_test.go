// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginSetsExplicitValue(t *testing.T) {
	ctx, guard := Begin(context.Background(), "order-123")
	defer guard.Release()

	v, ok := Raw(ctx)
	require.True(t, ok)
	assert.Equal(t, "order-123", v)
}

func TestReleaseRestoresPreviousFrame(t *testing.T) {
	ctx, outer := Begin(context.Background(), "outer")
	ctx, inner := Begin(ctx, "inner")

	v, _ := Raw(ctx)
	assert.Equal(t, "inner", v)

	inner.Release()
	v, ok := Raw(ctx)
	require.True(t, ok)
	assert.Equal(t, "outer", v)

	outer.Release()
	_, ok = Raw(ctx)
	assert.False(t, ok)
}

func TestClearRemovesExplicitValue(t *testing.T) {
	ctx, guard := Begin(context.Background(), "to-clear")
	defer guard.Release()

	Clear(ctx)
	_, ok := Raw(ctx)
	assert.False(t, ok)
}

func TestCurrentPrefersExplicitOverFallback(t *testing.T) {
	ctx, guard := Begin(context.Background(), "explicit")
	defer guard.Release()

	fallback := func(context.Context) (string, bool) { return "from-span", true }
	assert.Equal(t, "explicit", Current(ctx, fallback))
}

func TestCurrentFallsBackToSpanWhenNoExplicit(t *testing.T) {
	fallback := func(context.Context) (string, bool) { return "from-span", true }
	assert.Equal(t, "from-span", Current(context.Background(), fallback))
}

func TestCurrentGeneratesAndCachesWhenNoFallback(t *testing.T) {
	ctx, guard := Begin(context.Background(), "seed")
	guard.Release()
	// After release there's no explicit value, and no fallback is supplied,
	// so Current must synthesize and cache an id for this flow.
	first := Current(ctx, nil)
	second := Current(ctx, nil)
	assert.Equal(t, first, second, "the generated id must be stable within a flow")
	assert.Len(t, first, 32)
}

func TestCurrentWithNoFlowGeneratesUncachedID(t *testing.T) {
	id := Current(context.Background(), nil)
	assert.Len(t, id, 32)
}
