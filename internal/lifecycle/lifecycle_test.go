// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownNotifiesAllHooks(t *testing.T) {
	m := NewManager(time.Second)
	var calls int32
	for i := 0; i < 3; i++ {
		m.Register(HookFunc(func(ctx context.Context, reason Reason) error {
			atomic.AddInt32(&calls, 1)
			return nil
		}))
	}

	res := m.Shutdown(context.Background(), ReasonNormalExit)
	assert.Equal(t, int32(3), calls)
	assert.Empty(t, res.Failed)
	assert.False(t, res.TimedOut)
	assert.Equal(t, ReasonNormalExit, res.Reason)
}

func TestShutdownIsIdempotent(t *testing.T) {
	m := NewManager(time.Second)
	var calls int32
	m.Register(HookFunc(func(ctx context.Context, reason Reason) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	first := m.Shutdown(context.Background(), ReasonSignal)
	second := m.Shutdown(context.Background(), ReasonCrash)

	assert.Equal(t, int32(1), calls, "hooks must only be notified once")
	assert.Equal(t, first.Reason, second.Reason, "repeat calls return the first result")
}

func TestShutdownCollectsHookErrors(t *testing.T) {
	m := NewManager(time.Second)
	boom := errors.New("boom")
	m.Register(HookFunc(func(context.Context, Reason) error { return boom }))
	m.Register(HookFunc(func(context.Context, Reason) error { return nil }))

	res := m.Shutdown(context.Background(), ReasonNormalExit)
	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Failed[0], boom)
}

func TestShutdownTimesOutOnSlowHook(t *testing.T) {
	m := NewManager(10 * time.Millisecond)
	m.Register(HookFunc(func(ctx context.Context, _ Reason) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	res := m.Shutdown(context.Background(), ReasonNormalExit)
	assert.True(t, res.TimedOut)
}

func TestRegisterAfterShutdownIsNoOp(t *testing.T) {
	m := NewManager(time.Second)
	m.Shutdown(context.Background(), ReasonNormalExit)

	var called bool
	m.Register(HookFunc(func(context.Context, Reason) error {
		called = true
		return nil
	}))
	assert.False(t, called)
}

func TestConcurrentShutdownGetsAlreadyInProgress(t *testing.T) {
	m := NewManager(time.Second)
	release := make(chan struct{})
	m.Register(HookFunc(func(ctx context.Context, _ Reason) error {
		<-release
		return nil
	}))

	firstDone := make(chan ShutdownResult, 1)
	go func() { firstDone <- m.Shutdown(context.Background(), ReasonNormalExit) }()

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.state == stateInProgress
	}, time.Second, time.Millisecond)

	second := m.Shutdown(context.Background(), ReasonSignal)
	assert.True(t, second.AlreadyInProgress)
	assert.Equal(t, ReasonSignal, second.Reason)

	close(release)
	first := <-firstDone
	assert.False(t, first.AlreadyInProgress)
}

func TestNotifyOnSignalsStopIsSafeToCallOnce(t *testing.T) {
	m := NewManager(time.Second)
	stop := m.NotifyOnSignals()
	stop()
}
