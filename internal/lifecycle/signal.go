// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

package lifecycle

import (
	"context"
	"os"
	"os/signal"
)

// NotifyOnSignals runs Shutdown with ReasonSignal the first time one of sigs
// is received, and returns a stop function that cancels the subscription.
// This is an optional os/signal integration on top of the host-agnostic
// Manager.
func (m *Manager) NotifyOnSignals(sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			m.Shutdown(context.Background(), ReasonSignal)
		case <-done:
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
