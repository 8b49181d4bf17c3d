// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

// Package exceptions aggregates recorded exceptions by fingerprint,
// tracking per-group counts and a 60-bucket sliding-window global rate.
package exceptions

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Group is an aggregation bucket for one exception fingerprint.
type Group struct {
	Fingerprint string
	Count       int64
	FirstSeen   time.Time
	LastSeen    time.Time
	Sample      error
}

var (
	hexAddrPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	guidPattern    = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	quotedPattern  = regexp.MustCompile(`"[^"]*"|'[^']*'`)
)

// normalizeMessage strips hexadecimal addresses, GUIDs and quoted literals
// so two exceptions differing only in a pointer address or the specific
// invalid input still fingerprint the same.
func normalizeMessage(msg string) string {
	msg = hexAddrPattern.ReplaceAllString(msg, "0x?")
	msg = guidPattern.ReplaceAllString(msg, "?")
	msg = quotedPattern.ReplaceAllString(msg, `"?"`)
	return msg
}

// Fingerprint computes hash(type_full_name || normalized(message) ||
// top_frame_method). xxhash is used for speed; the fingerprint only needs
// to be a good aggregation key, not collision-proof against an adversary.
func Fingerprint(typeFullName, message, topFrameMethod string) string {
	h := xxhash.New()
	h.WriteString(typeFullName)
	h.WriteString("\x00")
	h.WriteString(normalizeMessage(message))
	h.WriteString("\x00")
	h.WriteString(topFrameMethod)
	return fmt.Sprintf("%016x", h.Sum64())
}

// slidingWindow tracks a 60-bucket, one-second-resolution rate counter.
type slidingWindow struct {
	mu      sync.Mutex
	buckets [60]int64
	stamps  [60]int64 // unix second each bucket belongs to
}

func (w *slidingWindow) record(now time.Time) {
	idx := int(now.Unix() % 60)
	w.mu.Lock()
	defer w.mu.Unlock()
	sec := now.Unix()
	if w.stamps[idx] != sec {
		w.stamps[idx] = sec
		w.buckets[idx] = 0
	}
	w.buckets[idx]++
}

func (w *slidingWindow) rate(now time.Time) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var total int64
	cutoff := now.Unix() - 59
	for i, stamp := range w.stamps {
		if stamp >= cutoff {
			total += w.buckets[i]
		}
	}
	return total
}

// Aggregator maintains per-fingerprint Groups and a global errors/minute
// rate. Safe for concurrent use.
type Aggregator struct {
	mu     sync.RWMutex
	groups map[string]*Group
	window slidingWindow
	now    func() time.Time
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{groups: make(map[string]*Group), now: time.Now}
}

// Record fingerprints err (using typeFullName and topFrameMethod supplied
// by the caller, since Go errors carry neither a stable type name nor
// frame info by default) and updates its Group and the global rate.
func (a *Aggregator) Record(typeFullName, topFrameMethod string, err error) *Group {
	fp := Fingerprint(typeFullName, err.Error(), topFrameMethod)
	now := a.now()

	a.mu.Lock()
	g, ok := a.groups[fp]
	if !ok {
		g = &Group{Fingerprint: fp, FirstSeen: now, Sample: err}
		a.groups[fp] = g
	}
	g.Count++
	g.LastSeen = now
	a.mu.Unlock()

	a.window.record(now)
	return g
}

// RatePerMinute returns the current errors/minute over the trailing
// 60-second window.
func (a *Aggregator) RatePerMinute() int64 {
	return a.window.rate(a.now())
}

// Groups returns a snapshot of every known group, keyed by fingerprint.
func (a *Aggregator) Groups() map[string]Group {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]Group, len(a.groups))
	for k, v := range a.groups {
		out[k] = *v
	}
	return out
}

// Reset clears every group and the rate window.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.groups = make(map[string]*Group)
	a.mu.Unlock()
	a.window = slidingWindow{}
}

// TopFrame extracts a best-effort calling-method name from a Go runtime
// stack trace produced by debug.Stack(), for callers that only have that
// output rather than a structured frame list. debug.Stack() always
// includes its own frame first (runtime/debug.Stack() plus its file:line),
// which is constant regardless of call site and would otherwise make
// every fingerprint's frame component identical; TopFrame skips it and
// returns the next function name instead, trimmed of its argument list.
func TopFrame(stack string) string {
	lines := strings.Split(stack, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "goroutine ") || strings.HasPrefix(line, "/") {
			continue
		}
		if strings.HasPrefix(line, "runtime/debug.Stack(") {
			continue
		}
		if idx := strings.LastIndexByte(line, '('); idx > 0 {
			return line[:idx]
		}
		return line
	}
	return ""
}
