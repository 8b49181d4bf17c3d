// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

// Package config implements a layered effective-configuration resolver for
// (type, method) call sites, merged global -> namespace -> type -> method
// -> call-site, with a cache invalidated on commit.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// CaptureLevel mirrors capture.Level without importing internal/capture,
// keeping config free of a dependency on the capture package's types.
type CaptureLevel int

const (
	CaptureNone CaptureLevel = iota
	CaptureNamesOnly
	CaptureNamesAndValues
	CaptureFull
)

// OperationConfig is one layer, or the fully resolved result, of
// configuration for a (type, method) call site. Pointer fields
// distinguish "not set at this layer" from "set to the zero value",
// which the field-wise merge needs.
type OperationConfig struct {
	SamplingRate       *float64
	Enabled            *bool
	ParameterCapture   *CaptureLevel
	RecordExceptions   *bool
	TimeoutThresholdMS *int
	Tags               map[string]string
}

// merge overlays next onto base: any field next sets wins; Tags are
// union-merged with next's values winning per key.
func merge(base, next OperationConfig) OperationConfig {
	out := base
	if next.SamplingRate != nil {
		out.SamplingRate = next.SamplingRate
	}
	if next.Enabled != nil {
		out.Enabled = next.Enabled
	}
	if next.ParameterCapture != nil {
		out.ParameterCapture = next.ParameterCapture
	}
	if next.RecordExceptions != nil {
		out.RecordExceptions = next.RecordExceptions
	}
	if next.TimeoutThresholdMS != nil {
		out.TimeoutThresholdMS = next.TimeoutThresholdMS
	}
	if len(next.Tags) > 0 {
		tags := make(map[string]string, len(base.Tags)+len(next.Tags))
		for k, v := range base.Tags {
			tags[k] = v
		}
		for k, v := range next.Tags {
			tags[k] = v
		}
		out.Tags = tags
	}
	return out
}

// ErrInvalidSamplingRate is returned by Commit when a layer's SamplingRate
// falls outside [0,1]; validation surfaces at configuration-commit time.
var ErrInvalidSamplingRate = errors.New("config: sampling_rate must be within [0,1]")

// namespaceRule is a namespace layer keyed by a dotted-name glob prefix,
// matched by longest-prefix.
type namespaceRule struct {
	pattern string
	config  OperationConfig
}

// Provider resolves effective OperationConfig for (typeID, methodID) pairs
// by merging layers in order. Safe for concurrent reads with infrequent
// writes via Commit.
type Provider struct {
	mu sync.RWMutex

	global     OperationConfig
	namespaces []namespaceRule
	types      map[string]OperationConfig
	methods    map[string]OperationConfig // key: "typeID.methodID"

	cacheMu sync.RWMutex
	cache   map[string]OperationConfig
}

// NewProvider returns a Provider with empty layers and default global
// settings (enabled, sampling rate 1.0, exceptions recorded).
func NewProvider() *Provider {
	rate := 1.0
	enabled := true
	recordExc := true
	return &Provider{
		global: OperationConfig{
			SamplingRate:     &rate,
			Enabled:          &enabled,
			RecordExceptions: &recordExc,
		},
		types:   make(map[string]OperationConfig),
		methods: make(map[string]OperationConfig),
		cache:   make(map[string]OperationConfig),
	}
}

// Edit is a pending batch of layer changes applied atomically by Commit.
type Edit struct {
	global     *OperationConfig
	namespaces []namespaceRule
	types      map[string]OperationConfig
	methods    map[string]OperationConfig
}

// SetGlobal stages a replacement for the global defaults layer.
func (e *Edit) SetGlobal(c OperationConfig) *Edit { e.global = &c; return e }

// SetNamespace stages a namespace rule; pattern supports a single trailing
// "*" glob (e.g. "billing.*"), matched by longest literal prefix among all
// matching patterns.
func (e *Edit) SetNamespace(pattern string, c OperationConfig) *Edit {
	e.namespaces = append(e.namespaces, namespaceRule{pattern: pattern, config: c})
	return e
}

// SetType stages a type-layer rule.
func (e *Edit) SetType(typeID string, c OperationConfig) *Edit {
	if e.types == nil {
		e.types = make(map[string]OperationConfig)
	}
	e.types[typeID] = c
	return e
}

// SetMethod stages a method-layer rule.
func (e *Edit) SetMethod(typeID, methodID string, c OperationConfig) *Edit {
	if e.methods == nil {
		e.methods = make(map[string]OperationConfig)
	}
	e.methods[typeID+"."+methodID] = c
	return e
}

// NewEdit starts a batch of staged changes to commit together.
func (p *Provider) NewEdit() *Edit { return &Edit{} }

// Commit validates and applies a staged Edit, then invalidates the
// resolution cache. On validation failure, no layer is changed.
func (p *Provider) Commit(e *Edit) error {
	if e.global != nil {
		if err := validate(*e.global); err != nil {
			return err
		}
	}
	for _, n := range e.namespaces {
		if err := validate(n.config); err != nil {
			return err
		}
	}
	for _, c := range e.types {
		if err := validate(c); err != nil {
			return err
		}
	}
	for _, c := range e.methods {
		if err := validate(c); err != nil {
			return err
		}
	}

	p.mu.Lock()
	if e.global != nil {
		p.global = *e.global
	}
	p.namespaces = append(p.namespaces, e.namespaces...)
	for k, v := range e.types {
		p.types[k] = v
	}
	for k, v := range e.methods {
		p.methods[k] = v
	}
	p.mu.Unlock()

	p.cacheMu.Lock()
	p.cache = make(map[string]OperationConfig)
	p.cacheMu.Unlock()
	return nil
}

func validate(c OperationConfig) error {
	if c.SamplingRate != nil && (*c.SamplingRate < 0 || *c.SamplingRate > 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidSamplingRate, *c.SamplingRate)
	}
	return nil
}

// Resolve computes the effective configuration for (typeID, methodID),
// optionally overridden by callSite. Resolution without callSite is
// cached by (typeID, methodID); a non-nil callSite bypasses the cache
// since per-call overrides are not worth caching.
func (p *Provider) Resolve(typeID, methodID string, callSite *OperationConfig) OperationConfig {
	key := typeID + "." + methodID
	if callSite == nil {
		p.cacheMu.RLock()
		cached, ok := p.cache[key]
		p.cacheMu.RUnlock()
		if ok {
			return cached
		}
	}

	p.mu.RLock()
	result := p.global
	if ns := p.longestNamespaceMatch(typeID); ns != nil {
		result = merge(result, *ns)
	}
	if t, ok := p.types[typeID]; ok {
		result = merge(result, t)
	}
	if m, ok := p.methods[key]; ok {
		result = merge(result, m)
	}
	p.mu.RUnlock()

	if callSite != nil {
		result = merge(result, *callSite)
		return result
	}

	p.cacheMu.Lock()
	p.cache[key] = result
	p.cacheMu.Unlock()
	return result
}

// longestNamespaceMatch must be called with p.mu held for reading.
func (p *Provider) longestNamespaceMatch(typeID string) *OperationConfig {
	var best *namespaceRule
	for i := range p.namespaces {
		n := &p.namespaces[i]
		prefix := strings.TrimSuffix(n.pattern, "*")
		if !strings.HasPrefix(typeID, prefix) {
			continue
		}
		if best == nil || len(prefix) > len(strings.TrimSuffix(best.pattern, "*")) {
			best = n
		}
	}
	if best == nil {
		return nil
	}
	return &best.config
}
