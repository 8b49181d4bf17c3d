// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026 nexustrace Authors.

// Package capture implements the ParameterCapture component of spec
// section 4.6: depth- and size-bounded structural capture of arbitrary
// argument and return values, with pattern-based sensitive-data detection
// and per-field redaction.
package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Level is how aggressively Capturer descends into non-primitive values.
type Level int

const (
	LevelNone Level = iota
	LevelMinimal
	LevelStandard
	LevelVerbose
)

// Strategy is how a sensitive field's value is replaced in the captured
// output.
type Strategy int

const (
	StrategyRemove Strategy = iota
	StrategyMask
	StrategyHash
	StrategyPartial
	StrategyTypeName
)

// Serializer converts a value of a registered type directly to its
// captured representation, bypassing structural traversal entirely (spec
// section 4.6, step 5).
type Serializer func(value interface{}) interface{}

// Options configures a single Capturer. It is a
// field-wise data record, not a builder: the repo's Open Questions
// resolution for this ambiguity favors plain struct literals.
type Options struct {
	Level                Level
	AutoDetectSensitive  bool
	DefaultRedaction     Strategy
	MaxDepth             int
	MaxCollectionItems   int
	MaxStringLength      int
	UseCustomDisplay     bool
	CapturePropertyNames bool
	CustomSerializers    map[reflect.Type]Serializer
}

// Descriptor overrides capture behavior for one named field by marking it
// explicitly sensitive with its own strategy. A Descriptor with Sensitive
// false has no effect; there is no option to exclude a field from capture.
type Descriptor struct {
	Name      string
	Sensitive bool
	Strategy  Strategy
}

// pattern is a registered case-insensitive name-fragment rule.
type pattern struct {
	fragment string
	strategy Strategy
}

// Capturer performs bounded, redacted structural capture. Safe for
// concurrent use: the pattern registry is guarded by a reader-preferring
// lock and the lookup cache is cleared on any registry write.
type Capturer struct {
	opts Options

	mu       sync.RWMutex
	patterns []pattern
	cache    sync.Map // lowercase name -> *pattern (nil = no match)
}

// NewCapturer constructs a Capturer with the given options and a starter
// set of common sensitive-name fragments (password, secret, token, apikey,
// api_key, authorization, cookie), matching the kind of default list a production
// instrumentation library ships out of the box.
func NewCapturer(opts Options) *Capturer {
	if opts.MaxStringLength <= 0 {
		opts.MaxStringLength = 256
	}
	c := &Capturer{opts: opts}
	for _, f := range []string{"password", "secret", "token", "apikey", "api_key", "authorization", "cookie"} {
		c.patterns = append(c.patterns, pattern{fragment: f, strategy: StrategyMask})
	}
	return c
}

// RegisterPattern adds a case-insensitive name-fragment rule and clears
// the lookup cache. Hot-additions are allowed at any time.
func (c *Capturer) RegisterPattern(fragment string, strategy Strategy) {
	c.mu.Lock()
	c.patterns = append(c.patterns, pattern{fragment: strings.ToLower(fragment), strategy: strategy})
	c.mu.Unlock()
	c.cache = sync.Map{}
}

func (c *Capturer) matchPattern(name string) (pattern, bool) {
	key := strings.ToLower(name)
	if v, ok := c.cache.Load(key); ok {
		if v == nil {
			return pattern{}, false
		}
		return *v.(*pattern), true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.patterns {
		if strings.Contains(key, p.fragment) {
			pp := p
			c.cache.Store(key, &pp)
			return pp, true
		}
	}
	c.cache.Store(key, (*pattern)(nil))
	return pattern{}, false
}

// Param is one named input to Capture, carrying its declared descriptor.
type Param struct {
	Name       string
	Value      interface{}
	Descriptor *Descriptor // nil if no explicit annotation
}

// Capture converts params to a map of name to captured value, per spec
// section 4.6's algorithm, honoring c's Options.
func (c *Capturer) Capture(params []Param) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	if c.opts.Level == LevelNone {
		return out
	}
	for _, p := range params {
		out[p.Name] = c.captureParam(p)
	}
	return out
}

func (c *Capturer) captureParam(p Param) interface{} {
	if p.Descriptor != nil && p.Descriptor.Sensitive {
		return c.redact(p.Value, p.Descriptor.Strategy)
	}
	if c.opts.AutoDetectSensitive {
		if pt, ok := c.matchPattern(p.Name); ok {
			return c.redact(p.Value, pt.strategy)
		}
	}
	return c.captureValue(p.Value, 0)
}

func (c *Capturer) redact(value interface{}, strategy Strategy) interface{} {
	switch strategy {
	case StrategyRemove:
		return nil
	case StrategyMask:
		return "***"
	case StrategyHash:
		sum := sha256.Sum256([]byte(displayForm(value)))
		return hex.EncodeToString(sum[:])[:8]
	case StrategyPartial:
		s := displayForm(value)
		if len(s) <= 4 {
			return "***"
		}
		return s[:2] + "***" + s[len(s)-2:]
	case StrategyTypeName:
		return typeName(value)
	default:
		return c.redact(value, c.opts.DefaultRedaction)
	}
}

func (c *Capturer) captureValue(v interface{}, depth int) interface{} {
	if v == nil {
		return nil
	}
	if depth > c.opts.MaxDepth {
		return fmt.Sprintf("[Max depth %d reached]", c.opts.MaxDepth)
	}
	if ser := c.lookupSerializer(v); ser != nil {
		return ser(v)
	}

	if isPrimitive(v) {
		return capturePrimitive(v, c.opts.MaxStringLength)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if c.opts.Level == LevelMinimal {
			return nil
		}
		return c.captureCollection(rv, depth)
	case reflect.Map:
		if c.opts.Level == LevelMinimal {
			return nil
		}
		return c.captureMap(rv, depth)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return c.captureValue(rv.Elem().Interface(), depth)
	case reflect.Struct:
		if c.opts.Level == LevelMinimal {
			return nil
		}
		if c.opts.Level == LevelStandard {
			return truncateString(displayForm(v), c.opts.MaxStringLength)
		}
		return c.captureStruct(rv, depth)
	default:
		return truncateString(displayForm(v), c.opts.MaxStringLength)
	}
}

func (c *Capturer) lookupSerializer(v interface{}) Serializer {
	if c.opts.CustomSerializers == nil {
		return nil
	}
	return c.opts.CustomSerializers[reflect.TypeOf(v)]
}

func (c *Capturer) captureCollection(rv reflect.Value, depth int) interface{} {
	n := rv.Len()
	limit := n
	truncated := false
	if c.opts.MaxCollectionItems >= 0 && n > c.opts.MaxCollectionItems {
		limit = c.opts.MaxCollectionItems
		truncated = true
	}
	out := make([]interface{}, 0, limit+1)
	for i := 0; i < limit; i++ {
		out = append(out, c.captureValue(rv.Index(i).Interface(), depth+1))
	}
	if truncated {
		out = append(out, fmt.Sprintf("... (total: %d items)", n))
	}
	return out
}

func (c *Capturer) captureMap(rv reflect.Value, depth int) interface{} {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	n := len(keys)
	limit := n
	truncated := false
	if c.opts.MaxCollectionItems >= 0 && n > c.opts.MaxCollectionItems {
		limit = c.opts.MaxCollectionItems
		truncated = true
	}
	out := make(map[string]interface{}, limit)
	for i := 0; i < limit; i++ {
		k := fmt.Sprint(keys[i].Interface())
		out[k] = c.captureValue(rv.MapIndex(keys[i]).Interface(), depth+1)
	}
	if truncated {
		out["..."] = fmt.Sprintf("(total: %d items)", n)
	}
	return out
}

func (c *Capturer) captureStruct(rv reflect.Value, depth int) (result interface{}) {
	defer func() {
		if recover() != nil {
			result = "[Error reading property]"
		}
	}()
	t := rv.Type()
	out := make(map[string]interface{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}
		fv := rv.Field(i)
		if pt, ok := c.matchPattern(field.Name); c.opts.AutoDetectSensitive && ok {
			out[field.Name] = c.redact(safeInterface(fv), pt.strategy)
			continue
		}
		out[field.Name] = c.captureValue(safeInterface(fv), depth+1)
	}
	return out
}

func safeInterface(v reflect.Value) (result interface{}) {
	defer func() {
		if recover() != nil {
			result = nil
		}
	}()
	return v.Interface()
}

func isPrimitive(v interface{}) bool {
	switch v.(type) {
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, string:
		return true
	default:
		return false
	}
}

func capturePrimitive(v interface{}, maxLen int) interface{} {
	if s, ok := v.(string); ok {
		return truncateString(s, maxLen)
	}
	return v
}

func truncateString(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s… (%d chars)", s[:maxLen], len(s))
}

func displayForm(v interface{}) string {
	return fmt.Sprintf("%v", v)
}

func typeName(v interface{}) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	return t.Name()
}
