package confuse

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/zeromicro/go-zero/core/logx"
)

// Engine owns the cached map of one host. Text obfuscated through an Engine must be
// restored through the same Engine, or through one restored from its Tables.
type Engine struct {
	random io.Reader
	seed   *uint64

	mu     sync.Mutex // serialises builds
	cached atomic.Pointer[Map]
}

type EngineOption func(*Engine)

// WithSeed makes every map the engine builds deterministic.
func WithSeed(seed uint64) EngineOption {
	return func(e *Engine) {
		e.seed = &seed
	}
}

// WithRandom replaces the secure source used to seed volatile maps.
func WithRandom(r io.Reader) EngineOption {
	return func(e *Engine) {
		e.random = r
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewEngineFromTables returns an engine whose cached map is restored from t.
func NewEngineFromTables(t *Tables, opts ...EngineOption) (*Engine, error) {
	m, err := FromTables(t)
	if err != nil {
		return nil, err
	}

	e := NewEngine(opts...)
	e.cached.Store(m)
	return e, nil
}

// Cached builds the map on first use and returns the same instance afterwards.
// A failed build is not remembered: the next call tries again.
func (e *Engine) Cached() (*Map, error) {
	if m := e.cached.Load(); m != nil {
		return m, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if m := e.cached.Load(); m != nil {
		return m, nil
	}

	m, err := e.build()
	if err != nil {
		logx.Errorf("confuse: build substitution map failed: %v", err)
		return nil, err
	}
	e.cached.Store(m)
	return m, nil
}

// Fresh builds a new map on every call and leaves the cached map untouched.
func (e *Engine) Fresh() (*Map, error) {
	return e.build()
}

func (e *Engine) build() (*Map, error) {
	if e.seed != nil {
		return NewSeededMap(*e.seed), nil
	}
	return NewVolatileMap(e.random)
}

// Obfuscate encodes text with the cached map. Text is returned unchanged when no map
// can be built.
func (e *Engine) Obfuscate(text string, digits, chinese bool) string {
	m, err := e.Cached()
	if err != nil {
		return text
	}
	return Encode(text, m, Options{Digits: digits, Chinese: chinese})
}

// Deobfuscate decodes text with the cached map.
func (e *Engine) Deobfuscate(text string) string {
	m, err := e.Cached()
	if err != nil {
		return text
	}
	return Decode(text, m)
}

func (e *Engine) IsEncodedSymbol(symbol string) bool {
	m, err := e.Cached()
	if err != nil {
		return false
	}
	return m.IsEncodedSymbol(symbol)
}

// Tables exports the cached map.
func (e *Engine) Tables() (*Tables, error) {
	m, err := e.Cached()
	if err != nil {
		return nil, err
	}
	return m.Tables(), nil
}

func (e *Engine) MappedCharCount() Count {
	m, err := e.Cached()
	if err != nil {
		return Count{}
	}
	return m.Count()
}
