// Package parsecache provides an ephemeral, thread-safe, in-memory cache of
// parsed formulas.
//
// # Purpose
//
// A form is evaluated many times against different values, and the preview
// server sees the same formula text on every keystroke. Parsing is the only
// part of a calculation that depends on the text alone, so its outcome is
// kept per text and shared between goroutines.
//
// # Concurrency Model
//
// The cache uses sync.Map: keys are written once and then read many times
// from concurrent executor workers and HTTP handlers.
//
// Hits never lock. Inserts and Clear are serialized by a mutex so the entry
// count stays exact.
//
// Syntax errors are cached alongside successful parses. A bounded number of
// entries is held; once the bound is reached the cache is cleared and starts
// filling again.
package parsecache

import (
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/calcfield/internal/formula"
)

// DefaultSize is the entry bound used by New.
const DefaultSize = 4096

type entry struct {
	node formula.Node
	err  error
}

// Cache memoizes formula.Parse.
type Cache struct {
	entries sync.Map // Key: formula text, Value: entry
	mu      sync.Mutex
	size    atomic.Int64 // written under mu
	limit   int64

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates an empty cache holding at most DefaultSize formulas.
func New() *Cache {
	return NewWithLimit(DefaultSize)
}

// NewWithLimit creates an empty cache holding at most limit formulas. A
// non-positive limit means DefaultSize.
func NewWithLimit(limit int) *Cache {
	if limit <= 0 {
		limit = DefaultSize
	}
	return &Cache{limit: int64(limit)}
}

// Parse returns the cached outcome of formula.Parse(text), parsing on a miss.
// Its signature matches formula.ParseFunc.
func (c *Cache) Parse(text string) (formula.Node, error) {
	if v, ok := c.entries.Load(text); ok {
		c.hits.Add(1)
		e := v.(entry)
		return e.node, e.err
	}
	c.misses.Add(1)

	node, err := formula.Parse(text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, loaded := c.entries.Load(text); loaded {
		return node, err
	}
	if c.size.Load() >= c.limit {
		c.clear()
	}
	c.entries.Store(text, entry{node: node, err: err})
	c.size.Add(1)
	return node, err
}

// Len returns the number of cached formulas.
func (c *Cache) Len() int {
	return int(c.size.Load())
}

// Stats returns the hit and miss counts since the cache was created.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Clear drops every cached formula.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
}

func (c *Cache) clear() {
	c.entries.Clear()
	c.size.Store(0)
}
