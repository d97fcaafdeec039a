package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adscope/suggest-triage/internal/semantic"
	"github.com/adscope/suggest-triage/internal/textnorm"
)

// SemanticCache adapts a Store to the refiner's cache interface with a
// write-behind buffer: reads go through an in-memory layer backed by
// the store, writes accumulate and are merged in bulk by Flush. Stale
// reads are fine; a torn merge is not, which is why Flush goes through
// a single upsert.
type SemanticCache struct {
	store Store
	mem   semantic.Cache

	mu      sync.Mutex
	pending []CacheRow
}

// NewSemanticCache wraps a store as a refiner cache.
func NewSemanticCache(s Store) *SemanticCache {
	return &SemanticCache{store: s, mem: semantic.NewMemoryCache()}
}

// Get keys by the normalized (seed, tail) pair, matching the memory
// layer, so the persisted rows stay case- and spacing-insensitive.
func (c *SemanticCache) Get(seed, tail string) (semantic.Entry, bool) {
	seed, tail = textnorm.Normalize(seed), textnorm.Normalize(tail)
	if e, ok := c.mem.Get(seed, tail); ok {
		return e, true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	row, err := c.store.GetSemanticCache(ctx, seed, tail)
	if err != nil {
		zap.L().Warn("semantic cache read failed", zap.Error(err))
		return semantic.Entry{}, false
	}
	if row == nil {
		return semantic.Entry{}, false
	}
	c.mem.Put(seed, tail, row.Entry)
	return row.Entry, true
}

func (c *SemanticCache) Put(seed, tail string, e semantic.Entry) {
	seed, tail = textnorm.Normalize(seed), textnorm.Normalize(tail)
	c.mem.Put(seed, tail, e)

	c.mu.Lock()
	c.pending = append(c.pending, CacheRow{Seed: seed, Tail: tail, Entry: e})
	c.mu.Unlock()
}

// Flush merges the buffered writes into the store. Call it after each
// batch; entries stay buffered on failure and retry on the next flush.
func (c *SemanticCache) Flush(ctx context.Context) error {
	c.mu.Lock()
	rows := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}
	if err := c.store.UpsertSemanticCache(ctx, rows); err != nil {
		c.mu.Lock()
		c.pending = append(rows, c.pending...)
		c.mu.Unlock()
		return err
	}
	return nil
}
