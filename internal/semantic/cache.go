package semantic

import (
	gocache "github.com/patrickmn/go-cache"

	"github.com/adscope/suggest-triage/internal/model"
	"github.com/adscope/suggest-triage/internal/textnorm"
)

// Entry is one cached refinement result.
type Entry struct {
	Label      model.Label `json:"label"`
	Confidence float64     `json:"confidence"`
	Reason     string      `json:"reason"`
}

// Cache stores refinement results keyed by (seed, tail). Entries never
// expire on their own; stale reads are harmless because recomputation
// is idempotent, but implementations must be safe for concurrent use.
type Cache interface {
	Get(seed, tail string) (Entry, bool)
	Put(seed, tail string, e Entry)
}

func cacheKey(seed, tail string) string {
	return textnorm.Normalize(seed) + "\x1f" + textnorm.Normalize(tail)
}

// memoryCache is the in-process Cache used when no persistent store is
// configured.
type memoryCache struct {
	inner *gocache.Cache
}

// NewMemoryCache returns an in-memory Cache without expiration.
func NewMemoryCache() Cache {
	return &memoryCache{inner: gocache.New(gocache.NoExpiration, 0)}
}

func (m *memoryCache) Get(seed, tail string) (Entry, bool) {
	v, ok := m.inner.Get(cacheKey(seed, tail))
	if !ok {
		return Entry{}, false
	}
	return v.(Entry), true
}

func (m *memoryCache) Put(seed, tail string, e Entry) {
	m.inner.Set(cacheKey(seed, tail), e, gocache.NoExpiration)
}
