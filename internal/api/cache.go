package api

import (
	"sync"
	"time"

	"github.com/crewtrace/crewtrace/internal/db"
	"github.com/crewtrace/crewtrace/internal/timeutil"
)

type cacheEntry struct {
	position  *db.SubjectPosition
	expiresAt time.Time
}

// positionCache is a TTL read cache in front of current-position lookups.
// Writers must invalidate the subject's entry after every upsert so a read
// following a write always sees the new row.
type positionCache struct {
	mu      sync.Mutex
	clock   timeutil.Clock
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newPositionCache(clock timeutil.Clock, ttl time.Duration) *positionCache {
	return &positionCache{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached position and whether the entry is still fresh.
// Expired entries are removed on the way out.
func (c *positionCache) Get(subjectID string) (*db.SubjectPosition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[subjectID]
	if !ok {
		return nil, false
	}
	if c.clock.Now().After(entry.expiresAt) {
		delete(c.entries, subjectID)
		return nil, false
	}
	return entry.position, true
}

// Put stores the position with a fresh TTL. A zero or negative TTL disables
// caching entirely.
func (c *positionCache) Put(subjectID string, pos *db.SubjectPosition) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[subjectID] = cacheEntry{
		position:  pos,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

// Invalidate drops the subject's cached entry.
func (c *positionCache) Invalidate(subjectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, subjectID)
}
