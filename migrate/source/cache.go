package source

import (
	"sync"

	"github.com/enesj/automig/schema"
)

// SnapshotCache memoizes reconstructed schema-at-version snapshots so
// resolving many backward migrations does not replay the full history each
// time. Entries are cloned on both sides; callers can never alias cached
// state.
type SnapshotCache struct {
	mu        sync.Mutex
	byVersion map[int]schema.Schema
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{byVersion: map[int]schema.Schema{}}
}

// Get returns a copy of the cached snapshot for a version, if present.
func (c *SnapshotCache) Get(version int) (schema.Schema, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byVersion[version]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Put stores a copy of the snapshot for a version.
func (c *SnapshotCache) Put(version int, s schema.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byVersion[version] = s.Clone()
}

// Len reports the number of cached versions.
func (c *SnapshotCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byVersion)
}
