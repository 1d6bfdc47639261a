// Copyright 2024 The ossfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"context"
	"sync"
	"time"
)

// statCacheEntry is one cached GetNode result.
type statCacheEntry struct {
	node    Node
	expires time.Time
}

// maxStatCacheEntries bounds the cache's memory footprint: once exceeded,
// the next write opportunistically sweeps expired entries before adding a
// new one.
const maxStatCacheEntries = 8192

// StatCache wraps a Backend with a bounded, TTL-based read-through cache
// over GetNode. Entries expire after the TTL; the only early removal is
// the one Mknod makes for the path it creates. It never serves data past
// its TTL, so it cannot hide a write made through another path for longer
// than ttl. It does not cache GetChildren, Read, or Mknod: those already
// have their own residency policy in the inode manager, and caching them
// here would risk the exact listing-invalidation problem the design
// excludes.
type StatCache struct {
	Backend

	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]statCacheEntry
}

// WithStatCache returns a Backend identical to b except that GetNode
// results are cached for up to ttl. A ttl of zero disables caching (every
// call passes straight through).
func WithStatCache(b Backend, ttl time.Duration) *StatCache {
	return &StatCache{
		Backend: b,
		ttl:     ttl,
		entries: make(map[string]statCacheEntry),
	}
}

// sweep removes expired entries; called with mu held when the cache has
// grown past maxStatCacheEntries.
func (c *StatCache) sweep() {
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
}

func (c *StatCache) GetNode(ctx context.Context, path string) (Node, error) {
	if c.ttl <= 0 {
		return c.Backend.GetNode(ctx, path)
	}

	c.mu.Lock()
	entry, ok := c.entries[path]
	c.mu.Unlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.node, nil
	}

	node, err := c.Backend.GetNode(ctx, path)
	if err != nil {
		return Node{}, err
	}

	c.mu.Lock()
	if len(c.entries) >= maxStatCacheEntries {
		c.sweep()
	}
	c.entries[path] = statCacheEntry{node: node, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return node, nil
}

// Mknod invalidates path's cached entry in addition to delegating, so a
// node created through this same StatCache is fetched afresh by the next
// GetNode rather than served from an older cached entry. Failed GetNode
// lookups are never cached, so there is no negative entry to clear.
func (c *StatCache) Mknod(ctx context.Context, path string, kind Kind, perm uint32) error {
	err := c.Backend.Mknod(ctx, path, kind, perm)
	if err == nil {
		c.mu.Lock()
		delete(c.entries, path)
		c.mu.Unlock()
	}
	return err
}
