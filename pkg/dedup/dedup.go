// Package dedup suppresses repeats of the same tray action or notification
// within a time window.
package dedup

import (
	"sync"
	"time"
)

// Gate admits one event per key per window. Safe for concurrent use.
type Gate struct {
	seen    map[string]time.Time
	now     func() time.Time
	mu      sync.Mutex
	window  time.Duration
	maxKeys int
}

// New creates a gate that remembers at most maxKeys keys.
func New(window time.Duration, maxKeys int) *Gate {
	if maxKeys < 1 {
		maxKeys = 1
	}
	return &Gate{
		seen:    make(map[string]time.Time),
		now:     time.Now,
		window:  window,
		maxKeys: maxKeys,
	}
}

// Allow reports whether an event for key should go ahead now.
// An event within window of the last admitted one for the same key is refused.
func (g *Gate) Allow(key string) bool {
	return g.AllowAt(key, g.now())
}

// AllowAt is Allow with an explicit event time.
func (g *Gate) AllowAt(key string, t time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.seen[key]; ok && t.Sub(last) < g.window {
		return false
	}

	if _, ok := g.seen[key]; !ok && len(g.seen) >= g.maxKeys {
		g.evictLocked(t)
	}
	g.seen[key] = t
	return true
}

// evictLocked drops expired keys, or the oldest key if none have expired.
func (g *Gate) evictLocked(t time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, ts := range g.seen {
		if t.Sub(ts) >= g.window {
			delete(g.seen, k)
			continue
		}
		if oldestKey == "" || ts.Before(oldest) {
			oldestKey, oldest = k, ts
		}
	}
	if len(g.seen) >= g.maxKeys && oldestKey != "" {
		delete(g.seen, oldestKey)
	}
}
