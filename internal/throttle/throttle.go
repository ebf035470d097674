// Package throttle gates low-frequency "easter egg" replies: a keyed counter
// fires once every N..M occurrences, with N..M redrawn after each firing.
package throttle

import (
	"math/rand"
	"sync"
	"time"
)

// idleEviction is how long an untouched counter survives.
const idleEviction = 24 * time.Hour

type counter struct {
	count    int
	target   int
	lastSeen time.Time
}

// Gate maintains per-key occurrence counters with a randomized firing
// target drawn uniformly from [low, high]. Safe for concurrent use.
type Gate struct {
	mu      sync.Mutex
	low     int
	high    int
	rng     *rand.Rand
	now     func() time.Time
	entries map[string]*counter
}

// New creates a Gate firing every low..high occurrences (inclusive).
func New(low, high int, rng *rand.Rand) *Gate {
	return NewWithClock(low, high, rng, time.Now)
}

// NewWithClock creates a Gate with an injected clock for tests.
func NewWithClock(low, high int, rng *rand.Rand, now func() time.Time) *Gate {
	if high < low {
		high = low
	}
	return &Gate{
		low:     low,
		high:    high,
		rng:     rng,
		now:     now,
		entries: make(map[string]*counter),
	}
}

// ShouldFire increments the counter for key and reports whether the gate
// fires. On firing, the counter resets with a fresh random target. Counters
// idle beyond 24h are evicted lazily on access.
func (g *Gate) ShouldFire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, c := range g.entries {
		if now.Sub(c.lastSeen) > idleEviction {
			delete(g.entries, k)
		}
	}

	c, ok := g.entries[key]
	if !ok {
		c = &counter{target: g.drawTarget()}
		g.entries[key] = c
	}
	c.lastSeen = now
	c.count++

	if c.count >= c.target {
		c.count = 0
		c.target = g.drawTarget()
		return true
	}
	return false
}

func (g *Gate) drawTarget() int {
	return g.low + g.rng.Intn(g.high-g.low+1)
}
