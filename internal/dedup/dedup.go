// Package dedup prevents double-processing of one inbound message when the
// transport redelivers it or several handlers match it.
package dedup

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is how long a processed message stays remembered.
const DefaultTTL = 15 * time.Second

// Suppressor is a short-TTL set keyed by (category, chat, message).
// Safe for concurrent use.
type Suppressor struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]time.Time
}

// New creates a Suppressor with the default TTL and wall clock.
func New() *Suppressor {
	return NewWithClock(DefaultTTL, time.Now)
}

// NewWithClock creates a Suppressor with an injected clock for tests.
func NewWithClock(ttl time.Duration, now func() time.Time) *Suppressor {
	return &Suppressor{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]time.Time),
	}
}

// SeenBefore reports whether (category, chatID, messageID) was already
// processed within the TTL, inserting it atomically when it was not.
// Expired entries are swept on every call — no background timer.
func (s *Suppressor) SeenBefore(category string, chatID int64, messageID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, seenAt := range s.entries {
		if now.Sub(seenAt) > s.ttl {
			delete(s.entries, k)
		}
	}

	key := fmt.Sprintf("%s:%d:%d", category, chatID, messageID)
	if _, ok := s.entries[key]; ok {
		return true
	}
	s.entries[key] = now
	return false
}
