package dedup

import (
	"testing"
	"time"
)

func TestSeenBefore(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewWithClock(15*time.Second, func() time.Time { return now })

	if s.SeenBefore("mem", -1, 10) {
		t.Fatal("first call must return false")
	}
	if !s.SeenBefore("mem", -1, 10) {
		t.Fatal("second call must return true")
	}

	// Different key dimensions are independent.
	if s.SeenBefore("photo", -1, 10) {
		t.Error("different category must be independent")
	}
	if s.SeenBefore("mem", -2, 10) {
		t.Error("different chat must be independent")
	}
	if s.SeenBefore("mem", -1, 11) {
		t.Error("different message must be independent")
	}
}

func TestSeenBeforeExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewWithClock(15*time.Second, func() time.Time { return now })

	if s.SeenBefore("mem", -1, 10) {
		t.Fatal("first call must return false")
	}

	now = now.Add(16 * time.Second)
	if s.SeenBefore("mem", -1, 10) {
		t.Fatal("call after TTL must return false again")
	}
	if !s.SeenBefore("mem", -1, 10) {
		t.Fatal("re-inserted entry must be seen")
	}
}

func TestExpiredEntriesSwept(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewWithClock(15*time.Second, func() time.Time { return now })

	for i := 0; i < 100; i++ {
		s.SeenBefore("mem", -1, i)
	}
	now = now.Add(time.Minute)
	s.SeenBefore("mem", -1, 1000)

	s.mu.Lock()
	n := len(s.entries)
	s.mu.Unlock()
	if n != 1 {
		t.Errorf("expected sweep to leave 1 entry, got %d", n)
	}
}
