// Package anon tracks which group a private-chat user is about to send an
// anonymous message to. The mapping lives in memory only; a restart just
// means the user taps the link again.
package anon

import "sync"

// State maps a user id to the group chat their next private message targets.
type State struct {
	mu      sync.Mutex
	pending map[int64]int64
}

func NewState() *State {
	return &State{pending: make(map[int64]int64)}
}

// SetTarget arms the user's next private message for the given group.
func (s *State) SetTarget(userID, chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[userID] = chatID
}

// TakeTarget returns and clears the user's pending target. The second return
// is false when nothing was armed.
func (s *State) TakeTarget(userID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chatID, ok := s.pending[userID]
	if ok {
		delete(s.pending, userID)
	}
	return chatID, ok
}

// ClearTarget drops any pending target without consuming it.
func (s *State) ClearTarget(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, userID)
}
