package telegram

import (
	"strings"
	"sync"

	"github.com/aldikteam/aldikbot/internal/ai"
)

// historyDepth is how many recent lines are kept per chat for AI prompts.
const historyDepth = 50

// chatHistory is a per-chat ring of recent group messages. It feeds the AI
// style prompts; nothing here is persisted.
type chatHistory struct {
	mu    sync.Mutex
	depth int
	chats map[int64][]ai.HistoryItem
}

func newChatHistory(depth int) *chatHistory {
	return &chatHistory{
		depth: depth,
		chats: make(map[int64][]ai.HistoryItem),
	}
}

// Record appends one line, evicting the oldest beyond the depth.
func (h *chatHistory) Record(chatID int64, username, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	lines := append(h.chats[chatID], ai.HistoryItem{Username: username, Text: text})
	if len(lines) > h.depth {
		lines = lines[len(lines)-h.depth:]
	}
	h.chats[chatID] = lines
}

// Recent returns the chat's lines, oldest first.
func (h *chatHistory) Recent(chatID int64) []ai.HistoryItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	lines := h.chats[chatID]
	out := make([]ai.HistoryItem, len(lines))
	copy(out, lines)
	return out
}

// ByUser returns the chat's lines written by username, oldest first.
func (h *chatHistory) ByUser(chatID int64, username string) []string {
	username = strings.TrimPrefix(username, "@")
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []string
	for _, line := range h.chats[chatID] {
		if strings.EqualFold(line.Username, username) {
			out = append(out, line.Text)
		}
	}
	return out
}
