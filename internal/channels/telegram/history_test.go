package telegram

import "testing"

func TestChatHistoryDepth(t *testing.T) {
	h := newChatHistory(3)
	for i := 0; i < 5; i++ {
		h.Record(-1, "u", string(rune('a'+i)))
	}
	lines := h.Recent(-1)
	if len(lines) != 3 {
		t.Fatalf("depth = %d", len(lines))
	}
	if lines[0].Text != "c" || lines[2].Text != "e" {
		t.Errorf("ring kept wrong lines: %v", lines)
	}
}

func TestChatHistoryByUser(t *testing.T) {
	h := newChatHistory(10)
	h.Record(-1, "Alpha", "один")
	h.Record(-1, "beta", "два")
	h.Record(-1, "alpha", "три")
	h.Record(-2, "alpha", "другой чат")

	got := h.ByUser(-1, "@alpha")
	if len(got) != 2 || got[0] != "один" || got[1] != "три" {
		t.Errorf("ByUser = %v", got)
	}
}

func TestChatHistorySkipsBlank(t *testing.T) {
	h := newChatHistory(10)
	h.Record(-1, "u", "   ")
	if len(h.Recent(-1)) != 0 {
		t.Error("blank line recorded")
	}
}
