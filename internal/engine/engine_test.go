package engine

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/aldikteam/aldikbot/internal/ai"
	"github.com/aldikteam/aldikbot/internal/memes"
	"github.com/aldikteam/aldikbot/internal/store"
	"github.com/aldikteam/aldikbot/internal/texts"
	"github.com/aldikteam/aldikbot/internal/trigger"
)

type fakeSettings struct {
	settings store.GroupSettings
	token    string
}

func (f *fakeSettings) EnsureGroup(ctx context.Context, chatID int64, title string) (store.GroupSettings, error) {
	s := f.settings
	s.ChatID = chatID
	return s, nil
}

func (f *fakeSettings) EnsureAnonymousToken(ctx context.Context, chatID int64) (string, error) {
	return f.token, nil
}

type fakeHistory struct {
	recent   map[string]bool
	recorded []string
}

func (f *fakeHistory) RecentCandidateIDs(ctx context.Context, chatID int64, since time.Time) (map[string]bool, error) {
	return f.recent, nil
}

func (f *fakeHistory) RecordSent(ctx context.Context, chatID int64, candidateID string, at time.Time) error {
	f.recorded = append(f.recorded, candidateID)
	return nil
}

type fakeDeliverer struct {
	texts      []string
	replies    []string
	media      []memes.Candidate
	animations []string
	voices     []string

	failMedia map[string]bool
}

func (f *fakeDeliverer) SendText(ctx context.Context, chatID int64, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeDeliverer) ReplyText(ctx context.Context, chatID int64, messageID int, text string) error {
	f.replies = append(f.replies, text)
	return nil
}

func (f *fakeDeliverer) SendMedia(ctx context.Context, chatID int64, c memes.Candidate) error {
	if f.failMedia[c.ID] {
		return errors.New("delivery refused")
	}
	f.media = append(f.media, c)
	return nil
}

func (f *fakeDeliverer) SendAnimation(ctx context.Context, chatID int64, fileID string) error {
	f.animations = append(f.animations, fileID)
	return nil
}

func (f *fakeDeliverer) SendVoice(ctx context.Context, chatID int64, fileID string) error {
	f.voices = append(f.voices, fileID)
	return nil
}

type fakeSource struct{ items []memes.Candidate }

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context) ([]memes.Candidate, error) {
	return f.items, nil
}

type fakeStyle struct{ reply string }

func (f *fakeStyle) GenerateStyleReply(ctx context.Context, msg, user string, h []ai.HistoryItem, ex []string) string {
	return f.reply
}

func (f *fakeStyle) FallbackText() string { return "fallback" }

type testRig struct {
	engine   *Engine
	deliver  *fakeDeliverer
	history  *fakeHistory
	settings *fakeSettings
}

func newRig(t *testing.T, mutate func(*Config, *Deps, *fakeSettings)) *testRig {
	t.Helper()
	deliver := &fakeDeliverer{failMedia: map[string]bool{}}
	history := &fakeHistory{}
	settings := &fakeSettings{
		settings: store.GroupSettings{BotEnabled: true},
		token:    "tok123",
	}
	cfg := Config{BotUsername: "aldikbot"}
	deps := Deps{
		Settings: settings,
		History:  history,
		Deliver:  deliver,
		VideoSources: []memes.Source{&fakeSource{items: []memes.Candidate{
			{ID: "v1", Source: "fake", Kind: memes.KindVideo, MediaURL: "http://v/1"},
			{ID: "v2", Source: "fake", Kind: memes.KindVideo, MediaURL: "http://v/2"},
		}}},
	}
	if mutate != nil {
		mutate(&cfg, &deps, settings)
	}
	return &testRig{
		engine:   New(cfg, deps, rand.New(rand.NewSource(42))),
		deliver:  deliver,
		history:  history,
		settings: settings,
	}
}

func event(text string, messageID int) trigger.Event {
	return trigger.NewEvent(text, -100, messageID, 7)
}

func containsString(pool []string, want string) bool {
	for _, s := range pool {
		if s == want {
			return true
		}
	}
	return false
}

func TestVideoRequestDeliversMedia(t *testing.T) {
	rig := newRig(t, nil)

	action, err := rig.engine.HandleText(context.Background(), event("алдик видео", 1), "g")
	if err != nil {
		t.Fatal(err)
	}
	if action != SentMedia {
		t.Fatalf("action = %v, want media", action)
	}
	if len(rig.deliver.texts) != 1 || !containsString(texts.WaitResponses, rig.deliver.texts[0]) {
		t.Errorf("wait line = %v", rig.deliver.texts)
	}
	if len(rig.deliver.media) != 1 {
		t.Fatalf("media sent = %d", len(rig.deliver.media))
	}
	if len(rig.history.recorded) != 1 || rig.history.recorded[0] != rig.deliver.media[0].ID {
		t.Errorf("recorded = %v, sent %q", rig.history.recorded, rig.deliver.media[0].ID)
	}
}

func TestMediaRequestNeverAnswersWithPool(t *testing.T) {
	// A media request either delivers media or falls back, regardless of
	// source health.
	for name, sources := range map[string][]memes.Source{
		"working": {&fakeSource{items: []memes.Candidate{{ID: "x", Kind: memes.KindVideo}}}},
		"empty":   {&fakeSource{}},
		"none":    nil,
	} {
		t.Run(name, func(t *testing.T) {
			rig := newRig(t, func(cfg *Config, deps *Deps, s *fakeSettings) {
				deps.VideoSources = sources
			})
			action, err := rig.engine.HandleText(context.Background(), event("алдик видео", 1), "g")
			if err != nil {
				t.Fatal(err)
			}
			if action != SentMedia && action != SentFallback {
				t.Errorf("action = %v", action)
			}
			if len(rig.deliver.replies) != 0 {
				t.Errorf("media request must not produce a canned reply: %v", rig.deliver.replies)
			}
		})
	}
}

func TestMediaFallbackWhenAllStale(t *testing.T) {
	rig := newRig(t, nil)
	rig.history.recent = map[string]bool{"v1": true, "v2": true}

	action, err := rig.engine.HandleText(context.Background(), event("алдик видео", 1), "g")
	if err != nil {
		t.Fatal(err)
	}
	if action != SentFallback {
		t.Fatalf("action = %v, want fallback", action)
	}
	last := rig.deliver.texts[len(rig.deliver.texts)-1]
	if last != texts.NothingFoundText {
		t.Errorf("fallback text = %q", last)
	}
	if len(rig.history.recorded) != 0 {
		t.Errorf("fallback must not record history: %v", rig.history.recorded)
	}
}

func TestMediaDeliveryRetriesNextCandidate(t *testing.T) {
	rig := newRig(t, nil)
	rig.deliver.failMedia["v1"] = true

	action, err := rig.engine.HandleText(context.Background(), event("алдик видео", 1), "g")
	if err != nil {
		t.Fatal(err)
	}
	if action != SentMedia {
		t.Fatalf("action = %v", action)
	}
	if len(rig.deliver.media) != 1 || rig.deliver.media[0].ID != "v2" {
		t.Errorf("media = %v, want v2 after v1 refused", rig.deliver.media)
	}
	if len(rig.history.recorded) != 1 || rig.history.recorded[0] != "v2" {
		t.Errorf("recorded = %v", rig.history.recorded)
	}
}

// Retries stop at the top twenty candidates by popularity: when all of them
// refuse delivery the request falls back even if a less popular candidate
// would have worked.
func TestMediaRetryPoolCapped(t *testing.T) {
	var items []memes.Candidate
	rig := newRig(t, func(cfg *Config, deps *Deps, s *fakeSettings) {
		for i := 0; i < candidatePoolLimit+1; i++ {
			items = append(items, memes.Candidate{
				ID:         "c" + string(rune('a'+i)),
				Kind:       memes.KindVideo,
				MediaURL:   "http://v",
				Popularity: int64(100 - i),
			})
		}
		deps.VideoSources = []memes.Source{&fakeSource{items: items}}
	})
	for _, c := range items[:candidatePoolLimit] {
		rig.deliver.failMedia[c.ID] = true
	}

	action, err := rig.engine.HandleText(context.Background(), event("алдик видео", 1), "g")
	if err != nil {
		t.Fatal(err)
	}
	if action != SentFallback {
		t.Fatalf("action = %v, want fallback once the capped pool is exhausted", action)
	}
	if len(rig.deliver.media) != 0 {
		t.Errorf("candidate beyond the cap delivered: %v", rig.deliver.media)
	}
}

func TestBotDisabledSuppressesEverything(t *testing.T) {
	rig := newRig(t, func(cfg *Config, deps *Deps, s *fakeSettings) {
		s.settings.BotEnabled = false
	})

	for i, text := range []string{"алдик видео", "привет", "алдик"} {
		action, err := rig.engine.HandleText(context.Background(), event(text, i+1), "g")
		if err != nil {
			t.Fatal(err)
		}
		if action != NoOp {
			t.Errorf("disabled bot acted on %q: %v", text, action)
		}
	}
	if len(rig.deliver.texts)+len(rig.deliver.replies)+len(rig.deliver.media) != 0 {
		t.Error("disabled bot must send nothing")
	}
}

func TestDedupSameMessage(t *testing.T) {
	rig := newRig(t, nil)
	ev := event("привет", 5)

	if action, _ := rig.engine.HandleText(context.Background(), ev, "g"); action != SentText {
		t.Fatalf("first pass = %v", action)
	}
	if action, _ := rig.engine.HandleText(context.Background(), ev, "g"); action != NoOp {
		t.Errorf("redelivered message must be suppressed")
	}
}

// A message seen while the bot was disabled is still marked as seen: toggling
// the bot on must not let a redelivered update through.
func TestDedupRecordsWhileDisabled(t *testing.T) {
	rig := newRig(t, func(cfg *Config, deps *Deps, s *fakeSettings) {
		s.settings.BotEnabled = false
	})
	ev := event("привет", 9)

	if action, _ := rig.engine.HandleText(context.Background(), ev, "g"); action != NoOp {
		t.Fatalf("disabled bot acted: %v", action)
	}

	rig.settings.settings.BotEnabled = true
	if action, _ := rig.engine.HandleText(context.Background(), ev, "g"); action != NoOp {
		t.Errorf("redelivered message acted after enable: %v", action)
	}
	if len(rig.deliver.texts) != 0 {
		t.Errorf("texts = %v, want none", rig.deliver.texts)
	}

	if action, _ := rig.engine.HandleText(context.Background(), event("привет", 10), "g"); action != SentText {
		t.Errorf("fresh message after enable = %v, want text", action)
	}
}

func TestGreetingUsesPool(t *testing.T) {
	rig := newRig(t, nil)
	if _, err := rig.engine.HandleText(context.Background(), event("салам всем", 1), "g"); err != nil {
		t.Fatal(err)
	}
	if len(rig.deliver.texts) != 1 || !containsString(texts.GreetingResponses, rig.deliver.texts[0]) {
		t.Errorf("greeting reply = %v", rig.deliver.texts)
	}
}

func TestAnonLink(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		rig := newRig(t, func(cfg *Config, deps *Deps, s *fakeSettings) {
			s.settings.AnonymousEnabled = true
		})
		if _, err := rig.engine.HandleText(context.Background(), event("алдик дай ссылку анон", 1), "g"); err != nil {
			t.Fatal(err)
		}
		if len(rig.deliver.texts) != 1 || !strings.Contains(rig.deliver.texts[0], "anon_tok123") {
			t.Errorf("link = %v", rig.deliver.texts)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		rig := newRig(t, nil)
		if _, err := rig.engine.HandleText(context.Background(), event("алдик дай ссылку анон", 1), "g"); err != nil {
			t.Fatal(err)
		}
		if len(rig.deliver.texts) != 1 || rig.deliver.texts[0] != texts.AnonDisabledText {
			t.Errorf("reply = %v", rig.deliver.texts)
		}
	})
}

func TestMentionThrottled(t *testing.T) {
	rig := newRig(t, nil)

	fired := 0
	lastFired := false
	for i := 1; i <= 20; i++ {
		action, err := rig.engine.HandleText(context.Background(), event("алдик", i), "g")
		if err != nil {
			t.Fatal(err)
		}
		if action == SentText {
			if lastFired {
				t.Fatal("mention fired on consecutive messages")
			}
			fired++
			lastFired = true
		} else {
			lastFired = false
		}
	}
	if fired < 3 {
		t.Errorf("fired %d times over 20 mentions, want several", fired)
	}
	for _, reply := range rig.deliver.replies {
		if !containsString(texts.NameResponses, reply) {
			t.Errorf("mention reply %q not from pool", reply)
		}
	}
}

func TestMentionUsesAIWhenEnabled(t *testing.T) {
	rig := newRig(t, func(cfg *Config, deps *Deps, s *fakeSettings) {
		s.settings.AIEnabled = true
		s.settings.AIStyleUsername = "styleguy"
		deps.Style = &fakeStyle{reply: "ai ответ"}
	})

	for i := 1; i <= 10; i++ {
		if _, err := rig.engine.HandleText(context.Background(), event("алдик", i), "g"); err != nil {
			t.Fatal(err)
		}
	}
	if len(rig.deliver.replies) == 0 {
		t.Fatal("mention never fired")
	}
	for _, reply := range rig.deliver.replies {
		if reply != "ai ответ" {
			t.Errorf("reply = %q, want AI reply", reply)
		}
	}
}

func TestModeratorDeterministicWithSeed(t *testing.T) {
	rig := newRig(t, func(cfg *Config, deps *Deps, s *fakeSettings) {
		cfg.ModeratorVoiceFileID = "voice-1"
	})

	action, err := rig.engine.HandleText(context.Background(), event("модератор наказал", 1), "g")
	if err != nil {
		t.Fatal(err)
	}
	sentVoice := len(rig.deliver.voices) == 1
	sentText := len(rig.deliver.texts) == 1 && containsString(texts.ModeratorResponses, rig.deliver.texts[0])
	if sentVoice == sentText {
		t.Fatalf("want exactly one of voice/text, got voices=%v texts=%v",
			rig.deliver.voices, rig.deliver.texts)
	}
	if sentVoice && action != SentMedia {
		t.Errorf("voice note reported as %v, want media", action)
	}
	if sentText && action != SentText {
		t.Errorf("canned line reported as %v, want text", action)
	}
}

func TestModeratorWithoutVoiceFallsBackToText(t *testing.T) {
	rig := newRig(t, nil)
	for i := 1; i <= 5; i++ {
		if _, err := rig.engine.HandleText(context.Background(), event("модер", i), "g"); err != nil {
			t.Fatal(err)
		}
	}
	if len(rig.deliver.voices) != 0 {
		t.Errorf("no voice configured but voices sent: %v", rig.deliver.voices)
	}
	if len(rig.deliver.texts) != 5 {
		t.Errorf("texts = %d, want 5", len(rig.deliver.texts))
	}
}

func TestSpecialUserReply(t *testing.T) {
	rig := newRig(t, func(cfg *Config, deps *Deps, s *fakeSettings) {
		cfg.SpecialSenderHandle = "sender"
		cfg.SpecialTargetHandle = "target"
	})

	ev := event("просто текст без триггеров", 1)
	ev.SenderUsername = "Sender"
	ev.ReplyToUsername = "TARGET"

	action, err := rig.engine.HandleText(context.Background(), ev, "g")
	if err != nil {
		t.Fatal(err)
	}
	if action != SentText {
		t.Fatalf("action = %v", action)
	}
	if len(rig.deliver.replies) != 1 || !containsString(texts.SpecialUserResponses, rig.deliver.replies[0]) {
		t.Errorf("reply = %v", rig.deliver.replies)
	}
}

// The special-user reply does not consume the message: a trigger in the same
// text still gets its normal response.
func TestSpecialUserReplyCoexistsWithTriggers(t *testing.T) {
	rig := newRig(t, func(cfg *Config, deps *Deps, s *fakeSettings) {
		cfg.SpecialSenderHandle = "sender"
		cfg.SpecialTargetHandle = "target"
	})

	ev := event("алдик видео", 1)
	ev.SenderUsername = "sender"
	ev.ReplyToUsername = "target"

	action, err := rig.engine.HandleText(context.Background(), ev, "g")
	if err != nil {
		t.Fatal(err)
	}
	if action != SentMedia {
		t.Fatalf("action = %v, want media alongside the canned reply", action)
	}
	if len(rig.deliver.replies) != 1 || !containsString(texts.SpecialUserResponses, rig.deliver.replies[0]) {
		t.Errorf("special reply = %v", rig.deliver.replies)
	}
	if len(rig.deliver.media) != 1 {
		t.Errorf("media sent = %d, want 1", len(rig.deliver.media))
	}
}

func TestDecoration(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		rig := newRig(t, nil)
		action, err := rig.engine.HandleText(context.Background(), event("паршк", 1), "g")
		if err != nil {
			t.Fatal(err)
		}
		if action != NoOp || len(rig.deliver.animations) != 0 {
			t.Errorf("unconfigured decoration must no-op, got %v %v", action, rig.deliver.animations)
		}
	})

	t.Run("configured", func(t *testing.T) {
		rig := newRig(t, func(cfg *Config, deps *Deps, s *fakeSettings) {
			cfg.DecorationFileID = "anim-1"
		})
		action, err := rig.engine.HandleText(context.Background(), event("паршк", 1), "g")
		if err != nil {
			t.Fatal(err)
		}
		if action != SentMedia || len(rig.deliver.animations) != 1 {
			t.Errorf("action = %v, animations = %v", action, rig.deliver.animations)
		}
	})
}

func TestPlainTextNoOp(t *testing.T) {
	rig := newRig(t, nil)
	action, err := rig.engine.HandleText(context.Background(), event("обычное сообщение ни о чем", 1), "g")
	if err != nil {
		t.Fatal(err)
	}
	if action != NoOp {
		t.Errorf("action = %v", action)
	}
}
