// Package engine turns classified group messages into outbound actions. It
// owns the response pipeline: dedup, throttling, per-group settings gates,
// media selection and delivery retries. Transport stays in the channel layer.
package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/aldikteam/aldikbot/internal/ai"
	"github.com/aldikteam/aldikbot/internal/anon"
	"github.com/aldikteam/aldikbot/internal/dedup"
	"github.com/aldikteam/aldikbot/internal/memes"
	"github.com/aldikteam/aldikbot/internal/store"
	"github.com/aldikteam/aldikbot/internal/texts"
	"github.com/aldikteam/aldikbot/internal/throttle"
	"github.com/aldikteam/aldikbot/internal/trigger"
)

// Action reports what the engine did with one message.
type Action string

const (
	NoOp         Action = "noop"
	SentText     Action = "sent_text"
	SentMedia    Action = "sent_media"
	SentFallback Action = "sent_fallback"
)

// SettingsStore is the per-group settings surface the engine needs.
type SettingsStore interface {
	EnsureGroup(ctx context.Context, chatID int64, title string) (store.GroupSettings, error)
	EnsureAnonymousToken(ctx context.Context, chatID int64) (string, error)
}

// HistoryStore is the meme send-history surface the engine needs.
type HistoryStore interface {
	RecentCandidateIDs(ctx context.Context, chatID int64, since time.Time) (map[string]bool, error)
	RecordSent(ctx context.Context, chatID int64, candidateID string, at time.Time) error
}

// Deliverer sends outbound messages. Implemented by the telegram channel;
// tests use a fake.
type Deliverer interface {
	SendText(ctx context.Context, chatID int64, text string) error
	ReplyText(ctx context.Context, chatID int64, messageID int, text string) error
	SendMedia(ctx context.Context, chatID int64, c memes.Candidate) error
	SendAnimation(ctx context.Context, chatID int64, fileID string) error
	SendVoice(ctx context.Context, chatID int64, fileID string) error
}

// StyleReplier generates AI style replies. Implemented by the ai package.
type StyleReplier interface {
	GenerateStyleReply(ctx context.Context, userMessage, styleUsername string, history []ai.HistoryItem, styleExamples []string) string
	FallbackText() string
}

// ChatHistory exposes the channel's in-memory message ring for AI prompts.
type ChatHistory interface {
	Recent(chatID int64) []ai.HistoryItem
	ByUser(chatID int64, username string) []string
}

// Config carries the engine's static knobs.
type Config struct {
	BotUsername string

	// SpecialSenderHandle replying to SpecialTargetHandle gets a canned
	// reply regardless of other triggers.
	SpecialSenderHandle string
	SpecialTargetHandle string

	// DecorationFileID is the animation for the decoration trigger;
	// ModeratorVoiceFileID is the voice note for the moderator word.
	// Either may be empty.
	DecorationFileID     string
	ModeratorVoiceFileID string

	PhotoFreshness time.Duration
	VideoFreshness time.Duration
	SadFreshness   time.Duration
}

func (c *Config) applyDefaults() {
	if c.PhotoFreshness <= 0 {
		c.PhotoFreshness = 12 * time.Hour
	}
	if c.VideoFreshness <= 0 {
		c.VideoFreshness = 12 * time.Hour
	}
	if c.SadFreshness <= 0 {
		c.SadFreshness = 7 * 24 * time.Hour
	}
}

// Deps are the engine's collaborators.
type Deps struct {
	Settings SettingsStore
	History  HistoryStore
	Deliver  Deliverer

	PhotoSources []memes.Source
	VideoSources []memes.Source
	SadSources   []memes.Source

	// Style and Chat may be nil; AI replies then fall back to canned pools.
	Style StyleReplier
	Chat  ChatHistory
}

// Engine is the response pipeline. Safe for concurrent use.
type Engine struct {
	cfg  Config
	deps Deps

	suppressor *dedup.Suppressor
	nameGate   *throttle.Gate
	vowelGate  *throttle.Gate

	now func() time.Time

	mu  sync.Mutex
	rng *rand.Rand

	decorationWarn sync.Once
}

// New creates an Engine. rng drives all randomized selection and must not be
// shared with another consumer.
func New(cfg Config, deps Deps, rng *rand.Rand) *Engine {
	return NewWithClock(cfg, deps, rng, time.Now)
}

// NewWithClock creates an Engine with an injected clock for tests.
func NewWithClock(cfg Config, deps Deps, rng *rand.Rand, now func() time.Time) *Engine {
	cfg.applyDefaults()
	return &Engine{
		cfg:        cfg,
		deps:       deps,
		suppressor: dedup.NewWithClock(dedup.DefaultTTL, now),
		nameGate:   throttle.NewWithClock(2, 4, rand.New(rand.NewSource(rng.Int63())), now),
		vowelGate:  throttle.NewWithClock(10, 15, rand.New(rand.NewSource(rng.Int63())), now),
		now:        now,
		rng:        rng,
	}
}

// HandleText processes one inbound group message end to end.
func (e *Engine) HandleText(ctx context.Context, ev trigger.Event, chatTitle string) (Action, error) {
	settings, err := e.deps.Settings.EnsureGroup(ctx, ev.ChatID, chatTitle)
	if err != nil {
		return NoOp, err
	}

	// The special-user gate runs alongside classification: the same message
	// can earn both the canned reply and its category response.
	specialSent := false
	if trigger.IsSpecialUserReply(ev, e.cfg.SpecialSenderHandle, e.cfg.SpecialTargetHandle) &&
		settings.BotEnabled &&
		!e.suppressor.SeenBefore(string(trigger.SpecialUserReply), ev.ChatID, ev.MessageID) {
		if err := e.deps.Deliver.ReplyText(ctx, ev.ChatID, ev.MessageID, e.pick(texts.SpecialUserResponses)); err != nil {
			slog.Warn("special reply failed", "chat", ev.ChatID, "error", err)
		} else {
			specialSent = true
		}
	}

	action, err := e.respond(ctx, ev, settings)
	if specialSent && action == NoOp && err == nil {
		return SentText, nil
	}
	return action, err
}

func (e *Engine) respond(ctx context.Context, ev trigger.Event, settings store.GroupSettings) (Action, error) {
	cat := trigger.Classify(ev)
	if cat == trigger.None {
		return NoOp, nil
	}
	// Dedup runs before the enable gate so a redelivered update stays
	// suppressed even if the bot is toggled on in between.
	if e.suppressor.SeenBefore(string(cat), ev.ChatID, ev.MessageID) {
		return NoOp, nil
	}
	if !settings.BotEnabled {
		return NoOp, nil
	}

	switch cat {
	case trigger.MediaPhotoRequest:
		return e.respondMedia(ctx, ev.ChatID, e.deps.PhotoSources, e.cfg.PhotoFreshness)
	case trigger.MediaVideoRequest:
		return e.respondMedia(ctx, ev.ChatID, e.deps.VideoSources, e.cfg.VideoFreshness)
	case trigger.SadMediaRequest:
		return e.respondMedia(ctx, ev.ChatID, e.deps.SadSources, e.cfg.SadFreshness)
	case trigger.DecorationTrigger:
		return e.respondDecoration(ctx, ev.ChatID)
	case trigger.StretchedVowelTrigger:
		if !e.vowelGate.ShouldFire(chatKey(ev.ChatID)) {
			return NoOp, nil
		}
		return e.sendText(ctx, ev.ChatID, e.pick(texts.StretchedVowelResponses))
	case trigger.SorrowTrigger:
		return e.sendText(ctx, ev.ChatID, e.pick(texts.SorrowResponses))
	case trigger.GreetingTrigger:
		return e.sendText(ctx, ev.ChatID, e.pick(texts.GreetingResponses))
	case trigger.DecisionTrigger:
		return e.sendText(ctx, ev.ChatID, e.pick(texts.DecisionResponses))
	case trigger.IdentityQuery:
		if err := e.deps.Deliver.ReplyText(ctx, ev.ChatID, ev.MessageID, e.pick(texts.WhoAmIResponses)); err != nil {
			return NoOp, err
		}
		return SentText, nil
	case trigger.AnonLinkRequest:
		return e.respondAnonLink(ctx, ev.ChatID, settings)
	case trigger.NameMention:
		return e.respondMention(ctx, ev, settings)
	case trigger.ModeratorWord:
		return e.respondModerator(ctx, ev.ChatID)
	}
	return NoOp, nil
}

// candidatePoolLimit caps how many fresh candidates a request may try before
// giving up. Past the first twenty the long tail is junk anyway.
const candidatePoolLimit = 20

// respondMedia sends a wait line, aggregates candidates, filters against the
// chat's freshness window and tries random candidates until one delivers.
func (e *Engine) respondMedia(ctx context.Context, chatID int64, sources []memes.Source, window time.Duration) (Action, error) {
	if err := e.deps.Deliver.SendText(ctx, chatID, e.pick(texts.WaitResponses)); err != nil {
		return NoOp, err
	}

	candidates := memes.Aggregate(ctx, sources)
	recent, err := e.deps.History.RecentCandidateIDs(ctx, chatID, e.now().Add(-window))
	if err != nil {
		slog.Warn("history lookup failed, skipping freshness filter", "chat", chatID, "error", err)
		recent = nil
	}
	pool := memes.FilterFresh(candidates, recent)
	// Aggregate sorts by popularity, so truncating keeps the best ones.
	if len(pool) > candidatePoolLimit {
		pool = pool[:candidatePoolLimit]
	}

	for len(pool) > 0 {
		i := e.intn(len(pool))
		c := pool[i]
		pool = append(pool[:i], pool[i+1:]...)

		if err := e.deps.Deliver.SendMedia(ctx, chatID, c); err != nil {
			slog.Warn("media delivery failed, trying next candidate",
				"chat", chatID, "candidate", c.ID, "source", c.Source, "error", err)
			continue
		}
		if err := e.deps.History.RecordSent(ctx, chatID, c.ID, e.now()); err != nil {
			slog.Warn("history record failed", "chat", chatID, "candidate", c.ID, "error", err)
		}
		return SentMedia, nil
	}

	if err := e.deps.Deliver.SendText(ctx, chatID, texts.NothingFoundText); err != nil {
		return NoOp, err
	}
	return SentFallback, nil
}

func (e *Engine) respondDecoration(ctx context.Context, chatID int64) (Action, error) {
	if e.cfg.DecorationFileID == "" {
		e.decorationWarn.Do(func() {
			slog.Warn("decoration animation not configured, trigger disabled")
		})
		return NoOp, nil
	}
	if err := e.deps.Deliver.SendAnimation(ctx, chatID, e.cfg.DecorationFileID); err != nil {
		return NoOp, err
	}
	return SentMedia, nil
}

func (e *Engine) respondAnonLink(ctx context.Context, chatID int64, settings store.GroupSettings) (Action, error) {
	if !settings.AnonymousEnabled {
		return e.sendText(ctx, chatID, texts.AnonDisabledText)
	}
	token, err := e.deps.Settings.EnsureAnonymousToken(ctx, chatID)
	if err != nil {
		return NoOp, err
	}
	return e.sendText(ctx, chatID, anon.DeepLink(e.cfg.BotUsername, token))
}

func (e *Engine) respondMention(ctx context.Context, ev trigger.Event, settings store.GroupSettings) (Action, error) {
	if !e.nameGate.ShouldFire(chatUserKey(ev.ChatID, ev.SenderID)) {
		return NoOp, nil
	}

	text := ""
	if settings.AIEnabled && settings.AIStyleUsername != "" && e.deps.Style != nil {
		var history []ai.HistoryItem
		var examples []string
		if e.deps.Chat != nil {
			history = e.deps.Chat.Recent(ev.ChatID)
			examples = e.deps.Chat.ByUser(ev.ChatID, settings.AIStyleUsername)
		}
		text = e.deps.Style.GenerateStyleReply(ctx, ev.RawText, settings.AIStyleUsername, history, examples)
	}
	if text == "" {
		text = e.pick(texts.NameResponses)
	}

	if err := e.deps.Deliver.ReplyText(ctx, ev.ChatID, ev.MessageID, text); err != nil {
		return NoOp, err
	}
	return SentText, nil
}

// respondModerator answers the moderator word with a 50/50 split between a
// canned line and a voice note, degrading to text when no voice is set.
func (e *Engine) respondModerator(ctx context.Context, chatID int64) (Action, error) {
	useVoice := e.cfg.ModeratorVoiceFileID != "" && e.intn(2) == 0
	if useVoice {
		if err := e.deps.Deliver.SendVoice(ctx, chatID, e.cfg.ModeratorVoiceFileID); err != nil {
			return NoOp, err
		}
		return SentMedia, nil
	}
	return e.sendText(ctx, chatID, e.pick(texts.ModeratorResponses))
}

func (e *Engine) sendText(ctx context.Context, chatID int64, text string) (Action, error) {
	if err := e.deps.Deliver.SendText(ctx, chatID, text); err != nil {
		return NoOp, err
	}
	return SentText, nil
}

func (e *Engine) pick(pool []string) string {
	return pool[e.intn(len(pool))]
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}

func chatKey(chatID int64) string {
	return "chat:" + itoa(chatID)
}

func chatUserKey(chatID, userID int64) string {
	return "chat:" + itoa(chatID) + ":user:" + itoa(userID)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
