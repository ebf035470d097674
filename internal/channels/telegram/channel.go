// Package telegram connects the bot to the Telegram Bot API via long polling
// and adapts updates into engine events.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mymmrac/telego"
	"golang.org/x/time/rate"

	"github.com/aldikteam/aldikbot/internal/anon"
	"github.com/aldikteam/aldikbot/internal/engine"
	"github.com/aldikteam/aldikbot/internal/store"
	"github.com/aldikteam/aldikbot/internal/trigger"
)

// GroupStore is the settings surface the channel needs. *store.Store
// implements it.
type GroupStore interface {
	EnsureGroup(ctx context.Context, chatID int64, title string) (store.GroupSettings, error)
	GetGroup(ctx context.Context, chatID int64) (*store.GroupSettings, error)
	GetGroupByAnonymousToken(ctx context.Context, token string) (*store.GroupSettings, error)
	SetBotEnabled(ctx context.Context, chatID int64, enabled bool) error
	SetAnonymousEnabled(ctx context.Context, chatID int64, enabled bool) error
	SetAIEnabled(ctx context.Context, chatID int64, enabled bool) error
	SetAIStyleUsername(ctx context.Context, chatID int64, username string) error
	EnsureAnonymousToken(ctx context.Context, chatID int64) (string, error)
}

// Handler is the engine surface the channel drives.
type Handler interface {
	HandleText(ctx context.Context, ev trigger.Event, chatTitle string) (engine.Action, error)
}

// Config carries the channel's knobs.
type Config struct {
	Token string
	Proxy string
}

// Channel is the Telegram transport. It owns the polling loop, command
// handling and outbound delivery.
type Channel struct {
	bot    *telego.Bot
	config Config

	engine  Handler
	groups  GroupStore
	anon    *anon.State
	history *chatHistory

	// sendLimiter spaces outbound API calls below Telegram's global rate
	// ceiling.
	sendLimiter *rate.Limiter

	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates the channel. The engine is attached later with SetEngine
// because the engine itself needs the channel as its Deliverer.
func New(cfg Config, groups GroupStore, anonState *anon.State) (*Channel, error) {
	var opts []telego.BotOption
	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			},
		}))
	}

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Channel{
		bot:         bot,
		config:      cfg,
		groups:      groups,
		anon:        anonState,
		history:     newChatHistory(historyDepth),
		sendLimiter: rate.NewLimiter(rate.Limit(20), 5),
	}, nil
}

// SetEngine attaches the response engine. Must be called before Start.
func (c *Channel) SetEngine(h Handler) {
	c.engine = h
}

// Username returns the bot's @handle without the prefix.
func (c *Channel) Username() string {
	return c.bot.Username()
}

// History exposes the in-memory message ring for AI prompt building.
func (c *Channel) History() *chatHistory {
	return c.history
}

// Start begins long polling. Returns once polling is established; updates
// are consumed on a background goroutine until Stop or ctx cancellation.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting telegram bot (polling mode)")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout: 30,
		AllowedUpdates: []string{
			"message",
			"my_chat_member",
		},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	slog.Info("telegram bot connected", "username", c.bot.Username())

	// Register bot menu commands with retry.
	go func() {
		for attempt := 1; attempt <= 3; attempt++ {
			if err := c.syncMenuCommands(pollCtx); err != nil {
				slog.Warn("failed to sync telegram menu commands", "error", err, "attempt", attempt)
				if attempt < 3 {
					select {
					case <-pollCtx.Done():
						return
					case <-time.After(time.Duration(attempt*5) * time.Second):
					}
				}
			} else {
				slog.Info("telegram menu commands synced")
				return
			}
		}
	}()

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed")
					return
				}
				switch {
				case update.Message != nil:
					c.handleMessage(pollCtx, update.Message)
				case update.MyChatMember != nil:
					c.handleMyChatMember(pollCtx, update.MyChatMember)
				default:
					slog.Debug("telegram update skipped", "update_id", update.UpdateID)
				}
			}
		}
	}()

	return nil
}

// Stop cancels polling and waits for the update goroutine so Telegram
// releases the getUpdates lock before a new instance starts.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping telegram bot")

	if c.pollCancel != nil {
		c.pollCancel()
	}
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
			slog.Info("telegram bot stopped")
		case <-time.After(10 * time.Second):
			slog.Warn("telegram polling goroutine did not exit within timeout")
		}
	}
	return nil
}

func (c *Channel) syncMenuCommands(ctx context.Context) error {
	return c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: "help", Description: "что умеет алдик"},
			{Command: "group_info", Description: "настройки группы"},
			{Command: "anon_link", Description: "ссылка для анонимок"},
		},
	})
}
