package telegram

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/aldikteam/aldikbot/internal/anon"
	"github.com/aldikteam/aldikbot/internal/engine"
	"github.com/aldikteam/aldikbot/internal/store"
	"github.com/aldikteam/aldikbot/internal/texts"
	"github.com/aldikteam/aldikbot/internal/trigger"
)

// anonAllowed reports whether a group may receive anonymous messages right
// now. A disabled bot suspends the anon flow along with everything else.
func anonAllowed(g *store.GroupSettings) bool {
	return g != nil && g.BotEnabled && g.AnonymousEnabled
}

func (c *Channel) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}

	switch msg.Chat.Type {
	case telego.ChatTypeGroup, telego.ChatTypeSupergroup:
		c.handleGroupMessage(ctx, msg)
	case telego.ChatTypePrivate:
		c.handlePrivateMessage(ctx, msg)
	}
}

func (c *Channel) handleGroupMessage(ctx context.Context, msg *telego.Message) {
	text := msg.Text
	if text == "" {
		return
	}
	if strings.HasPrefix(text, "/") {
		c.handleGroupCommand(ctx, msg)
		return
	}

	c.history.Record(msg.Chat.ID, senderName(msg.From), text)

	ev := trigger.NewEvent(text, msg.Chat.ID, msg.MessageID, msg.From.ID)
	ev.SenderUsername = msg.From.Username
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		ev.ReplyToUsername = msg.ReplyToMessage.From.Username
	}

	// Media requests block on scraping; never stall the polling loop.
	go func() {
		action, err := c.engine.HandleText(ctx, ev, msg.Chat.Title)
		if err != nil {
			slog.Warn("message handling failed", "chat", msg.Chat.ID, "error", err)
			return
		}
		if action != engine.NoOp {
			slog.Debug("message handled", "chat", msg.Chat.ID, "action", action)
		}
	}()
}

func (c *Channel) handlePrivateMessage(ctx context.Context, msg *telego.Message) {
	text := strings.TrimSpace(msg.Text)
	userID := msg.From.ID

	switch {
	case strings.HasPrefix(text, "/start"):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/start"))
		c.handlePrivateStart(ctx, userID, payload)
	case strings.HasPrefix(text, "/help"):
		c.sendOrLog(ctx, userID, texts.PrivateHelpText)
	case text != "":
		c.handleAnonMessage(ctx, msg, text)
	}
}

func (c *Channel) handlePrivateStart(ctx context.Context, userID int64, payload string) {
	token, ok := anon.ParseStartPayload(payload)
	if !ok {
		c.sendOrLog(ctx, userID, texts.PrivateStartText)
		return
	}

	group, err := c.groups.GetGroupByAnonymousToken(ctx, token)
	if err != nil {
		slog.Warn("anon token lookup failed", "error", err)
		return
	}
	if !anonAllowed(group) {
		c.anon.ClearTarget(userID)
		c.sendOrLog(ctx, userID, texts.AnonDisabledText)
		return
	}
	if !c.isGroupMember(ctx, group.ChatID, userID) {
		c.anon.ClearTarget(userID)
		c.sendOrLog(ctx, userID, "Сен ол группада жоксын каям, алдымен кос.")
		return
	}

	c.anon.SetTarget(userID, group.ChatID)
	c.sendOrLog(ctx, userID, texts.AnonPromptText)
}

// handleAnonMessage forwards an armed user's private text to their target
// group without any sender attribution.
func (c *Channel) handleAnonMessage(ctx context.Context, msg *telego.Message, text string) {
	userID := msg.From.ID
	chatID, ok := c.anon.TakeTarget(userID)
	if !ok {
		c.sendOrLog(ctx, userID, texts.PrivateHelpText)
		return
	}

	// Re-check the flags: an admin may have turned anon or the whole bot
	// off since the link was issued.
	group, err := c.groups.GetGroup(ctx, chatID)
	if err != nil || !anonAllowed(group) {
		c.sendOrLog(ctx, userID, texts.AnonDisabledText)
		return
	}

	if err := c.SendText(ctx, chatID, "Анонимка:\n"+text); err != nil {
		slog.Warn("anon delivery failed", "chat", chatID, "error", err)
		c.sendOrLog(ctx, userID, "Не получилось жбер, попробуй еще раз.")
		return
	}
	c.sendOrLog(ctx, userID, "Жбердым каям, анонимно кетты.")
}

// handleMyChatMember greets the group when the bot is added to it.
func (c *Channel) handleMyChatMember(ctx context.Context, ev *telego.ChatMemberUpdated) {
	oldStatus := ev.OldChatMember.MemberStatus()
	newStatus := ev.NewChatMember.MemberStatus()

	wasOut := oldStatus == telego.MemberStatusLeft || oldStatus == telego.MemberStatusBanned
	nowIn := newStatus == telego.MemberStatusMember || newStatus == telego.MemberStatusAdministrator
	if !wasOut || !nowIn {
		return
	}
	if ev.Chat.Type != telego.ChatTypeGroup && ev.Chat.Type != telego.ChatTypeSupergroup {
		return
	}

	if _, err := c.groups.EnsureGroup(ctx, ev.Chat.ID, ev.Chat.Title); err != nil {
		slog.Warn("ensure group on join failed", "chat", ev.Chat.ID, "error", err)
	}
	c.sendOrLog(ctx, ev.Chat.ID, texts.BotJoinText)
	slog.Info("joined group", "chat", ev.Chat.ID, "title", ev.Chat.Title)
}

func (c *Channel) sendOrLog(ctx context.Context, chatID int64, text string) {
	if err := c.SendText(ctx, chatID, text); err != nil {
		slog.Warn("send failed", "chat", chatID, "error", err)
	}
}

func senderName(u *telego.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}
