package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/aldikteam/aldikbot/internal/anon"
	"github.com/aldikteam/aldikbot/internal/texts"
)

// handleGroupCommand dispatches /commands inside a group. Unknown commands
// are ignored so other bots in the chat can claim them.
func (c *Channel) handleGroupCommand(ctx context.Context, msg *telego.Message) {
	parts := strings.SplitN(msg.Text, " ", 2)
	cmd := strings.ToLower(strings.SplitN(parts[0], "@", 2)[0])
	arg := ""
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch cmd {
	case "/help":
		c.sendOrLog(ctx, chatID, texts.GroupHelpText)

	case "/group_info":
		c.commandGroupInfo(ctx, chatID, msg.Chat.Title)

	case "/bot_on", "/bot_off":
		c.adminToggle(ctx, chatID, userID, cmd == "/bot_on", c.groups.SetBotEnabled,
			"Алдик на месте, поехали", "Лан молчу, /bot_on деп жазсандар кайтып келем")

	case "/anon_on", "/anon_off":
		c.adminToggle(ctx, chatID, userID, cmd == "/anon_on", c.groups.SetAnonymousEnabled,
			"Анонка включен, /anon_link деп ссылка алндар", "Анонка выключен")

	case "/anon_link":
		c.commandAnonLink(ctx, chatID)

	case "/ai_on", "/ai_off":
		c.adminToggle(ctx, chatID, userID, cmd == "/ai_on", c.groups.SetAIEnabled,
			"АИ режим включен, /ai_style @user деп стиль корсетындер", "АИ режим выключен")

	case "/ai_style":
		c.commandAIStyle(ctx, chatID, userID, arg)

	case "/ai_status":
		c.commandAIStatus(ctx, chatID)
	}
}

func (c *Channel) commandGroupInfo(ctx context.Context, chatID int64, title string) {
	group, err := c.groups.EnsureGroup(ctx, chatID, title)
	if err != nil {
		slog.Warn("group info failed", "chat", chatID, "error", err)
		return
	}
	style := group.AIStyleUsername
	if style == "" {
		style = "жок"
	}
	c.sendOrLog(ctx, chatID, fmt.Sprintf(
		"Группа: %s\nБот: %s\nАнонка: %s\nАИ: %s\nАИ стиль: %s",
		group.Title, onOff(group.BotEnabled), onOff(group.AnonymousEnabled),
		onOff(group.AIEnabled), style))
}

func (c *Channel) commandAnonLink(ctx context.Context, chatID int64) {
	group, err := c.groups.GetGroup(ctx, chatID)
	if err != nil {
		slog.Warn("anon link failed", "chat", chatID, "error", err)
		return
	}
	if group == nil || !group.AnonymousEnabled {
		c.sendOrLog(ctx, chatID, texts.AnonDisabledText)
		return
	}
	token, err := c.groups.EnsureAnonymousToken(ctx, chatID)
	if err != nil {
		slog.Warn("anon token failed", "chat", chatID, "error", err)
		return
	}
	c.sendOrLog(ctx, chatID, "Мынау ссылка, анонимно жазгысы келгендер басындар:\n"+
		anon.DeepLink(c.Username(), token))
}

func (c *Channel) commandAIStyle(ctx context.Context, chatID, userID int64, arg string) {
	if !c.isAdmin(ctx, chatID, userID) {
		c.sendOrLog(ctx, chatID, adminOnlyText)
		return
	}
	if arg == "" || !strings.HasPrefix(arg, "@") {
		c.sendOrLog(ctx, chatID, "Былай жаз: /ai_style @username")
		return
	}
	if err := c.groups.SetAIStyleUsername(ctx, chatID, arg); err != nil {
		slog.Warn("set ai style failed", "chat", chatID, "error", err)
		return
	}
	c.sendOrLog(ctx, chatID, "Енды "+arg+" стилинде жауап берем")
}

func (c *Channel) commandAIStatus(ctx context.Context, chatID int64) {
	group, err := c.groups.GetGroup(ctx, chatID)
	if err != nil || group == nil {
		c.sendOrLog(ctx, chatID, "АИ режим выключен")
		return
	}
	if !group.AIEnabled {
		c.sendOrLog(ctx, chatID, "АИ режим выключен, /ai_on деп включить етындер")
		return
	}
	style := group.AIStyleUsername
	if style == "" {
		c.sendOrLog(ctx, chatID, "АИ включен но стиль жок, /ai_style @user деп корсетындер")
		return
	}
	c.sendOrLog(ctx, chatID, "АИ включен, @"+style+" стилинде жауап берем")
}

const adminOnlyText = "Сен админ емессын каям, бул команда админдер ушн"

// adminToggle runs one of the on/off settings commands with an admin check.
func (c *Channel) adminToggle(ctx context.Context, chatID, userID int64, enable bool,
	set func(context.Context, int64, bool) error, onText, offText string) {
	if !c.isAdmin(ctx, chatID, userID) {
		c.sendOrLog(ctx, chatID, adminOnlyText)
		return
	}
	if err := set(ctx, chatID, enable); err != nil {
		slog.Warn("settings update failed", "chat", chatID, "error", err)
		return
	}
	if enable {
		c.sendOrLog(ctx, chatID, onText)
	} else {
		c.sendOrLog(ctx, chatID, offText)
	}
}

// isAdmin checks the sender's member status, falling back to the admin list
// when the direct lookup fails.
func (c *Channel) isAdmin(ctx context.Context, chatID, userID int64) bool {
	member, err := c.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(chatID),
		UserID: userID,
	})
	if err == nil {
		status := member.MemberStatus()
		return status == telego.MemberStatusCreator || status == telego.MemberStatusAdministrator
	}

	admins, err := c.bot.GetChatAdministrators(ctx, &telego.GetChatAdministratorsParams{
		ChatID: tu.ID(chatID),
	})
	if err != nil {
		slog.Warn("admin check failed", "chat", chatID, "error", err)
		return false
	}
	for _, admin := range admins {
		if admin.MemberUser().ID == userID {
			return true
		}
	}
	return false
}

// isGroupMember reports whether the user is currently in the chat. Lookup
// failures count as not a member.
func (c *Channel) isGroupMember(ctx context.Context, chatID, userID int64) bool {
	member, err := c.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(chatID),
		UserID: userID,
	})
	if err != nil {
		slog.Warn("membership check failed", "chat", chatID, "error", err)
		return false
	}
	status := member.MemberStatus()
	return status != telego.MemberStatusLeft && status != telego.MemberStatusBanned
}

func onOff(v bool) string {
	if v {
		return "включен"
	}
	return "выключен"
}
