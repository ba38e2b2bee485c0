// Package telegram is the UI surface of the bot: it turns updates into
// state-container operations and renders results, toasts and dialogs back
// into the chat.
package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gookit/slog"

	"nutribot/internal/auth"
	"nutribot/internal/chat"
	"nutribot/internal/gateway"
	"nutribot/internal/notify"
	"nutribot/internal/prefs"
	"nutribot/internal/profile"
	"nutribot/internal/session"
)

const newChatCallback = "newchat"

type Deps struct {
	Auth        *auth.Service
	Session     *session.Store
	Chats       *chat.Store
	Profile     *profile.Store
	Prefs       *prefs.Store
	Gateway     *gateway.Client
	DownloadDir string
	AdminUserID int64
}

type Bot struct {
	api  *tgbotapi.BotAPI
	s    sender
	deps Deps

	toasts  *notify.Service
	dialogs *notify.Controller

	// last chat the user talked from; toasts and reminders go here
	activeChat atomic.Int64
}

func New(botToken string, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	b := newWithSender(botAPISender{api: api}, deps)
	b.api = api
	return b, nil
}

func newWithSender(s sender, deps Deps) *Bot {
	b := &Bot{s: s, deps: deps}
	b.toasts = notify.NewService(newToastRenderer(s, b.notifyChatID))
	b.dialogs = notify.NewController(newDialogPresenter(s, b.notifyChatID))
	return b
}

// Toasts exposes the notification service so other components (the
// reminder scheduler, the 401 hook) can raise toasts through the bot.
func (b *Bot) Toasts() *notify.Service { return b.toasts }

func (b *Bot) notifyChatID() int64 {
	if id := b.activeChat.Load(); id != 0 {
		return id
	}
	return b.deps.AdminUserID
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			// handlers may block on a dialog until its callback arrives,
			// so every update gets its own goroutine
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleIncomingMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !b.deps.Auth.IsAllowed(msg.From.ID) {
		slog.Warnf("unauthorized access attempt by user %d (@%s)", msg.From.ID, msg.From.UserName)
		b.sendMessage(msg.Chat.ID, "You are not on the allowlist for this bot. Ask the owner to add your id: "+strconv.FormatInt(msg.From.ID, 10))
		return
	}
	b.activeChat.Store(msg.Chat.ID)

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	b.handleChatMessage(ctx, msg.Chat.ID, msg.Text)
}

func (b *Bot) handleChatMessage(ctx context.Context, chatID int64, text string) {
	if !b.deps.Session.IsAuthenticated() {
		b.toasts.Warning("Not logged in", "Use /login <email> <password> first.")
		return
	}
	b.sendTyping(chatID)

	err := b.deps.Chats.SendMessage(ctx, text)
	if err != nil {
		slog.Errorf("send message failed: %v", err)
	}
	// the container appended either the reply or a synthesized error
	// message; render whichever it was
	cur, ok := b.deps.Chats.Current()
	if !ok || len(cur.Messages) == 0 {
		return
	}
	last := cur.Messages[len(cur.Messages)-1]

	out := tgbotapi.NewMessage(chatID, last.Content)
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("New chat", newChatCallback),
		),
	)
	if _, err := b.s.Send(out); err != nil {
		slog.Errorf("failed to send reply: %v", err)
	}
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		slog.Warnf("failed to answer callback: %v", err)
	}
	switch {
	case cb.Data == newChatCallback:
		b.deps.Chats.CreateConversation("")
		b.toasts.Info("New chat", "Context cleared, ask away.")
	case strings.HasPrefix(cb.Data, toastCallbackPrefix):
		id, err := strconv.Atoi(strings.TrimPrefix(cb.Data, toastCallbackPrefix))
		if err != nil {
			return
		}
		b.toasts.Remove(id)
	case strings.HasPrefix(cb.Data, dialogCallbackPrefix):
		rest := strings.TrimPrefix(cb.Data, dialogCallbackPrefix)
		idx := strings.LastIndex(rest, ":")
		if idx < 0 {
			return
		}
		b.dialogs.Resolve(rest[:idx], rest[idx+1:] == "y")
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		slog.Errorf("failed to send message: %v", err)
	}
}

func (b *Bot) sendTyping(chatID int64) {
	if _, err := b.s.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		slog.Warnf("failed to send typing action: %v", err)
	}
}
