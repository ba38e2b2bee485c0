package telegram

import (
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gookit/slog"

	"nutribot/internal/notify"
)

const (
	toastCallbackPrefix  = "toast:"
	dialogCallbackPrefix = "dlg:"
)

func typeBadge(t notify.Type) string {
	switch t {
	case notify.TypeSuccess:
		return "✅"
	case notify.TypeError:
		return "❌"
	case notify.TypeWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

// toastRenderer materializes toasts as chat messages: Render sends one,
// Discard deletes it again. The mapping from toast id to message id lives
// here; the notify service knows nothing about Telegram.
type toastRenderer struct {
	s      sender
	chatID func() int64

	mu   sync.Mutex
	msgs map[int]int
}

func newToastRenderer(s sender, chatID func() int64) *toastRenderer {
	return &toastRenderer{s: s, chatID: chatID, msgs: make(map[int]int)}
}

func (r *toastRenderer) Render(t notify.Toast) {
	chatID := r.chatID()
	if chatID == 0 {
		slog.Warnf("toast %d dropped, no chat to render into", t.ID)
		return
	}
	text := typeBadge(t.Type) + " " + t.Title
	if t.Message != "" {
		text += "\n" + t.Message
	}
	out := tgbotapi.NewMessage(chatID, text)
	if t.Dismissible {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✕", toastCallbackPrefix+strconv.Itoa(t.ID)),
			),
		)
	}
	sent, err := r.s.Send(out)
	if err != nil {
		slog.Errorf("failed to render toast %d: %v", t.ID, err)
		return
	}
	r.mu.Lock()
	r.msgs[t.ID] = sent.MessageID
	r.mu.Unlock()
}

func (r *toastRenderer) Discard(t notify.Toast) {
	r.mu.Lock()
	msgID, ok := r.msgs[t.ID]
	delete(r.msgs, t.ID)
	r.mu.Unlock()
	if !ok {
		return
	}
	if _, err := r.s.Request(tgbotapi.NewDeleteMessage(r.chatID(), msgID)); err != nil {
		slog.Warnf("failed to discard toast %d: %v", t.ID, err)
	}
}

// dialogPresenter shows alert/confirm prompts as messages with inline
// keyboards. Button callbacks are routed back to the controller by the
// bot's callback handler.
type dialogPresenter struct {
	s      sender
	chatID func() int64

	mu   sync.Mutex
	msgs map[string]int
}

func newDialogPresenter(s sender, chatID func() int64) *dialogPresenter {
	return &dialogPresenter{s: s, chatID: chatID, msgs: make(map[string]int)}
}

func (p *dialogPresenter) Present(d notify.Dialog) error {
	chatID := p.chatID()
	if chatID == 0 {
		return fmt.Errorf("no chat to present dialog into")
	}
	text := typeBadge(d.Type) + " " + d.Title
	if d.Message != "" {
		text += "\n" + d.Message
	}
	out := tgbotapi.NewMessage(chatID, text)
	if d.Kind == notify.KindConfirm {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(d.ConfirmText, dialogCallbackPrefix+d.ID+":y"),
				tgbotapi.NewInlineKeyboardButtonData(d.CancelText, dialogCallbackPrefix+d.ID+":n"),
			),
		)
	} else {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(d.ButtonText, dialogCallbackPrefix+d.ID+":y"),
			),
		)
	}
	sent, err := p.s.Send(out)
	if err != nil {
		return fmt.Errorf("present dialog: %w", err)
	}
	p.mu.Lock()
	p.msgs[d.ID] = sent.MessageID
	p.mu.Unlock()
	return nil
}

func (p *dialogPresenter) Dismiss(d notify.Dialog) {
	p.mu.Lock()
	msgID, ok := p.msgs[d.ID]
	delete(p.msgs, d.ID)
	p.mu.Unlock()
	if !ok {
		return
	}
	if _, err := p.s.Request(tgbotapi.NewDeleteMessage(p.chatID(), msgID)); err != nil {
		slog.Warnf("failed to dismiss dialog %s: %v", d.ID, err)
	}
}
