package telegram

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"huddle/internal/live"
)

// liveView renders live session frames into a single Telegram message,
// sent on the first push and edited in place afterwards.
type liveView struct {
	bot    *Bot
	chatID int64

	// onExpired lets the handler drop its bookkeeping when the session
	// idles out on its own
	onExpired func()

	mu        sync.Mutex
	messageID int
}

func newLiveView(bot *Bot, chatID int64, onExpired func()) *liveView {
	return &liveView{bot: bot, chatID: chatID, onExpired: onExpired}
}

// Push implements live.Surface.
func (v *liveView) Push(ctx context.Context, view live.View) error {
	text := renderScoreboard(view)
	keyboard := liveKeyboard(view)

	v.mu.Lock()
	messageID := v.messageID
	v.mu.Unlock()

	if messageID == 0 {
		sent, err := v.bot.SendMessageWithKeyboard(ctx, v.chatID, text, keyboard)
		if err != nil {
			return err
		}
		v.mu.Lock()
		v.messageID = sent
		v.mu.Unlock()
		return nil
	}

	return v.bot.EditMessageWithKeyboard(ctx, v.chatID, messageID, text, keyboard)
}

// Expired implements live.Surface: the idle timeout fired, so drop the
// controls and let the handler forget the session.
func (v *liveView) Expired(ctx context.Context) error {
	if v.onExpired != nil {
		v.onExpired()
	}
	return v.clearControls(ctx)
}

// clearControls removes the inline keyboard, leaving the last rendered
// frame as a plain message.
func (v *liveView) clearControls(ctx context.Context) error {
	v.mu.Lock()
	messageID := v.messageID
	v.mu.Unlock()

	if messageID == 0 {
		return nil
	}
	return v.bot.ClearKeyboard(ctx, v.chatID, messageID)
}

// liveKeyboard builds the control row(s) for a live frame. Pagination
// appears only when there is more than one page; the toggle label
// reflects the current auto-refresh state.
func liveKeyboard(view live.View) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	if view.Pages > 1 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀", "live:prev"),
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%d/%d", view.Page+1, view.Pages), "live:noop"),
			tgbotapi.NewInlineKeyboardButtonData("▶", "live:next"),
		))
	}

	toggle := "⏸ Pause"
	if !view.AutoRefresh {
		toggle = "▶ Resume"
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", "live:refresh"),
		tgbotapi.NewInlineKeyboardButtonData(toggle, "live:toggle"),
		tgbotapi.NewInlineKeyboardButtonData("✖ Stop", "live:stop"),
	))

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}
