package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"huddle/internal/adapters/fantasy"
	"huddle/internal/live"
	"huddle/pkg/errors"
)

const liveEndedNote = "This live view has ended. Send /live to start a new one."

// handleLive handles /live [league_id] — posts an auto-refreshing
// scoreboard with inline controls, replacing any live view already
// open in the chat.
func (h *Handler) handleLive(ctx context.Context, chatID, userID int64, args string) error {
	cfg, failMsg := h.resolveLeague(ctx, userID, args)
	if cfg == nil {
		return h.bot.SendMessage(ctx, chatID, failMsg)
	}

	if prior, ok := h.sessions.Get(chatID); ok {
		prior.Stop()
		if lv, isView := prior.Surface().(*liveView); isView {
			if err := lv.clearControls(ctx); err != nil {
				h.log.Debugw("Failed to clear replaced live view", "error", err)
			}
		}
		h.sessions.Release(chatID, prior.ID())
	}

	handle, err := h.snapshots.Connect(ctx, cfg)
	if err != nil {
		return h.replyHint(ctx, chatID, err)
	}

	var session *live.Session
	view := newLiveView(h.bot, chatID, func() {
		h.sessions.Release(chatID, session.ID())
	})
	session = live.NewSession(handle, view, h.liveCfg)

	if err := session.Start(ctx, true); err != nil {
		return h.replyHint(ctx, chatID, err)
	}

	h.sessions.Put(chatID, session)

	h.log.Infow("Live view opened",
		"telegram_id", userID,
		"league_id", cfg.LeagueID,
		"session_id", session.ID(),
	)
	return nil
}

// handleCallback routes inline-button presses on live views
func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.Message == nil || !strings.HasPrefix(cb.Data, "live:") {
		return h.bot.AnswerCallback(ctx, cb.ID, "")
	}

	action := strings.TrimPrefix(cb.Data, "live:")
	chatID := cb.Message.Chat.ID

	session, ok := h.sessions.Get(chatID)
	if !ok {
		// Buttons on a message whose session is long gone
		if err := h.bot.ClearKeyboard(ctx, chatID, cb.Message.MessageID); err != nil {
			h.log.Debugw("Failed to clear stale keyboard", "error", err)
		}
		return h.bot.AnswerCallback(ctx, cb.ID, liveEndedNote)
	}

	var err error
	note := ""

	switch action {
	case "refresh":
		err = session.ManualRefresh(ctx)
		note = "Refreshed"

	case "toggle":
		var enabled bool
		enabled, err = session.ToggleAutoRefresh(ctx)
		if enabled {
			note = "Auto-refresh on"
		} else {
			note = "Auto-refresh paused"
		}

	case "prev":
		err = session.PrevPage(ctx)

	case "next":
		err = session.NextPage(ctx)

	case "stop":
		session.Stop()
		h.sessions.Release(chatID, session.ID())
		if clearErr := h.bot.ClearKeyboard(ctx, chatID, cb.Message.MessageID); clearErr != nil {
			h.log.Debugw("Failed to clear keyboard on stop", "error", clearErr)
		}
		note = "Live view stopped"

	case "noop":

	default:
		h.log.Warnw("Unknown live callback action", "action", action)
	}

	if err != nil {
		if errors.Is(err, live.ErrStopped) {
			h.sessions.Release(chatID, session.ID())
			return h.bot.AnswerCallback(ctx, cb.ID, liveEndedNote)
		}
		h.log.Warnw("Live action failed",
			"action", action,
			"session_id", session.ID(),
			"error", err,
		)
		return h.bot.AnswerCallback(ctx, cb.ID, "⚠️ "+fantasy.Hint(err))
	}

	return h.bot.AnswerCallback(ctx, cb.ID, note)
}
