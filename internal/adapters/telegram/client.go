package telegram

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"huddle/pkg/errors"
	"huddle/pkg/logger"
)

// Bot wraps the Telegram API client with rate limiting and lifecycle
// management. All outbound calls go through one limiter so a busy chat
// cannot push the bot over Telegram's global send budget.
type Bot struct {
	api           *tgbotapi.BotAPI
	log           *logger.Logger
	mu            sync.RWMutex
	running       bool
	msgHandler    func(tgbotapi.Update)
	rateLimiter   *rate.Limiter
	updateTimeout int
}

// Config contains Telegram bot configuration
type Config struct {
	Token          string
	Debug          bool
	Timeout        int // Update long-poll timeout in seconds
	HTTPTimeout    time.Duration
	RateLimitBurst int // Rate limiter burst (default: 30)
	RateLimitRate  int // Rate limiter per second (default: 20)
}

// NewBot creates a new Telegram bot instance
func NewBot(cfg Config, log *logger.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "telegram bot token is required")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 60
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 30 // Telegram allows bursts
	}
	if cfg.RateLimitRate == 0 {
		cfg.RateLimitRate = 20 // Conservative: 20 msg/sec (Telegram limit is 30)
	}

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}

	api.Debug = cfg.Debug

	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		log:           log.With("component", "telegram_bot"),
		rateLimiter:   rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst),
		updateTimeout: cfg.Timeout,
	}, nil
}

// Username returns the bot account's username
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// IsRunning reports whether the polling loop is active
func (b *Bot) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Start begins polling for updates and blocks until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.mu.Unlock()

	b.log.Infow("Starting Telegram bot in polling mode...")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.updateTimeout

	updates := b.api.GetUpdatesChan(u)

	b.log.Infow("Telegram bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.log.Infow("Telegram bot stopping (context cancelled)")
			b.Stop()
			return nil

		case update := <-updates:
			// Handle update in goroutine to avoid blocking the poll loop
			go b.handleUpdate(update)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}

	b.api.StopReceivingUpdates()
	b.running = false
	b.log.Infow("Telegram bot stopped")
}

// SetMessageHandler registers a handler for incoming updates
func (b *Bot) SetMessageHandler(handler func(tgbotapi.Update)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgHandler = handler
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	b.mu.RLock()
	handler := b.msgHandler
	b.mu.RUnlock()

	if handler != nil {
		handler(update)
		return
	}

	b.log.Debugw("Received update with no handler registered",
		"update_id", update.UpdateID,
	)
}

// SendMessage sends a Markdown text message to a chat
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait failed")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	start := time.Now()
	_, err := b.api.Send(msg)
	if err != nil {
		b.log.Errorw("Failed to send message",
			"chat_id", chatID,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return errors.Wrap(err, "failed to send message")
	}

	return nil
}

// SendMessageWithKeyboard sends a message with an inline keyboard and
// returns the sent message id for later edits
func (b *Bot) SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (int, error) {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return 0, errors.Wrap(err, "rate limiter wait failed")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = keyboard

	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Errorw("Failed to send message with keyboard",
			"chat_id", chatID,
			"error", err,
		)
		return 0, errors.Wrap(err, "failed to send message with keyboard")
	}

	return sent.MessageID, nil
}

// EditMessage replaces the text of an existing message
func (b *Bot) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait failed")
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown

	if _, err := b.api.Send(edit); err != nil {
		if isNotModified(err) {
			return nil
		}
		return errors.Wrap(err, "failed to edit message")
	}

	return nil
}

// EditMessageWithKeyboard replaces the text and keyboard of an existing
// message
func (b *Bot) EditMessageWithKeyboard(ctx context.Context, chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait failed")
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = &keyboard

	if _, err := b.api.Send(edit); err != nil {
		if isNotModified(err) {
			return nil
		}
		return errors.Wrap(err, "failed to edit message")
	}

	return nil
}

// ClearKeyboard removes the inline keyboard from a message, leaving its
// text in place
func (b *Bot) ClearKeyboard(ctx context.Context, chatID int64, messageID int) error {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait failed")
	}

	markup := tgbotapi.NewInlineKeyboardMarkup()
	markup.InlineKeyboard = [][]tgbotapi.InlineKeyboardButton{}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, markup)

	if _, err := b.api.Send(edit); err != nil {
		if isNotModified(err) {
			return nil
		}
		return errors.Wrap(err, "failed to clear keyboard")
	}

	return nil
}

// DeleteMessage deletes a message
func (b *Bot) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait failed")
	}

	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return errors.Wrap(err, "failed to delete message")
	}

	return nil
}

// AnswerCallback answers a callback query from an inline keyboard,
// which stops the client-side loading spinner
func (b *Bot) AnswerCallback(ctx context.Context, callbackQueryID string, text string) error {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait failed")
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(callbackQueryID, text)); err != nil {
		return errors.Wrap(err, "failed to answer callback")
	}

	return nil
}

// isNotModified detects Telegram's rejection of an edit that would not
// change anything. That case is harmless for us; the view is already
// showing what we wanted.
func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
