package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"huddle/internal/adapters/fantasy"
	"huddle/internal/domain/league"
	"huddle/internal/live"
	leaguesvc "huddle/internal/services/league"
	snapshotsvc "huddle/internal/services/snapshot"
	"huddle/pkg/errors"
	"huddle/pkg/logger"
	"huddle/pkg/templates"
)

// Handler routes Telegram updates to command handlers
type Handler struct {
	bot       *Bot
	registry  *leaguesvc.Service
	snapshots *snapshotsvc.Service
	sessions  *live.Manager
	liveCfg   live.Config
	templates *templates.Registry
	log       *logger.Logger
}

// HandlerDeps contains Handler dependencies
type HandlerDeps struct {
	Bot       *Bot
	Registry  *leaguesvc.Service
	Snapshots *snapshotsvc.Service
	Sessions  *live.Manager
	LiveCfg   live.Config
	Templates *templates.Registry
	Log       *logger.Logger
}

// NewHandler creates a new command handler
func NewHandler(deps HandlerDeps) *Handler {
	if deps.Templates == nil {
		deps.Templates = templates.Get()
	}

	return &Handler{
		bot:       deps.Bot,
		registry:  deps.Registry,
		snapshots: deps.Snapshots,
		sessions:  deps.Sessions,
		liveCfg:   deps.LiveCfg,
		templates: deps.Templates,
		log:       deps.Log.With("component", "telegram_handler"),
	}
}

// RegisterHandlers sets this router as the bot's update handler
func (h *Handler) RegisterHandlers() {
	h.bot.SetMessageHandler(func(update tgbotapi.Update) {
		if err := h.Route(context.Background(), update); err != nil {
			h.log.Errorw("Failed to handle update",
				"update_id", update.UpdateID,
				"error", err,
			)
		}
	})
}

// Route routes updates to appropriate handlers
func (h *Handler) Route(ctx context.Context, update tgbotapi.Update) error {
	if update.Message != nil {
		return h.handleMessage(ctx, update.Message)
	}

	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}

	return nil
}

// handleMessage processes incoming messages
func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.From.IsBot {
		return nil
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID

	h.log.Debugw("Processing message",
		"telegram_id", userID,
		"username", msg.From.UserName,
		"text", msg.Text,
	)

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg.From.FirstName, msg.Command(), msg.CommandArguments())
	}

	return h.bot.SendMessage(ctx, chatID, "I don't understand that message. Use /help to see available commands.")
}

// handleCommand routes commands to appropriate handlers
func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, firstName, command, args string) error {
	h.log.Infow("Handling command",
		"telegram_id", userID,
		"command", command,
		"has_args", args != "",
	)

	switch strings.ToLower(command) {
	case "start":
		return h.handleStart(ctx, chatID, firstName)

	case "help":
		return h.handleHelp(ctx, chatID)

	case "register":
		return h.handleRegister(ctx, chatID, userID, args)

	case "leagues":
		return h.handleLeagues(ctx, chatID, userID)

	case "setdefault":
		return h.handleSetDefault(ctx, chatID, userID, args)

	case "removeleague", "unregister":
		return h.handleRemove(ctx, chatID, userID, args)

	case "findleague":
		return h.handleFind(ctx, chatID, args)

	case "standings":
		return h.handleStandings(ctx, chatID, userID, args)

	case "scoreboard", "sb":
		return h.handleScoreboard(ctx, chatID, userID, args)

	case "team", "roster":
		return h.handleTeam(ctx, chatID, userID, args)

	case "waivers", "freeagents":
		return h.handleWaivers(ctx, chatID, userID, args)

	case "refresh":
		return h.handleRefresh(ctx, chatID, userID)

	case "live":
		return h.handleLive(ctx, chatID, userID, args)

	default:
		return h.bot.SendMessage(ctx, chatID,
			fmt.Sprintf("Unknown command: /%s\n\nUse /help to see available commands.", command))
	}
}

// handleStart handles /start (welcome message)
func (h *Handler) handleStart(ctx context.Context, chatID int64, firstName string) error {
	msg, err := h.templates.Render("telegram/welcome", map[string]interface{}{
		"FirstName": escapeName(firstName),
	})
	if err != nil {
		return errors.Wrap(err, "failed to render welcome template")
	}

	return h.bot.SendMessage(ctx, chatID, msg)
}

// handleHelp handles /help
func (h *Handler) handleHelp(ctx context.Context, chatID int64) error {
	msg, err := h.templates.Render("telegram/help", map[string]interface{}{
		"PollSeconds": int(h.liveCfg.PollInterval.Seconds()),
	})
	if err != nil {
		return errors.Wrap(err, "failed to render help template")
	}

	return h.bot.SendMessage(ctx, chatID, msg)
}

// resolveLeague picks the league a view command targets: the one named
// by arg when present, the user's default otherwise. The string return
// is a ready-to-send user message when resolution fails.
func (h *Handler) resolveLeague(ctx context.Context, userID int64, arg string) (*league.Config, string) {
	arg = strings.TrimSpace(arg)

	if arg != "" {
		leagueID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Sprintf("`%s` doesn't look like a league ID.", arg)
		}
		for _, cfg := range h.registry.UserLeagues(ctx, userID) {
			if cfg.LeagueID == leagueID {
				return cfg, ""
			}
		}
		return nil, fmt.Sprintf("You haven't registered league `%d`. Use /register first.", leagueID)
	}

	key, ok := h.registry.DefaultKey(userID)
	if !ok {
		return nil, "No default league set. Register one with /register or pick one with /setdefault."
	}
	cfg, ok := h.registry.Lookup(ctx, userID, key)
	if !ok {
		return nil, "No default league set. Register one with /register or pick one with /setdefault."
	}
	return cfg, ""
}

// replyHint sends a short user-facing explanation for a provider error
func (h *Handler) replyHint(ctx context.Context, chatID int64, err error) error {
	h.log.Warnw("Command failed against provider", "error", err)
	return h.bot.SendMessage(ctx, chatID, "⚠️ "+fantasy.Hint(err))
}
