package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"huddle/internal/domain/league"
	leaguesvc "huddle/internal/services/league"
	"huddle/pkg/errors"
)

const registerUsage = "Usage: `/register <league_id> [season] [swid espn_s2]`\n\n" +
	"Public league: `/register 123456`\n" +
	"Past season: `/register 123456 2024`\n" +
	"Private league: `/register 123456 {SWID} AEB...s2`"

// handleRegister handles /register (validate against the provider, persist)
func (h *Handler) handleRegister(ctx context.Context, chatID, userID int64, args string) error {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return h.bot.SendMessage(ctx, chatID, registerUsage)
	}

	leagueID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || leagueID <= 0 {
		return h.bot.SendMessage(ctx, chatID, registerUsage)
	}

	rest := fields[1:]
	season := 0
	if len(rest) > 0 {
		if year, convErr := strconv.Atoi(rest[0]); convErr == nil {
			season = year
			rest = rest[1:]
		}
	}

	var creds *league.Credentials
	switch len(rest) {
	case 0:
	case 2:
		creds = &league.Credentials{SWID: rest[0], ESPNS2: rest[1]}
	default:
		return h.bot.SendMessage(ctx, chatID,
			"Private leagues need both cookies, SWID and espn\\_s2.\n\n"+registerUsage)
	}

	checking := "Checking league with ESPN..."
	if err := h.bot.SendMessage(ctx, chatID, checking); err != nil {
		h.log.Warnw("Failed to send progress message", "error", err)
	}

	key, err := h.registry.Register(ctx, leaguesvc.RegisterInput{
		UserID:      userID,
		LeagueID:    leagueID,
		SeasonYear:  season,
		Credentials: creds,
	})
	if err != nil {
		if errors.Is(err, errors.ErrInvalidInput) {
			return h.bot.SendMessage(ctx, chatID, registerUsage)
		}
		return h.replyHint(ctx, chatID, err)
	}

	cfg, ok := h.registry.Lookup(ctx, userID, key)
	if !ok {
		return errors.Newf("league %s missing right after registration", key)
	}
	def, _ := h.registry.DefaultKey(userID)

	msg, err := h.templates.Render("telegram/registered", map[string]interface{}{
		"Name":      escapeName(cfg.DisplayName),
		"LeagueID":  cfg.LeagueID,
		"Season":    cfg.SeasonYear,
		"IsDefault": def == key,
	})
	if err != nil {
		return errors.Wrap(err, "failed to render registered template")
	}

	return h.bot.SendMessage(ctx, chatID, msg)
}

// handleLeagues handles /leagues (list registrations, default starred)
func (h *Handler) handleLeagues(ctx context.Context, chatID, userID int64) error {
	cfgs := h.registry.UserLeagues(ctx, userID)
	if len(cfgs) == 0 {
		return h.bot.SendMessage(ctx, chatID,
			"You haven't registered any leagues yet. Use /register to add one.")
	}

	def, _ := h.registry.DefaultKey(userID)
	return h.bot.SendMessage(ctx, chatID, renderLeagueList(cfgs, def))
}

// handleSetDefault handles /setdefault <league_id>
func (h *Handler) handleSetDefault(ctx context.Context, chatID, userID int64, args string) error {
	cfg, failMsg := h.resolveLeague(ctx, userID, args)
	if cfg == nil {
		if strings.TrimSpace(args) == "" {
			failMsg = "Usage: `/setdefault <league_id>`\n\nSee /leagues for your registered IDs."
		}
		return h.bot.SendMessage(ctx, chatID, failMsg)
	}

	changed, err := h.registry.SetDefault(ctx, userID, cfg.Key())
	if err != nil {
		return errors.Wrapf(err, "failed to set default league %s", cfg.Key())
	}
	if !changed {
		return h.bot.SendMessage(ctx, chatID,
			fmt.Sprintf("*%s* is already your default league.", escapeName(cfg.DisplayName)))
	}

	return h.bot.SendMessage(ctx, chatID,
		fmt.Sprintf("⭐ *%s* is now your default league.", escapeName(cfg.DisplayName)))
}

// handleRemove handles /removeleague <league_id>
func (h *Handler) handleRemove(ctx context.Context, chatID, userID int64, args string) error {
	cfg, failMsg := h.resolveLeague(ctx, userID, args)
	if cfg == nil {
		if strings.TrimSpace(args) == "" {
			failMsg = "Usage: `/removeleague <league_id>`\n\nSee /leagues for your registered IDs."
		}
		return h.bot.SendMessage(ctx, chatID, failMsg)
	}

	removed, err := h.registry.Remove(ctx, userID, cfg.Key())
	if err != nil {
		return errors.Wrapf(err, "failed to remove league %s", cfg.Key())
	}
	if !removed {
		return h.bot.SendMessage(ctx, chatID, "That league is no longer registered.")
	}

	reply := fmt.Sprintf("Removed *%s*.", escapeName(cfg.DisplayName))
	if def, ok := h.registry.DefaultKey(userID); ok {
		if next, found := h.registry.Lookup(ctx, userID, def); found {
			reply += fmt.Sprintf(" Your default is now *%s*.", escapeName(next.DisplayName))
		}
	} else {
		reply += " You have no leagues left."
	}

	return h.bot.SendMessage(ctx, chatID, reply)
}

// handleFind handles /findleague <name fragment>
func (h *Handler) handleFind(ctx context.Context, chatID int64, args string) error {
	pattern := strings.TrimSpace(args)
	if pattern == "" {
		return h.bot.SendMessage(ctx, chatID, "Usage: `/findleague <name>`")
	}

	return h.bot.SendMessage(ctx, chatID, renderFoundLeagues(h.registry.FindByName(ctx, pattern)))
}
