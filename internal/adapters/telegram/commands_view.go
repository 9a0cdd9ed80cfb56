package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"huddle/internal/adapters/fantasy"
)

const defaultWaiverLimit = 10

// handleStandings handles /standings [league_id]
func (h *Handler) handleStandings(ctx context.Context, chatID, userID int64, args string) error {
	cfg, failMsg := h.resolveLeague(ctx, userID, args)
	if cfg == nil {
		return h.bot.SendMessage(ctx, chatID, failMsg)
	}

	snap, err := h.snapshots.Get(ctx, cfg)
	if err != nil {
		return h.replyHint(ctx, chatID, err)
	}

	return h.bot.SendMessage(ctx, chatID, renderStandings(snap))
}

// handleScoreboard handles /scoreboard [week]. The current week is
// served from the snapshot cache; an explicit week always goes to the
// provider because past-week payloads are not cached.
func (h *Handler) handleScoreboard(ctx context.Context, chatID, userID int64, args string) error {
	week := 0
	if arg := strings.TrimSpace(args); arg != "" {
		parsed, err := strconv.Atoi(arg)
		if err != nil || parsed < 1 || parsed > 18 {
			return h.bot.SendMessage(ctx, chatID, "Usage: `/scoreboard [week]` with week between 1 and 18.")
		}
		week = parsed
	}

	cfg, failMsg := h.resolveLeague(ctx, userID, "")
	if cfg == nil {
		return h.bot.SendMessage(ctx, chatID, failMsg)
	}

	if week == 0 {
		snap, err := h.snapshots.Get(ctx, cfg)
		if err != nil {
			return h.replyHint(ctx, chatID, err)
		}
		footer := fmt.Sprintf("updated %s · /live for auto-refresh", humanize.Time(snap.FetchedAt))
		return h.bot.SendMessage(ctx, chatID, renderMatchups(snap.LeagueName, snap.Week, snap.Matchups, footer))
	}

	handle, err := h.snapshots.Connect(ctx, cfg)
	if err != nil {
		return h.replyHint(ctx, chatID, err)
	}
	ms, err := handle.Scoreboard(ctx, week)
	if err != nil {
		return h.replyHint(ctx, chatID, err)
	}

	return h.bot.SendMessage(ctx, chatID, renderMatchups(handle.Name(), week, ms, ""))
}

// handleTeam handles /team [name fragment]
func (h *Handler) handleTeam(ctx context.Context, chatID, userID int64, args string) error {
	cfg, failMsg := h.resolveLeague(ctx, userID, "")
	if cfg == nil {
		return h.bot.SendMessage(ctx, chatID, failMsg)
	}

	snap, err := h.snapshots.Get(ctx, cfg)
	if err != nil {
		return h.replyHint(ctx, chatID, err)
	}
	if len(snap.Teams) == 0 {
		return h.bot.SendMessage(ctx, chatID, "No teams found in this league.")
	}

	query := strings.TrimSpace(args)
	if query == "" {
		var b strings.Builder
		b.WriteString("Which team? `/team <name>`\n")
		for _, t := range snap.Teams {
			fmt.Fprintf(&b, "• %s\n", escapeName(t.Name))
		}
		return h.bot.SendMessage(ctx, chatID, b.String())
	}

	team, ok := matchTeam(snap.Teams, query)
	if !ok {
		return h.bot.SendMessage(ctx, chatID,
			fmt.Sprintf("No team matches `%s`. Try /team without arguments to list them.", query))
	}

	return h.bot.SendMessage(ctx, chatID, renderRoster(team, snap.Week))
}

// handleWaivers handles /waivers [limit]. Free-agent pools are too
// volatile to cache, so this always reads through a fresh handle.
func (h *Handler) handleWaivers(ctx context.Context, chatID, userID int64, args string) error {
	limit := defaultWaiverLimit
	if arg := strings.TrimSpace(args); arg != "" {
		parsed, err := strconv.Atoi(arg)
		if err != nil || parsed < 1 || parsed > 50 {
			return h.bot.SendMessage(ctx, chatID, "Usage: `/waivers [count]` with count between 1 and 50.")
		}
		limit = parsed
	}

	cfg, failMsg := h.resolveLeague(ctx, userID, "")
	if cfg == nil {
		return h.bot.SendMessage(ctx, chatID, failMsg)
	}

	handle, err := h.snapshots.Connect(ctx, cfg)
	if err != nil {
		return h.replyHint(ctx, chatID, err)
	}
	players, err := handle.FreeAgents(ctx, limit)
	if err != nil {
		return h.replyHint(ctx, chatID, err)
	}

	return h.bot.SendMessage(ctx, chatID, renderFreeAgents(players))
}

// handleRefresh handles /refresh (force-refetch the default league)
func (h *Handler) handleRefresh(ctx context.Context, chatID, userID int64) error {
	cfg, failMsg := h.resolveLeague(ctx, userID, "")
	if cfg == nil {
		return h.bot.SendMessage(ctx, chatID, failMsg)
	}

	snap, err := h.snapshots.Refresh(ctx, cfg)
	if err != nil {
		return h.replyHint(ctx, chatID, err)
	}

	return h.bot.SendMessage(ctx, chatID,
		fmt.Sprintf("✅ Refreshed *%s* — week %d, %d teams.",
			escapeName(snap.LeagueName), snap.Week, len(snap.Teams)))
}

// matchTeam finds a team whose name or owner contains the query,
// preferring exact name matches.
func matchTeam(teams []fantasy.Team, query string) (fantasy.Team, bool) {
	q := strings.ToLower(query)

	for _, t := range teams {
		if strings.ToLower(t.Name) == q {
			return t, true
		}
	}
	for _, t := range teams {
		if strings.Contains(strings.ToLower(t.Name), q) || strings.Contains(strings.ToLower(t.OwnerName), q) {
			return t, true
		}
	}
	return fantasy.Team{}, false
}
