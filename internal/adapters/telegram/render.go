package telegram

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"huddle/internal/adapters/fantasy"
	"huddle/internal/domain/league"
	"huddle/internal/live"
	"huddle/pkg/templates"
)

// Tables go inside Markdown code fences so Telegram keeps the columns
// monospaced. Names rendered outside a fence are escaped; names inside
// a fence only need backticks stripped.

const tableNameWidth = 20

func escapeName(s string) string {
	return templates.SafeText(s)
}

func fenceName(s string, width int) string {
	s = templates.FenceText(s)
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func fmtPts(d decimal.Decimal) string {
	return d.StringFixed(1)
}

// renderScoreboard renders one page of a live scoreboard view.
func renderScoreboard(view live.View) string {
	snap := view.Snapshot

	var b strings.Builder
	fmt.Fprintf(&b, "🏈 *%s* — Week %d\n", escapeName(snap.LeagueName), snap.Week)

	ms := view.Matchups()
	if len(ms) == 0 {
		b.WriteString("\nNo matchups this week.\n")
	} else {
		b.WriteString("```\n")
		for i, m := range ms {
			if i > 0 {
				b.WriteString("\n")
			}
			writeMatchup(&b, m)
		}
		b.WriteString("```\n")
	}

	mode := "auto-refresh on"
	if !view.AutoRefresh {
		mode = "paused"
	}
	fmt.Fprintf(&b, "_Page %d/%d · updated %s · %s_",
		view.Page+1, view.Pages, humanize.Time(snap.FetchedAt), mode)

	return b.String()
}

// renderMatchups renders a full non-interactive scoreboard.
func renderMatchups(leagueName string, week int, ms []fantasy.Matchup, footer string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏈 *%s* — Week %d\n", escapeName(leagueName), week)

	if len(ms) == 0 {
		b.WriteString("\nNo matchups this week.")
		return b.String()
	}

	b.WriteString("```\n")
	for i, m := range ms {
		if i > 0 {
			b.WriteString("\n")
		}
		writeMatchup(&b, m)
	}
	b.WriteString("```")

	if footer != "" {
		b.WriteString("\n_" + footer + "_")
	}

	return b.String()
}

func writeMatchup(b *strings.Builder, m fantasy.Matchup) {
	writeMatchupSide(b, m.AwayTeamName, m.AwayScore, m.AwayPlayersLeft)
	writeMatchupSide(b, m.HomeTeamName, m.HomeScore, m.HomePlayersLeft)
}

func writeMatchupSide(b *strings.Builder, name string, score decimal.Decimal, left int) {
	suffix := ""
	if left > 0 {
		suffix = fmt.Sprintf("  %d left", left)
	}
	fmt.Fprintf(b, "%-*s %7s%s\n", tableNameWidth, fenceName(name, tableNameWidth), fmtPts(score), suffix)
}

// renderStandings renders the ranked standings table for a snapshot.
func renderStandings(snap *fantasy.Snapshot) string {
	teams := make([]fantasy.Team, len(snap.Teams))
	copy(teams, snap.Teams)
	fantasy.SortStandings(teams)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s* — Standings\n```\n", escapeName(snap.LeagueName))
	fmt.Fprintf(&b, " #  %-*s %6s %8s %8s\n", tableNameWidth, "TEAM", "W-L", "PF", "PA")

	for i, t := range teams {
		fmt.Fprintf(&b, "%2d  %-*s %6s %8s %8s\n",
			i+1,
			tableNameWidth, fenceName(t.Name, tableNameWidth),
			t.Record(),
			fmtPts(t.PointsFor),
			fmtPts(t.PointsAgainst),
		)
	}

	b.WriteString("```\n")
	fmt.Fprintf(&b, "_updated %s_", humanize.Time(snap.FetchedAt))
	return b.String()
}

// renderRoster renders one team's lineup for the current week.
func renderRoster(t fantasy.Team, week int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👥 *%s* (%s)", escapeName(t.Name), t.Record())
	if t.OwnerName != "" {
		fmt.Fprintf(&b, " — %s", escapeName(t.OwnerName))
	}
	fmt.Fprintf(&b, "\nWeek %d lineup\n", week)

	if len(t.Roster) == 0 {
		b.WriteString("\nRoster unavailable.")
		return b.String()
	}

	b.WriteString("```\n")
	fmt.Fprintf(&b, "%-5s %-*s %6s %6s\n", "SLOT", tableNameWidth, "PLAYER", "PTS", "PROJ")
	for _, p := range t.Roster {
		fmt.Fprintf(&b, "%-5s %-*s %6s %6s\n",
			string(p.Slot),
			tableNameWidth, fenceName(p.Name+injuryTag(p.InjuryStatus), tableNameWidth),
			fmtPts(p.Points),
			fmtPts(p.Projected),
		)
	}
	b.WriteString("```")

	return b.String()
}

// renderFreeAgents renders the top available players with season
// totals and ownership.
func renderFreeAgents(players []fantasy.Player) string {
	if len(players) == 0 {
		return "No available players matched."
	}

	var b strings.Builder
	b.WriteString("🔎 *Top available players*\n```\n")
	fmt.Fprintf(&b, "%-5s %-*s %7s %7s %6s\n", "POS", tableNameWidth, "PLAYER", "PTS", "PROJ", "OWN%")
	for _, p := range players {
		fmt.Fprintf(&b, "%-5s %-*s %7s %7s %6s\n",
			string(p.Position),
			tableNameWidth, fenceName(p.Name+injuryTag(p.InjuryStatus), tableNameWidth),
			fmtPts(p.TotalPoints),
			fmtPts(p.ProjectedTotal),
			p.PercentOwned.StringFixed(1),
		)
	}
	b.WriteString("```")
	return b.String()
}

// renderLeagueList renders a user's registrations, default starred.
func renderLeagueList(cfgs []*league.Config, def league.Key) string {
	var b strings.Builder
	b.WriteString("Your leagues:\n")
	for _, cfg := range cfgs {
		marker := "•"
		if cfg.Key() == def {
			marker = "⭐"
		}
		fmt.Fprintf(&b, "%s *%s* — ID `%d`, season %d\n",
			marker, escapeName(cfg.DisplayName), cfg.LeagueID, cfg.SeasonYear)
	}
	if def != "" {
		b.WriteString("\n⭐ marks your default league.")
	}
	return b.String()
}

// renderFoundLeagues renders a name-search result.
func renderFoundLeagues(cfgs []*league.Config) string {
	if len(cfgs) == 0 {
		return "No registered league matches that name."
	}

	var b strings.Builder
	b.WriteString("Matching leagues:\n")
	for _, cfg := range cfgs {
		fmt.Fprintf(&b, "• *%s* — ID `%d`, season %d\n",
			escapeName(cfg.DisplayName), cfg.LeagueID, cfg.SeasonYear)
	}
	return b.String()
}

func injuryTag(status string) string {
	switch strings.ToUpper(status) {
	case "", "ACTIVE", "NORMAL":
		return ""
	case "QUESTIONABLE":
		return " (Q)"
	case "DOUBTFUL":
		return " (D)"
	case "OUT":
		return " (O)"
	case "INJURY_RESERVE":
		return " (IR)"
	case "SUSPENSION":
		return " (SUSP)"
	default:
		return " (" + status + ")"
	}
}
