package fantasy

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Position is an ESPN lineup position abbreviation.
type Position string

const (
	PositionQB      Position = "QB"
	PositionRB      Position = "RB"
	PositionWR      Position = "WR"
	PositionTE      Position = "TE"
	PositionKicker  Position = "K"
	PositionDefense Position = "D/ST"
	PositionFlex    Position = "FLEX"
	PositionBench   Position = "BE"
	PositionIR      Position = "IR"
	PositionUnknown Position = "?"
)

// Credentials is the cookie pair ESPN requires for private leagues.
// Public leagues need neither value.
type Credentials struct {
	SWID   string `json:"swid"`
	ESPNS2 string `json:"espn_s2"`
}

// Empty reports whether no credentials were supplied.
func (c Credentials) Empty() bool {
	return c.SWID == "" && c.ESPNS2 == ""
}

// Player is one rostered or free-agent player.
type Player struct {
	ID           int64
	Name         string
	Position     Position
	Slot         Position // lineup slot; PositionBench for benched players
	InjuryStatus string
	// Current scoring period values
	Points    decimal.Decimal
	Projected decimal.Decimal
	// Season totals
	TotalPoints    decimal.Decimal
	ProjectedTotal decimal.Decimal
	PercentOwned   decimal.Decimal
}

// Starter reports whether the player occupies a scoring lineup slot.
func (p Player) Starter() bool {
	return p.Slot != PositionBench && p.Slot != PositionIR
}

// Team is one franchise in a league, including its current roster.
type Team struct {
	ID            int
	Name          string
	Abbrev        string
	OwnerName     string
	Wins          int
	Losses        int
	Ties          int
	PointsFor     decimal.Decimal
	PointsAgainst decimal.Decimal
	PlayoffSeed   int
	Roster        []Player
}

// Record renders the team's W-L(-T) record.
func (t Team) Record() string {
	if t.Ties > 0 {
		return fmt.Sprintf("%d-%d-%d", t.Wins, t.Losses, t.Ties)
	}
	return fmt.Sprintf("%d-%d", t.Wins, t.Losses)
}

// SortStandings orders teams by wins, points-for breaking ties, team
// id as the final stable key.
func SortStandings(teams []Team) {
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].Wins != teams[j].Wins {
			return teams[i].Wins > teams[j].Wins
		}
		if cmp := teams[i].PointsFor.Cmp(teams[j].PointsFor); cmp != 0 {
			return cmp > 0
		}
		return teams[i].ID < teams[j].ID
	})
}

// Matchup is one head-to-head pairing for a scoring period. Team names
// are resolved by the client so callers need not join against Teams.
type Matchup struct {
	Week         int
	HomeTeamID   int
	HomeTeamName string
	HomeScore    decimal.Decimal
	AwayTeamID   int
	AwayTeamName string
	AwayScore    decimal.Decimal
	// PlayersLeft counts starters who have not finished playing, when
	// the provider exposes live data for the period
	HomePlayersLeft int
	AwayPlayersLeft int
}

// Total returns the combined score, used to rank the closest games first.
func (m Matchup) Total() decimal.Decimal {
	return m.HomeScore.Add(m.AwayScore)
}

// SeasonFor maps a wall-clock instant to the NFL season it belongs to.
// January and February still count toward the prior year's season.
func SeasonFor(now time.Time) int {
	if now.Month() < time.March {
		return now.Year() - 1
	}
	return now.Year()
}

// Snapshot is the whole refreshed state of one league for one scoring
// period: the opaque payload the shared cache stores.
type Snapshot struct {
	LeagueID   int64
	SeasonYear int
	LeagueName string
	Week       int
	Teams      []Team
	Matchups   []Matchup
	FetchedAt  time.Time
}

// Age reports how long ago this snapshot was fetched.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.FetchedAt)
}
