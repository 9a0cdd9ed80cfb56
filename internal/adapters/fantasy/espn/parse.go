package espn

import (
	"sort"

	"github.com/shopspring/decimal"

	"huddle/internal/adapters/fantasy"
)

// ESPN identifies positions and lineup slots by numeric ids.
var (
	defaultPositions = map[int]fantasy.Position{
		1:  fantasy.PositionQB,
		2:  fantasy.PositionRB,
		3:  fantasy.PositionWR,
		4:  fantasy.PositionTE,
		5:  fantasy.PositionKicker,
		16: fantasy.PositionDefense,
	}

	slotPositions = map[int]fantasy.Position{
		0:  fantasy.PositionQB,
		2:  fantasy.PositionRB,
		4:  fantasy.PositionWR,
		6:  fantasy.PositionTE,
		16: fantasy.PositionDefense,
		17: fantasy.PositionKicker,
		20: fantasy.PositionBench,
		21: fantasy.PositionIR,
		23: fantasy.PositionFlex,
	}
)

const (
	statSourceActual    = 0
	statSourceProjected = 1
)

// envelope is the league payload; which parts are populated depends on
// the views requested.
type envelope struct {
	ScoringPeriodID int `json:"scoringPeriodId"`
	Status          struct {
		CurrentMatchupPeriod int `json:"currentMatchupPeriod"`
		LatestScoringPeriod  int `json:"latestScoringPeriod"`
	} `json:"status"`
	Settings struct {
		Name string `json:"name"`
	} `json:"settings"`
	Members  []wireMember `json:"members"`
	Teams    []wireTeam   `json:"teams"`
	Schedule []wireGame   `json:"schedule"`
	Players  []struct {
		Player wirePlayer `json:"player"`
	} `json:"players"`
}

type wireMember struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

type wireTeam struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Location     string   `json:"location"`
	Nickname     string   `json:"nickname"`
	Abbrev       string   `json:"abbrev"`
	Owners       []string `json:"owners"`
	PrimaryOwner string   `json:"primaryOwner"`
	PlayoffSeed  int      `json:"playoffSeed"`
	Record       struct {
		Overall struct {
			Wins          int     `json:"wins"`
			Losses        int     `json:"losses"`
			Ties          int     `json:"ties"`
			PointsFor     float64 `json:"pointsFor"`
			PointsAgainst float64 `json:"pointsAgainst"`
		} `json:"overall"`
	} `json:"record"`
	Roster struct {
		Entries []wireRosterEntry `json:"entries"`
	} `json:"roster"`
}

type wireRosterEntry struct {
	PlayerID        int64 `json:"playerId"`
	LineupSlotID    int   `json:"lineupSlotId"`
	PlayerPoolEntry struct {
		Player wirePlayer `json:"player"`
	} `json:"playerPoolEntry"`
}

type wirePlayer struct {
	ID                int64  `json:"id"`
	FullName          string `json:"fullName"`
	DefaultPositionID int    `json:"defaultPositionId"`
	InjuryStatus      string `json:"injuryStatus"`
	Ownership         struct {
		PercentOwned float64 `json:"percentOwned"`
	} `json:"ownership"`
	Stats []struct {
		ScoringPeriodID int     `json:"scoringPeriodId"`
		StatSourceID    int     `json:"statSourceId"`
		StatSplitTypeID int     `json:"statSplitTypeId"`
		AppliedTotal    float64 `json:"appliedTotal"`
	} `json:"stats"`
}

type wireGame struct {
	MatchupPeriodID int       `json:"matchupPeriodId"`
	Home            *wireSide `json:"home"`
	Away            *wireSide `json:"away"`
}

type wireSide struct {
	TeamID          int     `json:"teamId"`
	TotalPoints     float64 `json:"totalPoints"`
	TotalPointsLive float64 `json:"totalPointsLive"`
}

func (s *wireSide) score() decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	if s.TotalPointsLive > s.TotalPoints {
		return decimal.NewFromFloat(s.TotalPointsLive)
	}
	return decimal.NewFromFloat(s.TotalPoints)
}

// currentWeek picks the provider's idea of "now": the scoring period
// the payload was generated for, falling back to the matchup period.
func (e *envelope) currentWeek() int {
	if e.ScoringPeriodID > 0 {
		return e.ScoringPeriodID
	}
	if e.Status.LatestScoringPeriod > 0 {
		return e.Status.LatestScoringPeriod
	}
	return e.Status.CurrentMatchupPeriod
}

func (e *envelope) memberNames() map[string]string {
	names := make(map[string]string, len(e.Members))
	for _, m := range e.Members {
		name := m.DisplayName
		if name == "" && (m.FirstName != "" || m.LastName != "") {
			name = m.FirstName + " " + m.LastName
		}
		names[m.ID] = name
	}
	return names
}

func (e *envelope) teams(week int) []fantasy.Team {
	names := e.memberNames()

	teams := make([]fantasy.Team, 0, len(e.Teams))
	for _, wt := range e.Teams {
		teams = append(teams, wt.toTeam(week, names))
	}

	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams
}

func (wt wireTeam) toTeam(week int, memberNames map[string]string) fantasy.Team {
	name := wt.Name
	if name == "" {
		name = wt.Location + " " + wt.Nickname
	}

	owner := wt.PrimaryOwner
	if owner == "" && len(wt.Owners) > 0 {
		owner = wt.Owners[0]
	}

	roster := make([]fantasy.Player, 0, len(wt.Roster.Entries))
	for _, re := range wt.Roster.Entries {
		slot, ok := slotPositions[re.LineupSlotID]
		if !ok {
			slot = fantasy.PositionFlex
		}
		roster = append(roster, re.PlayerPoolEntry.Player.toPlayer(week, slot))
	}

	return fantasy.Team{
		ID:            wt.ID,
		Name:          name,
		Abbrev:        wt.Abbrev,
		OwnerName:     memberNames[owner],
		Wins:          wt.Record.Overall.Wins,
		Losses:        wt.Record.Overall.Losses,
		Ties:          wt.Record.Overall.Ties,
		PointsFor:     decimal.NewFromFloat(wt.Record.Overall.PointsFor),
		PointsAgainst: decimal.NewFromFloat(wt.Record.Overall.PointsAgainst),
		PlayoffSeed:   wt.PlayoffSeed,
		Roster:        roster,
	}
}

func (wp wirePlayer) toPlayer(week int, slot fantasy.Position) fantasy.Player {
	position, ok := defaultPositions[wp.DefaultPositionID]
	if !ok {
		position = fantasy.PositionUnknown
	}

	p := fantasy.Player{
		ID:           wp.ID,
		Name:         wp.FullName,
		Position:     position,
		Slot:         slot,
		InjuryStatus: wp.InjuryStatus,
		PercentOwned: decimal.NewFromFloat(wp.Ownership.PercentOwned),
	}

	for _, s := range wp.Stats {
		total := decimal.NewFromFloat(s.AppliedTotal)
		switch {
		case s.ScoringPeriodID == week && s.StatSourceID == statSourceActual:
			p.Points = total
		case s.ScoringPeriodID == week && s.StatSourceID == statSourceProjected:
			p.Projected = total
		case s.ScoringPeriodID == 0 && s.StatSplitTypeID == 0 && s.StatSourceID == statSourceActual:
			p.TotalPoints = total
		case s.ScoringPeriodID == 0 && s.StatSplitTypeID == 0 && s.StatSourceID == statSourceProjected:
			p.ProjectedTotal = total
		}
	}

	return p
}

func (e *envelope) matchups(week int) []fantasy.Matchup {
	if week <= 0 {
		week = e.currentWeek()
	}

	teamNames := make(map[int]string, len(e.Teams))
	remaining := make(map[int]int, len(e.Teams))
	names := e.memberNames()
	for _, wt := range e.Teams {
		t := wt.toTeam(week, names)
		teamNames[t.ID] = t.Name
		remaining[t.ID] = playersYetToPlay(t.Roster)
	}

	matchups := make([]fantasy.Matchup, 0, len(e.Schedule))
	for _, g := range e.Schedule {
		if g.MatchupPeriodID != week {
			continue
		}
		// Bye weeks come through with a missing side
		if g.Home == nil || g.Away == nil {
			continue
		}

		matchups = append(matchups, fantasy.Matchup{
			Week:            week,
			HomeTeamID:      g.Home.TeamID,
			HomeTeamName:    teamNames[g.Home.TeamID],
			HomeScore:       g.Home.score(),
			AwayTeamID:      g.Away.TeamID,
			AwayTeamName:    teamNames[g.Away.TeamID],
			AwayScore:       g.Away.score(),
			HomePlayersLeft: remaining[g.Home.TeamID],
			AwayPlayersLeft: remaining[g.Away.TeamID],
		})
	}

	return matchups
}

// playersYetToPlay approximates live "players remaining" as starters
// who project points but have none on the board yet.
func playersYetToPlay(roster []fantasy.Player) int {
	n := 0
	for _, p := range roster {
		if p.Starter() && p.Points.IsZero() && p.Projected.IsPositive() {
			n++
		}
	}
	return n
}
