package espn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/internal/adapters/fantasy"
	"huddle/pkg/errors"
)

// leagueFixture is a trimmed week-3 payload in the shape the v3 API
// returns for view=mSettings&view=mTeam&view=mRoster&view=mMatchupScore.
const leagueFixture = `{
  "id": 99,
  "scoringPeriodId": 3,
  "status": {"currentMatchupPeriod": 3, "latestScoringPeriod": 3},
  "settings": {"name": "Gridiron Gurus"},
  "members": [
    {"id": "{A1}", "displayName": "hawkfan"},
    {"id": "{B2}", "firstName": "Pat", "lastName": "Doyle"}
  ],
  "teams": [
    {
      "id": 2,
      "name": "Blitz Brigade",
      "abbrev": "BLZ",
      "owners": ["{B2}"],
      "playoffSeed": 2,
      "record": {"overall": {"wins": 1, "losses": 1, "ties": 0, "pointsFor": 210.2, "pointsAgainst": 222.9}},
      "roster": {"entries": [
        {
          "playerId": 30, "lineupSlotId": 2,
          "playerPoolEntry": {"player": {
            "id": 30, "fullName": "Rick Moss", "defaultPositionId": 2,
            "stats": [
              {"scoringPeriodId": 3, "statSourceId": 0, "statSplitTypeId": 1, "appliedTotal": 7.8},
              {"scoringPeriodId": 3, "statSourceId": 1, "statSplitTypeId": 1, "appliedTotal": 12.5}
            ]
          }}
        }
      ]}
    },
    {
      "id": 1,
      "location": "Hawk",
      "nickname": "Nation",
      "abbrev": "HWK",
      "primaryOwner": "{A1}",
      "playoffSeed": 1,
      "record": {"overall": {"wins": 2, "losses": 0, "ties": 0, "pointsFor": 245.5, "pointsAgainst": 198.1}},
      "roster": {"entries": [
        {
          "playerId": 10, "lineupSlotId": 0,
          "playerPoolEntry": {"player": {
            "id": 10, "fullName": "Joe Cannon", "defaultPositionId": 1,
            "injuryStatus": "ACTIVE",
            "stats": [
              {"scoringPeriodId": 3, "statSourceId": 0, "statSplitTypeId": 1, "appliedTotal": 18.4},
              {"scoringPeriodId": 3, "statSourceId": 1, "statSplitTypeId": 1, "appliedTotal": 22.1},
              {"scoringPeriodId": 0, "statSourceId": 0, "statSplitTypeId": 0, "appliedTotal": 61.3}
            ]
          }}
        },
        {
          "playerId": 11, "lineupSlotId": 4,
          "playerPoolEntry": {"player": {
            "id": 11, "fullName": "Max Reed", "defaultPositionId": 3,
            "stats": [
              {"scoringPeriodId": 3, "statSourceId": 0, "statSplitTypeId": 1, "appliedTotal": 0},
              {"scoringPeriodId": 3, "statSourceId": 1, "statSplitTypeId": 1, "appliedTotal": 14.2}
            ]
          }}
        },
        {
          "playerId": 12, "lineupSlotId": 20,
          "playerPoolEntry": {"player": {
            "id": 12, "fullName": "Sam Hill", "defaultPositionId": 2,
            "stats": [
              {"scoringPeriodId": 3, "statSourceId": 1, "statSplitTypeId": 1, "appliedTotal": 11.0}
            ]
          }}
        }
      ]}
    }
  ],
  "schedule": [
    {
      "matchupPeriodId": 2,
      "home": {"teamId": 1, "totalPoints": 131.0},
      "away": {"teamId": 2, "totalPoints": 101.2}
    },
    {
      "matchupPeriodId": 3,
      "home": {"teamId": 1, "totalPoints": 18.4},
      "away": {"teamId": 2, "totalPoints": 0, "totalPointsLive": 7.8}
    }
  ]
}`

const freeAgentFixture = `{
  "scoringPeriodId": 3,
  "players": [
    {"player": {
      "id": 77, "fullName": "Ty Brooks", "defaultPositionId": 3,
      "injuryStatus": "QUESTIONABLE",
      "ownership": {"percentOwned": 42.7},
      "stats": [{"scoringPeriodId": 0, "statSourceId": 0, "statSplitTypeId": 0, "appliedTotal": 29.9}]
    }}
  ]
}`

func newTestServer(t *testing.T) (*httptest.Server, *http.Request) {
	t.Helper()

	var lastReq http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastReq = *r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")

		for _, v := range r.URL.Query()["view"] {
			if v == viewPlayerInfo {
				w.Write([]byte(freeAgentFixture))
				return
			}
		}
		w.Write([]byte(leagueFixture))
	}))
	t.Cleanup(srv.Close)

	return srv, &lastReq
}

func connectTestLeague(t *testing.T, srv *httptest.Server, creds *fantasy.Credentials) fantasy.League {
	t.Helper()

	conn := NewConnector(Config{BaseURL: srv.URL})
	l, err := conn.Connect(context.Background(), 99, 2025, creds)
	require.NoError(t, err)
	return l
}

func TestConnector_Connect(t *testing.T) {
	srv, lastReq := newTestServer(t)

	l := connectTestLeague(t, srv, nil)

	assert.Equal(t, int64(99), l.LeagueID())
	assert.Equal(t, 2025, l.SeasonYear())
	assert.Equal(t, "Gridiron Gurus", l.Name())
	assert.Equal(t, 3, l.CurrentWeek())

	assert.Equal(t, "/seasons/2025/segments/0/leagues/99", lastReq.URL.Path)
	assert.Contains(t, lastReq.URL.Query()["view"], viewSettings)
	assert.Empty(t, lastReq.Cookies())
}

func TestConnector_Connect_SendsCookies(t *testing.T) {
	srv, lastReq := newTestServer(t)

	connectTestLeague(t, srv, &fantasy.Credentials{SWID: "{A1}", ESPNS2: "s2token"})

	cookies := map[string]string{}
	for _, c := range lastReq.Cookies() {
		cookies[c.Name] = c.Value
	}
	assert.Equal(t, "{A1}", cookies["SWID"])
	assert.Equal(t, "s2token", cookies["espn_s2"])
}

func TestConnector_Connect_RejectsBadInput(t *testing.T) {
	conn := NewConnector(Config{BaseURL: "http://127.0.0.1:0"})

	_, err := conn.Connect(context.Background(), 0, 2025, nil)
	require.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = conn.Connect(context.Background(), 99, 1942, nil)
	require.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestLeague_Teams(t *testing.T) {
	srv, _ := newTestServer(t)
	l := connectTestLeague(t, srv, nil)

	teams, err := l.Teams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 2)

	// Sorted by id regardless of payload order
	hawk, blitz := teams[0], teams[1]
	assert.Equal(t, 1, hawk.ID)
	assert.Equal(t, "Hawk Nation", hawk.Name)
	assert.Equal(t, "hawkfan", hawk.OwnerName)
	assert.Equal(t, "2-0", hawk.Record())
	assert.True(t, hawk.PointsFor.Equal(decimal.RequireFromString("245.5")))

	assert.Equal(t, "Blitz Brigade", blitz.Name)
	assert.Equal(t, "Pat Doyle", blitz.OwnerName)

	require.Len(t, hawk.Roster, 3)
	qb := hawk.Roster[0]
	assert.Equal(t, "Joe Cannon", qb.Name)
	assert.Equal(t, fantasy.PositionQB, qb.Position)
	assert.Equal(t, fantasy.PositionQB, qb.Slot)
	assert.True(t, qb.Starter())
	assert.True(t, qb.Points.Equal(decimal.RequireFromString("18.4")))
	assert.True(t, qb.Projected.Equal(decimal.RequireFromString("22.1")))
	assert.True(t, qb.TotalPoints.Equal(decimal.RequireFromString("61.3")))

	bench := hawk.Roster[2]
	assert.Equal(t, fantasy.PositionBench, bench.Slot)
	assert.False(t, bench.Starter())
}

func TestLeague_Scoreboard(t *testing.T) {
	srv, lastReq := newTestServer(t)
	l := connectTestLeague(t, srv, nil)

	matchups, err := l.Scoreboard(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, matchups, 1)

	// week 0 resolves to the league's current week
	assert.Equal(t, "3", lastReq.URL.Query().Get("scoringPeriodId"))

	m := matchups[0]
	assert.Equal(t, 3, m.Week)
	assert.Equal(t, "Hawk Nation", m.HomeTeamName)
	assert.Equal(t, "Blitz Brigade", m.AwayTeamName)
	assert.True(t, m.HomeScore.Equal(decimal.RequireFromString("18.4")))
	// Live total wins over the settled one when it is ahead
	assert.True(t, m.AwayScore.Equal(decimal.RequireFromString("7.8")))

	// Hawk's WR has 0 on the board and a positive projection; the QB has
	// scored and the benched RB never counts
	assert.Equal(t, 1, m.HomePlayersLeft)
	assert.Equal(t, 0, m.AwayPlayersLeft)
}

func TestLeague_Standings(t *testing.T) {
	srv, _ := newTestServer(t)
	l := connectTestLeague(t, srv, nil)

	teams, err := l.Standings(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 2)

	assert.Equal(t, "Hawk Nation", teams[0].Name)
	assert.Equal(t, "Blitz Brigade", teams[1].Name)
}

func TestLeague_FreeAgents(t *testing.T) {
	srv, lastReq := newTestServer(t)
	l := connectTestLeague(t, srv, nil)

	players, err := l.FreeAgents(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, players, 1)

	assert.Contains(t, lastReq.Header.Get("X-Fantasy-Filter"), `"limit":25`)

	fa := players[0]
	assert.Equal(t, "Ty Brooks", fa.Name)
	assert.Equal(t, fantasy.PositionWR, fa.Position)
	assert.Equal(t, "QUESTIONABLE", fa.InjuryStatus)
	assert.True(t, fa.PercentOwned.Equal(decimal.RequireFromString("42.7")))
	assert.True(t, fa.TotalPoints.Equal(decimal.RequireFromString("29.9")))
}

func TestLeague_Snapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	l := connectTestLeague(t, srv, nil)

	snap, err := l.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(99), snap.LeagueID)
	assert.Equal(t, "Gridiron Gurus", snap.LeagueName)
	assert.Equal(t, 3, snap.Week)
	assert.Len(t, snap.Teams, 2)
	assert.Len(t, snap.Matchups, 1)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestConnect_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, fantasy.ErrPrivateLeague},
		{"forbidden", http.StatusForbidden, fantasy.ErrPrivateLeague},
		{"not found", http.StatusNotFound, fantasy.ErrLeagueNotFound},
		{"throttled", http.StatusTooManyRequests, fantasy.ErrRateLimited},
		{"server error", http.StatusBadGateway, errors.ErrUnavailable},
		{"teapot", http.StatusTeapot, fantasy.ErrBadResponse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			conn := NewConnector(Config{BaseURL: srv.URL})
			_, err := conn.Connect(context.Background(), 99, 2025, nil)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestConnect_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	conn := NewConnector(Config{BaseURL: srv.URL})
	_, err := conn.Connect(context.Background(), 99, 2025, nil)
	require.ErrorIs(t, err, fantasy.ErrBadResponse)
}
