package fantasy

import "context"

// League is a validated handle to one remote league for one season.
// Implementations perform a provider read per call; freshness policy
// (cache vs direct) belongs to the caller.
type League interface {
	// LeagueID and SeasonYear identify the remote competition instance
	LeagueID() int64
	SeasonYear() int

	// Name returns the league display name captured during connect
	Name() string

	// CurrentWeek returns the scoring period the provider reported at
	// connect time
	CurrentWeek() int

	// Teams returns every franchise with its current roster
	Teams(ctx context.Context) ([]Team, error)

	// Scoreboard returns the matchups for week, or for the current week
	// when week is 0
	Scoreboard(ctx context.Context, week int) ([]Matchup, error)

	// Standings returns teams ordered by rank (wins, then points for)
	Standings(ctx context.Context) ([]Team, error)

	// FreeAgents returns the top available players, ordered by ownership
	FreeAgents(ctx context.Context, limit int) ([]Player, error)

	// Snapshot fetches teams and the current-week scoreboard in one
	// provider round trip; the refresh pass stores its result in the
	// shared cache
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Connector dials the remote provider and performs the league handshake.
// A nil creds pointer means a public-league connect.
type Connector interface {
	Connect(ctx context.Context, leagueID int64, seasonYear int, creds *Credentials) (League, error)
}

// Factory builds league handles that are confirmed usable, not merely
// constructed: every create performs the handshake plus one cheap read,
// retrying the whole sequence on failure.
type Factory interface {
	CreateLeague(ctx context.Context, leagueID int64, seasonYear int, creds *Credentials) (League, error)
}
