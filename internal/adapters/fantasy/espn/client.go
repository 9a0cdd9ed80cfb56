package espn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"huddle/internal/adapters/fantasy"
	"huddle/internal/metrics"
	"huddle/pkg/errors"
	"huddle/pkg/ratelimit"
)

const (
	defaultBaseURL     = "https://lm-api-reads.fantasy.espn.com/apis/v3/games/ffl"
	defaultHTTPTimeout = 10 * time.Second
	defaultRateLimit   = 60 // requests per minute

	viewSettings     = "mSettings"
	viewTeam         = "mTeam"
	viewRoster       = "mRoster"
	viewMatchupScore = "mMatchupScore"
	viewPlayerInfo   = "kona_player_info"
)

// Config configures the ESPN fantasy football client.
type Config struct {
	BaseURL     string
	HTTPTimeout time.Duration
	// RateLimit caps requests per minute across every league handle this
	// connector hands out
	RateLimit int

	HTTPClient *http.Client
}

// Connector dials ESPN leagues. It implements fantasy.Connector.
type Connector struct {
	cfg        Config
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewConnector creates an ESPN connector.
func NewConnector(cfg Config) *Connector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	return &Connector{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    ratelimit.PerMinute("espn", cfg.RateLimit),
	}
}

// Connect performs the league handshake: one settings read that proves
// the league exists and captures its name and current scoring period.
func (c *Connector) Connect(ctx context.Context, leagueID int64, seasonYear int, creds *fantasy.Credentials) (fantasy.League, error) {
	if leagueID <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "league id %d", leagueID)
	}
	if seasonYear < 2000 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "season year %d", seasonYear)
	}

	l := &league{
		conn:   c,
		id:     leagueID,
		season: seasonYear,
		creds:  creds,
	}

	start := time.Now()
	env, err := l.fetch(ctx, []string{viewSettings}, 0, "")
	metrics.RecordProviderCall("connect", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	l.name = env.Settings.Name
	l.week = env.currentWeek()
	if l.name == "" {
		return nil, errors.Wrapf(fantasy.ErrBadResponse, "league %d has no settings payload", leagueID)
	}

	return l, nil
}

// league is a connected handle to one ESPN league season.
type league struct {
	conn   *Connector
	id     int64
	season int
	creds  *fantasy.Credentials
	name   string
	week   int
}

func (l *league) LeagueID() int64 {
	return l.id
}

func (l *league) SeasonYear() int {
	return l.season
}

func (l *league) Name() string {
	return l.name
}

func (l *league) CurrentWeek() int {
	return l.week
}

// Teams returns every franchise with roster and record.
func (l *league) Teams(ctx context.Context) ([]fantasy.Team, error) {
	start := time.Now()
	env, err := l.fetch(ctx, []string{viewTeam, viewRoster}, 0, "")
	metrics.RecordProviderCall("teams", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return env.teams(l.week), nil
}

// Scoreboard returns matchups for week, or the current week when 0.
func (l *league) Scoreboard(ctx context.Context, week int) ([]fantasy.Matchup, error) {
	if week <= 0 {
		week = l.week
	}

	start := time.Now()
	env, err := l.fetch(ctx, []string{viewMatchupScore, viewTeam, viewRoster}, week, "")
	metrics.RecordProviderCall("scoreboard", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return env.matchups(week), nil
}

// Standings returns teams ranked by wins, points-for breaking ties.
func (l *league) Standings(ctx context.Context) ([]fantasy.Team, error) {
	start := time.Now()
	env, err := l.fetch(ctx, []string{viewTeam}, 0, "")
	metrics.RecordProviderCall("standings", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	teams := env.teams(l.week)
	fantasy.SortStandings(teams)
	return teams, nil
}

// FreeAgents returns the most-owned available players.
func (l *league) FreeAgents(ctx context.Context, limit int) ([]fantasy.Player, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	filter := fmt.Sprintf(
		`{"players":{"filterStatus":{"value":["FREEAGENT","WAIVERS"]},"limit":%d,"sortPercOwned":{"sortAsc":false,"sortPriority":1}}}`,
		limit,
	)

	start := time.Now()
	env, err := l.fetch(ctx, []string{viewPlayerInfo}, 0, filter)
	metrics.RecordProviderCall("free_agents", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	players := make([]fantasy.Player, 0, len(env.Players))
	for _, p := range env.Players {
		players = append(players, p.Player.toPlayer(l.week, fantasy.PositionUnknown))
	}
	return players, nil
}

// Snapshot fetches teams, rosters and the current scoreboard in one
// round trip.
func (l *league) Snapshot(ctx context.Context) (*fantasy.Snapshot, error) {
	start := time.Now()
	env, err := l.fetch(ctx, []string{viewSettings, viewTeam, viewRoster, viewMatchupScore}, 0, "")
	metrics.RecordProviderCall("snapshot", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	week := env.currentWeek()
	if week == 0 {
		week = l.week
	} else {
		// Keep the handle's notion of "current" in step with the provider
		l.week = week
	}

	name := env.Settings.Name
	if name == "" {
		name = l.name
	}

	return &fantasy.Snapshot{
		LeagueID:   l.id,
		SeasonYear: l.season,
		LeagueName: name,
		Week:       week,
		Teams:      env.teams(week),
		Matchups:   env.matchups(week),
		FetchedAt:  time.Now(),
	}, nil
}

// fetch performs one GET against the league endpoint with the given
// views. week > 0 pins scoringPeriodId; filter, when non-empty, is sent
// as the X-Fantasy-Filter header ESPN uses for player queries.
func (l *league) fetch(ctx context.Context, views []string, week int, filter string) (*envelope, error) {
	if err := l.conn.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/seasons/%d/segments/0/leagues/%d", l.conn.cfg.BaseURL, l.season, l.id)

	params := url.Values{}
	for _, v := range views {
		params.Add("view", v)
	}
	if week > 0 {
		params.Set("scoringPeriodId", strconv.Itoa(week))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build espn request")
	}

	req.Header.Set("Accept", "application/json")
	if filter != "" {
		req.Header.Set("X-Fantasy-Filter", filter)
	}
	if l.creds != nil && !l.creds.Empty() {
		req.AddCookie(&http.Cookie{Name: "SWID", Value: l.creds.SWID})
		req.AddCookie(&http.Cookie{Name: "espn_s2", Value: l.creds.ESPNS2})
	}

	resp, err := l.conn.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "espn request for league %d", l.id)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read espn response")
	}

	if err := statusError(resp.StatusCode, l.id); err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrapf(fantasy.ErrBadResponse, "decode league %d: %v", l.id, err)
	}

	return &env, nil
}

// statusError maps HTTP status codes onto typed provider errors.
func statusError(code int, leagueID int64) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.Wrapf(fantasy.ErrPrivateLeague, "league %d returned HTTP %d", leagueID, code)
	case code == http.StatusNotFound:
		return errors.Wrapf(fantasy.ErrLeagueNotFound, "league %d", leagueID)
	case code == http.StatusTooManyRequests:
		return errors.Wrapf(fantasy.ErrRateLimited, "league %d", leagueID)
	case code >= 500:
		return errors.Wrapf(errors.ErrUnavailable, "espn returned HTTP %d for league %d", code, leagueID)
	default:
		return errors.Wrapf(fantasy.ErrBadResponse, "espn returned HTTP %d for league %d", code, leagueID)
	}
}
