package snapshot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/internal/adapters/fantasy"
	"huddle/internal/domain/league"
	"huddle/pkg/cache"
	"huddle/pkg/errors"
)

type snapStubLeague struct {
	id        int64
	year      int
	snapCalls atomic.Int32
	snapErr   error
}

func (s *snapStubLeague) LeagueID() int64  { return s.id }
func (s *snapStubLeague) SeasonYear() int  { return s.year }
func (s *snapStubLeague) Name() string     { return "Test League" }
func (s *snapStubLeague) CurrentWeek() int { return 5 }

func (s *snapStubLeague) Teams(ctx context.Context) ([]fantasy.Team, error) {
	return []fantasy.Team{{ID: 1}}, nil
}

func (s *snapStubLeague) Scoreboard(ctx context.Context, week int) ([]fantasy.Matchup, error) {
	return nil, nil
}

func (s *snapStubLeague) Standings(ctx context.Context) ([]fantasy.Team, error) {
	return nil, nil
}

func (s *snapStubLeague) FreeAgents(ctx context.Context, limit int) ([]fantasy.Player, error) {
	return nil, nil
}

func (s *snapStubLeague) Snapshot(ctx context.Context) (*fantasy.Snapshot, error) {
	s.snapCalls.Add(1)
	if s.snapErr != nil {
		return nil, s.snapErr
	}
	return &fantasy.Snapshot{
		LeagueID:   s.id,
		SeasonYear: s.year,
		LeagueName: "Test League",
		Week:       5,
		FetchedAt:  time.Now(),
	}, nil
}

type snapStubFactory struct {
	calls     atomic.Int32
	createErr error
	league    *snapStubLeague
	lastCreds *fantasy.Credentials
}

func (f *snapStubFactory) CreateLeague(ctx context.Context, leagueID int64, seasonYear int, creds *fantasy.Credentials) (fantasy.League, error) {
	f.calls.Add(1)
	f.lastCreds = creds
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.league != nil {
		return f.league, nil
	}
	return &snapStubLeague{id: leagueID, year: seasonYear}, nil
}

func testConfig() *league.Config {
	return &league.Config{
		LeagueID:     777,
		SeasonYear:   2025,
		OwnerID:      10,
		DisplayName:  "Test League",
		RegisteredAt: time.Now(),
	}
}

func TestGet_MissFetchesAndCaches(t *testing.T) {
	factory := &snapStubFactory{}
	c := cache.New[*fantasy.Snapshot](time.Minute)
	svc := NewService(c, factory)

	cfg := testConfig()

	snap, err := svc.Get(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(777), snap.LeagueID)
	assert.Equal(t, int32(1), factory.calls.Load())

	cached, ok := c.Get(cfg.CacheKey())
	require.True(t, ok)
	assert.Equal(t, snap, cached)
}

func TestGet_HitSkipsProvider(t *testing.T) {
	factory := &snapStubFactory{}
	c := cache.New[*fantasy.Snapshot](time.Minute)
	svc := NewService(c, factory)

	cfg := testConfig()

	first, err := svc.Get(context.Background(), cfg)
	require.NoError(t, err)

	second, err := svc.Get(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), factory.calls.Load())
}

func TestGet_ExpiredEntryRefetches(t *testing.T) {
	factory := &snapStubFactory{}
	c := cache.New[*fantasy.Snapshot](20 * time.Millisecond)
	svc := NewService(c, factory)

	cfg := testConfig()

	_, err := svc.Get(context.Background(), cfg)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = svc.Get(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(2), factory.calls.Load())
}

func TestGet_SharedCacheKeyAcrossOwners(t *testing.T) {
	factory := &snapStubFactory{}
	c := cache.New[*fantasy.Snapshot](time.Minute)
	svc := NewService(c, factory)

	mine := testConfig()
	theirs := testConfig()
	theirs.OwnerID = 99

	_, err := svc.Get(context.Background(), mine)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), theirs)
	require.NoError(t, err)

	// Same remote league, one provider fetch regardless of owner
	assert.Equal(t, int32(1), factory.calls.Load())
}

func TestRefresh_BypassesFreshCache(t *testing.T) {
	factory := &snapStubFactory{}
	c := cache.New[*fantasy.Snapshot](time.Minute)
	svc := NewService(c, factory)

	cfg := testConfig()

	_, err := svc.Get(context.Background(), cfg)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(2), factory.calls.Load())

	// The refreshed payload replaced the cached one
	_, err = svc.Get(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(2), factory.calls.Load())
}

func TestGet_FactoryErrorPropagates(t *testing.T) {
	factory := &snapStubFactory{
		createErr: errors.Mark(errors.New("dial tcp: timeout"), errors.ErrConnectivity),
	}
	c := cache.New[*fantasy.Snapshot](time.Minute)
	svc := NewService(c, factory)

	_, err := svc.Get(context.Background(), testConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConnectivity))
	assert.Equal(t, 0, c.Len())
}

func TestGet_SnapshotErrorNotCached(t *testing.T) {
	factory := &snapStubFactory{
		league: &snapStubLeague{id: 777, year: 2025, snapErr: fantasy.ErrRateLimited},
	}
	c := cache.New[*fantasy.Snapshot](time.Minute)
	svc := NewService(c, factory)

	_, err := svc.Get(context.Background(), testConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fantasy.ErrRateLimited))
	assert.Equal(t, 0, c.Len())
}

func TestGet_NilConfigRejected(t *testing.T) {
	factory := &snapStubFactory{}
	svc := NewService(cache.New[*fantasy.Snapshot](time.Minute), factory)

	_, err := svc.Get(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	assert.Equal(t, int32(0), factory.calls.Load())
}

func TestGet_CredentialsReachProvider(t *testing.T) {
	factory := &snapStubFactory{}
	svc := NewService(cache.New[*fantasy.Snapshot](time.Minute), factory)

	cfg := testConfig()
	cfg.Credentials = &league.Credentials{SWID: "{SWID}", ESPNS2: "s2token"}

	_, err := svc.Get(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, factory.lastCreds)
	assert.Equal(t, "{SWID}", factory.lastCreds.SWID)
	assert.Equal(t, "s2token", factory.lastCreds.ESPNS2)
}

func TestCached_NeverFetches(t *testing.T) {
	factory := &snapStubFactory{}
	c := cache.New[*fantasy.Snapshot](time.Minute)
	svc := NewService(c, factory)

	cfg := testConfig()

	_, ok := svc.Cached(cfg)
	assert.False(t, ok)
	assert.Equal(t, int32(0), factory.calls.Load())

	_, err := svc.Get(context.Background(), cfg)
	require.NoError(t, err)

	snap, ok := svc.Cached(cfg)
	assert.True(t, ok)
	assert.NotNil(t, snap)
	assert.Equal(t, int32(1), factory.calls.Load())
}
