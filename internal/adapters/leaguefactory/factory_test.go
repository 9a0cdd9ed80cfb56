package leaguefactory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/internal/adapters/fantasy"
	"huddle/internal/adapters/fantasy/retry"
	"huddle/pkg/errors"
)

type stubLeague struct {
	fantasy.League

	id       int64
	teams    []fantasy.Team
	teamsErr error

	teamsCalls atomic.Int64
}

func (s *stubLeague) LeagueID() int64 { return s.id }

func (s *stubLeague) Teams(_ context.Context) ([]fantasy.Team, error) {
	s.teamsCalls.Add(1)
	if s.teamsErr != nil {
		return nil, s.teamsErr
	}
	return s.teams, nil
}

type stubConnector struct {
	league     *stubLeague
	connectErr error

	connectCalls atomic.Int64

	// failFirst makes only the first N connects fail
	failFirst int64
}

func (s *stubConnector) Connect(_ context.Context, _ int64, _ int, _ *fantasy.Credentials) (fantasy.League, error) {
	n := s.connectCalls.Add(1)
	if s.connectErr != nil && (s.failFirst == 0 || n <= s.failFirst) {
		return nil, s.connectErr
	}
	return s.league, nil
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, Delay: time.Millisecond, Strategy: retry.StrategyFixed}
}

func TestCreateLeague_Success(t *testing.T) {
	league := &stubLeague{id: 123, teams: []fantasy.Team{{ID: 1, Name: "Hawk Nation"}}}
	conn := &stubConnector{league: league}

	f := New(conn, fastRetry())
	h, err := f.CreateLeague(context.Background(), 123, 2025, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(123), h.LeagueID())
	assert.Equal(t, int64(1), conn.connectCalls.Load())
	assert.Equal(t, int64(1), league.teamsCalls.Load())
}

func TestCreateLeague_RetriesTransientFailure(t *testing.T) {
	league := &stubLeague{id: 123, teams: []fantasy.Team{{ID: 1}}}
	conn := &stubConnector{league: league, connectErr: errors.ErrUnavailable, failFirst: 2}

	f := New(conn, fastRetry())
	h, err := f.CreateLeague(context.Background(), 123, 2025, nil)

	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, int64(3), conn.connectCalls.Load())
}

func TestCreateLeague_ExhaustionWrapsConnectivity(t *testing.T) {
	provider := errors.New("espn is down")
	conn := &stubConnector{connectErr: provider}

	f := New(conn, fastRetry())
	_, err := f.CreateLeague(context.Background(), 123, 2025, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConnectivity)
	assert.ErrorIs(t, err, provider)
	assert.Equal(t, int64(3), conn.connectCalls.Load())
}

func TestCreateLeague_ValidationReadMustPass(t *testing.T) {
	league := &stubLeague{id: 123, teamsErr: errors.ErrUnauthorized}
	conn := &stubConnector{league: league}

	f := New(conn, fastRetry())
	_, err := f.CreateLeague(context.Background(), 123, 2025, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConnectivity)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
	assert.Equal(t, int64(3), league.teamsCalls.Load())
}

func TestCreateLeague_RejectsBadInput(t *testing.T) {
	conn := &stubConnector{}
	f := New(conn, fastRetry())

	_, err := f.CreateLeague(context.Background(), 0, 2025, nil)
	require.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = f.CreateLeague(context.Background(), 123, 0, nil)
	require.ErrorIs(t, err, errors.ErrInvalidInput)

	assert.Equal(t, int64(0), conn.connectCalls.Load())
}

func TestCreateLeague_CancellationIsNotConnectivity(t *testing.T) {
	conn := &stubConnector{connectErr: errors.ErrUnavailable}
	f := New(conn, retry.Config{MaxAttempts: 5, Delay: time.Minute, Strategy: retry.StrategyFixed})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := f.CreateLeague(ctx, 123, 2025, nil)
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, errors.ErrConnectivity))
	case <-time.After(2 * time.Second):
		t.Fatal("CreateLeague did not return after cancellation")
	}
}
