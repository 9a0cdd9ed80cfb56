package leaguefactory

import (
	"context"

	"huddle/internal/adapters/fantasy"
	"huddle/internal/adapters/fantasy/retry"
	"huddle/pkg/errors"
	"huddle/pkg/logger"
)

// New creates a factory that validates every handle it hands out. The
// retry config bounds how long a flaky provider can hold up a caller.
func New(connector fantasy.Connector, retryCfg retry.Config) fantasy.Factory {
	return &factory{
		connector: connector,
		retry:     retry.New(retryCfg),
	}
}

type factory struct {
	connector fantasy.Connector
	retry     *retry.Middleware
}

// CreateLeague connects and proves the handle usable with a team
// enumeration. Exhausting retries surfaces ErrConnectivity wrapping the
// last underlying failure.
func (f *factory) CreateLeague(ctx context.Context, leagueID int64, seasonYear int, creds *fantasy.Credentials) (fantasy.League, error) {
	if leagueID <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "league id %d", leagueID)
	}
	if seasonYear <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "season year %d", seasonYear)
	}

	var handle fantasy.League
	err := f.retry.Do(ctx, func() error {
		h, err := f.connector.Connect(ctx, leagueID, seasonYear, creds)
		if err != nil {
			logger.Get().Debugw("league connect attempt failed",
				"league_id", leagueID,
				"season", seasonYear,
				"error", err)
			return err
		}

		if _, err := h.Teams(ctx); err != nil {
			logger.Get().Debugw("league validation read failed",
				"league_id", leagueID,
				"season", seasonYear,
				"error", err)
			return err
		}

		handle = h
		return nil
	})
	if err != nil {
		// Caller cancellation is not a provider fault
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrConnectivity), "league %d season %d", leagueID, seasonYear)
	}

	return handle, nil
}
