package snapshot

import (
	"context"

	"huddle/internal/adapters/fantasy"
	"huddle/internal/domain/league"
	"huddle/internal/metrics"
	"huddle/pkg/cache"
	"huddle/pkg/errors"
	"huddle/pkg/logger"
)

// Service is the cached read path for league payloads. Commands read
// through it; the background refresher fills the same cache from the
// other side, so most reads never leave the process.
type Service struct {
	cache   *cache.Cache[*fantasy.Snapshot]
	factory fantasy.Factory
	log     *logger.Logger
}

// NewService creates the snapshot read service.
func NewService(c *cache.Cache[*fantasy.Snapshot], factory fantasy.Factory) *Service {
	return &Service{
		cache:   c,
		factory: factory,
		log:     logger.Get().With("component", "snapshot_service"),
	}
}

// Get returns the league's snapshot, from cache while fresh, otherwise
// fetched from the provider and cached for the next reader.
func (s *Service) Get(ctx context.Context, cfg *league.Config) (*fantasy.Snapshot, error) {
	if cfg == nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "league config is required")
	}

	if snap, ok := s.cache.Get(cfg.CacheKey()); ok {
		metrics.RecordCacheRead(true)
		s.log.Debugw("Snapshot served from cache",
			"league_id", cfg.LeagueID,
			"age", snap.Age(),
		)
		return snap, nil
	}

	metrics.RecordCacheRead(false)
	return s.fetch(ctx, cfg)
}

// Refresh fetches from the provider unconditionally and replaces the
// cached entry. Used by the refresh command when a user wants numbers
// newer than the TTL guarantees.
func (s *Service) Refresh(ctx context.Context, cfg *league.Config) (*fantasy.Snapshot, error) {
	if cfg == nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "league config is required")
	}
	return s.fetch(ctx, cfg)
}

// Cached returns the cached snapshot without ever fetching.
func (s *Service) Cached(cfg *league.Config) (*fantasy.Snapshot, bool) {
	if cfg == nil {
		return nil, false
	}
	return s.cache.Get(cfg.CacheKey())
}

// Connect builds a live provider handle for the league, for callers
// that need per-week or uncached reads.
func (s *Service) Connect(ctx context.Context, cfg *league.Config) (fantasy.League, error) {
	if cfg == nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "league config is required")
	}
	return s.factory.CreateLeague(ctx, cfg.LeagueID, cfg.SeasonYear, providerCreds(cfg.Credentials))
}

func (s *Service) fetch(ctx context.Context, cfg *league.Config) (*fantasy.Snapshot, error) {
	handle, err := s.factory.CreateLeague(ctx, cfg.LeagueID, cfg.SeasonYear, providerCreds(cfg.Credentials))
	if err != nil {
		return nil, err
	}

	snap, err := handle.Snapshot(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot league %d", cfg.LeagueID)
	}

	s.cache.Set(cfg.CacheKey(), snap)
	s.log.Debugw("Snapshot fetched and cached",
		"league_id", cfg.LeagueID,
		"week", snap.Week,
		"teams", len(snap.Teams),
	)

	return snap, nil
}

func providerCreds(c *league.Credentials) *fantasy.Credentials {
	if c.Empty() {
		return nil
	}
	return &fantasy.Credentials{SWID: c.SWID, ESPNS2: c.ESPNS2}
}
