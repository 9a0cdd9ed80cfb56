package workers

import (
	"context"
	"time"

	"huddle/internal/adapters/fantasy"
	"huddle/internal/domain/league"
	"huddle/internal/metrics"
	"huddle/pkg/cache"
	"huddle/pkg/errors"
	"huddle/pkg/ratelimit"
)

// LeagueSource enumerates the registrations a refresh pass covers.
type LeagueSource interface {
	AllLeagues(ctx context.Context) []*league.Config
}

// RefreshConfig tunes the background refresh worker.
type RefreshConfig struct {
	Enabled bool
	// Interval between passes
	Interval time.Duration
	// Pacing between per-league fetches within one pass
	Pacing time.Duration
	// Cooldown before the next pass after a failed one
	Cooldown time.Duration
}

// RefreshWorker keeps the snapshot cache warm for every registered
// league. A pass is idempotent: leagues whose cache entry is still
// fresh are skipped, so overlapping registrations of the same remote
// league cost one fetch.
type RefreshWorker struct {
	*BaseWorker

	registry LeagueSource
	factory  fantasy.Factory
	cache    *cache.Cache[*fantasy.Snapshot]
	pacer    *ratelimit.Limiter
}

// NewRefreshWorker creates the refresh worker.
func NewRefreshWorker(
	registry LeagueSource,
	factory fantasy.Factory,
	snapshots *cache.Cache[*fantasy.Snapshot],
	cfg RefreshConfig,
) *RefreshWorker {
	base := NewBaseWorker("league_refresh", cfg.Interval, cfg.Enabled)
	base.SetCooldown(cfg.Cooldown)

	return &RefreshWorker{
		BaseWorker: base,
		registry:   registry,
		factory:    factory,
		cache:      snapshots,
		pacer:      ratelimit.Every("refresh_pacing", cfg.Pacing),
	}
}

// Run performs one refresh pass. Per-league failures are isolated: one
// broken league never blocks the rest. The pass as a whole fails only
// when every attempted fetch failed, which reads as a provider-wide
// outage and earns the longer cooldown.
func (w *RefreshWorker) Run(ctx context.Context) error {
	start := time.Now()

	configs := w.registry.AllLeagues(ctx)
	if len(configs) == 0 {
		w.RecordRun(time.Since(start))
		return nil
	}

	// A fetch that has started always completes; cancellation lands on
	// the pacing wait between fetches instead.
	fetchCtx := context.WithoutCancel(ctx)

	var fetched, fresh, failed int
	for _, cfg := range configs {
		cacheKey := cfg.CacheKey()
		if _, ok := w.cache.Get(cacheKey); ok {
			fresh++
			metrics.RefreshLeagues.WithLabelValues("fresh").Inc()
			continue
		}

		if err := w.pacer.Wait(ctx); err != nil {
			w.Log().Infow("Refresh pass interrupted", "completed", fetched+fresh+failed, "total", len(configs))
			break
		}

		snap, err := w.fetchSnapshot(fetchCtx, cfg)
		if err != nil {
			failed++
			metrics.RefreshLeagues.WithLabelValues("failed").Inc()
			w.Log().Warnw("League refresh failed",
				"key", cfg.Key(),
				"league_id", cfg.LeagueID,
				"error", err,
			)
			continue
		}

		w.cache.Set(cacheKey, snap)
		fetched++
		metrics.RefreshLeagues.WithLabelValues("fetched").Inc()
	}

	elapsed := time.Since(start)

	if fetched == 0 && failed > 0 {
		err := errors.Wrapf(errors.ErrUnavailable, "refresh pass failed for all %d fetched leagues", failed)
		w.RecordError(err, elapsed)
		return err
	}

	w.RecordRun(elapsed)
	w.Log().Infow("Refresh pass complete",
		"fetched", fetched,
		"fresh", fresh,
		"failed", failed,
		"duration", elapsed,
	)
	return nil
}

func (w *RefreshWorker) fetchSnapshot(ctx context.Context, cfg *league.Config) (*fantasy.Snapshot, error) {
	handle, err := w.factory.CreateLeague(ctx, cfg.LeagueID, cfg.SeasonYear, providerCreds(cfg.Credentials))
	if err != nil {
		return nil, err
	}
	return handle.Snapshot(ctx)
}

func providerCreds(c *league.Credentials) *fantasy.Credentials {
	if c.Empty() {
		return nil
	}
	return &fantasy.Credentials{SWID: c.SWID, ESPNS2: c.ESPNS2}
}
