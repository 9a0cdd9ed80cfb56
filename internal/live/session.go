package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"huddle/internal/adapters/fantasy"
	"huddle/internal/metrics"
	"huddle/pkg/errors"
	"huddle/pkg/logger"
)

// ErrStopped is returned for operations on a torn-down session.
var ErrStopped = errors.New("live session stopped")

// State names the session lifecycle phase.
type State string

const (
	// StateAuto polls the provider on a timer
	StateAuto State = "auto"
	// StateManual keeps the session alive for explicit refreshes only
	StateManual State = "manual"
	// StateStopped is terminal
	StateStopped State = "stopped"
)

// Surface is the display a session renders into.
type Surface interface {
	// Push replaces the rendered view with a fresh one
	Push(ctx context.Context, view View) error

	// Expired tells the surface its session idled out, so it can drop
	// interactive controls
	Expired(ctx context.Context) error
}

// View is one renderable frame: the freshest payload plus the
// pagination window over it.
type View struct {
	Snapshot    *fantasy.Snapshot
	Page        int
	Pages       int
	PerPage     int
	AutoRefresh bool
}

// Matchups returns the slice of matchups visible on this view's page.
func (v View) Matchups() []fantasy.Matchup {
	if v.Snapshot == nil || v.PerPage <= 0 {
		return nil
	}
	lo := v.Page * v.PerPage
	if lo >= len(v.Snapshot.Matchups) {
		return nil
	}
	hi := lo + v.PerPage
	if hi > len(v.Snapshot.Matchups) {
		hi = len(v.Snapshot.Matchups)
	}
	return v.Snapshot.Matchups[lo:hi]
}

// Config tunes a live session.
type Config struct {
	// PollInterval between automatic fetches
	PollInterval time.Duration
	// MaxConsecutiveErrors before auto-refresh disables itself
	MaxConsecutiveErrors int
	// IdleTimeout tears the session down when nobody interacts
	IdleTimeout time.Duration
	// PerPage is how many matchups one page shows
	PerPage int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.MaxConsecutiveErrors <= 0 {
		c.MaxConsecutiveErrors = 10
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.PerPage <= 0 {
		c.PerPage = 4
	}
	return c
}

// Session drives one live scoreboard view. It always fetches straight
// from the provider, never the shared cache: this tier exists for the
// user staring at a close matchup, and a 300-second-old number is not
// what they came for.
type Session struct {
	id      string
	cfg     Config
	handle  fantasy.League
	surface Surface
	log     *logger.Logger

	mu         sync.Mutex
	state      State
	started    bool
	page       int
	pages      int
	last       *fantasy.Snapshot
	errStreak  int
	parent     context.Context
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	idle       *time.Timer
}

// NewSession creates a session over an already-connected league
// handle. Nothing runs until Start.
func NewSession(handle fantasy.League, surface Surface, cfg Config) *Session {
	id := uuid.New().String()
	return &Session{
		id:      id,
		cfg:     cfg.withDefaults(),
		handle:  handle,
		surface: surface,
		state:   StateManual,
		pages:   1,
		log: logger.Get().With(
			"component", "live_session",
			"session_id", id,
			"league_id", handle.LeagueID(),
		),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Surface returns the display this session renders into, the same
// value the caller passed to NewSession.
func (s *Session) Surface() Surface {
	return s.surface
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Page returns the current page index and total page count.
func (s *Session) Page() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, s.pages
}

// ErrorStreak returns the consecutive failed-poll count.
func (s *Session) ErrorStreak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errStreak
}

// Start performs the first fetch synchronously so the view opens with
// real data, then begins polling when autoRefresh is set. ctx outlives
// the call: it parents the polling loop.
func (s *Session) Start(ctx context.Context, autoRefresh bool) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "session %s already started", s.id)
	}
	if s.state == StateStopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.started = true
	s.parent = ctx
	s.mu.Unlock()

	snap, err := s.handle.Snapshot(ctx)
	metrics.RecordLiveIteration(err)
	if err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return errors.Wrap(err, "open live view")
	}

	s.mu.Lock()
	s.absorbLocked(snap)
	s.idle = time.AfterFunc(s.cfg.IdleTimeout, s.expire)
	if autoRefresh {
		s.state = StateAuto
		s.spawnLoopLocked()
	}
	view := s.viewLocked()
	s.mu.Unlock()

	metrics.LiveSessions.Inc()
	s.log.Infow("Live session opened", "auto_refresh", autoRefresh, "matchups", len(snap.Matchups))

	return s.surface.Push(ctx, view)
}

// ManualRefresh fetches and re-renders right now, in auto or manual
// state. It never touches the consecutive-error counter; that budget
// belongs to the polling loop.
func (s *Session) ManualRefresh(ctx context.Context) error {
	if err := s.touch(); err != nil {
		return err
	}

	snap, err := s.handle.Snapshot(ctx)
	metrics.RecordLiveIteration(err)
	if err != nil {
		return errors.Wrap(err, "manual refresh")
	}

	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.absorbLocked(snap)
	view := s.viewLocked()
	s.mu.Unlock()

	return s.surface.Push(ctx, view)
}

// ToggleAutoRefresh flips between auto and manual polling and reports
// the new auto state. Re-enabling waits for any prior loop to die
// first: a session never runs two loops.
func (s *Session) ToggleAutoRefresh(ctx context.Context) (bool, error) {
	if err := s.touch(); err != nil {
		return false, err
	}

	s.mu.Lock()
	enabling := s.state == StateManual
	s.mu.Unlock()

	s.haltLoop()

	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return false, ErrStopped
	}

	if !enabling {
		s.state = StateManual
		view := s.viewLocked()
		s.mu.Unlock()
		s.log.Info("Auto-refresh paused")
		return false, s.surface.Push(ctx, view)
	}

	s.state = StateAuto
	// Fresh loop, fresh error budget
	s.errStreak = 0
	s.spawnLoopLocked()
	view := s.viewLocked()
	s.mu.Unlock()

	s.log.Info("Auto-refresh resumed")
	return true, s.surface.Push(ctx, view)
}

// NextPage advances the pagination window over the last payload. Pure
// state: no fetch, and no re-render when already on the last page.
func (s *Session) NextPage(ctx context.Context) error {
	return s.flip(ctx, 1)
}

// PrevPage is the mirror of NextPage.
func (s *Session) PrevPage(ctx context.Context) error {
	return s.flip(ctx, -1)
}

func (s *Session) flip(ctx context.Context, delta int) error {
	if err := s.touch(); err != nil {
		return err
	}

	s.mu.Lock()
	target := s.page + delta
	if target < 0 || target > s.pages-1 {
		s.mu.Unlock()
		return nil
	}
	s.page = target
	view := s.viewLocked()
	s.mu.Unlock()

	return s.surface.Push(ctx, view)
}

// Stop tears the session down. Safe to call any number of times; the
// loop is cancelled exactly once.
func (s *Session) Stop() {
	if !s.teardown() {
		return
	}
	metrics.LiveSessions.Dec()
	s.log.Info("Live session stopped")
}

// expire is the idle-timeout teardown: same as Stop plus telling the
// surface to drop its controls.
func (s *Session) expire() {
	if !s.teardown() {
		return
	}
	metrics.LiveSessions.Dec()
	s.log.Infow("Live session expired", "idle_timeout", s.cfg.IdleTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.surface.Expired(ctx); err != nil {
		s.log.Warnw("Surface expiry notification failed", "error", err)
	}
}

// teardown moves to StateStopped once and reports whether this call
// did the transition.
func (s *Session) teardown() bool {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return false
	}
	s.state = StateStopped
	if s.idle != nil {
		s.idle.Stop()
	}
	s.mu.Unlock()

	s.haltLoop()
	return true
}

// touch rearms the idle timer; every user interaction lands here.
func (s *Session) touch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return ErrStopped
	}
	if s.idle != nil {
		s.idle.Reset(s.cfg.IdleTimeout)
	}
	return nil
}

// spawnLoopLocked starts the polling goroutine. Callers hold mu. The
// no-op when a loop is already registered is what makes a second loop
// impossible regardless of interleaving.
func (s *Session) spawnLoopLocked() {
	if s.loopDone != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(s.parent)
	done := make(chan struct{})
	s.loopCancel = cancel
	s.loopDone = done

	go s.loop(loopCtx, done)
}

// haltLoop cancels the registered loop, if any, and waits for it to
// finish. Never called with mu held.
func (s *Session) haltLoop() {
	s.mu.Lock()
	cancel, done := s.loopCancel, s.loopDone
	s.loopCancel, s.loopDone = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// loop is the auto-refresh timer. Cancellation is honored only at the
// timer boundary; a poll that has started always finishes. The loop
// exits on its own when the error streak hits the limit.
func (s *Session) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(s.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if !s.pollOnce(context.WithoutCancel(ctx)) {
				return
			}
			timer.Reset(s.cfg.PollInterval)
		}
	}
}

// pollOnce runs one auto-refresh iteration and reports whether the
// loop should keep going.
func (s *Session) pollOnce(ctx context.Context) bool {
	snap, err := s.handle.Snapshot(ctx)
	metrics.RecordLiveIteration(err)

	if err != nil {
		s.mu.Lock()
		if s.state != StateAuto {
			s.mu.Unlock()
			return false
		}
		s.errStreak++
		streak := s.errStreak
		tripped := streak >= s.cfg.MaxConsecutiveErrors
		var view View
		if tripped {
			// Auto-refresh turns itself off; the session stays usable
			// for manual refreshes
			s.state = StateManual
			view = s.viewLocked()
		}
		s.mu.Unlock()

		s.log.Warnw("Live poll failed", "streak", streak, "error", err)
		if tripped {
			s.log.Warnw("Auto-refresh disabled after repeated failures", "streak", streak)
			if pushErr := s.surface.Push(ctx, view); pushErr != nil {
				s.log.Warnw("Paused-state render failed", "error", pushErr)
			}
			return false
		}
		return true
	}

	s.mu.Lock()
	if s.state != StateAuto {
		s.mu.Unlock()
		return false
	}
	s.errStreak = 0
	s.absorbLocked(snap)
	view := s.viewLocked()
	s.mu.Unlock()

	if err := s.surface.Push(ctx, view); err != nil {
		s.log.Warnw("Live render failed", "error", err)
	}
	return true
}

// absorbLocked installs a fresh payload and keeps the page window
// inside the new bounds. Callers hold mu.
func (s *Session) absorbLocked(snap *fantasy.Snapshot) {
	s.last = snap
	s.pages = pageCount(len(snap.Matchups), s.cfg.PerPage)
	if s.page > s.pages-1 {
		s.page = s.pages - 1
	}
}

func (s *Session) viewLocked() View {
	return View{
		Snapshot:    s.last,
		Page:        s.page,
		Pages:       s.pages,
		PerPage:     s.cfg.PerPage,
		AutoRefresh: s.state == StateAuto,
	}
}

// pageCount never returns less than one page, so pagination stays in
// [0, pages-1] even over an empty payload.
func pageCount(items, perPage int) int {
	if items <= 0 {
		return 1
	}
	return (items + perPage - 1) / perPage
}
