package league

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"huddle/internal/adapters/fantasy"
	"huddle/internal/domain/league"
	"huddle/internal/metrics"
	"huddle/pkg/errors"
	"huddle/pkg/logger"
)

// Service is the league registry: every registration a user has made,
// which one is their default, and the lookups the rest of the bot
// resolves leagues through. All mutations persist synchronously before
// returning.
type Service struct {
	mu      sync.RWMutex
	state   *league.State
	repo    league.Repository
	factory fantasy.Factory
	log     *logger.Logger
}

// NewService creates the registry. Call Load before serving requests.
func NewService(repo league.Repository, factory fantasy.Factory, log *logger.Logger) *Service {
	return &Service{
		state:   league.NewState(),
		repo:    repo,
		factory: factory,
		log:     log.With("component", "league_registry"),
	}
}

// Load pulls the persisted registry into memory, replacing whatever
// state the service held.
func (s *Service) Load(ctx context.Context) error {
	state, err := s.repo.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load registry")
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	metrics.RegisteredLeagues.Set(float64(len(state.Leagues)))
	s.log.Infow("Registry loaded",
		"leagues", len(state.Leagues),
		"users", len(state.Users),
	)
	return nil
}

// RegisterInput describes one registration request.
type RegisterInput struct {
	UserID      int64
	LeagueID    int64
	SeasonYear  int // 0 means the current season
	DisplayName string
	Credentials *league.Credentials
}

// Register validates the league against the provider and persists the
// registration. The user's first league becomes their default.
// Re-registering the same league replaces its config wholesale and
// keeps exactly one index entry.
func (s *Service) Register(ctx context.Context, input RegisterInput) (league.Key, error) {
	if input.UserID <= 0 {
		return "", errors.Wrapf(errors.ErrInvalidInput, "user id %d", input.UserID)
	}
	if input.LeagueID <= 0 {
		return "", errors.Wrapf(errors.ErrInvalidInput, "league id %d", input.LeagueID)
	}
	season := input.SeasonYear
	if season == 0 {
		season = fantasy.SeasonFor(time.Now())
	}

	s.log.Infow("Registering league",
		"user_id", input.UserID,
		"league_id", input.LeagueID,
		"season", season,
	)

	// Validation happens outside the lock: it is a remote round trip and
	// must not block readers.
	handle, err := s.factory.CreateLeague(ctx, input.LeagueID, season, providerCreds(input.Credentials))
	if err != nil {
		return "", errors.Mark(err, errors.ErrValidation)
	}

	teams, err := handle.Teams(ctx)
	if err != nil {
		return "", errors.Mark(err, errors.ErrValidation)
	}
	if len(teams) == 0 {
		return "", errors.Wrapf(errors.ErrValidation, "league %d has no teams", input.LeagueID)
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = handle.Name()
	}

	cfg := &league.Config{
		LeagueID:     input.LeagueID,
		SeasonYear:   season,
		OwnerID:      input.UserID,
		DisplayName:  displayName,
		Credentials:  input.Credentials,
		RegisteredAt: time.Now(),
	}
	key := cfg.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	next.Leagues[key] = cfg.Clone()

	idx := next.Users[input.UserID]
	if idx == nil {
		idx = &league.UserIndex{}
		next.Users[input.UserID] = idx
	}
	firstEver := idx.Empty()
	idx.Add(key)
	if firstEver {
		idx.Default = key
	}

	if err := s.commitLocked(ctx, next); err != nil {
		return "", err
	}

	s.log.Infow("League registered",
		"key", key,
		"name", displayName,
		"teams", len(teams),
		"default", firstEver,
	)
	return key, nil
}

// UserLeagues returns the user's registrations in registration order.
func (s *Service) UserLeagues(ctx context.Context, userID int64) []*league.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.state.Users[userID]
	if idx == nil {
		return nil
	}

	out := make([]*league.Config, 0, len(idx.Keys))
	for _, k := range idx.Keys {
		if cfg := s.state.Leagues[k]; cfg != nil {
			out = append(out, cfg.Clone())
		}
	}
	return out
}

// DefaultKey returns the user's default league key, if any.
func (s *Service) DefaultKey(userID int64) (league.Key, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.state.Users[userID]
	if idx == nil || idx.Default == "" {
		return "", false
	}
	return idx.Default, true
}

// Lookup resolves a registration without touching the provider. An
// empty key resolves the user's default. Absence is not an error.
func (s *Service) Lookup(ctx context.Context, userID int64, key league.Key) (*league.Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.state.Users[userID]
	if idx == nil {
		return nil, false
	}

	if key == "" {
		key = idx.Default
	}
	if key == "" || !idx.Contains(key) {
		return nil, false
	}

	cfg := s.state.Leagues[key]
	if cfg == nil {
		return nil, false
	}
	return cfg.Clone(), true
}

// Connection resolves a registration and dials a validated handle for
// it. An empty key resolves the user's default. ok is false when no
// matching registration exists; err reports provider trouble only.
func (s *Service) Connection(ctx context.Context, userID int64, key league.Key) (fantasy.League, bool, error) {
	cfg, ok := s.Lookup(ctx, userID, key)
	if !ok {
		return nil, false, nil
	}

	handle, err := s.factory.CreateLeague(ctx, cfg.LeagueID, cfg.SeasonYear, providerCreds(cfg.Credentials))
	if err != nil {
		return nil, true, err
	}
	return handle, true, nil
}

// SetDefault marks key as the user's default. False when key is not
// among the user's registrations; the previous default then stands.
func (s *Service) SetDefault(ctx context.Context, userID int64, key league.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.Users[userID]
	if idx == nil || !idx.Contains(key) {
		return false, nil
	}
	if idx.Default == key {
		return true, nil
	}

	next := s.state.Clone()
	next.Users[userID].SetDefault(key)

	if err := s.commitLocked(ctx, next); err != nil {
		return false, err
	}

	s.log.Infow("Default league changed", "user_id", userID, "key", key)
	return true, nil
}

// Remove unregisters key for the user. Removing the default promotes
// the next remaining league. The config itself is deleted only when
// the caller registered it.
func (s *Service) Remove(ctx context.Context, userID int64, key league.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.Users[userID]
	if idx == nil || !idx.Contains(key) {
		return false, nil
	}

	next := s.state.Clone()
	next.Users[userID].Remove(key)
	if next.Users[userID].Empty() {
		delete(next.Users, userID)
	}

	if cfg := next.Leagues[key]; cfg != nil && cfg.OwnerID == userID {
		delete(next.Leagues, key)
	}

	if err := s.commitLocked(ctx, next); err != nil {
		return false, err
	}

	s.log.Infow("League removed", "user_id", userID, "key", key)
	return true, nil
}

// FindByName searches every user's leagues. Exact case-insensitive
// matches rank first, then substring matches, each group in
// registration order.
func (s *Service) FindByName(ctx context.Context, pattern string) []*league.Config {
	pattern = strings.TrimSpace(strings.ToLower(pattern))
	if pattern == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var exact, partial []*league.Config
	for _, cfg := range s.state.Leagues {
		name := strings.ToLower(cfg.DisplayName)
		switch {
		case name == pattern:
			exact = append(exact, cfg.Clone())
		case strings.Contains(name, pattern):
			partial = append(partial, cfg.Clone())
		}
	}

	byRegistration(exact)
	byRegistration(partial)
	return append(exact, partial...)
}

// AllLeagues returns every registered config in registration order.
// The refresh pass enumerates these; configs sharing a remote league
// also share a cache key, so duplicates cost one fetch, not two.
func (s *Service) AllLeagues(ctx context.Context) []*league.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*league.Config, 0, len(s.state.Leagues))
	for _, cfg := range s.state.Leagues {
		out = append(out, cfg.Clone())
	}
	byRegistration(out)
	return out
}

// commitLocked persists next and swaps it in. The in-memory state
// never changes unless the save succeeded, so a failed write leaves
// the registry consistent with the file. Callers hold mu.
func (s *Service) commitLocked(ctx context.Context, next *league.State) error {
	if err := s.repo.Save(ctx, next); err != nil {
		s.log.Errorw("Registry persist failed", "error", err)
		return errors.Wrap(err, "persist registry")
	}
	s.state = next
	metrics.RegisteredLeagues.Set(float64(len(next.Leagues)))
	return nil
}

func providerCreds(c *league.Credentials) *fantasy.Credentials {
	if c.Empty() {
		return nil
	}
	return &fantasy.Credentials{SWID: c.SWID, ESPNS2: c.ESPNS2}
}

// byRegistration orders configs oldest-first, key as the tiebreak so
// the order is stable across map iteration.
func byRegistration(configs []*league.Config) {
	sort.Slice(configs, func(i, j int) bool {
		if !configs[i].RegisteredAt.Equal(configs[j].RegisteredAt) {
			return configs[i].RegisteredAt.Before(configs[j].RegisteredAt)
		}
		return configs[i].Key() < configs[j].Key()
	})
}
