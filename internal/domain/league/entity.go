package league

import (
	"fmt"
	"time"
)

// Key identifies one registration: the remote league id plus the user
// who registered it. Two users registering the same remote league hold
// distinct configs.
type Key string

// NewKey builds the composite registration key.
func NewKey(leagueID, ownerID int64) Key {
	return Key(fmt.Sprintf("%d_%d", leagueID, ownerID))
}

func (k Key) String() string {
	return string(k)
}

// Credentials is the provider cookie pair required for private leagues.
type Credentials struct {
	SWID   string `json:"swid,omitempty"`
	ESPNS2 string `json:"espn_s2,omitempty"`
}

// Empty reports whether no credentials were supplied. Nil-safe.
func (c *Credentials) Empty() bool {
	return c == nil || (c.SWID == "" && c.ESPNS2 == "")
}

// Config is one registered league. Immutable once stored; registering
// the same key again replaces the config wholesale.
type Config struct {
	LeagueID     int64        `json:"league_id"`
	SeasonYear   int          `json:"season_year"`
	OwnerID      int64        `json:"owner_id"`
	DisplayName  string       `json:"display_name"`
	Credentials  *Credentials `json:"credentials,omitempty"`
	RegisteredAt time.Time    `json:"registered_at"`
}

// Key returns the composite registration key.
func (c *Config) Key() Key {
	return NewKey(c.LeagueID, c.OwnerID)
}

// Clone returns an independent copy, credentials included.
func (c *Config) Clone() *Config {
	out := *c
	if c.Credentials != nil {
		creds := *c.Credentials
		out.Credentials = &creds
	}
	return &out
}

// CacheKey names the shared cache slot for this league's snapshot.
// Deliberately owner-independent so users sharing a league share one
// cached payload.
func (c *Config) CacheKey() string {
	return fmt.Sprintf("league:%d:%d", c.LeagueID, c.SeasonYear)
}

// UserIndex tracks one user's registrations in registration order plus
// their default. Default, when set, is always a member of Keys.
type UserIndex struct {
	Keys    []Key `json:"league_keys"`
	Default Key   `json:"default_league_key,omitempty"`
}

// Contains reports whether k is among the user's registrations.
func (u *UserIndex) Contains(k Key) bool {
	for _, have := range u.Keys {
		if have == k {
			return true
		}
	}
	return false
}

// Add appends k preserving registration order; re-adding is a no-op so
// re-registration keeps exactly one entry.
func (u *UserIndex) Add(k Key) {
	if !u.Contains(k) {
		u.Keys = append(u.Keys, k)
	}
}

// Remove drops k and reports whether it was present. Removing the
// default promotes the first remaining key, or clears the default when
// none remain.
func (u *UserIndex) Remove(k Key) bool {
	for i, have := range u.Keys {
		if have != k {
			continue
		}
		u.Keys = append(u.Keys[:i], u.Keys[i+1:]...)
		if u.Default == k {
			if len(u.Keys) > 0 {
				u.Default = u.Keys[0]
			} else {
				u.Default = ""
			}
		}
		return true
	}
	return false
}

// SetDefault marks k as the default and reports whether k was a
// registered member; the default is never set to an unknown key.
func (u *UserIndex) SetDefault(k Key) bool {
	if !u.Contains(k) {
		return false
	}
	u.Default = k
	return true
}

// Empty reports whether the user has no registrations left.
func (u *UserIndex) Empty() bool {
	return len(u.Keys) == 0
}

// State is the whole registry document: every config plus every user
// index, persisted as one record.
type State struct {
	Leagues map[Key]*Config      `json:"leagues"`
	Users   map[int64]*UserIndex `json:"users"`
}

// NewState returns an empty, usable state.
func NewState() *State {
	return &State{
		Leagues: make(map[Key]*Config),
		Users:   make(map[int64]*UserIndex),
	}
}

// Normalize ensures maps exist after decoding a sparse document.
func (s *State) Normalize() {
	if s.Leagues == nil {
		s.Leagues = make(map[Key]*Config)
	}
	if s.Users == nil {
		s.Users = make(map[int64]*UserIndex)
	}
}

// Clone deep-copies the state so callers can mutate without racing the
// copy handed to the persister.
func (s *State) Clone() *State {
	out := NewState()
	for k, cfg := range s.Leagues {
		out.Leagues[k] = cfg.Clone()
	}
	for id, idx := range s.Users {
		keys := make([]Key, len(idx.Keys))
		copy(keys, idx.Keys)
		out.Users[id] = &UserIndex{Keys: keys, Default: idx.Default}
	}
	return out
}
