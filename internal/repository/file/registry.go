package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"huddle/internal/domain/league"
	"huddle/pkg/crypto"
	"huddle/pkg/errors"
)

// Store keeps the whole registry in one JSON document, replaced
// atomically on every save. Registration volume is low enough that
// rewriting the file beats running a database.
//
// With an encryptor the provider cookie pair is sealed before it is
// written, so the document on disk never carries plaintext secrets. A
// plaintext document still loads, which is how existing registries
// migrate: the next save rewrites them sealed.
type Store struct {
	mu   sync.Mutex
	path string
	enc  *crypto.Encryptor
}

// NewStore creates a store backed by the file at path. The file may
// not exist yet. enc may be nil, in which case credentials are stored
// plaintext.
func NewStore(path string, enc *crypto.Encryptor) *Store {
	return &Store{path: path, enc: enc}
}

// storedCredentials is the on-disk credential shape. Either the plain
// cookie pair or the sealed blob is populated, never both.
type storedCredentials struct {
	SWID   string `json:"swid,omitempty"`
	ESPNS2 string `json:"espn_s2,omitempty"`
	Sealed []byte `json:"sealed,omitempty"`
}

type storedConfig struct {
	LeagueID     int64              `json:"league_id"`
	SeasonYear   int                `json:"season_year"`
	OwnerID      int64              `json:"owner_id"`
	DisplayName  string             `json:"display_name"`
	Credentials  *storedCredentials `json:"credentials,omitempty"`
	RegisteredAt time.Time          `json:"registered_at"`
}

type document struct {
	Leagues map[league.Key]*storedConfig `json:"leagues"`
	Users   map[int64]*league.UserIndex  `json:"users"`
}

// Load reads the registry document. A missing file is an empty
// registry, not an error.
func (s *Store) Load(ctx context.Context) (*league.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return league.NewState(), nil
		}
		return nil, errors.Wrapf(err, "read registry %s", s.path)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "decode registry %s", s.path)
	}

	state := league.NewState()
	state.Users = doc.Users
	for key, sc := range doc.Leagues {
		cfg, err := s.toDomain(sc)
		if err != nil {
			return nil, errors.Wrapf(err, "league %s", key)
		}
		state.Leagues[key] = cfg
	}
	state.Normalize()

	return state, nil
}

// Ping verifies the registry location is reachable. A missing file or
// directory is fine because Save creates both; permission and mount
// problems are not.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "stat registry %s", s.path)
	}
	return nil
}

// Save replaces the document via temp file and rename, so a crash
// mid-write never leaves a torn registry. The file stays private to
// the process owner because it can carry provider credentials.
func (s *Store) Save(ctx context.Context, state *league.State) error {
	if state == nil {
		return errors.Wrap(errors.ErrInvalidInput, "save registry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := document{
		Leagues: make(map[league.Key]*storedConfig, len(state.Leagues)),
		Users:   state.Users,
	}
	for key, cfg := range state.Leagues {
		sc, err := s.toStored(cfg)
		if err != nil {
			return errors.Wrapf(err, "league %s", key)
		}
		doc.Leagues[key] = sc
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode registry")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create registry dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return errors.Wrap(err, "create registry temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write registry temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "sync registry temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close registry temp file")
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "chmod registry temp file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "replace registry %s", s.path)
	}

	return nil
}

func (s *Store) toStored(cfg *league.Config) (*storedConfig, error) {
	sc := &storedConfig{
		LeagueID:     cfg.LeagueID,
		SeasonYear:   cfg.SeasonYear,
		OwnerID:      cfg.OwnerID,
		DisplayName:  cfg.DisplayName,
		RegisteredAt: cfg.RegisteredAt,
	}
	if cfg.Credentials.Empty() {
		return sc, nil
	}
	if s.enc == nil {
		sc.Credentials = &storedCredentials{
			SWID:   cfg.Credentials.SWID,
			ESPNS2: cfg.Credentials.ESPNS2,
		}
		return sc, nil
	}

	plain, err := json.Marshal(cfg.Credentials)
	if err != nil {
		return nil, errors.Wrap(err, "encode credentials")
	}
	sealed, err := s.enc.EncryptBytes(plain)
	if err != nil {
		return nil, errors.Wrap(err, "seal credentials")
	}
	sc.Credentials = &storedCredentials{Sealed: sealed}
	return sc, nil
}

func (s *Store) toDomain(sc *storedConfig) (*league.Config, error) {
	cfg := &league.Config{
		LeagueID:     sc.LeagueID,
		SeasonYear:   sc.SeasonYear,
		OwnerID:      sc.OwnerID,
		DisplayName:  sc.DisplayName,
		RegisteredAt: sc.RegisteredAt,
	}
	if sc.Credentials == nil {
		return cfg, nil
	}
	if len(sc.Credentials.Sealed) == 0 {
		cfg.Credentials = &league.Credentials{
			SWID:   sc.Credentials.SWID,
			ESPNS2: sc.Credentials.ESPNS2,
		}
		return cfg, nil
	}

	if s.enc == nil {
		return nil, errors.New("registry holds sealed credentials but no encryption key is configured")
	}
	plain, err := s.enc.DecryptBytes(sc.Credentials.Sealed)
	if err != nil {
		return nil, errors.Wrap(err, "unseal credentials")
	}
	creds := &league.Credentials{}
	if err := json.Unmarshal(plain, creds); err != nil {
		return nil, errors.Wrap(err, "decode credentials")
	}
	cfg.Credentials = creds
	return cfg, nil
}
