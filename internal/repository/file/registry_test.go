package file

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huddle/internal/domain/league"
	"huddle/pkg/crypto"
)

func testState() *league.State {
	s := league.NewState()
	k := league.NewKey(123, 9)
	s.Leagues[k] = &league.Config{
		LeagueID:     123,
		SeasonYear:   2025,
		OwnerID:      9,
		DisplayName:  "Sunday Crew",
		Credentials:  &league.Credentials{SWID: "{A1}", ESPNS2: "s2"},
		RegisteredAt: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC),
	}
	s.Users[9] = &league.UserIndex{Keys: []league.Key{k}, Default: k}
	return s
}

func testEncryptor(t *testing.T) *crypto.Encryptor {
	t.Helper()
	enc, err := crypto.NewEncryptor("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	return enc
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "leagues.json"), nil)

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Empty(t, state.Leagues)
	assert.Empty(t, state.Users)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leagues.json")
	store := NewStore(path, nil)

	require.NoError(t, store.Save(context.Background(), testState()))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)

	k := league.NewKey(123, 9)
	require.Contains(t, loaded.Leagues, k)
	cfg := loaded.Leagues[k]
	assert.Equal(t, "Sunday Crew", cfg.DisplayName)
	assert.Equal(t, 2025, cfg.SeasonYear)
	require.NotNil(t, cfg.Credentials)
	assert.Equal(t, "{A1}", cfg.Credentials.SWID)

	require.Contains(t, loaded.Users, int64(9))
	assert.Equal(t, k, loaded.Users[9].Default)
}

func TestStore_SealedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leagues.json")
	store := NewStore(path, testEncryptor(t))

	require.NoError(t, store.Save(context.Background(), testState()))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)

	cfg := loaded.Leagues[league.NewKey(123, 9)]
	require.NotNil(t, cfg.Credentials)
	assert.Equal(t, "{A1}", cfg.Credentials.SWID)
	assert.Equal(t, "s2", cfg.Credentials.ESPNS2)
}

func TestStore_SealedFileHasNoPlaintextCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leagues.json")
	store := NewStore(path, testEncryptor(t))

	require.NoError(t, store.Save(context.Background(), testState()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "{A1}")
	assert.NotContains(t, string(raw), "espn_s2")
	assert.Contains(t, string(raw), "sealed")
}

func TestStore_PlaintextFileLoadsWithEncryptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leagues.json")
	require.NoError(t, NewStore(path, nil).Save(context.Background(), testState()))

	loaded, err := NewStore(path, testEncryptor(t)).Load(context.Background())
	require.NoError(t, err)

	cfg := loaded.Leagues[league.NewKey(123, 9)]
	require.NotNil(t, cfg.Credentials)
	assert.Equal(t, "{A1}", cfg.Credentials.SWID)
}

func TestStore_SealedFileNeedsEncryptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leagues.json")
	require.NoError(t, NewStore(path, testEncryptor(t)).Save(context.Background(), testState()))

	_, err := NewStore(path, nil).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no encryption key")
}

func TestStore_SealedFileWrongKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leagues.json")
	require.NoError(t, NewStore(path, testEncryptor(t)).Save(context.Background(), testState()))

	other, err := crypto.NewEncryptor("ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)

	_, err = NewStore(path, other).Load(context.Background())
	require.Error(t, err)
}

func TestStore_SaveReplacesWholeDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leagues.json")
	store := NewStore(path, nil)

	require.NoError(t, store.Save(context.Background(), testState()))
	require.NoError(t, store.Save(context.Background(), league.NewState()))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded.Leagues)
}

func TestStore_SaveCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "leagues.json")
	store := NewStore(path, nil)

	require.NoError(t, store.Save(context.Background(), testState()))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestStore_FileIsPrivate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	path := filepath.Join(t.TempDir(), "leagues.json")
	store := NewStore(path, nil)
	require.NoError(t, store.Save(context.Background(), testState()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leagues.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewStore(path, nil)
	_, err := store.Load(context.Background())
	require.Error(t, err)
}

func TestStore_SaveNilState(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "leagues.json"), nil)
	require.Error(t, store.Save(context.Background(), nil))
}

func TestStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "leagues.json"), nil)
	require.NoError(t, store.Save(context.Background(), testState()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "leagues.json", entries[0].Name())
}
