package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/l1jgo/worldstate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	cur := "current-" + uuid.NewString()[:8]
	saved := "slot1-" + uuid.NewString()[:8]

	_, err := s.Get(ctx, cur, "start")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, cur, "start", []byte("level one")))
	require.NoError(t, s.Put(ctx, cur, "game", []byte("header")))
	require.NoError(t, s.Put(ctx, cur, "start", []byte("level one v2")))

	got, err := s.Get(ctx, cur, "start")
	require.NoError(t, err)
	assert.Equal(t, []byte("level one v2"), got)

	entries, err := s.List(ctx, cur)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "game", entries[0].Key)
	assert.Equal(t, "start", entries[1].Key)
	assert.Equal(t, len("level one v2"), entries[1].Size)

	// copy replaces everything in the destination
	require.NoError(t, s.Put(ctx, saved, "stale", []byte("x")))
	require.NoError(t, s.CopySlot(ctx, cur, saved))
	entries, err = s.List(ctx, saved)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	got, err = s.Get(ctx, saved, "game")
	require.NoError(t, err)
	assert.Equal(t, []byte("header"), got)
	_, err = s.Get(ctx, saved, "stale")
	assert.ErrorIs(t, err, ErrNotFound)

	slots, err := s.Slots(ctx)
	require.NoError(t, err)
	assert.Contains(t, slots, cur)
	assert.Contains(t, slots, saved)

	require.NoError(t, s.DeleteSlot(ctx, cur))
	entries, err = s.List(ctx, cur)
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, err = s.Get(ctx, cur, "start")
	assert.ErrorIs(t, err, ErrNotFound)

	// the copy is independent of its source
	_, err = s.Get(ctx, saved, "start")
	assert.NoError(t, err)
	require.NoError(t, s.DeleteSlot(ctx, saved))
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestFileStore_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "current", "start", []byte("a")))

	des, err := os.ReadDir(filepath.Join(dir, "current"))
	require.NoError(t, err)
	require.Len(t, des, 1)
	assert.Equal(t, "start.sav", des[0].Name())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "saves", "ws.db"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ws.db")

	s, err := NewSQLiteStore(ctx, path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "current", "start", []byte{1, 2, 3}))
	require.NoError(t, s.Close())

	// migrations are idempotent on an existing file
	s, err = NewSQLiteStore(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "current", "start")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestPGStore(t *testing.T) {
	dsn := os.Getenv("WORLDSTATE_TEST_DSN")
	if dsn == "" {
		t.Skip("WORLDSTATE_TEST_DSN not set")
	}
	cfg := config.Defaults().Store
	cfg.Backend = "postgres"
	cfg.DSN = dsn

	s, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestStore_RejectsBadNames(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, s.Put(ctx, name, "k", nil), ErrBadName, "slot %q", name)
		assert.ErrorIs(t, s.Put(ctx, "slot", name, nil), ErrBadName, "key %q", name)
	}
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()
	cfg := config.Defaults().Store

	cfg.Backend = "file"
	cfg.Dir = t.TempDir()
	s, err := Open(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	s.Close()

	cfg.Backend = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "ws.db")
	s, err = Open(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	cfg.Backend = "redis"
	_, err = Open(ctx, cfg, zap.NewNop())
	assert.Error(t, err)
}
