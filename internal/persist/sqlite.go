package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps saves in a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

func NewSQLiteStore(ctx context.Context, path string, log *zap.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Single writer; the pragma below applies per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := runSQLiteMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, slot, key string, data []byte) error {
	if err := validPair(slot, key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO saves (slot, key, data, size, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		slot, key, data, len(data), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", slot, key, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, slot, key string) ([]byte, error) {
	if err := validPair(slot, key); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM saves WHERE slot = ? AND key = ?`, slot, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, slot, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", slot, key, err)
	}
	return data, nil
}

func (s *SQLiteStore) List(ctx context.Context, slot string) ([]Entry, error) {
	if err := validName(slot); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, size, updated_at FROM saves WHERE slot = ? ORDER BY key`, slot)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", slot, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e := Entry{Slot: slot}
		var updated int64
		if err := rows.Scan(&e.Key, &e.Size, &updated); err != nil {
			return nil, fmt.Errorf("list %s: %w", slot, err)
		}
		e.UpdatedAt = time.Unix(0, updated)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Slots(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT slot FROM saves ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("list slots: %w", err)
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteSlot(ctx context.Context, slot string) error {
	if err := validName(slot); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("delete %s: %w", slot, err)
	}
	return nil
}

func (s *SQLiteStore) CopySlot(ctx context.Context, src, dst string) error {
	if err := validPair(src, dst); err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("copy begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, dst); err != nil {
		return fmt.Errorf("copy clear %s: %w", dst, err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO saves (slot, key, data, size, updated_at)
		 SELECT ?, key, data, size, ? FROM saves WHERE slot = ?`,
		dst, time.Now().UnixNano(), src,
	)
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("copy commit: %w", err)
	}
	n, _ := res.RowsAffected()
	s.log.Debug("slot copied", zap.String("src", src), zap.String("dst", dst), zap.Int64("entries", n))
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
