package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/l1jgo/worldstate/internal/config"
	"go.uber.org/zap"
)

// PGStore keeps saves in PostgreSQL.
type PGStore struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

func NewPGStore(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (*PGStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PGStore{Pool: pool, log: log}, nil
}

func (s *PGStore) Put(ctx context.Context, slot, key string, data []byte) error {
	if err := validPair(slot, key); err != nil {
		return err
	}
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO saves (slot, key, data, size, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (slot, key) DO UPDATE
		 SET data = EXCLUDED.data, size = EXCLUDED.size, updated_at = EXCLUDED.updated_at`,
		slot, key, data, len(data),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", slot, key, err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, slot, key string) ([]byte, error) {
	if err := validPair(slot, key); err != nil {
		return nil, err
	}
	var data []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT data FROM saves WHERE slot = $1 AND key = $2`, slot, key,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, slot, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", slot, key, err)
	}
	return data, nil
}

func (s *PGStore) List(ctx context.Context, slot string) ([]Entry, error) {
	if err := validName(slot); err != nil {
		return nil, err
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT key, size, updated_at FROM saves WHERE slot = $1 ORDER BY key`, slot)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", slot, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e := Entry{Slot: slot}
		if err := rows.Scan(&e.Key, &e.Size, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list %s: %w", slot, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PGStore) Slots(ctx context.Context) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT DISTINCT slot FROM saves ORDER BY slot`)
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

func (s *PGStore) DeleteSlot(ctx context.Context, slot string) error {
	if err := validName(slot); err != nil {
		return err
	}
	if _, err := s.Pool.Exec(ctx, `DELETE FROM saves WHERE slot = $1`, slot); err != nil {
		return fmt.Errorf("delete %s: %w", slot, err)
	}
	return nil
}

// CopySlot runs in one transaction; a failure leaves dst untouched.
func (s *PGStore) CopySlot(ctx context.Context, src, dst string) error {
	if err := validPair(src, dst); err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("copy begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM saves WHERE slot = $1`, dst); err != nil {
		return fmt.Errorf("copy clear %s: %w", dst, err)
	}
	tag, err := tx.Exec(ctx,
		`INSERT INTO saves (slot, key, data, size, updated_at)
		 SELECT $1, key, data, size, now() FROM saves WHERE slot = $2`,
		dst, src,
	)
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("copy commit: %w", err)
	}
	s.log.Debug("slot copied", zap.String("src", src), zap.String("dst", dst), zap.Int64("entries", tag.RowsAffected()))
	return nil
}

func (s *PGStore) Close() error {
	s.Pool.Close()
	return nil
}
