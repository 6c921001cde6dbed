package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/l1jgo/worldstate/internal/config"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("persist: save not found")
	ErrBadName  = errors.New("persist: invalid slot or key name")
)

// Entry describes one stored blob.
type Entry struct {
	Slot      string
	Key       string
	Size      int
	UpdatedAt time.Time
}

// Store keeps encoded save files grouped into slots. A slot holds one blob
// per key (a level name, or the game header).
type Store interface {
	Put(ctx context.Context, slot, key string, data []byte) error
	Get(ctx context.Context, slot, key string) ([]byte, error)
	// List returns a slot's entries sorted by key.
	List(ctx context.Context, slot string) ([]Entry, error)
	// Slots returns every non-empty slot, sorted.
	Slots(ctx context.Context) ([]string, error)
	DeleteSlot(ctx context.Context, slot string) error
	// CopySlot replaces dst with the contents of src.
	CopySlot(ctx context.Context, src, dst string) error
	Close() error
}

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "file":
		return NewFileStore(cfg.Dir, log)
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.SQLitePath, log)
	case "postgres":
		return NewPGStore(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("persist: unknown backend %q", cfg.Backend)
	}
}

// validName rejects names that cannot be used as a single path element.
func validName(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`+"\x00") {
		return fmt.Errorf("%w: %q", ErrBadName, s)
	}
	return nil
}

func validPair(slot, key string) error {
	if err := validName(slot); err != nil {
		return err
	}
	return validName(key)
}
