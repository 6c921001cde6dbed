package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const fileExt = ".sav"

// FileStore lays slots out as directories of <key>.sav files.
type FileStore struct {
	dir string
	log *zap.Logger
}

func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

func (s *FileStore) path(slot, key string) string {
	return filepath.Join(s.dir, slot, key+fileExt)
}

// Put writes through a temp file and rename so a crash never leaves a torn
// save behind.
func (s *FileStore) Put(_ context.Context, slot, key string, data []byte) error {
	if err := validPair(slot, key); err != nil {
		return err
	}
	dir := filepath.Join(s.dir, slot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create slot %s: %w", slot, err)
	}
	tmp, err := os.CreateTemp(dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", slot, key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("put %s/%s: %w", slot, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("put %s/%s: %w", slot, key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(slot, key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("put %s/%s: %w", slot, key, err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, slot, key string) ([]byte, error) {
	if err := validPair(slot, key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(slot, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, slot, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", slot, key, err)
	}
	return data, nil
}

func (s *FileStore) List(_ context.Context, slot string) ([]Entry, error) {
	if err := validName(slot); err != nil {
		return nil, err
	}
	des, err := os.ReadDir(filepath.Join(s.dir, slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", slot, err)
	}
	var out []Entry
	for _, de := range des {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Slot:      slot,
			Key:       strings.TrimSuffix(name, fileExt),
			Size:      int(info.Size()),
			UpdatedAt: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *FileStore) Slots(ctx context.Context) ([]string, error) {
	des, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	var out []string
	for _, de := range des {
		if !de.IsDir() {
			continue
		}
		entries, err := s.List(ctx, de.Name())
		if err != nil || len(entries) == 0 {
			continue
		}
		out = append(out, de.Name())
	}
	sort.Strings(out)
	return out, nil
}

func (s *FileStore) DeleteSlot(_ context.Context, slot string) error {
	if err := validName(slot); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.dir, slot)); err != nil {
		return fmt.Errorf("delete %s: %w", slot, err)
	}
	return nil
}

func (s *FileStore) CopySlot(ctx context.Context, src, dst string) error {
	if err := validPair(src, dst); err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	entries, err := s.List(ctx, src)
	if err != nil {
		return err
	}
	if err := s.DeleteSlot(ctx, dst); err != nil {
		return err
	}
	for _, e := range entries {
		data, err := s.Get(ctx, src, e.Key)
		if err != nil {
			return err
		}
		if err := s.Put(ctx, dst, e.Key, data); err != nil {
			return err
		}
	}
	s.log.Debug("slot copied", zap.String("src", src), zap.String("dst", dst), zap.Int("entries", len(entries)))
	return nil
}

func (s *FileStore) Close() error { return nil }
