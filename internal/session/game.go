package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/l1jgo/worldstate/internal/core/event"
	"github.com/l1jgo/worldstate/internal/save"
	"go.uber.org/zap"
)

// GameInfo summarizes a saved game.
type GameInfo struct {
	Name    string
	Session uuid.UUID
	Level   string
	Time    float64
	Levels  int
}

// SaveGame snapshots the current level and copies the whole current slot,
// including every level visited so far, into the slot called name.
func (s *Session) SaveGame(ctx context.Context, name string) error {
	if name == CurrentSlot {
		return fmt.Errorf("%w: %s", ErrReservedSlot, name)
	}
	if err := s.SaveLevel(ctx); err != nil {
		return err
	}
	if err := s.store.CopySlot(ctx, CurrentSlot, name); err != nil {
		return fmt.Errorf("save game %s: %w", name, err)
	}
	s.log.Info("game saved", zap.String("name", name), zap.String("level", s.w.Level))
	event.Emit(s.w.Bus, event.GameSaved{Name: name, Level: s.w.Level})
	return nil
}

// readGame decodes the game header of a slot.
func (s *Session) readGame(ctx context.Context, slot string) (*save.Buffer, error) {
	data, err := s.store.Get(ctx, slot, gameKey)
	if err != nil {
		return nil, err
	}
	b, err := save.Decode(data, s.w.SaveEnv())
	if err != nil {
		return nil, fmt.Errorf("decode game %s: %w", slot, err)
	}
	return b, nil
}

// LoadGame replaces the running game with the one saved under name. The
// saved session id is adopted so its level snapshots stay usable.
func (s *Session) LoadGame(ctx context.Context, name string) error {
	b, err := s.readGame(ctx, name)
	if err != nil {
		return fmt.Errorf("load game %s: %w", name, err)
	}
	if _, ok := s.levels.Get(b.Header.Level); !ok {
		return fmt.Errorf("load game %s: %w: %s", name, ErrUnknownLevel, b.Header.Level)
	}
	if name != CurrentSlot {
		if err := s.store.CopySlot(ctx, name, CurrentSlot); err != nil {
			return fmt.Errorf("load game %s: %w", name, err)
		}
	}

	from := s.w.Level
	s.w.Clear()
	if err := s.api.RestoreGlobalState(b); err != nil {
		return fmt.Errorf("load game %s: %w", name, err)
	}
	s.id = b.Header.Session
	s.w.Time = b.Header.Time
	s.pending = nil

	if err := s.enterLevel(ctx, b.Header.Level, false); err != nil {
		return fmt.Errorf("load game %s: %w", name, err)
	}
	if len(s.Players()) == 0 {
		if _, err := s.SpawnPlayer(); err != nil {
			return fmt.Errorf("load game %s: %w", name, err)
		}
	}
	s.log.Info("game loaded",
		zap.String("name", name),
		zap.String("session", s.id.String()),
		zap.String("level", s.w.Level),
		zap.Int("entities", s.w.Count()))
	event.Emit(s.w.Bus, event.LevelChanged{From: from, To: s.w.Level})
	return nil
}

// Games lists the saved games in the store, skipping the current slot and
// slots without a game header.
func (s *Session) Games(ctx context.Context) ([]GameInfo, error) {
	slots, err := s.store.Slots(ctx)
	if err != nil {
		return nil, err
	}
	var out []GameInfo
	for _, slot := range slots {
		if slot == CurrentSlot {
			continue
		}
		b, err := s.readGame(ctx, slot)
		if err != nil {
			s.log.Debug("skip slot", zap.String("slot", slot), zap.Error(err))
			continue
		}
		entries, err := s.store.List(ctx, slot)
		if err != nil {
			return nil, err
		}
		out = append(out, GameInfo{
			Name:    slot,
			Session: b.Header.Session,
			Level:   b.Header.Level,
			Time:    b.Header.Time,
			Levels:  len(entries) - 1,
		})
	}
	return out, nil
}

// DeleteGame removes a saved game.
func (s *Session) DeleteGame(ctx context.Context, name string) error {
	if name == CurrentSlot {
		return fmt.Errorf("%w: %s", ErrReservedSlot, name)
	}
	if _, err := s.readGame(ctx, name); err != nil {
		return fmt.Errorf("delete game %s: %w", name, err)
	}
	return s.store.DeleteSlot(ctx, name)
}
