package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/core/event"
	"github.com/l1jgo/worldstate/internal/dispatch"
	"github.com/l1jgo/worldstate/internal/persist"
	"github.com/l1jgo/worldstate/internal/save"
	"github.com/l1jgo/worldstate/internal/world"
	"go.uber.org/zap"
)

// SaveLevel snapshots the current level and the game header into the current
// slot.
func (s *Session) SaveLevel(ctx context.Context) error {
	if !s.Running() {
		return ErrNoGame
	}
	if err := s.writeLevel(ctx, nil); err != nil {
		return err
	}
	return s.writeGame(ctx)
}

func rowFlags(e *world.Entity) save.RowFlags {
	var f save.RowFlags
	if e.GlobalName != "" {
		f |= save.RowGlobal
	}
	if e.IsPlayer() {
		f |= save.RowPlayer
	}
	return f
}

// encodeEntities writes ents into a fresh buffer: every row is added before
// any block group so references between them resolve, then each entity is
// saved in table order. Rows added by reference only are left without data.
func (s *Session) encodeEntities(h save.Header, ents []*world.Entity, flags func(*world.Entity) save.RowFlags) ([]byte, int, error) {
	b := save.NewBuffer(h, s.w.SaveEnv())
	for _, e := range ents {
		b.AddEntity(e.ID(), flags(e))
	}
	saved := 0
	for _, e := range ents {
		if s.api.Save(e, b) {
			saved++
		}
	}
	data, err := save.Encode(b)
	if err != nil {
		return nil, 0, err
	}
	return data, saved, nil
}

// writeLevel stores the current level. Entities in moving are flagged as
// having left with a transition.
func (s *Session) writeLevel(ctx context.Context, moving map[ecs.EntityID]bool) error {
	var ents []*world.Entity
	s.w.Each(func(e *world.Entity) bool {
		if !e.IsRemoved() {
			ents = append(ents, e)
		}
		return true
	})
	h := save.Header{Session: s.id, Level: s.w.Level, Time: s.w.Time}
	data, saved, err := s.encodeEntities(h, ents, func(e *world.Entity) save.RowFlags {
		f := rowFlags(e)
		if moving[e.ID()] {
			f |= save.RowMoveable
		}
		return f
	})
	if err != nil {
		return fmt.Errorf("save level %s: %w", s.w.Level, err)
	}
	if err := s.store.Put(ctx, CurrentSlot, s.w.Level, data); err != nil {
		return fmt.Errorf("save level %s: %w", s.w.Level, err)
	}
	s.log.Debug("level saved",
		zap.String("level", s.w.Level),
		zap.Int("entities", saved),
		zap.Int("bytes", len(data)))
	return nil
}

// writeGame stores the game header: session, level, clock and the global
// entity table.
func (s *Session) writeGame(ctx context.Context) error {
	b := save.NewBuffer(save.Header{Session: s.id, Level: s.w.Level, Time: s.w.Time}, s.w.SaveEnv())
	if err := s.api.SaveGlobalState(b); err != nil {
		return fmt.Errorf("save globals: %w", err)
	}
	data, err := save.Encode(b)
	if err != nil {
		return fmt.Errorf("save game header: %w", err)
	}
	if err := s.store.Put(ctx, CurrentSlot, gameKey, data); err != nil {
		return fmt.Errorf("save game header: %w", err)
	}
	return nil
}

// loadSnapshot fetches the current slot's snapshot of level. A snapshot left
// by another session is not used.
func (s *Session) loadSnapshot(ctx context.Context, level string) (*save.Buffer, error) {
	data, err := s.store.Get(ctx, CurrentSlot, level)
	if err != nil {
		return nil, err
	}
	b, err := save.Decode(data, s.w.SaveEnv())
	if err != nil {
		return nil, fmt.Errorf("decode level %s: %w", level, err)
	}
	if b.Header.Session != s.id {
		return nil, fmt.Errorf("level %s: %w", level, ErrForeignSession)
	}
	return b, nil
}

// enterLevel makes level current: from its snapshot when this session has
// been there before, from its data file otherwise. Arriving through a
// transition skips the rows that left with one and the players, who travel
// in the transition buffer.
func (s *Session) enterLevel(ctx context.Context, level string, transition bool) error {
	lv, ok := s.levels.Get(level)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLevel, level)
	}
	b, err := s.loadSnapshot(ctx, lv.Name)
	switch {
	case err == nil:
		s.w.Level = lv.Name
		n := s.restoreLevel(b, transition)
		s.log.Debug("level restored", zap.String("level", lv.Name), zap.Int("entities", n))
		return nil
	case errors.Is(err, persist.ErrNotFound):
	case errors.Is(err, ErrForeignSession):
		s.log.Warn("ignoring level snapshot from another session", zap.String("level", lv.Name))
	default:
		return err
	}
	s.spawnLevel(lv)
	return nil
}

// restoreLevel recreates the entities of a level snapshot. Every row with
// data gets its object before any block group is read, so references
// between entities of the level resolve.
func (s *Session) restoreLevel(b *save.Buffer, transition bool) int {
	b.SetTime(s.w.Time)
	rows := b.Entities().Rows()
	created := make([]*world.Entity, len(rows))
	for i := range rows {
		row := &rows[i]
		if !row.HasData() {
			continue
		}
		if transition && (row.Flags.Has(save.RowPlayer) ||
			(row.Flags.Has(save.RowMoveable) && !row.Flags.Has(save.RowGlobal))) {
			continue
		}
		e, err := s.w.Create(row.Classname)
		if err != nil {
			s.log.Warn("cannot recreate entity", zap.Int32("row", row.Index), zap.Error(err))
			continue
		}
		b.SetRestored(row.Index, e.ID())
		created[i] = e
	}

	n := 0
	for i, e := range created {
		if e == nil {
			continue
		}
		if err := b.SeekEntity(int32(i)); err != nil {
			s.log.Warn("seek entity", zap.Int("row", i), zap.Error(err))
			s.w.Free(e)
			continue
		}
		if s.api.Restore(e, b, false) != dispatch.OK {
			s.w.Free(e)
			continue
		}
		event.Emit(s.w.Bus, event.EntitySpawned{ID: e.ID(), Classname: e.Classname()})
		n++
	}
	return n
}
