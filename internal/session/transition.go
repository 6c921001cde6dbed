package session

import (
	"context"
	"fmt"
	"sort"

	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/core/event"
	"github.com/l1jgo/worldstate/internal/core/vec"
	"github.com/l1jgo/worldstate/internal/dispatch"
	"github.com/l1jgo/worldstate/internal/save"
	"github.com/l1jgo/worldstate/internal/world"
	"go.uber.org/zap"
)

// findLandmark returns the origin of the info_landmark named name.
func (s *Session) findLandmark(name string) (vec.Vec3, bool) {
	if name == "" {
		return vec.Vec3{}, false
	}
	for _, e := range s.w.FindByTargetName(name) {
		if e.Classname() == "info_landmark" {
			return e.Origin, true
		}
	}
	return vec.Vec3{}, false
}

// TransitionList returns the entities that travel to the next level: every
// player, entities that may cross a transition and lie within the
// transition radius of the landmark, and entities that always travel.
func (s *Session) TransitionList(landmark vec.Vec3, haveLandmark bool) []*world.Entity {
	var out []*world.Entity
	s.w.Each(func(e *world.Entity) bool {
		if e.IsRemoved() {
			return true
		}
		caps := e.Caps()
		switch {
		case caps.Has(world.CapDontSave):
		case e.IsPlayer(), caps.Has(world.CapForceTransition):
			out = append(out, e)
		case haveLandmark && caps.Has(world.CapAcrossTransition) && !e.IsDormant() &&
			vec.DistSqr(e.Origin, landmark) <= s.radius*s.radius:
			out = append(out, e)
		}
		return true
	})
	return out
}

// ChangeLevel travels to next through the landmark of the given name.
//
// The current level is snapshotted with the travelling entities flagged,
// they are written to a transition buffer relative to the landmark, the
// level is unloaded and next is restored or spawned. The travelling entities
// are then recreated relative to next's landmark of the same name; global
// ones are overlaid onto their placeholder in next.
func (s *Session) ChangeLevel(ctx context.Context, next, landmark string) error {
	if !s.Running() {
		return ErrNoGame
	}
	if _, ok := s.levels.Get(next); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLevel, next)
	}
	from := s.w.Level
	origin, haveLandmark := s.findLandmark(landmark)
	if landmark != "" && !haveLandmark {
		s.log.Warn("landmark not found", zap.String("level", from), zap.String("landmark", landmark))
	}

	moving := s.TransitionList(origin, haveLandmark)
	movingIDs := make(map[ecs.EntityID]bool, len(moving))
	for _, e := range moving {
		movingIDs[e.ID()] = true
	}
	if err := s.writeLevel(ctx, movingIDs); err != nil {
		return err
	}

	h := save.Header{
		Session:  s.id,
		Level:    from,
		Time:     s.w.Time,
		Landmark: save.Landmark{Use: haveLandmark, Name: landmark, Offset: origin},
	}
	buf, _, err := s.encodeEntities(h, moving, func(e *world.Entity) save.RowFlags {
		return rowFlags(e) | save.RowMoveable
	})
	if err != nil {
		return fmt.Errorf("transition buffer: %w", err)
	}

	s.w.Clear()
	if err := s.enterLevel(ctx, next, true); err != nil {
		return err
	}

	n, err := s.restoreTransition(buf, landmark)
	if err != nil {
		return err
	}
	s.log.Info("level changed",
		zap.String("from", from),
		zap.String("to", s.w.Level),
		zap.String("landmark", landmark),
		zap.Int("carried", n))
	event.Emit(s.w.Bus, event.LevelChanged{From: from, To: s.w.Level, Landmark: landmark})
	return s.writeGame(ctx)
}

// restoreTransition recreates the entities of a transition buffer in the
// level just entered and returns how many arrived.
func (s *Session) restoreTransition(data []byte, landmark string) (int, error) {
	b, err := save.Decode(data, s.w.SaveEnv())
	if err != nil {
		return 0, fmt.Errorf("decode transition: %w", err)
	}
	if b.Header.Session != s.id {
		return 0, fmt.Errorf("transition: %w", ErrForeignSession)
	}
	b.SetTime(s.w.Time)
	if b.Header.Landmark.Use {
		dest, ok := s.findLandmark(landmark)
		if !ok {
			s.log.Warn("destination landmark not found", zap.String("level", s.w.Level), zap.String("landmark", landmark))
		}
		b.SetLandmarkOffset(dest)
	}

	rows := b.Entities().Rows()
	created := make([]*world.Entity, len(rows))
	for i := range rows {
		if !rows[i].HasData() {
			continue
		}
		e, err := s.w.Create(rows[i].Classname)
		if err != nil {
			s.log.Warn("cannot recreate travelling entity", zap.String("classname", rows[i].Classname), zap.Error(err))
			continue
		}
		b.SetRestored(rows[i].Index, e.ID())
		created[i] = e
	}

	// Global rows that will be overlaid are mapped to their placeholders
	// before any row is read, so references between travellers resolve to
	// the entities that stay.
	for i := range rows {
		if created[i] == nil || !rows[i].Flags.Has(save.RowGlobal) {
			continue
		}
		if err := b.SeekEntity(int32(i)); err != nil {
			continue
		}
		if placeholder, ok := s.ext.OverlayTarget(b); ok {
			b.SetRestored(rows[i].Index, placeholder.ID())
		}
	}

	order := make([]int, 0, len(rows))
	for i := range rows {
		if created[i] != nil {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, c int) bool {
		return rows[order[a]].Flags.Has(save.RowGlobal) && !rows[order[c]].Flags.Has(save.RowGlobal)
	})

	n := 0
	for _, i := range order {
		e := created[i]
		global := rows[i].Flags.Has(save.RowGlobal)
		if err := b.SeekEntity(int32(i)); err != nil {
			s.w.Free(e)
			continue
		}
		switch res := s.api.Restore(e, b, global); res {
		case dispatch.OK:
			event.Emit(s.w.Bus, event.EntitySpawned{ID: e.ID(), Classname: e.Classname()})
			n++
		case dispatch.Overlaid:
			s.w.Free(e)
			n++
		default:
			s.log.Debug("travelling entity dropped",
				zap.String("classname", rows[i].Classname),
				zap.Stringer("result", res))
			s.w.Free(e)
		}
	}
	return n, nil
}
