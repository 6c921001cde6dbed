package system

import (
	"time"

	coresys "github.com/l1jgo/worldstate/internal/core/system"
	"github.com/l1jgo/worldstate/internal/dispatch"
	"github.com/l1jgo/worldstate/internal/world"
)

// ThinkSystem advances the world clock and runs every think that came due.
// Push movers keep their own clock in LTime, which only advances while they
// are not dormant; their NextThink is compared against it. Phase 1 (Update).
type ThinkSystem struct {
	w   *world.World
	api dispatch.EntityAPI

	due []*world.Entity
}

func NewThinkSystem(w *world.World, api dispatch.EntityAPI) *ThinkSystem {
	return &ThinkSystem{w: w, api: api}
}

func (s *ThinkSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ThinkSystem) Update(dt time.Duration) {
	frame := dt.Seconds()
	s.w.FrameTime = frame
	s.w.Time += frame

	// Entities spawned by a think wait for the next tick.
	s.due = s.due[:0]
	s.w.Each(func(e *world.Entity) bool {
		if e.IsRemoved() || e.IsDormant() {
			return true
		}
		clock := s.w.Time
		if e.MoveType == world.MovePush {
			e.LTime += frame
			clock = e.LTime
		}
		if e.NextThink > 0 && e.NextThink <= clock {
			s.due = append(s.due, e)
		}
		return true
	})
	for _, e := range s.due {
		if e.IsRemoved() {
			continue
		}
		e.NextThink = 0
		s.api.Think(e)
	}
}
