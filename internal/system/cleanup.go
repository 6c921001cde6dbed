package system

import (
	"time"

	coresys "github.com/l1jgo/worldstate/internal/core/system"
	"github.com/l1jgo/worldstate/internal/world"
)

// CleanupSystem frees the entities removed during the tick.
// Phase 4 (Cleanup).
type CleanupSystem struct {
	w *world.World
}

func NewCleanupSystem(w *world.World) *CleanupSystem {
	return &CleanupSystem{w: w}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.w.Flush()
}
