package system

import (
	"context"
	"time"

	coresys "github.com/l1jgo/worldstate/internal/core/system"
	"github.com/l1jgo/worldstate/internal/session"
	"go.uber.org/zap"
)

// AutosaveSystem snapshots the current level every interval ticks so a crash
// loses at most that much play. Phase 3 (Persist).
type AutosaveSystem struct {
	s         *session.Session
	log       *zap.Logger
	tickCount int
	interval  int
}

func NewAutosaveSystem(s *session.Session, log *zap.Logger, intervalTicks int) *AutosaveSystem {
	return &AutosaveSystem{s: s, log: log, interval: intervalTicks}
}

func (a *AutosaveSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (a *AutosaveSystem) Update(_ time.Duration) {
	if a.interval <= 0 || !a.s.Running() {
		return
	}
	a.tickCount++
	if a.tickCount < a.interval {
		return
	}
	a.tickCount = 0
	a.Save()
}

// Save snapshots immediately. Called for graceful shutdown.
func (a *AutosaveSystem) Save() {
	if !a.s.Running() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.s.SaveLevel(ctx); err != nil {
		a.log.Error("autosave failed", zap.String("level", a.s.World().Level), zap.Error(err))
		return
	}
	a.log.Debug("autosaved", zap.String("level", a.s.World().Level))
}
