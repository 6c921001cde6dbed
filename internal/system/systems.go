// Package system holds the tick systems that drive a session: event
// delivery, thinking, level changes, autosave and deferred removal.
package system

import (
	coresys "github.com/l1jgo/worldstate/internal/core/system"
	"github.com/l1jgo/worldstate/internal/session"
	"go.uber.org/zap"
)

// Register adds every session system to r.
func Register(r *coresys.Runner, s *session.Session, autosaveTicks int, log *zap.Logger) *AutosaveSystem {
	w := s.World()
	autosave := NewAutosaveSystem(s, log.Named("autosave"), autosaveTicks)
	r.Register(NewEventSystem(w.Bus))
	r.Register(NewThinkSystem(w, s.API()))
	r.Register(NewLevelChangeSystem(s, log.Named("levelchange")))
	r.Register(autosave)
	r.Register(NewCleanupSystem(w))
	return autosave
}
