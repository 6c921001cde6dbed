package system

import (
	"context"
	"time"

	coresys "github.com/l1jgo/worldstate/internal/core/system"
	"github.com/l1jgo/worldstate/internal/session"
	"go.uber.org/zap"
)

// LevelChangeSystem carries out a level change entity logic asked for.
// Phase 2 (PostUpdate).
type LevelChangeSystem struct {
	s       *session.Session
	log     *zap.Logger
	timeout time.Duration
}

func NewLevelChangeSystem(s *session.Session, log *zap.Logger) *LevelChangeSystem {
	return &LevelChangeSystem{s: s, log: log, timeout: 10 * time.Second}
}

func (l *LevelChangeSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (l *LevelChangeSystem) Update(_ time.Duration) {
	req, ok := l.s.Pending()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if _, err := l.s.ServicePending(ctx); err != nil {
		l.log.Error("level change failed",
			zap.String("next", req.Next),
			zap.String("landmark", req.Landmark),
			zap.Error(err))
	}
}
