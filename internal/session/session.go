// Package session drives one playthrough: it spawns levels from their data
// files, snapshots them into the save store, carries entities across level
// transitions and saves and loads whole games.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/l1jgo/worldstate/internal/config"
	"github.com/l1jgo/worldstate/internal/core/event"
	"github.com/l1jgo/worldstate/internal/data"
	"github.com/l1jgo/worldstate/internal/dispatch"
	"github.com/l1jgo/worldstate/internal/persist"
	"github.com/l1jgo/worldstate/internal/world"
	"go.uber.org/zap"
)

// CurrentSlot holds the snapshots of the game being played. SaveGame copies
// it to a named slot and LoadGame copies a named slot back.
const CurrentSlot = "current"

// gameKey is the blob in a slot holding the game header and global table.
const gameKey = "_game"

var (
	ErrUnknownLevel   = errors.New("session: unknown level")
	ErrReservedSlot   = errors.New("session: reserved save name")
	ErrForeignSession = errors.New("session: save belongs to another session")
	ErrNoGame         = errors.New("session: no game in progress")
)

// Session owns the world for the duration of a game.
type Session struct {
	w      *world.World
	api    dispatch.EntityAPI
	ext    dispatch.NewEntityAPI
	levels *data.LevelSet
	store  persist.Store
	log    *zap.Logger
	radius float64

	id      uuid.UUID
	pending *event.LevelChangeRequested
}

// New negotiates the dispatch interface and wires the free callback into the
// world's slot table.
func New(w *world.World, levels *data.LevelSet, store persist.Store, cfg config.SessionConfig, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d := dispatch.New(w, log.Named("dispatch"))
	api, err := d.GetEntityAPI(dispatch.InterfaceVersion)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	ext, err := d.GetNewEntityAPI(dispatch.NewInterfaceVersion)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	w.Slots.OnFree(ext.OnFree)

	s := &Session{
		w:      w,
		api:    api,
		ext:    ext,
		levels: levels,
		store:  store,
		log:    log,
		radius: cfg.TransitionRadius,
	}
	event.Subscribe(w.Bus, func(ev event.LevelChangeRequested) {
		if s.pending == nil {
			s.pending = &ev
		}
	})
	return s, nil
}

func (s *Session) World() *world.World     { return s.w }
func (s *Session) API() dispatch.EntityAPI { return s.api }
func (s *Session) ID() uuid.UUID           { return s.id }
func (s *Session) Store() persist.Store    { return s.store }
func (s *Session) Levels() *data.LevelSet  { return s.levels }
func (s *Session) Running() bool           { return s.id != uuid.Nil }
func (s *Session) Pending() (event.LevelChangeRequested, bool) {
	if s.pending == nil {
		return event.LevelChangeRequested{}, false
	}
	return *s.pending, true
}

// NewGame starts a fresh playthrough on level: the current slot and global
// table are cleared and the level is spawned from its data file.
func (s *Session) NewGame(ctx context.Context, level string) error {
	lv, ok := s.levels.Get(level)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLevel, level)
	}
	if err := s.store.DeleteSlot(ctx, CurrentSlot); err != nil {
		return fmt.Errorf("new game: %w", err)
	}
	s.w.Clear()
	s.api.ResetGlobalState()
	s.w.Time = 0
	s.id = uuid.New()
	s.pending = nil

	from := s.w.Level
	s.spawnLevel(lv)
	if _, err := s.SpawnPlayer(); err != nil {
		return fmt.Errorf("new game: %w", err)
	}
	s.log.Info("new game",
		zap.String("session", s.id.String()),
		zap.String("level", s.w.Level),
		zap.Int("entities", s.w.Count()))
	event.Emit(s.w.Bus, event.LevelChanged{From: from, To: s.w.Level})
	return nil
}

// spawnLevel creates every entity a level file places, applies its key/values
// and spawns it. Entities the spawn policy rejects are freed at once. Once all
// exist, activators get to resolve their references.
func (s *Session) spawnLevel(lv *data.Level) {
	s.w.Level = lv.Name
	spawned, removed := 0, 0
	for _, def := range lv.Entities {
		e, err := s.w.Create(def.Classname)
		if err != nil {
			s.log.Warn("skip entity", zap.String("level", lv.Name), zap.Error(err))
			continue
		}
		for _, kv := range def.KeyValues {
			if !s.api.KeyValue(e, kv.Key, kv.Value) {
				s.log.Debug("unhandled key",
					zap.String("classname", def.Classname),
					zap.String("key", kv.Key))
			}
		}
		if s.api.Spawn(e) == dispatch.Removed {
			s.w.Free(e)
			removed++
			continue
		}
		spawned++
	}
	s.activate()
	s.log.Debug("level spawned",
		zap.String("level", lv.Name),
		zap.Int("spawned", spawned),
		zap.Int("removed", removed))
}

func (s *Session) activate() {
	s.w.Each(func(e *world.Entity) bool {
		if a, ok := e.Data.(world.Activator); ok && !e.IsRemoved() {
			a.Activate(s.w, e)
		}
		return true
	})
}

// SpawnPlayer puts a player at the level's info_player_start unless one is
// already present.
func (s *Session) SpawnPlayer() (*world.Entity, error) {
	if p := s.Players(); len(p) > 0 {
		return p[0], nil
	}
	e, err := s.w.Create("player")
	if err != nil {
		return nil, err
	}
	if starts := s.findByClass("info_player_start"); len(starts) > 0 {
		e.Origin = starts[0].Origin
		e.Angles = starts[0].Angles
	} else {
		s.log.Warn("level has no info_player_start", zap.String("level", s.w.Level))
	}
	if s.api.Spawn(e) == dispatch.Removed {
		s.w.Free(e)
		return nil, fmt.Errorf("player spawn rejected")
	}
	return e, nil
}

// Players returns the live player entities in slot order.
func (s *Session) Players() []*world.Entity {
	var out []*world.Entity
	s.w.Each(func(e *world.Entity) bool {
		if e.IsPlayer() && !e.IsRemoved() {
			out = append(out, e)
		}
		return true
	})
	return out
}

func (s *Session) findByClass(classname string) []*world.Entity {
	var out []*world.Entity
	s.w.Each(func(e *world.Entity) bool {
		if e.Classname() == classname {
			out = append(out, e)
		}
		return true
	})
	return out
}

// ServicePending performs a level change requested by entity logic since the
// last call. It reports whether one ran.
func (s *Session) ServicePending(ctx context.Context) (bool, error) {
	if s.pending == nil {
		return false, nil
	}
	req := *s.pending
	s.pending = nil
	if err := s.ChangeLevel(ctx, req.Next, req.Landmark); err != nil {
		return true, err
	}
	return true, nil
}
