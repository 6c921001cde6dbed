// Package world holds the per-session simulation context: the slot table, the
// global entity table, the clock, the current level and the registries of
// entity kinds and named functions.
package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/core/event"
	"github.com/l1jgo/worldstate/internal/core/vec"
	"github.com/l1jgo/worldstate/internal/globals"
	"github.com/l1jgo/worldstate/internal/save"
	"go.uber.org/zap"
)

// ErrUnknownKind is returned by Create for an unregistered classname.
var ErrUnknownKind = errors.New("world: unknown entity kind")

// World is owned by one session and only touched from the simulation
// goroutine.
type World struct {
	Slots   *ecs.SlotTable
	Globals *globals.Table
	Bus     *event.Bus

	// Level is the name of the level currently loaded.
	Level string
	// Time is the world clock in seconds.
	Time float64
	// FrameTime is the length of the tick being run.
	FrameTime float64

	log   *zap.Logger
	kinds map[string]*Kind
	funcs map[string]Func
	grid  *Grid
	kill  []ecs.EntityID
}

func New(capacity int, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	return &World{
		Slots:   ecs.NewSlotTable(capacity),
		Globals: globals.New(log.Named("globals")),
		Bus:     event.NewBus(),
		log:     log,
		kinds:   make(map[string]*Kind),
		funcs:   make(map[string]Func),
		grid:    NewGrid(),
	}
}

func (w *World) Log() *zap.Logger { return w.log }

// RegisterKind adds an entity class.
func (w *World) RegisterKind(k Kind) error {
	if k.Classname == "" {
		return fmt.Errorf("world: kind without classname")
	}
	if _, ok := w.kinds[k.Classname]; ok {
		return fmt.Errorf("world: kind %q registered twice", k.Classname)
	}
	w.kinds[k.Classname] = &k
	return nil
}

func (w *World) Kind(classname string) (*Kind, bool) {
	k, ok := w.kinds[classname]
	return k, ok
}

// Kinds lists registered classnames, sorted.
func (w *World) Kinds() []string {
	out := make([]string, 0, len(w.kinds))
	for name := range w.kinds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Create allocates an entity of the given kind. It is not spawned.
func (w *World) Create(classname string) (*Entity, error) {
	k, ok := w.kinds[classname]
	if !ok {
		return nil, fmt.Errorf("create %q: %w", classname, ErrUnknownKind)
	}
	e := &Entity{kind: k}
	e.Vars.Classname = classname
	if k.New != nil {
		e.Data = k.New()
	}
	id, err := w.Slots.Alloc(e)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", classname, err)
	}
	e.id = id
	return e, nil
}

// Entity returns the live entity named by id.
func (w *World) Entity(id ecs.EntityID) (*Entity, bool) {
	occ, ok := w.Slots.Get(id)
	if !ok {
		return nil, false
	}
	e, ok := occ.(*Entity)
	return e, ok
}

// Resolve returns the entity a handle points at, if it is still alive.
func (w *World) Resolve(h ecs.Handle) (*Entity, bool) {
	occ, ok := h.Resolve()
	if !ok {
		return nil, false
	}
	e, ok := occ.(*Entity)
	return e, ok
}

func (w *World) HandleOf(e *Entity) ecs.Handle {
	if e == nil {
		return ecs.Handle{}
	}
	return ecs.HandleOf(w.Slots, e.id)
}

// Each visits live entities in slot order until fn returns false.
func (w *World) Each(fn func(*Entity) bool) {
	w.Slots.Each(func(_ ecs.EntityID, occ any) bool {
		e, ok := occ.(*Entity)
		if !ok {
			return true
		}
		return fn(e)
	})
}

func (w *World) Count() int { return w.Slots.Len() }

// FindByTargetName returns every entity with the given target name.
func (w *World) FindByTargetName(name string) []*Entity {
	if name == "" {
		return nil
	}
	var out []*Entity
	w.Each(func(e *Entity) bool {
		if e.TargetName == name {
			out = append(out, e)
		}
		return true
	})
	return out
}

// FindGlobal returns the entity declaring globalname, provided it is of the
// expected class.
func (w *World) FindGlobal(classname, globalname string) (*Entity, bool) {
	var found *Entity
	w.Each(func(e *Entity) bool {
		if e.GlobalName == globalname {
			found = e
			return false
		}
		return true
	})
	if found == nil {
		return nil, false
	}
	if found.Classname() != classname {
		w.log.Error("global entity found with wrong class",
			zap.String("globalname", globalname),
			zap.String("classname", found.Classname()),
			zap.String("want", classname))
		return nil, false
	}
	return found, true
}

// InSphere returns linked entities whose origin lies within radius of center.
func (w *World) InSphere(center vec.Vec3, radius float64) []*Entity {
	var out []*Entity
	r2 := radius * radius
	for _, id := range w.grid.Near(center, radius) {
		e, ok := w.Entity(id)
		if !ok {
			continue
		}
		if vec.DistSqr(e.Origin, center) <= r2 {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id.Index() < out[j].id.Index() })
	return out
}

// Relink recomputes the entity's bounds and moves it in the spatial grid.
func (w *World) Relink(e *Entity) {
	e.SetAbsBox()
	if e.linked {
		w.grid.Move(e.id, e.linkedPos, e.Origin)
	} else {
		w.grid.Add(e.id, e.Origin)
		e.linked = true
	}
	e.linkedPos = e.Origin
}

func (w *World) unlink(e *Entity) {
	if e.linked {
		w.grid.Remove(e.id, e.linkedPos)
		e.linked = false
	}
}

// MakeDormant keeps e in the world but out of the simulation: no collision,
// no movement, no thinking, not drawn.
func (w *World) MakeDormant(e *Entity) {
	e.Flags |= FlagDormant
	e.Solid = SolidNot
	e.MoveType = MoveNone
	e.Effects |= EffectNoDraw
	e.NextThink = 0
	w.Relink(e)
}

// Remove queues e for freeing at the end of the tick. Its target name is
// cleared so nothing can fire it in the meantime.
func (w *World) Remove(e *Entity) {
	if e == nil || e.Flags.Has(FlagKillMe) {
		return
	}
	e.Flags |= FlagKillMe
	e.TargetName = ""
	w.kill = append(w.kill, e.id)
}

// Flush frees every entity queued by Remove and returns how many were freed.
func (w *World) Flush() int {
	n := 0
	for _, id := range w.kill {
		if e, ok := w.Entity(id); ok {
			w.Free(e)
			n++
		}
	}
	w.kill = w.kill[:0]
	return n
}

// Free releases e's slot immediately. The slot table's free callback runs
// before the generation is bumped.
func (w *World) Free(e *Entity) {
	if e == nil {
		return
	}
	w.unlink(e)
	w.Slots.Free(e.id)
}

// Clear frees every entity. Used when a level is unloaded.
func (w *World) Clear() {
	w.Slots.Reset()
	w.grid.Reset()
	w.kill = w.kill[:0]
}

// SaveEnv binds save buffers to this world.
func (w *World) SaveEnv() save.Env {
	return save.Env{Slots: w.Slots, Funcs: w, Log: w.log.Named("save")}
}

// SetGlobalState changes a global record from entity logic and announces it.
// A dead record keeps its state and nothing is announced.
func (w *World) SetGlobalState(name string, state globals.State) {
	if _, ok := w.Globals.Lookup(name); ok {
		if !w.Globals.SetState(name, state) {
			return
		}
	} else if err := w.Globals.Add(name, w.Level, state); err != nil {
		w.log.Error("add global state", zap.Error(err))
		return
	}
	event.Emit(w.Bus, event.GlobalStateChanged{Name: name, State: int32(state)})
}
