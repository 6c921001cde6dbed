package dispatch

import (
	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/core/event"
	"github.com/l1jgo/worldstate/internal/core/vec"
	"github.com/l1jgo/worldstate/internal/field"
	"github.com/l1jgo/worldstate/internal/globals"
	"github.com/l1jgo/worldstate/internal/save"
	"github.com/l1jgo/worldstate/internal/world"
	"go.uber.org/zap"
)

// Dispatcher implements EntityAPI and NewEntityAPI over one world.
type Dispatcher struct {
	w   *world.World
	log *zap.Logger
}

func New(w *world.World, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{w: w, log: log}
}

func entityFields(e *world.Entity) []zap.Field {
	return []zap.Field{
		zap.String("classname", e.Classname()),
		zap.Uint32("slot", e.ID().Index()),
		zap.String("globalname", e.GlobalName),
	}
}

// Spawn constructs e and applies the spawn policy for global entities.
func (d *Dispatcher) Spawn(e *world.Entity) Result {
	if e == nil {
		return Removed
	}
	e.AbsMin = e.Origin.Sub(vec.Splat(1))
	e.AbsMax = e.Origin.Add(vec.Splat(1))

	if s, ok := e.Data.(world.Spawner); ok {
		if err := s.Spawn(d.w, e); err != nil {
			d.log.Debug("spawn failed", append(entityFields(e), zap.Error(err))...)
			return Removed
		}
	} else {
		d.w.Relink(e)
	}
	if e.IsRemoved() {
		return Removed
	}

	if e.GlobalName != "" {
		switch d.w.Globals.Admit(e.GlobalName, d.w.Level) {
		case globals.Reject:
			return Removed
		case globals.Dormant:
			d.w.MakeDormant(e)
		}
	}
	event.Emit(d.w.Bus, event.EntitySpawned{ID: e.ID(), Classname: e.Classname()})
	return OK
}

func (d *Dispatcher) Think(e *world.Entity) {
	if e == nil || e.IsRemoved() {
		return
	}
	if e.IsDormant() {
		d.log.Warn("dormant entity is thinking", entityFields(e)...)
	}
	d.w.Invoke(e.Think, world.Call{Self: e})
}

func (d *Dispatcher) Use(used, other *world.Entity) {
	if used == nil || used.IsRemoved() {
		return
	}
	d.w.Invoke(used.Use, world.Call{Self: used, Other: other, Caller: other, UseType: world.UseToggle})
}

func (d *Dispatcher) Touch(touched, other *world.Entity) {
	if touched == nil || other == nil || touched.IsRemoved() || other.IsRemoved() {
		return
	}
	d.w.Invoke(touched.Touch, world.Call{Self: touched, Other: other})
}

func (d *Dispatcher) Blocked(blocked, other *world.Entity) {
	if blocked == nil {
		return
	}
	d.w.Invoke(blocked.Blocked, world.Call{Self: blocked, Other: other})
}

// KeyValue applies one designer key/value. The kind's own hook sees the key
// first, then the common vars, then the kind's field table.
func (d *Dispatcher) KeyValue(e *world.Entity, key, value string) bool {
	if e == nil || key == "" {
		return false
	}
	if kv, ok := e.Data.(world.KeyValuer); ok && kv.KeyValue(d.w, e, key, value) {
		return true
	}
	handled, err := world.VarsTable.KeyValue(&e.Vars, key, value)
	if !handled {
		if k := e.Kind(); k != nil && k.Fields != nil && e.Data != nil {
			handled, err = k.Fields.KeyValue(e.Data, key, value)
		}
	}
	if err != nil {
		d.log.Warn("bad key value",
			append(entityFields(e), zap.String("key", key), zap.String("value", value), zap.Error(err))...)
	}
	return handled
}

func (d *Dispatcher) SetAbsBox(e *world.Entity) {
	if e != nil {
		e.SetAbsBox()
	}
}

func (d *Dispatcher) SaveWriteFields(b *save.Buffer, block string, obj any, fields []field.Descriptor) error {
	return b.WriteFields(block, obj, fields)
}

func (d *Dispatcher) SaveReadFields(b *save.Buffer, block string, obj any, fields []field.Descriptor) error {
	return b.ReadFields(block, obj, fields)
}

func (d *Dispatcher) SaveGlobalState(b *save.Buffer) error {
	return d.w.Globals.Save(b)
}

func (d *Dispatcher) RestoreGlobalState(b *save.Buffer) error {
	return d.w.Globals.Restore(b)
}

func (d *Dispatcher) ResetGlobalState() {
	d.w.Globals.Reset()
}

// OnFree releases what the core attached to a freed entity. It runs before
// the slot's generation moves on.
func (d *Dispatcher) OnFree(id ecs.EntityID, occupant any) {
	e, ok := occupant.(*world.Entity)
	if !ok {
		return
	}
	if f, ok := e.Data.(world.Freer); ok {
		f.Free(d.w, e)
	}
	event.Emit(d.w.Bus, event.EntityFreed{ID: id, Classname: e.Classname()})
	e.Data = nil
}
