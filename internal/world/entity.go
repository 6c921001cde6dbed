package world

import (
	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/core/vec"
	"github.com/l1jgo/worldstate/internal/save"
)

// EffectNoDraw hides an entity from rendering.
const EffectNoDraw int32 = 1 << 7

// Entity is one simulation object: the common vars plus the state of its
// kind. It lives in a slot of the world's slot table.
type Entity struct {
	Vars
	Data any

	id   ecs.EntityID
	kind *Kind

	linked    bool
	linkedPos vec.Vec3
}

func (e *Entity) ID() ecs.EntityID { return e.id }
func (e *Entity) Kind() *Kind      { return e.kind }

// Classname names the entity's kind.
func (e *Entity) Classname() string { return e.Vars.Classname }

// Caps returns the capability bits of the entity's kind.
func (e *Entity) Caps() Caps {
	if e.kind == nil {
		return 0
	}
	return e.kind.Caps
}

func (e *Entity) IsDormant() bool  { return e.Flags.Has(FlagDormant) }
func (e *Entity) IsRemoved() bool  { return e.Flags.Has(FlagKillMe) }
func (e *Entity) IsPlayer() bool   { return e.Flags.Has(FlagClient) }
func (e *Entity) Center() vec.Vec3 { return e.AbsMin.Add(e.AbsMax).Scale(0.5) }

// SetSize sets the bounds relative to the origin.
func (e *Entity) SetSize(mins, maxs vec.Vec3) {
	e.Mins, e.Maxs = mins, maxs
	e.Size = maxs.Sub(mins)
}

// SetAbsBox recomputes the world-space bounds, padded by one unit so touching
// entities overlap.
func (e *Entity) SetAbsBox() {
	e.AbsMin = e.Origin.Add(e.Mins).Sub(vec.Splat(1))
	e.AbsMax = e.Origin.Add(e.Maxs).Add(vec.Splat(1))
}

// Save writes the common vars, then the kind's fields, then whatever the
// kind's Saver adds.
func (e *Entity) Save(w *World, b *save.Buffer) error {
	if err := b.Write(&e.Vars, VarsTable); err != nil {
		return err
	}
	if e.kind != nil && e.kind.Fields != nil && e.Data != nil {
		if err := b.Write(e.Data, e.kind.Fields); err != nil {
			return err
		}
	}
	if s, ok := e.Data.(Saver); ok {
		return s.Save(w, e, b)
	}
	return nil
}

// Restore is the inverse of Save. The entity is relinked at its restored
// origin.
func (e *Entity) Restore(w *World, b *save.Buffer) error {
	if err := b.Read(&e.Vars, VarsTable); err != nil {
		return err
	}
	if e.kind != nil && e.kind.Fields != nil && e.Data != nil {
		if err := b.Read(e.Data, e.kind.Fields); err != nil {
			return err
		}
	}
	if r, ok := e.Data.(Restorer); ok {
		if err := r.Restore(w, e, b); err != nil {
			return err
		}
	}
	w.Relink(e)
	return nil
}
