package kinds

import (
	"math"

	"github.com/l1jgo/worldstate/internal/core/vec"
	"github.com/l1jgo/worldstate/internal/field"
	"github.com/l1jgo/worldstate/internal/world"
)

// Door states.
const (
	doorClosed int32 = iota
	doorOpening
	doorOpen
	doorClosing
)

// door is a push mover sliding between Pos1 (closed) and Pos2 (open). Its
// think times run on the entity's own LTime.
type door struct {
	Travel vec.Vec3
	Pos1   vec.Vec3
	Pos2   vec.Vec3
	State  int32
}

var doorFields = field.NewTable("func_door",
	field.Vector("travel", func(d *door) *vec.Vec3 { return &d.Travel }, field.FlagKeyValue),
	field.Position("pos1", func(d *door) *vec.Vec3 { return &d.Pos1 }),
	field.Position("pos2", func(d *door) *vec.Vec3 { return &d.Pos2 }),
	field.Integer("state", func(d *door) *int32 { return &d.State }),
)

var doorKind = world.Kind{
	Classname: "func_door",
	Fields:    doorFields,
	New:       func() any { return &door{} },
}

func (d *door) Spawn(w *world.World, e *world.Entity) error {
	e.MoveType = world.MovePush
	e.Solid = world.SolidBSP
	if e.Speed == 0 {
		e.Speed = 100
	}
	if e.Size.IsZero() {
		e.SetSize(e.Mins, e.Maxs)
	}
	d.Pos1 = e.Origin
	d.Pos2 = e.Origin.Add(d.Travel)
	d.State = doorClosed
	e.Use = "door_use"
	e.Blocked = "door_blocked"
	w.Relink(e)
	return nil
}

// OverrideReset snaps an overlaid door onto the end of its track it was
// heading for, so it never resumes halfway through a move in the new level.
func (d *door) OverrideReset(w *world.World, e *world.Entity) {
	switch d.State {
	case doorOpening, doorOpen:
		e.Origin = d.Pos2
		d.State = doorOpen
	default:
		e.Origin = d.Pos1
		d.State = doorClosed
	}
	e.Think = ""
	e.NextThink = 0
	w.Relink(e)
}

func (d *door) travelTime(e *world.Entity) float64 {
	dist := math.Sqrt(d.Pos2.Sub(d.Pos1).LengthSqr())
	if e.Speed <= 0 || dist == 0 {
		return 0.1
	}
	return dist / e.Speed
}

func (d *door) goUp(e *world.Entity) {
	d.State = doorOpening
	e.Think = "door_hit_top"
	e.NextThink = e.LTime + d.travelTime(e)
}

func (d *door) goDown(e *world.Entity) {
	d.State = doorClosing
	e.Think = "door_hit_bottom"
	e.NextThink = e.LTime + d.travelTime(e)
}

func doorOf(c world.Call) (*door, bool) {
	d, ok := c.Self.Data.(*door)
	return d, ok
}

func registerDoorFuncs(w *world.World) {
	w.RegisterFunc("door_use", func(c world.Call) {
		d, ok := doorOf(c)
		if !ok {
			return
		}
		switch d.State {
		case doorClosed, doorClosing:
			d.goUp(c.Self)
		case doorOpen:
			if c.Self.Wait < 0 {
				d.goDown(c.Self)
			}
		}
	})
	w.RegisterFunc("door_hit_top", func(c world.Call) {
		d, ok := doorOf(c)
		if !ok {
			return
		}
		e := c.Self
		e.Origin = d.Pos2
		c.World.Relink(e)
		d.State = doorOpen
		e.Think, e.NextThink = "", 0
		if e.Wait >= 0 {
			e.Think = "door_go_down"
			e.NextThink = e.LTime + math.Max(e.Wait, 0.1)
		}
		c.World.FireTargets(e.Target, c.Other, e, world.UseToggle, 0)
	})
	w.RegisterFunc("door_go_down", func(c world.Call) {
		if d, ok := doorOf(c); ok {
			d.goDown(c.Self)
		}
	})
	w.RegisterFunc("door_hit_bottom", func(c world.Call) {
		d, ok := doorOf(c)
		if !ok {
			return
		}
		e := c.Self
		e.Origin = d.Pos1
		c.World.Relink(e)
		d.State = doorClosed
		e.Think, e.NextThink = "", 0
	})
	w.RegisterFunc("door_blocked", func(c world.Call) {
		d, ok := doorOf(c)
		if !ok {
			return
		}
		switch d.State {
		case doorOpening:
			d.goDown(c.Self)
		case doorClosing:
			d.goUp(c.Self)
		}
	})
}

// DoorOpen reports whether a func_door is fully open.
func DoorOpen(e *world.Entity) bool {
	d, ok := e.Data.(*door)
	return ok && d.State == doorOpen
}
