package kinds

import (
	"github.com/l1jgo/worldstate/internal/core/vec"
	"github.com/l1jgo/worldstate/internal/field"
	"github.com/l1jgo/worldstate/internal/world"
)

var (
	playerMins = vec.Vec3{X: -16, Y: -16, Z: -36}
	playerMaxs = vec.Vec3{X: 16, Y: 16, Z: 36}
)

type player struct {
	Score   int32
	Armor   float64
	Weapons [4]string
	Active  int32
}

var playerFields = field.NewTable("player",
	field.Integer("score", func(p *player) *int32 { return &p.Score }),
	field.Float("armor", func(p *player) *float64 { return &p.Armor }, field.FlagKeyValue),
	field.Strings("weapons", func(p *player) []string { return p.Weapons[:] }),
	field.Integer("active", func(p *player) *int32 { return &p.Active }),
)

var playerKind = world.Kind{
	Classname: "player",
	Fields:    playerFields,
	New:       func() any { return &player{} },
}

func (p *player) Spawn(w *world.World, e *world.Entity) error {
	e.Flags |= world.FlagClient
	e.Solid = world.SolidSlideBox
	e.MoveType = world.MoveWalk
	if e.Health <= 0 {
		e.Health = 100
	}
	e.MaxHealth = 100
	e.SetSize(playerMins, playerMaxs)
	w.Relink(e)
	return nil
}

func (p *player) Reinit(w *world.World, e *world.Entity) {
	e.Flags |= world.FlagClient
	e.SetSize(playerMins, playerMaxs)
}

// Give puts weapon in the first free slot and reports whether it fit.
func (p *player) Give(weapon string) bool {
	for i, w := range p.Weapons {
		if w == weapon {
			return true
		}
		if w == "" {
			p.Weapons[i] = weapon
			return true
		}
	}
	return false
}

// GiveWeapon adds a weapon to a player entity.
func GiveWeapon(e *world.Entity, weapon string) bool {
	p, ok := e.Data.(*player)
	return ok && p.Give(weapon)
}

// Weapons lists a player's weapons.
func Weapons(e *world.Entity) []string {
	p, ok := e.Data.(*player)
	if !ok {
		return nil
	}
	var out []string
	for _, w := range p.Weapons {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
