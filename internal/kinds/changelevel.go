package kinds

import (
	"errors"

	"github.com/l1jgo/worldstate/internal/core/event"
	"github.com/l1jgo/worldstate/internal/field"
	"github.com/l1jgo/worldstate/internal/world"
)

// changeLevel asks the session to move to Map through the landmark named
// Landmark when a player touches or uses it.
type changeLevel struct {
	Map      string
	Landmark string
}

var changeLevelFields = field.NewTable("trigger_changelevel",
	field.String("map", func(c *changeLevel) *string { return &c.Map }, field.FlagKeyValue),
	field.String("landmark", func(c *changeLevel) *string { return &c.Landmark }, field.FlagKeyValue),
)

var changeLevelKind = world.Kind{
	Classname: "trigger_changelevel",
	Fields:    changeLevelFields,
	New:       func() any { return &changeLevel{} },
}

func (c *changeLevel) Spawn(w *world.World, e *world.Entity) error {
	if c.Map == "" {
		return errors.New("trigger_changelevel without map")
	}
	e.Solid = world.SolidTrigger
	e.MoveType = world.MoveNone
	e.Touch = "changelevel_touch"
	e.Use = "changelevel_use"
	w.Relink(e)
	return nil
}

func requestChange(call world.Call) {
	c, ok := call.Self.Data.(*changeLevel)
	if !ok {
		return
	}
	event.Emit(call.World.Bus, event.LevelChangeRequested{Next: c.Map, Landmark: c.Landmark})
}

func registerChangeLevelFuncs(w *world.World) {
	w.RegisterFunc("changelevel_touch", func(c world.Call) {
		if c.Other == nil || !c.Other.IsPlayer() {
			return
		}
		requestChange(c)
	})
	w.RegisterFunc("changelevel_use", requestChange)
}
