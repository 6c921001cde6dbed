package kinds

import (
	"errors"

	"github.com/l1jgo/worldstate/internal/field"
	"github.com/l1jgo/worldstate/internal/globals"
	"github.com/l1jgo/worldstate/internal/world"
)

// envGlobalSet makes the entity create its record at spawn time.
const envGlobalSet int32 = 1

// Trigger modes of env_global.
const (
	triggerOff int32 = iota
	triggerOn
	triggerDead
	triggerToggle
)

// envGlobal flips a global state when used. It is how level logic changes
// global records without owning a global entity.
type envGlobal struct {
	GlobalState  string
	TriggerMode  int32
	InitialState int32
}

var envGlobalFields = field.NewTable("env_global",
	field.String("globalstate", func(g *envGlobal) *string { return &g.GlobalState }, field.FlagKeyValue),
	field.Integer("triggermode", func(g *envGlobal) *int32 { return &g.TriggerMode }, field.FlagKeyValue),
	field.Integer("initialstate", func(g *envGlobal) *int32 { return &g.InitialState }, field.FlagKeyValue),
)

var envGlobalKind = world.Kind{
	Classname: "env_global",
	Fields:    envGlobalFields,
	New:       func() any { return &envGlobal{} },
}

func (g *envGlobal) Spawn(w *world.World, e *world.Entity) error {
	if g.GlobalState == "" {
		return errors.New("env_global without globalstate")
	}
	if e.SpawnFlags&envGlobalSet != 0 {
		if _, ok := w.Globals.Lookup(g.GlobalState); !ok {
			w.SetGlobalState(g.GlobalState, globals.State(g.InitialState))
		}
	}
	e.Use = "env_global_use"
	return nil
}

func registerEnvGlobalFuncs(w *world.World) {
	w.RegisterFunc("env_global_use", func(c world.Call) {
		g, ok := c.Self.Data.(*envGlobal)
		if !ok {
			return
		}
		old := c.World.Globals.GetState(g.GlobalState)
		next := old
		switch g.TriggerMode {
		case triggerOff:
			next = globals.Off
		case triggerOn:
			next = globals.On
		case triggerDead:
			next = globals.Dead
		default:
			switch old {
			case globals.On:
				next = globals.Off
			case globals.Off:
				next = globals.On
			}
		}
		c.World.SetGlobalState(g.GlobalState, next)
	})
}
