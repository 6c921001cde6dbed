package kinds

import (
	"math"
	"strings"

	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/field"
	"github.com/l1jgo/worldstate/internal/world"
)

// scripted is an entity whose behavior lives in Lua. Its keys name the
// registered functions to think, touch, use and be blocked with.
type scripted struct {
	Delay    float64
	Counter  int32
	Note     string
	LinkName string
	Link     ecs.Handle
}

var scriptedFields = field.NewTable("lua_entity",
	field.Float("delay", func(s *scripted) *float64 { return &s.Delay }, field.FlagKeyValue),
	field.Integer("counter", func(s *scripted) *int32 { return &s.Counter }, field.FlagKeyValue),
	field.String("note", func(s *scripted) *string { return &s.Note }, field.FlagKeyValue),
	field.String("linkname", func(s *scripted) *string { return &s.LinkName }, field.FlagKeyValue),
	field.Entity("link", func(s *scripted) *ecs.Handle { return &s.Link }),
)

var scriptedKind = world.Kind{
	Classname: "lua_entity",
	Caps:      world.CapAcrossTransition,
	Fields:    scriptedFields,
	New:       func() any { return &scripted{} },
}

func (s *scripted) KeyValue(_ *world.World, e *world.Entity, key, value string) bool {
	switch strings.ToLower(key) {
	case "think":
		e.Think = value
	case "touch":
		e.Touch = value
	case "use":
		e.Use = value
	case "blocked":
		e.Blocked = value
	default:
		return false
	}
	return true
}

func (s *scripted) Spawn(w *world.World, e *world.Entity) error {
	if e.Think != "" {
		e.NextThink = w.Time + math.Max(s.Delay, 0.1)
	}
	w.Relink(e)
	return nil
}

// Activate resolves the link name once the whole level exists.
func (s *scripted) Activate(w *world.World, e *world.Entity) {
	if s.LinkName == "" || !s.Link.IsEmpty() {
		return
	}
	if found := w.FindByTargetName(s.LinkName); len(found) > 0 {
		s.Link = w.HandleOf(found[0])
	}
}

// Linked returns the entity a lua_entity is linked to, if it still exists.
func Linked(w *world.World, e *world.Entity) (*world.Entity, bool) {
	s, ok := e.Data.(*scripted)
	if !ok {
		return nil, false
	}
	return w.Resolve(s.Link)
}

// Counter returns a lua_entity's counter.
func Counter(e *world.Entity) int32 {
	if s, ok := e.Data.(*scripted); ok {
		return s.Counter
	}
	return 0
}
