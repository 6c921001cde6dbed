// Package kinds holds the entity classes the host ships with.
package kinds

import (
	"fmt"

	"github.com/l1jgo/worldstate/internal/world"
)

// All returns every kind in registration order.
func All() []world.Kind {
	return []world.Kind{
		{Classname: "info_landmark"},
		{Classname: "info_player_start"},
		{Classname: "info_target"},
		playerKind,
		doorKind,
		envGlobalKind,
		changeLevelKind,
		scriptedKind,
	}
}

// Register adds every kind and the Go functions they think, touch and use
// with.
func Register(w *world.World) error {
	for _, k := range All() {
		if err := w.RegisterKind(k); err != nil {
			return fmt.Errorf("register kinds: %w", err)
		}
	}
	registerDoorFuncs(w)
	registerEnvGlobalFuncs(w)
	registerChangeLevelFuncs(w)
	return nil
}
