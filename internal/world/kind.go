package world

import (
	"github.com/l1jgo/worldstate/internal/field"
	"github.com/l1jgo/worldstate/internal/save"
)

// Kind is the registration of one entity class.
type Kind struct {
	Classname string
	Caps      Caps
	// Fields describe the value New returns. They are saved under the table's
	// name after the common entity vars. Nil for kinds with no own state.
	Fields *field.Table
	New    func() any
}

// Hooks a kind's data value may implement. Each is optional.

// Spawner constructs the entity after its key/values were applied. An error
// rejects the entity.
type Spawner interface {
	Spawn(w *World, e *Entity) error
}

// Reinitializer runs after a restore for kinds that do not respawn.
type Reinitializer interface {
	Reinit(w *World, e *Entity)
}

// KeyValuer sees designer keys before the field tables do.
type KeyValuer interface {
	KeyValue(w *World, e *Entity, key, value string) bool
}

// Saver writes state the field table cannot describe.
type Saver interface {
	Save(w *World, e *Entity, b *save.Buffer) error
}

// Restorer reads what Saver wrote.
type Restorer interface {
	Restore(w *World, e *Entity, b *save.Buffer) error
}

// OverrideResetter re-anchors an entity after transition data was overlaid
// onto it.
type OverrideResetter interface {
	OverrideReset(w *World, e *Entity)
}

// Freer releases kind resources when the entity's slot is freed.
type Freer interface {
	Free(w *World, e *Entity)
}

// Activator runs once every entity of a freshly loaded level has spawned, so
// it can resolve target names into entity references.
type Activator interface {
	Activate(w *World, e *Entity)
}
