// Package dispatch is the entry point the host drives every entity through:
// spawn, think, touch, use, blocked, key/values, save, restore and free. It
// applies the global entity policies on the way in and out.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/field"
	"github.com/l1jgo/worldstate/internal/save"
	"github.com/l1jgo/worldstate/internal/world"
)

// Interface versions the host negotiates at load time.
const (
	InterfaceVersion    = 140
	NewInterfaceVersion = 1
)

var (
	// ErrVersionMismatch is returned when the host asks for an interface
	// version this package does not implement.
	ErrVersionMismatch = errors.New("dispatch: interface version mismatch")
	// ErrKindMismatch is logged when save data recorded for one kind is
	// restored into an entity of another.
	ErrKindMismatch = errors.New("dispatch: entity kind mismatch")
)

// Result is what Spawn and Restore tell the host.
type Result int

const (
	// OK: the entity stays.
	OK Result = iota
	// Removed: the host must free the entity.
	Removed
	// Overlaid: the data was restored onto the placeholder already in the
	// level. The host frees the temporary entity it restored through.
	Overlaid
	// Ignored: transition data for a global entity was stale or had nowhere
	// to go. The host frees the temporary entity.
	Ignored
)

func (r Result) String() string {
	switch r {
	case OK:
		return "ok"
	case Removed:
		return "removed"
	case Overlaid:
		return "overlaid"
	case Ignored:
		return "ignored"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// EntityAPI is the fixed set of operations the host calls.
type EntityAPI interface {
	Spawn(e *world.Entity) Result
	Think(e *world.Entity)
	Use(used, other *world.Entity)
	Touch(touched, other *world.Entity)
	Blocked(blocked, other *world.Entity)
	KeyValue(e *world.Entity, key, value string) bool
	Save(e *world.Entity, b *save.Buffer) bool
	Restore(e *world.Entity, b *save.Buffer, global bool) Result
	SetAbsBox(e *world.Entity)

	SaveWriteFields(b *save.Buffer, block string, obj any, fields []field.Descriptor) error
	SaveReadFields(b *save.Buffer, block string, obj any, fields []field.Descriptor) error

	SaveGlobalState(b *save.Buffer) error
	RestoreGlobalState(b *save.Buffer) error
	ResetGlobalState()
}

// NewEntityAPI holds the operations added after the first interface version.
type NewEntityAPI interface {
	// OnFree is registered as the slot table's free callback.
	OnFree(id ecs.EntityID, occupant any)
	// OverlayTarget finds the placeholder a travelling global entity would
	// be overlaid onto, so a restore pass can map its row before reading any
	// references.
	OverlayTarget(b *save.Buffer) (*world.Entity, bool)
}

// GetEntityAPI hands out the function table when version matches.
func (d *Dispatcher) GetEntityAPI(version int) (EntityAPI, error) {
	if version != InterfaceVersion {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrVersionMismatch, version, InterfaceVersion)
	}
	return d, nil
}

func (d *Dispatcher) GetNewEntityAPI(version int) (NewEntityAPI, error) {
	if version != NewInterfaceVersion {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrVersionMismatch, version, NewInterfaceVersion)
	}
	return d, nil
}
