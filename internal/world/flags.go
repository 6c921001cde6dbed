package world

// Flags are per-entity state bits.
type Flags int32

const (
	FlagKillMe  Flags = 1 << iota // queued for removal at the end of the tick
	FlagDormant                   // present but excluded from the simulation
	FlagClient                    // player controlled
	FlagOnGround
	FlagAlwaysThink
)

func (f Flags) Has(o Flags) bool { return f&o == o }

// MoveType selects how the host moves an entity.
type MoveType int32

const (
	MoveNone MoveType = iota
	MoveWalk
	MoveStep
	MoveFly
	MoveToss
	// MovePush entities think on their own level-local clock (LTime).
	MovePush
	MoveNoclip
)

// Solid selects how an entity takes part in collision.
type Solid int32

const (
	SolidNot Solid = iota
	SolidTrigger
	SolidBBox
	SolidSlideBox
	SolidBSP
)

// Caps are capability bits a kind declares for itself.
type Caps uint32

const (
	// CapMustSpawn kinds run their full Spawn after a restore instead of the
	// lighter Reinit.
	CapMustSpawn Caps = 1 << iota
	// CapDontSave kinds are never written to a save buffer.
	CapDontSave
	// CapAcrossTransition kinds near the landmark travel with a level change.
	CapAcrossTransition
	// CapForceTransition kinds travel with a level change wherever they are.
	CapForceTransition
)

func (c Caps) Has(o Caps) bool { return c&o == o }

// UseType tells a use function what the caller wants.
type UseType int32

const (
	UseOff UseType = iota
	UseOn
	UseSet
	UseToggle
)
