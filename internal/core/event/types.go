package event

import "github.com/l1jgo/worldstate/internal/core/ecs"

type EntitySpawned struct {
	ID        ecs.EntityID
	Classname string
}

type EntityFreed struct {
	ID        ecs.EntityID
	Classname string
}

// GlobalStateChanged is emitted when entity logic changes a global record.
type GlobalStateChanged struct {
	Name  string
	State int32
}

// LevelChangeRequested asks the session to travel to Next through Landmark.
type LevelChangeRequested struct {
	Next     string
	Landmark string
}

type LevelChanged struct {
	From     string
	To       string
	Landmark string
}

type GameSaved struct {
	Name  string
	Level string
}
