package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhasePreUpdate  Phase = iota // 0: deliver last tick's events
	PhaseUpdate                  // 1: advance the clock, run thinks
	PhasePostUpdate              // 2: level changes requested this tick
	PhasePersist                 // 3: autosave
	PhaseCleanup                 // 4: free entities queued for removal

	phaseCount
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
