package system

import "time"

// Runner executes systems in phase order each tick. Systems of one phase run
// in registration order.
type Runner struct {
	phases [phaseCount][]System
}

func NewRunner() *Runner { return &Runner{} }

// Register panics on a phase outside PhasePreUpdate..PhaseCleanup.
func (r *Runner) Register(s System) {
	p := s.Phase()
	if p < 0 || p >= phaseCount {
		panic("system: unknown phase")
	}
	r.phases[p] = append(r.phases[p], s)
}

func (r *Runner) Tick(dt time.Duration) {
	for p := range r.phases {
		r.run(Phase(p), dt)
	}
}

// TickPhase runs only the systems of one phase. The host uses it to flush
// events and removals outside the regular tick, e.g. right after loading.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	if phase >= 0 && phase < phaseCount {
		r.run(phase, dt)
	}
}

func (r *Runner) run(phase Phase, dt time.Duration) {
	for _, s := range r.phases[phase] {
		s.Update(dt)
	}
}

// Len counts registered systems.
func (r *Runner) Len() int {
	n := 0
	for _, bucket := range r.phases {
		n += len(bucket)
	}
	return n
}
