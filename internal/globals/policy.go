package globals

import "go.uber.org/zap"

// Decision is the outcome of the spawn policy for a global entity.
type Decision uint8

const (
	// Accept lets the entity enter the world active.
	Accept Decision = iota
	// Reject removes the entity: its global record is dead.
	Reject
	// Dormant keeps the entity in the world but out of the simulation: its
	// authoritative copy lives in another level.
	Dormant
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	case Dormant:
		return "dormant"
	}
	return "unknown"
}

// Admit applies the spawn policy to a freshly spawned entity declaring name in
// level. The first sighting of a name creates its record, on, owned by level.
func (t *Table) Admit(name, level string) Decision {
	r, ok := t.byName[name]
	if !ok {
		// Lookup just failed, so Add cannot hit a duplicate.
		_ = t.Add(name, level, On)
		return Accept
	}
	switch {
	case r.State == Dead:
		t.log.Debug("global entity is dead",
			zap.String("name", name), zap.String("level", level))
		return Reject
	case !SameLevel(r.Level, level):
		t.log.Debug("global entity owned by another level",
			zap.String("name", name), zap.String("owner", r.Level), zap.String("level", level))
		return Dormant
	}
	return Accept
}

// CanOverlay reports whether transition data saved in fromLevel is the
// authoritative copy of name. Data from any level other than the owning one is
// stale and must be ignored.
func (t *Table) CanOverlay(name, fromLevel string) bool {
	r, ok := t.byName[name]
	if !ok {
		return false
	}
	if !SameLevel(r.Level, fromLevel) {
		t.log.Debug("stale transition data for global entity",
			zap.String("name", name), zap.String("owner", r.Level), zap.String("from", fromLevel))
		return false
	}
	return true
}
