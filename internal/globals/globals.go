// Package globals tracks entities that keep one identity across levels. A
// record names the level holding the authoritative copy of the entity and
// whether it is on, off or dead.
package globals

import (
	"errors"
	"fmt"

	"github.com/l1jgo/worldstate/internal/field"
	"go.uber.org/zap"
)

// ErrDuplicate is returned by Add when a record for the name already exists.
// Callers must Lookup first; hitting it is a programming error.
var ErrDuplicate = errors.New("globals: duplicate global name")

// State of a global entity. Dead is terminal.
type State int32

const (
	Off State = iota
	On
	Dead
)

func (s State) String() string {
	switch s {
	case Off:
		return "OFF"
	case On:
		return "ON"
	case Dead:
		return "DEAD"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Record is one global entity.
type Record struct {
	Name  string
	Level string
	State State
}

// SameLevel compares level names the way the host resolves map files.
func SameLevel(a, b string) bool {
	return field.Fold(a) == field.Fold(b)
}

// Table is the session's global entity state. It belongs to one session and is
// only touched from the simulation goroutine.
type Table struct {
	records []*Record // insertion order, for Dump and Save
	byName  map[string]*Record
	log     *zap.Logger
}

func New(log *zap.Logger) *Table {
	if log == nil {
		log = zap.NewNop()
	}
	return &Table{
		byName: make(map[string]*Record),
		log:    log,
	}
}

// Lookup returns a copy of the record for name.
func (t *Table) Lookup(name string) (Record, bool) {
	r, ok := t.byName[name]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Add creates a record.
func (t *Table) Add(name, level string, state State) error {
	if name == "" {
		return fmt.Errorf("globals: add: empty name")
	}
	if _, ok := t.byName[name]; ok {
		return fmt.Errorf("add %q: %w", name, ErrDuplicate)
	}
	r := &Record{Name: name, Level: level, State: state}
	t.records = append(t.records, r)
	t.byName[name] = r
	return nil
}

// Update moves ownership of name to level, leaving its state alone.
func (t *Table) Update(name, level string) bool {
	r, ok := t.byName[name]
	if !ok {
		return false
	}
	r.Level = level
	return true
}

// SetState changes the state of an existing record. A dead record stays
// dead; asking it to leave Dead is refused.
func (t *Table) SetState(name string, state State) bool {
	r, ok := t.byName[name]
	if !ok {
		return false
	}
	if r.State == Dead && state != Dead {
		t.log.Debug("global entity is dead",
			zap.String("name", name), zap.Stringer("requested", state))
		return false
	}
	r.State = state
	return true
}

// GetState returns the state of name, Off when there is no record.
func (t *Table) GetState(name string) State {
	if r, ok := t.byName[name]; ok {
		return r.State
	}
	return Off
}

func (t *Table) Len() int { return len(t.records) }

// Reset drops every record. Called at a new game boundary.
func (t *Table) Reset() {
	t.records = t.records[:0]
	clear(t.byName)
}

// Dump returns the records in the order they were added and logs them.
func (t *Table) Dump() []Record {
	out := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		t.log.Info("global entity",
			zap.String("name", r.Name),
			zap.String("level", r.Level),
			zap.Stringer("state", r.State))
		out = append(out, *r)
	}
	return out
}
