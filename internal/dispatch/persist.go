package dispatch

import (
	"errors"

	"github.com/l1jgo/worldstate/internal/globals"
	"github.com/l1jgo/worldstate/internal/save"
	"github.com/l1jgo/worldstate/internal/world"
	"go.uber.org/zap"
)

// Save writes e's block group into b. Entities whose kind is never saved are
// skipped and still report success.
func (d *Dispatcher) Save(e *world.Entity, b *save.Buffer) bool {
	if e == nil {
		return false
	}
	if !b.Writing() {
		d.log.Warn("save into invalid buffer", entityFields(e)...)
		return false
	}
	idx, ok := b.Entities().Find(e.ID())
	if !ok {
		d.log.Error("entity missing from save table", entityFields(e)...)
		return false
	}
	if e.Caps().Has(world.CapDontSave) {
		return true
	}

	// Push movers keep nextthink relative to their own ltime. Rebase both onto
	// the world clock so the time fields shift with everything else.
	if e.MoveType == world.MovePush {
		ltime, nextthink := e.LTime, e.NextThink
		e.LTime = d.w.Time
		if nextthink > 0 {
			e.NextThink = e.LTime + (nextthink - ltime)
		}
		defer func() { e.LTime, e.NextThink = ltime, nextthink }()
	}

	if err := b.BeginEntity(idx); err != nil {
		d.log.Warn("begin entity", append(entityFields(e), zap.Error(err))...)
		return false
	}
	err := e.Save(d.w, b)
	b.EndEntity()
	if err != nil {
		d.log.Warn("save entity", append(entityFields(e), zap.Error(err))...)
		return false
	}
	return true
}

// Restore reads the block group b is positioned at into e.
//
// With global set, e is a temporary entity carrying transition data for a
// global entity. The data is applied only when the level it was saved in
// still owns the global record, and then onto the placeholder of the same
// global name already in this level, keeping the placeholder's global
// fields. Ownership moves to the current level.
func (d *Dispatcher) Restore(e *world.Entity, b *save.Buffer, global bool) Result {
	if e == nil {
		return Removed
	}
	if !b.Reading() {
		d.log.Warn("restore from invalid buffer", entityFields(e)...)
		return Removed
	}
	idx, row := b.CurrentRow()
	if row != nil && row.Classname != e.Classname() {
		d.log.Error("restore skipped",
			append(entityFields(e), zap.String("saved_classname", row.Classname), zap.Error(ErrKindMismatch))...)
		return Removed
	}

	target := e
	offset := b.LandmarkOffset()
	if global {
		placeholder, arriving, err := d.overlayTarget(b)
		switch {
		case errors.Is(err, errNoPlaceholder):
			d.log.Debug("no placeholder for global entity",
				zap.String("globalname", arriving.GlobalName), zap.String("level", d.w.Level))
			return Ignored
		case errors.Is(err, errStaleOverlay):
			return Ignored
		case err != nil:
			d.log.Warn("read transition vars", append(entityFields(e), zap.Error(err))...)
			return Ignored
		}
		b.SetGlobalMode(true)
		b.SetLandmarkOffset(offset.Sub(placeholder.Mins).Add(arriving.Mins))
		defer func() {
			b.SetGlobalMode(false)
			b.SetLandmarkOffset(offset)
		}()
		target = placeholder
		d.w.Globals.Update(target.GlobalName, d.w.Level)
		if idx >= 0 {
			b.SetRestored(idx, target.ID())
		}
	}

	if err := target.Restore(d.w, b); err != nil {
		d.log.Warn("restore entity", append(entityFields(target), zap.Error(err))...)
		if global || errors.Is(err, save.ErrBufferInvalid) {
			return Ignored
		}
		return Removed
	}
	if target.Caps().Has(world.CapMustSpawn) {
		if s, ok := target.Data.(world.Spawner); ok {
			if err := s.Spawn(d.w, target); err != nil {
				d.log.Debug("respawn after restore failed", append(entityFields(target), zap.Error(err))...)
				target.Flags |= world.FlagKillMe
			}
		}
	} else if r, ok := target.Data.(world.Reinitializer); ok {
		r.Reinit(d.w, target)
	}

	if global {
		if !target.IsRemoved() {
			d.w.Relink(target)
			if o, ok := target.Data.(world.OverrideResetter); ok {
				o.OverrideReset(d.w, target)
			}
		}
		return Overlaid
	}
	if target.IsRemoved() {
		return Removed
	}

	if target.GlobalName != "" {
		r, ok := d.w.Globals.Lookup(target.GlobalName)
		switch {
		case !ok:
			d.log.Error("global entity not in table", entityFields(target)...)
			if err := d.w.Globals.Add(target.GlobalName, d.w.Level, globals.On); err != nil {
				d.log.Error("add global entity", zap.Error(err))
			}
		case r.State == globals.Dead:
			return Removed
		case !globals.SameLevel(r.Level, d.w.Level):
			d.w.MakeDormant(target)
		}
	}
	return OK
}

var (
	errStaleOverlay  = errors.New("dispatch: global record owned by another level")
	errNoPlaceholder = errors.New("dispatch: no placeholder for global entity")
)

// OverlayTarget reports the placeholder that the global entity b is
// positioned at would be overlaid onto, without changing any state. The read
// cursor is left at the start of the row.
func (d *Dispatcher) OverlayTarget(b *save.Buffer) (*world.Entity, bool) {
	if !b.Reading() {
		return nil, false
	}
	placeholder, _, err := d.overlayTarget(b)
	return placeholder, err == nil
}

func (d *Dispatcher) overlayTarget(b *save.Buffer) (*world.Entity, world.Vars, error) {
	var arriving world.Vars
	if err := b.Read(&arriving, world.VarsTable); err != nil {
		return nil, arriving, err
	}
	b.Rewind()
	if !d.w.Globals.CanOverlay(arriving.GlobalName, b.Header.Level) {
		return nil, arriving, errStaleOverlay
	}
	placeholder, ok := d.w.FindGlobal(arriving.Classname, arriving.GlobalName)
	if !ok {
		return nil, arriving, errNoPlaceholder
	}
	return placeholder, arriving, nil
}
