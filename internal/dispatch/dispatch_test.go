package dispatch

import (
	"errors"
	"testing"

	"github.com/l1jgo/worldstate/internal/core/event"
	"github.com/l1jgo/worldstate/internal/core/vec"
	"github.com/l1jgo/worldstate/internal/field"
	"github.com/l1jgo/worldstate/internal/globals"
	"github.com/l1jgo/worldstate/internal/save"
	"github.com/l1jgo/worldstate/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type door struct {
	Lip      float64
	Spawns   int
	Reinits  int
	Resets   int
	Freed    int
	HookKeys []string
}

var doorFields = field.NewTable("func_door",
	field.Float("lip", func(d *door) *float64 { return &d.Lip }, field.FlagKeyValue),
)

func (d *door) Spawn(w *world.World, e *world.Entity) error {
	d.Spawns++
	e.MoveType = world.MovePush
	e.Solid = world.SolidBSP
	e.SetSize(e.Mins, e.Maxs)
	w.Relink(e)
	return nil
}

func (d *door) Reinit(*world.World, *world.Entity)        { d.Reinits++ }
func (d *door) OverrideReset(*world.World, *world.Entity) { d.Resets++ }
func (d *door) Free(*world.World, *world.Entity)          { d.Freed++ }

func (d *door) KeyValue(_ *world.World, _ *world.Entity, key, _ string) bool {
	if key == "sounds" {
		d.HookKeys = append(d.HookKeys, key)
		return true
	}
	return false
}

type failing struct{}

func (failing) Spawn(*world.World, *world.Entity) error { return errors.New("no model") }

type selfRemoving struct{}

func (selfRemoving) Spawn(w *world.World, e *world.Entity) error {
	w.Remove(e)
	return nil
}

func newTestWorld(t *testing.T, level string) (*world.World, *Dispatcher) {
	t.Helper()
	w := world.New(64, nil)
	w.Level = level
	d := New(w, nil)
	api, err := d.GetNewEntityAPI(NewInterfaceVersion)
	require.NoError(t, err)
	w.Slots.OnFree(api.OnFree)

	kinds := []world.Kind{
		{Classname: "func_door", Fields: doorFields, New: func() any { return &door{} }},
		{Classname: "func_wall_toggle", Caps: world.CapMustSpawn, Fields: doorFields, New: func() any { return &door{} }},
		{Classname: "info_null"},
		{Classname: "env_sound", Caps: world.CapDontSave},
		{Classname: "broken", New: func() any { return failing{} }},
		{Classname: "oneshot", New: func() any { return selfRemoving{} }},
	}
	for _, k := range kinds {
		require.NoError(t, w.RegisterKind(k))
	}
	return w, d
}

func spawn(t *testing.T, w *world.World, d *Dispatcher, classname string, kv map[string]string) (*world.Entity, Result) {
	t.Helper()
	e, err := w.Create(classname)
	require.NoError(t, err)
	for k, v := range kv {
		d.KeyValue(e, k, v)
	}
	return e, d.Spawn(e)
}

func TestGetEntityAPI_Version(t *testing.T) {
	_, d := newTestWorld(t, "map1")

	api, err := d.GetEntityAPI(InterfaceVersion)
	require.NoError(t, err)
	assert.NotNil(t, api)

	_, err = d.GetEntityAPI(InterfaceVersion - 1)
	assert.ErrorIs(t, err, ErrVersionMismatch)
	_, err = d.GetNewEntityAPI(NewInterfaceVersion + 1)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestSpawn_Plain(t *testing.T) {
	w, d := newTestWorld(t, "map1")
	var spawned []string
	event.Subscribe(w.Bus, func(ev event.EntitySpawned) { spawned = append(spawned, ev.Classname) })

	e, res := spawn(t, w, d, "func_door", map[string]string{"origin": "10 0 0", "mins": "-1 -1 -1", "maxs": "1 1 1"})
	assert.Equal(t, OK, res)
	assert.Equal(t, 1, e.Data.(*door).Spawns)
	assert.Equal(t, vec.Vec3{X: 8, Y: -2, Z: -2}, e.AbsMin)
	assert.Zero(t, w.Globals.Len())

	w.Bus.SwapBuffers()
	w.Bus.DispatchAll()
	assert.Equal(t, []string{"func_door"}, spawned)
}

func TestSpawn_Rejections(t *testing.T) {
	w, d := newTestWorld(t, "map1")
	_, res := spawn(t, w, d, "broken", nil)
	assert.Equal(t, Removed, res)
	_, res = spawn(t, w, d, "oneshot", nil)
	assert.Equal(t, Removed, res)
	assert.Equal(t, Removed, d.Spawn(nil))
}

func TestSpawn_GlobalPolicy(t *testing.T) {
	w, d := newTestWorld(t, "map1")

	e, res := spawn(t, w, d, "func_door", map[string]string{"globalname": "x"})
	assert.Equal(t, OK, res)
	r, ok := w.Globals.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, globals.Record{Name: "x", Level: "map1", State: globals.On}, r)
	assert.False(t, e.IsDormant())

	assert.ErrorIs(t, w.Globals.Add("x", "map1", globals.On), globals.ErrDuplicate)

	w.Globals.SetState("x", globals.Dead)
	_, res = spawn(t, w, d, "func_door", map[string]string{"globalname": "x"})
	assert.Equal(t, Removed, res, "dead globals never spawn again")

	require.NoError(t, w.Globals.Add("elsewhere", "map2", globals.On))
	e, res = spawn(t, w, d, "func_door", map[string]string{"globalname": "elsewhere", "origin": "5 5 5"})
	assert.Equal(t, OK, res)
	assert.True(t, e.IsDormant())
	assert.Equal(t, world.SolidNot, e.Solid)
	assert.Zero(t, e.NextThink)
}

func TestKeyValue_Order(t *testing.T) {
	w, d := newTestWorld(t, "map1")
	e, err := w.Create("func_door")
	require.NoError(t, err)
	dd := e.Data.(*door)

	assert.True(t, d.KeyValue(e, "sounds", "3"))
	assert.Equal(t, []string{"sounds"}, dd.HookKeys)
	assert.True(t, d.KeyValue(e, "TargetName", "door1"))
	assert.Equal(t, "door1", e.TargetName)
	assert.True(t, d.KeyValue(e, "lip", "4.5"))
	assert.Equal(t, 4.5, dd.Lip)
	assert.True(t, d.KeyValue(e, "health", "lots"), "bad values are still claimed")
	assert.False(t, d.KeyValue(e, "no_such_key", "1"))
	assert.False(t, d.KeyValue(e, "classname", "func_wall"), "classname is not a designer key")
}

func TestThinkTouchUse(t *testing.T) {
	w, d := newTestWorld(t, "map1")
	var calls []string
	w.RegisterFunc("t_think", func(c world.Call) { calls = append(calls, "think:"+c.Self.TargetName) })
	w.RegisterFunc("t_touch", func(c world.Call) { calls = append(calls, "touch:"+c.Other.TargetName) })
	w.RegisterFunc("t_use", func(c world.Call) { calls = append(calls, "use:"+c.Caller.TargetName) })

	a, _ := spawn(t, w, d, "info_null", map[string]string{"targetname": "a"})
	b, _ := spawn(t, w, d, "info_null", map[string]string{"targetname": "b"})
	a.Think, a.Touch, a.Use = "t_think", "t_touch", "t_use"

	d.Think(a)
	d.Touch(a, b)
	d.Use(a, b)
	d.Think(b) // no think function
	assert.Equal(t, []string{"think:a", "touch:b", "use:b"}, calls)

	w.Remove(b)
	d.Touch(a, b)
	assert.Len(t, calls, 3, "touching a removed entity is ignored")
}

// saveLevel writes ents the way a level save does: rows first, then one block
// group per row in table order.
func saveLevel(t *testing.T, w *world.World, d *Dispatcher, lm save.Landmark, ents ...*world.Entity) []byte {
	t.Helper()
	b := save.NewBuffer(save.Header{Level: w.Level, Time: w.Time, Landmark: lm}, w.SaveEnv())
	for _, e := range ents {
		flags := save.RowFlags(0)
		if e.GlobalName != "" {
			flags |= save.RowGlobal
		}
		b.AddEntity(e.ID(), flags)
	}
	for i := 0; i < b.Entities().Len(); i++ {
		e, ok := w.Entity(b.Entities().Row(int32(i)).Saved)
		require.True(t, ok)
		d.Save(e, b)
	}
	require.NoError(t, d.SaveGlobalState(b))
	data, err := save.Encode(b)
	require.NoError(t, err)
	return data
}

func openLevel(t *testing.T, w *world.World, data []byte) *save.Buffer {
	t.Helper()
	b, err := save.Decode(data, w.SaveEnv())
	require.NoError(t, err)
	b.SetTime(w.Time)
	return b
}

func TestSaveRestore_PushMoverClock(t *testing.T) {
	w, d := newTestWorld(t, "map1")
	w.Time = 100
	e, res := spawn(t, w, d, "func_door", nil)
	require.Equal(t, OK, res)
	e.LTime, e.NextThink = 5, 7

	data := saveLevel(t, w, d, save.Landmark{}, e)
	assert.Equal(t, 5.0, e.LTime, "live clock is left alone")
	assert.Equal(t, 7.0, e.NextThink)

	w2, d2 := newTestWorld(t, "map1")
	w2.Time = 300
	b := openLevel(t, w2, data)
	fresh, err := w2.Create("func_door")
	require.NoError(t, err)
	b.SetRestored(0, fresh.ID())
	require.NoError(t, b.SeekEntity(0))
	assert.Equal(t, OK, d2.Restore(fresh, b, false))

	assert.InDelta(t, 300, fresh.LTime, 1e-9)
	assert.InDelta(t, 302, fresh.NextThink, 1e-9)
	assert.Equal(t, world.MovePush, fresh.MoveType)
	fd := fresh.Data.(*door)
	assert.Equal(t, 1, fd.Reinits)
	assert.Zero(t, fd.Spawns)
}

func TestSaveRestore_MustSpawn(t *testing.T) {
	w, d := newTestWorld(t, "map1")
	e, _ := spawn(t, w, d, "func_wall_toggle", map[string]string{"lip": "2"})
	data := saveLevel(t, w, d, save.Landmark{}, e)

	w2, d2 := newTestWorld(t, "map1")
	b := openLevel(t, w2, data)
	fresh, _ := w2.Create("func_wall_toggle")
	b.SetRestored(0, fresh.ID())
	require.NoError(t, b.SeekEntity(0))
	assert.Equal(t, OK, d2.Restore(fresh, b, false))
	fd := fresh.Data.(*door)
	assert.Equal(t, 1, fd.Spawns)
	assert.Zero(t, fd.Reinits)
	assert.Equal(t, 2.0, fd.Lip)
}

func TestSave_DontSaveAndInvalidBuffer(t *testing.T) {
	w, d := newTestWorld(t, "map1")
	e, _ := spawn(t, w, d, "env_sound", nil)

	b := save.NewBuffer(save.Header{}, w.SaveEnv())
	idx := b.AddEntity(e.ID(), 0)
	assert.True(t, d.Save(e, b))
	assert.False(t, b.Entities().Row(idx).HasData())

	other, _ := spawn(t, w, d, "info_null", nil)
	assert.False(t, d.Save(other, b), "entity missing from the table")

	_, err := save.Encode(b)
	require.NoError(t, err)
	assert.False(t, d.Save(e, b), "closed buffer")
	assert.Equal(t, Removed, d.Restore(e, b, false))
}

func TestRestore_KindMismatch(t *testing.T) {
	w, d := newTestWorld(t, "map1")
	e, _ := spawn(t, w, d, "func_door", nil)
	data := saveLevel(t, w, d, save.Landmark{}, e)

	w2, d2 := newTestWorld(t, "map1")
	b := openLevel(t, w2, data)
	wrong, _ := w2.Create("info_null")
	require.NoError(t, b.SeekEntity(0))
	assert.Equal(t, Removed, d2.Restore(wrong, b, false))
}

func TestRestore_GlobalPolicyInLevel(t *testing.T) {
	tests := []struct {
		name    string
		seed    *globals.Record
		want    Result
		dormant bool
	}{
		{name: "owned here", seed: &globals.Record{Name: "g", Level: "map1", State: globals.On}, want: OK},
		{name: "dead", seed: &globals.Record{Name: "g", Level: "map1", State: globals.Dead}, want: Removed},
		{name: "moved on", seed: &globals.Record{Name: "g", Level: "map2", State: globals.On}, want: OK, dormant: true},
		{name: "missing record is recreated", want: OK},
	}
	w, d := newTestWorld(t, "map1")
	e, _ := spawn(t, w, d, "func_door", map[string]string{"globalname": "g"})
	data := saveLevel(t, w, d, save.Landmark{}, e)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w2, d2 := newTestWorld(t, "map1")
			if tt.seed != nil {
				require.NoError(t, w2.Globals.Add(tt.seed.Name, tt.seed.Level, tt.seed.State))
			}
			b := openLevel(t, w2, data)
			fresh, _ := w2.Create("func_door")
			b.SetRestored(0, fresh.ID())
			require.NoError(t, b.SeekEntity(0))
			assert.Equal(t, tt.want, d2.Restore(fresh, b, false))
			assert.Equal(t, tt.dormant, fresh.IsDormant())
			_, ok := w2.Globals.Lookup("g")
			assert.True(t, ok)
		})
	}
}

// transition saves door1 in map1 around a landmark at (64,0,0) and prepares
// map2, whose own copy of door1 sits dormant as a placeholder.
func transition(t *testing.T, owner string) (w2 *world.World, d2 *Dispatcher, placeholder *world.Entity, b *save.Buffer) {
	t.Helper()
	w1, d1 := newTestWorld(t, "map1")
	w1.Time = 10
	e, res := spawn(t, w1, d1, "func_door", map[string]string{
		"globalname": "door1",
		"model":      "models/door_a",
		"origin":     "100 0 0",
		"mins":       "-8 -8 -8",
		"maxs":       "8 8 8",
		"targetname": "arriving",
	})
	require.Equal(t, OK, res)
	data := saveLevel(t, w1, d1, save.Landmark{Use: true, Name: "lm", Offset: vec.Vec3{X: 64}}, e)

	w2, d2 = newTestWorld(t, "map2")
	w2.Time = 50
	require.NoError(t, w2.Globals.Add("door1", owner, globals.On))
	placeholder, res = spawn(t, w2, d2, "func_door", map[string]string{
		"globalname": "door1",
		"model":      "models/door_b",
		"origin":     "0 0 0",
		"mins":       "-16 -16 -16",
		"maxs":       "16 16 16",
		"targetname": "placeholder",
	})
	require.Equal(t, OK, res)
	require.True(t, placeholder.IsDormant())

	b = openLevel(t, w2, data)
	b.SetLandmarkOffset(vec.Vec3{X: 500})
	require.NoError(t, b.SeekEntity(0))
	return w2, d2, placeholder, b
}

func TestRestore_OverlayMovesOwnership(t *testing.T) {
	w2, d2, placeholder, b := transition(t, "map1")
	temp, err := w2.Create("func_door")
	require.NoError(t, err)
	b.SetRestored(0, temp.ID())

	assert.Equal(t, Overlaid, d2.Restore(temp, b, true))

	r, ok := w2.Globals.Lookup("door1")
	require.True(t, ok)
	assert.Equal(t, globals.Record{Name: "door1", Level: "map2", State: globals.On}, r)

	// saved relative origin 36, destination landmark 500, shifted by the
	// arriving bounds (-8) against the placeholder's (-16)
	assert.Equal(t, vec.Vec3{X: 544}, placeholder.Origin)
	assert.Equal(t, "arriving", placeholder.TargetName)
	assert.Equal(t, "models/door_b", placeholder.Model, "global fields stay")
	assert.False(t, placeholder.IsDormant())
	assert.Equal(t, 1, placeholder.Data.(*door).Resets)
	assert.Equal(t, placeholder.ID(), b.Entities().Row(0).Restored)
	assert.Equal(t, vec.Vec3{X: 500}, b.LandmarkOffset(), "offset restored after overlay")
	assert.False(t, b.GlobalMode())
}

func TestRestore_StaleOverlayIgnored(t *testing.T) {
	w2, d2, placeholder, b := transition(t, "map3")
	temp, _ := w2.Create("func_door")
	b.SetRestored(0, temp.ID())

	assert.Equal(t, Ignored, d2.Restore(temp, b, true))
	r, _ := w2.Globals.Lookup("door1")
	assert.Equal(t, "map3", r.Level)
	assert.Equal(t, vec.Vec3{}, placeholder.Origin)
	assert.Equal(t, "placeholder", placeholder.TargetName)
}

func TestRestore_OverlayWithoutPlaceholder(t *testing.T) {
	w2, d2, placeholder, b := transition(t, "map1")
	w2.Free(placeholder)
	temp, _ := w2.Create("func_door")
	assert.Equal(t, Ignored, d2.Restore(temp, b, true))
	r, _ := w2.Globals.Lookup("door1")
	assert.Equal(t, "map1", r.Level, "ownership unchanged")
}

func TestOverlayTarget_LooksUpWithoutSideEffects(t *testing.T) {
	w2, d2, placeholder, b := transition(t, "map1")
	got, ok := d2.OverlayTarget(b)
	require.True(t, ok)
	assert.Same(t, placeholder, got)
	r, _ := w2.Globals.Lookup("door1")
	assert.Equal(t, "map1", r.Level, "lookup leaves ownership alone")
	assert.Equal(t, "placeholder", placeholder.TargetName)

	// the cursor is back at the row start, so the overlay still reads it
	temp, _ := w2.Create("func_door")
	assert.Equal(t, Overlaid, d2.Restore(temp, b, true))
	assert.Equal(t, "arriving", placeholder.TargetName)

	_, d3, _, b3 := transition(t, "map3")
	_, ok = d3.OverlayTarget(b3)
	assert.False(t, ok, "record owned by another level")
	_, ok = d3.OverlayTarget(nil)
	assert.False(t, ok)
}

func TestOnFree(t *testing.T) {
	w, d := newTestWorld(t, "map1")
	var freed []string
	event.Subscribe(w.Bus, func(ev event.EntityFreed) { freed = append(freed, ev.Classname) })

	e, _ := spawn(t, w, d, "func_door", nil)
	dd := e.Data.(*door)
	h := w.HandleOf(e)
	require.True(t, h.Valid())

	w.Free(e)
	assert.Equal(t, 1, dd.Freed)
	assert.Nil(t, e.Data)
	assert.False(t, h.Valid())

	w.Bus.SwapBuffers()
	w.Bus.DispatchAll()
	assert.Equal(t, []string{"func_door"}, freed)
}

func TestGlobalStateEntryPoints(t *testing.T) {
	w, d := newTestWorld(t, "map1")
	require.NoError(t, w.Globals.Add("a", "map1", globals.On))
	data := saveLevel(t, w, d, save.Landmark{})

	d.ResetGlobalState()
	assert.Zero(t, w.Globals.Len())

	b := openLevel(t, w, data)
	require.NoError(t, d.RestoreGlobalState(b))
	assert.Equal(t, globals.On, w.Globals.GetState("a"))
}
