package kinds

import (
	"testing"

	"github.com/l1jgo/worldstate/internal/core/event"
	"github.com/l1jgo/worldstate/internal/core/vec"
	"github.com/l1jgo/worldstate/internal/dispatch"
	"github.com/l1jgo/worldstate/internal/globals"
	"github.com/l1jgo/worldstate/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*world.World, *dispatch.Dispatcher) {
	t.Helper()
	w := world.New(64, nil)
	w.Level = "l1"
	require.NoError(t, Register(w))
	return w, dispatch.New(w, nil)
}

func spawn(t *testing.T, w *world.World, d *dispatch.Dispatcher, classname string, kv map[string]string) (*world.Entity, dispatch.Result) {
	t.Helper()
	e, err := w.Create(classname)
	require.NoError(t, err)
	for k, v := range kv {
		d.KeyValue(e, k, v)
	}
	return e, d.Spawn(e)
}

func drain(w *world.World) {
	w.Bus.SwapBuffers()
	w.Bus.DispatchAll()
}

func TestRegister_AllKinds(t *testing.T) {
	w, _ := setup(t)
	for _, k := range All() {
		_, ok := w.Kind(k.Classname)
		assert.True(t, ok, k.Classname)
	}
	assert.True(t, w.HasFunc("door_use"))
	assert.True(t, w.HasFunc("env_global_use"))
	assert.True(t, w.HasFunc("changelevel_touch"))
	assert.Error(t, Register(w), "kinds register once")
}

func TestPlayer_SpawnAndWeapons(t *testing.T) {
	w, d := setup(t)
	p, res := spawn(t, w, d, "player", nil)
	require.Equal(t, dispatch.OK, res)
	assert.True(t, p.IsPlayer())
	assert.Equal(t, 100.0, p.Health)
	assert.Equal(t, playerMaxs.Sub(playerMins), p.Size)

	for _, weapon := range []string{"crowbar", "pistol", "crowbar", "shotgun", "rpg"} {
		assert.True(t, GiveWeapon(p, weapon), weapon)
	}
	assert.False(t, GiveWeapon(p, "crossbow"), "all slots taken")
	assert.Equal(t, []string{"crowbar", "pistol", "shotgun", "rpg"}, Weapons(p))

	target, _ := spawn(t, w, d, "info_target", nil)
	assert.False(t, GiveWeapon(target, "crowbar"))
	assert.Nil(t, Weapons(target))
}

func TestDoor_OpensOnItsOwnClock(t *testing.T) {
	w, d := setup(t)
	var fired int
	w.RegisterFunc("count_use", func(world.Call) { fired++ })
	lamp, _ := spawn(t, w, d, "info_target", map[string]string{"targetname": "lamp"})
	lamp.Use = "count_use"

	door, res := spawn(t, w, d, "func_door", map[string]string{
		"origin": "0 0 10",
		"travel": "0 0 50",
		"speed":  "25",
		"wait":   "-1",
		"target": "lamp",
	})
	require.Equal(t, dispatch.OK, res)
	assert.Equal(t, world.MovePush, door.MoveType)

	d.Use(door, nil)
	assert.Equal(t, "door_hit_top", door.Think)
	assert.InDelta(t, 2.0, door.NextThink, 1e-9)

	door.LTime = 2
	d.Think(door)
	assert.True(t, DoorOpen(door))
	assert.Equal(t, vec.Vec3{Z: 60}, door.Origin)
	assert.Zero(t, door.NextThink, "wait -1 stays open")
	assert.Equal(t, 1, fired)

	d.Use(door, nil)
	assert.Equal(t, "door_hit_bottom", door.Think)
	d.Blocked(door, nil)
	assert.Equal(t, "door_hit_top", door.Think, "blocked while closing reverses")
}

func TestDoor_WaitSendsItBack(t *testing.T) {
	w, d := setup(t)
	door, _ := spawn(t, w, d, "func_door", map[string]string{"travel": "10 0 0", "wait": "3"})
	d.Use(door, nil)
	door.LTime = door.NextThink
	d.Think(door)
	assert.Equal(t, "door_go_down", door.Think)
	assert.InDelta(t, door.LTime+3, door.NextThink, 1e-9)

	door.LTime = door.NextThink
	d.Think(door)
	assert.Equal(t, "door_hit_bottom", door.Think)
	door.LTime = door.NextThink
	d.Think(door)
	assert.False(t, DoorOpen(door))
	assert.Equal(t, vec.Vec3{}, door.Origin)
}

func TestDoor_OverrideResetSnapsToDestination(t *testing.T) {
	w, d := setup(t)
	door, _ := spawn(t, w, d, "func_door", map[string]string{"travel": "0 40 0"})
	d.Use(door, nil)
	door.Origin = vec.Vec3{Y: 13}

	door.Data.(world.OverrideResetter).OverrideReset(w, door)
	assert.True(t, DoorOpen(door))
	assert.Equal(t, vec.Vec3{Y: 40}, door.Origin)
	assert.Empty(t, door.Think)
	assert.Zero(t, door.NextThink)
}

func TestEnvGlobal(t *testing.T) {
	w, d := setup(t)
	var changes []event.GlobalStateChanged
	event.Subscribe(w.Bus, func(ev event.GlobalStateChanged) { changes = append(changes, ev) })

	toggle, res := spawn(t, w, d, "env_global", map[string]string{
		"globalstate":  "reactor",
		"triggermode":  "3",
		"initialstate": "1",
		"spawnflags":   "1",
	})
	require.Equal(t, dispatch.OK, res)
	assert.Equal(t, globals.On, w.Globals.GetState("reactor"))

	d.Use(toggle, nil)
	assert.Equal(t, globals.Off, w.Globals.GetState("reactor"))
	d.Use(toggle, nil)
	assert.Equal(t, globals.On, w.Globals.GetState("reactor"))

	kill, _ := spawn(t, w, d, "env_global", map[string]string{"globalstate": "reactor", "triggermode": "2"})
	d.Use(kill, nil)
	assert.Equal(t, globals.Dead, w.Globals.GetState("reactor"))
	d.Use(toggle, nil)
	assert.Equal(t, globals.Dead, w.Globals.GetState("reactor"), "toggle leaves dead alone")

	revive, _ := spawn(t, w, d, "env_global", map[string]string{"globalstate": "reactor", "triggermode": "1"})
	d.Use(revive, nil)
	assert.Equal(t, globals.Dead, w.Globals.GetState("reactor"), "dead is terminal")

	drain(w)
	assert.Len(t, changes, 5, "the refused revive is not announced")

	_, res = spawn(t, w, d, "env_global", nil)
	assert.Equal(t, dispatch.Removed, res)
}

func TestChangeLevel_RequestsOnPlayerTouch(t *testing.T) {
	w, d := setup(t)
	var got []event.LevelChangeRequested
	event.Subscribe(w.Bus, func(ev event.LevelChangeRequested) { got = append(got, ev) })

	trig, res := spawn(t, w, d, "trigger_changelevel", map[string]string{"map": "l2", "landmark": "lm"})
	require.Equal(t, dispatch.OK, res)
	assert.Equal(t, world.SolidTrigger, trig.Solid)

	crate, _ := spawn(t, w, d, "info_target", nil)
	d.Touch(trig, crate)
	drain(w)
	assert.Empty(t, got, "only players trigger it")

	p, _ := spawn(t, w, d, "player", nil)
	d.Touch(trig, p)
	d.Use(trig, nil)
	drain(w)
	assert.Equal(t, []event.LevelChangeRequested{
		{Next: "l2", Landmark: "lm"},
		{Next: "l2", Landmark: "lm"},
	}, got)

	_, res = spawn(t, w, d, "trigger_changelevel", nil)
	assert.Equal(t, dispatch.Removed, res)
}

func TestScripted_KeysActivateAndLink(t *testing.T) {
	w, d := setup(t)
	w.Time = 5
	e, res := spawn(t, w, d, "lua_entity", map[string]string{
		"think":    "pulse",
		"use":      "on_use",
		"delay":    "0.5",
		"counter":  "7",
		"linkname": "anchor",
	})
	require.Equal(t, dispatch.OK, res)
	assert.Equal(t, "pulse", e.Think)
	assert.Equal(t, "on_use", e.Use)
	assert.InDelta(t, 5.5, e.NextThink, 1e-9)
	assert.Equal(t, int32(7), Counter(e))

	_, ok := Linked(w, e)
	assert.False(t, ok, "unresolved before activation")

	anchor, _ := spawn(t, w, d, "info_target", map[string]string{"targetname": "anchor"})
	e.Data.(world.Activator).Activate(w, e)
	got, ok := Linked(w, e)
	require.True(t, ok)
	assert.Same(t, anchor, got)

	w.Remove(anchor)
	w.Flush()
	_, ok = Linked(w, e)
	assert.False(t, ok, "weak link goes stale when the target is freed")
}
