package world

import (
	"testing"

	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/core/event"
	"github.com/l1jgo/worldstate/internal/core/vec"
	"github.com/l1jgo/worldstate/internal/globals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorld(t *testing.T) *World {
	t.Helper()
	w := New(8, nil)
	w.Level = "map1"
	require.NoError(t, w.RegisterKind(Kind{Classname: "info_target"}))
	return w
}

func TestWorld_RegisterKindTwice(t *testing.T) {
	w := newWorld(t)
	assert.Error(t, w.RegisterKind(Kind{Classname: "info_target"}))
	assert.Error(t, w.RegisterKind(Kind{}))
	assert.Equal(t, []string{"info_target"}, w.Kinds())
}

func TestWorld_CreateUnknownKind(t *testing.T) {
	w := newWorld(t)
	_, err := w.Create("monster_nothing")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestWorld_CreateExhaustsSlots(t *testing.T) {
	w := newWorld(t)
	for i := 0; i < 8; i++ {
		_, err := w.Create("info_target")
		require.NoError(t, err)
	}
	_, err := w.Create("info_target")
	assert.ErrorIs(t, err, ecs.ErrSlotsExhausted)
}

func TestWorld_RemoveIsDeferred(t *testing.T) {
	w := newWorld(t)
	e, err := w.Create("info_target")
	require.NoError(t, err)
	e.TargetName = "t1"
	h := w.HandleOf(e)

	w.Remove(e)
	w.Remove(e)
	assert.True(t, e.IsRemoved())
	assert.Empty(t, e.TargetName)
	assert.True(t, h.Valid(), "still allocated until the flush")

	assert.Equal(t, 1, w.Flush())
	assert.False(t, h.Valid())
	_, ok := w.Resolve(h)
	assert.False(t, ok)
	assert.Zero(t, w.Flush())
}

func TestWorld_FindGlobal(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.RegisterKind(Kind{Classname: "func_door"}))
	e, _ := w.Create("func_door")
	e.GlobalName = "door1"

	got, ok := w.FindGlobal("func_door", "door1")
	require.True(t, ok)
	assert.Same(t, e, got)

	_, ok = w.FindGlobal("info_target", "door1")
	assert.False(t, ok, "wrong class")
	_, ok = w.FindGlobal("func_door", "door2")
	assert.False(t, ok)
}

func TestWorld_InSphere(t *testing.T) {
	w := newWorld(t)
	place := func(p vec.Vec3) *Entity {
		e, err := w.Create("info_target")
		require.NoError(t, err)
		e.Origin = p
		w.Relink(e)
		return e
	}
	near := place(vec.Vec3{X: 10})
	edge := place(vec.Vec3{X: -300})
	far := place(vec.Vec3{X: 2000})

	got := w.InSphere(vec.Vec3{}, 300)
	assert.ElementsMatch(t, []*Entity{near, edge}, got)

	far.Origin = vec.Vec3{X: 20}
	w.Relink(far)
	assert.Len(t, w.InSphere(vec.Vec3{}, 300), 3)

	w.Free(near)
	assert.Len(t, w.InSphere(vec.Vec3{}, 300), 2)
}

func TestWorld_MakeDormant(t *testing.T) {
	w := newWorld(t)
	e, _ := w.Create("info_target")
	e.Solid = SolidBBox
	e.MoveType = MoveStep
	e.NextThink = 4

	w.MakeDormant(e)
	assert.True(t, e.IsDormant())
	assert.Equal(t, SolidNot, e.Solid)
	assert.Equal(t, MoveNone, e.MoveType)
	assert.Zero(t, e.NextThink)
	assert.Equal(t, EffectNoDraw, e.Effects&EffectNoDraw)
}

func TestWorld_FireTargets(t *testing.T) {
	w := newWorld(t)
	var got []UseType
	w.RegisterFunc("relay_use", func(c Call) {
		assert.NotNil(t, c.World)
		got = append(got, c.UseType)
	})
	for i := 0; i < 2; i++ {
		e, _ := w.Create("info_target")
		e.TargetName = "relay"
		e.Use = "relay_use"
	}
	other, _ := w.Create("info_target")
	other.TargetName = "relay"
	other.Use = "missing_use"

	assert.Equal(t, 2, w.FireTargets("relay", nil, nil, UseOn, 0))
	assert.Equal(t, []UseType{UseOn, UseOn}, got)
	assert.True(t, w.HasFunc("relay_use"))
	assert.Equal(t, []string{"relay_use"}, w.FuncNames())
}

func TestWorld_SetGlobalState(t *testing.T) {
	w := newWorld(t)
	w.SetGlobalState("power", globals.On)
	r, ok := w.Globals.Lookup("power")
	require.True(t, ok)
	assert.Equal(t, "map1", r.Level)

	w.SetGlobalState("power", globals.Off)
	assert.Equal(t, globals.Off, w.Globals.GetState("power"))

	var changes int
	event.Subscribe(w.Bus, func(event.GlobalStateChanged) { changes++ })
	w.SetGlobalState("power", globals.Dead)
	w.SetGlobalState("power", globals.On)
	w.Bus.SwapBuffers()
	w.Bus.DispatchAll()
	assert.Equal(t, globals.Dead, w.Globals.GetState("power"), "dead is terminal")
	assert.Equal(t, 1, changes, "a refused change is not announced")
}

func TestEntity_SetAbsBox(t *testing.T) {
	var e Entity
	e.Origin = vec.Vec3{X: 10, Y: 10, Z: 10}
	e.SetSize(vec.Splat(-2), vec.Splat(2))
	e.SetAbsBox()
	assert.Equal(t, vec.Splat(4), e.Size)
	assert.Equal(t, vec.Splat(7), e.AbsMin)
	assert.Equal(t, vec.Splat(13), e.AbsMax)
	assert.Equal(t, vec.Splat(10), e.Center())
}

func TestGrid_Near(t *testing.T) {
	g := NewGrid()
	a := ecs.NewEntityID(1, 1)
	g.Add(a, vec.Vec3{X: 100})
	assert.Contains(t, g.Near(vec.Vec3{}, 10), a, "same cell")
	assert.NotContains(t, g.Near(vec.Vec3{X: 5000}, 10), a)

	g.Move(a, vec.Vec3{X: 100}, vec.Vec3{X: 5000})
	assert.Contains(t, g.Near(vec.Vec3{X: 5000}, 10), a)
	g.Remove(a, vec.Vec3{X: 5000})
	assert.Empty(t, g.Near(vec.Vec3{X: 5000}, 10))
}
