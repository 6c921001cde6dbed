package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/globals"
	"github.com/l1jgo/worldstate/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// APIVersion is exposed to scripts as API_VERSION.
const APIVersion = 1

const entityType = "entity"

// Engine wraps a single gopher-lua VM whose scripts register entity functions
// by name. Single-goroutine access only (simulation loop).
type Engine struct {
	vm    *lua.LState
	w     *world.World
	log   *zap.Logger
	funcs []string
}

// NewEngine creates a Lua engine bound to w and loads every script under
// scriptsDir: the directory itself first, then its subdirectories in name
// order.
func NewEngine(scriptsDir string, w *world.World, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))

	e := &Engine{vm: vm, w: w, log: log}
	e.openAPI()

	if scriptsDir == "" {
		return e, nil
	}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, err
	}
	entries, err := os.ReadDir(scriptsDir)
	if err != nil && !os.IsNotExist(err) {
		vm.Close()
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := e.loadDir(filepath.Join(scriptsDir, entry.Name())); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", entry.Name(), err)
		}
	}
	return e, nil
}

func (e *Engine) Close() { e.vm.Close() }

// Funcs lists the functions scripts registered, sorted.
func (e *Engine) Funcs() []string {
	out := append([]string(nil), e.funcs...)
	sort.Strings(out)
	return out
}

// DoString runs a chunk of Lua in the engine.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) openAPI() {
	mt := e.vm.NewTypeMetatable(entityType)
	e.vm.SetField(mt, "__index", e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"valid":     e.entValid,
		"classname": e.entClassname,
		"get":       e.entGet,
		"set":       e.entSet,
		"think":     e.entThink,
		"remove":    e.entRemove,
	}))

	for name, fn := range map[string]lua.LGFunction{
		"register":         e.register,
		"fire":             e.fire,
		"time":             e.time,
		"level":            e.level,
		"global_state":     e.globalState,
		"set_global_state": e.setGlobalState,
		"log":              e.logf,
	} {
		e.vm.SetGlobal(name, e.vm.NewFunction(fn))
	}
}

// register("name", function(self, other, caller, use_type, value) ... end)
func (e *Engine) register(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	e.w.RegisterFunc(name, func(c world.Call) { e.call(name, fn, c) })
	e.funcs = append(e.funcs, name)
	return 0
}

func (e *Engine) call(name string, fn *lua.LFunction, c world.Call) {
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, e.push(c.Self), e.push(c.Other), e.push(c.Caller), lua.LNumber(c.UseType), lua.LNumber(c.Value)); err != nil {
		e.log.Error("lua entity function error",
			zap.String("function", name),
			zap.String("classname", c.Self.Classname()),
			zap.Error(err))
	}
}

// push hands an entity to Lua as a weak handle: a script that keeps it past
// the entity's removal sees an invalid entity, never a recycled one.
func (e *Engine) push(ent *world.Entity) lua.LValue {
	if ent == nil {
		return lua.LNil
	}
	ud := e.vm.NewUserData()
	ud.Value = e.w.HandleOf(ent)
	e.vm.SetMetatable(ud, e.vm.GetTypeMetatable(entityType))
	return ud
}

func (e *Engine) check(L *lua.LState) (*world.Entity, bool) {
	ud := L.CheckUserData(1)
	h, ok := ud.Value.(ecs.Handle)
	if !ok {
		L.ArgError(1, "entity expected")
		return nil, false
	}
	return e.w.Resolve(h)
}

func (e *Engine) entValid(L *lua.LState) int {
	_, ok := e.check(L)
	L.Push(lua.LBool(ok))
	return 1
}

func (e *Engine) entClassname(L *lua.LState) int {
	ent, ok := e.check(L)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(ent.Classname()))
	return 1
}

// ent:get("field") reads a common or kind field as text.
func (e *Engine) entGet(L *lua.LState) int {
	ent, ok := e.check(L)
	key := L.CheckString(2)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	if d, found := world.VarsTable.Lookup(key); found {
		L.Push(lua.LString(d.Format(&ent.Vars)))
		return 1
	}
	if k := ent.Kind(); k != nil && k.Fields != nil && ent.Data != nil {
		if d, found := k.Fields.Lookup(key); found {
			L.Push(lua.LString(d.Format(ent.Data)))
			return 1
		}
	}
	L.Push(lua.LNil)
	return 1
}

// ent:set("field", value) parses value into a common or kind field.
func (e *Engine) entSet(L *lua.LState) int {
	ent, ok := e.check(L)
	key := L.CheckString(2)
	value := L.CheckAny(3).String()
	if !ok {
		L.Push(lua.LFalse)
		return 1
	}
	var err error
	if d, found := world.VarsTable.Lookup(key); found {
		err = d.Set(&ent.Vars, value)
	} else if k := ent.Kind(); k != nil && k.Fields != nil && ent.Data != nil {
		d, found := k.Fields.Lookup(key)
		if !found {
			L.Push(lua.LFalse)
			return 1
		}
		err = d.Set(ent.Data, value)
	} else {
		L.Push(lua.LFalse)
		return 1
	}
	if err != nil {
		e.log.Warn("lua set field", zap.String("field", key), zap.Error(err))
		L.Push(lua.LFalse)
		return 1
	}
	if strings.EqualFold(key, "origin") {
		e.w.Relink(ent)
	}
	L.Push(lua.LTrue)
	return 1
}

// ent:think("fn", delay) schedules fn to run delay seconds from now.
func (e *Engine) entThink(L *lua.LState) int {
	ent, ok := e.check(L)
	name := L.CheckString(2)
	delay := float64(L.OptNumber(3, 0))
	if !ok {
		return 0
	}
	ent.Think = name
	base := e.w.Time
	if ent.MoveType == world.MovePush {
		base = ent.LTime
	}
	ent.NextThink = base + delay
	return 0
}

func (e *Engine) entRemove(L *lua.LState) int {
	if ent, ok := e.check(L); ok {
		e.w.Remove(ent)
	}
	return 0
}

// fire("target", activator?, use_type?)
func (e *Engine) fire(L *lua.LState) int {
	target := L.CheckString(1)
	var activator *world.Entity
	if ud, ok := L.Get(2).(*lua.LUserData); ok {
		if h, ok := ud.Value.(ecs.Handle); ok {
			activator, _ = e.w.Resolve(h)
		}
	}
	useType := world.UseType(L.OptInt(3, int(world.UseToggle)))
	n := e.w.FireTargets(target, activator, activator, useType, 0)
	L.Push(lua.LNumber(n))
	return 1
}

func (e *Engine) time(L *lua.LState) int {
	L.Push(lua.LNumber(e.w.Time))
	return 1
}

func (e *Engine) level(L *lua.LState) int {
	L.Push(lua.LString(e.w.Level))
	return 1
}

func (e *Engine) globalState(L *lua.LState) int {
	L.Push(lua.LString(e.w.Globals.GetState(L.CheckString(1)).String()))
	return 1
}

func (e *Engine) setGlobalState(L *lua.LState) int {
	name := L.CheckString(1)
	var st globals.State
	switch strings.ToUpper(L.CheckString(2)) {
	case "ON":
		st = globals.On
	case "OFF":
		st = globals.Off
	case "DEAD":
		st = globals.Dead
	default:
		L.ArgError(2, "ON, OFF or DEAD expected")
		return 0
	}
	e.w.SetGlobalState(name, st)
	return 0
}

func (e *Engine) logf(L *lua.LState) int {
	e.log.Info(L.CheckString(1), zap.String("level", e.w.Level))
	return 0
}
