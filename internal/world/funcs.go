package world

import (
	"sort"

	"go.uber.org/zap"
)

// Call carries the arguments of a think, touch, use or blocked function.
// Other is the toucher, blocker or activator.
type Call struct {
	World   *World
	Self    *Entity
	Other   *Entity
	Caller  *Entity
	UseType UseType
	Value   float64
}

// Func is an entity behavior registered by name. Function fields store the
// name, which is what makes them persistable.
type Func func(c Call)

// RegisterFunc binds name to fn. Registering a name twice replaces it.
func (w *World) RegisterFunc(name string, fn Func) {
	if _, ok := w.funcs[name]; ok {
		w.log.Warn("function re-registered", zap.String("name", name))
	}
	w.funcs[name] = fn
}

func (w *World) Func(name string) (Func, bool) {
	fn, ok := w.funcs[name]
	return fn, ok
}

// HasFunc reports whether name resolves. Restored function fields that do not
// resolve are cleared.
func (w *World) HasFunc(name string) bool {
	_, ok := w.funcs[name]
	return ok
}

// FuncNames lists registered functions, sorted.
func (w *World) FuncNames() []string {
	names := make([]string, 0, len(w.funcs))
	for n := range w.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the function named name, if any, and reports whether it ran.
func (w *World) Invoke(name string, c Call) bool {
	if name == "" {
		return false
	}
	fn, ok := w.funcs[name]
	if !ok {
		w.log.Warn("entity function not registered",
			zap.String("function", name),
			zap.String("classname", c.Self.Classname()))
		return false
	}
	c.World = w
	fn(c)
	return true
}

// FireTargets runs the use function of every entity named target.
func (w *World) FireTargets(target string, activator, caller *Entity, useType UseType, value float64) int {
	n := 0
	for _, e := range w.FindByTargetName(target) {
		if e.IsRemoved() {
			continue
		}
		if w.Invoke(e.Use, Call{Self: e, Other: activator, Caller: caller, UseType: useType, Value: value}) {
			n++
		}
	}
	return n
}
