package event

import "reflect"

// Bus is a double-buffered event bus. Events emitted in tick N are delivered
// in tick N+1, when the event system swaps the buffers at tick start. Entity
// logic can therefore emit freely while the world is being iterated.
//
// Delivery follows emit order across all event types, so a handler sees an
// EntitySpawned before the LevelChanged that was emitted after it.
type Bus struct {
	front    []queued
	back     []queued
	handlers map[reflect.Type][]func(any)
}

type queued struct {
	typ reflect.Type
	ev  any
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]func(any))}
}

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

// Emit queues an event into the back buffer (readable next tick).
func Emit[T any](b *Bus, event T) {
	b.back = append(b.back, queued{typ: typeOf[T](), ev: event})
}

// Subscribe registers a typed handler for events of type T. Handlers of one
// type run in subscription order.
func Subscribe[T any](b *Bus, fn func(T)) {
	t := typeOf[T]()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// SwapBuffers makes last tick's events deliverable and clears the buffer new
// events go to.
func (b *Bus) SwapBuffers() {
	clear(b.front)
	b.front, b.back = b.back, b.front[:0]
}

// DispatchAll delivers the front buffer in emit order. Events emitted by the
// handlers go to the back buffer and wait for the next swap.
func (b *Bus) DispatchAll() {
	for _, q := range b.front {
		for _, h := range b.handlers[q.typ] {
			h(q.ev)
		}
	}
}

// Queued counts events waiting for the next swap.
func (b *Bus) Queued() int { return len(b.back) }
