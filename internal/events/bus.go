// Package events is the in-process event bus connecting the runner to its
// observers (status LED, NATS state publisher, SSE stream, logs).
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. Delivery is asynchronous and
// ordered per subscriber.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// route bridges the untyped Bus methods to kelindar/event's generic
// functions for one concrete event type.
type route struct {
	publish   func(d *event.Dispatcher, ev Event)
	subscribe func(d *event.Dispatcher, handler any) (func(), bool)
}

func routeOf[T Event]() route {
	return route{
		publish: func(d *event.Dispatcher, ev Event) {
			event.Publish(d, ev.(T))
		},
		subscribe: func(d *event.Dispatcher, handler any) (func(), bool) {
			fn, ok := handler.(func(T))
			if !ok {
				return nil, false
			}
			return event.Subscribe(d, fn), true
		},
	}
}

// routes is keyed by Event.Type. Every event in types.go needs an entry.
var routes = map[uint32]route{
	TypeModeChanged:      routeOf[ModeChangedEvent](),
	TypeDriverError:      routeOf[DriverErrorEvent](),
	TypeSettingsReloaded: routeOf[SettingsReloadedEvent](),
	TypeSession:          routeOf[SessionEvent](),
}

// Publish broadcasts ev to the subscribers of its concrete type. A nil Bus
// drops the event, as does an unregistered type.
func (b *Bus) Publish(ev Event) {
	if b == nil || ev == nil {
		return
	}
	if r, ok := routes[ev.Type()]; ok {
		r.publish(b.dispatcher, ev)
	}
}

// Subscribe registers handler, a func taking one event type, and returns
// the unsubscribe function. Other handler shapes get a no-op.
//
//	unsub := bus.Subscribe(func(e ModeChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	if b != nil {
		for _, r := range routes {
			if unsub, ok := r.subscribe(b.dispatcher, handler); ok {
				return unsub
			}
		}
	}
	return func() {}
}
