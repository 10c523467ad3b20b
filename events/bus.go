package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/httpkit/logger"
)

// Kind identifies an event category.
type Kind string

// The closed set of event kinds emitted by the control plane.
const (
	// KindStateChanged is emitted by a circuit breaker on a state transition.
	KindStateChanged Kind = "state-changed"
	// KindPluginRegistered is emitted when a plugin is registered.
	KindPluginRegistered Kind = "plugin:registered"
	// KindPluginUnregistered is emitted when a plugin is unregistered.
	KindPluginUnregistered Kind = "plugin:unregistered"
	// KindPluginError is emitted when a plugin lifecycle transition fails.
	KindPluginError Kind = "plugin:error"
	// KindPluginConfigChanged is emitted when a plugin's configuration changes.
	KindPluginConfigChanged Kind = "plugin:config-changed"
)

// Event is delivered to listeners on emission.
type Event struct {
	// Kind identifies the event category.
	Kind Kind
	// Source names the component that emitted the event.
	Source string
	// Time is when the event was emitted.
	Time time.Time
	// Payload carries kind-specific data.
	Payload any
}

// Listener handles a single event.
type Listener func(Event)

// Bus is a synchronous publish/subscribe event bus keyed by Kind.
// Listeners for a kind are invoked in subscription order.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Kind][]subscription
	log       *logger.Logger
}

type subscription struct {
	id string
	fn Listener
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[Kind][]subscription),
		log:       logger.WithComponent("events"),
	}
}

// Subscribe registers a listener for the given kind and returns a
// subscription id usable with Unsubscribe.
func (b *Bus) Subscribe(kind Kind, fn Listener) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	b.listeners[kind] = append(b.listeners[kind], subscription{id: id, fn: fn})
	return id
}

// Unsubscribe removes the listener with the given subscription id.
// Returns true if a listener was removed.
func (b *Bus) Unsubscribe(kind Kind, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.listeners[kind]
	for i, s := range subs {
		if s.id == id {
			b.listeners[kind] = append(subs[:i:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// Emit delivers an event to every listener subscribed to its kind.
// A panicking listener is recovered and logged; emission continues.
func (b *Bus) Emit(kind Kind, source string, payload any) {
	b.mu.RLock()
	subs := b.listeners[kind]
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	ev := Event{Kind: kind, Source: source, Time: time.Now(), Payload: payload}
	for _, s := range subs {
		b.dispatch(s, ev)
	}
}

// ListenerCount returns the number of listeners for a kind.
func (b *Bus) ListenerCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[kind])
}

func (b *Bus) dispatch(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("listener panicked", logger.Fields(
				"kind", string(ev.Kind),
				"source", ev.Source,
				"panic", r,
			))
		}
	}()
	s.fn(ev)
}
