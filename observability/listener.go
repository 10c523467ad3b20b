package observability

import (
	"context"

	"github.com/kbukum/httpkit/breaker"
	"github.com/kbukum/httpkit/events"
	"github.com/kbukum/httpkit/plugin"
)

// Observe subscribes the recorder to breaker and plugin events on the
// bus, turning them into metric increments. The returned function
// removes the subscriptions.
func (r *Recorder) Observe(bus *events.Bus) func() {
	ctx := context.Background()

	type sub struct {
		kind events.Kind
		id   string
	}
	var subs []sub
	add := func(kind events.Kind, fn events.Listener) {
		subs = append(subs, sub{kind: kind, id: bus.Subscribe(kind, fn)})
	}

	add(events.KindStateChanged, func(ev events.Event) {
		if stats, ok := ev.Payload.(breaker.Stats); ok {
			r.RecordBreakerTransition(ctx, stats.Name, stats.State.String())
		}
	})
	add(events.KindPluginRegistered, func(ev events.Event) {
		if p, ok := ev.Payload.(plugin.RegisteredPayload); ok {
			r.RecordPluginEvent(ctx, p.Plugin, "registered")
		}
	})
	add(events.KindPluginUnregistered, func(ev events.Event) {
		if p, ok := ev.Payload.(plugin.RegisteredPayload); ok {
			r.RecordPluginEvent(ctx, p.Plugin, "unregistered")
		}
	})
	add(events.KindPluginError, func(ev events.Event) {
		if p, ok := ev.Payload.(plugin.ErrorPayload); ok {
			r.RecordPluginEvent(ctx, p.Plugin, "error")
		}
	})

	return func() {
		for _, s := range subs {
			bus.Unsubscribe(s.kind, s.id)
		}
	}
}
