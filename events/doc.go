// Package events provides the publish/subscribe bus the httpkit control
// plane uses to report state transitions and plugin lifecycle events.
//
// The set of event kinds is closed: dispatch is keyed by Kind constants,
// never by dynamic lookup. Listener panics are recovered and logged so a
// misbehaving listener can never abort emission to the remaining listeners.
package events
