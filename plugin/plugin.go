package plugin

import (
	"context"

	"github.com/kbukum/httpkit/events"
	"github.com/kbukum/httpkit/middleware"
)

// State represents a plugin's lifecycle state. The chain is linear with
// no skipping; Error is reached only through a failed transition and is
// not automatically recoverable.
type State int

const (
	// StateUninitialized is the state of a freshly registered plugin.
	StateUninitialized State = iota
	// StateInitializing means the initialize hook is running.
	StateInitializing
	// StateInitialized means the plugin is initialized but not started.
	StateInitialized
	// StateStarting means the start hook is running.
	StateStarting
	// StateStarted means the plugin is running and its capabilities are live.
	StateStarted
	// StateStopping means the stop hook is running.
	StateStopping
	// StateStopped means the plugin was stopped.
	StateStopped
	// StateError means a lifecycle transition failed.
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Metadata identifies a plugin. Name is the registry key.
type Metadata struct {
	// Name uniquely identifies the plugin.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`
	// Version is the plugin version string.
	Version string `yaml:"version" mapstructure:"version"`
	// Description is a human-readable summary.
	Description string `yaml:"description" mapstructure:"description"`
	// Dependencies names plugins that must be registered before this one
	// and started no later than it.
	Dependencies []string `yaml:"dependencies" mapstructure:"dependencies"`
}

// Config holds per-plugin runtime configuration.
type Config struct {
	// Enabled gates the plugin in StartAll.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Priority is advisory ordering information for contributed middleware.
	Priority int `yaml:"priority" mapstructure:"priority"`
	// AutoStart starts the plugin immediately on registration.
	AutoStart bool `yaml:"auto_start" mapstructure:"auto_start"`
	// Settings carries free-form plugin settings.
	Settings map[string]any `yaml:"settings" mapstructure:"settings"`
}

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

// Hooks are the optional lifecycle callbacks of a plugin. A nil hook is
// skipped; the transition still happens.
type Hooks struct {
	// OnInitialize runs during the initializing transition.
	OnInitialize Hook
	// OnStart runs during the starting transition, before integration.
	OnStart Hook
	// OnStop runs during the stopping transition.
	OnStop Hook
	// OnDispose runs when the plugin is unregistered.
	OnDispose Hook
}

// Command is an operation a plugin exposes by name.
type Command func(ctx context.Context, args map[string]any) (any, error)

// Capabilities are the contributions a plugin may make to the running
// control plane. The fields are explicit per capability kind so the
// compiler enforces what a plugin can contribute.
type Capabilities struct {
	// RequestMiddleware is registered into the pipeline's request phase.
	RequestMiddleware []middleware.Middleware
	// ResponseMiddleware is registered into the pipeline's response phase.
	ResponseMiddleware []middleware.Middleware
	// ErrorMiddleware is registered into the pipeline's error phase.
	ErrorMiddleware []middleware.Middleware
	// EventHandlers are attached to the registry's event bus.
	EventHandlers map[events.Kind]events.Listener
	// Commands are exposed through Registry.ExecuteCommand.
	Commands map[string]Command
}

// Plugin is a pluggable httpkit module. The registry exclusively owns
// its lifecycle state.
type Plugin struct {
	// Metadata identifies the plugin and declares its dependencies.
	Metadata Metadata
	// Config holds runtime configuration.
	Config Config
	// Hooks are the lifecycle callbacks.
	Hooks Hooks
	// Capabilities are the plugin's contributions.
	Capabilities Capabilities

	state State
}

// State returns the plugin's current lifecycle state.
func (p *Plugin) State() State { return p.state }
