package plugin

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/httpkit/dag"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/events"
	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/middleware"
)

var validate = validator.New()

const (
	defaultMaxPlugins  = 50
	defaultLoadTimeout = 30 * time.Second
)

// RegistryConfig configures a plugin registry.
type RegistryConfig struct {
	// MaxPlugins caps the number of registered plugins. Defaults to 50.
	MaxPlugins int `yaml:"max_plugins" mapstructure:"max_plugins" validate:"gte=1"`
	// LoadTimeout bounds each lifecycle hook invocation. Defaults to 30s.
	LoadTimeout time.Duration `yaml:"load_timeout" mapstructure:"load_timeout" validate:"gt=0"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *RegistryConfig) ApplyDefaults() {
	if c.MaxPlugins <= 0 {
		c.MaxPlugins = defaultMaxPlugins
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = defaultLoadTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *RegistryConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.InvalidConfig("plugin registry", err.Error()).WithCause(err)
	}
	return nil
}

// ErrorPayload is the payload of a plugin:error event.
type ErrorPayload struct {
	Plugin     string
	Transition string
	Err        error
}

// RegisteredPayload is the payload of plugin:registered and
// plugin:unregistered events.
type RegisteredPayload struct {
	Plugin  string
	Version string
}

// ConfigChangedPayload is the payload of a plugin:config-changed event.
type ConfigChangedPayload struct {
	Plugin string
	Config Config
}

// contribution tracks what a started plugin registered into the pipeline
// and subscribed on the bus, so it can be unwound on stop or unregister.
type contribution struct {
	middleware []contribEntry
	subs       []subEntry
}

type contribEntry struct {
	kind middleware.Kind
	name string
}

type subEntry struct {
	kind events.Kind
	id   string
}

// Registry owns the plugin map, the dependency graph, and all lifecycle
// state. A single mutex serializes registration and lifecycle
// transitions; lifecycle hooks run while it is held, so hooks must not
// call back into the registry.
type Registry struct {
	config   RegistryConfig
	pipeline *middleware.Pipeline
	bus      *events.Bus
	log      *logger.Logger

	mu       sync.Mutex
	plugins  map[string]*Plugin
	graph    *dag.Graph
	contribs map[string]*contribution
}

// NewRegistry creates a plugin registry. The pipeline receives middleware
// contributed by started plugins; the bus receives lifecycle events and
// plugin event handlers. Either may be nil when the corresponding
// capability is unused.
func NewRegistry(config RegistryConfig, pipeline *middleware.Pipeline, bus *events.Bus) *Registry {
	config.ApplyDefaults()
	return &Registry{
		config:   config,
		pipeline: pipeline,
		bus:      bus,
		plugins:  make(map[string]*Plugin),
		graph:    dag.New(),
		contribs: make(map[string]*contribution),
	}
}

// Register adds a plugin in the uninitialized state. It fails on a
// duplicate name, a full registry, an unregistered dependency, or a
// dependency cycle. A rejected registration leaves the registry and the
// graph exactly as they were.
func (r *Registry) Register(p *Plugin) error {
	if err := validate.Struct(&p.Metadata); err != nil {
		return errors.InvalidConfig("plugin", err.Error()).WithCause(err)
	}
	name := p.Metadata.Name

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[name]; ok {
		return errors.AlreadyExists("plugin", name)
	}
	if len(r.plugins) >= r.config.MaxPlugins {
		return errors.LimitExceeded("plugin", r.config.MaxPlugins)
	}
	for _, dep := range p.Metadata.Dependencies {
		// The plugin's own name is resolved against the node being added,
		// so a self-dependency falls through to the cycle check.
		if dep == name {
			continue
		}
		if _, ok := r.plugins[dep]; !ok {
			return errors.PluginDependencyMissing(name, dep)
		}
	}

	r.graph.AddNode(name)
	for _, dep := range p.Metadata.Dependencies {
		if err := r.graph.AddEdge(dep, name); err != nil {
			r.graph.RemoveNode(name)
			return errors.PluginDependencyMissing(name, dep).WithCause(err)
		}
	}
	if r.graph.HasCycle() {
		r.graph.RemoveNode(name)
		return errors.PluginCircularDependency(name)
	}

	p.state = StateUninitialized
	r.plugins[name] = p

	r.logger().Info("plugin registered", logger.Fields(
		logger.FieldPlugin, name,
		"version", p.Metadata.Version,
	))
	r.emit(events.KindPluginRegistered, RegisteredPayload{Plugin: name, Version: p.Metadata.Version})

	if p.Config.AutoStart && p.Config.Enabled {
		return r.startLocked(context.Background(), name)
	}
	return nil
}

// Get returns the named plugin.
func (r *Registry) Get(name string) (*Plugin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.plugins[name]
	if !ok {
		return nil, errors.PluginNotFound(name)
	}
	return p, nil
}

// List returns the registered plugin names in sorted order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plugins)
}

// GraphSize returns the number of nodes in the dependency graph.
func (r *Registry) GraphSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.graph.Size()
}

// Initialize moves the named plugin to the initialized state, running
// its dependencies' initialization first. Already initialized or started
// plugins are a no-op.
func (r *Registry) Initialize(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initLocked(ctx, name)
}

// Start moves the named plugin to the started state, initializing and
// starting its dependencies first, then integrating its capabilities
// into the pipeline and bus. An already started plugin is a no-op.
func (r *Registry) Start(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startLocked(ctx, name)
}

// Stop moves a started plugin to the stopped state and removes its
// contributed middleware and event subscriptions. Stopping a plugin that
// never started is a no-op.
func (r *Registry) Stop(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked(ctx, name)
}

// StartAll starts every enabled plugin in topological load order, so a
// dependency is always started before its dependents. It stops at the
// first failure.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, err := r.graph.TopoOrder()
	if err != nil {
		return errors.PluginCircularDependency("registry").WithCause(err)
	}
	for _, name := range order {
		if !r.plugins[name].Config.Enabled {
			continue
		}
		if err := r.startLocked(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops every started plugin in reverse topological order, so
// dependents are stopped before their dependencies. A failing stop is
// recorded and the sweep continues; the joined errors are returned.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, err := r.graph.TopoOrder()
	if err != nil {
		return errors.PluginCircularDependency("registry").WithCause(err)
	}

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		if err := r.stopLocked(ctx, order[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Unregister stops the named plugin if it is running, runs its disposal
// hook, and removes it from the registry and the graph. The plugin is
// removed even when a hook fails; the hook error is still returned. A
// plugin that other registered plugins depend on cannot be unregistered.
func (r *Registry) Unregister(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.plugins[name]
	if !ok {
		return errors.PluginNotFound(name)
	}
	if deps := r.graph.Dependents(name); len(deps) > 0 {
		return errors.InvalidConfig("plugin",
			fmt.Sprintf("plugin %q is still required by %v", name, deps))
	}

	var errs []error
	if err := r.stopLocked(ctx, name); err != nil {
		errs = append(errs, err)
	}
	if err := r.runHook(ctx, name, "dispose", p.Hooks.OnDispose); err != nil {
		errs = append(errs, errors.PluginLifecycle(name, "dispose", err))
	}

	r.removeContribution(name)
	delete(r.plugins, name)
	r.graph.RemoveNode(name)

	// The detached plugin is reset so a later re-registration starts its
	// lifecycle from scratch.
	p.state = StateUninitialized

	r.logger().Info("plugin unregistered", logger.Fields(logger.FieldPlugin, name))
	r.emit(events.KindPluginUnregistered, RegisteredPayload{Plugin: name, Version: p.Metadata.Version})

	return stderrors.Join(errs...)
}

// ExecuteCommand runs a named command exposed by a plugin.
func (r *Registry) ExecuteCommand(ctx context.Context, pluginName, command string, args map[string]any) (any, error) {
	r.mu.Lock()
	p, ok := r.plugins[pluginName]
	if !ok {
		r.mu.Unlock()
		return nil, errors.PluginNotFound(pluginName)
	}
	cmd, ok := p.Capabilities.Commands[command]
	r.mu.Unlock()
	if !ok {
		return nil, errors.PluginCommandNotFound(pluginName, command)
	}
	return cmd(ctx, args)
}

// SetConfig replaces a plugin's configuration and emits a
// plugin:config-changed event.
func (r *Registry) SetConfig(name string, cfg Config) error {
	r.mu.Lock()
	p, ok := r.plugins[name]
	if !ok {
		r.mu.Unlock()
		return errors.PluginNotFound(name)
	}
	p.Config = cfg
	r.mu.Unlock()

	r.emit(events.KindPluginConfigChanged, ConfigChangedPayload{Plugin: name, Config: cfg})
	return nil
}

// States returns a snapshot of every plugin's lifecycle state.
func (r *Registry) States() map[string]State {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]State, len(r.plugins))
	for name, p := range r.plugins {
		out[name] = p.state
	}
	return out
}

// --- lifecycle internals, callers hold r.mu ---

func (r *Registry) initLocked(ctx context.Context, name string) error {
	p, ok := r.plugins[name]
	if !ok {
		return errors.PluginNotFound(name)
	}

	switch p.state {
	case StateInitializing, StateInitialized, StateStarting, StateStarted, StateStopping, StateStopped:
		return nil
	case StateError:
		return errors.PluginLifecycle(name, "initialize", fmt.Errorf("plugin is in error state"))
	}

	for _, dep := range p.Metadata.Dependencies {
		if err := r.initLocked(ctx, dep); err != nil {
			return err
		}
	}

	p.state = StateInitializing
	if err := r.runHook(ctx, name, "initialize", p.Hooks.OnInitialize); err != nil {
		return r.fail(p, "initialize", err)
	}
	p.state = StateInitialized

	r.logger().Debug("plugin initialized", logger.Fields(logger.FieldPlugin, name))
	return nil
}

func (r *Registry) startLocked(ctx context.Context, name string) error {
	p, ok := r.plugins[name]
	if !ok {
		return errors.PluginNotFound(name)
	}

	switch p.state {
	case StateStarting, StateStarted, StateStopping, StateStopped:
		return nil
	case StateError:
		return errors.PluginLifecycle(name, "start", fmt.Errorf("plugin is in error state"))
	}

	if err := r.initLocked(ctx, name); err != nil {
		return err
	}
	for _, dep := range p.Metadata.Dependencies {
		if err := r.startLocked(ctx, dep); err != nil {
			return err
		}
	}

	p.state = StateStarting
	if err := r.runHook(ctx, name, "start", p.Hooks.OnStart); err != nil {
		return r.fail(p, "start", err)
	}
	if err := r.integrate(p); err != nil {
		return r.fail(p, "start", err)
	}
	p.state = StateStarted

	r.logger().Info("plugin started", logger.Fields(logger.FieldPlugin, name))
	return nil
}

func (r *Registry) stopLocked(ctx context.Context, name string) error {
	p, ok := r.plugins[name]
	if !ok {
		return errors.PluginNotFound(name)
	}
	if p.state != StateStarted {
		return nil
	}

	p.state = StateStopping
	if err := r.runHook(ctx, name, "stop", p.Hooks.OnStop); err != nil {
		return r.fail(p, "stop", err)
	}
	r.removeContribution(name)
	p.state = StateStopped

	r.logger().Info("plugin stopped", logger.Fields(logger.FieldPlugin, name))
	return nil
}

// integrate registers a plugin's capabilities. A partial failure unwinds
// everything already registered for this plugin.
func (r *Registry) integrate(p *Plugin) error {
	name := p.Metadata.Name
	caps := p.Capabilities

	hasMiddleware := len(caps.RequestMiddleware)+len(caps.ResponseMiddleware)+len(caps.ErrorMiddleware) > 0
	if hasMiddleware && r.pipeline == nil {
		return errors.InvalidConfig("plugin",
			fmt.Sprintf("plugin %q contributes middleware but the registry has no pipeline", name))
	}

	c := &contribution{}
	register := func(kind middleware.Kind, list []middleware.Middleware) error {
		for _, mw := range list {
			if err := r.pipeline.Register(kind, mw); err != nil {
				return err
			}
			c.middleware = append(c.middleware, contribEntry{kind: kind, name: mw.Name})
		}
		return nil
	}

	err := register(middleware.KindRequest, caps.RequestMiddleware)
	if err == nil {
		err = register(middleware.KindResponse, caps.ResponseMiddleware)
	}
	if err == nil {
		err = register(middleware.KindError, caps.ErrorMiddleware)
	}
	if err != nil {
		r.unwind(c)
		return err
	}

	if r.bus != nil {
		for kind, fn := range caps.EventHandlers {
			id := r.bus.Subscribe(kind, fn)
			c.subs = append(c.subs, subEntry{kind: kind, id: id})
		}
	}

	r.contribs[name] = c
	return nil
}

func (r *Registry) removeContribution(name string) {
	c, ok := r.contribs[name]
	if !ok {
		return
	}
	r.unwind(c)
	delete(r.contribs, name)
}

func (r *Registry) unwind(c *contribution) {
	for _, e := range c.middleware {
		r.pipeline.Unregister(e.kind, e.name)
	}
	for _, s := range c.subs {
		if r.bus != nil {
			r.bus.Unsubscribe(s.kind, s.id)
		}
	}
}

// runHook executes a lifecycle hook under the registry's load timeout as
// a race between the hook and a timer. The loser is abandoned.
func (r *Registry) runHook(ctx context.Context, name, hookName string, h Hook) error {
	if h == nil {
		return nil
	}

	timeout := r.config.LoadTimeout
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- fmt.Errorf("plugin %q hook %s panicked: %v", name, hookName, rec)
			}
		}()
		ch <- h(hctx)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-ch:
		return err
	case <-timer.C:
		return errors.PluginLoadTimeout(name, hookName, timeout)
	}
}

// fail parks the plugin in the error state, logs and emits the failure,
// and returns the lifecycle error. Hook timeouts keep their own code.
func (r *Registry) fail(p *Plugin, transition string, cause error) error {
	p.state = StateError
	name := p.Metadata.Name

	r.logger().Error("plugin lifecycle failed", logger.Fields(
		logger.FieldPlugin, name,
		logger.FieldOperation, transition,
		logger.FieldError, cause.Error(),
	))
	r.emit(events.KindPluginError, ErrorPayload{Plugin: name, Transition: transition, Err: cause})

	if errors.Is(cause, errors.ErrCodePluginLoadTimeout) {
		return cause
	}
	return errors.PluginLifecycle(name, transition, cause)
}

func (r *Registry) emit(kind events.Kind, payload any) {
	if r.bus != nil {
		r.bus.Emit(kind, "plugin", payload)
	}
}

func (r *Registry) logger() *logger.Logger {
	if r.log == nil {
		r.log = logger.WithComponent("plugin")
	}
	return r.log
}
