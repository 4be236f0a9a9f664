package pluggable

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jumppad-labs/pluggable/errors"
	"github.com/jumppad-labs/pluggable/logger"
)

// PluginsAcquirer supplies registrations to the PluginsManager, for example
// by walking the file system or from a static list of modules.
type PluginsAcquirer interface {
	// Acquire discovers and registers the plugins of the acquirer
	Acquire(ctx context.Context) error
	ValidInactivePlugins() []*ValidRegistration
	InvalidPlugins() []*InvalidRegistration
}

// ManagerOptions configure a PluginsManager
type ManagerOptions struct {
	Logger logger.Logger
	// Graph is the graph plugins contribute their nodes to, a new graph is
	// created when nil
	Graph *PluginsGraph
	// BeforeActivate is called before the activation hook of each plugin
	BeforeActivate func(vr *ValidRegistration)
	// AfterActivate is called once a plugin is active
	AfterActivate func(p Plugin)
	// AfterDeactivate is called once a plugin is inactive again
	AfterDeactivate func(p Plugin)
}

// PluginsManager activates, deactivates and executes plugins. It owns the
// activation state of every plugin it has seen.
type PluginsManager struct {
	mu        sync.Mutex
	executive any
	logger    logger.Logger
	graph     *PluginsGraph
	options   ManagerOptions

	active        []Plugin
	registrations []*ValidRegistration
	invalid       []*InvalidRegistration
	states        map[string]ActivationState
}

// NewPluginsManager creates a manager for the host executive, the executive
// is passed to every plugin context as Container.
func NewPluginsManager(executive any, opts *ManagerOptions) *PluginsManager {
	o := ManagerOptions{}
	if opts != nil {
		o = *opts
	}

	if o.Logger == nil {
		o.Logger = logger.Nop{}
	}

	if o.Graph == nil {
		o.Graph = NewPluginsGraph()
	}

	return &PluginsManager{
		executive: executive,
		logger:    o.Logger,
		graph:     o.Graph,
		options:   o,
		states:    map[string]ActivationState{},
	}
}

// Executive returns the host executive
func (m *PluginsManager) Executive() any {
	return m.executive
}

// Graph returns the graph active plugins contribute to
func (m *PluginsManager) Graph() *PluginsGraph {
	return m.graph
}

// Activate acquires plugins from every acquirer and activates the valid
// registrations in acquirer order. A failing acquirer or plugin does not
// stop the remaining work, the collected errors are returned as an
// errors.ActivationError.
func (m *PluginsManager) Activate(ctx context.Context, acquirers ...PluginsAcquirer) error {
	ae := errors.NewActivationError()

	for _, a := range acquirers {
		err := a.Acquire(ctx)
		if err != nil {
			m.logger.Error("Unable to acquire plugins", "error", err)
			ae.AppendActivateError(err)
			continue
		}

		m.mu.Lock()
		m.invalid = append(m.invalid, a.InvalidPlugins()...)
		m.mu.Unlock()

		for _, vr := range a.ValidInactivePlugins() {
			if err := ctx.Err(); err != nil {
				ae.AppendActivateError(err)
				return ae.ErrorOrNil()
			}

			_, err := m.activatePlugin(ctx, vr)
			if err != nil {
				ae.AppendActivateError(err)
			}
		}
	}

	return ae.ErrorOrNil()
}

// ActivatePlugin activates the plugin of vr. It returns false when the
// activation hook vetoed the plugin or failed, in that case the plugin is
// recorded as invalid. Activating a plugin whose SystemID is already active
// returns the active plugin without calling any hooks.
func (m *PluginsManager) ActivatePlugin(ctx context.Context, vr *ValidRegistration) (Plugin, bool) {
	p, err := m.activatePlugin(ctx, vr)
	return p, err == nil && p != nil
}

func (m *PluginsManager) activatePlugin(ctx context.Context, vr *ValidRegistration) (Plugin, error) {
	p := vr.Plugin
	id := systemID(p)
	name := friendlyName(p)

	m.mu.Lock()
	if m.states[id] == Active {
		active := p
		if i := slices.IndexFunc(m.active, func(a Plugin) bool { return systemID(a) == id }); i >= 0 {
			active = m.active[i]
		}
		m.mu.Unlock()
		m.logger.Debug("Plugin not activated", "plugin", name, "error", ErrAlreadyActive)

		return active, nil
	}

	err := m.transition(id, Activating)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("unable to activate %s: %w", name, err)
	}

	if !slices.Contains(m.registrations, vr) {
		m.registrations = append(m.registrations, vr)
	}
	m.mu.Unlock()

	if m.options.BeforeActivate != nil {
		m.options.BeforeActivate(vr)
	}

	ac := &ActivateContext{
		Context:      Context{Container: m.executive, Plugin: p},
		Supplier:     m,
		Registration: vr,
	}

	res, err := callActivate(ctx, p, ac)
	if err == nil {
		if inv, ok := res.Registration.(*InvalidRegistration); ok {
			m.veto(id, inv)
			m.logger.Info("Plugin activation vetoed", "plugin", name, "diagnostics", inv.Diagnostics())

			return nil, nil
		}
	}

	if err != nil {
		m.veto(id, NewInvalidRegistration(vr.Source, fmt.Sprintf("activation failed: %s", err)))
		m.logger.Error("Unable to activate plugin", "plugin", name, "error", err)

		return nil, fmt.Errorf("unable to activate %s: %w", name, err)
	}

	if err := m.addGraphNode(p); err != nil {
		m.veto(id, NewInvalidRegistration(vr.Source, fmt.Sprintf("activation failed: %s", err)))
		m.logger.Error("Unable to activate plugin", "plugin", name, "error", err)

		return nil, fmt.Errorf("unable to activate %s: %w", name, err)
	}

	m.mu.Lock()
	m.transition(id, Active)
	m.active = append(m.active, p)
	m.mu.Unlock()

	m.logger.Debug("Activated plugin", "plugin", name, "nature", p.Nature().Identity)

	if m.options.AfterActivate != nil {
		m.options.AfterActivate(p)
	}

	return p, nil
}

func (m *PluginsManager) addGraphNode(p Plugin) (err error) {
	gc, ok := p.(GraphContributor)
	if !ok {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("graph node panicked: %v", r)
		}
	}()

	gc.ActivateGraphNode(m.graph)

	return nil
}

func (m *PluginsManager) removeGraphNode(p Plugin) (err error) {
	gr, ok := p.(GraphNodeRemover)
	if !ok {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("graph node removal panicked: %v", r)
		}
	}()

	gr.DeactivateGraphNode(m.graph)

	return nil
}

// veto returns the plugin to inactive and records reg as invalid
func (m *PluginsManager) veto(id string, reg *InvalidRegistration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transition(id, Inactive)
	m.invalid = append(m.invalid, reg)
}

// transition moves the plugin with id to next, must be called with the
// lock held
func (m *PluginsManager) transition(id string, next ActivationState) error {
	current := m.states[id]
	if !current.canTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	m.states[id] = next

	return nil
}

func callActivate(ctx context.Context, p Plugin, ac *ActivateContext) (res ActivateResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("activation hook panicked: %v", r)
		}
	}()

	switch a := p.(type) {
	case Activatable:
		return a.Activate(ctx, ac)
	case ActivatableSync:
		return a.ActivateSync(ac)
	}

	return ActivateResult{Registration: ac.Registration}, nil
}

// DeactivatePlugin deactivates an active plugin. The graph node of the
// plugin is removed and the plugin becomes inactive even when the
// deactivation hook or the graph node removal fails, both errors are
// returned.
func (m *PluginsManager) DeactivatePlugin(ctx context.Context, p Plugin) error {
	id := systemID(p)
	name := friendlyName(p)

	m.mu.Lock()
	if m.states[id] != Active {
		m.mu.Unlock()
		return fmt.Errorf("unable to deactivate %s: %w", name, ErrNotActive)
	}

	m.transition(id, Deactivating)
	m.mu.Unlock()

	dc := &DeactivateContext{
		Context:  Context{Container: m.executive, Plugin: p},
		Supplier: m,
	}

	hookErr := callDeactivate(ctx, p, dc)
	graphErr := m.removeGraphNode(p)

	m.mu.Lock()
	m.transition(id, Inactive)
	m.active = slices.DeleteFunc(m.active, func(a Plugin) bool { return systemID(a) == id })
	m.mu.Unlock()

	if m.options.AfterDeactivate != nil {
		m.options.AfterDeactivate(p)
	}

	if graphErr != nil {
		m.logger.Error("Unable to remove graph node", "plugin", name, "error", graphErr)
	}

	if hookErr != nil {
		m.logger.Error("Deactivation hook failed", "plugin", name, "error", hookErr)
	}

	switch {
	case hookErr != nil && graphErr != nil:
		return fmt.Errorf("unable to deactivate %s: %w; %w", name, hookErr, graphErr)
	case hookErr != nil:
		return fmt.Errorf("unable to deactivate %s: %w", name, hookErr)
	case graphErr != nil:
		return fmt.Errorf("unable to deactivate %s: %w", name, graphErr)
	}

	m.logger.Debug("Deactivated plugin", "plugin", name)

	return nil
}

// Deactivate deactivates every active plugin in reverse activation order.
// Hook failures are collected and returned as an errors.ActivationError,
// every plugin is deactivated regardless.
func (m *PluginsManager) Deactivate(ctx context.Context) error {
	ae := errors.NewActivationError()

	plugins := m.Plugins()
	slices.Reverse(plugins)

	for _, p := range plugins {
		if err := m.DeactivatePlugin(ctx, p); err != nil {
			ae.AppendDeactivateError(err)
		}
	}

	return ae.ErrorOrNil()
}

func callDeactivate(ctx context.Context, p Plugin, dc *DeactivateContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deactivation hook panicked: %v", r)
		}
	}()

	switch d := p.(type) {
	case Deactivatable:
		return d.Deactivate(ctx, dc)
	case DeactivatableSync:
		return d.DeactivateSync(dc)
	}

	return nil
}

// Plugins returns the active plugins in activation order
func (m *PluginsManager) Plugins() []Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.active)
}

// InvalidPlugins returns the invalid registrations of every acquirer plus
// the registrations vetoed during activation
func (m *PluginsManager) InvalidPlugins() []*InvalidRegistration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.invalid)
}

// ValidInactivePlugins returns the valid registrations whose plugin is not
// active
func (m *PluginsManager) ValidInactivePlugins() []*ValidRegistration {
	m.mu.Lock()
	defer m.mu.Unlock()

	vrs := []*ValidRegistration{}
	for _, vr := range m.registrations {
		if m.states[systemID(vr.Plugin)] == Inactive {
			vrs = append(vrs, vr)
		}
	}

	return vrs
}

// State returns the activation state of p
func (m *PluginsManager) State(p Plugin) ActivationState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.states[systemID(p)]
}

// FindPlugin returns the first active plugin matching pred
func (m *PluginsManager) FindPlugin(pred func(p Plugin) bool) (Plugin, bool) {
	for _, p := range m.Plugins() {
		if pred(p) {
			return p, true
		}
	}

	return nil, false
}

// PluginByAbbreviatedName returns the first active plugin with the
// abbreviated name
func (m *PluginsManager) PluginByAbbreviatedName(name string) (Plugin, bool) {
	return m.FindPlugin(func(p Plugin) bool {
		return p.Source().Identity().AbbreviatedName == name
	})
}

func systemID(p Plugin) string {
	return p.Source().Identity().SystemID
}

func friendlyName(p Plugin) string {
	return p.Source().Identity().FriendlyName
}
