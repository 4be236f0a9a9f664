package pluggable

import (
	"context"
	"errors"
)

var (
	ErrAlreadyActive     = errors.New("plugin is already active")
	ErrNotActive         = errors.New("plugin is not active")
	ErrInvalidTransition = errors.New("invalid activation state transition")
	ErrModuleNotFound    = errors.New("module not found")
)

// Plugin is the validated, runnable unit. Additional behaviour is exposed
// by implementing the capability interfaces in this file.
type Plugin interface {
	Nature() Nature
	Source() PluginSource
}

// Action is implemented by plugins that can be executed asynchronously.
type Action interface {
	Execute(ctx context.Context, pc *Context) (any, error)
}

// ActionSync is implemented by plugins that execute synchronously.
type ActionSync interface {
	ExecuteSync(pc *Context) (any, error)
}

// Activatable is implemented by plugins with an activation hook.
type Activatable interface {
	Activate(ctx context.Context, ac *ActivateContext) (ActivateResult, error)
}

// ActivatableSync is implemented by plugins with a synchronous activation hook.
type ActivatableSync interface {
	ActivateSync(ac *ActivateContext) (ActivateResult, error)
}

// Deactivatable is implemented by plugins with a deactivation hook.
type Deactivatable interface {
	Deactivate(ctx context.Context, dc *DeactivateContext) error
}

// DeactivatableSync is implemented by plugins with a synchronous
// deactivation hook.
type DeactivatableSync interface {
	DeactivateSync(dc *DeactivateContext) error
}

// GraphContributor is implemented by plugins that add themselves to the
// PluginsGraph when activated.
type GraphContributor interface {
	ActivateGraphNode(g *PluginsGraph) *GraphNode
}

// GraphNodeRemover is implemented by plugins that remove their node from the
// PluginsGraph when deactivated.
type GraphNodeRemover interface {
	DeactivateGraphNode(g *PluginsGraph)
}

// ModuleBacked is implemented by plugins created from a module.
type ModuleBacked interface {
	Module() *Module
}

// ActivationState is the lifecycle state of a plugin, it is held by the
// PluginsManager and never stored on the plugin.
type ActivationState int

const (
	Inactive ActivationState = iota
	Activating
	Active
	Deactivating
)

func (s ActivationState) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Activating:
		return "activating"
	case Active:
		return "active"
	case Deactivating:
		return "deactivating"
	default:
		return "unknown"
	}
}

// canTransition reports whether moving from s to next is legal
func (s ActivationState) canTransition(next ActivationState) bool {
	switch s {
	case Inactive:
		return next == Activating || next == Active
	case Activating:
		return next == Active || next == Inactive
	case Active:
		return next == Deactivating
	case Deactivating:
		return next == Inactive
	}

	return false
}

// FunctionKind classifies the handler of a function module plugin. It is
// decided once during validation.
type FunctionKind int

const (
	FunctionSync FunctionKind = iota
	FunctionAsync
	FunctionGenerator
	FunctionAsyncGenerator
)

func (k FunctionKind) String() string {
	switch k {
	case FunctionSync:
		return "sync"
	case FunctionAsync:
		return "async"
	case FunctionGenerator:
		return "generator"
	case FunctionAsyncGenerator:
		return "async-generator"
	default:
		return "unknown"
	}
}

// IsAsync returns true for async and async generator handlers
func (k FunctionKind) IsAsync() bool {
	return k == FunctionAsync || k == FunctionAsyncGenerator
}

// IsGenerator returns true for generator and async generator handlers
func (k FunctionKind) IsGenerator() bool {
	return k == FunctionGenerator || k == FunctionAsyncGenerator
}

// ParseFunctionKind converts the string form of a FunctionKind, an empty
// string is FunctionSync.
func ParseFunctionKind(s string) (FunctionKind, bool) {
	switch s {
	case "", "sync":
		return FunctionSync, true
	case "async":
		return FunctionAsync, true
	case "generator":
		return FunctionGenerator, true
	case "async-generator":
		return FunctionAsyncGenerator, true
	}

	return FunctionSync, false
}

// ActivateContext is passed to activation hooks.
type ActivateContext struct {
	Context
	// Supplier is the manager that owns the plugins graph and active plugins
	Supplier *PluginsManager
	// Registration is the registration being activated
	Registration *ValidRegistration
}

// ActivateResult is returned by activation hooks. When Registration is an
// *InvalidRegistration the plugin vetoes its own activation.
type ActivateResult struct {
	Registration Registration
}

// DeactivateContext is passed to deactivation hooks.
type DeactivateContext struct {
	Context
	Supplier *PluginsManager
}
