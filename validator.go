package pluggable

import (
	"context"
	"fmt"
	"iter"
)

// ModulePlugin is a plugin created from a module. Activation and
// deactivation hooks exported by the module are called through the
// Activatable and Deactivatable capabilities, a module without hooks
// activates without doing any work.
type ModulePlugin struct {
	nature    Nature
	source    PluginSource
	module    *Module
	metadata  Metadata
	graphNode *GraphNode
}

// NewModulePlugin creates a potential plugin for module m, a nil node means
// the plugin does not contribute to the PluginsGraph
func NewModulePlugin(n Nature, src PluginSource, m *Module, md Metadata, node *GraphNode) *ModulePlugin {
	return &ModulePlugin{
		nature:    n,
		source:    src,
		module:    m,
		metadata:  md,
		graphNode: node,
	}
}

func (p *ModulePlugin) Nature() Nature        { return p.nature }
func (p *ModulePlugin) Source() PluginSource  { return p.source }
func (p *ModulePlugin) Module() *Module       { return p.module }
func (p *ModulePlugin) Metadata() Metadata    { return p.metadata }
func (p *ModulePlugin) GraphNode() *GraphNode { return p.graphNode }

// ActivateGraphNode implements GraphContributor
func (p *ModulePlugin) ActivateGraphNode(g *PluginsGraph) *GraphNode {
	return g.AddNode(p.graphNode)
}

// DeactivateGraphNode implements GraphNodeRemover
func (p *ModulePlugin) DeactivateGraphNode(g *PluginsGraph) {
	g.Remove(p.graphNode)
}

// Activate implements Activatable, the async hook of the module is
// preferred over the sync hook
func (p *ModulePlugin) Activate(ctx context.Context, ac *ActivateContext) (ActivateResult, error) {
	switch {
	case p.metadata.Activate != nil:
		return p.metadata.Activate(ctx, ac)
	case p.metadata.ActivateSync != nil:
		return p.metadata.ActivateSync(ac)
	}

	return ActivateResult{Registration: ac.Registration}, nil
}

// Deactivate implements Deactivatable
func (p *ModulePlugin) Deactivate(ctx context.Context, dc *DeactivateContext) error {
	if p.metadata.Deactivate == nil {
		return nil
	}

	return p.metadata.Deactivate(ctx, dc)
}

func (p *ModulePlugin) adopt(node Plugin) {
	if p.graphNode != nil && p.graphNode.plugin == nil {
		p.graphNode.plugin = node
	}
}

// FunctionModulePlugin is a module whose default export is a function
type FunctionModulePlugin struct {
	*ModulePlugin
	kind      FunctionKind
	handler   AsyncHandlerFunc
	generator AsyncGeneratorFunc
}

// Kind returns the function kind decided during validation
func (p *FunctionModulePlugin) Kind() FunctionKind { return p.kind }

// IsAsync returns true for async and async generator functions
func (p *FunctionModulePlugin) IsAsync() bool { return p.kind.IsAsync() }

// IsGenerator returns true for generator and async generator functions
func (p *FunctionModulePlugin) IsGenerator() bool { return p.kind.IsGenerator() }

// Handler returns the default export of the module
func (p *FunctionModulePlugin) Handler() any { return p.module.Default }

// Nature returns module-function unless the module or the registration
// options chose another identity
func (p *FunctionModulePlugin) Nature() Nature {
	n := p.nature
	if n.Identity == NatureModule {
		n.Identity = NatureModuleFunction
	}

	return n
}

// Execute implements Action
func (p *FunctionModulePlugin) Execute(ctx context.Context, pc *Context) (any, error) {
	if p.generator != nil {
		return &FunctionResult{Context: pc, HandlerResult: p.generator(ctx, pc)}, nil
	}

	res, err := p.handler(ctx, pc)
	if err != nil {
		return nil, err
	}

	return &FunctionResult{Context: pc, HandlerResult: res}, nil
}

// FunctionResult is the uniform result of a function module plugin
type FunctionResult struct {
	Context *Context
	// HandlerResult is the value returned by the function, for generators
	// it is an iter.Seq2[any, error]
	HandlerResult any
}

// Values returns the values produced by a generator function, for other
// functions the handler result is returned as the only value
func (r *FunctionResult) Values() ([]any, error) {
	seq, ok := r.HandlerResult.(iter.Seq2[any, error])
	if !ok {
		return []any{r.HandlerResult}, nil
	}

	values := []any{}
	for v, err := range seq {
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}

	return values, nil
}

// ScalarModulePlugin is a module whose default export is a plain value
type ScalarModulePlugin struct {
	*ModulePlugin
	scalar any
}

// Scalar returns the default export of the module
func (p *ScalarModulePlugin) Scalar() any { return p.scalar }

// Nature returns module-scalar unless the module or the registration
// options chose another identity
func (p *ScalarModulePlugin) Nature() Nature {
	n := p.nature
	if n.Identity == NatureModule {
		n.Identity = NatureModuleScalar
	}

	return n
}

// Validate decides what kind of plugin the default export of the module of
// potential represents. In priority order: an existing valid registration
// is returned unchanged, a pre-constructed Plugin is wrapped, a function is
// classified and wrapped as a FunctionModulePlugin, any other value becomes
// a ScalarModulePlugin. Finally the guard of opts is applied.
func Validate(ctx context.Context, potential *ModulePlugin, opts *RegistrationOptions) (reg Registration) {
	defer func() {
		if r := recover(); r != nil {
			reg = NewInvalidRegistration(potential.source, fmt.Sprintf("module validation exception: %v", r))
		}
	}()

	def := potential.module.Default

	switch d := def.(type) {
	case *ValidRegistration:
		reg = d
	case Plugin:
		reg = &ValidRegistration{Source: d.Source(), Plugin: d}
	default:
		reg = validateDefault(potential, def)
	}

	return opts.guard(reg)
}

func validateDefault(potential *ModulePlugin, def any) Registration {
	if kind, handler, generator, ok := classifyHandler(def); ok {
		p := &FunctionModulePlugin{
			ModulePlugin: potential,
			kind:         kind,
			handler:      handler,
			generator:    generator,
		}
		potential.adopt(p)

		return &ValidRegistration{Source: potential.source, Plugin: p}
	}

	if def == nil || (potential.metadata.ScalarGuard != nil && !potential.metadata.ScalarGuard(def)) {
		return NewInvalidRegistration(potential.source, fmt.Sprintf(
			"invalid plugin: typeof 'default' is %s (expected function, Plugin, or ValidRegistration instance)",
			typeOf(def)))
	}

	p := &ScalarModulePlugin{ModulePlugin: potential, scalar: def}
	potential.adopt(p)

	return &ValidRegistration{Source: potential.source, Plugin: p}
}

func typeOf(v any) string {
	if v == nil {
		return "nil"
	}

	return fmt.Sprintf("%T", v)
}
