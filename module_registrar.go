package pluggable

import (
	"context"
	"fmt"

	"github.com/jumppad-labs/pluggable/logger"
)

// ModuleRegistrarID is the id of the ModuleRegistrar
const ModuleRegistrarID = "module"

// ModuleRegistrar registers ModuleSource instances. The module is taken
// from the source entry point or imported through the loader, its metadata
// is extracted and the default export validated.
type ModuleRegistrar struct {
	loader *ModuleLoader
	logger logger.Logger
}

// NewModuleRegistrar creates a ModuleRegistrar that imports modules with
// loader
func NewModuleRegistrar(loader *ModuleLoader, l logger.Logger) *ModuleRegistrar {
	if l == nil {
		l = logger.Nop{}
	}

	return &ModuleRegistrar{loader: loader, logger: l}
}

// ID implements Registrar
func (r *ModuleRegistrar) ID() string {
	return ModuleRegistrarID
}

// Applicability implements Registrar
func (r *ModuleRegistrar) Applicability(_ context.Context, src PluginSource) Applicability {
	_, ok := src.(*ModuleSource)
	return Applicability{IsApplicable: ok}
}

// Registration implements Registrar
func (r *ModuleRegistrar) Registration(ctx context.Context, src PluginSource, onInvalid OnInvalidFunc, opts *RegistrationOptions) (reg Registration) {
	if onInvalid == nil {
		onInvalid = DefaultOnInvalid
	}

	defer func() {
		if rec := recover(); rec != nil {
			reg = onInvalid(src, NewInvalidRegistration(src, fmt.Sprintf("module registrar exception: %v", rec)))
		}
	}()

	ms, ok := src.(*ModuleSource)
	if !ok {
		return onInvalid(src, NewInvalidRegistration(src,
			fmt.Sprintf("module registrar is unable to register sources of type %T", src)))
	}

	m := ms.EntryPoint
	if m == nil {
		if ms.Location == "" {
			return onInvalid(src, NewInvalidRegistration(src, "module registrar error: no entry point or location for module"))
		}

		if r.loader == nil {
			return onInvalid(src, NewInvalidRegistration(src, "module registrar error: no module loader configured"))
		}

		var err error
		m, err = r.loader.Import(ctx, ms.Location)
		if err != nil {
			r.logger.Debug("Unable to import module", "location", ms.Location, "error", err)
			return onInvalid(src, NewInvalidRegistration(src, fmt.Sprintf("module registrar exception: %s", err)))
		}
	}

	md := ModuleMetadata(m)
	nature := opts.nature(moduleNature(md, NatureModule))
	source := withIdentity(ms, md.Source)

	if md.Plugin != nil {
		reg, err := md.Plugin(ctx, m, nature, r, opts)
		if err != nil {
			return onInvalid(source, NewInvalidRegistration(source, fmt.Sprintf("module registrar exception: %s", err)))
		}

		if reg == nil {
			return onInvalid(source, NewInvalidRegistration(source, "module registrar error: plugin export returned no registration"))
		}

		return r.finish(opts.guard(reg), onInvalid, opts)
	}

	var node *GraphNode
	if md.GraphNode != nil {
		node = md.GraphNode(md)
	}

	if node == nil {
		node = NewGraphNode(source.Identity().GraphNodeName, nil)
	}

	node = opts.graphNode(nature, source, node)

	potential := NewModulePlugin(nature, source, m, md, node)

	return r.finish(Validate(ctx, potential, opts), onInvalid, opts)
}

func (r *ModuleRegistrar) finish(reg Registration, onInvalid OnInvalidFunc, opts *RegistrationOptions) Registration {
	if inv, ok := reg.(*InvalidRegistration); ok {
		return onInvalid(inv.Source, inv)
	}

	return opts.transform(reg)
}

var _ Registrar = (*ModuleRegistrar)(nil)
