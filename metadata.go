package pluggable

import "context"

// ActivateFunc is an activation hook exported by a module.
type ActivateFunc func(ctx context.Context, ac *ActivateContext) (ActivateResult, error)

// ActivateSyncFunc is a synchronous activation hook exported by a module.
type ActivateSyncFunc func(ac *ActivateContext) (ActivateResult, error)

// DeactivateFunc is a deactivation hook exported by a module.
type DeactivateFunc func(ctx context.Context, dc *DeactivateContext) error

// DynamicPluginSupplier is exported by modules that construct their own
// registration instead of relying on the default export.
type DynamicPluginSupplier func(ctx context.Context, m *Module, nature Nature, r Registrar, opts *RegistrationOptions) (Registration, error)

// GraphNodeFactory builds a custom graph node for a module plugin.
type GraphNodeFactory func(md Metadata) *GraphNode

// ScalarGuard validates the default export of a scalar module.
type ScalarGuard func(v any) bool

// Metadata is the plugin information a module declares through its exports.
type Metadata struct {
	// Source overrides the identity fields of the plugin source
	Source       Source
	Nature       *Nature
	Activate     ActivateFunc
	ActivateSync ActivateSyncFunc
	Deactivate   DeactivateFunc
	Plugin       DynamicPluginSupplier
	GraphNode    GraphNodeFactory
	ScalarGuard  ScalarGuard
	// Untyped holds every export verbatim, including the ones recognized
	// above
	Untyped map[string]any
}

// ModuleMetadata extracts the metadata of m. Typed metadata takes
// precedence, remaining fields are matched by export name. Exports with
// an unexpected type are ignored but kept in Untyped.
func ModuleMetadata(m *Module) Metadata {
	md := m.Metadata
	md.Untyped = map[string]any{}
	for k, v := range m.Metadata.Untyped {
		md.Untyped[k] = v
	}

	setString := func(field *string, v any) {
		if s, ok := v.(string); ok && *field == "" {
			*field = s
		}
	}

	for name, value := range m.Exports {
		md.Untyped[name] = value

		switch name {
		case "registrarID":
			setString(&md.Source.RegistrarID, value)
		case "systemID":
			setString(&md.Source.SystemID, value)
		case "friendlyName":
			setString(&md.Source.FriendlyName, value)
		case "abbreviatedName":
			setString(&md.Source.AbbreviatedName, value)
		case "graphNodeName":
			setString(&md.Source.GraphNodeName, value)
		case "nature":
			if md.Nature == nil {
				md.Nature = natureFromExport(value)
			}
		case "activate":
			if f, ok := value.(ActivateFunc); ok && md.Activate == nil {
				md.Activate = f
			}
		case "activateSync":
			if f, ok := value.(ActivateSyncFunc); ok && md.ActivateSync == nil {
				md.ActivateSync = f
			}
		case "deactivate":
			if f, ok := value.(DeactivateFunc); ok && md.Deactivate == nil {
				md.Deactivate = f
			}
		case "plugin":
			if f, ok := value.(DynamicPluginSupplier); ok && md.Plugin == nil {
				md.Plugin = f
			}
		case "graphNode", "constructGraphNode":
			if f, ok := value.(GraphNodeFactory); ok && md.GraphNode == nil {
				md.GraphNode = f
			}
		case "scalarGuard":
			if f, ok := value.(ScalarGuard); ok && md.ScalarGuard == nil {
				md.ScalarGuard = f
			}
		}
	}

	return md
}

func natureFromExport(v any) *Nature {
	switch n := v.(type) {
	case string:
		if n != "" {
			return &Nature{Identity: n}
		}
	case Nature:
		return &n
	case *Nature:
		return n
	case map[string]any:
		if id, ok := n["identity"].(string); ok && id != "" {
			return &Nature{Identity: id}
		}
	}

	return nil
}

// moduleNature returns the default nature of a module plugin
func moduleNature(md Metadata, identity string) Nature {
	n := Nature{Identity: identity}
	if md.Nature != nil && md.Nature.Identity != "" {
		n.Identity = md.Nature.Identity
	}

	n.Metadata = &md

	return n
}
