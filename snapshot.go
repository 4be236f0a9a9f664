package pluggable

import (
	"time"

	"github.com/jumppad-labs/pluggable/state"
)

// Snapshot describes the plugins of the manager, it can be persisted with a
// state.Store
func (m *PluginsManager) Snapshot() *state.Snapshot {
	s := &state.Snapshot{
		CreatedAt: time.Now(),
		Plugins:   []state.PluginState{},
	}

	for _, p := range m.Plugins() {
		id := p.Source().Identity()

		ps := state.PluginState{
			SystemID:        id.SystemID,
			FriendlyName:    id.FriendlyName,
			AbbreviatedName: id.AbbreviatedName,
			RegistrarID:     id.RegistrarID,
			Nature:          p.Nature().Identity,
			State:           m.State(p).String(),
		}

		if fp, ok := p.(*FunctionModulePlugin); ok {
			ps.Kind = fp.Kind().String()
		}

		s.Plugins = append(s.Plugins, ps)
	}

	for _, inv := range m.InvalidPlugins() {
		ip := state.InvalidPlugin{Diagnostics: inv.Diagnostics()}
		if inv.Source != nil {
			ip.SystemID = inv.Source.Identity().SystemID
			ip.FriendlyName = inv.Source.Identity().FriendlyName
		}

		s.Invalid = append(s.Invalid, ip)
	}

	for _, n := range m.graph.Nodes() {
		s.GraphNodes = append(s.GraphNodes, n.Name())
	}

	return s
}

// SaveSnapshot persists the snapshot of the manager to store
func (m *PluginsManager) SaveSnapshot(store state.Store) error {
	return store.Save(m.Snapshot())
}
