package state

import "time"

// Store persists the snapshot of a plugins manager between runs.
type Store interface {
	// Load retrieves the previously saved snapshot.
	// Returns nil if no snapshot exists (first run).
	Load() (*Snapshot, error)

	// Save persists the snapshot, the write is atomic.
	Save(s *Snapshot) error

	// Exists returns true if a saved snapshot exists.
	Exists() bool

	// Clear removes the saved snapshot.
	Clear() error
}

// Snapshot describes the plugins known to a manager at a point in time
type Snapshot struct {
	CreatedAt time.Time       `json:"created_at"`
	Plugins   []PluginState   `json:"plugins"`
	Invalid   []InvalidPlugin `json:"invalid,omitempty"`
	// GraphNodes are the names of the nodes in the plugins graph
	GraphNodes []string `json:"graph_nodes,omitempty"`
}

// PluginState is a single plugin in a Snapshot
type PluginState struct {
	SystemID        string `json:"system_id"`
	FriendlyName    string `json:"friendly_name"`
	AbbreviatedName string `json:"abbreviated_name"`
	RegistrarID     string `json:"registrar_id,omitempty"`
	Nature          string `json:"nature"`
	State           string `json:"state"`
	// Kind is set for function module plugins
	Kind string `json:"kind,omitempty"`
}

// InvalidPlugin is a source that could not become a plugin
type InvalidPlugin struct {
	SystemID     string   `json:"system_id"`
	FriendlyName string   `json:"friendly_name"`
	Diagnostics  []string `json:"diagnostics"`
}

// Plugin returns the state of the plugin with the abbreviated name
func (s *Snapshot) Plugin(abbreviatedName string) (PluginState, bool) {
	for _, p := range s.Plugins {
		if p.AbbreviatedName == abbreviatedName {
			return p, true
		}
	}

	return PluginState{}, false
}
