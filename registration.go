package pluggable

import (
	"fmt"
	"strings"
)

// Registration is the result of a registrar attempting to turn a source
// into a plugin, it is either a *ValidRegistration or an
// *InvalidRegistration.
type Registration interface {
	RegistrationSource() PluginSource
	registration()
}

// ValidRegistration wraps a constructed plugin.
type ValidRegistration struct {
	Source PluginSource
	Plugin Plugin
}

// RegistrationSource implements Registration
func (v *ValidRegistration) RegistrationSource() PluginSource { return v.Source }

func (v *ValidRegistration) registration() {}

// Issue is a set of diagnostics about a single source.
type Issue struct {
	Source      PluginSource
	Diagnostics []string
}

// InvalidRegistration carries the diagnostics explaining why a source
// could not become a plugin.
type InvalidRegistration struct {
	Source PluginSource
	Issues []Issue
}

// NewInvalidRegistration creates an InvalidRegistration with a single issue
func NewInvalidRegistration(src PluginSource, diagnostics ...string) *InvalidRegistration {
	return &InvalidRegistration{
		Source: src,
		Issues: []Issue{{Source: src, Diagnostics: diagnostics}},
	}
}

// RegistrationSource implements Registration
func (i *InvalidRegistration) RegistrationSource() PluginSource { return i.Source }

func (i *InvalidRegistration) registration() {}

// Diagnostics returns all diagnostics of all issues
func (i *InvalidRegistration) Diagnostics() []string {
	diags := []string{}
	for _, is := range i.Issues {
		diags = append(diags, is.Diagnostics...)
	}

	return diags
}

// Error allows an InvalidRegistration to be returned as an error
func (i *InvalidRegistration) Error() string {
	name := ""
	if i.Source != nil {
		name = i.Source.Identity().FriendlyName
	}

	return fmt.Sprintf("invalid plugin %s: %s", name, strings.Join(i.Diagnostics(), "; "))
}

// IsValid returns true when reg is a *ValidRegistration
func IsValid(reg Registration) bool {
	_, ok := reg.(*ValidRegistration)
	return ok
}
