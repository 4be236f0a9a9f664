package pluggable

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// MaxRedirectDepth is the maximum number of alternate registrars followed
// when routing a single source
const MaxRedirectDepth = 32

// Applicability is the answer of a registrar when asked if it can register
// a source.
type Applicability struct {
	IsApplicable bool
	// RedirectSource replaces the source passed to the next registrar
	RedirectSource PluginSource
	// AlternateRegistrar is the registrar that should handle the source
	AlternateRegistrar Registrar
}

// OnInvalidFunc decides the final shape of an invalid registration,
// suggested may be nil.
type OnInvalidFunc func(src PluginSource, suggested *InvalidRegistration) Registration

// DefaultOnInvalid returns the suggested registration or a generic invalid
// registration when there is no suggestion.
func DefaultOnInvalid(src PluginSource, suggested *InvalidRegistration) Registration {
	if suggested != nil {
		return suggested
	}

	return NewInvalidRegistration(src, fmt.Sprintf("no registrar is applicable for %s", src.Identity().SystemID))
}

// Guard lets a caller require additional properties of a plugin beyond the
// minimum Plugin contract.
type Guard interface {
	Allow(p Plugin) bool
	FailureDiagnostic(p Plugin) string
}

// GuardFunc adapts a function returning a failure message to a Guard, an
// empty message allows the plugin.
type GuardFunc func(p Plugin) string

// Allow implements Guard
func (g GuardFunc) Allow(p Plugin) bool { return g(p) == "" }

// FailureDiagnostic implements Guard
func (g GuardFunc) FailureDiagnostic(p Plugin) string { return g(p) }

// RegistrationOptions apply uniformly to every registrar and are passed
// unchanged through redirects.
type RegistrationOptions struct {
	// Nature overrides the default nature of a plugin
	Nature func(n Nature) Nature
	// Transform is applied to every valid registration
	Transform func(vr *ValidRegistration) Registration
	// Guard is applied to every constructed plugin
	Guard Guard
	// GraphNode overrides the graph node of a plugin
	GraphNode func(n Nature, src PluginSource, suggested *GraphNode) *GraphNode
}

func (o *RegistrationOptions) nature(n Nature) Nature {
	if o == nil || o.Nature == nil {
		return n
	}

	return o.Nature(n)
}

func (o *RegistrationOptions) graphNode(n Nature, src PluginSource, suggested *GraphNode) *GraphNode {
	if o == nil || o.GraphNode == nil {
		return suggested
	}

	return o.GraphNode(n, src, suggested)
}

func (o *RegistrationOptions) transform(reg Registration) Registration {
	if o == nil || o.Transform == nil {
		return reg
	}

	if vr, ok := reg.(*ValidRegistration); ok {
		return o.Transform(vr)
	}

	return reg
}

func (o *RegistrationOptions) guard(reg Registration) Registration {
	if o == nil || o.Guard == nil {
		return reg
	}

	vr, ok := reg.(*ValidRegistration)
	if !ok || o.Guard.Allow(vr.Plugin) {
		return reg
	}

	return NewInvalidRegistration(vr.Source, fmt.Sprintf("guard failure: %s", o.Guard.FailureDiagnostic(vr.Plugin)))
}

// Registrar turns plugin sources into registrations.
type Registrar interface {
	// ID uniquely identifies the registrar, it is used to detect redirect
	// cycles
	ID() string
	// Applicability must not have side effects
	Applicability(ctx context.Context, src PluginSource) Applicability
	Registration(ctx context.Context, src PluginSource, onInvalid OnInvalidFunc, opts *RegistrationOptions) Registration
}

type chainKey struct{}

// redirectChain returns the ids of the registrars already visited while
// routing the current source
func redirectChain(ctx context.Context) []string {
	if c, ok := ctx.Value(chainKey{}).([]string); ok {
		return c
	}

	return nil
}

// Register routes src through r and any alternate registrars r redirects to
// and returns the single terminal registration. Redirect chains that revisit
// a registrar or exceed MaxRedirectDepth produce an invalid registration.
func Register(ctx context.Context, r Registrar, src PluginSource, onInvalid OnInvalidFunc, opts *RegistrationOptions) Registration {
	if onInvalid == nil {
		onInvalid = DefaultOnInvalid
	}

	chain := slices.Clone(redirectChain(ctx))

	for {
		if slices.Contains(chain, r.ID()) {
			return NewInvalidRegistration(src,
				fmt.Sprintf("registrar redirect cycle: %s -> %s", strings.Join(chain, " -> "), r.ID()))
		}

		if len(chain) >= MaxRedirectDepth {
			return NewInvalidRegistration(src,
				fmt.Sprintf("registrar redirect chain exceeds %d registrars: %s", MaxRedirectDepth, strings.Join(chain, " -> ")))
		}

		chain = append(chain, r.ID())

		app := r.Applicability(ctx, src)
		if app.IsApplicable && app.AlternateRegistrar != nil {
			if app.RedirectSource != nil {
				src = app.RedirectSource
			}

			r = app.AlternateRegistrar
			continue
		}

		return r.Registration(context.WithValue(ctx, chainKey{}, chain), src, onInvalid, opts)
	}
}

// RegisterFirst registers src with the first applicable registrar in rs,
// when none is applicable onInvalid decides the result.
func RegisterFirst(ctx context.Context, rs []Registrar, src PluginSource, onInvalid OnInvalidFunc, opts *RegistrationOptions) Registration {
	if onInvalid == nil {
		onInvalid = DefaultOnInvalid
	}

	for _, r := range rs {
		if r.Applicability(ctx, src).IsApplicable {
			return Register(ctx, r, src, onInvalid, opts)
		}
	}

	ids := []string{}
	for _, r := range rs {
		ids = append(ids, r.ID())
	}

	return onInvalid(src, NewInvalidRegistration(src,
		fmt.Sprintf("no applicable registrar for %s, tried [%s]", src.Identity().SystemID, strings.Join(ids, ", "))))
}
