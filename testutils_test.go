package pluggable

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testPlugin implements every capability and counts the hook calls
type testPlugin struct {
	source       Source
	onActivate   func(ac *ActivateContext) (ActivateResult, error)
	onDeactivate func() error
	node         *GraphNode

	activations   int
	deactivations int
	executions    int
}

func newTestPlugin(name string) *testPlugin {
	return &testPlugin{
		source: Source{
			RegistrarID:     "test",
			SystemID:        "/test/" + name,
			FriendlyName:    name,
			AbbreviatedName: name,
			GraphNodeName:   name,
		},
	}
}

func (p *testPlugin) Nature() Nature       { return Nature{Identity: "test"} }
func (p *testPlugin) Source() PluginSource { return p.source }

func (p *testPlugin) Activate(ctx context.Context, ac *ActivateContext) (ActivateResult, error) {
	p.activations++

	if p.onActivate != nil {
		return p.onActivate(ac)
	}

	return ActivateResult{Registration: ac.Registration}, nil
}

func (p *testPlugin) Deactivate(ctx context.Context, dc *DeactivateContext) error {
	p.deactivations++

	if p.onDeactivate != nil {
		return p.onDeactivate()
	}

	return nil
}

func (p *testPlugin) Execute(ctx context.Context, pc *Context) (any, error) {
	p.executions++
	return p.source.FriendlyName + ":" + pc.Command.Name, nil
}

func (p *testPlugin) ActivateGraphNode(g *PluginsGraph) *GraphNode {
	p.node = g.AddNode(NewGraphNode(p.source.GraphNodeName, p))
	return p.node
}

func (p *testPlugin) DeactivateGraphNode(g *PluginsGraph) {
	g.Remove(p.node)
}

func (p *testPlugin) valid() *ValidRegistration {
	return &ValidRegistration{Source: p.source, Plugin: p}
}

// syncPlugin only has a synchronous action
type syncPlugin struct {
	source Source
}

func (p *syncPlugin) Nature() Nature       { return Nature{Identity: "test-sync"} }
func (p *syncPlugin) Source() PluginSource { return p.source }

func (p *syncPlugin) ExecuteSync(pc *Context) (any, error) {
	return "sync:" + pc.Command.Name, nil
}

// inertPlugin has no capabilities at all
type inertPlugin struct {
	source Source
}

func (p *inertPlugin) Nature() Nature       { return Nature{Identity: "test-inert"} }
func (p *inertPlugin) Source() PluginSource { return p.source }

func testSource(name string) Source {
	return Source{SystemID: "/test/" + name, FriendlyName: name, AbbreviatedName: name, GraphNodeName: name}
}

// testAcquirer returns fixed registrations
type testAcquirer struct {
	valid    []*ValidRegistration
	invalid  []*InvalidRegistration
	err      error
	acquired int
}

func (a *testAcquirer) Acquire(ctx context.Context) error {
	a.acquired++
	return a.err
}

func (a *testAcquirer) ValidInactivePlugins() []*ValidRegistration { return a.valid }
func (a *testAcquirer) InvalidPlugins() []*InvalidRegistration     { return a.invalid }

// testRegistrar is a registrar built from functions
type testRegistrar struct {
	id            string
	applicability func(src PluginSource) Applicability
	registration  func(ctx context.Context, src PluginSource) Registration
	calls         int
}

func (r *testRegistrar) ID() string { return r.id }

func (r *testRegistrar) Applicability(ctx context.Context, src PluginSource) Applicability {
	if r.applicability == nil {
		return Applicability{IsApplicable: true}
	}

	return r.applicability(src)
}

func (r *testRegistrar) Registration(ctx context.Context, src PluginSource, onInvalid OnInvalidFunc, opts *RegistrationOptions) Registration {
	r.calls++

	if r.registration != nil {
		return r.registration(ctx, src)
	}

	p := &inertPlugin{source: src.Identity()}
	return opts.guard(&ValidRegistration{Source: src, Plugin: p})
}

// writeFile creates a file with the given mode below dir
func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), os.ModePerm))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	require.NoError(t, os.Chmod(path, mode))

	return path
}
