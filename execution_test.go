package pluggable

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type panicPlugin struct {
	source Source
}

func (p *panicPlugin) Nature() Nature       { return Nature{Identity: "test-panic"} }
func (p *panicPlugin) Source() PluginSource { return p.source }

func (p *panicPlugin) Execute(ctx context.Context, pc *Context) (any, error) {
	panic("out of range")
}

// activatingPlugin activates another plugin while its action runs
type activatingPlugin struct {
	*testPlugin
	manager *PluginsManager
	other   *testPlugin
}

func (p *activatingPlugin) Execute(ctx context.Context, pc *Context) (any, error) {
	if _, ok := p.manager.ActivatePlugin(ctx, p.other.valid()); !ok {
		return nil, fmt.Errorf("unable to activate %s", p.other.source.FriendlyName)
	}

	return p.testPlugin.Execute(ctx, pc)
}

func activeManager(t *testing.T, plugins ...Plugin) *PluginsManager {
	m, _ := setupManager(t)

	vrs := []*ValidRegistration{}
	for _, p := range plugins {
		vrs = append(vrs, &ValidRegistration{Source: p.Source(), Plugin: p})
	}

	require.NoError(t, m.Activate(context.Background(), &testAcquirer{valid: vrs}))

	return m
}

func TestExecuteRunsActionsOfActivePlugins(t *testing.T) {
	async := newTestPlugin("async")
	sync := &syncPlugin{source: testSource("sync")}
	inert := &inertPlugin{source: testSource("inert")}

	m := activeManager(t, async, sync, inert)

	unhandled := []*Context{}
	results := m.Execute(context.Background(), Command{Name: "build"}, map[string]string{"env": "dev"}, &ExecuteOptions{
		OnUnhandledPlugin: func(pc *Context) { unhandled = append(unhandled, pc) },
	})

	require.Len(t, results, 2)
	require.Equal(t, "async:build", results[0].Value)
	require.Equal(t, "sync:build", results[1].Value)
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)

	require.Len(t, unhandled, 1)
	require.Same(t, inert, unhandled[0].Plugin)
}

func TestExecuteSharesRunIDAcrossPlugins(t *testing.T) {
	m := activeManager(t, newTestPlugin("one"), newTestPlugin("two"))

	results := m.Execute(context.Background(), Command{Name: "run"}, nil, nil)
	require.Len(t, results, 2)

	require.NotEmpty(t, results[0].Context.RunID)
	require.Equal(t, results[0].Context.RunID, results[1].Context.RunID)

	next := m.Execute(context.Background(), Command{Name: "run"}, nil, nil)
	require.NotEqual(t, results[0].Context.RunID, next[0].Context.RunID)
}

func TestExecuteGivesEachPluginItsOwnArguments(t *testing.T) {
	m := activeManager(t, newTestPlugin("one"), newTestPlugin("two"))

	args := map[string]string{"name": "world"}
	results := m.Execute(context.Background(), Command{Name: "run"}, args, nil)

	results[0].Context.Arguments["name"] = "changed"

	require.Equal(t, "world", results[1].Context.Arguments["name"])
	require.Equal(t, "world", args["name"])
	require.Equal(t, "executive", results[0].Context.Container)
}

func TestExecuteConvertsPanicsToErrors(t *testing.T) {
	p := &panicPlugin{source: testSource("panic")}
	one := newTestPlugin("one")

	m := activeManager(t, p, one)

	results := m.Execute(context.Background(), Command{Name: "run"}, nil, nil)
	require.Len(t, results, 2)

	require.ErrorContains(t, results[0].Err, "plugin action panicked: out of range")
	require.Equal(t, "one:run", results[1].Value)
}

func TestExecuteReportsActivity(t *testing.T) {
	reg := Validate(context.Background(), potentialPlugin(HandlerFunc(func(pc *Context) (any, error) {
		pc.Report("would delete %s", "build")
		return nil, nil
	})), nil)

	m := activeManager(t, reg.(*ValidRegistration).Plugin)

	out := bytes.NewBuffer(nil)
	m.Execute(context.Background(), Command{Name: "clean", DryRun: true}, nil, &ExecuteOptions{
		OnActivity: ConsoleActivityReporter(out),
	})

	require.Contains(t, out.String(), "[dry-run]")
	require.Contains(t, out.String(), "would delete build")
}

func TestExecuteWithoutActivePluginsReturnsNoResults(t *testing.T) {
	m, _ := setupManager(t)

	results := m.Execute(context.Background(), Command{Name: "run"}, nil, nil)
	require.Empty(t, results)
}

func TestExecuteIgnoresPluginsActivatedDuringTheRun(t *testing.T) {
	late := newTestPlugin("late")
	p := &activatingPlugin{testPlugin: newTestPlugin("early"), other: late}

	m := activeManager(t, p)
	p.manager = m

	results := m.Execute(context.Background(), Command{Name: "run"}, nil, nil)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Equal(t, "early:run", results[0].Value)
	require.Equal(t, 0, late.executions)
	require.Equal(t, Active, m.State(late))

	results = m.Execute(context.Background(), Command{Name: "run"}, nil, nil)
	require.Len(t, results, 2)
	require.Equal(t, 1, late.executions)
}
