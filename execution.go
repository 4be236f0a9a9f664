package pluggable

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"
)

// Command is the command a host asks its plugins to execute
type Command struct {
	Name   string `json:"name"`
	DryRun bool   `json:"dry_run"`
}

// Context is passed to every plugin action
type Context struct {
	// Container is the host executive
	Container any
	Plugin    Plugin
	Command   Command
	Arguments map[string]string
	// RunID identifies the Execute call the context was created for
	RunID      string
	OnActivity ActivityReporter
}

// Report sends an activity message to the reporter of the context
func (pc *Context) Report(format string, args ...any) {
	if pc.OnActivity == nil {
		return
	}

	pc.OnActivity(Activity{Message: fmt.Sprintf(format, args...)}, ActivityOptions{DryRun: pc.Command.DryRun})
}

// Result is the outcome of executing a single plugin
type Result struct {
	Plugin  Plugin
	Context *Context
	// Value is the value returned by the plugin action
	Value any
	Err   error
}

// ExecuteOptions change how Execute dispatches
type ExecuteOptions struct {
	// OnActivity receives activities, defaults to DefaultActivityReporter
	OnActivity ActivityReporter
	// OnUnhandledPlugin is called for plugins without an action capability
	OnUnhandledPlugin func(pc *Context)
}

// Execute runs cmd on every active plugin in activation order. Plugins
// activated while Execute runs are not part of the call. Async actions are
// preferred over sync actions, plugins with neither are reported through
// OnUnhandledPlugin.
func (m *PluginsManager) Execute(ctx context.Context, cmd Command, args map[string]string, opts *ExecuteOptions) []Result {
	if opts == nil {
		opts = &ExecuteOptions{}
	}

	onActivity := opts.OnActivity
	if onActivity == nil {
		onActivity = DefaultActivityReporter
	}

	runID := uuid.NewString()
	plugins := m.Plugins()
	results := []Result{}

	m.logger.Debug("Executing command", "command", cmd.Name, "plugins", len(plugins), "run_id", runID)

	for _, p := range plugins {
		pc := &Context{
			Container:  m.executive,
			Plugin:     p,
			Command:    cmd,
			Arguments:  maps.Clone(args),
			RunID:      runID,
			OnActivity: onActivity,
		}

		switch a := p.(type) {
		case Action:
			v, err := safeExecute(func() (any, error) { return a.Execute(ctx, pc) })
			results = append(results, Result{Plugin: p, Context: pc, Value: v, Err: err})
		case ActionSync:
			v, err := safeExecute(func() (any, error) { return a.ExecuteSync(pc) })
			results = append(results, Result{Plugin: p, Context: pc, Value: v, Err: err})
		default:
			m.logger.Debug("Plugin has no action", "plugin", p.Source().Identity().FriendlyName)
			if opts.OnUnhandledPlugin != nil {
				opts.OnUnhandledPlugin(pc)
			}
		}
	}

	return results
}

// safeExecute converts a panicking action into an error result
func safeExecute(fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin action panicked: %v", r)
		}
	}()

	return fn()
}
