package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jumppad-labs/pluggable"
	"github.com/jumppad-labs/pluggable/errors"
	"github.com/jumppad-labs/pluggable/logger"
	"github.com/jumppad-labs/pluggable/lua"
)

// host is the executive passed to every plugin
type host struct {
	config  *pluggable.RoutesConfig
	logger  logger.Logger
	manager *pluggable.PluginsManager
	lua     *lua.Importer
	stdout  io.Writer
}

// newHost loads the routes config at path and wires the registrars,
// acquirers and the plugins manager
func newHost(path, logLevel string, stdout io.Writer) (*host, []pluggable.PluginsAcquirer, error) {
	cfg, err := pluggable.LoadRoutesConfig(path)
	if err != nil {
		return nil, nil, err
	}

	if logLevel == "" {
		logLevel = cfg.Options.LogLevel
	}

	l := logger.NewLevelLogger(logLevel)

	h := &host{
		config: cfg,
		logger: l,
		lua:    lua.NewImporter(l),
		stdout: stdout,
	}

	loader := pluggable.NewModuleLoader(
		pluggable.NewMemoryModuleCache(),
		pluggable.NewRemoteImporter(h.lua, pluggable.NewGoGetter(), cfg.Options.ModuleCache),
		l,
	)

	modules := pluggable.NewModuleRegistrar(loader, l)
	shell := pluggable.NewShellFileRegistrar(&pluggable.ShellOptions{
		EnvVarsPrefix: cfg.Options.EnvVarsPrefix,
		EnvFile:       cfg.Options.EnvFile,
		ArgTemplate:   cfg.Options.ArgTemplate,
		Stdout:        stdout,
		Stderr:        os.Stderr,
		Logger:        l,
	})

	registrars := map[string]pluggable.Registrar{
		"extension": pluggable.NewExtensionRegistrar(modules, shell),
		"shell":     shell,
		"lua":       pluggable.NewExtensionRegistrar(modules, nil),
	}

	routes, err := cfg.DiscoveryRoutes(registrars, "extension")
	if err != nil {
		return nil, nil, err
	}

	h.manager = pluggable.NewPluginsManager(h, &pluggable.ManagerOptions{Logger: l})

	return h, []pluggable.PluginsAcquirer{pluggable.NewFileSystemRoutesPlugins(routes, l)}, nil
}

// activate activates every discovered plugin and prints the invalid ones
func (h *host) activate(ctx context.Context, acquirers []pluggable.PluginsAcquirer) error {
	err := h.manager.Activate(ctx, acquirers...)

	for _, inv := range h.manager.InvalidPlugins() {
		id := inv.Source.Identity()
		fmt.Fprintln(os.Stderr, errors.NewDiagnosticError(id.FriendlyName, id.SystemID, inv.Diagnostics()...).Error())
	}

	return err
}

func (h *host) close(ctx context.Context) {
	if err := h.manager.Deactivate(ctx); err != nil {
		h.logger.Error("Unable to deactivate plugins", "error", err)
	}

	h.lua.Close()
}

// printResult writes the value of a plugin result, shell plugins have
// already written their output
func (h *host) printResult(r pluggable.Result) {
	name := r.Plugin.Source().Identity().FriendlyName

	if r.Err != nil {
		fmt.Fprintf(h.stdout, "%s: error: %s\n", name, r.Err)
		return
	}

	switch v := r.Value.(type) {
	case *pluggable.ShellResult:
		if v.Result != nil && !v.Result.Success() {
			fmt.Fprintf(h.stdout, "%s: exit code %d\n", name, v.Result.ExitCode)
		}
	case *pluggable.FunctionResult:
		values, err := v.Values()
		for _, val := range values {
			fmt.Fprintf(h.stdout, "%s: %v\n", name, val)
		}

		if err != nil {
			fmt.Fprintf(h.stdout, "%s: error: %s\n", name, err)
		}
	case nil:
	default:
		fmt.Fprintf(h.stdout, "%s: %v\n", name, v)
	}
}
