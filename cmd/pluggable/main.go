package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jumppad-labs/pluggable"
	"github.com/jumppad-labs/pluggable/state"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pluggable",
		Short: "Discover, activate and run plugins",
		Long: `pluggable discovers plugins in the routes of a config file, activates
them and runs commands on every active plugin.

Executable files become shell plugins, Lua files become module plugins.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "pluggable.hcl", "Routes config file (.hcl, .yaml or .yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level, overrides the level in the config file")

	rootCmd.AddCommand(newRunCmd(), newListCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var (
		args     map[string]string
		dryRun   bool
		stateDir string
	)

	cmd := &cobra.Command{
		Use:   "run [command]",
		Short: "Run a command on every active plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			ctx := cmd.Context()

			h, acquirers, err := newHost(configFile, logLevel, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer h.close(ctx)

			if err := h.activate(ctx, acquirers); err != nil {
				h.logger.Warn("Some plugins could not be activated", "error", err)
			}

			results := h.manager.Execute(ctx, pluggable.Command{Name: positional[0], DryRun: dryRun}, args, &pluggable.ExecuteOptions{
				OnActivity: pluggable.ConsoleActivityReporter(cmd.OutOrStdout()),
				OnUnhandledPlugin: func(pc *pluggable.Context) {
					h.logger.Debug("Plugin does not handle commands", "plugin", pc.Plugin.Source().Identity().FriendlyName)
				},
			})

			for _, r := range results {
				h.printResult(r)
			}

			if stateDir != "" {
				if err := h.manager.SaveSnapshot(state.NewFileStore(stateDir)); err != nil {
					return fmt.Errorf("unable to save snapshot: %w", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringToStringVarP(&args, "arg", "a", map[string]string{}, "Argument passed to plugins as name=value, can be repeated")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what shell plugins would run without running them")
	cmd.Flags().StringVar(&stateDir, "state-dir", "", "Directory the plugins snapshot is written to")

	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the active plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			h, acquirers, err := newHost(configFile, logLevel, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer h.close(ctx)

			if err := h.activate(ctx, acquirers); err != nil {
				h.logger.Warn("Some plugins could not be activated", "error", err)
			}

			s := h.manager.Snapshot()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tNATURE\tKIND\tSTATE")
			for _, p := range s.Plugins {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.FriendlyName, p.Nature, p.Kind, p.State)
			}

			return w.Flush()
		},
	}
}
