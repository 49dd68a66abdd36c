// Command schelling runs the Schelling segregation model: single runs,
// parameter sweeps, and a live observation server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/segregation/internal/config"
	"github.com/talgya/segregation/internal/logging"
	"github.com/talgya/segregation/internal/persistence"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "schelling",
		Short: "Schelling segregation model",
		Long: `schelling simulates residential segregation on a grid.

Two kinds of agents move to eligible empty cells while unhappy with the
share of like neighbors around them. Runs can be exported as CSV, stored in
SQLite, charted, swept over parameters, or observed live over HTTP.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text, json, auto")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newBatchCmd(),
		newServeCmd(),
		newRunsCmd(),
		newPresetsCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "schelling version %s\n", version)
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List model presets and their settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			for _, name := range config.PresetNames() {
				m, err := config.Preset(name)
				if err != nil {
					return err
				}
				if err := enc.Encode(m); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// setup loads the configuration, applies the global flags, and installs
// the process logger.
func setup(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Logging.Format = v
	}

	slog.SetDefault(logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr))
	if path != "" {
		slog.Debug("config loaded", "path", path)
	}
	return cfg, nil
}

// applyModelFlags overrides the model settings with --preset and --seed.
func applyModelFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("preset") {
		name, _ := cmd.Flags().GetString("preset")
		if err := cfg.Model.ApplyPreset(name); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("seed") {
		cfg.Run.Seed, _ = cmd.Flags().GetUint64("seed")
	}
	if cmd.Flags().Changed("db") {
		cfg.Storage.DBPath, _ = cmd.Flags().GetString("db")
	}
	return cfg.Validate()
}

// openStore opens the run database, or returns nil when path is empty.
func openStore(path string) (*persistence.DB, error) {
	if path == "" {
		return nil, nil
	}
	db, err := persistence.Open(path)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "path", path)
	return db, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
