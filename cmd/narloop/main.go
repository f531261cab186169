package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/narloop/internal/config"
	"github.com/nvandessel/narloop/internal/logging"
	"github.com/nvandessel/narloop/internal/store"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "narloop",
		Short: "narloop - a non-axiomatic reasoner with a bounded reasoning cycle",
		Long: `narloop runs a non-axiomatic reasoning system over Narsese input.

It learns temporal and procedural implications from observed events,
pursues goals by executing registered operations, and keeps memory
bounded by priority-based forgetting.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.narloop/config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newMCPServerCmd(),
		newSnapshotCmd(),
		newDecisionsCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

// loadConfig loads the configuration named by --config, or the default
// locations, and validates it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the operational logger for cfg, writing to w.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, w)
}

// openStore opens the snapshot store selected by cfg.
func openStore(cfg *config.Config) (store.SnapshotStore, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewInMemoryStore(), nil
	default:
		s, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot store: %w", err)
		}
		return s, nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
