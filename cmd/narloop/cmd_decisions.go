package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nvandessel/narloop/internal/logging"
)

func newDecisionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Show the tail of the decision trace",
		Long: `Show recent entries of ~/.narloop/decisions.jsonl.

The trace is written when logging.level is "debug" or "trace" and
records every executed operation with its desire and tick.

Examples:
  narloop decisions --tail 20
  narloop decisions --run 5b7c... --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			tail, _ := cmd.Flags().GetInt("tail")
			run, _ := cmd.Flags().GetString("run")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			path := filepath.Join(cfg.Logging.Dir, logging.DecisionsFile)
			limit := tail
			if run != "" {
				limit = 0
			}
			entries, err := logging.ReadDecisions(path, limit)
			if errors.Is(err, fs.ErrNotExist) {
				entries, err = nil, nil
			}
			if err != nil {
				return err
			}
			if run != "" {
				entries = filterRun(entries, run)
				if tail > 0 && len(entries) > tail {
					entries = entries[len(entries)-tail:]
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				for _, e := range entries {
					if err := enc.Encode(e); err != nil {
						return err
					}
				}
				return nil
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No decisions recorded. Set logging.level to debug to enable the trace.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintln(out, formatDecision(e))
			}
			return nil
		},
	}

	cmd.Flags().Int("tail", 50, "Number of most recent entries to show (0 shows all)")
	cmd.Flags().String("run", "", "Only show entries of this run")

	return cmd
}

func filterRun(entries []map[string]any, run string) []map[string]any {
	var out []map[string]any
	for _, e := range entries {
		if id, _ := e["run"].(string); id == run {
			out = append(out, e)
		}
	}
	return out
}

// formatDecision renders an entry as "time event key=value ...", with the
// remaining keys sorted.
func formatDecision(e map[string]any) string {
	line := fmt.Sprintf("%v %v", e["time"], e["event"])
	keys := make([]string, 0, len(e))
	for k := range e {
		if k == "time" || k == "event" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		line += fmt.Sprintf(" %s=%v", k, e[k])
	}
	return line
}
