package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/narloop/internal/store"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect and manage saved reasoner snapshots",
		Long: `List, show, export, import and delete snapshots saved by
'narloop run --snapshot' or the nar_snapshot MCP tool.

Examples:
  narloop snapshot list
  narloop snapshot show <run-id>
  narloop snapshot export <run-id> > run.jsonl
  narloop snapshot import run.jsonl`,
	}

	cmd.AddCommand(
		newSnapshotListCmd(),
		newSnapshotShowCmd(),
		newSnapshotExportCmd(),
		newSnapshotImportCmd(),
		newSnapshotDeleteCmd(),
	)

	return cmd
}

// withStore loads the config, opens the store and runs fn against it.
func withStore(cmd *cobra.Command, fn func(s store.SnapshotStore) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func newSnapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			return withStore(cmd, func(s store.SnapshotStore) error {
				runs, err := s.ListRuns(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list runs: %w", err)
				}
				out := cmd.OutOrStdout()
				if jsonOut {
					if runs == nil {
						runs = []store.Run{}
					}
					return writeJSON(out, map[string]any{"runs": runs})
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No snapshots found.")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN\tCREATED\tTIME\tCONCEPTS\tLABEL")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Time, r.ConceptCount, r.Label)
				}
				return tw.Flush()
			})
		},
	}
}

func newSnapshotShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a saved snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")
			return withStore(cmd, func(s store.SnapshotStore) error {
				snap, err := s.GetSnapshot(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to load snapshot: %w", err)
				}
				if limit > 0 && len(snap.Concepts) > limit {
					snap.Concepts = snap.Concepts[:limit]
				}
				out := cmd.OutOrStdout()
				if jsonOut {
					return writeJSON(out, snap)
				}
				r := snap.Run
				fmt.Fprintf(out, "Run:       %s\n", r.ID)
				if r.Label != "" {
					fmt.Fprintf(out, "Label:     %s\n", r.Label)
				}
				fmt.Fprintf(out, "Created:   %s\n", r.CreatedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Time:      %d\n", r.Time)
				fmt.Fprintf(out, "Threshold: %.4f\n", r.Threshold)
				fmt.Fprintf(out, "Concepts:  %d (%d saved)\n", r.ConceptCount, len(snap.Concepts))
				fmt.Fprintf(out, "Stats:     ticks=%d derivations=%d executions=%d\n", r.Stats.Ticks, r.Stats.Derivations, r.Stats.Executions)
				fmt.Fprintln(out)
				for _, c := range snap.Concepts {
					fmt.Fprintf(out, "  %s priority=%.4f usefulness=%.4f\n", c.Term, c.Priority, c.Usefulness)
					for _, imp := range c.Implications {
						fmt.Fprintf(out, "    %s %s\n", imp.Term, imp.Truth)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("limit", 0, "Show at most this many concepts (0 shows all)")
	return cmd
}

func newSnapshotExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a snapshot as JSONL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			return withStore(cmd, func(s store.SnapshotStore) error {
				snap, err := s.GetSnapshot(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to load snapshot: %w", err)
				}
				w := cmd.OutOrStdout()
				if output != "" {
					f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
					if err != nil {
						return fmt.Errorf("failed to create export file: %w", err)
					}
					defer f.Close()
					w = f
				}
				return store.WriteJSONL(w, *snap)
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newSnapshotImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSONL snapshot, replacing any run with the same id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer f.Close()

			snap, err := store.ReadJSONL(f)
			if err != nil {
				return fmt.Errorf("failed to read snapshot: %w", err)
			}
			return withStore(cmd, func(s store.SnapshotStore) error {
				if err := s.SaveSnapshot(cmd.Context(), snap); err != nil {
					return fmt.Errorf("failed to save snapshot: %w", err)
				}
				out := cmd.OutOrStdout()
				if jsonOut {
					return writeJSON(out, map[string]any{"run": snap.Run.ID, "concepts": len(snap.Concepts)})
				}
				fmt.Fprintf(out, "Imported run %s (%d concepts)\n", snap.Run.ID, len(snap.Concepts))
				return nil
			})
		},
	}
}

func newSnapshotDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a saved snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s store.SnapshotStore) error {
				err := s.DeleteRun(cmd.Context(), args[0])
				if errors.Is(err, store.ErrRunNotFound) {
					return fmt.Errorf("no snapshot for run %s", args[0])
				}
				if err != nil {
					return fmt.Errorf("failed to delete snapshot: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
				return nil
			})
		},
	}
}
