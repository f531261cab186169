package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/narloop/internal/constants"
	"github.com/nvandessel/narloop/internal/logging"
	"github.com/nvandessel/narloop/internal/nar"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/sanitize"
	"github.com/nvandessel/narloop/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Feed a Narsese script to a fresh reasoner",
		Long: `Run a Narsese script, one item per line, from a file or stdin.

Each input line is processed by one reasoning tick. Besides Narsese
sentences a script may contain:

  N             run N idle ticks
  *concepts [N] print the N most useful concepts
  *stats        print the cycle statistics
  *babbling P   set the motor babbling chance
  // ...        comment

Executed operations are printed as they happen.

Examples:
  narloop run --op ^go script.nal
  echo "<a --> b>." | narloop run --cycles 10 --snapshot warmup`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			ops, _ := cmd.Flags().GetStringSlice("op")
			extra, _ := cmd.Flags().GetInt("cycles")
			label, _ := cmd.Flags().GetString("snapshot")
			snapshot := cmd.Flags().Changed("snapshot")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open script: %w", err)
				}
				defer f.Close()
				in = f
			}

			logger := newLogger(cfg, cmd.ErrOrStderr())
			dl := logging.NewDecisionLogger(cfg.Logging.Dir, cfg.Logging.Level)
			defer dl.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
			defer stop()

			n := nar.New(cfg.NAR(), nar.WithLogger(logger), nar.WithDecisionLogger(dl))
			r := &scriptRunner{nar: n, out: cmd.OutOrStdout(), json: jsonOut}
			for _, op := range ops {
				if _, err := n.AddOperation(op, r.record); err != nil {
					return fmt.Errorf("failed to register operation %s: %w", op, err)
				}
			}

			if err := r.run(ctx, in); err != nil {
				return err
			}
			if extra > 0 {
				if err := n.Cycles(ctx, extra); err != nil {
					return err
				}
				r.flush()
			}

			if snapshot {
				s, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer s.Close()
				snap := store.Capture(n, constants.MaxTopConcepts, sanitize.Label(label))
				if err := s.SaveSnapshot(ctx, snap); err != nil {
					return fmt.Errorf("failed to save snapshot: %w", err)
				}
				logger.Info("snapshot saved", "run", snap.Run.ID, "concepts", len(snap.Concepts))
			}

			return r.summary()
		},
	}

	cmd.Flags().StringSlice("op", nil, "Register an operation (repeatable), e.g. --op ^left --op ^right")
	cmd.Flags().Int("cycles", 0, "Idle ticks to run after the script")
	cmd.Flags().String("snapshot", "", "Save a snapshot with this label after the run")

	return cmd
}

// scriptRunner feeds script lines to one reasoner and reports executed
// operations.
type scriptRunner struct {
	nar  *nar.NAR
	out  io.Writer
	json bool

	pending []string
}

// record is the action of every registered operation. It runs under the
// reasoner's lock, so reporting is deferred to flush.
func (r *scriptRunner) record(_ context.Context, op narsese.Term) error {
	r.pending = append(r.pending, op.String())
	return nil
}

func (r *scriptRunner) flush() {
	now := r.nar.Time() - 1
	for _, op := range r.pending {
		if r.json {
			json.NewEncoder(r.out).Encode(map[string]any{"executed": op, "time": now})
		} else {
			fmt.Fprintf(r.out, "executed %s at %d\n", op, now)
		}
	}
	r.pending = nil
}

func (r *scriptRunner) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := r.line(ctx, scanner.Text()); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		r.flush()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	return nil
}

func (r *scriptRunner) line(ctx context.Context, line string) error {
	line = sanitize.Line(line)
	if line == "" || strings.HasPrefix(line, "//") {
		return nil
	}
	if n, err := strconv.Atoi(line); err == nil {
		if n < 0 {
			return fmt.Errorf("negative cycle count %d", n)
		}
		return r.nar.Cycles(ctx, n)
	}
	if !strings.HasPrefix(line, "*") {
		return r.nar.AddInputNarsese(ctx, line)
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "*concepts":
		limit := constants.DefaultTopConcepts
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid concept limit %q", fields[1])
			}
			limit = n
		}
		return r.printConcepts(r.nar.Concepts(limit))
	case "*stats":
		return r.printStats()
	case "*babbling":
		if len(fields) != 2 {
			return fmt.Errorf("usage: *babbling P")
		}
		p, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || p < 0 || p > 1 {
			return fmt.Errorf("invalid babbling chance %q", fields[1])
		}
		r.nar.SetMotorBabbling(p)
		return nil
	default:
		return fmt.Errorf("unknown directive %s", fields[0])
	}
}

func (r *scriptRunner) printConcepts(concepts []nar.ConceptInfo) error {
	if r.json {
		return json.NewEncoder(r.out).Encode(map[string]any{"concepts": concepts})
	}
	for _, c := range concepts {
		fmt.Fprintf(r.out, "%s priority=%.4f usefulness=%.4f", c.Term, c.Priority, c.Usefulness)
		if c.Belief != nil {
			fmt.Fprintf(r.out, " belief=%s", c.Belief)
		}
		fmt.Fprintln(r.out)
		for _, imp := range c.Implications {
			fmt.Fprintf(r.out, "  %s %s\n", imp.Term, imp.Truth)
		}
	}
	return nil
}

func (r *scriptRunner) printStats() error {
	stats := r.nar.Stats()
	if r.json {
		return json.NewEncoder(r.out).Encode(map[string]any{"time": r.nar.Time(), "stats": stats})
	}
	fmt.Fprintf(r.out, "time=%d ticks=%d derivations=%d executions=%d concepts=%d\n",
		r.nar.Time(), stats.Ticks, stats.Derivations, stats.Executions, r.nar.ConceptCount())
	return nil
}

// summary prints the final state line.
func (r *scriptRunner) summary() error {
	if r.json {
		return json.NewEncoder(r.out).Encode(map[string]any{
			"run":      r.nar.RunID(),
			"time":     r.nar.Time(),
			"concepts": r.nar.ConceptCount(),
			"stats":    r.nar.Stats(),
		})
	}
	fmt.Fprintf(r.out, "run %s finished at time %d with %d concepts\n", r.nar.RunID(), r.nar.Time(), r.nar.ConceptCount())
	return nil
}
