package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/narloop/internal/config"
	"github.com/nvandessel/narloop/internal/logging"
	"github.com/nvandessel/narloop/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve a reasoner over the Model Context Protocol (stdio)",
		Long: `Start an MCP server on stdin/stdout exposing one reasoner as tools:
nar_input, nar_cycles, nar_concepts, nar_concept and nar_snapshot.

Examples:
  narloop mcp-server --op ^left --op ^right`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, _ := cmd.Flags().GetStringSlice("op")
			noAudit, _ := cmd.Flags().GetBool("no-audit")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}

			// stdout carries the protocol, so logs go to stderr only.
			logger := newLogger(cfg, cmd.ErrOrStderr())
			dl := logging.NewDecisionLogger(cfg.Logging.Dir, cfg.Logging.Level)
			defer dl.Close()

			exportDir, _ := cmd.Flags().GetString("export-dir")
			if exportDir == "" {
				exportDir = filepath.Join(config.DataDir(), "exports")
			}

			auditDir := cfg.Logging.Dir
			if noAudit {
				auditDir = ""
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:             "narloop",
				Version:          version,
				NAR:              cfg.NAR(),
				Operations:       ops,
				Store:            s,
				RateLimits:       cfg.RateLimits(),
				MaxCyclesPerCall: cfg.MCP.MaxCyclesPerCall,
				AuditDir:         auditDir,
				ExportDir:        exportDir,
				Logger:           logger,
				DecisionLogger:   dl,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringSlice("op", nil, "Register an operation (repeatable)")
	cmd.Flags().Bool("no-audit", false, "Disable the tool call audit log")
	cmd.Flags().String("export-dir", "", "Directory nar_snapshot exports are confined to (default ~/.narloop/exports)")

	return cmd
}
