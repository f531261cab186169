// Package mcp provides an MCP (Model Context Protocol) server that exposes
// a running reasoner as tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/narloop/internal/constants"
	"github.com/nvandessel/narloop/internal/logging"
	"github.com/nvandessel/narloop/internal/nar"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/ratelimit"
	"github.com/nvandessel/narloop/internal/store"
)

// Server wraps the MCP SDK server around one reasoner.
type Server struct {
	server       *sdk.Server
	nar          *nar.NAR
	store        store.SnapshotStore
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	maxCycles    int
	exportDir    string
	logger       *slog.Logger

	execMu   sync.Mutex
	executed []string
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "narloop")
	Version string // Server version

	NAR        nar.Config
	Operations []string // operations registered on the reasoner, e.g. "^left"

	// Store receives nar_snapshot writes. The server closes it.
	Store store.SnapshotStore

	RateLimits       map[string]ratelimit.Limit // nil uses ratelimit.DefaultLimits
	MaxCyclesPerCall int
	AuditDir         string // empty disables the audit log
	ExportDir        string // nar_snapshot exports land here; empty disables them

	Logger         *slog.Logger
	DecisionLogger *logging.DecisionLogger
}

// NewServer creates an MCP server with a fresh reasoner.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limits := cfg.RateLimits
	if limits == nil {
		limits = ratelimit.DefaultLimits()
	}
	maxCycles := cfg.MaxCyclesPerCall
	if maxCycles <= 0 {
		maxCycles = constants.MaxCyclesPerCall
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		nar:          nar.New(cfg.NAR, nar.WithLogger(logger), nar.WithDecisionLogger(cfg.DecisionLogger)),
		store:        cfg.Store,
		toolLimiters: ratelimit.NewToolLimiters(limits),
		maxCycles:    maxCycles,
		exportDir:    cfg.ExportDir,
		logger:       logger,
	}
	if cfg.AuditDir != "" {
		audit, err := NewAuditLogger(cfg.AuditDir)
		if err != nil {
			logger.Warn("audit log disabled", "error", err)
		}
		s.auditLogger = audit
	}

	for _, name := range cfg.Operations {
		if _, err := s.nar.AddOperation(name, s.record); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to register operation: %w", err)
		}
	}

	if err := s.registerTools(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	if err := s.registerResources(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

	return s, nil
}

// NAR returns the served reasoner.
func (s *Server) NAR() *nar.NAR { return s.nar }

// record is the action of every served operation: it queues the execution
// for the response of the tool call that caused it.
func (s *Server) record(_ context.Context, op narsese.Term) error {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	s.executed = append(s.executed, op.String())
	return nil
}

// drainExecuted returns and clears the queued executions.
func (s *Server) drainExecuted() []string {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	out := s.executed
	s.executed = nil
	return out
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server started", "run", s.nar.RunID())
	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.Close()

	return err
}

// Close closes the store and the audit log.
func (s *Server) Close() error {
	auditErr := s.auditLogger.Close()
	if err := s.store.Close(); err != nil {
		return err
	}
	return auditErr
}
