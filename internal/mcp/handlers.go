package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/narloop/internal/constants"
	"github.com/nvandessel/narloop/internal/pathutil"
	"github.com/nvandessel/narloop/internal/ratelimit"
	"github.com/nvandessel/narloop/internal/sanitize"
	"github.com/nvandessel/narloop/internal/store"
)

const topConceptsURI = "narloop://concepts/top"

// registerTools registers all narloop MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "nar_input",
		Description: "Add Narsese beliefs and goals to the reasoner; each sentence runs one reasoning cycle",
	}, s.handleNarInput)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "nar_cycles",
		Description: "Run reasoning cycles and report the operations executed",
	}, s.handleNarCycles)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "nar_concepts",
		Description: "List the most useful concepts with their beliefs and learned implications",
	}, s.handleNarConcepts)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "nar_concept",
		Description: "Look up the concept of one Narsese term",
	}, s.handleNarConcept)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "nar_snapshot",
		Description: "Persist a snapshot of the reasoner's concepts under its run id",
	}, s.handleNarSnapshot)

	return nil
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() error {
	s.server.AddResource(&sdk.Resource{
		URI:         topConceptsURI,
		Name:        "narloop-top-concepts",
		Description: "The reasoner's most useful concepts and what it has learned about them.",
		MIMEType:    "text/markdown",
	}, s.handleTopConceptsResource)

	return nil
}

// handleTopConceptsResource renders the top concepts as markdown.
func (s *Server) handleTopConceptsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	concepts := s.nar.Concepts(constants.DefaultTopConcepts)

	var sb strings.Builder
	sb.WriteString("# Top Concepts\n\n")
	if len(concepts) == 0 {
		sb.WriteString("Memory is empty. Add beliefs and goals with `nar_input`.\n")
	}
	for _, c := range concepts {
		fmt.Fprintf(&sb, "- `%s` priority %.3f, usefulness %.3f", c.Term, c.Priority, c.Usefulness)
		if c.Belief != nil {
			fmt.Fprintf(&sb, ", belief %%%.2f;%.2f%%", c.Belief.Frequency, c.Belief.Confidence)
		}
		sb.WriteString("\n")
		for _, imp := range c.Implications {
			fmt.Fprintf(&sb, "  - `%s` %%%.2f;%.2f%%\n", imp.Term, imp.Truth.Frequency, imp.Truth.Confidence)
		}
	}
	fmt.Fprintf(&sb, "\n---\n*time %d, %d concepts in memory*\n", s.nar.Time(), s.nar.ConceptCount())

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      topConceptsURI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

func (s *Server) handleNarInput(ctx context.Context, req *sdk.CallToolRequest, args NarInputInput) (_ *sdk.CallToolResult, _ NarInputOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("nar_input", start, retErr, sanitizeToolParams(map[string]any{
			"lines": args.Lines, "line_count": len(args.Lines),
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "nar_input"); err != nil {
		return nil, NarInputOutput{}, err
	}
	if len(args.Lines) == 0 {
		return nil, NarInputOutput{}, fmt.Errorf("'lines' must hold at least one sentence")
	}

	out := NarInputOutput{}
	for i, line := range args.Lines {
		line = sanitize.Line(line)
		if line == "" {
			continue
		}
		if err := s.nar.AddInputNarsese(ctx, line); err != nil {
			s.drainExecuted()
			return nil, NarInputOutput{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		out.Accepted++
	}
	out.Time = s.nar.Time()
	out.Executed = s.drainExecuted()
	return nil, out, nil
}

func (s *Server) handleNarCycles(ctx context.Context, req *sdk.CallToolRequest, args NarCyclesInput) (_ *sdk.CallToolResult, _ NarCyclesOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("nar_cycles", start, retErr, sanitizeToolParams(map[string]any{
			"count": args.Count,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "nar_cycles"); err != nil {
		return nil, NarCyclesOutput{}, err
	}
	if args.Count <= 0 || args.Count > s.maxCycles {
		return nil, NarCyclesOutput{}, fmt.Errorf("'count' must be between 1 and %d, got %d", s.maxCycles, args.Count)
	}

	if err := s.nar.Cycles(ctx, args.Count); err != nil {
		s.drainExecuted()
		return nil, NarCyclesOutput{}, fmt.Errorf("run cycles: %w", err)
	}
	return nil, NarCyclesOutput{
		Time:     s.nar.Time(),
		Executed: s.drainExecuted(),
		Stats:    s.nar.Stats(),
	}, nil
}

func (s *Server) handleNarConcepts(ctx context.Context, req *sdk.CallToolRequest, args NarConceptsInput) (_ *sdk.CallToolResult, _ NarConceptsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("nar_concepts", start, retErr, sanitizeToolParams(map[string]any{
			"limit": args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "nar_concepts"); err != nil {
		return nil, NarConceptsOutput{}, err
	}
	if args.Limit < 0 || args.Limit > constants.MaxTopConcepts {
		return nil, NarConceptsOutput{}, fmt.Errorf("'limit' must be between 0 and %d, got %d", constants.MaxTopConcepts, args.Limit)
	}

	concepts := s.nar.Concepts(args.Limit)
	return nil, NarConceptsOutput{
		Concepts: concepts,
		Count:    len(concepts),
		Total:    s.nar.ConceptCount(),
	}, nil
}

func (s *Server) handleNarConcept(ctx context.Context, req *sdk.CallToolRequest, args NarConceptInput) (_ *sdk.CallToolResult, _ NarConceptOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("nar_concept", start, retErr, sanitizeToolParams(map[string]any{
			"term": args.Term,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "nar_concept"); err != nil {
		return nil, NarConceptOutput{}, err
	}
	if strings.TrimSpace(args.Term) == "" {
		return nil, NarConceptOutput{}, fmt.Errorf("'term' is required")
	}

	info, found, err := s.nar.Concept(args.Term)
	if err != nil {
		return nil, NarConceptOutput{}, fmt.Errorf("parse term: %w", err)
	}
	if !found {
		return nil, NarConceptOutput{Found: false}, nil
	}
	return nil, NarConceptOutput{Found: true, Concept: &info}, nil
}

func (s *Server) handleNarSnapshot(ctx context.Context, req *sdk.CallToolRequest, args NarSnapshotInput) (_ *sdk.CallToolResult, _ NarSnapshotOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("nar_snapshot", start, retErr, sanitizeToolParams(map[string]any{
			"label": args.Label, "limit": args.Limit, "export": args.Export,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "nar_snapshot"); err != nil {
		return nil, NarSnapshotOutput{}, err
	}
	limit := args.Limit
	if limit <= 0 || limit > constants.MaxTopConcepts {
		limit = constants.MaxTopConcepts
	}

	var exportPath string
	if args.Export != "" {
		if s.exportDir == "" {
			return nil, NarSnapshotOutput{}, fmt.Errorf("export is disabled on this server")
		}
		path, err := pathutil.ResolveUnder(s.exportDir, args.Export)
		if err != nil {
			return nil, NarSnapshotOutput{}, fmt.Errorf("invalid export: %w", err)
		}
		exportPath = path
	}

	snap := store.Capture(s.nar, limit, sanitize.Label(args.Label))
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, NarSnapshotOutput{}, fmt.Errorf("save snapshot: %w", err)
	}
	s.logger.Info("snapshot saved", "run", snap.Run.ID, "concepts", len(snap.Concepts))

	out := NarSnapshotOutput{
		RunID:    snap.Run.ID,
		Time:     snap.Run.Time,
		Concepts: len(snap.Concepts),
		Message:  fmt.Sprintf("Saved %d concepts at time %d", len(snap.Concepts), snap.Run.Time),
	}
	if exportPath != "" {
		if err := writeExport(exportPath, snap); err != nil {
			return nil, NarSnapshotOutput{}, err
		}
		out.Exported = pathutil.RedactPath(exportPath)
		out.Message += ", exported to " + out.Exported
	}
	return nil, out, nil
}

// writeExport writes snap as JSONL to path, creating missing directories.
func writeExport(path string, snap store.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create export %s: %w", pathutil.RedactPath(path), err)
	}
	if err := store.WriteJSONL(f, snap); err != nil {
		f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	return f.Close()
}
