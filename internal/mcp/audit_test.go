package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewAuditLogger_Unwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewAuditLogger(filepath.Join(blocker, "audit")); err == nil {
		t.Error("expected an error when the audit dir sits under a file")
	}
}

func TestAuditLogger_NilSafety(t *testing.T) {
	var a *AuditLogger
	a.Log(AuditEntry{Tool: "nar_input"})
	if err := a.Close(); err != nil {
		t.Errorf("Close on nil = %v", err)
	}
}

func TestAuditLogger_WritesEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")
	a, err := NewAuditLogger(dir)
	if err != nil {
		t.Fatal(err)
	}
	a.Log(AuditEntry{Tool: "nar_cycles", Status: "success"})
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	a.Log(AuditEntry{Tool: "after_close"})

	path := filepath.Join(dir, "audit.jsonl")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %o, want 0600", info.Mode().Perm())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 1 {
		t.Errorf("lines = %d, want 1", lines)
	}
}

func TestSanitizeToolParams(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   map[string]string
	}{
		{"nil", nil, nil},
		{
			"content is presence only",
			map[string]any{"lines": []string{"<secret --> plan>."}, "line_count": 1},
			map[string]string{"lines": "(set)", "line_count": "1", "_param_count": "2"},
		},
		{
			"safe values kept",
			map[string]any{"count": 10},
			map[string]string{"count": "10", "_param_count": "1"},
		},
		{
			"unknown dropped",
			map[string]any{"other": "x", "label": "mine"},
			map[string]string{"label": "(set)", "_param_count": "2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeToolParams(tt.params)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestAuditTool_RecordsCalls(t *testing.T) {
	server, _ := newTestServer(t, nil)
	dir := t.TempDir()
	server.auditLogger.Close()
	audit, err := NewAuditLogger(dir)
	if err != nil {
		t.Fatal(err)
	}
	server.auditLogger = audit

	ctx := context.Background()
	if _, _, err := server.handleNarCycles(ctx, nil, NarCyclesInput{Count: 2}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := server.handleNarCycles(ctx, nil, NarCyclesInput{Count: 0}); err == nil {
		t.Fatal("expected error for zero count")
	}
	server.auditLogger.Close()

	data, err := os.ReadFile(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("audit lines = %d, want 2", len(lines))
	}
	var ok, failed AuditEntry
	if err := json.Unmarshal([]byte(lines[0]), &ok); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &failed); err != nil {
		t.Fatal(err)
	}
	if ok.Tool != "nar_cycles" || ok.Status != "success" || ok.Params["count"] != "2" || ok.Run != server.NAR().RunID() {
		t.Errorf("success entry = %+v", ok)
	}
	if failed.Status != "error" || failed.Error == "" {
		t.Errorf("error entry = %+v", failed)
	}
}
