package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func listRuns(t *testing.T) []map[string]any {
	t.Helper()
	out, err := execute(t, "", "snapshot", "list", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Runs []map[string]any `json:"runs"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	return got.Runs
}

func TestSnapshotLifecycle(t *testing.T) {
	home := isolateHome(t)

	if runs := listRuns(t); len(runs) != 0 {
		t.Fatalf("fresh store has %d runs", len(runs))
	}

	if _, err := execute(t, operantScript, "run", "--op", "^go", "--snapshot", "operant"); err != nil {
		t.Fatal(err)
	}
	runs := listRuns(t)
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	id, _ := runs[0]["id"].(string)
	if id == "" || runs[0]["label"] != "operant" {
		t.Fatalf("run = %v", runs[0])
	}

	out, err := execute(t, "", "snapshot", "show", id)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<(a &/ ^go) =/> b>") {
		t.Errorf("show lacks the learned implication:\n%s", out)
	}

	export := filepath.Join(home, "run.jsonl")
	if _, err := execute(t, "", "snapshot", "export", id, "-o", export); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "", "snapshot", "delete", id); err != nil {
		t.Fatal(err)
	}
	if runs := listRuns(t); len(runs) != 0 {
		t.Fatalf("runs after delete = %d", len(runs))
	}
	if _, err := execute(t, "", "snapshot", "delete", id); err == nil || !strings.Contains(err.Error(), "no snapshot") {
		t.Errorf("second delete: %v", err)
	}

	out, err = execute(t, "", "snapshot", "import", export)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Imported run "+id) {
		t.Errorf("import output = %q", out)
	}
	if runs := listRuns(t); len(runs) != 1 || runs[0]["id"] != id {
		t.Errorf("runs after import = %v", runs)
	}
}

func TestSnapshotShow_NotFound(t *testing.T) {
	isolateHome(t)
	if _, err := execute(t, "", "snapshot", "show", "missing"); err == nil {
		t.Error("showing a missing run must fail")
	}
}
