package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolateHome sets HOME to a temp directory to avoid touching real ~/.narloop/
// MUST be called for any test that opens stores or writes logs
func isolateHome(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(home, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", home)
	for _, key := range []string{"NARLOOP_LOG_LEVEL", "NARLOOP_LOG_DIR", "NARLOOP_STORE_BACKEND", "NARLOOP_STORE_PATH"} {
		t.Setenv(key, "")
	}
	return home
}

// execute runs the root command with args and stdin, returning stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestNewRootCmd(t *testing.T) {
	rootCmd := newRootCmd()
	want := map[string]bool{"version": false, "run": false, "mcp-server": false, "snapshot": false, "decisions": false, "config": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"json", "config"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	isolateHome(t)

	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "narloop version "+version) {
		t.Errorf("output = %q", out)
	}

	out, err = execute(t, "", "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got["version"] != version {
		t.Errorf("version = %q", got["version"])
	}
}

func TestConfigCmd(t *testing.T) {
	home := isolateHome(t)

	out, err := execute(t, "", "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"concepts_max:", "decision_threshold:", "backend: sqlite"} {
		if !strings.Contains(out, key) {
			t.Errorf("config show missing %q", key)
		}
	}

	out, err = execute(t, "", "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".narloop", "config.yaml"); strings.TrimSpace(out) != want {
		t.Errorf("path = %q, want %q", out, want)
	}

	bad := filepath.Join(home, "bad.yaml")
	if err := os.WriteFile(bad, []byte("engine:\n  max_sequence_len: 99\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "", "config", "show", "--config", bad); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("invalid config accepted: %v", err)
	}
}
