package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DecisionsFile is the trace file name inside the logging directory.
const DecisionsFile = "decisions.jsonl"

// DecisionLogger appends one JSON object per executed operation. A nil
// *DecisionLogger accepts every call and writes nothing.
type DecisionLogger struct {
	mu   sync.Mutex
	f    *os.File
	enc  *json.Encoder
	path string
	run  string
}

// NewDecisionLogger opens dir/decisions.jsonl when level is debug or
// trace. At info, or when the file cannot be opened, it returns nil.
func NewDecisionLogger(dir, level string) *DecisionLogger {
	if ParseLevel(level) >= slog.LevelInfo {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	path := filepath.Join(dir, DecisionsFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &DecisionLogger{f: f, enc: json.NewEncoder(f), path: path}
}

// SetRun tags later entries with a run id.
func (dl *DecisionLogger) SetRun(run string) {
	if dl == nil {
		return
	}
	dl.mu.Lock()
	dl.run = run
	dl.mu.Unlock()
}

// Path is "" for a nil logger.
func (dl *DecisionLogger) Path() string {
	if dl == nil {
		return ""
	}
	return dl.path
}

// Log writes a copy of fields stamped with the wall-clock "time" and the
// current "run".
func (dl *DecisionLogger) Log(fields map[string]any) {
	if dl == nil {
		return
	}
	entry := maps.Clone(fields)
	if entry == nil {
		entry = make(map[string]any, 2)
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.f == nil {
		return
	}
	if dl.run != "" {
		entry["run"] = dl.run
	}
	_ = dl.enc.Encode(entry)
}

// Close releases the file. Later Log calls are dropped.
func (dl *DecisionLogger) Close() {
	if dl == nil {
		return
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.f != nil {
		dl.f.Close()
		dl.f, dl.enc = nil, nil
	}
}

// ReadDecisions returns the newest limit entries of the trace at path in
// file order, or every entry when limit <= 0. Lines that are not JSON
// objects are skipped.
func ReadDecisions(path string, limit int) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open decision log: %w", err)
	}
	defer f.Close()

	var entries []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry map[string]any
		if json.Unmarshal(sc.Bytes(), &entry) != nil || entry == nil {
			continue
		}
		entries = append(entries, entry)
		if limit > 0 && len(entries) > 2*limit {
			entries = append(entries[:0], entries[len(entries)-limit:]...)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read decision log: %w", err)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}
