package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEntry is one line of audit.jsonl. It records that a tool ran, for
// which run, and how it ended. Narsese content never reaches it.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	Run        string            `json:"run,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends entries to audit.jsonl. Methods on a nil
// *AuditLogger do nothing, so an unopened log costs callers no checks.
type AuditLogger struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewAuditLogger opens dir/audit.jsonl for appending, creating dir.
func NewAuditLogger(dir string) (*AuditLogger, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("audit dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "audit.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}
	return &AuditLogger{f: f, enc: json.NewEncoder(f)}, nil
}

// Log writes entry. Encoding failures are dropped.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f != nil {
		_ = a.enc.Encode(entry)
	}
}

// Close is idempotent.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f, a.enc = nil, nil
	return err
}

type paramPolicy int

const (
	paramDropped paramPolicy = iota
	paramValue
	paramPresence
)

// auditParams says how each tool argument appears in the log. Counts are
// logged as is; anything that can carry Narsese or a user label is only
// marked present. Arguments missing here are left out.
var auditParams = map[string]paramPolicy{
	"count":      paramValue,
	"limit":      paramValue,
	"line_count": paramValue,
	"lines":      paramPresence,
	"term":       paramPresence,
	"label":      paramPresence,
	"export":     paramPresence,
}

// sanitizeToolParams applies auditParams and adds _param_count, the
// number of arguments the call carried.
func sanitizeToolParams(params map[string]any) map[string]string {
	if params == nil {
		return nil
	}
	out := map[string]string{"_param_count": fmt.Sprint(len(params))}
	for key, val := range params {
		switch auditParams[key] {
		case paramValue:
			out[key] = fmt.Sprint(val)
		case paramPresence:
			out[key] = "(set)"
		}
	}
	return out
}

func (s *Server) auditTool(tool string, start time.Time, err error, params map[string]string) {
	entry := AuditEntry{
		Timestamp:  start,
		Tool:       tool,
		Run:        s.nar.RunID(),
		DurationMs: time.Since(start).Milliseconds(),
		Status:     "success",
		Params:     params,
	}
	if err != nil {
		entry.Status, entry.Error = "error", err.Error()
	}
	s.auditLogger.Log(entry)
}
