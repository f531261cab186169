package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nvandessel/narloop/internal/nar"
)

// WriteJSONL writes a snapshot as JSONL: the run on the first line, then
// one concept per line.
func WriteJSONL(w io.Writer, snap Snapshot) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	if err := enc.Encode(snap.Run); err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	for _, c := range snap.Concepts {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("write concept %s: %w", c.Term, err)
		}
	}
	return bw.Flush()
}

// ReadJSONL reads a snapshot written by WriteJSONL and validates it.
func ReadJSONL(r io.Reader) (Snapshot, error) {
	scanner := bufio.NewScanner(r)
	// Implication lists can make concept lines long
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		snap    Snapshot
		haveRun bool
	)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !haveRun {
			if err := json.Unmarshal(line, &snap.Run); err != nil {
				return Snapshot{}, fmt.Errorf("line %d: parse run: %w", lineNum, err)
			}
			haveRun = true
			continue
		}
		var c nar.ConceptInfo
		if err := json.Unmarshal(line, &c); err != nil {
			return Snapshot{}, fmt.Errorf("line %d: parse concept: %w", lineNum, err)
		}
		snap.Concepts = append(snap.Concepts, c)
	}
	if err := scanner.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("scanner error: %w", err)
	}
	if !haveRun {
		return Snapshot{}, fmt.Errorf("empty snapshot")
	}
	if issues := ValidateSnapshot(snap); len(issues) > 0 {
		return Snapshot{}, &InvalidSnapshotError{Issues: issues}
	}
	return snap, nil
}
