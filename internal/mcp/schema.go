package mcp

import (
	"github.com/nvandessel/narloop/internal/cycle"
	"github.com/nvandessel/narloop/internal/nar"
)

// NarInputInput defines the input for nar_input tool.
type NarInputInput struct {
	Lines []string `json:"lines" jsonschema:"Narsese sentences added in order, one tick each (e.g. '<a --> b>. :|:' or 'b! :|:')"`
}

// NarInputOutput defines the output for nar_input tool.
type NarInputOutput struct {
	Accepted int      `json:"accepted" jsonschema:"Number of sentences added"`
	Time     int64    `json:"time" jsonschema:"Reasoner time after the input"`
	Executed []string `json:"executed,omitempty" jsonschema:"Operations executed while processing the input, in order"`
}

// NarCyclesInput defines the input for nar_cycles tool.
type NarCyclesInput struct {
	Count int `json:"count" jsonschema:"Number of reasoning cycles to run"`
}

// NarCyclesOutput defines the output for nar_cycles tool.
type NarCyclesOutput struct {
	Time     int64       `json:"time" jsonschema:"Reasoner time after the cycles"`
	Executed []string    `json:"executed,omitempty" jsonschema:"Operations executed during the cycles, in order"`
	Stats    cycle.Stats `json:"stats" jsonschema:"Run statistics"`
}

// NarConceptsInput defines the input for nar_concepts tool.
type NarConceptsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of concepts (default: 20)"`
}

// NarConceptsOutput defines the output for nar_concepts tool.
type NarConceptsOutput struct {
	Concepts []nar.ConceptInfo `json:"concepts" jsonschema:"Concepts, most useful first"`
	Count    int               `json:"count" jsonschema:"Number of concepts returned"`
	Total    int               `json:"total" jsonschema:"Number of concepts in memory"`
}

// NarConceptInput defines the input for nar_concept tool.
type NarConceptInput struct {
	Term string `json:"term" jsonschema:"Narsese term of the concept (e.g. '<a --> b>')"`
}

// NarConceptOutput defines the output for nar_concept tool.
type NarConceptOutput struct {
	Found   bool             `json:"found" jsonschema:"Whether the concept is in memory"`
	Concept *nar.ConceptInfo `json:"concept,omitempty" jsonschema:"The concept, when found"`
}

// NarSnapshotInput defines the input for nar_snapshot tool.
type NarSnapshotInput struct {
	Label string `json:"label,omitempty" jsonschema:"Free-form label stored with the snapshot"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of concepts saved (default: 500)"`

	Export string `json:"export,omitempty" jsonschema:"Also write the snapshot as JSONL to this file name, relative to the export directory"`
}

// NarSnapshotOutput defines the output for nar_snapshot tool.
type NarSnapshotOutput struct {
	RunID    string `json:"run_id" jsonschema:"Run id the snapshot is stored under"`
	Time     int64  `json:"time" jsonschema:"Reasoner time of the snapshot"`
	Concepts int    `json:"concepts" jsonschema:"Number of concepts saved"`
	Exported string `json:"exported,omitempty" jsonschema:"Redacted path of the JSONL export, when requested"`
	Message  string `json:"message" jsonschema:"Human-readable result message"`
}
