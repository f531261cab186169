// Package config provides unified configuration loading for narloop.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/narloop/internal/constants"
	"github.com/nvandessel/narloop/internal/cycle"
	"github.com/nvandessel/narloop/internal/decision"
	"github.com/nvandessel/narloop/internal/memory"
	"github.com/nvandessel/narloop/internal/nar"
	"github.com/nvandessel/narloop/internal/ratelimit"
	"github.com/nvandessel/narloop/internal/truth"
)

// Config contains all narloop configuration settings.
type Config struct {
	// Engine contains the reasoner parameters.
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store contains settings for snapshot persistence.
	Store StoreConfig `json:"store" yaml:"store"`

	// MCP contains settings for the MCP server.
	MCP MCPConfig `json:"mcp" yaml:"mcp"`
}

// EngineConfig holds every tunable parameter of the reasoning cycle.
type EngineConfig struct {
	ConceptsMax            int `json:"concepts_max" yaml:"concepts_max"`
	CyclingBeliefEventsMax int `json:"cycling_belief_events_max" yaml:"cycling_belief_events_max"`
	CyclingGoalEventsMax   int `json:"cycling_goal_events_max" yaml:"cycling_goal_events_max"`
	BeliefEventSelections  int `json:"belief_event_selections" yaml:"belief_event_selections"`
	GoalEventSelections    int `json:"goal_event_selections" yaml:"goal_event_selections"`
	FIFOSize               int `json:"fifo_size" yaml:"fifo_size"`
	MaxSequenceLen         int `json:"max_sequence_len" yaml:"max_sequence_len"`
	TableSize              int `json:"table_size" yaml:"table_size"`
	OperationsMax          int `json:"operations_max" yaml:"operations_max"`
	CompoundTermSizeMax    int `json:"compound_term_size_max" yaml:"compound_term_size_max"`

	EventDurability   float64 `json:"event_durability" yaml:"event_durability"`
	ConceptDurability float64 `json:"concept_durability" yaml:"concept_durability"`

	MinConfidence          float64 `json:"min_confidence" yaml:"min_confidence"`
	ConditionThreshold     float64 `json:"condition_threshold" yaml:"condition_threshold"`
	DecisionThreshold      float64 `json:"decision_threshold" yaml:"decision_threshold"`
	AnticipationThreshold  float64 `json:"anticipation_threshold" yaml:"anticipation_threshold"`
	AnticipationConfidence float64 `json:"anticipation_confidence" yaml:"anticipation_confidence"`

	BeliefConceptMatchTarget   int64   `json:"belief_concept_match_target" yaml:"belief_concept_match_target"`
	ConceptThresholdAdaptation float64 `json:"concept_threshold_adaptation" yaml:"concept_threshold_adaptation"`
	EventBeliefDistance        int64   `json:"event_belief_distance" yaml:"event_belief_distance"`

	TruthProjectionDecay   float64 `json:"truth_projection_decay" yaml:"truth_projection_decay"`
	TruthEvidentialHorizon float64 `json:"truth_evidential_horizon" yaml:"truth_evidential_horizon"`

	NopSubgoaling       bool               `json:"nop_subgoaling" yaml:"nop_subgoaling"`
	MotorBabblingChance float64            `json:"motor_babbling_chance" yaml:"motor_babbling_chance"`
	RefractoryPeriod    int64              `json:"refractory_period" yaml:"refractory_period"`
	DecisionTieBreak    constants.TieBreak `json:"decision_tie_break" yaml:"decision_tie_break"`
	InferenceWorkers    int                `json:"inference_workers" yaml:"inference_workers"`
	Seed                int64              `json:"seed" yaml:"seed"`
}

// LoggingConfig configures narloop's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to <dir>/decisions.jsonl.
	// "trace" additionally logs every rule table derivation.
	Level string `json:"level" yaml:"level"`

	// Format selects the stderr handler: "text" (default) or "json".
	Format string `json:"format" yaml:"format"`

	// Dir is where decisions.jsonl is written. Supports ${VAR} syntax.
	Dir string `json:"dir" yaml:"dir"`
}

// StoreConfig configures snapshot persistence.
type StoreConfig struct {
	// Backend is "sqlite" (default) or "memory".
	Backend string `json:"backend" yaml:"backend"`

	// Path is the SQLite database file. Supports ${VAR} syntax.
	Path string `json:"path" yaml:"path"`
}

// MCPConfig configures the MCP server.
type MCPConfig struct {
	// RateLimits overrides the per-tool limits by tool name.
	RateLimits map[string]ratelimit.Limit `json:"rate_limits,omitempty" yaml:"rate_limits,omitempty"`

	// MaxCyclesPerCall caps the ticks one nar_cycles call may run.
	MaxCyclesPerCall int `json:"max_cycles_per_call" yaml:"max_cycles_per_call"`
}

// DataDir returns ~/.narloop, or .narloop when the home directory is unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".narloop"
	}
	return filepath.Join(home, ".narloop")
}

// Default returns a Config with the standard engine parameters.
func Default() *Config {
	dir := DataDir()
	return &Config{
		Engine: EngineConfig{
			ConceptsMax:                constants.DefaultConceptsMax,
			CyclingBeliefEventsMax:     constants.DefaultCyclingBeliefEventsMax,
			CyclingGoalEventsMax:       constants.DefaultCyclingGoalEventsMax,
			BeliefEventSelections:      constants.DefaultBeliefEventSelections,
			GoalEventSelections:        constants.DefaultGoalEventSelections,
			FIFOSize:                   constants.DefaultFIFOSize,
			MaxSequenceLen:             constants.DefaultMaxSequenceLen,
			TableSize:                  constants.DefaultTableSize,
			OperationsMax:              constants.DefaultOperationsMax,
			CompoundTermSizeMax:        constants.DefaultCompoundTermSizeMax,
			EventDurability:            constants.DefaultEventDurability,
			ConceptDurability:          constants.DefaultConceptDurability,
			MinConfidence:              constants.DefaultMinConfidence,
			ConditionThreshold:         constants.DefaultConditionThreshold,
			DecisionThreshold:          constants.DefaultDecisionThreshold,
			AnticipationThreshold:      constants.DefaultAnticipationThreshold,
			AnticipationConfidence:     constants.DefaultAnticipationConfidence,
			BeliefConceptMatchTarget:   constants.DefaultBeliefConceptMatchTarget,
			ConceptThresholdAdaptation: constants.DefaultConceptThresholdAdaptation,
			EventBeliefDistance:        constants.DefaultEventBeliefDistance,
			TruthProjectionDecay:       constants.DefaultTruthProjectionDecay,
			TruthEvidentialHorizon:     constants.DefaultTruthEvidentialHorizon,
			NopSubgoaling:              constants.DefaultNopSubgoaling,
			MotorBabblingChance:        constants.DefaultMotorBabblingChance,
			RefractoryPeriod:           constants.DefaultRefractoryPeriod,
			DecisionTieBreak:           constants.TieBreakFirst,
			InferenceWorkers:           constants.DefaultInferenceWorkers,
			Seed:                       constants.DefaultSeed,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Dir:    dir,
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    filepath.Join(dir, "narloop.db"),
		},
		MCP: MCPConfig{
			MaxCyclesPerCall: constants.MaxCyclesPerCall,
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.narloop/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	configPath := filepath.Join(DataDir(), "config.yaml")
	if _, statErr := os.Stat(configPath); statErr == nil {
		fileConfig, loadErr := LoadFromFile(configPath)
		if loadErr != nil {
			return nil, fmt.Errorf("loading config file: %w", loadErr)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys missing
// from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Logging.Dir = expandEnvVars(config.Logging.Dir)
	config.Store.Path = expandEnvVars(config.Store.Path)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	e := c.Engine
	positive := []struct {
		name  string
		value int
	}{
		{"concepts_max", e.ConceptsMax},
		{"cycling_belief_events_max", e.CyclingBeliefEventsMax},
		{"cycling_goal_events_max", e.CyclingGoalEventsMax},
		{"belief_event_selections", e.BeliefEventSelections},
		{"goal_event_selections", e.GoalEventSelections},
		{"fifo_size", e.FIFOSize},
		{"table_size", e.TableSize},
		{"operations_max", e.OperationsMax},
		{"compound_term_size_max", e.CompoundTermSizeMax},
		{"inference_workers", e.InferenceWorkers},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}
	if e.OperationsMax < 2 {
		return fmt.Errorf("operations_max must be at least 2, got %d", e.OperationsMax)
	}
	if e.MaxSequenceLen < 1 || e.MaxSequenceLen > constants.MaxSequenceLenLimit {
		return fmt.Errorf("max_sequence_len must be between 1 and %d, got %d", constants.MaxSequenceLenLimit, e.MaxSequenceLen)
	}

	durabilities := map[string]float64{
		"event_durability":       e.EventDurability,
		"concept_durability":     e.ConceptDurability,
		"truth_projection_decay": e.TruthProjectionDecay,
	}
	for name, d := range durabilities {
		if d <= 0 || d > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %f", name, d)
		}
	}

	unit := map[string]float64{
		"min_confidence":          e.MinConfidence,
		"condition_threshold":     e.ConditionThreshold,
		"decision_threshold":      e.DecisionThreshold,
		"anticipation_threshold":  e.AnticipationThreshold,
		"anticipation_confidence": e.AnticipationConfidence,
		"motor_babbling_chance":   e.MotorBabblingChance,
	}
	for name, v := range unit {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, v)
		}
	}

	if e.TruthEvidentialHorizon <= 0 {
		return fmt.Errorf("truth_evidential_horizon must be positive, got %f", e.TruthEvidentialHorizon)
	}
	if e.BeliefConceptMatchTarget <= 0 || e.EventBeliefDistance <= 0 {
		return fmt.Errorf("belief_concept_match_target and event_belief_distance must be positive")
	}
	if e.ConceptThresholdAdaptation < 0 || e.RefractoryPeriod < 0 {
		return fmt.Errorf("concept_threshold_adaptation and refractory_period must be non-negative")
	}
	if !e.DecisionTieBreak.Valid() {
		return fmt.Errorf("invalid decision_tie_break: %s (valid: first, last)", e.DecisionTieBreak)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if c.Logging.Format != "" && c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store backend: %s (valid: sqlite, memory)", c.Store.Backend)
	}
	if c.Store.Backend == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("store path is required for the sqlite backend")
	}

	if c.MCP.MaxCyclesPerCall <= 0 {
		return fmt.Errorf("max_cycles_per_call must be positive, got %d", c.MCP.MaxCyclesPerCall)
	}
	for tool, l := range c.MCP.RateLimits {
		if l.PerMinute < 0 || l.Burst < 1 {
			return fmt.Errorf("invalid rate limit for %s: per_minute must be non-negative and burst at least 1", tool)
		}
	}

	return nil
}

// NAR converts the engine section into reasoner parameters.
func (c *Config) NAR() nar.Config {
	e := c.Engine
	tv := truth.Params{EvidentialHorizon: e.TruthEvidentialHorizon, ProjectionDecay: e.TruthProjectionDecay}
	return nar.Config{
		Memory: memory.Config{
			ConceptsMax:            e.ConceptsMax,
			CyclingBeliefEventsMax: e.CyclingBeliefEventsMax,
			CyclingGoalEventsMax:   e.CyclingGoalEventsMax,
			FIFOSize:               e.FIFOSize,
			MaxSequenceLen:         e.MaxSequenceLen,
			TableSize:              e.TableSize,
			OperationsMax:          e.OperationsMax,
			CompoundTermSizeMax:    e.CompoundTermSizeMax,
			Truth:                  tv,
		},
		Cycle: cycle.Config{
			BeliefEventSelections:      e.BeliefEventSelections,
			GoalEventSelections:        e.GoalEventSelections,
			EventDurability:            e.EventDurability,
			ConceptDurability:          e.ConceptDurability,
			MinConfidence:              e.MinConfidence,
			ConditionThreshold:         e.ConditionThreshold,
			BeliefConceptMatchTarget:   e.BeliefConceptMatchTarget,
			ConceptThresholdAdaptation: e.ConceptThresholdAdaptation,
			EventBeliefDistance:        e.EventBeliefDistance,
			NopSubgoaling:              e.NopSubgoaling,
			InferenceWorkers:           e.InferenceWorkers,
		},
		Decision: decision.Config{
			DecisionThreshold:      e.DecisionThreshold,
			AnticipationThreshold:  e.AnticipationThreshold,
			AnticipationConfidence: e.AnticipationConfidence,
			MotorBabblingChance:    e.MotorBabblingChance,
			RefractoryPeriod:       e.RefractoryPeriod,
			EventBeliefDistance:    e.EventBeliefDistance,
			TieBreak:               e.DecisionTieBreak,
			Seed:                   e.Seed,
		},
	}
}

// RateLimits returns the default tool limits with the configured overrides.
func (c *Config) RateLimits() map[string]ratelimit.Limit {
	limits := ratelimit.DefaultLimits()
	for tool, l := range c.MCP.RateLimits {
		limits[tool] = l
	}
	return limits
}

// applyEnvOverrides applies NARLOOP_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("NARLOOP_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("NARLOOP_LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}
	if v := os.Getenv("NARLOOP_LOG_DIR"); v != "" {
		config.Logging.Dir = v
	}
	if v := os.Getenv("NARLOOP_STORE_BACKEND"); v != "" {
		config.Store.Backend = v
	}
	if v := os.Getenv("NARLOOP_STORE_PATH"); v != "" {
		config.Store.Path = v
	}

	if v := os.Getenv("NARLOOP_CONCEPTS_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Engine.ConceptsMax = n
		}
	}
	if v := os.Getenv("NARLOOP_INFERENCE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Engine.InferenceWorkers = n
		}
	}
	if v := os.Getenv("NARLOOP_MOTOR_BABBLING_CHANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Engine.MotorBabblingChance = f
		}
	}
	if v := os.Getenv("NARLOOP_DECISION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Engine.DecisionThreshold = f
		}
	}
	if v := os.Getenv("NARLOOP_NOP_SUBGOALING"); v != "" {
		config.Engine.NopSubgoaling = v == "true" || v == "1"
	}
	if v := os.Getenv("NARLOOP_DECISION_TIE_BREAK"); v != "" {
		config.Engine.DecisionTieBreak = constants.TieBreak(v)
	}
	if v := os.Getenv("NARLOOP_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Engine.Seed = n
		}
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
