// Package cycle implements the per-tick reasoning scheduler. Each call to
// Perform runs the stages in a fixed order:
//
//  1. select belief events for inference
//  2. process the newest input sequences and reinforce temporal links
//  3. select mental then external goals, decompose or match them, and
//     execute at most one decision (otherwise propagate subgoals)
//  4. apply the rule table between the selected beliefs and related concepts
//  5. decay event and concept priorities and rebuild the orderings
package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zoobzio/capitan"

	"github.com/nvandessel/narloop/internal/constants"
	"github.com/nvandessel/narloop/internal/decision"
	"github.com/nvandessel/narloop/internal/inference"
	"github.com/nvandessel/narloop/internal/logging"
	"github.com/nvandessel/narloop/internal/memory"
	"github.com/nvandessel/narloop/internal/ruletable"
)

// Config holds the scheduler parameters.
type Config struct {
	BeliefEventSelections      int
	GoalEventSelections        int
	EventDurability            float64
	ConceptDurability          float64
	MinConfidence              float64
	ConditionThreshold         float64
	BeliefConceptMatchTarget   int64
	ConceptThresholdAdaptation float64
	EventBeliefDistance        int64
	NopSubgoaling              bool
	InferenceWorkers           int
}

// DefaultConfig returns the standard scheduler parameters.
func DefaultConfig() Config {
	return Config{
		BeliefEventSelections:      constants.DefaultBeliefEventSelections,
		GoalEventSelections:        constants.DefaultGoalEventSelections,
		EventDurability:            constants.DefaultEventDurability,
		ConceptDurability:          constants.DefaultConceptDurability,
		MinConfidence:              constants.DefaultMinConfidence,
		ConditionThreshold:         constants.DefaultConditionThreshold,
		BeliefConceptMatchTarget:   constants.DefaultBeliefConceptMatchTarget,
		ConceptThresholdAdaptation: constants.DefaultConceptThresholdAdaptation,
		EventBeliefDistance:        constants.DefaultEventBeliefDistance,
		NopSubgoaling:              constants.DefaultNopSubgoaling,
		InferenceWorkers:           constants.DefaultInferenceWorkers,
	}
}

// Engine drives one memory through reasoning ticks.
type Engine struct {
	cfg       Config
	mem       *memory.Memory
	decider   *decision.Maker
	infer     inference.Engine
	rules     ruletable.Table
	logger    *slog.Logger
	decisions *logging.DecisionLogger
}

// New creates a scheduler over mem. Decisions are made and executed by
// decider. A nil logger discards output.
func New(cfg Config, mem *memory.Memory, decider *decision.Maker, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.InferenceWorkers < 1 {
		cfg.InferenceWorkers = 1
	}
	mc := mem.Config()
	return &Engine{
		cfg:     cfg,
		mem:     mem,
		decider: decider,
		infer:   inference.New(mc.Truth),
		rules:   ruletable.New(mc.Truth, mc.CompoundTermSizeMax),
		logger:  logger,
	}
}

// SetDecisionLogger sets the JSONL trace of executed decisions. A nil
// logger disables the trace.
func (e *Engine) SetDecisionLogger(dl *logging.DecisionLogger) {
	e.decisions = dl
}

// Config returns the scheduler configuration.
func (e *Engine) Config() Config { return e.cfg }

// Perform runs one tick at cc.Time. The tick always completes; an error
// from an executed operation's action is returned after the last stage.
// Perform does not advance cc.Time.
func (e *Engine) Perform(ctx context.Context, cc *Context) error {
	start := time.Now()

	beliefs := e.mem.PopEvents(memory.BeliefEvents, e.cfg.BeliefEventSelections)
	e.processInputBeliefs(ctx, cc)
	goals, err := e.processGoals(ctx, cc)
	e.inference(ctx, cc, beliefs)
	e.forget(cc)
	cc.Stats.Ticks++

	e.logger.Debug("cycle completed",
		"time", cc.Time,
		"beliefs", len(beliefs),
		"goals", goals,
		"threshold", cc.Threshold,
		"concepts", e.mem.Len())
	capitan.Emit(ctx, CycleCompleted,
		FieldTime.Field(int(cc.Time)),
		FieldBeliefs.Field(len(beliefs)),
		FieldGoals.Field(goals),
		FieldThreshold.Field(float32(cc.Threshold)),
		FieldDuration.Field(time.Since(start)),
	)
	if err != nil {
		return fmt.Errorf("cycle at time %d: %w", cc.Time, err)
	}
	return nil
}

// forget decays every queued event and concept, then restores all
// orderings in one pass.
func (e *Engine) forget(cc *Context) {
	e.mem.DecayEvents(e.cfg.EventDurability)
	e.mem.DecayConcepts(e.cfg.ConceptDurability, cc.Time)
	e.mem.Rebuild()
}
