// Package nar is the reasoner facade. A NAR owns one memory, its decision
// maker and the cycle context, and serializes every input and tick behind
// a mutex so callers never observe a partial tick.
package nar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nvandessel/narloop/internal/constants"
	"github.com/nvandessel/narloop/internal/cycle"
	"github.com/nvandessel/narloop/internal/decision"
	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/logging"
	"github.com/nvandessel/narloop/internal/memory"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/truth"
)

var (
	// ErrUnknownOperation is returned for input that mentions an
	// operation that was never registered.
	ErrUnknownOperation = errors.New("nar: unknown operation")
	// ErrInvalidOperation is returned for operation names without the ^ prefix.
	ErrInvalidOperation = errors.New("nar: operation names must start with ^")
	// ErrSequenceTooLong is returned for input sequences with more
	// components than the memory can decompose.
	ErrSequenceTooLong = errors.New("nar: sequence too long")
	// ErrNotGoal is returned when a belief is offered as a mental goal.
	ErrNotGoal = errors.New("nar: not a goal")
)

// Config groups the parameters of all reasoner components.
type Config struct {
	Memory   memory.Config
	Cycle    cycle.Config
	Decision decision.Config
}

// DefaultConfig returns the standard reasoner parameters.
func DefaultConfig() Config {
	return Config{
		Memory:   memory.DefaultConfig(),
		Cycle:    cycle.DefaultConfig(),
		Decision: decision.DefaultConfig(),
	}
}

// Option configures a NAR.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	decisions *logging.DecisionLogger
	runID     string
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDecisionLogger sets the JSONL trace of executed decisions.
func WithDecisionLogger(dl *logging.DecisionLogger) Option {
	return func(o *options) { o.decisions = dl }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

// NAR is a running reasoner.
type NAR struct {
	mu     sync.Mutex
	runID  string
	cfg    Config
	mem    *memory.Memory
	maker  *decision.Maker
	engine *cycle.Engine
	cc     *cycle.Context
	logger *slog.Logger
}

// New creates a reasoner with empty memory at time 1.
func New(cfg Config, opts ...Option) *NAR {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}

	logger := o.logger.With("run", o.runID)
	mem := memory.New(cfg.Memory)
	maker := decision.New(cfg.Decision, mem, logger)
	engine := cycle.New(cfg.Cycle, mem, maker, logger)
	o.decisions.SetRun(o.runID)
	engine.SetDecisionLogger(o.decisions)

	return &NAR{
		runID:  o.runID,
		cfg:    cfg,
		mem:    mem,
		maker:  maker,
		engine: engine,
		cc:     cycle.NewContext(),
		logger: logger,
	}
}

// RunID returns the unique id of this reasoner run.
func (n *NAR) RunID() string { return n.runID }

// Config returns the reasoner configuration.
func (n *NAR) Config() Config { return n.cfg }

// Time returns the current time.
func (n *NAR) Time() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cc.Time
}

// Stats returns a copy of the run statistics.
func (n *NAR) Stats() cycle.Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cc.Stats
}

// Threshold returns the adaptive concept priority threshold.
func (n *NAR) Threshold() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cc.Threshold
}

// AddOperation registers an operation and the action run when it is
// executed. Registering a name again replaces its action.
func (n *NAR) AddOperation(name string, action decision.Action) (int, error) {
	if !strings.HasPrefix(name, "^") || len(name) < 2 {
		return 0, fmt.Errorf("add operation %q: %w", name, ErrInvalidOperation)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	id, err := n.mem.RegisterOperation(name)
	if err != nil {
		return 0, err
	}
	n.maker.SetAction(id, action)
	n.logger.Debug("operation registered", "operation", name, "id", id)
	return id, nil
}

// SetMotorBabbling changes the chance of trying a random operation for an
// unsatisfiable goal.
func (n *NAR) SetMotorBabbling(p float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.maker.SetBabblingChance(p)
}

// AddInput adds a belief or goal and runs one tick. Present beliefs and
// all goals occur at the current time; other beliefs are eternal.
func (n *NAR) AddInput(ctx context.Context, s narsese.Sentence) error {
	return n.addInput(ctx, s, false)
}

// AddMentalGoal adds a goal to the mental goal queue and runs one tick.
// Mental goals are only pursued through ^consider implications.
func (n *NAR) AddMentalGoal(ctx context.Context, s narsese.Sentence) error {
	if !s.Goal {
		return fmt.Errorf("mental goal %s: %w", s.Term, ErrNotGoal)
	}
	return n.addInput(ctx, s, true)
}

func (n *NAR) addInput(ctx context.Context, s narsese.Sentence, mental bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.validate(s.Term); err != nil {
		return err
	}

	now := n.cc.Time
	ev := event.Event{
		Term:           s.Term,
		Kind:           event.Belief,
		Truth:          s.Truth,
		Stamp:          n.mem.NewStamp(),
		OccurrenceTime: now,
		CreationTime:   now,
	}
	if s.Goal {
		ev.Kind = event.Goal
	} else if !s.Present {
		ev.OccurrenceTime = truth.Eternal
	}
	offset := 0.0
	if s.Term.Copula() == narsese.TemporalImplication {
		offset = 1
	}
	n.mem.AddEvent(ev, now, constants.InputPriority, offset, memory.AddOptions{Input: true, Mental: mental})
	n.logger.Debug("input", "event", ev.String(), "mental", mental, "time", now)
	return n.tick(ctx)
}

// AddInputNarsese parses one Narsese sentence and adds it.
func (n *NAR) AddInputNarsese(ctx context.Context, line string) error {
	s, err := narsese.ParseSentence(line)
	if err != nil {
		return fmt.Errorf("parse input: %w", err)
	}
	return n.AddInput(ctx, s)
}

func (n *NAR) validate(t narsese.Term) error {
	for _, atom := range t.Atoms() {
		if strings.HasPrefix(atom, "^") && n.mem.OperationID(narsese.Atom(atom)) == 0 {
			return fmt.Errorf("input %s: %w: %s", t, ErrUnknownOperation, atom)
		}
	}
	if limit := n.cfg.Memory.MaxSequenceLen + 1; len(t.SequenceComponents()) > limit {
		return fmt.Errorf("input %s has %d components, limit %d: %w", t, len(t.SequenceComponents()), limit, ErrSequenceTooLong)
	}
	if !t.WithinComplexity(n.cfg.Memory.CompoundTermSizeMax) {
		return fmt.Errorf("input %s exceeds complexity %d", t, n.cfg.Memory.CompoundTermSizeMax)
	}
	return nil
}

// Cycles runs n ticks. It stops early when ctx is done. Errors from
// operation actions do not stop the run; the first one is returned.
func (n *NAR) Cycles(ctx context.Context, count int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	var first error
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.tick(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (n *NAR) tick(ctx context.Context) error {
	err := n.engine.Perform(ctx, n.cc)
	n.cc.Time++
	if err != nil {
		n.logger.Warn("tick finished with error", "error", err)
	}
	return err
}
