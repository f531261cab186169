// Package memory holds the reasoner's bounded concept store, the cycling
// event queues and the input belief FIFO.
//
// Memory is not safe for concurrent use. The reasoning cycle owns it for
// the duration of a tick and serializes every mutation.
package memory

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/nvandessel/narloop/internal/constants"
	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/inference"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/pq"
	"github.com/nvandessel/narloop/internal/stamp"
	"github.com/nvandessel/narloop/internal/truth"
)

// ConsiderOperation is the built-in mental operation, always id 1.
const ConsiderOperation = "^consider"

// ErrTooManyOperations is returned when every operation slot is taken.
var ErrTooManyOperations = errors.New("memory: operation slots exhausted")

// Queue selects one of the cycling event queues.
type Queue int

const (
	BeliefEvents Queue = iota
	ExternalGoalEvents
	MentalGoalEvents
)

func (q Queue) String() string {
	switch q {
	case BeliefEvents:
		return "beliefs"
	case ExternalGoalEvents:
		return "external_goals"
	case MentalGoalEvents:
		return "mental_goals"
	}
	return fmt.Sprintf("queue(%d)", int(q))
}

// Config sizes the memory.
type Config struct {
	ConceptsMax            int
	CyclingBeliefEventsMax int
	CyclingGoalEventsMax   int
	FIFOSize               int
	MaxSequenceLen         int
	TableSize              int
	OperationsMax          int
	CompoundTermSizeMax    int
	Truth                  truth.Params
}

// DefaultConfig returns the standard memory sizes.
func DefaultConfig() Config {
	return Config{
		ConceptsMax:            constants.DefaultConceptsMax,
		CyclingBeliefEventsMax: constants.DefaultCyclingBeliefEventsMax,
		CyclingGoalEventsMax:   constants.DefaultCyclingGoalEventsMax,
		FIFOSize:               constants.DefaultFIFOSize,
		MaxSequenceLen:         constants.DefaultMaxSequenceLen,
		TableSize:              constants.DefaultTableSize,
		OperationsMax:          constants.DefaultOperationsMax,
		CompoundTermSizeMax:    constants.DefaultCompoundTermSizeMax,
		Truth:                  truth.DefaultParams(),
	}
}

// Selected is an event popped from a queue together with its priority.
type Selected struct {
	Event    event.Event
	Priority float64
}

// AddOptions describes where an added event came from.
type AddOptions struct {
	// Input events are perceived, not derived. Dated input beliefs enter the FIFO.
	Input bool
	// Mental goals go to the mental goal queue instead of the external one.
	Mental bool
}

// Memory is the concept store plus the four bounded orderings.
type Memory struct {
	cfg   Config
	infer inference.Engine

	concepts map[uint64]*Concept
	byTerm   map[string]uint64
	index    map[string][]uint64
	nextID   uint64

	conceptOrder  *pq.Queue[uint64]
	beliefs       *pq.Queue[event.Event]
	externalGoals *pq.Queue[event.Event]
	mentalGoals   *pq.Queue[event.Event]

	fifo *FIFO

	ops     map[string]int
	opNames []string

	stamps stamp.Source
}

// New creates an empty memory.
func New(cfg Config) *Memory {
	infer := inference.New(cfg.Truth)
	m := &Memory{
		cfg:           cfg,
		infer:         infer,
		concepts:      make(map[uint64]*Concept),
		byTerm:        make(map[string]uint64),
		index:         make(map[string][]uint64),
		conceptOrder:  pq.New[uint64](cfg.ConceptsMax),
		beliefs:       pq.New[event.Event](cfg.CyclingBeliefEventsMax),
		externalGoals: pq.New[event.Event](cfg.CyclingGoalEventsMax),
		mentalGoals:   pq.New[event.Event](cfg.CyclingGoalEventsMax),
		fifo:          NewFIFO(cfg.FIFOSize, cfg.MaxSequenceLen, infer),
		ops:           make(map[string]int),
		opNames:       make([]string, cfg.OperationsMax+1),
	}
	m.ops[ConsiderOperation] = 1
	m.opNames[1] = ConsiderOperation
	return m
}

// Config returns the memory configuration.
func (m *Memory) Config() Config { return m.cfg }

// FIFO returns the input belief FIFO.
func (m *Memory) FIFO() *FIFO { return m.fifo }

// NewStamp returns a stamp with a fresh evidence id.
func (m *Memory) NewStamp() stamp.Stamp { return m.stamps.New() }

// RegisterOperation assigns an operation id (>= 2) to name. Registering a
// name twice returns the existing id.
func (m *Memory) RegisterOperation(name string) (int, error) {
	if id, ok := m.ops[name]; ok {
		return id, nil
	}
	for id := 2; id <= m.cfg.OperationsMax; id++ {
		if m.opNames[id] == "" {
			m.opNames[id] = name
			m.ops[name] = id
			return id, nil
		}
	}
	return 0, fmt.Errorf("register %s: %w", name, ErrTooManyOperations)
}

// OperationID returns the id of the operation term t, or of the trailing
// operation of a sequence. Zero means no registered operation.
func (m *Memory) OperationID(t narsese.Term) int {
	if t.IsSequence() {
		t = t.Right()
	}
	return m.ops[t.OperationName()]
}

// OperationName returns the name registered for id.
func (m *Memory) OperationName(id int) string {
	if id <= 0 || id >= len(m.opNames) {
		return ""
	}
	return m.opNames[id]
}

// Conceptualize returns the concept for term, creating it if needed. When
// memory is full the least useful concept is evicted first.
func (m *Memory) Conceptualize(term narsese.Term, now int64) *Concept {
	key := term.String()
	if id, ok := m.byTerm[key]; ok {
		return m.concepts[id]
	}
	if len(m.concepts) >= m.cfg.ConceptsMax {
		if victim, ok := m.conceptOrder.PopMin(); ok {
			m.evict(victim.Value)
		}
	}
	m.nextID++
	c := &Concept{
		ID:                  m.nextID,
		Term:                term,
		Usage:               Usage{UseCount: 1, LastUsed: now},
		PreconditionBeliefs: make([]Table, m.cfg.OperationsMax+1),
	}
	for i := range c.PreconditionBeliefs {
		c.PreconditionBeliefs[i] = NewTable(m.cfg.TableSize)
	}
	m.concepts[c.ID] = c
	m.byTerm[key] = c.ID
	for _, atom := range indexAtoms(term) {
		m.index[atom] = append(m.index[atom], c.ID)
	}
	m.conceptOrder.PushBounded(c.Usage.Usefulness(now), c.ID)
	return c
}

func (m *Memory) evict(id uint64) {
	c, ok := m.concepts[id]
	if !ok {
		return
	}
	delete(m.concepts, id)
	delete(m.byTerm, c.Term.String())
	for _, atom := range indexAtoms(c.Term) {
		ids := slices.DeleteFunc(m.index[atom], func(x uint64) bool { return x == id })
		if len(ids) == 0 {
			delete(m.index, atom)
			continue
		}
		m.index[atom] = ids
	}
}

func indexAtoms(t narsese.Term) []string {
	return slices.DeleteFunc(t.Atoms(), narsese.IsVariableName)
}

// FindConceptByTerm returns the concept of exactly term.
func (m *Memory) FindConceptByTerm(term narsese.Term) (*Concept, bool) {
	id, ok := m.byTerm[term.String()]
	if !ok {
		return nil, false
	}
	return m.concepts[id], true
}

// ConceptByID returns the live concept with id, if it was not evicted.
func (m *Memory) ConceptByID(id uint64) (*Concept, bool) {
	c, ok := m.concepts[id]
	return c, ok
}

// Len returns the number of concepts.
func (m *Memory) Len() int { return len(m.concepts) }

// ForEachConcept calls fn for every concept in id order.
func (m *Memory) ForEachConcept(fn func(*Concept)) {
	ids := make([]uint64, 0, len(m.concepts))
	for id := range m.concepts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if c, ok := m.concepts[id]; ok {
			fn(c)
		}
	}
}

// TopConcepts returns up to n concepts ordered by usefulness at now,
// most useful first. n <= 0 returns all of them.
func (m *Memory) TopConcepts(n int, now int64) []*Concept {
	out := make([]*Concept, 0, len(m.concepts))
	m.ForEachConcept(func(c *Concept) { out = append(out, c) })
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Usage.Usefulness(now) > out[j].Usage.Usefulness(now)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ForEachRelated visits the concept of term itself and then every concept
// sharing an atom with it. A concept whose ProcessID equals pass has been
// visited in this traversal already and is skipped; visited concepts are
// stamped with pass. Returning false from fn ends the traversal.
func (m *Memory) ForEachRelated(term narsese.Term, pass uint64, fn func(*Concept) bool) {
	visit := func(c *Concept) bool {
		if c.ProcessID == pass {
			return true
		}
		c.ProcessID = pass
		return fn(c)
	}
	if c, ok := m.FindConceptByTerm(term); ok {
		if !visit(c) {
			return
		}
	}
	for _, atom := range indexAtoms(term) {
		for _, id := range slices.Clone(m.index[atom]) {
			c, ok := m.concepts[id]
			if !ok {
				continue
			}
			if !visit(c) {
				return
			}
		}
	}
}

// ImplicationValid reports whether the concept that justified imp still
// exists and still stands for its precondition.
func (m *Memory) ImplicationValid(imp event.Implication) bool {
	c, ok := m.concepts[imp.SourceConceptID]
	if !ok {
		return false
	}
	return c.Term.Equal(imp.Precondition().PreconditionWithoutOp())
}

// AddEvent admits an event into memory. Goals enter their goal queue.
// Beliefs update the concept of their term (temporal implications the
// precondition table of their postcondition concept), dated input beliefs
// enter the FIFO, and every belief enters the cycling belief queue. Terms
// over the complexity bound are dropped.
func (m *Memory) AddEvent(ev event.Event, now int64, priority, occurrenceTimeOffset float64, opts AddOptions) {
	if ev.IsDeleted() || !ev.Term.WithinComplexity(m.cfg.CompoundTermSizeMax) {
		return
	}
	ev.Processed = false
	if ev.Kind == event.Goal {
		c := m.Conceptualize(ev.Term, now)
		c.Priority = max(c.Priority, priority)
		if opts.Mental {
			m.mentalGoals.PushBounded(priority, ev)
		} else {
			m.externalGoals.PushBounded(priority, ev)
		}
		return
	}

	if ev.Term.Copula() == narsese.TemporalImplication {
		m.addImplication(ev, now, priority, occurrenceTimeOffset)
	} else {
		m.addBelief(ev, now, priority)
	}
	if opts.Input && !ev.IsEternal() {
		m.fifo.Add(ev)
	}
	m.beliefs.PushBounded(priority, ev)
}

func (m *Memory) addBelief(ev event.Event, now int64, priority float64) {
	c := m.Conceptualize(ev.Term, now)
	c.Priority = max(c.Priority, priority)
	if !ev.IsEternal() {
		switch {
		case c.BeliefSpike.IsDeleted() || ev.OccurrenceTime > c.BeliefSpike.OccurrenceTime:
			c.BeliefSpike = ev
		case ev.OccurrenceTime == c.BeliefSpike.OccurrenceTime:
			c.BeliefSpike, _ = m.infer.RevisionAndChoice(c.BeliefSpike, ev, now)
		}
	}
	c.Belief, _ = m.infer.RevisionAndChoice(c.Belief, m.infer.Eternalized(ev), now)
}

func (m *Memory) addImplication(ev event.Event, now int64, priority, offset float64) {
	pre := ev.Term.Left()
	post := m.Conceptualize(ev.Term.Right(), now)
	source := m.Conceptualize(pre.PreconditionWithoutOp(), now)
	// Creating the source may have evicted post; the table would be orphaned.
	if _, ok := m.concepts[post.ID]; !ok {
		return
	}
	sourceID := source.ID
	post.Priority = max(post.Priority, priority)
	opID := m.OperationID(pre)
	if opID >= len(post.PreconditionBeliefs) {
		return
	}
	post.PreconditionBeliefs[opID].Add(event.Implication{
		Term:                 ev.Term,
		Truth:                ev.Truth,
		Stamp:                ev.Stamp,
		OccurrenceTimeOffset: offset,
		SourceConceptID:      sourceID,
		CreationTime:         now,
	}, m.cfg.Truth)
}

func (m *Memory) queue(q Queue) *pq.Queue[event.Event] {
	switch q {
	case BeliefEvents:
		return m.beliefs
	case ExternalGoalEvents:
		return m.externalGoals
	case MentalGoalEvents:
		return m.mentalGoals
	}
	panic(fmt.Sprintf("memory: unknown queue %d", int(q)))
}

// QueueLen returns the number of events in q.
func (m *Memory) QueueLen(q Queue) int { return m.queue(q).Len() }

// QueueItems returns a copy of the events in q with their priorities.
func (m *Memory) QueueItems(q Queue) []pq.Item[event.Event] { return m.queue(q).Items() }

// PopEvents removes up to n highest-priority events from q and returns
// copies of them.
func (m *Memory) PopEvents(q Queue, n int) []Selected {
	src := m.queue(q)
	out := make([]Selected, 0, n)
	for i := 0; i < n; i++ {
		it, ok := src.PopMax()
		if !ok {
			if src.Len() != 0 {
				panic(fmt.Sprintf("memory: pop from %s failed with %d items queued", q, src.Len()))
			}
			break
		}
		out = append(out, Selected{Event: it.Value, Priority: it.Priority})
	}
	return out
}

// ResetGoals empties the mental or external goal queue.
func (m *Memory) ResetGoals(mental bool) {
	if mental {
		m.mentalGoals.Reset()
		return
	}
	m.externalGoals.Reset()
}

// DecayEvents multiplies the priority of every queued event by durability.
// Orderings are stale until Rebuild.
func (m *Memory) DecayEvents(durability float64) {
	decay := func(it *pq.Item[event.Event]) { it.Priority *= durability }
	m.beliefs.Update(decay)
	m.externalGoals.Update(decay)
	m.mentalGoals.Update(decay)
}

// DecayConcepts multiplies every concept priority by durability and rekeys
// the concept ordering by usefulness at now. Orderings are stale until
// Rebuild.
func (m *Memory) DecayConcepts(durability float64, now int64) {
	m.conceptOrder.Update(func(it *pq.Item[uint64]) {
		c, ok := m.concepts[it.Value]
		if !ok {
			return
		}
		c.Priority *= durability
		it.Priority = c.Usage.Usefulness(now)
	})
}

// Rebuild restores the order of all four queues.
func (m *Memory) Rebuild() {
	m.conceptOrder.Rebuild()
	m.beliefs.Rebuild()
	m.externalGoals.Rebuild()
	m.mentalGoals.Rebuild()
}
