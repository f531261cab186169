package nar

import (
	"github.com/nvandessel/narloop/internal/constants"
	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/memory"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/truth"
)

// Spike is a dated event held by a concept.
type Spike struct {
	Truth          truth.Truth `json:"truth"`
	OccurrenceTime int64       `json:"occurrence_time"`
}

// Implication is a learned precondition link of a concept.
type Implication struct {
	Term      string      `json:"term"`
	Truth     truth.Truth `json:"truth"`
	Offset    float64     `json:"offset"`
	Operation string      `json:"operation,omitempty"`
}

// ConceptInfo is a read-only copy of a concept.
type ConceptInfo struct {
	ID              uint64        `json:"id"`
	Term            string        `json:"term"`
	Priority        float64       `json:"priority"`
	Usefulness      float64       `json:"usefulness"`
	UseCount        int64         `json:"use_count"`
	LastUsed        int64         `json:"last_used"`
	Belief          *truth.Truth  `json:"belief,omitempty"`
	BeliefSpike     *Spike        `json:"belief_spike,omitempty"`
	PredictedBelief *Spike        `json:"predicted_belief,omitempty"`
	GoalSpike       *Spike        `json:"goal_spike,omitempty"`
	Implications    []Implication `json:"implications,omitempty"`
}

// Concepts returns up to limit concepts, most useful first. A limit of
// zero or less uses the default listing size.
func (n *NAR) Concepts(limit int) []ConceptInfo {
	if limit <= 0 {
		limit = constants.DefaultTopConcepts
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	top := n.mem.TopConcepts(limit, n.cc.Time)
	out := make([]ConceptInfo, 0, len(top))
	for _, c := range top {
		out = append(out, n.info(c))
	}
	return out
}

// Concept returns the concept of the given term.
func (n *NAR) Concept(term string) (ConceptInfo, bool, error) {
	t, err := narsese.ParseTerm(term)
	if err != nil {
		return ConceptInfo{}, false, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.mem.FindConceptByTerm(t)
	if !ok {
		return ConceptInfo{}, false, nil
	}
	return n.info(c), true, nil
}

// ConceptCount returns the number of concepts in memory.
func (n *NAR) ConceptCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mem.Len()
}

func (n *NAR) info(c *memory.Concept) ConceptInfo {
	info := ConceptInfo{
		ID:              c.ID,
		Term:            c.Term.String(),
		Priority:        c.Priority,
		Usefulness:      c.Usage.Usefulness(n.cc.Time),
		UseCount:        c.Usage.UseCount,
		LastUsed:        c.Usage.LastUsed,
		BeliefSpike:     spike(c.BeliefSpike),
		PredictedBelief: spike(c.PredictedBelief),
		GoalSpike:       spike(c.GoalSpike),
	}
	if !c.Belief.IsDeleted() {
		tv := c.Belief.Truth
		info.Belief = &tv
	}
	for opID := range c.PreconditionBeliefs {
		for _, imp := range c.PreconditionBeliefs[opID].Items() {
			info.Implications = append(info.Implications, Implication{
				Term:      imp.Term.String(),
				Truth:     imp.Truth,
				Offset:    imp.OccurrenceTimeOffset,
				Operation: n.mem.OperationName(opID),
			})
		}
	}
	return info
}

func spike(ev event.Event) *Spike {
	if ev.IsDeleted() {
		return nil
	}
	return &Spike{Truth: ev.Truth, OccurrenceTime: ev.OccurrenceTime}
}
