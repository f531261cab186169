// Package ruletable dispatches NAL inference rules over a pair of premises:
// a selected event and the belief of a matched concept, or the event alone.
// Apply is pure; committing the derivations to memory is the caller's job.
package ruletable

import (
	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/stamp"
	"github.com/nvandessel/narloop/internal/truth"
	"github.com/nvandessel/narloop/internal/variable"
)

// Premises are the inputs of one rule table application. A is the selected
// event, B the belief of the matched concept (absent when HasBelief is false).
type Premises struct {
	TermA       narsese.Term
	TruthA      truth.Truth
	OccurrenceA int64
	PriorityA   float64

	TermB     narsese.Term
	TruthB    truth.Truth
	PriorityB float64
	HasBelief bool

	// Stamp is the merged stamp of both premises.
	Stamp stamp.Stamp
	Now   int64

	// TimeDistance is how far apart the premises occurred before B was
	// projected to A's time; zero when either is eternal.
	TimeDistance int64

	// Token is the id of the matched concept at match time. It travels with
	// every derivation so the commit can detect an evicted concept.
	Token uint64
}

// Derivation is one conclusion of the rule table.
type Derivation struct {
	Rule         string
	Event        event.Event
	Priority     float64
	Token        uint64
	TimeDistance int64
}

// Table applies the rules with a fixed truth calculus.
type Table struct {
	Truth         truth.Params
	MaxComplexity int
}

// New creates a rule table.
func New(p truth.Params, maxComplexity int) Table {
	return Table{Truth: p, MaxComplexity: maxComplexity}
}

type conclusion struct {
	term  narsese.Term
	truth truth.Truth
}

type rule struct {
	name  string
	apply func(t Table, p Premises) []conclusion
}

var doublePremiseRules = []rule{
	{"deduction", deduction},
	{"induction", induction},
	{"abduction", abduction},
	{"detachment", detachment},
	{"implication_abduction", implicationAbduction},
}

var singlePremiseRules = []rule{
	{"decomposition", decomposition},
}

// Apply runs every rule whose premise pattern matches and returns the
// derived belief events.
func (t Table) Apply(p Premises) []Derivation {
	rules := singlePremiseRules
	if p.HasBelief {
		rules = doublePremiseRules
	}
	var out []Derivation
	for _, r := range rules {
		for _, c := range r.apply(t, p) {
			if c.term.IsZero() || !c.term.WithinComplexity(t.MaxComplexity) {
				continue
			}
			if c.term.IsStatement() && c.term.Left().Equal(c.term.Right()) {
				continue
			}
			priority := p.PriorityA * truth.Expectation(c.truth)
			if p.HasBelief {
				priority *= p.PriorityB
			}
			out = append(out, Derivation{
				Rule: r.name,
				Event: event.Event{
					Term:           c.term,
					Kind:           event.Belief,
					Truth:          c.truth,
					Stamp:          p.Stamp,
					OccurrenceTime: p.OccurrenceA,
					CreationTime:   p.Now,
				},
				Priority:     priority,
				Token:        p.Token,
				TimeDistance: p.TimeDistance,
			})
		}
	}
	return out
}

func isInheritance(x narsese.Term) bool { return x.Copula() == narsese.Inheritance }

// deduction: {<M --> P>, <S --> M>} |- <S --> P>, in either premise order.
func deduction(t Table, p Premises) []conclusion {
	a, b := p.TermA, p.TermB
	if !isInheritance(a) || !isInheritance(b) {
		return nil
	}
	tv := t.Truth.Deduction(p.TruthA, p.TruthB)
	var out []conclusion
	if a.Left().Equal(b.Right()) {
		out = append(out, conclusion{narsese.Statement(b.Left(), narsese.Inheritance, a.Right()), tv})
	}
	if a.Right().Equal(b.Left()) {
		out = append(out, conclusion{narsese.Statement(a.Left(), narsese.Inheritance, b.Right()), tv})
	}
	return out
}

// induction: {<M --> P>, <M --> S>} |- <S --> P>, <S <-> P>.
func induction(t Table, p Premises) []conclusion {
	a, b := p.TermA, p.TermB
	if !isInheritance(a) || !isInheritance(b) || !a.Left().Equal(b.Left()) || a.Right().Equal(b.Right()) {
		return nil
	}
	return []conclusion{
		{narsese.Statement(b.Right(), narsese.Inheritance, a.Right()), t.Truth.Induction(p.TruthA, p.TruthB)},
		{narsese.Statement(b.Right(), narsese.Similarity, a.Right()), t.Truth.Comparison(p.TruthA, p.TruthB)},
	}
}

// abduction: {<P --> M>, <S --> M>} |- <S --> P>, <S <-> P>.
func abduction(t Table, p Premises) []conclusion {
	a, b := p.TermA, p.TermB
	if !isInheritance(a) || !isInheritance(b) || !a.Right().Equal(b.Right()) || a.Left().Equal(b.Left()) {
		return nil
	}
	return []conclusion{
		{narsese.Statement(b.Left(), narsese.Inheritance, a.Left()), t.Truth.Abduction(p.TruthA, p.TruthB)},
		{narsese.Statement(b.Left(), narsese.Similarity, a.Left()), t.Truth.Comparison(p.TruthA, p.TruthB)},
	}
}

// detachment: {<X ==> Y>, X} |- Y with the implication as either premise.
// Variables in X bind against the other premise and carry into Y.
func detachment(t Table, p Premises) []conclusion {
	if p.TermB.IsImplication() {
		if y, ok := modusPonens(p.TermB, p.TermA, t.MaxComplexity); ok {
			return []conclusion{{y, t.Truth.Deduction(p.TruthB, p.TruthA)}}
		}
	}
	if p.TermA.IsImplication() {
		if y, ok := modusPonens(p.TermA, p.TermB, t.MaxComplexity); ok {
			return []conclusion{{y, t.Truth.Deduction(p.TruthA, p.TruthB)}}
		}
	}
	return nil
}

func modusPonens(imp, fact narsese.Term, maxComplexity int) (narsese.Term, bool) {
	subs := variable.Unify(imp.Left(), fact)
	if !subs.Success {
		return narsese.Term{}, false
	}
	return variable.Apply(imp.Right(), subs, maxComplexity)
}

// implicationAbduction: {<X ==> Y>, Y} |- X with the implication as belief.
func implicationAbduction(t Table, p Premises) []conclusion {
	if !p.TermB.IsImplication() {
		return nil
	}
	subs := variable.Unify(p.TermB.Right(), p.TermA)
	if !subs.Success {
		return nil
	}
	x, ok := variable.Apply(p.TermB.Left().PreconditionWithoutOp(), subs, t.MaxComplexity)
	if !ok || x.IsOperation() {
		return nil
	}
	return []conclusion{{x, t.Truth.Abduction(p.TruthB, p.TruthA)}}
}

// decomposition: {(X && Y)} |- X, Y and {(X &/ Y) :|:} |- Y :|:.
func decomposition(t Table, p Premises) []conclusion {
	a := p.TermA
	switch a.Copula() {
	case narsese.Conjunction:
		tv := t.Truth.StructuralDeduction(p.TruthA)
		return []conclusion{{a.Left(), tv}, {a.Right(), tv}}
	case narsese.Sequence:
		if a.Right().IsOperation() {
			return nil
		}
		return []conclusion{{a.Right(), t.Truth.StructuralDeduction(p.TruthA)}}
	}
	return nil
}
