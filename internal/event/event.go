// Package event defines the events and implications that flow between
// the reasoner's queues, concepts and inference rules.
package event

import (
	"fmt"

	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/stamp"
	"github.com/nvandessel/narloop/internal/truth"
)

// Kind distinguishes beliefs from goals. The zero value marks an empty slot.
type Kind uint8

const (
	Deleted Kind = iota
	Belief
	Goal
)

func (k Kind) String() string {
	switch k {
	case Belief:
		return "belief"
	case Goal:
		return "goal"
	default:
		return "deleted"
	}
}

// Event is a dated or eternal belief or goal. Events are values: queues and
// concepts hand out copies, never references to their storage.
type Event struct {
	Term           narsese.Term
	Kind           Kind
	Truth          truth.Truth
	Stamp          stamp.Stamp
	OccurrenceTime int64
	CreationTime   int64
	Processed      bool
}

// IsDeleted reports whether e is an empty slot.
func (e Event) IsDeleted() bool { return e.Kind == Deleted }

// IsEternal reports whether e has no occurrence time.
func (e Event) IsEternal() bool { return e.OccurrenceTime == truth.Eternal }

func (e Event) String() string {
	punct := "."
	if e.Kind == Goal {
		punct = "!"
	}
	when := ""
	if !e.IsEternal() {
		when = fmt.Sprintf(" :|: occurrenceTime=%d", e.OccurrenceTime)
	}
	return fmt.Sprintf("%s%s%s %s", e.Term, punct, when, e.Truth)
}

// Implication is a learned precondition =/> postcondition link, stored in
// the precondition table of its postcondition concept.
type Implication struct {
	Term                 narsese.Term
	Truth                truth.Truth
	Stamp                stamp.Stamp
	OccurrenceTimeOffset float64
	// SourceConceptID is the id of the concept that justified the link.
	// Zero means unset. The concept may since have been evicted.
	SourceConceptID uint64
	CreationTime    int64
}

// Precondition returns the left side of the implication.
func (i Implication) Precondition() narsese.Term { return i.Term.Left() }

// Postcondition returns the right side of the implication.
func (i Implication) Postcondition() narsese.Term { return i.Term.Right() }

func (i Implication) String() string {
	return fmt.Sprintf("%s. %s offset=%.1f", i.Term, i.Truth, i.OccurrenceTimeOffset)
}
