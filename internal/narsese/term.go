// Package narsese implements the term model of the reasoner: atoms, binary
// compound terms joined by a copula, and the unary set and negation forms.
//
// Terms are immutable values. Compound terms share their children, so copying
// a Term is cheap and never aliases mutable state.
package narsese

import (
	"strings"
)

// Copula identifies how the components of a compound term are related.
type Copula string

const (
	CopulaNone          Copula = ""
	Inheritance         Copula = "-->"
	Similarity          Copula = "<->"
	Implication         Copula = "==>"
	TemporalImplication Copula = "=/>"
	Sequence            Copula = "&/"
	Conjunction         Copula = "&&"
	Product             Copula = "*"
	ExtSet              Copula = "{}"
	IntSet              Copula = "[]"
	Negation            Copula = "--"
)

// SelfAtom names the system itself in operation arguments.
const SelfAtom = "SELF"

// Term is an atom or a compound term.
// The zero value is the empty term.
type Term struct {
	atom   string
	copula Copula
	left   *Term
	right  *Term
}

// Atom creates an atomic term.
func Atom(name string) Term {
	return Term{atom: name}
}

// Compound creates a binary compound term.
func Compound(c Copula, left, right Term) Term {
	l, r := left, right
	return Term{copula: c, left: &l, right: &r}
}

// Unary creates a set or negation term with a single component.
func Unary(c Copula, component Term) Term {
	l := component
	return Term{copula: c, left: &l}
}

// Statement is shorthand for Compound used with statement copulas.
func Statement(subject Term, c Copula, predicate Term) Term {
	return Compound(c, subject, predicate)
}

// SequenceOf builds a left-nested sequence ((a &/ b) &/ c) from its
// components in temporal order. A single component is returned unchanged.
func SequenceOf(components ...Term) Term {
	if len(components) == 0 {
		return Term{}
	}
	seq := components[0]
	for _, c := range components[1:] {
		seq = Compound(Sequence, seq, c)
	}
	return seq
}

// IsZero reports whether t is the empty term.
func (t Term) IsZero() bool {
	return t.atom == "" && t.copula == CopulaNone
}

// IsAtom reports whether t is atomic.
func (t Term) IsAtom() bool {
	return t.copula == CopulaNone && t.atom != ""
}

// Name returns the atom name, or "" for compound terms.
func (t Term) Name() string {
	return t.atom
}

// Copula returns the copula of a compound term.
func (t Term) Copula() Copula {
	return t.copula
}

// Left returns the first component (subterm 1). Empty for atoms.
func (t Term) Left() Term {
	if t.left == nil {
		return Term{}
	}
	return *t.left
}

// Right returns the second component (subterm 2). Empty for atoms and unary terms.
func (t Term) Right() Term {
	if t.right == nil {
		return Term{}
	}
	return *t.right
}

// IsStatement reports whether t is a statement (a copula-joined relation).
func (t Term) IsStatement() bool {
	switch t.copula {
	case Inheritance, Similarity, Implication, TemporalImplication:
		return true
	}
	return false
}

// IsUnary reports whether t is a set or negation.
func (t Term) IsUnary() bool {
	switch t.copula {
	case ExtSet, IntSet, Negation:
		return true
	}
	return false
}

// IsSequence reports whether t is a temporal sequence.
func (t Term) IsSequence() bool {
	return t.copula == Sequence
}

// IsImplication reports whether t is an eternal or temporal implication.
func (t Term) IsImplication() bool {
	return t.copula == Implication || t.copula == TemporalImplication
}

// Equal reports structural equality.
func (t Term) Equal(o Term) bool {
	if t.atom != o.atom || t.copula != o.copula {
		return false
	}
	if (t.left == nil) != (o.left == nil) || (t.right == nil) != (o.right == nil) {
		return false
	}
	if t.left != nil && !t.left.Equal(*o.left) {
		return false
	}
	if t.right != nil && !t.right.Equal(*o.right) {
		return false
	}
	return true
}

// String renders the canonical Narsese form. It is also the key used to
// index concepts by term.
func (t Term) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t Term) write(b *strings.Builder) {
	switch {
	case t.IsZero():
		return
	case t.IsAtom():
		b.WriteString(t.atom)
	case t.copula == ExtSet:
		b.WriteByte('{')
		t.left.write(b)
		b.WriteByte('}')
	case t.copula == IntSet:
		b.WriteByte('[')
		t.left.write(b)
		b.WriteByte(']')
	case t.copula == Negation:
		b.WriteString("(-- ")
		t.left.write(b)
		b.WriteByte(')')
	case t.IsStatement():
		b.WriteByte('<')
		t.left.write(b)
		b.WriteByte(' ')
		b.WriteString(string(t.copula))
		b.WriteByte(' ')
		t.right.write(b)
		b.WriteByte('>')
	default:
		b.WriteByte('(')
		t.left.write(b)
		b.WriteByte(' ')
		b.WriteString(string(t.copula))
		b.WriteByte(' ')
		t.right.write(b)
		b.WriteByte(')')
	}
}

// Atoms returns the distinct atom names of t in first-occurrence order.
func (t Term) Atoms() []string {
	seen := make(map[string]bool)
	var out []string
	t.walk(func(n Term) {
		if n.IsAtom() && !seen[n.atom] {
			seen[n.atom] = true
			out = append(out, n.atom)
		}
	})
	return out
}

// Complexity counts the nodes of the term tree.
func (t Term) Complexity() int {
	n := 0
	t.walk(func(Term) { n++ })
	return n
}

// WithinComplexity reports whether t fits the compound size bound.
func (t Term) WithinComplexity(max int) bool {
	return t.Complexity() <= max
}

func (t Term) walk(fn func(Term)) {
	if t.IsZero() {
		return
	}
	fn(t)
	if t.left != nil {
		t.left.walk(fn)
	}
	if t.right != nil {
		t.right.walk(fn)
	}
}

// IsVariable reports whether t is a variable atom.
func (t Term) IsVariable() bool {
	return IsVariableName(t.atom)
}

// IsVariableName reports whether an atom name denotes a variable.
func IsVariableName(name string) bool {
	return IsIndependentVar(name) || IsDependentVar(name) || IsQueryVar(name)
}

func IsIndependentVar(name string) bool { return strings.HasPrefix(name, "$") && len(name) > 1 }
func IsDependentVar(name string) bool   { return strings.HasPrefix(name, "#") && len(name) > 1 }
func IsQueryVar(name string) bool       { return strings.HasPrefix(name, "?") && len(name) > 1 }

// HasVariable reports whether t contains a variable of one of the selected kinds.
func (t Term) HasVariable(independent, dependent, query bool) bool {
	found := false
	t.walk(func(n Term) {
		if found || !n.IsAtom() {
			return
		}
		if (independent && IsIndependentVar(n.atom)) ||
			(dependent && IsDependentVar(n.atom)) ||
			(query && IsQueryVar(n.atom)) {
			found = true
		}
	})
	return found
}

// IsOperation reports whether t is an operation: ^op or <(*, args) --> ^op>.
func (t Term) IsOperation() bool {
	return t.OperationName() != ""
}

// OperationName returns the ^-prefixed operator name, or "".
func (t Term) OperationName() string {
	if t.IsAtom() && strings.HasPrefix(t.atom, "^") {
		return t.atom
	}
	if t.copula == Inheritance && t.right != nil && t.right.IsAtom() && strings.HasPrefix(t.right.atom, "^") {
		return t.right.atom
	}
	return ""
}

// PreconditionWithoutOp strips a trailing operation from (A &/ ^op).
func (t Term) PreconditionWithoutOp() Term {
	if t.IsSequence() && t.right != nil && t.right.IsOperation() {
		return *t.left
	}
	return t
}

// SequenceComponents flattens a left-nested sequence into its components,
// earliest first. Non-sequences yield a single component.
func (t Term) SequenceComponents() []Term {
	var rev []Term
	cur := t
	for cur.IsSequence() {
		rev = append(rev, cur.Right())
		cur = cur.Left()
	}
	rev = append(rev, cur)
	out := make([]Term, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out
}

// Replace returns t with every atom for which fn returns (repl, true) replaced.
func (t Term) Replace(fn func(atom string) (Term, bool)) Term {
	if t.IsZero() {
		return t
	}
	if t.IsAtom() {
		if r, ok := fn(t.atom); ok {
			return r
		}
		return t
	}
	out := Term{copula: t.copula}
	if t.left != nil {
		l := t.left.Replace(fn)
		out.left = &l
	}
	if t.right != nil {
		r := t.right.Replace(fn)
		out.right = &r
	}
	return out
}
