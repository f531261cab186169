package variable

import (
	"fmt"
	"strings"

	"github.com/nvandessel/narloop/internal/narsese"
)

// maxIntroducedVars bounds the $1..$n names introduced into one implication.
const maxIntroducedVars = 9

// IntroduceImplicationVariables generalizes a learned implication by
// replacing atoms that occur on both sides with independent variables.
// Extensional introduction considers atoms in subject positions of
// inheritance statements, intensional introduction those in predicate
// positions. Operations, SELF and existing variables are never replaced.
// It fails when the term is not an implication or no atom qualifies.
func IntroduceImplicationVariables(imp narsese.Term, extensional bool) (narsese.Term, bool) {
	if !imp.IsImplication() {
		return imp, false
	}
	pre := positionalAtoms(imp.Left(), extensional)
	post := positionalAtoms(imp.Right(), extensional)

	names := make(map[string]narsese.Term)
	for _, atom := range imp.Atoms() {
		if !pre[atom] || !post[atom] {
			continue
		}
		if len(names) == maxIntroducedVars {
			return imp, false
		}
		names[atom] = narsese.Atom(fmt.Sprintf("$%d", len(names)+1))
	}
	if len(names) == 0 {
		return imp, false
	}
	return imp.Replace(func(atom string) (narsese.Term, bool) {
		v, ok := names[atom]
		return v, ok
	}), true
}

// positionalAtoms collects the atoms found in subject (extensional) or
// predicate (intensional) positions of inheritance statements within t.
func positionalAtoms(t narsese.Term, extensional bool) map[string]bool {
	out := make(map[string]bool)
	var visit func(narsese.Term)
	visit = func(n narsese.Term) {
		if n.IsZero() || n.IsAtom() {
			return
		}
		if n.Copula() == narsese.Inheritance {
			side := n.Right()
			if extensional {
				side = n.Left()
			}
			for _, a := range side.Atoms() {
				if replaceable(a) {
					out[a] = true
				}
			}
			return
		}
		visit(n.Left())
		visit(n.Right())
	}
	visit(t)
	return out
}

func replaceable(atom string) bool {
	return atom != narsese.SelfAtom &&
		!strings.HasPrefix(atom, "^") &&
		!narsese.IsVariableName(atom)
}
