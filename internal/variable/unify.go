// Package variable implements unification of terms containing variables,
// substitution, and variable introduction for learned implications.
package variable

import (
	"github.com/nvandessel/narloop/internal/narsese"
)

// Substitution is a variable->term binding map produced by Unify.
// A failed unification has Success == false; that is an expected outcome
// ("no match"), not an error.
type Substitution struct {
	Success  bool
	Bindings map[string]narsese.Term
}

// Unify matches general against specific. Variables in general bind to
// the corresponding subterms of specific; every other node must match
// exactly. Repeated variables must bind consistently.
func Unify(general, specific narsese.Term) Substitution {
	subs := Substitution{Bindings: make(map[string]narsese.Term)}
	subs.Success = unify(general, specific, subs.Bindings)
	if !subs.Success {
		subs.Bindings = nil
	}
	return subs
}

func unify(g, s narsese.Term, bindings map[string]narsese.Term) bool {
	if g.IsAtom() && g.IsVariable() {
		if bound, ok := bindings[g.Name()]; ok {
			return bound.Equal(s)
		}
		bindings[g.Name()] = s
		return true
	}
	if g.IsAtom() || s.IsAtom() {
		return g.Equal(s)
	}
	if g.Copula() != s.Copula() {
		return false
	}
	if !unify(g.Left(), s.Left(), bindings) {
		return false
	}
	if g.IsUnary() {
		return true
	}
	return unify(g.Right(), s.Right(), bindings)
}

// Apply substitutes the bound variables of subs into term. It fails when
// the substitution itself failed or the result exceeds maxComplexity
// (maxComplexity <= 0 disables the bound).
func Apply(term narsese.Term, subs Substitution, maxComplexity int) (narsese.Term, bool) {
	if !subs.Success {
		return term, false
	}
	out := term.Replace(func(atom string) (narsese.Term, bool) {
		if !narsese.IsVariableName(atom) {
			return narsese.Term{}, false
		}
		repl, ok := subs.Bindings[atom]
		return repl, ok
	})
	if maxComplexity > 0 && !out.WithinComplexity(maxComplexity) {
		return term, false
	}
	return out, true
}
