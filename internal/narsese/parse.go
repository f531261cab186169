package narsese

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nvandessel/narloop/internal/truth"
)

// ParseError reports a malformed Narsese input.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("narsese: %s at position %d in %q", e.Msg, e.Pos, e.Input)
}

// Sentence is a parsed input line.
type Sentence struct {
	Term    Term
	Goal    bool        // '!' punctuation; '.' is a belief
	Present bool        // ":|:" tense marker; otherwise eternal
	Truth   truth.Truth // truth.Default when omitted
}

// copulas ordered so that longer tokens are tried first.
var copulaTokens = []Copula{Inheritance, Similarity, Implication, TemporalImplication, Sequence, Conjunction, Product}

// ParseTerm parses a single term.
func ParseTerm(s string) (Term, error) {
	p := &parser{in: s}
	t, err := p.term()
	if err != nil {
		return Term{}, err
	}
	p.skipSpace()
	if p.pos != len(p.in) {
		return Term{}, p.errorf("unexpected trailing input")
	}
	return t, nil
}

// MustParseTerm parses s and panics on error. Intended for tests and
// package-level constants.
func MustParseTerm(s string) Term {
	t, err := ParseTerm(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseSentence parses "TERM PUNCT [:|:] [%f;c%]".
func ParseSentence(s string) (Sentence, error) {
	p := &parser{in: strings.TrimSpace(s)}
	t, err := p.term()
	if err != nil {
		return Sentence{}, err
	}
	p.skipSpace()
	if p.pos >= len(p.in) {
		return Sentence{}, p.errorf("missing punctuation")
	}
	sent := Sentence{Term: t, Truth: truth.Default}
	switch p.in[p.pos] {
	case '.':
	case '!':
		sent.Goal = true
	default:
		return Sentence{}, p.errorf("expected '.' or '!'")
	}
	p.pos++
	p.skipSpace()
	if strings.HasPrefix(p.in[p.pos:], ":|:") {
		sent.Present = true
		p.pos += 3
		p.skipSpace()
	}
	if p.pos < len(p.in) && p.in[p.pos] == '%' {
		tv, err := p.truthValue()
		if err != nil {
			return Sentence{}, err
		}
		sent.Truth = tv
		p.skipSpace()
	}
	if p.pos != len(p.in) {
		return Sentence{}, p.errorf("unexpected trailing input")
	}
	return sent, nil
}

type parser struct {
	in  string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Input: p.in, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.in) && (p.in[p.pos] == ' ' || p.in[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) term() (Term, error) {
	p.skipSpace()
	if p.pos >= len(p.in) {
		return Term{}, p.errorf("unexpected end of input")
	}
	switch p.in[p.pos] {
	case '<':
		p.pos++
		return p.infix('>')
	case '(':
		p.pos++
		p.skipSpace()
		if strings.HasPrefix(p.in[p.pos:], "--") && !strings.HasPrefix(p.in[p.pos:], "-->") {
			p.pos += 2
			inner, err := p.term()
			if err != nil {
				return Term{}, err
			}
			if err := p.expect(')'); err != nil {
				return Term{}, err
			}
			return Unary(Negation, inner), nil
		}
		return p.infix(')')
	case '{':
		p.pos++
		inner, err := p.term()
		if err != nil {
			return Term{}, err
		}
		if err := p.expect('}'); err != nil {
			return Term{}, err
		}
		return Unary(ExtSet, inner), nil
	case '[':
		p.pos++
		inner, err := p.term()
		if err != nil {
			return Term{}, err
		}
		if err := p.expect(']'); err != nil {
			return Term{}, err
		}
		return Unary(IntSet, inner), nil
	}
	return p.atom()
}

// infix parses "t1 cop t2 [cop t3 ...]" up to the closing delimiter,
// nesting repeated copulas to the left.
func (p *parser) infix(closing byte) (Term, error) {
	first, err := p.term()
	if err != nil {
		return Term{}, err
	}
	result := first
	var cop Copula
	for {
		p.skipSpace()
		if p.pos < len(p.in) && p.in[p.pos] == closing {
			p.pos++
			return result, nil
		}
		c, ok := p.copula()
		if !ok {
			return Term{}, p.errorf("expected copula")
		}
		if cop != CopulaNone && c != cop {
			return Term{}, p.errorf("mixed copulas %s and %s", cop, c)
		}
		cop = c
		next, err := p.term()
		if err != nil {
			return Term{}, err
		}
		result = Compound(c, result, next)
	}
}

func (p *parser) copula() (Copula, bool) {
	p.skipSpace()
	for _, c := range copulaTokens {
		if strings.HasPrefix(p.in[p.pos:], string(c)) {
			p.pos += len(c)
			return c, true
		}
	}
	return CopulaNone, false
}

func (p *parser) expect(b byte) error {
	p.skipSpace()
	if p.pos >= len(p.in) || p.in[p.pos] != b {
		return p.errorf("expected %q", b)
	}
	p.pos++
	return nil
}

func isAtomByte(b byte) bool {
	return b == '_' || b == '^' || b == '$' || b == '#' || b == '?' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (p *parser) atom() (Term, error) {
	start := p.pos
	for p.pos < len(p.in) && isAtomByte(p.in[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return Term{}, p.errorf("unexpected character %q", p.in[p.pos])
	}
	return Atom(p.in[start:p.pos]), nil
}

func (p *parser) truthValue() (truth.Truth, error) {
	end := strings.IndexByte(p.in[p.pos+1:], '%')
	if end < 0 {
		return truth.Truth{}, p.errorf("unterminated truth value")
	}
	body := p.in[p.pos+1 : p.pos+1+end]
	tv := truth.Default
	parts := strings.Split(body, ";")
	f, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || f < 0 || f > 1 {
		return truth.Truth{}, p.errorf("invalid frequency %q", parts[0])
	}
	tv.Frequency = f
	if len(parts) > 1 {
		c, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || c <= 0 || c >= 1 {
			return truth.Truth{}, p.errorf("invalid confidence %q", parts[1])
		}
		tv.Confidence = c
	}
	p.pos += end + 2
	return tv, nil
}
