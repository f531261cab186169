// Package truth implements the NAL truth-value calculus used by the
// reasoner: expectation, temporal projection, revision and the
// truth functions of the inference rules.
package truth

import (
	"fmt"
	"math"
)

// MaxConfidence caps revised confidence so evidence never becomes certain.
const MaxConfidence = 0.99

// Truth is a frequency/confidence pair.
type Truth struct {
	Frequency  float64 `json:"frequency" yaml:"frequency"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Default is the truth value of input events without an explicit truth.
var Default = Truth{Frequency: 1.0, Confidence: 0.9}

// Structural is the premise truth used by structural rules.
var Structural = Truth{Frequency: 1.0, Confidence: 0.9}

// Params holds the calculus parameters.
type Params struct {
	// EvidentialHorizon (k) weighs future evidence. Default: 1.
	EvidentialHorizon float64

	// ProjectionDecay is the per-time-unit confidence retention when a
	// dated truth is projected to another time. Default: 0.8.
	ProjectionDecay float64
}

// DefaultParams returns the standard calculus parameters.
func DefaultParams() Params {
	return Params{EvidentialHorizon: 1.0, ProjectionDecay: 0.8}
}

func (t Truth) String() string {
	return fmt.Sprintf("%%%.6f;%.6f%%", t.Frequency, t.Confidence)
}

// Expectation maps a truth value to [0,1].
func Expectation(t Truth) float64 {
	return t.Confidence*(t.Frequency-0.5) + 0.5
}

// W2C converts evidence weight to confidence.
func (p Params) W2C(w float64) float64 {
	return w / (w + p.EvidentialHorizon)
}

// C2W converts confidence to evidence weight.
func (p Params) C2W(c float64) float64 {
	return p.EvidentialHorizon * c / (1 - c)
}

// Eternal marks an event without occurrence time.
const Eternal int64 = math.MinInt64

// Projection discounts confidence by the temporal distance between the
// source and target times. Eternal endpoints leave the truth unchanged.
func (p Params) Projection(t Truth, from, to int64) Truth {
	if from == Eternal || to == Eternal {
		return t
	}
	diff := from - to
	if diff < 0 {
		diff = -diff
	}
	return Truth{
		Frequency:  t.Frequency,
		Confidence: t.Confidence * math.Pow(p.ProjectionDecay, float64(diff)),
	}
}

// Eternalize converts a dated truth into its eternal counterpart.
func (p Params) Eternalize(t Truth) Truth {
	return Truth{Frequency: t.Frequency, Confidence: p.W2C(t.Confidence)}
}

// Revision pools the evidence of two truths with independent stamps.
func (p Params) Revision(a, b Truth) Truth {
	w1 := p.C2W(a.Confidence)
	w2 := p.C2W(b.Confidence)
	w := w1 + w2
	if w == 0 {
		return a
	}
	return Truth{
		Frequency:  clamp01((w1*a.Frequency + w2*b.Frequency) / w),
		Confidence: math.Min(MaxConfidence, p.W2C(w)),
	}
}

// Deduction: {A ==> B, A} |- B.
func (p Params) Deduction(a, b Truth) Truth {
	f := a.Frequency * b.Frequency
	return Truth{Frequency: f, Confidence: f * a.Confidence * b.Confidence}
}

// StructuralDeduction applies deduction against the structural premise.
func (p Params) StructuralDeduction(a Truth) Truth {
	return p.Deduction(a, Structural)
}

// Abduction: {P ==> M, S ==> M} |- S ==> P.
func (p Params) Abduction(a, b Truth) Truth {
	w := b.Frequency * a.Confidence * b.Confidence
	return Truth{Frequency: a.Frequency, Confidence: p.W2C(w)}
}

// Induction is abduction with the premises swapped.
func (p Params) Induction(a, b Truth) Truth {
	return p.Abduction(b, a)
}

// Intersection conjoins two truths.
func (p Params) Intersection(a, b Truth) Truth {
	return Truth{Frequency: a.Frequency * b.Frequency, Confidence: a.Confidence * b.Confidence}
}

// Comparison: {M --> P, M --> S} |- S <-> P.
func (p Params) Comparison(a, b Truth) Truth {
	f0 := a.Frequency + b.Frequency - a.Frequency*b.Frequency
	f := 0.0
	if f0 != 0 {
		f = a.Frequency * b.Frequency / f0
	}
	return Truth{Frequency: f, Confidence: p.W2C(f0 * a.Confidence * b.Confidence)}
}

// Negation flips the frequency.
func (p Params) Negation(a Truth) Truth {
	return Truth{Frequency: 1 - a.Frequency, Confidence: a.Confidence}
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
