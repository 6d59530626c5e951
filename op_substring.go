package factorop

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/factorop/distribution"
)

// SubstringOp computes messages for the factor
// sub = Substring(str, start, length) with observed start and length,
// over string distributions held as weighted automata. The message to
// sub projects the str automaton onto the rune positions
// [start, start+length): a forward pass marginalizes the first start
// runes, a linear solve supplies the total weight of every suffix, and
// the automaton in between is unrolled for exactly length runes. The
// message to str concatenates arbitrary-prefix and arbitrary-suffix
// automata around the sub message. Strings too short for the window
// carry zero weight.
type SubstringOp struct{}

func checkSubstringBounds(start, length int) error {
	if start < 0 || length < 0 {
		return fmt.Errorf("start %v and length %v must be nonnegative", start, length)
	}
	return nil
}

// SubAverageConditional fills result with the message to sub, the
// distribution of str's runes [start, start+length).
func (SubstringOp) SubAverageConditional(str *distribution.StringDistribution, start, length int, result *distribution.StringDistribution) (*distribution.StringDistribution, error) {
	if err := checkSubstringBounds(start, length); err != nil {
		return result, fmt.Errorf("SubAverageConditional: %v", err)
	}
	if str.IsPointMass() {
		runes := []rune(str.Point())
		if start+length > len(runes) {
			return result, fmt.Errorf("SubAverageConditional: substring [%v, %v) extends past the string: %w",
				start, start+length, distribution.ErrAllZero)
		}
		result.SetToPointMass(string(runes[start : start+length]))
		return result, nil
	}
	if str.IsUniform() {
		result.SetTo(distribution.StringAnyOfLength(length))
		return result, nil
	}

	n := str.NumStates()
	// Transition weight between states with the rune marginalized out;
	// every character distribution carries unit mass.
	transition := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for _, t := range str.Transitions(i) {
			transition.Set(i, t.Dest, transition.At(i, t.Dest)+math.Exp(t.LogWeight))
		}
	}
	alpha := mat.NewVecDense(n, nil)
	alpha.SetVec(0, 1)
	next := mat.NewVecDense(n, nil)
	for k := 0; k < start; k++ {
		next.MulVec(transition.T(), alpha)
		alpha, next = next, alpha
	}
	suffix, err := str.SuffixLogWeights()
	if err != nil {
		return result, fmt.Errorf("SubAverageConditional: %v", err)
	}

	if length == 0 {
		total := math.Inf(-1)
		for i := 0; i < n; i++ {
			if alpha.AtVec(i) > 0 {
				total = distribution.LogSumExp(total, math.Log(alpha.AtVec(i))+suffix[i])
			}
		}
		if math.IsInf(total, -1) {
			return result, fmt.Errorf("SubAverageConditional: str has no strings of length at least %v: %w",
				start, distribution.ErrAllZero)
		}
		// The empty string, weighted by the mass of strings long
		// enough to reach the window.
		out := distribution.NewStringAutomaton(1)
		out.SetEndLogWeight(0, total)
		result.SetTo(out)
		return result, nil
	}

	out := distribution.NewStringAutomaton(1 + length*n)
	state := func(level, i int) int { return 1 + (level-1)*n + i }
	reached := false
	for i := 0; i < n; i++ {
		if alpha.AtVec(i) <= 0 {
			continue
		}
		logAlpha := math.Log(alpha.AtVec(i))
		for _, t := range str.Transitions(i) {
			out.AddTransition(0, t.Chars, logAlpha+t.LogWeight, state(1, t.Dest))
			reached = true
		}
	}
	if !reached {
		return result, fmt.Errorf("SubAverageConditional: str has no strings of length at least %v: %w",
			start+length, distribution.ErrAllZero)
	}
	for level := 1; level < length; level++ {
		for i := 0; i < n; i++ {
			for _, t := range str.Transitions(i) {
				out.AddTransition(state(level, i), t.Chars, t.LogWeight, state(level+1, t.Dest))
			}
		}
	}
	for i := 0; i < n; i++ {
		out.SetEndLogWeight(state(length, i), suffix[i])
	}
	result.SetTo(out)
	return result, nil
}

// StrAverageConditional fills result with the message to str: any
// start runes, then a string drawn from the sub message restricted to
// the window length, then anything.
func (SubstringOp) StrAverageConditional(sub *distribution.StringDistribution, start, length int, result *distribution.StringDistribution) (*distribution.StringDistribution, error) {
	if err := checkSubstringBounds(start, length); err != nil {
		return result, fmt.Errorf("StrAverageConditional: %v", err)
	}
	var middle *distribution.StringDistribution
	switch {
	case sub.IsPointMass():
		if got := len([]rune(sub.Point())); got != length {
			return result, fmt.Errorf("StrAverageConditional: point sub message has length %v, want %v: %w",
				got, length, distribution.ErrAllZero)
		}
		middle = distribution.StringPointMass(sub.Point())
	case sub.IsUniform():
		middle = distribution.StringAnyOfLength(length)
	default:
		middle = new(distribution.StringDistribution)
		middle.SetToProduct(sub, distribution.StringAnyOfLength(length))
	}
	prefixed := new(distribution.StringDistribution)
	prefixed.SetToConcatenation(distribution.StringAnyOfLength(start), middle)
	full := new(distribution.StringDistribution)
	full.SetToConcatenation(prefixed, distribution.StringUniform())
	result.SetTo(full)
	return result, nil
}

// LogAverageFactor returns the log of the average factor value. A str
// whose support is entirely shorter than the window gives -Inf. The
// improper uniform str contributes zero by convention.
func (op SubstringOp) LogAverageFactor(sub, str *distribution.StringDistribution, start, length int) (float64, error) {
	if str.IsUniform() {
		return 0, nil
	}
	toSub, err := op.SubAverageConditional(str, start, length, new(distribution.StringDistribution))
	if errors.Is(err, distribution.ErrAllZero) {
		return math.Inf(-1), nil
	}
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	return sub.GetLogAverageOf(toSub) + toSub.GetLogNormalizer() - str.GetLogNormalizer(), nil
}

// LogAverageFactorObserved is the evidence for an observed sub.
func (op SubstringOp) LogAverageFactorObserved(sub string, str *distribution.StringDistribution, start, length int) (float64, error) {
	if str.IsUniform() {
		if len([]rune(sub)) == length {
			return 0, nil
		}
		return math.Inf(-1), nil
	}
	toSub, err := op.SubAverageConditional(str, start, length, new(distribution.StringDistribution))
	if errors.Is(err, distribution.ErrAllZero) {
		return math.Inf(-1), nil
	}
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactorObserved: %v", err)
	}
	return toSub.GetLogValue(sub) - str.GetLogNormalizer(), nil
}

// LogEvidenceRatio is zero for a random sub: the message to it is
// exact, so the numerator and denominator of the ratio coincide.
func (SubstringOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when sub is observed.
func (op SubstringOp) LogEvidenceRatioObserved(sub string, str *distribution.StringDistribution, start, length int) (float64, error) {
	return op.LogAverageFactorObserved(sub, str, start, length)
}
