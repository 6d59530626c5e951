package factorop

import (
	"fmt"

	"github.com/samuelfneumann/factorop/distribution"
)

// IsGreaterThanOp computes messages for the factor
// isGreaterThan = (a > b) over bounded nonnegative integers. All
// messages reduce to sums over the region i > j, evaluated with a
// running cumulative of one argument.
type IsGreaterThanOp struct{}

// lowerCdf returns cdf[i] = P(x < i) for i in 0..n, so cdf[0] = 0 and
// cdf[n] = 1 up to rounding.
func lowerCdf(d *distribution.Discrete) []float64 {
	n := d.Dimension()
	cdf := make([]float64, n+1)
	for i := 0; i < n; i++ {
		cdf[i+1] = cdf[i] + d.GetProb(i)
	}
	return cdf
}

// IsGreaterThanAverageConditional returns the message to isGreaterThan,
// a Bernoulli with probability P(a > b) under the incoming messages.
func (IsGreaterThanOp) IsGreaterThanAverageConditional(a, b *distribution.Discrete) *distribution.Bernoulli {
	cdfB := lowerCdf(b)
	p := 0.0
	for i := 0; i < a.Dimension(); i++ {
		j := i
		if j > b.Dimension() {
			j = b.Dimension()
		}
		p += a.GetProb(i) * cdfB[j]
	}
	return distribution.BernoulliFromProbTrue(p)
}

// AAverageConditional fills result with the message to a: each value i
// is weighted by the probability that the comparison outcome is
// consistent with it.
func (IsGreaterThanOp) AAverageConditional(isGreaterThan *distribution.Bernoulli, b *distribution.Discrete, result *distribution.Discrete) (*distribution.Discrete, error) {
	pT := isGreaterThan.GetProbTrue()
	pF := 1 - pT
	cdfB := lowerCdf(b)
	prob := make([]float64, result.Dimension())
	total := 0.0
	for i := range prob {
		j := i
		if j > b.Dimension() {
			j = b.Dimension()
		}
		prob[i] = pT*cdfB[j] + pF*(1-cdfB[j])
		total += prob[i]
	}
	if total == 0 {
		return result, fmt.Errorf("AAverageConditional: messages have no common support: %w", distribution.ErrAllZero)
	}
	result.SetProbs(prob)
	return result, nil
}

// BAverageConditional fills result with the message to b.
func (IsGreaterThanOp) BAverageConditional(isGreaterThan *distribution.Bernoulli, a *distribution.Discrete, result *distribution.Discrete) (*distribution.Discrete, error) {
	pT := isGreaterThan.GetProbTrue()
	pF := 1 - pT
	cdfA := lowerCdf(a)
	prob := make([]float64, result.Dimension())
	total := 0.0
	for j := range prob {
		// P(a <= j) taking a's bounded range into account.
		i := j + 1
		if i > a.Dimension() {
			i = a.Dimension()
		}
		atMost := cdfA[i]
		prob[j] = pT*(1-atMost) + pF*atMost
		total += prob[j]
	}
	if total == 0 {
		return result, fmt.Errorf("BAverageConditional: messages have no common support: %w", distribution.ErrAllZero)
	}
	result.SetProbs(prob)
	return result, nil
}

func (op IsGreaterThanOp) LogAverageFactor(isGreaterThan *distribution.Bernoulli, a, b *distribution.Discrete) float64 {
	toOutcome := op.IsGreaterThanAverageConditional(a, b)
	return isGreaterThan.GetLogAverageOf(toOutcome)
}

// LogEvidenceRatio is zero for a random outcome.
func (IsGreaterThanOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when the outcome is
// observed.
func (op IsGreaterThanOp) LogEvidenceRatioObserved(isGreaterThan bool, a, b *distribution.Discrete) float64 {
	toOutcome := op.IsGreaterThanAverageConditional(a, b)
	return toOutcome.GetLogProb(isGreaterThan)
}

// IsGreaterThanAverageLogarithm is the variational message to the
// outcome.
func (op IsGreaterThanOp) IsGreaterThanAverageLogarithm(a, b *distribution.Discrete) *distribution.Bernoulli {
	return op.IsGreaterThanAverageConditional(a, b)
}

// AAverageLogarithm is the variational message to a. The expected log
// of a hard constraint is degenerate unless the outcome and b are point
// masses; then the message is uniform over the consistent values.
func (IsGreaterThanOp) AAverageLogarithm(isGreaterThan *distribution.Bernoulli, b *distribution.Discrete, result *distribution.Discrete) (*distribution.Discrete, error) {
	if !isGreaterThan.IsPointMass() || !b.IsPointMass() {
		return result, fmt.Errorf("AAverageLogarithm: outcome and b must be point masses: %w", distribution.ErrNotSupported)
	}
	b0 := b.Point()
	prob := make([]float64, result.Dimension())
	total := 0.0
	for i := range prob {
		if (i > b0) == isGreaterThan.Point() {
			prob[i] = 1
			total++
		}
	}
	if total == 0 {
		return result, fmt.Errorf("AAverageLogarithm: messages have no common support: %w", distribution.ErrAllZero)
	}
	result.SetProbs(prob)
	return result, nil
}

// BAverageLogarithm is the variational message to b.
func (IsGreaterThanOp) BAverageLogarithm(isGreaterThan *distribution.Bernoulli, a *distribution.Discrete, result *distribution.Discrete) (*distribution.Discrete, error) {
	if !isGreaterThan.IsPointMass() || !a.IsPointMass() {
		return result, fmt.Errorf("BAverageLogarithm: outcome and a must be point masses: %w", distribution.ErrNotSupported)
	}
	a0 := a.Point()
	prob := make([]float64, result.Dimension())
	total := 0.0
	for j := range prob {
		if (a0 > j) == isGreaterThan.Point() {
			prob[j] = 1
			total++
		}
	}
	if total == 0 {
		return result, fmt.Errorf("BAverageLogarithm: messages have no common support: %w", distribution.ErrAllZero)
	}
	result.SetProbs(prob)
	return result, nil
}

// AverageLogFactor is zero for this deterministic factor.
func (IsGreaterThanOp) AverageLogFactor() float64 { return 0 }
