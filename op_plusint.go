package factorop

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/factorop/distribution"
)

// PlusIntOp computes messages for the factor sum = a + b over bounded
// nonnegative integers. A variable with n values ranges over 0..n-1, so
// the sum of an n-valued and an m-valued variable has n+m-1 values. The
// message to sum is the convolution of the incoming messages; the
// messages to the addends are correlations of sum with the other
// addend.
type PlusIntOp struct{}

// SumAverageConditional fills result with the convolution of the
// incoming messages.
func (PlusIntOp) SumAverageConditional(a, b *distribution.Discrete, result *distribution.Discrete) (*distribution.Discrete, error) {
	na, nb := a.Dimension(), b.Dimension()
	if err := checkSameLength("result", result.Dimension(), na+nb-1); err != nil {
		return result, fmt.Errorf("SumAverageConditional: %v", err)
	}
	prob := make([]float64, na+nb-1)
	for s := range prob {
		lo := s - nb + 1
		if lo < 0 {
			lo = 0
		}
		hi := s
		if hi > na-1 {
			hi = na - 1
		}
		for i := lo; i <= hi; i++ {
			prob[s] += a.GetProb(i) * b.GetProb(s-i)
		}
	}
	result.SetProbs(prob)
	return result, nil
}

// AAverageConditional fills result with the message to a, correlating
// the sum message with the message from b.
func (PlusIntOp) AAverageConditional(sum, b *distribution.Discrete, result *distribution.Discrete) (*distribution.Discrete, error) {
	na, nb := result.Dimension(), b.Dimension()
	if err := checkSameLength("sum", sum.Dimension(), na+nb-1); err != nil {
		return result, fmt.Errorf("AAverageConditional: %v", err)
	}
	prob := make([]float64, na)
	total := 0.0
	for i := range prob {
		for j := 0; j < nb; j++ {
			prob[i] += b.GetProb(j) * sum.GetProb(i+j)
		}
		total += prob[i]
	}
	if total == 0 {
		return result, fmt.Errorf("AAverageConditional: messages have no common support: %w", distribution.ErrAllZero)
	}
	result.SetProbs(prob)
	return result, nil
}

// BAverageConditional fills result with the message to b.
func (op PlusIntOp) BAverageConditional(sum, a *distribution.Discrete, result *distribution.Discrete) (*distribution.Discrete, error) {
	result, err := op.AAverageConditional(sum, a, result)
	if err != nil {
		return result, fmt.Errorf("BAverageConditional: %v", err)
	}
	return result, nil
}

// LogAverageFactor is the evidence for fully observed arguments: zero
// when the sum holds and -Inf otherwise.
func (PlusIntOp) LogAverageFactor(sum, a, b int) float64 {
	if sum == a+b {
		return 0
	}
	return math.Inf(-1)
}

// LogAverageFactorRandom is the evidence for distribution-valued
// arguments.
func (op PlusIntOp) LogAverageFactorRandom(sum, a, b *distribution.Discrete) (float64, error) {
	toSum, err := op.SumAverageConditional(a, b, distribution.DiscreteUniform(a.Dimension()+b.Dimension()-1))
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactorRandom: %v", err)
	}
	return sum.GetLogAverageOf(toSum), nil
}

// LogEvidenceRatio is zero for a random sum.
func (PlusIntOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when sum is observed.
func (op PlusIntOp) LogEvidenceRatioObserved(sum int, a, b *distribution.Discrete) (float64, error) {
	toSum, err := op.SumAverageConditional(a, b, distribution.DiscreteUniform(a.Dimension()+b.Dimension()-1))
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioObserved: %v", err)
	}
	if err := checkIndex(sum, toSum.Dimension()); err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioObserved: %v", err)
	}
	return toSum.GetLogProb(sum), nil
}

// SumAverageLogarithm is the variational message to sum. For a
// deterministic factor it coincides with the conditional message.
func (op PlusIntOp) SumAverageLogarithm(a, b *distribution.Discrete, result *distribution.Discrete) (*distribution.Discrete, error) {
	return op.SumAverageConditional(a, b, result)
}

// AAverageLogarithm is the variational message to a. The expected log
// of a hard constraint is degenerate unless both other arguments are
// point masses, so only that case is defined.
func (PlusIntOp) AAverageLogarithm(sum, b *distribution.Discrete, result *distribution.Discrete) (*distribution.Discrete, error) {
	if !sum.IsPointMass() || !b.IsPointMass() {
		return result, fmt.Errorf("AAverageLogarithm: sum and b must be point masses: %w", distribution.ErrNotSupported)
	}
	a := sum.Point() - b.Point()
	if a < 0 || a >= result.Dimension() {
		return result, fmt.Errorf("AAverageLogarithm: messages have no common support: %w", distribution.ErrAllZero)
	}
	result.SetToPointMass(a)
	return result, nil
}

// BAverageLogarithm is the variational message to b.
func (op PlusIntOp) BAverageLogarithm(sum, a *distribution.Discrete, result *distribution.Discrete) (*distribution.Discrete, error) {
	result, err := op.AAverageLogarithm(sum, a, result)
	if err != nil {
		return result, fmt.Errorf("BAverageLogarithm: %v", err)
	}
	return result, nil
}

// AverageLogFactor is zero for this deterministic factor.
func (PlusIntOp) AverageLogFactor() float64 { return 0 }
