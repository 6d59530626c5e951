package factorop

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/factorop/distribution"
)

// NotOp computes messages for not = !b. Negation flips the sign of the
// log odds, which is exact for both inference algorithms.
type NotOp struct{}

// NotAverageConditional returns the message to not.
func (NotOp) NotAverageConditional(b *distribution.Bernoulli) *distribution.Bernoulli {
	return distribution.BernoulliFromLogOdds(-b.LogOdds)
}

// BAverageConditional returns the message to b.
func (NotOp) BAverageConditional(not *distribution.Bernoulli) *distribution.Bernoulli {
	return distribution.BernoulliFromLogOdds(-not.LogOdds)
}

func (op NotOp) LogAverageFactor(not, b *distribution.Bernoulli) float64 {
	return not.GetLogAverageOf(op.NotAverageConditional(b))
}

// LogEvidenceRatio is zero for a random result.
func (NotOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when the result is observed.
func (op NotOp) LogEvidenceRatioObserved(not bool, b *distribution.Bernoulli) float64 {
	return op.NotAverageConditional(b).GetLogProb(not)
}

// NotAverageLogarithm is the variational message to not.
func (op NotOp) NotAverageLogarithm(b *distribution.Bernoulli) *distribution.Bernoulli {
	return op.NotAverageConditional(b)
}

// BAverageLogarithm is the variational message to b.
func (op NotOp) BAverageLogarithm(not *distribution.Bernoulli) *distribution.Bernoulli {
	return op.BAverageConditional(not)
}

// AverageLogFactor is zero for this deterministic factor.
func (NotOp) AverageLogFactor() float64 { return 0 }

// bernoulliFromOdds converts a pair of outcome weights into a message,
// rejecting the all-zero case.
func bernoulliFromOdds(method string, wTrue, wFalse float64) (*distribution.Bernoulli, error) {
	if wTrue == 0 && wFalse == 0 {
		return nil, fmt.Errorf("%v: messages have no common support: %w", method, distribution.ErrAllZero)
	}
	return distribution.BernoulliFromLogOdds(math.Log(wTrue) - math.Log(wFalse)), nil
}

// AndOp computes messages for and = a && b.
type AndOp struct{}

// AndAverageConditional returns the message to and.
func (AndOp) AndAverageConditional(a, b *distribution.Bernoulli) *distribution.Bernoulli {
	return distribution.BernoulliFromProbTrue(a.GetProbTrue() * b.GetProbTrue())
}

// AAverageConditional returns the message to a. When a is false the
// output is false regardless of b, so the false weight integrates b
// out entirely.
func (AndOp) AAverageConditional(and, b *distribution.Bernoulli) (*distribution.Bernoulli, error) {
	pAnd := and.GetProbTrue()
	pb := b.GetProbTrue()
	wTrue := pAnd*pb + (1-pAnd)*(1-pb)
	wFalse := 1 - pAnd
	return bernoulliFromOdds("AAverageConditional", wTrue, wFalse)
}

// BAverageConditional returns the message to b.
func (op AndOp) BAverageConditional(and, a *distribution.Bernoulli) (*distribution.Bernoulli, error) {
	result, err := op.AAverageConditional(and, a)
	if err != nil {
		return nil, fmt.Errorf("BAverageConditional: %v", err)
	}
	return result, nil
}

func (op AndOp) LogAverageFactor(and, a, b *distribution.Bernoulli) float64 {
	return and.GetLogAverageOf(op.AndAverageConditional(a, b))
}

// LogEvidenceRatio is zero for a random result.
func (AndOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when the result is observed.
func (op AndOp) LogEvidenceRatioObserved(and bool, a, b *distribution.Bernoulli) float64 {
	return op.AndAverageConditional(a, b).GetLogProb(and)
}

// AndAverageLogarithm is the variational message to and.
func (op AndOp) AndAverageLogarithm(a, b *distribution.Bernoulli) *distribution.Bernoulli {
	return op.AndAverageConditional(a, b)
}

// AAverageLogarithm is the variational message to a: the incoming log
// odds scaled by the probability that b is true.
func (AndOp) AAverageLogarithm(and, b *distribution.Bernoulli) *distribution.Bernoulli {
	pb := b.GetProbTrue()
	if pb == 0 {
		return distribution.BernoulliUniform()
	}
	return distribution.BernoulliFromLogOdds(and.LogOdds * pb)
}

// BAverageLogarithm is the variational message to b.
func (op AndOp) BAverageLogarithm(and, a *distribution.Bernoulli) *distribution.Bernoulli {
	return op.AAverageLogarithm(and, a)
}

// AverageLogFactor is zero for this deterministic factor.
func (AndOp) AverageLogFactor() float64 { return 0 }

// OrOp computes messages for or = a || b.
type OrOp struct{}

// OrAverageConditional returns the message to or.
func (OrOp) OrAverageConditional(a, b *distribution.Bernoulli) *distribution.Bernoulli {
	pa, pb := a.GetProbTrue(), b.GetProbTrue()
	return distribution.BernoulliFromProbTrue(1 - (1-pa)*(1-pb))
}

// AAverageConditional returns the message to a.
func (OrOp) AAverageConditional(or, b *distribution.Bernoulli) (*distribution.Bernoulli, error) {
	pOr := or.GetProbTrue()
	pb := b.GetProbTrue()
	wTrue := pOr
	wFalse := pOr*pb + (1-pOr)*(1-pb)
	return bernoulliFromOdds("AAverageConditional", wTrue, wFalse)
}

// BAverageConditional returns the message to b.
func (op OrOp) BAverageConditional(or, a *distribution.Bernoulli) (*distribution.Bernoulli, error) {
	result, err := op.AAverageConditional(or, a)
	if err != nil {
		return nil, fmt.Errorf("BAverageConditional: %v", err)
	}
	return result, nil
}

func (op OrOp) LogAverageFactor(or, a, b *distribution.Bernoulli) float64 {
	return or.GetLogAverageOf(op.OrAverageConditional(a, b))
}

// LogEvidenceRatio is zero for a random result.
func (OrOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when the result is observed.
func (op OrOp) LogEvidenceRatioObserved(or bool, a, b *distribution.Bernoulli) float64 {
	return op.OrAverageConditional(a, b).GetLogProb(or)
}

// OrAverageLogarithm is the variational message to or.
func (op OrOp) OrAverageLogarithm(a, b *distribution.Bernoulli) *distribution.Bernoulli {
	return op.OrAverageConditional(a, b)
}

// AAverageLogarithm is the variational message to a: the incoming log
// odds scaled by the probability that b is false.
func (OrOp) AAverageLogarithm(or, b *distribution.Bernoulli) *distribution.Bernoulli {
	pNotB := 1 - b.GetProbTrue()
	if pNotB == 0 {
		return distribution.BernoulliUniform()
	}
	return distribution.BernoulliFromLogOdds(or.LogOdds * pNotB)
}

// BAverageLogarithm is the variational message to b.
func (op OrOp) BAverageLogarithm(or, a *distribution.Bernoulli) *distribution.Bernoulli {
	return op.AAverageLogarithm(or, a)
}

// AverageLogFactor is zero for this deterministic factor.
func (OrOp) AverageLogFactor() float64 { return 0 }

// AreEqualOp computes messages for areEqual = (a == b) over booleans.
type AreEqualOp struct{}

// AreEqualAverageConditional returns the message to areEqual.
func (AreEqualOp) AreEqualAverageConditional(a, b *distribution.Bernoulli) *distribution.Bernoulli {
	pa, pb := a.GetProbTrue(), b.GetProbTrue()
	return distribution.BernoulliFromProbTrue(pa*pb + (1-pa)*(1-pb))
}

// AAverageConditional returns the message to a.
func (AreEqualOp) AAverageConditional(areEqual, b *distribution.Bernoulli) (*distribution.Bernoulli, error) {
	pEq := areEqual.GetProbTrue()
	pb := b.GetProbTrue()
	wTrue := pEq*pb + (1-pEq)*(1-pb)
	wFalse := pEq*(1-pb) + (1-pEq)*pb
	return bernoulliFromOdds("AAverageConditional", wTrue, wFalse)
}

// BAverageConditional returns the message to b.
func (op AreEqualOp) BAverageConditional(areEqual, a *distribution.Bernoulli) (*distribution.Bernoulli, error) {
	result, err := op.AAverageConditional(areEqual, a)
	if err != nil {
		return nil, fmt.Errorf("BAverageConditional: %v", err)
	}
	return result, nil
}

func (op AreEqualOp) LogAverageFactor(areEqual, a, b *distribution.Bernoulli) float64 {
	return areEqual.GetLogAverageOf(op.AreEqualAverageConditional(a, b))
}

// LogEvidenceRatio is zero for a random result.
func (AreEqualOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when the result is observed.
func (op AreEqualOp) LogEvidenceRatioObserved(areEqual bool, a, b *distribution.Bernoulli) float64 {
	return op.AreEqualAverageConditional(a, b).GetLogProb(areEqual)
}

// AreEqualAverageLogarithm is the variational message to areEqual.
func (op AreEqualOp) AreEqualAverageLogarithm(a, b *distribution.Bernoulli) *distribution.Bernoulli {
	return op.AreEqualAverageConditional(a, b)
}

// AAverageLogarithm is the variational message to a: the incoming log
// odds scaled by E[b] - E[!b].
func (AreEqualOp) AAverageLogarithm(areEqual, b *distribution.Bernoulli) *distribution.Bernoulli {
	scale := 2*b.GetProbTrue() - 1
	if scale == 0 {
		return distribution.BernoulliUniform()
	}
	return distribution.BernoulliFromLogOdds(areEqual.LogOdds * scale)
}

// BAverageLogarithm is the variational message to b.
func (op AreEqualOp) BAverageLogarithm(areEqual, a *distribution.Bernoulli) *distribution.Bernoulli {
	return op.AAverageLogarithm(areEqual, a)
}

// AverageLogFactor is zero for this deterministic factor.
func (AreEqualOp) AverageLogFactor() float64 { return 0 }
