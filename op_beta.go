package factorop

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/factorop/distribution"
)

// BetaFromTrueAndFalseCountsOp computes messages for the factor
// sample ~ Beta(trueCount, falseCount) with observed counts. The factor
// acts as a Beta prior on sample, so the message to sample is the
// factor itself and evidence reduces to the Beta log density.
type BetaFromTrueAndFalseCountsOp struct{}

// SampleAverageConditional returns the Beta with the given counts.
func (BetaFromTrueAndFalseCountsOp) SampleAverageConditional(trueCount, falseCount float64) (*distribution.Beta, error) {
	if trueCount <= 0 || falseCount <= 0 {
		return nil, fmt.Errorf("SampleAverageConditional: counts (%v, %v) are not positive: %w",
			trueCount, falseCount, distribution.ErrImproper)
	}
	return distribution.NewBeta(trueCount, falseCount), nil
}

// SampleAverageLogarithm returns the variational message to sample.
// For observed counts it coincides with the conditional message.
func (op BetaFromTrueAndFalseCountsOp) SampleAverageLogarithm(trueCount, falseCount float64) (*distribution.Beta, error) {
	return op.SampleAverageConditional(trueCount, falseCount)
}

// LogAverageFactor is the evidence for an observed sample.
func (op BetaFromTrueAndFalseCountsOp) LogAverageFactor(sample, trueCount, falseCount float64) (float64, error) {
	prior, err := op.SampleAverageConditional(trueCount, falseCount)
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	return prior.GetLogProb(sample), nil
}

// LogAverageFactorRandom is the evidence for a distribution-valued
// sample.
func (op BetaFromTrueAndFalseCountsOp) LogAverageFactorRandom(sample *distribution.Beta, trueCount, falseCount float64) (float64, error) {
	prior, err := op.SampleAverageConditional(trueCount, falseCount)
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactorRandom: %v", err)
	}
	return prior.GetLogAverageOf(sample), nil
}

// LogEvidenceRatio is zero for a random sample.
func (BetaFromTrueAndFalseCountsOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when sample is observed.
func (op BetaFromTrueAndFalseCountsOp) LogEvidenceRatioObserved(sample, trueCount, falseCount float64) (float64, error) {
	logZ, err := op.LogAverageFactor(sample, trueCount, falseCount)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioObserved: %v", err)
	}
	return logZ, nil
}

// AverageLogFactor is the expected log density of sample under the
// factor.
func (op BetaFromTrueAndFalseCountsOp) AverageLogFactor(sample *distribution.Beta, trueCount, falseCount float64) (float64, error) {
	prior, err := op.SampleAverageConditional(trueCount, falseCount)
	if err != nil {
		return 0, fmt.Errorf("AverageLogFactor: %v", err)
	}
	return sample.GetAverageLog(prior), nil
}

// BetaOp computes messages for the factor
// sample ~ Beta(trueCount, falseCount) with Gamma-distributed counts.
// Observed counts reduce to BetaFromTrueAndFalseCountsOp. Random
// counts are supported under the variational algorithm only: the count
// messages match the derivatives of the expected log factor at the
// current count means, with the other count held at its mean.
//
// ForceProper drops the curvature term of a count message when the
// derivative match alone would be improper.
type BetaOp struct {
	ForceProper bool
}

// SampleAverageConditional returns the message to sample for observed
// counts.
func (BetaOp) SampleAverageConditional(trueCount, falseCount float64) (*distribution.Beta, error) {
	sample, err := BetaFromTrueAndFalseCountsOp{}.SampleAverageConditional(trueCount, falseCount)
	if err != nil {
		return nil, fmt.Errorf("SampleAverageConditional: %v", err)
	}
	return sample, nil
}

// TrueCountAverageConditional is not defined: a Gamma-distributed
// count has no conjugate update outside the variational algorithm.
func (BetaOp) TrueCountAverageConditional(sample *distribution.Beta, falseCount *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	return result, fmt.Errorf("TrueCountAverageConditional: random counts need the variational message: %w",
		distribution.ErrNotSupported)
}

// FalseCountAverageConditional is not defined, as for
// TrueCountAverageConditional.
func (BetaOp) FalseCountAverageConditional(sample *distribution.Beta, trueCount *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	return result, fmt.Errorf("FalseCountAverageConditional: random counts need the variational message: %w",
		distribution.ErrNotSupported)
}

// SampleAverageLogarithm returns the variational message to sample,
// the Beta at the expected counts.
func (BetaOp) SampleAverageLogarithm(trueCount, falseCount *distribution.Gamma) (*distribution.Beta, error) {
	if !trueCount.IsPointMass() && !trueCount.IsProper() {
		return nil, fmt.Errorf("SampleAverageLogarithm: trueCount message is improper: %w", distribution.ErrImproper)
	}
	if !falseCount.IsPointMass() && !falseCount.IsProper() {
		return nil, fmt.Errorf("SampleAverageLogarithm: falseCount message is improper: %w", distribution.ErrImproper)
	}
	return distribution.NewBeta(trueCount.GetMean(), falseCount.GetMean()), nil
}

// SampleAverageLogarithmObserved returns the variational message to
// sample for observed counts.
func (BetaOp) SampleAverageLogarithmObserved(trueCount, falseCount float64) (*distribution.Beta, error) {
	sample, err := BetaFromTrueAndFalseCountsOp{}.SampleAverageLogarithm(trueCount, falseCount)
	if err != nil {
		return nil, fmt.Errorf("SampleAverageLogarithmObserved: %v", err)
	}
	return sample, nil
}

// TrueCountAverageLogarithm returns the variational message to
// trueCount.
func (op BetaOp) TrueCountAverageLogarithm(sample *distribution.Beta, trueCount, falseCount *distribution.Gamma) (*distribution.Gamma, error) {
	meanLogP, _ := sample.GetMeanLogs()
	msg, err := op.countAverageLogarithm(meanLogP, trueCount, falseCount)
	if err != nil {
		return nil, fmt.Errorf("TrueCountAverageLogarithm: %v", err)
	}
	return msg, nil
}

// FalseCountAverageLogarithm returns the variational message to
// falseCount.
func (op BetaOp) FalseCountAverageLogarithm(sample *distribution.Beta, trueCount, falseCount *distribution.Gamma) (*distribution.Gamma, error) {
	_, meanLogQ := sample.GetMeanLogs()
	msg, err := op.countAverageLogarithm(meanLogQ, falseCount, trueCount)
	if err != nil {
		return nil, fmt.Errorf("FalseCountAverageLogarithm: %v", err)
	}
	return msg, nil
}

// countAverageLogarithm matches a Gamma message to the derivatives of
// the expected log factor with respect to the count, at the count
// means. meanLog is the expected log of the side of sample the count
// governs.
func (op BetaOp) countAverageLogarithm(meanLog float64, count, other *distribution.Gamma) (*distribution.Gamma, error) {
	if !count.IsPointMass() && !count.IsProper() {
		return nil, fmt.Errorf("count message is improper: %w", distribution.ErrImproper)
	}
	if !other.IsPointMass() && !other.IsProper() {
		return nil, fmt.Errorf("count message is improper: %w", distribution.ErrImproper)
	}
	if math.IsInf(meanLog, -1) {
		return nil, fmt.Errorf("sample is at the support boundary: %w", distribution.ErrImproper)
	}
	c := count.GetMean()
	total := c + other.GetMean()
	dlogf := meanLog - distribution.Digamma(c) + distribution.Digamma(total)
	ddlogf := -distribution.Trigamma(c) + distribution.Trigamma(total)
	return GammaFromDerivatives(distribution.GammaUniform(), c, dlogf, ddlogf, op.ForceProper), nil
}

// LogAverageFactor is the evidence for an observed sample and observed
// counts.
func (BetaOp) LogAverageFactor(sample, trueCount, falseCount float64) (float64, error) {
	logZ, err := BetaFromTrueAndFalseCountsOp{}.LogAverageFactor(sample, trueCount, falseCount)
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	return logZ, nil
}

// LogAverageFactorRandom is the evidence for a distribution-valued
// sample with observed counts.
func (BetaOp) LogAverageFactorRandom(sample *distribution.Beta, trueCount, falseCount float64) (float64, error) {
	logZ, err := BetaFromTrueAndFalseCountsOp{}.LogAverageFactorRandom(sample, trueCount, falseCount)
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactorRandom: %v", err)
	}
	return logZ, nil
}

// LogEvidenceRatio is zero for a random sample.
func (BetaOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when sample is observed.
func (op BetaOp) LogEvidenceRatioObserved(sample, trueCount, falseCount float64) (float64, error) {
	logZ, err := op.LogAverageFactor(sample, trueCount, falseCount)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioObserved: %v", err)
	}
	return logZ, nil
}

// AverageLogFactor is the expected log factor under random counts,
// with the log normalizer evaluated at the count means.
func (BetaOp) AverageLogFactor(sample *distribution.Beta, trueCount, falseCount *distribution.Gamma) (float64, error) {
	if !trueCount.IsPointMass() && !trueCount.IsProper() {
		return 0, fmt.Errorf("AverageLogFactor: trueCount message is improper: %w", distribution.ErrImproper)
	}
	if !falseCount.IsPointMass() && !falseCount.IsProper() {
		return 0, fmt.Errorf("AverageLogFactor: falseCount message is improper: %w", distribution.ErrImproper)
	}
	meanLogP, meanLogQ := sample.GetMeanLogs()
	a := trueCount.GetMean()
	b := falseCount.GetMean()
	sum := -distribution.BetaLn(a, b)
	if a != 1 {
		sum += (a - 1) * meanLogP
	}
	if b != 1 {
		sum += (b - 1) * meanLogQ
	}
	return sum, nil
}

// AverageLogFactorObserved is the expected log factor for observed
// counts.
func (BetaOp) AverageLogFactorObserved(sample *distribution.Beta, trueCount, falseCount float64) (float64, error) {
	elbo, err := BetaFromTrueAndFalseCountsOp{}.AverageLogFactor(sample, trueCount, falseCount)
	if err != nil {
		return 0, fmt.Errorf("AverageLogFactorObserved: %v", err)
	}
	return elbo, nil
}
