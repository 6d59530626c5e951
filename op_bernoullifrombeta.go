package factorop

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/factorop/distribution"
)

// BernoulliFromBetaOp computes messages for the factor
// sample ~ Bernoulli(probTrue) with probTrue drawn from a Beta. An
// observed sample adds one pseudo-count to the matching side. A random
// sample makes the probTrue posterior a two-component mixture of
// incremented Betas; the posterior is projected back by matching mean
// and variance, then divided by the incoming probTrue message.
//
// AllowImproperSum keeps the projected message even when the division
// leaves nonpositive pseudo-counts. Otherwise the lower-weight mixture
// component is removed, which reduces to the exact conjugate update.
type BernoulliFromBetaOp struct {
	AllowImproperSum bool
}

// SampleAverageConditional returns the message to sample with
// probability of true E[probTrue].
func (BernoulliFromBetaOp) SampleAverageConditional(probTrue *distribution.Beta) (*distribution.Bernoulli, error) {
	if probTrue.IsPointMass() {
		return distribution.BernoulliFromProbTrue(probTrue.Point()), nil
	}
	if !probTrue.IsProper() {
		return nil, fmt.Errorf("SampleAverageConditional: probTrue message is improper: %w", distribution.ErrImproper)
	}
	return distribution.BernoulliFromProbTrue(probTrue.GetMean()), nil
}

// ProbTrueAverageConditional fills result with the message to
// probTrue.
func (op BernoulliFromBetaOp) ProbTrueAverageConditional(sample *distribution.Bernoulli, probTrue *distribution.Beta, result *distribution.Beta) (*distribution.Beta, error) {
	if probTrue.IsPointMass() || sample.IsUniform() {
		result.SetToUniform()
		return result, nil
	}
	if sample.IsPointMass() {
		return op.ProbTrueAverageConditionalObserved(sample.Point(), result)
	}
	if !probTrue.IsProper() {
		return result, fmt.Errorf("ProbTrueAverageConditional: probTrue message is improper: %w", distribution.ErrImproper)
	}
	weightTrue := sample.GetProbTrue() * probTrue.TrueCount
	weightFalse := sample.GetProbFalse() * probTrue.FalseCount
	total := weightTrue + weightFalse
	if total == 0 {
		return result, fmt.Errorf("ProbTrueAverageConditional: messages have no common support: %w", distribution.ErrAllZero)
	}
	weightTrue /= total
	weightFalse /= total

	for {
		posterior := betaMomentMatch(weightTrue, probTrue)
		result.SetToRatio(posterior, probTrue)
		if op.AllowImproperSum || result.IsProper() {
			return result, nil
		}
		if weightTrue == 0 || weightFalse == 0 {
			// a lone component is the exact conjugate update
			return result, nil
		}
		if weightTrue <= weightFalse {
			weightTrue, weightFalse = 0, 1
		} else {
			weightTrue, weightFalse = 1, 0
		}
	}
}

// ProbTrueAverageConditionalObserved fills result with the conjugate
// update for an observed sample: one extra pseudo-count on its side.
func (BernoulliFromBetaOp) ProbTrueAverageConditionalObserved(sample bool, result *distribution.Beta) (*distribution.Beta, error) {
	if sample {
		result.SetTo(distribution.NewBeta(2, 1))
	} else {
		result.SetTo(distribution.NewBeta(1, 2))
	}
	return result, nil
}

// betaMomentMatch projects the mixture
// weightTrue*Beta(a+1,b) + (1-weightTrue)*Beta(a,b+1) onto a single
// Beta by matching mean and variance.
func betaMomentMatch(weightTrue float64, prior *distribution.Beta) *distribution.Beta {
	a, total := prior.TrueCount, prior.TotalCount()
	mean := (a + weightTrue) / (total + 1)
	meanSquare := (a + 1) * (a + 2*weightTrue) / ((total + 1) * (total + 2))
	return distribution.BetaFromMeanAndVariance(mean, meanSquare-mean*mean)
}

// LogAverageFactor is the evidence for an observed sample: the log of
// the expected probability of its side.
func (BernoulliFromBetaOp) LogAverageFactor(sample bool, probTrue *distribution.Beta) (float64, error) {
	if probTrue.IsPointMass() {
		if sample {
			return math.Log(probTrue.Point()), nil
		}
		return math.Log1p(-probTrue.Point()), nil
	}
	if !probTrue.IsProper() {
		return 0, fmt.Errorf("LogAverageFactor: probTrue message is improper: %w", distribution.ErrImproper)
	}
	mean := probTrue.GetMean()
	if sample {
		return math.Log(mean), nil
	}
	return math.Log1p(-mean), nil
}

// LogAverageFactorRandom is the evidence for a distribution-valued
// sample.
func (op BernoulliFromBetaOp) LogAverageFactorRandom(sample *distribution.Bernoulli, probTrue *distribution.Beta) (float64, error) {
	if sample.IsPointMass() {
		logZ, err := op.LogAverageFactor(sample.Point(), probTrue)
		if err != nil {
			return 0, fmt.Errorf("LogAverageFactorRandom: %v", err)
		}
		return logZ, nil
	}
	if !probTrue.IsProper() {
		return 0, fmt.Errorf("LogAverageFactorRandom: probTrue message is improper: %w", distribution.ErrImproper)
	}
	mean := probTrue.GetMean()
	return math.Log(sample.GetProbTrue()*mean + sample.GetProbFalse()*(1-mean)), nil
}

// LogEvidenceRatio is zero for a random sample.
func (BernoulliFromBetaOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when sample is observed.
func (op BernoulliFromBetaOp) LogEvidenceRatioObserved(sample bool, probTrue *distribution.Beta) (float64, error) {
	logZ, err := op.LogAverageFactor(sample, probTrue)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioObserved: %v", err)
	}
	return logZ, nil
}

// SampleAverageLogarithm returns the variational message to sample,
// with log-odds E[log probTrue] - E[log(1-probTrue)].
func (BernoulliFromBetaOp) SampleAverageLogarithm(probTrue *distribution.Beta) (*distribution.Bernoulli, error) {
	if probTrue.IsPointMass() {
		return distribution.BernoulliFromProbTrue(probTrue.Point()), nil
	}
	if !probTrue.IsProper() {
		return nil, fmt.Errorf("SampleAverageLogarithm: probTrue message is improper: %w", distribution.ErrImproper)
	}
	meanLogP, meanLogQ := probTrue.GetMeanLogs()
	return distribution.BernoulliFromLogOdds(meanLogP - meanLogQ), nil
}

// ProbTrueAverageLogarithm fills result with the variational message
// to probTrue, incrementing each side by its expected occupancy.
func (BernoulliFromBetaOp) ProbTrueAverageLogarithm(sample *distribution.Bernoulli, result *distribution.Beta) (*distribution.Beta, error) {
	result.TrueCount = 1 + sample.GetProbTrue()
	result.FalseCount = 1 + sample.GetProbFalse()
	return result, nil
}

// ProbTrueAverageLogarithmObserved fills result with the variational
// message for an observed sample, which is the conjugate update.
func (op BernoulliFromBetaOp) ProbTrueAverageLogarithmObserved(sample bool, result *distribution.Beta) (*distribution.Beta, error) {
	return op.ProbTrueAverageConditionalObserved(sample, result)
}

// AverageLogFactor is the expected log-factor for an observed sample.
func (BernoulliFromBetaOp) AverageLogFactor(sample bool, probTrue *distribution.Beta) (float64, error) {
	if !probTrue.IsPointMass() && !probTrue.IsProper() {
		return 0, fmt.Errorf("AverageLogFactor: probTrue message is improper: %w", distribution.ErrImproper)
	}
	meanLogP, meanLogQ := probTrue.GetMeanLogs()
	if sample {
		return meanLogP, nil
	}
	return meanLogQ, nil
}

// AverageLogFactorRandom is the expected log-factor for a
// distribution-valued sample.
func (BernoulliFromBetaOp) AverageLogFactorRandom(sample *distribution.Bernoulli, probTrue *distribution.Beta) (float64, error) {
	if !probTrue.IsPointMass() && !probTrue.IsProper() {
		return 0, fmt.Errorf("AverageLogFactorRandom: probTrue message is improper: %w", distribution.ErrImproper)
	}
	meanLogP, meanLogQ := probTrue.GetMeanLogs()
	sum := 0.0
	if p := sample.GetProbTrue(); p > 0 {
		sum += p * meanLogP
	}
	if p := sample.GetProbFalse(); p > 0 {
		sum += p * meanLogQ
	}
	return sum, nil
}
