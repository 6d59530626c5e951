package factorop

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/factorop/distribution"
)

// PoissonOp computes messages for the factor sample ~ Poisson(mean)
// with mean drawn from a Gamma. An observed sample gives the
// closed-form conjugate update Gamma(sample+1, 1). A random sample
// makes the mean posterior a negative-binomial-weighted mixture of
// Gammas, summed term by term and projected back onto a single Gamma
// by moment matching.
type PoissonOp struct{}

// SampleAverageConditional returns the message to sample, a Poisson at
// the expected mean.
func (PoissonOp) SampleAverageConditional(mean *distribution.Gamma) (*distribution.Poisson, error) {
	if mean.IsPointMass() {
		return distribution.PoissonFromRate(mean.Point()), nil
	}
	if !mean.IsProper() {
		return nil, fmt.Errorf("SampleAverageConditional: mean message is improper: %w", distribution.ErrImproper)
	}
	return distribution.PoissonFromRate(mean.GetMean()), nil
}

// MeanAverageConditional fills result with the message to mean for a
// distribution-valued sample.
func (op PoissonOp) MeanAverageConditional(sample *distribution.Poisson, mean *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	if sample.IsPointMass() {
		result, err := op.MeanAverageConditionalObserved(sample.Point(), result)
		if err != nil {
			return result, fmt.Errorf("MeanAverageConditional: %v", err)
		}
		return result, nil
	}
	if sample.Rate == 0 {
		// the message leaves mass only on a zero count
		result, err := op.MeanAverageConditionalObserved(0, result)
		if err != nil {
			return result, fmt.Errorf("MeanAverageConditional: %v", err)
		}
		return result, nil
	}
	if mean.IsPointMass() || sample.IsUniform() {
		result.SetToUniform()
		return result, nil
	}
	if !mean.IsProper() {
		return result, fmt.Errorf("MeanAverageConditional: mean message is improper: %w", distribution.ErrImproper)
	}
	if nu := sample.Precision; nu < 0 || (nu == 0 && sample.Rate >= mean.Rate+1) {
		return result, fmt.Errorf("MeanAverageConditional: sample message and mean do not normalize: %w", distribution.ErrImproper)
	}
	_, postMean, postMeanSquare := poissonGammaMoments(math.Log(sample.Rate), sample.Precision,
		mean.Shape, mean.Rate)
	posterior := distribution.GammaFromMeanAndVariance(postMean, postMeanSquare-postMean*postMean)
	result.SetToRatio(posterior, mean)
	return result, nil
}

// MeanAverageConditionalObserved fills result with the conjugate
// update for an observed sample.
func (PoissonOp) MeanAverageConditionalObserved(sample int, result *distribution.Gamma) (*distribution.Gamma, error) {
	if sample < 0 {
		return result, fmt.Errorf("MeanAverageConditionalObserved: sample %v is negative", sample)
	}
	result.SetShapeAndRate(float64(sample)+1, 1)
	return result, nil
}

// poissonGammaMoments sums the joint of a COM-Poisson sample message
// with log rate logR and precision nu and a Gamma(shape, rate) mean
// over the sample count. Term x is
//
//	exp(x*logR) / x!^(nu+1) * Gamma(shape+x) / (rate+1)^(shape+x)
//
// It returns the log of the sum and the first two moments of the mean
// under the joint. The caller must ensure the series converges:
// nu > 0, or nu == 0 with exp(logR) < rate+1.
func poissonGammaMoments(logR, nu, shape, rate float64) (logZ, mean, meanSquare float64) {
	logRatePlus1 := math.Log(rate + 1)
	m := math.Inf(-1)
	prev := math.Inf(-1)
	var s, s1, s2 float64
	for x := 0; x <= 100000; x++ {
		fx := float64(x)
		lt := -(nu+1)*distribution.FactorialLn(x) +
			distribution.GammaLn(shape+fx) - (shape+fx)*logRatePlus1
		if x > 0 {
			lt += fx * logR
		}
		if lt > m {
			scale := math.Exp(m - lt)
			s *= scale
			s1 *= scale
			s2 *= scale
			m = lt
		}
		w := math.Exp(lt - m)
		f1 := (shape + fx) / (rate + 1)
		s += w
		s1 += w * f1
		s2 += w * f1 * (shape + fx + 1) / (rate + 1)
		if lt < m-40 && lt < prev {
			break
		}
		prev = lt
	}
	return m + math.Log(s), s1 / s, s2 / s
}

// LogAverageFactor is the evidence for an observed sample: the log of
// the negative binomial marginal.
func (PoissonOp) LogAverageFactor(sample int, mean *distribution.Gamma) (float64, error) {
	if sample < 0 {
		return 0, fmt.Errorf("LogAverageFactor: sample %v is negative", sample)
	}
	if mean.IsPointMass() {
		lambda := mean.Point()
		logZ := -lambda - distribution.FactorialLn(sample)
		if sample > 0 {
			logZ += float64(sample) * math.Log(lambda)
		}
		return logZ, nil
	}
	if !mean.IsProper() {
		return 0, fmt.Errorf("LogAverageFactor: mean message is improper: %w", distribution.ErrImproper)
	}
	a, b := mean.Shape, mean.Rate
	fx := float64(sample)
	return distribution.GammaLn(a+fx) - distribution.GammaLn(a) - distribution.FactorialLn(sample) +
		a*math.Log(b) - (a+fx)*math.Log(b+1), nil
}

// LogAverageFactorRandom is the evidence for a distribution-valued
// sample.
func (op PoissonOp) LogAverageFactorRandom(sample *distribution.Poisson, mean *distribution.Gamma) (float64, error) {
	if sample.IsPointMass() {
		logZ, err := op.LogAverageFactor(sample.Point(), mean)
		if err != nil {
			return 0, fmt.Errorf("LogAverageFactorRandom: %v", err)
		}
		return logZ, nil
	}
	if mean.IsPointMass() {
		return sample.GetLogAverageOf(distribution.PoissonFromRate(mean.Point())), nil
	}
	if !mean.IsProper() {
		return 0, fmt.Errorf("LogAverageFactorRandom: mean message is improper: %w", distribution.ErrImproper)
	}
	if sample.Rate == 0 {
		logZ, err := op.LogAverageFactor(0, mean)
		if err != nil {
			return 0, fmt.Errorf("LogAverageFactorRandom: %v", err)
		}
		return logZ, nil
	}
	if nu := sample.Precision; nu < 0 || (nu == 0 && sample.Rate >= mean.Rate+1) {
		return 0, fmt.Errorf("LogAverageFactorRandom: sample message and mean do not normalize: %w", distribution.ErrImproper)
	}
	logZ, _, _ := poissonGammaMoments(math.Log(sample.Rate), sample.Precision, mean.Shape, mean.Rate)
	return logZ + mean.Shape*math.Log(mean.Rate) - distribution.GammaLn(mean.Shape) -
		sample.GetLogNormalizer(), nil
}

// LogEvidenceRatio is zero for a random sample.
func (PoissonOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when sample is observed.
func (op PoissonOp) LogEvidenceRatioObserved(sample int, mean *distribution.Gamma) (float64, error) {
	logZ, err := op.LogAverageFactor(sample, mean)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioObserved: %v", err)
	}
	return logZ, nil
}

// SampleAverageLogarithm returns the variational message to sample, a
// Poisson with rate exp(E[log mean]).
func (PoissonOp) SampleAverageLogarithm(mean *distribution.Gamma) (*distribution.Poisson, error) {
	if mean.IsPointMass() {
		return distribution.PoissonFromRate(mean.Point()), nil
	}
	if !mean.IsProper() {
		return nil, fmt.Errorf("SampleAverageLogarithm: mean message is improper: %w", distribution.ErrImproper)
	}
	return distribution.PoissonFromRate(math.Exp(mean.GetMeanLog())), nil
}

// MeanAverageLogarithm fills result with the variational message to
// mean, the conjugate update at the expected count.
func (PoissonOp) MeanAverageLogarithm(sample *distribution.Poisson, result *distribution.Gamma) (*distribution.Gamma, error) {
	if !sample.IsPointMass() && !sample.IsProper() {
		return result, fmt.Errorf("MeanAverageLogarithm: sample message is improper: %w", distribution.ErrImproper)
	}
	result.SetShapeAndRate(sample.GetMean()+1, 1)
	return result, nil
}

// MeanAverageLogarithmObserved fills result with the variational
// message for an observed sample.
func (op PoissonOp) MeanAverageLogarithmObserved(sample int, result *distribution.Gamma) (*distribution.Gamma, error) {
	result, err := op.MeanAverageConditionalObserved(sample, result)
	if err != nil {
		return result, fmt.Errorf("MeanAverageLogarithmObserved: %v", err)
	}
	return result, nil
}

// AverageLogFactor is the expected log-factor for an observed sample.
func (PoissonOp) AverageLogFactor(sample int, mean *distribution.Gamma) (float64, error) {
	if sample < 0 {
		return 0, fmt.Errorf("AverageLogFactor: sample %v is negative", sample)
	}
	if !mean.IsPointMass() && !mean.IsProper() {
		return 0, fmt.Errorf("AverageLogFactor: mean message is improper: %w", distribution.ErrImproper)
	}
	sum := -mean.GetMean() - distribution.FactorialLn(sample)
	if sample > 0 {
		sum += float64(sample) * mean.GetMeanLog()
	}
	return sum, nil
}

// AverageLogFactorRandom is the expected log-factor for a
// distribution-valued sample.
func (op PoissonOp) AverageLogFactorRandom(sample *distribution.Poisson, mean *distribution.Gamma) (float64, error) {
	if sample.IsPointMass() {
		sum, err := op.AverageLogFactor(sample.Point(), mean)
		if err != nil {
			return 0, fmt.Errorf("AverageLogFactorRandom: %v", err)
		}
		return sum, nil
	}
	if !sample.IsProper() {
		return 0, fmt.Errorf("AverageLogFactorRandom: sample message is improper: %w", distribution.ErrImproper)
	}
	if !mean.IsPointMass() && !mean.IsProper() {
		return 0, fmt.Errorf("AverageLogFactorRandom: mean message is improper: %w", distribution.ErrImproper)
	}
	sum := -mean.GetMean() - sample.GetMeanLogFactorial()
	if m := sample.GetMean(); m > 0 {
		sum += m * mean.GetMeanLog()
	}
	return sum, nil
}
