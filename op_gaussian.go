package factorop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate/quad"

	"github.com/samuelfneumann/factorop/distribution"
)

// GaussianOp computes messages for the factor
// sample ~ N(mean, 1/precision). With an observed precision the factor
// is linear-Gaussian and every message is exact. A Gamma-distributed
// precision makes the sample and mean integrals non-analytic; those
// messages are moment matched through Gauss-Legendre quadrature over
// the log precision.
//
// ForceProper drops negative-precision information from the moment
// matched messages so downstream products stay normalizable.
// QuadratureNodeCount overrides the default of 50 nodes.
type GaussianOp struct {
	ForceProper         bool
	QuadratureNodeCount int
}

const gaussianOpQuadratureNodes = 50

func (op GaussianOp) quadratureNodes() int {
	if op.QuadratureNodeCount > 0 {
		return op.QuadratureNodeCount
	}
	return gaussianOpQuadratureNodes
}

// SampleAverageConditional returns the message to sample for an
// observed precision, the mean message widened by the factor noise.
func (GaussianOp) SampleAverageConditional(mean *distribution.Gaussian, precision float64) (*distribution.Gaussian, error) {
	if !(precision > 0) {
		return nil, fmt.Errorf("SampleAverageConditional: precision %v is not positive: %w", precision, distribution.ErrImproper)
	}
	if mean.IsUniform() {
		return distribution.GaussianUniform(), nil
	}
	mm, vm := mean.GetMeanAndVariance()
	return distribution.NewGaussian(mm, vm+1/precision), nil
}

// MeanAverageConditional returns the message to mean for an observed
// precision. The factor is symmetric in sample and mean.
func (op GaussianOp) MeanAverageConditional(sample *distribution.Gaussian, precision float64) (*distribution.Gaussian, error) {
	msg, err := op.SampleAverageConditional(sample, precision)
	if err != nil {
		return nil, fmt.Errorf("MeanAverageConditional: %v", err)
	}
	return msg, nil
}

// SampleAverageConditionalRandom returns the message to sample for a
// Gamma-distributed precision. The posterior over sample is a
// precision-mixture of Gaussians, moment matched across the quadrature
// nodes and divided by the incoming sample message.
func (op GaussianOp) SampleAverageConditionalRandom(sample, mean *distribution.Gaussian, precision *distribution.Gamma) (*distribution.Gaussian, error) {
	if precision.IsPointMass() {
		msg, err := op.SampleAverageConditional(mean, precision.Point())
		if err != nil {
			return nil, fmt.Errorf("SampleAverageConditionalRandom: %v", err)
		}
		return msg, nil
	}
	if !precision.IsProper() {
		return nil, fmt.Errorf("SampleAverageConditionalRandom: precision message is improper: %w", distribution.ErrImproper)
	}
	if mean.IsUniform() {
		return distribution.GaussianUniform(), nil
	}
	if sample.IsPointMass() {
		// the posterior sits at the observed point already
		return distribution.GaussianUniform(), nil
	}
	mm, vm := mean.GetMeanAndVariance()
	if sample.IsUniform() {
		noise := precision.GetMeanPower(-1)
		if math.IsInf(noise, 1) {
			return distribution.GaussianUniform(), nil
		}
		return distribution.NewGaussian(mm, vm+noise), nil
	}
	mx, vx := sample.GetMeanAndVariance()
	tau, logWeight, err := gaussianPrecisionNodes(mx-mm, vx+vm, precision, op.quadratureNodes())
	if err != nil {
		return nil, fmt.Errorf("SampleAverageConditionalRandom: %v", err)
	}
	logZ := floats.LogSumExp(logWeight)
	if math.IsInf(logZ, -1) {
		return nil, fmt.Errorf("SampleAverageConditionalRandom: messages have no common support: %w", distribution.ErrAllZero)
	}
	var m1, m2 float64
	for i, t := range tau {
		w := math.Exp(logWeight[i] - logZ)
		noise := vm + 1/t
		p := sample.Precision + 1/noise
		mu := (sample.MeanTimesPrecision + mm/noise) / p
		m1 += w * mu
		m2 += w * (mu*mu + 1/p)
	}
	if math.IsNaN(m1) || math.IsNaN(m2) {
		return nil, fmt.Errorf("SampleAverageConditionalRandom: quadrature produced NaN: %w", distribution.ErrImproper)
	}
	posterior := distribution.NewGaussian(m1, m2-m1*m1)
	result := distribution.GaussianUniform()
	if op.ForceProper {
		result.SetToRatioForceProper(posterior, sample)
	} else {
		result.SetToRatio(posterior, sample)
	}
	return result, nil
}

// MeanAverageConditionalRandom returns the message to mean for a
// Gamma-distributed precision, by symmetry of the factor.
func (op GaussianOp) MeanAverageConditionalRandom(sample, mean *distribution.Gaussian, precision *distribution.Gamma) (*distribution.Gaussian, error) {
	msg, err := op.SampleAverageConditionalRandom(mean, sample, precision)
	if err != nil {
		return nil, fmt.Errorf("MeanAverageConditionalRandom: %v", err)
	}
	return msg, nil
}

// PrecisionAverageConditional fills result with the message to
// precision: the quadrature moment match of the precision posterior
// divided by the incoming precision message.
func (op GaussianOp) PrecisionAverageConditional(sample, mean *distribution.Gaussian, precision *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	if sample.IsUniform() || mean.IsUniform() || precision.IsPointMass() {
		result.SetToUniform()
		return result, nil
	}
	if !precision.IsProper() {
		return result, fmt.Errorf("PrecisionAverageConditional: precision message is improper: %w", distribution.ErrImproper)
	}
	mx, vx := sample.GetMeanAndVariance()
	mm, vm := mean.GetMeanAndVariance()
	if vx+vm == 0 {
		return op.PrecisionAverageConditionalObserved(mx, mm, result), nil
	}
	tau, logWeight, err := gaussianPrecisionNodes(mx-mm, vx+vm, precision, op.quadratureNodes())
	if err != nil {
		return result, fmt.Errorf("PrecisionAverageConditional: %v", err)
	}
	logZ := floats.LogSumExp(logWeight)
	if math.IsInf(logZ, -1) {
		return result, fmt.Errorf("PrecisionAverageConditional: messages have no common support: %w", distribution.ErrAllZero)
	}
	var m1, m2 float64
	for i, t := range tau {
		w := math.Exp(logWeight[i] - logZ)
		m1 += w * t
		m2 += w * t * t
	}
	if math.IsNaN(m1) || math.IsNaN(m2) {
		return result, fmt.Errorf("PrecisionAverageConditional: quadrature produced NaN: %w", distribution.ErrImproper)
	}
	posterior := distribution.GammaFromMeanAndVariance(m1, m2-m1*m1)
	if op.ForceProper {
		result.SetToRatioForceProper(posterior, precision)
	} else {
		result.SetToRatio(posterior, precision)
	}
	return result, nil
}

// PrecisionAverageConditionalObserved fills result with the exact
// message for observed sample and mean, a Gamma in the precision.
func (GaussianOp) PrecisionAverageConditionalObserved(sample, mean float64, result *distribution.Gamma) *distribution.Gamma {
	diff := sample - mean
	result.SetShapeAndRate(1.5, 0.5*diff*diff)
	return result
}

// gaussianPrecisionNodes places Gauss-Legendre nodes for integrals of
// Gamma(tau) * N(diff; 0, v + 1/tau) over the precision tau. The grid
// lives in u = ln(tau), centered on the mode of the integrand and
// spanning eight curvature widths each way. Nodes are returned in tau
// space with per-node log weights carrying the Legendre weight and the
// change-of-variable Jacobian, so logsumexp of the weights
// approximates the log of the integral.
func gaussianPrecisionNodes(diff, v float64, precision *distribution.Gamma, count int) (tau, logWeight []float64, err error) {
	a, b := precision.Shape, precision.Rate
	d2 := diff * diff
	logf := func(u float64) (fu, dfu, ddfu float64) {
		t := math.Exp(u)
		w := math.Exp(-u)
		V := v + w
		fu = a*u - b*t - 0.5*math.Log(V) - 0.5*d2/V
		dfu = a - b*t + (0.5-0.5*d2/V)*w/V
		ddfu = -b*t - 0.5*v*w/(V*V) - 0.5*d2*w*(w-v)/(V*V*V)
		return fu, dfu, ddfu
	}
	mode, err := FindMaximum(math.Log((a+0.5)/(b+0.5*d2)), logf)
	if err != nil {
		return nil, nil, err
	}
	width := 1.0
	if _, _, curvature := logf(mode); curvature < 0 {
		width = 1 / math.Sqrt(-curvature)
	}
	nodes := make([]float64, count)
	weights := make([]float64, count)
	quad.Legendre{}.FixedLocations(nodes, weights, mode-8*width, mode+8*width)
	norm := a*math.Log(b) - distribution.GammaLn(a) - distribution.LnSqrt2Pi
	tau = make([]float64, count)
	logWeight = make([]float64, count)
	for i, u := range nodes {
		fu, _, _ := logf(u)
		tau[i] = math.Exp(u)
		logWeight[i] = math.Log(weights[i]) + fu + norm
	}
	return tau, logWeight, nil
}

// LogAverageFactor is the evidence for an observed sample and
// precision.
func (GaussianOp) LogAverageFactor(sample float64, mean *distribution.Gaussian, precision float64) (float64, error) {
	if !(precision > 0) {
		return 0, fmt.Errorf("LogAverageFactor: precision %v is not positive: %w", precision, distribution.ErrImproper)
	}
	if mean.IsUniform() {
		return 0, nil
	}
	mm, vm := mean.GetMeanAndVariance()
	return distribution.NewGaussian(mm, vm+1/precision).GetLogProb(sample), nil
}

// LogAverageFactorRandom is the evidence for distribution-valued
// sample, mean and precision.
func (op GaussianOp) LogAverageFactorRandom(sample, mean *distribution.Gaussian, precision *distribution.Gamma) (float64, error) {
	if precision.IsPointMass() {
		toSample, err := op.SampleAverageConditional(mean, precision.Point())
		if err != nil {
			return 0, fmt.Errorf("LogAverageFactorRandom: %v", err)
		}
		return sample.GetLogAverageOf(toSample), nil
	}
	if !precision.IsProper() {
		return 0, fmt.Errorf("LogAverageFactorRandom: precision message is improper: %w", distribution.ErrImproper)
	}
	if sample.IsUniform() || mean.IsUniform() {
		return 0, nil
	}
	mx, vx := sample.GetMeanAndVariance()
	mm, vm := mean.GetMeanAndVariance()
	diff := mx - mm
	if vx+vm == 0 {
		a, b := precision.Shape, precision.Rate
		return a*math.Log(b) - distribution.GammaLn(a) - distribution.LnSqrt2Pi +
			distribution.GammaLn(a+0.5) - (a+0.5)*math.Log(b+0.5*diff*diff), nil
	}
	_, logWeight, err := gaussianPrecisionNodes(diff, vx+vm, precision, op.quadratureNodes())
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactorRandom: %v", err)
	}
	logZ := floats.LogSumExp(logWeight)
	if math.IsNaN(logZ) {
		return 0, fmt.Errorf("LogAverageFactorRandom: quadrature produced NaN: %w", distribution.ErrImproper)
	}
	return logZ, nil
}

// LogEvidenceRatio is zero for a random sample with an observed
// precision, because the sample message is the exact marginal.
func (GaussianOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when sample is observed.
func (op GaussianOp) LogEvidenceRatioObserved(sample float64, mean *distribution.Gaussian, precision float64) (float64, error) {
	logZ, err := op.LogAverageFactor(sample, mean, precision)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioObserved: %v", err)
	}
	return logZ, nil
}

// LogEvidenceRatioRandom is the evidence for a random sample and
// precision after removing the contribution of the sample message
// computed by this operator.
func (op GaussianOp) LogEvidenceRatioRandom(sample, mean *distribution.Gaussian, precision *distribution.Gamma) (float64, error) {
	toSample, err := op.SampleAverageConditionalRandom(sample, mean, precision)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioRandom: %v", err)
	}
	logZ, err := op.LogAverageFactorRandom(sample, mean, precision)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioRandom: %v", err)
	}
	return logZ - sample.GetLogAverageOf(toSample), nil
}

// SampleAverageLogarithm returns the variational message to sample, a
// Gaussian with the expected precision and expected mean.
func (GaussianOp) SampleAverageLogarithm(mean *distribution.Gaussian, precision *distribution.Gamma) (*distribution.Gaussian, error) {
	if !mean.IsPointMass() && !mean.IsProper() {
		return nil, fmt.Errorf("SampleAverageLogarithm: mean message is improper: %w", distribution.ErrImproper)
	}
	if !precision.IsPointMass() && !precision.IsProper() {
		return nil, fmt.Errorf("SampleAverageLogarithm: precision message is improper: %w", distribution.ErrImproper)
	}
	expected := precision.GetMean()
	return distribution.GaussianFromNatural(expected*mean.GetMean(), expected), nil
}

// MeanAverageLogarithm returns the variational message to mean, by
// symmetry of the factor.
func (op GaussianOp) MeanAverageLogarithm(sample *distribution.Gaussian, precision *distribution.Gamma) (*distribution.Gaussian, error) {
	msg, err := op.SampleAverageLogarithm(sample, precision)
	if err != nil {
		return nil, fmt.Errorf("MeanAverageLogarithm: %v", err)
	}
	return msg, nil
}

// PrecisionAverageLogarithm fills result with the variational message
// to precision, the Gamma conjugate update at the expected squared
// difference.
func (GaussianOp) PrecisionAverageLogarithm(sample, mean *distribution.Gaussian, result *distribution.Gamma) (*distribution.Gamma, error) {
	if !sample.IsPointMass() && !sample.IsProper() {
		return result, fmt.Errorf("PrecisionAverageLogarithm: sample message is improper: %w", distribution.ErrImproper)
	}
	if !mean.IsPointMass() && !mean.IsProper() {
		return result, fmt.Errorf("PrecisionAverageLogarithm: mean message is improper: %w", distribution.ErrImproper)
	}
	mx, vx := sample.GetMeanAndVariance()
	mm, vm := mean.GetMeanAndVariance()
	diff := mx - mm
	result.SetShapeAndRate(1.5, 0.5*(vx+vm+diff*diff))
	return result, nil
}

// PrecisionAverageLogarithmObserved fills result with the variational
// message for observed sample and mean, which is the exact message.
func (op GaussianOp) PrecisionAverageLogarithmObserved(sample, mean float64, result *distribution.Gamma) *distribution.Gamma {
	return op.PrecisionAverageConditionalObserved(sample, mean, result)
}

// AverageLogFactor is the expected log-factor under distribution-valued
// sample, mean and precision.
func (GaussianOp) AverageLogFactor(sample, mean *distribution.Gaussian, precision *distribution.Gamma) (float64, error) {
	if !sample.IsPointMass() && !sample.IsProper() {
		return 0, fmt.Errorf("AverageLogFactor: sample message is improper: %w", distribution.ErrImproper)
	}
	if !mean.IsPointMass() && !mean.IsProper() {
		return 0, fmt.Errorf("AverageLogFactor: mean message is improper: %w", distribution.ErrImproper)
	}
	if !precision.IsPointMass() && !precision.IsProper() {
		return 0, fmt.Errorf("AverageLogFactor: precision message is improper: %w", distribution.ErrImproper)
	}
	mx, vx := sample.GetMeanAndVariance()
	mm, vm := mean.GetMeanAndVariance()
	diff := mx - mm
	return 0.5*precision.GetMeanLog() - distribution.LnSqrt2Pi -
		0.5*precision.GetMean()*(vx+vm+diff*diff), nil
}

// AverageLogFactorObserved is the expected log-factor for observed
// sample and mean.
func (GaussianOp) AverageLogFactorObserved(sample, mean float64, precision *distribution.Gamma) (float64, error) {
	if !precision.IsPointMass() && !precision.IsProper() {
		return 0, fmt.Errorf("AverageLogFactorObserved: precision message is improper: %w", distribution.ErrImproper)
	}
	diff := sample - mean
	return 0.5*precision.GetMeanLog() - distribution.LnSqrt2Pi -
		0.5*precision.GetMean()*diff*diff, nil
}
