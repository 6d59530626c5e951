package factorop

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/factorop/distribution"
)

// GaussianLaplaceOp computes messages for the factor
// sample ~ N(mean, 1/precision) with a Gamma-distributed precision,
// replacing the quadrature of GaussianOp with a Laplace approximation.
// The buffer Q holds a Gamma fit of the precision posterior; the
// scheduler refreshes it once per pass and passes it to the message
// methods. Messages to sample and mean propagate the conditional
// moments through Q with LaplaceMoments.
type GaussianLaplaceOp struct {
	ForceProper bool
}

// QInit returns the initial precision posterior buffer.
func (GaussianLaplaceOp) QInit() *distribution.Gamma {
	return distribution.GammaUniform()
}

// Q fills result with a Gamma fit of the precision posterior, found by
// maximizing the posterior over log precision and matching log-density
// derivatives at the mode. result carries the previous fit and seeds
// the mode search.
func (GaussianLaplaceOp) Q(sample, mean *distribution.Gaussian, precision *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	if precision.IsPointMass() || sample.IsUniform() || mean.IsUniform() {
		result.SetTo(precision)
		return result, nil
	}
	if !precision.IsProper() {
		return result, fmt.Errorf("Q: precision message is improper: %w", distribution.ErrImproper)
	}
	mx, vx := sample.GetMeanAndVariance()
	mm, vm := mean.GetMeanAndVariance()
	d2 := (mx - mm) * (mx - mm)
	v := vx + vm
	a, b := precision.Shape, precision.Rate
	if v == 0 {
		result.SetShapeAndRate(a+0.5, b+0.5*d2)
		return result, nil
	}
	logf := func(u float64) (fu, dfu, ddfu float64) {
		t := math.Exp(u)
		w := math.Exp(-u)
		V := v + w
		fu = a*u - b*t - 0.5*math.Log(V) - 0.5*d2/V
		dfu = a - b*t + (0.5-0.5*d2/V)*w/V
		ddfu = -b*t - 0.5*v*w/(V*V) - 0.5*d2*w*(w-v)/(V*V*V)
		return fu, dfu, ddfu
	}
	start := math.Log((a + 0.5) / (b + 0.5*d2))
	if result.IsProper() {
		start = math.Log(result.GetMean())
	}
	mode, err := FindMaximum(start, logf)
	if err != nil {
		return result, fmt.Errorf("Q: %v", err)
	}
	x := math.Exp(mode)
	V := v + 1/x
	dlogf := (0.5/V - 0.5*d2/(V*V)) / (x * x)
	ddlogf := (0.5/(V*V)-d2/(V*V*V))/(x*x*x*x) + (d2/(V*V)-1/V)/(x*x*x)
	result.SetTo(GammaFromDerivatives(precision, x, dlogf, ddlogf, true))
	if math.IsNaN(result.Shape) || math.IsNaN(result.Rate) {
		return result, fmt.Errorf("Q: derivative match produced NaN: %w", distribution.ErrImproper)
	}
	return result, nil
}

// SampleAverageConditional returns the message to sample. The
// conditional posterior mean and variance given the precision are
// propagated through q and the incoming sample message is divided out.
func (op GaussianLaplaceOp) SampleAverageConditional(sample, mean *distribution.Gaussian, precision, q *distribution.Gamma) (*distribution.Gaussian, error) {
	if precision.IsPointMass() {
		msg, err := GaussianOp{ForceProper: op.ForceProper}.SampleAverageConditional(mean, precision.Point())
		if err != nil {
			return nil, fmt.Errorf("SampleAverageConditional: %v", err)
		}
		return msg, nil
	}
	if !precision.IsProper() {
		return nil, fmt.Errorf("SampleAverageConditional: precision message is improper: %w", distribution.ErrImproper)
	}
	if mean.IsUniform() {
		return distribution.GaussianUniform(), nil
	}
	if sample.IsPointMass() {
		// the posterior sits at the observed point already
		return distribution.GaussianUniform(), nil
	}
	if !q.IsPointMass() && !q.IsProper() {
		return nil, fmt.Errorf("SampleAverageConditional: q buffer is improper: %w", distribution.ErrImproper)
	}
	mm, vm := mean.GetMeanAndVariance()
	if sample.IsUniform() {
		noise := q.GetMeanPower(-1)
		if math.IsInf(noise, 1) {
			return distribution.GaussianUniform(), nil
		}
		return distribution.NewGaussian(mm, vm+noise), nil
	}
	px := sample.Precision
	tx := sample.MeanTimesPrecision
	conditionalMean := func(t float64) (g, dg, ddg float64) {
		w := 1 / t
		V := vm + w
		den := px*V + 1
		g = (tx*V + mm) / den
		gV := (tx - px*mm) / (den * den)
		gVV := -2 * px * gV / den
		dg = -gV * w * w
		ddg = gVV*w*w*w*w + 2*gV*w*w*w
		return g, dg, ddg
	}
	conditionalVariance := func(t float64) (g, dg, ddg float64) {
		w := 1 / t
		V := vm + w
		den := px*V + 1
		g = V / den
		gV := 1 / (den * den)
		gVV := -2 * px * gV / den
		dg = -gV * w * w
		ddg = gVV*w*w*w*w + 2*gV*w*w*w
		return g, dg, ddg
	}
	postMean, meanVariance := LaplaceMoments(q, conditionalMean)
	postNoise, _ := LaplaceMoments(q, conditionalVariance)
	if math.IsNaN(postMean) || math.IsNaN(postNoise) {
		return nil, fmt.Errorf("SampleAverageConditional: moment propagation produced NaN: %w", distribution.ErrImproper)
	}
	posterior := distribution.NewGaussian(postMean, postNoise+meanVariance)
	result := distribution.GaussianUniform()
	if op.ForceProper {
		result.SetToRatioForceProper(posterior, sample)
	} else {
		result.SetToRatio(posterior, sample)
	}
	return result, nil
}

// MeanAverageConditional returns the message to mean, by symmetry of
// the factor.
func (op GaussianLaplaceOp) MeanAverageConditional(sample, mean *distribution.Gaussian, precision, q *distribution.Gamma) (*distribution.Gaussian, error) {
	msg, err := op.SampleAverageConditional(mean, sample, precision, q)
	if err != nil {
		return nil, fmt.Errorf("MeanAverageConditional: %v", err)
	}
	return msg, nil
}

// PrecisionAverageConditional fills result with the message to
// precision, the posterior fit q divided by the incoming precision
// message.
func (op GaussianLaplaceOp) PrecisionAverageConditional(sample, mean *distribution.Gaussian, precision, q *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	if sample.IsUniform() || mean.IsUniform() || precision.IsPointMass() {
		result.SetToUniform()
		return result, nil
	}
	if !precision.IsProper() {
		return result, fmt.Errorf("PrecisionAverageConditional: precision message is improper: %w", distribution.ErrImproper)
	}
	if !q.IsPointMass() && !q.IsProper() {
		return result, fmt.Errorf("PrecisionAverageConditional: q buffer is improper: %w", distribution.ErrImproper)
	}
	if op.ForceProper {
		result.SetToRatioForceProper(q, precision)
	} else {
		result.SetToRatio(q, precision)
	}
	return result, nil
}

// LogAverageFactor is the evidence, evaluating the exact posterior
// against q at the center of q. The approximation is exact whenever
// the posterior is itself a Gamma.
func (GaussianLaplaceOp) LogAverageFactor(sample, mean *distribution.Gaussian, precision, q *distribution.Gamma) (float64, error) {
	if sample.IsUniform() || mean.IsUniform() {
		return 0, nil
	}
	if precision.IsPointMass() {
		logZ, err := GaussianOp{}.LogAverageFactorRandom(sample, mean, precision)
		if err != nil {
			return 0, fmt.Errorf("LogAverageFactor: %v", err)
		}
		return logZ, nil
	}
	if !precision.IsProper() {
		return 0, fmt.Errorf("LogAverageFactor: precision message is improper: %w", distribution.ErrImproper)
	}
	mx, vx := sample.GetMeanAndVariance()
	mm, vm := mean.GetMeanAndVariance()
	d2 := (mx - mm) * (mx - mm)
	v := vx + vm
	a, b := precision.Shape, precision.Rate
	if v == 0 {
		return a*math.Log(b) - distribution.GammaLn(a) - distribution.LnSqrt2Pi +
			distribution.GammaLn(a+0.5) - (a+0.5)*math.Log(b+0.5*d2), nil
	}
	if !q.IsPointMass() && !q.IsProper() {
		return 0, fmt.Errorf("LogAverageFactor: q buffer is improper: %w", distribution.ErrImproper)
	}
	x := q.GetMean()
	V := v + 1/x
	return precision.GetLogProb(x) - distribution.LnSqrt2Pi - 0.5*math.Log(V) - 0.5*d2/V -
		q.GetLogProb(x), nil
}

// LogEvidenceRatio is the evidence after removing the contribution of
// the sample message computed by this operator.
func (op GaussianLaplaceOp) LogEvidenceRatio(sample, mean *distribution.Gaussian, precision, q *distribution.Gamma) (float64, error) {
	toSample, err := op.SampleAverageConditional(sample, mean, precision, q)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
	}
	logZ, err := op.LogAverageFactor(sample, mean, precision, q)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
	}
	return logZ - sample.GetLogAverageOf(toSample), nil
}
