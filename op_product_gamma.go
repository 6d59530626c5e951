package factorop

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/factorop/distribution"
)

// GammaProductLaplaceOp computes messages for the factor
// product = a * b where all three arguments carry Gamma messages.
// Marginalizing product and a leaves a one dimensional posterior over
// b whose mode has a closed quadratic form; the buffer Q holds a Gamma
// fit of that posterior obtained by matching log-density derivatives
// at the mode. Messages to product and a propagate their conditional
// moments given b through Q with LaplaceMoments; the message to b is
// Q divided by the incoming b message.
//
// ForceProper clamps negative rates out of the assembled messages.
type GammaProductLaplaceOp struct {
	ForceProper bool
}

// positiveQuadraticRoot solves a2*x^2 + a1*x + a0 = 0 for its positive
// root, NaN when none exists. The branch with no subtractive
// cancellation is chosen by the sign of a1.
func positiveQuadraticRoot(a2, a1, a0 float64) float64 {
	if a2 == 0 {
		if a1 == 0 {
			return math.NaN()
		}
		return -a0 / a1
	}
	disc := a1*a1 - 4*a2*a0
	if disc < 0 {
		return math.NaN()
	}
	sq := math.Sqrt(disc)
	if a1 >= 0 {
		return -2 * a0 / (a1 + sq)
	}
	return (-a1 + sq) / (2 * a2)
}

// QInit returns the initial b posterior buffer.
func (GammaProductLaplaceOp) QInit() *distribution.Gamma {
	return distribution.GammaUniform()
}

// Q fills result with a Gamma fit of the posterior over b. The mode of
// the marginalized log posterior solves a quadratic in every branch;
// the fit matches the log-density derivatives there on top of the
// incoming b message.
func (GammaProductLaplaceOp) Q(product, a, b *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	if b.IsPointMass() || product.IsUniform() {
		result.SetTo(b)
		return result, nil
	}
	if product.IsPointMass() && a.IsPointMass() {
		if a.Point() == 0 {
			result.SetTo(b)
			return result, nil
		}
		result.SetToPointMass(product.Point() / a.Point())
		return result, nil
	}
	if a.IsPointMass() {
		// msgY(a0*b) is Gamma shaped in b, so the posterior is exact.
		result.SetShapeAndRate(product.Shape+b.Shape-1, b.Rate+product.Rate*a.Point())
		return result, nil
	}
	var mode, dlogf, ddlogf float64
	if product.IsPointMass() {
		y0 := product.Point()
		aA, rA := a.Shape, a.Rate
		mode = positiveQuadraticRoot(b.Rate, aA+1-b.Shape, -rA*y0)
		if !(mode > 0) {
			return result, fmt.Errorf("Q: posterior over b has no positive mode: %w", distribution.ErrImproper)
		}
		dlogf = -aA/mode + rA*y0/(mode*mode)
		ddlogf = aA/(mode*mode) - 2*rA*y0/(mode*mode*mode)
	} else {
		ay, ry := product.Shape, product.Rate
		aA, rA := a.Shape, a.Rate
		c := ay + aA - 1
		if c <= 0 {
			return result, fmt.Errorf("Q: product and a messages do not normalize: %w", distribution.ErrImproper)
		}
		s := ay + b.Shape - 2
		mode = positiveQuadraticRoot(b.Rate*ry, c*ry+b.Rate*rA-s*ry, -s*rA)
		if !(mode > 0) {
			return result, fmt.Errorf("Q: posterior over b has no positive mode: %w", distribution.ErrImproper)
		}
		r := rA + ry*mode
		dlogf = (ay-1)/mode - c*ry/r
		ddlogf = -(ay-1)/(mode*mode) + c*ry*ry/(r*r)
	}
	result.SetTo(GammaFromDerivatives(b, mode, dlogf, ddlogf, true))
	if math.IsNaN(result.Shape) || math.IsNaN(result.Rate) {
		return result, fmt.Errorf("Q: derivative match produced NaN: %w", distribution.ErrImproper)
	}
	return result, nil
}

// ProductAverageConditional fills result with the message to product.
// Given b, a carries a Gamma posterior and product = a*b has closed
// conditional moments; those are propagated through q.
func (op GammaProductLaplaceOp) ProductAverageConditional(product, a, b, q *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	if a.IsPointMass() && b.IsPointMass() {
		result.SetToPointMass(a.Point() * b.Point())
		return result, nil
	}
	if b.IsPointMass() {
		if b.Point() == 0 {
			result.SetToPointMass(0)
			return result, nil
		}
		// scaling a Gamma by b0 divides its rate
		result.SetShapeAndRate(a.Shape, a.Rate/b.Point())
		return result, nil
	}
	if product.IsPointMass() {
		result.SetToUniform()
		return result, nil
	}
	if !q.IsPointMass() && !q.IsProper() {
		return result, fmt.Errorf("ProductAverageConditional: q buffer is improper: %w", distribution.ErrImproper)
	}
	var posterior *distribution.Gamma
	if a.IsPointMass() {
		a0 := a.Point()
		mb, vb := q.GetMeanAndVariance()
		posterior = distribution.GammaFromMeanAndVariance(a0*mb, a0*a0*vb)
	} else {
		c := product.Shape + a.Shape - 1
		if c <= 0 {
			return result, fmt.Errorf("ProductAverageConditional: product and a messages do not normalize: %w", distribution.ErrImproper)
		}
		rA, ry := a.Rate, product.Rate
		conditionalMean := func(x float64) (g, dg, ddg float64) {
			r := rA + ry*x
			g = c * x / r
			dg = c * rA / (r * r)
			ddg = -2 * dg * ry / r
			return g, dg, ddg
		}
		conditionalVariance := func(x float64) (g, dg, ddg float64) {
			r := rA + ry*x
			m := x / r
			dm := rA / (r * r)
			ddm := -2 * dm * ry / r
			g = c * m * m
			dg = 2 * c * m * dm
			ddg = 2 * c * (dm*dm + m*ddm)
			return g, dg, ddg
		}
		mean, meanVariance := LaplaceMoments(q, conditionalMean)
		noise, _ := LaplaceMoments(q, conditionalVariance)
		if math.IsNaN(mean) || math.IsNaN(noise) {
			return result, fmt.Errorf("ProductAverageConditional: moment propagation produced NaN: %w", distribution.ErrImproper)
		}
		posterior = distribution.GammaFromMeanAndVariance(mean, noise+meanVariance)
	}
	if op.ForceProper {
		result.SetToRatioForceProper(posterior, product)
	} else {
		result.SetToRatio(posterior, product)
	}
	return result, nil
}

// AAverageConditional fills result with the message to a. Given b the
// posterior over a is Gamma(c, rA + ry*b); its conditional moments are
// propagated through q and the incoming a message is divided out.
func (op GammaProductLaplaceOp) AAverageConditional(product, a, b, q *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	if a.IsPointMass() {
		result.SetToUniform()
		return result, nil
	}
	if product.IsPointMass() && b.IsPointMass() {
		if b.Point() == 0 {
			result.SetToUniform()
			return result, nil
		}
		result.SetToPointMass(product.Point() / b.Point())
		return result, nil
	}
	if b.IsPointMass() {
		if b.Point() == 0 {
			result.SetToUniform()
			return result, nil
		}
		// msgY(a*b0) is Gamma shaped in a, an exact message
		result.SetShapeAndRate(product.Shape, product.Rate*b.Point())
		return result, nil
	}
	if !q.IsPointMass() && !q.IsProper() {
		return result, fmt.Errorf("AAverageConditional: q buffer is improper: %w", distribution.ErrImproper)
	}
	var posterior *distribution.Gamma
	if product.IsPointMass() {
		y0 := product.Point()
		m1 := y0 * q.GetMeanPower(-1)
		m2 := y0 * y0 * q.GetMeanPower(-2)
		if math.IsInf(m1, 1) || math.IsInf(m2, 1) {
			return result, fmt.Errorf("AAverageConditional: posterior moments diverge: %w", distribution.ErrImproper)
		}
		posterior = distribution.GammaFromMeanAndVariance(m1, m2-m1*m1)
	} else {
		c := product.Shape + a.Shape - 1
		if c <= 0 {
			return result, fmt.Errorf("AAverageConditional: product and a messages do not normalize: %w", distribution.ErrImproper)
		}
		rA, ry := a.Rate, product.Rate
		conditionalMean := func(x float64) (g, dg, ddg float64) {
			r := rA + ry*x
			g = c / r
			dg = -c * ry / (r * r)
			ddg = -2 * dg * ry / r
			return g, dg, ddg
		}
		conditionalVariance := func(x float64) (g, dg, ddg float64) {
			r := rA + ry*x
			g = c / (r * r)
			dg = -2 * c * ry / (r * r * r)
			ddg = 6 * c * ry * ry / (r * r * r * r)
			return g, dg, ddg
		}
		mean, meanVariance := LaplaceMoments(q, conditionalMean)
		noise, _ := LaplaceMoments(q, conditionalVariance)
		if math.IsNaN(mean) || math.IsNaN(noise) {
			return result, fmt.Errorf("AAverageConditional: moment propagation produced NaN: %w", distribution.ErrImproper)
		}
		posterior = distribution.GammaFromMeanAndVariance(mean, noise+meanVariance)
	}
	if op.ForceProper {
		result.SetToRatioForceProper(posterior, a)
	} else {
		result.SetToRatio(posterior, a)
	}
	return result, nil
}

// BAverageConditional fills result with the message to b, the
// posterior fit q divided by the incoming b message.
func (op GammaProductLaplaceOp) BAverageConditional(product, a, b, q *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	if b.IsPointMass() {
		result.SetToUniform()
		return result, nil
	}
	if product.IsPointMass() && a.IsPointMass() {
		if a.Point() == 0 {
			result.SetToUniform()
			return result, nil
		}
		result.SetToPointMass(product.Point() / a.Point())
		return result, nil
	}
	if a.IsPointMass() {
		if a.Point() == 0 {
			result.SetToUniform()
			return result, nil
		}
		result.SetShapeAndRate(product.Shape, product.Rate*a.Point())
		return result, nil
	}
	if !q.IsPointMass() && !q.IsProper() {
		return result, fmt.Errorf("BAverageConditional: q buffer is improper: %w", distribution.ErrImproper)
	}
	if op.ForceProper {
		result.SetToRatioForceProper(q, b)
	} else {
		result.SetToRatio(q, b)
	}
	return result, nil
}

// LogAverageFactor is the evidence. Branches with a point argument
// reduce to closed forms; the remaining ones evaluate the exact
// posterior against q at the center of q.
func (GammaProductLaplaceOp) LogAverageFactor(product, a, b, q *distribution.Gamma) (float64, error) {
	switch {
	case a.IsPointMass() && b.IsPointMass():
		return product.GetLogProb(a.Point() * b.Point()), nil
	case product.IsPointMass() && a.IsPointMass():
		y0, a0 := product.Point(), a.Point()
		if a0 == 0 {
			if y0 == 0 {
				return 0, nil
			}
			return math.Inf(-1), nil
		}
		return b.GetLogProb(y0/a0) - math.Log(a0), nil
	case product.IsPointMass() && b.IsPointMass():
		y0, b0 := product.Point(), b.Point()
		if b0 == 0 {
			if y0 == 0 {
				return 0, nil
			}
			return math.Inf(-1), nil
		}
		return a.GetLogProb(y0/b0) - math.Log(b0), nil
	case b.IsPointMass():
		b0 := b.Point()
		ay, ry := product.Shape, product.Rate
		aA, rA := a.Shape, a.Rate
		c := ay + aA - 1
		if c <= 0 {
			return 0, fmt.Errorf("LogAverageFactor: product and a messages do not normalize: %w", distribution.ErrImproper)
		}
		logZ := ay*math.Log(ry) + aA*math.Log(rA) - distribution.GammaLn(ay) - distribution.GammaLn(aA) +
			distribution.GammaLn(c) - c*math.Log(rA+ry*b0)
		if ay != 1 {
			logZ += (ay - 1) * math.Log(b0)
		}
		return logZ, nil
	case a.IsPointMass():
		a0 := a.Point()
		ay, ry := product.Shape, product.Rate
		aB, rB := b.Shape, b.Rate
		c := ay + aB - 1
		if c <= 0 {
			return 0, fmt.Errorf("LogAverageFactor: product and b messages do not normalize: %w", distribution.ErrImproper)
		}
		logZ := ay*math.Log(ry) + aB*math.Log(rB) - distribution.GammaLn(ay) - distribution.GammaLn(aB) +
			distribution.GammaLn(c) - c*math.Log(rB+ry*a0)
		if ay != 1 {
			logZ += (ay - 1) * math.Log(a0)
		}
		return logZ, nil
	}
	if !q.IsPointMass() && !q.IsProper() {
		return 0, fmt.Errorf("LogAverageFactor: q buffer is improper: %w", distribution.ErrImproper)
	}
	x := q.GetMean()
	if product.IsPointMass() {
		y0 := product.Point()
		logZ := b.GetLogProb(x) + a.GetLogProb(y0/x) - math.Log(x) - q.GetLogProb(x)
		if math.IsNaN(logZ) {
			return 0, fmt.Errorf("LogAverageFactor: evidence is NaN: %w", distribution.ErrImproper)
		}
		return logZ, nil
	}
	ay, ry := product.Shape, product.Rate
	aA, rA := a.Shape, a.Rate
	c := ay + aA - 1
	if c <= 0 {
		return 0, fmt.Errorf("LogAverageFactor: product and a messages do not normalize: %w", distribution.ErrImproper)
	}
	logZ := b.GetLogProb(x) + ay*math.Log(ry) + aA*math.Log(rA) -
		distribution.GammaLn(ay) - distribution.GammaLn(aA) + distribution.GammaLn(c) +
		(ay-1)*math.Log(x) - c*math.Log(rA+ry*x) - q.GetLogProb(x)
	if math.IsNaN(logZ) {
		return 0, fmt.Errorf("LogAverageFactor: evidence is NaN: %w", distribution.ErrImproper)
	}
	return logZ, nil
}

// LogEvidenceRatio is the evidence after removing the contribution of
// the product message computed by this operator.
func (op GammaProductLaplaceOp) LogEvidenceRatio(product, a, b, q *distribution.Gamma) (float64, error) {
	toProduct, err := op.ProductAverageConditional(product, a, b, q, distribution.GammaUniform())
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
	}
	logZ, err := op.LogAverageFactor(product, a, b, q)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
	}
	return logZ - product.GetLogAverageOf(toProduct), nil
}

// AAverageConditionalObserved fills result with the message to a for
// an observed product.
func (op GammaProductLaplaceOp) AAverageConditionalObserved(product float64, a, b, q *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	msg, err := op.AAverageConditional(distribution.GammaPointMass(product), a, b, q, result)
	if err != nil {
		return result, fmt.Errorf("AAverageConditionalObserved: %v", err)
	}
	return msg, nil
}

// BAverageConditionalObserved fills result with the message to b for
// an observed product.
func (op GammaProductLaplaceOp) BAverageConditionalObserved(product float64, a, b, q *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	msg, err := op.BAverageConditional(distribution.GammaPointMass(product), a, b, q, result)
	if err != nil {
		return result, fmt.Errorf("BAverageConditionalObserved: %v", err)
	}
	return msg, nil
}

// LogAverageFactorObserved is the evidence for an observed product.
func (op GammaProductLaplaceOp) LogAverageFactorObserved(product float64, a, b, q *distribution.Gamma) (float64, error) {
	logZ, err := op.LogAverageFactor(distribution.GammaPointMass(product), a, b, q)
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactorObserved: %v", err)
	}
	return logZ, nil
}

// LogEvidenceRatioObserved is the evidence for an observed product,
// which equals LogAverageFactorObserved because the message to an
// observed product carries no information.
func (op GammaProductLaplaceOp) LogEvidenceRatioObserved(product float64, a, b, q *distribution.Gamma) (float64, error) {
	logZ, err := op.LogAverageFactorObserved(product, a, b, q)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioObserved: %v", err)
	}
	return logZ, nil
}
