package factorop

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/factorop/distribution"
)

// GammaPowerProductLaplaceOp computes messages for the factor
// product = a * b where all three arguments carry GammaPower messages
// with a common Power. Writing each argument as a base Gamma variable
// raised to that power turns the factor into the plain Gamma product,
// so the buffer Q and the evidence delegate to GammaProductLaplaceOp
// in the base coordinate; the transform Jacobian is absorbed by
// shifting the base product shape to Shape+1-Power. Outgoing messages
// match moments of the transformed variable and so use their own
// power-weighted conditional closures.
//
// ForceProper clamps negative rates out of the assembled messages.
type GammaPowerProductLaplaceOp struct {
	ForceProper bool
}

// gammaPowerBaseProduct maps the product message onto the base
// coordinate. For a density message the Jacobian of g^p contributes a
// factor g^(1-p), folded into the shape; a point mass maps onto the
// base point.
func gammaPowerBaseProduct(product *distribution.GammaPower) *distribution.Gamma {
	if product.IsPointMass() {
		return distribution.GammaPointMass(math.Pow(product.Point(), 1/product.Power))
	}
	return distribution.GammaFromShapeAndRate(product.Shape+1-product.Power, product.Rate)
}

// QInit returns the initial posterior buffer over the base b variable.
func (GammaPowerProductLaplaceOp) QInit() *distribution.Gamma {
	return distribution.GammaUniform()
}

// Q fills result with a Gamma fit of the posterior over the base b
// variable.
func (GammaPowerProductLaplaceOp) Q(product, a, b *distribution.GammaPower, result *distribution.Gamma) (*distribution.Gamma, error) {
	if product.Power != a.Power || a.Power != b.Power || a.Power == 0 {
		return result, fmt.Errorf("Q: messages must share one nonzero power: %w", distribution.ErrNotSupported)
	}
	q, err := GammaProductLaplaceOp{}.Q(gammaPowerBaseProduct(product), a.ToGamma(), b.ToGamma(), result)
	if err != nil {
		return result, fmt.Errorf("Q: %v", err)
	}
	return q, nil
}

// ProductAverageConditional fills result with the message to product.
func (op GammaPowerProductLaplaceOp) ProductAverageConditional(product, a, b *distribution.GammaPower, q *distribution.Gamma, result *distribution.GammaPower) (*distribution.GammaPower, error) {
	if product.Power != a.Power || a.Power != b.Power || a.Power == 0 {
		return result, fmt.Errorf("ProductAverageConditional: messages must share one nonzero power: %w", distribution.ErrNotSupported)
	}
	p := a.Power
	result.Power = p
	if a.IsPointMass() && b.IsPointMass() {
		result.SetToPointMass(a.Point() * b.Point())
		return result, nil
	}
	if b.IsPointMass() {
		if b.Point() == 0 {
			result.SetToPointMass(0)
			return result, nil
		}
		// scaling by b divides the base rate by b^(1/p)
		result.Shape = a.Shape
		result.Rate = a.Rate / math.Pow(b.Point(), 1/p)
		return result, nil
	}
	if product.IsPointMass() {
		result.SetToUniform()
		return result, nil
	}
	if !q.IsPointMass() && !q.IsProper() {
		return result, fmt.Errorf("ProductAverageConditional: q buffer is improper: %w", distribution.ErrImproper)
	}
	var mean, variance float64
	if a.IsPointMass() {
		a0 := a.Point()
		mb, vb := distribution.GammaPowerFromGamma(q, p).GetMeanAndVariance()
		if math.IsInf(mb, 1) || math.IsInf(vb, 1) {
			return result, fmt.Errorf("ProductAverageConditional: posterior moments diverge: %w", distribution.ErrImproper)
		}
		mean, variance = a0*mb, a0*a0*vb
	} else {
		c := product.Shape + a.Shape - p
		if c <= 0 {
			return result, fmt.Errorf("ProductAverageConditional: product and a messages do not normalize: %w", distribution.ErrImproper)
		}
		if c+p <= 0 || c+2*p <= 0 {
			return result, fmt.Errorf("ProductAverageConditional: posterior moments diverge: %w", distribution.ErrImproper)
		}
		k1 := math.Exp(distribution.GammaLn(c+p) - distribution.GammaLn(c))
		k2 := math.Exp(distribution.GammaLn(c+2*p)-distribution.GammaLn(c)) - k1*k1
		rA, ry := a.Rate, product.Rate
		conditionalMean := func(x float64) (g, dg, ddg float64) {
			r := rA + ry*x
			m := x / r
			dm := rA / (r * r)
			ddm := -2 * dm * ry / r
			g = k1 * math.Pow(m, p)
			dg = k1 * p * math.Pow(m, p-1) * dm
			ddg = k1 * p * ((p-1)*math.Pow(m, p-2)*dm*dm + math.Pow(m, p-1)*ddm)
			return g, dg, ddg
		}
		conditionalVariance := func(x float64) (g, dg, ddg float64) {
			r := rA + ry*x
			m := x / r
			dm := rA / (r * r)
			ddm := -2 * dm * ry / r
			g = k2 * math.Pow(m, 2*p)
			dg = k2 * 2 * p * math.Pow(m, 2*p-1) * dm
			ddg = k2 * 2 * p * ((2*p-1)*math.Pow(m, 2*p-2)*dm*dm + math.Pow(m, 2*p-1)*ddm)
			return g, dg, ddg
		}
		m, mv := LaplaceMoments(q, conditionalMean)
		noise, _ := LaplaceMoments(q, conditionalVariance)
		if math.IsNaN(m) || math.IsNaN(noise) {
			return result, fmt.Errorf("ProductAverageConditional: moment propagation produced NaN: %w", distribution.ErrImproper)
		}
		mean, variance = m, noise+mv
	}
	if variance < 0 {
		return result, fmt.Errorf("ProductAverageConditional: posterior variance %v is not positive: %w", variance, distribution.ErrImproper)
	}
	posterior := distribution.GammaPowerFromMeanAndVariance(mean, variance, p)
	if op.ForceProper {
		result.SetToRatioForceProper(posterior, product)
	} else {
		result.SetToRatio(posterior, product)
	}
	return result, nil
}

// AAverageConditional fills result with the message to a.
func (op GammaPowerProductLaplaceOp) AAverageConditional(product, a, b *distribution.GammaPower, q *distribution.Gamma, result *distribution.GammaPower) (*distribution.GammaPower, error) {
	if product.Power != a.Power || a.Power != b.Power || a.Power == 0 {
		return result, fmt.Errorf("AAverageConditional: messages must share one nonzero power: %w", distribution.ErrNotSupported)
	}
	p := a.Power
	result.Power = p
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
		// the product density is GammaPower shaped in a, an exact message
		result.Shape = product.Shape
		result.Rate = product.Rate * math.Pow(b.Point(), 1/p)
		return result, nil
	}
	if !q.IsPointMass() && !q.IsProper() {
		return result, fmt.Errorf("AAverageConditional: q buffer is improper: %w", distribution.ErrImproper)
	}
	var mean, variance float64
	if product.IsPointMass() {
		y0 := product.Point()
		m1 := y0 * q.GetMeanPower(-p)
		m2 := y0 * y0 * q.GetMeanPower(-2*p)
		if math.IsInf(m1, 1) || math.IsInf(m2, 1) {
			return result, fmt.Errorf("AAverageConditional: posterior moments diverge: %w", distribution.ErrImproper)
		}
		mean, variance = m1, m2-m1*m1
	} else {
		c := product.Shape + a.Shape - p
		if c <= 0 {
			return result, fmt.Errorf("AAverageConditional: product and a messages do not normalize: %w", distribution.ErrImproper)
		}
		if c+p <= 0 || c+2*p <= 0 {
			return result, fmt.Errorf("AAverageConditional: posterior moments diverge: %w", distribution.ErrImproper)
		}
		k1 := math.Exp(distribution.GammaLn(c+p) - distribution.GammaLn(c))
		k2 := math.Exp(distribution.GammaLn(c+2*p)-distribution.GammaLn(c)) - k1*k1
		rA, ry := a.Rate, product.Rate
		conditionalMean := func(x float64) (g, dg, ddg float64) {
			r := rA + ry*x
			h := 1 / r
			g = k1 * math.Pow(h, p)
			dg = -k1 * p * ry * math.Pow(h, p+1)
			ddg = k1 * p * (p + 1) * ry * ry * math.Pow(h, p+2)
			return g, dg, ddg
		}
		conditionalVariance := func(x float64) (g, dg, ddg float64) {
			r := rA + ry*x
			h := 1 / r
			g = k2 * math.Pow(h, 2*p)
			dg = -k2 * 2 * p * ry * math.Pow(h, 2*p+1)
			ddg = k2 * 2 * p * (2*p + 1) * ry * ry * math.Pow(h, 2*p+2)
			return g, dg, ddg
		}
		m, mv := LaplaceMoments(q, conditionalMean)
		noise, _ := LaplaceMoments(q, conditionalVariance)
		if math.IsNaN(m) || math.IsNaN(noise) {
			return result, fmt.Errorf("AAverageConditional: moment propagation produced NaN: %w", distribution.ErrImproper)
		}
		mean, variance = m, noise+mv
	}
	if variance < 0 {
		return result, fmt.Errorf("AAverageConditional: posterior variance %v is not positive: %w", variance, distribution.ErrImproper)
	}
	posterior := distribution.GammaPowerFromMeanAndVariance(mean, variance, p)
	if op.ForceProper {
		result.SetToRatioForceProper(posterior, a)
	} else {
		result.SetToRatio(posterior, a)
	}
	return result, nil
}

// BAverageConditional fills result with the message to b. The
// posterior over the base b variable is q itself, whose transform
// stays inside the family, so no moment matching is needed.
func (op GammaPowerProductLaplaceOp) BAverageConditional(product, a, b *distribution.GammaPower, q *distribution.Gamma, result *distribution.GammaPower) (*distribution.GammaPower, error) {
	if product.Power != a.Power || a.Power != b.Power || a.Power == 0 {
		return result, fmt.Errorf("BAverageConditional: messages must share one nonzero power: %w", distribution.ErrNotSupported)
	}
	p := a.Power
	result.Power = p
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
		result.Shape = product.Shape
		result.Rate = product.Rate * math.Pow(a.Point(), 1/p)
		return result, nil
	}
	if !q.IsPointMass() && !q.IsProper() {
		return result, fmt.Errorf("BAverageConditional: q buffer is improper: %w", distribution.ErrImproper)
	}
	posterior := distribution.GammaPowerFromGamma(q, p)
	if op.ForceProper {
		result.SetToRatioForceProper(posterior, b)
	} else {
		result.SetToRatio(posterior, b)
	}
	return result, nil
}

// LogAverageFactor is the evidence. Away from the point branches it
// delegates to the base operator; the transform Jacobian contributes
// the shape shift of the base product message plus a constant.
func (GammaPowerProductLaplaceOp) LogAverageFactor(product, a, b *distribution.GammaPower, q *distribution.Gamma) (float64, error) {
	if product.Power != a.Power || a.Power != b.Power || a.Power == 0 {
		return 0, fmt.Errorf("LogAverageFactor: messages must share one nonzero power: %w", distribution.ErrNotSupported)
	}
	p := a.Power
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
	}
	var correction float64
	if product.IsPointMass() {
		correction = -math.Log(math.Abs(p)) + (1-p)*math.Log(product.Point())/p
	} else {
		shifted := product.Shape + 1 - p
		if shifted <= 0 {
			return 0, fmt.Errorf("LogAverageFactor: product message does not normalize under the power transform: %w", distribution.ErrImproper)
		}
		correction = -math.Log(math.Abs(p)) + (p-1)*math.Log(product.Rate) +
			distribution.GammaLn(shifted) - distribution.GammaLn(product.Shape)
	}
	logZ, err := GammaProductLaplaceOp{}.LogAverageFactor(gammaPowerBaseProduct(product), a.ToGamma(), b.ToGamma(), q)
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	return correction + logZ, nil
}

// LogEvidenceRatio is the evidence after removing the contribution of
// the product message computed by this operator.
func (op GammaPowerProductLaplaceOp) LogEvidenceRatio(product, a, b *distribution.GammaPower, q *distribution.Gamma) (float64, error) {
	toProduct, err := op.ProductAverageConditional(product, a, b, q, distribution.GammaPowerUniform(product.Power))
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
func (op GammaPowerProductLaplaceOp) AAverageConditionalObserved(product float64, a, b *distribution.GammaPower, q *distribution.Gamma, result *distribution.GammaPower) (*distribution.GammaPower, error) {
	msg, err := op.AAverageConditional(distribution.GammaPowerPointMass(product, a.Power), a, b, q, result)
	if err != nil {
		return result, fmt.Errorf("AAverageConditionalObserved: %v", err)
	}
	return msg, nil
}

// BAverageConditionalObserved fills result with the message to b for
// an observed product.
func (op GammaPowerProductLaplaceOp) BAverageConditionalObserved(product float64, a, b *distribution.GammaPower, q *distribution.Gamma, result *distribution.GammaPower) (*distribution.GammaPower, error) {
	msg, err := op.BAverageConditional(distribution.GammaPowerPointMass(product, a.Power), a, b, q, result)
	if err != nil {
		return result, fmt.Errorf("BAverageConditionalObserved: %v", err)
	}
	return msg, nil
}

// LogAverageFactorObserved is the evidence for an observed product.
func (op GammaPowerProductLaplaceOp) LogAverageFactorObserved(product float64, a, b *distribution.GammaPower, q *distribution.Gamma) (float64, error) {
	logZ, err := op.LogAverageFactor(distribution.GammaPowerPointMass(product, a.Power), a, b, q)
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactorObserved: %v", err)
	}
	return logZ, nil
}

// LogEvidenceRatioObserved is the evidence for an observed product,
// which equals LogAverageFactorObserved because the message to an
// observed product carries no information.
func (op GammaPowerProductLaplaceOp) LogEvidenceRatioObserved(product float64, a, b *distribution.GammaPower, q *distribution.Gamma) (float64, error) {
	logZ, err := op.LogAverageFactorObserved(product, a, b, q)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioObserved: %v", err)
	}
	return logZ, nil
}
