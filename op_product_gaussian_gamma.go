package factorop

import (
	"fmt"

	"github.com/samuelfneumann/factorop/distribution"
)

// ProductGaussianGammaVmpOp computes variational messages for the
// factor product = a * b where product and a carry Gaussian beliefs
// and b carries a Gamma belief. The message to product moment matches
// a*b under the current marginals. The message to a is conjugate and
// reads off the natural parameters of the product message scaled by
// the moments of b. The message to b is not conjugate, so it is the
// Gamma whose log density matches the derivatives of the expected log
// factor at the current mean of b.
//
// ForceProper drops the curvature term of the b message when the
// derivative match comes out improper.
type ProductGaussianGammaVmpOp struct {
	ForceProper bool
}

// ProductAverageLogarithm returns the message to product: the Gaussian
// with the mean and variance of a*b under independent a and b.
func (ProductGaussianGammaVmpOp) ProductAverageLogarithm(a *distribution.Gaussian, b *distribution.Gamma) (*distribution.Gaussian, error) {
	if !a.IsPointMass() && !a.IsProper() {
		return nil, fmt.Errorf("ProductAverageLogarithm: a message is improper: %w", distribution.ErrImproper)
	}
	if !b.IsPointMass() && !b.IsProper() {
		return nil, fmt.Errorf("ProductAverageLogarithm: b message is improper: %w", distribution.ErrImproper)
	}
	ma, va := a.GetMeanAndVariance()
	mb, vb := b.GetMeanAndVariance()
	mean := ma * mb
	variance := (va+ma*ma)*(vb+mb*mb) - mean*mean
	return distribution.NewGaussian(mean, variance), nil
}

// AAverageLogarithm returns the message to a. The expected log factor
// is quadratic in a, so the message is Gaussian with natural
// parameters scaled by the first two moments of b.
func (ProductGaussianGammaVmpOp) AAverageLogarithm(product *distribution.Gaussian, b *distribution.Gamma) (*distribution.Gaussian, error) {
	if product.IsPointMass() {
		return nil, fmt.Errorf("AAverageLogarithm: point product message is not supported: %w", distribution.ErrNotSupported)
	}
	if !b.IsPointMass() && !b.IsProper() {
		return nil, fmt.Errorf("AAverageLogarithm: b message is improper: %w", distribution.ErrImproper)
	}
	mb, vb := b.GetMeanAndVariance()
	return distribution.GaussianFromNatural(product.MeanTimesPrecision*mb, product.Precision*(vb+mb*mb)), nil
}

// AAverageLogarithmObserved handles an observed b.
func (op ProductGaussianGammaVmpOp) AAverageLogarithmObserved(product *distribution.Gaussian, b float64) (*distribution.Gaussian, error) {
	msg, err := op.AAverageLogarithm(product, distribution.GammaPointMass(b))
	if err != nil {
		return nil, fmt.Errorf("AAverageLogarithmObserved: %v", err)
	}
	return msg, nil
}

// BAverageLogarithm fills result with the message to b. The expected
// log factor is quadratic in b, which is not conjugate to a Gamma, so
// the message matches its derivatives at the current mean of b.
func (op ProductGaussianGammaVmpOp) BAverageLogarithm(product, a *distribution.Gaussian, b *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	if product.IsPointMass() {
		return result, fmt.Errorf("BAverageLogarithm: point product message is not supported: %w", distribution.ErrNotSupported)
	}
	if !a.IsPointMass() && !a.IsProper() {
		return result, fmt.Errorf("BAverageLogarithm: a message is improper: %w", distribution.ErrImproper)
	}
	if !b.IsPointMass() && !b.IsProper() {
		return result, fmt.Errorf("BAverageLogarithm: b message is improper: %w", distribution.ErrImproper)
	}
	ma, va := a.GetMeanAndVariance()
	ea2 := va + ma*ma
	x := b.GetMean()
	dlogf := product.MeanTimesPrecision*ma - product.Precision*ea2*x
	ddlogf := -product.Precision * ea2
	result.SetTo(GammaFromDerivatives(distribution.GammaUniform(), x, dlogf, ddlogf, op.ForceProper))
	return result, nil
}

// BAverageLogarithmObserved handles an observed a.
func (op ProductGaussianGammaVmpOp) BAverageLogarithmObserved(product *distribution.Gaussian, a float64, b *distribution.Gamma, result *distribution.Gamma) (*distribution.Gamma, error) {
	if _, err := op.BAverageLogarithm(product, distribution.GaussianPointMass(a), b, result); err != nil {
		return result, fmt.Errorf("BAverageLogarithmObserved: %v", err)
	}
	return result, nil
}

// AverageLogFactor returns the evidence contribution of the factor,
// which is zero for a deterministic factor under variational message
// passing.
func (ProductGaussianGammaVmpOp) AverageLogFactor() float64 { return 0 }
