package factorop

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/factorop/distribution"
)

// FindMaximum locates a local maximum of f by guarded Newton iteration
// from start. f reports its value and first two derivatives at a point.
// The coordinate must be unconstrained, so callers maximize over a
// transformed variable when the natural domain is bounded. A step that
// does not go uphill is halved until it does; iteration stops when the
// step or the improvement becomes negligible.
func FindMaximum(start float64, f func(x float64) (fx, dfx, ddfx float64)) (float64, error) {
	x := start
	fx, dfx, ddfx := f(x)
	if math.IsNaN(fx) || math.IsNaN(dfx) {
		return 0, fmt.Errorf("findMaximum: objective is NaN at %v: %w", start, distribution.ErrImproper)
	}
	for iter := 0; iter < 100; iter++ {
		if dfx == 0 {
			return x, nil
		}
		var step float64
		if ddfx < 0 {
			step = -dfx / ddfx
		} else {
			// Not locally concave here; take a bounded uphill step.
			step = math.Copysign(0.5*math.Max(1, math.Abs(x)), dfx)
		}
		if math.Abs(step) <= 1e-10*(1+math.Abs(x)) {
			return x, nil
		}
		nx := x + step
		nfx, ndfx, nddfx := f(nx)
		for halved := 0; (math.IsNaN(nfx) || nfx < fx) && halved < 60; halved++ {
			step /= 2
			nx = x + step
			nfx, ndfx, nddfx = f(nx)
		}
		if math.IsNaN(nfx) || nfx < fx {
			// No uphill move survives halving; x is the best point seen.
			return x, nil
		}
		improved := nfx - fx
		x, fx, dfx, ddfx = nx, nfx, ndfx, nddfx
		if improved <= 1e-13*(1+math.Abs(fx)) {
			return x, nil
		}
	}
	return x, nil
}

// LaplaceMoments propagates the uncertainty captured by q through the
// transform g, whose value and first two derivatives are evaluated at
// the mean of q. The returned moments are the second order delta
// method approximation: for u with mean m and variance v,
// E[g(u)] = g(m) + g''(m)*v/2 and Var[g(u)] = g'(m)^2*v. A point mass
// q evaluates g exactly with zero variance.
func LaplaceMoments(q *distribution.Gamma, g func(u float64) (gu, dg, ddg float64)) (mean, variance float64) {
	if q.IsPointMass() {
		gu, _, _ := g(q.Point())
		return gu, 0
	}
	m, v := q.GetMeanAndVariance()
	gu, dg, ddg := g(m)
	return gu + 0.5*ddg*v, dg * dg * v
}

// GammaFromDerivatives returns the Gamma whose log density matches the
// first and second derivatives of a log factor at x on top of prior.
// With a uniform prior this is the pure derivative match
// shape = 1 - x^2*ddlogf, rate = -dlogf - x*ddlogf. When forceProper is
// set and the match is improper, the curvature term is dropped and only
// the gradient is kept; if even that is improper the result is uniform.
func GammaFromDerivatives(prior *distribution.Gamma, x, dlogf, ddlogf float64, forceProper bool) *distribution.Gamma {
	if prior.IsPointMass() {
		return prior.Clone()
	}
	shape := prior.Shape - x*x*ddlogf
	rate := prior.Rate - dlogf - x*ddlogf
	if forceProper && !(shape > 0 && rate > 0) {
		shape = prior.Shape
		rate = prior.Rate - dlogf
		if !(shape > 0 && rate > 0) {
			return distribution.GammaUniform()
		}
	}
	return distribution.GammaFromShapeAndRate(shape, rate)
}

// GaussianFromDerivatives returns the Gaussian whose log density
// matches the first and second derivatives of a log factor at x on top
// of prior. When forceProper is set a negative matched precision is
// dropped to zero, keeping only the gradient term.
func GaussianFromDerivatives(prior *distribution.Gaussian, x, dlogf, ddlogf float64, forceProper bool) *distribution.Gaussian {
	if prior.IsPointMass() {
		return prior.Clone()
	}
	precision := prior.Precision - ddlogf
	meanTimesPrecision := prior.MeanTimesPrecision + dlogf - ddlogf*x
	if forceProper && precision < 0 {
		precision = 0
		meanTimesPrecision = prior.MeanTimesPrecision - prior.Precision*x + dlogf
	}
	return distribution.GaussianFromNatural(meanTimesPrecision, precision)
}
