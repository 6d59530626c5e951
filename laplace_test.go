package factorop

import (
	"errors"
	"math"
	"testing"

	"github.com/samuelfneumann/factorop/distribution"
)

func TestFindMaximumQuadratic(t *testing.T) {
	const threshold float64 = 1e-8
	f := func(x float64) (float64, float64, float64) {
		return -(x - 3) * (x - 3), -2 * (x - 3), -2
	}
	x, err := FindMaximum(10, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(x-3) > threshold {
		t.Errorf("maximum: got %v want 3", x)
	}
}

func TestFindMaximumQuartic(t *testing.T) {
	const threshold float64 = 1e-6
	// f(x) = x - x^4 has its maximum at (1/4)^(1/3).
	f := func(x float64) (float64, float64, float64) {
		return x - math.Pow(x, 4), 1 - 4*x*x*x, -12 * x * x
	}
	want := math.Cbrt(0.25)
	x, err := FindMaximum(2, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(x-want) > threshold {
		t.Errorf("maximum: got %v want %v", x, want)
	}
}

func TestFindMaximumNaN(t *testing.T) {
	f := func(x float64) (float64, float64, float64) {
		return math.NaN(), math.NaN(), math.NaN()
	}
	if _, err := FindMaximum(0, f); !errors.Is(err, distribution.ErrImproper) {
		t.Errorf("expected ErrImproper, got %v", err)
	}
}

func TestLaplaceMomentsLinear(t *testing.T) {
	const threshold float64 = 1e-10
	q := distribution.GammaFromShapeAndRate(3, 2)
	g := func(u float64) (float64, float64, float64) {
		return 5 + 2*u, 2, 0
	}
	mean, variance := LaplaceMoments(q, g)
	if math.Abs(mean-(5+2*q.GetMean())) > threshold {
		t.Errorf("mean: got %v want %v", mean, 5+2*q.GetMean())
	}
	if math.Abs(variance-4*q.GetVariance()) > threshold {
		t.Errorf("variance: got %v want %v", variance, 4*q.GetVariance())
	}
}

// TestLaplaceMomentsQuadratic checks that the second order correction
// makes the mean of u^2 exact.
func TestLaplaceMomentsQuadratic(t *testing.T) {
	const threshold float64 = 1e-10
	q := distribution.GammaFromShapeAndRate(4, 1.5)
	g := func(u float64) (float64, float64, float64) {
		return u * u, 2 * u, 2
	}
	mean, _ := LaplaceMoments(q, g)
	want := q.GetMeanPower(2)
	if math.Abs(mean-want) > threshold {
		t.Errorf("mean of square: got %v want %v", mean, want)
	}
}

func TestLaplaceMomentsPointMass(t *testing.T) {
	q := distribution.GammaPointMass(1.7)
	g := func(u float64) (float64, float64, float64) {
		return u * u * u, 3 * u * u, 6 * u
	}
	mean, variance := LaplaceMoments(q, g)
	if mean != 1.7*1.7*1.7 || variance != 0 {
		t.Errorf("point mass moments: got %v, %v", mean, variance)
	}
}

// TestGammaFromDerivatives matches the derivatives of a known Gamma
// density and expects to recover its parameters exactly.
func TestGammaFromDerivatives(t *testing.T) {
	const threshold float64 = 1e-10
	x := 1.2
	dlogf := (4-1)/x - 3
	ddlogf := -(4 - 1) / (x * x)
	got := GammaFromDerivatives(distribution.GammaUniform(), x, dlogf, ddlogf, false)
	if math.Abs(got.Shape-4) > threshold || math.Abs(got.Rate-3) > threshold {
		t.Errorf("flat prior: got %v want Gamma(4, 3)", got)
	}

	// With a prior the result is the product of prior and factor.
	prior := distribution.GammaFromShapeAndRate(2, 1)
	dlogf = (3-1)/x - 2
	ddlogf = -(3 - 1) / (x * x)
	got = GammaFromDerivatives(prior, x, dlogf, ddlogf, false)
	if math.Abs(got.Shape-4) > threshold || math.Abs(got.Rate-3) > threshold {
		t.Errorf("with prior: got %v want Gamma(4, 3)", got)
	}
}

func TestGammaFromDerivativesForceProper(t *testing.T) {
	const threshold float64 = 1e-10
	// Positive curvature makes the matched shape negative; the proper
	// fallback keeps the prior shape and the gradient.
	prior := distribution.GammaFromShapeAndRate(3, 2)
	got := GammaFromDerivatives(prior, 1, -1, 4, true)
	if math.Abs(got.Shape-3) > threshold || math.Abs(got.Rate-3) > threshold {
		t.Errorf("fallback: got %v want Gamma(3, 3)", got)
	}

	// An uphill gradient with no usable curvature leaves no proper
	// information at all.
	got = GammaFromDerivatives(distribution.GammaUniform(), 1, 1, 0.5, true)
	if !got.IsUniform() {
		t.Errorf("expected uniform, got %v", got)
	}
}

func TestGaussianFromDerivatives(t *testing.T) {
	const threshold float64 = 1e-10
	// Derivatives of N(2, 1/2) at x=1: d = 4 - 2x, dd = -2.
	got := GaussianFromDerivatives(distribution.GaussianUniform(), 1, 2, -2, false)
	if math.Abs(got.Precision-2) > threshold || math.Abs(got.MeanTimesPrecision-4) > threshold {
		t.Errorf("got %v want natural (4, 2)", got)
	}

	forced := GaussianFromDerivatives(distribution.GaussianUniform(), 1, 1.5, 1, true)
	if forced.Precision != 0 || math.Abs(forced.MeanTimesPrecision-1.5) > threshold {
		t.Errorf("force proper: got %v want natural (1.5, 0)", forced)
	}
}
