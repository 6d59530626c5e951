package distribution

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// Constants shared by the log-density and log-normalizer computations.
const (
	// LnSqrt2Pi is ln(sqrt(2*pi)).
	LnSqrt2Pi = 0.91893853320467274178032973640562

	// Ln2Pi is ln(2*pi).
	Ln2Pi = 1.8378770664093454835606594728112
)

// GammaLn returns the natural logarithm of the Gamma function of x,
// for x > 0. It is infinite at zero and NaN for negative x, which is
// the domain the message computations require.
func GammaLn(x float64) float64 {
	if x < 0 {
		return math.NaN()
	}
	lg, _ := math.Lgamma(x)
	return lg
}

// Digamma returns the derivative of GammaLn at x.
func Digamma(x float64) float64 {
	return mathext.Digamma(x)
}

// Trigamma returns the second derivative of GammaLn at x, computed
// through the Hurwitz zeta function: psi'(x) = zeta(2, x).
func Trigamma(x float64) float64 {
	if x <= 0 && x == math.Floor(x) {
		return math.Inf(1)
	}
	return mathext.Zeta(2, x)
}

// BetaLn returns ln(Beta(a, b)), the log-normalizer of a Beta
// distribution with pseudo-counts a and b.
func BetaLn(a, b float64) float64 {
	return mathext.Lbeta(a, b)
}

// ChooseLn returns ln(n choose k) for real n and k.
func ChooseLn(n, k float64) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	return GammaLn(n+1) - GammaLn(k+1) - GammaLn(n-k+1)
}

// FactorialLn returns ln(n!).
func FactorialLn(n int) float64 {
	return GammaLn(float64(n) + 1)
}

// LogSumExp returns ln(exp(a) + exp(b)) without intermediate overflow.
func LogSumExp(a, b float64) float64 {
	if a > b {
		a, b = b, a
	}
	// b is now the larger of the two
	if math.IsInf(b, -1) {
		return math.Inf(-1)
	}
	if math.IsInf(a, -1) {
		return b
	}
	return b + math.Log1p(math.Exp(a-b))
}

// LogDifferenceOfExp returns ln(exp(a) - exp(b)) assuming a >= b.
func LogDifferenceOfExp(a, b float64) float64 {
	if math.IsInf(b, -1) {
		return a
	}
	if a == b {
		return math.Inf(-1)
	}
	return a + math.Log1p(-math.Exp(b-a))
}

// NormalCdf returns the standard normal cumulative distribution
// function at x.
func NormalCdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// NormalCdfLn returns ln(NormalCdf(x)). For large negative x the direct
// formula underflows, so the asymptotic expansion of the Mills ratio is
// used instead.
func NormalCdfLn(x float64) float64 {
	const largeNegative = -8
	if x > largeNegative {
		return math.Log(NormalCdf(x))
	}
	// Phi(x) ~ phi(x)/(-x) * (1 - 1/x^2 + 3/x^4 - 15/x^6)
	z := 1 / (x * x)
	tail := 1 + z*(-1+z*(3-15*z))
	return -0.5*x*x - LnSqrt2Pi - math.Log(-x) + math.Log(tail)
}

// NormalPdfLn returns the log density of the standard normal
// distribution at x.
func NormalPdfLn(x float64) float64 {
	return -0.5*x*x - LnSqrt2Pi
}

// GammaUpperRegularized returns the regularized upper incomplete Gamma
// function Q(a, x).
func GammaUpperRegularized(a, x float64) float64 {
	return mathext.GammaIncRegComp(a, x)
}

// GammaLowerRegularized returns the regularized lower incomplete Gamma
// function P(a, x).
func GammaLowerRegularized(a, x float64) float64 {
	return mathext.GammaIncReg(a, x)
}

// BetaRegularized returns the regularized incomplete Beta function
// I_x(a, b).
func BetaRegularized(x, a, b float64) float64 {
	return mathext.RegIncBeta(a, b, x)
}
