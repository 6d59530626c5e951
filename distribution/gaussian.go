package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gaussian is a one-dimensional Gaussian distribution in its natural
// parameterization: Precision (inverse variance) and MeanTimesPrecision
// (mean times precision). Multiplying two Gaussians adds both fields,
// which is why messages are stored this way.
//
// If Precision is infinite, the distribution is a point mass and
// MeanTimesPrecision holds the point. If both fields are zero, the
// distribution is uniform and carries no information.
type Gaussian struct {
	MeanTimesPrecision float64
	Precision          float64
}

// NewGaussian returns a Gaussian with the given mean and variance.
func NewGaussian(mean, variance float64) *Gaussian {
	g := new(Gaussian)
	g.SetMeanAndVariance(mean, variance)
	return g
}

// GaussianFromNatural returns a Gaussian with the given natural
// parameters.
func GaussianFromNatural(meanTimesPrecision, precision float64) *Gaussian {
	return &Gaussian{MeanTimesPrecision: meanTimesPrecision, Precision: precision}
}

// GaussianFromMeanAndPrecision returns a Gaussian with the given mean
// and precision.
func GaussianFromMeanAndPrecision(mean, precision float64) *Gaussian {
	if math.IsInf(precision, 1) {
		return GaussianPointMass(mean)
	}
	return &Gaussian{MeanTimesPrecision: mean * precision, Precision: precision}
}

// GaussianPointMass returns a point mass at x.
func GaussianPointMass(x float64) *Gaussian {
	return &Gaussian{MeanTimesPrecision: x, Precision: math.Inf(1)}
}

// GaussianUniform returns the uniform (improper, no information)
// Gaussian.
func GaussianUniform() *Gaussian {
	return new(Gaussian)
}

// IsPointMass reports whether the distribution is a point mass.
func (g *Gaussian) IsPointMass() bool { return math.IsInf(g.Precision, 1) }

// Point returns the location of a point mass. The result is
// meaningless if the distribution is not a point mass.
func (g *Gaussian) Point() float64 { return g.MeanTimesPrecision }

// IsUniform reports whether the distribution carries no information.
func (g *Gaussian) IsUniform() bool {
	return g.Precision == 0 && g.MeanTimesPrecision == 0
}

// IsProper reports whether the distribution integrates to a finite
// value, i.e. has positive precision.
func (g *Gaussian) IsProper() bool { return g.Precision > 0 }

// SetToUniform removes all information from the distribution.
func (g *Gaussian) SetToUniform() {
	g.MeanTimesPrecision = 0
	g.Precision = 0
}

// SetToPointMass makes the distribution a point mass at x.
func (g *Gaussian) SetToPointMass(x float64) {
	g.MeanTimesPrecision = x
	g.Precision = math.Inf(1)
}

// SetMeanAndVariance sets the distribution to have the given mean and
// variance. A zero variance produces a point mass.
func (g *Gaussian) SetMeanAndVariance(mean, variance float64) {
	if variance == 0 {
		g.SetToPointMass(mean)
		return
	}
	g.Precision = 1 / variance
	g.MeanTimesPrecision = mean / variance
}

// GetMean returns the mean. It is NaN for a uniform distribution.
func (g *Gaussian) GetMean() float64 {
	if g.IsPointMass() {
		return g.Point()
	}
	return g.MeanTimesPrecision / g.Precision
}

// GetVariance returns the variance. It is infinite for a uniform
// distribution and negative for an improper one.
func (g *Gaussian) GetVariance() float64 {
	if g.IsPointMass() {
		return 0
	}
	return 1 / g.Precision
}

// GetMeanAndVariance returns the mean and variance together.
func (g *Gaussian) GetMeanAndVariance() (mean, variance float64) {
	if g.IsPointMass() {
		return g.Point(), 0
	}
	return g.MeanTimesPrecision / g.Precision, 1 / g.Precision
}

// GetMode returns the highest-density point, which for a Gaussian is
// the mean.
func (g *Gaussian) GetMode() float64 { return g.GetMean() }

// GetLogProb returns the log density at x. A point mass uses counting
// measure: zero at the point, -Inf elsewhere, so equality evidence
// comes out as 0 or -Inf.
func (g *Gaussian) GetLogProb(x float64) float64 {
	if g.IsPointMass() {
		if x == g.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	if g.IsUniform() {
		return 0
	}
	m, v := g.GetMeanAndVariance()
	diff := x - m
	return -0.5*diff*diff/v - 0.5*math.Log(v) - LnSqrt2Pi
}

// GetLogNormalizer returns the log-partition function of the natural
// parameters. It is zero for improper distributions.
func (g *Gaussian) GetLogNormalizer() float64 {
	if !g.IsProper() || g.IsPointMass() {
		return 0
	}
	return 0.5 * (g.MeanTimesPrecision*g.MeanTimesPrecision/g.Precision +
		math.Log(2*math.Pi/g.Precision))
}

// GetLogAverageOf returns ln(integral of g(x)*that(x) dx).
func (g *Gaussian) GetLogAverageOf(that *Gaussian) float64 {
	if g.IsPointMass() {
		if that.IsPointMass() {
			if g.Point() == that.Point() {
				return 0
			}
			return math.Inf(-1)
		}
		return that.GetLogProb(g.Point())
	}
	if that.IsPointMass() {
		return g.GetLogProb(that.Point())
	}
	product := &Gaussian{
		MeanTimesPrecision: g.MeanTimesPrecision + that.MeanTimesPrecision,
		Precision:          g.Precision + that.Precision,
	}
	return product.GetLogNormalizer() - g.GetLogNormalizer() - that.GetLogNormalizer()
}

// GetAverageLog returns E[ln that(x)] where the expectation is under
// the receiver. The receiver must be proper.
func (g *Gaussian) GetAverageLog(that *Gaussian) float64 {
	if that.IsPointMass() {
		if g.IsPointMass() && g.Point() == that.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	if that.IsUniform() {
		return 0
	}
	m, v := g.GetMeanAndVariance()
	mt, vt := that.GetMeanAndVariance()
	diff := m - mt
	return -0.5*(diff*diff+v)/vt - 0.5*math.Log(vt) - LnSqrt2Pi
}

// SetTo copies value into the receiver.
func (g *Gaussian) SetTo(value *Gaussian) { *g = *value }

// Clone returns an independent copy.
func (g *Gaussian) Clone() *Gaussian {
	c := *g
	return &c
}

// SetToProduct sets the receiver to the product of a and b. It panics
// with ErrAllZero when a and b are point masses at different points.
func (g *Gaussian) SetToProduct(a, b *Gaussian) {
	if a.IsPointMass() {
		if b.IsPointMass() && a.Point() != b.Point() {
			panic(ErrAllZero)
		}
		g.SetToPointMass(a.Point())
		return
	}
	if b.IsPointMass() {
		g.SetToPointMass(b.Point())
		return
	}
	g.MeanTimesPrecision = a.MeanTimesPrecision + b.MeanTimesPrecision
	g.Precision = a.Precision + b.Precision
}

// SetToRatio sets the receiver to numerator/denominator. The result
// may be improper; use SetToRatioForceProper when the caller requires
// a usable message.
func (g *Gaussian) SetToRatio(numerator, denominator *Gaussian) {
	if numerator.IsPointMass() {
		if denominator.IsPointMass() {
			if numerator.Point() != denominator.Point() {
				panic(ErrAllZero)
			}
			g.SetToUniform()
			return
		}
		g.SetToPointMass(numerator.Point())
		return
	}
	if denominator.IsPointMass() {
		panic(ErrImproper)
	}
	g.MeanTimesPrecision = numerator.MeanTimesPrecision - denominator.MeanTimesPrecision
	g.Precision = numerator.Precision - denominator.Precision
}

// SetToRatioForceProper behaves like SetToRatio but replaces a
// negative-precision result with the uniform distribution, so the
// outgoing message never injects negative information.
func (g *Gaussian) SetToRatioForceProper(numerator, denominator *Gaussian) {
	g.SetToRatio(numerator, denominator)
	if g.Precision < 0 {
		g.SetToUniform()
	}
}

// SetToPower sets the receiver to value raised to exponent in density
// space.
func (g *Gaussian) SetToPower(value *Gaussian, exponent float64) {
	if value.IsPointMass() {
		if exponent == 0 {
			g.SetToUniform()
			return
		}
		if exponent < 0 {
			panic(ErrImproper)
		}
		g.SetToPointMass(value.Point())
		return
	}
	g.MeanTimesPrecision = value.MeanTimesPrecision * exponent
	g.Precision = value.Precision * exponent
}

// Sample draws one value from the distribution.
func (g *Gaussian) Sample(src rand.Source) float64 {
	if g.IsPointMass() {
		return g.Point()
	}
	m, v := g.GetMeanAndVariance()
	return distuv.Normal{Mu: m, Sigma: math.Sqrt(v), Src: src}.Rand()
}

// String formats the distribution for diagnostics.
func (g *Gaussian) String() string {
	if g.IsPointMass() {
		return fmt.Sprintf("Gaussian.PointMass(%v)", g.Point())
	}
	if g.IsUniform() {
		return "Gaussian.Uniform"
	}
	m, v := g.GetMeanAndVariance()
	return fmt.Sprintf("Gaussian(%v, %v)", m, v)
}
