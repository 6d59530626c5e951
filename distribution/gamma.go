package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gamma is a Gamma distribution parameterized by Shape and Rate, with
// density proportional to x^(Shape-1) * exp(-Rate*x) on x > 0.
// Multiplying two Gammas adds (Shape-1) exponents and adds Rates.
//
// If Rate is infinite, the distribution is a point mass and Shape
// holds the point. Shape=1, Rate=0 is the uniform distribution.
type Gamma struct {
	Shape float64
	Rate  float64
}

// GammaFromShapeAndRate returns a Gamma with the given shape and rate.
func GammaFromShapeAndRate(shape, rate float64) *Gamma {
	return &Gamma{Shape: shape, Rate: rate}
}

// GammaFromShapeAndScale returns a Gamma with the given shape and
// scale (inverse rate).
func GammaFromShapeAndScale(shape, scale float64) *Gamma {
	return &Gamma{Shape: shape, Rate: 1 / scale}
}

// GammaFromMeanAndVariance returns the Gamma with the given first and
// second moments. A zero variance produces a point mass.
func GammaFromMeanAndVariance(mean, variance float64) *Gamma {
	if variance == 0 {
		return GammaPointMass(mean)
	}
	return &Gamma{Shape: mean * mean / variance, Rate: mean / variance}
}

// GammaPointMass returns a point mass at x >= 0.
func GammaPointMass(x float64) *Gamma {
	return &Gamma{Shape: x, Rate: math.Inf(1)}
}

// GammaUniform returns the uniform (improper) Gamma.
func GammaUniform() *Gamma {
	return &Gamma{Shape: 1, Rate: 0}
}

// IsPointMass reports whether the distribution is a point mass.
func (g *Gamma) IsPointMass() bool { return math.IsInf(g.Rate, 1) }

// Point returns the location of a point mass.
func (g *Gamma) Point() float64 { return g.Shape }

// IsUniform reports whether the distribution carries no information.
func (g *Gamma) IsUniform() bool { return g.Shape == 1 && g.Rate == 0 }

// IsProper reports whether the distribution is normalizable.
func (g *Gamma) IsProper() bool { return g.Shape > 0 && g.Rate > 0 }

// SetToUniform removes all information from the distribution.
func (g *Gamma) SetToUniform() {
	g.Shape = 1
	g.Rate = 0
}

// SetToPointMass makes the distribution a point mass at x.
func (g *Gamma) SetToPointMass(x float64) {
	g.Shape = x
	g.Rate = math.Inf(1)
}

// SetShapeAndRate sets both parameters.
func (g *Gamma) SetShapeAndRate(shape, rate float64) {
	g.Shape = shape
	g.Rate = rate
}

// GetMean returns the mean Shape/Rate, or the point for a point mass.
func (g *Gamma) GetMean() float64 {
	if g.IsPointMass() {
		return g.Point()
	}
	return g.Shape / g.Rate
}

// GetVariance returns the variance Shape/Rate^2.
func (g *Gamma) GetVariance() float64 {
	if g.IsPointMass() {
		return 0
	}
	return g.Shape / (g.Rate * g.Rate)
}

// GetMeanAndVariance returns the mean and variance together.
func (g *Gamma) GetMeanAndVariance() (mean, variance float64) {
	if g.IsPointMass() {
		return g.Point(), 0
	}
	return g.Shape / g.Rate, g.Shape / (g.Rate * g.Rate)
}

// GetMode returns the highest-density point: (Shape-1)/Rate clamped to
// zero.
func (g *Gamma) GetMode() float64 {
	if g.IsPointMass() {
		return g.Point()
	}
	if g.Shape <= 1 {
		return 0
	}
	return (g.Shape - 1) / g.Rate
}

// GetMeanLog returns E[ln x] = digamma(Shape) - ln(Rate).
func (g *Gamma) GetMeanLog() float64 {
	if g.IsPointMass() {
		return math.Log(g.Point())
	}
	return Digamma(g.Shape) - math.Log(g.Rate)
}

// GetMeanPower returns E[x^p] = Gamma(Shape+p)/Gamma(Shape) / Rate^p,
// defined for Shape+p > 0. It is infinite when the moment diverges.
func (g *Gamma) GetMeanPower(p float64) float64 {
	if p == 0 {
		return 1
	}
	if g.IsPointMass() {
		return math.Pow(g.Point(), p)
	}
	if g.Shape+p <= 0 {
		return math.Inf(1)
	}
	return math.Exp(GammaLn(g.Shape+p) - GammaLn(g.Shape) - p*math.Log(g.Rate))
}

// GetLogProb returns the log density at x. Point masses use counting
// measure.
func (g *Gamma) GetLogProb(x float64) float64 {
	if g.IsPointMass() {
		if x == g.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	if g.IsUniform() {
		return 0
	}
	return (g.Shape-1)*math.Log(x) - g.Rate*x + g.Shape*math.Log(g.Rate) - GammaLn(g.Shape)
}

// GetLogNormalizer returns the log-partition function, zero for
// improper parameters.
func (g *Gamma) GetLogNormalizer() float64 {
	if !g.IsProper() || g.IsPointMass() {
		return 0
	}
	return GammaLn(g.Shape) - g.Shape*math.Log(g.Rate)
}

// GetLogAverageOf returns ln(integral of g(x)*that(x) dx).
func (g *Gamma) GetLogAverageOf(that *Gamma) float64 {
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
	product := &Gamma{Shape: g.Shape + that.Shape - 1, Rate: g.Rate + that.Rate}
	return product.GetLogNormalizer() - g.GetLogNormalizer() - that.GetLogNormalizer()
}

// GetAverageLog returns E[ln that(x)] under the receiver.
func (g *Gamma) GetAverageLog(that *Gamma) float64 {
	if that.IsPointMass() {
		if g.IsPointMass() && g.Point() == that.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	if that.IsUniform() {
		return 0
	}
	return (that.Shape-1)*g.GetMeanLog() - that.Rate*g.GetMean() +
		that.Shape*math.Log(that.Rate) - GammaLn(that.Shape)
}

// GetProbLessThan returns the cumulative distribution function at x.
func (g *Gamma) GetProbLessThan(x float64) float64 {
	if g.IsPointMass() {
		if x > g.Point() {
			return 1
		}
		return 0
	}
	if x <= 0 {
		return 0
	}
	return GammaLowerRegularized(g.Shape, g.Rate*x)
}

// SetTo copies value into the receiver.
func (g *Gamma) SetTo(value *Gamma) { *g = *value }

// Clone returns an independent copy.
func (g *Gamma) Clone() *Gamma {
	c := *g
	return &c
}

// SetToProduct sets the receiver to the product of a and b. It panics
// with ErrAllZero when a and b are point masses at different points.
func (g *Gamma) SetToProduct(a, b *Gamma) {
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
	g.Shape = a.Shape + b.Shape - 1
	g.Rate = a.Rate + b.Rate
}

// SetToRatio sets the receiver to numerator/denominator.
func (g *Gamma) SetToRatio(numerator, denominator *Gamma) {
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
	g.Shape = numerator.Shape - denominator.Shape + 1
	g.Rate = numerator.Rate - denominator.Rate
}

// SetToRatioForceProper behaves like SetToRatio but clamps a negative
// Rate to zero so the result can be used as an outgoing message.
// The Shape is left as computed; a Shape below one describes a valid
// improper message and is handled downstream.
func (g *Gamma) SetToRatioForceProper(numerator, denominator *Gamma) {
	g.SetToRatio(numerator, denominator)
	if g.Rate < 0 {
		g.Rate = 0
	}
}

// SetToPower sets the receiver to value raised to exponent.
func (g *Gamma) SetToPower(value *Gamma, exponent float64) {
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
	g.Shape = exponent*(value.Shape-1) + 1
	g.Rate = exponent * value.Rate
}

// Sample draws one value from the distribution.
func (g *Gamma) Sample(src rand.Source) float64 {
	if g.IsPointMass() {
		return g.Point()
	}
	return distuv.Gamma{Alpha: g.Shape, Beta: g.Rate, Src: src}.Rand()
}

// String formats the distribution for diagnostics.
func (g *Gamma) String() string {
	if g.IsPointMass() {
		return fmt.Sprintf("Gamma.PointMass(%v)", g.Point())
	}
	if g.IsUniform() {
		return "Gamma.Uniform"
	}
	return fmt.Sprintf("Gamma(%v, %v)[mean=%v]", g.Shape, g.Rate, g.GetMean())
}
