package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Beta is a Beta distribution over [0,1] parameterized by the
// pseudo-counts TrueCount and FalseCount, with density proportional to
// x^(TrueCount-1) * (1-x)^(FalseCount-1). Multiplying two Betas adds
// pseudo-count exponents.
//
// If FalseCount is infinite, the distribution is a point mass and
// TrueCount holds the point. TrueCount=FalseCount=1 is the uniform
// distribution.
type Beta struct {
	TrueCount  float64
	FalseCount float64
}

// NewBeta returns a Beta with the given pseudo-counts.
func NewBeta(trueCount, falseCount float64) *Beta {
	return &Beta{TrueCount: trueCount, FalseCount: falseCount}
}

// BetaFromMeanAndTotalCount returns the Beta with the given mean and
// total pseudo-count.
func BetaFromMeanAndTotalCount(mean, totalCount float64) *Beta {
	return &Beta{TrueCount: mean * totalCount, FalseCount: (1 - mean) * totalCount}
}

// BetaFromMeanAndVariance returns the Beta with the given first and
// second moments. A zero variance produces a point mass.
func BetaFromMeanAndVariance(mean, variance float64) *Beta {
	if variance == 0 {
		return BetaPointMass(mean)
	}
	totalCount := mean*(1-mean)/variance - 1
	return BetaFromMeanAndTotalCount(mean, totalCount)
}

// BetaPointMass returns a point mass at p in [0,1].
func BetaPointMass(p float64) *Beta {
	return &Beta{TrueCount: p, FalseCount: math.Inf(1)}
}

// BetaUniform returns the uniform Beta(1,1).
func BetaUniform() *Beta {
	return &Beta{TrueCount: 1, FalseCount: 1}
}

// IsPointMass reports whether the distribution is a point mass.
func (b *Beta) IsPointMass() bool { return math.IsInf(b.FalseCount, 1) }

// Point returns the location of a point mass.
func (b *Beta) Point() float64 { return b.TrueCount }

// IsUniform reports whether the distribution carries no information.
func (b *Beta) IsUniform() bool { return b.TrueCount == 1 && b.FalseCount == 1 }

// IsProper reports whether both pseudo-counts are positive.
func (b *Beta) IsProper() bool { return b.TrueCount > 0 && b.FalseCount > 0 }

// TotalCount returns the sum of the pseudo-counts.
func (b *Beta) TotalCount() float64 { return b.TrueCount + b.FalseCount }

// SetToUniform removes all information from the distribution.
func (b *Beta) SetToUniform() {
	b.TrueCount = 1
	b.FalseCount = 1
}

// SetToPointMass makes the distribution a point mass at p.
func (b *Beta) SetToPointMass(p float64) {
	b.TrueCount = p
	b.FalseCount = math.Inf(1)
}

// GetMean returns the mean TrueCount/TotalCount.
func (b *Beta) GetMean() float64 {
	if b.IsPointMass() {
		return b.Point()
	}
	return b.TrueCount / b.TotalCount()
}

// GetVariance returns the variance.
func (b *Beta) GetVariance() float64 {
	if b.IsPointMass() {
		return 0
	}
	tc := b.TotalCount()
	return b.TrueCount * b.FalseCount / (tc * tc * (tc + 1))
}

// GetMeanAndVariance returns the mean and variance together.
func (b *Beta) GetMeanAndVariance() (mean, variance float64) {
	return b.GetMean(), b.GetVariance()
}

// GetMeanLogs returns E[ln x] and E[ln(1-x)].
func (b *Beta) GetMeanLogs() (meanLogP, meanLogOneMinusP float64) {
	if b.IsPointMass() {
		return math.Log(b.Point()), math.Log(1 - b.Point())
	}
	dTotal := Digamma(b.TotalCount())
	return Digamma(b.TrueCount) - dTotal, Digamma(b.FalseCount) - dTotal
}

// GetLogProb returns the log density at x. Point masses use counting
// measure.
func (b *Beta) GetLogProb(x float64) float64 {
	if b.IsPointMass() {
		if x == b.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	if b.IsUniform() {
		return 0
	}
	return (b.TrueCount-1)*math.Log(x) + (b.FalseCount-1)*math.Log1p(-x) -
		BetaLn(b.TrueCount, b.FalseCount)
}

// GetLogNormalizer returns the log-partition function.
func (b *Beta) GetLogNormalizer() float64 {
	if !b.IsProper() || b.IsPointMass() {
		return 0
	}
	return BetaLn(b.TrueCount, b.FalseCount)
}

// GetLogAverageOf returns ln(integral of b(x)*that(x) dx).
func (b *Beta) GetLogAverageOf(that *Beta) float64 {
	if b.IsPointMass() {
		if that.IsPointMass() {
			if b.Point() == that.Point() {
				return 0
			}
			return math.Inf(-1)
		}
		return that.GetLogProb(b.Point())
	}
	if that.IsPointMass() {
		return b.GetLogProb(that.Point())
	}
	t := b.TrueCount + that.TrueCount - 1
	f := b.FalseCount + that.FalseCount - 1
	if t <= 0 || f <= 0 {
		return math.Inf(1)
	}
	return BetaLn(t, f) - b.GetLogNormalizer() - that.GetLogNormalizer()
}

// GetAverageLog returns E[ln that(x)] under the receiver.
func (b *Beta) GetAverageLog(that *Beta) float64 {
	if that.IsPointMass() {
		if b.IsPointMass() && b.Point() == that.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	if that.IsUniform() {
		return 0
	}
	meanLogP, meanLogQ := b.GetMeanLogs()
	return (that.TrueCount-1)*meanLogP + (that.FalseCount-1)*meanLogQ -
		BetaLn(that.TrueCount, that.FalseCount)
}

// SetTo copies value into the receiver.
func (b *Beta) SetTo(value *Beta) { *b = *value }

// Clone returns an independent copy.
func (b *Beta) Clone() *Beta {
	c := *b
	return &c
}

// SetToProduct sets the receiver to the product of a and c. It panics
// with ErrAllZero when a and c are point masses at different points.
func (b *Beta) SetToProduct(a, c *Beta) {
	if a.IsPointMass() {
		if c.IsPointMass() && a.Point() != c.Point() {
			panic(ErrAllZero)
		}
		b.SetToPointMass(a.Point())
		return
	}
	if c.IsPointMass() {
		b.SetToPointMass(c.Point())
		return
	}
	b.TrueCount = a.TrueCount + c.TrueCount - 1
	b.FalseCount = a.FalseCount + c.FalseCount - 1
}

// SetToRatio sets the receiver to numerator/denominator.
func (b *Beta) SetToRatio(numerator, denominator *Beta) {
	if numerator.IsPointMass() {
		if denominator.IsPointMass() {
			if numerator.Point() != denominator.Point() {
				panic(ErrAllZero)
			}
			b.SetToUniform()
			return
		}
		b.SetToPointMass(numerator.Point())
		return
	}
	if denominator.IsPointMass() {
		panic(ErrImproper)
	}
	b.TrueCount = numerator.TrueCount - denominator.TrueCount + 1
	b.FalseCount = numerator.FalseCount - denominator.FalseCount + 1
}

// SetToPower sets the receiver to value raised to exponent.
func (b *Beta) SetToPower(value *Beta, exponent float64) {
	if value.IsPointMass() {
		if exponent == 0 {
			b.SetToUniform()
			return
		}
		if exponent < 0 {
			panic(ErrImproper)
		}
		b.SetToPointMass(value.Point())
		return
	}
	b.TrueCount = exponent*(value.TrueCount-1) + 1
	b.FalseCount = exponent*(value.FalseCount-1) + 1
}

// Sample draws one value from the distribution.
func (b *Beta) Sample(src rand.Source) float64 {
	if b.IsPointMass() {
		return b.Point()
	}
	return distuv.Beta{Alpha: b.TrueCount, Beta: b.FalseCount, Src: src}.Rand()
}

// String formats the distribution for diagnostics.
func (b *Beta) String() string {
	if b.IsPointMass() {
		return fmt.Sprintf("Beta.PointMass(%v)", b.Point())
	}
	return fmt.Sprintf("Beta(%v, %v)", b.TrueCount, b.FalseCount)
}
