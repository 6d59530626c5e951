package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Poisson is a distribution over non-negative integers in the
// Conway-Maxwell-Poisson form
//
//	p(x) ∝ Rate^x / x!^Precision
//
// Precision 1 gives the ordinary Poisson distribution. Precision 0
// with Rate < 1 gives a geometric distribution. The family is closed
// under multiplication: rates multiply and precisions add.
//
// A point mass is stored as Precision = +Inf with the value in Rate.
type Poisson struct {
	// Rate is the rate parameter, must be >= 0.
	Rate float64

	// Precision is the exponent on x!.
	Precision float64
}

// PoissonFromRate returns an ordinary Poisson distribution with the
// given rate.
func PoissonFromRate(rate float64) *Poisson {
	return &Poisson{Rate: rate, Precision: 1}
}

// PoissonFromRateAndPrecision returns a COM-Poisson distribution with
// the given parameters.
func PoissonFromRateAndPrecision(rate, precision float64) *Poisson {
	return &Poisson{Rate: rate, Precision: precision}
}

// PoissonPointMass returns a point mass at value.
func PoissonPointMass(value int) *Poisson {
	return &Poisson{Rate: float64(value), Precision: math.Inf(1)}
}

// PoissonUniform returns the (improper) uniform distribution over
// non-negative integers.
func PoissonUniform() *Poisson {
	return &Poisson{Rate: 1, Precision: 0}
}

// IsPointMass reports whether the distribution is a point mass.
func (p *Poisson) IsPointMass() bool { return math.IsInf(p.Precision, 1) }

// Point returns the value holding all mass.
func (p *Poisson) Point() int { return int(p.Rate) }

// IsUniform reports whether the distribution is uniform.
func (p *Poisson) IsUniform() bool { return p.Rate == 1 && p.Precision == 0 }

// SetToUniform removes all information from the distribution.
func (p *Poisson) SetToUniform() {
	p.Rate = 1
	p.Precision = 0
}

// SetToPointMass puts all mass on value.
func (p *Poisson) SetToPointMass(value int) {
	p.Rate = float64(value)
	p.Precision = math.Inf(1)
}

// IsProper reports whether the series sum is finite.
func (p *Poisson) IsProper() bool {
	if p.IsPointMass() {
		return true
	}
	if p.Rate < 0 {
		return false
	}
	return p.Precision > 0 || (p.Precision == 0 && p.Rate < 1)
}

// comPoissonMoments sums the series Rate^x / x!^Precision, returning
// the log normalizer and the first moments of x and ln x!.
func comPoissonMoments(logRate, precision float64) (logZ, mean, variance, meanLogFactorial float64) {
	if precision < 0 || (precision == 0 && logRate >= 0) {
		return math.Inf(1), math.NaN(), math.NaN(), math.NaN()
	}
	if precision == 0 {
		// geometric series with ratio Rate
		r := math.Exp(logRate)
		logZ = -math.Log1p(-r)
		mean = r / (1 - r)
		variance = r / ((1 - r) * (1 - r))
		meanLogFactorial = math.NaN()
		// fall through to the series for E[ln x!]
	}
	// terms fall off past the mode at Rate^(1/Precision)
	modeBound := 0.0
	if precision > 0 {
		modeBound = math.Exp(logRate / precision)
	}
	m := math.Inf(-1)
	var s, sx, sxx, slf float64
	for x := 0; x <= 100000; x++ {
		t := float64(x)*logRate - precision*FactorialLn(x)
		if t > m {
			scale := math.Exp(m - t)
			s *= scale
			sx *= scale
			sxx *= scale
			slf *= scale
			m = t
		}
		w := math.Exp(t - m)
		fx := float64(x)
		s += w
		sx += w * fx
		sxx += w * fx * fx
		slf += w * FactorialLn(x)
		if t < m-40 && fx > modeBound {
			break
		}
	}
	if precision == 0 {
		return logZ, mean, variance, slf / s
	}
	logZ = m + math.Log(s)
	mean = sx / s
	variance = sxx/s - mean*mean
	meanLogFactorial = slf / s
	return logZ, mean, variance, meanLogFactorial
}

// GetLogNormalizer returns the log of the series sum.
func (p *Poisson) GetLogNormalizer() float64 {
	if p.IsPointMass() {
		return 0
	}
	if p.Rate == 0 {
		return 0
	}
	if p.Precision == 1 {
		return p.Rate
	}
	logZ, _, _, _ := comPoissonMoments(math.Log(p.Rate), p.Precision)
	return logZ
}

// GetMean returns the expected value.
func (p *Poisson) GetMean() float64 {
	if p.IsPointMass() {
		return p.Rate
	}
	if p.Precision == 1 {
		return p.Rate
	}
	_, mean, _, _ := comPoissonMoments(math.Log(p.Rate), p.Precision)
	return mean
}

// GetVariance returns the variance.
func (p *Poisson) GetVariance() float64 {
	if p.IsPointMass() {
		return 0
	}
	if p.Precision == 1 {
		return p.Rate
	}
	_, _, variance, _ := comPoissonMoments(math.Log(p.Rate), p.Precision)
	return variance
}

// GetMeanLogFactorial returns E[ln x!].
func (p *Poisson) GetMeanLogFactorial() float64 {
	if p.IsPointMass() {
		return FactorialLn(p.Point())
	}
	_, _, _, mlf := comPoissonMoments(math.Log(p.Rate), p.Precision)
	return mlf
}

// GetLogProb returns the log probability of x. Point masses use
// counting measure.
func (p *Poisson) GetLogProb(x int) float64 {
	if p.IsPointMass() {
		if x == p.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	if x < 0 {
		return math.Inf(-1)
	}
	if p.Rate == 0 {
		if x == 0 {
			return 0
		}
		return math.Inf(-1)
	}
	return float64(x)*math.Log(p.Rate) - p.Precision*FactorialLn(x) - p.GetLogNormalizer()
}

// GetLogAverageOf returns ln(sum over x of p(x)*that(x)).
func (p *Poisson) GetLogAverageOf(that *Poisson) float64 {
	if p.IsPointMass() {
		return that.GetLogProb(p.Point())
	}
	if that.IsPointMass() {
		return p.GetLogProb(that.Point())
	}
	logZ, _, _, _ := comPoissonMoments(math.Log(p.Rate)+math.Log(that.Rate),
		p.Precision+that.Precision)
	return logZ - p.GetLogNormalizer() - that.GetLogNormalizer()
}

// GetAverageLog returns E[ln that(x)] under the receiver.
func (p *Poisson) GetAverageLog(that *Poisson) float64 {
	if that.IsPointMass() {
		if p.IsPointMass() && p.Point() == that.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	if p.IsPointMass() {
		return that.GetLogProb(p.Point())
	}
	return p.GetMean()*math.Log(that.Rate) -
		that.Precision*p.GetMeanLogFactorial() -
		that.GetLogNormalizer()
}

// SetTo copies value into the receiver.
func (p *Poisson) SetTo(value *Poisson) { *p = *value }

// Clone returns an independent copy.
func (p *Poisson) Clone() *Poisson {
	c := *p
	return &c
}

// SetToProduct sets the receiver to the product of a and b. It panics
// with ErrAllZero when a and b are point masses at different values.
func (p *Poisson) SetToProduct(a, b *Poisson) {
	if a.IsPointMass() {
		if b.IsPointMass() && a.Point() != b.Point() {
			panic(ErrAllZero)
		}
		p.SetTo(a)
		return
	}
	if b.IsPointMass() {
		p.SetTo(b)
		return
	}
	p.Rate = a.Rate * b.Rate
	p.Precision = a.Precision + b.Precision
}

// SetToRatio sets the receiver to numerator/denominator.
func (p *Poisson) SetToRatio(numerator, denominator *Poisson) {
	if numerator.IsPointMass() {
		if denominator.IsPointMass() {
			if numerator.Point() != denominator.Point() {
				panic(ErrAllZero)
			}
			p.SetToUniform()
			return
		}
		p.SetToPointMass(numerator.Point())
		return
	}
	if denominator.IsPointMass() {
		panic(ErrImproper)
	}
	p.Rate = numerator.Rate / denominator.Rate
	p.Precision = numerator.Precision - denominator.Precision
}

// SetToPower sets the receiver to value raised to exponent.
func (p *Poisson) SetToPower(value *Poisson, exponent float64) {
	if value.IsPointMass() {
		if exponent == 0 {
			p.SetToUniform()
			return
		}
		if exponent < 0 {
			panic(ErrImproper)
		}
		p.SetTo(value)
		return
	}
	p.Rate = math.Pow(value.Rate, exponent)
	p.Precision = value.Precision * exponent
}

// Sample draws one value from the distribution.
func (p *Poisson) Sample(src rand.Source) int {
	if p.IsPointMass() {
		return p.Point()
	}
	if p.Precision == 1 {
		return int(distuv.Poisson{Lambda: p.Rate, Src: src}.Rand())
	}
	u := rand.New(src).Float64()
	cum := 0.0
	for x := 0; x < 100000; x++ {
		cum += math.Exp(p.GetLogProb(x))
		if u <= cum {
			return x
		}
	}
	return 100000
}

// String formats the distribution for diagnostics.
func (p *Poisson) String() string {
	if p.IsPointMass() {
		return fmt.Sprintf("Poisson.PointMass(%d)", p.Point())
	}
	if p.Precision == 1 {
		return fmt.Sprintf("Poisson(%v)", p.Rate)
	}
	return fmt.Sprintf("ComPoisson(%v,%v)", p.Rate, p.Precision)
}
