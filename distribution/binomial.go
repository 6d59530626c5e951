package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Binomial is a distribution over the integers 0..TrialCount in the
// exponential-family form
//
//	p(x) ∝ exp(x*LogOdds) / (x!^A * (TrialCount-x)!^B)
//
// A = B = 1 gives the standard binomial distribution with success
// probability logistic(LogOdds). The extra exponents keep the family
// closed under multiplication: log odds and exponents add.
type Binomial struct {
	// TrialCount is the number of trials.
	TrialCount int

	// LogOdds is the log odds of success per trial.
	LogOdds float64

	// A is the exponent on x!.
	A float64

	// B is the exponent on (TrialCount-x)!.
	B float64

	point   int
	isPoint bool
}

// NewBinomial returns a binomial distribution with the given number of
// trials and per-trial success probability.
func NewBinomial(trialCount int, probTrue float64) *Binomial {
	return &Binomial{
		TrialCount: trialCount,
		LogOdds:    math.Log(probTrue) - math.Log1p(-probTrue),
		A:          1,
		B:          1,
	}
}

// BinomialFromNatural returns a binomial distribution with the given
// natural parameters.
func BinomialFromNatural(trialCount int, logOdds, a, b float64) *Binomial {
	return &Binomial{TrialCount: trialCount, LogOdds: logOdds, A: a, B: b}
}

// BinomialUniform returns the uniform distribution over 0..trialCount.
func BinomialUniform(trialCount int) *Binomial {
	return &Binomial{TrialCount: trialCount}
}

// BinomialPointMass returns a point mass at value.
func BinomialPointMass(trialCount, value int) *Binomial {
	return &Binomial{TrialCount: trialCount, point: value, isPoint: true}
}

// IsPointMass reports whether the distribution is a point mass.
func (b *Binomial) IsPointMass() bool { return b.isPoint }

// Point returns the value holding all mass.
func (b *Binomial) Point() int { return b.point }

// IsUniform reports whether all values are equally likely.
func (b *Binomial) IsUniform() bool {
	return !b.isPoint && b.LogOdds == 0 && b.A == 0 && b.B == 0
}

// SetToUniform removes all information from the distribution.
func (b *Binomial) SetToUniform() {
	b.LogOdds = 0
	b.A = 0
	b.B = 0
	b.isPoint = false
}

// SetToPointMass puts all mass on value.
func (b *Binomial) SetToPointMass(value int) {
	b.point = value
	b.isPoint = true
}

// GetProbTrue returns the per-trial success probability.
func (b *Binomial) GetProbTrue() float64 {
	return 1 / (1 + math.Exp(-b.LogOdds))
}

// GetLogNormalizer returns the log of the sum over 0..TrialCount.
func (b *Binomial) GetLogNormalizer() float64 {
	if b.isPoint {
		return 0
	}
	n := b.TrialCount
	m := math.Inf(-1)
	s := 0.0
	for x := 0; x <= n; x++ {
		t := b.logWeight(x)
		if t > m {
			s *= math.Exp(m - t)
			m = t
		}
		s += math.Exp(t - m)
	}
	return m + math.Log(s)
}

// logWeight returns the unnormalized log probability of x.
func (b *Binomial) logWeight(x int) float64 {
	return float64(x)*b.LogOdds - b.A*FactorialLn(x) - b.B*FactorialLn(b.TrialCount-x)
}

// GetLogProb returns the log probability of x. Point masses use
// counting measure.
func (b *Binomial) GetLogProb(x int) float64 {
	if b.isPoint {
		if x == b.point {
			return 0
		}
		return math.Inf(-1)
	}
	if x < 0 || x > b.TrialCount {
		return math.Inf(-1)
	}
	return b.logWeight(x) - b.GetLogNormalizer()
}

// GetMean returns the expected value.
func (b *Binomial) GetMean() float64 {
	if b.isPoint {
		return float64(b.point)
	}
	if b.A == 1 && b.B == 1 {
		return float64(b.TrialCount) * b.GetProbTrue()
	}
	mean, _ := b.moments()
	return mean
}

// GetVariance returns the variance.
func (b *Binomial) GetVariance() float64 {
	if b.isPoint {
		return 0
	}
	if b.A == 1 && b.B == 1 {
		p := b.GetProbTrue()
		return float64(b.TrialCount) * p * (1 - p)
	}
	_, variance := b.moments()
	return variance
}

func (b *Binomial) moments() (mean, variance float64) {
	m := math.Inf(-1)
	var s, sx, sxx float64
	for x := 0; x <= b.TrialCount; x++ {
		t := b.logWeight(x)
		if t > m {
			scale := math.Exp(m - t)
			s *= scale
			sx *= scale
			sxx *= scale
			m = t
		}
		w := math.Exp(t - m)
		fx := float64(x)
		s += w
		sx += w * fx
		sxx += w * fx * fx
	}
	mean = sx / s
	variance = sxx/s - mean*mean
	return mean, variance
}

// GetMode returns the most probable value.
func (b *Binomial) GetMode() int {
	if b.isPoint {
		return b.point
	}
	best, bestWeight := 0, math.Inf(-1)
	for x := 0; x <= b.TrialCount; x++ {
		if t := b.logWeight(x); t > bestWeight {
			best, bestWeight = x, t
		}
	}
	return best
}

// GetLogAverageOf returns ln(sum over x of b(x)*that(x)).
func (b *Binomial) GetLogAverageOf(that *Binomial) float64 {
	b.checkTrialCount(that)
	if b.isPoint {
		return that.GetLogProb(b.point)
	}
	if that.isPoint {
		return b.GetLogProb(that.point)
	}
	product := BinomialFromNatural(b.TrialCount,
		b.LogOdds+that.LogOdds, b.A+that.A, b.B+that.B)
	return product.GetLogNormalizer() - b.GetLogNormalizer() - that.GetLogNormalizer()
}

// GetAverageLog returns E[ln that(x)] under the receiver.
func (b *Binomial) GetAverageLog(that *Binomial) float64 {
	b.checkTrialCount(that)
	if that.isPoint {
		if b.isPoint && b.point == that.point {
			return 0
		}
		return math.Inf(-1)
	}
	if b.isPoint {
		return that.GetLogProb(b.point)
	}
	sum := 0.0
	for x := 0; x <= b.TrialCount; x++ {
		p := math.Exp(b.GetLogProb(x))
		if p > 0 {
			sum += p * that.logWeight(x)
		}
	}
	return sum - that.GetLogNormalizer()
}

// SetTo copies value into the receiver.
func (b *Binomial) SetTo(value *Binomial) { *b = *value }

// Clone returns an independent copy.
func (b *Binomial) Clone() *Binomial {
	c := *b
	return &c
}

// SetToProduct sets the receiver to the product of x and y. It panics
// with ErrAllZero when x and y are point masses at different values.
func (b *Binomial) SetToProduct(x, y *Binomial) {
	x.checkTrialCount(y)
	if x.isPoint {
		if y.isPoint && x.point != y.point {
			panic(ErrAllZero)
		}
		b.SetTo(x)
		return
	}
	if y.isPoint {
		b.SetTo(y)
		return
	}
	b.TrialCount = x.TrialCount
	b.LogOdds = x.LogOdds + y.LogOdds
	b.A = x.A + y.A
	b.B = x.B + y.B
	b.isPoint = false
}

// SetToRatio sets the receiver to numerator/denominator.
func (b *Binomial) SetToRatio(numerator, denominator *Binomial) {
	numerator.checkTrialCount(denominator)
	if numerator.isPoint {
		if denominator.isPoint {
			if numerator.point != denominator.point {
				panic(ErrAllZero)
			}
			b.TrialCount = numerator.TrialCount
			b.SetToUniform()
			return
		}
		b.TrialCount = numerator.TrialCount
		b.SetToPointMass(numerator.point)
		return
	}
	if denominator.isPoint {
		panic(ErrImproper)
	}
	b.TrialCount = numerator.TrialCount
	b.LogOdds = numerator.LogOdds - denominator.LogOdds
	b.A = numerator.A - denominator.A
	b.B = numerator.B - denominator.B
	b.isPoint = false
}

// SetToPower sets the receiver to value raised to exponent.
func (b *Binomial) SetToPower(value *Binomial, exponent float64) {
	if value.isPoint {
		if exponent == 0 {
			b.TrialCount = value.TrialCount
			b.SetToUniform()
			return
		}
		if exponent < 0 {
			panic(ErrImproper)
		}
		b.SetTo(value)
		return
	}
	b.TrialCount = value.TrialCount
	b.LogOdds = value.LogOdds * exponent
	b.A = value.A * exponent
	b.B = value.B * exponent
	b.isPoint = false
}

// Sample draws one value from the distribution.
func (b *Binomial) Sample(src rand.Source) int {
	if b.isPoint {
		return b.point
	}
	if b.A == 1 && b.B == 1 {
		return int(distuv.Binomial{N: float64(b.TrialCount), P: b.GetProbTrue(), Src: src}.Rand())
	}
	u := rand.New(src).Float64()
	cum := 0.0
	for x := 0; x <= b.TrialCount; x++ {
		cum += math.Exp(b.GetLogProb(x))
		if u <= cum {
			return x
		}
	}
	return b.TrialCount
}

func (b *Binomial) checkTrialCount(that *Binomial) {
	if b.TrialCount != that.TrialCount {
		panic(fmt.Sprintf("distribution: Binomial trial count %v does not match %v",
			b.TrialCount, that.TrialCount))
	}
}

// String formats the distribution for diagnostics.
func (b *Binomial) String() string {
	if b.isPoint {
		return fmt.Sprintf("Binomial.PointMass(%d)", b.point)
	}
	return fmt.Sprintf("Binomial(%d,%v)", b.TrialCount, b.GetProbTrue())
}
