package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Bernoulli is a distribution over {false, true} stored as the log
// odds ln(p/(1-p)). Multiplying two Bernoullis adds log odds.
//
// Infinite log odds are the point masses; zero log odds is uniform.
type Bernoulli struct {
	LogOdds float64
}

// BernoulliFromLogOdds returns a Bernoulli with the given log odds.
func BernoulliFromLogOdds(logOdds float64) *Bernoulli {
	return &Bernoulli{LogOdds: logOdds}
}

// BernoulliFromProbTrue returns a Bernoulli with the given probability
// of true.
func BernoulliFromProbTrue(probTrue float64) *Bernoulli {
	return &Bernoulli{LogOdds: math.Log(probTrue) - math.Log1p(-probTrue)}
}

// BernoulliPointMass returns a point mass at value.
func BernoulliPointMass(value bool) *Bernoulli {
	if value {
		return &Bernoulli{LogOdds: math.Inf(1)}
	}
	return &Bernoulli{LogOdds: math.Inf(-1)}
}

// BernoulliUniform returns the uniform Bernoulli.
func BernoulliUniform() *Bernoulli {
	return new(Bernoulli)
}

// IsPointMass reports whether the distribution is a point mass.
func (b *Bernoulli) IsPointMass() bool { return math.IsInf(b.LogOdds, 0) }

// Point returns the value holding all mass.
func (b *Bernoulli) Point() bool { return b.LogOdds > 0 }

// IsUniform reports whether both values are equally likely.
func (b *Bernoulli) IsUniform() bool { return b.LogOdds == 0 }

// SetToUniform removes all information from the distribution.
func (b *Bernoulli) SetToUniform() { b.LogOdds = 0 }

// SetToPointMass puts all mass on value.
func (b *Bernoulli) SetToPointMass(value bool) {
	if value {
		b.LogOdds = math.Inf(1)
	} else {
		b.LogOdds = math.Inf(-1)
	}
}

// GetProbTrue returns the probability of true.
func (b *Bernoulli) GetProbTrue() float64 {
	return 1 / (1 + math.Exp(-b.LogOdds))
}

// GetProbFalse returns the probability of false.
func (b *Bernoulli) GetProbFalse() float64 {
	return 1 / (1 + math.Exp(b.LogOdds))
}

// GetLogProbTrue returns ln P(true).
func (b *Bernoulli) GetLogProbTrue() float64 {
	return -LogSumExp(0, -b.LogOdds)
}

// GetLogProbFalse returns ln P(false).
func (b *Bernoulli) GetLogProbFalse() float64 {
	return -LogSumExp(0, b.LogOdds)
}

// SetProbTrue sets the probability of true.
func (b *Bernoulli) SetProbTrue(probTrue float64) {
	b.LogOdds = math.Log(probTrue) - math.Log1p(-probTrue)
}

// GetLogProb returns the log probability of x. Point masses use
// counting measure.
func (b *Bernoulli) GetLogProb(x bool) float64 {
	if b.IsPointMass() {
		if x == b.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	if x {
		return b.GetLogProbTrue()
	}
	return b.GetLogProbFalse()
}

// GetLogAverageOf returns ln(sum over x of b(x)*that(x)).
func (b *Bernoulli) GetLogAverageOf(that *Bernoulli) float64 {
	if b.IsPointMass() {
		return that.GetLogProb(b.Point())
	}
	if that.IsPointMass() {
		return b.GetLogProb(that.Point())
	}
	return LogSumExp(b.GetLogProbTrue()+that.GetLogProbTrue(),
		b.GetLogProbFalse()+that.GetLogProbFalse())
}

// GetAverageLog returns E[ln that(x)] under the receiver.
func (b *Bernoulli) GetAverageLog(that *Bernoulli) float64 {
	if that.IsPointMass() {
		if b.IsPointMass() && b.Point() == that.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	p := b.GetProbTrue()
	sum := 0.0
	if p > 0 {
		sum += p * that.GetLogProbTrue()
	}
	if p < 1 {
		sum += (1 - p) * that.GetLogProbFalse()
	}
	return sum
}

// SetTo copies value into the receiver.
func (b *Bernoulli) SetTo(value *Bernoulli) { *b = *value }

// Clone returns an independent copy.
func (b *Bernoulli) Clone() *Bernoulli {
	c := *b
	return &c
}

// SetToProduct sets the receiver to the product of a and c. It panics
// with ErrAllZero when a and c are point masses at different values.
func (b *Bernoulli) SetToProduct(a, c *Bernoulli) {
	if a.IsPointMass() && c.IsPointMass() && a.Point() != c.Point() {
		panic(ErrAllZero)
	}
	b.LogOdds = a.LogOdds + c.LogOdds
	if math.IsNaN(b.LogOdds) {
		// Inf + -Inf: one factor is a point mass, the other must win
		if a.IsPointMass() {
			b.LogOdds = a.LogOdds
		} else {
			b.LogOdds = c.LogOdds
		}
	}
}

// SetToRatio sets the receiver to numerator/denominator.
func (b *Bernoulli) SetToRatio(numerator, denominator *Bernoulli) {
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
	b.LogOdds = numerator.LogOdds - denominator.LogOdds
}

// SetToPower sets the receiver to value raised to exponent.
func (b *Bernoulli) SetToPower(value *Bernoulli, exponent float64) {
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
	b.LogOdds = value.LogOdds * exponent
}

// Sample draws one value from the distribution.
func (b *Bernoulli) Sample(src rand.Source) bool {
	if b.IsPointMass() {
		return b.Point()
	}
	return distuv.Bernoulli{P: b.GetProbTrue(), Src: src}.Rand() == 1
}

// String formats the distribution for diagnostics.
func (b *Bernoulli) String() string {
	if b.IsPointMass() {
		return fmt.Sprintf("Bernoulli.PointMass(%v)", b.Point())
	}
	return fmt.Sprintf("Bernoulli(%v)", b.GetProbTrue())
}
