package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Discrete is a distribution over the integers 0..Dimension-1, stored
// as a normalized probability vector. Messages are defined up to a
// positive scale, so the normalization constant of products and ratios
// is dropped.
type Discrete struct {
	prob []float64
}

// NewDiscrete returns a Discrete with the given unnormalized weights.
// It panics with ErrAllZero if every weight is zero.
func NewDiscrete(prob ...float64) *Discrete {
	p := make([]float64, len(prob))
	copy(p, prob)
	d := &Discrete{prob: p}
	d.normalize()
	return d
}

// DiscreteUniform returns the uniform distribution over dimension
// values.
func DiscreteUniform(dimension int) *Discrete {
	d := &Discrete{prob: make([]float64, dimension)}
	d.SetToUniform()
	return d
}

// DiscretePointMass returns a point mass at value.
func DiscretePointMass(value, dimension int) *Discrete {
	d := &Discrete{prob: make([]float64, dimension)}
	d.prob[value] = 1
	return d
}

// Dimension returns the number of values.
func (d *Discrete) Dimension() int { return len(d.prob) }

// Probs returns the normalized probability vector. The slice is owned
// by the distribution and must not be modified.
func (d *Discrete) Probs() []float64 { return d.prob }

// GetProb returns the probability of value i.
func (d *Discrete) GetProb(i int) float64 { return d.prob[i] }

// GetLogProb returns the log probability of value i.
func (d *Discrete) GetLogProb(i int) float64 { return math.Log(d.prob[i]) }

// IsPointMass reports whether all mass sits on a single value.
func (d *Discrete) IsPointMass() bool {
	for _, p := range d.prob {
		if p == 1 {
			return true
		}
	}
	return false
}

// Point returns the value holding all mass. The result is meaningless
// if the distribution is not a point mass.
func (d *Discrete) Point() int {
	return floats.MaxIdx(d.prob)
}

// IsUniform reports whether every value has equal probability.
func (d *Discrete) IsUniform() bool {
	p0 := d.prob[0]
	for _, p := range d.prob[1:] {
		if p != p0 {
			return false
		}
	}
	return true
}

// SetToUniform gives every value equal probability.
func (d *Discrete) SetToUniform() {
	u := 1 / float64(len(d.prob))
	for i := range d.prob {
		d.prob[i] = u
	}
}

// SetToPointMass puts all mass on value.
func (d *Discrete) SetToPointMass(value int) {
	for i := range d.prob {
		d.prob[i] = 0
	}
	d.prob[value] = 1
}

// SetProbs replaces the probability vector with the given weights,
// normalizing them.
func (d *Discrete) SetProbs(prob []float64) {
	d.checkDimension(len(prob))
	copy(d.prob, prob)
	d.normalize()
}

// GetMean returns the expected value.
func (d *Discrete) GetMean() float64 {
	mean := 0.0
	for i, p := range d.prob {
		mean += float64(i) * p
	}
	return mean
}

// GetMode returns the most probable value.
func (d *Discrete) GetMode() int {
	return floats.MaxIdx(d.prob)
}

// GetLogAverageOf returns ln(sum over i of d(i)*that(i)).
func (d *Discrete) GetLogAverageOf(that *Discrete) float64 {
	d.checkDimension(that.Dimension())
	sum := 0.0
	for i, p := range d.prob {
		sum += p * that.prob[i]
	}
	return math.Log(sum)
}

// GetAverageLog returns E[ln that(i)] under the receiver.
func (d *Discrete) GetAverageLog(that *Discrete) float64 {
	d.checkDimension(that.Dimension())
	sum := 0.0
	for i, p := range d.prob {
		if p > 0 {
			sum += p * math.Log(that.prob[i])
		}
	}
	return sum
}

// SetTo copies value into the receiver.
func (d *Discrete) SetTo(value *Discrete) {
	d.checkDimension(value.Dimension())
	copy(d.prob, value.prob)
}

// Clone returns an independent copy.
func (d *Discrete) Clone() *Discrete {
	p := make([]float64, len(d.prob))
	copy(p, d.prob)
	return &Discrete{prob: p}
}

// SetToProduct sets the receiver to the normalized product of a and b.
// It panics with ErrAllZero when the product has no mass anywhere.
func (d *Discrete) SetToProduct(a, b *Discrete) {
	a.checkDimension(b.Dimension())
	d.checkDimension(a.Dimension())
	for i := range d.prob {
		d.prob[i] = a.prob[i] * b.prob[i]
	}
	d.normalize()
}

// SetToRatio sets the receiver to the normalized ratio of numerator
// and denominator, with the convention 0/0 = 0. An infinite ratio at
// any value concentrates the result on the infinite entries.
func (d *Discrete) SetToRatio(numerator, denominator *Discrete) {
	numerator.checkDimension(denominator.Dimension())
	d.checkDimension(numerator.Dimension())
	anyInf := false
	for i := range d.prob {
		n, den := numerator.prob[i], denominator.prob[i]
		switch {
		case n == 0:
			d.prob[i] = 0
		case den == 0:
			d.prob[i] = math.Inf(1)
			anyInf = true
		default:
			d.prob[i] = n / den
		}
	}
	if anyInf {
		for i := range d.prob {
			if math.IsInf(d.prob[i], 1) {
				d.prob[i] = 1
			} else {
				d.prob[i] = 0
			}
		}
	}
	d.normalize()
}

// SetToPower sets the receiver to value raised to exponent,
// renormalized.
func (d *Discrete) SetToPower(value *Discrete, exponent float64) {
	d.checkDimension(value.Dimension())
	for i := range d.prob {
		d.prob[i] = math.Pow(value.prob[i], exponent)
	}
	d.normalize()
}

// Sample draws one value from the distribution.
func (d *Discrete) Sample(src rand.Source) int {
	if d.IsPointMass() {
		return d.Point()
	}
	weights := make([]float64, len(d.prob))
	copy(weights, d.prob)
	cat := distuv.NewCategorical(weights, src)
	return int(cat.Rand())
}

// String formats the distribution for diagnostics.
func (d *Discrete) String() string {
	if d.IsPointMass() {
		return fmt.Sprintf("Discrete.PointMass(%v)", d.Point())
	}
	return fmt.Sprintf("Discrete(%v)", d.prob)
}

func (d *Discrete) normalize() {
	sum := floats.Sum(d.prob)
	if sum == 0 || math.IsNaN(sum) {
		panic(ErrAllZero)
	}
	if math.IsInf(sum, 1) {
		panic(ErrImproper)
	}
	floats.Scale(1/sum, d.prob)
}

func (d *Discrete) checkDimension(n int) {
	if len(d.prob) != n {
		panic(fmt.Sprintf("distribution: Discrete dimension %v does not match %v",
			len(d.prob), n))
	}
}
