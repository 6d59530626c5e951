package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distmv"
)

// Dirichlet is a Dirichlet distribution over probability vectors,
// parameterized by a vector of pseudo-counts. Multiplying two
// Dirichlets adds pseudo-count exponents element-wise.
//
// A point mass stores the probability vector itself; the all-ones
// pseudo-count vector is the uniform distribution.
type Dirichlet struct {
	PseudoCount []float64
	point       []float64
}

// NewDirichlet returns a Dirichlet with the given pseudo-counts.
func NewDirichlet(pseudoCount ...float64) *Dirichlet {
	pc := make([]float64, len(pseudoCount))
	copy(pc, pseudoCount)
	return &Dirichlet{PseudoCount: pc}
}

// DirichletSymmetric returns a Dirichlet of the given dimension with
// every pseudo-count equal to count.
func DirichletSymmetric(dimension int, count float64) *Dirichlet {
	pc := make([]float64, dimension)
	for i := range pc {
		pc[i] = count
	}
	return &Dirichlet{PseudoCount: pc}
}

// DirichletUniform returns the uniform Dirichlet of the given
// dimension.
func DirichletUniform(dimension int) *Dirichlet {
	return DirichletSymmetric(dimension, 1)
}

// DirichletPointMass returns a point mass at the probability vector p.
func DirichletPointMass(p ...float64) *Dirichlet {
	point := make([]float64, len(p))
	copy(point, p)
	return &Dirichlet{PseudoCount: make([]float64, len(p)), point: point}
}

// Dimension returns the length of the probability vector.
func (d *Dirichlet) Dimension() int {
	if d.IsPointMass() {
		return len(d.point)
	}
	return len(d.PseudoCount)
}

// IsPointMass reports whether the distribution is a point mass.
func (d *Dirichlet) IsPointMass() bool { return d.point != nil }

// Point returns the probability vector of a point mass. The slice is
// owned by the distribution and must not be modified.
func (d *Dirichlet) Point() []float64 { return d.point }

// IsUniform reports whether every pseudo-count is one.
func (d *Dirichlet) IsUniform() bool {
	if d.IsPointMass() {
		return false
	}
	for _, c := range d.PseudoCount {
		if c != 1 {
			return false
		}
	}
	return true
}

// IsProper reports whether every pseudo-count is positive.
func (d *Dirichlet) IsProper() bool {
	if d.IsPointMass() {
		return true
	}
	for _, c := range d.PseudoCount {
		if c <= 0 {
			return false
		}
	}
	return true
}

// TotalCount returns the sum of the pseudo-counts.
func (d *Dirichlet) TotalCount() float64 {
	return floats.Sum(d.PseudoCount)
}

// SetToUniform removes all information from the distribution.
func (d *Dirichlet) SetToUniform() {
	if d.point != nil {
		d.PseudoCount = make([]float64, len(d.point))
		d.point = nil
	}
	for i := range d.PseudoCount {
		d.PseudoCount[i] = 1
	}
}

// SetToPointMass makes the distribution a point mass at p.
func (d *Dirichlet) SetToPointMass(p []float64) {
	d.checkDimension(len(p))
	d.point = make([]float64, len(p))
	copy(d.point, p)
}

// GetMean fills result with the mean probability vector and returns
// it.
func (d *Dirichlet) GetMean(result []float64) []float64 {
	d.checkDimension(len(result))
	if d.IsPointMass() {
		copy(result, d.point)
		return result
	}
	total := d.TotalCount()
	for i, c := range d.PseudoCount {
		result[i] = c / total
	}
	return result
}

// GetMeanLog fills result with E[ln p_k] and returns it.
func (d *Dirichlet) GetMeanLog(result []float64) []float64 {
	d.checkDimension(len(result))
	if d.IsPointMass() {
		for i, p := range d.point {
			result[i] = math.Log(p)
		}
		return result
	}
	dTotal := Digamma(d.TotalCount())
	for i, c := range d.PseudoCount {
		result[i] = Digamma(c) - dTotal
	}
	return result
}

// GetLogProb returns the log density at the probability vector p.
// Point masses use counting measure.
func (d *Dirichlet) GetLogProb(p []float64) float64 {
	d.checkDimension(len(p))
	if d.IsPointMass() {
		if floats.Equal(d.point, p) {
			return 0
		}
		return math.Inf(-1)
	}
	sum := -d.GetLogNormalizer()
	for i, c := range d.PseudoCount {
		if c != 1 {
			sum += (c - 1) * math.Log(p[i])
		}
	}
	return sum
}

// GetLogNormalizer returns ln B(PseudoCount), the log-partition
// function.
func (d *Dirichlet) GetLogNormalizer() float64 {
	if d.IsPointMass() || !d.IsProper() {
		return 0
	}
	sum := -GammaLn(d.TotalCount())
	for _, c := range d.PseudoCount {
		sum += GammaLn(c)
	}
	return sum
}

// GetLogAverageOf returns ln(integral of d(p)*that(p) dp).
func (d *Dirichlet) GetLogAverageOf(that *Dirichlet) float64 {
	d.checkDimension(that.Dimension())
	if d.IsPointMass() {
		if that.IsPointMass() {
			if floats.Equal(d.point, that.point) {
				return 0
			}
			return math.Inf(-1)
		}
		return that.GetLogProb(d.point)
	}
	if that.IsPointMass() {
		return d.GetLogProb(that.point)
	}
	product := make([]float64, d.Dimension())
	for i := range product {
		product[i] = d.PseudoCount[i] + that.PseudoCount[i] - 1
		if product[i] <= 0 {
			return math.Inf(1)
		}
	}
	return (&Dirichlet{PseudoCount: product}).GetLogNormalizer() -
		d.GetLogNormalizer() - that.GetLogNormalizer()
}

// GetAverageLog returns E[ln that(p)] under the receiver.
func (d *Dirichlet) GetAverageLog(that *Dirichlet) float64 {
	d.checkDimension(that.Dimension())
	if that.IsPointMass() {
		if d.IsPointMass() && floats.Equal(d.point, that.point) {
			return 0
		}
		return math.Inf(-1)
	}
	meanLog := d.GetMeanLog(make([]float64, d.Dimension()))
	sum := -that.GetLogNormalizer()
	for i, c := range that.PseudoCount {
		sum += (c - 1) * meanLog[i]
	}
	return sum
}

// SetTo copies value into the receiver.
func (d *Dirichlet) SetTo(value *Dirichlet) {
	d.checkDimension(value.Dimension())
	if value.IsPointMass() {
		d.SetToPointMass(value.point)
		return
	}
	d.point = nil
	copy(d.PseudoCount, value.PseudoCount)
}

// Clone returns an independent copy.
func (d *Dirichlet) Clone() *Dirichlet {
	c := &Dirichlet{PseudoCount: make([]float64, len(d.PseudoCount))}
	copy(c.PseudoCount, d.PseudoCount)
	if d.point != nil {
		c.point = make([]float64, len(d.point))
		copy(c.point, d.point)
	}
	return c
}

// SetToProduct sets the receiver to the product of a and b.
func (d *Dirichlet) SetToProduct(a, b *Dirichlet) {
	a.checkDimension(b.Dimension())
	d.checkDimension(a.Dimension())
	if a.IsPointMass() {
		if b.IsPointMass() && !floats.Equal(a.point, b.point) {
			panic(ErrAllZero)
		}
		d.SetToPointMass(a.point)
		return
	}
	if b.IsPointMass() {
		d.SetToPointMass(b.point)
		return
	}
	d.point = nil
	for i := range d.PseudoCount {
		d.PseudoCount[i] = a.PseudoCount[i] + b.PseudoCount[i] - 1
	}
}

// SetToRatio sets the receiver to numerator/denominator.
func (d *Dirichlet) SetToRatio(numerator, denominator *Dirichlet) {
	numerator.checkDimension(denominator.Dimension())
	d.checkDimension(numerator.Dimension())
	if numerator.IsPointMass() {
		if denominator.IsPointMass() {
			if !floats.Equal(numerator.point, denominator.point) {
				panic(ErrAllZero)
			}
			d.SetToUniform()
			return
		}
		d.SetToPointMass(numerator.point)
		return
	}
	if denominator.IsPointMass() {
		panic(ErrImproper)
	}
	d.point = nil
	for i := range d.PseudoCount {
		d.PseudoCount[i] = numerator.PseudoCount[i] - denominator.PseudoCount[i] + 1
	}
}

// SetToPower sets the receiver to value raised to exponent.
func (d *Dirichlet) SetToPower(value *Dirichlet, exponent float64) {
	d.checkDimension(value.Dimension())
	if value.IsPointMass() {
		if exponent == 0 {
			d.SetToUniform()
			return
		}
		if exponent < 0 {
			panic(ErrImproper)
		}
		d.SetToPointMass(value.point)
		return
	}
	d.point = nil
	for i := range d.PseudoCount {
		d.PseudoCount[i] = exponent*(value.PseudoCount[i]-1) + 1
	}
}

// Sample fills result with one draw from the distribution and returns
// it.
func (d *Dirichlet) Sample(src rand.Source, result []float64) []float64 {
	d.checkDimension(len(result))
	if d.IsPointMass() {
		copy(result, d.point)
		return result
	}
	gen := distmv.NewDirichlet(d.PseudoCount, src)
	gen.Rand(result)
	return result
}

// String formats the distribution for diagnostics.
func (d *Dirichlet) String() string {
	if d.IsPointMass() {
		return fmt.Sprintf("Dirichlet.PointMass(%v)", d.point)
	}
	return fmt.Sprintf("Dirichlet(%v)", d.PseudoCount)
}

func (d *Dirichlet) checkDimension(n int) {
	if d.Dimension() != n {
		panic(fmt.Sprintf("distribution: Dirichlet dimension %v does not match %v",
			d.Dimension(), n))
	}
}
