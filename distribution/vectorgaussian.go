package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// VectorGaussian is a multivariate Gaussian distribution in its
// natural parameterization: a precision matrix and a mean-times-
// precision vector. Multiplying two VectorGaussians adds both fields.
//
// A point mass is stored explicitly, since an infinite precision
// matrix cannot be inverted.
type VectorGaussian struct {
	MeanTimesPrecision *mat.VecDense
	Precision          *mat.SymDense

	point *mat.VecDense
}

// NewVectorGaussian returns a VectorGaussian with the given mean and
// variance. It reports failure when variance is not positive definite.
func NewVectorGaussian(mean mat.Vector, variance mat.Symmetric) (*VectorGaussian, bool) {
	d := mean.Len()
	if variance.Symmetric() != d {
		panic(fmt.Sprintf("distribution: VectorGaussian dimension %v does not match %v",
			variance.Symmetric(), d))
	}
	var chol mat.Cholesky
	if !chol.Factorize(variance) {
		return nil, false
	}
	vg := VectorGaussianUniform(d)
	if err := chol.InverseTo(vg.Precision); err != nil {
		return nil, false
	}
	vg.MeanTimesPrecision.MulVec(vg.Precision, mean)
	return vg, true
}

// VectorGaussianFromNatural returns a VectorGaussian owning the given
// natural parameters.
func VectorGaussianFromNatural(meanTimesPrecision *mat.VecDense, precision *mat.SymDense) *VectorGaussian {
	if precision.Symmetric() != meanTimesPrecision.Len() {
		panic(fmt.Sprintf("distribution: VectorGaussian dimension %v does not match %v",
			precision.Symmetric(), meanTimesPrecision.Len()))
	}
	return &VectorGaussian{MeanTimesPrecision: meanTimesPrecision, Precision: precision}
}

// VectorGaussianFromMeanAndPrecision returns a VectorGaussian with the
// given mean and precision.
func VectorGaussianFromMeanAndPrecision(mean mat.Vector, precision mat.Symmetric) *VectorGaussian {
	d := mean.Len()
	vg := VectorGaussianUniform(d)
	vg.Precision.CopySym(precision)
	vg.MeanTimesPrecision.MulVec(vg.Precision, mean)
	return vg
}

// VectorGaussianUniform returns the uniform VectorGaussian of the
// given dimension.
func VectorGaussianUniform(dimension int) *VectorGaussian {
	return &VectorGaussian{
		MeanTimesPrecision: mat.NewVecDense(dimension, nil),
		Precision:          mat.NewSymDense(dimension, nil),
	}
}

// VectorGaussianPointMass returns a point mass at x.
func VectorGaussianPointMass(x mat.Vector) *VectorGaussian {
	vg := VectorGaussianUniform(x.Len())
	vg.SetToPointMass(x)
	return vg
}

// Dimension returns the length of the random vector.
func (vg *VectorGaussian) Dimension() int {
	if vg.point != nil {
		return vg.point.Len()
	}
	return vg.MeanTimesPrecision.Len()
}

// IsPointMass reports whether the distribution is a point mass.
func (vg *VectorGaussian) IsPointMass() bool { return vg.point != nil }

// Point returns the location of a point mass. Callers must not modify
// the result.
func (vg *VectorGaussian) Point() *mat.VecDense { return vg.point }

// IsUniform reports whether the distribution carries no information.
func (vg *VectorGaussian) IsUniform() bool {
	if vg.point != nil {
		return false
	}
	d := vg.Dimension()
	for i := 0; i < d; i++ {
		if vg.MeanTimesPrecision.AtVec(i) != 0 {
			return false
		}
		for j := i; j < d; j++ {
			if vg.Precision.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// IsProper reports whether the precision matrix is positive definite.
func (vg *VectorGaussian) IsProper() bool {
	if vg.IsPointMass() {
		return true
	}
	var chol mat.Cholesky
	return chol.Factorize(vg.Precision)
}

// SetToUniform removes all information from the distribution.
func (vg *VectorGaussian) SetToUniform() {
	vg.point = nil
	vg.MeanTimesPrecision.Zero()
	vg.Precision.Zero()
}

// SetToPointMass makes the distribution a point mass at x.
func (vg *VectorGaussian) SetToPointMass(x mat.Vector) {
	vg.checkDimension(x.Len())
	vg.point = mat.NewVecDense(x.Len(), nil)
	vg.point.CopyVec(x)
	vg.MeanTimesPrecision.Zero()
	vg.Precision.Zero()
}

// GetMean returns the mean, writing it into dst when dst is non-nil.
// Entries are NaN when the precision matrix is singular.
func (vg *VectorGaussian) GetMean(dst *mat.VecDense) *mat.VecDense {
	d := vg.Dimension()
	if dst == nil {
		dst = mat.NewVecDense(d, nil)
	} else {
		vg.checkDimension(dst.Len())
	}
	if vg.IsPointMass() {
		dst.CopyVec(vg.point)
		return dst
	}
	var chol mat.Cholesky
	if chol.Factorize(vg.Precision) {
		if err := chol.SolveVecTo(dst, vg.MeanTimesPrecision); err == nil {
			return dst
		}
	}
	var lu mat.LU
	lu.Factorize(vg.Precision)
	if err := lu.SolveVecTo(dst, false, vg.MeanTimesPrecision); err != nil {
		for i := 0; i < d; i++ {
			dst.SetVec(i, math.NaN())
		}
	}
	return dst
}

// GetVariance returns the covariance matrix, writing it into dst when
// dst is non-nil. It panics with ErrImproper when the precision matrix
// is neither positive definite nor zero.
func (vg *VectorGaussian) GetVariance(dst *mat.SymDense) *mat.SymDense {
	d := vg.Dimension()
	if dst == nil {
		dst = mat.NewSymDense(d, nil)
	} else {
		vg.checkDimension(dst.Symmetric())
	}
	if vg.IsPointMass() {
		dst.Zero()
		return dst
	}
	if vg.IsUniform() {
		dst.Zero()
		for i := 0; i < d; i++ {
			dst.SetSym(i, i, math.Inf(1))
		}
		return dst
	}
	var chol mat.Cholesky
	if !chol.Factorize(vg.Precision) {
		panic(ErrImproper)
	}
	if err := chol.InverseTo(dst); err != nil {
		panic(ErrImproper)
	}
	return dst
}

// GetMeanAndVariance returns the mean and covariance together.
func (vg *VectorGaussian) GetMeanAndVariance(mean *mat.VecDense, variance *mat.SymDense) (*mat.VecDense, *mat.SymDense) {
	return vg.GetMean(mean), vg.GetVariance(variance)
}

// GetLogNormalizer returns the log-partition function of the natural
// parameters. It is zero for improper distributions.
func (vg *VectorGaussian) GetLogNormalizer() float64 {
	if vg.IsPointMass() {
		return 0
	}
	var chol mat.Cholesky
	if !chol.Factorize(vg.Precision) {
		return 0
	}
	d := vg.Dimension()
	mean := mat.NewVecDense(d, nil)
	if err := chol.SolveVecTo(mean, vg.MeanTimesPrecision); err != nil {
		return 0
	}
	return 0.5 * (mat.Dot(vg.MeanTimesPrecision, mean) +
		float64(d)*Ln2Pi - chol.LogDet())
}

// GetLogProb returns the log density at x. A point mass uses counting
// measure: zero at the point, -Inf elsewhere.
func (vg *VectorGaussian) GetLogProb(x mat.Vector) float64 {
	vg.checkDimension(x.Len())
	if vg.IsPointMass() {
		if mat.Equal(x, vg.point) {
			return 0
		}
		return math.Inf(-1)
	}
	if vg.IsUniform() {
		return 0
	}
	px := mat.NewVecDense(x.Len(), nil)
	px.MulVec(vg.Precision, x)
	return -0.5*mat.Dot(x, px) + mat.Dot(vg.MeanTimesPrecision, x) - vg.GetLogNormalizer()
}

// GetLogAverageOf returns ln(integral of vg(x)*that(x) dx).
func (vg *VectorGaussian) GetLogAverageOf(that *VectorGaussian) float64 {
	vg.checkDimension(that.Dimension())
	if vg.IsPointMass() {
		if that.IsPointMass() {
			if mat.Equal(vg.point, that.point) {
				return 0
			}
			return math.Inf(-1)
		}
		return that.GetLogProb(vg.point)
	}
	if that.IsPointMass() {
		return vg.GetLogProb(that.point)
	}
	d := vg.Dimension()
	product := VectorGaussianUniform(d)
	product.MeanTimesPrecision.AddVec(vg.MeanTimesPrecision, that.MeanTimesPrecision)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			product.Precision.SetSym(i, j, vg.Precision.At(i, j)+that.Precision.At(i, j))
		}
	}
	return product.GetLogNormalizer() - vg.GetLogNormalizer() - that.GetLogNormalizer()
}

// GetAverageLog returns E[ln that(x)] where the expectation is under
// the receiver. The receiver must be proper.
func (vg *VectorGaussian) GetAverageLog(that *VectorGaussian) float64 {
	vg.checkDimension(that.Dimension())
	if that.IsPointMass() {
		if vg.IsPointMass() && mat.Equal(vg.point, that.point) {
			return 0
		}
		return math.Inf(-1)
	}
	if that.IsUniform() {
		return 0
	}
	d := vg.Dimension()
	var cholThat mat.Cholesky
	if !cholThat.Factorize(that.Precision) {
		return math.NaN()
	}
	mean := vg.GetMean(nil)
	variance := vg.GetVariance(nil)
	meanThat := mat.NewVecDense(d, nil)
	if err := cholThat.SolveVecTo(meanThat, that.MeanTimesPrecision); err != nil {
		return math.NaN()
	}
	diff := mat.NewVecDense(d, nil)
	diff.SubVec(mean, meanThat)
	pdiff := mat.NewVecDense(d, nil)
	pdiff.MulVec(that.Precision, diff)
	trace := 0.0
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			trace += that.Precision.At(i, j) * variance.At(j, i)
		}
	}
	return -0.5*(mat.Dot(diff, pdiff)+trace) - 0.5*(float64(d)*Ln2Pi-cholThat.LogDet())
}

// SetTo copies value into the receiver.
func (vg *VectorGaussian) SetTo(value *VectorGaussian) {
	vg.checkDimension(value.Dimension())
	if value.IsPointMass() {
		vg.SetToPointMass(value.point)
		return
	}
	vg.point = nil
	vg.MeanTimesPrecision.CopyVec(value.MeanTimesPrecision)
	vg.Precision.CopySym(value.Precision)
}

// Clone returns an independent copy.
func (vg *VectorGaussian) Clone() *VectorGaussian {
	c := VectorGaussianUniform(vg.Dimension())
	c.SetTo(vg)
	return c
}

// SetToProduct sets the receiver to the product of a and b. It panics
// with ErrAllZero when a and b are point masses at different points.
func (vg *VectorGaussian) SetToProduct(a, b *VectorGaussian) {
	a.checkDimension(b.Dimension())
	if a.IsPointMass() {
		if b.IsPointMass() && !mat.Equal(a.point, b.point) {
			panic(ErrAllZero)
		}
		vg.SetToPointMass(a.point)
		return
	}
	if b.IsPointMass() {
		vg.SetToPointMass(b.point)
		return
	}
	vg.point = nil
	d := a.Dimension()
	vg.MeanTimesPrecision.AddVec(a.MeanTimesPrecision, b.MeanTimesPrecision)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			vg.Precision.SetSym(i, j, a.Precision.At(i, j)+b.Precision.At(i, j))
		}
	}
}

// SetToRatio sets the receiver to numerator/denominator.
func (vg *VectorGaussian) SetToRatio(numerator, denominator *VectorGaussian) {
	numerator.checkDimension(denominator.Dimension())
	if numerator.IsPointMass() {
		if denominator.IsPointMass() {
			if !mat.Equal(numerator.point, denominator.point) {
				panic(ErrAllZero)
			}
			vg.SetToUniform()
			return
		}
		vg.SetToPointMass(numerator.point)
		return
	}
	if denominator.IsPointMass() {
		panic(ErrImproper)
	}
	vg.point = nil
	d := numerator.Dimension()
	vg.MeanTimesPrecision.SubVec(numerator.MeanTimesPrecision, denominator.MeanTimesPrecision)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			vg.Precision.SetSym(i, j,
				numerator.Precision.At(i, j)-denominator.Precision.At(i, j))
		}
	}
}

// SetToRatioForceProper behaves like SetToRatio but replaces a result
// whose precision is not positive semidefinite with the uniform
// distribution.
func (vg *VectorGaussian) SetToRatioForceProper(numerator, denominator *VectorGaussian) {
	vg.SetToRatio(numerator, denominator)
	if vg.IsPointMass() || vg.IsUniform() {
		return
	}
	var chol mat.Cholesky
	if !chol.Factorize(vg.Precision) {
		vg.SetToUniform()
	}
}

// SetToPower sets the receiver to value raised to exponent in density
// space.
func (vg *VectorGaussian) SetToPower(value *VectorGaussian, exponent float64) {
	if value.IsPointMass() {
		if exponent == 0 {
			vg.checkDimension(value.Dimension())
			vg.SetToUniform()
			return
		}
		if exponent < 0 {
			panic(ErrImproper)
		}
		vg.SetToPointMass(value.point)
		return
	}
	vg.point = nil
	d := value.Dimension()
	vg.checkDimension(d)
	vg.MeanTimesPrecision.ScaleVec(exponent, value.MeanTimesPrecision)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			vg.Precision.SetSym(i, j, exponent*value.Precision.At(i, j))
		}
	}
}

// Sample draws one vector, writing it into dst when dst is non-nil.
func (vg *VectorGaussian) Sample(src rand.Source, dst *mat.VecDense) *mat.VecDense {
	d := vg.Dimension()
	if dst == nil {
		dst = mat.NewVecDense(d, nil)
	} else {
		vg.checkDimension(dst.Len())
	}
	if vg.IsPointMass() {
		dst.CopyVec(vg.point)
		return dst
	}
	mean := vg.GetMean(nil)
	variance := vg.GetVariance(nil)
	mu := make([]float64, d)
	for i := 0; i < d; i++ {
		mu[i] = mean.AtVec(i)
	}
	normal, ok := distmv.NewNormal(mu, variance, src)
	if !ok {
		panic(ErrImproper)
	}
	x := normal.Rand(nil)
	for i := 0; i < d; i++ {
		dst.SetVec(i, x[i])
	}
	return dst
}

func (vg *VectorGaussian) checkDimension(n int) {
	if vg.Dimension() != n {
		panic(fmt.Sprintf("distribution: VectorGaussian dimension %v does not match %v",
			vg.Dimension(), n))
	}
}

// String formats the distribution for diagnostics.
func (vg *VectorGaussian) String() string {
	if vg.IsPointMass() {
		return fmt.Sprintf("VectorGaussian.PointMass(%v)", mat.Formatted(vg.point.T()))
	}
	if vg.IsUniform() {
		return fmt.Sprintf("VectorGaussian.Uniform(%d)", vg.Dimension())
	}
	return fmt.Sprintf("VectorGaussian(dim=%d)", vg.Dimension())
}
