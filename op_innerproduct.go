package factorop

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/factorop/distribution"
)

// InnerProductOpBase computes expectation propagation messages for the
// factor x = a.b, the inner product of two Gaussian vectors. The exact
// posterior over (a, b) is Gaussian only when one side is a point
// mass, so every message requires an observed or point mass vector on
// one side and reports ErrNotSupported otherwise. The factor is
// symmetric: an observed a is handled by swapping the arguments.
type InnerProductOpBase struct{}

// InnerProductOp extends the base messages with variational ones. The
// variational messages consume the mean and variance buffers
// AMean/AVariance/BMean/BVariance, recomputed from the current
// marginals once per pass, and work for two random vectors. Observed
// vectors enter as zero variance buffers.
type InnerProductOp struct {
	InnerProductOpBase
}

func symQuadraticForm(s *mat.SymDense, x mat.Vector) float64 {
	tmp := mat.NewVecDense(x.Len(), nil)
	tmp.MulVec(s, x)
	return mat.Dot(x, tmp)
}

func symTraceProduct(a, b *mat.SymDense) float64 {
	d := a.Symmetric()
	trace := 0.0
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			trace += a.At(i, j) * b.At(i, j)
		}
	}
	return trace
}

// innerProductToVector assembles the rank one message to one vector
// argument from the x message and the other argument's value v:
// precision x.Precision*v*v' and mean times precision
// x.MeanTimesPrecision*v.
func innerProductToVector(x *distribution.Gaussian, v mat.Vector, result *distribution.VectorGaussian) *distribution.VectorGaussian {
	d := v.Len()
	result.SetToUniform()
	for i := 0; i < d; i++ {
		result.MeanTimesPrecision.SetVec(i, x.MeanTimesPrecision*v.AtVec(i))
		for j := i; j < d; j++ {
			result.Precision.SetSym(i, j, x.Precision*v.AtVec(i)*v.AtVec(j))
		}
	}
	return result
}

// innerProductMoments returns the mean and variance of v.b for a fixed
// vector v and a random b.
func innerProductMoments(v mat.Vector, b *distribution.VectorGaussian) (mean, variance float64) {
	if b.IsPointMass() {
		return mat.Dot(v, b.Point()), 0
	}
	mean = mat.Dot(v, b.GetMean(nil))
	variance = symQuadraticForm(b.GetVariance(nil), v)
	return mean, variance
}

// InnerProductAverageConditional returns the message to x, the exact
// marginal of a.b. One of a and b must be a point mass.
func (InnerProductOpBase) InnerProductAverageConditional(a, b *distribution.VectorGaussian) (*distribution.Gaussian, error) {
	if err := checkSameLength("b", b.Dimension(), a.Dimension()); err != nil {
		return nil, fmt.Errorf("InnerProductAverageConditional: %v", err)
	}
	if a.IsPointMass() && b.IsPointMass() {
		return distribution.GaussianPointMass(mat.Dot(a.Point(), b.Point())), nil
	}
	switch {
	case b.IsPointMass():
		a, b = b, a
	case a.IsPointMass():
	default:
		return nil, fmt.Errorf("InnerProductAverageConditional: both vector messages are random: %w", distribution.ErrNotSupported)
	}
	if b.IsUniform() {
		return distribution.GaussianUniform(), nil
	}
	if !b.IsProper() {
		return nil, fmt.Errorf("InnerProductAverageConditional: random vector message is improper: %w", distribution.ErrImproper)
	}
	mean, variance := innerProductMoments(a.Point(), b)
	return distribution.NewGaussian(mean, variance), nil
}

// InnerProductAverageConditionalObserved handles an observed b.
func (op InnerProductOpBase) InnerProductAverageConditionalObserved(a *distribution.VectorGaussian, b mat.Vector) (*distribution.Gaussian, error) {
	msg, err := op.InnerProductAverageConditional(a, distribution.VectorGaussianPointMass(b))
	if err != nil {
		return nil, fmt.Errorf("InnerProductAverageConditionalObserved: %v", err)
	}
	return msg, nil
}

// AAverageConditional fills result with the message to a, the factor
// restricted to a fixed b. It does not depend on the incoming a
// message. A random b or a point x message leaves the family and is
// not supported.
func (InnerProductOpBase) AAverageConditional(innerProduct *distribution.Gaussian, b *distribution.VectorGaussian, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	if err := checkSameLength("result", result.Dimension(), b.Dimension()); err != nil {
		return result, fmt.Errorf("AAverageConditional: %v", err)
	}
	if !b.IsPointMass() {
		return result, fmt.Errorf("AAverageConditional: random b message: %w", distribution.ErrNotSupported)
	}
	if innerProduct.IsPointMass() {
		return result, fmt.Errorf("AAverageConditional: point inner product message is not supported: %w", distribution.ErrNotSupported)
	}
	return innerProductToVector(innerProduct, b.Point(), result), nil
}

// AAverageConditionalObserved handles an observed b.
func (op InnerProductOpBase) AAverageConditionalObserved(innerProduct *distribution.Gaussian, b mat.Vector, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	if _, err := op.AAverageConditional(innerProduct, distribution.VectorGaussianPointMass(b), result); err != nil {
		return result, fmt.Errorf("AAverageConditionalObserved: %v", err)
	}
	return result, nil
}

// BAverageConditional fills result with the message to b given a fixed
// a.
func (op InnerProductOpBase) BAverageConditional(innerProduct *distribution.Gaussian, a *distribution.VectorGaussian, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	if err := checkSameLength("result", result.Dimension(), a.Dimension()); err != nil {
		return result, fmt.Errorf("BAverageConditional: %v", err)
	}
	if !a.IsPointMass() {
		return result, fmt.Errorf("BAverageConditional: random a message: %w", distribution.ErrNotSupported)
	}
	if innerProduct.IsPointMass() {
		return result, fmt.Errorf("BAverageConditional: point inner product message is not supported: %w", distribution.ErrNotSupported)
	}
	return innerProductToVector(innerProduct, a.Point(), result), nil
}

// BAverageConditionalObserved handles an observed a.
func (op InnerProductOpBase) BAverageConditionalObserved(innerProduct *distribution.Gaussian, a mat.Vector, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	if _, err := op.BAverageConditional(innerProduct, distribution.VectorGaussianPointMass(a), result); err != nil {
		return result, fmt.Errorf("BAverageConditionalObserved: %v", err)
	}
	return result, nil
}

func (op InnerProductOpBase) LogAverageFactor(innerProduct *distribution.Gaussian, a, b *distribution.VectorGaussian) (float64, error) {
	toX, err := op.InnerProductAverageConditional(a, b)
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	return innerProduct.GetLogAverageOf(toX), nil
}

// LogAverageFactorObserved is the evidence for an observed inner
// product.
func (op InnerProductOpBase) LogAverageFactorObserved(innerProduct float64, a, b *distribution.VectorGaussian) (float64, error) {
	toX, err := op.InnerProductAverageConditional(a, b)
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactorObserved: %v", err)
	}
	return toX.GetLogProb(innerProduct), nil
}

// LogEvidenceRatio is zero for a random inner product: the message to
// it is exact, so the numerator and denominator of the ratio coincide.
func (InnerProductOpBase) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when the inner product is
// observed.
func (op InnerProductOpBase) LogEvidenceRatioObserved(innerProduct float64, a, b *distribution.VectorGaussian) (float64, error) {
	return op.LogAverageFactorObserved(innerProduct, a, b)
}

// AVarianceInit returns the buffer filled by AVariance.
func (InnerProductOp) AVarianceInit(a *distribution.VectorGaussian) *mat.SymDense {
	return mat.NewSymDense(a.Dimension(), nil)
}

// AVariance fills result with the covariance of the current a
// marginal.
func (InnerProductOp) AVariance(a *distribution.VectorGaussian, result *mat.SymDense) (*mat.SymDense, error) {
	if !a.IsPointMass() && !a.IsProper() {
		return result, fmt.Errorf("AVariance: a marginal is improper: %w", distribution.ErrImproper)
	}
	return a.GetVariance(result), nil
}

// AMeanInit returns the buffer filled by AMean.
func (InnerProductOp) AMeanInit(a *distribution.VectorGaussian) *mat.VecDense {
	return mat.NewVecDense(a.Dimension(), nil)
}

// AMean fills result with the mean of the current a marginal, reusing
// the variance buffer: the mean is AVariance times the mean times
// precision vector.
func (InnerProductOp) AMean(a *distribution.VectorGaussian, aVariance *mat.SymDense, result *mat.VecDense) (*mat.VecDense, error) {
	if err := checkSameLength("aVariance", aVariance.Symmetric(), a.Dimension()); err != nil {
		return result, fmt.Errorf("AMean: %v", err)
	}
	if a.IsPointMass() {
		result.CopyVec(a.Point())
		return result, nil
	}
	result.MulVec(aVariance, a.MeanTimesPrecision)
	return result, nil
}

// BVarianceInit returns the buffer filled by BVariance.
func (InnerProductOp) BVarianceInit(b *distribution.VectorGaussian) *mat.SymDense {
	return mat.NewSymDense(b.Dimension(), nil)
}

// BVariance fills result with the covariance of the current b
// marginal.
func (InnerProductOp) BVariance(b *distribution.VectorGaussian, result *mat.SymDense) (*mat.SymDense, error) {
	if !b.IsPointMass() && !b.IsProper() {
		return result, fmt.Errorf("BVariance: b marginal is improper: %w", distribution.ErrImproper)
	}
	return b.GetVariance(result), nil
}

// BMeanInit returns the buffer filled by BMean.
func (InnerProductOp) BMeanInit(b *distribution.VectorGaussian) *mat.VecDense {
	return mat.NewVecDense(b.Dimension(), nil)
}

// BMean fills result with the mean of the current b marginal.
func (InnerProductOp) BMean(b *distribution.VectorGaussian, bVariance *mat.SymDense, result *mat.VecDense) (*mat.VecDense, error) {
	if err := checkSameLength("bVariance", bVariance.Symmetric(), b.Dimension()); err != nil {
		return result, fmt.Errorf("BMean: %v", err)
	}
	if b.IsPointMass() {
		result.CopyVec(b.Point())
		return result, nil
	}
	result.MulVec(bVariance, b.MeanTimesPrecision)
	return result, nil
}

// InnerProductAverageLogarithm returns the variational message to x:
// the Gaussian with the mean and variance of a.b under independent a
// and b with the buffered moments.
func (InnerProductOp) InnerProductAverageLogarithm(aMean *mat.VecDense, aVariance *mat.SymDense, bMean *mat.VecDense, bVariance *mat.SymDense) (*distribution.Gaussian, error) {
	d := aMean.Len()
	if err := checkSameLength("bMean", bMean.Len(), d); err != nil {
		return nil, fmt.Errorf("InnerProductAverageLogarithm: %v", err)
	}
	if err := checkSameLength("aVariance", aVariance.Symmetric(), d); err != nil {
		return nil, fmt.Errorf("InnerProductAverageLogarithm: %v", err)
	}
	if err := checkSameLength("bVariance", bVariance.Symmetric(), d); err != nil {
		return nil, fmt.Errorf("InnerProductAverageLogarithm: %v", err)
	}
	mean := mat.Dot(aMean, bMean)
	variance := symQuadraticForm(aVariance, bMean) +
		symQuadraticForm(bVariance, aMean) +
		symTraceProduct(aVariance, bVariance)
	return distribution.NewGaussian(mean, variance), nil
}

// AAverageLogarithm fills result with the variational message to a.
// The expected log factor is quadratic in a: the precision is
// x.Precision times the second moment matrix of b and the mean times
// precision is x.MeanTimesPrecision times the mean of b.
func (InnerProductOp) AAverageLogarithm(innerProduct *distribution.Gaussian, bMean *mat.VecDense, bVariance *mat.SymDense, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	d := result.Dimension()
	if err := checkSameLength("bMean", bMean.Len(), d); err != nil {
		return result, fmt.Errorf("AAverageLogarithm: %v", err)
	}
	if err := checkSameLength("bVariance", bVariance.Symmetric(), d); err != nil {
		return result, fmt.Errorf("AAverageLogarithm: %v", err)
	}
	if innerProduct.IsPointMass() {
		return result, fmt.Errorf("AAverageLogarithm: point inner product message is not supported: %w", distribution.ErrNotSupported)
	}
	result.SetToUniform()
	for i := 0; i < d; i++ {
		result.MeanTimesPrecision.SetVec(i, innerProduct.MeanTimesPrecision*bMean.AtVec(i))
		for j := i; j < d; j++ {
			second := bVariance.At(i, j) + bMean.AtVec(i)*bMean.AtVec(j)
			result.Precision.SetSym(i, j, innerProduct.Precision*second)
		}
	}
	return result, nil
}

// BAverageLogarithm fills result with the variational message to b.
func (InnerProductOp) BAverageLogarithm(innerProduct *distribution.Gaussian, aMean *mat.VecDense, aVariance *mat.SymDense, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	d := result.Dimension()
	if err := checkSameLength("aMean", aMean.Len(), d); err != nil {
		return result, fmt.Errorf("BAverageLogarithm: %v", err)
	}
	if err := checkSameLength("aVariance", aVariance.Symmetric(), d); err != nil {
		return result, fmt.Errorf("BAverageLogarithm: %v", err)
	}
	if innerProduct.IsPointMass() {
		return result, fmt.Errorf("BAverageLogarithm: point inner product message is not supported: %w", distribution.ErrNotSupported)
	}
	result.SetToUniform()
	for i := 0; i < d; i++ {
		result.MeanTimesPrecision.SetVec(i, innerProduct.MeanTimesPrecision*aMean.AtVec(i))
		for j := i; j < d; j++ {
			second := aVariance.At(i, j) + aMean.AtVec(i)*aMean.AtVec(j)
			result.Precision.SetSym(i, j, innerProduct.Precision*second)
		}
	}
	return result, nil
}

// AverageLogFactor is zero for this deterministic factor.
func (InnerProductOp) AverageLogFactor() float64 { return 0 }
