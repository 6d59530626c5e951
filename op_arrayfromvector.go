package factorop

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/factorop/distribution"
)

// ArrayFromVectorOp computes messages for array[i] = vector[i], the
// factor that views a Gaussian-distributed vector as an array of scalar
// Gaussians. The message to the array carries the vector's coordinate
// marginals; the message to the vector assembles the scalar messages
// into diagonal natural parameters.
type ArrayFromVectorOp struct{}

// ArrayAverageConditional fills result with the coordinate marginals of
// the vector message. Cross-coordinate correlation is discarded.
func (ArrayFromVectorOp) ArrayAverageConditional(vector *distribution.VectorGaussian, result []*distribution.Gaussian) ([]*distribution.Gaussian, error) {
	d := vector.Dimension()
	if err := checkSameLength("result", len(result), d); err != nil {
		return result, fmt.Errorf("ArrayAverageConditional: %v", err)
	}
	if vector.IsPointMass() {
		for i, r := range result {
			r.SetToPointMass(vector.Point().AtVec(i))
		}
		return result, nil
	}
	if vector.IsUniform() {
		for _, r := range result {
			r.SetToUniform()
		}
		return result, nil
	}
	if !vector.IsProper() {
		return result, fmt.Errorf("ArrayAverageConditional: vector message: %w", distribution.ErrImproper)
	}
	mean, variance := vector.GetMeanAndVariance(nil, nil)
	for i, r := range result {
		r.SetMeanAndVariance(mean.AtVec(i), variance.At(i, i))
	}
	return result, nil
}

// VectorAverageConditional fills result with the message to the vector.
// The scalar messages must be all point masses or all random: the
// family cannot represent a vector that is degenerate on only some
// coordinates.
func (ArrayFromVectorOp) VectorAverageConditional(array []*distribution.Gaussian, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	d := result.Dimension()
	if err := checkSameLength("array", len(array), d); err != nil {
		return result, fmt.Errorf("VectorAverageConditional: %v", err)
	}
	points := 0
	for _, a := range array {
		if a.IsPointMass() {
			points++
		}
	}
	if points == d && d > 0 {
		point := mat.NewVecDense(d, nil)
		for i, a := range array {
			point.SetVec(i, a.Point())
		}
		result.SetToPointMass(point)
		return result, nil
	}
	if points > 0 {
		return result, fmt.Errorf("VectorAverageConditional: cannot mix point masses with distributions: %w", distribution.ErrNotSupported)
	}
	result.SetToUniform()
	for i, a := range array {
		result.MeanTimesPrecision.SetVec(i, a.MeanTimesPrecision)
		result.Precision.SetSym(i, i, a.Precision)
	}
	return result, nil
}

func (op ArrayFromVectorOp) LogAverageFactor(array []*distribution.Gaussian, vector *distribution.VectorGaussian) (float64, error) {
	toVector, err := op.VectorAverageConditional(array, distribution.VectorGaussianUniform(vector.Dimension()))
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	return vector.GetLogAverageOf(toVector), nil
}

// LogEvidenceRatio is zero for a random array.
func (ArrayFromVectorOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when the array is observed,
// held as point masses.
func (op ArrayFromVectorOp) LogEvidenceRatioObserved(array []*distribution.Gaussian, vector *distribution.VectorGaussian) (float64, error) {
	return op.LogAverageFactor(array, vector)
}

// ArrayAverageLogarithm is the variational message to the array.
func (op ArrayFromVectorOp) ArrayAverageLogarithm(vector *distribution.VectorGaussian, result []*distribution.Gaussian) ([]*distribution.Gaussian, error) {
	return op.ArrayAverageConditional(vector, result)
}

// VectorAverageLogarithm is the variational message to the vector.
func (op ArrayFromVectorOp) VectorAverageLogarithm(array []*distribution.Gaussian, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	return op.VectorAverageConditional(array, result)
}

// AverageLogFactor is zero for this deterministic factor.
func (ArrayFromVectorOp) AverageLogFactor() float64 { return 0 }

// VectorFromArrayOp computes messages for vector = [array[0], ...,
// array[n-1]], the reverse view of ArrayFromVectorOp. The message
// algebra is identical with the roles of the two sides swapped.
type VectorFromArrayOp struct{}

// VectorAverageConditional fills result with the message to the vector.
func (VectorFromArrayOp) VectorAverageConditional(array []*distribution.Gaussian, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	return ArrayFromVectorOp{}.VectorAverageConditional(array, result)
}

// ArrayAverageConditional fills result with the message to the array.
func (VectorFromArrayOp) ArrayAverageConditional(vector *distribution.VectorGaussian, result []*distribution.Gaussian) ([]*distribution.Gaussian, error) {
	return ArrayFromVectorOp{}.ArrayAverageConditional(vector, result)
}

func (VectorFromArrayOp) LogAverageFactor(vector *distribution.VectorGaussian, array []*distribution.Gaussian) (float64, error) {
	return ArrayFromVectorOp{}.LogAverageFactor(array, vector)
}

// LogEvidenceRatio is zero for a random vector.
func (VectorFromArrayOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when the vector is observed,
// held as a point mass.
func (op VectorFromArrayOp) LogEvidenceRatioObserved(vector *distribution.VectorGaussian, array []*distribution.Gaussian) (float64, error) {
	return op.LogAverageFactor(vector, array)
}

// VectorAverageLogarithm is the variational message to the vector.
func (op VectorFromArrayOp) VectorAverageLogarithm(array []*distribution.Gaussian, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	return op.VectorAverageConditional(array, result)
}

// ArrayAverageLogarithm is the variational message to the array.
func (op VectorFromArrayOp) ArrayAverageLogarithm(vector *distribution.VectorGaussian, result []*distribution.Gaussian) ([]*distribution.Gaussian, error) {
	return op.ArrayAverageConditional(vector, result)
}

// AverageLogFactor is zero for this deterministic factor.
func (VectorFromArrayOp) AverageLogFactor() float64 { return 0 }
