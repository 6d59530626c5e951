package factorop

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/factorop/distribution"
)

func TestArrayFromVectorOpMarginals(t *testing.T) {
	const threshold float64 = 1e-8
	var op ArrayFromVectorOp

	vector, ok := distribution.NewVectorGaussian(
		mat.NewVecDense(2, []float64{1, -0.5}),
		mat.NewSymDense(2, []float64{2, 0.6, 0.6, 1.5}))
	if !ok {
		t.Fatal("NewVectorGaussian failed")
	}
	result := []*distribution.Gaussian{distribution.GaussianUniform(), distribution.GaussianUniform()}
	result, err := op.ArrayAverageConditional(vector, result)
	if err != nil {
		t.Fatalf("ArrayAverageConditional: %v", err)
	}

	mean, variance := vector.GetMeanAndVariance(nil, nil)
	for i, r := range result {
		m, v := r.GetMeanAndVariance()
		if math.Abs(m-mean.AtVec(i)) > threshold {
			t.Errorf("mean %v: got %v want %v", i, m, mean.AtVec(i))
		}
		if math.Abs(v-variance.At(i, i)) > threshold {
			t.Errorf("variance %v: got %v want %v", i, v, variance.At(i, i))
		}
	}
}

func TestArrayFromVectorOpVectorMessage(t *testing.T) {
	const threshold float64 = 1e-10
	var op ArrayFromVectorOp

	array := []*distribution.Gaussian{
		distribution.NewGaussian(1, 0.5),
		distribution.NewGaussian(-2, 4),
	}
	result, err := op.VectorAverageConditional(array, distribution.VectorGaussianUniform(2))
	if err != nil {
		t.Fatalf("VectorAverageConditional: %v", err)
	}
	for i, a := range array {
		if math.Abs(result.MeanTimesPrecision.AtVec(i)-a.MeanTimesPrecision) > threshold {
			t.Errorf("mtp %v: got %v want %v", i, result.MeanTimesPrecision.AtVec(i), a.MeanTimesPrecision)
		}
		if math.Abs(result.Precision.At(i, i)-a.Precision) > threshold {
			t.Errorf("precision %v: got %v want %v", i, result.Precision.At(i, i), a.Precision)
		}
	}
	if result.Precision.At(0, 1) != 0 {
		t.Errorf("off-diagonal precision: got %v want 0", result.Precision.At(0, 1))
	}
}

func TestArrayFromVectorOpPointMass(t *testing.T) {
	var op ArrayFromVectorOp

	vector := distribution.VectorGaussianPointMass(mat.NewVecDense(2, []float64{1, 2}))
	result := []*distribution.Gaussian{distribution.GaussianUniform(), distribution.GaussianUniform()}
	result, err := op.ArrayAverageConditional(vector, result)
	if err != nil {
		t.Fatalf("ArrayAverageConditional: %v", err)
	}
	for i, want := range []float64{1, 2} {
		if !result[i].IsPointMass() || result[i].Point() != want {
			t.Errorf("slot %v: got %v want point mass at %v", i, result[i], want)
		}
	}

	points := []*distribution.Gaussian{
		distribution.GaussianPointMass(1),
		distribution.GaussianPointMass(2),
	}
	vecResult, err := op.VectorAverageConditional(points, distribution.VectorGaussianUniform(2))
	if err != nil {
		t.Fatalf("VectorAverageConditional: %v", err)
	}
	if !vecResult.IsPointMass() {
		t.Fatalf("got %v want point mass", vecResult)
	}
	if vecResult.Point().AtVec(0) != 1 || vecResult.Point().AtVec(1) != 2 {
		t.Errorf("point: got %v want [1 2]", vecResult.Point())
	}

	mixed := []*distribution.Gaussian{
		distribution.GaussianPointMass(1),
		distribution.NewGaussian(0, 1),
	}
	if _, err := op.VectorAverageConditional(mixed, distribution.VectorGaussianUniform(2)); !errors.Is(err, distribution.ErrNotSupported) {
		t.Errorf("mixed point mass: got %v want ErrNotSupported", err)
	}
}

func TestVectorFromArrayOpEvidence(t *testing.T) {
	const threshold float64 = 1e-8
	var op VectorFromArrayOp

	array := []*distribution.Gaussian{
		distribution.NewGaussian(1, 0.5),
		distribution.NewGaussian(-2, 4),
	}
	observed := distribution.VectorGaussianPointMass(mat.NewVecDense(2, []float64{0.8, -1.5}))

	z, err := op.LogEvidenceRatioObserved(observed, array)
	if err != nil {
		t.Fatalf("LogEvidenceRatioObserved: %v", err)
	}
	want := array[0].GetLogProb(0.8) + array[1].GetLogProb(-1.5)
	if math.Abs(z-want) > threshold {
		t.Errorf("LogEvidenceRatioObserved: got %v want %v", z, want)
	}
	if r := op.LogEvidenceRatio(); r != 0 {
		t.Errorf("LogEvidenceRatio: got %v want 0", r)
	}
}
