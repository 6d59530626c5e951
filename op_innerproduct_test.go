package factorop

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/factorop/distribution"
)

func TestInnerProductOpChildMessage(t *testing.T) {
	const threshold float64 = 1e-10
	var op InnerProductOp

	a, ok := distribution.NewVectorGaussian(
		mat.NewVecDense(2, []float64{1, 2}),
		mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1}))
	if !ok {
		t.Fatalf("NewVectorGaussian: variance is not positive definite")
	}
	bPoint := distribution.VectorGaussianPointMass(mat.NewVecDense(2, []float64{3, -1}))

	// mean = (1,2).(3,-1) = 1, variance = (3,-1)'Va(3,-1) = 16.
	msg, err := op.InnerProductAverageConditional(a, bPoint)
	if err != nil {
		t.Fatalf("InnerProductAverageConditional: %v", err)
	}
	mean, variance := msg.GetMeanAndVariance()
	if math.Abs(mean-1) > threshold || math.Abs(variance-16) > threshold {
		t.Errorf("InnerProductAverageConditional: got (%v, %v) want (1, 16)", mean, variance)
	}

	observed, err := op.InnerProductAverageConditionalObserved(a, mat.NewVecDense(2, []float64{3, -1}))
	if err != nil {
		t.Fatalf("InnerProductAverageConditionalObserved: %v", err)
	}
	omean, ovariance := observed.GetMeanAndVariance()
	if math.Abs(omean-mean) > threshold || math.Abs(ovariance-variance) > threshold {
		t.Errorf("InnerProductAverageConditionalObserved: got (%v, %v) want (%v, %v)", omean, ovariance, mean, variance)
	}

	// Two point masses multiply exactly.
	msg, err = op.InnerProductAverageConditional(
		distribution.VectorGaussianPointMass(mat.NewVecDense(2, []float64{1, 2})), bPoint)
	if err != nil {
		t.Fatalf("InnerProductAverageConditional(points): %v", err)
	}
	if !msg.IsPointMass() || msg.Point() != 1 {
		t.Errorf("InnerProductAverageConditional(points): got %v want point mass at 1", msg)
	}

	// A uniform random side gives a uniform inner product.
	msg, err = op.InnerProductAverageConditional(distribution.VectorGaussianUniform(2), bPoint)
	if err != nil {
		t.Fatalf("InnerProductAverageConditional(uniform a): %v", err)
	}
	if !msg.IsUniform() {
		t.Errorf("InnerProductAverageConditional(uniform a): got %v want uniform", msg)
	}

	_, err = op.InnerProductAverageConditional(a, distribution.VectorGaussianFromNatural(
		mat.NewVecDense(2, []float64{1, 0}),
		mat.NewSymDense(2, []float64{1, 0, 0, 1})))
	if !errors.Is(err, distribution.ErrNotSupported) {
		t.Errorf("InnerProductAverageConditional(both random): got %v want ErrNotSupported", err)
	}

	improper := distribution.VectorGaussianFromNatural(
		mat.NewVecDense(2, nil),
		mat.NewSymDense(2, []float64{-1, 0, 0, 1}))
	_, err = op.InnerProductAverageConditional(improper, bPoint)
	if !errors.Is(err, distribution.ErrImproper) {
		t.Errorf("InnerProductAverageConditional(improper a): got %v want ErrImproper", err)
	}
}

func TestInnerProductOpParentMessages(t *testing.T) {
	const threshold float64 = 1e-12
	var op InnerProductOp

	x := distribution.GaussianFromNatural(2, 0.5)
	bPoint := distribution.VectorGaussianPointMass(mat.NewVecDense(2, []float64{3, -1}))

	// mtp = 2*(3,-1), precision = 0.5*(3,-1)(3,-1)'.
	result, err := op.AAverageConditional(x, bPoint, distribution.VectorGaussianUniform(2))
	if err != nil {
		t.Fatalf("AAverageConditional: %v", err)
	}
	wantMtp := []float64{6, -2}
	wantPrec := [][]float64{{4.5, -1.5}, {-1.5, 0.5}}
	for i, w := range wantMtp {
		if math.Abs(result.MeanTimesPrecision.AtVec(i)-w) > threshold {
			t.Errorf("AAverageConditional mtp %v: got %v want %v", i, result.MeanTimesPrecision.AtVec(i), w)
		}
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(result.Precision.At(i, j)-wantPrec[i][j]) > threshold {
				t.Errorf("AAverageConditional precision %v,%v: got %v want %v", i, j, result.Precision.At(i, j), wantPrec[i][j])
			}
		}
	}

	// The factor is symmetric in a and b.
	symmetric, err := op.BAverageConditional(x, bPoint, distribution.VectorGaussianUniform(2))
	if err != nil {
		t.Fatalf("BAverageConditional: %v", err)
	}
	for i := 0; i < 2; i++ {
		if math.Abs(symmetric.MeanTimesPrecision.AtVec(i)-result.MeanTimesPrecision.AtVec(i)) > threshold {
			t.Errorf("BAverageConditional mtp %v: got %v want %v", i, symmetric.MeanTimesPrecision.AtVec(i), result.MeanTimesPrecision.AtVec(i))
		}
	}

	observed, err := op.AAverageConditionalObserved(x, mat.NewVecDense(2, []float64{3, -1}), distribution.VectorGaussianUniform(2))
	if err != nil {
		t.Fatalf("AAverageConditionalObserved: %v", err)
	}
	for i := 0; i < 2; i++ {
		if math.Abs(observed.MeanTimesPrecision.AtVec(i)-result.MeanTimesPrecision.AtVec(i)) > threshold {
			t.Errorf("AAverageConditionalObserved mtp %v: got %v want %v", i, observed.MeanTimesPrecision.AtVec(i), result.MeanTimesPrecision.AtVec(i))
		}
	}

	random, ok := distribution.NewVectorGaussian(
		mat.NewVecDense(2, []float64{1, 2}),
		mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1}))
	if !ok {
		t.Fatalf("NewVectorGaussian: variance is not positive definite")
	}
	_, err = op.AAverageConditional(x, random, distribution.VectorGaussianUniform(2))
	if !errors.Is(err, distribution.ErrNotSupported) {
		t.Errorf("AAverageConditional(random b): got %v want ErrNotSupported", err)
	}

	_, err = op.AAverageConditional(distribution.GaussianPointMass(1), bPoint, distribution.VectorGaussianUniform(2))
	if !errors.Is(err, distribution.ErrNotSupported) {
		t.Errorf("AAverageConditional(point x): got %v want ErrNotSupported", err)
	}
}

func TestInnerProductOpBuffers(t *testing.T) {
	const threshold float64 = 1e-10
	var op InnerProductOp

	a, ok := distribution.NewVectorGaussian(
		mat.NewVecDense(2, []float64{1, 2}),
		mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1}))
	if !ok {
		t.Fatalf("NewVectorGaussian: variance is not positive definite")
	}

	variance, err := op.AVariance(a, op.AVarianceInit(a))
	if err != nil {
		t.Fatalf("AVariance: %v", err)
	}
	wantVar := [][]float64{{2, 0.5}, {0.5, 1}}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(variance.At(i, j)-wantVar[i][j]) > threshold {
				t.Errorf("AVariance %v,%v: got %v want %v", i, j, variance.At(i, j), wantVar[i][j])
			}
		}
	}

	mean, err := op.AMean(a, variance, op.AMeanInit(a))
	if err != nil {
		t.Fatalf("AMean: %v", err)
	}
	wantMean := []float64{1, 2}
	for i, w := range wantMean {
		if math.Abs(mean.AtVec(i)-w) > threshold {
			t.Errorf("AMean %v: got %v want %v", i, mean.AtVec(i), w)
		}
	}

	// A point mass has its point as mean and zero variance.
	bPoint := distribution.VectorGaussianPointMass(mat.NewVecDense(2, []float64{3, -1}))
	bVariance, err := op.BVariance(bPoint, op.BVarianceInit(bPoint))
	if err != nil {
		t.Fatalf("BVariance: %v", err)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if bVariance.At(i, j) != 0 {
				t.Errorf("BVariance %v,%v: got %v want 0", i, j, bVariance.At(i, j))
			}
		}
	}
	bMean, err := op.BMean(bPoint, bVariance, op.BMeanInit(bPoint))
	if err != nil {
		t.Fatalf("BMean: %v", err)
	}
	if bMean.AtVec(0) != 3 || bMean.AtVec(1) != -1 {
		t.Errorf("BMean: got (%v, %v) want (3, -1)", bMean.AtVec(0), bMean.AtVec(1))
	}

	improper := distribution.VectorGaussianFromNatural(
		mat.NewVecDense(2, nil),
		mat.NewSymDense(2, []float64{-1, 0, 0, 1}))
	_, err = op.AVariance(improper, op.AVarianceInit(improper))
	if !errors.Is(err, distribution.ErrImproper) {
		t.Errorf("AVariance(improper): got %v want ErrImproper", err)
	}
}

func TestInnerProductOpVariationalMessages(t *testing.T) {
	const threshold float64 = 1e-12
	var op InnerProductOp

	aMean := mat.NewVecDense(2, []float64{1, 2})
	aVariance := mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1})
	bMean := mat.NewVecDense(2, []float64{3, -1})
	bVariance := mat.NewSymDense(2, []float64{1, 0, 0, 2})

	// mean = 1; variance = 16 + 9 + tr(VaVb) = 16 + 9 + 4 = 29.
	msg, err := op.InnerProductAverageLogarithm(aMean, aVariance, bMean, bVariance)
	if err != nil {
		t.Fatalf("InnerProductAverageLogarithm: %v", err)
	}
	mean, variance := msg.GetMeanAndVariance()
	if math.Abs(mean-1) > threshold || math.Abs(variance-29) > threshold {
		t.Errorf("InnerProductAverageLogarithm: got (%v, %v) want (1, 29)", mean, variance)
	}

	// Zero variance buffers reproduce the deterministic product.
	msg, err = op.InnerProductAverageLogarithm(aMean, mat.NewSymDense(2, nil), bMean, mat.NewSymDense(2, nil))
	if err != nil {
		t.Fatalf("InnerProductAverageLogarithm(points): %v", err)
	}
	if !msg.IsPointMass() || msg.Point() != 1 {
		t.Errorf("InnerProductAverageLogarithm(points): got %v want point mass at 1", msg)
	}

	x := distribution.GaussianFromNatural(2, 0.5)

	// precision = 0.5*(Vb + bM bM'), mtp = 2*bM.
	result, err := op.AAverageLogarithm(x, bMean, bVariance, distribution.VectorGaussianUniform(2))
	if err != nil {
		t.Fatalf("AAverageLogarithm: %v", err)
	}
	wantMtp := []float64{6, -2}
	wantPrec := [][]float64{{5, -1.5}, {-1.5, 1.5}}
	for i, w := range wantMtp {
		if math.Abs(result.MeanTimesPrecision.AtVec(i)-w) > threshold {
			t.Errorf("AAverageLogarithm mtp %v: got %v want %v", i, result.MeanTimesPrecision.AtVec(i), w)
		}
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(result.Precision.At(i, j)-wantPrec[i][j]) > threshold {
				t.Errorf("AAverageLogarithm precision %v,%v: got %v want %v", i, j, result.Precision.At(i, j), wantPrec[i][j])
			}
		}
	}

	result, err = op.BAverageLogarithm(x, aMean, aVariance, distribution.VectorGaussianUniform(2))
	if err != nil {
		t.Fatalf("BAverageLogarithm: %v", err)
	}
	wantMtp = []float64{2, 4}
	wantPrec = [][]float64{{1.5, 1.25}, {1.25, 2.5}}
	for i, w := range wantMtp {
		if math.Abs(result.MeanTimesPrecision.AtVec(i)-w) > threshold {
			t.Errorf("BAverageLogarithm mtp %v: got %v want %v", i, result.MeanTimesPrecision.AtVec(i), w)
		}
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(result.Precision.At(i, j)-wantPrec[i][j]) > threshold {
				t.Errorf("BAverageLogarithm precision %v,%v: got %v want %v", i, j, result.Precision.At(i, j), wantPrec[i][j])
			}
		}
	}

	_, err = op.AAverageLogarithm(distribution.GaussianPointMass(1), bMean, bVariance, distribution.VectorGaussianUniform(2))
	if !errors.Is(err, distribution.ErrNotSupported) {
		t.Errorf("AAverageLogarithm(point x): got %v want ErrNotSupported", err)
	}

	if got := op.AverageLogFactor(); got != 0 {
		t.Errorf("AverageLogFactor: got %v want 0", got)
	}
}

func TestInnerProductOpEvidence(t *testing.T) {
	const threshold float64 = 1e-10
	var op InnerProductOp

	a, ok := distribution.NewVectorGaussian(
		mat.NewVecDense(2, []float64{1, 2}),
		mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1}))
	if !ok {
		t.Fatalf("NewVectorGaussian: variance is not positive definite")
	}
	bPoint := distribution.VectorGaussianPointMass(mat.NewVecDense(2, []float64{3, -1}))

	// The message to x is N(1, 16); against N(1, 9) the average is the
	// density of N(0; 0, 25).
	logZ, err := op.LogAverageFactor(distribution.NewGaussian(1, 9), a, bPoint)
	if err != nil {
		t.Fatalf("LogAverageFactor: %v", err)
	}
	if want := -2.528376445638773; math.Abs(logZ-want) > threshold {
		t.Errorf("LogAverageFactor: got %v want %v", logZ, want)
	}

	if got := op.LogEvidenceRatio(); got != 0 {
		t.Errorf("LogEvidenceRatio: got %v want 0", got)
	}

	// Observed x = 1 is the peak of N(1, 16).
	logZ, err = op.LogAverageFactorObserved(1, a, bPoint)
	if err != nil {
		t.Fatalf("LogAverageFactorObserved: %v", err)
	}
	if want := -2.305232894324563; math.Abs(logZ-want) > threshold {
		t.Errorf("LogAverageFactorObserved: got %v want %v", logZ, want)
	}

	ratio, err := op.LogEvidenceRatioObserved(1, a, bPoint)
	if err != nil {
		t.Fatalf("LogEvidenceRatioObserved: %v", err)
	}
	if math.Abs(ratio-logZ) > threshold {
		t.Errorf("LogEvidenceRatioObserved: got %v want %v", ratio, logZ)
	}

	// With every argument observed the evidence is an equality check.
	aPoint := distribution.VectorGaussianPointMass(mat.NewVecDense(2, []float64{1, 2}))
	logZ, err = op.LogAverageFactorObserved(1, aPoint, bPoint)
	if err != nil {
		t.Fatalf("LogAverageFactorObserved(points): %v", err)
	}
	if logZ != 0 {
		t.Errorf("LogAverageFactorObserved(points): got %v want 0", logZ)
	}
	logZ, err = op.LogAverageFactorObserved(2, aPoint, bPoint)
	if err != nil {
		t.Fatalf("LogAverageFactorObserved(mismatch): %v", err)
	}
	if !math.IsInf(logZ, -1) {
		t.Errorf("LogAverageFactorObserved(mismatch): got %v want -Inf", logZ)
	}

	random := distribution.VectorGaussianFromNatural(
		mat.NewVecDense(2, []float64{1, 0}),
		mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	if _, err = op.LogAverageFactor(distribution.NewGaussian(1, 9), a, random); err == nil {
		t.Errorf("LogAverageFactor(both random): want error")
	}
}
