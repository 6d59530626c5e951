package distribution

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// TestVectorGaussianLogProb checks the density against the gonum
// reference implementation.
func TestVectorGaussianLogProb(t *testing.T) {
	const threshold float64 = 0.00001
	mean := mat.NewVecDense(2, []float64{1, -1})
	variance := mat.NewSymDense(2, []float64{2, 0.3, 0.3, 1})

	vg, ok := NewVectorGaussian(mean, variance)
	if !ok {
		t.Fatal("positive definite variance rejected")
	}
	ref, ok := distmv.NewNormal([]float64{1, -1}, variance, nil)
	if !ok {
		t.Fatal("reference rejected variance")
	}

	for _, x := range [][]float64{{0, 0}, {1, -1}, {2, 1}, {-1, -2}} {
		got := vg.GetLogProb(mat.NewVecDense(2, x))
		want := ref.LogProb(x)
		if math.Abs(got-want) > threshold {
			t.Errorf("log prob at %v: got %v want %v", x, got, want)
		}
	}
}

// TestVectorGaussianMomentsRoundtrip checks that GetMean and
// GetVariance invert the natural parameterization.
func TestVectorGaussianMomentsRoundtrip(t *testing.T) {
	const threshold float64 = 1e-10
	mean := mat.NewVecDense(3, []float64{0.5, -2, 1})
	variance := mat.NewSymDense(3, []float64{
		2, 0.5, 0.1,
		0.5, 1.5, 0.2,
		0.1, 0.2, 1,
	})
	vg, ok := NewVectorGaussian(mean, variance)
	if !ok {
		t.Fatal("positive definite variance rejected")
	}

	gotMean := vg.GetMean(nil)
	gotVariance := vg.GetVariance(nil)
	for i := 0; i < 3; i++ {
		if math.Abs(gotMean.AtVec(i)-mean.AtVec(i)) > threshold {
			t.Errorf("mean[%d]: got %v want %v", i, gotMean.AtVec(i), mean.AtVec(i))
		}
		for j := 0; j < 3; j++ {
			if math.Abs(gotVariance.At(i, j)-variance.At(i, j)) > threshold {
				t.Errorf("variance[%d,%d]: got %v want %v",
					i, j, gotVariance.At(i, j), variance.At(i, j))
			}
		}
	}
}

// TestVectorGaussianProductIdentity checks that SetToProduct and
// GetLogAverageOf agree pointwise.
func TestVectorGaussianProductIdentity(t *testing.T) {
	const threshold float64 = 1e-8
	g1, _ := NewVectorGaussian(
		mat.NewVecDense(2, []float64{1, 0}),
		mat.NewSymDense(2, []float64{1, 0.2, 0.2, 2}))
	g2, _ := NewVectorGaussian(
		mat.NewVecDense(2, []float64{-1, 1}),
		mat.NewSymDense(2, []float64{1.5, -0.1, -0.1, 1}))

	product := VectorGaussianUniform(2)
	product.SetToProduct(g1, g2)
	logAvg := g1.GetLogAverageOf(g2)

	for _, x := range [][]float64{{0, 0}, {1, 1}, {-0.5, 2}} {
		v := mat.NewVecDense(2, x)
		lhs := g1.GetLogProb(v) + g2.GetLogProb(v)
		rhs := product.GetLogProb(v) + logAvg
		if math.Abs(lhs-rhs) > threshold {
			t.Errorf("product identity at %v: got %v want %v", x, rhs, lhs)
		}
	}
}

func TestVectorGaussianPointMass(t *testing.T) {
	point := mat.NewVecDense(2, []float64{1, 2})
	p := VectorGaussianPointMass(point)
	if !p.IsPointMass() {
		t.Error("point mass not recognized")
	}
	if p.GetLogProb(point) != 0 {
		t.Error("log prob at point should be 0")
	}
	if !math.IsInf(p.GetLogProb(mat.NewVecDense(2, []float64{1, 3})), -1) {
		t.Error("log prob off point should be -Inf")
	}

	g, _ := NewVectorGaussian(
		mat.NewVecDense(2, []float64{0, 0}),
		mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	product := VectorGaussianUniform(2)
	product.SetToProduct(p, g)
	if !product.IsPointMass() || !mat.Equal(product.Point(), point) {
		t.Errorf("product with point mass: got %v", product)
	}
	if got, want := p.GetLogAverageOf(g), g.GetLogProb(point); math.Abs(got-want) > 1e-12 {
		t.Errorf("average with point mass: got %v want %v", got, want)
	}
}

func TestVectorGaussianUniform(t *testing.T) {
	u := VectorGaussianUniform(2)
	if !u.IsUniform() {
		t.Error("uniform not recognized")
	}
	g, _ := NewVectorGaussian(
		mat.NewVecDense(2, []float64{1, 1}),
		mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	product := VectorGaussianUniform(2)
	product.SetToProduct(u, g)
	if !mat.Equal(product.MeanTimesPrecision, g.MeanTimesPrecision) ||
		!mat.Equal(product.Precision, g.Precision) {
		t.Error("uniform product should equal the other factor")
	}
}
