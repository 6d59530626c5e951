package distribution

import (
	"math"
	"math/rand"
	"testing"

	expRand "golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// TestGaussianLogProb checks the density against the gonum reference
// implementation on randomized parameters.
func TestGaussianLogProb(t *testing.T) {
	const threshold float64 = 0.00001
	const tests int = 30
	rand.Seed(1)

	for i := 0; i < tests; i++ {
		mean := (rand.Float64() - 0.5) * 4
		variance := math.Exp(rand.Float64() * 2)
		g := NewGaussian(mean, variance)
		ref := distuv.Normal{Mu: mean, Sigma: math.Sqrt(variance)}

		for j := 0; j < 10; j++ {
			x := ref.Rand()
			if diff := math.Abs(g.GetLogProb(x) - ref.LogProb(x)); diff > threshold {
				t.Errorf("log prob at %v: got %v want %v", x, g.GetLogProb(x), ref.LogProb(x))
			}
		}
	}
}

// TestGaussianProductIdentity checks that SetToProduct and
// GetLogAverageOf agree pointwise: p1(x)*p2(x) must equal the
// normalized product density scaled by the average.
func TestGaussianProductIdentity(t *testing.T) {
	const threshold float64 = 0.00001
	const tests int = 30
	rand.Seed(2)

	for i := 0; i < tests; i++ {
		g1 := NewGaussian((rand.Float64()-0.5)*4, math.Exp(rand.Float64()))
		g2 := NewGaussian((rand.Float64()-0.5)*4, math.Exp(rand.Float64()))
		product := new(Gaussian)
		product.SetToProduct(g1, g2)
		logAvg := g1.GetLogAverageOf(g2)

		for j := 0; j < 10; j++ {
			x := (rand.Float64() - 0.5) * 8
			lhs := g1.GetLogProb(x) + g2.GetLogProb(x)
			rhs := product.GetLogProb(x) + logAvg
			if math.Abs(lhs-rhs) > threshold {
				t.Errorf("product identity at %v: got %v want %v", x, rhs, lhs)
			}
		}
	}
}

// TestGaussianRatioInvertsProduct checks that dividing a product by one
// factor recovers the other.
func TestGaussianRatioInvertsProduct(t *testing.T) {
	const threshold float64 = 1e-10
	rand.Seed(3)

	for i := 0; i < 30; i++ {
		g1 := NewGaussian((rand.Float64()-0.5)*4, math.Exp(rand.Float64()))
		g2 := NewGaussian((rand.Float64()-0.5)*4, math.Exp(rand.Float64()))
		product := new(Gaussian)
		product.SetToProduct(g1, g2)
		ratio := new(Gaussian)
		ratio.SetToRatio(product, g2)
		if math.Abs(ratio.MeanTimesPrecision-g1.MeanTimesPrecision) > threshold ||
			math.Abs(ratio.Precision-g1.Precision) > threshold {
			t.Errorf("ratio %v does not recover %v", ratio, g1)
		}
	}
}

func TestGaussianPointMass(t *testing.T) {
	p := GaussianPointMass(1.5)
	if !p.IsPointMass() || p.Point() != 1.5 {
		t.Errorf("point mass not recognized: %v", p)
	}
	if got := p.GetLogProb(1.5); got != 0 {
		t.Errorf("log prob at point: got %v want 0", got)
	}
	if got := p.GetLogProb(2); !math.IsInf(got, -1) {
		t.Errorf("log prob off point: got %v want -Inf", got)
	}

	g := NewGaussian(0, 1)
	product := new(Gaussian)
	product.SetToProduct(p, g)
	if !product.IsPointMass() || product.Point() != 1.5 {
		t.Errorf("product with point mass: got %v", product)
	}
	if got, want := p.GetLogAverageOf(g), g.GetLogProb(1.5); got != want {
		t.Errorf("average with point mass: got %v want %v", got, want)
	}

	defer func() {
		if r := recover(); r != ErrAllZero {
			t.Errorf("conflicting point masses: recovered %v want ErrAllZero", r)
		}
	}()
	product.SetToProduct(GaussianPointMass(0), GaussianPointMass(1))
}

func TestGaussianUniform(t *testing.T) {
	u := GaussianUniform()
	if !u.IsUniform() {
		t.Error("uniform not recognized")
	}
	g := NewGaussian(2, 3)
	product := new(Gaussian)
	product.SetToProduct(u, g)
	if *product != *g {
		t.Errorf("uniform product: got %v want %v", product, g)
	}
	if got := u.GetLogProb(7); got != 0 {
		t.Errorf("uniform log prob: got %v want 0", got)
	}
}

func TestGaussianForceProper(t *testing.T) {
	narrow := GaussianFromNatural(1, 2)
	wide := GaussianFromNatural(4, 3)
	msg := new(Gaussian)
	msg.SetToRatioForceProper(narrow, wide)
	if !msg.IsUniform() {
		t.Errorf("negative precision should force uniform, got %v", msg)
	}
	msg.SetToRatioForceProper(wide, narrow)
	if msg.Precision != 1 || msg.MeanTimesPrecision != 3 {
		t.Errorf("proper ratio should be untouched, got %v", msg)
	}
}

// TestGaussianSample draws from a seeded source and checks the sample
// moments.
func TestGaussianSample(t *testing.T) {
	const samples = 10000
	src := expRand.NewSource(11)
	g := NewGaussian(1.5, 4)

	sum, sumSq := 0.0, 0.0
	for i := 0; i < samples; i++ {
		x := g.Sample(src)
		sum += x
		sumSq += x * x
	}
	mean := sum / samples
	variance := sumSq/samples - mean*mean
	if math.Abs(mean-1.5) > 0.1 {
		t.Errorf("sample mean: got %v want 1.5", mean)
	}
	if math.Abs(variance-4) > 0.3 {
		t.Errorf("sample variance: got %v want 4", variance)
	}
}
