package distribution

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

// TestBetaLogProb checks the density against the gonum reference
// implementation on randomized parameters.
func TestBetaLogProb(t *testing.T) {
	const threshold float64 = 0.00001
	const tests int = 30
	rand.Seed(7)

	for i := 0; i < tests; i++ {
		trueCount := math.Exp(rand.Float64() * 2)
		falseCount := math.Exp(rand.Float64() * 2)
		b := NewBeta(trueCount, falseCount)
		ref := distuv.Beta{Alpha: trueCount, Beta: falseCount}

		for j := 0; j < 10; j++ {
			x := ref.Rand()
			if diff := math.Abs(b.GetLogProb(x) - ref.LogProb(x)); diff > threshold {
				t.Errorf("log prob at %v: got %v want %v", x, b.GetLogProb(x), ref.LogProb(x))
			}
		}
	}
}

func TestBetaMoments(t *testing.T) {
	const threshold float64 = 1e-12
	b := NewBeta(2, 3)
	if math.Abs(b.GetMean()-0.4) > threshold {
		t.Errorf("mean: got %v want 0.4", b.GetMean())
	}
	want := 2.0 * 3.0 / (25.0 * 6.0)
	if math.Abs(b.GetVariance()-want) > threshold {
		t.Errorf("variance: got %v want %v", b.GetVariance(), want)
	}
}

// TestBetaProductIdentity checks that SetToProduct and GetLogAverageOf
// agree pointwise.
func TestBetaProductIdentity(t *testing.T) {
	const threshold float64 = 0.00001
	rand.Seed(8)

	for i := 0; i < 30; i++ {
		b1 := NewBeta(0.5+rand.Float64()*3, 0.5+rand.Float64()*3)
		b2 := NewBeta(0.5+rand.Float64()*3, 0.5+rand.Float64()*3)
		product := new(Beta)
		product.SetToProduct(b1, b2)
		logAvg := b1.GetLogAverageOf(b2)

		for j := 0; j < 10; j++ {
			x := 0.05 + 0.9*rand.Float64()
			lhs := b1.GetLogProb(x) + b2.GetLogProb(x)
			rhs := product.GetLogProb(x) + logAvg
			if math.Abs(lhs-rhs) > threshold {
				t.Errorf("product identity at %v: got %v want %v", x, rhs, lhs)
			}
		}
	}
}

func TestBetaUniformIsMultiplicativeIdentity(t *testing.T) {
	u := BetaUniform()
	if !u.IsUniform() {
		t.Error("uniform not recognized")
	}
	b := NewBeta(3, 4)
	product := new(Beta)
	product.SetToProduct(u, b)
	if *product != *b {
		t.Errorf("uniform product: got %v want %v", product, b)
	}
}

func TestBetaPointMass(t *testing.T) {
	p := BetaPointMass(0.3)
	if !p.IsPointMass() || p.Point() != 0.3 {
		t.Errorf("point mass not recognized: %v", p)
	}
	if p.GetLogProb(0.3) != 0 || !math.IsInf(p.GetLogProb(0.5), -1) {
		t.Error("point mass log prob should be 0 at the point and -Inf off it")
	}
	b := NewBeta(2, 2)
	if got, want := p.GetLogAverageOf(b), b.GetLogProb(0.3); got != want {
		t.Errorf("average with point mass: got %v want %v", got, want)
	}
}

func TestBetaMeanLogs(t *testing.T) {
	const threshold float64 = 1e-10
	b := NewBeta(2, 5)
	meanLogTrue, meanLogFalse := b.GetMeanLogs()
	if diff := math.Abs(meanLogTrue - (Digamma(2) - Digamma(7))); diff > threshold {
		t.Errorf("E[ln p]: off by %v", diff)
	}
	if diff := math.Abs(meanLogFalse - (Digamma(5) - Digamma(7))); diff > threshold {
		t.Errorf("E[ln(1-p)]: off by %v", diff)
	}
}
