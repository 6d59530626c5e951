package distribution

import (
	"math"
	"testing"
)

func TestBernoulliProbTrue(t *testing.T) {
	const threshold float64 = 1e-12
	b := BernoulliFromProbTrue(0.3)
	if math.Abs(b.GetProbTrue()-0.3) > threshold {
		t.Errorf("prob true: got %v want 0.3", b.GetProbTrue())
	}
	if math.Abs(b.GetProbFalse()-0.7) > threshold {
		t.Errorf("prob false: got %v want 0.7", b.GetProbFalse())
	}
	if diff := math.Abs(b.GetLogProbTrue() - math.Log(0.3)); diff > threshold {
		t.Errorf("log prob true off by %v", diff)
	}
}

// TestBernoulliLogAverage checks GetLogAverageOf against the two-term
// sum.
func TestBernoulliLogAverage(t *testing.T) {
	const threshold float64 = 1e-10
	b1 := BernoulliFromProbTrue(0.3)
	b2 := BernoulliFromProbTrue(0.8)
	want := math.Log(0.3*0.8 + 0.7*0.2)
	if diff := math.Abs(b1.GetLogAverageOf(b2) - want); diff > threshold {
		t.Errorf("log average: got %v want %v", b1.GetLogAverageOf(b2), want)
	}
}

func TestBernoulliProductAddsLogOdds(t *testing.T) {
	b1 := BernoulliFromLogOdds(0.5)
	b2 := BernoulliFromLogOdds(-1.5)
	product := new(Bernoulli)
	product.SetToProduct(b1, b2)
	if product.LogOdds != -1 {
		t.Errorf("product log odds: got %v want -1", product.LogOdds)
	}
	ratio := new(Bernoulli)
	ratio.SetToRatio(product, b2)
	if ratio.LogOdds != 0.5 {
		t.Errorf("ratio log odds: got %v want 0.5", ratio.LogOdds)
	}
}

func TestBernoulliPointMass(t *testing.T) {
	p := BernoulliPointMass(true)
	if !p.IsPointMass() || !p.Point() {
		t.Errorf("point mass not recognized: %v", p)
	}
	if p.GetLogProb(true) != 0 || !math.IsInf(p.GetLogProb(false), -1) {
		t.Error("point mass log prob should be 0 at the point and -Inf off it")
	}
	b := BernoulliFromProbTrue(0.3)
	product := new(Bernoulli)
	product.SetToProduct(p, b)
	if !product.IsPointMass() || !product.Point() {
		t.Errorf("product with point mass: got %v", product)
	}
	if got, want := p.GetLogAverageOf(b), math.Log(0.3); math.Abs(got-want) > 1e-12 {
		t.Errorf("average with point mass: got %v want %v", got, want)
	}
}

func TestBernoulliUniform(t *testing.T) {
	u := BernoulliUniform()
	if !u.IsUniform() || u.GetProbTrue() != 0.5 {
		t.Errorf("uniform: %v", u)
	}
	b := BernoulliFromLogOdds(0.7)
	product := new(Bernoulli)
	product.SetToProduct(u, b)
	if product.LogOdds != 0.7 {
		t.Errorf("uniform product: got %v want 0.7", product.LogOdds)
	}
}
