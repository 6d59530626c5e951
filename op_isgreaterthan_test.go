package factorop

import (
	"errors"
	"math"
	"testing"

	"github.com/samuelfneumann/factorop/distribution"
)

func TestIsGreaterThanOpOutcomeMessage(t *testing.T) {
	const threshold float64 = 1e-10
	var op IsGreaterThanOp

	a := distribution.NewDiscrete(0.2, 0.3, 0.5)
	b := distribution.NewDiscrete(0.6, 0.4)
	outcome := op.IsGreaterThanAverageConditional(a, b)
	want := 0.3*0.6 + 0.5*1
	if math.Abs(outcome.GetProbTrue()-want) > threshold {
		t.Errorf("P(a > b): got %v want %v", outcome.GetProbTrue(), want)
	}
}

func TestIsGreaterThanOpAAverageConditional(t *testing.T) {
	const threshold float64 = 1e-10
	var op IsGreaterThanOp

	outcome := distribution.BernoulliPointMass(true)
	b := distribution.NewDiscrete(0.6, 0.4)
	result, err := op.AAverageConditional(outcome, b, distribution.DiscreteUniform(3))
	if err != nil {
		t.Fatalf("AAverageConditional: %v", err)
	}
	want := []float64{0, 0.6 / 1.6, 1 / 1.6}
	for i, w := range want {
		if math.Abs(result.GetProb(i)-w) > threshold {
			t.Errorf("a prob %v: got %v want %v", i, result.GetProb(i), w)
		}
	}

	bHigh := distribution.DiscretePointMass(1, 2)
	if _, err := op.AAverageConditional(outcome, bHigh, distribution.DiscreteUniform(2)); !errors.Is(err, distribution.ErrAllZero) {
		t.Errorf("impossible comparison: got %v want ErrAllZero", err)
	}
}

func TestIsGreaterThanOpBAverageConditional(t *testing.T) {
	var op IsGreaterThanOp

	outcome := distribution.BernoulliPointMass(false)
	a := distribution.DiscretePointMass(1, 3)
	result, err := op.BAverageConditional(outcome, a, distribution.DiscreteUniform(2))
	if err != nil {
		t.Fatalf("BAverageConditional: %v", err)
	}
	if !result.IsPointMass() || result.Point() != 1 {
		t.Errorf("b message: got %v want point mass at 1", result)
	}
}

func TestIsGreaterThanOpEvidence(t *testing.T) {
	const threshold float64 = 1e-10
	var op IsGreaterThanOp

	a := distribution.NewDiscrete(0.2, 0.3, 0.5)
	b := distribution.NewDiscrete(0.6, 0.4)
	p := 0.3*0.6 + 0.5*1

	outcome := distribution.BernoulliFromProbTrue(0.7)
	z := op.LogAverageFactor(outcome, a, b)
	want := math.Log(0.7*p + 0.3*(1-p))
	if math.Abs(z-want) > threshold {
		t.Errorf("LogAverageFactor: got %v want %v", z, want)
	}

	z = op.LogEvidenceRatioObserved(true, a, b)
	if math.Abs(z-math.Log(p)) > threshold {
		t.Errorf("LogEvidenceRatioObserved: got %v want %v", z, math.Log(p))
	}
	if r := op.LogEvidenceRatio(); r != 0 {
		t.Errorf("LogEvidenceRatio: got %v want 0", r)
	}
}

func TestIsGreaterThanOpAAverageLogarithm(t *testing.T) {
	const threshold float64 = 1e-10
	var op IsGreaterThanOp

	outcome := distribution.BernoulliPointMass(true)
	b := distribution.DiscretePointMass(1, 2)
	result, err := op.AAverageLogarithm(outcome, b, distribution.DiscreteUniform(4))
	if err != nil {
		t.Fatalf("AAverageLogarithm: %v", err)
	}
	want := []float64{0, 0, 0.5, 0.5}
	for i, w := range want {
		if math.Abs(result.GetProb(i)-w) > threshold {
			t.Errorf("a prob %v: got %v want %v", i, result.GetProb(i), w)
		}
	}

	soft := distribution.NewDiscrete(0.5, 0.5)
	if _, err := op.AAverageLogarithm(outcome, soft, distribution.DiscreteUniform(4)); !errors.Is(err, distribution.ErrNotSupported) {
		t.Errorf("soft b: got %v want ErrNotSupported", err)
	}
}
