package factorop

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/factorop/distribution"
)

func TestDiscreteFromDiscreteOpSampleMessage(t *testing.T) {
	const threshold = 1e-10
	op := DiscreteFromDiscreteOp{}
	probs := mat.NewDense(2, 2, []float64{0.5, 0.5, 0.25, 0.75})

	result, err := op.SampleAverageConditional(distribution.NewDiscrete(0.5, 0.5), probs,
		distribution.DiscreteUniform(2))
	if err != nil {
		t.Fatalf("could not compute sample message: %v", err)
	}
	want := []float64{0.375, 0.625}
	for j, w := range want {
		if math.Abs(result.GetProb(j)-w) > threshold {
			t.Errorf("sample prob %d: got %v want %v", j, result.GetProb(j), w)
		}
	}

	result, err = op.SampleAverageConditionalObserved(1, probs, distribution.DiscreteUniform(2))
	if err != nil {
		t.Fatalf("could not compute sample message: %v", err)
	}
	want = []float64{0.25, 0.75}
	for j, w := range want {
		if math.Abs(result.GetProb(j)-w) > threshold {
			t.Errorf("observed selector sample prob %d: got %v want %v", j, result.GetProb(j), w)
		}
	}

	result, err = op.SampleAverageLogarithm(distribution.NewDiscrete(0.5, 0.5), probs,
		distribution.DiscreteUniform(2))
	if err != nil {
		t.Fatalf("could not compute variational sample message: %v", err)
	}
	if w := 1 / (1 + math.Sqrt(3)); math.Abs(result.GetProb(0)-w) > threshold {
		t.Errorf("variational sample prob 0: got %v want %v", result.GetProb(0), w)
	}

	result, err = op.SampleAverageLogarithmObserved(0, probs, distribution.DiscreteUniform(2))
	if err != nil {
		t.Fatalf("could not compute variational sample message: %v", err)
	}
	if math.Abs(result.GetProb(0)-0.5) > threshold {
		t.Errorf("observed selector variational prob 0: got %v want 0.5", result.GetProb(0))
	}

	if _, err := op.SampleAverageConditional(distribution.DiscreteUniform(3), probs,
		distribution.DiscreteUniform(2)); err == nil {
		t.Error("expected an error for a mismatched selector dimension")
	}
	zeroRow := mat.NewDense(2, 2, []float64{0, 0, 0.25, 0.75})
	if _, err := op.SampleAverageConditionalObserved(0, zeroRow,
		distribution.DiscreteUniform(2)); !errors.Is(err, distribution.ErrAllZero) {
		t.Errorf("expected ErrAllZero for a zero table row, got %v", err)
	}
}

func TestDiscreteFromDiscreteOpSelectorMessage(t *testing.T) {
	const threshold = 1e-10
	op := DiscreteFromDiscreteOp{}
	probs := mat.NewDense(2, 2, []float64{0.5, 0.5, 0.25, 0.75})

	result, err := op.SelectorAverageConditional(distribution.DiscretePointMass(0, 2), probs,
		distribution.DiscreteUniform(2))
	if err != nil {
		t.Fatalf("could not compute selector message: %v", err)
	}
	if w := 2.0 / 3; math.Abs(result.GetProb(0)-w) > threshold {
		t.Errorf("selector prob 0: got %v want %v", result.GetProb(0), w)
	}

	result, err = op.SelectorAverageConditionalObserved(1, probs, distribution.DiscreteUniform(2))
	if err != nil {
		t.Fatalf("could not compute selector message: %v", err)
	}
	if math.Abs(result.GetProb(0)-0.4) > threshold {
		t.Errorf("observed sample selector prob 0: got %v want 0.4", result.GetProb(0))
	}

	result, err = op.SelectorAverageConditional(distribution.DiscreteUniform(2), probs,
		distribution.DiscreteUniform(2))
	if err != nil {
		t.Fatalf("could not compute selector message: %v", err)
	}
	if !result.IsUniform() {
		t.Errorf("a uniform sample should give a uniform selector message, got %v", result)
	}

	result, err = op.SelectorAverageLogarithm(distribution.DiscreteUniform(2), probs,
		distribution.DiscreteUniform(2))
	if err != nil {
		t.Fatalf("could not compute variational selector message: %v", err)
	}
	if w := 1 / (1 + math.Sqrt(0.75)); math.Abs(result.GetProb(0)-w) > threshold {
		t.Errorf("variational selector prob 0: got %v want %v", result.GetProb(0), w)
	}

	zeroCol := mat.NewDense(2, 2, []float64{0.5, 0, 0.25, 0})
	if _, err := op.SelectorAverageConditionalObserved(1, zeroCol,
		distribution.DiscreteUniform(2)); !errors.Is(err, distribution.ErrAllZero) {
		t.Errorf("expected ErrAllZero for a zero table column, got %v", err)
	}
}

func TestDiscreteFromDiscreteOpEvidence(t *testing.T) {
	const threshold = 1e-10
	op := DiscreteFromDiscreteOp{}
	probs := mat.NewDense(2, 2, []float64{0.5, 0.5, 0.25, 0.75})
	uniform := distribution.DiscreteUniform(2)

	logZ, err := op.LogAverageFactor(1, 0, probs)
	if err != nil {
		t.Fatalf("could not compute evidence: %v", err)
	}
	if want := math.Log(0.5); math.Abs(logZ-want) > threshold {
		t.Errorf("evidence: got %v want %v", logZ, want)
	}

	logZ, err = op.LogAverageFactorRandom(uniform, uniform, probs)
	if err != nil {
		t.Fatalf("could not compute evidence: %v", err)
	}
	if want := math.Log(0.5); math.Abs(logZ-want) > threshold {
		t.Errorf("random evidence: got %v want %v", logZ, want)
	}

	logZ, err = op.LogAverageFactorRandom(distribution.DiscretePointMass(1, 2),
		distribution.DiscretePointMass(0, 2), probs)
	if err != nil {
		t.Fatalf("could not compute evidence: %v", err)
	}
	if want := math.Log(0.5); math.Abs(logZ-want) > threshold {
		t.Errorf("point mass evidence: got %v want %v", logZ, want)
	}

	ratio, err := op.LogEvidenceRatio(uniform, uniform, probs)
	if err != nil {
		t.Fatalf("could not compute evidence ratio: %v", err)
	}
	if math.Abs(ratio) > threshold {
		t.Errorf("evidence ratio for a normalized table: got %v want 0", ratio)
	}

	doubled := mat.NewDense(2, 2, []float64{1, 1, 0.5, 1.5})
	ratio, err = op.LogEvidenceRatio(uniform, uniform, doubled)
	if err != nil {
		t.Fatalf("could not compute evidence ratio: %v", err)
	}
	if want := math.Log(2); math.Abs(ratio-want) > threshold {
		t.Errorf("evidence ratio for a scaled table: got %v want %v", ratio, want)
	}

	ratio, err = op.LogEvidenceRatioObserved(1, uniform, probs)
	if err != nil {
		t.Fatalf("could not compute evidence ratio: %v", err)
	}
	if want := math.Log(0.625); math.Abs(ratio-want) > threshold {
		t.Errorf("observed evidence ratio: got %v want %v", ratio, want)
	}

	alf, err := op.AverageLogFactor(1, 0, probs)
	if err != nil {
		t.Fatalf("could not compute expected log-factor: %v", err)
	}
	if want := math.Log(0.5); math.Abs(alf-want) > threshold {
		t.Errorf("expected log-factor: got %v want %v", alf, want)
	}

	alf, err = op.AverageLogFactorRandom(uniform, uniform, probs)
	if err != nil {
		t.Fatalf("could not compute expected log-factor: %v", err)
	}
	if want := 0.25 * math.Log(0.046875); math.Abs(alf-want) > threshold {
		t.Errorf("random expected log-factor: got %v want %v", alf, want)
	}

	if _, err := op.LogAverageFactor(2, 0, probs); err == nil {
		t.Error("expected an error for a sample outside the table")
	}
}
