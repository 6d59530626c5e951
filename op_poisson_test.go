package factorop

import (
	"errors"
	"math"
	"testing"

	"github.com/samuelfneumann/factorop/distribution"
)

func TestPoissonOpSampleMessage(t *testing.T) {
	const threshold = 1e-6
	op := PoissonOp{}

	msg, err := op.SampleAverageConditional(distribution.GammaFromShapeAndRate(6, 2))
	if err != nil {
		t.Fatalf("could not compute sample message: %v", err)
	}
	if msg.Rate != 3 || msg.Precision != 1 {
		t.Errorf("sample message: got (%v, %v) want (3, 1)", msg.Rate, msg.Precision)
	}

	msg, err = op.SampleAverageConditional(distribution.GammaPointMass(2.5))
	if err != nil {
		t.Fatalf("could not compute sample message: %v", err)
	}
	if msg.Rate != 2.5 {
		t.Errorf("point mean sample message: got rate %v want 2.5", msg.Rate)
	}

	msg, err = op.SampleAverageLogarithm(distribution.GammaFromShapeAndRate(3, 2))
	if err != nil {
		t.Fatalf("could not compute variational sample message: %v", err)
	}
	if want := math.Exp(0.9227843351) / 2; math.Abs(msg.Rate-want) > threshold {
		t.Errorf("variational sample message: got rate %v want %v", msg.Rate, want)
	}

	if _, err := op.SampleAverageConditional(distribution.GammaFromShapeAndRate(-1, 2)); !errors.Is(err, distribution.ErrImproper) {
		t.Errorf("expected ErrImproper for an improper mean, got %v", err)
	}
}

func TestPoissonOpConjugateUpdate(t *testing.T) {
	const threshold = 1e-8
	op := PoissonOp{}

	result, err := op.MeanAverageConditionalObserved(3, distribution.GammaUniform())
	if err != nil {
		t.Fatalf("could not compute mean message: %v", err)
	}
	if result.Shape != 4 || result.Rate != 1 {
		t.Errorf("observed sample: got (%v, %v) want (4, 1)", result.Shape, result.Rate)
	}

	result, err = op.MeanAverageConditional(distribution.PoissonPointMass(3),
		distribution.GammaFromShapeAndRate(2, 3), distribution.GammaUniform())
	if err != nil {
		t.Fatalf("could not compute mean message: %v", err)
	}
	if result.Shape != 4 || result.Rate != 1 {
		t.Errorf("point sample: got (%v, %v) want (4, 1)", result.Shape, result.Rate)
	}

	result, err = op.MeanAverageConditional(distribution.PoissonUniform(),
		distribution.GammaFromShapeAndRate(2, 3), distribution.GammaUniform())
	if err != nil {
		t.Fatalf("could not compute mean message: %v", err)
	}
	if !result.IsUniform() {
		t.Errorf("uniform sample should give a uniform message, got %v", result)
	}

	result, err = op.MeanAverageConditional(distribution.PoissonFromRate(2),
		distribution.GammaPointMass(1.5), distribution.GammaUniform())
	if err != nil {
		t.Fatalf("could not compute mean message: %v", err)
	}
	if !result.IsUniform() {
		t.Errorf("point mean should give a uniform message, got %v", result)
	}

	result, err = op.MeanAverageLogarithm(distribution.PoissonFromRate(2.5), distribution.GammaUniform())
	if err != nil {
		t.Fatalf("could not compute variational mean message: %v", err)
	}
	if math.Abs(result.Shape-3.5) > threshold || result.Rate != 1 {
		t.Errorf("variational message: got (%v, %v) want (3.5, 1)", result.Shape, result.Rate)
	}

	if _, err := op.MeanAverageConditionalObserved(-1, distribution.GammaUniform()); err == nil {
		t.Error("expected an error for a negative sample")
	}
}

func TestPoissonOpMomentMatching(t *testing.T) {
	op := PoissonOp{}

	// With precision zero the count sum collapses to a geometric series
	// and the posterior is exactly Gamma(2, 3.5).
	result, err := op.MeanAverageConditional(distribution.PoissonFromRateAndPrecision(0.5, 0),
		distribution.GammaFromShapeAndRate(2, 3), distribution.GammaUniform())
	if err != nil {
		t.Fatalf("could not compute mean message: %v", err)
	}
	const threshold = 1e-8
	if math.Abs(result.Shape-1) > threshold {
		t.Errorf("geometric sample shape: got %v want 1", result.Shape)
	}
	if math.Abs(result.Rate-0.5) > threshold {
		t.Errorf("geometric sample rate: got %v want 0.5", result.Rate)
	}

	result, err = op.MeanAverageConditional(distribution.PoissonFromRate(0.1),
		distribution.GammaFromShapeAndRate(2, 3), distribution.GammaUniform())
	if err != nil {
		t.Fatalf("could not compute mean message: %v", err)
	}
	if want := 1.001729659; math.Abs(result.Shape-want) > 1e-6 {
		t.Errorf("shape: got %v want %v", result.Shape, want)
	}
	if want := 0.906976053; math.Abs(result.Rate-want) > 1e-6 {
		t.Errorf("rate: got %v want %v", result.Rate, want)
	}

	_, err = op.MeanAverageConditional(distribution.PoissonFromRateAndPrecision(2, 0),
		distribution.GammaFromShapeAndRate(2, 0.5), distribution.GammaUniform())
	if !errors.Is(err, distribution.ErrImproper) {
		t.Errorf("expected ErrImproper for a divergent sum, got %v", err)
	}
}

func TestPoissonOpEvidence(t *testing.T) {
	const threshold = 1e-10
	op := PoissonOp{}
	mean := distribution.GammaFromShapeAndRate(3, 1)

	logZ, err := op.LogAverageFactor(2, mean)
	if err != nil {
		t.Fatalf("could not compute evidence: %v", err)
	}
	if want := math.Log(0.1875); math.Abs(logZ-want) > threshold {
		t.Errorf("evidence: got %v want %v", logZ, want)
	}

	logZ, err = op.LogAverageFactor(2, distribution.GammaPointMass(1.5))
	if err != nil {
		t.Fatalf("could not compute evidence: %v", err)
	}
	if want := 2*math.Log(1.5) - 1.5 - math.Log(2); math.Abs(logZ-want) > threshold {
		t.Errorf("point mean evidence: got %v want %v", logZ, want)
	}

	logZ, err = op.LogAverageFactorRandom(distribution.PoissonPointMass(2), mean)
	if err != nil {
		t.Fatalf("could not compute evidence: %v", err)
	}
	if want := math.Log(0.1875); math.Abs(logZ-want) > threshold {
		t.Errorf("point sample evidence: got %v want %v", logZ, want)
	}

	logZ, err = op.LogAverageFactorRandom(distribution.PoissonFromRate(1), mean)
	if err != nil {
		t.Fatalf("could not compute evidence: %v", err)
	}
	if want := math.Log(0.265625) - 0.5; math.Abs(logZ-want) > threshold {
		t.Errorf("random sample evidence: got %v want %v", logZ, want)
	}

	if ratio := op.LogEvidenceRatio(); ratio != 0 {
		t.Errorf("evidence ratio: got %v want 0", ratio)
	}
	ratio, err := op.LogEvidenceRatioObserved(2, mean)
	if err != nil {
		t.Fatalf("could not compute evidence ratio: %v", err)
	}
	if want := math.Log(0.1875); math.Abs(ratio-want) > threshold {
		t.Errorf("observed evidence ratio: got %v want %v", ratio, want)
	}

	alf, err := op.AverageLogFactor(2, mean)
	if err != nil {
		t.Fatalf("could not compute expected log-factor: %v", err)
	}
	if want := 2*0.9227843351 - 3 - math.Log(2); math.Abs(alf-want) > 1e-8 {
		t.Errorf("expected log-factor: got %v want %v", alf, want)
	}

	alf, err = op.AverageLogFactorRandom(distribution.PoissonFromRate(2), mean)
	if err != nil {
		t.Fatalf("could not compute expected log-factor: %v", err)
	}
	if want := -2.2456083; math.Abs(alf-want) > 1e-6 {
		t.Errorf("random sample expected log-factor: got %v want %v", alf, want)
	}

	if _, err := op.LogAverageFactor(2, distribution.GammaFromShapeAndRate(-1, 2)); !errors.Is(err, distribution.ErrImproper) {
		t.Errorf("expected ErrImproper for an improper mean, got %v", err)
	}
}
