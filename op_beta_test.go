package factorop

import (
	"errors"
	"math"
	"testing"

	"github.com/samuelfneumann/factorop/distribution"
)

func TestBetaFromTrueAndFalseCountsOp(t *testing.T) {
	const threshold = 1e-12
	op := BetaFromTrueAndFalseCountsOp{}

	sample, err := op.SampleAverageConditional(3, 2)
	if err != nil {
		t.Fatalf("SampleAverageConditional: %v", err)
	}
	if sample.TrueCount != 3 || sample.FalseCount != 2 {
		t.Errorf("SampleAverageConditional: got %v want Beta(3, 2)", sample)
	}

	if _, err := op.SampleAverageConditional(-1, 2); !errors.Is(err, distribution.ErrImproper) {
		t.Errorf("SampleAverageConditional improper: got %v want ErrImproper", err)
	}

	logZ, err := op.LogAverageFactor(0.25, 2, 1)
	if err != nil {
		t.Fatalf("LogAverageFactor: %v", err)
	}
	if want := math.Log(0.5); math.Abs(logZ-want) > threshold {
		t.Errorf("LogAverageFactor: got %v want %v", logZ, want)
	}

	logZ, err = op.LogAverageFactorRandom(distribution.NewBeta(2, 2), 2, 1)
	if err != nil {
		t.Fatalf("LogAverageFactorRandom: %v", err)
	}
	if math.Abs(logZ) > threshold {
		t.Errorf("LogAverageFactorRandom: got %v want 0", logZ)
	}

	if got := op.LogEvidenceRatio(); got != 0 {
		t.Errorf("LogEvidenceRatio: got %v want 0", got)
	}

	elbo, err := op.AverageLogFactor(distribution.NewBeta(2, 2), 2, 1)
	if err != nil {
		t.Fatalf("AverageLogFactor: %v", err)
	}
	// log(2) + digamma(2) - digamma(4)
	if want := -0.1401862; math.Abs(elbo-want) > 1e-6 {
		t.Errorf("AverageLogFactor: got %v want %v", elbo, want)
	}
}

func TestBetaOpSampleMessages(t *testing.T) {
	const threshold = 1e-12
	op := BetaOp{}

	sample, err := op.SampleAverageConditional(3, 2)
	if err != nil {
		t.Fatalf("SampleAverageConditional: %v", err)
	}
	if sample.TrueCount != 3 || sample.FalseCount != 2 {
		t.Errorf("SampleAverageConditional: got %v want Beta(3, 2)", sample)
	}

	sample, err = op.SampleAverageLogarithm(distribution.GammaFromShapeAndRate(4, 2), distribution.GammaFromShapeAndRate(6, 2))
	if err != nil {
		t.Fatalf("SampleAverageLogarithm: %v", err)
	}
	if math.Abs(sample.TrueCount-2) > threshold || math.Abs(sample.FalseCount-3) > threshold {
		t.Errorf("SampleAverageLogarithm: got %v want Beta(2, 3)", sample)
	}
}

func TestBetaOpCountMessages(t *testing.T) {
	const threshold = 1e-8
	op := BetaOp{}

	if _, err := op.TrueCountAverageConditional(distribution.BetaUniform(), distribution.GammaUniform(),
		distribution.GammaUniform()); !errors.Is(err, distribution.ErrNotSupported) {
		t.Errorf("TrueCountAverageConditional: got %v want ErrNotSupported", err)
	}

	// at sample = Beta(2, 3) with count means (2, 3) the gradient
	// vanishes and only the curvature term remains
	sample := distribution.NewBeta(2, 3)
	trueCount := distribution.GammaFromShapeAndRate(4, 2)
	falseCount := distribution.GammaFromShapeAndRate(6, 2)

	msg, err := op.TrueCountAverageLogarithm(sample, trueCount, falseCount)
	if err != nil {
		t.Fatalf("TrueCountAverageLogarithm: %v", err)
	}
	if want := 97.0 / 36; math.Abs(msg.Shape-want) > threshold {
		t.Errorf("TrueCountAverageLogarithm shape: got %v want %v", msg.Shape, want)
	}
	if want := 61.0 / 72; math.Abs(msg.Rate-want) > threshold {
		t.Errorf("TrueCountAverageLogarithm rate: got %v want %v", msg.Rate, want)
	}

	msg, err = op.FalseCountAverageLogarithm(sample, trueCount, falseCount)
	if err != nil {
		t.Fatalf("FalseCountAverageLogarithm: %v", err)
	}
	if want := 2.5625; math.Abs(msg.Shape-want) > threshold {
		t.Errorf("FalseCountAverageLogarithm shape: got %v want %v", msg.Shape, want)
	}
	if want := 25.0 / 48; math.Abs(msg.Rate-want) > threshold {
		t.Errorf("FalseCountAverageLogarithm rate: got %v want %v", msg.Rate, want)
	}

	if _, err := op.TrueCountAverageLogarithm(distribution.BetaPointMass(0), trueCount, falseCount); !errors.Is(err, distribution.ErrImproper) {
		t.Errorf("TrueCountAverageLogarithm boundary sample: got %v want ErrImproper", err)
	}

	// a sample far above the count means drives the matched rate
	// negative
	high := distribution.BetaPointMass(0.9)
	ones := distribution.GammaFromShapeAndRate(1, 1)
	nines := distribution.GammaFromShapeAndRate(9, 1)
	msg, err = op.TrueCountAverageLogarithm(high, ones, nines)
	if err != nil {
		t.Fatalf("TrueCountAverageLogarithm high sample: %v", err)
	}
	if msg.IsProper() {
		t.Errorf("TrueCountAverageLogarithm high sample: got proper %v", msg)
	}
	forced := BetaOp{ForceProper: true}
	msg, err = forced.TrueCountAverageLogarithm(high, ones, nines)
	if err != nil {
		t.Fatalf("TrueCountAverageLogarithm forced: %v", err)
	}
	if !msg.IsUniform() {
		t.Errorf("TrueCountAverageLogarithm forced: got %v want uniform", msg)
	}
}

func TestBetaOpEvidence(t *testing.T) {
	const threshold = 1e-6
	op := BetaOp{}

	logZ, err := op.LogAverageFactor(0.25, 2, 1)
	if err != nil {
		t.Fatalf("LogAverageFactor: %v", err)
	}
	if want := math.Log(0.5); math.Abs(logZ-want) > 1e-12 {
		t.Errorf("LogAverageFactor: got %v want %v", logZ, want)
	}
	if got := op.LogEvidenceRatio(); got != 0 {
		t.Errorf("LogEvidenceRatio: got %v want 0", got)
	}

	elbo, err := op.AverageLogFactor(distribution.NewBeta(2, 3),
		distribution.GammaFromShapeAndRate(4, 2), distribution.GammaFromShapeAndRate(6, 2))
	if err != nil {
		t.Fatalf("AverageLogFactor: %v", err)
	}
	// (2-1)*E[log x] + (3-1)*E[log(1-x)] - BetaLn(2, 3)
	if want := 0.2349066; math.Abs(elbo-want) > threshold {
		t.Errorf("AverageLogFactor: got %v want %v", elbo, want)
	}

	elbo, err = op.AverageLogFactorObserved(distribution.NewBeta(2, 2), 2, 1)
	if err != nil {
		t.Fatalf("AverageLogFactorObserved: %v", err)
	}
	if want := -0.1401862; math.Abs(elbo-want) > threshold {
		t.Errorf("AverageLogFactorObserved: got %v want %v", elbo, want)
	}
}
