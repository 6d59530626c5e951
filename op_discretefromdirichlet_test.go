package factorop

import (
	"math"
	"testing"

	"github.com/samuelfneumann/factorop/distribution"
)

func TestDiscreteFromDirichletOpSampleMessage(t *testing.T) {
	const threshold = 1e-12
	op := DiscreteFromDirichletOp{}

	probs := distribution.NewDirichlet(2, 3, 5)
	sample, err := op.SampleAverageConditional(probs, distribution.DiscreteUniform(3))
	if err != nil {
		t.Fatalf("SampleAverageConditional: %v", err)
	}
	want := []float64{0.2, 0.3, 0.5}
	for i, w := range want {
		if got := sample.GetProb(i); math.Abs(got-w) > threshold {
			t.Errorf("SampleAverageConditional prob %v: got %v want %v", i, got, w)
		}
	}

	point := distribution.DirichletPointMass(0.1, 0.2, 0.7)
	sample, err = op.SampleAverageConditional(point, distribution.DiscreteUniform(3))
	if err != nil {
		t.Fatalf("SampleAverageConditional point: %v", err)
	}
	for i, w := range []float64{0.1, 0.2, 0.7} {
		if got := sample.GetProb(i); math.Abs(got-w) > threshold {
			t.Errorf("SampleAverageConditional point prob %v: got %v want %v", i, got, w)
		}
	}
}

func TestDiscreteFromDirichletOpConjugateUpdate(t *testing.T) {
	const threshold = 1e-12
	op := DiscreteFromDirichletOp{}

	result, err := op.ProbsAverageConditionalObserved(1, distribution.DirichletSymmetric(3, 9))
	if err != nil {
		t.Fatalf("ProbsAverageConditionalObserved: %v", err)
	}
	want := []float64{1, 2, 1}
	for i, w := range want {
		if got := result.PseudoCount[i]; math.Abs(got-w) > threshold {
			t.Errorf("ProbsAverageConditionalObserved count %v: got %v want %v", i, got, w)
		}
	}

	probs := distribution.NewDirichlet(2, 3, 5)
	result, err = op.ProbsAverageConditional(distribution.DiscretePointMass(1, 3), probs, distribution.DirichletUniform(3))
	if err != nil {
		t.Fatalf("ProbsAverageConditional point sample: %v", err)
	}
	for i, w := range want {
		if got := result.PseudoCount[i]; math.Abs(got-w) > threshold {
			t.Errorf("ProbsAverageConditional point sample count %v: got %v want %v", i, got, w)
		}
	}

	result, err = op.ProbsAverageConditional(distribution.DiscreteUniform(3), probs, distribution.DirichletUniform(3))
	if err != nil {
		t.Fatalf("ProbsAverageConditional uniform sample: %v", err)
	}
	if !result.IsUniform() {
		t.Errorf("ProbsAverageConditional uniform sample: got %v want uniform", result)
	}

	result, err = op.ProbsAverageConditional(distribution.NewDiscrete(0.2, 0.3, 0.5),
		distribution.DirichletPointMass(0.1, 0.2, 0.7), distribution.DirichletUniform(3))
	if err != nil {
		t.Fatalf("ProbsAverageConditional point probs: %v", err)
	}
	if !result.IsUniform() {
		t.Errorf("ProbsAverageConditional point probs: got %v want uniform", result)
	}
}

// The projection of a mixture posterior matches the mixture mean
// exactly, and the deflation rule removes the lowest-weight component
// until the message is proper. The pseudo-counts pin the projection
// policy.
func TestDiscreteFromDirichletOpMomentMatching(t *testing.T) {
	const threshold = 1e-6
	sample := distribution.NewDiscrete(0, 0.4, 0.6)
	prior := distribution.NewDirichlet(10, 1, 1)

	improper := DiscreteFromDirichletOp{AllowImproperSum: true}
	result, err := improper.ProbsAverageConditional(sample, prior, distribution.DirichletUniform(3))
	if err != nil {
		t.Fatalf("ProbsAverageConditional: %v", err)
	}
	want := []float64{-0.10285697, 1.24560002, 1.42354289}
	for i, w := range want {
		if got := result.PseudoCount[i]; math.Abs(got-w) > threshold {
			t.Errorf("improper sum count %v: got %v want %v", i, got, w)
		}
	}
	if result.IsProper() {
		t.Errorf("improper sum: got proper message %v", result)
	}

	// first moment is matched exactly: message times prior has the
	// mixture mean
	posterior := distribution.DirichletUniform(3)
	posterior.SetToProduct(result, prior)
	mean := posterior.GetMean(make([]float64, 3))
	wantMean := []float64{10.0 / 13, 7.0 / 65, 8.0 / 65}
	for i, w := range wantMean {
		if math.Abs(mean[i]-w) > 1e-10 {
			t.Errorf("posterior mean %v: got %v want %v", i, mean[i], w)
		}
	}

	proper := DiscreteFromDirichletOp{}
	result, err = proper.ProbsAverageConditional(sample, prior, distribution.DirichletUniform(3))
	if err != nil {
		t.Fatalf("ProbsAverageConditional proper: %v", err)
	}
	wantProper := []float64{1, 1, 2}
	for i, w := range wantProper {
		if got := result.PseudoCount[i]; math.Abs(got-w) > 1e-8 {
			t.Errorf("deflated count %v: got %v want %v", i, got, w)
		}
	}
	if !result.IsProper() {
		t.Errorf("deflated message is improper: %v", result)
	}
}

func TestDiscreteFromDirichletOpEvidence(t *testing.T) {
	const threshold = 1e-12
	op := DiscreteFromDirichletOp{}

	logZ, err := op.LogAverageFactor(2, distribution.DirichletPointMass(0.1, 0.2, 0.7))
	if err != nil {
		t.Fatalf("LogAverageFactor point: %v", err)
	}
	if want := math.Log(0.7); math.Abs(logZ-want) > threshold {
		t.Errorf("LogAverageFactor point: got %v want %v", logZ, want)
	}

	logZ, err = op.LogAverageFactor(2, distribution.NewDirichlet(1, 2, 7))
	if err != nil {
		t.Fatalf("LogAverageFactor: %v", err)
	}
	if want := math.Log(0.7); math.Abs(logZ-want) > threshold {
		t.Errorf("LogAverageFactor: got %v want %v", logZ, want)
	}

	logZ, err = op.LogAverageFactorRandom(distribution.NewDiscrete(0.1, 0.2, 0.7), distribution.NewDirichlet(2, 3, 5))
	if err != nil {
		t.Fatalf("LogAverageFactorRandom: %v", err)
	}
	if want := math.Log(0.43); math.Abs(logZ-want) > threshold {
		t.Errorf("LogAverageFactorRandom: got %v want %v", logZ, want)
	}

	if got := op.LogEvidenceRatio(); got != 0 {
		t.Errorf("LogEvidenceRatio: got %v want 0", got)
	}
	ratio, err := op.LogEvidenceRatioObserved(2, distribution.NewDirichlet(1, 2, 7))
	if err != nil {
		t.Fatalf("LogEvidenceRatioObserved: %v", err)
	}
	if want := math.Log(0.7); math.Abs(ratio-want) > threshold {
		t.Errorf("LogEvidenceRatioObserved: got %v want %v", ratio, want)
	}
}

func TestDiscreteFromDirichletOpVmp(t *testing.T) {
	const threshold = 1e-4
	op := DiscreteFromDirichletOp{}

	probs := distribution.NewDirichlet(2, 3, 5)
	sample, err := op.SampleAverageLogarithm(probs, distribution.DiscreteUniform(3))
	if err != nil {
		t.Fatalf("SampleAverageLogarithm: %v", err)
	}
	// proportional to exp(digamma(count)) for counts 2, 3 and 5
	want := []float64{0.17847, 0.29424, 0.52729}
	for i, w := range want {
		if got := sample.GetProb(i); math.Abs(got-w) > threshold {
			t.Errorf("SampleAverageLogarithm prob %v: got %v want %v", i, got, w)
		}
	}

	toProbs, err := op.ProbsAverageLogarithm(distribution.NewDiscrete(0.1, 0.2, 0.7), distribution.DirichletUniform(3))
	if err != nil {
		t.Fatalf("ProbsAverageLogarithm: %v", err)
	}
	wantCounts := []float64{1.1, 1.2, 1.7}
	for i, w := range wantCounts {
		if got := toProbs.PseudoCount[i]; math.Abs(got-w) > 1e-12 {
			t.Errorf("ProbsAverageLogarithm count %v: got %v want %v", i, got, w)
		}
	}

	elbo, err := op.AverageLogFactor(2, probs)
	if err != nil {
		t.Fatalf("AverageLogFactor: %v", err)
	}
	if want := -0.7456349; math.Abs(elbo-want) > 1e-6 {
		t.Errorf("AverageLogFactor: got %v want %v", elbo, want)
	}
}

func TestDiscreteEnumFromDirichletOp(t *testing.T) {
	const threshold = 1e-12
	type rank int
	op := DiscreteEnumFromDirichletOp[rank]{}

	logZ, err := op.LogAverageFactor(rank(2), distribution.DirichletPointMass(0.1, 0.2, 0.7))
	if err != nil {
		t.Fatalf("LogAverageFactor: %v", err)
	}
	if want := math.Log(0.7); math.Abs(logZ-want) > threshold {
		t.Errorf("LogAverageFactor: got %v want %v", logZ, want)
	}

	result, err := op.ProbsAverageConditionalObserved(rank(1), distribution.DirichletUniform(3))
	if err != nil {
		t.Fatalf("ProbsAverageConditionalObserved: %v", err)
	}
	for i, w := range []float64{1, 2, 1} {
		if got := result.PseudoCount[i]; math.Abs(got-w) > threshold {
			t.Errorf("ProbsAverageConditionalObserved count %v: got %v want %v", i, got, w)
		}
	}

	sample, err := op.SampleAverageConditional(distribution.NewDirichlet(2, 3, 5), distribution.DiscreteUniform(3))
	if err != nil {
		t.Fatalf("SampleAverageConditional: %v", err)
	}
	for i, w := range []float64{0.2, 0.3, 0.5} {
		if got := sample.GetProb(i); math.Abs(got-w) > threshold {
			t.Errorf("SampleAverageConditional prob %v: got %v want %v", i, got, w)
		}
	}
}
