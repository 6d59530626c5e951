package factorop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/factorop/distribution"
)

// DiscreteFromDirichletOp computes messages for the factor
// sample ~ Discrete(probs) with probs drawn from a Dirichlet. An
// observed sample adds one pseudo-count to its slot. A random sample
// makes the probs posterior a mixture of incremented Dirichlets; the
// posterior is projected back onto a single Dirichlet by matching the
// mean exactly and the second moments on average, then divided by the
// incoming probs message.
//
// AllowImproperSum keeps the projected message even when the division
// leaves nonpositive pseudo-counts. Otherwise the lowest-weight
// mixture component is removed and the projection recomputed until the
// message is proper; a single surviving component reduces to the exact
// conjugate update.
type DiscreteFromDirichletOp struct {
	AllowImproperSum bool
}

// SampleAverageConditional fills result with p(sample=k) proportional
// to E[probs_k].
func (DiscreteFromDirichletOp) SampleAverageConditional(probs *distribution.Dirichlet, result *distribution.Discrete) (*distribution.Discrete, error) {
	if err := checkSameLength("result", result.Dimension(), probs.Dimension()); err != nil {
		return result, fmt.Errorf("SampleAverageConditional: %v", err)
	}
	if probs.IsPointMass() {
		result.SetProbs(probs.Point())
		return result, nil
	}
	if !probs.IsProper() {
		return result, fmt.Errorf("SampleAverageConditional: probs message is improper: %w", distribution.ErrImproper)
	}
	result.SetProbs(probs.GetMean(make([]float64, probs.Dimension())))
	return result, nil
}

// ProbsAverageConditional fills result with the message to probs.
func (op DiscreteFromDirichletOp) ProbsAverageConditional(sample *distribution.Discrete, probs *distribution.Dirichlet, result *distribution.Dirichlet) (*distribution.Dirichlet, error) {
	n := result.Dimension()
	if err := checkSameLength("sample", sample.Dimension(), n); err != nil {
		return result, fmt.Errorf("ProbsAverageConditional: %v", err)
	}
	if err := checkSameLength("probs", probs.Dimension(), n); err != nil {
		return result, fmt.Errorf("ProbsAverageConditional: %v", err)
	}
	if probs.IsPointMass() || sample.IsUniform() {
		result.SetToUniform()
		return result, nil
	}
	if sample.IsPointMass() {
		result.SetToUniform()
		result.PseudoCount[sample.Point()]++
		return result, nil
	}
	if !probs.IsProper() {
		return result, fmt.Errorf("ProbsAverageConditional: probs message is improper: %w", distribution.ErrImproper)
	}
	weight := make([]float64, n)
	for k := range weight {
		weight[k] = sample.GetProb(k) * probs.PseudoCount[k]
	}
	total := floats.Sum(weight)
	if total == 0 {
		return result, fmt.Errorf("ProbsAverageConditional: messages have no common support: %w", distribution.ErrAllZero)
	}
	floats.Scale(1/total, weight)

	posterior := distribution.DirichletUniform(n)
	for {
		dirichletMomentMatch(weight, probs, posterior)
		result.SetToRatio(posterior, probs)
		if op.AllowImproperSum || result.IsProper() {
			return result, nil
		}
		live, min := 0, -1
		for k, w := range weight {
			if w == 0 {
				continue
			}
			live++
			if min < 0 || w < weight[min] {
				min = k
			}
		}
		if live <= 1 {
			// a lone component is the exact conjugate update
			return result, nil
		}
		weight[min] = 0
		floats.Scale(1/floats.Sum(weight), weight)
	}
}

// ProbsAverageConditionalObserved fills result with the conjugate
// update for an observed sample: one extra pseudo-count in its slot.
func (DiscreteFromDirichletOp) ProbsAverageConditionalObserved(sample int, result *distribution.Dirichlet) (*distribution.Dirichlet, error) {
	if err := checkIndex(sample, result.Dimension()); err != nil {
		return result, fmt.Errorf("ProbsAverageConditionalObserved: %v", err)
	}
	result.SetToUniform()
	result.PseudoCount[sample]++
	return result, nil
}

// dirichletMomentMatch projects the mixture over k of
// weight[k]*Dir(prior + e_k) onto a single Dirichlet. The mean is
// matched exactly; the total count averages the per-coordinate
// second-moment estimates, falling back to the component total when no
// coordinate carries spread.
func dirichletMomentMatch(weight []float64, prior, result *distribution.Dirichlet) {
	total := prior.TotalCount()
	n := prior.Dimension()
	mean := make([]float64, n)
	sum := 0.0
	count := 0
	for i := 0; i < n; i++ {
		c := prior.PseudoCount[i]
		mean[i] = (c + weight[i]) / (total + 1)
		meanSquare := (c + 1) * (c + 2*weight[i]) / ((total + 1) * (total + 2))
		if excess := meanSquare - mean[i]*mean[i]; excess > 0 {
			sum += (mean[i] - meanSquare) / excess
			count++
		}
	}
	matched := total + 1
	if count > 0 {
		matched = sum / float64(count)
	}
	for i := 0; i < n; i++ {
		result.PseudoCount[i] = mean[i] * matched
	}
}

// LogAverageFactor is the evidence for an observed sample: the log of
// the expected probability of its slot.
func (DiscreteFromDirichletOp) LogAverageFactor(sample int, probs *distribution.Dirichlet) (float64, error) {
	if err := checkIndex(sample, probs.Dimension()); err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	if probs.IsPointMass() {
		return math.Log(probs.Point()[sample]), nil
	}
	if !probs.IsProper() {
		return 0, fmt.Errorf("LogAverageFactor: probs message is improper: %w", distribution.ErrImproper)
	}
	return math.Log(probs.PseudoCount[sample] / probs.TotalCount()), nil
}

// LogAverageFactorRandom is the evidence for a distribution-valued
// sample.
func (op DiscreteFromDirichletOp) LogAverageFactorRandom(sample *distribution.Discrete, probs *distribution.Dirichlet) (float64, error) {
	if err := checkSameLength("sample", sample.Dimension(), probs.Dimension()); err != nil {
		return 0, fmt.Errorf("LogAverageFactorRandom: %v", err)
	}
	if sample.IsPointMass() {
		logZ, err := op.LogAverageFactor(sample.Point(), probs)
		if err != nil {
			return 0, fmt.Errorf("LogAverageFactorRandom: %v", err)
		}
		return logZ, nil
	}
	if !probs.IsProper() {
		return 0, fmt.Errorf("LogAverageFactorRandom: probs message is improper: %w", distribution.ErrImproper)
	}
	mean := probs.GetMean(make([]float64, probs.Dimension()))
	sum := 0.0
	for k, m := range mean {
		sum += sample.GetProb(k) * m
	}
	return math.Log(sum), nil
}

// LogEvidenceRatio is zero for a random sample.
func (DiscreteFromDirichletOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when sample is observed.
func (op DiscreteFromDirichletOp) LogEvidenceRatioObserved(sample int, probs *distribution.Dirichlet) (float64, error) {
	logZ, err := op.LogAverageFactor(sample, probs)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioObserved: %v", err)
	}
	return logZ, nil
}

// SampleAverageLogarithm fills result with p(sample=k) proportional to
// exp(E[log probs_k]).
func (DiscreteFromDirichletOp) SampleAverageLogarithm(probs *distribution.Dirichlet, result *distribution.Discrete) (*distribution.Discrete, error) {
	if err := checkSameLength("result", result.Dimension(), probs.Dimension()); err != nil {
		return result, fmt.Errorf("SampleAverageLogarithm: %v", err)
	}
	if probs.IsPointMass() {
		result.SetProbs(probs.Point())
		return result, nil
	}
	if !probs.IsProper() {
		return result, fmt.Errorf("SampleAverageLogarithm: probs message is improper: %w", distribution.ErrImproper)
	}
	meanLog := probs.GetMeanLog(make([]float64, probs.Dimension()))
	max := floats.Max(meanLog)
	prob := make([]float64, len(meanLog))
	for k, ml := range meanLog {
		prob[k] = math.Exp(ml - max)
	}
	result.SetProbs(prob)
	return result, nil
}

// ProbsAverageLogarithm fills result with the variational message to
// probs, incrementing each slot by its expected occupancy.
func (DiscreteFromDirichletOp) ProbsAverageLogarithm(sample *distribution.Discrete, result *distribution.Dirichlet) (*distribution.Dirichlet, error) {
	if err := checkSameLength("sample", sample.Dimension(), result.Dimension()); err != nil {
		return result, fmt.Errorf("ProbsAverageLogarithm: %v", err)
	}
	result.SetToUniform()
	for i := range result.PseudoCount {
		result.PseudoCount[i] += sample.GetProb(i)
	}
	return result, nil
}

// ProbsAverageLogarithmObserved fills result with the variational
// message for an observed sample, which is the conjugate update.
func (op DiscreteFromDirichletOp) ProbsAverageLogarithmObserved(sample int, result *distribution.Dirichlet) (*distribution.Dirichlet, error) {
	result, err := op.ProbsAverageConditionalObserved(sample, result)
	if err != nil {
		return result, fmt.Errorf("ProbsAverageLogarithmObserved: %v", err)
	}
	return result, nil
}

// AverageLogFactor is the expected log-factor for an observed sample.
func (DiscreteFromDirichletOp) AverageLogFactor(sample int, probs *distribution.Dirichlet) (float64, error) {
	if err := checkIndex(sample, probs.Dimension()); err != nil {
		return 0, fmt.Errorf("AverageLogFactor: %v", err)
	}
	if !probs.IsProper() {
		return 0, fmt.Errorf("AverageLogFactor: probs message is improper: %w", distribution.ErrImproper)
	}
	meanLog := probs.GetMeanLog(make([]float64, probs.Dimension()))
	return meanLog[sample], nil
}

// AverageLogFactorRandom is the expected log-factor for a
// distribution-valued sample.
func (DiscreteFromDirichletOp) AverageLogFactorRandom(sample *distribution.Discrete, probs *distribution.Dirichlet) (float64, error) {
	if err := checkSameLength("sample", sample.Dimension(), probs.Dimension()); err != nil {
		return 0, fmt.Errorf("AverageLogFactorRandom: %v", err)
	}
	if !probs.IsProper() {
		return 0, fmt.Errorf("AverageLogFactorRandom: probs message is improper: %w", distribution.ErrImproper)
	}
	meanLog := probs.GetMeanLog(make([]float64, probs.Dimension()))
	sum := 0.0
	for k, ml := range meanLog {
		if p := sample.GetProb(k); p > 0 {
			sum += p * ml
		}
	}
	return sum, nil
}

// DiscreteEnumFromDirichletOp adapts DiscreteFromDirichletOp to
// enum-valued samples. Distribution-valued messages pass through
// unchanged; observed samples are converted to their underlying index.
type DiscreteEnumFromDirichletOp[E ~int] struct {
	DiscreteFromDirichletOp
}

// ProbsAverageConditionalObserved fills result with the conjugate
// update for an observed enum sample.
func (op DiscreteEnumFromDirichletOp[E]) ProbsAverageConditionalObserved(sample E, result *distribution.Dirichlet) (*distribution.Dirichlet, error) {
	return op.DiscreteFromDirichletOp.ProbsAverageConditionalObserved(int(sample), result)
}

// ProbsAverageLogarithmObserved fills result with the variational
// message for an observed enum sample.
func (op DiscreteEnumFromDirichletOp[E]) ProbsAverageLogarithmObserved(sample E, result *distribution.Dirichlet) (*distribution.Dirichlet, error) {
	return op.DiscreteFromDirichletOp.ProbsAverageLogarithmObserved(int(sample), result)
}

// LogAverageFactor is the evidence for an observed enum sample.
func (op DiscreteEnumFromDirichletOp[E]) LogAverageFactor(sample E, probs *distribution.Dirichlet) (float64, error) {
	return op.DiscreteFromDirichletOp.LogAverageFactor(int(sample), probs)
}

// LogEvidenceRatioObserved is the evidence when the enum sample is
// observed.
func (op DiscreteEnumFromDirichletOp[E]) LogEvidenceRatioObserved(sample E, probs *distribution.Dirichlet) (float64, error) {
	return op.DiscreteFromDirichletOp.LogEvidenceRatioObserved(int(sample), probs)
}

// AverageLogFactor is the expected log-factor for an observed enum
// sample.
func (op DiscreteEnumFromDirichletOp[E]) AverageLogFactor(sample E, probs *distribution.Dirichlet) (float64, error) {
	return op.DiscreteFromDirichletOp.AverageLogFactor(int(sample), probs)
}
