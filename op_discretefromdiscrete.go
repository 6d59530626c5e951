package factorop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/factorop/distribution"
)

// DiscreteFromDiscreteOp computes messages for the factor
// sample ~ Discrete(probs[selector, :]) where probs is a conditional
// probability table with one row per selector value and one column per
// sample value. Table entries must be nonnegative. Messages in both
// directions are products of the table with the incoming probability
// vector and stay exact, point masses included.
type DiscreteFromDiscreteOp struct{}

// SampleAverageConditional fills result with p(sample=j) proportional
// to the selector-weighted column sums of the table.
func (DiscreteFromDiscreteOp) SampleAverageConditional(selector *distribution.Discrete, probs *mat.Dense, result *distribution.Discrete) (*distribution.Discrete, error) {
	rows, cols := probs.Dims()
	if err := checkSameLength("selector", selector.Dimension(), rows); err != nil {
		return result, fmt.Errorf("SampleAverageConditional: %v", err)
	}
	if err := checkSameLength("result", result.Dimension(), cols); err != nil {
		return result, fmt.Errorf("SampleAverageConditional: %v", err)
	}
	var v mat.VecDense
	v.MulVec(probs.T(), mat.NewVecDense(rows, selector.Probs()))
	weight := make([]float64, cols)
	for j := range weight {
		weight[j] = v.AtVec(j)
	}
	if floats.Sum(weight) == 0 {
		return result, fmt.Errorf("SampleAverageConditional: messages have no common support: %w", distribution.ErrAllZero)
	}
	result.SetProbs(weight)
	return result, nil
}

// SampleAverageConditionalObserved fills result with the table row of
// the observed selector.
func (DiscreteFromDiscreteOp) SampleAverageConditionalObserved(selector int, probs *mat.Dense, result *distribution.Discrete) (*distribution.Discrete, error) {
	rows, cols := probs.Dims()
	if err := checkIndex(selector, rows); err != nil {
		return result, fmt.Errorf("SampleAverageConditionalObserved: %v", err)
	}
	if err := checkSameLength("result", result.Dimension(), cols); err != nil {
		return result, fmt.Errorf("SampleAverageConditionalObserved: %v", err)
	}
	weight := mat.Row(nil, selector, probs)
	if floats.Sum(weight) == 0 {
		return result, fmt.Errorf("SampleAverageConditionalObserved: messages have no common support: %w", distribution.ErrAllZero)
	}
	result.SetProbs(weight)
	return result, nil
}

// SelectorAverageConditional fills result with p(selector=i)
// proportional to the sample-weighted row sums of the table.
func (DiscreteFromDiscreteOp) SelectorAverageConditional(sample *distribution.Discrete, probs *mat.Dense, result *distribution.Discrete) (*distribution.Discrete, error) {
	rows, cols := probs.Dims()
	if err := checkSameLength("sample", sample.Dimension(), cols); err != nil {
		return result, fmt.Errorf("SelectorAverageConditional: %v", err)
	}
	if err := checkSameLength("result", result.Dimension(), rows); err != nil {
		return result, fmt.Errorf("SelectorAverageConditional: %v", err)
	}
	var v mat.VecDense
	v.MulVec(probs, mat.NewVecDense(cols, sample.Probs()))
	weight := make([]float64, rows)
	for i := range weight {
		weight[i] = v.AtVec(i)
	}
	if floats.Sum(weight) == 0 {
		return result, fmt.Errorf("SelectorAverageConditional: messages have no common support: %w", distribution.ErrAllZero)
	}
	result.SetProbs(weight)
	return result, nil
}

// SelectorAverageConditionalObserved fills result with the table
// column of the observed sample.
func (DiscreteFromDiscreteOp) SelectorAverageConditionalObserved(sample int, probs *mat.Dense, result *distribution.Discrete) (*distribution.Discrete, error) {
	rows, cols := probs.Dims()
	if err := checkIndex(sample, cols); err != nil {
		return result, fmt.Errorf("SelectorAverageConditionalObserved: %v", err)
	}
	if err := checkSameLength("result", result.Dimension(), rows); err != nil {
		return result, fmt.Errorf("SelectorAverageConditionalObserved: %v", err)
	}
	weight := mat.Col(nil, sample, probs)
	if floats.Sum(weight) == 0 {
		return result, fmt.Errorf("SelectorAverageConditionalObserved: messages have no common support: %w", distribution.ErrAllZero)
	}
	result.SetProbs(weight)
	return result, nil
}

// LogAverageFactor is the evidence when both ends are observed: the
// log of the table entry.
func (DiscreteFromDiscreteOp) LogAverageFactor(sample, selector int, probs *mat.Dense) (float64, error) {
	rows, cols := probs.Dims()
	if err := checkIndex(selector, rows); err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	if err := checkIndex(sample, cols); err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	return math.Log(probs.At(selector, sample)), nil
}

// LogAverageFactorRandom is the evidence for distribution-valued ends:
// the log of the bilinear form of the table with both probability
// vectors.
func (DiscreteFromDiscreteOp) LogAverageFactorRandom(sample, selector *distribution.Discrete, probs *mat.Dense) (float64, error) {
	rows, cols := probs.Dims()
	if err := checkSameLength("selector", selector.Dimension(), rows); err != nil {
		return 0, fmt.Errorf("LogAverageFactorRandom: %v", err)
	}
	if err := checkSameLength("sample", sample.Dimension(), cols); err != nil {
		return 0, fmt.Errorf("LogAverageFactorRandom: %v", err)
	}
	sel := mat.NewVecDense(rows, selector.Probs())
	samp := mat.NewVecDense(cols, sample.Probs())
	return math.Log(mat.Inner(sel, probs, samp)), nil
}

// LogEvidenceRatio is the evidence for a random sample after removing
// the contribution of the sample message computed by this operator. A
// table with normalized rows gives zero.
func (op DiscreteFromDiscreteOp) LogEvidenceRatio(sample, selector *distribution.Discrete, probs *mat.Dense) (float64, error) {
	toSample, err := op.SampleAverageConditional(selector, probs, distribution.DiscreteUniform(sample.Dimension()))
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
	}
	logZ, err := op.LogAverageFactorRandom(sample, selector, probs)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
	}
	return logZ - toSample.GetLogAverageOf(sample), nil
}

// LogEvidenceRatioObserved is the evidence when sample is observed.
func (DiscreteFromDiscreteOp) LogEvidenceRatioObserved(sample int, selector *distribution.Discrete, probs *mat.Dense) (float64, error) {
	rows, cols := probs.Dims()
	if err := checkIndex(sample, cols); err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioObserved: %v", err)
	}
	if err := checkSameLength("selector", selector.Dimension(), rows); err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioObserved: %v", err)
	}
	sum := 0.0
	for i := 0; i < rows; i++ {
		sum += selector.GetProb(i) * probs.At(i, sample)
	}
	return math.Log(sum), nil
}

// SampleAverageLogarithm fills result with p(sample=j) proportional to
// exp(E[log probs[selector, j]]).
func (DiscreteFromDiscreteOp) SampleAverageLogarithm(selector *distribution.Discrete, probs *mat.Dense, result *distribution.Discrete) (*distribution.Discrete, error) {
	rows, cols := probs.Dims()
	if err := checkSameLength("selector", selector.Dimension(), rows); err != nil {
		return result, fmt.Errorf("SampleAverageLogarithm: %v", err)
	}
	if err := checkSameLength("result", result.Dimension(), cols); err != nil {
		return result, fmt.Errorf("SampleAverageLogarithm: %v", err)
	}
	logWeight := make([]float64, cols)
	for j := range logWeight {
		sum := 0.0
		for i := 0; i < rows; i++ {
			if p := selector.GetProb(i); p > 0 {
				sum += p * math.Log(probs.At(i, j))
			}
		}
		logWeight[j] = sum
	}
	return setProbsFromLog(logWeight, result, "SampleAverageLogarithm")
}

// SampleAverageLogarithmObserved fills result with the variational
// message for an observed selector, which is the table row.
func (op DiscreteFromDiscreteOp) SampleAverageLogarithmObserved(selector int, probs *mat.Dense, result *distribution.Discrete) (*distribution.Discrete, error) {
	result, err := op.SampleAverageConditionalObserved(selector, probs, result)
	if err != nil {
		return result, fmt.Errorf("SampleAverageLogarithmObserved: %v", err)
	}
	return result, nil
}

// SelectorAverageLogarithm fills result with p(selector=i)
// proportional to exp(E[log probs[i, sample]]).
func (DiscreteFromDiscreteOp) SelectorAverageLogarithm(sample *distribution.Discrete, probs *mat.Dense, result *distribution.Discrete) (*distribution.Discrete, error) {
	rows, cols := probs.Dims()
	if err := checkSameLength("sample", sample.Dimension(), cols); err != nil {
		return result, fmt.Errorf("SelectorAverageLogarithm: %v", err)
	}
	if err := checkSameLength("result", result.Dimension(), rows); err != nil {
		return result, fmt.Errorf("SelectorAverageLogarithm: %v", err)
	}
	logWeight := make([]float64, rows)
	for i := range logWeight {
		sum := 0.0
		for j := 0; j < cols; j++ {
			if p := sample.GetProb(j); p > 0 {
				sum += p * math.Log(probs.At(i, j))
			}
		}
		logWeight[i] = sum
	}
	return setProbsFromLog(logWeight, result, "SelectorAverageLogarithm")
}

// SelectorAverageLogarithmObserved fills result with the variational
// message for an observed sample, which is the table column.
func (op DiscreteFromDiscreteOp) SelectorAverageLogarithmObserved(sample int, probs *mat.Dense, result *distribution.Discrete) (*distribution.Discrete, error) {
	result, err := op.SelectorAverageConditionalObserved(sample, probs, result)
	if err != nil {
		return result, fmt.Errorf("SelectorAverageLogarithmObserved: %v", err)
	}
	return result, nil
}

// setProbsFromLog exponentiates log weights around their maximum and
// stores the normalized result.
func setProbsFromLog(logWeight []float64, result *distribution.Discrete, caller string) (*distribution.Discrete, error) {
	max := floats.Max(logWeight)
	if math.IsInf(max, -1) {
		return result, fmt.Errorf("%v: messages have no common support: %w", caller, distribution.ErrAllZero)
	}
	weight := make([]float64, len(logWeight))
	for k, lw := range logWeight {
		weight[k] = math.Exp(lw - max)
	}
	result.SetProbs(weight)
	return result, nil
}

// AverageLogFactor is the expected log-factor when both ends are
// observed.
func (op DiscreteFromDiscreteOp) AverageLogFactor(sample, selector int, probs *mat.Dense) (float64, error) {
	logp, err := op.LogAverageFactor(sample, selector, probs)
	if err != nil {
		return 0, fmt.Errorf("AverageLogFactor: %v", err)
	}
	return logp, nil
}

// AverageLogFactorRandom is the expected log-factor for
// distribution-valued ends.
func (DiscreteFromDiscreteOp) AverageLogFactorRandom(sample, selector *distribution.Discrete, probs *mat.Dense) (float64, error) {
	rows, cols := probs.Dims()
	if err := checkSameLength("selector", selector.Dimension(), rows); err != nil {
		return 0, fmt.Errorf("AverageLogFactorRandom: %v", err)
	}
	if err := checkSameLength("sample", sample.Dimension(), cols); err != nil {
		return 0, fmt.Errorf("AverageLogFactorRandom: %v", err)
	}
	sum := 0.0
	for i := 0; i < rows; i++ {
		si := selector.GetProb(i)
		if si == 0 {
			continue
		}
		for j := 0; j < cols; j++ {
			if sj := sample.GetProb(j); sj > 0 {
				sum += si * sj * math.Log(probs.At(i, j))
			}
		}
	}
	return sum, nil
}
