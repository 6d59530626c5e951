package factorop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/factorop/distribution"
)

// MultinomialOp computes messages for the factor
// counts ~ Multinomial(trialCount, probs) with probs drawn from a
// Dirichlet. The counts are always observed, either as a dense slice
// or as a SparseVector; the trial count is their sum. The conjugate
// update adds the counts to the probs pseudo-counts, so the EP and VMP
// messages coincide.
type MultinomialOp struct{}

// ProbsAverageConditional fills result with the conjugate update for
// observed counts.
func (MultinomialOp) ProbsAverageConditional(sample []int, result *distribution.Dirichlet) (*distribution.Dirichlet, error) {
	if err := checkSameLength("sample", len(sample), result.Dimension()); err != nil {
		return result, fmt.Errorf("ProbsAverageConditional: %v", err)
	}
	result.SetToUniform()
	for i, c := range sample {
		if c < 0 {
			return result, fmt.Errorf("ProbsAverageConditional: count %v at index %v is negative", c, i)
		}
		result.PseudoCount[i] += float64(c)
	}
	return result, nil
}

// ProbsAverageConditionalSparse fills result with the conjugate update
// for observed sparse counts. Entries at the common value are handled
// in one step, so a mostly-zero count vector touches only its
// deviations.
func (MultinomialOp) ProbsAverageConditionalSparse(sample *distribution.SparseVector, result *distribution.Dirichlet) (*distribution.Dirichlet, error) {
	if err := checkSameLength("sample", sample.Count(), result.Dimension()); err != nil {
		return result, fmt.Errorf("ProbsAverageConditionalSparse: %v", err)
	}
	if err := checkCountsSparse(sample); err != nil {
		return result, fmt.Errorf("ProbsAverageConditionalSparse: %v", err)
	}
	result.SetToUniform()
	if c := sample.CommonValue; c != 0 {
		for i := range result.PseudoCount {
			result.PseudoCount[i] += c
		}
	}
	for _, e := range sample.Elements() {
		result.PseudoCount[e.Index] = 1 + e.Value
	}
	return result, nil
}

// ProbsAverageLogarithm fills result with the variational message to
// probs, which for observed counts is the conjugate update.
func (op MultinomialOp) ProbsAverageLogarithm(sample []int, result *distribution.Dirichlet) (*distribution.Dirichlet, error) {
	result, err := op.ProbsAverageConditional(sample, result)
	if err != nil {
		return result, fmt.Errorf("ProbsAverageLogarithm: %v", err)
	}
	return result, nil
}

// ProbsAverageLogarithmSparse fills result with the variational
// message for observed sparse counts.
func (op MultinomialOp) ProbsAverageLogarithmSparse(sample *distribution.SparseVector, result *distribution.Dirichlet) (*distribution.Dirichlet, error) {
	result, err := op.ProbsAverageConditionalSparse(sample, result)
	if err != nil {
		return result, fmt.Errorf("ProbsAverageLogarithmSparse: %v", err)
	}
	return result, nil
}

// LogAverageFactor is the evidence for observed counts: the log of the
// multinomial coefficient times the expected probability of the count
// vector.
func (MultinomialOp) LogAverageFactor(sample []int, probs *distribution.Dirichlet) (float64, error) {
	if err := checkSameLength("sample", len(sample), probs.Dimension()); err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	n := 0
	for i, c := range sample {
		if c < 0 {
			return 0, fmt.Errorf("LogAverageFactor: count %v at index %v is negative", c, i)
		}
		n += c
	}
	logZ := distribution.FactorialLn(n)
	for _, c := range sample {
		logZ -= distribution.FactorialLn(c)
	}
	if probs.IsPointMass() {
		p := probs.Point()
		for i, c := range sample {
			if c > 0 {
				logZ += float64(c) * math.Log(p[i])
			}
		}
		return logZ, nil
	}
	if !probs.IsProper() {
		return 0, fmt.Errorf("LogAverageFactor: probs message is improper: %w", distribution.ErrImproper)
	}
	for i, c := range sample {
		if c > 0 {
			alpha := probs.PseudoCount[i]
			logZ += distribution.GammaLn(alpha+float64(c)) - distribution.GammaLn(alpha)
		}
	}
	total := probs.TotalCount()
	logZ += distribution.GammaLn(total) - distribution.GammaLn(total+float64(n))
	return logZ, nil
}

// LogAverageFactorSparse is the evidence for observed sparse counts.
func (MultinomialOp) LogAverageFactorSparse(sample *distribution.SparseVector, probs *distribution.Dirichlet) (float64, error) {
	if err := checkSameLength("sample", sample.Count(), probs.Dimension()); err != nil {
		return 0, fmt.Errorf("LogAverageFactorSparse: %v", err)
	}
	if err := checkCountsSparse(sample); err != nil {
		return 0, fmt.Errorf("LogAverageFactorSparse: %v", err)
	}
	n := sample.Sum()
	logZ := distribution.GammaLn(n + 1)
	if c := sample.CommonValue; c != 0 {
		logZ -= float64(sample.Count()-sample.ElementCount()) * distribution.GammaLn(c+1)
	}
	for _, e := range sample.Elements() {
		logZ -= distribution.GammaLn(e.Value + 1)
	}
	if probs.IsPointMass() {
		p := probs.Point()
		forEachCount(sample, func(i int, c float64) {
			if c > 0 {
				logZ += c * math.Log(p[i])
			}
		})
		return logZ, nil
	}
	if !probs.IsProper() {
		return 0, fmt.Errorf("LogAverageFactorSparse: probs message is improper: %w", distribution.ErrImproper)
	}
	forEachCount(sample, func(i int, c float64) {
		if c > 0 {
			alpha := probs.PseudoCount[i]
			logZ += distribution.GammaLn(alpha+c) - distribution.GammaLn(alpha)
		}
	})
	total := probs.TotalCount()
	logZ += distribution.GammaLn(total) - distribution.GammaLn(total+n)
	return logZ, nil
}

// LogEvidenceRatio is the evidence for observed counts.
func (op MultinomialOp) LogEvidenceRatio(sample []int, probs *distribution.Dirichlet) (float64, error) {
	logZ, err := op.LogAverageFactor(sample, probs)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
	}
	return logZ, nil
}

// LogEvidenceRatioSparse is the evidence for observed sparse counts.
func (op MultinomialOp) LogEvidenceRatioSparse(sample *distribution.SparseVector, probs *distribution.Dirichlet) (float64, error) {
	logZ, err := op.LogAverageFactorSparse(sample, probs)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioSparse: %v", err)
	}
	return logZ, nil
}

// AverageLogFactor is the expected log-factor for observed counts.
func (MultinomialOp) AverageLogFactor(sample []int, probs *distribution.Dirichlet) (float64, error) {
	if err := checkSameLength("sample", len(sample), probs.Dimension()); err != nil {
		return 0, fmt.Errorf("AverageLogFactor: %v", err)
	}
	if !probs.IsPointMass() && !probs.IsProper() {
		return 0, fmt.Errorf("AverageLogFactor: probs message is improper: %w", distribution.ErrImproper)
	}
	n := 0
	for i, c := range sample {
		if c < 0 {
			return 0, fmt.Errorf("AverageLogFactor: count %v at index %v is negative", c, i)
		}
		n += c
	}
	sum := distribution.FactorialLn(n)
	meanLog := probs.GetMeanLog(make([]float64, probs.Dimension()))
	for i, c := range sample {
		sum -= distribution.FactorialLn(c)
		if c > 0 {
			sum += float64(c) * meanLog[i]
		}
	}
	return sum, nil
}

// AverageLogFactorSparse is the expected log-factor for observed
// sparse counts.
func (MultinomialOp) AverageLogFactorSparse(sample *distribution.SparseVector, probs *distribution.Dirichlet) (float64, error) {
	if err := checkSameLength("sample", sample.Count(), probs.Dimension()); err != nil {
		return 0, fmt.Errorf("AverageLogFactorSparse: %v", err)
	}
	if err := checkCountsSparse(sample); err != nil {
		return 0, fmt.Errorf("AverageLogFactorSparse: %v", err)
	}
	if !probs.IsPointMass() && !probs.IsProper() {
		return 0, fmt.Errorf("AverageLogFactorSparse: probs message is improper: %w", distribution.ErrImproper)
	}
	sum := distribution.GammaLn(sample.Sum() + 1)
	if c := sample.CommonValue; c != 0 {
		sum -= float64(sample.Count()-sample.ElementCount()) * distribution.GammaLn(c+1)
	}
	for _, e := range sample.Elements() {
		sum -= distribution.GammaLn(e.Value + 1)
	}
	meanLog := probs.GetMeanLog(make([]float64, probs.Dimension()))
	forEachCount(sample, func(i int, c float64) {
		if c > 0 {
			sum += c * meanLog[i]
		}
	})
	return sum, nil
}

// checkCountsSparse rejects sparse count vectors with a negative entry.
func checkCountsSparse(counts *distribution.SparseVector) error {
	if counts.CommonValue < 0 {
		return fmt.Errorf("common count %v is negative", counts.CommonValue)
	}
	for _, e := range counts.Elements() {
		if e.Value < 0 {
			return fmt.Errorf("count %v at index %v is negative", e.Value, e.Index)
		}
	}
	return nil
}

// forEachCount calls fn for every entry of counts. Runs of a zero
// common value are skipped since a zero count never contributes.
func forEachCount(counts *distribution.SparseVector, fn func(i int, c float64)) {
	elems := counts.Elements()
	if counts.CommonValue == 0 {
		for _, e := range elems {
			fn(e.Index, e.Value)
		}
		return
	}
	k := 0
	for i := 0; i < counts.Count(); i++ {
		if k < len(elems) && elems[k].Index == i {
			fn(i, elems[k].Value)
			k++
			continue
		}
		fn(i, counts.CommonValue)
	}
}

// BinomialOp computes messages for the factor
// sample ~ Binomial(trialCount, probTrue) with probTrue drawn from a
// Beta. This is the two-outcome multinomial with a random sample: the
// sample message lives in the Binomial family, and a random sample
// makes the probTrue posterior a mixture of trialCount+1 incremented
// Betas that is projected back onto a single Beta by moment matching.
//
// AllowImproperSum keeps the projected message even when dividing by
// the incoming probTrue message leaves a nonpositive count. Otherwise
// the lowest-weight mixture component is removed and the projection
// recomputed until the message is proper; a single surviving component
// reduces to the exact conjugate update.
type BinomialOp struct {
	AllowImproperSum bool
}

// SampleAverageConditionalObserved returns the exact sample
// distribution for an observed probTrue.
func (BinomialOp) SampleAverageConditionalObserved(trialCount int, probTrue float64) (*distribution.Binomial, error) {
	if trialCount < 0 {
		return nil, fmt.Errorf("SampleAverageConditionalObserved: trial count %v is negative", trialCount)
	}
	if probTrue < 0 || probTrue > 1 {
		return nil, fmt.Errorf("SampleAverageConditionalObserved: probTrue %v is outside [0, 1]", probTrue)
	}
	return distribution.NewBinomial(trialCount, probTrue), nil
}

// SampleAverageLogarithm returns the variational message to sample,
// a binomial with log odds E[log p] - E[log(1-p)].
func (BinomialOp) SampleAverageLogarithm(trialCount int, probTrue *distribution.Beta) (*distribution.Binomial, error) {
	if trialCount < 0 {
		return nil, fmt.Errorf("SampleAverageLogarithm: trial count %v is negative", trialCount)
	}
	if !probTrue.IsPointMass() && !probTrue.IsProper() {
		return nil, fmt.Errorf("SampleAverageLogarithm: probTrue message is improper: %w", distribution.ErrImproper)
	}
	meanLogP, meanLogQ := probTrue.GetMeanLogs()
	return distribution.BinomialFromNatural(trialCount, meanLogP-meanLogQ, 1, 1), nil
}

// ProbTrueAverageConditional fills result with the message to probTrue
// for a distribution-valued sample.
func (op BinomialOp) ProbTrueAverageConditional(sample *distribution.Binomial, probTrue *distribution.Beta, result *distribution.Beta) (*distribution.Beta, error) {
	n := sample.TrialCount
	if sample.IsPointMass() {
		result, err := op.ProbTrueAverageConditionalObserved(n, sample.Point(), result)
		if err != nil {
			return result, fmt.Errorf("ProbTrueAverageConditional: %v", err)
		}
		return result, nil
	}
	if probTrue.IsPointMass() || sample.IsUniform() {
		result.SetToUniform()
		return result, nil
	}
	if !probTrue.IsProper() {
		return result, fmt.Errorf("ProbTrueAverageConditional: probTrue message is improper: %w", distribution.ErrImproper)
	}
	a, b := probTrue.TrueCount, probTrue.FalseCount
	fn := float64(n)
	logWeight := make([]float64, n+1)
	for x := 0; x <= n; x++ {
		fx := float64(x)
		logWeight[x] = fx*sample.LogOdds -
			sample.A*distribution.FactorialLn(x) - sample.B*distribution.FactorialLn(n-x) +
			distribution.ChooseLn(fn, fx) + distribution.BetaLn(a+fx, b+fn-fx)
	}
	logZ := floats.LogSumExp(logWeight)
	if math.IsInf(logZ, -1) {
		return result, fmt.Errorf("ProbTrueAverageConditional: messages have no common support: %w", distribution.ErrAllZero)
	}
	weight := make([]float64, n+1)
	for x, lw := range logWeight {
		weight[x] = math.Exp(lw - logZ)
	}
	for {
		result.SetToRatio(betaBinomialMomentMatch(weight, probTrue), probTrue)
		if op.AllowImproperSum || result.IsProper() {
			return result, nil
		}
		live, min := 0, -1
		for x, w := range weight {
			if w == 0 {
				continue
			}
			live++
			if min < 0 || w < weight[min] {
				min = x
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

// ProbTrueAverageConditionalObserved fills result with the conjugate
// update for an observed sample.
func (BinomialOp) ProbTrueAverageConditionalObserved(trialCount, sample int, result *distribution.Beta) (*distribution.Beta, error) {
	if sample < 0 || sample > trialCount {
		return result, fmt.Errorf("ProbTrueAverageConditionalObserved: sample %v is outside 0..%v", sample, trialCount)
	}
	result.TrueCount = 1 + float64(sample)
	result.FalseCount = 1 + float64(trialCount-sample)
	return result, nil
}

// betaBinomialMomentMatch projects the mixture over x of
// weight[x]*Beta(prior.TrueCount+x, prior.FalseCount+n-x) onto a
// single Beta by matching the first two moments.
func betaBinomialMomentMatch(weight []float64, prior *distribution.Beta) *distribution.Beta {
	fn := float64(len(weight) - 1)
	total := prior.TotalCount() + fn
	mean, meanSquare := 0.0, 0.0
	for x, w := range weight {
		if w == 0 {
			continue
		}
		c := prior.TrueCount + float64(x)
		mean += w * c / total
		meanSquare += w * c * (c + 1) / (total * (total + 1))
	}
	return distribution.BetaFromMeanAndVariance(mean, meanSquare-mean*mean)
}

// LogAverageFactor is the evidence for an observed sample.
func (BinomialOp) LogAverageFactor(sample, trialCount int, probTrue *distribution.Beta) (float64, error) {
	if sample < 0 || sample > trialCount {
		return 0, fmt.Errorf("LogAverageFactor: sample %v is outside 0..%v", sample, trialCount)
	}
	fx, fn := float64(sample), float64(trialCount)
	logZ := distribution.ChooseLn(fn, fx)
	if probTrue.IsPointMass() {
		p := probTrue.Point()
		if sample > 0 {
			logZ += fx * math.Log(p)
		}
		if sample < trialCount {
			logZ += (fn - fx) * math.Log(1-p)
		}
		return logZ, nil
	}
	if !probTrue.IsProper() {
		return 0, fmt.Errorf("LogAverageFactor: probTrue message is improper: %w", distribution.ErrImproper)
	}
	a, b := probTrue.TrueCount, probTrue.FalseCount
	return logZ + distribution.BetaLn(a+fx, b+fn-fx) - distribution.BetaLn(a, b), nil
}

// LogAverageFactorRandom is the evidence for a distribution-valued
// sample.
func (op BinomialOp) LogAverageFactorRandom(sample *distribution.Binomial, probTrue *distribution.Beta) (float64, error) {
	n := sample.TrialCount
	if sample.IsPointMass() {
		logZ, err := op.LogAverageFactor(sample.Point(), n, probTrue)
		if err != nil {
			return 0, fmt.Errorf("LogAverageFactorRandom: %v", err)
		}
		return logZ, nil
	}
	if !probTrue.IsPointMass() && !probTrue.IsProper() {
		return 0, fmt.Errorf("LogAverageFactorRandom: probTrue message is improper: %w", distribution.ErrImproper)
	}
	a, b := probTrue.TrueCount, probTrue.FalseCount
	fn := float64(n)
	logNorm := sample.GetLogNormalizer()
	logTerm := make([]float64, n+1)
	for x := 0; x <= n; x++ {
		fx := float64(x)
		logSample := fx*sample.LogOdds -
			sample.A*distribution.FactorialLn(x) - sample.B*distribution.FactorialLn(n-x) - logNorm
		logZ := distribution.ChooseLn(fn, fx)
		if probTrue.IsPointMass() {
			p := probTrue.Point()
			if x > 0 {
				logZ += fx * math.Log(p)
			}
			if x < n {
				logZ += (fn - fx) * math.Log(1-p)
			}
		} else {
			logZ += distribution.BetaLn(a+fx, b+fn-fx) - distribution.BetaLn(a, b)
		}
		logTerm[x] = logSample + logZ
	}
	return floats.LogSumExp(logTerm), nil
}

// LogEvidenceRatio is zero for a random sample.
func (BinomialOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when sample is observed.
func (op BinomialOp) LogEvidenceRatioObserved(sample, trialCount int, probTrue *distribution.Beta) (float64, error) {
	logZ, err := op.LogAverageFactor(sample, trialCount, probTrue)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatioObserved: %v", err)
	}
	return logZ, nil
}

// ProbTrueAverageLogarithm fills result with the variational message
// to probTrue, the conjugate update at the expected count.
func (BinomialOp) ProbTrueAverageLogarithm(sample *distribution.Binomial, result *distribution.Beta) (*distribution.Beta, error) {
	mean := sample.GetMean()
	result.TrueCount = 1 + mean
	result.FalseCount = 1 + float64(sample.TrialCount) - mean
	return result, nil
}

// ProbTrueAverageLogarithmObserved fills result with the variational
// message for an observed sample.
func (op BinomialOp) ProbTrueAverageLogarithmObserved(trialCount, sample int, result *distribution.Beta) (*distribution.Beta, error) {
	result, err := op.ProbTrueAverageConditionalObserved(trialCount, sample, result)
	if err != nil {
		return result, fmt.Errorf("ProbTrueAverageLogarithmObserved: %v", err)
	}
	return result, nil
}

// AverageLogFactor is the expected log-factor for an observed sample.
func (BinomialOp) AverageLogFactor(sample, trialCount int, probTrue *distribution.Beta) (float64, error) {
	if sample < 0 || sample > trialCount {
		return 0, fmt.Errorf("AverageLogFactor: sample %v is outside 0..%v", sample, trialCount)
	}
	if !probTrue.IsPointMass() && !probTrue.IsProper() {
		return 0, fmt.Errorf("AverageLogFactor: probTrue message is improper: %w", distribution.ErrImproper)
	}
	fx, fn := float64(sample), float64(trialCount)
	meanLogP, meanLogQ := probTrue.GetMeanLogs()
	sum := distribution.ChooseLn(fn, fx)
	if sample > 0 {
		sum += fx * meanLogP
	}
	if sample < trialCount {
		sum += (fn - fx) * meanLogQ
	}
	return sum, nil
}

// AverageLogFactorRandom is the expected log-factor for a
// distribution-valued sample.
func (op BinomialOp) AverageLogFactorRandom(sample *distribution.Binomial, probTrue *distribution.Beta) (float64, error) {
	n := sample.TrialCount
	if sample.IsPointMass() {
		sum, err := op.AverageLogFactor(sample.Point(), n, probTrue)
		if err != nil {
			return 0, fmt.Errorf("AverageLogFactorRandom: %v", err)
		}
		return sum, nil
	}
	if !probTrue.IsPointMass() && !probTrue.IsProper() {
		return 0, fmt.Errorf("AverageLogFactorRandom: probTrue message is improper: %w", distribution.ErrImproper)
	}
	fn := float64(n)
	logNorm := sample.GetLogNormalizer()
	sum := 0.0
	for x := 0; x <= n; x++ {
		fx := float64(x)
		logSample := fx*sample.LogOdds -
			sample.A*distribution.FactorialLn(x) - sample.B*distribution.FactorialLn(n-x) - logNorm
		sum += math.Exp(logSample) * distribution.ChooseLn(fn, fx)
	}
	meanLogP, meanLogQ := probTrue.GetMeanLogs()
	if mean := sample.GetMean(); mean > 0 {
		sum += mean * meanLogP
		if mean < fn {
			sum += (fn - mean) * meanLogQ
		}
	} else if fn > 0 {
		sum += fn * meanLogQ
	}
	return sum, nil
}
