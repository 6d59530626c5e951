package factorop

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/factorop/distribution"
)

// SingleOp computes messages for the factor str = Single(character),
// where str is the length-1 string holding exactly the rune character.
type SingleOp struct{}

// singleCharMessage collects the weight str places on each rune as a
// length-1 string. It returns the normalized character distribution
// and the log of the total collected weight, or ErrAllZero when str
// has no length-1 support. Only paths of one transition out of the
// start state can spell a single rune.
func singleCharMessage(str *distribution.StringDistribution) (*distribution.DiscreteChar, float64, error) {
	var ranges []distribution.CharRange
	mass := 0.0
	for _, t := range str.Transitions(0) {
		w := math.Exp(t.LogWeight + str.EndLogWeight(t.Dest))
		if w == 0 {
			continue
		}
		for _, r := range t.Chars.Ranges() {
			ranges = append(ranges, distribution.CharRange{Start: r.Start, End: r.End, Prob: r.Prob * w})
			mass += float64(r.End-r.Start) * r.Prob * w
		}
	}
	if len(ranges) == 0 {
		return nil, math.Inf(-1), distribution.ErrAllZero
	}
	return distribution.DiscreteCharFromOverlappingRanges(ranges...), math.Log(mass), nil
}

// CharacterAverageConditional computes the message to character, the
// restriction of str to length-1 strings read as a distribution over
// runes.
func (SingleOp) CharacterAverageConditional(str *distribution.StringDistribution) (*distribution.DiscreteChar, error) {
	if str.IsPointMass() {
		runes := []rune(str.Point())
		if len(runes) != 1 {
			return nil, fmt.Errorf("CharacterAverageConditional: point str message has length %v, want 1: %w",
				len(runes), distribution.ErrAllZero)
		}
		return distribution.DiscreteCharPointMass(runes[0]), nil
	}
	if str.IsUniform() {
		return distribution.DiscreteCharUniform(), nil
	}
	char, _, err := singleCharMessage(str)
	if err != nil {
		return nil, fmt.Errorf("CharacterAverageConditional: str has no strings of length 1: %w", err)
	}
	return char, nil
}

// StrAverageConditional computes the message to str, the distribution
// over length-1 strings whose rune follows character.
func (SingleOp) StrAverageConditional(character *distribution.DiscreteChar, result *distribution.StringDistribution) *distribution.StringDistribution {
	result.SetTo(distribution.StringFromChar(character))
	return result
}

// LogAverageFactor computes the log-evidence for the factor with both
// arguments random. A uniform str contributes no evidence.
func (op SingleOp) LogAverageFactor(character *distribution.DiscreteChar, str *distribution.StringDistribution) float64 {
	if str.IsPointMass() {
		runes := []rune(str.Point())
		if len(runes) != 1 {
			return math.Inf(-1)
		}
		return character.GetLogProb(runes[0])
	}
	if str.IsUniform() {
		return 0
	}
	toChar, logMass, err := singleCharMessage(str)
	if err != nil {
		return math.Inf(-1)
	}
	return character.GetLogAverageOf(toChar) + logMass - str.GetLogNormalizer()
}

// LogAverageFactorObserved computes the log-evidence with str
// observed.
func (op SingleOp) LogAverageFactorObserved(str string, character *distribution.DiscreteChar) float64 {
	runes := []rune(str)
	if len(runes) != 1 {
		return math.Inf(-1)
	}
	return character.GetLogProb(runes[0])
}

// LogEvidenceRatio computes the evidence ratio with str random. The
// child message cancels in the ratio.
func (SingleOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved computes the evidence ratio with str
// observed.
func (op SingleOp) LogEvidenceRatioObserved(str string, character *distribution.DiscreteChar) float64 {
	return op.LogAverageFactorObserved(str, character)
}
