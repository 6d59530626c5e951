package factorop

import (
	"fmt"

	"github.com/samuelfneumann/factorop/distribution"
)

// SplitOp computes messages for the factor
// (head, tail) = split(array, headCount), where head carries the first
// headCount elements of array and tail the rest. Every message is a
// slot-for-slot copy.
type SplitOp[T distribution.Distribution[T]] struct{}

// HeadAverageConditional fills result with the first headCount array
// distributions.
func (SplitOp[T]) HeadAverageConditional(array []T, headCount int, result []T) ([]T, error) {
	if err := checkSameLength("result", len(result), headCount); err != nil {
		return result, fmt.Errorf("HeadAverageConditional: %v", err)
	}
	if headCount > len(array) {
		return result, fmt.Errorf("HeadAverageConditional: head count %v exceeds array length %v", headCount, len(array))
	}
	for i, r := range result {
		r.SetTo(array[i])
	}
	return result, nil
}

// TailAverageConditional fills result with the array distributions from
// headCount onward.
func (SplitOp[T]) TailAverageConditional(array []T, headCount int, result []T) ([]T, error) {
	if err := checkSameLength("result", len(result), len(array)-headCount); err != nil {
		return result, fmt.Errorf("TailAverageConditional: %v", err)
	}
	for i, r := range result {
		r.SetTo(array[headCount+i])
	}
	return result, nil
}

// ArrayAverageConditional fills result with the head and tail messages
// laid end to end.
func (SplitOp[T]) ArrayAverageConditional(head, tail []T, result []T) ([]T, error) {
	if err := checkSameLength("result", len(result), len(head)+len(tail)); err != nil {
		return result, fmt.Errorf("ArrayAverageConditional: %v", err)
	}
	for i, h := range head {
		result[i].SetTo(h)
	}
	for i, t := range tail {
		result[len(head)+i].SetTo(t)
	}
	return result, nil
}

func (SplitOp[T]) LogAverageFactor(head, tail, array []T) (float64, error) {
	if err := checkSameLength("array", len(array), len(head)+len(tail)); err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	z := 0.0
	for i, h := range head {
		z += array[i].GetLogAverageOf(h)
	}
	for i, t := range tail {
		z += array[len(head)+i].GetLogAverageOf(t)
	}
	return z, nil
}

// LogEvidenceRatio is zero for random head and tail.
func (SplitOp[T]) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when head and tail are
// observed, held as point masses.
func (op SplitOp[T]) LogEvidenceRatioObserved(head, tail, array []T) (float64, error) {
	return op.LogAverageFactor(head, tail, array)
}

// HeadAverageLogarithm is the variational message to head.
func (op SplitOp[T]) HeadAverageLogarithm(array []T, headCount int, result []T) ([]T, error) {
	return op.HeadAverageConditional(array, headCount, result)
}

// TailAverageLogarithm is the variational message to tail.
func (op SplitOp[T]) TailAverageLogarithm(array []T, headCount int, result []T) ([]T, error) {
	return op.TailAverageConditional(array, headCount, result)
}

// ArrayAverageLogarithm is the variational message to array.
func (op SplitOp[T]) ArrayAverageLogarithm(head, tail []T, result []T) ([]T, error) {
	return op.ArrayAverageConditional(head, tail, result)
}

// AverageLogFactor is zero for this deterministic factor.
func (SplitOp[T]) AverageLogFactor() float64 { return 0 }
