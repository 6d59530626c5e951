package factorop

import (
	"fmt"

	"github.com/samuelfneumann/factorop/distribution"
)

// SubarrayOp computes messages for items = array[indices] where the
// observed indices are distinct. Unlike GetItemsOp it needs no marginal
// buffer: with each slot targeted at most once, every message is a
// straight copy.
type SubarrayOp[T distribution.Distribution[T]] struct{}

// ItemsAverageConditional fills result with the message to item
// resultIndex, the array distribution at its slot.
func (SubarrayOp[T]) ItemsAverageConditional(array []T, indices []int, resultIndex int, result T) (T, error) {
	if err := checkIndex(resultIndex, len(indices)); err != nil {
		return result, fmt.Errorf("ItemsAverageConditional: %v", err)
	}
	index := indices[resultIndex]
	if err := checkIndex(index, len(array)); err != nil {
		return result, fmt.Errorf("ItemsAverageConditional: %v", err)
	}
	result.SetTo(array[index])
	return result, nil
}

// ArrayAverageConditional fills result with the message to array: each
// indexed slot carries its item message and the rest are uniform.
func (SubarrayOp[T]) ArrayAverageConditional(items []T, indices []int, result []T) ([]T, error) {
	if err := checkSameLength("items", len(items), len(indices)); err != nil {
		return result, fmt.Errorf("ArrayAverageConditional: %v", err)
	}
	if err := checkDistinct(indices); err != nil {
		return result, fmt.Errorf("ArrayAverageConditional: %v", err)
	}
	for _, r := range result {
		r.SetToUniform()
	}
	for i, index := range indices {
		if err := checkIndex(index, len(result)); err != nil {
			return result, fmt.Errorf("ArrayAverageConditional: %v", err)
		}
		result[index].SetTo(items[i])
	}
	return result, nil
}

func (SubarrayOp[T]) LogAverageFactor(items, array []T, indices []int) (float64, error) {
	if err := checkSameLength("items", len(items), len(indices)); err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	z := 0.0
	for i, index := range indices {
		if err := checkIndex(index, len(array)); err != nil {
			return 0, fmt.Errorf("LogAverageFactor: %v", err)
		}
		z += array[index].GetLogAverageOf(items[i])
	}
	return z, nil
}

// LogEvidenceRatio is zero for random items: each item's term cancels
// against its own marginal.
func (SubarrayOp[T]) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when the items are observed,
// held as point masses.
func (op SubarrayOp[T]) LogEvidenceRatioObserved(items, array []T, indices []int) (float64, error) {
	return op.LogAverageFactor(items, array, indices)
}

// ItemsAverageLogarithm is the variational message to item resultIndex.
func (op SubarrayOp[T]) ItemsAverageLogarithm(array []T, indices []int, resultIndex int, result T) (T, error) {
	return op.ItemsAverageConditional(array, indices, resultIndex, result)
}

// ArrayAverageLogarithm is the variational message to array.
func (op SubarrayOp[T]) ArrayAverageLogarithm(items []T, indices []int, result []T) ([]T, error) {
	return op.ArrayAverageConditional(items, indices, result)
}

// AverageLogFactor is zero for this deterministic factor.
func (SubarrayOp[T]) AverageLogFactor() float64 { return 0 }
