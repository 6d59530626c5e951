package factorop

import (
	"fmt"

	"github.com/samuelfneumann/factorop/distribution"
)

// GetItemOp computes messages for the factor item = array[index], where
// index is observed. The factor is a deterministic copy, so messages
// pass through it unchanged: the item receives the array marginal at the
// indexed slot, and the array receives the item message in that slot
// with every other slot uniform.
type GetItemOp[T distribution.Distribution[T]] struct{}

// ItemAverageConditional fills result with the message to item, the
// incoming array distribution at the indexed slot.
func (GetItemOp[T]) ItemAverageConditional(array []T, index int, result T) (T, error) {
	if err := checkIndex(index, len(array)); err != nil {
		return result, fmt.Errorf("ItemAverageConditional: %v", err)
	}
	result.SetTo(array[index])
	return result, nil
}

// ArrayAverageConditional fills result with the message to array. Slot
// index carries the incoming item message and the remaining slots are
// uniform.
func (GetItemOp[T]) ArrayAverageConditional(item T, index int, result []T) ([]T, error) {
	if err := checkIndex(index, len(result)); err != nil {
		return result, fmt.Errorf("ArrayAverageConditional: %v", err)
	}
	for i, r := range result {
		if i == index {
			continue
		}
		r.SetToUniform()
	}
	result[index].SetTo(item)
	return result, nil
}

// LogAverageFactor returns the log of the average factor value under the
// incoming item and array messages.
func (GetItemOp[T]) LogAverageFactor(item T, array []T, index int) (float64, error) {
	if err := checkIndex(index, len(array)); err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	return array[index].GetLogAverageOf(item), nil
}

// LogEvidenceRatio is zero for a random item: the factor's evidence
// cancels against the item's own marginal.
func (GetItemOp[T]) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when the item is observed,
// held as a point mass. Nothing cancels, so it equals LogAverageFactor.
func (op GetItemOp[T]) LogEvidenceRatioObserved(item T, array []T, index int) (float64, error) {
	return op.LogAverageFactor(item, array, index)
}

// ItemAverageLogarithm is the variational message to item, the array
// marginal at the indexed slot.
func (op GetItemOp[T]) ItemAverageLogarithm(array []T, index int, result T) (T, error) {
	return op.ItemAverageConditional(array, index, result)
}

// ArrayAverageLogarithm is the variational message to array.
func (op GetItemOp[T]) ArrayAverageLogarithm(item T, index int, result []T) ([]T, error) {
	return op.ArrayAverageConditional(item, index, result)
}

// AverageLogFactor is zero: deterministic factors contribute no evidence
// under variational message passing.
func (GetItemOp[T]) AverageLogFactor() float64 { return 0 }

// GetItemsOp computes messages for the factor items[i] = array[indices[i]]
// with observed, distinct indices. It keeps a marginal buffer over the
// array, equal to the product of the incoming array distribution and all
// item messages, and recovers each outgoing item message by dividing the
// buffered slot by that item's own contribution.
type GetItemsOp[T distribution.Distribution[T]] struct{}

// MarginalInit seeds the marginal buffer with a copy of the incoming
// array distribution.
func (GetItemsOp[T]) MarginalInit(array []T) []T {
	result := make([]T, len(array))
	for i, a := range array {
		result[i] = a.Clone()
	}
	return result
}

// Marginal recomputes the whole buffer: each slot is the incoming array
// distribution times every item message targeting that slot.
func (GetItemsOp[T]) Marginal(array, items []T, indices []int, result []T) ([]T, error) {
	if err := checkSameLength("items", len(items), len(indices)); err != nil {
		return result, fmt.Errorf("Marginal: %v", err)
	}
	if err := checkSameLength("result", len(result), len(array)); err != nil {
		return result, fmt.Errorf("Marginal: %v", err)
	}
	for j, r := range result {
		r.SetTo(array[j])
	}
	for i, index := range indices {
		if err := checkIndex(index, len(result)); err != nil {
			return result, fmt.Errorf("Marginal: %v", err)
		}
		result[index].SetToProduct(result[index], items[i])
	}
	return result, nil
}

// MarginalIncrement refreshes one slot of the buffer after item
// resultIndex has a new incoming message: the slot becomes the product
// of the last message sent to that item and the fresh item message.
func (GetItemsOp[T]) MarginalIncrement(result []T, toItem, item T, indices []int, resultIndex int) ([]T, error) {
	if err := checkIndex(resultIndex, len(indices)); err != nil {
		return result, fmt.Errorf("MarginalIncrement: %v", err)
	}
	index := indices[resultIndex]
	if err := checkIndex(index, len(result)); err != nil {
		return result, fmt.Errorf("MarginalIncrement: %v", err)
	}
	result[index].SetToProduct(toItem, item)
	return result, nil
}

// ItemsAverageConditional fills result with the message to item
// resultIndex, the buffered marginal at its slot divided by the item's
// own incoming message.
func (GetItemsOp[T]) ItemsAverageConditional(item T, marginal []T, indices []int, resultIndex int, result T) (T, error) {
	if err := checkDistinct(indices); err != nil {
		return result, fmt.Errorf("ItemsAverageConditional: %v", err)
	}
	if err := checkIndex(resultIndex, len(indices)); err != nil {
		return result, fmt.Errorf("ItemsAverageConditional: %v", err)
	}
	index := indices[resultIndex]
	if err := checkIndex(index, len(marginal)); err != nil {
		return result, fmt.Errorf("ItemsAverageConditional: %v", err)
	}
	result.SetToRatio(marginal[index], item)
	return result, nil
}

// ArrayAverageConditional fills result with the message to array: each
// indexed slot carries its item message and the rest are uniform.
func (GetItemsOp[T]) ArrayAverageConditional(items []T, indices []int, result []T) ([]T, error) {
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
		result[index].SetToProduct(result[index], items[i])
	}
	return result, nil
}

// LogAverageFactor sums the per-item log average of each array slot
// under its item message.
func (GetItemsOp[T]) LogAverageFactor(items, array []T, indices []int) (float64, error) {
	if err := checkSameLength("items", len(items), len(indices)); err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	if err := checkDistinct(indices); err != nil {
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

// LogEvidenceRatio subtracts from LogAverageFactor the part that
// cancels against each item's own marginal. With distinct indices and
// an up-to-date buffer the two terms agree slot by slot, so the ratio
// is zero.
func (op GetItemsOp[T]) LogEvidenceRatio(items, array []T, indices []int, toItems []T) (float64, error) {
	z, err := op.LogAverageFactor(items, array, indices)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
	}
	if err := checkSameLength("toItems", len(toItems), len(items)); err != nil {
		return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
	}
	for i, toItem := range toItems {
		z -= toItem.GetLogAverageOf(items[i])
	}
	return z, nil
}

// LogEvidenceRatioObserved is the evidence when the items are observed,
// held as point masses.
func (op GetItemsOp[T]) LogEvidenceRatioObserved(items, array []T, indices []int) (float64, error) {
	return op.LogAverageFactor(items, array, indices)
}

// ItemsAverageLogarithm is the variational message to item resultIndex,
// the array marginal at its slot.
func (GetItemsOp[T]) ItemsAverageLogarithm(array []T, indices []int, resultIndex int, result T) (T, error) {
	if err := checkIndex(resultIndex, len(indices)); err != nil {
		return result, fmt.Errorf("ItemsAverageLogarithm: %v", err)
	}
	index := indices[resultIndex]
	if err := checkIndex(index, len(array)); err != nil {
		return result, fmt.Errorf("ItemsAverageLogarithm: %v", err)
	}
	result.SetTo(array[index])
	return result, nil
}

// ArrayAverageLogarithm is the variational message to array.
func (op GetItemsOp[T]) ArrayAverageLogarithm(items []T, indices []int, result []T) ([]T, error) {
	return op.ArrayAverageConditional(items, indices, result)
}

// AverageLogFactor is zero for this deterministic factor.
func (GetItemsOp[T]) AverageLogFactor() float64 { return 0 }
