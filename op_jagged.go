package factorop

import (
	"fmt"

	"github.com/samuelfneumann/factorop/distribution"
)

func flattenIndices(indices [][]int) []int {
	var flat []int
	for _, row := range indices {
		flat = append(flat, row...)
	}
	return flat
}

func flattenDeepIndices(indices [][][]int) []int {
	var flat []int
	for _, outer := range indices {
		for _, row := range outer {
			flat = append(flat, row...)
		}
	}
	return flat
}

// GetJaggedItemsOp computes messages for items[i][j] = array[indices[i][j]]
// with observed indices, distinct across all (i, j). It carries the same
// marginal buffer as GetItemsOp, with the cavity division applied per
// inner element.
type GetJaggedItemsOp[T distribution.Distribution[T]] struct{}

// MarginalInit seeds the buffer with a copy of the incoming array
// distribution.
func (GetJaggedItemsOp[T]) MarginalInit(array []T) []T {
	result := make([]T, len(array))
	for i, a := range array {
		result[i] = a.Clone()
	}
	return result
}

// Marginal recomputes the whole buffer from the array distribution and
// all item messages.
func (GetJaggedItemsOp[T]) Marginal(array []T, items [][]T, indices [][]int, result []T) ([]T, error) {
	if err := checkSameLength("items", len(items), len(indices)); err != nil {
		return result, fmt.Errorf("Marginal: %v", err)
	}
	for j, r := range result {
		r.SetTo(array[j])
	}
	for i, row := range indices {
		if err := checkSameLength("items row", len(items[i]), len(row)); err != nil {
			return result, fmt.Errorf("Marginal: %v", err)
		}
		for j, index := range row {
			if err := checkIndex(index, len(result)); err != nil {
				return result, fmt.Errorf("Marginal: %v", err)
			}
			result[index].SetToProduct(result[index], items[i][j])
		}
	}
	return result, nil
}

// MarginalIncrement refreshes the slots of item row resultIndex from the
// last message sent to that row and its fresh incoming message.
func (GetJaggedItemsOp[T]) MarginalIncrement(result []T, toItem, item []T, indices [][]int, resultIndex int) ([]T, error) {
	if err := checkIndex(resultIndex, len(indices)); err != nil {
		return result, fmt.Errorf("MarginalIncrement: %v", err)
	}
	row := indices[resultIndex]
	if err := checkSameLength("item", len(item), len(row)); err != nil {
		return result, fmt.Errorf("MarginalIncrement: %v", err)
	}
	for j, index := range row {
		if err := checkIndex(index, len(result)); err != nil {
			return result, fmt.Errorf("MarginalIncrement: %v", err)
		}
		result[index].SetToProduct(toItem[j], item[j])
	}
	return result, nil
}

// ItemsAverageConditional fills result with the message to item row
// resultIndex, dividing each buffered slot by the row's own message.
func (GetJaggedItemsOp[T]) ItemsAverageConditional(item []T, marginal []T, indices [][]int, resultIndex int, result []T) ([]T, error) {
	if err := checkDistinct(flattenIndices(indices)); err != nil {
		return result, fmt.Errorf("ItemsAverageConditional: %v", err)
	}
	if err := checkIndex(resultIndex, len(indices)); err != nil {
		return result, fmt.Errorf("ItemsAverageConditional: %v", err)
	}
	row := indices[resultIndex]
	if err := checkSameLength("result", len(result), len(row)); err != nil {
		return result, fmt.Errorf("ItemsAverageConditional: %v", err)
	}
	for j, index := range row {
		if err := checkIndex(index, len(marginal)); err != nil {
			return result, fmt.Errorf("ItemsAverageConditional: %v", err)
		}
		result[j].SetToRatio(marginal[index], item[j])
	}
	return result, nil
}

// ArrayAverageConditional fills result with the message to array.
func (GetJaggedItemsOp[T]) ArrayAverageConditional(items [][]T, indices [][]int, result []T) ([]T, error) {
	if err := checkSameLength("items", len(items), len(indices)); err != nil {
		return result, fmt.Errorf("ArrayAverageConditional: %v", err)
	}
	if err := checkDistinct(flattenIndices(indices)); err != nil {
		return result, fmt.Errorf("ArrayAverageConditional: %v", err)
	}
	for _, r := range result {
		r.SetToUniform()
	}
	for i, row := range indices {
		if err := checkSameLength("items row", len(items[i]), len(row)); err != nil {
			return result, fmt.Errorf("ArrayAverageConditional: %v", err)
		}
		for j, index := range row {
			if err := checkIndex(index, len(result)); err != nil {
				return result, fmt.Errorf("ArrayAverageConditional: %v", err)
			}
			result[index].SetToProduct(result[index], items[i][j])
		}
	}
	return result, nil
}

func (GetJaggedItemsOp[T]) LogAverageFactor(items [][]T, array []T, indices [][]int) (float64, error) {
	if err := checkSameLength("items", len(items), len(indices)); err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	z := 0.0
	for i, row := range indices {
		if err := checkSameLength("items row", len(items[i]), len(row)); err != nil {
			return 0, fmt.Errorf("LogAverageFactor: %v", err)
		}
		for j, index := range row {
			if err := checkIndex(index, len(array)); err != nil {
				return 0, fmt.Errorf("LogAverageFactor: %v", err)
			}
			z += array[index].GetLogAverageOf(items[i][j])
		}
	}
	return z, nil
}

func (op GetJaggedItemsOp[T]) LogEvidenceRatio(items [][]T, array []T, indices [][]int, toItems [][]T) (float64, error) {
	z, err := op.LogAverageFactor(items, array, indices)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
	}
	if err := checkSameLength("toItems", len(toItems), len(items)); err != nil {
		return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
	}
	for i, row := range toItems {
		if err := checkSameLength("toItems row", len(row), len(items[i])); err != nil {
			return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
		}
		for j, toItem := range row {
			z -= toItem.GetLogAverageOf(items[i][j])
		}
	}
	return z, nil
}

func (op GetJaggedItemsOp[T]) LogEvidenceRatioObserved(items [][]T, array []T, indices [][]int) (float64, error) {
	return op.LogAverageFactor(items, array, indices)
}

// ItemsAverageLogarithm is the variational message to item row
// resultIndex, copying the array marginal slot by slot.
func (GetJaggedItemsOp[T]) ItemsAverageLogarithm(array []T, indices [][]int, resultIndex int, result []T) ([]T, error) {
	if err := checkIndex(resultIndex, len(indices)); err != nil {
		return result, fmt.Errorf("ItemsAverageLogarithm: %v", err)
	}
	row := indices[resultIndex]
	if err := checkSameLength("result", len(result), len(row)); err != nil {
		return result, fmt.Errorf("ItemsAverageLogarithm: %v", err)
	}
	for j, index := range row {
		if err := checkIndex(index, len(array)); err != nil {
			return result, fmt.Errorf("ItemsAverageLogarithm: %v", err)
		}
		result[j].SetTo(array[index])
	}
	return result, nil
}

// ArrayAverageLogarithm is the variational message to array.
func (op GetJaggedItemsOp[T]) ArrayAverageLogarithm(items [][]T, indices [][]int, result []T) ([]T, error) {
	return op.ArrayAverageConditional(items, indices, result)
}

// AverageLogFactor is zero for this deterministic factor.
func (GetJaggedItemsOp[T]) AverageLogFactor() float64 { return 0 }

// GetDeepJaggedItemsOp computes messages for
// items[i][j][k] = array[indices[i][j][k]], the same contract as
// GetJaggedItemsOp one level deeper. The outermost dimension indexes the
// item rows the scheduler updates independently.
type GetDeepJaggedItemsOp[T distribution.Distribution[T]] struct{}

func (GetDeepJaggedItemsOp[T]) MarginalInit(array []T) []T {
	result := make([]T, len(array))
	for i, a := range array {
		result[i] = a.Clone()
	}
	return result
}

func (GetDeepJaggedItemsOp[T]) Marginal(array []T, items [][][]T, indices [][][]int, result []T) ([]T, error) {
	if err := checkSameLength("items", len(items), len(indices)); err != nil {
		return result, fmt.Errorf("Marginal: %v", err)
	}
	for j, r := range result {
		r.SetTo(array[j])
	}
	for i, outer := range indices {
		if err := checkSameLength("items row", len(items[i]), len(outer)); err != nil {
			return result, fmt.Errorf("Marginal: %v", err)
		}
		for j, row := range outer {
			if err := checkSameLength("items inner row", len(items[i][j]), len(row)); err != nil {
				return result, fmt.Errorf("Marginal: %v", err)
			}
			for k, index := range row {
				if err := checkIndex(index, len(result)); err != nil {
					return result, fmt.Errorf("Marginal: %v", err)
				}
				result[index].SetToProduct(result[index], items[i][j][k])
			}
		}
	}
	return result, nil
}

func (GetDeepJaggedItemsOp[T]) MarginalIncrement(result []T, toItem, item [][]T, indices [][][]int, resultIndex int) ([]T, error) {
	if err := checkIndex(resultIndex, len(indices)); err != nil {
		return result, fmt.Errorf("MarginalIncrement: %v", err)
	}
	outer := indices[resultIndex]
	if err := checkSameLength("item", len(item), len(outer)); err != nil {
		return result, fmt.Errorf("MarginalIncrement: %v", err)
	}
	for j, row := range outer {
		for k, index := range row {
			if err := checkIndex(index, len(result)); err != nil {
				return result, fmt.Errorf("MarginalIncrement: %v", err)
			}
			result[index].SetToProduct(toItem[j][k], item[j][k])
		}
	}
	return result, nil
}

func (GetDeepJaggedItemsOp[T]) ItemsAverageConditional(item [][]T, marginal []T, indices [][][]int, resultIndex int, result [][]T) ([][]T, error) {
	if err := checkDistinct(flattenDeepIndices(indices)); err != nil {
		return result, fmt.Errorf("ItemsAverageConditional: %v", err)
	}
	if err := checkIndex(resultIndex, len(indices)); err != nil {
		return result, fmt.Errorf("ItemsAverageConditional: %v", err)
	}
	outer := indices[resultIndex]
	if err := checkSameLength("result", len(result), len(outer)); err != nil {
		return result, fmt.Errorf("ItemsAverageConditional: %v", err)
	}
	for j, row := range outer {
		if err := checkSameLength("result row", len(result[j]), len(row)); err != nil {
			return result, fmt.Errorf("ItemsAverageConditional: %v", err)
		}
		for k, index := range row {
			if err := checkIndex(index, len(marginal)); err != nil {
				return result, fmt.Errorf("ItemsAverageConditional: %v", err)
			}
			result[j][k].SetToRatio(marginal[index], item[j][k])
		}
	}
	return result, nil
}

func (GetDeepJaggedItemsOp[T]) ArrayAverageConditional(items [][][]T, indices [][][]int, result []T) ([]T, error) {
	if err := checkSameLength("items", len(items), len(indices)); err != nil {
		return result, fmt.Errorf("ArrayAverageConditional: %v", err)
	}
	if err := checkDistinct(flattenDeepIndices(indices)); err != nil {
		return result, fmt.Errorf("ArrayAverageConditional: %v", err)
	}
	for _, r := range result {
		r.SetToUniform()
	}
	for i, outer := range indices {
		for j, row := range outer {
			for k, index := range row {
				if err := checkIndex(index, len(result)); err != nil {
					return result, fmt.Errorf("ArrayAverageConditional: %v", err)
				}
				result[index].SetToProduct(result[index], items[i][j][k])
			}
		}
	}
	return result, nil
}

func (GetDeepJaggedItemsOp[T]) LogAverageFactor(items [][][]T, array []T, indices [][][]int) (float64, error) {
	if err := checkSameLength("items", len(items), len(indices)); err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	z := 0.0
	for i, outer := range indices {
		for j, row := range outer {
			for k, index := range row {
				if err := checkIndex(index, len(array)); err != nil {
					return 0, fmt.Errorf("LogAverageFactor: %v", err)
				}
				z += array[index].GetLogAverageOf(items[i][j][k])
			}
		}
	}
	return z, nil
}

func (op GetDeepJaggedItemsOp[T]) LogEvidenceRatio(items [][][]T, array []T, indices [][][]int, toItems [][][]T) (float64, error) {
	z, err := op.LogAverageFactor(items, array, indices)
	if err != nil {
		return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
	}
	if err := checkSameLength("toItems", len(toItems), len(items)); err != nil {
		return 0, fmt.Errorf("LogEvidenceRatio: %v", err)
	}
	for i, outer := range toItems {
		for j, row := range outer {
			for k, toItem := range row {
				z -= toItem.GetLogAverageOf(items[i][j][k])
			}
		}
	}
	return z, nil
}

func (op GetDeepJaggedItemsOp[T]) LogEvidenceRatioObserved(items [][][]T, array []T, indices [][][]int) (float64, error) {
	return op.LogAverageFactor(items, array, indices)
}

// AverageLogFactor is zero for this deterministic factor.
func (GetDeepJaggedItemsOp[T]) AverageLogFactor() float64 { return 0 }
