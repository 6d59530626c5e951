package factorop

import (
	"fmt"

	"github.com/samuelfneumann/factorop/distribution"
)

func checkDistinctKeys[K comparable](keys []K) error {
	seen := make(map[K]int, len(keys))
	for i, k := range keys {
		if prev, ok := seen[k]; ok {
			return fmt.Errorf("keys %v and %v both target entry %v", prev, i, k)
		}
		seen[k] = i
	}
	return nil
}

// GetItemsWithDictionaryOp computes messages for items[i] = dict[keys[i]]
// where the observed keys are distinct entries of a dictionary-shaped
// random variable. It is GetItemsOp with the marginal buffer keyed by
// the dictionary instead of indexed by an array.
type GetItemsWithDictionaryOp[K comparable, T distribution.Distribution[T]] struct{}

// MarginalInit seeds the buffer with a copy of the incoming dictionary
// distribution.
func (GetItemsWithDictionaryOp[K, T]) MarginalInit(dict map[K]T) map[K]T {
	result := make(map[K]T, len(dict))
	for k, d := range dict {
		result[k] = d.Clone()
	}
	return result
}

// Marginal recomputes the whole buffer: each entry is the incoming
// dictionary distribution times the item message keyed to it.
func (GetItemsWithDictionaryOp[K, T]) Marginal(dict map[K]T, items []T, keys []K, result map[K]T) (map[K]T, error) {
	if err := checkSameLength("items", len(items), len(keys)); err != nil {
		return result, fmt.Errorf("Marginal: %v", err)
	}
	for k, d := range dict {
		r, ok := result[k]
		if !ok {
			return result, fmt.Errorf("Marginal: key %v not in result", k)
		}
		r.SetTo(d)
	}
	for i, key := range keys {
		r, ok := result[key]
		if !ok {
			return result, fmt.Errorf("Marginal: key %v not in dictionary", key)
		}
		r.SetToProduct(r, items[i])
	}
	return result, nil
}

// MarginalIncrement refreshes one entry of the buffer after item
// resultIndex has a new incoming message.
func (GetItemsWithDictionaryOp[K, T]) MarginalIncrement(result map[K]T, toItem, item T, keys []K, resultIndex int) (map[K]T, error) {
	if err := checkIndex(resultIndex, len(keys)); err != nil {
		return result, fmt.Errorf("MarginalIncrement: %v", err)
	}
	key := keys[resultIndex]
	r, ok := result[key]
	if !ok {
		return result, fmt.Errorf("MarginalIncrement: key %v not in dictionary", key)
	}
	r.SetToProduct(toItem, item)
	return result, nil
}

// ItemsAverageConditional fills result with the message to item
// resultIndex, the buffered entry for its key divided by the item's own
// incoming message.
func (GetItemsWithDictionaryOp[K, T]) ItemsAverageConditional(item T, marginal map[K]T, keys []K, resultIndex int, result T) (T, error) {
	if err := checkDistinctKeys(keys); err != nil {
		return result, fmt.Errorf("ItemsAverageConditional: %v", err)
	}
	if err := checkIndex(resultIndex, len(keys)); err != nil {
		return result, fmt.Errorf("ItemsAverageConditional: %v", err)
	}
	key := keys[resultIndex]
	entry, ok := marginal[key]
	if !ok {
		return result, fmt.Errorf("ItemsAverageConditional: key %v not in dictionary", key)
	}
	result.SetToRatio(entry, item)
	return result, nil
}

// DictionaryAverageConditional fills result with the message to the
// dictionary: each keyed entry carries its item message and the rest
// are uniform.
func (GetItemsWithDictionaryOp[K, T]) DictionaryAverageConditional(items []T, keys []K, result map[K]T) (map[K]T, error) {
	if err := checkSameLength("items", len(items), len(keys)); err != nil {
		return result, fmt.Errorf("DictionaryAverageConditional: %v", err)
	}
	if err := checkDistinctKeys(keys); err != nil {
		return result, fmt.Errorf("DictionaryAverageConditional: %v", err)
	}
	for _, r := range result {
		r.SetToUniform()
	}
	for i, key := range keys {
		r, ok := result[key]
		if !ok {
			return result, fmt.Errorf("DictionaryAverageConditional: key %v not in dictionary", key)
		}
		r.SetToProduct(r, items[i])
	}
	return result, nil
}

func (GetItemsWithDictionaryOp[K, T]) LogAverageFactor(items []T, dict map[K]T, keys []K) (float64, error) {
	if err := checkSameLength("items", len(items), len(keys)); err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	z := 0.0
	for i, key := range keys {
		entry, ok := dict[key]
		if !ok {
			return 0, fmt.Errorf("LogAverageFactor: key %v not in dictionary", key)
		}
		z += entry.GetLogAverageOf(items[i])
	}
	return z, nil
}

func (op GetItemsWithDictionaryOp[K, T]) LogEvidenceRatio(items []T, dict map[K]T, keys []K, toItems []T) (float64, error) {
	z, err := op.LogAverageFactor(items, dict, keys)
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

func (op GetItemsWithDictionaryOp[K, T]) LogEvidenceRatioObserved(items []T, dict map[K]T, keys []K) (float64, error) {
	return op.LogAverageFactor(items, dict, keys)
}

// ItemsAverageLogarithm is the variational message to item resultIndex,
// the dictionary marginal at its key.
func (GetItemsWithDictionaryOp[K, T]) ItemsAverageLogarithm(dict map[K]T, keys []K, resultIndex int, result T) (T, error) {
	if err := checkIndex(resultIndex, len(keys)); err != nil {
		return result, fmt.Errorf("ItemsAverageLogarithm: %v", err)
	}
	key := keys[resultIndex]
	entry, ok := dict[key]
	if !ok {
		return result, fmt.Errorf("ItemsAverageLogarithm: key %v not in dictionary", key)
	}
	result.SetTo(entry)
	return result, nil
}

// DictionaryAverageLogarithm is the variational message to the
// dictionary.
func (op GetItemsWithDictionaryOp[K, T]) DictionaryAverageLogarithm(items []T, keys []K, result map[K]T) (map[K]T, error) {
	return op.DictionaryAverageConditional(items, keys, result)
}

// AverageLogFactor is zero for this deterministic factor.
func (GetItemsWithDictionaryOp[K, T]) AverageLogFactor() float64 { return 0 }
