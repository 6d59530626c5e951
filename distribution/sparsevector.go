package distribution

import (
	"fmt"
	"sort"
)

// SparseElement is one entry of a SparseVector that differs from the
// common value.
type SparseElement struct {
	Index int
	Value float64
}

// SparseVector is a fixed-length vector stored as a common value plus
// a sorted list of deviations. Operators that touch only a few entries
// of a long probability or count vector work on the deviation list and
// leave the common value alone.
type SparseVector struct {
	// CommonValue is the value of every entry without a deviation.
	CommonValue float64

	count    int
	elements []SparseElement
}

// NewSparseVector returns a vector of the given length with every
// entry equal to commonValue.
func NewSparseVector(count int, commonValue float64) *SparseVector {
	return &SparseVector{CommonValue: commonValue, count: count}
}

// SparseVectorFromDense returns a sparse copy of data, recording every
// entry that differs from commonValue as a deviation.
func SparseVectorFromDense(data []float64, commonValue float64) *SparseVector {
	v := NewSparseVector(len(data), commonValue)
	for i, x := range data {
		if x != commonValue {
			v.elements = append(v.elements, SparseElement{Index: i, Value: x})
		}
	}
	return v
}

// Count returns the logical length of the vector.
func (v *SparseVector) Count() int { return v.count }

// ElementCount returns the number of deviations from the common value.
func (v *SparseVector) ElementCount() int { return len(v.elements) }

// Elements returns the deviations in index order. Callers must not
// modify the result.
func (v *SparseVector) Elements() []SparseElement { return v.elements }

// At returns the value at index i.
func (v *SparseVector) At(i int) float64 {
	v.checkIndex(i)
	k := sort.Search(len(v.elements), func(k int) bool {
		return v.elements[k].Index >= i
	})
	if k < len(v.elements) && v.elements[k].Index == i {
		return v.elements[k].Value
	}
	return v.CommonValue
}

// Set sets the value at index i, dropping the deviation when x equals
// the common value.
func (v *SparseVector) Set(i int, x float64) {
	v.checkIndex(i)
	k := sort.Search(len(v.elements), func(k int) bool {
		return v.elements[k].Index >= i
	})
	found := k < len(v.elements) && v.elements[k].Index == i
	switch {
	case found && x == v.CommonValue:
		v.elements = append(v.elements[:k], v.elements[k+1:]...)
	case found:
		v.elements[k].Value = x
	case x != v.CommonValue:
		v.elements = append(v.elements, SparseElement{})
		copy(v.elements[k+1:], v.elements[k:])
		v.elements[k] = SparseElement{Index: i, Value: x}
	}
}

// Sum returns the sum of all entries.
func (v *SparseVector) Sum() float64 {
	sum := float64(v.count-len(v.elements)) * v.CommonValue
	for _, e := range v.elements {
		sum += e.Value
	}
	return sum
}

// Dense fills result with all entries and returns it.
func (v *SparseVector) Dense(result []float64) []float64 {
	if len(result) != v.count {
		panic(fmt.Sprintf("distribution: SparseVector length %v does not match %v",
			v.count, len(result)))
	}
	for i := range result {
		result[i] = v.CommonValue
	}
	for _, e := range v.elements {
		result[e.Index] = e.Value
	}
	return result
}

// Clone returns an independent copy.
func (v *SparseVector) Clone() *SparseVector {
	c := &SparseVector{CommonValue: v.CommonValue, count: v.count}
	c.elements = append([]SparseElement(nil), v.elements...)
	return c
}

func (v *SparseVector) checkIndex(i int) {
	if i < 0 || i >= v.count {
		panic(fmt.Sprintf("distribution: SparseVector index %v out of range %v", i, v.count))
	}
}

// String formats the vector for diagnostics.
func (v *SparseVector) String() string {
	return fmt.Sprintf("SparseVector(%d,common=%v,%d deviations)",
		v.count, v.CommonValue, len(v.elements))
}
