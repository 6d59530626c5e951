package distribution

import (
	"math"
	"testing"
)

func TestSparseVectorAccess(t *testing.T) {
	v := NewSparseVector(5, 1)
	if v.At(3) != 1 {
		t.Errorf("default entry: got %v want 1", v.At(3))
	}
	v.Set(3, 4)
	v.Set(0, 2)
	if v.At(3) != 4 || v.At(0) != 2 || v.At(1) != 1 {
		t.Errorf("after sets: %v", v)
	}
	if v.ElementCount() != 2 {
		t.Errorf("element count: got %v want 2", v.ElementCount())
	}
	// setting back to the common value drops the deviation
	v.Set(3, 1)
	if v.ElementCount() != 1 || v.At(3) != 1 {
		t.Errorf("after reset: %v", v)
	}
}

func TestSparseVectorSum(t *testing.T) {
	const threshold float64 = 1e-12
	v := NewSparseVector(4, 0.5)
	v.Set(2, 3)
	if math.Abs(v.Sum()-4.5) > threshold {
		t.Errorf("sum: got %v want 4.5", v.Sum())
	}
}

func TestSparseVectorDenseRoundtrip(t *testing.T) {
	data := []float64{0, 0, 5, 0, 7}
	v := SparseVectorFromDense(data, 0)
	if v.ElementCount() != 2 {
		t.Errorf("element count: got %v want 2", v.ElementCount())
	}
	out := v.Dense(make([]float64, 5))
	for i := range data {
		if out[i] != data[i] {
			t.Errorf("dense[%d]: got %v want %v", i, out[i], data[i])
		}
	}
}

func TestSparseVectorCloneIsIndependent(t *testing.T) {
	v := NewSparseVector(3, 0)
	v.Set(1, 2)
	c := v.Clone()
	c.Set(1, 9)
	if v.At(1) != 2 {
		t.Errorf("clone aliased the original: %v", v.At(1))
	}
}
