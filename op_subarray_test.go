package factorop

import (
	"math"
	"testing"

	"github.com/samuelfneumann/factorop/distribution"
)

func TestSubarrayOpItemsAverageConditional(t *testing.T) {
	const threshold float64 = 1e-10
	var op SubarrayOp[*distribution.Gamma]

	array := []*distribution.Gamma{
		distribution.GammaFromShapeAndRate(2, 3),
		distribution.GammaFromShapeAndRate(1.5, 0.5),
		distribution.GammaFromShapeAndRate(4, 1),
	}
	indices := []int{2, 0}
	for i, index := range indices {
		result, err := op.ItemsAverageConditional(array, indices, i, distribution.GammaUniform())
		if err != nil {
			t.Fatalf("ItemsAverageConditional: %v", err)
		}
		if math.Abs(result.Shape-array[index].Shape) > threshold ||
			math.Abs(result.Rate-array[index].Rate) > threshold {
			t.Errorf("item %v: got %v want %v", i, result, array[index])
		}
	}
}

func TestSubarrayOpArrayAverageConditional(t *testing.T) {
	const threshold float64 = 1e-10
	var op SubarrayOp[*distribution.Gamma]

	items := []*distribution.Gamma{
		distribution.GammaFromShapeAndRate(2, 3),
		distribution.GammaFromShapeAndRate(1.5, 0.5),
	}
	indices := []int{1, 2}
	result := []*distribution.Gamma{
		distribution.GammaUniform(),
		distribution.GammaUniform(),
		distribution.GammaUniform(),
	}
	result, err := op.ArrayAverageConditional(items, indices, result)
	if err != nil {
		t.Fatalf("ArrayAverageConditional: %v", err)
	}
	for i, index := range indices {
		if math.Abs(result[index].Shape-items[i].Shape) > threshold ||
			math.Abs(result[index].Rate-items[i].Rate) > threshold {
			t.Errorf("slot %v: got %v want %v", index, result[index], items[i])
		}
	}
	if !result[0].IsUniform() {
		t.Errorf("slot 0: got %v want uniform", result[0])
	}

	if _, err := op.ArrayAverageConditional(items, []int{1, 1}, result); err == nil {
		t.Error("expected error for duplicate indices")
	}
}

func TestSubarrayOpEvidence(t *testing.T) {
	const threshold float64 = 1e-10
	var op SubarrayOp[*distribution.Gamma]

	array := []*distribution.Gamma{
		distribution.GammaFromShapeAndRate(2, 3),
		distribution.GammaFromShapeAndRate(1.5, 0.5),
	}
	observed := []*distribution.Gamma{distribution.GammaPointMass(1.25)}
	indices := []int{1}

	z, err := op.LogEvidenceRatioObserved(observed, array, indices)
	if err != nil {
		t.Fatalf("LogEvidenceRatioObserved: %v", err)
	}
	want := array[1].GetLogProb(1.25)
	if math.Abs(z-want) > threshold {
		t.Errorf("LogEvidenceRatioObserved: got %v want %v", z, want)
	}
	if r := op.LogEvidenceRatio(); r != 0 {
		t.Errorf("LogEvidenceRatio: got %v want 0", r)
	}
}
