package factorop

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/factorop/distribution"
)

// ConcatOp computes messages for the factor concat = [first; second],
// the concatenation of two Gaussian-distributed vectors. The message to
// concat assembles the parents' natural parameters into block-diagonal
// form; the messages to the parents marginalize the concat message over
// the other block.
type ConcatOp struct{}

func blockVec(v *mat.VecDense, from, n int) *mat.VecDense {
	dst := mat.NewVecDense(n, nil)
	dst.CopyVec(v.SliceVec(from, from+n))
	return dst
}

func blockSym(s *mat.SymDense, from, n int) *mat.SymDense {
	dst := mat.NewSymDense(n, nil)
	dst.CopySym(s.SliceSym(from, from+n))
	return dst
}

func crossBlock(s *mat.SymDense, rowFrom, rows, colFrom, cols int) *mat.Dense {
	dst := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst.Set(i, j, s.At(rowFrom+i, colFrom+j))
		}
	}
	return dst
}

// ConcatAverageConditional fills result with the message to concat. Both
// parents must be point masses or both random: the family cannot
// represent a vector whose covariance is degenerate on only some
// coordinates.
func (ConcatOp) ConcatAverageConditional(first, second, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	d1, d2 := first.Dimension(), second.Dimension()
	if err := checkSameLength("result", result.Dimension(), d1+d2); err != nil {
		return result, fmt.Errorf("ConcatAverageConditional: %v", err)
	}
	if first.IsPointMass() != second.IsPointMass() {
		return result, fmt.Errorf("ConcatAverageConditional: cannot concatenate a point mass with a distribution: %w", distribution.ErrNotSupported)
	}
	if first.IsPointMass() {
		point := mat.NewVecDense(d1+d2, nil)
		for i := 0; i < d1; i++ {
			point.SetVec(i, first.Point().AtVec(i))
		}
		for i := 0; i < d2; i++ {
			point.SetVec(d1+i, second.Point().AtVec(i))
		}
		result.SetToPointMass(point)
		return result, nil
	}
	result.SetToUniform()
	for i := 0; i < d1; i++ {
		result.MeanTimesPrecision.SetVec(i, first.MeanTimesPrecision.AtVec(i))
		for j := i; j < d1; j++ {
			result.Precision.SetSym(i, j, first.Precision.At(i, j))
		}
	}
	for i := 0; i < d2; i++ {
		result.MeanTimesPrecision.SetVec(d1+i, second.MeanTimesPrecision.AtVec(i))
		for j := i; j < d2; j++ {
			result.Precision.SetSym(d1+i, d1+j, second.Precision.At(i, j))
		}
	}
	return result, nil
}

// concatMarginal marginalizes the concat message over the block
// [dropFrom, dropFrom+dropLen) under the other parent's distribution,
// leaving the message to the block [keepFrom, keepFrom+keepLen).
func concatMarginal(concat, other *distribution.VectorGaussian, keepFrom, keepLen, dropFrom, dropLen int, result *distribution.VectorGaussian) error {
	if concat.IsPointMass() {
		result.SetToPointMass(blockVec(concat.Point(), keepFrom, keepLen))
		return nil
	}
	if concat.IsUniform() {
		result.SetToUniform()
		return nil
	}
	mtp := blockVec(concat.MeanTimesPrecision, keepFrom, keepLen)
	keepPrec := blockSym(concat.Precision, keepFrom, keepLen)
	cross := crossBlock(concat.Precision, keepFrom, keepLen, dropFrom, dropLen)

	if other.IsPointMass() {
		shift := mat.NewVecDense(keepLen, nil)
		shift.MulVec(cross, other.Point())
		mtp.SubVec(mtp, shift)
		result.SetToUniform()
		result.MeanTimesPrecision.CopyVec(mtp)
		result.Precision.CopySym(keepPrec)
		return nil
	}

	dropPrec := blockSym(concat.Precision, dropFrom, dropLen)
	for i := 0; i < dropLen; i++ {
		for j := i; j < dropLen; j++ {
			dropPrec.SetSym(i, j, dropPrec.At(i, j)+other.Precision.At(i, j))
		}
	}
	var chol mat.Cholesky
	if !chol.Factorize(dropPrec) {
		return distribution.ErrImproper
	}

	solved := mat.NewDense(dropLen, keepLen, nil)
	if err := chol.SolveTo(solved, cross.T()); err != nil {
		return distribution.ErrImproper
	}
	schur := mat.NewDense(keepLen, keepLen, nil)
	schur.Mul(cross, solved)

	dropMtp := blockVec(concat.MeanTimesPrecision, dropFrom, dropLen)
	dropMtp.AddVec(dropMtp, other.MeanTimesPrecision)
	mean := mat.NewVecDense(dropLen, nil)
	if err := chol.SolveVecTo(mean, dropMtp); err != nil {
		return distribution.ErrImproper
	}
	shift := mat.NewVecDense(keepLen, nil)
	shift.MulVec(cross, mean)

	result.SetToUniform()
	result.MeanTimesPrecision.SubVec(mtp, shift)
	for i := 0; i < keepLen; i++ {
		for j := i; j < keepLen; j++ {
			s := 0.5 * (schur.At(i, j) + schur.At(j, i))
			result.Precision.SetSym(i, j, keepPrec.At(i, j)-s)
		}
	}
	return nil
}

// FirstAverageConditional fills result with the message to first,
// marginalizing the concat message over the second block.
func (ConcatOp) FirstAverageConditional(concat, second, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	d1 := result.Dimension()
	d2 := second.Dimension()
	if err := checkSameLength("concat", concat.Dimension(), d1+d2); err != nil {
		return result, fmt.Errorf("FirstAverageConditional: %v", err)
	}
	if err := concatMarginal(concat, second, 0, d1, d1, d2, result); err != nil {
		return result, fmt.Errorf("FirstAverageConditional: %w", err)
	}
	return result, nil
}

// SecondAverageConditional fills result with the message to second,
// marginalizing the concat message over the first block.
func (ConcatOp) SecondAverageConditional(concat, first, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	d1 := first.Dimension()
	d2 := result.Dimension()
	if err := checkSameLength("concat", concat.Dimension(), d1+d2); err != nil {
		return result, fmt.Errorf("SecondAverageConditional: %v", err)
	}
	if err := concatMarginal(concat, first, d1, d2, 0, d1, result); err != nil {
		return result, fmt.Errorf("SecondAverageConditional: %w", err)
	}
	return result, nil
}

// LogAverageFactor returns the log of the average factor value. With
// every argument a point mass it is zero when concat is the exact
// concatenation of first and second and -Inf otherwise.
func (op ConcatOp) LogAverageFactor(concat, first, second *distribution.VectorGaussian) (float64, error) {
	toConcat, err := op.ConcatAverageConditional(first, second,
		distribution.VectorGaussianUniform(first.Dimension()+second.Dimension()))
	if err != nil {
		return 0, fmt.Errorf("LogAverageFactor: %v", err)
	}
	return concat.GetLogAverageOf(toConcat), nil
}

// LogEvidenceRatio is zero for a random concat.
func (ConcatOp) LogEvidenceRatio() float64 { return 0 }

// LogEvidenceRatioObserved is the evidence when concat is observed, held
// as a point mass.
func (op ConcatOp) LogEvidenceRatioObserved(concat, first, second *distribution.VectorGaussian) (float64, error) {
	return op.LogAverageFactor(concat, first, second)
}

// ConcatAverageLogarithm is the variational message to concat.
func (op ConcatOp) ConcatAverageLogarithm(first, second, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	return op.ConcatAverageConditional(first, second, result)
}

// FirstAverageLogarithm is the variational message to first. It
// conditions the concat message on the second block's posterior mean
// rather than marginalizing over it.
func (ConcatOp) FirstAverageLogarithm(concat, second, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	d1 := result.Dimension()
	d2 := second.Dimension()
	if err := checkSameLength("concat", concat.Dimension(), d1+d2); err != nil {
		return result, fmt.Errorf("FirstAverageLogarithm: %v", err)
	}
	mean := distribution.VectorGaussianPointMass(second.GetMean(nil))
	if err := concatMarginal(concat, mean, 0, d1, d1, d2, result); err != nil {
		return result, fmt.Errorf("FirstAverageLogarithm: %w", err)
	}
	return result, nil
}

// SecondAverageLogarithm is the variational message to second.
func (ConcatOp) SecondAverageLogarithm(concat, first, result *distribution.VectorGaussian) (*distribution.VectorGaussian, error) {
	d1 := first.Dimension()
	d2 := result.Dimension()
	if err := checkSameLength("concat", concat.Dimension(), d1+d2); err != nil {
		return result, fmt.Errorf("SecondAverageLogarithm: %v", err)
	}
	mean := distribution.VectorGaussianPointMass(first.GetMean(nil))
	if err := concatMarginal(concat, mean, d1, d2, 0, d1, result); err != nil {
		return result, fmt.Errorf("SecondAverageLogarithm: %w", err)
	}
	return result, nil
}

// AverageLogFactor is zero for this deterministic factor.
func (ConcatOp) AverageLogFactor() float64 { return 0 }
