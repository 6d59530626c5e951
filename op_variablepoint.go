package factorop

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/factorop/distribution"
)

// VariablePointRpropOp computes messages for use = VariablePoint(def)
// over a Gaussian variable. The factor constrains the variable's
// marginal to a point mass; the point climbs the log-density of the
// product of the prior and likelihood messages, one Rprop step per
// scheduling pass, tracked in an RpropBufferData buffer.
type VariablePointRpropOp struct{}

// BufferInit seeds the Rprop state from the prior message.
func (VariablePointRpropOp) BufferInit(def *distribution.Gaussian) *RpropBufferData {
	switch {
	case def.IsPointMass():
		return NewRpropBuffer(def.Point())
	case def.IsProper():
		return NewRpropBuffer(def.GetMean())
	default:
		return NewRpropBuffer(0)
	}
}

// Buffer advances the point one Rprop step up the product of the
// incoming messages. A point mass on either side pins the estimate
// there.
func (VariablePointRpropOp) Buffer(use, def *distribution.Gaussian, buffer *RpropBufferData) (*RpropBufferData, error) {
	switch {
	case use.IsPointMass() && def.IsPointMass():
		if use.Point() != def.Point() {
			return buffer, fmt.Errorf("Buffer: point mass messages disagree at %v and %v: %w",
				use.Point(), def.Point(), distribution.ErrAllZero)
		}
		buffer.Point = def.Point()
		return buffer, nil
	case def.IsPointMass():
		buffer.Point = def.Point()
		return buffer, nil
	case use.IsPointMass():
		buffer.Point = use.Point()
		return buffer, nil
	}
	meanTimesPrecision := use.MeanTimesPrecision + def.MeanTimesPrecision
	precision := use.Precision + def.Precision
	x := buffer.Point
	buffer.SetNextPoint(x, meanTimesPrecision-precision*x)
	return buffer, nil
}

// MarginalAverageConditional returns the point mass marginal at the
// current Rprop point.
func (VariablePointRpropOp) MarginalAverageConditional(buffer *RpropBufferData) *distribution.Gaussian {
	return distribution.GaussianPointMass(buffer.Point)
}

// UseAverageConditional passes the marginal through as the message to
// use.
func (VariablePointRpropOp) UseAverageConditional(toMarginal *distribution.Gaussian) *distribution.Gaussian {
	return toMarginal
}

// DefAverageConditional passes the marginal through as the message to
// def.
func (VariablePointRpropOp) DefAverageConditional(toMarginal *distribution.Gaussian) *distribution.Gaussian {
	return toMarginal
}

// LogAverageFactor is zero: the point constraint carries no evidence
// of its own.
func (VariablePointRpropOp) LogAverageFactor() float64 { return 0 }

// LogEvidenceRatio is zero for the same reason.
func (VariablePointRpropOp) LogEvidenceRatio() float64 { return 0 }

// VariablePointRpropGammaOp computes messages for
// use = VariablePoint(def) over a Gamma variable. Proposals are
// constrained to the positive half-line.
type VariablePointRpropGammaOp struct{}

// BufferInit seeds the Rprop state from the prior message.
func (VariablePointRpropGammaOp) BufferInit(def *distribution.Gamma) *RpropBufferData {
	point := 1.0
	if def.IsPointMass() {
		point = def.Point()
	} else if def.IsProper() {
		point = def.GetMean()
	}
	buffer := NewRpropBuffer(point)
	buffer.SetBounds(0, math.Inf(1))
	return buffer
}

// Buffer advances the point one Rprop step up the product of the
// incoming messages. At the boundary point zero the derivative may be
// infinite; SetNextPoint uses only its sign.
func (VariablePointRpropGammaOp) Buffer(use, def *distribution.Gamma, buffer *RpropBufferData) (*RpropBufferData, error) {
	switch {
	case use.IsPointMass() && def.IsPointMass():
		if use.Point() != def.Point() {
			return buffer, fmt.Errorf("Buffer: point mass messages disagree at %v and %v: %w",
				use.Point(), def.Point(), distribution.ErrAllZero)
		}
		buffer.Point = def.Point()
		return buffer, nil
	case def.IsPointMass():
		buffer.Point = def.Point()
		return buffer, nil
	case use.IsPointMass():
		buffer.Point = use.Point()
		return buffer, nil
	}
	shape := use.Shape + def.Shape - 1
	rate := use.Rate + def.Rate
	x := buffer.Point
	buffer.SetNextPoint(x, (shape-1)/x-rate)
	return buffer, nil
}

// MarginalAverageConditional fills result with the point mass marginal
// at the current Rprop point.
func (VariablePointRpropGammaOp) MarginalAverageConditional(buffer *RpropBufferData, result *distribution.Gamma) *distribution.Gamma {
	result.SetToPointMass(buffer.Point)
	return result
}

// UseAverageConditional passes the marginal through as the message to
// use.
func (VariablePointRpropGammaOp) UseAverageConditional(toMarginal *distribution.Gamma, result *distribution.Gamma) *distribution.Gamma {
	result.SetTo(toMarginal)
	return result
}

// DefAverageConditional passes the marginal through as the message to
// def.
func (VariablePointRpropGammaOp) DefAverageConditional(toMarginal *distribution.Gamma, result *distribution.Gamma) *distribution.Gamma {
	result.SetTo(toMarginal)
	return result
}

// LogAverageFactor is zero: the point constraint carries no evidence
// of its own.
func (VariablePointRpropGammaOp) LogAverageFactor() float64 { return 0 }

// LogEvidenceRatio is zero for the same reason.
func (VariablePointRpropGammaOp) LogEvidenceRatio() float64 { return 0 }

// VariablePointRpropBetaOp computes messages for
// use = VariablePoint(def) over a Beta variable. Proposals are
// constrained to the unit interval, which also caps the step size at
// the interval width.
type VariablePointRpropBetaOp struct{}

// BufferInit seeds the Rprop state from the prior message.
func (VariablePointRpropBetaOp) BufferInit(def *distribution.Beta) *RpropBufferData {
	point := 0.5
	if def.IsPointMass() {
		point = def.Point()
	} else if def.IsProper() {
		point = def.GetMean()
	}
	buffer := NewRpropBuffer(point)
	buffer.SetBounds(0, 1)
	return buffer
}

// Buffer advances the point one Rprop step up the product of the
// incoming messages. At the boundary points the derivative may be
// infinite; SetNextPoint uses only its sign.
func (VariablePointRpropBetaOp) Buffer(use, def *distribution.Beta, buffer *RpropBufferData) (*RpropBufferData, error) {
	switch {
	case use.IsPointMass() && def.IsPointMass():
		if use.Point() != def.Point() {
			return buffer, fmt.Errorf("Buffer: point mass messages disagree at %v and %v: %w",
				use.Point(), def.Point(), distribution.ErrAllZero)
		}
		buffer.Point = def.Point()
		return buffer, nil
	case def.IsPointMass():
		buffer.Point = def.Point()
		return buffer, nil
	case use.IsPointMass():
		buffer.Point = use.Point()
		return buffer, nil
	}
	trueCount := use.TrueCount + def.TrueCount - 1
	falseCount := use.FalseCount + def.FalseCount - 1
	x := buffer.Point
	buffer.SetNextPoint(x, (trueCount-1)/x-(falseCount-1)/(1-x))
	return buffer, nil
}

// MarginalAverageConditional fills result with the point mass marginal
// at the current Rprop point.
func (VariablePointRpropBetaOp) MarginalAverageConditional(buffer *RpropBufferData, result *distribution.Beta) *distribution.Beta {
	result.SetToPointMass(buffer.Point)
	return result
}

// UseAverageConditional passes the marginal through as the message to
// use.
func (VariablePointRpropBetaOp) UseAverageConditional(toMarginal *distribution.Beta, result *distribution.Beta) *distribution.Beta {
	result.SetTo(toMarginal)
	return result
}

// DefAverageConditional passes the marginal through as the message to
// def.
func (VariablePointRpropBetaOp) DefAverageConditional(toMarginal *distribution.Beta, result *distribution.Beta) *distribution.Beta {
	result.SetTo(toMarginal)
	return result
}

// LogAverageFactor is zero: the point constraint carries no evidence
// of its own.
func (VariablePointRpropBetaOp) LogAverageFactor() float64 { return 0 }

// LogEvidenceRatio is zero for the same reason.
func (VariablePointRpropBetaOp) LogEvidenceRatio() float64 { return 0 }
