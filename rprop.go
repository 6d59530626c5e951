package factorop

import "math"

const (
	rpropGrow         = 1.2
	rpropCautiousGrow = 1.1
	rpropShrink       = 0.5

	// Consecutive same-sign updates before a capped step bound starts
	// relaxing, and the number of doublings that fully removes it.
	rpropStableUpdates = 5
	rpropRecoverySteps = 16
)

type rpropState int

const (
	rpropNoHistory rpropState = iota
	rpropTracking
	rpropCapped
	rpropRecovering
)

// RpropBufferData is the per-variable state of the resilient
// backpropagation step rule used by the point estimate operators. Each
// SetNextPoint call proposes a new point from the sign of the current
// derivative: the step size grows while the sign is stable, halves when
// it flips, and the first growth after a flip is damped. Box
// constraints shrink a step that would leave the feasible interval,
// never below StepsizeLowerBound.
//
// With EnsureConvergence set, the buffer watches the last three step
// signs. An alternating triple caps the step size at its current value;
// after enough stable updates the cap doubles away again. The cycle is
// the state machine no-history -> tracking -> capped -> recovering.
type RpropBufferData struct {
	// Point is the current proposal.
	Point float64

	// StepsizeLowerBound floors the shrinkage applied while enforcing
	// bounds, preventing a stale zero step.
	StepsizeLowerBound float64

	// EnsureConvergence turns on the oscillation guard.
	EnsureConvergence bool

	stepsize           float64
	stepsizeUpperBound float64
	sign               float64
	nextGrow           float64
	lowerBound         float64
	upperBound         float64

	state        rpropState
	signs        [3]float64
	signCount    int
	capBound     float64
	stableCount  int
	recoverCount int
}

// NewRpropBuffer returns Rprop state starting from point, with default
// tuning and an unbounded domain.
func NewRpropBuffer(point float64) *RpropBufferData {
	return &RpropBufferData{
		Point:              point,
		StepsizeLowerBound: 1e-10,
		stepsizeUpperBound: math.Inf(1),
		nextGrow:           rpropGrow,
		lowerBound:         math.Inf(-1),
		upperBound:         math.Inf(1),
	}
}

// SetBounds constrains proposals to [lower, upper]. A finite domain
// width also bounds the step size, so growth can never overshoot the
// interval by more than one step.
func (r *RpropBufferData) SetBounds(lower, upper float64) {
	r.lowerBound = lower
	r.upperBound = upper
	width := upper - lower
	if !math.IsInf(width, 1) {
		r.stepsizeUpperBound = width
	}
	if r.Point < lower {
		r.Point = lower
	}
	if r.Point > upper {
		r.Point = upper
	}
}

// Stepsize returns the current step magnitude.
func (r *RpropBufferData) Stepsize() float64 { return r.stepsize }

// SetNextPoint advances Point one Rprop step given the derivative of
// the objective at currPoint. A zero derivative leaves the point
// unchanged and the history untouched.
func (r *RpropBufferData) SetNextPoint(currPoint, currDeriv float64) {
	var sign float64
	if currDeriv > 0 {
		sign = 1
	} else if currDeriv < 0 {
		sign = -1
	}
	if sign == 0 {
		r.Point = currPoint
		return
	}
	if r.stepsize == 0 {
		r.stepsize = 1e-4 * (1 + math.Abs(currPoint))
	}
	if r.sign != 0 {
		if sign == r.sign {
			r.stepsize *= r.nextGrow
			r.nextGrow = rpropGrow
		} else {
			r.stepsize *= rpropShrink
			r.nextGrow = rpropCautiousGrow
		}
	}
	bound := r.stepsizeUpperBound
	if r.EnsureConvergence {
		if b := r.convergenceBound(sign); b < bound {
			bound = b
		}
	}
	if r.stepsize > bound {
		r.stepsize = bound
	}
	if r.stepsize < r.StepsizeLowerBound {
		r.stepsize = r.StepsizeLowerBound
	}
	next := currPoint + sign*r.stepsize
	for (next < r.lowerBound || next > r.upperBound) && r.stepsize > r.StepsizeLowerBound {
		r.stepsize *= rpropShrink
		if r.stepsize < r.StepsizeLowerBound {
			r.stepsize = r.StepsizeLowerBound
		}
		next = currPoint + sign*r.stepsize
	}
	if next < r.lowerBound {
		next = r.lowerBound
	}
	if next > r.upperBound {
		next = r.upperBound
	}
	r.sign = sign
	r.Point = next
}

// convergenceBound advances the oscillation state machine with the
// latest step sign and returns the step size bound it imposes.
func (r *RpropBufferData) convergenceBound(sign float64) float64 {
	switch r.state {
	case rpropNoHistory:
		r.signs[r.signCount] = sign
		r.signCount++
		if r.signCount == len(r.signs) {
			r.state = rpropTracking
		}
		return math.Inf(1)

	case rpropTracking:
		r.push(sign)
		if r.bounced() {
			// The flip completing the bounce has already shrunk
			// the step, so freeze the bound there.
			r.state = rpropCapped
			r.capBound = r.stepsize
			r.stableCount = 0
		}
		return math.Inf(1)

	case rpropCapped:
		if sign == r.signs[2] {
			r.stableCount++
		} else {
			r.stableCount = 0
		}
		r.push(sign)
		if r.stableCount >= rpropStableUpdates {
			r.state = rpropRecovering
			r.recoverCount = 0
		}
		return r.capBound

	default: // rpropRecovering
		flipped := sign != r.signs[2]
		r.push(sign)
		if flipped {
			r.state = rpropCapped
			r.capBound = r.stepsize
			r.stableCount = 0
			return r.capBound
		}
		r.capBound *= 2
		r.recoverCount++
		if r.capBound >= r.stepsizeUpperBound || r.recoverCount >= rpropRecoverySteps {
			r.state = rpropTracking
			return math.Inf(1)
		}
		return r.capBound
	}
}

func (r *RpropBufferData) push(sign float64) {
	r.signs[0], r.signs[1], r.signs[2] = r.signs[1], r.signs[2], sign
}

func (r *RpropBufferData) bounced() bool {
	return r.signs[1] == -r.signs[0] && r.signs[2] == r.signs[0]
}
