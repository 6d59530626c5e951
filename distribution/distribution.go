// Package distribution provides the exponential-family distribution
// values that factor operators pass as messages, together with the
// capability interfaces the generic operators constrain over.
//
// Every family stores a natural (or pseudo-count) parameterization and
// treats two degenerate boundary states as first class: a point mass
// (zero variance) and a uniform (zero precision, no information). A
// message is just a distribution value of the right family for the
// argument it targets, so the operators branch on IsPointMass and
// IsUniform instead of carrying separate observed-value code paths.
//
// Mutating methods follow the fill-and-return convention: SetToX
// overwrites the receiver and the receiver must not alias an argument
// the method still reads. Shape misuse panics the way gonum/mat does;
// zero-mass products panic with ErrAllZero so an inference run aborts
// rather than propagating a corrupted message.
package distribution

import "errors"

var (
	// ErrAllZero reports that a constraint is violated with
	// certainty: a product or conditioning step produced a
	// distribution with zero mass everywhere.
	ErrAllZero = errors.New("distribution: result has zero mass everywhere")

	// ErrImproper reports that a computed message left the valid
	// parameter domain (NaN, negative precision, non-positive
	// -definite) and the local approximation cannot be trusted.
	ErrImproper = errors.New("distribution: message is improper")

	// ErrNotSupported reports an argument combination that the
	// approximation family cannot represent.
	ErrNotSupported = errors.New("distribution: argument combination not supported")
)

// SettableTo is implemented by distributions that can copy the state of
// another distribution of the same family into themselves.
type SettableTo[T any] interface {
	SetTo(value T)
}

// SettableToProduct is implemented by distributions that can set
// themselves to the normalized product of two distributions of the
// same family.
//
// SetToProduct panics with ErrAllZero when the product has zero mass
// everywhere, such as the product of point masses at different points.
type SettableToProduct[T any] interface {
	SetToProduct(a, b T)
}

// SettableToRatio is implemented by distributions that can set
// themselves to the ratio of two distributions of the same family.
// Dividing by a uniform distribution is well defined and leaves the
// numerator unchanged; dividing a distribution by itself yields
// uniform.
type SettableToRatio[T any] interface {
	SetToRatio(numerator, denominator T)
}

// SettableToPower is implemented by distributions that can raise
// themselves to a real power in density space.
type SettableToPower[T any] interface {
	SetToPower(value T, exponent float64)
}

// SettableToUniform is implemented by distributions that can forget
// all information, becoming the multiplicative identity of their
// family.
type SettableToUniform interface {
	SetToUniform()
	IsUniform() bool
}

// HasLogAverageOf is implemented by distributions that can compute
// ln(integral of this(x) * that(x) dx), the log-partition ratio used
// by evidence computations.
type HasLogAverageOf[T any] interface {
	GetLogAverageOf(that T) float64
}

// HasAverageLog is implemented by distributions that can compute
// E[ln that(x)] where the expectation is taken under the receiver.
// This is the expected-sufficient-statistic evaluation used by the
// variational message passing evidence bounds.
type HasAverageLog[T any] interface {
	GetAverageLog(that T) float64
}

// Cloner is implemented by distributions that can produce an
// independent copy of themselves.
type Cloner[T any] interface {
	Clone() T
}

// Distribution is the constraint shared by the generic collection
// operators: enough capability to copy, multiply, divide, uniformize
// and take evidence, without caring which family the message belongs
// to.
type Distribution[T any] interface {
	SettableTo[T]
	SettableToProduct[T]
	SettableToRatio[T]
	SettableToUniform
	HasLogAverageOf[T]
	Cloner[T]
}
