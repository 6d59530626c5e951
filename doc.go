// Package factorop provides message-computation operators for factor
// graph inference. Each operator computes the outgoing messages,
// evidence contributions and buffer updates for one factor kind under
// expectation propagation (the AverageConditional methods) and
// variational message passing (the AverageLogarithm methods). The
// scheduler that decides evaluation order lives outside this package;
// operators are pure functions over the distribution values in
// package distribution, plus explicit buffers the scheduler owns.
package factorop
