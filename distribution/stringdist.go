package distribution

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// StringTransition is one labeled edge of a string automaton. The
// weight of reading rune c along the edge is exp(LogWeight) times the
// probability of c under Chars.
type StringTransition struct {
	Chars     *DiscreteChar
	LogWeight float64
	Dest      int
}

type stringState struct {
	endLogWeight float64
	transitions  []StringTransition
}

// StringDistribution is a distribution over strings stored as a
// weighted automaton: state 0 is the start state, every state carries
// an end log-weight, and transitions consume one rune each. The weight
// of a string is the sum over accepting paths of the product of edge
// and end weights; probabilities divide by the total weight.
//
// Transitions share their DiscreteChar values, which must not be
// mutated after being added.
type StringDistribution struct {
	states  []stringState
	point   *string
	uniform bool
}

// NewStringAutomaton returns an automaton with the given number of
// states, no transitions and no end weights.
func NewStringAutomaton(states int) *StringDistribution {
	if states < 1 {
		panic(fmt.Sprintf("distribution: automaton needs at least one state, got %v", states))
	}
	s := &StringDistribution{states: make([]stringState, states)}
	for i := range s.states {
		s.states[i].endLogWeight = math.Inf(-1)
	}
	return s
}

// StringPointMass returns a point mass at value.
func StringPointMass(value string) *StringDistribution {
	runes := []rune(value)
	s := NewStringAutomaton(len(runes) + 1)
	for i, r := range runes {
		s.AddTransition(i, DiscreteCharPointMass(r), 0, i+1)
	}
	s.states[len(runes)].endLogWeight = 0
	s.point = &value
	return s
}

// StringUniform returns the improper uniform distribution assigning
// weight one to every string.
func StringUniform() *StringDistribution {
	s := NewStringAutomaton(1)
	s.states[0].endLogWeight = 0
	s.AddTransition(0, DiscreteCharUniform(), math.Log(float64(MaxRune)), 0)
	s.uniform = true
	return s
}

// StringEmpty returns a point mass at the empty string.
func StringEmpty() *StringDistribution { return StringPointMass("") }

// StringAnyOfLength returns the improper distribution assigning weight
// one to every string of exactly length n.
func StringAnyOfLength(n int) *StringDistribution {
	s := NewStringAutomaton(n + 1)
	for i := 0; i < n; i++ {
		s.AddTransition(i, DiscreteCharUniform(), math.Log(float64(MaxRune)), i+1)
	}
	s.states[n].endLogWeight = 0
	return s
}

// StringFromChar returns the distribution over length-1 strings whose
// single rune follows chars.
func StringFromChar(chars *DiscreteChar) *StringDistribution {
	s := NewStringAutomaton(2)
	s.AddTransition(0, chars.Clone(), 0, 1)
	s.states[1].endLogWeight = 0
	if chars.IsPointMass() {
		v := string(chars.Point())
		s.point = &v
	}
	return s
}

// AddState appends a state and returns its index.
func (s *StringDistribution) AddState() int {
	s.states = append(s.states, stringState{endLogWeight: math.Inf(-1)})
	return len(s.states) - 1
}

// AddTransition adds an edge from one state to another.
func (s *StringDistribution) AddTransition(from int, chars *DiscreteChar, logWeight float64, dest int) {
	s.checkState(from)
	s.checkState(dest)
	s.states[from].transitions = append(s.states[from].transitions,
		StringTransition{Chars: chars, LogWeight: logWeight, Dest: dest})
}

// SetEndLogWeight sets the end log-weight of a state.
func (s *StringDistribution) SetEndLogWeight(state int, logWeight float64) {
	s.checkState(state)
	s.states[state].endLogWeight = logWeight
}

// NumStates returns the number of states.
func (s *StringDistribution) NumStates() int { return len(s.states) }

// EndLogWeight returns the end log-weight of a state.
func (s *StringDistribution) EndLogWeight(state int) float64 {
	s.checkState(state)
	return s.states[state].endLogWeight
}

// Transitions returns the edges out of a state. Callers must not
// modify the result.
func (s *StringDistribution) Transitions(state int) []StringTransition {
	s.checkState(state)
	return s.states[state].transitions
}

// IsPointMass reports whether the distribution is a point mass.
func (s *StringDistribution) IsPointMass() bool { return s.point != nil }

// Point returns the string holding all mass.
func (s *StringDistribution) Point() string { return *s.point }

// IsUniform reports whether the distribution is the uniform
// distribution over all strings.
func (s *StringDistribution) IsUniform() bool { return s.uniform }

// SetToUniform makes the distribution uniform over all strings.
func (s *StringDistribution) SetToUniform() {
	s.SetTo(StringUniform())
}

// SetToPointMass puts all mass on value.
func (s *StringDistribution) SetToPointMass(value string) {
	s.SetTo(StringPointMass(value))
}

// SetTo copies value into the receiver.
func (s *StringDistribution) SetTo(value *StringDistribution) {
	states := make([]stringState, len(value.states))
	for i, st := range value.states {
		states[i] = stringState{
			endLogWeight: st.endLogWeight,
			transitions:  append([]StringTransition(nil), st.transitions...),
		}
	}
	s.states = states
	s.point = value.point
	s.uniform = value.uniform
}

// Clone returns an independent copy. Transition character
// distributions are shared.
func (s *StringDistribution) Clone() *StringDistribution {
	c := new(StringDistribution)
	c.SetTo(s)
	return c
}

// GetLogValue returns the unnormalized log weight of x.
func (s *StringDistribution) GetLogValue(x string) float64 {
	n := len(s.states)
	cur := make([]float64, n)
	next := make([]float64, n)
	for i := range cur {
		cur[i] = math.Inf(-1)
	}
	cur[0] = 0
	for _, r := range x {
		for i := range next {
			next[i] = math.Inf(-1)
		}
		for i, w := range cur {
			if math.IsInf(w, -1) {
				continue
			}
			for _, t := range s.states[i].transitions {
				lw := w + t.LogWeight + t.Chars.GetLogProb(r)
				if !math.IsInf(lw, -1) {
					next[t.Dest] = LogSumExp(next[t.Dest], lw)
				}
			}
		}
		cur, next = next, cur
	}
	total := math.Inf(-1)
	for i, w := range cur {
		total = LogSumExp(total, w+s.states[i].endLogWeight)
	}
	return total
}

// SuffixLogWeights returns, per state, the log of the total weight of
// all suffixes accepted from that state. It returns ErrImproper when
// the total diverges.
func (s *StringDistribution) SuffixLogWeights() ([]float64, error) {
	n := len(s.states)
	a := mat.NewDense(n, n, nil)
	e := mat.NewVecDense(n, nil)
	for i, st := range s.states {
		a.Set(i, i, 1)
		for _, t := range st.transitions {
			a.Set(i, t.Dest, a.At(i, t.Dest)-math.Exp(t.LogWeight))
		}
		e.SetVec(i, math.Exp(st.endLogWeight))
	}
	var lu mat.LU
	lu.Factorize(a)
	z := mat.NewVecDense(n, nil)
	if err := lu.SolveVecTo(z, false, e); err != nil {
		return nil, fmt.Errorf("suffixlogweights: %w", ErrImproper)
	}
	out := make([]float64, n)
	for i := range out {
		v := z.AtVec(i)
		if v < 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("suffixlogweights: %w", ErrImproper)
		}
		out[i] = math.Log(v)
	}
	return out, nil
}

// GetLogNormalizer returns the log of the total weight over all
// strings, or +Inf when the total diverges.
func (s *StringDistribution) GetLogNormalizer() float64 {
	if s.IsPointMass() {
		return 0
	}
	z, err := s.SuffixLogWeights()
	if err != nil {
		return math.Inf(1)
	}
	return z[0]
}

// GetLogProb returns the normalized log probability of x. A point mass
// uses counting measure.
func (s *StringDistribution) GetLogProb(x string) float64 {
	if s.IsPointMass() {
		if x == s.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	if s.IsUniform() {
		return 0
	}
	return s.GetLogValue(x) - s.GetLogNormalizer()
}

// GetLogAverageOf returns ln(sum over x of s(x)*that(x)).
func (s *StringDistribution) GetLogAverageOf(that *StringDistribution) float64 {
	if s.IsPointMass() {
		if that.IsPointMass() {
			if s.Point() == that.Point() {
				return 0
			}
			return math.Inf(-1)
		}
		return that.GetLogProb(s.Point())
	}
	if that.IsPointMass() {
		return s.GetLogProb(that.Point())
	}
	if s.IsUniform() || that.IsUniform() {
		return 0
	}
	product := new(StringDistribution)
	product.SetToProduct(s, that)
	return product.GetLogNormalizer() - s.GetLogNormalizer() - that.GetLogNormalizer()
}

// SetToProduct sets the receiver to the product of a and b using the
// automaton intersection. It panics with ErrAllZero when a and b are
// point masses at different strings.
func (s *StringDistribution) SetToProduct(a, b *StringDistribution) {
	if a.IsPointMass() {
		if b.IsPointMass() && a.Point() != b.Point() {
			panic(ErrAllZero)
		}
		if !b.IsPointMass() && !b.IsUniform() && math.IsInf(b.GetLogValue(a.Point()), -1) {
			panic(ErrAllZero)
		}
		s.SetToPointMass(a.Point())
		return
	}
	if b.IsPointMass() {
		if !a.IsUniform() && math.IsInf(a.GetLogValue(b.Point()), -1) {
			panic(ErrAllZero)
		}
		s.SetToPointMass(b.Point())
		return
	}
	if a.IsUniform() {
		s.SetTo(b)
		return
	}
	if b.IsUniform() {
		s.SetTo(a)
		return
	}
	type pair struct{ i, j int }
	index := map[pair]int{{0, 0}: 0}
	states := []stringState{{
		endLogWeight: a.states[0].endLogWeight + b.states[0].endLogWeight,
	}}
	queue := []pair{{0, 0}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		id := index[p]
		for _, ta := range a.states[p.i].transitions {
			for _, tb := range b.states[p.j].transitions {
				overlap := ta.Chars.GetLogAverageOf(tb.Chars)
				if math.IsInf(overlap, -1) {
					continue
				}
				chars := new(DiscreteChar)
				chars.SetToProduct(ta.Chars, tb.Chars)
				q := pair{ta.Dest, tb.Dest}
				dest, ok := index[q]
				if !ok {
					dest = len(states)
					index[q] = dest
					states = append(states, stringState{
						endLogWeight: a.states[ta.Dest].endLogWeight +
							b.states[tb.Dest].endLogWeight,
					})
					queue = append(queue, q)
				}
				states[id].transitions = append(states[id].transitions, StringTransition{
					Chars:     chars,
					LogWeight: ta.LogWeight + tb.LogWeight + overlap,
					Dest:      dest,
				})
			}
		}
	}
	s.states = states
	s.point = nil
	s.uniform = false
}

// SetToRatio sets the receiver to numerator/denominator. Automata do
// not support general division; it panics with ErrNotSupported outside
// the point-mass and uniform cases.
func (s *StringDistribution) SetToRatio(numerator, denominator *StringDistribution) {
	if numerator.IsPointMass() {
		if denominator.IsPointMass() {
			if numerator.Point() != denominator.Point() {
				panic(ErrAllZero)
			}
			s.SetToUniform()
			return
		}
		s.SetToPointMass(numerator.Point())
		return
	}
	if denominator.IsPointMass() {
		panic(ErrImproper)
	}
	if denominator.IsUniform() {
		s.SetTo(numerator)
		return
	}
	if numerator.IsUniform() {
		panic(ErrNotSupported)
	}
	panic(ErrNotSupported)
}

// SetToConcatenation sets the receiver to the distribution of x+y with
// x drawn from a and y drawn from b independently.
func (s *StringDistribution) SetToConcatenation(a, b *StringDistribution) {
	if a.IsPointMass() && b.IsPointMass() {
		s.SetToPointMass(a.Point() + b.Point())
		return
	}
	aCopy := a.Clone()
	bStart := b.states[0]
	offset := len(aCopy.states)
	states := aCopy.states
	for _, st := range b.states {
		ns := stringState{endLogWeight: st.endLogWeight}
		for _, t := range st.transitions {
			ns.transitions = append(ns.transitions, StringTransition{
				Chars:     t.Chars,
				LogWeight: t.LogWeight,
				Dest:      t.Dest + offset,
			})
		}
		states = append(states, ns)
	}
	for i := 0; i < offset; i++ {
		end := states[i].endLogWeight
		if math.IsInf(end, -1) {
			continue
		}
		for _, t := range bStart.transitions {
			states[i].transitions = append(states[i].transitions, StringTransition{
				Chars:     t.Chars,
				LogWeight: end + t.LogWeight,
				Dest:      t.Dest + offset,
			})
		}
		states[i].endLogWeight = end + bStart.endLogWeight
	}
	s.states = states
	s.point = nil
	s.uniform = false
}

// Sample draws one string from the distribution. It panics with
// ErrImproper when the total weight diverges.
func (s *StringDistribution) Sample(src rand.Source) string {
	if s.IsPointMass() {
		return s.Point()
	}
	z, err := s.SuffixLogWeights()
	if err != nil {
		panic(ErrImproper)
	}
	rng := rand.New(src)
	var out []rune
	state := 0
	for len(out) < 1<<20 {
		u := math.Log(rng.Float64()) + z[state]
		cum := s.states[state].endLogWeight
		if u < cum {
			return string(out)
		}
		advanced := false
		for _, t := range s.states[state].transitions {
			cum = LogSumExp(cum, t.LogWeight+z[t.Dest])
			if u < cum {
				out = append(out, t.Chars.Sample(src))
				state = t.Dest
				advanced = true
				break
			}
		}
		if !advanced {
			return string(out)
		}
	}
	return string(out)
}

func (s *StringDistribution) checkState(i int) {
	if i < 0 || i >= len(s.states) {
		panic(fmt.Sprintf("distribution: automaton state %v out of range %v", i, len(s.states)))
	}
}

// String formats the distribution for diagnostics.
func (s *StringDistribution) String() string {
	if s.IsPointMass() {
		return fmt.Sprintf("StringDistribution.PointMass(%s)", strconv.Quote(s.Point()))
	}
	if s.IsUniform() {
		return "StringDistribution.Uniform"
	}
	return fmt.Sprintf("StringDistribution(%d states)", len(s.states))
}
