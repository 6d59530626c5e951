package distribution

import (
	"errors"
	"math"
	"testing"
)

// twoWordAutomaton returns a distribution assigning 0.25 to "ab" and
// 0.75 to "cd".
func twoWordAutomaton() *StringDistribution {
	s := NewStringAutomaton(5)
	s.AddTransition(0, DiscreteCharPointMass('a'), math.Log(0.25), 1)
	s.AddTransition(1, DiscreteCharPointMass('b'), 0, 2)
	s.SetEndLogWeight(2, 0)
	s.AddTransition(0, DiscreteCharPointMass('c'), math.Log(0.75), 3)
	s.AddTransition(3, DiscreteCharPointMass('d'), 0, 4)
	s.SetEndLogWeight(4, 0)
	return s
}

func TestStringPointMass(t *testing.T) {
	p := StringPointMass("abc")
	if !p.IsPointMass() || p.Point() != "abc" {
		t.Errorf("point mass not recognized: %v", p)
	}
	if p.GetLogProb("abc") != 0 {
		t.Error("log prob at point should be 0")
	}
	if !math.IsInf(p.GetLogProb("abd"), -1) {
		t.Error("log prob off point should be -Inf")
	}
	if got := p.GetLogValue("abc"); got != 0 {
		t.Errorf("log value at point: got %v want 0", got)
	}
}

func TestStringAutomatonLogProb(t *testing.T) {
	const threshold float64 = 1e-10
	s := twoWordAutomaton()
	if diff := math.Abs(s.GetLogNormalizer()); diff > threshold {
		t.Errorf("log normalizer: got %v want 0", s.GetLogNormalizer())
	}
	if diff := math.Abs(s.GetLogProb("ab") - math.Log(0.25)); diff > threshold {
		t.Errorf("log prob of ab off by %v", diff)
	}
	if diff := math.Abs(s.GetLogProb("cd") - math.Log(0.75)); diff > threshold {
		t.Errorf("log prob of cd off by %v", diff)
	}
	if !math.IsInf(s.GetLogProb("ad"), -1) {
		t.Error("log prob of unsupported string should be -Inf")
	}
}

// TestStringGeometricLoop checks the normalizer linear solve on an
// automaton with a cycle.
func TestStringGeometricLoop(t *testing.T) {
	const threshold float64 = 1e-10
	s := NewStringAutomaton(1)
	s.AddTransition(0, DiscreteCharPointMass('x'), math.Log(0.5), 0)
	s.SetEndLogWeight(0, math.Log(0.5))
	// total weight: 0.5 * sum 0.5^n = 1
	if diff := math.Abs(s.GetLogNormalizer()); diff > threshold {
		t.Errorf("log normalizer: got %v want 0", s.GetLogNormalizer())
	}
	for n, want := range map[int]float64{0: 0.5, 1: 0.25, 2: 0.125} {
		x := ""
		for i := 0; i < n; i++ {
			x += "x"
		}
		if diff := math.Abs(s.GetLogProb(x) - math.Log(want)); diff > threshold {
			t.Errorf("log prob of %q off by %v", x, diff)
		}
	}
}

func TestStringUniformDiverges(t *testing.T) {
	u := StringUniform()
	if !u.IsUniform() {
		t.Error("uniform not recognized")
	}
	if _, err := u.SuffixLogWeights(); !errors.Is(err, ErrImproper) {
		t.Errorf("suffix weights of uniform: got %v want ErrImproper", err)
	}
	if u.GetLogProb("anything") != 0 {
		t.Error("uniform log prob should be 0")
	}
}

func TestStringProduct(t *testing.T) {
	const threshold float64 = 1e-10
	s := twoWordAutomaton()

	point := StringPointMass("ab")
	product := new(StringDistribution)
	product.SetToProduct(s, point)
	if !product.IsPointMass() || product.Point() != "ab" {
		t.Errorf("product with point mass: got %v", product)
	}
	if diff := math.Abs(s.GetLogAverageOf(point) - math.Log(0.25)); diff > threshold {
		t.Errorf("average with point mass off by %v", diff)
	}

	other := NewStringAutomaton(5)
	other.AddTransition(0, DiscreteCharPointMass('a'), math.Log(0.5), 1)
	other.AddTransition(1, DiscreteCharPointMass('b'), 0, 2)
	other.SetEndLogWeight(2, 0)
	other.AddTransition(0, DiscreteCharPointMass('c'), math.Log(0.5), 3)
	other.AddTransition(3, DiscreteCharPointMass('e'), 0, 4)
	other.SetEndLogWeight(4, 0)

	// only "ab" survives the intersection
	product.SetToProduct(s, other)
	if diff := math.Abs(product.GetLogProb("ab")); diff > threshold {
		t.Errorf("intersection log prob: got %v want 0", product.GetLogProb("ab"))
	}
	want := math.Log(0.25 * 0.5)
	if diff := math.Abs(s.GetLogAverageOf(other) - want); diff > threshold {
		t.Errorf("log average: got %v want %v", s.GetLogAverageOf(other), want)
	}
}

func TestStringConcatenation(t *testing.T) {
	const threshold float64 = 1e-10
	ab := StringPointMass("ab")
	cd := StringPointMass("cd")
	concat := new(StringDistribution)
	concat.SetToConcatenation(ab, cd)
	if !concat.IsPointMass() || concat.Point() != "abcd" {
		t.Errorf("point concatenation: got %v", concat)
	}

	choice := NewStringAutomaton(2)
	choice.AddTransition(0, DiscreteCharInRange('a', 'c'), math.Log(2), 1)
	choice.SetEndLogWeight(1, 0)
	concat.SetToConcatenation(choice, StringPointMass("z"))
	for _, x := range []string{"az", "bz"} {
		if diff := math.Abs(concat.GetLogProb(x) - math.Log(0.5)); diff > threshold {
			t.Errorf("log prob of %q off by %v", x, diff)
		}
	}
	if !math.IsInf(concat.GetLogProb("a"), -1) {
		t.Error("missing suffix should have log prob -Inf")
	}
}

func TestStringAnyOfLength(t *testing.T) {
	any2 := StringAnyOfLength(2)
	if got := any2.GetLogValue("ab"); math.Abs(got) > 1e-9 {
		t.Errorf("weight of length-2 string: got %v want 0", got)
	}
	if !math.IsInf(any2.GetLogValue("abc"), -1) {
		t.Error("weight of wrong-length string should be -Inf")
	}
}

func TestStringFromChar(t *testing.T) {
	const threshold float64 = 1e-10
	s := StringFromChar(DiscreteCharInRange('a', 'c'))
	if diff := math.Abs(s.GetLogProb("a") - math.Log(0.5)); diff > threshold {
		t.Errorf("log prob of a off by %v", diff)
	}
	if !math.IsInf(s.GetLogProb("ab"), -1) {
		t.Error("length-2 string should have log prob -Inf")
	}
	p := StringFromChar(DiscreteCharPointMass('q'))
	if !p.IsPointMass() || p.Point() != "q" {
		t.Errorf("point char should give point string, got %v", p)
	}
}
