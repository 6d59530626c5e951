package distribution

import (
	"math"
	"testing"

	expRand "golang.org/x/exp/rand"
)

func TestDiscreteCharUniform(t *testing.T) {
	const threshold float64 = 1e-15
	u := DiscreteCharUniform()
	if !u.IsUniform() {
		t.Error("uniform not recognized")
	}
	want := 1 / float64(MaxRune)
	for _, c := range []rune{'a', 0, 'é', 0x10FFFF} {
		if math.Abs(u.GetProb(c)-want) > threshold {
			t.Errorf("uniform prob of %q: got %v want %v", c, u.GetProb(c), want)
		}
	}
}

func TestDiscreteCharPointMass(t *testing.T) {
	p := DiscreteCharPointMass('x')
	if !p.IsPointMass() || p.Point() != 'x' {
		t.Errorf("point mass not recognized: %v", p)
	}
	if p.GetProb('x') != 1 || p.GetProb('y') != 0 {
		t.Error("point mass probabilities wrong")
	}
}

func TestDiscreteCharRanges(t *testing.T) {
	const threshold float64 = 1e-15
	d := DiscreteCharFromRanges(
		CharRange{Start: 'a', End: 'd', Prob: 2},
		CharRange{Start: 'x', End: 'z', Prob: 1},
	)
	// total mass before normalizing: 3*2 + 2*1 = 8
	if math.Abs(d.GetProb('b')-0.25) > threshold {
		t.Errorf("prob of 'b': got %v want 0.25", d.GetProb('b'))
	}
	if math.Abs(d.GetProb('y')-0.125) > threshold {
		t.Errorf("prob of 'y': got %v want 0.125", d.GetProb('y'))
	}
	if d.GetProb('m') != 0 {
		t.Errorf("prob outside ranges: got %v want 0", d.GetProb('m'))
	}
	if d.GetMode() != 'a' {
		t.Errorf("mode: got %q want 'a'", d.GetMode())
	}
}

func TestDiscreteCharProduct(t *testing.T) {
	const threshold float64 = 1e-12
	a := DiscreteCharInRange('a', 'n')
	b := DiscreteCharInRange('h', 'z')
	product := new(DiscreteChar)
	product.SetToProduct(a, b)
	// intersection is h..m, uniform
	if product.GetProb('g') != 0 || product.GetProb('n') != 0 {
		t.Error("product has mass outside the intersection")
	}
	if math.Abs(product.GetProb('h')-1.0/6) > threshold {
		t.Errorf("product prob: got %v want %v", product.GetProb('h'), 1.0/6)
	}

	wantAvg := 0.0
	for c := 'h'; c < 'n'; c++ {
		wantAvg += a.GetProb(c) * b.GetProb(c)
	}
	if diff := math.Abs(a.GetLogAverageOf(b) - math.Log(wantAvg)); diff > threshold {
		t.Errorf("log average off by %v", diff)
	}
}

func TestDiscreteCharDisjointProductPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != ErrAllZero {
			t.Errorf("recovered %v want ErrAllZero", r)
		}
	}()
	product := new(DiscreteChar)
	product.SetToProduct(DiscreteCharInRange('a', 'c'), DiscreteCharInRange('x', 'z'))
}

func TestDiscreteCharFromOverlappingRanges(t *testing.T) {
	const threshold float64 = 1e-12
	d := DiscreteCharFromOverlappingRanges(
		CharRange{Start: 'a', End: 'e', Prob: 1},
		CharRange{Start: 'c', End: 'g', Prob: 1},
	)
	// a,b weight 1; c,d weight 2; e,f weight 1: total 8
	if math.Abs(d.GetProb('a')-0.125) > threshold {
		t.Errorf("prob of 'a': got %v want 0.125", d.GetProb('a'))
	}
	if math.Abs(d.GetProb('c')-0.25) > threshold {
		t.Errorf("prob of 'c': got %v want 0.25", d.GetProb('c'))
	}
	if math.Abs(d.GetProb('f')-0.125) > threshold {
		t.Errorf("prob of 'f': got %v want 0.125", d.GetProb('f'))
	}
}

func TestDiscreteCharSample(t *testing.T) {
	src := expRand.NewSource(14)
	d := DiscreteCharInRange('a', 'f')
	for i := 0; i < 100; i++ {
		c := d.Sample(src)
		if c < 'a' || c >= 'f' {
			t.Fatalf("sample %q outside support", c)
		}
	}
}
