package distribution

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"golang.org/x/exp/rand"
)

// MaxRune is the exclusive upper bound of the character alphabet.
const MaxRune rune = 0x110000

// CharRange is a half-open range of runes sharing one per-rune
// probability.
type CharRange struct {
	// Start is the first rune of the range.
	Start rune

	// End is one past the last rune of the range.
	End rune

	// Prob is the probability of each rune in the range.
	Prob float64
}

// DiscreteChar is a distribution over runes stored as sorted,
// non-overlapping ranges of constant probability. Runes outside every
// range have probability zero.
type DiscreteChar struct {
	ranges []CharRange
}

// DiscreteCharUniform returns the uniform distribution over the whole
// alphabet.
func DiscreteCharUniform() *DiscreteChar {
	return &DiscreteChar{ranges: []CharRange{{Start: 0, End: MaxRune, Prob: 1 / float64(MaxRune)}}}
}

// DiscreteCharPointMass returns a point mass at c.
func DiscreteCharPointMass(c rune) *DiscreteChar {
	return &DiscreteChar{ranges: []CharRange{{Start: c, End: c + 1, Prob: 1}}}
}

// DiscreteCharInRange returns the uniform distribution over the
// half-open range [start, end).
func DiscreteCharInRange(start, end rune) *DiscreteChar {
	if end <= start {
		panic(ErrAllZero)
	}
	return &DiscreteChar{ranges: []CharRange{{Start: start, End: end, Prob: 1 / float64(end-start)}}}
}

// DiscreteCharFromRanges returns a distribution over the given ranges,
// normalized so the probabilities sum to one. Ranges must not overlap.
// It panics with ErrAllZero when the total mass is zero.
func DiscreteCharFromRanges(ranges ...CharRange) *DiscreteChar {
	rs := append([]CharRange(nil), ranges...)
	sort.Slice(rs, func(i, j int) bool { return rs[i].Start < rs[j].Start })
	total := 0.0
	for i, r := range rs {
		if r.End <= r.Start {
			panic(fmt.Sprintf("distribution: DiscreteChar range [%d,%d) is empty", r.Start, r.End))
		}
		if i > 0 && r.Start < rs[i-1].End {
			panic(fmt.Sprintf("distribution: DiscreteChar ranges overlap at %d", r.Start))
		}
		total += float64(r.End-r.Start) * r.Prob
	}
	if total == 0 {
		panic(ErrAllZero)
	}
	kept := rs[:0]
	for _, r := range rs {
		if r.Prob > 0 {
			r.Prob /= total
			kept = append(kept, r)
		}
	}
	return &DiscreteChar{ranges: kept}
}

// DiscreteCharFromOverlappingRanges returns a normalized distribution
// from ranges that may overlap, summing probabilities where they do.
// It panics with ErrAllZero when the total mass is zero.
func DiscreteCharFromOverlappingRanges(ranges ...CharRange) *DiscreteChar {
	bounds := make([]rune, 0, 2*len(ranges))
	for _, r := range ranges {
		bounds = append(bounds, r.Start, r.End)
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })
	var flat []CharRange
	for i := 0; i+1 < len(bounds); i++ {
		lo, hi := bounds[i], bounds[i+1]
		if lo == hi {
			continue
		}
		p := 0.0
		for _, r := range ranges {
			if r.Start <= lo && hi <= r.End {
				p += r.Prob
			}
		}
		if p > 0 {
			flat = append(flat, CharRange{Start: lo, End: hi, Prob: p})
		}
	}
	if len(flat) == 0 {
		panic(ErrAllZero)
	}
	return DiscreteCharFromRanges(flat...)
}

// Ranges returns the ranges in order. Callers must not modify the
// result.
func (d *DiscreteChar) Ranges() []CharRange { return d.ranges }

// IsPointMass reports whether the distribution is a point mass.
func (d *DiscreteChar) IsPointMass() bool {
	return len(d.ranges) == 1 && d.ranges[0].End == d.ranges[0].Start+1
}

// Point returns the rune holding all mass.
func (d *DiscreteChar) Point() rune { return d.ranges[0].Start }

// IsUniform reports whether every rune is equally likely.
func (d *DiscreteChar) IsUniform() bool {
	return len(d.ranges) == 1 && d.ranges[0].Start == 0 && d.ranges[0].End == MaxRune
}

// SetToUniform makes every rune equally likely.
func (d *DiscreteChar) SetToUniform() {
	d.ranges = []CharRange{{Start: 0, End: MaxRune, Prob: 1 / float64(MaxRune)}}
}

// SetToPointMass puts all mass on c.
func (d *DiscreteChar) SetToPointMass(c rune) {
	d.ranges = []CharRange{{Start: c, End: c + 1, Prob: 1}}
}

// GetProb returns the probability of c.
func (d *DiscreteChar) GetProb(c rune) float64 {
	k := sort.Search(len(d.ranges), func(k int) bool { return d.ranges[k].End > c })
	if k < len(d.ranges) && d.ranges[k].Start <= c {
		return d.ranges[k].Prob
	}
	return 0
}

// GetLogProb returns the log probability of c.
func (d *DiscreteChar) GetLogProb(c rune) float64 {
	return math.Log(d.GetProb(c))
}

// GetMode returns a rune of maximal probability.
func (d *DiscreteChar) GetMode() rune {
	best, bestProb := d.ranges[0].Start, d.ranges[0].Prob
	for _, r := range d.ranges[1:] {
		if r.Prob > bestProb {
			best, bestProb = r.Start, r.Prob
		}
	}
	return best
}

// GetLogAverageOf returns ln(sum over c of d(c)*that(c)).
func (d *DiscreteChar) GetLogAverageOf(that *DiscreteChar) float64 {
	return math.Log(overlapMass(d.ranges, that.ranges))
}

// overlapMass returns the sum over runes of the product of the two
// range densities.
func overlapMass(a, b []CharRange) float64 {
	total := 0.0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := a[i].Start
		if b[j].Start > lo {
			lo = b[j].Start
		}
		hi := a[i].End
		if b[j].End < hi {
			hi = b[j].End
		}
		if lo < hi {
			total += float64(hi-lo) * a[i].Prob * b[j].Prob
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return total
}

// SetTo copies value into the receiver.
func (d *DiscreteChar) SetTo(value *DiscreteChar) {
	d.ranges = append(d.ranges[:0], value.ranges...)
}

// Clone returns an independent copy.
func (d *DiscreteChar) Clone() *DiscreteChar {
	return &DiscreteChar{ranges: append([]CharRange(nil), d.ranges...)}
}

// SetToProduct sets the receiver to the normalized product of a and b.
// It panics with ErrAllZero when a and b share no runes.
func (d *DiscreteChar) SetToProduct(a, b *DiscreteChar) {
	var out []CharRange
	total := 0.0
	i, j := 0, 0
	for i < len(a.ranges) && j < len(b.ranges) {
		lo := a.ranges[i].Start
		if b.ranges[j].Start > lo {
			lo = b.ranges[j].Start
		}
		hi := a.ranges[i].End
		if b.ranges[j].End < hi {
			hi = b.ranges[j].End
		}
		if lo < hi {
			p := a.ranges[i].Prob * b.ranges[j].Prob
			if p > 0 {
				out = append(out, CharRange{Start: lo, End: hi, Prob: p})
				total += float64(hi-lo) * p
			}
		}
		if a.ranges[i].End < b.ranges[j].End {
			i++
		} else {
			j++
		}
	}
	if total == 0 {
		panic(ErrAllZero)
	}
	for k := range out {
		out[k].Prob /= total
	}
	// merge ranges that ended up adjacent with equal probability
	merged := out[:0]
	for _, r := range out {
		if n := len(merged); n > 0 && merged[n-1].End == r.Start && merged[n-1].Prob == r.Prob {
			merged[n-1].End = r.End
			continue
		}
		merged = append(merged, r)
	}
	d.ranges = merged
}

// SetToRatio sets the receiver to numerator/denominator, defined only
// where the denominator is positive.
func (d *DiscreteChar) SetToRatio(numerator, denominator *DiscreteChar) {
	var out []CharRange
	total := 0.0
	i, j := 0, 0
	for i < len(numerator.ranges) && j < len(denominator.ranges) {
		a, b := numerator.ranges[i], denominator.ranges[j]
		lo := a.Start
		if b.Start > lo {
			lo = b.Start
		}
		hi := a.End
		if b.End < hi {
			hi = b.End
		}
		if lo < hi {
			p := a.Prob / b.Prob
			out = append(out, CharRange{Start: lo, End: hi, Prob: p})
			total += float64(hi-lo) * p
		}
		if a.End < b.End {
			i++
		} else {
			j++
		}
	}
	if total == 0 {
		panic(ErrAllZero)
	}
	for k := range out {
		out[k].Prob /= total
	}
	d.ranges = out
}

// Sample draws one rune from the distribution.
func (d *DiscreteChar) Sample(src rand.Source) rune {
	u := rand.New(src).Float64()
	cum := 0.0
	for _, r := range d.ranges {
		mass := float64(r.End-r.Start) * r.Prob
		if u < cum+mass {
			offset := (u - cum) / r.Prob
			return r.Start + rune(offset)
		}
		cum += mass
	}
	return d.ranges[len(d.ranges)-1].End - 1
}

// String formats the distribution for diagnostics.
func (d *DiscreteChar) String() string {
	if d.IsPointMass() {
		return fmt.Sprintf("DiscreteChar.PointMass(%s)", strconv.QuoteRune(d.Point()))
	}
	if d.IsUniform() {
		return "DiscreteChar.Uniform"
	}
	return fmt.Sprintf("DiscreteChar(%d ranges)", len(d.ranges))
}
