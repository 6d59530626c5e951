package factorop

import "fmt"

// same reports whether a and b are the same object. Operators use it to
// reject a result argument that aliases an input they still read.
func same[T any](a, b T) bool {
	return any(a) == any(b)
}

func checkIndex(index, length int) error {
	if index < 0 || index >= length {
		return fmt.Errorf("index %v out of range %v", index, length)
	}
	return nil
}

// checkDistinct rejects index sets that map two items onto the same
// array slot. Duplicate targets would break the cavity decomposition
// the collection operators rely on.
func checkDistinct(indices []int) error {
	seen := make(map[int]int, len(indices))
	for k, i := range indices {
		if prev, ok := seen[i]; ok {
			return fmt.Errorf("indices %v and %v both target slot %v", prev, k, i)
		}
		seen[i] = k
	}
	return nil
}

func checkSameLength(what string, got, want int) error {
	if got != want {
		return fmt.Errorf("%v length %v does not match %v", what, got, want)
	}
	return nil
}
