package matcher

// Mask is a per-row selection vector aligned with the set it was computed against.
type Mask []bool

// Gate converts per-row match counts into a mask: mask[i] = counts[i] >= threshold.
// The threshold is assumed valid; callers clamp it.
func Gate(counts []int, threshold int) Mask {
	out := make(Mask, len(counts))
	for i, c := range counts {
		out[i] = c >= threshold
	}
	return out
}

// AllPass returns an all-true mask of length n.
func AllPass(n int) Mask {
	out := make(Mask, n)
	for i := range out {
		out[i] = true
	}
	return out
}

// Sum returns the number of selected rows.
func (m Mask) Sum() int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

// All reports whether every row is selected.
func (m Mask) All() bool {
	for _, v := range m {
		if !v {
			return false
		}
	}
	return true
}
