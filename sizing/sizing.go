// Package sizing quantizes requested output dimensions to values the
// generation provider handles efficiently. Normalization runs before cache
// key derivation so that requests asking for nearly identical sizes collapse
// onto the same cache entry.
package sizing

import "math"

const (
	// Step is the quantum both dimensions are aligned to.
	Step = 64

	// MaxEdge is the largest value either dimension may take. Larger
	// requests are scaled down preserving aspect ratio.
	MaxEdge = 1536
)

// Normalize rounds width and height up to the nearest multiple of Step and,
// when either exceeds MaxEdge, scales both down so the larger side equals
// MaxEdge (preserving aspect ratio) before re-rounding to the nearest
// multiple. The result is always positive for positive input.
func Normalize(width, height int) (int, int) {
	w := roundUp(width)
	h := roundUp(height)

	if w <= MaxEdge && h <= MaxEdge {
		return w, h
	}

	longest := w
	if h > longest {
		longest = h
	}
	scale := float64(MaxEdge) / float64(longest)

	w = roundNearest(float64(w) * scale)
	h = roundNearest(float64(h) * scale)
	return w, h
}

// roundUp aligns v to the next multiple of Step. Non-positive values map to
// a single step so downstream key derivation never sees a zero dimension.
func roundUp(v int) int {
	if v <= 0 {
		return Step
	}
	return (v + Step - 1) / Step * Step
}

// roundNearest aligns v to the closest multiple of Step, never below one
// step.
func roundNearest(v float64) int {
	r := int(math.Round(v/Step)) * Step
	if r < Step {
		return Step
	}
	return r
}
