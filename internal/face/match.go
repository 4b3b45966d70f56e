// Package face holds the descriptor comparison rule and the shared handle on the
// face-recognition model files served to browsers.
package face

import (
	"errors"
	"math"
)

// Threshold is the Euclidean distance under which two descriptors belong to the same face.
const Threshold = 0.4

var ErrLengthMismatch = errors.New("face descriptors have different lengths")

// Distance returns the Euclidean distance between a and b.
func Distance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Result of comparing a live capture with the enrolled descriptor.
type Result struct {
	Matched  bool
	Distance float64
	// Compared is false when one side was missing and no distance was computed.
	Compared bool
}

// Match compares a live descriptor against the stored one. An empty live descriptor
// (no face in the frame) or an empty stored descriptor (not enrolled) never matches.
func Match(live, stored []float64) Result {
	if len(live) == 0 || len(stored) == 0 {
		return Result{}
	}
	dist, err := Distance(live, stored)
	if err != nil {
		return Result{}
	}
	return Result{Matched: dist < Threshold, Distance: dist, Compared: true}
}
