package face

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// shifted returns a copy of base whose distance from base is exactly dist.
func shifted(base []float64, dist float64) []float64 {
	out := append([]float64(nil), base...)
	out[0] += dist
	return out
}

func TestIdenticalDescriptorsMatch(t *testing.T) {
	a := vec(128, 0.25)
	res := Match(a, a)
	assert.True(t, res.Matched)
	assert.True(t, res.Compared)
	assert.Zero(t, res.Distance)
}

func TestThresholdBoundary(t *testing.T) {
	base := vec(128, 0)

	assert.False(t, Match(shifted(base, 0.4), base).Matched, "distance equal to threshold must not match")
	assert.False(t, Match(shifted(base, 0.55), base).Matched)
	assert.True(t, Match(shifted(base, 0.3999), base).Matched)
}

func TestMatchIsSymmetric(t *testing.T) {
	a := vec(128, 0.1)
	for _, d := range []float64{0, 0.2, 0.39, 0.4, 0.41, 1.5} {
		b := shifted(a, d)
		assert.Equal(t, Match(a, b), Match(b, a), "distance %v", d)
	}
}

func TestMissingDescriptorsNeverMatch(t *testing.T) {
	a := vec(128, 0.1)
	assert.False(t, Match(nil, a).Matched, "no face detected")
	assert.False(t, Match(a, nil).Matched, "not enrolled")
	assert.False(t, Match(a, nil).Compared)
	assert.False(t, Match(a, vec(64, 0.1)).Matched, "length mismatch")
}

func TestDistance(t *testing.T) {
	d, err := Distance([]float64{0, 0}, []float64{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, d, 1e-9)

	_, err = Distance([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	d, err = Distance(nil, nil)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(d))
}
