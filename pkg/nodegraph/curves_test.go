package nodegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurveStore(t *testing.T) {
	s := NewCurveStore()
	pts := []Point{{0, 0}, {1, 1}}
	key := s.Create(pts)
	pts[0].Y = 5

	got, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, []Point{{0, 0}, {1, 1}}, got)

	found, ok := s.Find([]Point{{0, 0}, {1, 1}})
	assert.True(t, ok)
	assert.Equal(t, key, found)

	c := s.Clone()
	assert.True(t, s.Delete(key))
	assert.False(t, s.Delete(key))
	assert.Equal(t, []string{key}, c.Keys())
}

func TestEvaluate(t *testing.T) {
	s := NewCurveStore()
	key := s.Create([]Point{{1, 0.25}, {0, 0.25}, {0.5, 1}})

	got := s.Evaluate(key, 5)
	assert.InDeltaSlice(t, []float64{0.25, 0.625, 1, 0.625, 0.25}, got, 1e-9)

	over := s.Create([]Point{{0, 2}, {1, 0}})
	assert.InDeltaSlice(t, []float64{1, 1, 0}, s.Evaluate(over, 3), 1e-9)

	assert.Equal(t, []float64{1, 1, 1}, s.Evaluate("missing", 3))
}
