package nodegraph

import (
	"maps"
	"slices"
	"sort"

	"github.com/google/uuid"
)

// Point is a curve control point.
type Point struct {
	X, Y float64
}

// CurveStore holds freely shaped curves referenced from curve fields by key.
// Curves are not graph nodes; a curve lives as long as some field names it.
type CurveStore struct {
	curves map[string][]Point
}

// NewCurveStore creates an empty store.
func NewCurveStore() *CurveStore {
	return &CurveStore{curves: make(map[string][]Point)}
}

// Create stores a copy of points under a fresh key and returns the key.
func (s *CurveStore) Create(points []Point) string {
	key := "curve-" + uuid.NewString()
	s.Put(key, points)
	return key
}

// Put stores a copy of points under key, replacing any existing curve.
func (s *CurveStore) Put(key string, points []Point) {
	s.curves[key] = slices.Clone(points)
}

// Get returns a copy of the curve stored under key.
func (s *CurveStore) Get(key string) ([]Point, bool) {
	pts, ok := s.curves[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(pts), true
}

// Delete removes the curve and reports whether it existed.
func (s *CurveStore) Delete(key string) bool {
	_, ok := s.curves[key]
	delete(s.curves, key)
	return ok
}

// Keys returns the stored keys, sorted.
func (s *CurveStore) Keys() []string { return slices.Sorted(maps.Keys(s.curves)) }

// Len returns the number of curves.
func (s *CurveStore) Len() int { return len(s.curves) }

// Find returns the key of a curve with exactly the given control points.
func (s *CurveStore) Find(points []Point) (string, bool) {
	for _, key := range s.Keys() {
		if slices.Equal(s.curves[key], points) {
			return key, true
		}
	}
	return "", false
}

// Evaluate samples the curve at n evenly spaced positions over [0, 1]
// using linear interpolation between control points sorted by X. Samples
// are clamped to at most 1. A missing or empty curve samples as all ones.
func (s *CurveStore) Evaluate(key string, n int) []float64 {
	out := make([]float64, n)
	pts := slices.Clone(s.curves[key])
	if len(pts) == 0 {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
	for i := range out {
		x := 0.0
		if n > 1 {
			x = float64(i) / float64(n-1)
		}
		out[i] = min(interpolate(pts, x), 1)
	}
	return out
}

func interpolate(pts []Point, x float64) float64 {
	if x <= pts[0].X {
		return pts[0].Y
	}
	last := pts[len(pts)-1]
	if x >= last.X {
		return last.Y
	}
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		if x > b.X {
			continue
		}
		if b.X == a.X {
			return b.Y
		}
		t := (x - a.X) / (b.X - a.X)
		return a.Y + t*(b.Y-a.Y)
	}
	return last.Y
}

// Clone returns a deep copy of the store.
func (s *CurveStore) Clone() *CurveStore {
	c := NewCurveStore()
	for k, v := range s.curves {
		c.curves[k] = slices.Clone(v)
	}
	return c
}
