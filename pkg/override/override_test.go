package override

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pencilgraph/pkg/errors"
)

type fakeNode struct {
	name   string
	values map[string]any
}

func (n fakeNode) Name() string { return n.name }

func (n fakeNode) Attr(field string) (any, bool) {
	v, ok := n.values[field]
	return v, ok
}

func TestPath(t *testing.T) {
	tests := []struct {
		node, field, want string
	}{
		{"Line", "is_active", "Line.is_active"},
		{"Brush Detail.001", "brush_map_on_gui", "Brush Detail.001.brush_map_on"},
		{"Line Set", "v_outline_on", "Line Set.v_outline_on"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Path(tt.node, tt.field))
		})
	}
}

func TestSplitPath(t *testing.T) {
	node, field, ok := SplitPath("Line Set.001.is_on")
	require.True(t, ok)
	assert.Equal(t, "Line Set.001", node)
	assert.Equal(t, "is_on", field)

	_, _, ok = SplitPath("nodot")
	assert.False(t, ok)
	_, _, ok = SplitPath("trailing.")
	assert.False(t, ok)
}

func TestResolvePrecedence(t *testing.T) {
	node := fakeNode{name: "Line", values: map[string]any{"over_sampling": 2}}
	stack := NewStack()
	stack.Layer(LayerScene).Set("Line.over_sampling", 3)

	r := Resolve(node, "over_sampling", stack)
	assert.Equal(t, 3, r.Value)
	assert.Equal(t, LayerScene, r.Layer)

	stack.Layer(LayerViewLayer).Set("Line.over_sampling", 4)
	r = Resolve(node, "over_sampling", stack)
	assert.Equal(t, 4, r.Value)
	assert.Equal(t, LayerViewLayer, r.Layer)
	assert.Equal(t, "Line.over_sampling", r.Key)
}

func TestResolveLiteralBeforePattern(t *testing.T) {
	node := fakeNode{name: "Line", values: map[string]any{"antialiasing": 1.0}}
	stack := NewStack()
	layer := stack.Layer(LayerViewLayer)
	require.NoError(t, layer.AddPattern(`Line\..*`, 0.25))
	layer.Set("Line.antialiasing", 0.5)

	r := Resolve(node, "antialiasing", stack)
	assert.Equal(t, 0.5, r.Value)
	assert.Equal(t, "Line.antialiasing", r.Key)
}

func TestResolveFirstPatternWins(t *testing.T) {
	node := fakeNode{name: "Line.002", values: map[string]any{"random_seed": 0}}
	stack := NewStack()
	layer := stack.Layer(LayerScene)
	require.NoError(t, layer.AddPattern(`Line\.\d+\.random_seed`, 7))
	require.NoError(t, layer.AddPattern(`.*random_seed`, 9))

	r := Resolve(node, "random_seed", stack)
	assert.Equal(t, 7, r.Value)
	assert.Equal(t, `Line\.\d+\.random_seed`, r.Key)
}

func TestResolvePatternIsFullMatch(t *testing.T) {
	node := fakeNode{name: "Line", values: map[string]any{"is_active": true}}
	stack := NewStack()
	require.NoError(t, stack.Layer(LayerScene).AddPattern("Line", false))

	assert.Equal(t, true, Value(node, "is_active", stack))
}

func TestResolveTypeGate(t *testing.T) {
	tests := []struct {
		name     string
		base     any
		override any
		want     any
		accepted bool
	}{
		{"same type float", 1.5, 2.5, 2.5, true},
		{"string over float", 1.5, "x", 1.5, false},
		{"int over bool", true, 0, false, true},
		{"bool over int", 1, true, 1, false},
		{"float over int", 2, 2.0, 2, false},
		{"vector same length", []float64{0, 0, 0}, []any{1.0, 0.5, 0.0}, []float64{1, 0.5, 0}, true},
		{"vector wrong length", []float64{0, 0, 0}, []any{1.0, 0.5}, []float64{0, 0, 0}, false},
		{"vector element type", []float64{0, 0, 0}, []any{1, 0, 0}, []float64{0, 0, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := fakeNode{name: "N", values: map[string]any{"f": tt.base}}
			stack := NewStack()
			stack.Layer(LayerScene).Set("N.f", tt.override)

			r := Resolve(node, "f", stack)
			assert.Equal(t, tt.want, r.Value)
			assert.Equal(t, tt.accepted, r.Overridden())
		})
	}
}

func TestResolveRejectedFallsThroughToNextLayer(t *testing.T) {
	node := fakeNode{name: "N", values: map[string]any{"size": 1.0}}
	stack := NewStack()
	stack.Layer(LayerViewLayer).Set("N.size", "wide")
	stack.Layer(LayerScene).Set("N.size", 3.0)

	r := Resolve(node, "size", stack)
	assert.Equal(t, 3.0, r.Value)
	assert.Equal(t, LayerScene, r.Layer)
}

func TestResolveMissingField(t *testing.T) {
	node := fakeNode{name: "N", values: map[string]any{}}
	stack := NewStack()
	stack.Layer(LayerScene).Set("N.brush_map_amount", 0.0)

	r := Resolve(node, "brush_map_amount", stack, 1.0)
	assert.Equal(t, 1.0, r.Value)
	assert.False(t, r.Overridden())

	r = Resolve(node, "brush_map_amount", stack)
	assert.Nil(t, r.Value)
}

func TestResolveGuiAccessor(t *testing.T) {
	node := fakeNode{name: "Brush Detail", values: map[string]any{"brush_map_on": true}}
	stack := NewStack()
	stack.Layer(LayerScene).Set("Brush Detail.brush_map_on", 0)

	r := Resolve(node, "brush_map_on_gui", stack)
	assert.Equal(t, false, r.Value)
	assert.True(t, IsOverridden(node, "brush_map_on_gui", stack))
}

func TestLayerAddPatternRejectsMalformed(t *testing.T) {
	layer := NewLayer(LayerScene)
	err := layer.AddPattern("Line[", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidPattern))
	assert.Equal(t, 0, layer.Len())
}

func TestLayerMalformedKeySkippedForPatterns(t *testing.T) {
	node := fakeNode{name: "Line", values: map[string]any{"random_seed": 0}}
	stack := NewStack()
	layer := stack.Layer(LayerScene)
	layer.Set("Line[", 5)
	require.NoError(t, layer.AddPattern(`Line\.random_seed`, 6))

	assert.Equal(t, 6, Value(node, "random_seed", stack))

	entries := layer.Entries()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Pattern())
	assert.True(t, entries[1].Pattern())
}

func TestLayerSetKeepsPosition(t *testing.T) {
	layer := NewLayer(LayerScene)
	layer.Set("a", 1)
	layer.Set("b", 2)
	layer.Set("a", 3)

	entries := layer.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, 3, entries[0].Value)

	assert.True(t, layer.Delete("a"))
	assert.False(t, layer.Delete("a"))
	v, ok := layer.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestSnapshotIsIndependent(t *testing.T) {
	node := fakeNode{name: "N", values: map[string]any{"brush_color": []float64{0, 0, 0}}}
	live := NewStack()
	live.Layer(LayerScene).Set("N.brush_color", []float64{1, 0, 0})

	snap := live.Snapshot()
	live.Layer(LayerScene).Set("N.brush_color", []float64{0, 1, 0})

	assert.Equal(t, []float64{1, 0, 0}, Value(node, "brush_color", snap))
	assert.Equal(t, []float64{0, 1, 0}, Value(node, "brush_color", live))
}

func TestTypedHelpers(t *testing.T) {
	node := fakeNode{name: "N", values: map[string]any{
		"on": true, "amount": 2, "size": 1.5, "mode": "SIMPLE",
	}}
	stack := NewStack()

	assert.True(t, Bool(node, "on", stack, false))
	assert.False(t, Bool(node, "missing", stack, false))
	assert.Equal(t, 2.0, Float(node, "amount", stack, 0))
	assert.Equal(t, 1.5, Float(node, "size", stack, 0))
	assert.Equal(t, 2, Int(node, "amount", stack, 0))
	assert.Equal(t, "SIMPLE", String(node, "mode", stack, ""))
	assert.Equal(t, 1.0, Float(node, "missing", stack, 1.0))
}
