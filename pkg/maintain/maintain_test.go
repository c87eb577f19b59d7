package maintain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// lineWithSets builds a Line with n line sets and the trailing slot.
func lineWithSets(t *testing.T, n int) (*nodegraph.Graph, *nodegraph.Node) {
	t.Helper()
	g := nodegraph.New("")
	line, err := NewLine(g)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := NewLineSet(g, line, len(line.Inputs)-1)
		require.NoError(t, err)
	}
	return g, line
}

func setNames(g *nodegraph.Graph, line *nodegraph.Node) []string {
	var out []string
	for _, s := range line.Inputs {
		if c := g.ConnectedNode(s, false); c != nil {
			out = append(out, c.Name())
		} else {
			out = append(out, "")
		}
	}
	return out
}

func TestEnsureTrailingSlot(t *testing.T) {
	g := nodegraph.New("")
	line, err := g.AddNode(schema.TypeLine, "")
	require.NoError(t, err)
	set, err := g.AddNode(schema.TypeLineSet, "")
	require.NoError(t, err)

	require.NoError(t, EnsureTrailingSlot(g, line))
	assert.Len(t, line.Inputs, 1)

	_, err = g.Link(set, line.Inputs[0])
	require.NoError(t, err)
	require.NoError(t, EnsureTrailingSlot(g, line))
	require.Len(t, line.Inputs, 2)
	assert.False(t, line.Inputs[1].IsLinked())

	// Nodes without a collection are untouched.
	require.NoError(t, EnsureTrailingSlot(g, set))
	assert.Len(t, set.Inputs, 22)
}

func TestNewLineSetBuildsBrushes(t *testing.T) {
	g, line := lineWithSets(t, 1)
	assert.Equal(t, []string{"Line Set", ""}, setNames(g, line))

	set := g.Node("Line Set")
	require.NotNil(t, set)
	assert.Same(t, set, g.SelectedLineSet(line))
	for _, id := range []string{schema.SocketIDVBrush, schema.SocketIDHBrush} {
		brush := g.ConnectedNode(set.Input(id), false)
		require.NotNil(t, brush, id)
		assert.Equal(t, schema.TypeBrushSettings, brush.Type.Name)
		detail := g.ConnectedNode(brush.Input(schema.SocketIDBrushDetail), false)
		require.NotNil(t, detail, id)
		assert.Equal(t, schema.TypeBrushDetail, detail.Type.Name)
	}
	assert.Equal(t, 6, g.Len())
	assert.Equal(t, [2]float64{-360, 0}, set.Location)
}

func TestNewLineSetAtFront(t *testing.T) {
	g, line := lineWithSets(t, 1)
	_, err := NewLineSet(g, line, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Line Set.001", "Line Set", ""}, setNames(g, line))

	_, err = NewLineSet(g, line, 0)
	assert.ErrorIs(t, err, ErrSlotLinked)
}

func TestInsertAndRemoveSocket(t *testing.T) {
	g, line := lineWithSets(t, 2)
	require.NoError(t, InsertSocket(g, line, 1))
	assert.Equal(t, []string{"Line Set", "", "Line Set.001", ""}, setNames(g, line))

	before := g.Len()
	require.NoError(t, RemoveSocket(g, line, 2))
	assert.Equal(t, []string{"Line Set", "", ""}, setNames(g, line))
	// The line set and its four brush nodes went with the socket.
	assert.Equal(t, before-5, g.Len())

	assert.ErrorIs(t, InsertSocket(g, line, 9), ErrOutOfRange)
	set := g.Node("Line Set")
	assert.ErrorIs(t, InsertSocket(g, set, 0), ErrNoCollection)
}

func TestRemoveRange(t *testing.T) {
	g, line := lineWithSets(t, 3)
	require.NoError(t, RemoveRange(g, line, 0, 2))
	assert.Equal(t, []string{"Line Set.002", ""}, setNames(g, line))
	assert.Nil(t, g.Node("Line Set"))
	assert.Nil(t, g.Node("Line Set.001"))
}

func TestShrink(t *testing.T) {
	g, line := lineWithSets(t, 2)
	require.NoError(t, InsertSocket(g, line, 0))
	require.NoError(t, InsertSocket(g, line, 2))
	require.NoError(t, Shrink(g, line))
	assert.Equal(t, []string{"Line Set", "Line Set.001", ""}, setNames(g, line))
}

func TestSwapKeepsLinks(t *testing.T) {
	g, line := lineWithSets(t, 3)
	require.NoError(t, Swap(g, line, 0, 2))
	assert.Equal(t, []string{"Line Set.002", "Line Set.001", "Line Set", ""}, setNames(g, line))
	require.NoError(t, Swap(g, line, 2, 0))
	assert.Equal(t, []string{"Line Set", "Line Set.001", "Line Set.002", ""}, setNames(g, line))
	require.NoError(t, Swap(g, line, 1, 1))
	assert.ErrorIs(t, Swap(g, line, 0, 10), ErrOutOfRange)
}

func TestSwapKeepsTrailingSlot(t *testing.T) {
	g, line := lineWithSets(t, 1)
	require.Len(t, line.Inputs, 2)

	assert.ErrorIs(t, Swap(g, line, 1, 0), ErrTrailingSlot)
	assert.ErrorIs(t, Swap(g, line, 0, 1), ErrTrailingSlot)
	assert.Equal(t, []string{"Line Set", ""}, setNames(g, line))
	assert.False(t, line.Inputs[1].IsLinked())
}

func TestMoveLineSetSkipsEmptySlots(t *testing.T) {
	g, line := lineWithSets(t, 2)
	require.NoError(t, InsertSocket(g, line, 1))
	require.NoError(t, MoveLineSet(g, line, 0, 1))
	assert.Equal(t, []string{"Line Set.001", "", "Line Set", ""}, setNames(g, line))

	assert.ErrorIs(t, MoveLineSet(g, line, 0, -1), ErrOutOfRange)
	assert.ErrorIs(t, MoveLineSet(g, line, 2, 1), ErrOutOfRange)
}

func TestDeleteIfUnused(t *testing.T) {
	g := nodegraph.New("")
	a, _ := g.AddNode(schema.TypeLineSet, "A")
	b, _ := g.AddNode(schema.TypeLineSet, "B")
	shared, _ := g.AddNode(schema.TypeBrushSettings, "Shared")
	own, _ := g.AddNode(schema.TypeBrushSettings, "Own")
	detail, _ := g.AddNode(schema.TypeBrushDetail, "Detail")
	_, err := g.Link(shared, a.Input("v_brush"))
	require.NoError(t, err)
	_, err = g.Link(shared, b.Input("v_brush"))
	require.NoError(t, err)
	_, err = g.Link(own, a.Input("h_brush"))
	require.NoError(t, err)
	_, err = g.Link(detail, own.Input(schema.SocketIDBrushDetail))
	require.NoError(t, err)

	// A brush that still feeds something is never deleted.
	assert.Empty(t, DeleteIfUnused(g, shared))

	deleted := DeleteIfUnused(g, a)
	assert.Equal(t, []*nodegraph.Node{a, own, detail}, deleted)
	assert.Same(t, shared, g.Node("Shared"))
	assert.Equal(t, 2, g.Len())
}

func TestDeleteIfUnusedThroughRelay(t *testing.T) {
	g := nodegraph.New("")
	set, _ := g.AddNode(schema.TypeLineSet, "")
	relay, _ := g.AddNode(schema.TypeReroute, "")
	brush, _ := g.AddNode(schema.TypeBrushSettings, "")
	_, err := g.Link(brush, relay.Inputs[0])
	require.NoError(t, err)
	_, err = g.Link(relay, set.Input("v_brush"))
	require.NoError(t, err)

	assert.Len(t, DeleteIfUnused(g, set), 3)
	assert.Zero(t, g.Len())
}

func TestCreateChildPlacement(t *testing.T) {
	g := nodegraph.New("")
	set, _ := g.AddNode(schema.TypeLineSet, "")
	set.Location = [2]float64{100, 100}

	reduction, err := CreateChild(g, set, set.InputIndex(set.Input("v_size_reduction")))
	require.NoError(t, err)
	assert.Equal(t, schema.TypeReductionSettings, reduction.Type.Name)
	// index 9: 100 - 340 + 180, 100 - 20*9 + 120
	assert.Equal(t, [2]float64{-60, 40}, reduction.Location)

	specific, err := CreateChild(g, set, set.InputIndex(set.Input("h_outline_specific")))
	require.NoError(t, err)
	// index 12: 100 - 340 - (660 + 20*(12 % 11)), 100 - 20*12
	assert.Equal(t, [2]float64{-920, -140}, specific.Location)

	brush, err := g.AddNode(schema.TypeBrushSettings, "")
	require.NoError(t, err)
	tex, err := CreateChild(g, brush, 2)
	require.NoError(t, err)
	assert.Equal(t, schema.TypeTextureMap, tex.Type.Name)
	assert.Equal(t, [2]float64{-160, -180}, tex.Location)

	relay, _ := g.AddNode(schema.TypeReroute, "")
	_, err = CreateChild(g, relay, 0)
	assert.ErrorIs(t, err, ErrNoProducer)
	_, err = CreateChild(g, brush, 2)
	assert.ErrorIs(t, err, ErrSlotLinked)
}

func TestAutoCreateOnEnable(t *testing.T) {
	g := nodegraph.New("")
	set, _ := g.AddNode(schema.TypeLineSet, "")
	stack := override.NewStack()

	child, err := AutoCreateOnEnable(g, set, "v_outline_specific", stack)
	require.NoError(t, err)
	assert.Nil(t, child)

	require.NoError(t, set.Set("v_outline_specific_on", true))
	child, err = AutoCreateOnEnable(g, set, "v_outline_specific", stack)
	require.NoError(t, err)
	require.NotNil(t, child)
	assert.Equal(t, schema.TypeBrushSettings, child.Type.Name)
	detail := g.ConnectedNode(child.Input(schema.SocketIDBrushDetail), false)
	require.NotNil(t, detail)

	// Already linked: nothing new.
	again, err := AutoCreateOnEnable(g, set, "v_outline_specific", stack)
	require.NoError(t, err)
	assert.Nil(t, again)

	// A scene override turning the switch on counts as well.
	stack.Layer(override.LayerScene).Set(override.Path(set.Name(), "h_alpha_reduction_on"), true)
	red, err := AutoCreateOnEnable(g, set, "h_alpha_reduction", stack)
	require.NoError(t, err)
	require.NotNil(t, red)
	assert.Equal(t, schema.TypeReductionSettings, red.Type.Name)
	assert.Equal(t, 4, g.Len())
}
