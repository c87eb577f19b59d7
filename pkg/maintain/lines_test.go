package maintain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

func priorities(lines []*nodegraph.Node) []int {
	out := make([]int, len(lines))
	for i, l := range lines {
		out[i] = l.Int(schema.FieldRenderPriority)
	}
	return out
}

func names(lines []*nodegraph.Node) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Name()
	}
	return out
}

func TestNewLinePriority(t *testing.T) {
	g := nodegraph.New("")
	line1, err := NewLine(g)
	require.NoError(t, err)
	assert.Equal(t, "Line", line1.Name())
	assert.Equal(t, 0, line1.Int(schema.FieldRenderPriority))

	line2, err := NewLine(g)
	require.NoError(t, err)
	assert.Equal(t, "Line.001", line2.Name())
	assert.Equal(t, 1, line2.Int(schema.FieldRenderPriority))
	assert.Same(t, line2, g.Active())
	assert.Equal(t, [2]float64{0, -200}, line2.Location)
	require.Len(t, line2.Inputs, 1)
	assert.False(t, line2.Inputs[0].IsLinked())
}

func TestNewLineRenumbersAtLimit(t *testing.T) {
	g := nodegraph.New("")
	a, err := NewLine(g)
	require.NoError(t, err)
	require.NoError(t, a.Set(schema.FieldRenderPriority, schema.MaxRenderPriority))

	b, err := NewLine(g)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, priorities(SortedLines(g)))
	assert.Equal(t, []string{a.Name(), b.Name()}, names(SortedLines(g)))
}

func TestSortedLines(t *testing.T) {
	g := nodegraph.New("")
	for _, tc := range []struct {
		name string
		prio int
	}{{"B", 1}, {"A", 1}, {"C", 0}} {
		n, err := g.AddNode(schema.TypeLine, tc.name)
		require.NoError(t, err)
		require.NoError(t, n.Set(schema.FieldRenderPriority, tc.prio))
	}
	assert.Equal(t, []string{"C", "A", "B"}, names(SortedLines(g)))
}

func TestMovePriority(t *testing.T) {
	tests := []struct {
		name     string
		prio     []int
		src, tgt int
		want     []int
		order    []string
	}{
		{"distinct", []int{0, 1, 2}, 2, 1, []int{0, 1, 2}, []string{"L0", "L2", "L1"}},
		{"duplicates", []int{0, 0, 0}, 2, 1, []int{0, 1, 2}, []string{"L0", "L2", "L1"}},
		{"gaps", []int{3, 10, 50}, 0, 1, []int{2, 3, 50}, []string{"L1", "L0", "L2"}},
		{"clamp at zero", []int{0, 0, 5}, 1, 0, []int{0, 1, 5}, []string{"L1", "L0", "L2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := nodegraph.New("")
			for i, p := range tt.prio {
				n, err := g.AddNode(schema.TypeLine, "L"+string(rune('0'+i)))
				require.NoError(t, err)
				require.NoError(t, n.Set(schema.FieldRenderPriority, p))
			}
			require.NoError(t, MovePriority(g, tt.src, tt.tgt))
			lines := SortedLines(g)
			assert.Equal(t, tt.want, priorities(lines))
			assert.Equal(t, tt.order, names(lines))
			assert.Same(t, lines[tt.tgt], g.Active())
		})
	}
}

func TestMovePriorityRenormalizes(t *testing.T) {
	g := nodegraph.New("")
	for i, p := range []int{schema.MaxRenderPriority, schema.MaxRenderPriority, schema.MaxRenderPriority} {
		n, err := g.AddNode(schema.TypeLine, "L"+string(rune('0'+i)))
		require.NoError(t, err)
		require.NoError(t, n.Set(schema.FieldRenderPriority, p))
	}
	require.NoError(t, MovePriority(g, 0, 1))
	lines := SortedLines(g)
	assert.Equal(t, []int{0, 1, 2}, priorities(lines))
	assert.Equal(t, []string{"L1", "L0", "L2"}, names(lines))
}

func TestMovePriorityOutOfRange(t *testing.T) {
	g := nodegraph.New("")
	_, err := NewLine(g)
	require.NoError(t, err)
	assert.ErrorIs(t, MovePriority(g, 0, 1), ErrOutOfRange)
	assert.NoError(t, MovePriority(g, 0, 0))
}

func TestRemoveLine(t *testing.T) {
	g, line := lineWithSets(t, 1)
	other, err := NewLine(g)
	require.NoError(t, err)

	require.NoError(t, RemoveLine(g, line))
	assert.Equal(t, 1, g.Len())
	assert.Same(t, other, g.Active())

	set, _ := g.AddNode(schema.TypeLineSet, "")
	assert.ErrorIs(t, RemoveLine(g, set), ErrNotLine)
}

func TestNormalizePriorities(t *testing.T) {
	g := nodegraph.New("")
	for i, p := range []int{7, 40, 40} {
		n, err := g.AddNode(schema.TypeLine, "L"+string(rune('0'+i)))
		require.NoError(t, err)
		require.NoError(t, n.Set(schema.FieldRenderPriority, p))
	}
	assert.True(t, NormalizePriorities(g))
	assert.Equal(t, []int{0, 1, 2}, priorities(SortedLines(g)))
	assert.False(t, NormalizePriorities(g))
}
