package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pencilgraph/pkg/maintain"
	"github.com/matzehuels/pencilgraph/pkg/override"
)

func press(t *testing.T, m linesModel, keys ...string) (linesModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		m = next.(linesModel)
	}
	return m, cmd
}

func TestLinesModelStartsOnActiveLine(t *testing.T) {
	g := newGraph(t, "Scene", 3)
	m := newLinesModel(g, override.NewStack())
	require.Len(t, m.lines, 3)
	assert.Equal(t, 2, m.cursor)
}

func TestLinesModelCursor(t *testing.T) {
	m := newLinesModel(newGraph(t, "Scene", 3), override.NewStack())

	m, _ = press(t, m, "k", "k", "k")
	assert.Equal(t, 0, m.cursor)
	m, _ = press(t, m, "j")
	assert.Equal(t, 1, m.cursor)
	assert.False(t, m.dirty)
}

func TestLinesModelMove(t *testing.T) {
	g := newGraph(t, "Scene", 3)
	m := newLinesModel(g, override.NewStack())
	top := m.lines[2]

	m, _ = press(t, m, "K", "K")
	assert.Equal(t, 0, m.cursor)
	assert.True(t, m.dirty)
	assert.Same(t, top, maintain.SortedLines(g)[0])

	// Moving past the top is ignored.
	m, _ = press(t, m, "K")
	assert.Equal(t, 0, m.cursor)
	assert.NoError(t, m.err)
}

func TestLinesModelAddAndMute(t *testing.T) {
	g := newGraph(t, "Scene", 1)
	m := newLinesModel(g, override.NewStack())

	m, _ = press(t, m, "a")
	require.Len(t, m.lines, 2)
	assert.Equal(t, 1, m.cursor)

	m, _ = press(t, m, "m")
	assert.True(t, m.lines[1].Muted)
	assert.Contains(t, m.View(), "(muted)")
}

func TestLinesModelSaveAndQuit(t *testing.T) {
	m := newLinesModel(newGraph(t, "Scene", 2), override.NewStack())

	saved, cmd := press(t, m, "s")
	require.NotNil(t, cmd)
	assert.False(t, saved.saved, "nothing to save")

	m, _ = press(t, m, "K")
	saved, _ = press(t, m, "s")
	assert.True(t, saved.saved)

	quit, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	assert.False(t, quit.saved)
}

func TestLinesModelView(t *testing.T) {
	m := newLinesModel(newGraph(t, "Scene", 2), override.NewStack())
	view := m.View()
	assert.Contains(t, view, "Lines of Scene")
	assert.Contains(t, view, "Line.001")
	assert.NotContains(t, view, "unsaved changes")
}
