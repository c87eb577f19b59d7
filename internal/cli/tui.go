package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/pencilgraph/pkg/export"
	"github.com/matzehuels/pencilgraph/pkg/maintain"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// linesModel - Interactive Line list
// =============================================================================

// linesModel edits the Line list of one graph in place: reordering changes
// render priorities, and nothing is written unless the user saves.
type linesModel struct {
	graph *nodegraph.Graph
	stack override.Stack

	lines  []*nodegraph.Node
	cursor int
	dirty  bool
	saved  bool
	err    error
}

func newLinesModel(g *nodegraph.Graph, stack override.Stack) linesModel {
	m := linesModel{graph: g, stack: stack}
	m.refresh()
	if a := g.Active(); a != nil {
		for i, l := range m.lines {
			if l == a {
				m.cursor = i
			}
		}
	}
	return m
}

func (m *linesModel) refresh() {
	m.lines = maintain.SortedLines(m.graph)
	if m.cursor >= len(m.lines) {
		m.cursor = max(len(m.lines)-1, 0)
	}
}

// move shifts the Line under the cursor by delta display positions.
func (m *linesModel) move(delta int) {
	tgt := m.cursor + delta
	if tgt < 0 || tgt >= len(m.lines) {
		return
	}
	if err := maintain.MovePriority(m.graph, m.cursor, tgt); err != nil {
		m.err = err
		return
	}
	m.cursor = tgt
	m.dirty = true
	m.refresh()
}

func (m *linesModel) add() {
	line, err := maintain.NewLine(m.graph)
	if err != nil {
		m.err = err
		return
	}
	m.dirty = true
	m.refresh()
	for i, l := range m.lines {
		if l == line {
			m.cursor = i
		}
	}
}

func (m *linesModel) toggleMute() {
	if len(m.lines) == 0 {
		return
	}
	l := m.lines[m.cursor]
	l.Muted = !l.Muted
	m.dirty = true
}

func (m linesModel) Init() tea.Cmd {
	return nil
}

func (m linesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.err = nil
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "s", "enter":
		m.saved = m.dirty
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.lines)-1 {
			m.cursor++
		}
	case "shift+up", "K":
		m.move(-1)
	case "shift+down", "J":
		m.move(1)
	case "a":
		m.add()
	case " ", "m":
		m.toggleMute()
	}
	return m, nil
}

func (m linesModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Lines of " + m.graph.Name))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ select  K/J move  a add  m mute  s save  q quit"))
	b.WriteString("\n\n")

	if len(m.lines) == 0 {
		b.WriteString(listDimStyle.Render("  no lines"))
		b.WriteString("\n")
	}
	for i, l := range m.lines {
		cursor, style := "  ", listNormalStyle
		if i == m.cursor {
			cursor, style = "▸ ", listSelectedStyle
		}
		if !export.Live(l, m.stack) {
			style = listDimStyle
		}
		state := ""
		if l.Muted {
			state = " (muted)"
		}
		b.WriteString(cursor)
		b.WriteString(style.Render(fmt.Sprintf("%-24s", l.Name())))
		b.WriteString(listDimStyle.Render(" " + strconv.Itoa(l.Int(schema.FieldRenderPriority)) + state))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(listErrorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	if m.dirty {
		b.WriteString("\n")
		b.WriteString(StyleWarning.Render("unsaved changes"))
		b.WriteString("\n")
	}
	return b.String()
}
