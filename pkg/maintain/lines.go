package maintain

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// lineSpacing is the vertical distance between Lines created in a row.
const lineSpacing = 200

// SortedLines returns the Line nodes in display order: by render priority,
// then by name.
func SortedLines(g *nodegraph.Graph) []*nodegraph.Node {
	lines := g.Lines()
	slices.SortStableFunc(lines, func(a, b *nodegraph.Node) int {
		return cmp.Or(
			cmp.Compare(a.Int(schema.FieldRenderPriority), b.Int(schema.FieldRenderPriority)),
			cmp.Compare(a.Name(), b.Name()),
		)
	})
	return lines
}

// NewLine adds a Line after the existing ones: its priority is one more
// than the highest, and it is placed below the last Line until it does not
// overlap another. The new Line becomes active.
func NewLine(g *nodegraph.Graph) (*nodegraph.Node, error) {
	lines := SortedLines(g)
	priority := 0
	if len(lines) > 0 {
		top := slices.MaxFunc(lines, func(a, b *nodegraph.Node) int {
			return cmp.Compare(a.Int(schema.FieldRenderPriority), b.Int(schema.FieldRenderPriority))
		})
		priority = top.Int(schema.FieldRenderPriority) + 1
	}
	if priority > schema.MaxRenderPriority {
		NormalizePriorities(g)
		priority = len(lines)
	}

	loc := [2]float64{}
	if len(lines) > 0 {
		loc = lines[len(lines)-1].Location
	}
	for occupied(lines, loc) {
		loc[1] -= lineSpacing
	}

	line, err := g.AddNode(schema.TypeLine, "")
	if err != nil {
		return nil, err
	}
	line.Location = loc
	if err := line.Set(schema.FieldRenderPriority, priority); err != nil {
		_ = g.RemoveNode(line)
		return nil, err
	}
	if err := EnsureTrailingSlot(g, line); err != nil {
		return nil, err
	}
	g.SetActive(line)
	return line, nil
}

// NewLineSet creates a line set in the slot at index of line, together
// with a V and an H brush, each with its brush detail. A negative index
// moves the trailing slot to the front and uses it. The new line set is
// selected.
func NewLineSet(g *nodegraph.Graph, line *nodegraph.Node, index int) (*nodegraph.Node, error) {
	if line.Type.Name != schema.TypeLine {
		return nil, fmt.Errorf("%w: %s", ErrNotLine, line.Name())
	}
	if len(line.Inputs) == 0 {
		return nil, fmt.Errorf("%w: %s has no slots", ErrOutOfRange, line.Name())
	}
	if index < 0 {
		if err := g.MoveInput(line, len(line.Inputs)-1, 0); err != nil {
			return nil, err
		}
		index = 0
	}
	set, err := CreateChild(g, line, index)
	if err != nil {
		return nil, err
	}
	g.SelectLineSet(line, set)

	for _, id := range []string{schema.SocketIDVBrush, schema.SocketIDHBrush} {
		brush, err := CreateChild(g, set, set.InputIndex(set.Input(id)))
		if err != nil {
			return nil, err
		}
		if _, err := CreateChild(g, brush, 0); err != nil {
			return nil, err
		}
	}
	if err := EnsureTrailingSlot(g, line); err != nil {
		return nil, err
	}
	return set, nil
}

// RemoveLine deletes line and the subgraph only it used, then activates the
// next Line in display order (or the previous one for the last Line).
func RemoveLine(g *nodegraph.Graph, line *nodegraph.Node) error {
	if line.Type.Name != schema.TypeLine {
		return fmt.Errorf("%w: %s", ErrNotLine, line.Name())
	}
	lines := SortedLines(g)
	i := slices.Index(lines, line)
	if i < 0 {
		return nodegraph.ErrUnknownNode
	}
	var next *nodegraph.Node
	switch {
	case i < len(lines)-1:
		next = lines[i+1]
	case i > 0:
		next = lines[i-1]
	}
	DeleteIfUnused(g, line)
	g.SetActive(next)
	return nil
}

// MovePriority moves the Line at display position src to tgt by exchanging
// their priorities, then repairs the priorities so that they strictly
// increase in the new display order: walking up from the moved pair each
// priority is lowered below its successor, the first is clamped at 0, and
// walking down each is raised above its predecessor. Priorities that would
// leave the valid range are renumbered from 0.
func MovePriority(g *nodegraph.Graph, src, tgt int) error {
	lines := SortedLines(g)
	if src < 0 || tgt < 0 || src >= len(lines) || tgt >= len(lines) {
		return fmt.Errorf("%w: %d -> %d", ErrOutOfRange, src, tgt)
	}
	if src == tgt {
		return nil
	}
	prio := make([]int, len(lines))
	for i, l := range lines {
		prio[i] = l.Int(schema.FieldRenderPriority)
	}
	prio[src], prio[tgt] = prio[tgt], prio[src]
	lines[src], lines[tgt] = lines[tgt], lines[src]

	RepairPriorities(prio, min(src, tgt))
	if prio[len(prio)-1] > schema.MaxRenderPriority {
		for i := range prio {
			prio[i] = i
		}
	}
	for i, l := range lines {
		if err := l.Set(schema.FieldRenderPriority, prio[i]); err != nil {
			return err
		}
	}
	g.SetActive(lines[tgt])
	return nil
}

// RepairPriorities makes prio strictly increasing after the pair at
// (from, from+1) was exchanged.
func RepairPriorities(prio []int, from int) {
	if len(prio) == 0 {
		return
	}
	for i := min(from, len(prio)-2); i >= 0; i-- {
		prio[i] = min(prio[i], prio[i+1]-1)
	}
	prio[0] = max(prio[0], 0)
	for i := 1; i < len(prio); i++ {
		prio[i] = max(prio[i], prio[i-1]+1)
	}
}

// NormalizePriorities renumbers the Lines 0..N-1 in display order. It
// reports whether any priority changed.
func NormalizePriorities(g *nodegraph.Graph) bool {
	changed := false
	for i, l := range SortedLines(g) {
		if l.Int(schema.FieldRenderPriority) != i {
			_ = l.Set(schema.FieldRenderPriority, i)
			changed = true
		}
	}
	return changed
}
