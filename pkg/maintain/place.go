package maintain

import (
	"math"
	"strings"

	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// position computes where a child created for the input at index goes:
// location + step*index + offset, with per-type adjustments.
func position(g *nodegraph.Graph, n *nodegraph.Node, index int) [2]float64 {
	switch n.Type.Name {
	case schema.TypeLine:
		return lineSlotPosition(g, n, index)
	case schema.TypeLineSet:
		return lineSetSlotPosition(n, index)
	}
	return basePosition(n, index)
}

func basePosition(n *nodegraph.Node, index int) [2]float64 {
	p := n.Type.Placement
	return [2]float64{
		n.Location[0] + p.StepX*float64(index) + p.OffsetX,
		n.Location[1] + p.StepY*float64(index) + p.OffsetY,
	}
}

// lineSetSlotPosition moves reduction settings to the right of the brush
// column and staggers per-category brushes to the left.
func lineSetSlotPosition(n *nodegraph.Node, index int) [2]float64 {
	pos := basePosition(n, index)
	id := n.Inputs[index].ID
	if id == schema.SocketIDVBrush || id == schema.SocketIDHBrush {
		return pos
	}
	if strings.HasSuffix(id, "reduction") {
		pos[0] += 180
		if strings.HasSuffix(id, "size_reduction") {
			pos[1] += 120
		} else {
			pos[1] += 80
		}
		return pos
	}
	half := float64(len(n.Inputs)) / 2
	pos[0] -= 660 + 20*math.Mod(float64(index), half)
	return pos
}

// lineSlotPosition places a new line set between its linked neighbours in
// the list, stepping until it does not sit on top of an existing one.
func lineSlotPosition(g *nodegraph.Graph, n *nodegraph.Node, index int) [2]float64 {
	p := n.Type.Placement
	pos := basePosition(n, 0)
	step := [2]float64{p.StepX, p.StepY}

	connected := make([]*nodegraph.Node, len(n.Inputs))
	for i, s := range n.Inputs {
		connected[i] = g.ConnectedNode(s, false)
	}
	var up, down *nodegraph.Node
	for i := index - 1; i >= 0 && up == nil; i-- {
		up = connected[i]
	}
	for i := index + 1; i < len(connected) && down == nil; i++ {
		down = connected[i]
	}
	switch {
	case up != nil && down != nil:
		pos = [2]float64{(up.Location[0] + down.Location[0]) / 2, (up.Location[1] + down.Location[1]) / 2}
		step = [2]float64{20, -20}
	case up != nil:
		pos = up.Location
	case down != nil:
		pos = down.Location
		step[1] = -step[1]
	}

	for occupied(connected, pos) {
		pos = [2]float64{pos[0] + step[0], pos[1] + step[1]}
	}
	return pos
}

func occupied(nodes []*nodegraph.Node, pos [2]float64) bool {
	for _, n := range nodes {
		if n != nil && math.Abs(n.Location[0]-pos[0]) < 1 && math.Abs(n.Location[1]-pos[1]) < 1 {
			return true
		}
	}
	return false
}
