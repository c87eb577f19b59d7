package maintain

import "github.com/matzehuels/pencilgraph/pkg/nodegraph"

// DeleteIfUnused deletes n when its output feeds nothing, together with
// every node that is left feeding only deleted nodes. Relays count as
// regular nodes here. It returns the deleted nodes in deletion order.
func DeleteIfUnused(g *nodegraph.Graph, n *nodegraph.Node) []*nodegraph.Node {
	doomed := Unused(g, n)
	for _, d := range doomed {
		_ = g.RemoveNode(d)
	}
	return doomed
}

// Unused returns the nodes DeleteIfUnused would delete, without deleting
// them.
func Unused(g *nodegraph.Graph, n *nodegraph.Node) []*nodegraph.Node {
	if !g.Contains(n) || len(g.LinksFrom(n)) > 0 {
		return nil
	}
	set := map[*nodegraph.Node]bool{n: true}
	order := []*nodegraph.Node{n}
	for i := 0; i < len(order); i++ {
		for _, child := range directChildren(order[i]) {
			if set[child] || !onlyFeeds(g, child, set) {
				continue
			}
			set[child] = true
			order = append(order, child)
		}
	}
	return order
}

// directChildren returns the nodes linked into n's inputs without looking
// through relays.
func directChildren(n *nodegraph.Node) []*nodegraph.Node {
	var out []*nodegraph.Node
	seen := map[*nodegraph.Node]bool{}
	for _, s := range n.Inputs {
		l := s.Link()
		if l == nil {
			continue
		}
		if c := l.From.Node(); !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func onlyFeeds(g *nodegraph.Graph, n *nodegraph.Node, set map[*nodegraph.Node]bool) bool {
	for _, l := range g.LinksFrom(n) {
		if !set[l.To.Node()] {
			return false
		}
	}
	return true
}
