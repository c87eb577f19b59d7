package nodegraph

import (
	"fmt"
	"slices"

	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// Link is a directed edge from an output socket to an input socket. Muted
// links stay in the graph but are logically inert.
type Link struct {
	From  *Socket
	To    *Socket
	Muted bool
}

func (l *Link) String() string {
	return fmt.Sprintf("%s -> %s", l.From, l.To)
}

// Links returns all links in creation order.
func (g *Graph) Links() []*Link { return slices.Clone(g.links) }

// Link connects the output of from to the input socket to. An existing link
// on to is replaced. Links whose kinds stop matching as a consequence (for
// example downstream of a relay) are pruned.
func (g *Graph) Link(from *Node, to *Socket) (*Link, error) {
	if !g.Contains(from) || to == nil || !g.Contains(to.node) {
		return nil, ErrUnknownNode
	}
	if from.Output == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoOutput, from.name)
	}
	if to.Direction != Input {
		return nil, fmt.Errorf("%w: %s", ErrNotInput, to)
	}
	if kind := g.OutputKind(from); !schema.Compatible(kind, to.Kind) {
		return nil, fmt.Errorf("%w: %s cannot feed %s (%s)", ErrIncompatibleLink, kind, to, to.Kind)
	}
	if from == to.node || g.feeds(to.node, from) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrCycle, from.name, to)
	}
	if to.link != nil {
		g.removeLink(to.link)
	}
	l := &Link{From: from.Output, To: to}
	to.link = l
	g.links = append(g.links, l)
	g.Prune()
	if to.link != l {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIncompatibleLink, from.name, to)
	}
	return l, nil
}

// Unlink removes l.
func (g *Graph) Unlink(l *Link) {
	if l == nil || !slices.Contains(g.links, l) {
		return
	}
	g.removeLink(l)
	g.Prune()
}

// SetLinkMuted mutes or unmutes l.
func (g *Graph) SetLinkMuted(l *Link, muted bool) { l.Muted = muted }

func (g *Graph) removeLink(l *Link) {
	g.links = slices.DeleteFunc(g.links, func(x *Link) bool { return x == l })
	if l.To.link == l {
		l.To.link = nil
	}
}

// OutputKind returns the kind n's output carries. A relay carries whatever
// feeds it, or [schema.SocketAny] when nothing does.
func (g *Graph) OutputKind(n *Node) schema.SocketKind {
	if n.Output == nil {
		return ""
	}
	if !n.IsRelay() {
		return n.Output.Kind
	}
	up := g.ConnectedNode(n.Inputs[0], false)
	if up == nil || up.Output == nil {
		return schema.SocketAny
	}
	return up.Output.Kind
}

// ConnectedNode returns the node feeding the input socket, looking through
// relays. With ignoreMuted set, a muted link anywhere on the way yields nil.
func (g *Graph) ConnectedNode(s *Socket, ignoreMuted bool) *Node {
	if s == nil {
		return nil
	}
	l := s.link
	for hops := 0; l != nil && hops <= len(g.nodes); hops++ {
		if ignoreMuted && l.Muted {
			return nil
		}
		n := l.From.node
		if !n.IsRelay() {
			return n
		}
		if len(n.Inputs) == 0 {
			return nil
		}
		l = n.Inputs[0].link
	}
	return nil
}

// LinksFrom returns the links leaving n's output, in creation order.
func (g *Graph) LinksFrom(n *Node) []*Link {
	if n.Output == nil {
		return nil
	}
	var out []*Link
	for _, l := range g.links {
		if l.From == n.Output {
			out = append(out, l)
		}
	}
	return out
}

// Consumers returns the nodes n feeds, looking through relays.
func (g *Graph) Consumers(n *Node) []*Node {
	var out []*Node
	seen := map[*Node]bool{n: true}
	var walk func(*Node)
	walk = func(from *Node) {
		for _, l := range g.LinksFrom(from) {
			to := l.To.node
			if seen[to] {
				continue
			}
			seen[to] = true
			if to.IsRelay() {
				walk(to)
				continue
			}
			out = append(out, to)
		}
	}
	walk(n)
	return out
}

// HasConsumers reports whether n feeds at least one non-relay node.
func (g *Graph) HasConsumers(n *Node) bool { return len(g.Consumers(n)) > 0 }

// Children returns the distinct nodes feeding n's inputs in socket order,
// looking through relays.
func (g *Graph) Children(n *Node) []*Node {
	var out []*Node
	for _, s := range n.Inputs {
		if c := g.ConnectedNode(s, false); c != nil && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// feeds reports whether a reaches b by following links downstream.
func (g *Graph) feeds(a, b *Node) bool {
	seen := map[*Node]bool{}
	stack := []*Node{a}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == b {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		for _, l := range g.LinksFrom(n) {
			stack = append(stack, l.To.node)
		}
	}
	return false
}

// Prune removes links whose endpoints left the graph or whose kinds no
// longer match, and returns how many were removed. Removing one link can
// change what a relay carries, so pruning repeats until nothing changes.
func (g *Graph) Prune() int {
	removed := 0
	for {
		var bad *Link
		for _, l := range g.links {
			if !g.valid(l) {
				bad = l
				break
			}
		}
		if bad == nil {
			return removed
		}
		g.removeLink(bad)
		removed++
	}
}

func (g *Graph) valid(l *Link) bool {
	from, to := l.From.node, l.To.node
	if !g.Contains(from) || !g.Contains(to) || l.To.link != l {
		return false
	}
	if !slices.Contains(to.Inputs, l.To) {
		return false
	}
	return schema.Compatible(g.OutputKind(from), l.To.Kind)
}
