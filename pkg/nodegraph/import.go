package nodegraph

import (
	"fmt"
	"maps"

	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// Import copies the nodes of src into g. Names that are taken in g get the
// next free ".NNN" suffix. Socket lists, stored values, internal links and
// material attachments are copied; an imported attachment replaces g's
// attachment for the same material. Curve keys are copied verbatim, so the
// curves they name must already exist in g's store.
//
// The returned map takes every source name to the name of its copy. Both
// graphs must use the same registry.
func (g *Graph) Import(src *Graph) (map[string]string, error) {
	if src == g {
		return nil, fmt.Errorf("%w: cannot import a graph into itself", ErrUnknownNode)
	}
	if src.registry != g.registry {
		for _, n := range src.nodes {
			if _, err := g.registry.Lookup(n.Type.Name); err != nil {
				return nil, err
			}
		}
	}

	names := make(map[string]string, len(src.nodes))
	sockets := make(map[*Socket]*Socket)
	for _, n := range src.Nodes() {
		t, _ := g.registry.Lookup(n.Type.Name)
		cn := &Node{
			Type:     t,
			Location: n.Location,
			Muted:    n.Muted,
			name:     g.uniqueName(n.name),
			values:   n.Values(),
			graph:    g,
		}
		for _, s := range n.Inputs {
			cs := &Socket{ID: s.ID, Name: s.Name, Kind: s.Kind, Direction: Input, Multi: s.Multi, node: cn}
			cn.Inputs = append(cn.Inputs, cs)
			sockets[s] = cs
		}
		if n.Output != nil {
			out := *n.Output
			out.node = cn
			out.link = nil
			cn.Output = &out
			sockets[n.Output] = cn.Output
		}
		g.nodes[cn.name] = cn
		names[n.name] = cn.name
	}
	for _, l := range src.links {
		cl := &Link{From: sockets[l.From], To: sockets[l.To], Muted: l.Muted}
		cl.To.link = cl
		g.links = append(g.links, cl)
	}
	for mat, fn := range src.materials {
		g.materials[mat] = names[fn]
	}
	g.Prune()
	return names, nil
}

// Assign replaces the contents of g with those of c, which must not be
// used afterwards. g keeps its ID. Nodes previously held from g are no
// longer part of it.
func (g *Graph) Assign(c *Graph) {
	id := g.ID
	for _, n := range g.nodes {
		n.graph = nil
	}
	*g = Graph{
		ID:        id,
		Name:      c.Name,
		Meta:      c.Meta,
		Curves:    c.Curves,
		Selection: c.Selection,
		registry:  c.registry,
		nodes:     c.nodes,
		links:     c.links,
		materials: c.materials,
	}
	for _, n := range g.nodes {
		n.graph = g
	}
	*c = Graph{}
}

// Clear removes every node, link, curve, attachment and selection marker.
// Name, ID and metadata are kept.
func (g *Graph) Clear() {
	for _, n := range g.nodes {
		n.graph = nil
	}
	for _, l := range g.links {
		l.To.link = nil
	}
	g.nodes = make(map[string]*Node)
	g.links = nil
	g.materials = make(map[string]string)
	g.Curves = NewCurveStore()
	g.Selection = Selection{}
}

// MaterialTable returns a copy of the material attachments, material to
// LineFunctions node name.
func (g *Graph) MaterialTable() map[string]string { return maps.Clone(g.materials) }

// SetInputs rebuilds the input list of an unlinked node from socket IDs in
// order. Every fixed socket must appear exactly once; collection sockets
// may repeat. It is used when restoring saved documents.
func (g *Graph) SetInputs(n *Node, ids []string) error {
	if !g.Contains(n) {
		return ErrUnknownNode
	}
	for _, s := range n.Inputs {
		if s.link != nil {
			return fmt.Errorf("%w: %s has links", ErrFixedSocket, n.name)
		}
	}
	seen := make(map[string]int, len(ids))
	inputs := make([]*Socket, 0, len(ids))
	for _, id := range ids {
		d, ok := n.Type.Socket(id)
		if !ok {
			return fmt.Errorf("%w: %s.%s", schema.ErrUnknownSocket, n.Type.Name, id)
		}
		seen[id]++
		if !d.Multi && seen[id] > 1 {
			return fmt.Errorf("%w: %s repeated", ErrFixedSocket, id)
		}
		inputs = append(inputs, newSocket(n, d))
	}
	for _, d := range n.Type.Inputs {
		if !d.Multi && seen[d.ID] == 0 {
			return fmt.Errorf("%w: %s.%s missing", schema.ErrUnknownSocket, n.Type.Name, d.ID)
		}
	}
	for _, s := range n.Inputs {
		s.node = nil
	}
	n.Inputs = inputs
	return nil
}
