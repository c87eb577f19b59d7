package nodegraph

import "maps"

// Clone returns a deep copy of the graph with the same ID and name. Nodes,
// sockets, links, curves, material attachments and selection markers are
// copied; selection markers of the copy resolve by name.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		ID:        g.ID,
		Name:      g.Name,
		Meta:      maps.Clone(g.Meta),
		Curves:    g.Curves.Clone(),
		Selection: g.Selection.clone(),
		registry:  g.registry,
		nodes:     make(map[string]*Node, len(g.nodes)),
		materials: maps.Clone(g.materials),
	}
	if c.Meta == nil {
		c.Meta = Metadata{}
	}

	sockets := make(map[*Socket]*Socket)
	for name, n := range g.nodes {
		cn := &Node{
			Type:     n.Type,
			Location: n.Location,
			Muted:    n.Muted,
			name:     name,
			values:   n.Values(),
			graph:    c,
		}
		for _, s := range n.Inputs {
			cs := &Socket{ID: s.ID, Name: s.Name, Kind: s.Kind, Direction: Input, Multi: s.Multi, node: cn}
			cn.Inputs = append(cn.Inputs, cs)
			sockets[s] = cs
		}
		if n.Output != nil {
			out := *n.Output
			out.node = cn
			cn.Output = &out
			sockets[n.Output] = cn.Output
		}
		c.nodes[name] = cn
	}
	for _, l := range g.links {
		cl := &Link{From: sockets[l.From], To: sockets[l.To], Muted: l.Muted}
		cl.To.link = cl
		c.links = append(c.links, cl)
	}
	return c
}
