package nodegraph

// marker remembers a node by pointer and by name. The pointer goes stale
// when a graph is cloned or merged; the name survives.
type marker struct {
	node *Node
	name string
}

func (m marker) resolve(g *Graph) *Node {
	if m.node != nil && g.Contains(m.node) {
		return m.node
	}
	if m.name == "" {
		return nil
	}
	return g.nodes[m.name]
}

// Selection holds the graph's selection markers: the active node and, per
// Line, the selected line set.
type Selection struct {
	active   marker
	lineSets map[string]marker // keyed by Line name
}

// SetActive marks n as the active node. A nil node clears the marker.
func (g *Graph) SetActive(n *Node) {
	if n == nil {
		g.Selection.active = marker{}
		return
	}
	g.Selection.active = marker{node: n, name: n.name}
}

// Active returns the active node, or nil.
func (g *Graph) Active() *Node { return g.Selection.active.resolve(g) }

// SelectLineSet records set as the selected line set of line.
func (g *Graph) SelectLineSet(line, set *Node) {
	if g.Selection.lineSets == nil {
		g.Selection.lineSets = make(map[string]marker)
	}
	if set == nil {
		delete(g.Selection.lineSets, line.name)
		return
	}
	g.Selection.lineSets[line.name] = marker{node: set, name: set.name}
}

// SelectedLineSet returns the selected line set of line, or nil.
func (g *Graph) SelectedLineSet(line *Node) *Node {
	return g.Selection.lineSets[line.name].resolve(g)
}

func (s *Selection) renamed(from, to string) {
	if s.active.name == from {
		s.active.name = to
	}
	for line, m := range s.lineSets {
		if m.name == from {
			m.name = to
			s.lineSets[line] = m
		}
	}
	if m, ok := s.lineSets[from]; ok {
		delete(s.lineSets, from)
		s.lineSets[to] = m
	}
}

func (s Selection) clone() Selection {
	c := Selection{active: marker{name: s.active.name}}
	if s.lineSets != nil {
		c.lineSets = make(map[string]marker, len(s.lineSets))
		for line, m := range s.lineSets {
			c.lineSets[line] = marker{name: m.name}
		}
	}
	return c
}
