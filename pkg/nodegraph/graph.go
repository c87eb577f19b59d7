package nodegraph

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

var (
	// ErrDuplicateName is returned by [Graph.AddNamedNode] and
	// [Graph.RenameNode] when the name is taken.
	ErrDuplicateName = errors.New("duplicate node name")

	// ErrUnknownNode is returned when a node does not belong to the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrIncompatibleLink is returned by [Graph.Link] when the output kind
	// cannot feed the input kind.
	ErrIncompatibleLink = errors.New("incompatible socket kinds")

	// ErrCycle is returned by [Graph.Link] when the link would close a cycle.
	ErrCycle = errors.New("link would create a cycle")

	// ErrNoOutput is returned by [Graph.Link] for nodes without an output.
	ErrNoOutput = errors.New("node has no output")

	// ErrNotInput is returned when an input socket is expected.
	ErrNotInput = errors.New("socket is not an input")

	// ErrFixedSocket is returned when a socket list edit targets a socket
	// that is not part of a collection.
	ErrFixedSocket = errors.New("socket is not part of a collection")

	// ErrSocketIndex is returned for out-of-range socket positions.
	ErrSocketIndex = errors.New("socket index out of range")
)

// Metadata stores arbitrary key-value pairs attached to a graph, such as the
// document it was loaded from.
type Metadata map[string]any

// DefaultName is the name of graphs created without one.
const DefaultName = "Pencil+ 4 Line Node Tree"

// Graph is a node tree. Nodes are addressed by name.
//
// The zero value is not usable - use [New] or [NewWithRegistry].
type Graph struct {
	ID   string
	Name string
	Meta Metadata

	Curves    *CurveStore
	Selection Selection

	registry  *schema.Registry
	nodes     map[string]*Node
	links     []*Link
	materials map[string]string // material -> LineFunctions node name
}

// New creates an empty graph using the built-in node types.
func New(name string) *Graph {
	return NewWithRegistry(name, schema.Default())
}

// NewWithRegistry creates an empty graph whose nodes are declared by reg.
func NewWithRegistry(name string, reg *schema.Registry) *Graph {
	if name == "" {
		name = DefaultName
	}
	return &Graph{
		ID:        uuid.NewString(),
		Name:      name,
		Meta:      Metadata{},
		Curves:    NewCurveStore(),
		registry:  reg,
		nodes:     make(map[string]*Node),
		materials: make(map[string]string),
	}
}

// Registry returns the schema registry nodes are instantiated from.
func (g *Graph) Registry() *schema.Registry { return g.registry }

// =============================================================================
// Nodes
// =============================================================================

// AddNode instantiates a node of the named type. An empty name uses the
// type's label; a taken name gets the next free ".NNN" suffix. Every
// declared input is created once, defaults are seeded and curve fields get
// a fresh curve in the store.
func (g *Graph) AddNode(typeName, name string) (*Node, error) {
	t, err := g.registry.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = t.Label
	}
	if err := pgerrors.ValidateNodeName(name); err != nil {
		return nil, err
	}
	return g.insert(t, g.uniqueName(name)), nil
}

// AddNamedNode is like AddNode but fails with ErrDuplicateName instead of
// renaming.
func (g *Graph) AddNamedNode(typeName, name string) (*Node, error) {
	if _, taken := g.nodes[name]; taken {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	return g.AddNode(typeName, name)
}

func (g *Graph) insert(t *schema.NodeType, name string) *Node {
	n := &Node{Type: t, name: name, values: t.Defaults(), graph: g}
	for _, d := range t.Inputs {
		n.Inputs = append(n.Inputs, newSocket(n, d))
	}
	if t.Output != "" {
		n.Output = &Socket{ID: OutputID, Name: t.Label, Kind: t.Output, Direction: Output, node: n}
	}
	for _, f := range t.Fields {
		if f.Kind == schema.KindCurve {
			pts := make([]Point, len(f.CurvePoints))
			for i, p := range f.CurvePoints {
				pts[i] = Point{X: p[0], Y: p[1]}
			}
			n.values[f.Name] = g.Curves.Create(pts)
		}
	}
	g.nodes[name] = n
	return n
}

// uniqueName returns name if free, otherwise base.001, base.002, ...
func (g *Graph) uniqueName(name string) string {
	if _, taken := g.nodes[name]; !taken {
		return name
	}
	base := name
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		if _, err := strconv.Atoi(name[i+1:]); err == nil {
			base = name[:i]
		}
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%03d", base, i)
		if _, taken := g.nodes[candidate]; !taken {
			return candidate
		}
	}
}

// Node returns the named node, or nil.
func (g *Graph) Node(name string) *Node { return g.nodes[name] }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Contains reports whether n belongs to the graph.
func (g *Graph) Contains(n *Node) bool {
	return n != nil && g.nodes[n.name] == n
}

// Nodes returns all nodes sorted by name.
func (g *Graph) Nodes() []*Node {
	names := slices.Sorted(maps.Keys(g.nodes))
	out := make([]*Node, len(names))
	for i, name := range names {
		out[i] = g.nodes[name]
	}
	return out
}

// NodesOfType returns the nodes of the named type sorted by name.
func (g *Graph) NodesOfType(typeName string) []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.Type.Name == typeName {
			out = append(out, n)
		}
	}
	return out
}

// Lines returns the Line nodes sorted by name.
func (g *Graph) Lines() []*Node { return g.NodesOfType(schema.TypeLine) }

// RemoveNode deletes n together with every link touching it. Curves only
// n referenced are released and material attachments to n are dropped.
func (g *Graph) RemoveNode(n *Node) error {
	if !g.Contains(n) {
		return ErrUnknownNode
	}
	g.links = slices.DeleteFunc(g.links, func(l *Link) bool {
		if l.From.node == n || l.To.node == n {
			l.To.link = nil
			return true
		}
		return false
	})
	delete(g.nodes, n.name)
	n.graph = nil

	for _, key := range curveKeys(n) {
		g.ReleaseCurve(key)
	}
	for mat, name := range g.materials {
		if name == n.name {
			delete(g.materials, mat)
		}
	}
	g.Prune()
	return nil
}

// RenameNode renames n. Material attachments follow the node.
func (g *Graph) RenameNode(n *Node, name string) error {
	if !g.Contains(n) {
		return ErrUnknownNode
	}
	if name == n.name {
		return nil
	}
	if err := pgerrors.ValidateNodeName(name); err != nil {
		return err
	}
	if _, taken := g.nodes[name]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	for mat, fn := range g.materials {
		if fn == n.name {
			g.materials[mat] = name
		}
	}
	g.Selection.renamed(n.name, name)
	delete(g.nodes, n.name)
	n.name = name
	g.nodes[name] = n
	return nil
}

// =============================================================================
// Input lists
// =============================================================================

// InsertInput inserts a fresh unlinked slot of collection id at index.
func (g *Graph) InsertInput(n *Node, id string, index int) (*Socket, error) {
	if !g.Contains(n) {
		return nil, ErrUnknownNode
	}
	d, ok := n.Type.Socket(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", schema.ErrUnknownSocket, n.Type.Name, id)
	}
	if !d.Multi {
		return nil, fmt.Errorf("%w: %s", ErrFixedSocket, id)
	}
	if index < 0 || index > len(n.Inputs) {
		return nil, fmt.Errorf("%w: %d", ErrSocketIndex, index)
	}
	s := newSocket(n, d)
	n.Inputs = slices.Insert(n.Inputs, index, s)
	return s, nil
}

// AppendInput appends a fresh unlinked slot of collection id.
func (g *Graph) AppendInput(n *Node, id string) (*Socket, error) {
	return g.InsertInput(n, id, len(n.Inputs))
}

// MoveInput moves the input at from so it ends up at index to. Sockets
// move with their links.
func (g *Graph) MoveInput(n *Node, from, to int) error {
	if !g.Contains(n) {
		return ErrUnknownNode
	}
	if from < 0 || from >= len(n.Inputs) || to < 0 || to >= len(n.Inputs) {
		return fmt.Errorf("%w: %d -> %d", ErrSocketIndex, from, to)
	}
	s := n.Inputs[from]
	n.Inputs = slices.Delete(n.Inputs, from, from+1)
	n.Inputs = slices.Insert(n.Inputs, to, s)
	return nil
}

// RemoveInput removes the collection slot at index together with its link
// and returns the node that was connected to it, if any.
func (g *Graph) RemoveInput(n *Node, index int) (*Node, error) {
	if !g.Contains(n) {
		return nil, ErrUnknownNode
	}
	if index < 0 || index >= len(n.Inputs) {
		return nil, fmt.Errorf("%w: %d", ErrSocketIndex, index)
	}
	s := n.Inputs[index]
	if !s.Multi {
		return nil, fmt.Errorf("%w: %s", ErrFixedSocket, s.ID)
	}
	child := g.ConnectedNode(s, false)
	if s.link != nil {
		g.removeLink(s.link)
	}
	n.Inputs = slices.Delete(n.Inputs, index, index+1)
	s.node = nil
	g.Prune()
	return child, nil
}

// =============================================================================
// Material side table
// =============================================================================

// AttachFunctions attaches a LineFunctions node to a material, replacing any
// previous attachment.
func (g *Graph) AttachFunctions(material string, fn *Node) error {
	if !g.Contains(fn) {
		return ErrUnknownNode
	}
	if fn.Type.Name != schema.TypeLineFunctions {
		return fmt.Errorf("%w: %s is a %s", ErrIncompatibleLink, fn.name, fn.Type.Name)
	}
	g.materials[material] = fn.name
	return nil
}

// DetachFunctions removes the attachment of material.
func (g *Graph) DetachFunctions(material string) { delete(g.materials, material) }

// FunctionsFor returns the LineFunctions node attached to material, or nil.
func (g *Graph) FunctionsFor(material string) *Node {
	if name, ok := g.materials[material]; ok {
		return g.nodes[name]
	}
	return nil
}

// Materials returns the materials that have an attachment, sorted.
func (g *Graph) Materials() []string {
	return slices.Sorted(maps.Keys(g.materials))
}

// MaterialsOf returns the materials fn is attached to, sorted.
func (g *Graph) MaterialsOf(fn *Node) []string {
	var out []string
	for mat, name := range g.materials {
		if name == fn.name {
			out = append(out, mat)
		}
	}
	slices.Sort(out)
	return out
}

// =============================================================================
// Curves
// =============================================================================

// CurveRefs counts the node fields referencing the curve key.
func (g *Graph) CurveRefs(key string) int {
	refs := 0
	for _, n := range g.nodes {
		for _, k := range curveKeys(n) {
			if k == key {
				refs++
			}
		}
	}
	return refs
}

// ReleaseCurve deletes the curve when no node references it any more. It
// reports whether the curve was deleted.
func (g *Graph) ReleaseCurve(key string) bool {
	if key == "" || g.CurveRefs(key) > 0 {
		return false
	}
	return g.Curves.Delete(key)
}

// CurveFields returns the curve field names of n with their keys.
func CurveFields(n *Node) map[string]string {
	out := make(map[string]string)
	for _, f := range n.Type.Fields {
		if f.Kind != schema.KindCurve {
			continue
		}
		if key, _ := n.values[f.Name].(string); key != "" {
			out[f.Name] = key
		}
	}
	return out
}

func curveKeys(n *Node) []string {
	return slices.Collect(maps.Values(CurveFields(n)))
}
