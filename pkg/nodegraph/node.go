package nodegraph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// Direction tells inputs from outputs.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// OutputID is the identifier of every node's output socket.
const OutputID = "output"

// Socket is a typed connection point on a node. An input holds at most one
// link; an output may feed any number of inputs.
type Socket struct {
	ID        string
	Name      string
	Kind      schema.SocketKind
	Direction Direction
	Multi     bool

	node *Node
	link *Link // inputs only
}

// Node returns the node that owns the socket.
func (s *Socket) Node() *Node { return s.node }

// Link returns the link feeding an input socket, or nil.
func (s *Socket) Link() *Link { return s.link }

// IsLinked reports whether an input socket has a link.
func (s *Socket) IsLinked() bool { return s.link != nil }

func (s *Socket) String() string {
	if s.node == nil {
		return s.ID
	}
	return s.node.name + ":" + s.ID
}

// Node is an instance of a [schema.NodeType].
//
// The zero value is not usable - nodes are created by [Graph.AddNode].
type Node struct {
	Type     *schema.NodeType
	Location [2]float64
	Muted    bool

	// Inputs are ordered; collection sockets repeat the same ID.
	Inputs []*Socket
	// Output is nil for nodes that produce nothing (Line, LineFunctions).
	Output *Socket

	name   string
	values map[string]any
	graph  *Graph
}

// Name returns the node's name, unique within its graph.
func (n *Node) Name() string { return n.name }

// Graph returns the owning graph, or nil after the node was removed.
func (n *Node) Graph() *Graph { return n.graph }

// Attr returns the stored value of field.
func (n *Node) Attr(field string) (any, bool) {
	v, ok := n.values[field]
	return v, ok
}

// Fields returns the names of the stored fields, sorted.
func (n *Node) Fields() []string {
	return slices.Sorted(maps.Keys(n.values))
}

// Values returns a copy of the stored values.
func (n *Node) Values() map[string]any {
	out := make(map[string]any, len(n.values))
	for k, v := range n.values {
		out[k] = copyValue(v)
	}
	return out
}

// Set stores v in a declared field after checking it against the schema.
// Integers are accepted for float fields.
func (n *Node) Set(field string, v any) error {
	f, ok := n.Type.Field(field)
	if !ok {
		return fmt.Errorf("%w: %s.%s", schema.ErrUnknownField, n.Type.Name, field)
	}
	if i, isInt := v.(int); isInt && f.Kind == schema.KindFloat {
		v = float64(i)
	}
	if err := schema.Check(f, v); err != nil {
		return err
	}
	n.values[field] = copyValue(v)
	return nil
}

// Bool returns a stored boolean, or false.
func (n *Node) Bool(field string) bool {
	b, _ := n.values[field].(bool)
	return b
}

// Int returns a stored integer, or 0.
func (n *Node) Int(field string) int {
	i, _ := n.values[field].(int)
	return i
}

// Text returns a stored string, or "".
func (n *Node) Text(field string) string {
	s, _ := n.values[field].(string)
	return s
}

// Input returns the first input with the given ID, or nil.
func (n *Node) Input(id string) *Socket {
	for _, s := range n.Inputs {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// InputIndex returns the position of s in the input list, or -1.
func (n *Node) InputIndex(s *Socket) int {
	return slices.Index(n.Inputs, s)
}

// InputsWithPrefix returns the inputs whose ID starts with prefix, in order.
func (n *Node) InputsWithPrefix(prefix string) []*Socket {
	var out []*Socket
	for _, s := range n.Inputs {
		if strings.HasPrefix(s.ID, prefix) {
			out = append(out, s)
		}
	}
	return out
}

// IsRelay reports whether the node is a pass-through relay.
func (n *Node) IsRelay() bool { return n.Type.Relay }

func newSocket(n *Node, d schema.SocketDecl) *Socket {
	return &Socket{ID: d.ID, Name: d.Name, Kind: d.Kind, Direction: Input, Multi: d.Multi, node: n}
}

func copyValue(v any) any {
	switch x := v.(type) {
	case []float64:
		return slices.Clone(x)
	case []string:
		return slices.Clone(x)
	}
	return v
}
