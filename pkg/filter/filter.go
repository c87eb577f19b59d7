// Package filter decides which input sockets of a node are currently active.
//
// A socket is active when its generic gate holds, that is the resolved
// `<id>_on` (default true) is set and the resolved `<id>_amount` and
// `<id>_opacity` (default 1) are positive, and when every gate declared for
// the node's type holds as well. Results are never cached: they depend on
// override layers that can change between any two reads. The export pass
// treats an inactive socket exactly like an unconnected one.
package filter

import (
	"strings"

	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// Gate is an extra activity predicate for the sockets of one node type.
type Gate func(n *nodegraph.Node, id string, stack override.Stack) bool

var gates = map[string]Gate{
	schema.TypeLineSet:     lineSetGate,
	schema.TypeBrushDetail: brushDetailGate,
}

// SocketID returns id when the socket is active on n and "" when it is
// suppressed.
func SocketID(n *nodegraph.Node, id string, stack override.Stack) string {
	if !override.Bool(n, id+"_on", stack, true) ||
		override.Float(n, id+"_amount", stack, 1) <= 0 ||
		override.Float(n, id+"_opacity", stack, 1) <= 0 {
		return ""
	}
	if gate, ok := gates[n.Type.Name]; ok && !gate(n, id, stack) {
		return ""
	}
	return id
}

// Active reports whether the socket s is active on its node.
func Active(s *nodegraph.Socket, stack override.Stack) bool {
	return s.Node() != nil && SocketID(s.Node(), s.ID, stack) != ""
}

// ActiveInputs returns the active inputs of n in order.
func ActiveInputs(n *nodegraph.Node, stack override.Stack) []*nodegraph.Socket {
	var out []*nodegraph.Socket
	for _, s := range n.Inputs {
		if SocketID(n, s.ID, stack) != "" {
			out = append(out, s)
		}
	}
	return out
}

// ConnectedNode returns the node feeding s through an unmuted path, or nil
// when s is inactive or unconnected.
func ConnectedNode(g *nodegraph.Graph, s *nodegraph.Socket, stack override.Stack) *nodegraph.Node {
	if !Active(s, stack) {
		return nil
	}
	return g.ConnectedNode(s, true)
}

// lineSetGate keeps a per-category brush socket inactive while its category
// is off. A node without the category switch counts as on.
func lineSetGate(n *nodegraph.Node, id string, stack override.Stack) bool {
	category, ok := strings.CutSuffix(id, schema.SpecificSuffix)
	if !ok {
		return true
	}
	return override.Bool(n, category+"_on", stack, true)
}

// brushDetailGate ties the map sockets to the brush type and the distortion
// switch.
func brushDetailGate(n *nodegraph.Node, id string, stack override.Stack) bool {
	switch id {
	case schema.SocketIDBrushMap:
		return override.String(n, schema.FieldBrushType, stack, "") != "SIMPLE"
	case schema.SocketIDDistortionMap:
		return override.Bool(n, schema.FieldDistortion, stack, false)
	}
	return true
}
