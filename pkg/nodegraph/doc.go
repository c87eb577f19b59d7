// Package nodegraph provides the typed node graph that holds a line
// rendering configuration.
//
// # Overview
//
// A [Graph] owns [Node]s by name. Each node is an instance of a
// [schema.NodeType]: its attribute values are seeded from the type's
// defaults and its input [Socket]s are created in declaration order. Nodes
// that produce something have a single output socket.
//
//	g := nodegraph.New("Pencil+ 4 Line Node Tree")
//	line, _ := g.AddNode(schema.TypeLine, "")
//	set, _ := g.AddNode(schema.TypeLineSet, "")
//	_, _ = g.Link(set, line.Inputs[0])
//
// # Links
//
// A [Link] runs from a node's output to an input socket. An input holds at
// most one link; linking an occupied input replaces the old link. Links are
// only accepted between compatible socket kinds, and a link that would
// close a cycle is rejected. Muted links stay in the graph but
// [Graph.ConnectedNode] can be asked to ignore them.
//
// Relay ("Reroute") nodes are transparent: [Graph.ConnectedNode] follows a
// relay's single input until it reaches a real node, and
// [Graph.Consumers] walks through relays in the other direction. Because a
// relay adopts the kind of whatever feeds it, relinking upstream of a relay
// can invalidate links downstream; [Graph.Prune] removes those and runs
// after every structural mutation.
//
// # Side tables
//
// Besides nodes, a graph carries a [CurveStore] (named control-point curves
// referenced from curve fields by key), [Selection] markers and the
// material table that attaches LineFunctions nodes to materials.
//
// # Concurrency
//
// A Graph is not safe for concurrent use. Editing sessions serialize access.
package nodegraph
