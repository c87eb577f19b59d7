// Package dot renders node trees as Graphviz diagrams.
//
// Nodes appear as boxes labelled with their name and type; links run left
// to right from a node's output to the input socket they feed, labelled
// with the socket ID. Muted nodes and links are dashed.
//
//	src := dot.ToDOT(g, dot.Options{Stack: stack})
//	svg, err := dot.RenderSVG(src)
//
// With a Stack, nodes that would not take part in an export (switched off
// through their Line or LineSet switch, or muted) are greyed out.
//
// This package uses [github.com/goccy/go-graphviz] for in-process
// rendering. PDF output goes through [render.ToPDF] and needs librsvg.
package dot
