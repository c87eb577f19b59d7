// Package render turns node trees into diagrams.
//
// The [dot] subpackage converts a graph to Graphviz DOT and renders it
// in-process. [ToPDF] and [ToPNG] convert SVG output with the external
// rsvg-convert tool (from librsvg).
//
//	src := dot.ToDOT(g, dot.Options{})
//	svg, err := dot.RenderSVG(src)
//	pdf, err := render.ToPDF(svg)
//
// [dot]: github.com/matzehuels/pencilgraph/pkg/render/dot
package render
