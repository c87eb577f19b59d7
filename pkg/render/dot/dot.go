package dot

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	"github.com/matzehuels/pencilgraph/pkg/export"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/render"
)

// Output formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// Formats lists the supported output formats.
var Formats = []string{FormatDOT, FormatSVG, FormatPNG, FormatPDF}

// Options configures diagram generation.
type Options struct {
	// Detailed adds the node's stored values to its label.
	Detailed bool
	// Stack, when set, greys out nodes that are not live under it.
	Stack override.Stack
}

// ToDOT converts a graph to Graphviz DOT.
func ToDOT(g *nodegraph.Graph, opts Options) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", g.Name)
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		attrs := fmtAttrs(n, fmtLabel(n, opts.Detailed), dimmed(n, opts.Stack))
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Name(), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, l := range g.Links() {
		attrs := []string{fmt.Sprintf("label=%q", l.To.ID)}
		if l.Muted {
			attrs = append(attrs, "style=dashed", "color=grey")
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", l.From.Node().Name(), l.To.Node().Name(), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func dimmed(n *nodegraph.Node, stack override.Stack) bool {
	if n.Muted {
		return true
	}
	return stack != nil && !n.IsRelay() && !export.Live(n, stack)
}

func fmtLabel(n *nodegraph.Node, detailed bool) string {
	label := n.Name() + "\n" + n.Type.Name
	if !detailed {
		return label
	}
	values := n.Values()
	parts := make([]string, 0, len(values))
	for _, k := range slices.Sorted(maps.Keys(values)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, values[k]))
	}
	if len(parts) == 0 {
		return label
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *nodegraph.Node, label string, dim bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.IsRelay():
		attrs = append(attrs, "shape=point", "width=0.1")
	case dim:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=dimgrey")
	}
	return attrs
}

// Render renders DOT source in the given format. DOT input is returned
// unchanged.
func Render(src string, format string) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(src), nil
	case FormatSVG:
		return RenderSVG(src)
	case FormatPNG:
		return renderGraphviz(src, graphviz.PNG)
	case FormatPDF:
		svg, err := RenderSVG(src)
		if err != nil {
			return nil, err
		}
		return render.ToPDF(svg)
	}
	return nil, pgerrors.New(pgerrors.ErrCodeInvalidFormat, "unsupported diagram format %q (must be one of: %s)", format, strings.Join(Formats, ", "))
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(src string) ([]byte, error) {
	svg, err := renderGraphviz(src, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(svg), nil
}

func renderGraphviz(src string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(src))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
