package export

import (
	"cmp"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pencilgraph/pkg/filter"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// Options configures an export.
type Options struct {
	// Logger receives one warning per skipped field. Defaults to a
	// discarding logger.
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

// Generate exports one graph. The stack should be a snapshot so that edits
// made while exporting cannot change the result.
func Generate(g *nodegraph.Graph, stack override.Stack, opts Options) *Result {
	return GenerateAll([]*nodegraph.Graph{g}, stack, opts)
}

// GenerateAll exports several graphs into one result. Their Lines are
// merged into a single render order.
func GenerateAll(graphs []*nodegraph.Graph, stack override.Stack, opts Options) *Result {
	opts = opts.withDefaults()
	res := &Result{}
	var lines []*lineEntry

	for _, g := range graphs {
		x := &exporter{g: g, stack: stack, logger: opts.Logger, records: map[*nodegraph.Node]*Record{}}
		for _, line := range g.Lines() {
			if rec := x.visit(line); rec != nil {
				lines = append(lines, &lineEntry{rec: rec, priority: line.Int(schema.FieldRenderPriority), graph: g.Name})
			}
		}
		functions := x.functions()
		for _, n := range x.order {
			x.fill(n, x.records[n])
		}
		res.Records = append(res.Records, x.recordList()...)
		res.Functions = append(res.Functions, functions...)
		res.Mismatches = append(res.Mismatches, x.mismatches...)
	}

	slices.SortStableFunc(lines, func(a, b *lineEntry) int {
		return cmp.Or(
			cmp.Compare(a.priority, b.priority),
			cmp.Compare(a.rec.Name, b.rec.Name),
			cmp.Compare(a.graph, b.graph),
		)
	})
	for _, l := range lines {
		res.Lines = append(res.Lines, l.rec)
	}
	return res
}

type lineEntry struct {
	rec      *Record
	priority int
	graph    string
}

type exporter struct {
	g          *nodegraph.Graph
	stack      override.Stack
	logger     *log.Logger
	records    map[*nodegraph.Node]*Record
	order      []*nodegraph.Node
	mismatches []Mismatch
}

// Live reports whether n takes part in an export: it is not muted and its
// governing switch (Line.is_active, LineSet.is_on) resolves true.
func Live(n *nodegraph.Node, stack override.Stack) bool {
	if n.Muted || n.IsRelay() {
		return false
	}
	switch n.Type.Name {
	case schema.TypeLine:
		return override.Bool(n, schema.FieldIsActive, stack, false)
	case schema.TypeLineSet:
		return override.Bool(n, schema.FieldIsOn, stack, false)
	}
	return true
}

// visit allocates records for n and everything it reaches through active
// sockets. It returns n's record, or nil when n is not live.
func (x *exporter) visit(n *nodegraph.Node) *Record {
	if rec, ok := x.records[n]; ok {
		return rec
	}
	if !Live(n, x.stack) {
		return nil
	}
	rec := x.allocate(n)
	for _, s := range n.Inputs {
		if child := filter.ConnectedNode(x.g, s, x.stack); child != nil {
			x.visit(child)
		}
	}
	return rec
}

func (x *exporter) allocate(n *nodegraph.Node) *Record {
	rec := &Record{Graph: x.g.Name, Type: n.Type.Name, Name: n.Name(), Fields: map[string]any{}}
	x.records[n] = rec
	x.order = append(x.order, n)
	return rec
}

// functions allocates one record per attached LineFunctions node, grouping
// the materials it is attached to.
func (x *exporter) functions() []*FunctionsRecord {
	byNode := map[*nodegraph.Node]*FunctionsRecord{}
	var out []*FunctionsRecord
	for _, mat := range x.g.Materials() {
		fn := x.g.FunctionsFor(mat)
		if fn == nil || fn.Muted {
			continue
		}
		fr, ok := byNode[fn]
		if !ok {
			fr = &FunctionsRecord{Record: x.allocate(fn)}
			byNode[fn] = fr
			out = append(out, fr)
		}
		fr.Materials = append(fr.Materials, mat)
	}
	slices.SortFunc(out, func(a, b *FunctionsRecord) int { return cmp.Compare(a.Record.Name, b.Record.Name) })
	return out
}

func (x *exporter) recordList() []*Record {
	out := make([]*Record, len(x.order))
	for i, n := range x.order {
		out[i] = x.records[n]
	}
	return out
}

// fill copies every schema field of n into rec.
func (x *exporter) fill(n *nodegraph.Node, rec *Record) {
	declared := make(map[string]bool, len(n.Type.Fields))
	for _, f := range n.Type.Fields {
		declared[f.Name] = true
		x.fillField(n, rec, f)
	}
	for _, name := range n.Fields() {
		if !declared[name] {
			x.mismatch(n, name, "field not found in schema")
		}
	}
}

func (x *exporter) fillField(n *nodegraph.Node, rec *Record, f schema.Field) {
	switch f.Kind {
	case schema.KindNode:
		s := n.Input(f.Socket)
		if s == nil {
			x.mismatch(n, f.Name, "socket "+f.Socket+" not found")
			return
		}
		rec.Fields[f.Name] = x.connected(s)
		return
	case schema.KindNodeList:
		refs := []*Record{}
		for _, s := range n.Inputs {
			if !strings.HasPrefix(s.ID, f.Socket) {
				continue
			}
			if child := x.connected(s); child != nil {
				refs = append(refs, child)
			}
		}
		rec.Fields[f.Name] = refs
		return
	}

	if _, ok := n.Attr(f.Name); !ok {
		x.mismatch(n, f.Name, "property not found")
		return
	}
	v := override.Value(n, f.Name, x.stack)

	if f.Kind == schema.KindCurve {
		key, ok := v.(string)
		if !ok {
			x.mismatch(n, f.Name, "curve key is not a string")
			return
		}
		rec.Fields[f.Name] = x.g.Curves.Evaluate(key, f.CurveSamples)
		return
	}
	out, err := schema.Convert(f, v)
	if err != nil {
		x.mismatch(n, f.Name, err.Error())
		return
	}
	rec.Fields[f.Name] = out
}

// connected returns the record of the node feeding s, or nil when s is
// inactive, unconnected or feeds from a node without a record.
func (x *exporter) connected(s *nodegraph.Socket) *Record {
	child := filter.ConnectedNode(x.g, s, x.stack)
	if child == nil {
		return nil
	}
	return x.records[child]
}

func (x *exporter) mismatch(n *nodegraph.Node, field, reason string) {
	m := Mismatch{Graph: x.g.Name, Node: n.Name(), Field: field, Reason: reason}
	x.logger.Warn("not transferred", "graph", m.Graph, "node", m.Node, "field", m.Field, "reason", m.Reason)
	x.mismatches = append(x.mismatches, m)
}
