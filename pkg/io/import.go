package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// legacyUVSource is the pre-split Texture Map UV field.
const legacyUVSource = "texture_uv_source"

// ReadOptions configure how documents become graphs.
type ReadOptions struct {
	// Registry declares the node types. Nil uses schema.Default().
	Registry *schema.Registry
	// Logger receives warnings about skipped fields. Nil discards them.
	Logger *log.Logger
}

func (o ReadOptions) withDefaults() ReadOptions {
	if o.Registry == nil {
		o.Registry = schema.Default()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

// Project is a loaded document: its graphs and override layers.
type Project struct {
	Path   string
	Graphs []*nodegraph.Graph
	Stack  override.Stack
}

// Graph returns the named graph, or nil.
func (p *Project) Graph(name string) *nodegraph.Graph {
	for _, g := range p.Graphs {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Decode parses a document in the given format.
func Decode(data []byte, f Format) (*Document, error) {
	var doc Document
	var err error
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	case FormatTOML:
		_, err = toml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&doc)
		if err == io.EOF {
			err = nil
		}
	default:
		return nil, pgerrors.New(pgerrors.ErrCodeInvalidFormat, "unsupported format %q", f)
	}
	if err != nil {
		return nil, pgerrors.Wrap(pgerrors.ErrCodeInvalidDocument, err, "decode %s", f)
	}
	if err := doc.check(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Read decodes a document from r.
func Read(r io.Reader, f Format) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data, f)
}

// ReadFile decodes the document at path, choosing the format from its
// extension.
func ReadFile(path string) (*Document, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pgerrors.Wrap(pgerrors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(data, f)
}

// ImportFile reads the document at path and builds its graphs and layers.
func ImportFile(path string, opts ReadOptions) (*Project, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := doc.Build(opts)
	if err != nil {
		return nil, err
	}
	p.Path = path
	return p, nil
}

// Build instantiates the document's graphs and override stack. The stack
// always starts with the view layer and scene layers; other layers
// follow in document order.
func (d *Document) Build(opts ReadOptions) (*Project, error) {
	opts = opts.withDefaults()
	p := &Project{Stack: override.NewStack()}
	for i := range d.Graphs {
		g, err := buildGraph(&d.Graphs[i], opts)
		if err != nil {
			return nil, err
		}
		p.Graphs = append(p.Graphs, g)
	}
	for _, ld := range d.Layers {
		l := p.Stack.Layer(ld.Name)
		if l == nil {
			l = override.NewLayer(ld.Name)
			p.Stack = append(p.Stack, l)
		}
		if err := fillLayer(l, ld); err != nil {
			return nil, pgerrors.Wrap(pgerrors.ErrCodeInvalidDocument, err, "layer %q", ld.Name)
		}
	}
	return p, nil
}

func fillLayer(l *override.Layer, ld LayerDoc) error {
	for _, e := range ld.Entries {
		v, err := typedValue(e.Type, e.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Key, err)
		}
		if e.Pattern {
			if err := l.AddPattern(e.Key, v); err != nil {
				return err
			}
			continue
		}
		l.Set(e.Key, v)
	}
	return nil
}

func buildGraph(gd *GraphDoc, opts ReadOptions) (*nodegraph.Graph, error) {
	g := nodegraph.NewWithRegistry(gd.Name, opts.Registry)
	if gd.ID != "" {
		g.ID = gd.ID
	}
	for k, v := range gd.Meta {
		g.Meta[k] = v
	}
	for key, pts := range gd.Curves {
		points := make([]nodegraph.Point, len(pts))
		for i, p := range pts {
			points[i] = nodegraph.Point{X: p[0], Y: p[1]}
		}
		g.Curves.Put(key, points)
	}

	for _, nd := range gd.Nodes {
		if err := buildNode(g, gd.Name, nd, opts.Logger); err != nil {
			return nil, err
		}
	}
	for _, ld := range gd.Links {
		from, to := g.Node(ld.From), g.Node(ld.To)
		if from == nil || to == nil {
			return nil, docError(gd.Name, fmt.Errorf("%w: link %s -> %s", nodegraph.ErrUnknownNode, ld.From, ld.To))
		}
		if ld.Input < 0 || ld.Input >= len(to.Inputs) {
			return nil, nodeError(gd.Name, ld.To, fmt.Errorf("%w: %d", nodegraph.ErrSocketIndex, ld.Input))
		}
		l, err := g.Link(from, to.Inputs[ld.Input])
		if err != nil {
			return nil, nodeError(gd.Name, ld.To, err)
		}
		g.SetLinkMuted(l, ld.Muted)
	}
	for _, mat := range sortedKeys(gd.Materials) {
		fn := g.Node(gd.Materials[mat])
		if fn == nil {
			return nil, docError(gd.Name, fmt.Errorf("%w: material %s uses %s", nodegraph.ErrUnknownNode, mat, gd.Materials[mat]))
		}
		if err := g.AttachFunctions(mat, fn); err != nil {
			return nil, docError(gd.Name, err)
		}
	}
	if sel := gd.Selection; sel != nil {
		g.SetActive(g.Node(sel.Active))
		for line, set := range sel.LineSets {
			if ln, sn := g.Node(line), g.Node(set); ln != nil && sn != nil {
				g.SelectLineSet(ln, sn)
			}
		}
	}
	for _, key := range g.Curves.Keys() {
		g.ReleaseCurve(key)
	}
	return g, nil
}

func buildNode(g *nodegraph.Graph, graph string, nd NodeDoc, logger *log.Logger) error {
	n, err := g.AddNamedNode(nd.Type, nd.Name)
	if err != nil {
		return nodeError(graph, nd.Name, err)
	}
	n.Location = nd.Location
	n.Muted = nd.Muted
	if nd.Inputs != nil {
		if err := g.SetInputs(n, nd.Inputs); err != nil {
			return nodeError(graph, nd.Name, err)
		}
	}

	values := nd.Values
	if n.Type.Name == schema.TypeTextureMap {
		values = migrateTextureMap(values)
	}
	for _, field := range sortedKeys(values) {
		f, ok := n.Type.Field(field)
		if !ok || !f.Stored() {
			logger.Warn("skipping unknown field", "graph", graph, "node", nd.Name, "field", field)
			continue
		}
		v, err := fieldValue(f, values[field])
		if err != nil {
			return nodeError(graph, nd.Name, err)
		}
		if f.Kind == schema.KindCurve {
			if _, exists := g.Curves.Get(v.(string)); !exists {
				return nodeError(graph, nd.Name, fmt.Errorf("%s: unknown curve %q", field, v))
			}
		}
		if err := n.Set(field, v); err != nil {
			return nodeError(graph, nd.Name, err)
		}
	}
	return nil
}

// migrateTextureMap rewrites the legacy single-integer UV source.
func migrateTextureMap(values map[string]any) map[string]any {
	old, ok := values[legacyUVSource]
	if !ok {
		return values
	}
	out := make(map[string]any, len(values)+2)
	for k, v := range values {
		if k != legacyUVSource {
			out[k] = v
		}
	}
	src, ok := asInt(old)
	if !ok {
		return out
	}
	if src == 0 {
		out["uv_source"] = "SCREEN"
		return out
	}
	out["uv_source"] = "OBJECTUV"
	out["uv_selection_mode"] = "INDEX"
	out["uv_index"] = src - 1
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
