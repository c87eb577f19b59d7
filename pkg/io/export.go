package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
)

// NewDocument captures graphs and override layers as a document. Empty
// layers are omitted.
func NewDocument(graphs []*nodegraph.Graph, stack override.Stack) (*Document, error) {
	doc := &Document{Version: CurrentVersion}
	for _, g := range graphs {
		doc.Graphs = append(doc.Graphs, graphDoc(g))
	}
	for _, l := range stack {
		if l == nil || l.Len() == 0 {
			continue
		}
		ld := LayerDoc{Name: l.Name}
		for _, e := range l.Entries() {
			typ, err := valueType(e.Value)
			if err != nil {
				return nil, pgerrors.Wrap(pgerrors.ErrCodeInvalidInput, err, "layer %q key %q", l.Name, e.Key)
			}
			ld.Entries = append(ld.Entries, EntryDoc{Key: e.Key, Pattern: e.Pattern() && isPattern(e.Key), Type: typ, Value: e.Value})
		}
		doc.Layers = append(doc.Layers, ld)
	}
	return doc, nil
}

// isPattern reports whether key uses expression syntax beyond the dot of a
// plain "<node>.<field>" path.
func isPattern(key string) bool {
	return strings.ContainsAny(key, `*+?()[]{}|^$\`)
}

func graphDoc(g *nodegraph.Graph) GraphDoc {
	gd := GraphDoc{ID: g.ID, Name: g.Name}
	if len(g.Meta) > 0 {
		gd.Meta = maps.Clone(g.Meta)
	}
	for _, n := range g.Nodes() {
		nd := NodeDoc{
			Name:     n.Name(),
			Type:     n.Type.Name,
			Location: n.Location,
			Muted:    n.Muted,
			Values:   n.Values(),
		}
		if !defaultInputs(n) {
			for _, s := range n.Inputs {
				nd.Inputs = append(nd.Inputs, s.ID)
			}
		}
		gd.Nodes = append(gd.Nodes, nd)

		for _, key := range nodegraph.CurveFields(n) {
			pts, ok := g.Curves.Get(key)
			if !ok {
				continue
			}
			if gd.Curves == nil {
				gd.Curves = make(map[string][][2]float64)
			}
			out := make([][2]float64, len(pts))
			for i, p := range pts {
				out[i] = [2]float64{p.X, p.Y}
			}
			gd.Curves[key] = out
		}
	}
	for _, l := range g.Links() {
		to := l.To.Node()
		gd.Links = append(gd.Links, LinkDoc{
			From:  l.From.Node().Name(),
			To:    to.Name(),
			Input: to.InputIndex(l.To),
			Muted: l.Muted,
		})
	}
	if mats := g.MaterialTable(); len(mats) > 0 {
		gd.Materials = mats
	}
	sel := &SelectionDoc{}
	if a := g.Active(); a != nil {
		sel.Active = a.Name()
	}
	for _, line := range g.Lines() {
		if set := g.SelectedLineSet(line); set != nil {
			if sel.LineSets == nil {
				sel.LineSets = make(map[string]string)
			}
			sel.LineSets[line.Name()] = set.Name()
		}
	}
	if sel.Active != "" || sel.LineSets != nil {
		gd.Selection = sel
	}
	return gd
}

// defaultInputs reports whether n still has exactly one socket per
// declaration in declaration order.
func defaultInputs(n *nodegraph.Node) bool {
	if len(n.Inputs) != len(n.Type.Inputs) {
		return false
	}
	for i, d := range n.Type.Inputs {
		if n.Inputs[i].ID != d.ID {
			return false
		}
	}
	return true
}

// Encode serialises a document.
func Encode(doc *Document, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes doc to w.
func Write(w io.Writer, doc *Document, f Format) error {
	var err error
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	case FormatTOML:
		err = toml.NewEncoder(w).Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(doc); err == nil {
			err = enc.Close()
		}
	default:
		return pgerrors.New(pgerrors.ErrCodeInvalidFormat, "unsupported format %q", f)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	return nil
}

// WriteFile writes doc to path in the format implied by its extension.
func WriteFile(path string, doc *Document) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Encode(doc, f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportFile writes graphs and layers to path.
func ExportFile(path string, graphs []*nodegraph.Graph, stack override.Stack) error {
	doc, err := NewDocument(graphs, stack)
	if err != nil {
		return err
	}
	return WriteFile(path, doc)
}
