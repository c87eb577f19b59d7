package io

import (
	"fmt"
	"path/filepath"
	"strings"

	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
)

// CurrentVersion is the document version written by this release.
const CurrentVersion = 1

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", pgerrors.New(pgerrors.ErrCodeInvalidFormat, "unsupported document extension %q", filepath.Ext(path))
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatTOML, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", pgerrors.New(pgerrors.ErrCodeInvalidFormat, "unsupported format %q", s)
}

// Document is the stored form of a project.
type Document struct {
	Version int        `json:"version" toml:"version" yaml:"version"`
	Graphs  []GraphDoc `json:"graphs" toml:"graphs" yaml:"graphs"`
	Layers  []LayerDoc `json:"layers,omitempty" toml:"layers,omitempty" yaml:"layers,omitempty"`
}

// GraphDoc is one stored node graph.
type GraphDoc struct {
	ID        string                  `json:"id,omitempty" toml:"id,omitempty" yaml:"id,omitempty"`
	Name      string                  `json:"name" toml:"name" yaml:"name"`
	Meta      map[string]any          `json:"meta,omitempty" toml:"meta,omitempty" yaml:"meta,omitempty"`
	Nodes     []NodeDoc               `json:"nodes" toml:"nodes" yaml:"nodes"`
	Links     []LinkDoc               `json:"links,omitempty" toml:"links,omitempty" yaml:"links,omitempty"`
	Curves    map[string][][2]float64 `json:"curves,omitempty" toml:"curves,omitempty" yaml:"curves,omitempty"`
	Materials map[string]string       `json:"materials,omitempty" toml:"materials,omitempty" yaml:"materials,omitempty"`
	Selection *SelectionDoc           `json:"selection,omitempty" toml:"selection,omitempty" yaml:"selection,omitempty"`
}

// NodeDoc is one stored node.
type NodeDoc struct {
	Name     string         `json:"name" toml:"name" yaml:"name"`
	Type     string         `json:"type" toml:"type" yaml:"type"`
	Location [2]float64     `json:"location" toml:"location" yaml:"location,flow"`
	Muted    bool           `json:"muted,omitempty" toml:"muted,omitempty" yaml:"muted,omitempty"`
	Inputs   []string       `json:"inputs,omitempty" toml:"inputs,omitempty" yaml:"inputs,omitempty,flow"`
	Values   map[string]any `json:"values,omitempty" toml:"values,omitempty" yaml:"values,omitempty"`
}

// LinkDoc connects the output of From to input number Input of To.
type LinkDoc struct {
	From  string `json:"from" toml:"from" yaml:"from"`
	To    string `json:"to" toml:"to" yaml:"to"`
	Input int    `json:"input" toml:"input" yaml:"input"`
	Muted bool   `json:"muted,omitempty" toml:"muted,omitempty" yaml:"muted,omitempty"`
}

// SelectionDoc stores the selection markers by name.
type SelectionDoc struct {
	Active   string            `json:"active,omitempty" toml:"active,omitempty" yaml:"active,omitempty"`
	LineSets map[string]string `json:"line_sets,omitempty" toml:"line_sets,omitempty" yaml:"line_sets,omitempty"`
}

// LayerDoc is one stored override layer.
type LayerDoc struct {
	Name    string     `json:"name" toml:"name" yaml:"name"`
	Entries []EntryDoc `json:"entries" toml:"entries" yaml:"entries"`
}

// EntryDoc is one override entry.
type EntryDoc struct {
	Key     string `json:"key" toml:"key" yaml:"key"`
	Pattern bool   `json:"pattern,omitempty" toml:"pattern,omitempty" yaml:"pattern,omitempty"`
	Type    string `json:"type" toml:"type" yaml:"type"`
	Value   any    `json:"value" toml:"value" yaml:"value"`
}

// Graph returns the named graph document, or nil.
func (d *Document) Graph(name string) *GraphDoc {
	for i := range d.Graphs {
		if d.Graphs[i].Name == name {
			return &d.Graphs[i]
		}
	}
	return nil
}

func (d *Document) check() error {
	if d.Version > CurrentVersion {
		return pgerrors.New(pgerrors.ErrCodeInvalidDocument, "document version %d is newer than supported version %d", d.Version, CurrentVersion)
	}
	seen := make(map[string]bool, len(d.Graphs))
	for _, g := range d.Graphs {
		if g.Name == "" {
			return pgerrors.New(pgerrors.ErrCodeInvalidDocument, "graph without a name")
		}
		if seen[g.Name] {
			return pgerrors.New(pgerrors.ErrCodeInvalidDocument, "duplicate graph %q", g.Name)
		}
		seen[g.Name] = true
	}
	return nil
}

func docError(graph string, err error) error {
	return pgerrors.Wrap(pgerrors.ErrCodeInvalidDocument, err, "graph %q", graph)
}

func nodeError(graph, node string, err error) error {
	return pgerrors.Wrap(pgerrors.ErrCodeInvalidDocument, fmt.Errorf("node %q: %w", node, err), "graph %q", graph)
}
