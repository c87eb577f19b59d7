package io

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	"github.com/matzehuels/pencilgraph/pkg/maintain"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

func sampleProject(t *testing.T) ([]*nodegraph.Graph, override.Stack) {
	t.Helper()
	g := nodegraph.New("Scene")
	line, err := maintain.NewLine(g)
	require.NoError(t, err)
	set, err := maintain.NewLineSet(g, line, 0)
	require.NoError(t, err)
	require.NoError(t, set.Set(schema.FieldObjects, []string{"Cube", "Suzanne"}))
	require.NoError(t, line.Set("off_screen_distance", 220.5))

	tex, err := g.AddNode(schema.TypeTextureMap, "")
	require.NoError(t, err)
	require.NoError(t, tex.Set("tiling", []float64{2, 3}))

	fn, err := g.AddNode(schema.TypeLineFunctions, "")
	require.NoError(t, err)
	require.NoError(t, g.AttachFunctions("Material", fn))

	stack := override.NewStack()
	stack.Layer(override.LayerScene).Set("Line.over_sampling", 3)
	stack.Layer(override.LayerScene).Set("Line.antialiasing", 2.0)
	require.NoError(t, stack.Layer(override.LayerViewLayer).AddPattern(`Line Set.*\.objects`, []string{"Plane"}))
	return []*nodegraph.Graph{g}, stack
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatTOML, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			graphs, stack := sampleProject(t)
			want, err := NewDocument(graphs, stack)
			require.NoError(t, err)

			data, err := Encode(want, f)
			require.NoError(t, err)
			doc, err := Decode(data, f)
			require.NoError(t, err)
			p, err := doc.Build(ReadOptions{})
			require.NoError(t, err)

			got, err := NewDocument(p.Graphs, p.Stack)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestFreshLineSetRoundTrip(t *testing.T) {
	g := nodegraph.New("Scene")
	line, err := maintain.NewLine(g)
	require.NoError(t, err)
	_, err = maintain.NewLineSet(g, line, 0)
	require.NoError(t, err)

	doc, err := NewDocument([]*nodegraph.Graph{g}, override.NewStack())
	require.NoError(t, err)
	data, err := Encode(doc, FormatJSON)
	require.NoError(t, err)

	decoded, err := Decode(data, FormatJSON)
	require.NoError(t, err)
	p, err := decoded.Build(ReadOptions{})
	require.NoError(t, err)
	v, _ := p.Graphs[0].Node("Line Set").Attr(schema.FieldObjects)
	assert.Equal(t, []string{}, v)
}

func TestNullReferenceListIsEmpty(t *testing.T) {
	f, err := schema.Default().Field(schema.TypeLineSet, schema.FieldObjects)
	require.NoError(t, err)
	v, err := fieldValue(f, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, v)
}

func TestBuildRestoresStructure(t *testing.T) {
	graphs, stack := sampleProject(t)
	doc, err := NewDocument(graphs, stack)
	require.NoError(t, err)
	p, err := doc.Build(ReadOptions{})
	require.NoError(t, err)

	g := p.Graph("Scene")
	require.NotNil(t, g)
	assert.Equal(t, graphs[0].ID, g.ID)

	line := g.Node("Line")
	require.NotNil(t, line)
	require.Len(t, line.Inputs, 2)
	assert.Equal(t, "Line Set", g.ConnectedNode(line.Inputs[0], false).Name())
	assert.Same(t, line, g.Active())
	assert.Equal(t, "Line Set", g.SelectedLineSet(line).Name())
	assert.Equal(t, "Line Functions", g.FunctionsFor("Material").Name())
	assert.Equal(t, 4, g.Curves.Len(), "two brush details with two curves each")

	res := override.Resolve(line, "over_sampling", p.Stack)
	assert.Equal(t, 3, res.Value)
	assert.Equal(t, override.LayerScene, res.Layer)
}

func TestWholeNumbers(t *testing.T) {
	doc, err := Decode([]byte(`{
  "version": 1,
  "graphs": [{"name": "G", "nodes": [
    {"name": "Line", "type": "Line", "location": [0, 0],
     "values": {"over_sampling": 3, "antialiasing": 1}}
  ]}]
}`), FormatJSON)
	require.NoError(t, err)
	p, err := doc.Build(ReadOptions{})
	require.NoError(t, err)
	line := p.Graphs[0].Node("Line")
	v, _ := line.Attr("over_sampling")
	assert.Equal(t, 3, v)
	v, _ = line.Attr("antialiasing")
	assert.Equal(t, 1.0, v)

	doc.Graphs[0].Nodes[0].Values["over_sampling"] = 2.5
	_, err = doc.Build(ReadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrValueType)
}

func TestTextureMapMigration(t *testing.T) {
	tests := []struct {
		legacy  int
		source  string
		uvIndex int
	}{
		{0, "SCREEN", 0},
		{1, "OBJECTUV", 0},
		{4, "OBJECTUV", 3},
	}
	for _, tt := range tests {
		doc := &Document{Version: 1, Graphs: []GraphDoc{{
			Name: "G",
			Nodes: []NodeDoc{{Name: "Tex", Type: schema.TypeTextureMap, Values: map[string]any{
				legacyUVSource: float64(tt.legacy),
			}}},
		}}}
		p, err := doc.Build(ReadOptions{})
		require.NoError(t, err)
		tex := p.Graphs[0].Node("Tex")
		assert.Equal(t, tt.source, tex.Text("uv_source"), "legacy %d", tt.legacy)
		assert.Equal(t, "INDEX", tex.Text("uv_selection_mode"))
		assert.Equal(t, tt.uvIndex, tex.Int("uv_index"))
		_, has := tex.Attr(legacyUVSource)
		assert.False(t, has)
	}
}

func TestUnknownFieldIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	doc := &Document{Version: 1, Graphs: []GraphDoc{{
		Name:  "G",
		Nodes: []NodeDoc{{Name: "Line", Type: schema.TypeLine, Values: map[string]any{"legacy_width": 2.0}}},
	}}}
	p, err := doc.Build(ReadOptions{Logger: log.New(&buf)})
	require.NoError(t, err)
	assert.NotNil(t, p.Graphs[0].Node("Line"))
	assert.Contains(t, buf.String(), "skipping unknown field")
	assert.Contains(t, buf.String(), "legacy_width")
}

func TestBuildErrors(t *testing.T) {
	node := func(name, typ string) NodeDoc { return NodeDoc{Name: name, Type: typ} }
	tests := []struct {
		name string
		gd   GraphDoc
		is   error
	}{
		{"unknown type", GraphDoc{Name: "G", Nodes: []NodeDoc{node("X", "Sketch")}}, schema.ErrUnknownType},
		{"duplicate node", GraphDoc{Name: "G", Nodes: []NodeDoc{node("L", schema.TypeLine), node("L", schema.TypeLine)}}, nodegraph.ErrDuplicateName},
		{"dangling link", GraphDoc{Name: "G", Nodes: []NodeDoc{node("L", schema.TypeLine)},
			Links: []LinkDoc{{From: "S", To: "L"}}}, nodegraph.ErrUnknownNode},
		{"input index", GraphDoc{Name: "G", Nodes: []NodeDoc{node("L", schema.TypeLine), node("S", schema.TypeLineSet)},
			Links: []LinkDoc{{From: "S", To: "L", Input: 5}}}, nodegraph.ErrSocketIndex},
		{"incompatible link", GraphDoc{Name: "G", Nodes: []NodeDoc{node("L", schema.TypeLine), node("B", schema.TypeBrushSettings)},
			Links: []LinkDoc{{From: "B", To: "L"}}}, nodegraph.ErrIncompatibleLink},
		{"unknown socket", GraphDoc{Name: "G", Nodes: []NodeDoc{{Name: "L", Type: schema.TypeLine, Inputs: []string{"nope"}}}}, schema.ErrUnknownSocket},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{Version: 1, Graphs: []GraphDoc{tt.gd}}
			_, err := doc.Build(ReadOptions{})
			require.Error(t, err)
			assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeInvalidDocument))
			assert.True(t, errors.Is(err, tt.is), "got %v", err)
		})
	}
}

func TestMalformedPatternRejected(t *testing.T) {
	doc := &Document{Version: 1, Layers: []LayerDoc{{
		Name:    override.LayerScene,
		Entries: []EntryDoc{{Key: "Line(.width", Pattern: true, Type: "float", Value: 1.0}},
	}}}
	_, err := doc.Build(ReadOptions{})
	require.Error(t, err)
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeInvalidDocument))
}

func TestDecodeRejects(t *testing.T) {
	_, err := Decode([]byte(`{"version": 9, "graphs": []}`), FormatJSON)
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeInvalidDocument))

	_, err = Decode([]byte(`{"version": 1, "graphs": [{"name": "A", "nodes": []}, {"name": "A", "nodes": []}]}`), FormatJSON)
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeInvalidDocument))

	_, err = Decode([]byte(`{"version": 1, "grpahs": []}`), FormatJSON)
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeInvalidDocument))

	_, err = Decode([]byte("version: 1\nunknown: true\n"), FormatYAML)
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeInvalidDocument))
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]Format{
		"scene.json": FormatJSON, "scene.TOML": FormatTOML,
		"scene.yaml": FormatYAML, "dir/scene.yml": FormatYAML,
	} {
		got, err := FormatFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatFromPath("scene.blend")
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeInvalidFormat))
}

func TestExportImportFile(t *testing.T) {
	graphs, stack := sampleProject(t)
	path := filepath.Join(t.TempDir(), "out", "scene.toml")
	require.NoError(t, ExportFile(path, graphs, stack))

	p, err := ImportFile(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, path, p.Path)
	require.Len(t, p.Graphs, 1)
	assert.Equal(t, graphs[0].Len(), p.Graphs[0].Len())

	_, err = ImportFile(filepath.Join(t.TempDir(), "missing.json"), ReadOptions{})
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeFileNotFound))
}

func TestLayerEntryTypes(t *testing.T) {
	graphs, stack := sampleProject(t)
	doc, err := NewDocument(graphs, stack)
	require.NoError(t, err)

	types := map[string]string{}
	patterns := map[string]bool{}
	for _, l := range doc.Layers {
		for _, e := range l.Entries {
			types[e.Key] = e.Type
			patterns[e.Key] = e.Pattern
		}
	}
	assert.Equal(t, "int", types["Line.over_sampling"])
	assert.Equal(t, "float", types["Line.antialiasing"])
	assert.Equal(t, "string-list", types[`Line Set.*\.objects`])
	assert.True(t, patterns[`Line Set.*\.objects`])
	assert.False(t, patterns["Line.over_sampling"])
	assert.True(t, strings.HasPrefix(doc.Layers[0].Name, "view"))
}
