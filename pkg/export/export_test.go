package export

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pencilgraph/pkg/maintain"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// simpleGraph is one Line with one LineSet and its brushes.
func simpleGraph(t *testing.T) (*nodegraph.Graph, *nodegraph.Node, *nodegraph.Node) {
	t.Helper()
	g := nodegraph.New("")
	line, err := maintain.NewLine(g)
	require.NoError(t, err)
	set, err := maintain.NewLineSet(g, line, 0)
	require.NoError(t, err)
	return g, line, set
}

func TestGenerateScenario(t *testing.T) {
	g, _, set := simpleGraph(t)
	require.NoError(t, set.Set(schema.FieldObjects, []string{"Cube", "Sphere"}))
	require.NoError(t, set.Set(schema.FieldMaterials, []string{"Ink"}))

	res := Generate(g, override.NewStack(), Options{})
	require.Len(t, res.Lines, 1)
	line := res.Lines[0]
	assert.Equal(t, schema.TypeLine, line.Type)

	sets := line.Refs("line_sets")
	require.Len(t, sets, 1)
	assert.Equal(t, []string{"Cube", "Sphere"}, sets[0].Fields[schema.FieldObjects])
	assert.Equal(t, []string{"Ink"}, sets[0].Fields[schema.FieldMaterials])
	assert.Empty(t, res.Mismatches)

	// Line, LineSet, two brushes, two details.
	assert.Len(t, res.Records, 6)
}

func TestRecordFieldsMatchSchema(t *testing.T) {
	g, _, _ := simpleGraph(t)
	res := Generate(g, override.NewStack(), Options{})
	for _, rec := range res.Records {
		typ, err := schema.Default().Lookup(rec.Type)
		require.NoError(t, err)
		assert.Len(t, rec.Fields, len(typ.Fields), rec.Name)
		for _, f := range typ.Fields {
			assert.Contains(t, rec.Fields, f.Name, rec.Name)
		}
	}
}

func TestConversions(t *testing.T) {
	g, _, set := simpleGraph(t)
	brush := g.ConnectedNode(set.Input(schema.SocketIDVBrush), false)
	detail := g.ConnectedNode(brush.Input(schema.SocketIDBrushDetail), false)
	require.NoError(t, detail.Set("angle", 90.0))
	require.NoError(t, detail.Set("size_random", 50.0))
	require.NoError(t, detail.Set(schema.FieldBrushType, "MULTIPLE"))

	res := Generate(g, override.NewStack(), Options{})
	rec := res.Lines[0].Refs("line_sets")[0].Ref("v_brush_settings").Ref("brush_detail_node")
	require.NotNil(t, rec)
	assert.InDelta(t, math.Pi/2, rec.Fields["angle"], 1e-12)
	assert.InDelta(t, 0.5, rec.Fields["size_random"], 1e-12)
	assert.Equal(t, 1, rec.Fields[schema.FieldBrushType])

	curve, ok := rec.Fields["size_reduction_curve"].([]float64)
	require.True(t, ok)
	assert.Len(t, curve, schema.DefaultCurveSamples)
	assert.InDelta(t, 0.25, curve[0], 1e-9)
}

func TestOverridesApply(t *testing.T) {
	g, line, _ := simpleGraph(t)
	stack := override.NewStack()
	stack.Layer(override.LayerScene).Set(override.Path(line.Name(), "over_sampling"), 4)
	require.NoError(t, stack.Layer(override.LayerViewLayer).AddPattern(`Line Set.*\.is_on`, false))

	res := Generate(g, stack, Options{})
	require.Len(t, res.Lines, 1)
	assert.Equal(t, 4, res.Lines[0].Fields["over_sampling"])
	assert.Empty(t, res.Lines[0].Refs("line_sets"))
	assert.Len(t, res.Records, 1)
}

func TestSkipsInactiveAndMuted(t *testing.T) {
	g, line, set := simpleGraph(t)

	require.NoError(t, line.Set(schema.FieldIsActive, false))
	assert.Empty(t, Generate(g, nil, Options{}).Lines)
	require.NoError(t, line.Set(schema.FieldIsActive, true))

	set.Muted = true
	res := Generate(g, nil, Options{})
	assert.Empty(t, res.Lines[0].Refs("line_sets"))
	set.Muted = false

	g.SetLinkMuted(line.Inputs[0].Link(), true)
	res = Generate(g, nil, Options{})
	assert.Empty(t, res.Lines[0].Refs("line_sets"))
	assert.Len(t, res.Records, 1)
}

func TestSuppressedSocketIsEmpty(t *testing.T) {
	g, _, set := simpleGraph(t)
	brush := g.ConnectedNode(set.Input(schema.SocketIDVBrush), false)
	tex, err := g.AddNode(schema.TypeTextureMap, "")
	require.NoError(t, err)
	_, err = g.Link(tex, brush.Input(schema.SocketIDColorMap))
	require.NoError(t, err)

	res := Generate(g, nil, Options{})
	rec := res.Lines[0].Refs("line_sets")[0].Ref("v_brush_settings")
	assert.Nil(t, rec.Ref("color_map"))
	for _, r := range res.Records {
		assert.NotEqual(t, schema.TypeTextureMap, r.Type)
	}

	require.NoError(t, brush.Set("color_map_on", true))
	res = Generate(g, nil, Options{})
	rec = res.Lines[0].Refs("line_sets")[0].Ref("v_brush_settings")
	require.NotNil(t, rec.Ref("color_map"))
	assert.Equal(t, tex.Name(), rec.Ref("color_map").Name)
}

func TestLineOrder(t *testing.T) {
	g := nodegraph.New("")
	for _, tc := range []struct {
		name string
		prio int
	}{{"B", 2}, {"A", 2}, {"C", 1}} {
		n, err := g.AddNode(schema.TypeLine, tc.name)
		require.NoError(t, err)
		require.NoError(t, n.Set(schema.FieldRenderPriority, tc.prio))
	}
	res := Generate(g, nil, Options{})
	var names []string
	for _, r := range res.Lines {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"C", "A", "B"}, names)
}

func TestFunctionsSideTable(t *testing.T) {
	g := nodegraph.New("")
	a, _ := g.AddNode(schema.TypeLineFunctions, "Funcs B")
	b, _ := g.AddNode(schema.TypeLineFunctions, "Funcs A")
	muted, _ := g.AddNode(schema.TypeLineFunctions, "Muted")
	muted.Muted = true
	require.NoError(t, g.AttachFunctions("Metal", a))
	require.NoError(t, g.AttachFunctions("Cloth", a))
	require.NoError(t, g.AttachFunctions("Skin", b))
	require.NoError(t, g.AttachFunctions("Glass", muted))

	res := Generate(g, nil, Options{})
	require.Len(t, res.Functions, 2)
	assert.Equal(t, "Funcs A", res.Functions[0].Record.Name)
	assert.Equal(t, []string{"Skin"}, res.Functions[0].Materials)
	assert.Equal(t, "Funcs B", res.Functions[1].Record.Name)
	assert.Equal(t, []string{"Cloth", "Metal"}, res.Functions[1].Materials)
	assert.Equal(t, []float64{0, 0, 0}, res.Functions[1].Record.Fields["outline_color"])
}

func TestMismatchIsSkipped(t *testing.T) {
	g, _, _ := simpleGraph(t)
	stack := override.NewStack()
	// An enum override that is a string of an unknown item passes the type
	// gate but cannot be converted.
	brush := g.Node("Brush Detail")
	require.NotNil(t, brush)
	stack.Layer(override.LayerScene).Set(override.Path(brush.Name(), "stroke_type"), "ZIGZAG")

	res := Generate(g, stack, Options{})
	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, "stroke_type", res.Mismatches[0].Field)

	rec := res.Lines[0].Refs("line_sets")[0].Ref("v_brush_settings").Ref("brush_detail_node")
	assert.NotContains(t, rec.Fields, "stroke_type")
	assert.Contains(t, rec.Fields, "line_type")
}

func TestWriteJSON(t *testing.T) {
	g, _, _ := simpleGraph(t)
	res := Generate(g, nil, Options{})

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, res))

	var doc struct {
		Lines   []map[string]string `json:"lines"`
		Records []struct {
			Type   string         `json:"type"`
			Name   string         `json:"name"`
			Fields map[string]any `json:"fields"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "Line", doc.Lines[0]["$ref"])
	require.NotEmpty(t, doc.Records)
	assert.Equal(t, []any{map[string]any{"$ref": "Line Set", "graph": ""}}, doc.Records[0].Fields["line_sets"])
}

func TestWriteJSONQualifiesRefsByGraph(t *testing.T) {
	var graphs []*nodegraph.Graph
	for _, name := range []string{"A", "B"} {
		g := nodegraph.New(name)
		line, err := maintain.NewLine(g)
		require.NoError(t, err)
		_, err = maintain.NewLineSet(g, line, 0)
		require.NoError(t, err)
		graphs = append(graphs, g)
	}
	res := GenerateAll(graphs, nil, Options{})

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, res))
	var doc struct {
		Lines   []map[string]string `json:"lines"`
		Records []struct {
			Graph string `json:"graph"`
			Name  string `json:"name"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	records := map[[2]string]bool{}
	for _, r := range doc.Records {
		key := [2]string{r.Graph, r.Name}
		assert.False(t, records[key], "duplicate record %v", key)
		records[key] = true
	}
	assert.Len(t, records, len(res.Records))

	require.Len(t, doc.Lines, 2)
	for _, l := range doc.Lines {
		assert.True(t, records[[2]string{l["graph"], l["$ref"]}], "line %v resolves to a record", l)
	}
	assert.NotEqual(t, doc.Lines[0]["graph"], doc.Lines[1]["graph"])
}
