package schema

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryTypes(t *testing.T) {
	reg := Default()
	want := []string{
		TypeBrushDetail, TypeBrushSettings, TypeLine, TypeLineFunctions,
		TypeLineSet, TypeReductionSettings, TypeReroute, TypeTextureMap,
	}
	assert.Equal(t, want, reg.Names())
}

func TestTypeForSocket(t *testing.T) {
	tests := []struct {
		kind SocketKind
		want string
	}{
		{SocketLineSet, TypeLineSet},
		{SocketBrushSettings, TypeBrushSettings},
		{SocketBrushDetail, TypeBrushDetail},
		{SocketReductionSettings, TypeReductionSettings},
		{SocketTextureMap, TypeTextureMap},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			typ, err := Default().TypeForSocket(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, typ.Name)
		})
	}

	_, err := Default().TypeForSocket(SocketAny)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestLineSetSocketOrder(t *testing.T) {
	typ, err := Default().Lookup(TypeLineSet)
	require.NoError(t, err)
	require.Len(t, typ.Inputs, 22)

	ids := make([]string, 0, 11)
	for _, s := range typ.Inputs[:11] {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{
		"v_brush",
		"v_outline_specific", "v_object_specific", "v_intersection_specific",
		"v_smooth_specific", "v_material_specific", "v_selected_specific",
		"v_normal_angle_specific", "v_wireframe_specific",
		"v_size_reduction", "v_alpha_reduction",
	}, ids)
	assert.Equal(t, "h_brush", typ.Inputs[11].ID)
	assert.Equal(t, SocketReductionSettings, typ.Inputs[21].Kind)
}

func TestLineSetDefaults(t *testing.T) {
	typ, err := Default().Lookup(TypeLineSet)
	require.NoError(t, err)
	d := typ.Defaults()

	assert.Equal(t, true, d["v_outline_on"])
	assert.Equal(t, false, d["v_normal_angle_on"])
	assert.Equal(t, false, d["v_wireframe_on"])
	assert.Equal(t, false, d["h_outline_on"])
	assert.Equal(t, true, d["h_outline_open"])
	assert.Equal(t, 45.0, d["v_normal_angle_min"])
	assert.Equal(t, []string{}, d["objects"])
	_, derived := d["v_brush_settings"]
	assert.False(t, derived, "node fields are not stored")
}

func TestDefaultsAreCopies(t *testing.T) {
	typ, err := Default().Lookup(TypeBrushSettings)
	require.NoError(t, err)
	a := typ.Defaults()
	a["brush_color"].([]float64)[0] = 1
	b := typ.Defaults()
	assert.Equal(t, []float64{0, 0, 0}, b["brush_color"])
}

func TestEveryNodeFieldHasSocket(t *testing.T) {
	reg := Default()
	for _, name := range reg.Names() {
		typ, err := reg.Lookup(name)
		require.NoError(t, err)
		for _, f := range typ.Fields {
			if f.Kind != KindNode {
				continue
			}
			_, ok := typ.Socket(f.Socket)
			assert.True(t, ok, "%s.%s -> %s", name, f.Name, f.Socket)
		}
	}
}

func TestRegisterRejectsInconsistentTypes(t *testing.T) {
	tests := []struct {
		name string
		typ  *NodeType
	}{
		{"empty name", &NodeType{}},
		{"undeclared socket", &NodeType{Name: "X", Fields: []Field{nodeField("child", "nope")}}},
		{"list without prefix", &NodeType{Name: "X", Fields: []Field{{Name: "l", Kind: KindNodeList, Socket: "items"}}}},
		{"enum default", &NodeType{Name: "X", Fields: []Field{{Name: "e", Kind: KindEnum, Default: "C", Items: []EnumItem{{"A", 0}}}}}},
		{"range", &NodeType{Name: "X", Fields: []Field{intField("i", 9, 0, 4)}}},
		{"float default type", &NodeType{Name: "X", Fields: []Field{{Name: "f", Kind: KindFloat, Default: 1}}}},
		{"duplicate field", &NodeType{Name: "X", Fields: []Field{boolField("a", true), boolField("a", false)}}},
		{"curve samples", &NodeType{Name: "X", Fields: []Field{{Name: "c", Kind: KindCurve, Default: ""}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(tt.typ)
			assert.ErrorIs(t, err, ErrInvalidType)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&NodeType{Name: "A", Output: "K"}))
	assert.ErrorIs(t, reg.Register(&NodeType{Name: "A"}), ErrDuplicateType)
	assert.ErrorIs(t, reg.Register(&NodeType{Name: "B", Output: "K"}), ErrInvalidType)
}

func TestRegistryField(t *testing.T) {
	f, err := Default().Field(TypeBrushDetail, FieldBrushType)
	require.NoError(t, err)
	code, ok := f.Code("SIMPLE")
	assert.True(t, ok)
	assert.Equal(t, 2, code)

	_, err = Default().Field(TypeBrushDetail, "nope")
	assert.True(t, errors.Is(err, ErrUnknownField))
	_, err = Default().Field("Nope", "x")
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestConvert(t *testing.T) {
	reg := Default()
	field := func(typ, name string) Field {
		f, err := reg.Field(typ, name)
		require.NoError(t, err)
		return f
	}

	tests := []struct {
		name  string
		field Field
		in    any
		want  any
	}{
		{"angle to radians", field(TypeBrushDetail, "line_split_angle"), 90.0, math.Pi / 2},
		{"percentage to fraction", field(TypeBrushDetail, "size_random"), 80.0, 0.8},
		{"pixel unchanged", field(TypeLine, "off_screen_distance"), 150.0, 150.0},
		{"int promoted for float field", field(TypeLine, "antialiasing"), 1, 1.0},
		{"enum code", field(TypeTextureMap, "wrap_mode_u"), "MIRROR_ONCE", 3},
		{"int", field(TypeLine, "over_sampling"), 2, 2},
		{"bool", field(TypeLine, FieldIsActive), true, true},
		{"vector", field(TypeBrushSettings, "brush_color"), []float64{1, 0.5, 0}, []float64{1, 0.5, 0}},
		{"list", field(TypeLineSet, FieldObjects), []string{"Cube"}, []string{"Cube"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.field, tt.in)
			require.NoError(t, err)
			if f, ok := tt.want.(float64); ok {
				assert.InDelta(t, f, got, 1e-12)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertErrors(t *testing.T) {
	f, err := Default().Field(TypeBrushDetail, FieldBrushType)
	require.NoError(t, err)
	_, err = Convert(f, "FANCY")
	assert.ErrorIs(t, err, ErrValueType)

	f, err = Default().Field(TypeLine, "over_sampling")
	require.NoError(t, err)
	_, err = Convert(f, "two")
	assert.ErrorIs(t, err, ErrValueType)

	f, err = Default().Field(TypeLine, "line_sets")
	require.NoError(t, err)
	_, err = Convert(f, "lineset")
	assert.ErrorIs(t, err, ErrValueType)
}

func TestCheck(t *testing.T) {
	f, err := Default().Field(TypeLine, "over_sampling")
	require.NoError(t, err)
	assert.NoError(t, Check(f, 4))
	assert.ErrorIs(t, Check(f, 5), ErrValueType)
	assert.ErrorIs(t, Check(f, 2.0), ErrValueType)

	f, err = Default().Field(TypeTextureMap, "tiling")
	require.NoError(t, err)
	assert.NoError(t, Check(f, []float64{2, 2}))
	err = Check(f, []float64{2, 2, 2})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "components"))
}

func TestCompatible(t *testing.T) {
	assert.True(t, Compatible(SocketLineSet, SocketLineSet))
	assert.True(t, Compatible(SocketAny, SocketTextureMap))
	assert.True(t, Compatible(SocketTextureMap, SocketAny))
	assert.False(t, Compatible(SocketBrushDetail, SocketBrushSettings))
}
