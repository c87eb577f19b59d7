package schema

// Node type names.
const (
	TypeLine              = "Line"
	TypeLineSet           = "LineSet"
	TypeBrushSettings     = "BrushSettings"
	TypeBrushDetail       = "BrushDetail"
	TypeReductionSettings = "ReductionSettings"
	TypeTextureMap        = "TextureMap"
	TypeLineFunctions     = "LineFunctions"
	TypeReroute           = "Reroute"
)

// Socket IDs referenced outside this package.
const (
	SocketIDLineSet       = "lineset"
	SocketIDVBrush        = "v_brush"
	SocketIDHBrush        = "h_brush"
	SocketIDBrushDetail   = "brush_detail"
	SocketIDColorMap      = "color_map"
	SocketIDSizeMap       = "size_map"
	SocketIDBrushMap      = "brush_map"
	SocketIDDistortionMap = "distortion_map"
	SocketIDRelayInput    = "input"

	// SpecificSuffix ends the IDs of per-category brush override sockets.
	SpecificSuffix = "_specific"
)

// Common field names.
const (
	FieldIsActive       = "is_active"
	FieldIsOn           = "is_on"
	FieldRenderPriority = "render_priority"
	FieldBrushType      = "brush_type"
	FieldDistortion     = "distortion_enabled"
	FieldObjects        = "objects"
	FieldMaterials      = "materials"
)

// MaxRenderPriority is the upper bound of Line.render_priority.
const MaxRenderPriority = 65535

// DefaultCurveSamples is the number of samples exported per curve.
const DefaultCurveSamples = 64

// Edge categories of a line set, in socket order.
var Categories = []string{
	"outline", "object", "intersection", "smooth",
	"material", "selected", "normal_angle", "wireframe",
}

// LineFunctions categories, in field order.
var FunctionCategories = []string{
	"outline", "object", "intersection", "smooth",
	"material", "selected_edge", "normal_angle", "wireframe",
}

var defaultRegistry = NewRegistry()

func init() {
	for _, t := range builtinTypes() {
		defaultRegistry.MustRegister(t)
	}
}

// Default returns the registry holding the built-in node types.
func Default() *Registry { return defaultRegistry }

func builtinTypes() []*NodeType {
	return []*NodeType{
		lineType(),
		lineSetType(),
		brushSettingsType(),
		brushDetailType(),
		reductionSettingsType(),
		textureMapType(),
		lineFunctionsType(),
		{
			Name:   TypeReroute,
			Label:  "Reroute",
			Output: SocketAny,
			Inputs: []SocketDecl{{ID: SocketIDRelayInput, Name: "Input", Kind: SocketAny}},
			Relay:  true,
		},
	}
}

// =============================================================================
// Field constructors
// =============================================================================

func boolField(name string, def bool) Field {
	return Field{Name: name, Kind: KindBool, Default: def}
}

func intField(name string, def int, min, max float64) Field {
	return Field{Name: name, Kind: KindInt, Default: def, Range: &Range{min, max}}
}

func floatField(name string, def, min, max float64, st Subtype) Field {
	return Field{Name: name, Kind: KindFloat, Default: def, Range: &Range{min, max}, Subtype: st}
}

func colorField(name string) Field {
	return Field{Name: name, Kind: KindFloatVector, Default: []float64{0, 0, 0}, Subtype: SubtypeColor}
}

func enumField(name, def string, ids ...string) Field {
	items := make([]EnumItem, len(ids))
	for i, id := range ids {
		items[i] = EnumItem{ID: id, Code: i}
	}
	return Field{Name: name, Kind: KindEnum, Default: def, Items: items}
}

func nodeField(name, socket string) Field {
	return Field{Name: name, Kind: KindNode, Socket: socket}
}

func listField(name string) Field {
	return Field{Name: name, Kind: KindReferenceList, Default: []string{}}
}

func curveField(name string, points ...[2]float64) Field {
	return Field{Name: name, Kind: KindCurve, Default: "", CurvePoints: points, CurveSamples: DefaultCurveSamples}
}

// =============================================================================
// Line
// =============================================================================

func lineType() *NodeType {
	return &NodeType{
		Name:   TypeLine,
		Label:  "Line",
		Output: "",
		Fields: []Field{
			boolField(FieldIsActive, true),
			intField(FieldRenderPriority, 0, 0, MaxRenderPriority),
			{Name: "line_sets", Kind: KindNodeList, Socket: SocketIDLineSet},
			enumField("line_size_type", "ABSOLUTE", "ABSOLUTE", "RELATIVE"),
			boolField("is_output_to_render_elements_only", false),
			intField("over_sampling", 2, 1, 4),
			floatField("antialiasing", 1.0, 0, 2, SubtypeNone),
			floatField("off_screen_distance", 150, 0, 1000, SubtypePixel),
			intField("random_seed", 0, 0, 65535),
		},
		Inputs: []SocketDecl{
			{ID: SocketIDLineSet, Name: "Line Set", Kind: SocketLineSet, Multi: true},
		},
		Placement: Placement{OffsetX: -360, StepY: -480},
	}
}

// =============================================================================
// LineSet
// =============================================================================

func lineSetType() *NodeType {
	t := &NodeType{
		Name:   TypeLineSet,
		Label:  "Line Set",
		Output: SocketLineSet,
		Fields: []Field{
			boolField(FieldIsOn, true),
			intField("lineset_id", 1, 1, 8),
			listField(FieldObjects),
			listField(FieldMaterials),
			boolField("is_weld_edges", false),
			boolField("is_mask_hidden_lines", false),
		},
		Placement: Placement{OffsetX: -340, StepY: -20},
	}
	for _, side := range []string{"v", "h"} {
		t.Fields = append(t.Fields, lineSetSideFields(side)...)
		t.Inputs = append(t.Inputs, lineSetSideSockets(side)...)
	}
	return t
}

func lineSetSideFields(side string) []Field {
	visible := side == "v"
	p := side + "_"
	fields := []Field{nodeField(p+"brush_settings", p+"brush")}

	for _, c := range Categories {
		on := visible && c != "normal_angle" && c != "wireframe"
		fields = append(fields, boolField(p+c+"_on", on))
		switch c {
		case "outline":
			fields = append(fields, boolField(p+c+"_open", true), boolField(p+c+"_merge_groups", false))
		case "object":
			fields = append(fields, boolField(p+c+"_open", true))
		case "intersection":
			fields = append(fields, boolField(p+c+"_self", true))
		}
		fields = append(fields,
			boolField(p+c+"_specific_on", false),
			nodeField(p+c+"_brush_settings", p+c+SpecificSuffix),
		)
		if c == "normal_angle" {
			fields = append(fields,
				floatField(p+c+"_min", 45, 0, 180, SubtypeAngle),
				floatField(p+c+"_max", 180, 0, 180, SubtypeAngle),
			)
		}
	}
	for _, r := range []string{"size_reduction", "alpha_reduction"} {
		fields = append(fields,
			boolField(p+r+"_on", false),
			nodeField(p+r+"_settings", p+r),
		)
	}
	return fields
}

var categoryLabels = map[string]string{
	"outline": "Outline", "object": "Object", "intersection": "Intersection",
	"smooth": "Smoothing", "material": "Material ID", "selected": "Selected Edges",
	"normal_angle": "Normal Angle", "wireframe": "Wireframe",
}

func lineSetSideSockets(side string) []SocketDecl {
	upper := "V"
	if side == "h" {
		upper = "H"
	}
	p := side + "_"
	sockets := []SocketDecl{{ID: p + "brush", Name: upper + " Brush Settings", Kind: SocketBrushSettings}}
	for _, c := range Categories {
		sockets = append(sockets, SocketDecl{
			ID:   p + c + SpecificSuffix,
			Name: upper + " " + categoryLabels[c],
			Kind: SocketBrushSettings,
		})
	}
	sockets = append(sockets,
		SocketDecl{ID: p + "size_reduction", Name: upper + " Size Reduction", Kind: SocketReductionSettings},
		SocketDecl{ID: p + "alpha_reduction", Name: upper + " Alpha Reduction", Kind: SocketReductionSettings},
	)
	return sockets
}

// =============================================================================
// BrushSettings / BrushDetail
// =============================================================================

var brushPlacement = Placement{OffsetX: -160, OffsetY: -60, StepY: -60}

func brushSettingsType() *NodeType {
	return &NodeType{
		Name:   TypeBrushSettings,
		Label:  "Brush Settings",
		Output: SocketBrushSettings,
		Fields: []Field{
			nodeField("brush_detail_node", SocketIDBrushDetail),
			floatField("blend_amount", 1, 0, 1, SubtypeFactor),
			colorField("brush_color"),
			boolField("color_map_on", false),
			nodeField("color_map", SocketIDColorMap),
			floatField("color_map_opacity", 1, 0, 1, SubtypeFactor),
			floatField("size", 1, 0.001, 100, SubtypePixel),
			boolField("size_map_on", false),
			nodeField("size_map", SocketIDSizeMap),
			floatField("size_map_amount", 1, 0, 1, SubtypeFactor),
		},
		Inputs: []SocketDecl{
			{ID: SocketIDBrushDetail, Name: "Brush Detail", Kind: SocketBrushDetail},
			{ID: SocketIDColorMap, Name: "Color Map", Kind: SocketTextureMap},
			{ID: SocketIDSizeMap, Name: "Size Map", Kind: SocketTextureMap},
		},
		Placement: brushPlacement,
	}
}

func brushDetailType() *NodeType {
	pct := func(name string, def float64) Field {
		return floatField(name, def, 0, 100, SubtypePercentage)
	}
	px := func(name string, def, min, max float64) Field {
		return floatField(name, def, min, max, SubtypePixel)
	}
	plain := func(name string, def, min, max float64) Field {
		return floatField(name, def, min, max, SubtypeNone)
	}
	angle := func(name string, def, min, max float64) Field {
		return floatField(name, def, min, max, SubtypeAngle)
	}
	reductionPoints := [][2]float64{{0, 0.25}, {0.5, 1}, {1, 0.25}}

	return &NodeType{
		Name:   TypeBrushDetail,
		Label:  "Brush Detail",
		Output: SocketBrushDetail,
		Fields: []Field{
			enumField(FieldBrushType, "SIMPLE", "NORMAL", "MULTIPLE", "SIMPLE"),
			boolField("brush_map_on", false),
			nodeField("brush_map", SocketIDBrushMap),
			plain("brush_map_opacity", 1, 0, 1),
			plain("stretch", 0, -1, 1),
			pct("stretch_random", 0),
			angle("angle", 0, -3600, 3600),
			angle("angle_random", 0, 0, 360),
			plain("groove", 0, 0, 1),
			intField("groove_number", 5, 3, 20),
			plain("size", 16, 0.1, 100),
			pct("size_random", 80),
			plain("antialiasing", 0.5, 0, 10),
			plain("horizontal_space", 0.1, 0, 1),
			pct("horizontal_space_random", 100),
			plain("vertical_space", 0.1, 0, 1),
			pct("vertical_space_random", 100),
			plain("reduction_start", 1, 0, 1),
			plain("reduction_end", 1, 0, 1),

			enumField("stroke_type", "NORMAL", "NORMAL", "RAKE", "RANDOM"),
			enumField("line_type", "FULL", "FULL", "DASHED"),
			px("length", 5, 0.001, 10000),
			pct("length_random", 0),
			px("space", 5, 1, 10000),
			pct("space_random", 0),
			pct("stroke_size_random", 0),
			px("extend", 0, 0, 10000),
			pct("extend_random", 0),
			intField("line_copy", 1, 1, 10),
			intField("line_copy_random", 0, 0, 10),
			px("normal_offset", 0, -1000, 1000),
			px("normal_offset_random", 0, 0, 1000),
			px("x_offset", 0, -1000, 1000),
			px("x_offset_random", 0, 0, 1000),
			px("y_offset", 0, -1000, 1000),
			px("y_offset_random", 0, 0, 1000),
			angle("line_split_angle", 90, 0, 180),
			px("min_line_length", 0, 0, 100),
			px("line_link_length", 2, 0, 100),
			angle("line_direction", -30, -180, 180),
			enumField("loop_direction_type", "CLOCKWISE", "CLOCKWISE", "ANTICLOCKWISE"),

			boolField(FieldDistortion, false),
			boolField("distortion_map_on", false),
			nodeField("distortion_map", SocketIDDistortionMap),
			px("distortion_map_amount", 5, 0, 1000),
			px("distortion_amount", 5, 0, 1000),
			pct("distortion_random", 0),
			px("distortion_cycles", 100, 5, 1000),
			pct("distortion_cycles_random", 0),
			angle("distortion_phase", 0, -5400, 5400),
			plain("distortion_phase_random", 0, 0, 1),

			boolField("size_reduction_enabled", false),
			curveField("size_reduction_curve", reductionPoints...),
			boolField("alpha_reduction_enabled", false),
			curveField("alpha_reduction_curve", reductionPoints...),

			enumField("color_space_type", "RGB", "RGB", "HSV"),
			plain("color_space_red", 0, 0, 1),
			plain("color_space_green", 0, 0, 1),
			plain("color_space_blue", 0, 0, 1),
			plain("color_space_hue", 0, 0, 1),
			plain("color_space_saturation", 0, 0, 1),
			plain("color_space_value", 0, 0, 1),
		},
		Inputs: []SocketDecl{
			{ID: SocketIDBrushMap, Name: "Brush Map", Kind: SocketTextureMap},
			{ID: SocketIDDistortionMap, Name: "Distortion Map", Kind: SocketTextureMap},
		},
		Placement: brushPlacement,
	}
}

// =============================================================================
// ReductionSettings / TextureMap
// =============================================================================

func reductionSettingsType() *NodeType {
	return &NodeType{
		Name:   TypeReductionSettings,
		Label:  "Reduction Settings",
		Output: SocketReductionSettings,
		Fields: []Field{
			floatField("reduction_start", 1, 0.01, 100000, SubtypeDistance),
			floatField("reduction_end", 10, 0.01, 100000, SubtypeDistance),
			curveField("curve", [2]float64{0, 1}, [2]float64{0.2, 0.4}, [2]float64{1, 0.1}),
			boolField("refer_object_on", false),
			{Name: "object_reference", Kind: KindObject, Default: ""},
		},
	}
}

func textureMapType() *NodeType {
	wrap := []string{"REPEAT", "CLAMP", "MIRROR", "MIRROR_ONCE", "CLIP"}
	return &NodeType{
		Name:   TypeTextureMap,
		Label:  "Texture Map",
		Output: SocketTextureMap,
		Fields: []Field{
			enumField("source_type", "IMAGE", "IMAGE", "OBJECTCOLOR"),
			{Name: "image", Kind: KindImage, Default: ""},
			enumField("wrap_mode_u", "REPEAT", wrap...),
			enumField("wrap_mode_v", "REPEAT", wrap...),
			enumField("filter_mode", "BILINEAR", "POINT", "BILINEAR"),
			{Name: "tiling", Kind: KindFloatVector, Default: []float64{1, 1}},
			{Name: "offset", Kind: KindFloatVector, Default: []float64{0, 0}},
			floatField("rotation", 0, -3600, 3600, SubtypeAngle),
			enumField("uv_source", "SCREEN", "SCREEN", "OBJECTUV"),
			enumField("uv_selection_mode", "INDEX", "INDEX", "NAME"),
			intField("uv_index", 0, 0, 7),
			{Name: "uv_name", Kind: KindString, Default: "UVMap"},
			enumField("object_color_selection_mode", "INDEX", "INDEX", "NAME"),
			intField("object_color_index", 0, 0, 7),
			{Name: "object_color_name", Kind: KindString, Default: "Color"},
		},
	}
}

// =============================================================================
// LineFunctions
// =============================================================================

func lineFunctionsType() *NodeType {
	t := &NodeType{
		Name:      TypeLineFunctions,
		Label:     "Line Functions",
		SideTable: true,
	}
	for _, c := range FunctionCategories {
		t.Fields = append(t.Fields,
			boolField(c+"_on", false),
			colorField(c+"_color"),
			floatField(c+"_amount", 1, 0, 1, SubtypeNone),
		)
	}
	t.Fields = append(t.Fields,
		boolField("disable_intersection", false),
		boolField("draw_hidden_lines", false),
		boolField("draw_hidden_lines_of_targets", false),
		listField("draw_hidden_lines_of_targets_objects"),
		listField("draw_hidden_lines_of_targets_materials"),
		boolField("mask_hidden_lines_of_targets", false),
		listField("mask_hidden_lines_of_targets_objects"),
		listField("mask_hidden_lines_of_targets_materials"),
	)
	return t
}
