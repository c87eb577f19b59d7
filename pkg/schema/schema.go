package schema

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Sentinel errors for registry lookups and validation.
var (
	// ErrUnknownType is returned when a node type is not registered.
	ErrUnknownType = errors.New("unknown node type")

	// ErrUnknownField is returned when a field is not declared on a type.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownSocket is returned when a socket is not declared on a type.
	ErrUnknownSocket = errors.New("unknown socket")

	// ErrDuplicateType is returned by [Registry.Register] for a name that
	// is already registered.
	ErrDuplicateType = errors.New("duplicate node type")

	// ErrInvalidType is returned by [Registry.Register] when a declaration
	// is inconsistent.
	ErrInvalidType = errors.New("invalid node type")
)

// Kind is the storage kind of a field.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindFloatVector
	KindEnum
	KindString
	KindCurve
	KindObject
	KindImage
	KindNode
	KindNodeList
	KindReferenceList
)

var kindNames = [...]string{
	"bool", "int", "float", "float-vector", "enum", "string",
	"curve", "object", "image", "node", "node-list", "reference-list",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Subtype is the semantic unit of a numeric field.
type Subtype int

const (
	SubtypeNone Subtype = iota
	SubtypeAngle
	SubtypePercentage
	SubtypePixel
	SubtypeFactor
	SubtypeColor
	SubtypeDistance
)

// SocketKind identifies what a socket carries. Every kind except
// [SocketAny] is produced by exactly one node type.
type SocketKind string

const (
	SocketLineSet           SocketKind = "LineSet"
	SocketBrushSettings     SocketKind = "BrushSettings"
	SocketBrushDetail       SocketKind = "BrushDetail"
	SocketReductionSettings SocketKind = "ReductionSettings"
	SocketTextureMap        SocketKind = "TextureMap"

	// SocketAny is carried by relay nodes; it adopts the kind of whatever
	// feeds it.
	SocketAny SocketKind = "Any"
)

// Compatible reports whether an output of kind from may feed an input of
// kind to.
func Compatible(from, to SocketKind) bool {
	return from == to || from == SocketAny || to == SocketAny
}

// EnumItem is one symbolic value of an enum field.
type EnumItem struct {
	ID   string
	Code int
}

// Range is an inclusive numeric range.
type Range struct {
	Min, Max float64
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Field declares one attribute of a node type.
type Field struct {
	Name    string
	Kind    Kind
	Default any
	Range   *Range
	Subtype Subtype
	Items   []EnumItem

	// Socket is the socket ID (KindNode) or ID prefix (KindNodeList) the
	// field resolves through.
	Socket string

	// CurvePoints are the control points a new node's curve starts with.
	CurvePoints [][2]float64
	// CurveSamples is the number of samples exported for a curve.
	CurveSamples int
}

// Code returns the integer code of an enum identifier.
func (f Field) Code(id string) (int, bool) {
	for _, it := range f.Items {
		if it.ID == id {
			return it.Code, true
		}
	}
	return 0, false
}

// SocketDecl declares an input socket.
type SocketDecl struct {
	ID    string
	Name  string
	Kind  SocketKind
	Multi bool
}

// Placement controls where children created from a node's sockets are
// placed: location + step*index + offset.
type Placement struct {
	OffsetX, OffsetY float64
	StepX, StepY     float64
}

// DefaultPlacement is used by types that do not declare their own.
var DefaultPlacement = Placement{OffsetX: -320, StepY: -80}

// NodeType declares a node kind.
type NodeType struct {
	Name   string
	Label  string
	Output SocketKind // empty for nodes without an output
	Fields []Field
	Inputs []SocketDecl

	Placement Placement

	// Relay marks pass-through nodes that are transparent to traversal
	// and never exported.
	Relay bool
	// SideTable marks nodes that live outside the line tree and are
	// exported through the material side table.
	SideTable bool

	fields  map[string]int
	sockets map[string]int
}

// Field returns the named field.
func (t *NodeType) Field(name string) (Field, bool) {
	i, ok := t.fields[name]
	if !ok {
		return Field{}, false
	}
	return t.Fields[i], true
}

// Socket returns the named socket declaration.
func (t *NodeType) Socket(id string) (SocketDecl, bool) {
	i, ok := t.sockets[id]
	if !ok {
		return SocketDecl{}, false
	}
	return t.Inputs[i], true
}

// Stored reports whether values of the field live on the node. Node and
// node-list fields are derived from socket connectivity instead.
func (f Field) Stored() bool {
	return f.Kind != KindNode && f.Kind != KindNodeList
}

// Defaults returns a fresh map of default values for the stored fields.
// Slice defaults are copied.
func (t *NodeType) Defaults() map[string]any {
	out := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		if !f.Stored() {
			continue
		}
		switch d := f.Default.(type) {
		case []float64:
			out[f.Name] = slices.Clone(d)
		case []string:
			out[f.Name] = slices.Clone(d)
		default:
			out[f.Name] = d
		}
	}
	return out
}

// Registry maps type names to declarations.
type Registry struct {
	mu       sync.RWMutex
	types    map[string]*NodeType
	bySocket map[SocketKind]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:    make(map[string]*NodeType),
		bySocket: make(map[SocketKind]string),
	}
}

// Register validates and adds a type.
func (r *Registry) Register(t *NodeType) error {
	if err := index(t); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, t.Name)
	}
	if t.Output != "" && t.Output != SocketAny {
		if other, ok := r.bySocket[t.Output]; ok {
			return fmt.Errorf("%w: %s: socket kind %s already produced by %s", ErrInvalidType, t.Name, t.Output, other)
		}
		r.bySocket[t.Output] = t.Name
	}
	r.types[t.Name] = t
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(t *NodeType) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the named type.
func (r *Registry) Lookup(name string) (*NodeType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return t, nil
}

// TypeForSocket returns the type that produces sockets of the given kind.
func (r *Registry) TypeForSocket(kind SocketKind) (*NodeType, error) {
	r.mu.RLock()
	name, ok := r.bySocket[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no type produces %s", ErrUnknownType, kind)
	}
	return r.Lookup(name)
}

// Field looks up a field on a named type.
func (r *Registry) Field(typeName, field string) (Field, error) {
	t, err := r.Lookup(typeName)
	if err != nil {
		return Field{}, err
	}
	f, ok := t.Field(field)
	if !ok {
		return Field{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, typeName, field)
	}
	return f, nil
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// index builds the lookup tables of t and checks its declarations.
func index(t *NodeType) error {
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidType)
	}
	if t.Label == "" {
		t.Label = t.Name
	}
	if t.Placement == (Placement{}) {
		t.Placement = DefaultPlacement
	}

	t.sockets = make(map[string]int, len(t.Inputs))
	for i, s := range t.Inputs {
		if _, dup := t.sockets[s.ID]; dup {
			return fmt.Errorf("%w: %s: duplicate socket %q", ErrInvalidType, t.Name, s.ID)
		}
		t.sockets[s.ID] = i
	}

	t.fields = make(map[string]int, len(t.Fields))
	for i, f := range t.Fields {
		if _, dup := t.fields[f.Name]; dup {
			return fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidType, t.Name, f.Name)
		}
		if err := checkField(t, f); err != nil {
			return fmt.Errorf("%w: %s.%s: %v", ErrInvalidType, t.Name, f.Name, err)
		}
		t.fields[f.Name] = i
	}
	return nil
}

func checkField(t *NodeType, f Field) error {
	switch f.Kind {
	case KindNode:
		if _, ok := t.sockets[f.Socket]; !ok {
			return fmt.Errorf("socket %q not declared", f.Socket)
		}
	case KindNodeList:
		for _, s := range t.Inputs {
			if strings.HasPrefix(s.ID, f.Socket) {
				return nil
			}
		}
		return fmt.Errorf("no socket with prefix %q", f.Socket)
	case KindEnum:
		id, ok := f.Default.(string)
		if !ok {
			return fmt.Errorf("enum default must be a string")
		}
		if _, ok := f.Code(id); !ok {
			return fmt.Errorf("default %q is not a declared item", id)
		}
	case KindBool:
		if _, ok := f.Default.(bool); !ok {
			return fmt.Errorf("default must be a bool")
		}
	case KindInt:
		v, ok := f.Default.(int)
		if !ok {
			return fmt.Errorf("default must be an int")
		}
		if f.Range != nil && !f.Range.Contains(float64(v)) {
			return fmt.Errorf("default %d out of range", v)
		}
	case KindFloat:
		v, ok := f.Default.(float64)
		if !ok {
			return fmt.Errorf("default must be a float64")
		}
		if f.Range != nil && !f.Range.Contains(v) {
			return fmt.Errorf("default %g out of range", v)
		}
	case KindFloatVector:
		if _, ok := f.Default.([]float64); !ok {
			return fmt.Errorf("default must be []float64")
		}
	case KindCurve:
		if f.CurveSamples < 2 {
			return fmt.Errorf("curve needs at least 2 samples")
		}
	case KindReferenceList:
		if _, ok := f.Default.([]string); !ok {
			return fmt.Errorf("default must be []string")
		}
	}
	return nil
}
