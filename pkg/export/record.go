package export

import (
	"encoding/json"
	"io"
	"maps"
	"slices"
)

// Record is the flat, schema-shaped form of one live node.
type Record struct {
	Graph string
	Type  string
	Name  string

	// Fields maps field names to converted values. Node fields hold a
	// *Record (or nil) and node-list fields a []*Record.
	Fields map[string]any
}

// Ref returns the referenced record of a node field, or nil.
func (r *Record) Ref(field string) *Record {
	ref, _ := r.Fields[field].(*Record)
	return ref
}

// Refs returns the referenced records of a node-list field.
func (r *Record) Refs(field string) []*Record {
	refs, _ := r.Fields[field].([]*Record)
	return refs
}

// FunctionsRecord is a LineFunctions record with its target materials.
type FunctionsRecord struct {
	Record    *Record
	Materials []string
}

// Mismatch describes a field that could not be transferred.
type Mismatch struct {
	Graph  string
	Node   string
	Field  string
	Reason string
}

func (m Mismatch) String() string {
	return m.Node + "." + m.Field + " - " + m.Reason
}

// Result is the outcome of an export.
type Result struct {
	// Lines are the Line records in render order.
	Lines []*Record
	// Records are all live records in allocation order.
	Records []*Record
	// Functions are the LineFunctions records sorted by name.
	Functions []*FunctionsRecord
	// Mismatches lists the fields that were skipped.
	Mismatches []Mismatch
}

// =============================================================================
// JSON
// =============================================================================

// refJSON names a record by graph and node name. Node names are only
// unique within their graph.
type refJSON struct {
	Ref   string `json:"$ref"`
	Graph string `json:"graph"`
}

type recordJSON struct {
	Graph  string         `json:"graph"`
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields"`
}

type functionsJSON struct {
	Record    refJSON  `json:"record"`
	Materials []string `json:"materials"`
}

type resultJSON struct {
	Lines      []refJSON       `json:"lines"`
	Records    []recordJSON    `json:"records"`
	Functions  []functionsJSON `json:"functions"`
	Mismatches []string        `json:"mismatches,omitempty"`
}

func ref(r *Record) refJSON { return refJSON{Ref: r.Name, Graph: r.Graph} }

// MarshalJSON encodes references to other records as
// {"$ref": name, "graph": graph}.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.toJSON())
}

func (r *Record) toJSON() recordJSON {
	fields := make(map[string]any, len(r.Fields))
	for _, k := range slices.Sorted(maps.Keys(r.Fields)) {
		switch v := r.Fields[k].(type) {
		case *Record:
			if v == nil {
				fields[k] = nil
			} else {
				fields[k] = ref(v)
			}
		case []*Record:
			refs := make([]refJSON, len(v))
			for i, c := range v {
				refs[i] = ref(c)
			}
			fields[k] = refs
		default:
			fields[k] = v
		}
	}
	return recordJSON{Graph: r.Graph, Type: r.Type, Name: r.Name, Fields: fields}
}

// MarshalJSON encodes the result with records inline and every other
// occurrence as a reference.
func (res *Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Lines:     make([]refJSON, len(res.Lines)),
		Records:   make([]recordJSON, len(res.Records)),
		Functions: make([]functionsJSON, len(res.Functions)),
	}
	for i, r := range res.Lines {
		out.Lines[i] = ref(r)
	}
	for i, r := range res.Records {
		out.Records[i] = r.toJSON()
	}
	for i, f := range res.Functions {
		out.Functions[i] = functionsJSON{Record: ref(f.Record), Materials: f.Materials}
	}
	for _, m := range res.Mismatches {
		out.Mismatches = append(out.Mismatches, m.String())
	}
	return json.Marshal(out)
}

// WriteJSON writes the result as indented JSON.
func WriteJSON(w io.Writer, res *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// Summary counts the parts of an encoded result.
type Summary struct {
	Lines      int `json:"lines"`
	Records    int `json:"records"`
	Functions  int `json:"functions"`
	Mismatches int `json:"mismatches"`
}

// Summarize counts the parts of a result encoded by [Result.MarshalJSON].
func Summarize(data []byte) (Summary, error) {
	var out resultJSON
	if err := json.Unmarshal(data, &out); err != nil {
		return Summary{}, err
	}
	return Summary{
		Lines:      len(out.Lines),
		Records:    len(out.Records),
		Functions:  len(out.Functions),
		Mismatches: len(out.Mismatches),
	}, nil
}

// Summary counts the parts of res.
func (res *Result) Summary() Summary {
	return Summary{
		Lines:      len(res.Lines),
		Records:    len(res.Records),
		Functions:  len(res.Functions),
		Mismatches: len(res.Mismatches),
	}
}
