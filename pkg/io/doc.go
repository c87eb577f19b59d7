// Package io reads and writes pencilgraph documents.
//
// # Overview
//
// A [Document] holds one or more node graphs together with the override
// layers they are rendered under. Documents can be stored as JSON, TOML or
// YAML; the format is chosen from the file extension by [FormatFromPath].
//
//	doc, err := io.ImportFile("scene.yaml", io.ReadOptions{})
//	if err != nil {
//	    return err
//	}
//	graphs, stack, err := doc.Build(schema.Default(), logger)
//
// # Graph documents
//
//	{
//	  "version": 1,
//	  "graphs": [{
//	    "name": "Pencil+ 4 Line Node Tree",
//	    "nodes": [
//	      {"name": "Line", "type": "Line", "inputs": ["line_sets", "line_sets"],
//	       "values": {"render_priority": 0}},
//	      {"name": "Line Set", "type": "LineSet", "values": {"objects": ["Cube"]}}
//	    ],
//	    "links": [{"from": "Line Set", "to": "Line", "input": 0}],
//	    "curves": {"curve-1": [[0, 1], [1, 1]]},
//	    "materials": {"Material": "Line Functions"}
//	  }]
//	}
//
// Node values are checked against the node type on load. Every numeric
// encoding the three formats produce is accepted: whole numbers are taken
// as integers for int fields and as floats for float fields. Fields the
// node type does not declare are logged and skipped.
//
// Documents written by older releases store a Texture Map's UV source as a
// single integer "texture_uv_source": 0 meant screen space and N meant
// object UV channel N-1. Those values are migrated to uv_source,
// uv_selection_mode and uv_index on load.
//
// # Layer documents
//
// Override entries keep their value type explicitly ("bool", "int",
// "float", "string", "float-vector", "string-list") because the resolver
// only accepts overrides whose type matches the stored value.
package io
