// Package schema declares the node types of a line-rendering graph: their
// typed fields, defaults, ranges and sockets.
//
// # Overview
//
// Each [NodeType] lists its [Field]s and input [SocketDecl]s in declaration
// order. The order matters: sockets are instantiated in that order when a
// node is created, and exported records list fields in that order.
//
// Field kinds describe how a value is stored and how it crosses the export
// boundary:
//
//   - [KindBool], [KindInt], [KindFloat]: primitives, converted by [Subtype]
//   - [KindFloatVector]: fixed-size vectors such as colors
//   - [KindEnum]: a symbolic identifier exported as its integer code
//   - [KindString], [KindObject], [KindImage]: plain references by name
//   - [KindCurve]: a key into the graph's curve store, exported as samples
//   - [KindNode]: the record of the node connected to [Field.Socket]
//   - [KindNodeList]: records of every socket whose ID starts with
//     [Field.Socket], in socket order
//   - [KindReferenceList]: object or material collections
//
// Subtypes only matter for export: angles are stored in degrees and exported
// in radians; percentages are stored as 0..100 and exported as fractions.
//
// # Registry
//
// [Default] holds the built-in types. [Registry.Register] validates a type
// before accepting it: every node-reference field must name a declared
// socket, enum defaults must be declared items and numeric defaults must
// lie within their range. A type that fails validation is a programming
// error, so the built-in registry panics at init rather than exporting an
// incomplete record later.
package schema
