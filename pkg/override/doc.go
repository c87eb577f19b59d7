// Package override resolves node attribute values through layered,
// pattern-keyed override tables.
//
// # Overview
//
// Every node attribute has a stored value. A [Stack] of override [Layer]s,
// ordered by priority (the view layer before the scene), can replace that
// value contextually without touching the node. Each layer is an ordered list
// of (key, value) entries where the key is either the literal attribute path
// or a regular expression matched against the whole path.
//
// # Paths
//
// Attribute paths follow the convention `<node-name>.<field>` and are only
// ever built by [Path]. Derived accessors such as `brush_map_on_gui` are
// folded onto their canonical field by [Canonical] before lookup.
//
// # Resolution
//
// [Resolve] walks the layers in order. Within a layer a literal key wins;
// otherwise the first entry whose pattern fully matches the path is taken.
// A candidate is accepted only if its type is compatible with the stored
// value (same dynamic type, an integer over a boolean, or equal-length
// sequences whose first elements share a type). A rejected candidate does
// not stop the walk: the next layer is consulted. When nothing matches the
// stored value is returned.
//
// Patterns are compiled when an entry is added. [Layer.AddPattern] rejects
// malformed expressions up front; entries restored from documents with
// [Layer.Set] keep working as literal keys even if their key is not a valid
// expression.
//
// Resolution is side-effect free. The live stack held by an editing session
// and the snapshot taken by an export produce identical results for
// identical inputs.
package override
