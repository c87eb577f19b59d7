// Package export turns node graphs into flat records for the line renderer.
//
// [Generate] starts at the Line nodes and follows active, unmuted links
// down to every node they reach. Muted nodes, inactive Lines and line sets
// that are off are skipped together with everything only they reach. Each
// live node becomes one [Record] whose field set matches the node type's
// schema exactly:
//
//   - plain fields carry the resolved value converted for the renderer
//     (angles in radians, percentages as fractions, enums as codes)
//   - node fields point at the record of the connected node, or nil
//   - node-list fields hold the records of all connected slots in order
//   - curve fields hold the sampled curve
//
// The Line records are returned in render order, by render priority and
// then name. LineFunctions nodes are exported through the material table:
// one [FunctionsRecord] per node with the materials it is attached to.
//
// A field that cannot be transferred is logged, recorded as a [Mismatch]
// and left out of its record; the rest of the export goes on.
package export
