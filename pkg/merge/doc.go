// Package merge copies one node graph into another.
//
// A merge runs in five steps:
//
//  1. The source's object and material lists are cleaned up: references to
//     items the host no longer has are repointed to a local item of the
//     same name through an [IDMap], leftovers are dropped, and nodes that
//     feed neither a Line nor a material attachment are deleted.
//  2. With ReplaceSameNameLines, destination roots named like a source
//     root are deleted together with the nodes only they used.
//  3. Curves referenced by source fields are copied into the destination
//     store unless it already holds one with the same control points.
//  4. The source nodes are copied with their links. Taken names get a
//     ".NNN" suffix.
//  5. Viewers of the source are repointed and the source is cleared.
//
// Steps 1 to 4 run on copies of both graphs. The destination is only
// replaced once all of them succeeded, so a failed merge leaves both
// graphs as they were.
package merge
