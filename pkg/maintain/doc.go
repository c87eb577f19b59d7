// Package maintain implements the structural edits that keep a node graph
// consistent while it is being edited.
//
// # Collection sockets
//
// A node with a collection input (a Line's line-set list) always ends with
// exactly one unlinked slot, the insertion point for the next connection.
// [EnsureTrailingSlot] restores that after every edit; [InsertSocket],
// [RemoveSocket], [RemoveRange], [Shrink], [Swap] and [MoveLineSet] all end
// with it. Slots carry identity through their links, so reordering moves
// sockets instead of swapping values.
//
// # Cascading deletes
//
// [DeleteIfUnused] removes a node that feeds nothing, then every node that
// only fed the removed ones. It collects the full set before deleting
// anything.
//
// # Child creation
//
// [CreateChild] instantiates the node type that produces a socket's kind,
// places it next to its parent and links it. [AutoCreateOnEnable] does the
// same when a feature switch such as `v_size_reduction_on` is turned on and
// its socket is still empty.
//
// # Lines
//
// Lines are ordered by (render_priority, name). [NewLine] appends a Line
// after the existing ones, [MovePriority] moves one up or down and repairs
// the priorities so that they stay strictly increasing in display order.
//
// Every operation runs to completion before returning and leaves the graph
// pruned.
package maintain
