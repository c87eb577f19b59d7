package maintain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

var (
	// ErrNoCollection is returned for nodes without a collection input.
	ErrNoCollection = errors.New("node has no collection input")

	// ErrOutOfRange is returned for socket or list positions outside the
	// current list.
	ErrOutOfRange = errors.New("index out of range")

	// ErrSlotLinked is returned when a child is requested for a socket that
	// is already linked.
	ErrSlotLinked = errors.New("socket is already linked")

	// ErrNoProducer is returned by [CreateChild] for sockets whose kind is
	// not produced by any node type.
	ErrNoProducer = errors.New("no node type produces the socket kind")

	// ErrNotLine is returned by line operations given another node type.
	ErrNotLine = errors.New("node is not a Line")

	// ErrTrailingSlot is returned by [Swap] when asked to move the open
	// slot that ends a collection.
	ErrTrailingSlot = errors.New("the trailing open slot cannot be moved")
)

// collectionID returns the ID of n's collection input.
func collectionID(n *nodegraph.Node) (string, bool) {
	for _, d := range n.Type.Inputs {
		if d.Multi {
			return d.ID, true
		}
	}
	return "", false
}

// EnsureTrailingSlot appends an unlinked slot when the collection is empty
// or its last slot is linked. Nodes without a collection are left alone.
func EnsureTrailingSlot(g *nodegraph.Graph, n *nodegraph.Node) error {
	id, ok := collectionID(n)
	if !ok {
		return nil
	}
	slots := n.InputsWithPrefix(id)
	if len(slots) > 0 && !slots[len(slots)-1].IsLinked() {
		return nil
	}
	_, err := g.AppendInput(n, id)
	return err
}

// InsertSocket inserts an unlinked slot at index.
func InsertSocket(g *nodegraph.Graph, n *nodegraph.Node, index int) error {
	id, ok := collectionID(n)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoCollection, n.Name())
	}
	if index < 0 || index >= len(n.Inputs) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	if _, err := g.InsertInput(n, id, index); err != nil {
		return err
	}
	return EnsureTrailingSlot(g, n)
}

// RemoveSocket removes the slot at index and deletes the node it detached
// if nothing else uses it.
func RemoveSocket(g *nodegraph.Graph, n *nodegraph.Node, index int) error {
	return RemoveRange(g, n, index, index+1)
}

// RemoveRange removes the slots in [from, to) and cascades to the detached
// nodes.
func RemoveRange(g *nodegraph.Graph, n *nodegraph.Node, from, to int) error {
	if _, ok := collectionID(n); !ok {
		return fmt.Errorf("%w: %s", ErrNoCollection, n.Name())
	}
	if from < 0 || to > len(n.Inputs) || from >= to {
		return fmt.Errorf("%w: [%d, %d)", ErrOutOfRange, from, to)
	}
	for _, s := range n.Inputs[from:to] {
		if !s.Multi {
			return fmt.Errorf("%w: %s", nodegraph.ErrFixedSocket, s.ID)
		}
	}

	var detached []*nodegraph.Node
	for i := to - 1; i >= from; i-- {
		child, err := g.RemoveInput(n, i)
		if err != nil {
			return err
		}
		if child != nil {
			detached = append(detached, child)
		}
	}
	for _, child := range detached {
		if g.Contains(child) {
			DeleteIfUnused(g, child)
		}
	}
	return EnsureTrailingSlot(g, n)
}

// Shrink removes every unlinked slot and then restores the trailing slot.
func Shrink(g *nodegraph.Graph, n *nodegraph.Node) error {
	if _, ok := collectionID(n); !ok {
		return fmt.Errorf("%w: %s", ErrNoCollection, n.Name())
	}
	for i := len(n.Inputs) - 1; i >= 0; i-- {
		if s := n.Inputs[i]; s.Multi && !s.IsLinked() {
			if _, err := g.RemoveInput(n, i); err != nil {
				return err
			}
		}
	}
	return EnsureTrailingSlot(g, n)
}

// Swap exchanges the slots at i and j with two moves, so each socket keeps
// its link. The open slot ending a collection stays where it is.
func Swap(g *nodegraph.Graph, n *nodegraph.Node, i, j int) error {
	if i < 0 || j < 0 || i >= len(n.Inputs) || j >= len(n.Inputs) {
		return fmt.Errorf("%w: %d <-> %d", ErrOutOfRange, i, j)
	}
	if i == j {
		return nil
	}
	if isTrailingSlot(n, i) || isTrailingSlot(n, j) {
		return fmt.Errorf("%w: %d <-> %d", ErrTrailingSlot, i, j)
	}
	if err := g.MoveInput(n, i, j); err != nil {
		return err
	}
	back := j - 1
	if i > j {
		back = j + 1
	}
	if err := g.MoveInput(n, back, i); err != nil {
		return err
	}
	return EnsureTrailingSlot(g, n)
}

// isTrailingSlot reports whether the input at index is the unlinked last
// slot of n's collection.
func isTrailingSlot(n *nodegraph.Node, index int) bool {
	id, ok := collectionID(n)
	if !ok {
		return false
	}
	slots := n.InputsWithPrefix(id)
	if len(slots) == 0 {
		return false
	}
	last := slots[len(slots)-1]
	return n.Inputs[index] == last && !last.IsLinked()
}

// MoveLineSet moves the linked slot at index one linked slot up (step < 0)
// or down (step > 0), skipping unlinked slots in between.
func MoveLineSet(g *nodegraph.Graph, line *nodegraph.Node, index, step int) error {
	if step == 0 || index < 0 || index >= len(line.Inputs) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	if step > 0 {
		step = 1
	} else {
		step = -1
	}
	target := index + step
	for {
		if target < 0 || target >= len(line.Inputs) {
			return fmt.Errorf("%w: no linked slot to move to", ErrOutOfRange)
		}
		if line.Inputs[target].IsLinked() {
			break
		}
		target += step
	}
	if err := Swap(g, line, index, target); err != nil {
		return err
	}
	return EnsureTrailingSlot(g, line)
}

// CreateChild creates a node of the type producing the socket's kind,
// places it next to n and links it into the socket at index.
func CreateChild(g *nodegraph.Graph, n *nodegraph.Node, index int) (*nodegraph.Node, error) {
	if index < 0 || index >= len(n.Inputs) {
		return nil, fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	s := n.Inputs[index]
	if s.IsLinked() {
		return nil, fmt.Errorf("%w: %s", ErrSlotLinked, s)
	}
	t, err := g.Registry().TypeForSocket(s.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoProducer, s.Kind, err)
	}
	loc := position(g, n, index)
	child, err := g.AddNode(t.Name, "")
	if err != nil {
		return nil, err
	}
	child.Location = loc
	if _, err := g.Link(child, s); err != nil {
		_ = g.RemoveNode(child)
		return nil, err
	}
	return child, nil
}

// AutoCreateOnEnable creates the child for socketID when `<socketID>_on`
// resolves true and the socket is still unlinked. A per-category brush on a
// line set gets its brush detail as well. It returns the created node, or
// nil when nothing had to be created.
func AutoCreateOnEnable(g *nodegraph.Graph, n *nodegraph.Node, socketID string, stack override.Stack) (*nodegraph.Node, error) {
	if !override.Bool(n, socketID+"_on", stack, false) {
		return nil, nil
	}
	index := -1
	for i, s := range n.Inputs {
		if s.ID == socketID && !s.IsLinked() {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, nil
	}
	child, err := CreateChild(g, n, index)
	if err != nil {
		return nil, err
	}
	if n.Type.Name == schema.TypeLineSet && strings.HasSuffix(socketID, schema.SpecificSuffix) {
		if _, err := CreateChild(g, child, 0); err != nil {
			return child, err
		}
	}
	return child, nil
}
