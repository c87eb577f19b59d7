package session

import (
	"slices"
	"sync"
)

// Viewers tracks which graph each open viewer shows. It satisfies
// merge.Viewers.
type Viewers struct {
	mu    sync.Mutex
	shows map[string]string // viewer -> graph ID
}

// NewViewers creates an empty registry.
func NewViewers() *Viewers {
	return &Viewers{shows: make(map[string]string)}
}

// Show points viewer at a graph.
func (v *Viewers) Show(viewer, graphID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shows[viewer] = graphID
}

// Showing returns the graph a viewer shows.
func (v *Viewers) Showing(viewer string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, ok := v.shows[viewer]
	return id, ok
}

// Close forgets a viewer.
func (v *Viewers) Close(viewer string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.shows, viewer)
}

// Watching returns the viewers showing a graph, sorted.
func (v *Viewers) Watching(graphID string) []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []string
	for viewer, id := range v.shows {
		if id == graphID {
			out = append(out, viewer)
		}
	}
	slices.Sort(out)
	return out
}

// Repoint switches every viewer showing fromID to toID.
func (v *Viewers) Repoint(fromID, toID string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for viewer, id := range v.shows {
		if id == fromID {
			v.shows[viewer] = toID
			n++
		}
	}
	return n
}

// Drop closes every viewer showing graphID.
func (v *Viewers) Drop(graphID string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for viewer, id := range v.shows {
		if id == graphID {
			delete(v.shows, viewer)
			n++
		}
	}
	return n
}
