// Package session holds an editing session: the open node graphs, the live
// override layers and the per-graph state that viewers derive from them.
//
// # Serialised edits
//
// Every mutation goes through [Session.Edit], [Session.EditLayers] or
// [Session.Merge], which take the session lock for the whole operation. An
// edit runs on a copy of the graph and is committed only when the callback
// returns nil, so a failing operation leaves the graph untouched.
//
// # Previews
//
// Brush previews are cached per graph in a bounded LRU owned by the
// session. Editing, merging or removing a graph evicts its preview, so no
// preview outlives the graph it was drawn from.
//
// # Persistence
//
// [Session.Record] captures a session as a [Record] holding an io document;
// a [Store] keeps records between runs and [Restore] turns one back into a
// session.
package session

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	pgio "github.com/matzehuels/pencilgraph/pkg/io"
	"github.com/matzehuels/pencilgraph/pkg/merge"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a graph or stored session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a stored session has exceeded its TTL.
	ErrExpired = errors.New("expired")

	// ErrGraphExists is returned when adding a graph whose name is taken.
	ErrGraphExists = errors.New("graph already exists")
)

// Default values.
const (
	DefaultPreviewCacheSize = 32
	DefaultTTL              = 30 * 24 * time.Hour
)

// Options configure a new session.
type Options struct {
	// PreviewCacheSize bounds the number of cached previews.
	PreviewCacheSize int
	// Logger defaults to a discarding logger.
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.PreviewCacheSize <= 0 {
		o.PreviewCacheSize = DefaultPreviewCacheSize
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

// Session is an open editing session. It is safe for concurrent use.
//
// The zero value is not usable - use [New] or [FromProject].
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	graphs   []*nodegraph.Graph
	stack    override.Stack
	revision uint64
	previews *lru.Cache[string, Preview]
	viewers  *Viewers
	logger   *log.Logger
}

// New creates an empty session with the default layers.
func New(opts Options) (*Session, error) {
	opts = opts.withDefaults()
	previews, err := lru.New[string, Preview](opts.PreviewCacheSize)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		stack:     override.NewStack(),
		previews:  previews,
		viewers:   NewViewers(),
		logger:    opts.Logger,
	}, nil
}

// FromProject creates a session over the graphs and layers of a loaded
// project. The session takes ownership of them.
func FromProject(p *pgio.Project, opts Options) (*Session, error) {
	s, err := New(opts)
	if err != nil {
		return nil, err
	}
	for _, g := range p.Graphs {
		if err := s.AddGraph(g); err != nil {
			return nil, err
		}
	}
	if p.Stack != nil {
		s.stack = p.Stack
	}
	return s, nil
}

// Revision counts committed edits.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Viewers returns the viewer registry.
func (s *Session) Viewers() *Viewers { return s.viewers }

// =============================================================================
// Graphs
// =============================================================================

// AddGraph adds g to the session.
func (s *Session) AddGraph(g *nodegraph.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(g.Name) != nil {
		return fmt.Errorf("%w: %s", ErrGraphExists, g.Name)
	}
	s.graphs = append(s.graphs, g)
	s.revision++
	return nil
}

// NewGraph creates an empty graph. A taken name gets a ".NNN" suffix.
func (s *Session) NewGraph(name string) *nodegraph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		name = nodegraph.DefaultName
	}
	base := name
	for i := 1; s.find(name) != nil; i++ {
		name = fmt.Sprintf("%s.%03d", base, i)
	}
	g := nodegraph.New(name)
	s.graphs = append(s.graphs, g)
	s.revision++
	return g
}

// RemoveGraph deletes the named graph, its preview and the viewers
// showing it.
func (s *Session) RemoveGraph(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.graphs, func(g *nodegraph.Graph) bool { return g.Name == name })
	if i < 0 {
		return fmt.Errorf("%w: graph %s", ErrNotFound, name)
	}
	g := s.graphs[i]
	s.graphs = slices.Delete(s.graphs, i, i+1)
	s.previews.Remove(g.ID)
	if n := s.viewers.Drop(g.ID); n > 0 {
		s.logger.Debug("closed viewers of removed graph", "graph", name, "viewers", n)
	}
	s.revision++
	return nil
}

// Graphs returns the graph names in the order they were added.
func (s *Session) Graphs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.graphs))
	for i, g := range s.graphs {
		out[i] = g.Name
	}
	return out
}

// GraphID returns the ID of the named graph.
func (s *Session) GraphID(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.find(name)
	if g == nil {
		return "", fmt.Errorf("%w: graph %s", ErrNotFound, name)
	}
	return g.ID, nil
}

func (s *Session) find(name string) *nodegraph.Graph {
	for _, g := range s.graphs {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// =============================================================================
// Edits
// =============================================================================

// View calls fn with the named graph and the live layers. fn must not
// modify either or keep references after it returns.
func (s *Session) View(name string, fn func(g *nodegraph.Graph, stack override.Stack) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.find(name)
	if g == nil {
		return fmt.Errorf("%w: graph %s", ErrNotFound, name)
	}
	return fn(g, s.stack)
}

// Edit runs fn on a copy of the named graph and commits the copy when fn
// returns nil. The graph's preview is evicted on commit.
func (s *Session) Edit(name string, fn func(g *nodegraph.Graph, stack override.Stack) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.find(name)
	if g == nil {
		return fmt.Errorf("%w: graph %s", ErrNotFound, name)
	}
	c := g.Clone()
	if err := fn(c, s.stack); err != nil {
		return err
	}
	if c.Name != name && s.find(c.Name) != nil {
		return fmt.Errorf("%w: %s", ErrGraphExists, c.Name)
	}
	g.Assign(c)
	s.previews.Remove(g.ID)
	s.revision++
	return nil
}

// EditLayers runs fn on a copy of the override layers and commits it when
// fn returns nil. All previews are evicted on commit.
func (s *Session) EditLayers(fn func(stack override.Stack) (override.Stack, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.stack.Snapshot())
	if err != nil {
		return err
	}
	s.stack = next
	s.previews.Purge()
	s.revision++
	return nil
}

// Snapshot returns deep copies of every graph and of the layers, for work
// that must not observe later edits.
func (s *Session) Snapshot() ([]*nodegraph.Graph, override.Stack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	graphs := make([]*nodegraph.Graph, len(s.graphs))
	for i, g := range s.graphs {
		graphs[i] = g.Clone()
	}
	return graphs, s.stack.Snapshot()
}

// Merge merges the src graph into dst. Viewers showing src are switched to
// dst and both previews are evicted.
func (s *Session) Merge(src, dst string, opts merge.Options) (*merge.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, dg := s.find(src), s.find(dst)
	if sg == nil {
		return nil, fmt.Errorf("%w: graph %s", ErrNotFound, src)
	}
	if dg == nil {
		return nil, fmt.Errorf("%w: graph %s", ErrNotFound, dst)
	}
	opts.Viewers = s.viewers
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	res, err := merge.Merge(sg, dg, opts)
	if err != nil {
		return nil, err
	}
	s.previews.Remove(sg.ID)
	s.previews.Remove(dg.ID)
	s.revision++
	return res, nil
}

// Document captures the session as an io document.
func (s *Session) Document() (*pgio.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pgio.NewDocument(s.graphs, s.stack)
}

// =============================================================================
// Previews
// =============================================================================

// Preview is a rendered brush preview of one graph.
type Preview struct {
	// Hash identifies the inputs the preview was drawn from.
	Hash string
	// Node is the brush detail node that was previewed.
	Node  string
	Image []byte

	UpdatedAt time.Time
}

// Preview returns the cached preview of the graph with the given ID.
func (s *Session) Preview(graphID string) (Preview, bool) {
	return s.previews.Get(graphID)
}

// StorePreview caches p for the graph and reports whether it differs from
// the cached preview in hash or node.
func (s *Session) StorePreview(graphID string, p Preview) bool {
	old, ok := s.previews.Get(graphID)
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	s.previews.Add(graphID, p)
	return !ok || old.Hash != p.Hash || old.Node != p.Node
}

// Evict drops the cached preview of the graph.
func (s *Session) Evict(graphID string) bool {
	return s.previews.Remove(graphID)
}

// Previews returns the number of cached previews.
func (s *Session) Previews() int { return s.previews.Len() }
