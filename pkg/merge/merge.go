package merge

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pencilgraph/pkg/maintain"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

var (
	// ErrSameGraph is returned when source and destination are the same
	// graph.
	ErrSameGraph = errors.New("cannot merge a graph into itself")

	// ErrNilGraph is returned when either graph is missing.
	ErrNilGraph = errors.New("missing graph")
)

// Viewers is implemented by whatever displays graphs. After a merge commits,
// everything showing the source is switched to the destination.
type Viewers interface {
	Repoint(fromID, toID string) int
}

// Options configures a merge.
type Options struct {
	// ReplaceSameNameLines deletes destination roots (Lines and attached
	// LineFunctions) named like a source root before copying.
	ReplaceSameNameLines bool

	// Cleanup is applied to the source's object and material lists. Nil
	// skips the list cleanup; unused source nodes are removed regardless.
	Cleanup *Cleanup

	// Viewers, when set, are repointed from the source to the destination.
	Viewers Viewers

	// Logger defaults to a discarding logger.
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

// Result describes a committed merge.
type Result struct {
	// Names maps every copied source node to its name in the destination.
	Names map[string]string
	// Replaced lists destination nodes deleted by same-name replacement.
	Replaced []string
	// CurvesCopied counts curves added to the destination store,
	// CurvesShared those that reused an equivalent destination curve.
	CurvesCopied int
	CurvesShared int

	Cleanup CleanupReport
	// Viewers is the number of viewers switched to the destination.
	Viewers int
}

// Renamed returns the source names whose copy got a different name, sorted.
func (r *Result) Renamed() []string {
	var out []string
	for src, dst := range r.Names {
		if src != dst {
			out = append(out, src)
		}
	}
	slices.Sort(out)
	return out
}

// Merge copies src into dst and clears src. On error neither graph is
// modified. Nodes held from dst before the merge are no longer part of it
// afterwards; look them up again by name.
func Merge(src, dst *nodegraph.Graph, opts Options) (*Result, error) {
	if src == nil || dst == nil {
		return nil, ErrNilGraph
	}
	if src == dst || src.ID == dst.ID {
		return nil, ErrSameGraph
	}
	opts = opts.withDefaults()
	logger := opts.Logger.With("src", src.Name, "dst", dst.Name)

	s, d := src.Clone(), dst.Clone()
	res := &Result{}

	if opts.Cleanup != nil {
		res.Cleanup = CleanLists(s, *opts.Cleanup)
	}
	res.Cleanup.Removed = removeUnused(s)
	logger.Debug("source cleaned", "replaced", res.Cleanup.Replaced, "dropped", res.Cleanup.Dropped, "removed", len(res.Cleanup.Removed))

	if opts.ReplaceSameNameLines {
		res.Replaced = replaceRoots(s, d)
		logger.Debug("replaced same-name roots", "nodes", len(res.Replaced))
	}

	copied, shared, err := copyCurves(s, d)
	if err != nil {
		return nil, err
	}
	res.CurvesCopied, res.CurvesShared = copied, shared

	names, err := d.Import(s)
	if err != nil {
		return nil, fmt.Errorf("copy nodes: %w", err)
	}
	res.Names = names

	dst.Assign(d)
	src.Clear()
	if opts.Viewers != nil {
		res.Viewers = opts.Viewers.Repoint(src.ID, dst.ID)
	}
	logger.Info("merged", "nodes", len(names), "renamed", len(res.Renamed()))
	return res, nil
}

// roots returns the nodes whose output feeds nothing, sorted by name.
func roots(g *nodegraph.Graph) []*nodegraph.Node {
	var out []*nodegraph.Node
	for _, n := range g.Nodes() {
		if len(g.LinksFrom(n)) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// removeUnused deletes roots that are neither Lines nor attached
// LineFunctions, along with whatever only they used.
func removeUnused(g *nodegraph.Graph) []string {
	var removed []string
	for _, n := range roots(g) {
		if !g.Contains(n) || n.Type.Name == schema.TypeLine {
			continue
		}
		if n.Type.Name == schema.TypeLineFunctions && len(g.MaterialsOf(n)) > 0 {
			continue
		}
		for _, gone := range maintain.DeleteIfUnused(g, n) {
			removed = append(removed, gone.Name())
		}
	}
	return removed
}

func replaceRoots(src, dst *nodegraph.Graph) []string {
	names := map[string]bool{}
	for _, n := range roots(src) {
		names[n.Name()] = true
	}
	var removed []string
	for _, n := range roots(dst) {
		if !names[n.Name()] || !dst.Contains(n) {
			continue
		}
		for _, gone := range maintain.DeleteIfUnused(dst, n) {
			removed = append(removed, gone.Name())
		}
	}
	return removed
}

// copyCurves makes every curve referenced from src available in dst and
// repoints the src fields to the dst keys. Fields that shared a curve keep
// sharing it.
func copyCurves(src, dst *nodegraph.Graph) (copied, shared int, err error) {
	moved := map[string]string{}
	for _, n := range src.Nodes() {
		fields := nodegraph.CurveFields(n)
		for _, field := range slices.Sorted(maps.Keys(fields)) {
			key := fields[field]
			target, done := moved[key]
			if !done {
				pts, ok := src.Curves.Get(key)
				if !ok {
					continue
				}
				switch k, found := dst.Curves.Find(pts); {
				case found:
					target = k
					shared++
				default:
					if _, taken := dst.Curves.Get(key); taken {
						target = dst.Curves.Create(pts)
					} else {
						target = key
						dst.Curves.Put(key, pts)
					}
					copied++
				}
				moved[key] = target
			}
			if err := n.Set(field, target); err != nil {
				return 0, 0, fmt.Errorf("repoint curve %s.%s: %w", n.Name(), field, err)
			}
		}
	}
	return copied, shared, nil
}
