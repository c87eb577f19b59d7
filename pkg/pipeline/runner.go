package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pencilgraph/pkg/cache"
	"github.com/matzehuels/pencilgraph/pkg/engine"
	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	"github.com/matzehuels/pencilgraph/pkg/export"
	pgio "github.com/matzehuels/pencilgraph/pkg/io"
	"github.com/matzehuels/pencilgraph/pkg/observability"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/render/dot"
)

// Cache key kinds reported to the cache hooks.
const (
	kindExport  = "export"
	kindDiagram = "diagram"
	kindPreview = "preview"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// source is a read document. Its project is built on first use, so runs
// served entirely from cache never build graphs.
type source struct {
	data    []byte
	format  pgio.Format
	hash    string
	project *pgio.Project

	// loadTime covers reading and building.
	loadTime time.Duration
}

// Execute runs the complete load → export → diagram → preview pipeline
// with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	// Stage 1: Load. Graphs are built lazily by the stages that miss.
	src, err := r.read(opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result := &Result{DocHash: src.hash}

	// Stage 2: Export
	exportStart := time.Now()
	exp, data, hit, err := r.exportWithCacheInfo(ctx, src, opts)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.Export = exp
	result.ExportJSON = data
	result.CacheInfo.ExportHit = hit
	result.Stats.ExportTime = time.Since(exportStart)
	if exp != nil {
		result.Summary = exp.Summary()
	} else if result.Summary, err = export.Summarize(data); err != nil {
		return nil, fmt.Errorf("export: cached result: %w", err)
	}

	opts.Logger.Info("exported records",
		"lines", result.Summary.Lines,
		"records", result.Summary.Records,
		"mismatches", result.Summary.Mismatches,
		"cached", hit,
		"duration", result.Stats.ExportTime)

	// Stage 3: Diagram
	if opts.Diagram != "" {
		diagramStart := time.Now()
		diagrams, hit, err := r.diagramsWithCacheInfo(ctx, src, opts)
		if err != nil {
			return nil, fmt.Errorf("diagram: %w", err)
		}
		result.Diagrams = diagrams
		result.CacheInfo.DiagramHit = hit
		result.Stats.DiagramTime = time.Since(diagramStart)

		opts.Logger.Info("rendered diagrams",
			"graphs", len(diagrams),
			"format", opts.Diagram,
			"duration", result.Stats.DiagramTime)
	}
	result.Stats.Graphs = r.graphCount(src, opts, result)
	result.Stats.LoadTime = src.loadTime

	// Stage 4: Preview
	if opts.Render {
		renderStart := time.Now()
		records := func() (*export.Result, error) {
			if exp != nil {
				return exp, nil
			}
			// The records came from cache; a preview miss needs them built.
			return r.generate(ctx, src, opts)
		}
		img, status, hit, err := r.render(ctx, records, data, opts)
		result.Status = status
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		result.Preview = img
		result.CacheInfo.PreviewHit = hit
		result.Stats.RenderTime = time.Since(renderStart)

		opts.Logger.Info("rendered preview",
			"status", status,
			"bytes", len(img),
			"cached", hit,
			"duration", result.Stats.RenderTime)
	}

	return result, nil
}

// Load reads and builds the document named by opts.
func (r *Runner) Load(ctx context.Context, opts Options) (*pgio.Project, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}
	src, err := r.read(opts)
	if err != nil {
		return nil, err
	}
	return r.build(ctx, src, opts)
}

func (r *Runner) read(opts Options) (*source, error) {
	start := time.Now()
	if len(opts.Document) > 0 {
		f, err := pgio.ParseFormat(opts.Format)
		if err != nil {
			return nil, err
		}
		return &source{data: opts.Document, format: f, hash: cache.Hash(opts.Document)}, nil
	}
	f, err := pgio.FormatFromPath(opts.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(opts.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pgerrors.Wrap(pgerrors.ErrCodeFileNotFound, err, "read %s", opts.Path)
		}
		return nil, fmt.Errorf("read %s: %w", opts.Path, err)
	}
	return &source{data: data, format: f, hash: cache.Hash(data), loadTime: time.Since(start)}, nil
}

func (r *Runner) build(ctx context.Context, src *source, opts Options) (*pgio.Project, error) {
	if src.project != nil {
		return src.project, nil
	}
	name := opts.source()
	observability.Pipeline().OnLoadStart(ctx, name)
	start := time.Now()

	p, err := r.decode(src, opts)
	nodes := 0
	if p != nil {
		for _, g := range p.Graphs {
			nodes += g.Len()
		}
	}
	src.loadTime += time.Since(start)
	observability.Pipeline().OnLoadComplete(ctx, name, nodes, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	p.Path = opts.Path
	src.project = p

	opts.Logger.Debug("loaded document",
		"source", name,
		"graphs", len(p.Graphs),
		"nodes", nodes,
		"duration", time.Since(start))
	return p, nil
}

func (r *Runner) decode(src *source, opts Options) (*pgio.Project, error) {
	doc, err := pgio.Decode(src.data, src.format)
	if err != nil {
		return nil, err
	}
	return doc.Build(pgio.ReadOptions{Registry: opts.Registry, Logger: opts.Logger})
}

// exportWithCacheInfo returns the export records, from cache when possible.
// The structured result is nil on a cache hit.
func (r *Runner) exportWithCacheInfo(ctx context.Context, src *source, opts Options) (*export.Result, []byte, bool, error) {
	key := r.Keyer.ExportKey(src.hash, opts.ExportKeyOpts())
	if !opts.Refresh {
		if data, ok := r.get(ctx, kindExport, key, opts); ok {
			return nil, data, true, nil
		}
	}

	exp, err := r.generate(ctx, src, opts)
	if err != nil {
		return nil, nil, false, err
	}
	data, err := json.Marshal(exp)
	if err != nil {
		return nil, nil, false, fmt.Errorf("encode records: %w", err)
	}
	r.set(ctx, kindExport, key, data, cache.TTLExport, opts)
	return exp, data, false, nil
}

func (r *Runner) generate(ctx context.Context, src *source, opts Options) (*export.Result, error) {
	p, err := r.build(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	graphs, err := Select(p, opts.Graphs)
	if err != nil {
		return nil, err
	}
	stack, err := StackFor(p.Stack, opts.Layer)
	if err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	hooks.OnExportStart(ctx, len(graphs))
	start := time.Now()
	exp := export.GenerateAll(graphs, stack, export.Options{Logger: opts.Logger})
	for _, m := range exp.Mismatches {
		nodeType := ""
		if g := p.Graph(m.Graph); g != nil {
			if n := g.Node(m.Node); n != nil {
				nodeType = n.Type.Name
			}
		}
		hooks.OnMismatch(ctx, nodeType, m.Field)
	}
	hooks.OnExportComplete(ctx, len(graphs), len(exp.Records), time.Since(start), nil)
	return exp, nil
}

// diagramsWithCacheInfo renders one diagram per selected graph. The hit
// flag is set only when every diagram came from cache.
func (r *Runner) diagramsWithCacheInfo(ctx context.Context, src *source, opts Options) (map[string][]byte, bool, error) {
	names := opts.Graphs
	if len(names) == 0 {
		p, err := r.build(ctx, src, opts)
		if err != nil {
			return nil, false, err
		}
		for _, g := range p.Graphs {
			names = append(names, g.Name)
		}
	}

	out := make(map[string][]byte, len(names))
	allCached := true
	for _, name := range names {
		key := r.Keyer.DiagramKey(src.hash, opts.DiagramKeyOpts(name))
		if !opts.Refresh {
			if data, ok := r.get(ctx, kindDiagram, key, opts); ok {
				out[name] = data
				continue
			}
		}
		allCached = false

		p, err := r.build(ctx, src, opts)
		if err != nil {
			return nil, false, err
		}
		graphs, err := Select(p, []string{name})
		if err != nil {
			return nil, false, err
		}
		stack, err := StackFor(p.Stack, opts.Layer)
		if err != nil {
			return nil, false, err
		}
		data, err := dot.Render(dot.ToDOT(graphs[0], dot.Options{Detailed: opts.Detailed, Stack: stack}), opts.Diagram)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", name, err)
		}
		r.set(ctx, kindDiagram, key, data, cache.TTLDiagram, opts)
		out[name] = data
	}
	return out, allCached, nil
}

// RenderWithCacheInfo previews exp through opts.Engine and returns the
// renderer output. data is exp's encoded form and keys the cache; nil
// encodes exp. Only usable output is cached.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, exp *export.Result, data []byte, opts Options) ([]byte, engine.Status, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, engine.StatusError, false, err
	}
	if data == nil {
		var err error
		if data, err = json.Marshal(exp); err != nil {
			return nil, engine.StatusError, false, fmt.Errorf("encode records: %w", err)
		}
	}
	return r.render(ctx, func() (*export.Result, error) { return exp, nil }, data, opts)
}

func (r *Runner) render(ctx context.Context, records func() (*export.Result, error), data []byte, opts Options) ([]byte, engine.Status, bool, error) {
	key := r.Keyer.PreviewKey(cache.Hash(data), opts.PreviewKeyOpts())
	if !opts.Refresh {
		if img, ok := r.get(ctx, kindPreview, key, opts); ok {
			return img, engine.StatusSuccess, true, nil
		}
	}

	exp, err := records()
	if err != nil {
		return nil, engine.StatusError, false, err
	}
	var buf bytes.Buffer
	req := engine.Request{
		Export:    exp,
		Width:     opts.Width,
		Height:    opts.Height,
		LineScale: opts.LineScale,
		Output:    &buf,
	}
	status := engine.Render(ctx, opts.Engine, req, opts.Timeout)
	if err := status.Err(); err != nil {
		return nil, status, false, err
	}
	r.set(ctx, kindPreview, key, buf.Bytes(), cache.TTLPreview, opts)
	return buf.Bytes(), status, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, exp *export.Result, opts Options) ([]byte, engine.Status, error) {
	img, status, _, err := r.RenderWithCacheInfo(ctx, exp, nil, opts)
	return img, status, err
}

func (r *Runner) get(ctx context.Context, kind, key string, opts Options) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		opts.Logger.Warn("cache read failed", "kind", kind, "error", err)
		hit = false
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, kind)
		return data, true
	}
	observability.Cache().OnCacheMiss(ctx, kind)
	return nil, false
}

func (r *Runner) set(ctx context.Context, kind, key string, data []byte, ttl time.Duration, opts Options) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		opts.Logger.Warn("cache write failed", "kind", kind, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, kind, len(data))
}

func (r *Runner) graphCount(src *source, opts Options, res *Result) int {
	switch {
	case len(opts.Graphs) > 0:
		return len(opts.Graphs)
	case src.project != nil:
		return len(src.project.Graphs)
	}
	return len(res.Diagrams)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// StackFor returns the overrides an export resolves against: a snapshot
// of the whole stack, or of the single named layer.
func StackFor(stack override.Stack, layer string) (override.Stack, error) {
	if layer == "" {
		return stack.Snapshot(), nil
	}
	l := stack.Layer(layer)
	if l == nil {
		return nil, pgerrors.New(pgerrors.ErrCodeNotFound, "no override layer %q", layer)
	}
	return override.Stack{l.Clone()}, nil
}
