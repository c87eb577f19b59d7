package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/pencilgraph/pkg/buildinfo"
	"github.com/matzehuels/pencilgraph/pkg/cache"
	"github.com/matzehuels/pencilgraph/pkg/engine"
	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	"github.com/matzehuels/pencilgraph/pkg/export"
	"github.com/matzehuels/pencilgraph/pkg/filter"
	pgio "github.com/matzehuels/pencilgraph/pkg/io"
	"github.com/matzehuels/pencilgraph/pkg/maintain"
	"github.com/matzehuels/pencilgraph/pkg/merge"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/pipeline"
	"github.com/matzehuels/pencilgraph/pkg/render/dot"
	"github.com/matzehuels/pencilgraph/pkg/schema"
	"github.com/matzehuels/pencilgraph/pkg/session"
)

// =============================================================================
// Response Types
// =============================================================================

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Session  string `json:"session"`
	Revision uint64 `json:"revision"`
	Uptime   string `json:"uptime"`
}

type GraphSummary struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Nodes int    `json:"nodes"`
	Links int    `json:"links"`
	Lines int    `json:"lines"`
}

type NodeView struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Muted    bool           `json:"muted,omitempty"`
	Location [2]float64     `json:"location"`
	Values   map[string]any `json:"values,omitempty"`
}

type LinkView struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Socket string `json:"socket"`
	Muted  bool   `json:"muted,omitempty"`
}

type GraphView struct {
	GraphSummary
	Active   string     `json:"active,omitempty"`
	NodeList []NodeView `json:"node_list"`
	LinkList []LinkView `json:"link_list"`
}

type LineView struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Live     bool   `json:"live"`
}

type SocketView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Linked string `json:"linked,omitempty"`
}

type ResolveView struct {
	Node  string `json:"node"`
	Field string `json:"field"`
	Value any    `json:"value"`
	Layer string `json:"layer,omitempty"`
	Key   string `json:"key"`
}

type LayerView struct {
	Name    string         `json:"name"`
	Entries map[string]any `json:"entries"`
}

// =============================================================================
// Request Types
// =============================================================================

type NewGraphRequest struct {
	Name string `json:"name"`
}

type MoveLineRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type OverrideRequest struct {
	Key     string `json:"key"`
	Value   any    `json:"value"`
	Type    string `json:"type,omitempty"`
	Pattern bool   `json:"pattern,omitempty"`
}

type MergeRequest struct {
	From         string `json:"from"`
	Into         string `json:"into"`
	ReplaceLines bool   `json:"replace_lines,omitempty"`
}

type MergeResponse struct {
	Names        map[string]string `json:"names"`
	Renamed      []string          `json:"renamed,omitempty"`
	Replaced     []string          `json:"replaced,omitempty"`
	CurvesCopied int               `json:"curves_copied"`
	CurvesShared int               `json:"curves_shared"`
	Viewers      int               `json:"viewers"`
}

// =============================================================================
// Health
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  buildinfo.Version,
		Session:  s.sess.ID,
		Revision: s.sess.Revision(),
		Uptime:   time.Since(s.started).Round(time.Second).String(),
	})
}

// =============================================================================
// Graphs
// =============================================================================

func summarize(g *nodegraph.Graph) GraphSummary {
	return GraphSummary{
		Name:  g.Name,
		ID:    g.ID,
		Nodes: g.Len(),
		Links: len(g.Links()),
		Lines: len(g.Lines()),
	}
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	out := []GraphSummary{}
	for _, name := range s.sess.Graphs() {
		err := s.sess.View(name, func(g *nodegraph.Graph, _ override.Stack) error {
			out = append(out, summarize(g))
			return nil
		})
		if err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleNewGraph(w http.ResponseWriter, r *http.Request) {
	var req NewGraphRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	g := s.sess.NewGraph(req.Name)
	s.respondJSON(w, http.StatusCreated, summarize(g))
}

func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.RemoveGraph(chi.URLParam(r, "graph")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	var view GraphView
	err := s.sess.View(chi.URLParam(r, "graph"), func(g *nodegraph.Graph, _ override.Stack) error {
		view.GraphSummary = summarize(g)
		if a := g.Active(); a != nil {
			view.Active = a.Name()
		}
		for _, n := range g.Nodes() {
			view.NodeList = append(view.NodeList, NodeView{
				Name:     n.Name(),
				Type:     n.Type.Name,
				Muted:    n.Muted,
				Location: n.Location,
				Values:   n.Values(),
			})
		}
		for _, l := range g.Links() {
			view.LinkList = append(view.LinkList, LinkView{
				From:   l.From.Node().Name(),
				To:     l.To.Node().Name(),
				Socket: l.To.ID,
				Muted:  l.Muted,
			})
		}
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

// =============================================================================
// Lines
// =============================================================================

func lineViews(g *nodegraph.Graph, stack override.Stack) []LineView {
	out := []LineView{}
	for _, l := range maintain.SortedLines(g) {
		out = append(out, LineView{
			Name:     l.Name(),
			Priority: l.Int(schema.FieldRenderPriority),
			Live:     export.Live(l, stack),
		})
	}
	return out
}

func (s *Server) handleListLines(w http.ResponseWriter, r *http.Request) {
	var out []LineView
	err := s.sess.View(chi.URLParam(r, "graph"), func(g *nodegraph.Graph, stack override.Stack) error {
		out = lineViews(g, stack)
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleNewLine(w http.ResponseWriter, r *http.Request) {
	var out LineView
	err := s.sess.Edit(chi.URLParam(r, "graph"), func(g *nodegraph.Graph, stack override.Stack) error {
		line, err := maintain.NewLine(g)
		if err != nil {
			return err
		}
		out = LineView{Name: line.Name(), Priority: line.Int(schema.FieldRenderPriority), Live: export.Live(line, stack)}
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, out)
}

func (s *Server) handleMoveLine(w http.ResponseWriter, r *http.Request) {
	var req MoveLineRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	var out []LineView
	err := s.sess.Edit(chi.URLParam(r, "graph"), func(g *nodegraph.Graph, stack override.Stack) error {
		if err := maintain.MovePriority(g, req.From, req.To); err != nil {
			return err
		}
		out = lineViews(g, stack)
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, out)
}

// =============================================================================
// Nodes
// =============================================================================

func findNode(g *nodegraph.Graph, name string) (*nodegraph.Node, error) {
	n := g.Node(name)
	if n == nil {
		return nil, pgerrors.New(pgerrors.ErrCodeNodeNotFound, "node %q not found in %s", name, g.Name)
	}
	return n, nil
}

func (s *Server) handleSockets(w http.ResponseWriter, r *http.Request) {
	out := []SocketView{}
	err := s.sess.View(chi.URLParam(r, "graph"), func(g *nodegraph.Graph, stack override.Stack) error {
		n, err := findNode(g, chi.URLParam(r, "node"))
		if err != nil {
			return err
		}
		for _, sock := range filter.ActiveInputs(n, stack) {
			v := SocketView{ID: sock.ID, Name: sock.Name, Kind: string(sock.Kind)}
			if c := filter.ConnectedNode(g, sock, stack); c != nil {
				v.Linked = c.Name()
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var out ResolveView
	err := s.sess.View(chi.URLParam(r, "graph"), func(g *nodegraph.Graph, stack override.Stack) error {
		n, err := findNode(g, chi.URLParam(r, "node"))
		if err != nil {
			return err
		}
		field := chi.URLParam(r, "field")
		if _, ok := n.Type.Field(override.Canonical(field)); !ok {
			return pgerrors.New(pgerrors.ErrCodeNotFound, "%s has no field %q", n.Type.Name, field)
		}
		res := override.Resolve(n, field, stack)
		out = ResolveView{Node: n.Name(), Field: field, Value: res.Value, Layer: res.Layer, Key: res.Key}
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, out)
}

// =============================================================================
// Diagrams and Previews
// =============================================================================

var diagramTypes = map[string]string{
	dot.FormatDOT: "text/vnd.graphviz",
	dot.FormatSVG: "image/svg+xml",
	dot.FormatPNG: "image/png",
	dot.FormatPDF: "application/pdf",
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = dot.FormatSVG
	}
	if err := pipeline.ValidateDiagramFormat(format); err != nil {
		s.respondError(w, r, err)
		return
	}
	detailed, _ := strconv.ParseBool(r.URL.Query().Get("detailed"))

	var src string
	err := s.sess.View(chi.URLParam(r, "graph"), func(g *nodegraph.Graph, stack override.Stack) error {
		src = dot.ToDOT(g, dot.Options{Detailed: detailed, Stack: stack})
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	data, err := dot.Render(src, format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondBytes(w, diagramTypes[format], data)
}

// snapshot copies one graph and the layers so that slow work runs without
// holding the session.
func (s *Server) snapshot(name string) (*nodegraph.Graph, override.Stack, error) {
	var g *nodegraph.Graph
	var stack override.Stack
	err := s.sess.View(name, func(live *nodegraph.Graph, st override.Stack) error {
		g, stack = live.Clone(), st.Snapshot()
		return nil
	})
	return g, stack, err
}

func (s *Server) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	id, err := s.sess.GraphID(chi.URLParam(r, "graph"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, ok := s.sess.Preview(id)
	if !ok {
		s.respondError(w, r, pgerrors.New(pgerrors.ErrCodeNotFound, "no preview for %s", chi.URLParam(r, "graph")))
		return
	}
	w.Header().Set("X-Preview-Hash", p.Hash)
	s.respondBytes(w, "image/png", p.Image)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, pgerrors.Wrap(pgerrors.ErrCodeInvalidInput, err, "%s", name)
	}
	return n, pipeline.ValidateSize(name, n)
}

func (s *Server) handleDrawPreview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "graph")
	width, err := intParam(r, "width", pipeline.DefaultWidth)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	height, err := intParam(r, "height", pipeline.DefaultHeight)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	g, stack, err := s.snapshot(name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	node := r.URL.Query().Get("node")
	if node == "" {
		if a := g.Active(); a != nil {
			node = a.Name()
		}
	}

	exp := export.Generate(g, stack, export.Options{Logger: s.logger})
	data, err := json.Marshal(exp)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	hash := cache.Hash(data)
	if p, ok := s.sess.Preview(g.ID); ok && p.Hash == hash && p.Node == node {
		w.Header().Set("X-Preview-Hash", p.Hash)
		s.respondBytes(w, "image/png", p.Image)
		return
	}

	var buf bytes.Buffer
	st, drawn := s.viewport.Draw(r.Context(), engine.Request{
		Export:    exp,
		Width:     width,
		Height:    height,
		LineScale: pipeline.DefaultLineScale,
		Output:    &buf,
	})
	if !drawn {
		w.Header().Set("Retry-After", "1")
		s.respondJSON(w, http.StatusAccepted, map[string]string{"mode": s.viewport.Mode().String()})
		return
	}
	if !st.OK() {
		s.respondError(w, r, st.Err())
		return
	}
	if s.sess.StorePreview(g.ID, session.Preview{Hash: hash, Node: node, Image: buf.Bytes()}) {
		s.logger.Debug("preview updated", "graph", name, "node", node)
	}
	w.Header().Set("X-Preview-Hash", hash)
	s.respondBytes(w, "image/png", buf.Bytes())
}

// =============================================================================
// Layers
// =============================================================================

func (s *Server) handleListLayers(w http.ResponseWriter, r *http.Request) {
	_, stack := s.sess.Snapshot()
	out := make([]LayerView, 0, len(stack))
	for _, l := range stack {
		v := LayerView{Name: l.Name, Entries: map[string]any{}}
		for _, e := range l.Entries() {
			v.Entries[e.Key] = e.Value
		}
		out = append(out, v)
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Key == "" {
		s.respondError(w, r, pgerrors.New(pgerrors.ErrCodeInvalidInput, "override key is required"))
		return
	}
	var field *schema.Field
	if !req.Pattern {
		field = s.overrideField(req.Key)
	}
	value, err := pgio.OverrideValue(req.Type, field, req.Value)
	if err != nil {
		s.respondError(w, r, pgerrors.Wrap(pgerrors.ErrCodeInvalidInput, err, "override %q", req.Key))
		return
	}

	name := chi.URLParam(r, "layer")
	err = s.sess.EditLayers(func(stack override.Stack) (override.Stack, error) {
		l := stack.Layer(name)
		if l == nil {
			l = override.NewLayer(name)
			stack = append(stack, l)
		}
		if req.Pattern {
			if err := l.AddPattern(req.Key, value); err != nil {
				return nil, err
			}
			return stack, nil
		}
		l.Set(req.Key, value)
		return stack, nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// overrideField finds the field an override key names in the first graph
// holding the node. Unknown keys yield nil.
func (s *Server) overrideField(key string) *schema.Field {
	nodeName, fieldName, ok := override.SplitPath(key)
	if !ok {
		return nil
	}
	for _, name := range s.sess.Graphs() {
		var found *schema.Field
		_ = s.sess.View(name, func(g *nodegraph.Graph, _ override.Stack) error {
			n := g.Node(nodeName)
			if n == nil {
				return nil
			}
			if f, ok := n.Type.Field(override.Canonical(fieldName)); ok && f.Stored() {
				found = &f
			}
			return nil
		})
		if found != nil {
			return found
		}
	}
	return nil
}

func (s *Server) handleDeleteOverride(w http.ResponseWriter, r *http.Request) {
	name, key := chi.URLParam(r, "layer"), r.URL.Query().Get("key")
	err := s.sess.EditLayers(func(stack override.Stack) (override.Stack, error) {
		l := stack.Layer(name)
		if l == nil {
			return nil, pgerrors.New(pgerrors.ErrCodeNotFound, "layer %q not found", name)
		}
		if !l.Delete(key) {
			return nil, pgerrors.New(pgerrors.ErrCodeNotFound, "layer %q has no key %q", name, key)
		}
		return stack, nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Merge, Export and Persistence
// =============================================================================

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.sess.Merge(req.From, req.Into, merge.Options{
		ReplaceSameNameLines: req.ReplaceLines,
		Logger:               s.logger,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, MergeResponse{
		Names:        res.Names,
		Renamed:      res.Renamed(),
		Replaced:     res.Replaced,
		CurvesCopied: res.CurvesCopied,
		CurvesShared: res.CurvesShared,
		Viewers:      res.Viewers,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	graphs, stack := s.sess.Snapshot()
	layer := r.URL.Query().Get("layer")
	stack, err := pipeline.StackFor(stack, layer)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if names := r.URL.Query()["graph"]; len(names) > 0 {
		graphs, err = pipeline.Select(&pgio.Project{Graphs: graphs}, names)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	res := export.GenerateAll(graphs, stack, export.Options{Logger: s.logger})
	s.respondJSON(w, http.StatusOK, res)
}

var documentTypes = map[pgio.Format]string{
	pgio.FormatJSON: "application/json",
	pgio.FormatTOML: "application/toml",
	pgio.FormatYAML: "application/yaml",
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	format := pgio.FormatJSON
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := pgio.ParseFormat(v)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		format = f
	}
	doc, err := s.sess.Document()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	data, err := pgio.Encode(doc, format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondBytes(w, documentTypes[format], data)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.Save(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"session": s.sess.ID, "revision": s.sess.Revision()})
}
