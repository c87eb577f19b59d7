// Package server exposes an editing session over HTTP.
//
// The API is a thin JSON layer: every mutating route runs one session edit,
// so requests are serialised by the session and a failed request leaves
// the graphs untouched. Routes are registered on a chi router; request
// metrics go to the observability HTTP hooks and, when a metrics handler is
// configured, are served at /metrics.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	"github.com/matzehuels/pencilgraph/pkg/engine"
	"github.com/matzehuels/pencilgraph/pkg/session"
)

// Default server timeouts.
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// Options configure a server.
type Options struct {
	// Session is served. Required.
	Session *session.Session
	// Store, when set, persists the session on POST /save and on shutdown.
	Store session.Store
	// TTL is the lifetime of saved records. Zero uses session.DefaultTTL.
	TTL time.Duration
	// Viewport draws previews. Nil disables the preview routes.
	Viewport *engine.Viewport
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Logger defaults to a discarding logger.
	Logger *log.Logger
}

// Server serves one session.
//
// The zero value is not usable - use [New].
type Server struct {
	sess     *session.Session
	store    session.Store
	ttl      time.Duration
	viewport *engine.Viewport
	logger   *log.Logger
	router   chi.Router
	started  time.Time
}

// New creates a server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Session == nil {
		return nil, pgerrors.New(pgerrors.ErrCodeInvalidInput, "server needs a session")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.TTL <= 0 {
		opts.TTL = session.DefaultTTL
	}
	s := &Server{
		sess:     opts.Session,
		store:    opts.Store,
		ttl:      opts.TTL,
		viewport: opts.Viewport,
		logger:   opts.Logger,
		started:  time.Now(),
	}
	s.router = s.routes(opts.Metrics)
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes(metrics http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hooksMiddleware)
	r.Use(s.logMiddleware)

	r.Get("/healthz", s.handleHealth)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/graphs", func(r chi.Router) {
		r.Get("/", s.handleListGraphs)
		r.Post("/", s.handleNewGraph)
		r.Route("/{graph}", func(r chi.Router) {
			r.Get("/", s.handleGetGraph)
			r.Delete("/", s.handleDeleteGraph)
			r.Get("/lines", s.handleListLines)
			r.Post("/lines", s.handleNewLine)
			r.Post("/lines/move", s.handleMoveLine)
			r.Get("/nodes/{node}/sockets", s.handleSockets)
			r.Get("/nodes/{node}/fields/{field}", s.handleResolve)
			r.Get("/diagram", s.handleDiagram)
			if s.viewport != nil {
				r.Get("/preview", s.handleGetPreview)
				r.Post("/preview", s.handleDrawPreview)
			}
		})
	})

	r.Get("/layers", s.handleListLayers)
	r.Put("/layers/{layer}", s.handleSetOverride)
	r.Delete("/layers/{layer}", s.handleDeleteOverride)

	r.Post("/merge", s.handleMerge)
	r.Get("/export", s.handleExport)
	r.Get("/document", s.handleDocument)
	r.Post("/save", s.handleSave)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and saves the session when a store is configured.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("serving session", "addr", addr, "session", s.sess.ID)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("shutdown", "error", err)
	}
	if s.store != nil {
		return s.Save(shutdownCtx)
	}
	return nil
}

// Save writes the session to the store.
func (s *Server) Save(ctx context.Context) error {
	if s.store == nil {
		return pgerrors.New(pgerrors.ErrCodeUnsupported, "no session store configured")
	}
	rec, err := s.sess.Record(s.ttl)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, rec); err != nil {
		return err
	}
	s.logger.Info("session saved", "session", rec.ID, "revision", s.sess.Revision())
	return nil
}
