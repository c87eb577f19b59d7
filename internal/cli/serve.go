package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pencilgraph/internal/server"
	"github.com/matzehuels/pencilgraph/pkg/engine"
	"github.com/matzehuels/pencilgraph/pkg/observability/prom"
	"github.com/matzehuels/pencilgraph/pkg/session"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr      string
	sessionID string
	metrics   bool
	preview   bool
}

// serveCommand creates the serve command, which opens an editing session
// and serves it over HTTP until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{metrics: true, preview: true}

	cmd := &cobra.Command{
		Use:   "serve [document]",
		Short: "Serve an editing session over HTTP",
		Long: `Serve opens a session from a document, from a saved session (--session)
or empty, and exposes it over a JSON API. The session is saved when the
server stops and can be resumed with --session <id>.

Previews are drawn with the renderer named in the preferences; without one
the preview routes are disabled.`,
		Example: `  pencilgraph serve scene.json
  pencilgraph serve --session 3f2a... --addr :8630`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.sessionID != "" && len(args) > 0 {
				return fmt.Errorf("use either a document or --session, not both")
			}
			if opts.addr == "" {
				opts.addr = c.Prefs.ServeAddr
			}
			return c.runServe(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from preferences)")
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "resume a saved session")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", opts.metrics, "serve Prometheus metrics at /metrics")
	cmd.Flags().BoolVar(&opts.preview, "preview", opts.preview, "enable renderer previews")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, args []string, opts serveOpts) error {
	dir, err := sessionDir()
	if err != nil {
		return err
	}
	store, err := session.NewFileStore(dir)
	if err != nil {
		return err
	}

	sess, err := c.openSession(ctx, store, args, opts.sessionID)
	if err != nil {
		return err
	}

	srvOpts := server.Options{
		Session: sess,
		Store:   store,
		Logger:  c.Logger,
	}
	if opts.metrics {
		m := prom.New(prometheus.NewRegistry())
		m.Register()
		srvOpts.Metrics = m.Handler()
	}
	if opts.preview {
		if eng, err := c.newEngine(); err != nil {
			printWarning("Previews disabled: %s", err)
		} else {
			srvOpts.Viewport = engine.NewViewport(eng, c.Prefs.ViewportTimeout())
		}
	}

	srv, err := server.New(srvOpts)
	if err != nil {
		return err
	}

	printSuccess("Serving session %s", sess.ID)
	printKeyValue("address", "http://"+opts.addr)
	printKeyValue("graphs", fmt.Sprint(len(sess.Graphs())))
	if srvOpts.Metrics != nil {
		printKeyValue("metrics", "http://"+opts.addr+"/metrics")
	}
	fmt.Println()
	printNextStep("Resume later with", fmt.Sprintf("%s serve --session %s", appName, sess.ID))

	if err := srv.ListenAndServe(ctx, opts.addr); err != nil {
		return err
	}
	printSuccess("Saved session %s", sess.ID)
	return nil
}

// openSession restores id from the store, builds a session from the
// document in args, or starts an empty one.
func (c *CLI) openSession(ctx context.Context, store session.Store, args []string, id string) (*session.Session, error) {
	opts := session.Options{PreviewCacheSize: c.Prefs.PreviewCacheSize, Logger: c.Logger}
	switch {
	case id != "":
		rec, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return session.Restore(rec, opts)
	case len(args) == 1:
		p, err := c.load(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return session.FromProject(p, opts)
	}
	return session.New(opts)
}
