package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pencilgraph/pkg/engine"
	"github.com/matzehuels/pencilgraph/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	graphs    []string
	layer     string
	width     int
	height    int
	lineScale float64
	timeout   time.Duration
	refresh   bool
	noCache   bool
}

// renderCommand creates the render command, which exports documents and
// hands the records to the external renderer.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{
		width:     pipeline.DefaultWidth,
		height:    pipeline.DefaultHeight,
		lineScale: pipeline.DefaultLineScale,
	}

	cmd := &cobra.Command{
		Use:   "render <document>...",
		Short: "Render documents with the external renderer",
		Long: `Render exports each document and runs the renderer program named by
render_app_path in the preferences. The image is written next to the
document as <name>.png.

The renderer is checked against engine_version and engine_commit before
any document is processed.`,
		Example: `  pencilgraph render scene.json
  pencilgraph render shots/*.json --width 3840 --height 2160 --timeout 5m`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, v := range []struct {
				name string
				val  int
			}{{"width", opts.width}, {"height", opts.height}} {
				if err := pipeline.ValidateSize(v.name, v.val); err != nil {
					return err
				}
			}
			return c.runRender(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.graphs, "graph", "g", nil, "graphs to render (default all)")
	cmd.Flags().StringVar(&opts.layer, "layer", "", "resolve overrides against one layer only")
	cmd.Flags().IntVar(&opts.width, "width", opts.width, "image width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", opts.height, "image height in pixels")
	cmd.Flags().Float64Var(&opts.lineScale, "line-scale", opts.lineScale, "scale applied to line sizes")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "renderer timeout per document (0 waits forever)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached records and images")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, docs []string, opts renderOpts) error {
	eng, err := c.newEngine()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	label := docs[0]
	if len(docs) > 1 {
		label = fmt.Sprintf("%d documents", len(docs))
	}
	spinner := newSpinnerWithContext(ctx, "Rendering "+label+"...")
	spinner.Start()

	results := make([]exportResult, len(docs))
	abort := c.Prefs.AbortRenderingIfErrorOccur

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, doc := range docs {
		g.Go(func() error {
			out := outputPath(doc, ".png")
			res, err := renderDocument(gctx, runner, eng, doc, out, opts)
			results[i] = exportResult{doc: doc, output: out, res: res, err: err}
			if abort {
				return err
			}
			return nil
		})
	}
	waitErr := g.Wait()
	spinner.Stop()
	if spinner.Cancelled() {
		return ctx.Err()
	}

	var errs []error
	for _, r := range results {
		switch {
		case r.err != nil:
			printError("%s: %v", r.doc, r.err)
			errs = append(errs, fmt.Errorf("%s: %w", r.doc, r.err))
		case r.res != nil:
			printSuccess("Rendered %s", r.doc)
			printStats(r.res.Summary, r.res.CacheInfo.PreviewHit)
			printFile(r.output)
		}
	}
	if waitErr != nil && len(errs) == 0 {
		return waitErr
	}
	return errors.Join(errs...)
}

func renderDocument(ctx context.Context, runner *pipeline.Runner, eng engine.Engine, doc, out string, opts renderOpts) (*pipeline.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := loggerFromContext(ctx).With("doc", doc)
	prog := newProgress(logger)

	res, err := runner.Execute(ctx, pipeline.Options{
		Path:      doc,
		Refresh:   opts.refresh,
		Graphs:    opts.graphs,
		Layer:     opts.layer,
		Render:    true,
		Width:     opts.width,
		Height:    opts.height,
		LineScale: opts.lineScale,
		Timeout:   opts.timeout,
		Engine:    eng,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, res.Preview, 0o644); err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Rendered %s (%s)", doc, res.Status))
	return res, nil
}
