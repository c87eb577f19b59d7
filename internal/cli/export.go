package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pencilgraph/pkg/pipeline"
)

// maxMismatchWarnings bounds the skipped fields listed per document.
const maxMismatchWarnings = 5

// exportOpts holds the command-line flags for the export command.
type exportOpts struct {
	output  string   // output file, only with a single document
	graphs  []string // graphs to export, empty for all
	layer   string   // resolve against this layer only
	refresh bool     // bypass cached records
	noCache bool     // disable caching entirely
}

// exportCommand creates the export command, which flattens documents into
// renderer records.
func (c *CLI) exportCommand() *cobra.Command {
	var opts exportOpts

	cmd := &cobra.Command{
		Use:   "export <document>...",
		Short: "Export the live nodes of documents as renderer records",
		Long: `Export flattens the live nodes of each document into the record list
the renderer reads, written next to the document as <name>.export.json.

Documents are processed in parallel. With abort_rendering_if_error_occur
set in the preferences, the first failing document stops the rest.`,
		Example: `  pencilgraph export scene.json
  pencilgraph export scene.json --graph Main --layer scene -o out.json
  pencilgraph export shots/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "" && len(args) > 1 {
				return fmt.Errorf("-o can only be used with a single document")
			}
			return c.runExport(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single document only)")
	cmd.Flags().StringSliceVarP(&opts.graphs, "graph", "g", nil, "graphs to export (default all)")
	cmd.Flags().StringVar(&opts.layer, "layer", "", "resolve overrides against one layer only")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached records")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

// exportResult is the outcome of exporting one document.
type exportResult struct {
	doc    string
	output string
	res    *pipeline.Result
	err    error
}

func (c *CLI) runExport(ctx context.Context, docs []string, opts exportOpts) error {
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	results := make([]exportResult, len(docs))
	abort := c.Prefs.AbortRenderingIfErrorOccur

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, doc := range docs {
		g.Go(func() error {
			out := opts.output
			if out == "" {
				out = outputPath(doc, ".export.json")
			}
			res, err := exportDocument(gctx, runner, doc, out, opts)
			results[i] = exportResult{doc: doc, output: out, res: res, err: err}
			if abort {
				return err
			}
			return nil
		})
	}
	waitErr := g.Wait()

	var errs []error
	for _, r := range results {
		switch {
		case r.err != nil:
			printError("%s: %v", r.doc, r.err)
			errs = append(errs, fmt.Errorf("%s: %w", r.doc, r.err))
		case r.res != nil:
			printSuccess("Exported %s", r.doc)
			printStats(r.res.Summary, r.res.CacheInfo.ExportHit)
			printMismatches(r.res)
			printFile(r.output)
		}
	}
	if waitErr != nil && len(errs) == 0 {
		return waitErr
	}
	return errors.Join(errs...)
}

func exportDocument(ctx context.Context, runner *pipeline.Runner, doc, out string, opts exportOpts) (*pipeline.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := loggerFromContext(ctx).With("doc", doc)
	prog := newProgress(logger)

	res, err := runner.Execute(ctx, pipeline.Options{
		Path:    doc,
		Refresh: opts.refresh,
		Graphs:  opts.graphs,
		Layer:   opts.layer,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, res.ExportJSON, 0o644); err != nil {
		return nil, err
	}
	prog.done("Exported " + doc)
	return res, nil
}

// printMismatches lists skipped fields. Cached runs only carry the count.
func printMismatches(res *pipeline.Result) {
	if res.Summary.Mismatches == 0 {
		return
	}
	if res.Export == nil {
		printWarning("%d fields skipped (rerun with --refresh for details)", res.Summary.Mismatches)
		return
	}
	for i, m := range res.Export.Mismatches {
		if i == maxMismatchWarnings {
			printDetail("... and %d more", len(res.Export.Mismatches)-i)
			break
		}
		printWarning("%s", m)
	}
}
