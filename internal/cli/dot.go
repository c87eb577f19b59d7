package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pencilgraph/pkg/pipeline"
	"github.com/matzehuels/pencilgraph/pkg/render/dot"
)

// dotOpts holds the command-line flags for the dot command.
type dotOpts struct {
	output   string // output directory, defaults to the document's
	graphs   []string
	layer    string
	format   string
	detailed bool
	refresh  bool
	noCache  bool
}

// dotCommand creates the dot command, which draws graphs with Graphviz.
func (c *CLI) dotCommand() *cobra.Command {
	opts := dotOpts{format: dot.FormatSVG}

	cmd := &cobra.Command{
		Use:   "dot <document>",
		Short: "Draw the graphs of a document with Graphviz",
		Long: `Dot draws each graph of a document as a node-link diagram. Nodes that
do not take part in an export are drawn dimmed. One file is written per
graph, named <document>.<graph>.<format>.`,
		Example: `  pencilgraph dot scene.json
  pencilgraph dot scene.json --format png --detailed -o diagrams/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateDiagramFormat(opts.format); err != nil {
				return err
			}
			return c.runDot(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory")
	cmd.Flags().StringSliceVarP(&opts.graphs, "graph", "g", nil, "graphs to draw (default all)")
	cmd.Flags().StringVar(&opts.layer, "layer", "", "resolve overrides against one layer only")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: "+strings.Join(dot.Formats, ", "))
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show field values in node labels")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached diagrams")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runDot(cmd *cobra.Command, doc string, opts dotOpts) error {
	ctx := cmd.Context()
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Drawing "+doc+"...")
	spinner.Start()
	res, err := runner.Execute(ctx, pipeline.Options{
		Path:     doc,
		Refresh:  opts.refresh,
		Graphs:   opts.graphs,
		Layer:    opts.layer,
		Diagram:  opts.format,
		Detailed: opts.detailed,
		Logger:   c.Logger,
	})
	if err != nil {
		spinner.StopWithError("Drawing failed")
		return err
	}
	spinner.Stop()

	dir := opts.output
	if dir == "" {
		dir = filepath.Dir(doc)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := filepath.Base(outputPath(doc, ""))

	printSuccess("Drew %d graphs", len(res.Diagrams))
	names := make([]string, 0, len(res.Diagrams))
	for name := range res.Diagrams {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		path := filepath.Join(dir, fmt.Sprintf("%s.%s.%s", base, fileSafe(name), opts.format))
		if err := os.WriteFile(path, res.Diagrams[name], 0o644); err != nil {
			return err
		}
		printFile(path)
	}
	return nil
}

// fileSafe replaces path separators and spaces in graph names.
func fileSafe(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(name)
}
