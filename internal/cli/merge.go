package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	pgio "github.com/matzehuels/pencilgraph/pkg/io"
	"github.com/matzehuels/pencilgraph/pkg/merge"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
)

// mergeOpts holds the command-line flags for the merge command.
type mergeOpts struct {
	from         string
	into         string
	replaceLines bool
	keepSource   bool
	output       string
}

// mergeCommand creates the merge command, which moves every node of one
// graph into another.
func (c *CLI) mergeCommand() *cobra.Command {
	var opts mergeOpts

	cmd := &cobra.Command{
		Use:   "merge <document> --from <graph> --into <graph>",
		Short: "Merge one graph of a document into another",
		Long: `Merge copies the nodes of --from into --into, renaming clashes, then
drops the emptied source graph. With --replace-lines, Lines of --into named
like a Line of --from are replaced instead of duplicated.`,
		Example: `  pencilgraph merge scene.json --from "Scene.001" --into Scene
  pencilgraph merge scene.json --from A --into B --replace-lines -o merged.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMerge(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "source graph")
	cmd.Flags().StringVar(&opts.into, "into", "", "destination graph")
	cmd.Flags().BoolVar(&opts.replaceLines, "replace-lines", false, "replace same-name Lines in the destination")
	cmd.Flags().BoolVar(&opts.keepSource, "keep-source", false, "keep the emptied source graph")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the merged document here instead")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("into")

	return cmd
}

func (c *CLI) runMerge(cmd *cobra.Command, doc string, opts mergeOpts) error {
	p, err := c.load(cmd.Context(), doc)
	if err != nil {
		return err
	}
	src, err := graphOf(p, opts.from)
	if err != nil {
		return err
	}
	dst, err := graphOf(p, opts.into)
	if err != nil {
		return err
	}

	res, err := merge.Merge(src, dst, merge.Options{
		ReplaceSameNameLines: opts.replaceLines,
		Logger:               c.Logger,
	})
	if err != nil {
		return err
	}

	graphs := p.Graphs
	if !opts.keepSource {
		graphs = slices.DeleteFunc(slices.Clone(graphs), func(g *nodegraph.Graph) bool { return g == src })
	}
	out := opts.output
	if out == "" {
		out = doc
	}
	if err := pgio.ExportFile(out, graphs, p.Stack); err != nil {
		return err
	}

	printSuccess("Merged %s into %s", opts.from, opts.into)
	printDetail("%d nodes copied, %d curves copied, %d shared", len(res.Names), res.CurvesCopied, res.CurvesShared)
	if len(res.Replaced) > 0 {
		printDetail("Replaced: %s", strings.Join(res.Replaced, ", "))
	}
	if renamed := res.Renamed(); len(renamed) > 0 {
		pairs := make([]string, len(renamed))
		for i, name := range renamed {
			pairs[i] = fmt.Sprintf("%s → %s", name, res.Names[name])
		}
		printDetail("Renamed: %s", strings.Join(pairs, ", "))
	}
	if len(res.Cleanup.Removed) > 0 {
		printDetail("Dropped unused: %s", strings.Join(res.Cleanup.Removed, ", "))
	}
	printFile(out)
	return nil
}
