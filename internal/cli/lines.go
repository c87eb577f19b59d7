package cli

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pencilgraph/pkg/export"
	pgio "github.com/matzehuels/pencilgraph/pkg/io"
	"github.com/matzehuels/pencilgraph/pkg/maintain"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// linesOpts holds the command-line flags for the lines command.
type linesOpts struct {
	graph       string
	output      string // defaults to the document itself
	add         bool
	move        []int // source and target display positions
	remove      string
	normalize   bool
	interactive bool
}

// linesCommand creates the lines command, which lists and edits the Lines
// of one graph.
func (c *CLI) linesCommand() *cobra.Command {
	var opts linesOpts

	cmd := &cobra.Command{
		Use:   "lines <document>",
		Short: "List, add and reorder the Lines of a graph",
		Long: `Lines prints the Lines of a graph in render order. Editing flags change
the graph and write the document back (or to -o):

  --add         append a new Line with one Line Set
  --move 2,0    move the Line at position 2 to position 0
  --remove      delete a Line and everything only it uses
  --normalize   renumber render priorities 0..N-1
  -i            reorder interactively`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.move) != 0 && len(opts.move) != 2 {
				return fmt.Errorf("--move takes two positions, e.g. --move 2,0")
			}
			return c.runLines(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.graph, "graph", "g", "", "graph to edit (required with several graphs)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the edited document here instead")
	cmd.Flags().BoolVar(&opts.add, "add", false, "add a Line")
	cmd.Flags().IntSliceVar(&opts.move, "move", nil, "move a Line: from,to display positions")
	cmd.Flags().StringVar(&opts.remove, "remove", "", "remove the named Line")
	cmd.Flags().BoolVar(&opts.normalize, "normalize", false, "renumber render priorities")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "reorder Lines interactively")

	return cmd
}

func (c *CLI) runLines(cmd *cobra.Command, doc string, opts linesOpts) error {
	p, err := c.load(cmd.Context(), doc)
	if err != nil {
		return err
	}
	g, err := graphOf(p, opts.graph)
	if err != nil {
		return err
	}

	changed, err := editLines(g, opts)
	if err != nil {
		return err
	}

	if opts.interactive {
		// The editor works on a copy so quitting discards its edits.
		work := g.Clone()
		final, err := tea.NewProgram(newLinesModel(work, p.Stack), tea.WithContext(cmd.Context())).Run()
		if err != nil {
			return err
		}
		if final.(linesModel).saved {
			g.Assign(work)
			changed = true
		}
		if !changed {
			printInfo("No changes")
			return nil
		}
	}

	fmt.Println(renderTable([]string{"#", "Line", "Priority", "Line Sets", "State"}, lineRows(g, p.Stack)))
	if !changed {
		return nil
	}

	out := opts.output
	if out == "" {
		out = doc
	}
	if err := pgio.ExportFile(out, p.Graphs, p.Stack); err != nil {
		return err
	}
	printSuccess("Saved %s", g.Name)
	printFile(out)
	return nil
}

// editLines applies the flag edits in a fixed order and reports whether the
// graph changed.
func editLines(g *nodegraph.Graph, opts linesOpts) (bool, error) {
	changed := false
	if opts.remove != "" {
		line := g.Node(opts.remove)
		if line == nil {
			return false, fmt.Errorf("no Line named %q in %s", opts.remove, g.Name)
		}
		if err := maintain.RemoveLine(g, line); err != nil {
			return false, err
		}
		changed = true
	}
	if opts.add {
		line, err := maintain.NewLine(g)
		if err != nil {
			return false, err
		}
		if _, err := maintain.NewLineSet(g, line, 0); err != nil {
			return false, err
		}
		changed = true
	}
	if len(opts.move) == 2 {
		if err := maintain.MovePriority(g, opts.move[0], opts.move[1]); err != nil {
			return false, err
		}
		changed = true
	}
	if opts.normalize && maintain.NormalizePriorities(g) {
		changed = true
	}
	return changed, nil
}

// lineRows renders the Lines of g in display order.
func lineRows(g *nodegraph.Graph, stack override.Stack) [][]string {
	var rows [][]string
	for i, l := range maintain.SortedLines(g) {
		state := "live"
		switch {
		case l.Muted:
			state = "muted"
		case !export.Live(l, stack):
			state = "inactive"
		}
		sets := 0
		for _, s := range l.Inputs {
			if s.Kind == schema.SocketLineSet && s.IsLinked() {
				sets++
			}
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			l.Name(),
			strconv.Itoa(l.Int(schema.FieldRenderPriority)),
			strconv.Itoa(sets),
			state,
		})
	}
	return rows
}
