package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	"github.com/matzehuels/pencilgraph/pkg/filter"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/pipeline"
)

// inspectOpts selects the graph and layer a node is read through.
type inspectOpts struct {
	graph string
	layer string
}

func (o *inspectOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.graph, "graph", "g", "", "graph holding the node (required with several graphs)")
	cmd.Flags().StringVar(&o.layer, "layer", "", "resolve against one layer only")
}

// resolveCommand creates the resolve command, which prints the effective
// value of one field and where it came from.
func (c *CLI) resolveCommand() *cobra.Command {
	var opts inspectOpts

	cmd := &cobra.Command{
		Use:   "resolve <document> <node> <field>",
		Short: "Show the effective value of a node field",
		Long: `Resolve walks the override layers of a document and prints the value a
field takes, the layer that supplied it and the key or pattern that matched.`,
		Example: `  pencilgraph resolve scene.json Line over_sampling
  pencilgraph resolve scene.json "Line Set" visible_faces --layer scene`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, stack, err := c.inspect(cmd, args[0], args[1], opts)
			if err != nil {
				return err
			}
			field := args[2]
			if _, ok := n.Type.Field(override.Canonical(field)); !ok {
				return pgerrors.New(pgerrors.ErrCodeNotFound, "%s has no field %q", n.Type.Name, field)
			}

			res := override.Resolve(n, field, stack)
			layer := res.Layer
			if !res.Overridden() {
				layer = StyleDim.Render("(stored)")
			}
			printKeyValue("node", n.Name())
			printKeyValue("field", override.Canonical(field))
			printKeyValue("value", fmt.Sprint(res.Value))
			printKeyValue("layer", layer)
			printKeyValue("key", res.Key)
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

// socketsCommand creates the sockets command, which lists the active inputs
// of a node and what feeds them.
func (c *CLI) socketsCommand() *cobra.Command {
	var opts inspectOpts

	cmd := &cobra.Command{
		Use:   "sockets <document> <node>",
		Short: "List the active input sockets of a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, stack, err := c.inspect(cmd, args[0], args[1], opts)
			if err != nil {
				return err
			}

			active := filter.ActiveInputs(n, stack)
			if len(active) == 0 {
				printInfo("%s has no active inputs", n.Name())
				return nil
			}
			rows := make([][]string, 0, len(active))
			for _, s := range active {
				linked := StyleDim.Render("-")
				if src := filter.ConnectedNode(n.Graph(), s, stack); src != nil {
					linked = src.Name()
				}
				rows = append(rows, []string{s.ID, s.Name, string(s.Kind), linked})
			}
			fmt.Println(renderTable([]string{"ID", "Name", "Kind", "Linked"}, rows))
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

// inspect loads doc and returns the named node with the stack it resolves
// against.
func (c *CLI) inspect(cmd *cobra.Command, doc, node string, opts inspectOpts) (*nodegraph.Node, override.Stack, error) {
	p, err := c.load(cmd.Context(), doc)
	if err != nil {
		return nil, nil, err
	}
	g, err := graphOf(p, opts.graph)
	if err != nil {
		return nil, nil, err
	}
	n := g.Node(node)
	if n == nil {
		return nil, nil, pgerrors.New(pgerrors.ErrCodeNodeNotFound, "node %q not found in graph %s", node, g.Name)
	}
	stack, err := pipeline.StackFor(p.Stack, opts.layer)
	if err != nil {
		return nil, nil, err
	}
	return n, stack, nil
}
