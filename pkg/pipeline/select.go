package pipeline

import (
	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	pgio "github.com/matzehuels/pencilgraph/pkg/io"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
)

// Select returns the named graphs of p in the order given. No names
// selects every graph; a repeated name is taken once.
func Select(p *pgio.Project, names []string) ([]*nodegraph.Graph, error) {
	if len(names) == 0 {
		return p.Graphs, nil
	}
	seen := make(map[string]bool, len(names))
	graphs := make([]*nodegraph.Graph, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		g := p.Graph(name)
		if g == nil {
			return nil, pgerrors.New(pgerrors.ErrCodeGraphNotFound, "no graph named %q", name)
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}
