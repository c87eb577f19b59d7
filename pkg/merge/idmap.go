package merge

import (
	"slices"

	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// Item is an object or material the host knows about.
type Item struct {
	ID   string
	Name string
	// Linked marks items that come from a library file. Only local items
	// are used as replacements.
	Linked bool
}

// Catalog lists the items of one kind that currently exist in the host.
type Catalog []Item

// Has reports whether id exists.
func (c Catalog) Has(id string) bool {
	return slices.ContainsFunc(c, func(it Item) bool { return it.ID == id })
}

// Local returns the first local item called name.
func (c Catalog) Local(name string) (Item, bool) {
	for _, it := range c {
		if !it.Linked && it.Name == name {
			return it, true
		}
	}
	return Item{}, false
}

func (c Catalog) name(id string) (string, bool) {
	for _, it := range c {
		if it.ID == id {
			return it.Name, true
		}
	}
	return "", false
}

// IDMap remembers the name of every item a graph referenced, keyed by
// reference. Once a referenced item disappears (a library was reloaded or
// relocated) the name is all that is left to find a replacement with.
type IDMap map[string]string

// RecordIDMap records the references held by the LineSet field (objects or
// materials) of g. Names come from the catalog; references it does not
// know record themselves as their name.
func RecordIDMap(g *nodegraph.Graph, field string, c Catalog) IDMap {
	m := IDMap{}
	for _, set := range g.NodesOfType(schema.TypeLineSet) {
		for _, ref := range refs(set, field) {
			if name, ok := c.name(ref); ok {
				m[ref] = name
			} else {
				m[ref] = ref
			}
		}
	}
	if field == schema.FieldMaterials {
		for _, mat := range g.Materials() {
			if name, ok := c.name(mat); ok {
				m[mat] = name
			} else {
				m[mat] = mat
			}
		}
	}
	return m
}

// ReplacementFor returns the local item that should stand in for ref. There
// is none when ref still exists, was never recorded, or no local item has
// the recorded name.
func (m IDMap) ReplacementFor(ref string, c Catalog) (string, bool) {
	if c.Has(ref) {
		return "", false
	}
	name, ok := m[ref]
	if !ok {
		return "", false
	}
	it, ok := c.Local(name)
	if !ok {
		return "", false
	}
	return it.ID, true
}

// Cleanup configures the list cleanup. A nil catalog leaves that list
// alone.
type Cleanup struct {
	Objects   Catalog
	Materials Catalog

	ObjectMap   IDMap
	MaterialMap IDMap

	// KeepUnused keeps references that neither exist nor could be
	// replaced.
	KeepUnused bool
}

// CleanupReport counts what a cleanup changed.
type CleanupReport struct {
	Replaced int
	Dropped  int
	// Removed lists the nodes deleted because nothing used them.
	Removed []string
}

// CleanLists repoints and drops stale references in the objects and
// materials lists of every LineSet of g, and in its material attachments.
func CleanLists(g *nodegraph.Graph, c Cleanup) CleanupReport {
	var rep CleanupReport
	lists := []struct {
		field   string
		catalog Catalog
		ids     IDMap
	}{
		{schema.FieldObjects, c.Objects, c.ObjectMap},
		{schema.FieldMaterials, c.Materials, c.MaterialMap},
	}
	for _, l := range lists {
		if l.catalog == nil {
			continue
		}
		for _, set := range g.NodesOfType(schema.TypeLineSet) {
			old := refs(set, l.field)
			cleaned := clean(old, l.catalog, l.ids, c.KeepUnused, &rep)
			if !slices.Equal(old, cleaned) {
				_ = set.Set(l.field, cleaned)
			}
		}
	}

	if c.Materials != nil {
		for mat, fnName := range g.MaterialTable() {
			fn := g.Node(fnName)
			if fn == nil {
				continue
			}
			if repl, ok := c.MaterialMap.ReplacementFor(mat, c.Materials); ok {
				g.DetachFunctions(mat)
				if g.FunctionsFor(repl) == nil {
					_ = g.AttachFunctions(repl, fn)
				}
				rep.Replaced++
				continue
			}
			if !c.KeepUnused && !c.Materials.Has(mat) {
				g.DetachFunctions(mat)
				rep.Dropped++
			}
		}
	}
	return rep
}

func clean(in []string, c Catalog, ids IDMap, keep bool, rep *CleanupReport) []string {
	out := make([]string, 0, len(in))
	for _, ref := range in {
		if repl, ok := ids.ReplacementFor(ref, c); ok {
			rep.Replaced++
			ref = repl
		} else if !keep && !c.Has(ref) {
			rep.Dropped++
			continue
		}
		if !slices.Contains(out, ref) {
			out = append(out, ref)
		}
	}
	return out
}

func refs(n *nodegraph.Node, field string) []string {
	v, _ := n.Attr(field)
	s, _ := v.([]string)
	return s
}
