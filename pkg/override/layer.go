package override

import (
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/pencilgraph/pkg/errors"
)

// Well-known layer names, in resolution order.
const (
	LayerViewLayer = "view_layer"
	LayerScene     = "scene"
)

// guiSuffix marks a derived accessor that mirrors an `_on` field.
const guiSuffix = "_on_gui"

// Path returns the attribute path `<node-name>.<field>` used as the key in
// override layers. The field is canonicalized first.
func Path(nodeName, field string) string {
	return nodeName + "." + Canonical(field)
}

// Canonical folds a derived field name onto the stored field it mirrors.
func Canonical(field string) string {
	if strings.HasSuffix(field, guiSuffix) {
		return strings.TrimSuffix(field, "_gui")
	}
	return field
}

// SplitPath splits an attribute path into node name and field. Node names
// may carry a ".001" suffix, so the field is whatever follows the last dot.
func SplitPath(path string) (node, field string, ok bool) {
	i := strings.LastIndexByte(path, '.')
	if i <= 0 || i == len(path)-1 {
		return "", "", false
	}
	return path[:i], path[i+1:], true
}

// Entry is a single (key, value) pair in a layer.
type Entry struct {
	Key   string
	Value any

	re *regexp.Regexp // nil when Key is not a valid expression
}

// Pattern reports whether the key can take part in pattern matching.
func (e Entry) Pattern() bool { return e.re != nil }

// Layer is an ordered override table attached to a context object.
type Layer struct {
	Name    string
	entries []Entry
	index   map[string]int
}

// NewLayer creates an empty layer.
func NewLayer(name string) *Layer {
	return &Layer{Name: name, index: make(map[string]int)}
}

// Set stores value under key, replacing an existing entry in place so that
// the entry keeps its position. Keys that do not compile as expressions are
// still usable as literal keys.
func (l *Layer) Set(key string, value any) {
	re, err := errors.ValidatePattern(key)
	if err != nil {
		re = nil
	}
	l.put(Entry{Key: key, Value: value, re: re})
}

// AddPattern stores a pattern entry, rejecting malformed expressions.
func (l *Layer) AddPattern(pattern string, value any) error {
	re, err := errors.ValidatePattern(pattern)
	if err != nil {
		return err
	}
	l.put(Entry{Key: pattern, Value: value, re: re})
	return nil
}

func (l *Layer) put(e Entry) {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if i, ok := l.index[e.Key]; ok {
		l.entries[i] = e
		return
	}
	l.index[e.Key] = len(l.entries)
	l.entries = append(l.entries, e)
}

// Delete removes the entry stored under key. It reports whether an entry
// was removed.
func (l *Layer) Delete(key string) bool {
	i, ok := l.index[key]
	if !ok {
		return false
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	delete(l.index, key)
	for k, j := range l.index {
		if j > i {
			l.index[k] = j - 1
		}
	}
	return true
}

// Get returns the value stored under the literal key.
func (l *Layer) Get(key string) (any, bool) {
	i, ok := l.index[key]
	if !ok {
		return nil, false
	}
	return l.entries[i].Value, true
}

// Entries returns the entries in layer order.
func (l *Layer) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Layer) Len() int { return len(l.entries) }

// lookup finds the candidate for path: the literal key first, then the
// first fully matching pattern in layer order.
func (l *Layer) lookup(path string) (Entry, bool) {
	if i, ok := l.index[path]; ok {
		return l.entries[i], true
	}
	for _, e := range l.entries {
		if e.re != nil && e.re.MatchString(path) {
			return e, true
		}
	}
	return Entry{}, false
}

// Clone returns a deep copy of the layer. Sequence values are copied so the
// clone can serve as an evaluated snapshot.
func (l *Layer) Clone() *Layer {
	c := NewLayer(l.Name)
	for _, e := range l.entries {
		e.Value = cloneValue(e.Value)
		c.put(e)
	}
	return c
}

// Stack is an ordered list of layers; earlier layers take precedence.
type Stack []*Layer

// NewStack returns the usual two-layer stack: view layer, then scene.
func NewStack() Stack {
	return Stack{NewLayer(LayerViewLayer), NewLayer(LayerScene)}
}

// Layer returns the layer with the given name, or nil.
func (s Stack) Layer(name string) *Layer {
	for _, l := range s {
		if l != nil && l.Name == name {
			return l
		}
	}
	return nil
}

// Snapshot deep-copies the stack. Exports resolve against a snapshot so
// that edits made while an export runs cannot change its result.
func (s Stack) Snapshot() Stack {
	out := make(Stack, len(s))
	for i, l := range s {
		if l != nil {
			out[i] = l.Clone()
		}
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []float64:
		return slices.Clone(x)
	case []int:
		return append([]int(nil), x...)
	case []string:
		return slices.Clone(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	}
	return v
}
