package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pencilgraph/pkg/maintain"
	"github.com/matzehuels/pencilgraph/pkg/merge"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

func newSession(t *testing.T, graphs ...string) *Session {
	t.Helper()
	s, err := New(Options{PreviewCacheSize: 2})
	require.NoError(t, err)
	for _, name := range graphs {
		g := s.NewGraph(name)
		require.Equal(t, name, g.Name)
		require.NoError(t, s.Edit(name, func(g *nodegraph.Graph, _ override.Stack) error {
			line, err := maintain.NewLine(g)
			if err != nil {
				return err
			}
			_, err = maintain.NewLineSet(g, line, 0)
			return err
		}))
	}
	return s
}

func TestEditCommitsOnSuccess(t *testing.T) {
	s := newSession(t, "Scene")
	rev := s.Revision()

	require.NoError(t, s.Edit("Scene", func(g *nodegraph.Graph, _ override.Stack) error {
		_, err := maintain.NewLine(g)
		return err
	}))
	assert.Equal(t, rev+1, s.Revision())
	require.NoError(t, s.View("Scene", func(g *nodegraph.Graph, _ override.Stack) error {
		assert.Len(t, g.Lines(), 2)
		return nil
	}))
}

func TestEditRollsBackOnError(t *testing.T) {
	s := newSession(t, "Scene")
	rev := s.Revision()
	boom := errors.New("boom")

	err := s.Edit("Scene", func(g *nodegraph.Graph, _ override.Stack) error {
		if _, err := maintain.NewLine(g); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, rev, s.Revision())
	require.NoError(t, s.View("Scene", func(g *nodegraph.Graph, _ override.Stack) error {
		assert.Len(t, g.Lines(), 1)
		return nil
	}))
}

func TestMissingGraph(t *testing.T) {
	s := newSession(t)
	noop := func(*nodegraph.Graph, override.Stack) error { return nil }
	assert.ErrorIs(t, s.Edit("nope", noop), ErrNotFound)
	assert.ErrorIs(t, s.View("nope", noop), ErrNotFound)
	assert.ErrorIs(t, s.RemoveGraph("nope"), ErrNotFound)
	_, err := s.GraphID("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewGraphNames(t *testing.T) {
	s := newSession(t)
	assert.Equal(t, nodegraph.DefaultName, s.NewGraph("").Name)
	assert.Equal(t, nodegraph.DefaultName+".001", s.NewGraph("").Name)
	assert.ErrorIs(t, s.AddGraph(nodegraph.New(nodegraph.DefaultName)), ErrGraphExists)
	assert.Equal(t, []string{nodegraph.DefaultName, nodegraph.DefaultName + ".001"}, s.Graphs())
}

func TestPreviewEvictedWithGraph(t *testing.T) {
	s := newSession(t, "A", "B")
	a, _ := s.GraphID("A")
	b, _ := s.GraphID("B")

	assert.True(t, s.StorePreview(a, Preview{Hash: "h1", Node: "Brush Detail"}))
	assert.False(t, s.StorePreview(a, Preview{Hash: "h1", Node: "Brush Detail"}), "unchanged preview")
	assert.True(t, s.StorePreview(a, Preview{Hash: "h2", Node: "Brush Detail"}))
	s.StorePreview(b, Preview{Hash: "h3"})

	require.NoError(t, s.RemoveGraph("A"))
	_, ok := s.Preview(a)
	assert.False(t, ok)
	_, ok = s.Preview(b)
	assert.True(t, ok)

	require.NoError(t, s.Edit("B", func(*nodegraph.Graph, override.Stack) error { return nil }))
	_, ok = s.Preview(b)
	assert.False(t, ok, "committed edits invalidate the preview")
}

func TestPreviewCacheIsBounded(t *testing.T) {
	s := newSession(t)
	for i := range 5 {
		s.StorePreview(fmt.Sprint(i), Preview{Hash: "h"})
	}
	assert.Equal(t, 2, s.Previews())
	_, ok := s.Preview("4")
	assert.True(t, ok)
	_, ok = s.Preview("0")
	assert.False(t, ok)
}

func TestEditLayers(t *testing.T) {
	s := newSession(t, "Scene")
	id, _ := s.GraphID("Scene")
	s.StorePreview(id, Preview{Hash: "h"})

	require.NoError(t, s.EditLayers(func(stack override.Stack) (override.Stack, error) {
		stack.Layer(override.LayerScene).Set("Line.over_sampling", 4)
		return stack, nil
	}))
	assert.Zero(t, s.Previews())

	require.NoError(t, s.View("Scene", func(g *nodegraph.Graph, stack override.Stack) error {
		assert.Equal(t, 4, override.Int(g.Node("Line"), "over_sampling", stack, 0))
		return nil
	}))

	err := s.EditLayers(func(stack override.Stack) (override.Stack, error) {
		stack.Layer(override.LayerScene).Set("Line.over_sampling", 1)
		return nil, errors.New("rejected")
	})
	require.Error(t, err)
	require.NoError(t, s.View("Scene", func(g *nodegraph.Graph, stack override.Stack) error {
		assert.Equal(t, 4, override.Int(g.Node("Line"), "over_sampling", stack, 0))
		return nil
	}))
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := newSession(t, "Scene")
	graphs, stack := s.Snapshot()
	require.Len(t, graphs, 1)

	require.NoError(t, s.Edit("Scene", func(g *nodegraph.Graph, _ override.Stack) error {
		_, err := maintain.NewLine(g)
		return err
	}))
	require.NoError(t, s.EditLayers(func(st override.Stack) (override.Stack, error) {
		st.Layer(override.LayerScene).Set("Line.random_seed", 7)
		return st, nil
	}))

	assert.Len(t, graphs[0].Lines(), 1)
	assert.Zero(t, stack.Layer(override.LayerScene).Len())
}

func TestMergeRepointsViewers(t *testing.T) {
	s := newSession(t, "Src", "Dst")
	src, _ := s.GraphID("Src")
	dst, _ := s.GraphID("Dst")
	s.Viewers().Show("editor-1", src)
	s.Viewers().Show("editor-2", dst)
	s.StorePreview(src, Preview{Hash: "a"})
	s.StorePreview(dst, Preview{Hash: "b"})

	res, err := s.Merge("Src", "Dst", merge.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Viewers)
	assert.Equal(t, []string{"editor-1", "editor-2"}, s.Viewers().Watching(dst))
	assert.Zero(t, s.Previews())

	require.NoError(t, s.View("Dst", func(g *nodegraph.Graph, _ override.Stack) error {
		assert.Len(t, g.Lines(), 2)
		return nil
	}))
	require.NoError(t, s.View("Src", func(g *nodegraph.Graph, _ override.Stack) error {
		assert.Zero(t, g.Len())
		return nil
	}))

	_, err = s.Merge("Src", "nope", merge.Options{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestViewers(t *testing.T) {
	v := NewViewers()
	v.Show("a", "g1")
	v.Show("b", "g1")
	v.Show("c", "g2")

	assert.Equal(t, 2, v.Repoint("g1", "g3"))
	id, ok := v.Showing("a")
	assert.True(t, ok)
	assert.Equal(t, "g3", id)

	assert.Equal(t, 1, v.Drop("g2"))
	_, ok = v.Showing("c")
	assert.False(t, ok)

	v.Close("a")
	assert.Equal(t, []string{"b"}, v.Watching("g3"))
}

func TestConcurrentEdits(t *testing.T) {
	s := newSession(t, "Scene")
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Edit("Scene", func(g *nodegraph.Graph, _ override.Stack) error {
				_, err := maintain.NewLine(g)
				return err
			})
		}()
	}
	wg.Wait()

	require.NoError(t, s.View("Scene", func(g *nodegraph.Graph, _ override.Stack) error {
		lines := maintain.SortedLines(g)
		assert.Len(t, lines, 9)
		for i, l := range lines {
			assert.Equal(t, i, l.Int(schema.FieldRenderPriority))
		}
		return nil
	}))
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	s := newSession(t, "Scene")
	require.NoError(t, s.EditLayers(func(st override.Stack) (override.Stack, error) {
		st.Layer(override.LayerScene).Set("Line.over_sampling", 3)
		return st, nil
	}))
	rec, err := s.Record(time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, rec))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	restored, err := Restore(got, Options{})
	require.NoError(t, err)
	assert.Equal(t, s.ID, restored.ID)
	assert.Equal(t, []string{"Scene"}, restored.Graphs())
	require.NoError(t, restored.View("Scene", func(g *nodegraph.Graph, stack override.Stack) error {
		assert.Equal(t, 3, override.Int(g.Node("Line"), "over_sampling", stack, 0))
		assert.NotNil(t, g.Node("Line Set"))
		return nil
	}))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{s.ID}, ids)

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	old := &Record{ID: "old", ExpiresAt: time.Now().Add(-time.Minute)}
	live := &Record{ID: "live", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Set(ctx, old))
	require.NoError(t, store.Set(ctx, live))

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrExpired)

	n, err := store.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "live")
	assert.NoError(t, err)
}
