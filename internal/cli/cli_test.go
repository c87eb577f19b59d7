package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pencilgraph/pkg/config"
	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	"github.com/matzehuels/pencilgraph/pkg/export"
	pgio "github.com/matzehuels/pencilgraph/pkg/io"
	"github.com/matzehuels/pencilgraph/pkg/maintain"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/override"
)

// newGraph returns a graph holding lines Lines, each with one Line Set.
func newGraph(t *testing.T, name string, lines int) *nodegraph.Graph {
	t.Helper()
	g := nodegraph.New(name)
	for range lines {
		line, err := maintain.NewLine(g)
		require.NoError(t, err)
		_, err = maintain.NewLineSet(g, line, 0)
		require.NoError(t, err)
	}
	return g
}

// writeDocument writes graphs to a scene.json in a temp directory.
func writeDocument(t *testing.T, graphs ...*nodegraph.Graph) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.json")
	require.NoError(t, pgio.ExportFile(path, graphs, override.NewStack()))
	return path
}

// runCLI executes the root command with isolated config and cache
// directories.
func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func loadDocument(t *testing.T, path string) *pgio.Project {
	t.Helper()
	c := New(io.Discard, LogInfo)
	p, err := c.load(context.Background(), path)
	require.NoError(t, err)
	return p
}

// =============================================================================
// Paths
// =============================================================================

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
	dir, err := cacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/custom-cache", appName), dir)
}

func TestCacheDirDefault(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	dir, err := cacheDir()
	require.NoError(t, err)
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".cache", appName), dir)
}

func TestCacheDirFromPreferences(t *testing.T) {
	c := New(io.Discard, LogInfo)
	c.Prefs.CacheDir = "/srv/cache"
	dir, err := c.cacheDir()
	require.NoError(t, err)
	assert.Equal(t, "/srv/cache", dir)
}

func TestSessionDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	dir, err := sessionDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/cfg", appName, "sessions"), dir)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "shots/scene.export.json", outputPath("shots/scene.json", ".export.json"))
	assert.Equal(t, "scene.png", outputPath("scene.yaml", ".png"))
	assert.Equal(t, "scene.png", outputPath("scene", ".png"))
}

// =============================================================================
// Helpers
// =============================================================================

func TestGraphOf(t *testing.T) {
	one := &pgio.Project{Path: "a.json", Graphs: []*nodegraph.Graph{nodegraph.New("Scene")}}
	g, err := graphOf(one, "")
	require.NoError(t, err)
	assert.Equal(t, "Scene", g.Name)

	two := &pgio.Project{Path: "b.json", Graphs: []*nodegraph.Graph{nodegraph.New("A"), nodegraph.New("B")}}
	_, err = graphOf(two, "")
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeInvalidInput))

	g, err = graphOf(two, "B")
	require.NoError(t, err)
	assert.Equal(t, "B", g.Name)

	_, err = graphOf(two, "C")
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeGraphNotFound))
}

func TestStatsLine(t *testing.T) {
	line := statsLine(export.Summary{Lines: 2, Records: 9, Mismatches: 1}, true)
	assert.Contains(t, line, "2 lines")
	assert.Contains(t, line, "9 records")
	assert.Contains(t, line, "1 skipped")
	assert.Contains(t, line, iconCached)
	assert.NotContains(t, line, "functions")

	assert.Contains(t, statsLine(export.Summary{Functions: 1}, false), iconFresh)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "2.0 MiB", formatBytes(2<<20))
}

func TestEditLines(t *testing.T) {
	g := newGraph(t, "Scene", 2)

	changed, err := editLines(g, linesOpts{})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = editLines(g, linesOpts{add: true, move: []int{2, 0}})
	require.NoError(t, err)
	assert.True(t, changed)
	lines := maintain.SortedLines(g)
	require.Len(t, lines, 3)
	assert.Equal(t, "Line.002", lines[0].Name())

	_, err = editLines(g, linesOpts{move: []int{0, 7}})
	assert.ErrorIs(t, err, maintain.ErrOutOfRange)

	_, err = editLines(g, linesOpts{remove: "Nope"})
	assert.Error(t, err)
}

// =============================================================================
// Commands
// =============================================================================

func TestExportCommand(t *testing.T) {
	doc := writeDocument(t, newGraph(t, "Scene", 2))

	require.NoError(t, runCLI(t, "export", "--no-cache", doc))

	data, err := os.ReadFile(outputPath(doc, ".export.json"))
	require.NoError(t, err)
	sum, err := export.Summarize(data)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Lines)
}

func TestExportCommandCollectsErrors(t *testing.T) {
	doc := writeDocument(t, newGraph(t, "Scene", 1))
	missing := filepath.Join(t.TempDir(), "missing.json")

	err := runCLI(t, "export", "--no-cache", missing, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.json")

	// The good document is still exported.
	assert.FileExists(t, outputPath(doc, ".export.json"))
}

func TestExportCommandRejectsOutputWithSeveralDocuments(t *testing.T) {
	assert.Error(t, runCLI(t, "export", "-o", "x.json", "a.json", "b.json"))
}

func TestLinesCommandWritesBack(t *testing.T) {
	doc := writeDocument(t, newGraph(t, "Scene", 1))

	require.NoError(t, runCLI(t, "lines", "--add", doc))

	p := loadDocument(t, doc)
	assert.Len(t, p.Graphs[0].Lines(), 2)
}

func TestMergeCommand(t *testing.T) {
	doc := writeDocument(t, newGraph(t, "A", 1), newGraph(t, "B", 1))

	require.NoError(t, runCLI(t, "merge", doc, "--from", "A", "--into", "B"))

	p := loadDocument(t, doc)
	require.Len(t, p.Graphs, 1)
	assert.Equal(t, "B", p.Graphs[0].Name)
	assert.Len(t, p.Graphs[0].Lines(), 2)
}

func TestResolveCommand(t *testing.T) {
	doc := writeDocument(t, newGraph(t, "Scene", 1))

	assert.NoError(t, runCLI(t, "resolve", doc, "Line", "render_priority"))

	err := runCLI(t, "resolve", doc, "Line", "no_such_field")
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeNotFound))

	err = runCLI(t, "resolve", doc, "Nope", "render_priority")
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeNodeNotFound))
}

func TestRenderCommandNeedsRenderer(t *testing.T) {
	doc := writeDocument(t, newGraph(t, "Scene", 1))
	err := runCLI(t, "render", doc)
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeEngineUnavailable))
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, runCLI(t, "--config", path, "config", "init", "--render-app", "/opt/pencil/render"))

	prefs, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/pencil/render", prefs.RenderAppPath)
	assert.Equal(t, config.DefaultServeAddr, prefs.ServeAddr)
}

func TestInvalidPreferencesFailEveryCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("preview_cache_size = 0\n"), 0o644))

	err := runCLI(t, "--config", path, "cache", "path")
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeInvalidConfig))
}
