package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pencilgraph/pkg/buildinfo"
	"github.com/matzehuels/pencilgraph/pkg/cache"
	"github.com/matzehuels/pencilgraph/pkg/config"
	"github.com/matzehuels/pencilgraph/pkg/engine"
	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	pgio "github.com/matzehuels/pencilgraph/pkg/io"
	"github.com/matzehuels/pencilgraph/pkg/nodegraph"
	"github.com/matzehuels/pencilgraph/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "pencilgraph"

	// redisPrefix namespaces cache keys in a shared Redis.
	redisPrefix = "pencilgraph:"

	// maxParallel bounds the documents processed at once.
	maxParallel = 4
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Prefs  config.Preferences

	configPath string
}

// New creates a new CLI instance with a default logger and the built-in
// preferences. The preferences file is read before each command runs.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Prefs:  config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "pencilgraph edits and exports line-render node graphs",
		Long: `pencilgraph loads line-render node graph documents, resolves their
override layers and exports the live nodes as flat records for the renderer.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return c.loadPrefs()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "preferences file (default $XDG_CONFIG_HOME/pencilgraph/config.toml)")

	root.AddCommand(c.exportCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.socketsCommand())
	root.AddCommand(c.linesCommand())
	root.AddCommand(c.mergeCommand())
	root.AddCommand(c.dotCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.sessionCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadPrefs() error {
	prefs, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Prefs = prefs
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, nil, c.Logger), nil
}

// newCache picks the cache backend: Redis when the preferences name one,
// otherwise the cache directory. A cache that cannot be opened degrades to
// no caching.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if c.Prefs.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, c.Prefs.RedisURL, redisPrefix)
		if err != nil {
			c.Logger.Warn("redis cache unavailable, caching disabled", "error", err)
			return cache.NewNullCache(), nil
		}
		return rc, nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newEngine returns the renderer program from the preferences, checked
// against the pinned version.
func (c *CLI) newEngine() (*engine.Process, error) {
	if c.Prefs.RenderAppPath == "" {
		return nil, pgerrors.New(pgerrors.ErrCodeEngineUnavailable,
			"render_app_path is not set (see %s config path)", appName)
	}
	p := &engine.Process{Path: c.Prefs.RenderAppPath, Logger: c.Logger}
	want := engine.Marker{Version: c.Prefs.EngineVersion, Commit: c.Prefs.EngineCommit}
	if err := engine.Verify(p, want); err != nil {
		return nil, err
	}
	return p, nil
}

// load reads a document into graphs and layers.
func (c *CLI) load(ctx context.Context, path string) (*pgio.Project, error) {
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, c.Logger)
	return runner.Load(ctx, pipeline.Options{Path: path})
}

// graphOf returns the named graph, or the only graph when name is empty.
func graphOf(p *pgio.Project, name string) (*nodegraph.Graph, error) {
	if name == "" {
		if len(p.Graphs) != 1 {
			return nil, pgerrors.New(pgerrors.ErrCodeInvalidInput,
				"%s has %d graphs, choose one with --graph", p.Path, len(p.Graphs))
		}
		return p.Graphs[0], nil
	}
	g := p.Graph(name)
	if g == nil {
		return nil, pgerrors.New(pgerrors.ErrCodeGraphNotFound, "graph %q not found in %s", name, p.Path)
	}
	return g, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the preferred cache directory, falling back to the XDG
// standard (~/.cache/pencilgraph/).
func (c *CLI) cacheDir() (string, error) {
	if c.Prefs.CacheDir != "" {
		return c.Prefs.CacheDir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/pencilgraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// sessionDir returns where saved sessions live (~/.config/pencilgraph/sessions).
func sessionDir() (string, error) {
	p, err := config.Path()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(p), "sessions"), nil
}

// outputPath derives an output file next to the document: scene.json with
// suffix ".export.json" becomes scene.export.json.
func outputPath(doc, suffix string) string {
	ext := filepath.Ext(doc)
	return doc[:len(doc)-len(ext)] + suffix
}
