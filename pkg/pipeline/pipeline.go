// Package pipeline provides the export pipeline shared by the CLI and the
// HTTP server.
//
// # Architecture
//
// A run has up to four stages:
//
//  1. Load: read a document and build its graphs and override layers
//  2. Export: flatten the live nodes of the selected graphs into records
//  3. Diagram: render each selected graph as a Graphviz diagram
//  4. Preview: hand the records to the external renderer
//
// Export, diagram and preview outputs are cached by content hash, so a
// rerun on an unchanged document loads nothing.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Path:    "scene.json",
//	    Diagram: dot.FormatSVG,
//	})
//	os.Stdout.Write(res.ExportJSON)
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pencilgraph/pkg/cache"
	"github.com/matzehuels/pencilgraph/pkg/engine"
	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	"github.com/matzehuels/pencilgraph/pkg/export"
	pgio "github.com/matzehuels/pencilgraph/pkg/io"
	"github.com/matzehuels/pencilgraph/pkg/render/dot"
	"github.com/matzehuels/pencilgraph/pkg/schema"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultWidth is the default preview width in pixels.
	DefaultWidth = 1920

	// DefaultHeight is the default preview height in pixels.
	DefaultHeight = 1080

	// DefaultLineScale leaves line sizes unchanged.
	DefaultLineScale = 1.0

	// MaxSize bounds preview width and height.
	MaxSize = 16384
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options. Document takes precedence over Path and is decoded
	// as Format.
	Path     string `json:"path,omitempty"`
	Document []byte `json:"-"`
	Format   string `json:"format,omitempty"`
	Refresh  bool   `json:"refresh,omitempty"`

	// Export options. Empty Graphs exports every graph; a non-empty Layer
	// resolves overrides against that layer alone.
	Graphs []string `json:"graphs,omitempty"`
	Layer  string   `json:"layer,omitempty"`

	// Diagram options. An empty Diagram skips the stage.
	Diagram  string `json:"diagram,omitempty"`
	Detailed bool   `json:"detailed,omitempty"`

	// Preview options.
	Render    bool          `json:"render,omitempty"`
	Width     int           `json:"width,omitempty"`
	Height    int           `json:"height,omitempty"`
	LineScale float64       `json:"line_scale,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`

	// Runtime options (not serialized)
	Logger   *log.Logger      `json:"-"`
	Engine   engine.Engine    `json:"-"`
	Registry *schema.Registry `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// DocHash is the content hash of the loaded document.
	DocHash string

	// Export is the generated result. It is nil when the records came
	// from the cache; ExportJSON is always set.
	Export     *export.Result
	ExportJSON []byte
	Summary    export.Summary

	// Diagrams maps graph names to rendered diagrams.
	Diagrams map[string][]byte

	// Preview is the renderer output, set when Options.Render is.
	Preview []byte
	Status  engine.Status

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Graphs      int
	LoadTime    time.Duration
	ExportTime  time.Duration
	DiagramTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ExportHit  bool // Whether the records came from cache
	DiagramHit bool // Whether all diagrams came from cache
	PreviewHit bool // Whether the preview came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateDiagramFormat checks that a diagram format is valid.
func ValidateDiagramFormat(format string) error {
	if !slices.Contains(dot.Formats, format) {
		return pgerrors.New(pgerrors.ErrCodeInvalidFormat,
			"invalid diagram format: %q (must be one of: %s)", format, strings.Join(dot.Formats, ", "))
	}
	return nil
}

// ValidateSize checks a preview dimension.
func ValidateSize(name string, v int) error {
	if v < 1 || v > MaxSize {
		return pgerrors.New(pgerrors.ErrCodeInvalidInput, "%s must be between 1 and %d, got %d", name, MaxSize, v)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if o.Diagram != "" {
		if err := ValidateDiagramFormat(o.Diagram); err != nil {
			return err
		}
	}
	if o.Render {
		if err := o.ValidateForRender(); err != nil {
			return err
		}
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the document source.
func (o *Options) ValidateForLoad() error {
	if len(o.Document) == 0 && o.Path == "" {
		return pgerrors.New(pgerrors.ErrCodeInvalidInput, "path or document is required")
	}
	if len(o.Document) > 0 {
		if o.Format == "" {
			o.Format = string(pgio.FormatJSON)
		}
		if _, err := pgio.ParseFormat(o.Format); err != nil {
			return err
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetRenderDefaults sets default values for previews.
func (o *Options) SetRenderDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.LineScale == 0 {
		o.LineScale = DefaultLineScale
	}
}

// ValidateForRender validates and sets defaults for previews.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if o.Engine == nil {
		return pgerrors.New(pgerrors.ErrCodeEngineUnavailable, "no renderer configured")
	}
	if err := ValidateSize("width", o.Width); err != nil {
		return err
	}
	if err := ValidateSize("height", o.Height); err != nil {
		return err
	}
	if o.LineScale < 0 {
		return pgerrors.New(pgerrors.ErrCodeInvalidInput, "line_scale must not be negative")
	}
	return nil
}

// ExportKeyOpts returns cache key options for the export stage.
func (o *Options) ExportKeyOpts() cache.ExportKeyOpts {
	return cache.ExportKeyOpts{Graphs: o.Graphs, Layer: o.Layer}
}

// DiagramKeyOpts returns cache key options for one graph's diagram.
func (o *Options) DiagramKeyOpts(graph string) cache.DiagramKeyOpts {
	return cache.DiagramKeyOpts{Graph: graph, Format: o.Diagram, Layer: o.Layer, Detailed: o.Detailed}
}

// PreviewKeyOpts returns cache key options for the preview stage.
func (o *Options) PreviewKeyOpts() cache.PreviewKeyOpts {
	var m engine.Marker
	if o.Engine != nil {
		m = o.Engine.Version()
	}
	return cache.PreviewKeyOpts{
		Width:         o.Width,
		Height:        o.Height,
		LineScale:     o.LineScale,
		EngineVersion: m.Version,
		EngineCommit:  m.Commit,
	}
}

func (o *Options) source() string {
	if len(o.Document) > 0 {
		return fmt.Sprintf("<%s document>", o.Format)
	}
	return o.Path
}
