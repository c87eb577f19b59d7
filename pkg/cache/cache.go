// Package cache stores derived artifacts keyed by content hash.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for shared deployments of the HTTP server, and [NullCache] when caching is
// disabled. Keys are built by a [Keyer] so callers never format them by hand.
//
// Cached values are always derived data (export records, preview images,
// diagrams). Losing the cache never loses work, so backends treat corrupt or
// expired entries as misses.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Entry lifetimes.
const (
	TTLExport  = 7 * 24 * time.Hour
	TTLPreview = 24 * time.Hour
	TTLDiagram = 7 * 24 * time.Hour
)

// ExportKeyOpts are the inputs that change an export result.
type ExportKeyOpts struct {
	Graphs []string `json:"graphs,omitempty"`
	Layer  string   `json:"layer,omitempty"`
}

// PreviewKeyOpts are the inputs that change a rendered preview.
type PreviewKeyOpts struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	LineScale     float64 `json:"line_scale"`
	EngineVersion string  `json:"engine_version,omitempty"`
	EngineCommit  string  `json:"engine_commit,omitempty"`
}

// DiagramKeyOpts are the inputs that change a graph diagram.
type DiagramKeyOpts struct {
	Graph    string `json:"graph"`
	Format   string `json:"format"`
	Layer    string `json:"layer,omitempty"`
	Detailed bool   `json:"detailed,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// ExportKey keys the export records of a document.
	ExportKey(docHash string, opts ExportKeyOpts) string
	// PreviewKey keys an engine preview of an export result.
	PreviewKey(exportHash string, opts PreviewKeyOpts) string
	// DiagramKey keys a rendered diagram of one graph.
	DiagramKey(docHash string, opts DiagramKeyOpts) string
}

// DefaultKeyer hashes every key input into a prefixed SHA-256 key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) ExportKey(docHash string, opts ExportKeyOpts) string {
	return hashKey("export", docHash, opts)
}

func (DefaultKeyer) PreviewKey(exportHash string, opts PreviewKeyOpts) string {
	return hashKey("preview", exportHash, opts)
}

func (DefaultKeyer) DiagramKey(docHash string, opts DiagramKeyOpts) string {
	return hashKey("diagram", docHash, opts)
}

var _ Keyer = DefaultKeyer{}
