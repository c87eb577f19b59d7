// Package engine is the boundary to the external line renderer.
//
// The renderer takes an exported record list and answers with a [Status].
// It is never trusted blindly: [Verify] compares its version marker with
// the one this build expects, and a mismatch makes it unavailable.
//
// [Process] runs the renderer as a separate program. [Viewport] drives
// interactive previews with a short timeout and falls back to a longer one
// once the interaction has settled.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
	"github.com/matzehuels/pencilgraph/pkg/export"
	"github.com/matzehuels/pencilgraph/pkg/observability"
)

// Status is the outcome of a draw.
type Status int

const (
	StatusSuccess Status = iota
	StatusSuccessWithoutLicense
	StatusTimeout
	StatusError
)

var statusNames = [...]string{"success", "success_without_license", "timeout", "error"}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// OK reports whether the output can be used.
func (s Status) OK() bool {
	return s == StatusSuccess || s == StatusSuccessWithoutLicense
}

// Err returns nil for usable results and a [pgerrors.StatusError] otherwise.
func (s Status) Err() error {
	if s.OK() {
		return nil
	}
	return &pgerrors.StatusError{Status: s.String()}
}

// Marker identifies a renderer build.
type Marker struct {
	Version string `json:"version" toml:"version"`
	Commit  string `json:"commit" toml:"commit"`
}

func (m Marker) String() string {
	if m.Commit == "" {
		return m.Version
	}
	return m.Version + " (" + m.Commit + ")"
}

// Request is what a draw sends to the renderer.
type Request struct {
	Export *export.Result `json:"export"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
	// LineScale scales line sizes, e.g. when previewing through a camera.
	LineScale float64 `json:"line_scale"`
	// Viewport marks interactive previews.
	Viewport bool `json:"viewport"`

	// Output receives the rendered image. Nil leaves it to the engine.
	Output io.Writer `json:"-"`
}

// Engine renders exported records.
type Engine interface {
	Version() Marker
	Draw(ctx context.Context, req Request) Status
}

// ErrVersionMismatch is wrapped by Verify when the markers differ.
var ErrVersionMismatch = errors.New("renderer version mismatch")

// Verify checks that e reports the wanted marker. Empty fields of want
// match anything.
func Verify(e Engine, want Marker) error {
	if e == nil {
		return pgerrors.New(pgerrors.ErrCodeEngineUnavailable, "no renderer configured")
	}
	got := e.Version()
	if (want.Version != "" && got.Version != want.Version) || (want.Commit != "" && got.Commit != want.Commit) {
		return pgerrors.Wrap(pgerrors.ErrCodeEngineUnavailable,
			fmt.Errorf("%w: have %s, want %s", ErrVersionMismatch, got, want),
			"renderer %s is not the expected build", got)
	}
	return nil
}

// Func adapts a function to Engine. It reports an empty marker.
type Func func(ctx context.Context, req Request) Status

// Version returns the zero marker.
func (Func) Version() Marker { return Marker{} }

// Draw calls f.
func (f Func) Draw(ctx context.Context, req Request) Status { return f(ctx, req) }

// Render draws with a timeout. A draw that outlives it reports
// StatusTimeout even if the engine answered otherwise. Zero means no
// timeout.
func Render(ctx context.Context, e Engine, req Request, timeout time.Duration) Status {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	observability.Engine().OnDrawStart(ctx, req.Viewport)
	start := time.Now()
	st := e.Draw(ctx, req)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		st = StatusTimeout
	}
	observability.Engine().OnDrawComplete(ctx, st.String(), time.Since(start))
	return st
}
