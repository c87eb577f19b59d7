package engine

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Mode is the state of a viewport preview. Negative modes stop drawing
// until the viewport is reset.
type Mode int

const (
	ModeInitialize Mode = 0
	ModeNormal     Mode = 1
	ModeWait       Mode = 2
	ModeError      Mode = -1
	ModeTimeout    Mode = -2
)

func (m Mode) String() string {
	switch m {
	case ModeInitialize:
		return "initialize"
	case ModeNormal:
		return "normal"
	case ModeWait:
		return "wait"
	case ModeError:
		return "error"
	case ModeTimeout:
		return "timeout"
	}
	return "unknown"
}

// Viewport timeouts.
const (
	DefaultShortTimeout  = 100 * time.Millisecond
	DefaultLongTimeout   = 2 * time.Second
	DefaultRetryInterval = 500 * time.Millisecond
)

// Viewport draws interactive previews.
//
// Draws in [ModeNormal] use the short timeout so that editing stays
// responsive. When one times out the viewport waits; once RetryInterval
// passes without another draw it re-initializes and the next draw gets the
// long timeout. A long draw that still times out stops the preview in
// [ModeTimeout].
//
// The zero value is not usable - use [NewViewport].
type Viewport struct {
	Engine        Engine
	ShortTimeout  time.Duration
	LongTimeout   time.Duration
	RetryInterval time.Duration

	// OnRetry is called when a waiting viewport is ready to try again,
	// typically to request a redraw.
	OnRetry func()
	Logger  *log.Logger

	mu        sync.Mutex
	mode      Mode
	rendering bool
	timer     *time.Timer
}

// NewViewport creates a viewport using the default timeouts. A zero long
// timeout keeps [DefaultLongTimeout].
func NewViewport(e Engine, longTimeout time.Duration) *Viewport {
	if longTimeout <= 0 {
		longTimeout = DefaultLongTimeout
	}
	return &Viewport{
		Engine:        e,
		ShortTimeout:  DefaultShortTimeout,
		LongTimeout:   longTimeout,
		RetryInterval: DefaultRetryInterval,
		Logger:        log.NewWithOptions(io.Discard, log.Options{}),
	}
}

// Mode returns the current mode.
func (v *Viewport) Mode() Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// SetRendering marks whether a final render is running. While it is, draws
// only put the viewport into waiting.
func (v *Viewport) SetRendering(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rendering = on
}

// Reset stops any pending retry and returns to [ModeInitialize].
func (v *Viewport) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopTimer()
	v.mode = ModeInitialize
}

// Draw draws one preview frame. It reports the engine status and whether
// the engine was called at all; stopped or waiting viewports skip the
// call.
func (v *Viewport) Draw(ctx context.Context, req Request) (Status, bool) {
	v.mu.Lock()
	mode := v.mode
	if mode < 0 || mode == ModeWait {
		v.mu.Unlock()
		return StatusError, false
	}
	if v.rendering {
		v.waitLocked()
		v.mu.Unlock()
		return StatusError, false
	}
	v.mu.Unlock()

	timeout := v.ShortTimeout
	if mode == ModeInitialize {
		timeout = v.LongTimeout
	}
	req.Viewport = true
	st := Render(ctx, v.Engine, req, timeout)

	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case st.OK():
		v.mode = ModeNormal
	case st == StatusTimeout && mode == ModeInitialize:
		v.mode = ModeTimeout
		v.Logger.Warn("viewport preview stopped", "timeout", timeout)
	case st == StatusTimeout:
		v.waitLocked()
		v.Logger.Debug("viewport preview waiting", "retry", v.RetryInterval)
	default:
		v.mode = ModeError
		v.Logger.Warn("viewport preview failed", "status", st)
	}
	return st, true
}

func (v *Viewport) waitLocked() {
	v.mode = ModeWait
	v.stopTimer()
	v.timer = time.AfterFunc(v.RetryInterval, v.retry)
}

func (v *Viewport) retry() {
	v.mu.Lock()
	ready := v.mode == ModeWait
	if ready {
		v.mode = ModeInitialize
	}
	v.timer = nil
	onRetry := v.OnRetry
	v.mu.Unlock()
	if ready && onRetry != nil {
		onRetry()
	}
}

func (v *Viewport) stopTimer() {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}
