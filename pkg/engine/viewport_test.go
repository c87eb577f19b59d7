package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted answers with queued statuses and records the timeout each draw
// was given.
type scripted struct {
	mu       sync.Mutex
	statuses []Status
	budgets  []time.Duration
}

func (s *scripted) Version() Marker { return Marker{} }

func (s *scripted) Draw(ctx context.Context, req Request) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		s.budgets = append(s.budgets, time.Until(dl))
	}
	st := s.statuses[0]
	s.statuses = s.statuses[1:]
	return st
}

func newTestViewport(e Engine) *Viewport {
	v := NewViewport(e, time.Second)
	v.RetryInterval = 10 * time.Millisecond
	return v
}

func TestViewportLongThenShortTimeout(t *testing.T) {
	e := &scripted{statuses: []Status{StatusSuccess, StatusSuccess}}
	v := newTestViewport(e)
	ctx := context.Background()

	st, drawn := v.Draw(ctx, Request{})
	require.True(t, drawn)
	assert.Equal(t, StatusSuccess, st)
	assert.Equal(t, ModeNormal, v.Mode())

	_, drawn = v.Draw(ctx, Request{})
	require.True(t, drawn)

	require.Len(t, e.budgets, 2)
	assert.Greater(t, e.budgets[0], DefaultShortTimeout)
	assert.LessOrEqual(t, e.budgets[1], DefaultShortTimeout)
}

func TestViewportTimeoutWaitsThenRetries(t *testing.T) {
	e := &scripted{statuses: []Status{StatusSuccess, StatusTimeout, StatusSuccess}}
	v := newTestViewport(e)
	v.RetryInterval = 50 * time.Millisecond
	retried := make(chan struct{}, 1)
	v.OnRetry = func() { retried <- struct{}{} }
	ctx := context.Background()

	v.Draw(ctx, Request{})
	st, _ := v.Draw(ctx, Request{})
	assert.Equal(t, StatusTimeout, st)
	assert.Equal(t, ModeWait, v.Mode())

	// Waiting viewports skip the engine.
	_, drawn := v.Draw(ctx, Request{})
	assert.False(t, drawn)

	select {
	case <-retried:
	case <-time.After(time.Second):
		t.Fatal("retry did not fire")
	}
	assert.Equal(t, ModeInitialize, v.Mode())

	_, drawn = v.Draw(ctx, Request{})
	require.True(t, drawn)
	assert.Equal(t, ModeNormal, v.Mode())
	assert.Greater(t, e.budgets[2], DefaultShortTimeout)
}

func TestViewportLongTimeoutStops(t *testing.T) {
	e := &scripted{statuses: []Status{StatusTimeout}}
	v := newTestViewport(e)

	v.Draw(context.Background(), Request{})
	assert.Equal(t, ModeTimeout, v.Mode())

	_, drawn := v.Draw(context.Background(), Request{})
	assert.False(t, drawn)

	v.Reset()
	assert.Equal(t, ModeInitialize, v.Mode())
}

func TestViewportError(t *testing.T) {
	e := &scripted{statuses: []Status{StatusError}}
	v := newTestViewport(e)
	v.Draw(context.Background(), Request{})
	assert.Equal(t, ModeError, v.Mode())
}

func TestViewportWaitsWhileRendering(t *testing.T) {
	e := &scripted{}
	v := newTestViewport(e)
	v.SetRendering(true)

	_, drawn := v.Draw(context.Background(), Request{})
	assert.False(t, drawn)
	assert.Equal(t, ModeWait, v.Mode())
	assert.Empty(t, e.budgets)
	v.Reset()
}

func TestViewportMarksRequests(t *testing.T) {
	var got Request
	v := newTestViewport(Func(func(_ context.Context, req Request) Status {
		got = req
		return StatusSuccess
	}))
	v.Draw(context.Background(), Request{Width: 640})
	assert.True(t, got.Viewport)
	assert.Equal(t, 640, got.Width)
}
