package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgerrors "github.com/matzehuels/pencilgraph/pkg/errors"
)

type fixed struct{ m Marker }

func (f fixed) Version() Marker                    { return f.m }
func (fixed) Draw(context.Context, Request) Status { return StatusSuccess }

func TestStatus(t *testing.T) {
	assert.True(t, StatusSuccess.OK())
	assert.True(t, StatusSuccessWithoutLicense.OK())
	assert.False(t, StatusTimeout.OK())
	assert.NoError(t, StatusSuccessWithoutLicense.Err())

	err := StatusTimeout.Err()
	require.Error(t, err)
	assert.Equal(t, "render failed: timeout", err.Error())
	var se *pgerrors.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, pgerrors.ErrCodeTimeout, se.Code())
	assert.Equal(t, pgerrors.ErrCodeEngineFailed, StatusError.Err().(*pgerrors.StatusError).Code())
}

func TestVerify(t *testing.T) {
	e := fixed{Marker{Version: "4.1.3", Commit: "abc123"}}

	assert.NoError(t, Verify(e, Marker{Version: "4.1.3", Commit: "abc123"}))
	assert.NoError(t, Verify(e, Marker{Version: "4.1.3"}))
	assert.NoError(t, Verify(e, Marker{}))

	err := Verify(e, Marker{Version: "4.1.3", Commit: "def456"})
	require.Error(t, err)
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeEngineUnavailable))
	assert.ErrorIs(t, err, ErrVersionMismatch)

	err = Verify(nil, Marker{})
	assert.True(t, pgerrors.Is(err, pgerrors.ErrCodeEngineUnavailable))
}

func TestRenderTimeout(t *testing.T) {
	slow := Func(func(ctx context.Context, _ Request) Status {
		<-ctx.Done()
		return StatusSuccess
	})
	assert.Equal(t, StatusTimeout, Render(context.Background(), slow, Request{}, 10*time.Millisecond))

	fast := Func(func(context.Context, Request) Status { return StatusSuccessWithoutLicense })
	assert.Equal(t, StatusSuccessWithoutLicense, Render(context.Background(), fast, Request{}, time.Second))
}

func TestParseMarker(t *testing.T) {
	assert.Equal(t, Marker{Version: "4.1.3", Commit: "abc123"}, parseMarker([]byte("4.1.3 (abc123)\nextra\n")))
	assert.Equal(t, Marker{Version: "4.1.3"}, parseMarker([]byte("4.1.3")))
	assert.Equal(t, Marker{}, parseMarker(nil))
}

func TestProcessMarkerOverride(t *testing.T) {
	p := &Process{Path: "/nonexistent", Marker: &Marker{Version: "1"}}
	assert.Equal(t, Marker{Version: "1"}, p.Version())
}

func TestProcessMissingProgram(t *testing.T) {
	p := &Process{Path: "/nonexistent/pencil-render"}
	assert.Equal(t, StatusError, p.Draw(context.Background(), Request{}))
}
