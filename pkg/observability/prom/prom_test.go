package prom

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pencilgraph/pkg/observability"
)

func TestPipelineMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnLoadComplete(ctx, "scene.json", 12, 10*time.Millisecond, nil)
	m.OnLoadComplete(ctx, "bad.json", 0, time.Millisecond, errors.New("boom"))
	m.OnExportComplete(ctx, 1, 7, time.Millisecond, nil)
	m.OnMismatch(ctx, "LineSet", "objects")
	m.OnMismatch(ctx, "LineSet", "objects")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MismatchesTotal.WithLabelValues("LineSet", "objects")))
}

func TestEngineMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnDrawStart(ctx, true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DrawsInFlight))
	m.OnDrawComplete(ctx, "timeout", 2*time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DrawsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DrawsTotal.WithLabelValues("timeout")))
}

func TestCacheMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnCacheHit(ctx, "export")
	m.OnCacheMiss(ctx, "export")
	m.OnCacheMiss(ctx, "export")
	m.OnCacheSet(ctx, "preview", 1024)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("export", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("export", "miss")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.CacheWrittenBytes.WithLabelValues("preview")))
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()
	m.OnRequest(ctx, "GET", "/graphs")
	m.OnResponse(ctx, "GET", "/graphs", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `pencilgraph_http_requests_total{method="GET",route="/graphs",status="200"} 1`), body)
}

func TestRegister(t *testing.T) {
	defer observability.Reset()
	m := New(prometheus.NewRegistry())
	m.Register()
	assert.Same(t, m, observability.Pipeline())
	assert.Same(t, m, observability.Cache())
}
