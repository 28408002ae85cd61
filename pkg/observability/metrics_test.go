package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()
	m.ObserveCompile(true, 3*time.Millisecond)
	m.ObserveCompile(false, time.Millisecond)
	m.ObserveRun(true)
	m.ObserveNode("model_call", 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.compiles.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compiles.WithLabelValues(ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nodeExecutions.WithLabelValues("model_call")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "lattice_compile_total")
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCompile(true, time.Second)
		m.ObserveRun(false)
		m.ObserveNode("merge", time.Second)
	})
}

func TestHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := NewMetrics()
	hooks := Hooks(logger, m)

	ctx := context.Background()
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{RunID: "r1", NodeID: "a", NodeType: domain.NodeTypeMerge, Attempt: 1})
	hooks.OnNodeLeave(ctx, &domain.NodeEvent{RunID: "r1", NodeID: "a", NodeType: domain.NodeTypeMerge, Err: errors.New("boom")})

	assert.Contains(t, buf.String(), "node_enter")
	assert.Contains(t, buf.String(), "boom")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nodeExecutions.WithLabelValues("merge")))
}
