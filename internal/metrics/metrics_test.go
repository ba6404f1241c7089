package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observer(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.OnStep(0, 4, 10*time.Millisecond)
	m.OnStep(1, 4, 12*time.Millisecond)
	m.OnSequence(4, 8, 30*time.Millisecond)

	assert.Equal(t, 8.0, testutil.ToFloat64(m.TokensTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SequencesTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StepDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RequestsTotal.WithLabelValues("ok").Inc()
	m.ModelInfo.WithLabelValues("124M", "12", "768").Set(1)
	m.OnSequence(1, 5, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `gpt2_requests_total{status="ok"} 1`)
	assert.Contains(t, body, "gpt2_tokens_generated_total 5")
	assert.Contains(t, body, `gpt2_model_info{model="124M",n_embd="768",n_layer="12"} 1`)
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())
	a.OnSequence(1, 3, time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.TokensTotal))
}
