package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/bearerAuth"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot bearerAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() bearerAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

func newFakeSource() fakeSource {
	return fakeSource{
		snapshot: bearerAuth.MetricsSnapshot{
			Counters: map[bearerAuth.MetricID]uint64{
				bearerAuth.MetricRefreshSuccess:    7,
				bearerAuth.MetricRefreshSuperseded: 3,
			},
			Histograms: map[bearerAuth.MetricID][]uint64{
				bearerAuth.MetricValidateLatency: {1, 2, 0, 0, 0, 0, 0, 1},
			},
		},
		dropped: 2,
	}
}

func TestCollectorCounters(t *testing.T) {
	exp := NewPrometheusExporterFromSource(newFakeSource())

	expected := `
# HELP bearerauth_refresh_success_total Completed refresh rotations.
# TYPE bearerauth_refresh_success_total counter
bearerauth_refresh_success_total 7
# HELP bearerauth_refresh_superseded_total Presentations of an already rotated refresh token.
# TYPE bearerauth_refresh_superseded_total counter
bearerauth_refresh_superseded_total 3
# HELP bearerauth_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE bearerauth_audit_dropped_total counter
bearerauth_audit_dropped_total 2
`
	err := testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"bearerauth_refresh_success_total",
		"bearerauth_refresh_superseded_total",
		"bearerauth_audit_dropped_total",
	)
	require.NoError(t, err)
}

func TestCollectorHistogramIsCumulative(t *testing.T) {
	exp := NewPrometheusExporterFromSource(newFakeSource())

	expected := `
# HELP bearerauth_validate_latency_seconds Validate latency histogram.
# TYPE bearerauth_validate_latency_seconds histogram
bearerauth_validate_latency_seconds_bucket{le="0.005"} 1
bearerauth_validate_latency_seconds_bucket{le="0.01"} 3
bearerauth_validate_latency_seconds_bucket{le="0.025"} 3
bearerauth_validate_latency_seconds_bucket{le="0.05"} 3
bearerauth_validate_latency_seconds_bucket{le="0.1"} 3
bearerauth_validate_latency_seconds_bucket{le="0.25"} 3
bearerauth_validate_latency_seconds_bucket{le="0.5"} 3
bearerauth_validate_latency_seconds_bucket{le="+Inf"} 4
bearerauth_validate_latency_seconds_sum 0
bearerauth_validate_latency_seconds_count 4
`
	err := testutil.CollectAndCompare(exp, strings.NewReader(expected), "bearerauth_validate_latency_seconds")
	require.NoError(t, err)
}

func TestCollectorLint(t *testing.T) {
	exp := NewPrometheusExporterFromSource(newFakeSource())

	problems, err := testutil.CollectAndLint(exp)
	require.NoError(t, err)
	assert.Empty(t, problems)

	reg := prom.NewPedanticRegistry()
	require.NoError(t, reg.Register(exp))
}

func TestHandlerServesTextFormat(t *testing.T) {
	exp := NewPrometheusExporterFromSource(newFakeSource())

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "bearerauth_refresh_success_total 7")
	assert.Contains(t, body, "bearerauth_issue_success_total 0")
}

func TestExporterOverEngine(t *testing.T) {
	cfg := bearerAuth.DefaultConfig()
	cfg.JWT.SecretBase64 = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
	engine, err := bearerAuth.New().WithConfig(cfg).Build()
	require.NoError(t, err)
	defer engine.Close()

	_ = engine.Validate("")
	_ = engine.Validate("Bearer nope")

	expected := `
# HELP bearerauth_validate_empty_total Validation calls without a token.
# TYPE bearerauth_validate_empty_total counter
bearerauth_validate_empty_total 1
# HELP bearerauth_validate_malformed_total Corrupt or forged tokens.
# TYPE bearerauth_validate_malformed_total counter
bearerauth_validate_malformed_total 1
`
	err = testutil.CollectAndCompare(NewPrometheusExporter(engine), strings.NewReader(expected),
		"bearerauth_validate_empty_total",
		"bearerauth_validate_malformed_total",
	)
	require.NoError(t, err)
}
