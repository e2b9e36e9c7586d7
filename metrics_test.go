package appidmiddleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	// Test that NoopMetrics methods don't panic
	metrics := &NoopMetrics{}

	metrics.IncCounter("test_counter", map[string]string{"tag": "value"})
	metrics.ObserveHistogram("test_histogram", 1.5, map[string]string{"tag": "value"})
	metrics.SetGauge("test_gauge", 2.5, map[string]string{"tag": "value"})
}

func TestPrometheusMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	t.Run("IncCounter", func(t *testing.T) {
		tags := map[string]string{"result": "success"}

		metrics.IncCounter("appid_jwks_fetch_total", tags)
		metrics.IncCounter("appid_jwks_fetch_total", tags)

		counter, ok := metrics.counters["appid_jwks_fetch_total"]
		require.True(t, ok, "Counter should be registered")

		metric := &dto.Metric{}
		require.NoError(t, counter.With(prometheus.Labels(tags)).(prometheus.Metric).Write(metric))
		assert.Equal(t, float64(2), *metric.Counter.Value, "Counter should be incremented to 2")
	})

	t.Run("ObserveHistogram", func(t *testing.T) {
		tags := map[string]string{"outcome": "success"}

		metrics.ObserveHistogram("appid_api_authentication_duration_seconds", 0.25, tags)

		hist, ok := metrics.histograms["appid_api_authentication_duration_seconds"]
		require.True(t, ok, "Histogram should be registered")

		metric := &dto.Metric{}
		require.NoError(t, hist.With(prometheus.Labels(tags)).(prometheus.Metric).Write(metric))
		assert.Equal(t, uint64(1), metric.Histogram.GetSampleCount())
	})

	t.Run("SetGauge without tags", func(t *testing.T) {
		metrics.SetGauge("appid_jwks_keys", 3, nil)

		gauge, ok := metrics.gauges["appid_jwks_keys"]
		require.True(t, ok, "Gauge should be registered")

		metric := &dto.Metric{}
		require.NoError(t, gauge.With(nil).(prometheus.Metric).Write(metric))
		assert.Equal(t, float64(3), *metric.Gauge.Value)
	})

	t.Run("collectors are registered on the given registry", func(t *testing.T) {
		families, err := registry.Gather()
		require.NoError(t, err)

		names := make([]string, 0, len(families))
		for _, family := range families {
			names = append(names, family.GetName())
		}
		assert.ElementsMatch(t, []string{
			"appid_jwks_fetch_total",
			"appid_api_authentication_duration_seconds",
			"appid_jwks_keys",
		}, names)
	})
}

func TestKeys(t *testing.T) {
	result := keys(map[string]string{"outcome": "x", "result": "y", "method": "z"})
	assert.Equal(t, []string{"method", "outcome", "result"}, result)
	assert.Empty(t, keys(nil))
}
