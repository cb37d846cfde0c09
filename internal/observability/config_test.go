package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/cbam/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "")
	t.Setenv("METRICS_PUSH_INTERVAL", "")

	cfg := LoadConfig(config.Config{AppName: "cbam", Environment: "development", AppVersion: "1.2.3"})

	assert.Equal(t, "cbam", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "grpc", cfg.OtelExporterProtocol)
	assert.False(t, cfg.OtelEnabled)
	assert.InDelta(t, 0.1, cfg.OtelSamplingRatio, 1e-9)
	assert.Equal(t, 15*time.Second, cfg.MetricsPushInterval)
	assert.True(t, cfg.Debug())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("OTEL_ENABLED", "yes")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "http")
	t.Setenv("OTEL_SAMPLING_RATIO", "not-a-number")
	t.Setenv("METRICS_EXPORTER", "Prometheus_Remote_Write")
	t.Setenv("METRICS_PUSH_INTERVAL", "1m")

	cfg := LoadConfig(config.Config{Environment: "production"})

	assert.Equal(t, "cbam", cfg.ServiceName)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.InDelta(t, 0.1, cfg.OtelSamplingRatio, 1e-9)
	assert.Equal(t, "prometheus_remote_write", cfg.MetricsExporter)
	assert.Equal(t, time.Minute, cfg.MetricsPushInterval)
	assert.False(t, cfg.Debug())
}
