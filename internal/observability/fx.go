package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/cbam/internal/observability/logger"
	"github.com/smallbiznis/cbam/internal/observability/metrics"
	"github.com/smallbiznis/cbam/internal/observability/remotewrite"
	"github.com/smallbiznis/cbam/internal/observability/tracing"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		provideRegisterer,
		provideGatherer,
		metrics.New,
		provideRemoteWriteConfig,
	),
	fx.Invoke(ensureProviders),
	fx.Invoke(remotewrite.Register),
)

func ensureProviders(_ *sdktrace.TracerProvider, _ metric.MeterProvider) {}

func provideRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

func provideGatherer() prometheus.Gatherer {
	return prometheus.DefaultGatherer
}

func provideRemoteWriteConfig(cfg Config) remotewrite.Config {
	return remotewrite.Config{
		Exporter:  cfg.MetricsExporter,
		Endpoint:  cfg.MetricsEndpoint,
		AuthToken: cfg.MetricsAuthToken,
		Job:       cfg.ServiceName,
		Interval:  cfg.MetricsPushInterval,
	}
}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		Debug:               cfg.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
	}
}
