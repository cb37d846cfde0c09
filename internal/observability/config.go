package observability

import (
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/cbam/internal/config"
	"github.com/spf13/viper"
)

// Config holds observability configuration derived from environment variables.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	MetricsExporter     string
	MetricsEndpoint     string
	MetricsAuthToken    string
	MetricsPushInterval time.Duration
}

// LoadConfig reads the LOG_*, OTEL_* and METRICS_* variables. Unparseable
// values fall back to their defaults.
func LoadConfig(cfg config.Config) Config {
	env := newEnvReader()

	out := Config{
		ServiceName: strings.TrimSpace(cfg.AppName),
		Environment: strings.TrimSpace(cfg.Environment),
		Version:     strings.TrimSpace(cfg.AppVersion),
		LogLevel:    strings.ToLower(env.str("LOG_LEVEL", "info")),
		LogFormat:   strings.ToLower(env.str("LOG_FORMAT", "json")),
	}
	if out.ServiceName == "" {
		out.ServiceName = "cbam"
	}

	// exporting needs a collector, so tracing is off outside production unless asked for
	out.OtelEnabled = env.flag("OTEL_ENABLED", cfg.IsProduction())
	out.OtelExporterEndpoint = env.str("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	out.OtelExporterProtocol = strings.ToLower(env.str("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL",
		env.str("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")))
	out.OtelSamplingRatio = env.float("OTEL_SAMPLING_RATIO", 0.1)

	out.MetricsExporter = strings.ToLower(env.str("METRICS_EXPORTER", ""))
	out.MetricsEndpoint = env.str("METRICS_ENDPOINT", "")
	out.MetricsAuthToken = env.str("METRICS_AUTH_TOKEN", "")
	out.MetricsPushInterval = env.duration("METRICS_PUSH_INTERVAL", 15*time.Second)
	return out
}

func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

type envReader struct {
	v *viper.Viper
}

func newEnvReader() envReader {
	v := viper.New()
	v.AutomaticEnv()
	return envReader{v: v}
}

func (e envReader) str(key, def string) string {
	if value := strings.TrimSpace(e.v.GetString(key)); value != "" {
		return value
	}
	return def
}

func (e envReader) flag(key string, def bool) bool {
	switch strings.ToLower(e.str(key, "")) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func (e envReader) float(key string, def float64) float64 {
	parsed, err := strconv.ParseFloat(e.str(key, ""), 64)
	if err != nil {
		return def
	}
	return parsed
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	parsed, err := time.ParseDuration(e.str(key, ""))
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
