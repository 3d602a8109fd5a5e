package observability

import (
	"strings"

	"github.com/digiunlocks/soccer-club-sub006/internal/config"
	"github.com/digiunlocks/soccer-club-sub006/internal/observability/logger"
	"github.com/digiunlocks/soccer-club-sub006/internal/observability/metrics"
	"github.com/digiunlocks/soccer-club-sub006/internal/observability/tracing"
)

const defaultServiceName = "clubledger"

// Config is the observability view of the process config. Every value comes
// from config.Load so the environment is parsed in one place.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	ExportEnabled  bool
	ExportEndpoint string
	ExportProtocol string
	SamplingRatio  float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	protocol := strings.ToLower(strings.TrimSpace(cfg.OTLPProtocol))
	if protocol != "http" {
		protocol = "grpc"
	}
	return Config{
		ServiceName:    serviceName,
		Environment:    strings.TrimSpace(cfg.Environment),
		Version:        strings.TrimSpace(cfg.AppVersion),
		LogLevel:       strings.ToLower(strings.TrimSpace(cfg.LogLevel)),
		LogFormat:      strings.ToLower(strings.TrimSpace(cfg.LogFormat)),
		ExportEnabled:  cfg.OTLPEnabled,
		ExportEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		ExportProtocol: protocol,
		SamplingRatio:  cfg.OTLPSamplingRatio,
	}
}

// Debug is on for debug logging and for non-production club environments.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName:  c.ServiceName,
		Environment:  c.Environment,
		Version:      c.Version,
		Level:        c.LogLevel,
		Format:       c.LogFormat,
		Caller:       true,
		StackOnError: c.Debug(),
	}
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.ExportEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.ExportEndpoint,
		ExporterProtocol: c.ExportProtocol,
		SamplingRatio:    c.SamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.ExportEnabled,
		ExporterEndpoint: c.ExportEndpoint,
		ExporterProtocol: c.ExportProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
