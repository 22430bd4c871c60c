// Package config loads netviz settings from an optional YAML file and
// NETVIZ_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/dimalipin/netviz/internal/logging"
	"github.com/dimalipin/netviz/internal/observability"
	"github.com/dimalipin/netviz/internal/sim/state"
	"github.com/dimalipin/netviz/model"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "NETVIZ"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full runtime configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	AddSource  bool   `mapstructure:"add_source"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ServerConfig controls the HTTP, gRPC and metrics listeners.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	DistPath        string        `mapstructure:"dist_path"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	MaxConnections  int           `mapstructure:"max_connections"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SimulationConfig controls the packet animation.
type SimulationConfig struct {
	TopologyFile      string        `mapstructure:"topology_file"`
	Speed             float64       `mapstructure:"speed"`
	GatewayPauseTicks int           `mapstructure:"gateway_pause_ticks"`
	InitialTTL        int           `mapstructure:"initial_ttl"`
	FrameInterval     time.Duration `mapstructure:"frame_interval"`
	Seed              int64         `mapstructure:"seed"`
	TimelineRuns      int           `mapstructure:"timeline_runs"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.add_source", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", false)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.dist_path", "../frontend/dist")
	v.SetDefault("server.grpc_addr", ":50051")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.max_connections", 256)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("simulation.topology_file", "")
	v.SetDefault("simulation.speed", state.DefaultSpeed)
	v.SetDefault("simulation.gateway_pause_ticks", state.DefaultGatewayPauseTicks)
	v.SetDefault("simulation.initial_ttl", model.DefaultTTL)
	v.SetDefault("simulation.frame_interval", time.Second/60)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.timeline_runs", state.DefaultTimelineRuns)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "netviz")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return cfg
}

// Load reads path (when non-empty), applies environment overrides and
// validates the result. PORT and DIST_PATH are honoured alongside their
// NETVIZ_SERVER_* names.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("server.dist_path", EnvPrefix+"_SERVER_DIST_PATH", "DIST_PATH"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Server.Port == "" {
		add("server.port must be set")
	}
	if c.Server.MaxConnections < 0 {
		add("server.max_connections must not be negative, got %d", c.Server.MaxConnections)
	}
	if c.Simulation.Speed <= 0 || c.Simulation.Speed > 1 {
		add("simulation.speed must be in (0, 1], got %v", c.Simulation.Speed)
	}
	if c.Simulation.GatewayPauseTicks < 0 {
		add("simulation.gateway_pause_ticks must not be negative, got %d", c.Simulation.GatewayPauseTicks)
	}
	if c.Simulation.InitialTTL < 1 || c.Simulation.InitialTTL > 255 {
		add("simulation.initial_ttl must be in [1, 255], got %d", c.Simulation.InitialTTL)
	}
	if c.Simulation.FrameInterval <= 0 {
		add("simulation.frame_interval must be positive, got %s", c.Simulation.FrameInterval)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		add("tracing.sample_ratio must be in [0, 1], got %v", c.Tracing.SampleRatio)
	}
	switch strings.ToLower(c.Tracing.Exporter) {
	case "stdout", "otlp", "otlpgrpc", "":
	default:
		add("tracing.exporter %q is not supported", c.Tracing.Exporter)
	}
	return result.ErrorOrNil()
}

// HTTPAddr is the listen address of the HTTP server.
func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// LoggingConfig converts the log section for the logging package.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:     c.Log.Level,
		Format:    c.Log.Format,
		AddSource: c.Log.AddSource,
		File: logging.FileConfig{
			Path:       c.Log.File,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAgeDays: c.Log.MaxAgeDays,
			Compress:   c.Log.Compress,
		},
	}
}

// ObservabilityTracing converts the tracing section for the observability
// package.
func (c *Config) ObservabilityTracing() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}

// SimParams returns the animation timing.
func (c *Config) SimParams() state.Params {
	return state.Params{
		Speed:             c.Simulation.Speed,
		GatewayPauseTicks: c.Simulation.GatewayPauseTicks,
	}
}
