// Package commands implements the aptctl CLI commands.
package commands

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/device"
	"github.com/arloliu/go-apt/logger"
	"github.com/arloliu/go-apt/trace"
	"github.com/arloliu/go-apt/transport"
)

// Config is the aptctl configuration file. Command line flags override it.
type Config struct {
	Port           string                `yaml:"port"`
	SerialNumber   string                `yaml:"serial_number"`
	LogLevel       string                `yaml:"log_level"`
	Trace          string                `yaml:"trace"`
	RackPrefixes   []int                 `yaml:"rack_prefixes"`
	EnableChannels *bool                 `yaml:"enable_channels"`
	DisableOnClose *bool                 `yaml:"disable_on_close"`
	Line           transport.PortOptions `yaml:"line"`
	Connection     ConnConfig            `yaml:"connection"`
}

// ConnConfig holds the exchange timing. Zero values keep the library defaults.
type ConnConfig struct {
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	QueryTimeout  time.Duration `yaml:"query_timeout"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	DrainSilence  time.Duration `yaml:"drain_silence"`
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() *Config {
	return &Config{LogLevel: "info"}
}

// LoadConfig reads a YAML configuration file. An empty path returns DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if _, ok := logger.ParseLevel(cfg.LogLevel); !ok {
		return nil, fmt.Errorf("config %s: unknown log level %q", path, cfg.LogLevel)
	}

	return cfg, nil
}

// Level returns the configured log level, info when unset or unknown.
func (c *Config) Level() logger.Level {
	if level, ok := logger.ParseLevel(c.LogLevel); ok {
		return level
	}

	return logger.InfoLevel
}

// ConnOptions converts the connection settings to apt options.
func (c *Config) ConnOptions(l logger.Logger, tracer trace.Tracer) []apt.ConnOption {
	opts := []apt.ConnOption{apt.WithLogger(l)}
	if tracer != nil {
		opts = append(opts, apt.WithTracer(tracer))
	}

	cc := c.Connection
	if cc.ReadTimeout > 0 {
		opts = append(opts, apt.WithReadTimeout(cc.ReadTimeout))
	}
	if cc.QueryTimeout > 0 {
		opts = append(opts, apt.WithQueryTimeout(cc.QueryTimeout))
	}
	if cc.RetryInterval > 0 {
		opts = append(opts, apt.WithRetryInterval(cc.RetryInterval))
	}
	if cc.DrainSilence > 0 {
		opts = append(opts, apt.WithDrainSilence(cc.DrainSilence))
	}

	return opts
}

// DeviceOptions converts the configuration to device options.
func (c *Config) DeviceOptions(l logger.Logger, tracer trace.Tracer) []device.Option {
	opts := []device.Option{
		device.WithLogger(l),
		device.WithConnOptions(c.ConnOptions(l, tracer)...),
	}
	if c.SerialNumber != "" {
		opts = append(opts, device.WithSerialNumber(c.SerialNumber))
	}
	if len(c.RackPrefixes) > 0 {
		opts = append(opts, device.WithRackPrefixes(c.RackPrefixes...))
	}
	if c.EnableChannels != nil {
		opts = append(opts, device.WithEnableChannels(*c.EnableChannels))
	}
	if c.DisableOnClose != nil {
		opts = append(opts, device.WithDisableOnClose(*c.DisableOnClose))
	}
	if c.Line != (transport.PortOptions{}) {
		opts = append(opts, device.WithPortOptions(c.Line))
	}

	return opts
}
