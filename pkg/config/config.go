package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/NeuralTrust/QuoteGate/pkg/common"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	MetricsPort  int           `mapstructure:"metrics_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	DocsFile     string        `mapstructure:"docs_file"`
	DocsURL      string        `mapstructure:"docs_url"`
}

type UpstreamConfig struct {
	BaseURL             string               `mapstructure:"base_url"`
	RandomPath          string               `mapstructure:"random_path"`
	SearchPath          string               `mapstructure:"search_path"`
	SearchParam         string               `mapstructure:"search_param"`
	Timeout             time.Duration        `mapstructure:"timeout"`
	MaxConnsPerHost     int                  `mapstructure:"max_conns_per_host"`
	MaxResponseBodySize int                  `mapstructure:"max_response_body_size"`
	UserAgent           string               `mapstructure:"user_agent"`
	InsecureSkipVerify  bool                 `mapstructure:"insecure_skip_verify"`
	Compression         bool                 `mapstructure:"compression"`
	CircuitBreaker      CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

type MetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	EnableLatency     bool `mapstructure:"enable_latency"`
	EnableUpstream    bool `mapstructure:"enable_upstream"`
	EnableConnections bool `mapstructure:"enable_connections"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type TelemetryConfig struct {
	Enabled   bool             `mapstructure:"enabled"`
	Workers   int              `mapstructure:"workers"`
	QueueSize int              `mapstructure:"queue_size"`
	Exporters []ExporterConfig `mapstructure:"exporters"`
}

type ExporterConfig struct {
	Name     string                 `mapstructure:"name"`
	Settings map[string]interface{} `mapstructure:"settings"`
}

var globalConfig Config

func Load(configPath string) error {
	cfg, err := loadConfigFile(configPath, "config")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	globalConfig = *cfg
	return nil
}

func loadConfigFile(configPath, fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaultValues(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
		}
		// defaults and environment variables only
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}
	return &cfg, nil
}

func setDefaultValues(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.docs_file", "./docs/swagger.json")
	v.SetDefault("server.docs_url", "/swagger.json")

	v.SetDefault("upstream.base_url", common.DefaultUpstreamBaseURL)
	v.SetDefault("upstream.random_path", common.DefaultRandomPath)
	v.SetDefault("upstream.search_path", common.DefaultSearchPath)
	v.SetDefault("upstream.search_param", common.DefaultSearchParam)
	v.SetDefault("upstream.timeout", common.DefaultUpstreamTimeout.String())
	v.SetDefault("upstream.max_conns_per_host", 512)
	v.SetDefault("upstream.max_response_body_size", 10*1024*1024)
	v.SetDefault("upstream.user_agent", "")
	v.SetDefault("upstream.insecure_skip_verify", false)
	v.SetDefault("upstream.compression", true)
	v.SetDefault("upstream.circuit_breaker.enabled", false)
	v.SetDefault("upstream.circuit_breaker.max_failures", 5)
	v.SetDefault("upstream.circuit_breaker.open_timeout", "30s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.enable_latency", true)
	v.SetDefault("metrics.enable_upstream", true)
	v.SetDefault("metrics.enable_connections", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.workers", 4)
	v.SetDefault("telemetry.queue_size", 1000)
}

// Validate checks the settings the gateway cannot start without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil {
		return fmt.Errorf("upstream.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream.base_url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("upstream.base_url: host is required")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("upstream.timeout must be greater than zero")
	}
	if c.Upstream.SearchParam == "" {
		return errors.New("upstream.search_param is required")
	}
	if c.Server.Port <= 0 {
		return errors.New("server.port must be greater than zero")
	}
	if c.Upstream.CircuitBreaker.Enabled && c.Upstream.CircuitBreaker.MaxFailures == 0 {
		return errors.New("upstream.circuit_breaker.max_failures must be greater than zero")
	}
	if c.Telemetry.Enabled {
		for i, exp := range c.Telemetry.Exporters {
			if exp.Name == "" {
				return fmt.Errorf("telemetry.exporters[%d]: name is required", i)
			}
		}
	}
	return nil
}

func GetConfig() *Config {
	return &globalConfig
}
