// Package config loads the application configuration from a YAML file and
// environment overrides.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/protoforge/agent"
	"github.com/hupe1980/protoforge/core"
	"github.com/hupe1980/protoforge/logging"
)

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultPath is read when PROTOFORGE_CONFIG is unset.
const DefaultPath = "config/protoforge.yaml"

type Config struct {
	Provider ProviderConfig              `yaml:"provider"`
	Pipeline PipelineConfig              `yaml:"pipeline"`
	Server   ServerConfig                `yaml:"server"`
	Log      LogConfig                   `yaml:"log"`
	Agents   map[agent.ID]agent.Override `yaml:"agents"`
}

type ProviderConfig struct {
	Name            string        `yaml:"name"`
	Model           string        `yaml:"model"`
	OpenAIAPIKey    string        `yaml:"openai_api_key"`
	AnthropicAPIKey string        `yaml:"anthropic_api_key"`
	BaseURL         string        `yaml:"base_url"`
	ProxyURL        string        `yaml:"proxy_url"`
	Timeout         time.Duration `yaml:"timeout"`
	// ScrubProxyEnv clears HTTP(S)_PROXY and friends around each model call.
	ScrubProxyEnv bool `yaml:"scrub_proxy_env"`
}

type PipelineConfig struct {
	StageTimeout      time.Duration `yaml:"stage_timeout"`
	MaxConcurrentRuns int64         `yaml:"max_concurrent_runs"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		Provider: ProviderConfig{
			Name:          ProviderOpenAI,
			Timeout:       2 * time.Minute,
			ScrubProxyEnv: true,
		},
		Pipeline: PipelineConfig{
			MaxConcurrentRuns: 4,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the file named by PROTOFORGE_CONFIG (or DefaultPath), expands
// environment references inside it, then applies environment overrides. A
// missing file is not an error.
func Load() (*Config, error) {
	path := os.Getenv("PROTOFORGE_CONFIG")
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Provider.OpenAIAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Provider.AnthropicAPIKey = v
	}
	if v := os.Getenv("PROTOFORGE_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("PROTOFORGE_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("PROTOFORGE_PROXY_URL"); v != "" {
		cfg.Provider.ProxyURL = v
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return core.Errorf(core.KindConfiguration, "config.env", "PORT: %v", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("PROTOFORGE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PROTOFORGE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("PROTOFORGE_STAGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return core.Errorf(core.KindConfiguration, "config.env", "PROTOFORGE_STAGE_TIMEOUT: %v", err)
		}
		cfg.Pipeline.StageTimeout = d
	}
	return nil
}

// Validate checks structural settings. Credentials are checked later, when
// the provider is built, so a missing key leaves the server in degraded mode
// instead of refusing to start.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return core.Errorf(core.KindConfiguration, "config.validate", "unknown provider %q", c.Provider.Name)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return core.Errorf(core.KindConfiguration, "config.validate", "port %d out of range", c.Server.Port)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return core.NewError(core.KindConfiguration, "config.validate", err)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return core.Errorf(core.KindConfiguration, "config.validate", "unknown log format %q", c.Log.Format)
	}
	if c.Pipeline.StageTimeout < 0 || c.Provider.Timeout < 0 {
		return core.Errorf(core.KindConfiguration, "config.validate", "timeouts must not be negative")
	}
	if c.Pipeline.MaxConcurrentRuns < 0 {
		return core.Errorf(core.KindConfiguration, "config.validate", "max_concurrent_runs must not be negative")
	}
	if _, err := agent.NewRegistryFromOverrides(c.Agents); err != nil {
		return err
	}
	return nil
}

// APIKey returns the credential of the selected provider.
func (c *Config) APIKey() string {
	if c.Provider.Name == ProviderAnthropic {
		return c.Provider.AnthropicAPIKey
	}
	return c.Provider.OpenAIAPIKey
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
