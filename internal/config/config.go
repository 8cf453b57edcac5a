// Package config loads the intake agent configuration from a YAML file, a
// .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported language-model providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ErrUnknownProvider is returned for a provider other than gemini or openai.
var ErrUnknownProvider = errors.New("unknown llm provider")

// Config holds all intake agent configuration.
type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	Prescription  PrescriptionConfig  `yaml:"prescription"`
	Database      DatabaseConfig      `yaml:"database"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// LLMConfig configures the escalation model.
type LLMConfig struct {
	Provider string        `yaml:"provider"` // gemini, openai
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"` // openai-compatible gateways only
	Timeout  string        `yaml:"timeout"`
	Breaker  BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker around the model.
type BreakerConfig struct {
	FailureThreshold uint32 `yaml:"failure_threshold"`
	OpenTimeout      string `yaml:"open_timeout"`
}

// KnowledgeBaseConfig points at an alternative case file.  Empty means the
// built-in knowledge base.
type KnowledgeBaseConfig struct {
	Path string `yaml:"path"`
}

// PrescriptionConfig configures document output.
type PrescriptionConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// DatabaseConfig enables the optional case audit log.
type DatabaseConfig struct {
	URL           string `yaml:"url"`
	NotifyChannel string `yaml:"notify_channel"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig enables the ops HTTP listener when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: ProviderGemini,
			Timeout:  "60s",
			Breaker: BreakerConfig{
				FailureThreshold: 3,
				OpenTimeout:      "30s",
			},
		},
		Database: DatabaseConfig{
			NotifyChannel: "intake_cases",
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides.  An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment.  Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("INTAKE_LLM_PROVIDER"); v != "" {
		c.SetProvider(v)
	}
	if v := APIKeyFromEnv(c.LLM.Provider); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("INTAKE_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("INTAKE_KB_PATH"); v != "" {
		c.KnowledgeBase.Path = v
	}
	if v := os.Getenv("INTAKE_PRESCRIPTION_DIR"); v != "" {
		c.Prescription.OutputDir = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("INTAKE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("INTAKE_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

// SetProvider switches the model provider.  A key configured for another
// provider is never carried over: the new key comes from the provider's
// environment variable or stays empty, which Validate rejects.
func (c *Config) SetProvider(provider string) {
	provider = strings.ToLower(provider)
	if provider == c.LLM.Provider {
		return
	}
	c.LLM.Provider = provider
	c.LLM.APIKey = APIKeyFromEnv(provider)
}

// APIKeyFromEnv returns the key variable belonging to provider.
func APIKeyFromEnv(provider string) string {
	if provider == ProviderOpenAI {
		return os.Getenv("OPENAI_API_KEY")
	}
	return os.Getenv("GEMINI_API_KEY")
}

// Validate checks that the configuration can start a session.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required for provider %s", c.LLM.Provider)
	}
	if _, err := c.LLMTimeout(); err != nil {
		return err
	}
	if _, err := c.BreakerOpenTimeout(); err != nil {
		return err
	}
	if c.Database.URL != "" && c.Database.NotifyChannel == "" {
		return errors.New("database.notify_channel is required when database.url is set")
	}
	return nil
}

// LLMTimeout parses the per-call model timeout.  Empty means no timeout.
func (c *Config) LLMTimeout() (time.Duration, error) {
	return parseDuration("llm.timeout", c.LLM.Timeout)
}

// BreakerOpenTimeout parses how long the breaker stays open.
func (c *Config) BreakerOpenTimeout() (time.Duration, error) {
	return parseDuration("llm.breaker.open_timeout", c.LLM.Breaker.OpenTimeout)
}

func parseDuration(field, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", field)
	}
	return d, nil
}
