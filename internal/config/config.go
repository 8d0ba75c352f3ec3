package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "MATHMATRIX"
	dirName   = ".mathmatrix"
)

// Global configuration structure.
type Global struct {
	// Text generation
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Model      string `mapstructure:"model" yaml:"model"`
	APIBaseURL string `mapstructure:"api_base_url" yaml:"api_base_url"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Dashboard sources (file paths or http(s) URLs)
	MetricsCSV     string `mapstructure:"metrics_csv" yaml:"metrics_csv"`
	FeedbackCSV    string `mapstructure:"feedback_csv" yaml:"feedback_csv"`
	RecentFeedback int    `mapstructure:"recent_feedback" yaml:"recent_feedback"`

	// Server
	ListenAddr   string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	SanitizeHTML bool     `mapstructure:"sanitize_html" yaml:"sanitize_html"`
	CORSOrigins  []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	RedisAddr    string   `mapstructure:"redis_addr" yaml:"redis_addr"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// HTTPTimeout is zero when no timeout is configured.
func (c *Global) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func (c *Global) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

func (c *Global) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

// Dir returns ~/.mathmatrix.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.mathmatrix/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("provider", "gemini")
	v.SetDefault("model", "gemini-2.0-flash")
	v.SetDefault("api_base_url", "")
	// No timeout and a single attempt unless configured.
	v.SetDefault("http_timeout_sec", 0)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("metrics_csv", "data/performance_metrics.csv")
	v.SetDefault("feedback_csv", "data/feedback.csv")
	v.SetDefault("recent_feedback", 3)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("sanitize_html", true)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("redis_addr", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.RecentFeedback <= 0 {
		c.RecentFeedback = 3
	}
	return &c, nil
}
