// Package config loads process-wide grading configuration, grounded on
// hellobyte-dev-coderunr's api/internal/config/config.go (defaults → env
// binding → optional file → Unmarshal → validate).
package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the process-wide grading configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	ScratchRoot string `mapstructure:"scratch_root"`
	KeepSandbox bool   `mapstructure:"keep_sandbox"`

	CompileTimeLimitS    float64 `mapstructure:"compile_time_limit_s"`
	CompileMemoryLimitKB int64   `mapstructure:"compile_memory_limit_kb"`
	CompileProcessLimit  int     `mapstructure:"compile_process_limit"`

	TrustedTimeLimitS    float64 `mapstructure:"trusted_time_limit_s"`
	TrustedMemoryLimitKB int64   `mapstructure:"trusted_memory_limit_kb"`
	TrustedProcessLimit  int     `mapstructure:"trusted_process_limit"`

	MaxOutputFileSizeKB int64 `mapstructure:"max_output_file_size_kb"`

	// SandboxBackend names the execution backend: "isolate" or "fake".
	// The value is validated and reported by `gradecore version`, but it
	// does not change how sandboxes run: every sandbox uses the external
	// isolate helper, and there is no in-memory backend.
	SandboxBackend string `mapstructure:"sandbox_backend"`

	WorkerShard int32 `mapstructure:"worker_shard"`
}

// Load loads configuration from environment variables and an optional
// YAML config file, applying defaults first.
func Load() (*Config, error) {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("scratch_root", "/var/local/gradecore")
	viper.SetDefault("keep_sandbox", false)
	viper.SetDefault("compile_time_limit_s", 10.0)
	viper.SetDefault("compile_memory_limit_kb", 512*1024)
	viper.SetDefault("compile_process_limit", 1000)
	viper.SetDefault("trusted_time_limit_s", 10.0)
	viper.SetDefault("trusted_memory_limit_kb", 1024*1024)
	viper.SetDefault("trusted_process_limit", 1000)
	viper.SetDefault("max_output_file_size_kb", 1024)
	viper.SetDefault("sandbox_backend", "isolate")
	viper.SetDefault("worker_shard", 0)

	viper.SetEnvPrefix("GRADECORE")
	viper.AutomaticEnv()

	viper.SetConfigName("gradecore")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/gradecore/")
	viper.AddConfigPath("$HOME/.gradecore/")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.CompileTimeLimitS <= 0 {
		return fmt.Errorf("compile_time_limit_s must be positive")
	}
	if cfg.TrustedTimeLimitS <= 0 {
		return fmt.Errorf("trusted_time_limit_s must be positive")
	}
	if cfg.SandboxBackend != "isolate" && cfg.SandboxBackend != "fake" {
		return fmt.Errorf("sandbox_backend must be \"isolate\" or \"fake\", got %q", cfg.SandboxBackend)
	}
	if _, err := os.Stat(cfg.ScratchRoot); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.ScratchRoot, 0o755); err != nil {
			return fmt.Errorf("scratch_root %s does not exist and could not be created: %w", cfg.ScratchRoot, err)
		}
	}
	return nil
}

// GetLogLevel returns the parsed log level, defaulting to Info on error.
func (c *Config) GetLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
