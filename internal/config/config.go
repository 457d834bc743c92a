package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration for the k2c pipeline.
type Config struct {
	Database DBConfig      `mapstructure:"database" yaml:"database" validate:"required"`
	Graph    GraphConfig   `mapstructure:"graph" yaml:"graph" validate:"required"`
	LLM      LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Worker   WorkerConfig  `mapstructure:"worker" yaml:"worker"`
	Logging  LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// DBConfig contains relational store configuration.
type DBConfig struct {
	Path            string        `mapstructure:"path" yaml:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns" validate:"min=1,max=100"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns" validate:"min=1,max=100"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout" validate:"min=1ms"`
}

// GraphConfig contains graph store connection settings.
type GraphConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri" validate:"required"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
}

// LLMConfig contains proposer capability settings. An empty APIKey (after
// env fallback) disables negotiation and the pipeline runs on deterministic
// fallbacks only.
type LLMConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
}

// WorkerConfig contains polling loop settings.
type WorkerConfig struct {
	Interval  time.Duration `mapstructure:"interval" yaml:"interval" validate:"min=1s"`
	BatchSize int           `mapstructure:"batch_size" yaml:"batch_size" validate:"min=1,max=100"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	homeDir := defaultHomeDir()

	return &Config{
		Database: DBConfig{
			Path:            filepath.Join(homeDir, "k2c.db"),
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			BusyTimeout:     5 * time.Second,
		},
		Graph: GraphConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Password: "k2cneo4j",
			Database: "neo4j",
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "",
			APIKey:   "",
		},
		Worker: WorkerConfig{
			Interval:  20 * time.Second,
			BatchSize: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// defaultHomeDir returns the k2c home directory, honoring K2C_HOME.
func defaultHomeDir() string {
	if dir := os.Getenv("K2C_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".k2c"
	}
	return filepath.Join(home, ".k2c")
}
