package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// Load reads configuration from the given YAML file, applies K2C_*
// environment overrides, and validates the result. When path is empty or
// the file does not exist, defaults (plus env overrides) are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("K2C")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to read config file", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to stat config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to unmarshal config", err)
	}

	// The API key is secret material; it is never written to the config
	// file in practice, so fall back to the conventional env var.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration against its struct tags.
func Validate(cfg *Config) error {
	if cfg == nil {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "configuration is nil")
	}

	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return types.WrapError(types.CONFIG_VALIDATION_FAILED, "validation error", err)
	}

	var messages []string
	for _, e := range validationErrs {
		messages = append(messages, e.Namespace()+" failed "+e.Tag())
	}
	return types.NewError(types.CONFIG_VALIDATION_FAILED, strings.Join(messages, "; "))
}

// setDefaults registers default values so env-only operation works
// without a config file.
func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	v.SetDefault("database.path", defaults.Database.Path)
	v.SetDefault("database.max_open_conns", defaults.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaults.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", defaults.Database.ConnMaxLifetime)
	v.SetDefault("database.busy_timeout", defaults.Database.BusyTimeout)
	v.SetDefault("graph.uri", defaults.Graph.URI)
	v.SetDefault("graph.username", defaults.Graph.Username)
	v.SetDefault("graph.password", defaults.Graph.Password)
	v.SetDefault("graph.database", defaults.Graph.Database)
	v.SetDefault("llm.provider", defaults.LLM.Provider)
	v.SetDefault("llm.model", defaults.LLM.Model)
	v.SetDefault("worker.interval", defaults.Worker.Interval)
	v.SetDefault("worker.batch_size", defaults.Worker.BatchSize)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
}
