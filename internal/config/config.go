// Package config loads keygraph settings from an optional YAML file, a .env
// file and KEYGRAPH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tordrt/keygraph/internal/model"
)

// EnvPrefix prefixes every environment variable, e.g. KEYGRAPH_DATABASE_URL.
const EnvPrefix = "KEYGRAPH"

// Config holds the application configuration.
type Config struct {
	Database struct {
		URL    string `mapstructure:"url"`
		Schema string `mapstructure:"schema"`
	} `mapstructure:"database"`

	Model struct {
		NameConflict string `mapstructure:"name_conflict"`
		StrictKeys   bool   `mapstructure:"strict_keys"`
		ReplacePK    string `mapstructure:"replace_pk"`
		Cycles       string `mapstructure:"cycles"`
	} `mapstructure:"model"`

	Check struct {
		Concurrency int           `mapstructure:"concurrency"`
		Timeout     time.Duration `mapstructure:"timeout"`
	} `mapstructure:"check"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "")
	v.SetDefault("database.schema", "")
	v.SetDefault("model.name_conflict", "fail")
	v.SetDefault("model.strict_keys", false)
	v.SetDefault("model.replace_pk", "drop")
	v.SetDefault("model.cycles", "reject")
	v.SetDefault("check.concurrency", 4)
	v.SetDefault("check.timeout", 5*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. path names a YAML file and may be empty, in
// which case only defaults, .env and the environment are used.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (silently ignore if missing)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.ModelOptions(); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Check.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("check.concurrency must not be negative, got %d", c.Check.Concurrency))
	}
	return errors.Join(errs...)
}

// ModelOptions converts the model section into model options.
func (c *Config) ModelOptions() ([]model.Option, error) {
	names, err := model.ParseNameConflict(c.Model.NameConflict)
	if err != nil {
		return nil, err
	}
	replace, err := model.ParseReplacePK(c.Model.ReplacePK)
	if err != nil {
		return nil, err
	}
	cycles, err := model.ParseCycles(c.Model.Cycles)
	if err != nil {
		return nil, err
	}
	return []model.Option{
		model.WithNameConflict(names),
		model.WithStrictKeys(c.Model.StrictKeys),
		model.WithReplacePK(replace),
		model.WithCycles(cycles),
	}, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
