// Package config loads client settings from defaults, an optional YAML file,
// REMIND_* environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nissyi-gh/remind/internal/query"
)

const (
	AppName   = "remind"
	EnvPrefix = "REMIND"
)

// Config is the merged client configuration.
type Config struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	DataDir        string        `mapstructure:"data_dir" yaml:"data_dir"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	LogFile        string        `mapstructure:"log_file" yaml:"log_file"`
	SearchDebounce time.Duration `mapstructure:"search_debounce" yaml:"search_debounce"`

	// PageSize -1 lists everything on one page.
	PageSize         int    `mapstructure:"page_size" yaml:"page_size"`
	DefaultCompleted string `mapstructure:"default_completed" yaml:"default_completed"`
	DefaultStatus    string `mapstructure:"default_status" yaml:"default_status"`
	DefaultOrdering  string `mapstructure:"default_ordering" yaml:"default_ordering"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:          "http://localhost:8000/",
		Timeout:          5 * time.Second,
		LogLevel:         "info",
		SearchDebounce:   query.DefaultSearchDebounce,
		PageSize:         query.Unbounded,
		DefaultCompleted: "false",
		DefaultStatus:    string(query.StatusUpcoming),
		DefaultOrdering:  string(query.FieldTitle),
	}
}

// Path returns $XDG_CONFIG_HOME/remind/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName, "config.yaml")
}

// Load merges the configuration sources. An empty path uses Path; a missing
// file at the default path is not an error, a missing explicit path is.
// flags may be nil; flag names are the keys with "_" replaced by "-".
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("search_debounce", def.SearchDebounce)
	v.SetDefault("page_size", def.PageSize)
	v.SetDefault("default_completed", def.DefaultCompleted)
	v.SetDefault("default_status", def.DefaultStatus)
	v.SetDefault("default_ordering", def.DefaultOrdering)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = Path()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if explicit || !(errors.As(err, &notFound) || os.IsNotExist(err)) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if flags != nil {
		for _, key := range []string{"base_url", "timeout", "log_level", "log_file", "data_dir"} {
			if f := flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	cfg := &Config{}
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		boolToString,
	))
	if err := v.Unmarshal(cfg, hooks); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// boolToString keeps "default_completed: false" written as a YAML bool
// readable as "false" rather than the weakly typed "0".
func boolToString(from, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.Bool && to.Kind() == reflect.String {
		return strconv.FormatBool(reflect.ValueOf(data).Bool()), nil
	}
	return data, nil
}

// Validate checks values that would otherwise fail later and obscurely.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("search_debounce must not be negative, got %s", c.SearchDebounce)
	}
	if c.PageSize == 0 || c.PageSize < query.Unbounded {
		return fmt.Errorf("page_size must be -1 or positive, got %d", c.PageSize)
	}
	if _, err := query.ParseCompleted(c.DefaultCompleted); err != nil {
		return fmt.Errorf("default_completed: %w", err)
	}
	if s := query.Status(c.DefaultStatus); s != query.StatusAny && s != query.StatusUpcoming {
		return fmt.Errorf("default_status must be empty or %q, got %q", query.StatusUpcoming, c.DefaultStatus)
	}
	if _, err := query.ParseOrdering(c.DefaultOrdering); err != nil {
		return fmt.Errorf("default_ordering: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// QueryInputs returns the list query the client starts with.
func (c *Config) QueryInputs() query.Inputs {
	completed, _ := query.ParseCompleted(c.DefaultCompleted)
	ordering, _ := query.ParseOrdering(c.DefaultOrdering)
	return query.Inputs{
		Ordering:  ordering,
		Limit:     c.PageSize,
		Page:      1,
		Completed: completed,
		Status:    query.Status(c.DefaultStatus),
	}
}
