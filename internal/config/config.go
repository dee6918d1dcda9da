// Package config loads shell settings from an optional oql.yaml file, OQL_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bawdo/oql/plugins/opa"
	"github.com/bawdo/oql/timerange"
)

// EnvPrefix prefixes every environment variable. The dot in a key becomes an
// underscore: "backend.url" is read from OQL_BACKEND_URL.
const EnvPrefix = "OQL"

// Config aggregates the shell's configuration.
type Config struct {
	Engine   string         `mapstructure:"engine"`
	Database DatabaseConfig `mapstructure:"database"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Range    RangeConfig    `mapstructure:"range"`
	Schema   SchemaConfig   `mapstructure:"schema"`
	History  HistoryConfig  `mapstructure:"history"`
	Log      LogConfig      `mapstructure:"log"`
	OPA      OPAConfig      `mapstructure:"opa"`
	Autorun  bool           `mapstructure:"autorun"`
}

// DatabaseConfig is the optional direct connection used for schema discovery.
type DatabaseConfig struct {
	URL  string `mapstructure:"url"`
	Name string `mapstructure:"name"`
}

type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RangeConfig holds the initial $start and $end boundaries.
type RangeConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

type SchemaConfig struct {
	File string        `mapstructure:"file"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type HistoryConfig struct {
	File  string `mapstructure:"file"`
	Limit int    `mapstructure:"limit"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// OPAConfig enables the policy plugin at startup when Policy is set. Input
// is only read from the config file; viper lowercases its keys.
type OPAConfig struct {
	URL    string         `mapstructure:"url"`
	Policy string         `mapstructure:"policy"`
	Input  map[string]any `mapstructure:"input"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Engine:  "postgres",
		Backend: BackendConfig{Timeout: 30 * time.Second},
		Range:   RangeConfig{Start: timerange.DefaultStart, End: timerange.DefaultEnd},
		Schema:  SchemaConfig{TTL: 5 * time.Minute},
		History: HistoryConfig{File: defaultHistoryFile(), Limit: 500},
		Log:     LogConfig{Level: "warn"},
		OPA:     OPAConfig{URL: opa.DefaultURL},
		Autorun: true,
	}
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".oql_history")
}

// Load reads configuration into a copy of Default. When configFile is empty
// an oql.yaml in the working directory or in $HOME/.config/oql is used if
// present; a named file must exist. v may already carry bound flags; nil
// means a fresh viper instance.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	cfg := Default()
	if v == nil {
		v = viper.New()
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("oql")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "oql"))
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late, mid-session.
func (c *Config) Validate() error {
	switch c.Engine {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("config: unsupported engine %q (want postgres, mysql or sqlite)", c.Engine)
	}
	now := time.Now()
	if _, err := timerange.Parse(c.Range.Start, now); err != nil {
		return fmt.Errorf("config: range.start: %w", err)
	}
	if _, err := timerange.Parse(c.Range.End, now); err != nil {
		return fmt.Errorf("config: range.end: %w", err)
	}
	if c.History.Limit < 0 {
		return errors.New("config: history.limit must not be negative")
	}
	if c.OPA.Policy != "" && c.OPA.URL == "" {
		return errors.New("config: opa.policy needs opa.url")
	}
	return nil
}

// TimeRange returns the configured boundaries.
func (c *Config) TimeRange() timerange.Range {
	return timerange.Range{Start: c.Range.Start, End: c.Range.End}
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(append([]string{}, parts...), tag)
		if f.Type.Kind() == reflect.Map {
			continue
		}
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Time{}) {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
