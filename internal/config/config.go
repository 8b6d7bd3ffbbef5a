// Package config provides configuration loading for the classroom client.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Bidon15/classroom/internal/api"
	"github.com/Bidon15/classroom/internal/kv"
)

// EnvPrefix prefixes every environment override, e.g. CLASSROOM_API_KEY.
const EnvPrefix = "CLASSROOM"

// Config holds all configuration for the client.
type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// APIConfig holds the classroom API endpoint.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	Key     string        `mapstructure:"key" yaml:"key"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"` // 0 = no timeout
}

// StorageConfig selects where session and feed are persisted.
type StorageConfig struct {
	Backend   string      `mapstructure:"backend" yaml:"backend" validate:"oneof=file redis memory"`
	Path      string      `mapstructure:"path" yaml:"path" validate:"required_if=Backend file"`
	Redis     RedisConfig `mapstructure:"redis" yaml:"redis"`
	QueueSize int         `mapstructure:"queue_size" yaml:"queue_size" validate:"gte=1"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// MetricsConfig holds metrics output configuration.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// Load reads configuration from a file, environment variables and defaults,
// in increasing order of precedence for env over file. An empty path searches
// ., $HOME/.classroom and /etc/classroom for config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".classroom"))
		}
		v.AddConfigPath("/etc/classroom")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Keys without a default are invisible to AutomaticEnv on Unmarshal.
	_ = v.BindEnv("api.key", EnvPrefix+"_API_KEY")
	_ = v.BindEnv("storage.redis.password", EnvPrefix+"_STORAGE_REDIS_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.queue_size", d.Storage.QueueSize)
	v.SetDefault("storage.redis.addr", d.Storage.Redis.Addr)
	v.SetDefault("storage.redis.db", d.Storage.Redis.DB)
	v.SetDefault("storage.redis.prefix", d.Storage.Redis.Prefix)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// Default returns the built-in configuration. The API key is left empty.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: api.DefaultBaseURL,
		},
		Storage: StorageConfig{
			Backend:   kv.BackendFile,
			Path:      DefaultStatePath(),
			QueueSize: 64,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "classroom:",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultStatePath is $HOME/.classroom/state.json, or ./state.json when the
// home directory is unknown.
func DefaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "state.json"
	}
	return filepath.Join(home, ".classroom", "state.json")
}

var validate = validator.New()

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Backend == kv.BackendRedis && c.Storage.Redis.Addr == "" {
		return errors.New("invalid config: storage.redis.addr is required for the redis backend")
	}
	return nil
}

// ErrMissingAPIKey is returned by RequireAPIKey when no key is configured.
var ErrMissingAPIKey = errors.New("invalid config: API.Key is required (set api.key or " + EnvPrefix + "_API_KEY)")

// RequireAPIKey checks that the API key is set. Load does not check it.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.API.Key) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// StoreOptions maps the storage section to kv.Options.
func (c *Config) StoreOptions() kv.Options {
	return kv.Options{
		Backend: c.Storage.Backend,
		Path:    c.Storage.Path,
		Redis: kv.RedisOptions{
			Addr:     c.Storage.Redis.Addr,
			Password: c.Storage.Redis.Password,
			DB:       c.Storage.Redis.DB,
			Prefix:   c.Storage.Redis.Prefix,
		},
	}
}

// Masked returns a copy with secrets replaced, for display.
func (c Config) Masked() Config {
	c.API.Key = mask(c.API.Key)
	c.Storage.Redis.Password = mask(c.Storage.Redis.Password)
	return c
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return "****" + s[len(s)-4:]
	}
}

// WriteFile writes cfg as YAML to path, creating parent directories. It
// refuses to overwrite an existing file.
func WriteFile(path string, cfg Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
