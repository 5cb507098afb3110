package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)

		return nil
	case string:
		return d.UnmarshalText([]byte(value))
	default:
		return errors.New("invalid duration")
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}

	d.Duration = parsed

	return nil
}

type Config struct {
	Address          string   `json:"address"`
	LogLevel         string   `json:"log_level"`
	StoreURL         string   `json:"store_url"`
	ArtifactRoot     string   `json:"artifact_root"`
	AuthSecret       string   `json:"-"`
	InferenceTimeout Duration `json:"inference_timeout"`
	StaleAfter       Duration `json:"stale_after"`
	ShutdownTimeout  Duration `json:"shutdown_timeout"`
	BodyLimit        int      `json:"body_limit"`
	Version          string   `json:"version"`
}

const EnvPrefix = "MODELHUB"

// SetDefaults registers every key with its default so that environment
// variables are picked up by viper even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("address", "localhost:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("store_url", "sqlite://modelhub.db")
	v.SetDefault("artifact_root", "./artifacts")
	v.SetDefault("auth_secret", "")
	v.SetDefault("inference_timeout", "30s")
	v.SetDefault("stale_after", "10m")
	v.SetDefault("shutdown_timeout", "30s")
	v.SetDefault("body_limit", 64*1024*1024)
	v.SetDefault("version", "dev")
}

// NewViper returns a viper instance reading MODELHUB_* variables and, when
// path is set, the given config file.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	return v, nil
}

func duration(v *viper.Viper, key string) (Duration, error) {
	var d Duration
	if err := d.UnmarshalText([]byte(v.GetString(key))); err != nil {
		return Duration{}, fmt.Errorf("%s: %w", key, err)
	}

	return d, nil
}

func Load(v *viper.Viper) (*Config, error) {
	config := &Config{
		Address:      v.GetString("address"),
		LogLevel:     v.GetString("log_level"),
		StoreURL:     v.GetString("store_url"),
		ArtifactRoot: v.GetString("artifact_root"),
		AuthSecret:   v.GetString("auth_secret"),
		BodyLimit:    v.GetInt("body_limit"),
		Version:      v.GetString("version"),
	}

	var err error

	if config.InferenceTimeout, err = duration(v, "inference_timeout"); err != nil {
		return nil, err
	}

	if config.StaleAfter, err = duration(v, "stale_after"); err != nil {
		return nil, err
	}

	if config.ShutdownTimeout, err = duration(v, "shutdown_timeout"); err != nil {
		return nil, err
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	switch {
	case c.StoreURL == "":
		return errors.New("store_url is required")
	case c.ArtifactRoot == "":
		return errors.New("artifact_root is required")
	case c.InferenceTimeout.Duration <= 0:
		return errors.New("inference_timeout must be positive")
	case c.StaleAfter.Duration > 0 && c.StaleAfter.Duration <= c.InferenceTimeout.Duration:
		// A prediction still inside its inference timeout is never stale.
		return errors.New("stale_after must exceed inference_timeout")
	case c.BodyLimit <= 0:
		return errors.New("body_limit must be positive")
	}

	return nil
}
