package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Sync      *Sync      `mapstructure:"sync"`
	Simulator *Simulator `mapstructure:"simulator"`
}

// Sync configures the order sync client used by the display boards.
type Sync struct {
	WSURL        string        `mapstructure:"ws_url"`
	APIURL       string        `mapstructure:"api_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	GraceWindow  time.Duration `mapstructure:"grace_window"`
	BackoffBase  time.Duration `mapstructure:"backoff_base"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

// Simulator configures the dev backend. DSN empty means in-memory store.
type Simulator struct {
	Addr string `mapstructure:"addr"`
	DSN  string `mapstructure:"dsn"`
}

// LoadConfig reads the YAML file at configPath, with ORDERBOARD_* env
// variables overriding file values. A missing file falls back to defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("ORDERBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("sync.ws_url", "ws://localhost:8080/ws")
	v.SetDefault("sync.api_url", "http://localhost:8080/api")
	v.SetDefault("sync.poll_interval", 45*time.Second)
	v.SetDefault("sync.grace_window", 10*time.Second)
	v.SetDefault("sync.backoff_base", time.Second)
	v.SetDefault("sync.max_attempts", 10)
	v.SetDefault("simulator.addr", ":8080")
	v.SetDefault("simulator.dsn", "")

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		// Defaults plus env are enough to run against a local simulator.
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
