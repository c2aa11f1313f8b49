package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/Sternrassler/graph-business-client/pkg/graph"
	"github.com/Sternrassler/graph-business-client/pkg/logging"
	"gopkg.in/yaml.v3"
)

// Config is the graphctl configuration file.
type Config struct {
	Client   client.Config        `yaml:"client"`
	Logging  logging.Config       `yaml:"logging"`
	Redis    RedisConfig          `yaml:"redis"`
	Dispatch graph.DispatchConfig `yaml:"dispatch"`
	Serve    ServeConfig          `yaml:"serve"`
}

// RedisConfig enables the response cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServeConfig configures the proxy.
type ServeConfig struct {
	Addr string `yaml:"addr"`

	// Timeout bounds each proxied call.
	Timeout time.Duration `yaml:"timeout"`
}

func defaultConfig() Config {
	return Config{
		Client:   client.DefaultConfig(""),
		Logging:  logging.DefaultConfig(),
		Dispatch: graph.DefaultDispatchConfig(),
		Serve: ServeConfig{
			Addr:    ":8080",
			Timeout: 30 * time.Second,
		},
	}
}

// loadConfig reads path, when given, over the defaults and then applies
// GRAPH_* environment overrides.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := map[string]*string{
		"GRAPH_ACCESS_TOKEN": &cfg.Client.AccessToken,
		"GRAPH_APP_ID":       &cfg.Client.AppID,
		"GRAPH_APP_SECRET":   &cfg.Client.AppSecret,
		"GRAPH_API_VERSION":  &cfg.Client.APIVersion,
		"GRAPH_BASE_URL":     &cfg.Client.BaseURL,
		"GRAPH_REDIS_ADDR":   &cfg.Redis.Addr,
		"GRAPH_LISTEN_ADDR":  &cfg.Serve.Addr,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv("GRAPH_LOG_LEVEL"); v != "" {
		level, err := logging.ParseLevel(v)
		if err != nil {
			return fmt.Errorf("GRAPH_LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}
	if v := getenv("GRAPH_STRICT"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GRAPH_STRICT: %w", err)
		}
		cfg.Client.StrictMode = strict
	}
	if v := getenv("GRAPH_RATE_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("GRAPH_RATE_LIMIT: %w", err)
		}
		cfg.Client.RateLimit = limit
	}
	return nil
}

var errNoToken = errors.New("no access token: set client.access_token or GRAPH_ACCESS_TOKEN")
