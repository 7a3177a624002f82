package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"trafficgen/query"
)

// Config holds every configurable value for the generator and the query API.
type Config struct {
	// Traffic generator
	URL        string        `mapstructure:"url"`        // e.g. http://localhost:8080/query
	Payload    query.Request `mapstructure:"payload"`    // body sent on every iteration
	Iterations int           `mapstructure:"iterations"` // number of requests
	Delay      time.Duration `mapstructure:"delay"`      // pause after each request
	Timeout    time.Duration `mapstructure:"timeout"`    // per request, 0 means none

	// Optional outputs
	RecordPath  string `mapstructure:"record_path"`  // SQLite outcome journal, empty disables it
	MetricsAddr string `mapstructure:"metrics_addr"` // e.g. ":9102", empty disables it

	// Query API
	ListenAddr    string        `mapstructure:"listen_addr"`
	PrometheusURL string        `mapstructure:"prometheus_url"`
	Step          time.Duration `mapstructure:"step"`

	LogLevel string `mapstructure:"log_level"` // debug|info|warn|error
}

// EnvPrefix is prepended to every environment override, e.g. TRAFFICGEN_ITERATIONS.
const EnvPrefix = "TRAFFICGEN"

// Load reads configuration from (in decreasing priority):
//  1. environment variables (TRAFFICGEN_URL, TRAFFICGEN_PAYLOAD_METRIC_NAME, ...)
//  2. a yaml file named config in the given directories, ./configs when none are given.
//
// Without either, the defaults target a local /query endpoint ten times, one second apart.
func Load(searchPaths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(searchPaths) == 0 {
		searchPaths = []string{"./configs"}
	}
	v.SetConfigName("config")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("url", "http://localhost:8080/query")
	v.SetDefault("iterations", 10)
	v.SetDefault("delay", time.Second)
	v.SetDefault("timeout", time.Duration(0))

	v.SetDefault("payload.metric_name", "up")
	v.SetDefault("payload.labels", map[string]string{
		"instance": "prometheus:9090",
	})
	v.SetDefault("payload.start_time", "2024-09-15T03:30:00Z")
	v.SetDefault("payload.end_time", "2024-09-15T03:32:00Z")

	v.SetDefault("record_path", "")
	v.SetDefault("metrics_addr", "")

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("prometheus_url", "http://localhost:9090")
	v.SetDefault("step", time.Minute)

	v.SetDefault("log_level", "info")
}

// Validate rejects values the generator or the query API cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.URL == "":
		return fmt.Errorf("url must not be empty")
	case c.Iterations < 0:
		return fmt.Errorf("iterations cannot be negative: %d", c.Iterations)
	case c.Delay < 0:
		return fmt.Errorf("delay cannot be negative: %s", c.Delay)
	case c.Timeout < 0:
		return fmt.Errorf("timeout cannot be negative: %s", c.Timeout)
	case c.Step <= 0:
		return fmt.Errorf("step must be positive: %s", c.Step)
	}
	return nil
}
