package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the complete service configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Forecast  ForecastConfig  `json:"forecast"`
	Backends  BackendsConfig  `json:"backends"`
	Redis     RedisConfig     `json:"redis"`
	Auth      AuthConfig      `json:"auth"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         string   `json:"port"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
	IdleTimeout  Duration `json:"idle_timeout"`
}

// ForecastConfig contains forecast engine settings
type ForecastConfig struct {
	MinDataPoints int `json:"min_data_points"`
	Workers       int `json:"workers"`
	MaxHorizon    int `json:"max_horizon"`
}

// BackendsConfig toggles the optional forecasting backends. A disabled
// backend is reported as missing in forecast output rather than failing
// the request.
type BackendsConfig struct {
	ARIMA         bool `json:"arima"`
	SARIMA        bool `json:"sarima"`
	Prophet       bool `json:"prophet"`
	NeuralProphet bool `json:"neural_prophet"`
	Darts         bool `json:"darts"`
}

// RedisConfig contains forecast result cache settings
type RedisConfig struct {
	Enabled  bool     `json:"enabled"`
	Addr     string   `json:"addr"`
	Password string   `json:"password"`
	DB       int      `json:"db"`
	CacheTTL Duration `json:"cache_ttl"`
}

// AuthConfig contains JWT authentication settings. An empty secret
// disables authentication.
type AuthConfig struct {
	JWTSecret string   `json:"jwt_secret"`
	TokenTTL  Duration `json:"token_ttl"`
}

// RateLimitConfig contains per-server request rate limiting settings
type RateLimitConfig struct {
	Enabled           bool    `json:"enabled"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			ReadTimeout:  Duration{30 * time.Second},
			WriteTimeout: Duration{60 * time.Second},
			IdleTimeout:  Duration{120 * time.Second},
		},
		Forecast: ForecastConfig{
			MinDataPoints: 10,
			Workers:       4,
			MaxHorizon:    730,
		},
		Backends: BackendsConfig{
			ARIMA:         true,
			SARIMA:        true,
			Prophet:       true,
			NeuralProphet: true,
			Darts:         true,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			DB:       0,
			CacheTTL: Duration{15 * time.Minute},
		},
		Auth: AuthConfig{
			JWTSecret: "",
			TokenTTL:  Duration{24 * time.Hour},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 50,
			Burst:             100,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return config, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if port := os.Getenv("FCENGINE_PORT"); port != "" {
		config.Server.Port = port
	}

	if minPoints := os.Getenv("FCENGINE_MIN_DATA_POINTS"); minPoints != "" {
		if val, err := strconv.Atoi(minPoints); err == nil {
			config.Forecast.MinDataPoints = val
		}
	}

	if workers := os.Getenv("FCENGINE_WORKERS"); workers != "" {
		if val, err := strconv.Atoi(workers); err == nil {
			config.Forecast.Workers = val
		}
	}

	// Backend toggles accept 1/0, true/false, on/off.
	applyBoolEnv("FCENGINE_ENABLE_ARIMA", &config.Backends.ARIMA)
	applyBoolEnv("FCENGINE_ENABLE_SARIMA", &config.Backends.SARIMA)
	applyBoolEnv("FCENGINE_ENABLE_PROPHET", &config.Backends.Prophet)
	applyBoolEnv("FCENGINE_ENABLE_NEURAL_PROPHET", &config.Backends.NeuralProphet)
	applyBoolEnv("FCENGINE_ENABLE_DARTS", &config.Backends.Darts)

	if addr := os.Getenv("FCENGINE_REDIS_ADDR"); addr != "" {
		config.Redis.Enabled = true
		config.Redis.Addr = addr
	}
	if password := os.Getenv("FCENGINE_REDIS_PASSWORD"); password != "" {
		config.Redis.Password = password
	}

	if secret := os.Getenv("FCENGINE_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}

	return config
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if c.Forecast.MinDataPoints <= 0 {
		return fmt.Errorf("forecast min data points must be positive")
	}
	if c.Forecast.Workers <= 0 {
		return fmt.Errorf("forecast workers must be positive")
	}
	if c.Forecast.MaxHorizon <= 0 {
		return fmt.Errorf("forecast max horizon must be positive")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr cannot be empty when caching is enabled")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate limit requests per second must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive")
		}
	}

	return nil
}

// applyBoolEnv overwrites dst when the variable is set to a recognizable
// boolean; unset or unrecognized values leave the default in place.
func applyBoolEnv(key string, dst *bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}

// ConfigManager handles configuration loading and hot-reloading
type ConfigManager struct {
	config   *Config
	filename string
	watchers []func(*Config)
}

// NewConfigManager creates a new configuration manager
func NewConfigManager(filename string) (*ConfigManager, error) {
	var config *Config
	var err error

	if filename != "" && fileExists(filename) {
		config, err = LoadFromFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	} else {
		config = LoadFromEnv()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &ConfigManager{
		config:   config,
		filename: filename,
		watchers: make([]func(*Config), 0),
	}, nil
}

// GetConfig returns the current configuration
func (cm *ConfigManager) GetConfig() *Config {
	return cm.config
}

// AddWatcher adds a function to be called when configuration changes
func (cm *ConfigManager) AddWatcher(fn func(*Config)) {
	cm.watchers = append(cm.watchers, fn)
}

// Reload reloads the configuration from file
func (cm *ConfigManager) Reload() error {
	if cm.filename == "" || !fileExists(cm.filename) {
		return fmt.Errorf("no config file to reload")
	}

	newConfig, err := LoadFromFile(cm.filename)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	if err := newConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cm.config = newConfig

	for _, watcher := range cm.watchers {
		watcher(newConfig)
	}

	return nil
}

// fileExists checks if a file exists
func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}
