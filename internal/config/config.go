package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// builtin is used when no config file exists for the environment.
const builtin = `
api:
  base_url: ${NLUDB_BASE_URL}
  key: ${NLUDB_API_KEY}
cache:
  enabled: ${NLUDB_CACHE_ENABLED:-false}
  addrs: ["${NLUDB_REDIS_ADDR:-localhost:6379}"]
  password: ${NLUDB_REDIS_PASSWORD}
logging:
  level: ${NLUDB_LOG_LEVEL}
`

// Config holds the nludb CLI configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Tasks   TasksConfig   `yaml:"tasks"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds the NLUDB endpoint and credentials.
type APIConfig struct {
	BaseURL    string `yaml:"base_url"` // default: SDK default
	Key        string `yaml:"key"`
	TimeoutSec int    `yaml:"timeout_sec"`
	UserAgent  string `yaml:"user_agent"`
}

// TasksConfig holds task polling settings.
type TasksConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms"`
	WaitTimeoutSec int `yaml:"wait_timeout_sec"`
}

// CacheConfig holds the Redis query cache settings.
type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// Without a file for env the built-in defaults apply, driven by NLUDB_* variables.
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		data = []byte(builtin)
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return parse(data)
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = 30
	}
	if c.Tasks.PollIntervalMs <= 0 {
		c.Tasks.PollIntervalMs = 1000
	}
	if c.Tasks.WaitTimeoutSec <= 0 {
		c.Tasks.WaitTimeoutSec = 600
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 600
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.API.Key == "" {
		return errors.New("api.key is required (set NLUDB_API_KEY)")
	}
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
		}
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return errors.New("cache.addrs is required when the cache is enabled")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// Timeout is the per-request API timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// PollInterval is the task status polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Tasks.PollIntervalMs) * time.Millisecond
}

// WaitTimeout bounds how long the CLI waits for a task.
func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.Tasks.WaitTimeoutSec) * time.Second
}

// CacheTTL is the lifetime of cached query results.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
