// Package config loads and persists Attune client configuration. Sources
// merge in precedence order: defaults, then the user file
// (~/.attune/attune.toml), then a project attune.toml found by walking up
// from the working directory, then ATTUNE_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/attunefin/attune-go/errors"
)

const (
	// ConfigFileName is the on-disk config file name for both the user and
	// project scopes.
	ConfigFileName = "attune.toml"

	// EnvPrefix namespaces environment overrides, e.g. ATTUNE_SERVER_AUTH_TOKEN.
	EnvPrefix = "ATTUNE"

	// DefaultDirPermissions for ~/.attune.
	DefaultDirPermissions = 0750
)

var (
	globalConfig  *Config
	viperInstance *viper.Viper
)

// Config is the full client configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" toml:"server"`
	Progress ProgressConfig `mapstructure:"progress" toml:"progress"`
	API      APIConfig      `mapstructure:"api" toml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging" toml:"logging"`
}

// ServerConfig locates and authenticates against the Attune backend.
type ServerConfig struct {
	BaseURL        string `mapstructure:"base_url" toml:"base_url"`
	AuthToken      string `mapstructure:"auth_token" toml:"auth_token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

// ProgressConfig tunes the live progress stream client.
type ProgressConfig struct {
	AutoReconnect        bool `mapstructure:"auto_reconnect" toml:"auto_reconnect"`
	MaxReconnectAttempts int  `mapstructure:"max_reconnect_attempts" toml:"max_reconnect_attempts"`
	ReconnectBaseDelayMs int  `mapstructure:"reconnect_base_delay_ms" toml:"reconnect_base_delay_ms"`
	PingIntervalSeconds  int  `mapstructure:"ping_interval_seconds" toml:"ping_interval_seconds"`
}

// APIConfig tunes the REST client.
type APIConfig struct {
	RateLimit float64 `mapstructure:"rate_limit" toml:"rate_limit"`
}

// LoggingConfig controls logger initialization.
type LoggingConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json"`
	Level string `mapstructure:"level" toml:"level"`
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.base_url", "https://api.attune.fin")
	v.SetDefault("server.timeout_seconds", 30)

	v.SetDefault("progress.auto_reconnect", true)
	v.SetDefault("progress.max_reconnect_attempts", 5)
	v.SetDefault("progress.reconnect_base_delay_ms", 2000)
	v.SetDefault("progress.ping_interval_seconds", 30)

	v.SetDefault("api.rate_limit", 5.0)

	v.SetDefault("logging.json", false)
	v.SetDefault("logging.level", "info")
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to
// environment variables so they never need to live in a file.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("server.auth_token", "ATTUNE_SERVER_AUTH_TOKEN")
	v.BindEnv("server.base_url", "ATTUNE_SERVER_BASE_URL")
}

// Load reads the Attune configuration, caching it after the first call.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	globalConfig = &config
	return globalConfig, nil
}

// LoadWithViper loads configuration from a provided Viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path, bypassing the
// merged sources and the cache.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}
	return &config, nil
}

// GetViper returns the shared Viper instance for advanced access.
func GetViper() *viper.Viper {
	return initViper()
}

// Reset clears the cached configuration (useful for testing).
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	BindSensitiveEnvVars(v)
	SetDefaults(v)
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// UserConfigPath returns ~/.attune/attune.toml, "" if the home directory
// cannot be determined.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".attune", ConfigFileName)
}

// findProjectConfig searches for attune.toml by walking up the directory
// tree from the working directory.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// mergeConfigFiles merges configuration files in precedence order, lowest
// first: user < project. Env vars applied by viper sit above both.
func mergeConfigFiles(v *viper.Viper) {
	var configPaths []string
	if userPath := UserConfigPath(); userPath != "" {
		os.MkdirAll(filepath.Dir(userPath), DefaultDirPermissions)
		configPaths = append(configPaths, userPath)
	}
	if projectPath := findProjectConfig(); projectPath != "" {
		configPaths = append(configPaths, projectPath)
	}

	for _, configPath := range configPaths {
		if _, err := os.Stat(configPath); err != nil {
			continue
		}
		tempViper := viper.New()
		tempViper.SetConfigFile(configPath)
		tempViper.SetConfigType("toml")
		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}
		for key, value := range tempViper.AllSettings() {
			v.Set(key, value)
		}
	}
}

// ServerTimeout returns the request timeout as a duration.
func (c *Config) ServerTimeout() time.Duration {
	if c.Server.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// ReconnectBaseDelay returns the progress backoff base as a duration.
func (c *Config) ReconnectBaseDelay() time.Duration {
	if c.Progress.ReconnectBaseDelayMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Progress.ReconnectBaseDelayMs) * time.Millisecond
}

// PingInterval returns the keepalive cadence as a duration.
func (c *Config) PingInterval() time.Duration {
	if c.Progress.PingIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Progress.PingIntervalSeconds) * time.Second
}
