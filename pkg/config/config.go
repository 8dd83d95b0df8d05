package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete dittosync agent configuration.
//
// This structure captures all configurable aspects of the sync agent:
//   - Logging configuration
//   - Local device identity
//   - Metadata store selection and configuration (store-specific)
//   - Chunk store selection and configuration (store-specific)
//   - Watched paths
//   - Version retention policy
//   - Transfer retry policy
//   - Peer discovery preferences
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTOSYNC_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type and
// factory function. The Config struct contains type-specific sections
// (e.g., metadata.badger, chunks.s3) and only the section matching the
// selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Device identifies this device and its user
	Device DeviceConfig `mapstructure:"device"`

	// Metadata specifies the metadata store type and type-specific
	// configuration
	Metadata MetadataConfig `mapstructure:"metadata"`

	// Chunks specifies the chunk store type and type-specific
	// configuration
	Chunks ChunkConfig `mapstructure:"chunks"`

	// Watch configures filesystem monitoring
	Watch WatchConfig `mapstructure:"watch"`

	// Retention bounds per-file version history
	Retention RetentionConfig `mapstructure:"retention"`

	// Transfer tunes chunk transfer retries
	Transfer TransferConfig `mapstructure:"transfer"`

	// Discovery tunes peer discovery and path selection
	Discovery DiscoveryConfig `mapstructure:"discovery"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// DeviceConfig identifies the local device.
type DeviceConfig struct {
	// DeviceID is this device's stable identifier. Empty means a fresh
	// id is minted at startup.
	DeviceID string `mapstructure:"device_id" validate:"omitempty,uuid"`

	// UserID is the owning user's identifier
	UserID string `mapstructure:"user_id" validate:"omitempty,uuid"`
}

// MetadataConfig specifies metadata store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type MetadataConfig struct {
	// Type specifies which metadata store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// ChunkConfig specifies chunk store configuration.
type ChunkConfig struct {
	// Type specifies which chunk store implementation to use
	// Valid values: memory, s3
	Type string `mapstructure:"type" validate:"required,oneof=memory s3"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// WatchConfig configures filesystem monitoring.
type WatchConfig struct {
	// Paths lists files or directories to monitor
	Paths []string `mapstructure:"paths"`

	// Recursive watches directories and everything below them
	Recursive bool `mapstructure:"recursive"`
}

// RetentionConfig bounds per-file version history.
type RetentionConfig struct {
	// MaxVersions is the count history is pruned down to
	MaxVersions int `mapstructure:"max_versions" validate:"required,gte=1"`

	// MaxAge drops non-head versions older than this. Zero disables
	// age-based pruning.
	MaxAge time.Duration `mapstructure:"max_age" validate:"gte=0"`
}

// TransferConfig tunes chunk transfer retries.
type TransferConfig struct {
	// MaxAttempts is the per-chunk retry budget
	MaxAttempts uint32 `mapstructure:"max_attempts" validate:"required,gte=1"`

	// Backoff is the advisory delay between attempts
	Backoff time.Duration `mapstructure:"backoff" validate:"gte=0"`
}

// DiscoveryConfig tunes peer discovery and path selection.
type DiscoveryConfig struct {
	// PreferP2P chooses direct addresses over relays when available.
	// A pointer distinguishes an explicit false from an unset field;
	// nil defaults to true.
	PreferP2P *bool `mapstructure:"prefer_p2p"`

	// RelayTimeout bounds relay connection attempts
	RelayTimeout time.Duration `mapstructure:"relay_timeout" validate:"gte=0"`

	// MaxAdvertAge is how old a peer advertisement may be before it is
	// considered stale
	MaxAdvertAge time.Duration `mapstructure:"max_advert_age" validate:"gte=0"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTOSYNC_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath uses the default location under the user config
// directory. A missing config file is not an error; defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the DITTOSYNC_ prefix and underscores.
	// Example: DITTOSYNC_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTOSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable, defaults apply.
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittosync")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "dittosync")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
