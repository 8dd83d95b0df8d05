package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields.
//
// Called after loading configuration from file and environment variables
// to fill in any missing values.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetadataDefaults(&cfg.Metadata)
	applyChunkDefaults(&cfg.Chunks)
	applyRetentionDefaults(&cfg.Retention)
	applyTransferDefaults(&cfg.Transfer)
	applyDiscoveryDefaults(&cfg.Discovery)

	if cfg.Watch.Paths == nil {
		cfg.Watch.Paths = []string{}
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal
	// representation.
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyMetadataDefaults sets metadata store defaults.
func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
}

// applyChunkDefaults sets chunk store defaults.
func applyChunkDefaults(cfg *ChunkConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
}

// applyRetentionDefaults sets version retention defaults.
func applyRetentionDefaults(cfg *RetentionConfig) {
	if cfg.MaxVersions == 0 {
		cfg.MaxVersions = 10
	}
	// MaxAge defaults to 0 (age-based pruning disabled)
}

// applyTransferDefaults sets transfer retry defaults.
func applyTransferDefaults(cfg *TransferConfig) {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = 2 * time.Second
	}
}

// applyDiscoveryDefaults sets peer discovery defaults.
func applyDiscoveryDefaults(cfg *DiscoveryConfig) {
	// PreferP2P defaults to true: relays are the fallback, not the rule.
	if cfg.PreferP2P == nil {
		preferP2P := true
		cfg.PreferP2P = &preferP2P
	}
	if cfg.RelayTimeout == 0 {
		cfg.RelayTimeout = 5 * time.Second
	}
	if cfg.MaxAdvertAge == 0 {
		cfg.MaxAdvertAge = time.Minute
	}
}

// GetDefaultConfig returns a Config struct with all default values
// applied. Useful for generating sample configuration files and for
// tests.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
