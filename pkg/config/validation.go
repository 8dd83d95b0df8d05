package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom
// rules.
//
// Declarative validation runs through go-playground/validator struct
// tags; rules that cannot be expressed in tags run afterwards.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Watched paths must be distinct; duplicate watches double-deliver
	// events.
	seen := make(map[string]bool)
	for i, path := range cfg.Watch.Paths {
		if path == "" {
			return fmt.Errorf("watch.paths[%d]: path must not be empty", i)
		}
		if seen[path] {
			return fmt.Errorf("watch.paths[%d]: duplicate path %q", i, path)
		}
		seen[path] = true
	}

	if cfg.Metadata.Type == "badger" {
		if dbPath, _ := cfg.Metadata.Badger["db_path"].(string); dbPath == "" {
			return fmt.Errorf("metadata.badger: db_path is required")
		}
	}

	if cfg.Chunks.Type == "s3" {
		if bucket, _ := cfg.Chunks.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("chunks.s3: bucket is required")
		}
		if region, _ := cfg.Chunks.S3["region"].(string); region == "" {
			return fmt.Errorf("chunks.s3: region is required")
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
