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

// Validate validates the configuration using struct tags and custom rules.
//
// Struct tag validation is declarative via go-playground/validator; rules
// that cannot be expressed in tags are checked separately.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Two Badger instances cannot open the same directory, so the resource
	// and lock stores must not point at one path. Sharing a database is
	// supported, but through the explicit shared-DB wiring, not by config.
	if cfg.Resources.Type == "badger" && cfg.Locks.Type == "badger" {
		resPath, _ := cfg.Resources.Badger["db_path"].(string)
		lockPath, _ := cfg.Locks.Badger["db_path"].(string)
		if resPath != "" && resPath == lockPath {
			return fmt.Errorf("locks: badger db_path %q collides with the resource store path", lockPath)
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
