package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/sandboxfs/pkg/store/tree/badger"
	"github.com/mitchellh/mapstructure"
)

// validate is the singleton validator instance
var validate *validator.Validate

// originNamePattern accepts scheme://host[:port] origins and plain names.
var originNamePattern = regexp.MustCompile(`^([a-z][a-z0-9+.-]*://)?[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?(:[0-9]{1,5})?$`)

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("origin_name", func(fl validator.FieldLevel) bool {
		return originNamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// A persistent tree needs somewhere to live
	if cfg.Tree.Type == "badger" {
		var badgerCfg badger.BadgerTreeStoreConfig
		if err := mapstructure.Decode(cfg.Tree.Badger, &badgerCfg); err != nil {
			return fmt.Errorf("tree.badger: %w", err)
		}
		if badgerCfg.DBPath == "" && !badgerCfg.InMemory {
			return fmt.Errorf("tree.badger: db_path is required unless in_memory is true")
		}
	}

	// A throttled origin must be able to admit at least one request
	for i, origin := range cfg.Origins {
		if origin.RequestsPerSecond > 0 && origin.Burst < 1 {
			return fmt.Errorf("origins[%d]: burst must be at least 1 when requests_per_second is set", i)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
