package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/natefinch/atomic"
)

// GenerateSchema returns the JSON schema of the configuration file.
//
// Properties are named after the YAML keys. Only origins (and each origin's
// name) are required; everything else has a default.
func GenerateSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
	}

	schema := reflector.Reflect(&Config{})
	schema.Title = "sandboxfs Configuration"
	schema.Description = "Configuration schema for the sandboxfs daemon"
	schema.Version = "1.0.0"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteSchema writes the configuration schema to path atomically.
func WriteSchema(path string) error {
	data, err := GenerateSchema()
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write schema to %s: %w", path, err)
	}
	return nil
}
