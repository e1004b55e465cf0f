// Package schema validates request bodies against embedded JSON Schemas.
package schema

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var files embed.FS

// ErrInvalid wraps every document-level validation failure.
var ErrInvalid = errors.New("schema validation failed")

// Validator validates documents against one compiled schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles a schema from raw bytes.
func NewValidator(schemaData []byte) (*Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaData))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// Load compiles one of the embedded schemas by name, e.g. "visit".
func Load(name string) (*Validator, error) {
	data, err := files.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("schema %q: %w", name, err)
	}
	return NewValidator(data)
}

// MustLoad is Load for schemas known at compile time.
func MustLoad(name string) *Validator {
	v, err := Load(name)
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateBytes validates raw JSON bytes.
func (v *Validator) ValidateBytes(data []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return nil
}
