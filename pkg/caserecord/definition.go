package caserecord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Definition is a case as submitted for evaluation.
type Definition struct {
	CaseID  string          `json:"case_id"`
	Variant Variant         `json:"variant"`
	Input   json.RawMessage `json:"input"`
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(definitionSchemaURL, strings.NewReader(definitionSchema)); err != nil {
		return nil, fmt.Errorf("case definition schema load failed: %w", err)
	}
	return c.Compile(definitionSchemaURL)
})

// LoadDefinition reads and validates a case definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewDefinitionError(path, err)
	}
	def, err := parseDefinition(data)
	if err != nil {
		return nil, NewDefinitionError(path, err)
	}
	return def, nil
}

// ParseDefinition validates an in-memory case definition document.
func ParseDefinition(data []byte) (*Definition, error) {
	def, err := parseDefinition(data)
	if err != nil {
		return nil, NewDefinitionError("<inline>", err)
	}
	return def, nil
}

func parseDefinition(data []byte) (*Definition, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &def, nil
}

// CheckSchema reports whether a record written with version can be read by
// this package: the major versions must match and the version must not be
// newer than SchemaVersion.
func CheckSchema(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrIncompatibleSchema, version, err)
	}
	current := semver.MustParse(SchemaVersion)
	if v.Major() != current.Major() || v.GreaterThan(current) {
		return fmt.Errorf("%w: %s (supported %d.x up to %s)", ErrIncompatibleSchema, v, current.Major(), current)
	}
	return nil
}
