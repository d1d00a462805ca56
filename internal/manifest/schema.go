package manifest

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// the fields the setup writes; legacy names must not block a run
const releaseSchemaJSON = `{
  "type": "object",
  "properties": {
    "version": {"type": "string"},
    "scripts": {"type": "object", "additionalProperties": {"type": "string"}},
    "repository": {
      "oneOf": [
        {"type": "string"},
        {"type": "object", "properties": {"type": {"type": "string"}, "url": {"type": "string"}}, "required": ["url"]}
      ]
    },
    "devDependencies": {"type": "object", "additionalProperties": {"type": "string"}},
    "publishConfig": {
      "type": "object",
      "properties": {
        "access": {"enum": ["public", "restricted"]},
        "registry": {"type": "string"}
      }
    }
  }
}`

// a publishable name on top of the release fields
const packageSchemaJSON = `{
  "allOf": [
    ` + releaseSchemaJSON + `,
    {
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1, "maxLength": 214, "pattern": "^(@[a-z0-9~-][a-z0-9._~-]*/)?[a-z0-9~-][a-z0-9._~-]*$"}
      }
    }
  ]
}`

var (
	releaseSchema = gojsonschema.NewStringLoader(releaseSchemaJSON)
	packageSchema = gojsonschema.NewStringLoader(packageSchemaJSON)
)

// ValidationError lists every schema violation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid package.json: %s", strings.Join(e.Problems, "; "))
}

// Validate checks the release fields and that the package name is
// publishable.
func Validate(m *Manifest) error {
	return validate(packageSchema, m)
}

// ValidateRelease checks only the fields the setup writes.
func ValidateRelease(m *Manifest) error {
	return validate(releaseSchema, m)
}

func validate(schema gojsonschema.JSONLoader, m *Manifest) error {
	data, err := m.Bytes()
	if err != nil {
		return err
	}
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate package.json: %w", err)
	}
	if result.Valid() {
		return nil
	}
	verr := &ValidationError{}
	for _, e := range result.Errors() {
		verr.Problems = append(verr.Problems, e.String())
	}
	return verr
}
