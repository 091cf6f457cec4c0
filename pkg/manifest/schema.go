package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// rawSchemaDoc is the structural shape the manifest table extracted from
// interpreter globals must satisfy before Parse is allowed to apply the
// semantic invariants (no "..", valid identifiers, bare hostnames). Catching
// malformed shapes here (wrong field types, unexpected extra top-level keys)
// gives an application author a clear startup-time error instead of a
// confusing panic deep inside Parse.
const rawSchemaDoc = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"fs": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"read":  { "type": "array", "items": { "type": "string" } },
				"write": { "type": "array", "items": { "type": "string" } }
			}
		},
		"env":   { "type": "array", "items": { "type": "string" } },
		"hosts": { "type": "array", "items": { "type": "string" } }
	}
}`

const rawSchemaResource = "hull://manifest-schema.json"

var rawSchema = compileRawSchema()

func compileRawSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(rawSchemaResource, bytes.NewReader([]byte(rawSchemaDoc))); err != nil {
		panic(fmt.Sprintf("manifest: invalid embedded schema: %v", err))
	}
	schema, err := compiler.Compile(rawSchemaResource)
	if err != nil {
		panic(fmt.Sprintf("manifest: schema compilation failed: %v", err))
	}
	return schema
}

// ValidateShape checks a manifest document (as decoded from JSON, i.e. a
// map[string]interface{}/[]interface{} tree) against the structural schema
// before it is unmarshalled into Raw. This is the first of the two
// validation passes spec §4.7 implies: structural, then semantic (Parse).
func ValidateShape(doc any) error {
	if err := rawSchema.Validate(doc); err != nil {
		return fmt.Errorf("manifest: shape validation failed: %w", err)
	}
	return nil
}

// ParseJSON decodes and validates a manifest document from JSON bytes in a
// single step: structural validation via ValidateShape, then semantic
// validation via Parse. The CLI "manifest" subcommand does not use it: it
// decodes into Raw and calls Parse directly, without shape validation.
func ParseJSON(data []byte) (*Manifest, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("manifest: invalid JSON: %w", err)
	}
	if err := ValidateShape(doc); err != nil {
		return nil, err
	}
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("manifest: invalid JSON: %w", err)
	}
	return Parse(raw)
}
