// Package utils carries small pure helpers shared across the runtime: the
// parameter-spec to JSON-Schema mapping used by list assembly, and test
// support for goroutine hygiene.
package utils

import (
	"encoding/json"
	"fmt"

	"github.com/agentforge/mcp-runtime-go/pkg/invoker"
)

// schemaProperty is one property of a generated object schema
type schemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// objectSchema is the JSON-Schema-like shape produced for a parameter list
type objectSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

// SchemaFromParams turns ordered parameter specs into a JSON-Schema-like
// object for tools/list and prompts/list response assembly. A spec with no
// type tag is described as a string.
func SchemaFromParams(specs []invoker.ParamSpec) (json.RawMessage, error) {
	schema := objectSchema{
		Type:       "object",
		Properties: make(map[string]schemaProperty, len(specs)),
	}

	for _, spec := range specs {
		typeTag := spec.Type
		if typeTag == "" {
			typeTag = "string"
		}
		schema.Properties[spec.Name] = schemaProperty{
			Type:        typeTag,
			Description: spec.Description,
		}
		if spec.Required {
			schema.Required = append(schema.Required, spec.Name)
		}
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
