package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/mcp-runtime-go/pkg/invoker"
)

func TestSchemaFromParams(t *testing.T) {
	t.Run("FullSpecs", func(t *testing.T) {
		schema, err := SchemaFromParams([]invoker.ParamSpec{
			{Name: "path", Description: "File path", Type: "string", Required: true},
			{Name: "limit", Type: "integer"},
			{Name: "recursive", Type: "boolean", Required: true},
		})
		require.NoError(t, err)

		assert.JSONEq(t, `{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "File path"},
				"limit": {"type": "integer"},
				"recursive": {"type": "boolean"}
			},
			"required": ["path", "recursive"]
		}`, string(schema))
	})

	t.Run("MissingTypeDefaultsToString", func(t *testing.T) {
		schema, err := SchemaFromParams([]invoker.ParamSpec{{Name: "query"}})
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"type": "object",
			"properties": {"query": {"type": "string"}}
		}`, string(schema))
	})

	t.Run("NoParams", func(t *testing.T) {
		schema, err := SchemaFromParams(nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type": "object", "properties": {}}`, string(schema))
	})
}
