package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type grepParams struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Regexp to search for"`
	Path    string `json:"path,omitempty" jsonschema:"description=Directory to search in"`
}

func TestTypedTool(t *testing.T) {
	def := TypedTool[grepParams]("grep", "Search files by regexp")
	assert.Equal(t, "grep", def.Name)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(def.InputSchema, &schema))
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "pattern")
	assert.Contains(t, props, "path")

	required, ok := schema["required"].([]any)
	require.True(t, ok)
	assert.Contains(t, required, "pattern")
}
