package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ToolDefinition describes one tool exposed by an in-process tool server.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// TypedTool builds a ToolDefinition whose input schema is reflected from T.
// T should be a struct with json and jsonschema struct tags:
//
//	type GrepParams struct {
//	    Pattern string `json:"pattern" jsonschema:"required,description=Regexp to search for"`
//	}
func TypedTool[T any](name, description string) ToolDefinition {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}

	var zero T
	schema := reflector.Reflect(zero)
	data, err := json.Marshal(schema)
	if err != nil {
		// Only reachable with types json.Marshal cannot handle.
		panic(fmt.Sprintf("reflect schema for %T: %v", zero, err))
	}

	return ToolDefinition{
		Name:        name,
		Description: description,
		InputSchema: json.RawMessage(data),
	}
}
