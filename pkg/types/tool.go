// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "encoding/json"

// ToolDescriptor describes one callable tool exposed by a connected MCP
// backend. Descriptors are collected into a flat catalog at connection time
// and passed verbatim to the chat completion API as the callable-function
// list. Immutable once registered.
type ToolDescriptor struct {
	// Name is unique within the catalog; on a collision across backends the
	// later registration wins.
	Name string `json:"name"`

	// Description is the human-readable tool description from the backend.
	Description string `json:"description"`

	// InputSchema is the tool's JSON Schema for arguments, passed through
	// without interpretation.
	InputSchema json.RawMessage `json:"input_schema"`
}
