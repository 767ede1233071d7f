// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for components that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-assistant/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the arXiv search client.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the default number of search results (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MaxRetries is the number of retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// StoreConfig holds settings for the paper store.
type StoreConfig struct {
	// PapersDir is the base directory holding one subdirectory per
	// normalized topic (default "papers").
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`
}

// ChatConfig holds settings for the interactive chat command.
type ChatConfig struct {
	// Model is the chat completion model identifier (default "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against the chat completion API. Resolved from
	// config, then the OPENAI_API_KEY environment variable, then
	// .secrets/openai-api-key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens is the maximum output token budget per completion call
	// (default 2024).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MaxToolIterations bounds the number of model round-trips a single
	// query may consume before the loop aborts with an error (default 10).
	// Guards against a model that perpetually requests tools.
	MaxToolIterations int `json:"max_tool_iterations" yaml:"max_tool_iterations"`

	// ServerConfigFile is the path to the MCP backend configuration
	// (default "server_config.json").
	ServerConfigFile string `json:"server_config_file" yaml:"server_config_file"`

	// HistoryDB is the path to the SQLite chat history database. Empty
	// disables history recording.
	HistoryDB string `json:"history_db,omitempty" yaml:"history_db,omitempty"`
}

// BackendSpec describes how to launch and connect to one MCP backend
// process over stdio. Mirrors one entry of the "mcpServers" object in
// server_config.json.
type BackendSpec struct {
	// Command is the executable to launch.
	Command string `json:"command"`

	// Args are passed to the command.
	Args []string `json:"args,omitempty"`

	// Env lists extra environment variables for the process.
	Env map[string]string `json:"env,omitempty"`
}
