// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry holds the active MCP backend sessions and the
// aggregated tool catalog. Backends are connected once at startup and
// held for the process lifetime; every tool call is routed by name to the
// session that registered it.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// ErrUnknownTool is returned by Dispatch when no registered backend
// exposes the requested tool name.
var ErrUnknownTool = errors.New("no such tool")

// Session is the subset of the MCP client used by the registry.
// *client.Client satisfies it; tests supply fakes.
type Session interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	ListPrompts(ctx context.Context, request mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error)
	GetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
	ReadResource(ctx context.Context, request mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error)
	Close() error
}

// PromptInfo pairs an advertised prompt with its owning backend.
type PromptInfo struct {
	Backend string
	Prompt  mcp.Prompt
}

// Registry indexes tools and prompts across all connected backends.
type Registry struct {
	sessions map[string]Session // backend name → session
	order    []string           // backend registration order
	byTool   map[string]string  // tool name → backend name
	byPrompt map[string]string  // prompt name → backend name
	catalog  []types.ToolDescriptor
	toolIdx  map[string]int // tool name → index into catalog
	prompts  []PromptInfo
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		sessions: make(map[string]Session),
		byTool:   make(map[string]string),
		byPrompt: make(map[string]string),
		toolIdx:  make(map[string]int),
	}
}

// LoadServerConfig reads the MCP backend list from a server_config.json
// file: {"mcpServers": {<name>: {command, args, env?}}}. A load or parse
// failure is fatal to startup, so it is returned as an error.
func LoadServerConfig(path string) (map[string]types.BackendSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading server config %s: %w", path, err)
	}

	var cfg struct {
		MCPServers map[string]types.BackendSpec `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing server config %s: %w", path, err)
	}
	return cfg.MCPServers, nil
}

// ConnectAll launches and registers every backend in the config file.
// An individual backend failure is reported to w and that backend is
// skipped; the remaining backends still register. Only a config load
// failure returns an error.
func (r *Registry) ConnectAll(ctx context.Context, configPath string, w io.Writer) error {
	specs, err := LoadServerConfig(configPath)
	if err != nil {
		return err
	}

	// Stable connection order so collision precedence is reproducible.
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sess, err := dial(ctx, name, specs[name])
		if err != nil {
			fmt.Fprintf(w, "warning: failed to connect to %s: %v\n", name, err)
			continue
		}
		if err := r.Register(ctx, name, sess, w); err != nil {
			fmt.Fprintf(w, "warning: failed to register %s: %v\n", name, err)
			sess.Close()
		}
	}
	return nil
}

// dial launches one backend process and completes the MCP handshake.
// Package-level var so tests can substitute fake sessions.
var dial = func(ctx context.Context, name string, spec types.BackendSpec) (Session, error) {
	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}

	c, err := client.NewStdioMCPClient(spec.Command, env, spec.Args...)
	if err != nil {
		return nil, fmt.Errorf("launching %s: %w", spec.Command, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "research-assistant",
		Version: "0.1",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("initializing session: %w", err)
	}
	return c, nil
}

// Register lists the backend's tools and merges them into the catalog,
// recording the owning backend for each name. On a tool-name collision the
// later registration wins and a warning naming both backends goes to w.
// Prompts are indexed too when the backend advertises any.
func (r *Registry) Register(ctx context.Context, name string, sess Session, w io.Writer) error {
	toolsResult, err := sess.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("listing tools: %w", err)
	}

	r.sessions[name] = sess
	r.order = append(r.order, name)

	var toolNames []string
	for _, tool := range toolsResult.Tools {
		schema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			fmt.Fprintf(w, "warning: skipping tool %s from %s: bad input schema: %v\n", tool.Name, name, err)
			continue
		}

		desc := types.ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		}

		if idx, exists := r.toolIdx[tool.Name]; exists {
			fmt.Fprintf(w, "warning: tool %q from %s shadows the one from %s\n",
				tool.Name, name, r.byTool[tool.Name])
			r.catalog[idx] = desc
		} else {
			r.toolIdx[tool.Name] = len(r.catalog)
			r.catalog = append(r.catalog, desc)
		}
		r.byTool[tool.Name] = name
		toolNames = append(toolNames, tool.Name)
	}

	fmt.Fprintf(w, "Connected to %s with tools: %s\n", name, strings.Join(toolNames, ", "))

	// Prompt listing is optional; backends without the capability fail the
	// call and that is fine.
	if promptsResult, err := sess.ListPrompts(ctx, mcp.ListPromptsRequest{}); err == nil {
		for _, p := range promptsResult.Prompts {
			r.byPrompt[p.Name] = name
			r.prompts = append(r.prompts, PromptInfo{Backend: name, Prompt: p})
		}
	}

	return nil
}

// Catalog returns the aggregated tool descriptors across all backends.
func (r *Registry) Catalog() []types.ToolDescriptor {
	out := make([]types.ToolDescriptor, len(r.catalog))
	copy(out, r.catalog)
	return out
}

// Dispatch routes one tool call to the backend that registered the name
// and returns the result flattened to text. An unregistered name returns
// ErrUnknownTool.
func (r *Registry) Dispatch(ctx context.Context, toolName string, args map[string]any) (string, error) {
	backend, ok := r.byTool[toolName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, toolName)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	result, err := r.sessions[backend].CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("calling %s on %s: %w", toolName, backend, err)
	}
	return FlattenContent(result.Content), nil
}

// Prompts returns every advertised prompt with its owning backend.
func (r *Registry) Prompts() []PromptInfo {
	out := make([]PromptInfo, len(r.prompts))
	copy(out, r.prompts)
	return out
}

// GetPrompt renders a named prompt template on its owning backend and
// returns the message texts joined together.
func (r *Registry) GetPrompt(ctx context.Context, name string, args map[string]string) (string, error) {
	backend, ok := r.byPrompt[name]
	if !ok {
		return "", fmt.Errorf("no backend exposes prompt %q", name)
	}

	req := mcp.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := r.sessions[backend].GetPrompt(ctx, req)
	if err != nil {
		return "", fmt.Errorf("getting prompt %s from %s: %w", name, backend, err)
	}

	var parts []string
	for _, msg := range result.Messages {
		parts = append(parts, FlattenContent([]mcp.Content{msg.Content}))
	}
	return strings.Join(parts, "\n"), nil
}

// ReadResource reads a resource URI, trying each backend in registration
// order until one serves it.
func (r *Registry) ReadResource(ctx context.Context, uri string) (string, error) {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri

	var lastErr error
	for _, name := range r.order {
		result, err := r.sessions[name].ReadResource(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}

		var parts []string
		for _, c := range result.Contents {
			if text, ok := c.(mcp.TextResourceContents); ok {
				parts = append(parts, text.Text)
			}
		}
		return strings.Join(parts, "\n"), nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("no backend served resource %q: %w", uri, lastErr)
	}
	return "", fmt.Errorf("no backend served resource %q", uri)
}

// Close releases every session. All sessions are closed even when some
// fail; their errors are joined.
func (r *Registry) Close() error {
	var errs []error
	for _, name := range r.order {
		if err := r.sessions[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// FlattenContent converts MCP content blocks to a plain string for the
// chat transcript: text blocks pass through, anything else is rendered as
// JSON.
func FlattenContent(content []mcp.Content) string {
	var parts []string
	for _, item := range content {
		switch c := item.(type) {
		case mcp.TextContent:
			parts = append(parts, c.Text)
		default:
			if data, err := json.Marshal(c); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}
