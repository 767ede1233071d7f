// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chat runs the conversation loop between a human, a
// chat-completion model, and the tool backends in the session registry.
package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/pdiddy/research-assistant/internal/registry"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// DefaultMaxToolIterations bounds the model/tool round trips for one query.
const DefaultMaxToolIterations = 10

// Completer produces one assistant turn for a transcript. The production
// implementation wraps the OpenAI API; tests substitute a scripted one.
type Completer interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
}

// Backends is the slice of the session registry the loop needs.
// *registry.Registry satisfies it.
type Backends interface {
	Catalog() []types.ToolDescriptor
	Dispatch(ctx context.Context, toolName string, args map[string]any) (string, error)
	Prompts() []registry.PromptInfo
	GetPrompt(ctx context.Context, name string, args map[string]string) (string, error)
	ReadResource(ctx context.Context, uri string) (string, error)
}

// Recorder receives each completed exchange, for session history.
type Recorder interface {
	RecordExchange(query, response string, toolCalls int) error
}

// Result summarizes one processed query.
type Result struct {
	FinalText string
	ToolCalls int
}

// Loop drives queries through the model, dispatching any tool calls the
// model requests until it answers in plain text.
type Loop struct {
	Completer Completer
	Backends  Backends
	Out       io.Writer

	SystemPrompt      string
	MaxToolIterations int

	// Recorder is optional; when set, every completed exchange is logged.
	Recorder Recorder
}

// RunQuery processes a single user query. Assistant text is printed to
// Out as soon as each turn arrives. Tool calls are dispatched in order
// and their results appended to the transcript; the loop ends when a
// turn requests no tools, or errors after MaxToolIterations rounds.
func (l *Loop) RunQuery(ctx context.Context, query string) (Result, error) {
	var messages []openai.ChatCompletionMessage
	if l.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: l.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: query,
	})

	tools := toolsFromCatalog(l.Backends.Catalog())

	maxIter := l.MaxToolIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxToolIterations
	}

	var res Result
	for i := 0; i < maxIter; i++ {
		msg, err := l.Completer.Complete(ctx, messages, tools)
		if err != nil {
			return res, fmt.Errorf("completing chat: %w", err)
		}

		if msg.Content != "" {
			fmt.Fprintln(l.Out, msg.Content)
			res.FinalText = msg.Content
		}
		messages = append(messages, msg)

		if len(msg.ToolCalls) == 0 {
			return res, nil
		}

		for _, tc := range msg.ToolCalls {
			args := map[string]any{}
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				fmt.Fprintf(l.Out, "warning: unparseable arguments for %s, calling with none: %v\n",
					tc.Function.Name, err)
				args = map[string]any{}
			}

			fmt.Fprintf(l.Out, "Calling tool %s with args %v\n", tc.Function.Name, args)

			out, err := l.Backends.Dispatch(ctx, tc.Function.Name, args)
			if err != nil {
				// The model gets the failure as the tool result and can
				// recover or report it.
				out = fmt.Sprintf("tool error: %v", err)
			}
			res.ToolCalls++

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    out,
				ToolCallID: tc.ID,
			})
		}
	}

	return res, fmt.Errorf("query exceeded %d tool iterations", maxIter)
}

// Interactive reads queries from in until EOF or a case-insensitive
// "quit". Lines starting with @ read paper resources, /prompts lists
// the advertised prompt templates, and /prompt renders one and runs it
// as a query. Errors from a query are printed and the loop continues.
func (l *Loop) Interactive(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(l.Out, "Type your queries or 'quit' to exit.")
	fmt.Fprintln(l.Out, "Use @folders to see topics, @<topic> for papers, /prompts to list prompts.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(l.Out, "\nQuery: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") {
			break
		}

		if handled, err := l.command(ctx, line); handled {
			if err != nil {
				fmt.Fprintf(l.Out, "error: %v\n", err)
			}
			continue
		}

		if err := l.runAndRecord(ctx, line); err != nil {
			fmt.Fprintf(l.Out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

// runAndRecord runs a query and, on success, records the exchange.
// Recording failures are warnings, not errors.
func (l *Loop) runAndRecord(ctx context.Context, query string) error {
	res, err := l.RunQuery(ctx, query)
	if err != nil {
		return err
	}
	if l.Recorder != nil {
		if err := l.Recorder.RecordExchange(query, res.FinalText, res.ToolCalls); err != nil {
			fmt.Fprintf(l.Out, "warning: recording history: %v\n", err)
		}
	}
	return nil
}

// command handles @resource and /prompt lines. It reports whether the
// line was a command at all.
func (l *Loop) command(ctx context.Context, line string) (bool, error) {
	switch {
	case strings.HasPrefix(line, "@"):
		topic := strings.TrimPrefix(line, "@")
		uri := "papers://folders"
		if topic != "folders" {
			uri = "papers://" + topic
		}
		text, err := l.Backends.ReadResource(ctx, uri)
		if err != nil {
			return true, err
		}
		fmt.Fprintln(l.Out, text)
		return true, nil

	case line == "/prompts":
		prompts := l.Backends.Prompts()
		if len(prompts) == 0 {
			fmt.Fprintln(l.Out, "No prompts available.")
			return true, nil
		}
		fmt.Fprintln(l.Out, "Available prompts:")
		for _, p := range prompts {
			fmt.Fprintf(l.Out, "- %s: %s\n", p.Prompt.Name, p.Prompt.Description)
		}
		return true, nil

	case strings.HasPrefix(line, "/prompt "):
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return true, fmt.Errorf("usage: /prompt <name> [key=value ...]")
		}
		name := fields[1]
		args := make(map[string]string)
		for _, kv := range fields[2:] {
			if k, v, ok := strings.Cut(kv, "="); ok {
				args[k] = v
			}
		}
		text, err := l.Backends.GetPrompt(ctx, name, args)
		if err != nil {
			return true, err
		}
		return true, l.runAndRecord(ctx, text)

	case strings.HasPrefix(line, "/"):
		return true, fmt.Errorf("unknown command %q", line)
	}
	return false, nil
}

// toolsFromCatalog converts registry descriptors to the OpenAI tool
// format, passing the JSON Schema through untouched.
func toolsFromCatalog(catalog []types.ToolDescriptor) []openai.Tool {
	tools := make([]openai.Tool, 0, len(catalog))
	for _, d := range catalog {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  json.RawMessage(d.InputSchema),
			},
		})
	}
	return tools
}
