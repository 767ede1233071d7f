// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/internal/registry"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// scriptedCompleter replays a fixed sequence of assistant turns and
// records the transcript it saw at each step.
type scriptedCompleter struct {
	turns []openai.ChatCompletionMessage
	err   error
	seen  [][]openai.ChatCompletionMessage
	tools []openai.Tool
}

func (s *scriptedCompleter) Complete(_ context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	s.seen = append(s.seen, append([]openai.ChatCompletionMessage(nil), messages...))
	s.tools = tools
	if s.err != nil {
		return openai.ChatCompletionMessage{}, s.err
	}
	if len(s.turns) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "done"}, nil
	}
	turn := s.turns[0]
	s.turns = s.turns[1:]
	return turn, nil
}

type fakeBackends struct {
	catalog     []types.ToolDescriptor
	dispatchErr error
	dispatched  []string
	lastArgs    map[string]any
	resources   map[string]string
	prompts     []registry.PromptInfo
	promptText  string
}

func (f *fakeBackends) Catalog() []types.ToolDescriptor { return f.catalog }

func (f *fakeBackends) Dispatch(_ context.Context, toolName string, args map[string]any) (string, error) {
	f.dispatched = append(f.dispatched, toolName)
	f.lastArgs = args
	if f.dispatchErr != nil {
		return "", f.dispatchErr
	}
	return "result of " + toolName, nil
}

func (f *fakeBackends) Prompts() []registry.PromptInfo { return f.prompts }

func (f *fakeBackends) GetPrompt(_ context.Context, name string, _ map[string]string) (string, error) {
	if f.promptText == "" {
		return "", fmt.Errorf("no prompt %q", name)
	}
	return f.promptText, nil
}

func (f *fakeBackends) ReadResource(_ context.Context, uri string) (string, error) {
	text, ok := f.resources[uri]
	if !ok {
		return "", fmt.Errorf("no resource %q", uri)
	}
	return text, nil
}

func toolTurn(id, name, args string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{{
			ID:   id,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func textTurn(text string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}
}

func TestRunQueryPlainAnswer(t *testing.T) {
	comp := &scriptedCompleter{turns: []openai.ChatCompletionMessage{textTurn("hello there")}}
	var out bytes.Buffer
	l := &Loop{Completer: comp, Backends: &fakeBackends{}, Out: &out}

	res, err := l.RunQuery(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", res.FinalText)
	assert.Zero(t, res.ToolCalls)
	assert.Contains(t, out.String(), "hello there")

	// The user query is the last transcript entry the model saw.
	require.Len(t, comp.seen, 1)
	last := comp.seen[0][len(comp.seen[0])-1]
	assert.Equal(t, openai.ChatMessageRoleUser, last.Role)
	assert.Equal(t, "hi", last.Content)
}

func TestRunQuerySystemPromptAndCatalog(t *testing.T) {
	comp := &scriptedCompleter{turns: []openai.ChatCompletionMessage{textTurn("ok")}}
	backends := &fakeBackends{catalog: []types.ToolDescriptor{
		{Name: "search_papers", Description: "search arXiv", InputSchema: []byte(`{"type":"object"}`)},
	}}
	l := &Loop{Completer: comp, Backends: backends, Out: &bytes.Buffer{}, SystemPrompt: "You are a research assistant."}

	_, err := l.RunQuery(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, openai.ChatMessageRoleSystem, comp.seen[0][0].Role)
	require.Len(t, comp.tools, 1)
	assert.Equal(t, "search_papers", comp.tools[0].Function.Name)
}

func TestRunQueryDispatchesToolCalls(t *testing.T) {
	comp := &scriptedCompleter{turns: []openai.ChatCompletionMessage{
		toolTurn("call-1", "search_papers", `{"topic": "quantum computing", "max_results": 5}`),
		textTurn("I found some papers."),
	}}
	backends := &fakeBackends{}
	var out bytes.Buffer
	l := &Loop{Completer: comp, Backends: backends, Out: &out}

	res, err := l.RunQuery(context.Background(), "find papers on quantum computing")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ToolCalls)
	assert.Equal(t, "I found some papers.", res.FinalText)
	assert.Equal(t, []string{"search_papers"}, backends.dispatched)
	assert.Equal(t, "quantum computing", backends.lastArgs["topic"])

	// Second completion saw the tool result keyed to the call ID.
	require.Len(t, comp.seen, 2)
	transcript := comp.seen[1]
	toolMsg := transcript[len(transcript)-1]
	assert.Equal(t, openai.ChatMessageRoleTool, toolMsg.Role)
	assert.Equal(t, "call-1", toolMsg.ToolCallID)
	assert.Equal(t, "result of search_papers", toolMsg.Content)

	assert.Contains(t, out.String(), "Calling tool search_papers")
}

func TestRunQueryBadToolArguments(t *testing.T) {
	comp := &scriptedCompleter{turns: []openai.ChatCompletionMessage{
		toolTurn("call-1", "list_topics", `{not json`),
		textTurn("done"),
	}}
	backends := &fakeBackends{}
	var out bytes.Buffer
	l := &Loop{Completer: comp, Backends: backends, Out: &out}

	_, err := l.RunQuery(context.Background(), "topics?")
	require.NoError(t, err)

	// The call still goes through, with no arguments.
	require.Equal(t, []string{"list_topics"}, backends.dispatched)
	assert.Empty(t, backends.lastArgs)
	assert.Contains(t, out.String(), "unparseable arguments for list_topics")
}

func TestRunQueryToolErrorFedBackToModel(t *testing.T) {
	comp := &scriptedCompleter{turns: []openai.ChatCompletionMessage{
		toolTurn("call-1", "extract_info", `{"paper_id": "1310.7911v2"}`),
		textTurn("the tool failed"),
	}}
	backends := &fakeBackends{dispatchErr: errors.New("backend gone")}
	l := &Loop{Completer: comp, Backends: backends, Out: &bytes.Buffer{}}

	_, err := l.RunQuery(context.Background(), "extract")
	require.NoError(t, err, "a tool failure must not abort the query")

	transcript := comp.seen[1]
	toolMsg := transcript[len(transcript)-1]
	assert.Contains(t, toolMsg.Content, "tool error: backend gone")
}

func TestRunQueryIterationCap(t *testing.T) {
	// A model that never stops asking for tools.
	comp := &scriptedCompleter{turns: []openai.ChatCompletionMessage{
		toolTurn("c1", "search_papers", `{}`),
		toolTurn("c2", "search_papers", `{}`),
		toolTurn("c3", "search_papers", `{}`),
	}}
	l := &Loop{Completer: comp, Backends: &fakeBackends{}, Out: &bytes.Buffer{}, MaxToolIterations: 3}

	_, err := l.RunQuery(context.Background(), "loop forever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 tool iterations")
}

func TestRunQueryCompleterError(t *testing.T) {
	comp := &scriptedCompleter{err: errors.New("rate limited")}
	l := &Loop{Completer: comp, Backends: &fakeBackends{}, Out: &bytes.Buffer{}}

	_, err := l.RunQuery(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

type countingRecorder struct {
	queries   []string
	responses []string
	calls     []int
	err       error
}

func (c *countingRecorder) RecordExchange(query, response string, toolCalls int) error {
	c.queries = append(c.queries, query)
	c.responses = append(c.responses, response)
	c.calls = append(c.calls, toolCalls)
	return c.err
}

func TestInteractiveLoop(t *testing.T) {
	comp := &scriptedCompleter{turns: []openai.ChatCompletionMessage{
		textTurn("answer one"),
		textTurn("answer two"),
	}}
	rec := &countingRecorder{}
	var out bytes.Buffer
	l := &Loop{Completer: comp, Backends: &fakeBackends{}, Out: &out, Recorder: rec}

	in := strings.NewReader("first question\n\nsecond question\nQUIT\nnever seen\n")
	require.NoError(t, l.Interactive(context.Background(), in))

	// Blank line skipped, QUIT (any case) stops before the last line.
	assert.Equal(t, []string{"first question", "second question"}, rec.queries)
	assert.Equal(t, []string{"answer one", "answer two"}, rec.responses)
	assert.Contains(t, out.String(), "answer one")
	assert.NotContains(t, out.String(), "never seen")
}

func TestInteractiveContinuesAfterQueryError(t *testing.T) {
	comp := &scriptedCompleter{err: errors.New("model down")}
	var out bytes.Buffer
	l := &Loop{Completer: comp, Backends: &fakeBackends{}, Out: &out}

	in := strings.NewReader("one\ntwo\nquit\n")
	require.NoError(t, l.Interactive(context.Background(), in))

	// Both queries were attempted; both errors surfaced.
	assert.Len(t, comp.seen, 2)
	assert.Contains(t, out.String(), "model down")
}

func TestInteractiveResourceCommands(t *testing.T) {
	backends := &fakeBackends{resources: map[string]string{
		"papers://folders":           "# Available Topics\n- quantum computing",
		"papers://quantum computing": "# Papers on Quantum Computing",
	}}
	var out bytes.Buffer
	l := &Loop{Completer: &scriptedCompleter{}, Backends: backends, Out: &out}

	in := strings.NewReader("@folders\n@quantum computing\n@missing\nquit\n")
	require.NoError(t, l.Interactive(context.Background(), in))

	assert.Contains(t, out.String(), "# Available Topics")
	assert.Contains(t, out.String(), "# Papers on Quantum Computing")
	assert.Contains(t, out.String(), `error: no resource "papers://missing"`)
}

func TestInteractivePromptCommands(t *testing.T) {
	backends := &fakeBackends{
		prompts: []registry.PromptInfo{{Backend: "research", Prompt: mcp.Prompt{
			Name:        "generate_search_prompt",
			Description: "Search arXiv for a topic",
		}}},
		// The rendered prompt is run as a regular query.
		promptText: "Search for papers about llm interpretability.",
	}
	comp := &scriptedCompleter{turns: []openai.ChatCompletionMessage{textTurn("searching...")}}
	var out bytes.Buffer
	l := &Loop{Completer: comp, Backends: backends, Out: &out}

	in := strings.NewReader("/prompts\n/prompt generate_search_prompt topic=llm\n/bogus\nquit\n")
	require.NoError(t, l.Interactive(context.Background(), in))

	assert.Contains(t, out.String(), "generate_search_prompt: Search arXiv for a topic")
	assert.Contains(t, out.String(), "searching...")
	assert.Contains(t, out.String(), `unknown command "/bogus"`)

	require.Len(t, comp.seen, 1)
	last := comp.seen[0][len(comp.seen[0])-1]
	assert.Equal(t, "Search for papers about llm interpretability.", last.Content)
}

func TestInteractivePromptQueryIsRecorded(t *testing.T) {
	backends := &fakeBackends{
		prompts: []registry.PromptInfo{{Backend: "research", Prompt: mcp.Prompt{
			Name: "generate_search_prompt",
		}}},
		promptText: "Search for papers about llm interpretability.",
	}
	comp := &scriptedCompleter{turns: []openai.ChatCompletionMessage{textTurn("found three papers")}}
	rec := &countingRecorder{}
	var out bytes.Buffer
	l := &Loop{Completer: comp, Backends: backends, Out: &out, Recorder: rec}

	in := strings.NewReader("/prompt generate_search_prompt topic=llm\nquit\n")
	require.NoError(t, l.Interactive(context.Background(), in))

	// Prompt-driven exchanges land in history like plain ones.
	assert.Equal(t, []string{"Search for papers about llm interpretability."}, rec.queries)
	assert.Equal(t, []string{"found three papers"}, rec.responses)
}
