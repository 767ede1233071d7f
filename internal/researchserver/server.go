// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package researchserver exposes arXiv search and the paper store as an
// MCP server: tools for searching and querying saved papers, resources
// for browsing them, and a prompt template for topic surveys.
package researchserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pdiddy/research-assistant/internal/arxiv"
	"github.com/pdiddy/research-assistant/internal/paperstore"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// ServerName identifies this server to MCP clients.
const ServerName = "research-papers"

// Searcher finds papers for a topic. *arxiv.Client satisfies it; tests
// substitute a canned one.
type Searcher interface {
	Search(ctx context.Context, topic string, maxResults int) ([]arxiv.Paper, error)
}

// Server bundles the arXiv client and paper store behind MCP handlers.
type Server struct {
	search  Searcher
	store   *paperstore.Store
	version string
}

// New builds a Server over the given search backend and store.
func New(search Searcher, store *paperstore.Store, version string) *Server {
	return &Server{search: search, store: store, version: version}
}

// MCPServer assembles the MCP server with every tool, resource, and
// prompt registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(ServerName, s.version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
		server.WithLogging(),
	)

	srv.AddTool(mcp.NewTool("search_papers",
		mcp.WithDescription("Search for papers on arXiv based on a topic and store their information."),
		mcp.WithString("topic", mcp.Required(),
			mcp.Description("The topic to search for")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to retrieve (default: 5)"),
			mcp.DefaultNumber(float64(arxiv.DefaultMaxResults))),
	), s.handleSearchPapers)

	srv.AddTool(mcp.NewTool("extract_info",
		mcp.WithDescription("Search for information about a specific paper across all topic directories."),
		mcp.WithString("paper_id", mcp.Required(),
			mcp.Description("The ID of the paper to look for")),
	), s.handleExtractInfo)

	srv.AddTool(mcp.NewTool("list_topics",
		mcp.WithDescription("List all available research topics that have been searched."),
	), s.handleListTopics)

	srv.AddTool(mcp.NewTool("get_paper_count",
		mcp.WithDescription("Get the count of papers for a specific topic or all topics."),
		mcp.WithString("topic",
			mcp.Description("The topic to count papers for (optional, counts all topics when omitted)")),
	), s.handleGetPaperCount)

	srv.AddResource(mcp.NewResource("papers://folders", "Available Topics",
		mcp.WithResourceDescription("List of all topic folders with saved papers"),
		mcp.WithMIMEType("text/markdown"),
	), s.handleFolders)

	srv.AddResourceTemplate(mcp.NewResourceTemplate("papers://{topic}", "Topic Papers",
		mcp.WithTemplateDescription("Detailed information about papers saved for a topic"),
		mcp.WithTemplateMIMEType("text/markdown"),
	), s.handleTopic)

	srv.AddPrompt(mcp.NewPrompt("generate_search_prompt",
		mcp.WithPromptDescription("Generate a prompt to find and discuss academic papers on a specific topic."),
		mcp.WithArgument("topic", mcp.RequiredArgument(),
			mcp.ArgumentDescription("The topic to research")),
		mcp.WithArgument("num_papers",
			mcp.ArgumentDescription("How many papers to search for (default: 5)")),
	), s.handleSearchPrompt)

	return srv
}

// Serve runs the server on stdio until the client disconnects.
func (s *Server) Serve() error {
	return server.ServeStdio(s.MCPServer())
}

// handleSearchPapers searches arXiv, merges the results into the topic's
// papers_info.json, and returns the paper IDs found.
func (s *Server) handleSearchPapers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := request.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	maxResults := arxiv.DefaultMaxResults
	if v, ok := request.GetArguments()["max_results"].(float64); ok && v > 0 {
		maxResults = int(v)
	}

	papers, err := s.search.Search(ctx, topic, maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("searching arXiv: %v", err)), nil
	}

	// A fruitless search must not create the topic on disk.
	if len(papers) == 0 {
		return mcp.NewToolResultText("[]"), nil
	}

	ids := make([]string, 0, len(papers))
	records := make(map[string]types.PaperRecord, len(papers))
	for _, p := range papers {
		ids = append(ids, p.ID)
		records[p.ID] = p.Record()
	}

	if err := s.store.Merge(topic, records); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("saving papers: %v", err)), nil
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleExtractInfo looks a paper ID up across every topic directory.
func (s *Server) handleExtractInfo(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paperID, err := request.RequireString("paper_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, found := s.store.Extract(paperID)
	if !found {
		return mcp.NewToolResultText(paperstore.NotFoundMessage(paperID)), nil
	}
	return mcp.NewToolResultText(info), nil
}

func (s *Server) handleListTopics(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topics := s.store.Topics()
	if topics == nil {
		topics = []string{}
	}

	data, err := json.Marshal(topics)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetPaperCount(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, _ := request.GetArguments()["topic"].(string)

	counts := s.store.Counts(topic)

	data, err := json.MarshalIndent(counts, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleFolders serves the papers://folders resource.
func (s *Server) handleFolders(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	text := s.store.FoldersMarkdown()
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/markdown",
			Text:     text,
		},
	}, nil
}

// handleTopic serves papers://{topic} resources.
func (s *Server) handleTopic(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	topic := topicFromURI(request.Params.URI)
	text := s.store.TopicMarkdown(topic)
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/markdown",
			Text:     text,
		},
	}, nil
}

func (s *Server) handleSearchPrompt(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := request.Params.Arguments["topic"]
	if topic == "" {
		return nil, fmt.Errorf("missing required argument: topic")
	}

	numPapers := arxiv.DefaultMaxResults
	if raw := request.Params.Arguments["num_papers"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid num_papers %q", raw)
		}
		numPapers = n
	}

	text, err := renderSearchPrompt(topic, numPapers)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	return mcp.NewGetPromptResult(
		fmt.Sprintf("Search prompt for %d papers about %s", numPapers, topic),
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
		},
	), nil
}

func topicFromURI(uri string) string {
	const prefix = "papers://"
	if len(uri) > len(prefix) && uri[:len(prefix)] == prefix {
		return uri[len(prefix):]
	}
	return uri
}
