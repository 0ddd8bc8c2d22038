package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/plazadev/plaza/internal/router"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Router   QueryRouter
	Searcher KnowledgeSearcher
}

// NewMCPServer exposes the assistant over MCP: one tool that answers like
// the query endpoint and one that returns raw knowledge-library matches.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"plaza",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("plaza municipal assistant: query routing and knowledge-library search per city."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask the city assistant a question. The query is classified and routed to the best execution strategy."),
			mcp.WithString("query", mcp.Description("The user's question"), mcp.Required()),
			mcp.WithString("city_slug", mcp.Description("City whose assistant should answer"), mcp.Required()),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("search_knowledge",
			mcp.WithDescription("Search a city's knowledge library and return the matching chunks with relevance scores."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithString("city_slug", mcp.Description("City whose library to search"), mcp.Required()),
		),
		mcpSearchKnowledge(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		city, err := req.RequireString("city_slug")
		if err != nil {
			return mcpError("city_slug is required"), nil
		}

		out := deps.Router.Route(ctx, router.Request{Query: query, City: city, UserID: "mcp"})
		if out.Err != nil {
			return mcpError(fmt.Sprintf("query failed: %v", out.Err)), nil
		}
		return mcpText(out.Response), nil
	}
}

func mcpSearchKnowledge(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		city, err := req.RequireString("city_slug")
		if err != nil {
			return mcpError("city_slug is required"), nil
		}

		results, err := deps.Searcher.Search(ctx, query, city)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(results) == 0 {
			return mcpText("[]"), nil
		}

		type matchResult struct {
			ChunkID     string  `json:"chunk_id"`
			SourceID    string  `json:"source_id"`
			SourceTitle string  `json:"source_title"`
			Content     string  `json:"content"`
			Similarity  float64 `json:"similarity"`
			Method      string  `json:"method"`
		}
		matches := make([]matchResult, len(results))
		for i, r := range results {
			matches[i] = matchResult{
				ChunkID:     r.ChunkID,
				SourceID:    r.SourceID,
				SourceTitle: r.SourceTitle,
				Content:     r.Content,
				Similarity:  r.Similarity,
				Method:      r.Method,
			}
		}

		b, err := json.Marshal(matches)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
