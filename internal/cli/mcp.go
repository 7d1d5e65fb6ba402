package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/cache"
	"github.com/colthorp/devdocs-cli-go/internal/core"
	"github.com/colthorp/devdocs-cli-go/internal/queries"
)

const recentSearchesURI = "devdocs://searches/recent"

// runMCPServer serves MCP over stdio until ctx is done or stdin closes.
func runMCPServer(ctx context.Context, q *queries.Client) error {
	stdio := server.NewStdioServer(NewMCPServer(q))
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// NewMCPServer creates an MCP server exposing the knowledge base as tools.
// Every tool reads and writes through q, so repeated calls share its cache.
func NewMCPServer(q *queries.Client) *server.MCPServer {
	s := server.NewMCPServer(
		"devdocs",
		core.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("DevDocs: a personal knowledge base of code solutions. Search before answering coding questions; save reusable snippets."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_solutions",
			mcp.WithDescription("Semantic search over saved code solutions. Results are ranked by similarity."),
			mcp.WithString("query", mcp.Description("Search query, at least 3 characters"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpSearch(q),
	)

	s.AddTool(
		mcp.NewTool("get_solution",
			mcp.WithDescription("Fetch one solution, including its code, by id."),
			mcp.WithString("id", mcp.Description("Solution id"), mcp.Required()),
		),
		mcpGetSolution(q),
	)

	s.AddTool(
		mcp.NewTool("list_solutions",
			mcp.WithDescription("List solutions newest first, optionally filtered by language or tag."),
			mcp.WithNumber("page", mcp.Description("Page number (default 1)")),
			mcp.WithNumber("page_size", mcp.Description("Solutions per page (default 20, max 100)")),
			mcp.WithString("language", mcp.Description("Only this language")),
			mcp.WithString("tag", mcp.Description("Only this tag")),
		),
		mcpListSolutions(q),
	)

	s.AddTool(
		mcp.NewTool("create_solution",
			mcp.WithDescription("Save a new code solution to the knowledge base."),
			mcp.WithString("title", mcp.Description("Title, 5-200 characters"), mcp.Required()),
			mcp.WithString("description", mcp.Description("What the code solves, 20-2000 characters"), mcp.Required()),
			mcp.WithString("code", mcp.Description("The code, 10-5000 characters"), mcp.Required()),
			mcp.WithString("language", mcp.Description("Programming language"), mcp.Required()),
			mcp.WithArray("tags", mcp.Description("At least one tag"), mcp.Required()),
		),
		mcpCreateSolution(q),
	)

	s.AddTool(
		mcp.NewTool("dashboard_stats",
			mcp.WithDescription("Aggregate counts: solutions, languages, tags and searches."),
		),
		mcpDashboardStats(q),
	)

	s.AddTool(
		mcp.NewTool("recent_solutions",
			mcp.WithDescription("The most recently added solutions."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of solutions (default 5)")),
		),
		mcpRecentSolutions(q),
	)

	s.AddResource(
		mcp.NewResource(
			recentSearchesURI,
			"Recent Searches",
			mcp.WithResourceDescription("The last five searches run from this machine, newest first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecentSearches(q),
	)

	return s
}

func mcpSearch(q *queries.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		limit := req.GetInt("limit", core.DefaultSearchLimit)
		if limit <= 0 || limit > 50 {
			limit = core.DefaultSearchLimit
		}

		results, err := q.RunSearch(ctx, query, limit)
		if errors.Is(err, cache.ErrDisabled) {
			return mcpError(fmt.Sprintf("query must be at least %d characters", core.MinSearchQueryLength)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %s", userMessage(err))), nil
		}
		return mcpJSON(results)
	}
}

func mcpGetSolution(q *queries.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		sol, err := q.Solution(id).Fetch(ctx)
		if err != nil {
			if api.KindOf(err) == api.KindNotFound {
				return mcpError(fmt.Sprintf("solution %s not found", id)), nil
			}
			return mcpError(fmt.Sprintf("failed to fetch solution: %s", userMessage(err))), nil
		}
		return mcpJSON(sol)
	}
}

func mcpListSolutions(q *queries.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := api.ListParams{
			Page:     req.GetInt("page", 1),
			PageSize: req.GetInt("page_size", core.DefaultPageSize),
			Language: req.GetString("language", ""),
			Tag:      req.GetString("tag", ""),
		}
		page, err := q.SolutionsPage(params).Fetch(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list solutions: %s", userMessage(err))), nil
		}
		return mcpJSON(page)
	}
}

func mcpCreateSolution(q *queries.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in := api.SolutionInput{
			Title:       req.GetString("title", ""),
			Description: req.GetString("description", ""),
			Code:        req.GetString("code", ""),
			Language:    req.GetString("language", ""),
			Tags:        req.GetStringSlice("tags", nil),
		}
		sol, err := q.CreateSolution().Mutate(ctx, in)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to create solution: %s", userMessage(err))), nil
		}
		return mcpJSON(sol)
	}
}

func mcpDashboardStats(q *queries.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := q.Stats().Fetch(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load stats: %s", userMessage(err))), nil
		}
		return mcpJSON(stats)
	}
}

func mcpRecentSolutions(q *queries.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sols, err := q.Recent(req.GetInt("limit", core.DefaultRecentLimit)).Fetch(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load recent solutions: %s", userMessage(err))), nil
		}
		return mcpJSON(sols)
	}
}

func mcpResourceRecentSearches(q *queries.Client) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		searches := []string{}
		if h := q.History(); h != nil {
			list, err := h.List()
			if err != nil {
				return nil, fmt.Errorf("failed to read search history: %w", err)
			}
			searches = list
		}

		b, err := json.Marshal(searches)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal searches: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
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
