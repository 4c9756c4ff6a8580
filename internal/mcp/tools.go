// ABOUTME: MCP tool definitions and registration for the digest server
// ABOUTME: Defines JSON schemas for the collection and digest tools
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/chatdigest/internal/storage/sqlite"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, collector Collector, generator Generator, store *sqlite.Storage) *Handlers {
	handlers := &Handlers{
		collector: collector,
		generator: generator,
		storage:   store,
	}

	// 1. collect_messages - Fetch a time window from all configured sources
	server.AddTool(mcp.Tool{
		Name:        "collect_messages",
		Description: "Collect chat messages from all configured sources across every collector account, deduplicate them, and persist them. Returns collection counts.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"hours_back": map[string]interface{}{
					"type":        "number",
					"description": "How many hours back from now to collect (default: 1)",
					"default":     1,
				},
				"limit_per_source": map[string]interface{}{
					"type":        "number",
					"description": "Maximum messages fetched per source (default: 100)",
					"default":     100,
				},
				"sources": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Optional source list overriding the configured ones",
				},
			},
		},
	}, handlers.CollectMessages)

	// 2. generate_digest - Summarize a stored time window into one report
	server.AddTool(mcp.Tool{
		Name:        "generate_digest",
		Description: "Generate a digest report over stored messages from the given time window. Chunks by token budget, summarizes each chunk, and aggregates.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"hours_back": map[string]interface{}{
					"type":        "number",
					"description": "How many hours back from now the digest window covers (default: 1)",
					"default":     1,
				},
			},
		},
	}, handlers.GenerateDigest)

	// 3. search_messages - Full-text search over stored messages
	server.AddTool(mcp.Tool{
		Name:        "search_messages",
		Description: "Search stored messages by content or summary substring.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results to return (default: 20)",
					"default":     20,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchMessages)

	return handlers
}
