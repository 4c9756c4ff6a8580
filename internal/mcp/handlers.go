// ABOUTME: MCP tool handler implementations for the digest server
// ABOUTME: Collection, digest generation and search with per-tool error handling
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/chatdigest/internal/models"
	"github.com/harper/chatdigest/internal/storage/sqlite"
)

// Collector fetches a deduplicated window from the configured sources
type Collector interface {
	Collect(ctx context.Context, start, end time.Time, limitPerSource int, overrideSources []string) ([]models.Message, error)
}

// Generator produces one digest over a record list
type Generator interface {
	Generate(ctx context.Context, records []models.Message) (models.DigestResult, error)
}

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	collector Collector
	generator Generator
	storage   *sqlite.Storage
}

// CollectMessages handles the collect_messages tool
func (h *Handlers) CollectMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hoursBack := request.GetInt("hours_back", 1)
	if hoursBack <= 0 {
		return mcp.NewToolResultError("hours_back must be positive"), nil
	}
	limit := request.GetInt("limit_per_source", 100)
	if limit <= 0 {
		return mcp.NewToolResultError("limit_per_source must be positive"), nil
	}
	sources := request.GetStringSlice("sources", nil)

	end := time.Now()
	start := end.Add(-time.Duration(hoursBack) * time.Hour)

	records, err := h.collector.Collect(ctx, start, end, limit, sources)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("collection failed: %v", err)), nil
	}

	inserted := 0
	if h.storage != nil {
		inserted, err = h.storage.Messages().SaveBatch(records)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to persist messages: %v", err)), nil
		}
	}

	return jsonResult(map[string]interface{}{
		"collected":    len(records),
		"new":          inserted,
		"period_start": start.Format(time.RFC3339),
		"period_end":   end.Format(time.RFC3339),
	})
}

// GenerateDigest handles the generate_digest tool
func (h *Handlers) GenerateDigest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hoursBack := request.GetInt("hours_back", 1)
	if hoursBack <= 0 {
		return mcp.NewToolResultError("hours_back must be positive"), nil
	}

	end := time.Now()
	start := end.Add(-time.Duration(hoursBack) * time.Hour)

	records, err := h.storage.Messages().Between(start, end)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load messages: %v", err)), nil
	}
	if len(records) == 0 {
		return jsonResult(map[string]interface{}{
			"digest":        "",
			"message_count": 0,
			"note":          "no messages in window",
		})
	}

	result, err := h.generator.Generate(ctx, records)
	if err != nil {
		// Parse errors are reported per batch but the digest itself is
		// still complete; anything else is fatal for the tool call.
		if result.Text == "" {
			return mcp.NewToolResultError(fmt.Sprintf("digest generation failed: %v", err)), nil
		}
		log.Printf("[MCP] Digest completed with unusable batch output: %v", err)
	}

	kind := models.ReportHourly
	if hoursBack >= 24 {
		kind = models.ReportDaily
	}
	report := &models.Report{
		Kind:         kind,
		PeriodStart:  start,
		PeriodEnd:    end,
		Content:      result.Text,
		MessageCount: len(records),
	}
	if err := h.storage.Reports().Save(report); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save report: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"report_id":     report.ID,
		"digest":        result.Text,
		"message_count": len(records),
		"batch_count":   result.BatchCount,
		"degraded":      result.Degraded,
	})
}

// SearchMessages handles the search_messages tool
func (h *Handlers) SearchMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	maxResults := request.GetInt("max_results", 20)

	msgs, err := h.storage.Messages().Search(query, maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"count":    len(msgs),
		"messages": msgs,
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
