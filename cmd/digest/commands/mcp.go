// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Enables LLM agents to collect and digest chats via stdio
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/chatdigest/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs chatdigest as an MCP (Model Context Protocol) server, enabling
LLM agents like Claude to collect messages, search history and
generate digests via stdio.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by the agent host)
  digest mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "chatdigest": {
  #       "command": "digest",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if orch.ConnectAll(ctx) == 0 {
		return fmt.Errorf("no collector accounts could connect")
	}
	defer orch.DisconnectAll()

	// Create MCP server
	server := mcpserver.NewMCPServer(
		"chatdigest",
		versionInfo.Version,
	)

	mcp.RegisterTools(server, orch, pipeline, store)

	if !quiet {
		log.Println("[mcp] chatdigest MCP server starting on stdio...")
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("[mcp] Shutdown signal received, gracefully shutting down...")
		}

		if err := store.Close(); err != nil {
			log.Printf("[mcp] Warning: error closing storage: %v", err)
		}

		if !quiet {
			log.Println("[mcp] Shutdown complete")
		}

	case err := <-serverErr:
		store.Close()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
