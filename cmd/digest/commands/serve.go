// ABOUTME: CLI command to run the status dashboard HTTP server
// ABOUTME: Also watches the sources file for hot reloads while serving
package commands

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/harper/chatdigest/internal/config"
	"github.com/harper/chatdigest/internal/web"
)

var serveAddr string

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the status dashboard",
		Long: `Run the read-only status dashboard.

Serves JSON endpoints for recent messages, reports and collection
stats. When a sources file is configured it is watched for changes so
the next collection run picks them up.

Examples:
  digest serve
  digest serve --addr :9090`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to DASHBOARD_ADDR)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Collector.SourcesFile != "" {
		watchCtx, stop := context.WithCancel(cmd.Context())
		defer stop()
		go func() {
			err := config.WatchSources(watchCtx, cfg.Collector.SourcesFile, func(s *config.Sources) {
				cfg.ApplySources(s)
			})
			if err != nil && watchCtx.Err() == nil {
				log.Printf("[cli] Sources watch stopped: %v", err)
			}
		}()
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.DashboardAddr
	}
	if addr == "" {
		return fmt.Errorf("no listen address configured")
	}

	return web.NewServer(store).ListenAndServe(addr)
}
