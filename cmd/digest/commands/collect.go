// ABOUTME: CLI command to collect messages from all configured sources
// ABOUTME: Fetches a time window, deduplicates, and persists
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	collectHours   int
	collectLimit   int
	collectSources []string
)

// NewCollectCmd creates the collect command
func NewCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect messages from all monitored sources",
		Long: `Collect messages from all monitored sources.

Fetches the past N hours from every (account, source) pair concurrently,
deduplicates across accounts, and stores the result.

Examples:
  digest collect
  digest collect --hours 4
  digest collect --sources @somechannel --sources "Name|-100123456"`,
		RunE: runCollect,
	}

	cmd.Flags().IntVar(&collectHours, "hours", 1, "How many hours back to collect")
	cmd.Flags().IntVar(&collectLimit, "limit", 0, "Max messages per source (0 = configured default)")
	cmd.Flags().StringArrayVar(&collectSources, "sources", nil, "Override the configured source lists")

	return cmd
}

func runCollect(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(collectHours, "hours"); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Collector.FetchTimeout)
	defer cancel()

	if orch.ConnectAll(ctx) == 0 {
		return fmt.Errorf("no sessions could connect")
	}
	defer orch.DisconnectAll()

	limit := collectLimit
	if limit <= 0 {
		limit = cfg.Collector.MaxPerSource
	}

	end := time.Now()
	start := end.Add(-time.Duration(collectHours) * time.Hour)

	records, err := orch.Collect(ctx, start, end, limit, collectSources)
	if err != nil {
		return fmt.Errorf("collection failed: %w", err)
	}

	inserted, err := store.Messages().SaveBatch(records)
	if err != nil {
		return fmt.Errorf("persisting messages: %w", err)
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Collected %d messages (%d new) from the past %dh\n",
			len(records), inserted, collectHours)
	}
	return nil
}
