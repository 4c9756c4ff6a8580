// ABOUTME: CLI command to generate and deliver digest reports
// ABOUTME: Collects a window, runs the digest pipeline, saves and pushes
package commands

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/chatdigest/internal/charm"
	"github.com/harper/chatdigest/internal/config"
	"github.com/harper/chatdigest/internal/models"
	"github.com/harper/chatdigest/internal/report"
)

var (
	reportKind   string
	reportPush   bool
	reportNoSave bool
)

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a digest report and deliver it",
		Long: `Generate a digest report and deliver it.

Collects the report window from all sources, deduplicates, chunks by
token budget, summarizes with the configured AI backend, and saves the
result. With --push the report is also broadcast to the configured
channel through the main account.

Kinds:
  hourly  the past hour (default)
  daily   the 24h window ending at 08:00

Examples:
  digest report
  digest report --kind daily --push`,
		RunE: runReport,
	}

	cmd.Flags().StringVar(&reportKind, "kind", "hourly", "Report kind: hourly or daily")
	cmd.Flags().BoolVar(&reportPush, "push", false, "Push the report to the configured channel")
	cmd.Flags().BoolVar(&reportNoSave, "no-vault", false, "Skip writing the report to the vault")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	kind := models.ReportKind(reportKind)
	if kind != models.ReportHourly && kind != models.ReportDaily {
		return fmt.Errorf("kind must be hourly or daily, got %q", reportKind)
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

	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	var start, end time.Time
	if kind == models.ReportDaily {
		start, end = report.DailyWindow(time.Now())
	} else {
		start, end = report.HourlyWindow(time.Now())
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Collector.FetchTimeout+cfg.AI.Timeout)
	defer cancel()

	if orch.ConnectAll(ctx) == 0 {
		return fmt.Errorf("no sessions could connect")
	}
	defer orch.DisconnectAll()

	records, err := orch.Collect(ctx, start, end, cfg.Collector.MaxPerSource, nil)
	if err != nil {
		return fmt.Errorf("collection failed: %w", err)
	}
	if len(records) == 0 {
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "No new messages in the window, skipping report")
		}
		return nil
	}

	if _, err := store.Messages().SaveBatch(records); err != nil {
		return fmt.Errorf("persisting messages: %w", err)
	}

	result, err := pipeline.Generate(ctx, records)
	if err != nil {
		// Parse failures are contained per batch; the digest is complete
		log.Printf("[cli] Report generated with unusable batch output: %v", err)
	}
	if result.Text == "" {
		return fmt.Errorf("digest generation produced no output")
	}

	r := &models.Report{
		Kind:         kind,
		PeriodStart:  start,
		PeriodEnd:    end,
		Content:      result.Text,
		MessageCount: len(records),
	}
	if err := store.Reports().Save(r); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	if err := store.Messages().MarkProcessed(ids); err != nil {
		log.Printf("[cli] Marking messages processed failed: %v", err)
	}

	if !reportNoSave && cfg.VaultPath != "" {
		if _, err := report.SaveToVault(cfg.VaultPath, *r); err != nil {
			log.Printf("[cli] Vault save failed: %v", err)
		}
	}

	if cfg.AutoSync {
		mirrorReport(cfg, *r)
	}

	if reportPush {
		dest := cfg.PushDestination()
		if dest == "" {
			return fmt.Errorf("no push destination configured")
		}
		if !orch.Broadcast(ctx, report.RenderPush(*r), dest) {
			return fmt.Errorf("push to %s failed", dest)
		}
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Report %s generated over %d messages (%d batches",
			r.ID, len(records), result.BatchCount)
		if result.Degraded {
			fmt.Fprint(cmd.OutOrStdout(), ", degraded")
		}
		fmt.Fprintln(cmd.OutOrStdout(), ")")
	}
	return nil
}

// mirrorReport pushes the report to the charm cloud KV, best effort
func mirrorReport(cfg *config.Config, r models.Report) {
	client, err := charm.NewClient(&charm.Config{
		Host:     cfg.CharmHost,
		DBName:   cfg.CharmDBName,
		AutoSync: true,
	})
	if err != nil {
		log.Printf("[cli] Charm mirror unavailable: %v", err)
		return
	}
	defer client.Close()

	if err := client.SaveReport(r); err != nil {
		log.Printf("[cli] Charm mirror failed: %v", err)
	}
}
