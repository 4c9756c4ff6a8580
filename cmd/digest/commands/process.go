// ABOUTME: CLI command to summarize unprocessed stored messages
// ABOUTME: Scrapes linked pages and persists per-message summaries and tags
package commands

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/harper/chatdigest/internal/digest"
	"github.com/harper/chatdigest/internal/llm"
	"github.com/harper/chatdigest/internal/scraper"
)

var processLimit int

// NewProcessCmd creates the process command
func NewProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Summarize unprocessed messages one by one",
		Long: `Summarize unprocessed messages one by one.

Reads stored messages not yet summarized, fetches up to the configured
number of linked pages per message, asks the AI backend for a short
summary plus tags, and writes both back to storage.

Examples:
  digest process
  digest process --limit 20`,
		RunE: runProcess,
	}

	cmd.Flags().IntVar(&processLimit, "limit", 50, "Max messages to process in one run")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(processLimit, "limit"); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	backend, err := llm.New(cfg)
	if err != nil {
		return fmt.Errorf("initializing generation backend: %w", err)
	}

	messages, err := store.Messages().GetUnprocessed(processLimit)
	if err != nil {
		return fmt.Errorf("loading unprocessed messages: %w", err)
	}
	if len(messages) == 0 {
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "No unprocessed messages")
		}
		return nil
	}

	summarizer := digest.NewSummarizer(backend, cfg.AI.Temperature)
	pages := scraper.New(cfg.ReaderBaseURL, cfg.MaxLinks)

	done := 0
	for _, msg := range messages {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.AI.Timeout)
		scraped := pages.ScrapeMessage(ctx, msg)

		summary, tags, err := summarizer.SummarizeMessage(ctx, msg, scraped)
		cancel()
		if err != nil {
			log.Printf("[cli] Summarizing message %s failed: %v", msg.ID, err)
			continue
		}

		if err := store.Messages().UpdateSummary(msg.ID, summary, tags); err != nil {
			return fmt.Errorf("saving summary for %s: %w", msg.ID, err)
		}
		if err := store.Messages().MarkProcessed([]string{msg.ID}); err != nil {
			return fmt.Errorf("marking %s processed: %w", msg.ID, err)
		}
		done++
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Processed %d of %d messages\n", done, len(messages))
	}
	return nil
}
