// ABOUTME: CLI command to send text to the configured broadcast channel
// ABOUTME: Goes through the main account's session
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/chatdigest/internal/report"
)

var sendDestination string

// NewSendCmd creates the send command
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [text...]",
		Short: "Send text to the broadcast channel",
		Long: `Send text to the broadcast channel through the main account.

The destination defaults to the configured channel; --to overrides it.

Examples:
  digest send "Manual update: maintenance at 20:00"
  digest send --to @otherchannel "hello"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSend,
	}

	cmd.Flags().StringVar(&sendDestination, "to", "", "Destination identifier (defaults to the configured channel)")

	return cmd
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	dest := sendDestination
	if dest == "" {
		dest = cfg.PushDestination()
	}
	if dest == "" {
		return fmt.Errorf("no destination configured; set TELEGRAM_CHANNEL_USERNAME or use --to")
	}

	text := report.Truncate(strings.Join(args, " "), 4000)
	if !orch.Broadcast(cmd.Context(), text, dest) {
		return fmt.Errorf("send to %s failed", dest)
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %d chars to %s\n", len([]rune(text)), dest)
	}
	return nil
}
