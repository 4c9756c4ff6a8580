// ABOUTME: Root command wiring global flags and all subcommands
// ABOUTME: Entry point used by main and by command tests
package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
)

const banner = `
 ██████╗ ██╗ ██████╗ ███████╗███████╗████████╗
 ██╔══██╗██║██╔════╝ ██╔════╝██╔════╝╚══██╔══╝
 ██║  ██║██║██║  ███╗█████╗  ███████╗   ██║
 ██║  ██║██║██║   ██║██╔══╝  ╚════██║   ██║
 ██████╔╝██║╚██████╔╝███████╗███████║   ██║
 ╚═════╝ ╚═╝ ╚═════╝ ╚══════╝╚══════╝   ╚═╝
`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Multi-account chat collection and AI digest pipeline",
		Long: banner + `
Collects messages from chat sources across multiple accounts,
deduplicates them, and turns them into token-budgeted AI digests
delivered to a vault directory and a broadcast channel.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewCollectCmd())
	cmd.AddCommand(NewProcessCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewSendCmd())
	cmd.AddCommand(NewSourcesCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
