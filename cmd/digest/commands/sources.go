// ABOUTME: CLI command to show the resolved source lists per account
// ABOUTME: Reflects env configuration plus the optional sources file
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/chatdigest/internal/session"
)

// NewSourcesCmd creates the sources command
func NewSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Show the resolved source list for each account",
		Long: `Show the resolved source list for each account.

Lists every collector account with the sources it will fetch, after
applying the optional sources file. Accounts with an empty list fall
back to the global MONITORED_CHATS list.`,
		RunE: runSources,
	}
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tSOURCE\tRESOLVED ID")

	printList := func(account string, sources []string) {
		if len(sources) == 0 {
			fmt.Fprintf(w, "%s\t(none)\t\n", account)
			return
		}
		for _, src := range sources {
			fmt.Fprintf(w, "%s\t%s\t%s\n", account, truncate(src, 40), session.CoerceIdentifier(src))
		}
	}

	for _, acct := range cfg.Collectors {
		sources := acct.Sources
		if len(sources) == 0 {
			sources = cfg.Collector.Sources
		}
		printList(acct.ID, sources)
	}
	if len(cfg.Collectors) == 0 {
		printList("(global)", cfg.Collector.Sources)
	}

	return w.Flush()
}
