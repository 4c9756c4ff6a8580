// ABOUTME: Sync commands for Charm cloud synchronization
// ABOUTME: Provides status, now, wipe, and keys management
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/chatdigest/internal/charm"
	"github.com/harper/chatdigest/internal/config"
)

// NewSyncCmd creates the sync command group
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage Charm cloud synchronization",
		Long: `Manage synchronization with Charm cloud.

Generated reports are mirrored to Charm via SSH key auth. Reports
sync automatically across devices linked to the same Charm account.`,
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncNowCmd())
	cmd.AddCommand(newSyncWipeCmd())
	cmd.AddCommand(newSyncKeysCmd())

	return cmd
}

// syncClient opens a charm client using the configured host and DB name.
func syncClient() (*charm.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	client, err := charm.NewClient(&charm.Config{
		Host:     cfg.CharmHost,
		DBName:   cfg.CharmDBName,
		AutoSync: false,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Charm: %w", err)
	}

	return client, cfg, nil
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and connection info",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := syncClient()
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := client.ID()
			if err != nil {
				fmt.Println("Status: Not connected")
				fmt.Println("Run 'digest sync keys' to check your SSH keys")
				return nil
			}

			fmt.Println("Status: Connected")
			fmt.Printf("User ID: %s\n", id)
			fmt.Printf("Host: %s\n", cfg.CharmHost)

			ids, err := client.ListReportIDs()
			if err == nil {
				fmt.Printf("Mirrored reports: %d\n", len(ids))
			}

			return nil
		},
	}
}

func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Force immediate sync with Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := syncClient()
			if err != nil {
				return err
			}
			defer client.Close()

			fmt.Println("Syncing...")
			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			fmt.Println("Sync complete")
			return nil
		},
	}
}

func newSyncWipeCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Wipe all local data (nuclear option)",
		Long: `Completely wipe all locally cached Charm data.

WARNING: This deletes all locally cached data. Your cloud data
remains intact and will be re-synced on next access.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				fmt.Println("This will wipe ALL local data!")
				fmt.Println("Run with --confirm to proceed")
				return nil
			}

			client, _, err := syncClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Reset(); err != nil {
				return fmt.Errorf("failed to wipe data: %w", err)
			}

			fmt.Println("Local data wiped successfully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the wipe operation")

	return cmd
}

func newSyncKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List authorized SSH keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := syncClient()
			if err != nil {
				return err
			}
			defer client.Close()

			keys, err := client.GetAuthorizedKeys()
			if err != nil {
				return fmt.Errorf("failed to get authorized keys: %w", err)
			}

			if keys == "" {
				fmt.Println("No authorized keys found")
				return nil
			}

			fmt.Println("Authorized SSH keys:")
			fmt.Println(keys)

			return nil
		},
	}
}
