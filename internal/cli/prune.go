package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsight/agentsight/internal/config"
	"github.com/agentsight/agentsight/internal/store"
)

var pruneOlderThanDays int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove events older than a number of days from the store",
	Long: `Prune opens the event store directly and deletes events whose
insertion time is older than the given number of days, along with their
index entries. The server must not be running against the same store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		removed, err := st.PruneOlderThan(pruneOlderThanDays)
		if err != nil {
			return fmt.Errorf("prune: %w", err)
		}

		fmt.Printf("removed %d events older than %d days\n", removed, pruneOlderThanDays)
		return nil
	},
}

func init() {
	pruneCmd.Flags().IntVar(&pruneOlderThanDays, "older-than-days", 30, "delete events older than this many days")
	rootCmd.AddCommand(pruneCmd)
}
