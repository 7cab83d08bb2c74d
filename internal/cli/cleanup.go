package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var keepCount int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run backup cleanup",
	Long:  "Delete all but the newest automated backups. Manual backups are never touched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close(cmd.Context())

		keep := cfg.DailyKeepCount
		if cmd.Flags().Changed("keep") {
			keep = keepCount
		}

		result, err := services.CleanupService.Cleanup(cmd.Context(), keep)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}

		fmt.Printf("Kept the newest %d automated backups\n", keep)
		for _, id := range result.Deleted {
			fmt.Printf("Deleted: %s\n", id)
		}
		ids := make([]string, 0, len(result.Failed))
		for id := range result.Failed {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("Failed: %s: %s\n", id, result.Failed[id])
		}
		if len(result.Failed) > 0 {
			return fmt.Errorf("%d backups could not be deleted", len(result.Failed))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().IntVar(&keepCount, "keep", 0, "Number of automated backups to keep (default daily_keep_count)")
}
