package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/buddybox/buddybox/internal/core/domain"
	"github.com/buddybox/buddybox/internal/core/service"
)

var (
	backupDescription string
	noDatabases       bool
	noConfigs         bool
	jsonOutput        bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create and manage backups",
	Long:  "Create backups in the foreground and inspect or delete existing ones",
}

var backupFullCmd = &cobra.Command{
	Use:   "full",
	Short: "Create a full backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := service.CreateBackupRequest{
			Kind:        domain.BackupKindFull,
			Description: backupDescription,
		}
		if noDatabases {
			req.IncludeDatabases = boolPtr(false)
		}
		if noConfigs {
			req.IncludeConfigs = boolPtr(false)
		}
		return runBackup(cmd, req)
	},
}

var backupDatabaseCmd = &cobra.Command{
	Use:   "database <name>...",
	Short: "Dump one or more databases",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackup(cmd, service.CreateBackupRequest{
			Kind:        domain.BackupKindDatabase,
			Description: backupDescription,
			Databases:   args,
		})
	},
}

var backupConfigCmd = &cobra.Command{
	Use:   "config <service>...",
	Short: "Back up service configuration",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackup(cmd, service.CreateBackupRequest{
			Kind:        domain.BackupKindConfig,
			Description: backupDescription,
			Services:    args,
		})
	},
}

var backupDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Run the daily automated backup and apply retention",
	Long:  "Run the daily automated backup and apply retention (typically used by cron)",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close(cmd.Context())

		result, err := services.ScheduleService.RunDailyBackup(cmd.Context())
		if err != nil {
			return fmt.Errorf("daily backup did not run: %w", err)
		}

		printJob(result.Job)
		if result.Cleanup != nil {
			fmt.Printf("Retention: %d deleted, %d failed\n", len(result.Cleanup.Deleted), len(result.Cleanup.Failed))
		}
		if result.Job.Status != domain.BackupStatusCompleted {
			return fmt.Errorf("backup failed: %s", result.Job.Error)
		}
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close(cmd.Context())

		backups, err := services.BackupService.List(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(backups)
		}
		if len(backups) == 0 {
			fmt.Println("No backups found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tCREATED\tSIZE\tDESCRIPTION")
		for _, b := range backups {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				b.ID, b.Kind, b.Status, b.CreatedAt.Format("2006-01-02 15:04:05"), b.Size, b.Description)
		}
		return w.Flush()
	},
}

var backupStatusCmd = &cobra.Command{
	Use:   "status <backup-id>",
	Short: "Show a backup's status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close(cmd.Context())

		job, err := services.BackupService.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(job)
		}
		printJob(job)
		return nil
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <backup-id>",
	Short: "Delete a backup's record and archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close(cmd.Context())

		res, err := services.BackupService.Delete(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to delete backup: %w", err)
		}
		if !res.MetadataRemoved && !res.ArchiveRemoved {
			fmt.Println("Backup did not exist")
			return nil
		}
		fmt.Printf("Backup deleted (metadata: %t, archive: %t)\n", res.MetadataRemoved, res.ArchiveRemoved)
		return nil
	},
}

// runBackup runs req in the foreground and reports the final record.
func runBackup(cmd *cobra.Command, req service.CreateBackupRequest) error {
	services, err := initServices(cmd.Context())
	if err != nil {
		return err
	}
	defer services.Close(cmd.Context())

	job, err := services.BackupService.Run(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	printJob(job)
	if job.Status != domain.BackupStatusCompleted {
		return fmt.Errorf("backup failed: %s", job.Error)
	}
	return nil
}

func printJob(job *domain.BackupJob) {
	fmt.Printf("Backup ID: %s\n", job.ID)
	fmt.Printf("Type: %s\n", job.Kind)
	fmt.Printf("Status: %s\n", job.Status)
	fmt.Printf("Description: %s\n", job.Description)
	fmt.Printf("Created: %s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))
	if job.CompletedAt != nil {
		fmt.Printf("Completed: %s\n", job.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if job.Error != "" {
		fmt.Printf("Error: %s\n", job.Error)
	}
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func boolPtr(b bool) *bool {
	return &b
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupFullCmd, backupDatabaseCmd, backupConfigCmd, backupDailyCmd)
	backupCmd.AddCommand(backupListCmd, backupStatusCmd, backupDeleteCmd)

	// Add flags
	for _, c := range []*cobra.Command{backupFullCmd, backupDatabaseCmd, backupConfigCmd} {
		c.Flags().StringVarP(&backupDescription, "description", "d", "", "Backup description")
	}
	backupFullCmd.Flags().BoolVar(&noDatabases, "no-databases", false, "Skip database dumps")
	backupFullCmd.Flags().BoolVar(&noConfigs, "no-configs", false, "Skip service configuration")

	backupListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	backupStatusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
}
