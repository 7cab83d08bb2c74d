package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/buddybox/buddybox/internal/core/domain"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show or change the backup schedule",
}

var scheduleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the backup schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close(cmd.Context())

		schedule, err := services.ScheduleService.GetSchedule(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(schedule)
		}

		fmt.Printf("Schedule enabled: %t\n", schedule.Enabled)
		fmt.Printf("Daily backup: %s (keep %d)\n", cfg.DailyCron, cfg.DailyKeepCount)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tCRON\tENABLED")
		for _, kind := range []domain.BackupKind{domain.BackupKindFull, domain.BackupKindDatabase, domain.BackupKindConfig} {
			entry := schedule.Entries()[kind]
			fmt.Fprintf(w, "%s\t%s\t%t\n", kind, entry.Cron, entry.Enabled)
		}
		return w.Flush()
	},
}

var scheduleSetCmd = &cobra.Command{
	Use:   "set <full|database|config> <cron>",
	Short: "Set and enable the cron expression for one backup type",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close(cmd.Context())

		schedule, err := services.ScheduleService.GetSchedule(cmd.Context())
		if err != nil {
			return err
		}

		entry := domain.ScheduleEntry{Cron: args[1], Enabled: true}
		switch domain.BackupKind(args[0]) {
		case domain.BackupKindFull:
			schedule.FullBackup = entry
		case domain.BackupKindDatabase:
			schedule.DBBackup = entry
		case domain.BackupKindConfig:
			schedule.ConfigBackup = entry
		default:
			return fmt.Errorf("unknown backup type: %s", args[0])
		}
		schedule.Enabled = true

		if err := services.ScheduleService.UpdateSchedule(cmd.Context(), schedule); err != nil {
			return err
		}
		fmt.Printf("%s backups scheduled at %q\n", args[0], args[1])
		fmt.Println("A running server picks up schedule changes made through the API; restart it to apply this one.")
		return nil
	},
}

var scheduleDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable all scheduled backups except the daily one",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close(cmd.Context())

		schedule, err := services.ScheduleService.GetSchedule(cmd.Context())
		if err != nil {
			return err
		}
		schedule.Enabled = false
		if err := services.ScheduleService.UpdateSchedule(cmd.Context(), schedule); err != nil {
			return err
		}
		fmt.Println("Scheduled backups disabled")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleShowCmd, scheduleSetCmd, scheduleDisableCmd)
	scheduleShowCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
}
