package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupScheduleID int64

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run backup cleanup",
	Long:  "Delete expired backups based on schedule retention policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		var deleted int
		if cleanupScheduleID > 0 {
			deleted, err = services.CleanupService.CleanupBySchedule(cmd.Context(), cleanupScheduleID)
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			fmt.Printf("Cleanup finished for schedule %d\n", cleanupScheduleID)
		} else {
			deleted, err = services.CleanupService.CleanupOldBackups(cmd.Context())
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			fmt.Println("Cleanup finished for all schedules")
		}

		fmt.Printf("Deleted backups: %d\n", deleted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().Int64Var(&cleanupScheduleID, "schedule-id", 0, "Schedule ID (cleanup specific schedule)")
}
