package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvaziri/pgvault/internal/core/domain"
	"github.com/nvaziri/pgvault/internal/core/service"
)

var backupScheduleID int64

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a backup",
	Long:  "Dump the database, compress it and upload it to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		input := service.CreateBackupInput{
			Type:      domain.BackupTypeManual,
			CreatedBy: "cli",
		}
		if backupScheduleID > 0 {
			input.Type = domain.BackupTypeScheduled
			input.ScheduleID = &backupScheduleID
		}

		backup, err := services.BackupService.CreateBackup(cmd.Context(), input)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Backup completed\n")
		fmt.Printf("ID: %s\n", backup.ID)
		fmt.Printf("File: %s\n", backup.FileName)
		fmt.Printf("Key: %s\n", backup.S3Key)
		if backup.FileSize != nil {
			fmt.Printf("Size: %d bytes\n", *backup.FileSize)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().Int64Var(&backupScheduleID, "schedule-id", 0, "Schedule ID (for cron jobs)")
}
