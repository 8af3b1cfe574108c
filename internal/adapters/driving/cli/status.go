package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [connector-id]",
	Short: "Show connector sync status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	status, err := svc.Sync.Status(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	cmd.Printf("Connector:  %s\n", status.ConnectorID)
	cmd.Printf("Status:     %s\n", status.Status)
	cmd.Printf("Stage:      %s\n", status.Stage)
	if status.Running {
		cmd.Printf("Running:    %d documents, %d errors\n", status.DocumentsProcessed, status.ErrorCount)
	}
	if status.LastSyncAt != nil {
		cmd.Printf("Last sync:  %s\n", status.LastSyncAt.Format(time.RFC3339))
	} else {
		cmd.Println("Last sync:  never")
	}
	if status.LastError != "" {
		cmd.Printf("Last error: %s\n", status.LastError)
	}
	return nil
}
