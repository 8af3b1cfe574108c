package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger [connector-id]",
	Short: "Queue a sync for a worker",
	Long: `Publishes a sync trigger for a registered connector to the trigger queue.
A running worker picks it up.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrigger,
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}

func runTrigger(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	c, err := svc.Connectors.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get connector: %w", err)
	}
	if c.IsRetired() {
		return fmt.Errorf("connector %s: %w", c.ID, domain.ErrConnectorDisabled)
	}

	trigger := domain.NewTrigger(*c, uuid.NewString())
	payload, err := svc.Codec.Encode(trigger)
	if err != nil {
		return fmt.Errorf("encode trigger: %w", err)
	}
	if err := svc.Triggers.Publish(cmd.Context(), payload); err != nil {
		return fmt.Errorf("publish trigger: %w", err)
	}
	cmd.Printf("Queued sync for %s (correlation %s)\n", c.ID, trigger.CorrelationID)
	return nil
}
