package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync [connector-id]",
	Short: "Synchronise connectors in this process",
	Long: `Runs document synchronisation in the foreground without a queue.
If a connector ID is provided, only that connector is synchronised.
Otherwise, every connector that accepts a trigger is synchronised.
The first interrupt stops the run at its next checkpoint; a second aborts
it. An interrupted run resumes from its checkpoint on the next sync.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, abort := context.WithCancel(ctx)
	defer abort()

	interrupts := make(chan os.Signal, 2)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)
	run := func(connectorID string) (*domain.RunResult, error) {
		return syncWithProgress(ctx, cmd, svc.Sync, connectorID, interrupts, abort)
	}

	if len(args) > 0 {
		connectorID := args[0]
		cmd.Printf("Synchronising connector: %s...\n", connectorID)
		result, err := run(connectorID)
		if errors.Is(err, domain.ErrCancelled) {
			printStopped(cmd, connectorID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		printResult(cmd, result)
		return nil
	}

	cmd.Println("Synchronising all connectors...")
	list, err := svc.Connectors.List(ctx)
	if err != nil {
		return fmt.Errorf("list connectors: %w", err)
	}
	var failed []error
	for _, c := range list {
		if c.IsRetired() || !c.Status.AcceptsTrigger() {
			continue
		}
		result, err := run(c.ID)
		if errors.Is(err, domain.ErrCancelled) {
			printStopped(cmd, c.ID)
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("sync aborted: %w", ctx.Err())
		}
		if err != nil {
			cmd.Printf("Connector %s failed: %v\n", c.ID, err)
			failed = append(failed, fmt.Errorf("%s: %w", c.ID, err))
			continue
		}
		printResult(cmd, result)
	}
	if len(failed) > 0 {
		return fmt.Errorf("sync failed: %w", errors.Join(failed...))
	}
	cmd.Println("All connectors synchronised.")
	return nil
}

// syncWithProgress runs sync while displaying progress updates.
// The first value on interrupts cancels the run cooperatively; the next, or
// one arriving before the run has started, calls abort.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
	connectorID string,
	interrupts <-chan os.Signal,
	abort context.CancelFunc,
) (*domain.RunResult, error) {
	type outcome struct {
		result *domain.RunResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := syncOrch.Sync(ctx, connectorID)
		done <- outcome{result, err}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	stopping := false
	for {
		select {
		case out := <-done:
			return out.result, out.err
		case <-interrupts:
			if !stopping && syncOrch.Cancel(connectorID) {
				stopping = true
				cmd.Printf("\nStopping %s at the next checkpoint; interrupt again to abort.\n", connectorID)
				continue
			}
			abort()
		case <-ticker.C:
			// Best effort; status errors are ignored.
			status, err := syncOrch.Status(ctx, connectorID)
			if err == nil && status != nil && status.DocumentsProcessed > lastCount {
				cmd.Printf("\rProcessing %s (%s)... %d documents", connectorID, status.Stage, status.DocumentsProcessed)
				lastCount = status.DocumentsProcessed
			}
		}
	}
}

func printStopped(cmd *cobra.Command, connectorID string) {
	cmd.Printf("Connector %s stopped; the next sync resumes from its checkpoint.\n", connectorID)
}

func printResult(cmd *cobra.Command, r *domain.RunResult) {
	if r == nil {
		return
	}
	if r.Skipped {
		cmd.Printf("Connector %s skipped: not pending.\n", r.ConnectorID)
		return
	}
	state := "completed"
	if !r.Completed {
		state = "stopped"
	}
	if r.Resumed {
		state += " (resumed)"
	}
	cmd.Printf("Connector %s %s: %d created, %d updated, %d deleted, %d unchanged, %d failed\n",
		r.ConnectorID, state, r.Created, r.Updated, r.Deleted, r.Unchanged, r.Failed)
}
