package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the sync worker",
	Long: `Consumes sync triggers from the trigger queue and runs them, relays landed
events to the event queue, and, when enabled, schedules periodic syncs and
watches upload directories. Stops on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Section("worker")
	return serveWorker(ctx, svc)
}

// serveWorker runs every worker loop until ctx is cancelled or one fails.
func serveWorker(ctx context.Context, svc *Services) error {
	if svc.Dispatcher == nil {
		return errors.New("dispatcher not configured")
	}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return svc.Dispatcher.Serve(ctx) })
	if svc.Relay != nil {
		g.Go(func() error { return svc.Relay.Serve(ctx) })
	}
	if svc.Scheduler != nil {
		g.Go(func() error { return svc.Scheduler.Start(ctx) })
		g.Go(func() error {
			<-ctx.Done()
			return svc.Scheduler.Stop()
		})
	}
	if svc.Watcher != nil {
		if err := watchUploads(ctx, svc); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			return svc.Watcher.Stop()
		})
	}

	logger.Info("worker: running")
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("worker: stopped")
		return nil
	}
	return err
}

// watchUploads registers every live manual-upload connector with the watcher.
func watchUploads(ctx context.Context, svc *Services) error {
	list, err := svc.Connectors.List(ctx)
	if err != nil {
		return fmt.Errorf("list connectors: %w", err)
	}
	for _, c := range list {
		if c.Provider != domain.ProviderManualUpload || c.IsRetired() {
			continue
		}
		if err := svc.Watcher.Add(c.ID, c.Config["dir"]); err != nil {
			logger.Warn("worker: watch %s: %v", c.ID, err)
			continue
		}
		logger.Debug("worker: watching %s for %s", c.Config["dir"], c.ID)
	}
	svc.Watcher.Start(ctx)
	return nil
}

// UploadTrigger returns the watcher callback that queues a sync for a
// connector whose upload directory changed.
func UploadTrigger(ctx context.Context, svc *Services) func(connectorID string) {
	return func(connectorID string) {
		c, err := svc.Connectors.Get(ctx, connectorID)
		if err != nil {
			logger.Warn("upload trigger %s: %v", connectorID, err)
			return
		}
		if c.IsRetired() {
			if svc.Watcher != nil {
				svc.Watcher.Remove(connectorID)
			}
			logger.Debug("upload trigger: %s is retired; no longer watching", connectorID)
			return
		}
		payload, err := svc.Codec.Encode(domain.NewTrigger(*c, uuid.NewString()))
		if err != nil {
			logger.Warn("upload trigger %s: encode: %v", connectorID, err)
			return
		}
		if err := svc.Triggers.Publish(ctx, payload); err != nil {
			logger.Warn("upload trigger %s: publish: %v", connectorID, err)
			return
		}
		logger.Info("upload trigger: queued sync for %s", connectorID)
	}
}
