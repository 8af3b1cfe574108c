// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - SyncOrchestrator: checkpointed, resumable per-connector runs
//   - ChangeDetector, Transfer, PermissionSynchronizer: per-item steps
//   - Dispatcher: bounded worker pool over the trigger queue
//   - OutboxRelay: at-least-once delivery of landed events
//   - Scheduler: due connectors, lease recovery, partial-object cleanup
//   - ConnectorService: registration and retirement
package services
