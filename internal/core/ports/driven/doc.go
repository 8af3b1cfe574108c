// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - SourceAdapter: Enumerates and fetches items from a provider
//   - AdapterFactory: Creates source adapters from connector configuration
//   - TokenProvider / CredentialResolver: Presents credentials to providers
//   - RecordStore: Connectors, documents, checkpoints and outbox, transactionally
//   - ObjectStore: Write-once storage for landed bytes
//   - MessageQueue: Inbound trigger delivery
//   - TriggerCodec: Trigger payload validation
//   - EventPublisher: Downstream landed-event delivery
//
// # Import Rules
//
//   - Can Import: domain, standard library
//   - Cannot Import: services, adapters, connectors
package driven
