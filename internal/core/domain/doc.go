// Package domain defines the core business entities for the Sercha ingest engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Connector: A configured synchronisation target
//   - Checkpoint: Resumable progress state for one connector's sync run
//   - RemoteItem / ChangeRecord: What a source reported and what changed
//   - ExternalAccess: Normalised permission snapshot for one item
//   - Document: The landed record for one synchronised item
//   - Trigger / LandedEvent: Inbound and outbound messages
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
