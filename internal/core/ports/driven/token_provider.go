package driven

import "context"

// TokenProvider provides the credential presented on each provider call.
// The engine never refreshes credentials itself; a provider that rejects
// the token surfaces ErrAuthExpired and the run is aborted.
type TokenProvider interface {
	// GetToken returns the current access token.
	// Returns empty string for no-auth connectors.
	GetToken(ctx context.Context) (string, error)

	// CredentialID returns the credential handle being used.
	// Returns empty string for no-auth connectors.
	CredentialID() string

	// IsAuthenticated returns true if a credential is available.
	// Always true for no-auth connectors.
	IsAuthenticated() bool
}

// CredentialResolver turns a connector's credential handle into a TokenProvider.
type CredentialResolver interface {
	Resolve(ctx context.Context, credentialID string) (TokenProvider, error)
}
