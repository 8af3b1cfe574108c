package auth

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure NullTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*NullTokenProvider)(nil)

// NullTokenProvider is for connectors that require no authentication.
// Used by the upload and web adapters.
type NullTokenProvider struct{}

// NewNullTokenProvider creates a token provider for no-auth connectors.
func NewNullTokenProvider() *NullTokenProvider {
	return &NullTokenProvider{}
}

// GetToken returns an empty string since no authentication is needed.
func (p *NullTokenProvider) GetToken(_ context.Context) (string, error) {
	return "", nil
}

// CredentialID returns an empty string since there's no credential.
func (p *NullTokenProvider) CredentialID() string {
	return ""
}

// IsAuthenticated always returns true since no-auth is always "authenticated".
func (p *NullTokenProvider) IsAuthenticated() bool {
	return true
}
