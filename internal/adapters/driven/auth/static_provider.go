package auth

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure StaticTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*StaticTokenProvider)(nil)

// StaticTokenProvider presents a fixed access token.
// The token is never refreshed; a provider that rejects it fails the run
// with ErrAuthExpired and an operator rotates the credential.
type StaticTokenProvider struct {
	credentialID string
	token        string
}

// NewStaticTokenProvider creates a provider for an already-resolved token.
func NewStaticTokenProvider(credentialID, token string) *StaticTokenProvider {
	return &StaticTokenProvider{credentialID: credentialID, token: token}
}

// GetToken returns the token, or ErrAuthRequired when it is empty.
func (p *StaticTokenProvider) GetToken(_ context.Context) (string, error) {
	if p.token == "" {
		return "", fmt.Errorf("%w: credential %s is empty", domain.ErrAuthRequired, p.credentialID)
	}
	return p.token, nil
}

// CredentialID returns the credential handle.
func (p *StaticTokenProvider) CredentialID() string {
	return p.credentialID
}

// IsAuthenticated returns true if a token is present.
func (p *StaticTokenProvider) IsAuthenticated() bool {
	return p.token != ""
}
