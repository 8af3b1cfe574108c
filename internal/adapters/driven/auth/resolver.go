package auth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Resolver implements the CredentialResolver interface.
var _ driven.CredentialResolver = (*Resolver)(nil)

// Credential handle schemes.
const (
	SchemeEnv  = "env:"
	SchemeFile = "file:"
)

// Resolver turns credential handles into token providers.
//
// Handles are references, never secrets:
//
//	""              no credential (NullTokenProvider)
//	env:NAME        token read from environment variable NAME
//	file:/path      token read from a file, surrounding whitespace trimmed
type Resolver struct {
	fs     afero.Fs
	lookup func(string) (string, bool)
}

// NewResolver creates a resolver reading token files from fs.
// A nil fs uses the OS filesystem.
func NewResolver(fs afero.Fs) *Resolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Resolver{fs: fs, lookup: os.LookupEnv}
}

// Resolve returns the TokenProvider for credentialID.
func (r *Resolver) Resolve(_ context.Context, credentialID string) (driven.TokenProvider, error) {
	credentialID = strings.TrimSpace(credentialID)
	switch {
	case credentialID == "":
		return NewNullTokenProvider(), nil

	case strings.HasPrefix(credentialID, SchemeEnv):
		name := strings.TrimPrefix(credentialID, SchemeEnv)
		if name == "" {
			return nil, fmt.Errorf("%w: empty environment variable name", domain.ErrAuthInvalid)
		}
		token, ok := r.lookup(name)
		if !ok || strings.TrimSpace(token) == "" {
			return nil, fmt.Errorf("%w: environment variable %s is not set", domain.ErrAuthRequired, name)
		}
		return NewStaticTokenProvider(credentialID, strings.TrimSpace(token)), nil

	case strings.HasPrefix(credentialID, SchemeFile):
		path := strings.TrimPrefix(credentialID, SchemeFile)
		data, err := afero.ReadFile(r.fs, path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: token file %s not found", domain.ErrAuthRequired, path)
			}
			return nil, fmt.Errorf("read token file: %w", err)
		}
		token := strings.TrimSpace(string(data))
		if token == "" {
			return nil, fmt.Errorf("%w: token file %s is empty", domain.ErrAuthRequired, path)
		}
		return NewStaticTokenProvider(credentialID, token), nil

	default:
		return nil, fmt.Errorf("%w: unknown credential scheme in %q", domain.ErrAuthInvalid, credentialID)
	}
}
