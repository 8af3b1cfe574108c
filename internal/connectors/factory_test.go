package connectors

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

type stubAdapter struct {
	driven.SourceAdapter
	tokens driven.TokenProvider
}

func TestFactory_SupportedTypes(t *testing.T) {
	f := NewDefaultFactory(auth.NewResolver(afero.NewMemMapFs()))
	assert.Equal(t, []domain.ProviderType{
		domain.ProviderDropbox,
		domain.ProviderGoogleDrive,
		domain.ProviderManualUpload,
		domain.ProviderWebScrape,
	}, f.SupportedTypes())
}

func TestFactory_Create(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/secrets/tok", []byte("tok-1\n"), 0o600))
	f := NewFactory(auth.NewResolver(fs))

	var got driven.TokenProvider
	f.Register("stub", func(_ context.Context, _ *domain.Connector, tokens driven.TokenProvider) (driven.SourceAdapter, error) {
		got = tokens
		return &stubAdapter{tokens: tokens}, nil
	})

	adapter, err := f.Create(context.Background(), &domain.Connector{ID: "c1", Provider: "stub", CredentialID: "file:/secrets/tok"})
	require.NoError(t, err)
	require.NotNil(t, adapter)

	token, err := got.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, "file:/secrets/tok", got.CredentialID())
}

func TestFactory_CreateErrors(t *testing.T) {
	f := NewDefaultFactory(auth.NewResolver(afero.NewMemMapFs()))
	ctx := context.Background()

	_, err := f.Create(ctx, &domain.Connector{ID: "c1", Provider: "ftp"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = f.Create(ctx, &domain.Connector{ID: "c1", Provider: domain.ProviderDropbox, CredentialID: "vault:x"})
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)

	_, err = f.Create(ctx, &domain.Connector{ID: "c1", Provider: domain.ProviderDropbox})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	_, err = f.Create(ctx, &domain.Connector{ID: "c1", Provider: domain.ProviderManualUpload})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
