package web

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestStatusError(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusGone, domain.ErrNotFound},
		{http.StatusForbidden, domain.ErrNotFound},
		{http.StatusUnauthorized, domain.ErrAuthExpired},
		{http.StatusRequestTimeout, domain.ErrTransient},
		{http.StatusBadGateway, domain.ErrTransient},
		{http.StatusTeapot, domain.ErrMalformedItem},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.code, Status: http.StatusText(tt.code)}
			assert.ErrorIs(t, statusError(resp), tt.want)
		})
	}
	assert.NoError(t, statusError(&http.Response{StatusCode: http.StatusNoContent}))
}

func TestWrapTransport(t *testing.T) {
	assert.Equal(t, context.Canceled, wrapTransport(context.Canceled))
	assert.ErrorIs(t, wrapTransport(errors.New("connection reset")), domain.ErrTransient)
}
