// Package google provides shared infrastructure for Google API connectors.
//
// It contains:
//   - TokenSource adapter to bridge TokenProvider to oauth2.TokenSource
//   - Service factory for creating the Drive API client
//   - Mapping of Google API errors (401, 403, 404, 410, 429, 5xx) onto domain sentinels
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
//	ts := google.NewTokenSource(ctx, tokenProvider)
//	svc, err := google.NewDriveService(ctx, ts)
//
// # OAuth2 Scopes
//
// The Drive connector needs https://www.googleapis.com/auth/drive.readonly.
// Tokens are minted and refreshed outside the worker.
package google
