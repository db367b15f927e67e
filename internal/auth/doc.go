// Package auth owns the OAuth2 credential for a single Spotify account.
//
// # Token lifecycle
//
// A [TokenManager] starts either empty or seeded with a refresh token from configuration.
// [TokenManager.Exchange] replaces the whole credential after the authorization-code flow,
// [TokenManager.Refresh] mints a new access token from the held refresh token, and
// [TokenManager.EnsureFresh] refreshes only when the access token is missing or within
// [SafetyBuffer] of its expiry.
//
// Concurrent refreshes of the same credential are collapsed with [singleflight]: callers
// that arrive while a refresh is in flight wait for it and share its result.
//
// # Errors
//
// The manager never retries. Failures surface as wrapped sentinels from the shared package:
//   - [shared.ErrNoRefreshToken] : no refresh token was ever obtained; run the auth flow
//   - [shared.ErrAuthExchange] : the authorization code was rejected
//   - [shared.ErrRefreshFailed] : the refresh token was rejected (revoked or expired)
//   - [shared.ErrNoAccessToken] : no access token after a successful freshness check
//
// [singleflight]: https://pkg.go.dev/golang.org/x/sync/singleflight
package auth
