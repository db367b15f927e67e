// Package server runs the short-lived localhost listener that receives the Spotify OAuth2 redirect
// during `auth login`.
//
// [BasicRouter] registers routes as [http.ServeMux] method patterns and wraps them with
// [Middleware]; [RequestLogger] records method, path and status but never the query, which
// carries the authorization code.
//
// [OAuthHandler] serves the redirect path taken from the configured redirect URI (see
// [CallbackPath]). It checks the state parameter, hands the code to an [Exchanger] (in practice
// auth.TokenManager) and publishes exactly one [OAuthResult]; later callbacks are rejected.
package server
