// Package services implements a small client for the Spotify Web API.
//
// # Access Tokens
//
// [SpotifyService] holds no credentials. Every method takes the bearer token as an argument so
// that the executor can re-run the same call after a token refresh:
//
//	tracks, err := executor.Run(ctx, exec, "search tracks", func(ctx context.Context, token string) (*services.SpotifySearchResult, error) {
//		return spotify.Search(ctx, token, "daft punk", services.SearchTrack, 10)
//	})
//
// # Error Handling
//
// Any non-2xx response becomes an [*APIError] carrying the status code, the parsed Retry-After
// header and the message Spotify put in its JSON error body. APIError satisfies the interfaces the
// executor uses for classification, so 401/429/503 handling never depends on message text.
// Transport failures are wrapped with [shared.ErrAPIRequest] and carry no status.
//
// # API Mappings
//
// Response types mirror https://developer.spotify.com/documentation/web-api/reference/ and keep
// only the fields the tool surface renders.
package services
