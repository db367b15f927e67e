// Package executor runs remote Spotify operations with automatic re-authentication and
// bounded, policy-driven retry.
//
// # Flow
//
// [Run] asks the token source for a fresh access token once, then invokes the operation up to
// RetryPolicy.MaxRetries+1 times. Each failure is mapped by [Classify] to one of four classes and
// [Decide] turns the class into a [Step]:
//
//	AuthExpired (401)         -> refresh the token, retry at the same attempt index
//	RateLimited (429)         -> wait Retry-After or the backoff delay, retry
//	ServiceUnavailable (503)  -> wait the backoff delay, retry
//	Fatal (anything else)     -> raise immediately
//
// Terminal failures are returned as [*ClassifiedError], whose Error() is a short sentence that
// can be shown to a user as-is; the status code and cause stay available for logging.
//
// # Waiting
//
// Backoff waits go through a [Sleeper] that honours context cancellation, so one call's backoff
// never blocks another and process shutdown interrupts pending waits.
package executor
