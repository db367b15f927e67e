// Package tools exposes Spotify operations as MCP tools.
//
// Every tool validates its arguments before touching the network, then runs its Spotify call
// through [executor.Run] so token refresh and 429/503 backoff apply uniformly. A terminal
// [executor.ClassifiedError] is reported to the agent as a tool error carrying only its short
// user-facing message; diagnostics go to the log.
package tools
