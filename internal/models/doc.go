// Package models defines the persisted entities of spotify-mcp.
//
//   - [CallEntry] : one finished tool call as journaled in the call history
//
// The [Journal] interface is the persistence boundary for call history; the sqlite implementation lives in
// the repositories package.
package models
