// Package ui styles CLI output with lipgloss.
//
// [Palette] holds the named styles used for status lines (title, ok, error, warning, help).
// [HistoryTable] renders the call history journal as a bordered table.
//
// Nothing here writes to stdout on its own: `serve` owns stdout for the MCP transport, so only
// the interactive commands print styled text.
package ui
