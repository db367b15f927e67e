package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/spotify-mcp/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// HistoryTable renders entries as a table, newest first as given.
func HistoryTable(entries []models.CallEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := "-"
		if e.StatusCode != 0 {
			status = strconv.Itoa(e.StatusCode)
		}
		rows = append(rows, []string{
			e.StartedAt.Local().Format(timeLayout),
			e.Label,
			string(e.Outcome),
			status,
			strconv.Itoa(e.Attempts),
			strconv.Itoa(e.Refreshes),
			fmt.Sprintf("%dms", e.Duration.Milliseconds()),
		})
	}

	header := NewBold("#7D56F4")
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(NewStyle("#626262")).
		Headers("STARTED", "LABEL", "OUTCOME", "STATUS", "ATTEMPTS", "REFRESHES", "DURATION").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return header.Padding(0, 1)
			}
			if col == 2 && row >= 0 && row < len(entries) && entries[row].Outcome == models.OutcomeError {
				return style.Foreground(lipgloss.Color("#E22134"))
			}
			return style
		}).
		String()
}
