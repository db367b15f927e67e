package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotify-mcp/internal/repositories"
	"github.com/desertthunder/spotify-mcp/internal/ui"
	"github.com/urfave/cli/v3"
)

// History prints the most recent journaled tool calls, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewCallHistoryRepository(db, r.logger)
	entries, err := repo.Recent(ctx, int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	if len(entries) == 0 {
		return r.writePlain("%s\n", ui.Styles.Help("No calls recorded."))
	}
	return r.writePlain("%s\n", ui.HistoryTable(entries))
}
