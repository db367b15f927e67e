package main

import (
	"context"
	"os"

	"github.com/desertthunder/spotify-mcp/internal/shared"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

func main() {
	logger := shared.NewLogger(nil)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env", "error", err)
	}

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:    "spotify-mcp",
		Usage:   "Spotify tools for MCP agents over stdio",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
