package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/spotify-mcp/internal/executor"
	"github.com/desertthunder/spotify-mcp/internal/shared"
	"github.com/desertthunder/spotify-mcp/internal/tools"
	"github.com/urfave/cli/v3"
)

// Serve runs the MCP tool server over stdin/stdout until stdin closes or the process is signalled.
//
// Logs go to stderr; stdout carries the protocol.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	tm, err := r.tokenManager(config)
	if err != nil {
		return err
	}
	if !tm.HasRefreshToken() {
		r.logger.Warn("no refresh token configured, tool calls will fail until `auth login` is run")
	}

	opts := []executor.Option{
		executor.WithPolicy(retryPolicy(config)),
		executor.WithLogger(shared.WithLogger(r.logger, "component", "executor")),
	}

	history, closeHistory, err := r.historyRepository(config)
	if err != nil {
		return err
	}
	defer closeHistory()
	if history != nil {
		opts = append(opts, executor.WithObserver(history))
	}

	exec, err := executor.New(tm, opts...)
	if err != nil {
		return fmt.Errorf("invalid retry policy: %w", err)
	}

	t := tools.New(r.spotifyService(), exec, shared.WithLogger(r.logger, "component", "tools"))
	s := tools.NewServer(cmd.Root().Version, t)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("serving tools over stdio", "server", tools.ServerName, "journal", history != nil)
	if err := tools.Serve(ctx, s, r.input, r.output, r.logger); err != nil {
		return fmt.Errorf("stdio server: %w", err)
	}
	r.logger.Info("stdio server stopped")
	return nil
}
