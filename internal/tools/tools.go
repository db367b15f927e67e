package tools

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-mcp/internal/executor"
	"github.com/desertthunder/spotify-mcp/internal/services"
	"github.com/desertthunder/spotify-mcp/internal/shared"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const ServerName = "spotify-mcp"

// Tools binds the Spotify service and the executor to MCP tool handlers.
type Tools struct {
	spotify services.Service
	exec    *executor.Executor
	logger  *log.Logger
}

// New creates the tool set. A nil logger discards output.
func New(spotify services.Service, exec *executor.Executor, logger *log.Logger) *Tools {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Tools{spotify: spotify, exec: exec, logger: logger}
}

// NewServer creates an MCP server with every tool registered.
func NewServer(version string, t *Tools) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.AddTools(t.Definitions()...)
	return s
}

// Serve runs s over the given stdio streams until in is closed or ctx is cancelled.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, logger *log.Logger) error {
	stdio := server.NewStdioServer(s)
	if logger != nil {
		stdio.SetErrorLogger(logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}))
	}

	err := stdio.Listen(ctx, in, out)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)) {
		return nil
	}
	return err
}

// call runs op through the executor and renders its result, turning failures into tool errors.
func call[T any](ctx context.Context, t *Tools, label string, op executor.Operation[T], render func(T) string) (*mcp.CallToolResult, error) {
	out, err := executor.Run(ctx, t.exec, label, op)
	if err != nil {
		return t.failure(label, err), nil
	}
	return mcp.NewToolResultText(render(out)), nil
}

// failure maps an error to the text an agent sees.
func (t *Tools) failure(label string, err error) *mcp.CallToolResult {
	if ce, ok := executor.AsClassified(err); ok {
		t.logger.Warn("tool call failed", "label", label, "detail", ce.Diagnostic())
		return mcp.NewToolResultError(ce.Message)
	}

	t.logger.Warn("tool call failed", "label", label, "err", err)

	switch {
	case errors.Is(err, shared.ErrNoRefreshToken):
		return mcp.NewToolResultError("Not authenticated with Spotify. Run `spotify-mcp auth login` and set the refresh token in your config.")
	case errors.Is(err, shared.ErrRefreshFailed):
		return mcp.NewToolResultError("Spotify session could not be renewed. Run `spotify-mcp auth login` again.")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return mcp.NewToolResultError("Request cancelled.")
	}
	return mcp.NewToolResultError(err.Error())
}

// invalid reports an argument error without making any remote call.
func invalid(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
