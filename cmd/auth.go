package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/spotify-mcp/internal/auth"
	"github.com/desertthunder/spotify-mcp/internal/server"
	"github.com/desertthunder/spotify-mcp/internal/shared"
	"github.com/desertthunder/spotify-mcp/internal/ui"
	"github.com/urfave/cli/v3"
)

// AuthURL prints the Spotify authorization URL.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	tm, err := r.tokenManager(config)
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	return r.writePlain("%s\n", tm.AuthorizationURL(state))
}

// AuthLogin runs the authorization code flow with a local callback server and prints the refresh token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	tm, err := r.tokenManager(config)
	if err != nil {
		return err
	}

	cred, err := r.doOAuth(ctx, config, tm)
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Styles.OK("✓ Authorized with Spotify"))
	r.writePlain("Access token expires at %s\n", cred.ExpiresAt.Local().Format(time.RFC1123))
	r.writePlainln("Refresh token:")
	r.writePlain("%s\n", cred.RefreshToken)
	r.writePlainln("%s", ui.Styles.Help("Set it as refresh_token under [credentials.spotify] or export "+shared.EnvRefreshToken+"."))
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, config *shared.Config, tm *auth.TokenManager) (auth.Credential, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return auth.Credential{}, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := tm.AuthorizationURL(state)
	oauthHandler := server.NewOAuthHandler(tm, state, server.CallbackPath(config.Credentials.Spotify.RedirectURI))
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(shared.WithLogger(r.logger, "component", "callback")))
	router.Handler(oauthHandler)

	serverAddr := config.Server.Addr()
	listener, err := net.Listen("tcp", serverAddr)
	if err != nil {
		return auth.Credential{}, fmt.Errorf("failed to listen on %s: %w", serverAddr, err)
	}

	httpServer := server.New(serverAddr, router)
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("%s", ui.Styles.Warn("⚠ Could not open browser automatically."))
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", r.loginTimeout)

	timeout := time.NewTimer(r.loginTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return auth.Credential{}, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return auth.Credential{}, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, r.loginTimeout)
	case <-ctx.Done():
		return auth.Credential{}, ctx.Err()
	}

	if result.Error() != nil {
		return auth.Credential{}, fmt.Errorf("authorization failed: %w", result.Error())
	}

	return result.Credential, nil
}

// AuthStatus checks that the configured refresh token can mint an access token.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	tm, err := r.tokenManager(config)
	if err != nil {
		return err
	}

	if _, err := tm.EnsureFresh(ctx); err != nil {
		if errors.Is(err, shared.ErrNoRefreshToken) {
			r.writePlain("%s\n", ui.Styles.Warn("✗ Not authenticated: run `spotify-mcp auth login` first"))
			return err
		}
		r.writePlain("%s\n", ui.Styles.Err("✗ Token refresh failed"))
		return err
	}

	cred := tm.Credential()
	r.writePlain("%s\n", ui.Styles.OK("✓ Authenticated with Spotify"))
	r.writePlain("Access token expires at %s\n", cred.ExpiresAt.Local().Format(time.RFC1123))
	if len(cred.Scopes) > 0 {
		r.writePlain("Scopes: %v\n", cred.Scopes)
	}
	return nil
}
