package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-mcp/internal/executor"
	"github.com/desertthunder/spotify-mcp/internal/models"
	"github.com/desertthunder/spotify-mcp/internal/repositories"
	"github.com/desertthunder/spotify-mcp/internal/services"
	"github.com/desertthunder/spotify-mcp/internal/shared"
	tu "github.com/desertthunder/spotify-mcp/internal/testing"
	"github.com/urfave/cli/v3"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{shared.EnvClientID, shared.EnvClientSecret, shared.EnvRedirectURI, shared.EnvRefreshToken} {
		t.Setenv(key, "")
	}
}

func testConfig() *shared.Config {
	config := shared.DefaultConfig()
	config.Credentials.Spotify.ClientID = "client-id"
	config.Credentials.Spotify.ClientSecret = "client-secret"
	config.Credentials.Spotify.RedirectURI = "http://127.0.0.1:8888/callback"
	return config
}

// run executes args against a root command built from r, as main does.
func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:     "spotify-mcp",
		Version:  "test",
		Flags:    []cli.Flag{&cli.BoolFlag{Name: "verbose"}},
		Commands: r.register(),
	}
	return app.Run(context.Background(), append([]string{"spotify-mcp"}, args...))
}

func missingConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.toml")
}

var tokenReply = map[string]any{
	"access_token":  "access-1",
	"token_type":    "Bearer",
	"expires_in":    3600,
	"refresh_token": "refresh-1",
	"scope":         "user-read-playback-state",
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			input := strings.NewReader("")
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:       config,
				Logger:       logger,
				Input:        input,
				Output:       output,
				HTTPClient:   httpClient,
				SpotifyURL:   "http://localhost/v1",
				LoginTimeout: time.Second,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.input != input {
				t.Error("expected input to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.spotifyURL != "http://localhost/v1" {
				t.Errorf("expected spotifyURL to be set, got %s", runner.spotifyURL)
			}
			if runner.loginTimeout != time.Second {
				t.Errorf("expected loginTimeout to be set, got %v", runner.loginTimeout)
			}
		})

		t.Run("with zero options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.endpoint.TokenURL != "https://accounts.spotify.com/api/token" {
				t.Errorf("expected Spotify token endpoint, got %s", runner.endpoint.TokenURL)
			}
			if runner.spotifyURL != services.SpotifyBaseURL {
				t.Errorf("expected Spotify base URL, got %s", runner.spotifyURL)
			}
			if runner.openBrowser == nil {
				t.Error("expected browser opener to be set")
			}
			if runner.loginTimeout != 2*time.Minute {
				t.Errorf("expected 2m login timeout, got %v", runner.loginTimeout)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("writePlainln surrounds text with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("title"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "\ntitle\n" {
				t.Errorf("expected %q, got %q", "\ntitle\n", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"serve", "auth", "setup", "history"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if cmd.Name != want[i] {
				t.Errorf("command %d: expected %s, got %s", i, want[i], cmd.Name)
			}
		}
	})
}

func TestRetryPolicy(t *testing.T) {
	t.Run("default config matches executor default", func(t *testing.T) {
		got := retryPolicy(shared.DefaultConfig())
		if got != executor.DefaultRetryPolicy() {
			t.Errorf("expected %+v, got %+v", executor.DefaultRetryPolicy(), got)
		}
	})

	t.Run("converts milliseconds", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Retry = shared.RetryConfig{
			MaxRetries:        5,
			InitialDelayMS:    250,
			MaxDelayMS:        4000,
			BackoffMultiplier: 1.5,
			MaxAuthRetries:    2,
		}

		got := retryPolicy(config)
		want := executor.RetryPolicy{
			MaxRetries:        5,
			InitialDelay:      250 * time.Millisecond,
			MaxDelay:          4 * time.Second,
			BackoffMultiplier: 1.5,
			MaxAuthRetries:    2,
		}
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
		if err := got.Validate(); err != nil {
			t.Errorf("expected valid policy, got %v", err)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	load := func(t *testing.T, r *Runner, args ...string) (*shared.Config, error) {
		t.Helper()
		var loaded *shared.Config
		var loadErr error
		cmd := &cli.Command{
			Name:  "probe",
			Flags: []cli.Flag{configFlag(), &cli.BoolFlag{Name: "verbose"}},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				loaded, loadErr = r.loadConfig(cmd)
				return nil
			},
		}
		if err := cmd.Run(context.Background(), append([]string{"probe"}, args...)); err != nil {
			t.Fatalf("command failed: %v", err)
		}
		return loaded, loadErr
	}

	t.Run("missing file falls back to runner config", func(t *testing.T) {
		clearEnv(t)
		fallback := testConfig()
		r := NewRunner(RunnerOpts{Config: fallback, Logger: log.New(io.Discard)})

		config, err := load(t, r, "--config", missingConfig(t))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.Credentials.Spotify.ClientID != "client-id" {
			t.Errorf("expected fallback client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config == fallback {
			t.Error("expected a copy of the fallback config")
		}
	})

	t.Run("reads file and applies env overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(shared.EnvRefreshToken, "from-env")

		path := filepath.Join(t.TempDir(), "config.toml")
		data := `
[credentials.spotify]
client_id = "file-id"
client_secret = "file-secret"
redirect_uri = "http://127.0.0.1:9999/cb"

[retry]
max_retries = 1

[log]
level = "error"
`
		if err := os.WriteFile(path, []byte(data), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		logger := log.New(io.Discard)
		r := NewRunner(RunnerOpts{Logger: logger})

		config, err := load(t, r, "--config", path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.Credentials.Spotify.ClientID != "file-id" {
			t.Errorf("expected file client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.RefreshToken != "from-env" {
			t.Errorf("expected env refresh token, got %s", config.Credentials.Spotify.RefreshToken)
		}
		if config.Retry.MaxRetries != 1 || config.Retry.MaxDelayMS != 10000 {
			t.Errorf("expected file retry values over defaults, got %+v", config.Retry)
		}
		if logger.GetLevel() != log.ErrorLevel {
			t.Errorf("expected error level, got %v", logger.GetLevel())
		}
		if r.config != config {
			t.Error("expected runner to keep the loaded config")
		}
	})

	t.Run("verbose forces debug level", func(t *testing.T) {
		clearEnv(t)
		logger := log.New(io.Discard)
		r := NewRunner(RunnerOpts{Logger: logger})

		if _, err := load(t, r, "--verbose", "--config", missingConfig(t)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", logger.GetLevel())
		}
	})

	t.Run("invalid file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("not = [valid"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		r := NewRunner(RunnerOpts{Logger: log.New(io.Discard)})
		if _, err := load(t, r, "--config", path); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("setup config writes the example", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Output: output, Logger: log.New(io.Discard)})

		if err := run(t, r, "setup", "config", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "[credentials.spotify]") {
			t.Error("expected example config content")
		}
		if !strings.Contains(output.String(), "auth login") {
			t.Errorf("expected next step hint, got %q", output.String())
		}

		if err := run(t, r, "setup", "config", "--config", path); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("setup database runs migrations", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		config := testConfig()
		config.Database.Path = filepath.Join(dir, "history.db")
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Config: config, Output: output, Logger: log.New(io.Discard)})

		if err := run(t, r, "setup", "database", "--config", filepath.Join(dir, "missing.toml")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, config.Database.Path)
		if !strings.Contains(output.String(), "Database ready") {
			t.Errorf("expected ready message, got %q", output.String())
		}
	})

	t.Run("setup database requires a path", func(t *testing.T) {
		clearEnv(t)
		r := NewRunner(RunnerOpts{Config: testConfig(), Output: &bytes.Buffer{}, Logger: log.New(io.Discard)})

		err := run(t, r, "setup", "database", "--config", missingConfig(t))
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestHistoryCommand(t *testing.T) {
	clearEnv(t)

	newRunner := func(t *testing.T) (*Runner, *bytes.Buffer, string) {
		config := testConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "history.db")
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Config: config, Output: output, Logger: log.New(io.Discard)})
		return r, output, config.Database.Path
	}

	t.Run("empty journal", func(t *testing.T) {
		r, output, _ := newRunner(t)

		if err := run(t, r, "history", "--config", missingConfig(t)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "No calls recorded.") {
			t.Errorf("expected empty message, got %q", output.String())
		}
	})

	t.Run("lists recorded calls", func(t *testing.T) {
		r, output, path := newRunner(t)

		db, err := shared.NewDatabase(path)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if err := shared.RunMigrations(db); err != nil {
			t.Fatalf("failed to migrate: %v", err)
		}
		repo := repositories.NewCallHistoryRepository(db, nil)
		entry := models.CallEntry{
			Label:      "pause playback",
			Attempts:   2,
			StatusCode: 503,
			Outcome:    models.OutcomeError,
			Message:    "Spotify is temporarily unavailable",
			Duration:   1500 * time.Millisecond,
			StartedAt:  time.Now().UTC(),
		}
		if err := repo.Record(context.Background(), entry); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		db.Close()

		if err := run(t, r, "history", "--config", missingConfig(t)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "pause playback") {
			t.Errorf("expected label in table, got %q", output.String())
		}

		output.Reset()
		if err := run(t, r, "history", "--json", "--config", missingConfig(t)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), `"Label":"pause playback"`) {
			t.Errorf("expected JSON entry, got %q", output.String())
		}
	})

	t.Run("requires a database path", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Config: testConfig(), Output: &bytes.Buffer{}, Logger: log.New(io.Discard)})

		err := run(t, r, "history", "--config", missingConfig(t))
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("url prints the authorization URL", func(t *testing.T) {
		clearEnv(t)
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Config: testConfig(), Output: output, Logger: log.New(io.Discard)})

		if err := run(t, r, "auth", "url", "--config", missingConfig(t)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		u, err := url.Parse(strings.TrimSpace(output.String()))
		if err != nil {
			t.Fatalf("expected a URL, got %q", output.String())
		}
		if u.Host != "accounts.spotify.com" || u.Path != "/authorize" {
			t.Errorf("unexpected authorization URL %s", u)
		}
		q := u.Query()
		if q.Get("client_id") != "client-id" || q.Get("state") == "" {
			t.Errorf("expected client_id and state, got %v", q)
		}
	})

	t.Run("url rejects missing credentials", func(t *testing.T) {
		clearEnv(t)
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = ""
		r := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Logger: log.New(io.Discard)})

		err := run(t, r, "auth", "url", "--config", missingConfig(t))
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("status refreshes the configured token", func(t *testing.T) {
		clearEnv(t)
		ts := tu.NewTokenServer(t, http.StatusOK, tokenReply)
		config := testConfig()
		config.Credentials.Spotify.RefreshToken = "seed"
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Config: config, Output: output, Logger: log.New(io.Discard), Endpoint: ts.Endpoint()})

		if err := run(t, r, "auth", "status", "--config", missingConfig(t)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ts.Hits.Load() != 1 {
			t.Errorf("expected one token request, got %d", ts.Hits.Load())
		}
		if !strings.Contains(output.String(), "Authenticated with Spotify") {
			t.Errorf("expected success line, got %q", output.String())
		}
	})

	t.Run("status without refresh token", func(t *testing.T) {
		clearEnv(t)
		ts := tu.NewTokenServer(t, http.StatusOK, tokenReply)
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Config: testConfig(), Output: output, Logger: log.New(io.Discard), Endpoint: ts.Endpoint()})

		err := run(t, r, "auth", "status", "--config", missingConfig(t))
		if !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Fatalf("expected ErrNoRefreshToken, got %v", err)
		}
		if ts.Hits.Load() != 0 {
			t.Errorf("expected no token request, got %d", ts.Hits.Load())
		}
		if !strings.Contains(output.String(), "auth login") {
			t.Errorf("expected login hint, got %q", output.String())
		}
	})

	t.Run("status with rejected refresh token", func(t *testing.T) {
		clearEnv(t)
		ts := tu.NewTokenServer(t, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "Refresh token revoked",
		})
		config := testConfig()
		config.Credentials.Spotify.RefreshToken = "revoked"
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Config: config, Output: output, Logger: log.New(io.Discard), Endpoint: ts.Endpoint()})

		err := run(t, r, "auth", "status", "--config", missingConfig(t))
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
		if !strings.Contains(output.String(), "Token refresh failed") {
			t.Errorf("expected failure line, got %q", output.String())
		}
	})
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestAuthLogin(t *testing.T) {
	newRunner := func(t *testing.T, browser func(string) error) (*Runner, *bytes.Buffer) {
		clearEnv(t)
		ts := tu.NewTokenServer(t, http.StatusOK, tokenReply)
		port := freePort(t)

		config := testConfig()
		config.Server.Host = "127.0.0.1"
		config.Server.Port = port
		config.Credentials.Spotify.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", port)

		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{
			Config:       config,
			Output:       output,
			Logger:       log.New(io.Discard),
			Endpoint:     ts.Endpoint(),
			OpenBrowser:  browser,
			LoginTimeout: 5 * time.Second,
		})
		return r, output
	}

	// visit follows the authorization URL the way Spotify would redirect back.
	visit := func(params func(state string) url.Values) func(string) error {
		return func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			redirect := u.Query().Get("redirect_uri")
			resp, err := http.Get(redirect + "?" + params(u.Query().Get("state")).Encode())
			if err != nil {
				return err
			}
			resp.Body.Close()
			return nil
		}
	}

	t.Run("prints the refresh token", func(t *testing.T) {
		r, output := newRunner(t, visit(func(state string) url.Values {
			return url.Values{"code": {"auth-code"}, "state": {state}}
		}))

		if err := run(t, r, "auth", "login", "--config", missingConfig(t)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "refresh-1") {
			t.Errorf("expected refresh token in output, got %q", output.String())
		}
		if !strings.Contains(output.String(), shared.EnvRefreshToken) {
			t.Errorf("expected env hint in output, got %q", output.String())
		}
	})

	t.Run("rejects a forged state", func(t *testing.T) {
		r, _ := newRunner(t, visit(func(string) url.Values {
			return url.Values{"code": {"auth-code"}, "state": {"forged"}}
		}))

		err := run(t, r, "auth", "login", "--config", missingConfig(t))
		if err == nil || !strings.Contains(err.Error(), "invalid state") {
			t.Errorf("expected invalid state error, got %v", err)
		}
	})

	t.Run("reports a denied grant", func(t *testing.T) {
		r, _ := newRunner(t, visit(func(state string) url.Values {
			return url.Values{"error": {"access_denied"}, "state": {state}}
		}))

		err := run(t, r, "auth", "login", "--config", missingConfig(t))
		if err == nil || !strings.Contains(err.Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", err)
		}
	})

	t.Run("times out without a callback", func(t *testing.T) {
		r, output := newRunner(t, func(string) error { return errors.New("no browser") })
		r.loginTimeout = 50 * time.Millisecond

		err := run(t, r, "auth", "login", "--config", missingConfig(t))
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(output.String(), "Please open this URL") {
			t.Errorf("expected manual URL hint, got %q", output.String())
		}
	})
}

func TestServeCommand(t *testing.T) {
	t.Run("stops when stdin closes", func(t *testing.T) {
		clearEnv(t)
		config := testConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "history.db")
		r := NewRunner(RunnerOpts{
			Config: config,
			Input:  strings.NewReader(""),
			Output: &bytes.Buffer{},
			Logger: log.New(io.Discard),
		})

		if err := run(t, r, "serve", "--config", missingConfig(t)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, config.Database.Path)
	})

	t.Run("rejects an invalid retry policy", func(t *testing.T) {
		clearEnv(t)
		config := testConfig()
		config.Retry.BackoffMultiplier = 0.5
		r := NewRunner(RunnerOpts{
			Config: config,
			Input:  strings.NewReader(""),
			Output: &bytes.Buffer{},
			Logger: log.New(io.Discard),
		})

		if err := run(t, r, "serve", "--config", missingConfig(t)); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
