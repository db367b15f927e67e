package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-mcp/internal/auth"
	"github.com/desertthunder/spotify-mcp/internal/executor"
	"github.com/desertthunder/spotify-mcp/internal/repositories"
	"github.com/desertthunder/spotify-mcp/internal/services"
	"github.com/desertthunder/spotify-mcp/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const loginTimeout = 2 * time.Minute

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config       *shared.Config
	httpClient   *http.Client
	logger       *log.Logger
	input        io.Reader
	output       io.Writer
	endpoint     oauth2.Endpoint
	spotifyURL   string
	openBrowser  func(string) error
	loginTimeout time.Duration
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Config is the fallback used when the --config file does not exist.
// Endpoint and SpotifyURL override the Spotify hosts.
type RunnerOpts struct {
	Config       *shared.Config
	HTTPClient   *http.Client
	Logger       *log.Logger
	Input        io.Reader
	Output       io.Writer
	Endpoint     oauth2.Endpoint
	SpotifyURL   string
	OpenBrowser  func(string) error
	LoginTimeout time.Duration
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Endpoint.TokenURL == "" {
		opts.Endpoint = auth.Endpoint
	}
	if opts.SpotifyURL == "" {
		opts.SpotifyURL = services.SpotifyBaseURL
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.LoginTimeout <= 0 {
		opts.LoginTimeout = loginTimeout
	}

	return &Runner{
		config:       opts.Config,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		input:        opts.Input,
		output:       opts.Output,
		endpoint:     opts.Endpoint,
		spotifyURL:   opts.SpotifyURL,
		openBrowser:  opts.OpenBrowser,
		loginTimeout: opts.LoginTimeout,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, authCommand, setupCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the --config file, falling back to the runner's config when it does not exist,
// then applies SPOTIFY_* overrides and the log level.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	configPath := cmd.String("config")

	config, err := shared.LoadConfig(configPath)
	switch {
	case errors.Is(err, shared.ErrMissingConfig):
		r.logger.Debug("config file not found, using defaults", "path", configPath)
		fallback := *r.config
		config = &fallback
	case err != nil:
		return nil, err
	}

	config.ApplyEnv()

	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	} else {
		shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Log.Level))
	}

	r.config = config
	return config, nil
}

// retryPolicy converts the [retry] section into an executor policy.
func retryPolicy(config *shared.Config) executor.RetryPolicy {
	return executor.RetryPolicy{
		MaxRetries:        config.Retry.MaxRetries,
		InitialDelay:      config.Retry.InitialDelay(),
		MaxDelay:          config.Retry.MaxDelay(),
		BackoffMultiplier: config.Retry.BackoffMultiplier,
		MaxAuthRetries:    config.Retry.MaxAuthRetries,
	}
}

func (r *Runner) tokenManager(config *shared.Config) (*auth.TokenManager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	creds := config.Credentials.Spotify
	return auth.NewTokenManager(auth.Credentials{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURI:  creds.RedirectURI,
		RefreshToken: creds.RefreshToken,
	},
		auth.WithHTTPClient(r.httpClient),
		auth.WithEndpoint(r.endpoint),
		auth.WithLogger(shared.WithLogger(r.logger, "component", "auth")),
	)
}

func (r *Runner) spotifyService() *services.SpotifyService {
	return services.NewSpotifyService(
		services.WithBaseURL(r.spotifyURL),
		services.WithHTTPClient(r.httpClient),
		services.WithLogger(shared.WithLogger(r.logger, "component", "spotify")),
	)
}

// openDatabase opens the configured journal database and brings its schema up to date.
func (r *Runner) openDatabase(config *shared.Config) (*sql.DB, error) {
	if !config.Database.Enabled() {
		return nil, fmt.Errorf("%w: database.path is not set", shared.ErrMissingConfig)
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// historyRepository returns the call journal, or nil when no database is configured.
func (r *Runner) historyRepository(config *shared.Config) (*repositories.CallHistoryRepository, func(), error) {
	if !config.Database.Enabled() {
		return nil, func() {}, nil
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return nil, func() {}, err
	}

	repo := repositories.NewCallHistoryRepository(db, shared.WithLogger(r.logger, "component", "history"))
	return repo, func() { db.Close() }, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
