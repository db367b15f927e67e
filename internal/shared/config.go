package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override [SpotifyConfig] values.
const (
	EnvClientID     = "SPOTIFY_CLIENT_ID"
	EnvClientSecret = "SPOTIFY_CLIENT_SECRET"
	EnvRedirectURI  = "SPOTIFY_REDIRECT_URI"
	EnvRefreshToken = "SPOTIFY_REFRESH_TOKEN"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Retry       RetryConfig       `toml:"retry"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" validate:"required"`
	ClientSecret string `toml:"client_secret" validate:"required"`
	RedirectURI  string `toml:"redirect_uri" validate:"required,url"`
	RefreshToken string `toml:"refresh_token"`
}

// RetryConfig holds the retry policy for remote calls. Delays are in milliseconds.
type RetryConfig struct {
	MaxRetries        int     `toml:"max_retries" validate:"gte=0"`
	InitialDelayMS    int     `toml:"initial_delay_ms" validate:"gte=0"`
	MaxDelayMS        int     `toml:"max_delay_ms" validate:"gtefield=InitialDelayMS"`
	BackoffMultiplier float64 `toml:"backoff_multiplier" validate:"gte=1"`
	MaxAuthRetries    int     `toml:"max_auth_retries" validate:"gte=0"`
}

// InitialDelay returns the first backoff delay as a [time.Duration].
func (r RetryConfig) InitialDelay() time.Duration {
	return time.Duration(r.InitialDelayMS) * time.Millisecond
}

// MaxDelay returns the backoff ceiling as a [time.Duration].
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Enabled reports whether the call history journal should be opened.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.Path) != ""
}

// ServerConfig contains the OAuth callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
}

// Addr returns the host:port the callback server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig sets the logger verbosity.
type LogConfig struct {
	Level string `toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides Spotify credentials with any non-empty SPOTIFY_* environment variables.
func (c *Config) ApplyEnv() {
	overrides := []struct {
		key    string
		target *string
	}{
		{EnvClientID, &c.Credentials.Spotify.ClientID},
		{EnvClientSecret, &c.Credentials.Spotify.ClientSecret},
		{EnvRedirectURI, &c.Credentials.Spotify.RedirectURI},
		{EnvRefreshToken, &c.Credentials.Spotify.RefreshToken},
	}

	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.key)); v != "" {
			*o.target = v
		}
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
