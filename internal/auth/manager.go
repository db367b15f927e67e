package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-mcp/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// SafetyBuffer is subtracted from the expiry so a token is never sent when it could lapse mid-request.
	SafetyBuffer = 60 * time.Second

	// DefaultTokenLifetime applies when a token response carries no expires_in.
	DefaultTokenLifetime = time.Hour

	refreshKey = "refresh"
)

// Scopes is the fixed scope list required by the tool surface.
var Scopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-library-read",
}

// Endpoint is the Spotify accounts service.
var Endpoint = oauth2.Endpoint{
	AuthURL:   spotifyAuthURL,
	TokenURL:  spotifyTokenURL,
	AuthStyle: oauth2.AuthStyleInHeader,
}

// Credentials are the externally supplied values needed to build a [TokenManager].
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	RefreshToken string // optional seed, e.g. from config or SPOTIFY_REFRESH_TOKEN
}

// Credential is a snapshot of the held OAuth2 token set.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
}

// TokenManager owns one account's credential and performs the OAuth2 operations on it.
//
// It is safe for concurrent use.
type TokenManager struct {
	config     *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
	logger     *log.Logger

	mu   sync.RWMutex
	cred Credential

	group singleflight.Group
}

// Option configures a [TokenManager].
type Option func(*TokenManager)

// WithClock replaces the wall clock used for expiry arithmetic.
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) { m.now = now }
}

// WithHTTPClient sets the client used for token endpoint requests.
func WithHTTPClient(c *http.Client) Option {
	return func(m *TokenManager) { m.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *TokenManager) { m.logger = l }
}

// WithEndpoint points the manager at a different accounts service.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(m *TokenManager) { m.config.Endpoint = e }
}

// NewTokenManager creates a manager for the given client. A non-empty RefreshToken seeds the
// credential so [TokenManager.EnsureFresh] can mint an access token without the browser flow.
func NewTokenManager(creds Credentials, opts ...Option) (*TokenManager, error) {
	switch {
	case creds.ClientID == "":
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	case creds.ClientSecret == "":
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	case creds.RedirectURI == "":
		return nil, fmt.Errorf("%w: redirect_uri", shared.ErrMissingCredentials)
	}

	m := &TokenManager{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       append([]string(nil), Scopes...),
			Endpoint:     Endpoint,
		},
		now:    time.Now,
		logger: log.New(io.Discard),
		cred:   Credential{RefreshToken: strings.TrimSpace(creds.RefreshToken)},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// AuthorizationURL builds the URL the user visits to grant access. It performs no I/O.
//
// An empty state is replaced with a random one.
func (m *TokenManager) AuthorizationURL(state string) string {
	if state == "" {
		if generated, err := shared.GenerateState(); err == nil {
			state = generated
		} else {
			state = shared.GenerateID()
		}
	}
	return m.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "false"))
}

// Exchange trades an authorization code for a credential and replaces the held one entirely.
//
// On failure the error wraps [shared.ErrAuthExchange] and the held credential is unchanged.
func (m *TokenManager) Exchange(ctx context.Context, code string) (Credential, error) {
	if strings.TrimSpace(code) == "" {
		return Credential{}, fmt.Errorf("%w: empty authorization code", shared.ErrAuthExchange)
	}

	tok, err := m.config.Exchange(m.clientContext(ctx), code)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %s", shared.ErrAuthExchange, remoteMessage(err))
	}
	if tok.RefreshToken == "" {
		return Credential{}, fmt.Errorf("%w: response did not include a refresh token", shared.ErrAuthExchange)
	}

	cred := Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    m.expiry(tok),
		Scopes:       scopesOf(tok, m.config.Scopes),
	}

	m.mu.Lock()
	m.cred = cred
	m.mu.Unlock()

	m.logger.Info("authorization code exchanged", "expires_at", cred.ExpiresAt.Format(time.RFC3339))
	return cred.clone(), nil
}

// Refresh mints a new access token from the held refresh token.
//
// Concurrent callers share a single in-flight request. The request runs detached from any one
// caller's cancellation, so a caller whose ctx ends gets ctx.Err() while the others still receive
// the refreshed credential. A missing refresh token fails with [shared.ErrNoRefreshToken] before
// any network call; a rejected one wraps [shared.ErrRefreshFailed].
func (m *TokenManager) Refresh(ctx context.Context) (Credential, error) {
	ch := m.group.DoChan(refreshKey, func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Credential{}, res.Err
		}
		if res.Shared {
			m.logger.Debug("shared in-flight token refresh")
		}
		return res.Val.(Credential).clone(), nil
	}
}

func (m *TokenManager) refresh(ctx context.Context) (Credential, error) {
	m.mu.RLock()
	prev := m.cred.clone()
	m.mu.RUnlock()

	if prev.RefreshToken == "" {
		return Credential{}, shared.ErrNoRefreshToken
	}

	m.logger.Debug("refreshing access token")

	src := m.config.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: prev.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %s", shared.ErrRefreshFailed, remoteMessage(err))
	}

	cred := Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: prev.RefreshToken,
		ExpiresAt:    m.expiry(tok),
		Scopes:       scopesOf(tok, prev.Scopes),
	}
	if tok.RefreshToken != "" {
		cred.RefreshToken = tok.RefreshToken
	}

	m.mu.Lock()
	if m.cred.RefreshToken != prev.RefreshToken {
		// An Exchange replaced the credential while the request was in flight.
		held := m.cred.clone()
		m.mu.Unlock()
		m.logger.Debug("discarding refresh superseded by a newer credential")
		return held, nil
	}
	m.cred = cred
	m.mu.Unlock()

	m.logger.Debug("access token refreshed", "expires_at", cred.ExpiresAt.Format(time.RFC3339))
	return cred, nil
}

// IsExpired reports whether no access token is held or it expires within [SafetyBuffer].
func (m *TokenManager) IsExpired() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cred.AccessToken == "" {
		return true
	}
	return !m.now().Before(m.cred.ExpiresAt.Add(-SafetyBuffer))
}

// EnsureFresh refreshes the credential if [TokenManager.IsExpired] and returns the access token.
func (m *TokenManager) EnsureFresh(ctx context.Context) (string, error) {
	if m.IsExpired() {
		if _, err := m.Refresh(ctx); err != nil {
			return "", err
		}
	}

	m.mu.RLock()
	token := m.cred.AccessToken
	m.mu.RUnlock()

	if token == "" {
		return "", shared.ErrNoAccessToken
	}
	return token, nil
}

// Credential returns a copy of the held credential.
func (m *TokenManager) Credential() Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred.clone()
}

// HasRefreshToken reports whether a refresh token is held.
func (m *TokenManager) HasRefreshToken() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred.RefreshToken != ""
}

func (m *TokenManager) clientContext(ctx context.Context) context.Context {
	if m.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// expiry computes now + expires_in on the manager's clock.
func (m *TokenManager) expiry(tok *oauth2.Token) time.Time {
	now := m.now()
	switch {
	case tok.ExpiresIn > 0:
		return now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	case !tok.Expiry.IsZero():
		return tok.Expiry
	default:
		return now.Add(DefaultTokenLifetime)
	}
}

func (c Credential) clone() Credential {
	c.Scopes = append([]string(nil), c.Scopes...)
	return c
}

// scopesOf reads the space-separated scope field, falling back to prev when it is absent.
func scopesOf(tok *oauth2.Token, prev []string) []string {
	raw, _ := tok.Extra("scope").(string)
	if fields := strings.Fields(raw); len(fields) > 0 {
		return fields
	}
	return append([]string(nil), prev...)
}

// remoteMessage extracts the accounts service's description from an oauth2 error.
func remoteMessage(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch {
		case re.ErrorDescription != "":
			return re.ErrorDescription
		case re.ErrorCode != "":
			return re.ErrorCode
		case re.Response != nil:
			return re.Response.Status
		}
	}
	return err.Error()
}
