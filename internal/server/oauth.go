package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"

	"github.com/desertthunder/spotify-mcp/internal/auth"
)

// Exchanger trades an authorization code for a credential. [auth.TokenManager] implements it.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (auth.Credential, error)
}

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Credential auth.Credential
	err        error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles OAuth2 callback requests for authorization code flow.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	exchanger   Exchanger
	state       string
	path        string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// CallbackPath returns the path component of redirectURI, defaulting to /callback.
func CallbackPath(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "/callback"
	}
	return u.Path
}

// NewOAuthHandler creates a new OAuth handler serving path (see [CallbackPath]).
// The state token should be cryptographically random for CSRF protection.
func NewOAuthHandler(exchanger Exchanger, state, path string) *OAuthHandler {
	if path == "" {
		path = "/callback"
	}
	return &OAuthHandler{
		exchanger:  exchanger,
		state:      state,
		path:       path,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Detail}}</p>
    </div>
</body>
</html>
`))

type page struct {
	Title  string
	Detail string
	Color  template.CSS
}

func render(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	resultPage.Execute(w, p)
}

func failure(w http.ResponseWriter, status int, detail string) {
	render(w, status, page{Title: "Authorization Failed", Detail: detail, Color: "#E22134"})
}

// ServeHTTP handles the OAuth callback request.
//
// Validates state parameter, exchanges the authorization code, and sends the result through the result channel.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()

	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("invalid state parameter")})
		failure(w, http.StatusBadRequest, "Invalid state parameter.")
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("authorization failed: %s %s", query.Get("error"), query.Get("error_description"))
		h.Send(OAuthResult{err: err})
		failure(w, http.StatusBadRequest, "Spotify did not grant access. You can close this window.")
		return
	}

	cred, err := h.exchanger.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: err})
		failure(w, http.StatusInternalServerError, "Token exchange failed. Check the terminal for details.")
		return
	}

	h.Send(OAuthResult{Credential: cred})
	render(w, http.StatusOK, page{
		Title:  "Authorization Successful",
		Detail: "You can close this window and return to the terminal.",
		Color:  "#1DB954",
	})
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
