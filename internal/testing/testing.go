// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// NewResponse builds a minimal [http.Response] for [MockRoundTripper].
func NewResponse(status int, header http.Header, body io.ReadCloser) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	if body == nil {
		body = http.NoBody
	}
	return &http.Response{StatusCode: status, Header: header, Body: body}
}

// TokenServer fakes the Spotify accounts token endpoint with a fixed reply.
type TokenServer struct {
	*httptest.Server
	Hits     atomic.Int32
	Forms    chan url.Values // posted forms, best effort
	Status   int
	Response map[string]any
	Delay    time.Duration // set before the first request
}

func NewTokenServer(t *testing.T, status int, response map[string]any) *TokenServer {
	t.Helper()
	ts := &TokenServer{Status: status, Response: response, Forms: make(chan url.Values, 16)}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.Hits.Add(1)
		if err := r.ParseForm(); err == nil {
			select {
			case ts.Forms <- r.PostForm:
			default:
			}
		}
		if ts.Delay > 0 {
			time.Sleep(ts.Delay)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(ts.Status)
		json.NewEncoder(w).Encode(ts.Response)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// Endpoint points an oauth2 client at the server.
func (ts *TokenServer) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   ts.URL + "/authorize",
		TokenURL:  ts.URL + "/api/token",
		AuthStyle: oauth2.AuthStyleInHeader,
	}
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
