package executor

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Class is the handling strategy for a failed attempt.
type Class int

const (
	Fatal Class = iota
	AuthExpired
	RateLimited
	ServiceUnavailable
)

func (c Class) String() string {
	switch c {
	case AuthExpired:
		return "auth_expired"
	case RateLimited:
		return "rate_limited"
	case ServiceUnavailable:
		return "service_unavailable"
	default:
		return "fatal"
	}
}

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	HTTPStatusCode() int
}

// RetryAfterHinter is implemented by errors that carry a server-supplied Retry-After hint.
type RetryAfterHinter interface {
	RetryAfter() (time.Duration, bool)
}

// RemoteMessager is implemented by errors that carry the remote's own error message.
type RemoteMessager interface {
	RemoteMessage() string
}

// Failure is a classified attempt failure.
type Failure struct {
	Class         Class
	StatusCode    int           // 0 when the error carried no recognizable status
	RetryAfter    time.Duration // only set for RateLimited
	HasRetryAfter bool          // the remote sent a hint, possibly 0
	Message       string        // remote message, or the error text when none is available
	Err           error
}

// Classify inspects err for a status code and maps it to a [Class].
func Classify(err error) Failure {
	f := Failure{Class: Fatal, Err: err, Message: messageOf(err)}

	code, ok := StatusCode(err)
	if !ok {
		return f
	}
	f.StatusCode = code

	switch code {
	case http.StatusUnauthorized:
		f.Class = AuthExpired
	case http.StatusTooManyRequests:
		f.Class = RateLimited
		var hint RetryAfterHinter
		if errors.As(err, &hint) {
			if wait, ok := hint.RetryAfter(); ok && wait >= 0 {
				f.RetryAfter, f.HasRetryAfter = wait, true
			}
		}
	case http.StatusServiceUnavailable:
		f.Class = ServiceUnavailable
	}
	return f
}

// StatusCode finds the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		if code := sc.HTTPStatusCode(); code > 0 {
			return code, true
		}
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return re.Response.StatusCode, true
	}

	return 0, false
}

func messageOf(err error) string {
	if err == nil {
		return ""
	}
	var rm RemoteMessager
	if errors.As(err, &rm) {
		if msg := rm.RemoteMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
