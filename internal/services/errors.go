package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/spotigest/internal/shared"
)

// DefaultRetryAfter is used when a 429 response carries no usable Retry-After header.
const DefaultRetryAfter = time.Second

// ErrorKind classifies a failed playback call.
type ErrorKind int

const (
	KindUnclassified ErrorKind = iota
	KindAuthExpired
	KindPremiumRequired
	KindRestrictionViolated
	KindNoActiveDevice
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthExpired:
		return "auth_expired"
	case KindPremiumRequired:
		return "premium_required"
	case KindRestrictionViolated:
		return "restriction_violated"
	case KindNoActiveDevice:
		return "no_active_device"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unclassified"
	}
}

// sentinel returns the shared error a kind unwraps to.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindAuthExpired:
		return shared.ErrTokenExpired
	case KindPremiumRequired:
		return shared.ErrPremiumRequired
	case KindRestrictionViolated:
		return shared.ErrRestrictionViolated
	case KindNoActiveDevice:
		return shared.ErrNoActiveDevice
	case KindRateLimited:
		return shared.ErrRateLimited
	default:
		return shared.ErrAPIRequest
	}
}

// APIError is a classified Spotify Web API failure.
type APIError struct {
	Kind       ErrorKind
	Status     int
	Reason     string
	Message    string
	RetryAfter time.Duration
	cause      error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Kind == KindRateLimited {
		return fmt.Sprintf("spotify: %s (status=%d, kind=%s, retry_after=%s)", msg, e.Status, e.Kind, e.RetryAfter)
	}
	return fmt.Sprintf("spotify: %s (status=%d, kind=%s)", msg, e.Status, e.Kind)
}

// Unwrap exposes the matching shared sentinel and the transport cause, so both
// errors.Is(err, shared.ErrRateLimited) and errors.As on the cause work.
func (e *APIError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Retryable reports whether repeating the same call later may succeed.
func (e *APIError) Retryable() bool {
	return e.Kind == KindRateLimited
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var e *APIError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the classification of err. Errors that are not API errors are unclassified.
func KindOf(err error) ErrorKind {
	if e, ok := AsAPIError(err); ok {
		return e.Kind
	}
	return KindUnclassified
}

type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// classifyResponse maps a non-2xx response to an *APIError. The body is consumed.
func classifyResponse(resp *http.Response) *APIError {
	e := &APIError{Status: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		e.Message = body.Error.Message
		e.Reason = body.Error.Reason
	} else if len(data) > 0 {
		e.Message = strings.TrimSpace(string(data))
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		e.Kind = KindAuthExpired
	case http.StatusForbidden:
		if isPremiumFailure(e.Reason, e.Message) {
			e.Kind = KindPremiumRequired
		} else {
			e.Kind = KindRestrictionViolated
		}
	case http.StatusNotFound:
		e.Kind = KindNoActiveDevice
	case http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	default:
		e.Kind = KindUnclassified
	}
	return e
}

func isPremiumFailure(reason, message string) bool {
	return strings.EqualFold(reason, "PREMIUM_REQUIRED") || strings.Contains(strings.ToLower(message), "premium")
}

// parseRetryAfter reads a delay in seconds, falling back to [DefaultRetryAfter].
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return DefaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

// classifyTransportError turns failures raised before a response exists into API errors
// where a kind applies: a failed token refresh means the session expired.
func classifyTransportError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := http.StatusUnauthorized
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return &APIError{Kind: KindAuthExpired, Status: status, Message: "token refresh failed", cause: err}
	}
	return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
}
