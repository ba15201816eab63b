package dineinsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aussiebroadwan/dinein/pkg/httpx"
)

// ============================================================================
// Error taxonomy
// ============================================================================

// Sentinel errors. Every error returned by the SDK wraps exactly one of these,
// so callers branch with errors.Is and never inspect strings.
var (
	// ErrValidation is malformed or missing user input. Raised client-side
	// before any network call, and also for backend 400/422 responses.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials is a login rejected by the backend (HTTP 401).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountNotFound is a login for an unknown account (HTTP 404).
	ErrAccountNotFound = errors.New("account not found")

	// ErrSessionExpired means the refresh cycle failed or no tokens were
	// available. Local session state has already been cleared.
	ErrSessionExpired = errors.New("session expired")

	// ErrRateLimited is a backend 429. It is never retried automatically.
	ErrRateLimited = errors.New("rate limited")

	// ErrNetwork covers connectivity failures and client-side timeouts.
	ErrNetwork = errors.New("network error")

	// ErrIncompleteSelection is a booking submitted without a resolved
	// slot and table. It never reaches the transport.
	ErrIncompleteSelection = errors.New("incomplete booking selection")

	// ErrReservationFailed is a backend rejection of a reservation write.
	ErrReservationFailed = errors.New("reservation failed")

	// ErrServerError is a backend 5xx, or an unexpected 4xx on a write.
	ErrServerError = errors.New("server error")

	// ErrNotFound is a 404 on anything other than login.
	ErrNotFound = errors.New("not found")

	// ErrNoSession is returned by RestoreSession when nothing is persisted.
	ErrNoSession = errors.New("no stored session")
)

// ============================================================================
// APIError
// ============================================================================

// APIError is a non-2xx backend response.
type APIError struct {
	// StatusCode is the HTTP status returned by the backend
	StatusCode int

	// Kind is the sentinel this error unwraps to
	Kind error

	// Message is the backend's own message, verbatim. Empty when the body
	// carried none of {detail}, {message} or {error}.
	Message string

	// RetryAfter is parsed from the Retry-After header on 429 responses
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Kind, e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Kind }

// ============================================================================
// ValidationError
// ============================================================================

// ValidationError lists the offending fields of a request that failed
// client-side validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// validationErr wraps a non-empty field map, or returns nil.
func validationErr(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// ============================================================================
// Error parsing helpers
// ============================================================================

// networkError tags a transport failure. The cause stays reachable so that
// context.Canceled and context.DeadlineExceeded still match with errors.Is.
func networkError(err error) error {
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// kindForStatus maps an HTTP status to a sentinel. fallback is used for 4xx
// statuses that have no dedicated meaning.
func kindForStatus(status int, fallback error) error {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= http.StatusInternalServerError:
		return ErrServerError
	default:
		return fallback
	}
}

// parseErrorResponse builds an APIError from a non-2xx response. The body
// may carry {detail}, {message} or {error}, depending on the endpoint, and
// all three are checked in that order.
func parseErrorResponse(resp *http.Response, body []byte, fallback error) *APIError {
	if fallback == nil {
		fallback = ErrServerError
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Kind:       kindForStatus(resp.StatusCode, fallback),
		Message:    extractMessage(body),
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = httpx.RetryAfter(resp.Header, time.Now())
	}

	return apiErr
}

// extractMessage pulls a human-readable message out of an error body.
func extractMessage(body []byte) string {
	var shape struct {
		Detail  json.RawMessage `json:"detail"`
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return ""
	}

	for _, raw := range []json.RawMessage{shape.Detail, shape.Message, shape.Error} {
		if msg := rawMessage(raw); msg != "" {
			return msg
		}
	}
	return ""
}

// rawMessage reads a message that is either a plain string or a list of
// validation entries ({"msg": "..."}), as FastAPI-style backends return.
func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var entries []struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &entries); err == nil {
		msgs := make([]string, 0, len(entries))
		for _, e := range entries {
			switch {
			case e.Msg != "":
				msgs = append(msgs, e.Msg)
			case e.Message != "":
				msgs = append(msgs, e.Message)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}

// ============================================================================
// Display strings
// ============================================================================

// UserMessage turns any SDK error into a string fit for display. The
// backend's own message wins when it sent one.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return "Please check the form: " + strings.TrimPrefix(valErr.Error(), ErrValidation.Error()+": ")
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	switch {
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrInvalidCredentials):
		return "Incorrect email or password."
	case errors.Is(err, ErrAccountNotFound):
		return "No account exists for that email."
	case errors.Is(err, ErrRateLimited):
		return "Too many attempts. Please wait a moment and try again."
	case errors.Is(err, ErrNetwork):
		return "Could not reach the server. Check your connection and try again."
	case errors.Is(err, ErrIncompleteSelection):
		return "Choose a time and table before booking."
	case errors.Is(err, ErrReservationFailed):
		return "We couldn't complete your reservation. Please try again."
	case errors.Is(err, ErrValidation):
		return "Some of the information entered is invalid."
	case errors.Is(err, ErrNotFound):
		return "We couldn't find what you were looking for."
	default:
		return "Something went wrong. Please try again."
	}
}
