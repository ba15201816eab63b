package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/dinein/pkg/idx"
)

// RequestIDHeader is stamped on every outbound request that lacks one.
const RequestIDHeader = "X-Request-ID"

// Transport wraps an http.RoundTripper, tags each request with a request ID
// and logs its outcome. Headers are never logged.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

// NewTransport returns a logging transport over base (http.DefaultTransport
// when nil).
func NewTransport(base http.RoundTripper, logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, Logger: logger}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	reqID := req.Header.Get(RequestIDHeader)
	supplied := reqID != ""
	if !supplied {
		reqID = idx.New().String()
		// RoundTrippers must not mutate the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, reqID)
	}

	logger := t.Logger
	if logger == nil {
		logger = FromContext(req.Context())
	}
	logger = logger.With(
		"req_id", reqID,
		"method", req.Method,
		"path", req.URL.Path,
	)
	// A ULID supplied by the caller dates the first attempt of a logical
	// call, so a resend after a token refresh shows how long it took.
	if supplied {
		if id, err := idx.Parse(reqID); err == nil {
			logger = logger.With("since_first_ms", start.Sub(id.Time()).Milliseconds())
		}
	}

	resp, err := t.Base.RoundTrip(req)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("http_request_failed", "error", err, "duration_ms", duration)
		return nil, err
	}

	logger.Debug("http_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}
