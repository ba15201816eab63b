package dineinsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/aussiebroadwan/dinein/pkg/idx"
	"github.com/aussiebroadwan/dinein/pkg/slogx"
)

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// newRequest builds a JSON request. The body is given as bytes so the same
// payload can be replayed after a token refresh.
func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// marshalBody encodes v as JSON. A nil v means no body.
func marshalBody(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return payload, nil
}

// doRequest performs an HTTP request with the public HTTP client.
// This is for unauthenticated requests (no Authorization header).
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	payload, err := marshalBody(body)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	return resp, nil
}

// doAuthRequest performs an authenticated request. A 401 response triggers
// one refresh cycle (shared with every other caller that hit a 401 at the
// same time) and the request is resent exactly once with the new token.
// A second 401 returns ErrSessionExpired but keeps the refreshed tokens;
// only a failed refresh clears the session. Both attempts carry the same
// request ID.
func (s *Session) doAuthRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	payload, err := marshalBody(body)
	if err != nil {
		return nil, err
	}

	token, err := s.validToken(ctx)
	if err != nil {
		return nil, err
	}

	reqID := idx.New()
	resp, err := s.send(ctx, method, path, payload, token, reqID)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	fresh, err := s.handleUnauthorized(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err = s.send(ctx, method, path, payload, fresh, reqID)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		s.client.logger(ctx).WarnContext(ctx, "request rejected after token refresh",
			"method", method,
			"path", path,
			"req_id", reqID,
		)
		return nil, fmt.Errorf("%w: request rejected after refresh", ErrSessionExpired)
	}

	return resp, nil
}

// send builds a fresh request from the buffered payload, attaches token and
// executes it on the authenticated HTTP client.
func (s *Session) send(ctx context.Context, method, path string, payload []byte, token *oauth2.Token, reqID idx.ID) (*http.Response, error) {
	req, err := s.client.newRequest(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set(slogx.RequestIDHeader, reqID.String())
	attachCredentials(req, token)

	resp, err := s.client.AuthHTTPClient.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	return resp, nil
}

// attachCredentials sets "Authorization: <type> <access token>". A nil or
// empty token leaves the request unauthenticated.
func attachCredentials(req *http.Request, token *oauth2.Token) {
	if token == nil || token.AccessToken == "" {
		return
	}
	token.SetAuthHeader(req)
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// decodeJSON decodes any 2xx response into target (which may be nil).
// Non-2xx responses become an *APIError; fallback names the kind used for
// 4xx statuses without a dedicated meaning.
func decodeJSON(resp *http.Response, target any, fallback error) error {
	defer resp.Body.Close()

	// Read body once for both error parsing and success decoding
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseErrorResponse(resp, bodyBytes, fallback)
	}

	if target == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", ErrServerError, err)
	}
	return nil
}

// checkStatus returns a typed error unless the response is 2xx.
func checkStatus(resp *http.Response, fallback error) error {
	return decodeJSON(resp, nil, fallback)
}

// asAPIError is errors.As for the common case.
func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
