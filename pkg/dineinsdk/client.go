package dineinsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/dinein/pkg/jwtx"
	"github.com/aussiebroadwan/dinein/pkg/slogx"
)

const (
	// DefaultPublicTimeout bounds unauthenticated calls (login, signup, refresh).
	DefaultPublicTimeout = 10 * time.Second

	// DefaultAuthTimeout bounds authenticated calls.
	DefaultAuthTimeout = 30 * time.Second
)

// Client is a client for the dine-in reservation backend.
// It provides access to unauthenticated operations and creates authenticated Sessions.
type Client struct {
	BaseURL string

	// HTTPClient is used for unauthenticated calls, including token refresh
	HTTPClient *http.Client

	// AuthHTTPClient is used for calls that carry an access token
	AuthHTTPClient *http.Client

	// Store persists credentials across runs. Nil disables persistence.
	Store CredentialStore

	// Logger is used when the request context carries none
	Logger *slog.Logger

	// Now is the clock used for token expiry checks
	Now func() time.Time

	// OnSessionExpired is called after a session was force-cleared because
	// its tokens could not be refreshed.
	OnSessionExpired func()
}

// NewClient creates a client with the default timeouts.
func NewClient(baseURL string, store CredentialStore) *Client {
	return &Client{
		BaseURL:        strings.TrimSuffix(baseURL, "/"),
		HTTPClient:     &http.Client{Timeout: DefaultPublicTimeout},
		AuthHTTPClient: &http.Client{Timeout: DefaultAuthTimeout},
		Store:          store,
		Now:            time.Now,
	}
}

func (c *Client) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Client) logger(ctx context.Context) *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slogx.FromContext(ctx)
}

// NewSessionFromCredentials creates a session from tokens obtained elsewhere.
// The credentials are not persisted.
func (c *Client) NewSessionFromCredentials(creds Credentials) *Session {
	return newSession(c, creds)
}

// Login exchanges an email and password for a token pair and persists it.
//
// Errors: ErrValidation (before any request, or on 400/422),
// ErrInvalidCredentials (401), ErrAccountNotFound (404), ErrRateLimited (429),
// ErrServerError (5xx), ErrNetwork.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validationErr(req.Validate()); err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/users/login", req)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, ErrInvalidCredentials); err != nil {
		if apiErr, ok := asAPIError(err); ok && apiErr.StatusCode == http.StatusNotFound {
			apiErr.Kind = ErrAccountNotFound
		}
		return nil, err
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: login returned no access token", ErrServerError)
	}

	creds := Credentials{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		UserID:       int64(tokenResp.UserID),
		Username:     tokenResp.Username,
	}
	if creds.TokenType == "" {
		creds.TokenType = defaultTokenType
	}
	fillFromClaims(&creds)

	if c.Store != nil {
		if err := c.Store.SaveCredentials(ctx, creds); err != nil {
			c.logger(ctx).ErrorContext(ctx, "failed to persist credentials", "error", err)
		}
	}

	c.logger(ctx).InfoContext(ctx, "signed in", "user_id", creds.UserID)
	return newSession(c, creds), nil
}

// fillFromClaims falls back to the token's own claims for the user id and
// username when the login payload omitted them.
func fillFromClaims(creds *Credentials) {
	if creds.UserID != 0 && creds.Username != "" {
		return
	}

	claims, err := jwtx.Decode(creds.AccessToken)
	if err != nil {
		return
	}
	if creds.UserID == 0 {
		if id, err := claims.User(); err == nil {
			creds.UserID = id
		}
	}
	if creds.Username == "" {
		creds.Username = claims.Username
	}
}

// RestoreSession resumes the session persisted by a previous run. It returns
// ErrNoSession when nothing is stored. The restored session may hold an
// expired access token; the first authenticated call refreshes it.
func (c *Client) RestoreSession(ctx context.Context) (*Session, error) {
	if c.Store == nil {
		return nil, ErrNoSession
	}

	creds, err := c.Store.LoadCredentials(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds.AccessToken == "" {
		return nil, ErrNoSession
	}

	fillFromClaims(&creds)
	return newSession(c, creds), nil
}

// Signup creates an account. The request is validated locally first.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validationErr(req.Validate()); err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/users/signup", req)
	if err != nil {
		return nil, err
	}

	var signupResp SignupResponse
	if err := decodeJSON(resp, &signupResp, ErrValidation); err != nil {
		return nil, err
	}
	return &signupResp, nil
}

// ForgotPassword asks the backend to send a password reset email and returns
// its confirmation message.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if reason := validateEmail(email); reason != "" {
		return "", validationErr(map[string]string{"email": reason})
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/users/forgot-password", forgotPasswordRequest{Email: email})
	if err != nil {
		return "", err
	}

	var msg messageResponse
	if err := decodeJSON(resp, &msg, ErrValidation); err != nil {
		return "", err
	}
	return msg.Message, nil
}
