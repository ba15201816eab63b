package dineinsdk

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/aussiebroadwan/dinein/pkg/cryptox"
	"github.com/aussiebroadwan/dinein/pkg/idx"
	"github.com/aussiebroadwan/dinein/pkg/jwtx"
)

const (
	defaultTokenType = "bearer"

	// refreshKey is the only singleflight key; there is one refresh cycle
	// per session at any instant.
	refreshKey = "refresh"
)

// Session represents an authenticated session with automatic token refresh.
// It is safe for concurrent use. The token pair is the only shared mutable
// state; it is written only by login, refresh and logout.
type Session struct {
	client *Client

	mu       sync.RWMutex
	token    *oauth2.Token
	userID   int64
	username string

	refresh singleflight.Group
}

// newSession creates a session from credentials. It does not persist them.
func newSession(client *Client, creds Credentials) *Session {
	s := &Session{client: client}
	s.setCredentials(creds)
	return s
}

func (s *Session) setCredentials(creds Credentials) {
	tokenType := creds.TokenType
	if tokenType == "" {
		tokenType = defaultTokenType
	}

	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    tokenType,
	}
	if claims, err := jwtx.Decode(creds.AccessToken); err == nil {
		if exp, err := claims.Expiry(); err == nil {
			token.Expiry = exp
		}
	}

	s.mu.Lock()
	s.token = token
	s.userID = creds.UserID
	s.username = creds.Username
	s.mu.Unlock()
}

// Credentials returns a snapshot of the session suitable for persisting.
func (s *Session) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil {
		return Credentials{}
	}
	return Credentials{
		AccessToken:  s.token.AccessToken,
		RefreshToken: s.token.RefreshToken,
		TokenType:    s.token.TokenType,
		UserID:       s.userID,
		Username:     s.username,
	}
}

func (s *Session) currentToken() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// UserID returns the numeric id of the signed-in user, or 0.
func (s *Session) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Username returns the display username of the signed-in user.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// IsAuthenticated reports whether an access token is held and its exp claim
// is strictly after now. A token whose exp equals now is expired.
func (s *Session) IsAuthenticated() bool {
	token := s.currentToken()
	if token == nil || token.AccessToken == "" {
		return false
	}

	claims, err := jwtx.Decode(token.AccessToken)
	if err != nil {
		return false
	}
	return claims.ValidAt(s.client.now())
}

// validToken returns the token to attach to the next request. A token that
// is already known to be expired is refreshed first so the request is not
// sent just to be rejected. Opaque tokens are used as-is.
func (s *Session) validToken(ctx context.Context) (*oauth2.Token, error) {
	token := s.currentToken()
	if token == nil || token.RefreshToken == "" {
		return token, nil
	}

	claims, err := jwtx.Decode(token.AccessToken)
	if err != nil || claims.ValidAt(s.client.now()) {
		return token, nil
	}

	return s.handleUnauthorized(ctx, token)
}

// handleUnauthorized resolves a 401 seen with the stale token. Every caller
// that arrives while a refresh is pending waits on that same refresh; a
// caller whose stale token has already been replaced gets the current token
// without any network call.
func (s *Session) handleUnauthorized(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
	current := s.currentToken()
	if current == nil || current.AccessToken == "" || current.RefreshToken == "" {
		s.expire(ctx)
		return nil, fmt.Errorf("%w: no tokens available", ErrSessionExpired)
	}
	if stale == nil || current.AccessToken != stale.AccessToken {
		return current, nil
	}

	// The refresh outlives any single caller's cancellation: other callers
	// may be waiting on it.
	refreshCtx := context.WithoutCancel(ctx)

	ch := s.refresh.DoChan(refreshKey, func() (any, error) {
		if cur := s.currentToken(); cur != nil && cur.AccessToken != stale.AccessToken {
			return cur, nil
		}
		return s.doRefresh(refreshCtx)
	})

	select {
	case <-ctx.Done():
		return nil, networkError(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	}
}

// Refresh forces a token refresh through the same single-flight guard used by
// the 401 handler.
func (s *Session) Refresh(ctx context.Context) error {
	_, err := s.handleUnauthorized(ctx, s.currentToken())
	return err
}

// doRefresh exchanges the refresh token for a new access token. Any failure
// clears the session.
func (s *Session) doRefresh(ctx context.Context) (*oauth2.Token, error) {
	log := s.client.logger(ctx)

	old := s.currentToken()
	if old == nil || old.RefreshToken == "" {
		s.expire(ctx)
		return nil, fmt.Errorf("%w: no refresh token", ErrSessionExpired)
	}

	start := time.Now()
	resp, err := s.client.doRequest(ctx, http.MethodPost, "/auth/refresh", refreshRequest{
		RefreshToken: old.RefreshToken,
	})
	if err != nil {
		log.WarnContext(ctx, "token refresh failed", "error", err)
		s.expire(ctx)
		return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, ErrSessionExpired); err != nil {
		log.WarnContext(ctx, "token refresh rejected", "error", err)
		s.expire(ctx)
		return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	if tokenResp.AccessToken == "" {
		s.expire(ctx)
		return nil, fmt.Errorf("%w: refresh returned no access token", ErrSessionExpired)
	}

	creds := s.Credentials()
	creds.AccessToken = tokenResp.AccessToken
	if tokenResp.RefreshToken != "" {
		creds.RefreshToken = tokenResp.RefreshToken
	}
	if tokenResp.TokenType != "" {
		creds.TokenType = tokenResp.TokenType
	}
	s.setCredentials(creds)

	if store := s.client.Store; store != nil {
		if err := store.SaveCredentials(ctx, creds); err != nil {
			log.ErrorContext(ctx, "failed to persist refreshed credentials", "error", err)
		}
	}

	log.DebugContext(ctx, "token refreshed",
		"token", cryptox.FingerprintToken(creds.AccessToken),
		"rotated", tokenResp.RefreshToken != "",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return s.currentToken(), nil
}

// clear drops local session state and the persisted copy.
func (s *Session) clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = nil
	s.userID = 0
	s.username = ""
	s.mu.Unlock()

	if store := s.client.Store; store != nil {
		if err := store.ClearCredentials(ctx); err != nil {
			return fmt.Errorf("failed to clear stored credentials: %w", err)
		}
	}
	return nil
}

// expire clears the session after an unrecoverable auth failure and notifies
// the OnSessionExpired hook.
func (s *Session) expire(ctx context.Context) {
	if err := s.clear(ctx); err != nil {
		s.client.logger(ctx).ErrorContext(ctx, "failed to clear expired session", "error", err)
	}
	if hook := s.client.OnSessionExpired; hook != nil {
		hook()
	}
}

// Logout informs the backend on a best-effort basis and then clears all
// local session state. Only a failure to clear local storage is returned.
func (s *Session) Logout(ctx context.Context) error {
	token := s.currentToken()
	if token != nil && token.AccessToken != "" {
		if err := s.revoke(ctx, token); err != nil {
			s.client.logger(ctx).InfoContext(ctx, "server-side logout failed", "error", err)
		}
	}

	return s.clear(ctx)
}

func (s *Session) revoke(ctx context.Context, token *oauth2.Token) error {
	payload, err := marshalBody(refreshRequest{RefreshToken: token.RefreshToken})
	if err != nil {
		return err
	}

	resp, err := s.send(ctx, http.MethodPost, "/users/logout", payload, token, idx.New())
	if err != nil {
		return err
	}
	return checkStatus(resp, ErrServerError)
}
