package jwtx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrMissingExp  = errors.New("jwtx: token has no exp claim")
	ErrMissingUser = errors.New("jwtx: token has no user_id claim")
)

// Claims is the read-only view of an access token issued by the reservation
// backend. It is decoded on demand and never persisted on its own.
//
// The signature is NOT verified. The backend is the authorization boundary;
// these claims only let the client skip requests that are already doomed and
// recover the user id when a login response omits it.
type Claims struct {
	jwt.RegisteredClaims

	// UserID is the numeric account id ("user_id"). Some issuers encode it as
	// a string, so both forms are accepted.
	UserID UserID `json:"user_id"`

	// Username is optional and only present on newer tokens.
	Username string `json:"username,omitempty"`
}

// UserID is a numeric id that tolerates string encoding in JSON.
type UserID int64

// UnmarshalJSON accepts 42, 42.0 and "42".
func (u *UserID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*u = 0
		return nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*u = UserID(n)
		return nil
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("jwtx: user_id %q is not numeric", s)
	}
	*u = UserID(int64(n))
	return nil
}

// Decode reads the claims out of a compact three-part token without checking
// its signature or any time-based claim.
func Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return nil, ErrMalformed
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return &claims, nil
}

// Expiry returns the exp claim, or ErrMissingExp when the token has none.
func (c *Claims) Expiry() (time.Time, error) {
	if c.ExpiresAt == nil {
		return time.Time{}, ErrMissingExp
	}
	return c.ExpiresAt.Time, nil
}

// ValidAt reports whether exp is strictly after now. A token whose exp equals
// now is expired; there is no leeway for clock skew.
func (c *Claims) ValidAt(now time.Time) bool {
	exp, err := c.Expiry()
	if err != nil {
		return false
	}
	return exp.After(now)
}

// User returns the user_id claim, or ErrMissingUser if it was absent or zero.
func (c *Claims) User() (int64, error) {
	if c.UserID == 0 {
		return 0, ErrMissingUser
	}
	return int64(c.UserID), nil
}
