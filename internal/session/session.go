package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated admin identity returned by the login endpoint.
type Session struct {
	Token    string    `json:"token"`
	UserName string    `json:"userName"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	// ExpiresAt is the token's exp claim. Zero when the token carries none.
	ExpiresAt time.Time `json:"expiresAt"`
}

var (
	// ErrNoToken is returned when an authenticated call is attempted with no
	// stored session. Callers must fail fast instead of sending the request.
	ErrNoToken = errors.New("no session token: login required")
	// ErrExpired is returned when the stored token's exp claim has passed.
	ErrExpired = errors.New("session token expired: login required")
)

// tokenExpiry extracts the exp claim from a JWT without verifying the
// signature. The console holds no signing key; expiry is only used to fail
// fast locally before a request is sent. Returns zero time when the token is
// not a JWT or carries no exp claim.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
