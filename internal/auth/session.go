package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is a bearer token issued by the backend together with the
// identity it was issued for.
type Session struct {
	Token     string
	Identity  Identity
	ExpiresAt time.Time
}

// Expired reports whether the token is past its exp claim.
// A zero ExpiresAt means the expiry is unknown and is treated as valid.
func (s Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// TokenExpiry extracts the exp claim from a JWT without verifying its
// signature. The client never holds the signing key; the claim is only
// used to avoid sending requests with a token that is already stale.
func TokenExpiry(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, errors.New("token is required")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}
