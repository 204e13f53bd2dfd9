package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie carrying the signed role session. The
// cookie only ever holds a role claim; user identity always travels via
// bearer tokens.
const SessionCookieName = "geo_session"

var errBadSession = errors.New("invalid session cookie")

// NewSessionValue signs an HS256 JWT holding the role claim, used as the
// session cookie value for browser clients that cannot attach headers.
func NewSessionValue(secret string, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"role": role,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseSessionValue validates a session cookie value and returns the role
// it carries.
func ParseSessionValue(secret, raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errBadSession
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", errBadSession
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", errBadSession
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return "", errBadSession
	}
	return role, nil
}
