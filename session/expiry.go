package session

import (
	"github.com/golang-jwt/jwt/v5"
)

// expired reports whether token is a JWT whose exp claim has passed. Opaque tokens
// and JWTs without exp are never considered expired; the server's 401 decides.
func (s *Session) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.Time.After(s.clock.Now())
}
