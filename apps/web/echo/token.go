package echoweb

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// AccessClaims are the claims carried by the auth service's access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// VerifyAccessToken parses and verifies an access token against the shared
// HMAC secret, returning its claims. Expired or tampered tokens fail.
func VerifyAccessToken(token, secret string) (*AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parsing access token")
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid access token")
	}
	return claims, nil
}
