// Package auth verifies signed session tokens for HTTP requests and live
// connections.
package auth

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Verifier checks tokens signed with one configured HMAC algorithm and secret.
type Verifier struct {
	method jwt.SigningMethod
	secret []byte
}

func NewVerifier(alg, secret string) (*Verifier, error) {
	method, err := signingMethod(alg)
	if err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &Verifier{method: method, secret: []byte(secret)}, nil
}

// Verify parses token and returns its claims.
func (v *Verifier) Verify(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{v.method.Alg()}))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Sign issues a token for claims with the configured algorithm.
func (v *Verifier) Sign(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(v.method, claims).SignedString(v.secret)
}

// Resign rebuilds a token from verified claims without its issued-at time,
// so the directory receives a token it can verify with the shared secret.
func (v *Verifier) Resign(claims jwt.MapClaims) (string, error) {
	out := maps.Clone(claims)
	delete(out, "iat")
	return v.Sign(out)
}

// UserID reads the user_id claim, which may be a JSON number or a string.
func UserID(claims jwt.MapClaims) (int64, bool) {
	switch v := claims["user_id"].(type) {
	case float64:
		if v <= 0 || v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
