// Package devtoken implements a local-only developer auth convenience for
// `hull dev`: a short-lived signed JWT an iterating developer can attach to
// requests against the built-in example app, entirely separate from the
// production Ed25519 bundle signature in pkg/bundle. Nothing in the
// request-dispatch or manifest path depends on this package — it exists
// only so `hull dev` has something to hand a developer that looks like the
// auth token their real deployment will eventually issue.
package devtoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the developer session a dev-mode token stands for.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// Issue signs a Claims value for subject, valid for ttl, using secret as
// the HMAC key. Intended only for `hull dev`'s local loopback server —
// never for the production Ed25519 bundle-verification path.
func Issue(subject string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "hull-dev",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("devtoken: signing: %w", err)
	}
	return signed, nil
}

// Parse validates a token issued by Issue and returns its claims.
func Parse(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("devtoken: unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("devtoken: parsing: %w", err)
	}
	return claims, nil
}
