package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSessionExpired is returned when the stored id token has expired.
var ErrSessionExpired = errors.New("identity session expired")

// Claims are the id token claims the dashboard reads.
// The subject is the provider's user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenProvider reads an HMAC-signed id token left on disk by the login flow.
type TokenProvider struct {
	path   string
	secret []byte
	issuer string
}

// NewTokenProvider returns a provider reading the token at path. When issuer
// is non-empty the token's iss claim must match it.
func NewTokenProvider(path, secret, issuer string) *TokenProvider {
	return &TokenProvider{
		path:   path,
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Session parses and verifies the token. A missing token file is reported as
// an unauthenticated session, not an error.
func (p *TokenProvider) Session(_ context.Context) (Session, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("read id token: %w", err)
	}

	claims, err := p.parse(strings.TrimSpace(string(raw)))
	if err != nil {
		return Session{}, err
	}

	return Session{User: &User{ID: claims.Subject, Email: claims.Email}}, nil
}

func (p *TokenProvider) parse(token string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return p.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("parse id token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("parse id token: invalid claims")
	}
	if claims.Subject == "" && claims.Email == "" {
		return nil, ErrNoSession
	}

	return claims, nil
}
