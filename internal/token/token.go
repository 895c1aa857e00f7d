// Package token validates the bearer tokens minted by the external identity
// collaborator. Only validation lives here; issuance is out of scope.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"satsvault/pkg/platform/middleware/auth"
)

// Validator checks HMAC-signed access tokens and extracts the owner subject.
type Validator struct {
	signingKey []byte
	issuer     string
	audience   string
}

// Option configures the Validator.
type Option func(*Validator)

// WithIssuer requires the iss claim to match.
func WithIssuer(issuer string) Option {
	return func(v *Validator) { v.issuer = issuer }
}

// WithAudience requires the aud claim to contain the given audience.
func WithAudience(audience string) Option {
	return func(v *Validator) { v.audience = audience }
}

// NewValidator constructs a Validator for the shared signing key.
func NewValidator(signingKey string, opts ...Option) *Validator {
	v := &Validator{signingKey: []byte(signingKey)}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateToken parses and verifies a token, returning the claims the
// middleware needs. The subject claim is the opaque owner identity.
func (v *Validator) ValidateToken(tokenString string) (*auth.Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return v.signingKey, nil
	}, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}
	return &auth.Claims{Subject: claims.Subject}, nil
}
