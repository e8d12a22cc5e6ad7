package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/importflow/importflow/backend/go-services/pkg/middleware"
)

// HS256Verifier checks tokens signed with the project's shared JWT secret, the
// default signing mode of hosted auth providers such as Supabase.
type HS256Verifier struct {
	secret   []byte
	audience string
}

// NewHS256Verifier returns a verifier for secret. When audience is set the aud
// claim must contain it.
func NewHS256Verifier(secret, audience string) (*HS256Verifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &HS256Verifier{secret: []byte(secret), audience: audience}, nil
}

func (v *HS256Verifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return mapToken(claims), nil
}

// mapToken exposes already-verified claims through middleware.Token.
type mapToken map[string]interface{}

func (t mapToken) Claims(v interface{}) error {
	b, err := json.Marshal(map[string]interface{}(t))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
