package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const secret = "super-secret-jwt-token-with-at-least-32-characters"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func TestHS256Verifier(t *testing.T) {
	v, err := NewHS256Verifier(secret, "authenticated")
	require.NoError(t, err)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Unix()

	tok, err := v.Verify(ctx, sign(t, secret, jwt.MapClaims{
		"sub": "0b7c", "aud": "authenticated", "exp": exp, "email": "ana@example.com",
		"user_metadata": map[string]interface{}{"full_name": "Ana"},
	}))
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "0b7c", claims["sub"])
	require.Equal(t, "Ana", claims["user_metadata"].(map[string]interface{})["full_name"])

	cases := map[string]string{
		"wrong secret": sign(t, "another-secret-another-secret-another", jwt.MapClaims{"sub": "x", "aud": "authenticated", "exp": exp}),
		"wrong aud":    sign(t, secret, jwt.MapClaims{"sub": "x", "aud": "anon", "exp": exp}),
		"expired":      sign(t, secret, jwt.MapClaims{"sub": "x", "aud": "authenticated", "exp": time.Now().Add(-time.Minute).Unix()}),
		"no exp":       sign(t, secret, jwt.MapClaims{"sub": "x", "aud": "authenticated"}),
		"garbage":      "not.a.jwt",
	}
	for name, raw := range cases {
		_, err := v.Verify(ctx, raw)
		require.Error(t, err, name)
	}

	// HS512 is not accepted even with the right key
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "x", "aud": "authenticated", "exp": exp}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = v.Verify(ctx, s)
	require.Error(t, err)
}

func TestHS256VerifierRequiresSecret(t *testing.T) {
	_, err := NewHS256Verifier("", "")
	require.Error(t, err)
}

func TestNewVerifierDiscovery(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/openid-configuration":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"issuer":                 srv.URL,
				"jwks_uri":               srv.URL + "/keys",
				"authorization_endpoint": srv.URL + "/auth",
				"token_endpoint":         srv.URL + "/token",
			})
		case "/keys":
			_, _ = w.Write([]byte(`{"keys":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	v, err := NewVerifier(context.Background(), srv.URL, "importflow")
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), sign(t, secret, jwt.MapClaims{"sub": "x"}))
	require.Error(t, err)

	_, err = NewVerifier(context.Background(), srv.URL+"/missing", "importflow")
	require.Error(t, err)
}
