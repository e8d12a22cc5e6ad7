package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier implements Verifier
type fakeVerifier struct{}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	switch raw {
	case "goodtoken":
		return &fakeToken{data: map[string]interface{}{"sub": "user1", "email": "test@example.com"}}, nil
	case "nosub":
		return &fakeToken{data: map[string]interface{}{"email": "anon@example.com"}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func serveAuth(t *testing.T, header string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), h)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	for _, header := range []string{"", "BadHeader", "Basic abc", "Bearer ", "Bearer badtoken", "Bearer nosub"} {
		rw := serveAuth(t, header, ok)
		require.Equal(t, http.StatusUnauthorized, rw.Code, header)
		require.NotContains(t, rw.Body.String(), "details")
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	rw := serveAuth(t, "Bearer goodtoken", func(c *gin.Context) {
		u := CurrentUser(c)
		require.NotNil(t, u)
		require.Equal(t, "test@example.com", u.Email)
		c.String(http.StatusOK, Subject(c))
	})
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "user1", rw.Body.String())

	// scheme is case-insensitive
	rw = serveAuth(t, "bearer goodtoken", func(c *gin.Context) { c.Status(http.StatusOK) })
	require.Equal(t, http.StatusOK, rw.Code)
}

func TestHelpersOutsideAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	require.Nil(t, CurrentUser(c))
	require.Equal(t, "", Subject(c))
}

func TestDenyAll(t *testing.T) {
	g := gin.New()
	g.GET("/", DenyAll(), func(c *gin.Context) { c.Status(http.StatusOK) })
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusServiceUnavailable, rw.Code)
}
