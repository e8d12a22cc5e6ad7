package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("NOCODB_URL", "https://nocodb.example.com/")
	t.Setenv("NOCODB_TOKEN", "xc-token")
	t.Setenv("EXTRACTION_API_URL", "https://ocr.example.com/v1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, http://localhost:3000")
}

func TestLoadConfig(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "https://nocodb.example.com", cfg.NocoDB.URL)
	require.Equal(t, "processes", cfg.NocoDB.ProcessesTable)
	require.Equal(t, "http", cfg.Extraction.Backend)
	require.Equal(t, 72*time.Hour, cfg.Extraction.CacheTTL)
	require.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
	require.Equal(t, int64(25<<20), cfg.Upload.MaxBytes)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	setBaseEnv(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)

	missingToken := *cfg
	missingToken.NocoDB.Token = ""
	require.ErrorContains(t, missingToken.Validate(), "NOCODB_TOKEN")

	vertex := *cfg
	vertex.Extraction.Backend = "vertex"
	vertex.Vertex.ProjectID = ""
	require.ErrorContains(t, vertex.Validate(), "VERTEX_PROJECT_ID")

	unknown := *cfg
	unknown.Extraction.Backend = "ftp"
	require.Error(t, unknown.Validate())

	mongoSink := *cfg
	mongoSink.Audit.Sink = "mongo"
	mongoSink.MongoDB.URI = ""
	require.ErrorContains(t, mongoSink.Validate(), "MONGODB_URI")
}

func TestAuthConfigured(t *testing.T) {
	cfg := &Config{}
	require.False(t, cfg.AuthConfigured())
	cfg.Auth.JWTSecret = "secret"
	require.True(t, cfg.AuthConfigured())
	cfg = &Config{Auth: AuthConfig{OIDCIssuer: "https://issuer"}}
	require.False(t, cfg.AuthConfigured())
	cfg.Auth.OIDCClientID = "client"
	require.True(t, cfg.AuthConfigured())
}
