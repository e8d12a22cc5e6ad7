package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	NocoDB     NocoDBConfig
	Storage    StorageConfig
	Extraction ExtractionConfig
	Vertex     VertexConfig
	Auth       AuthConfig
	Redis      RedisConfig
	MongoDB    MongoDBConfig
	RateLimit  RateLimitConfig
	Audit      AuditConfig
	Upload     UploadConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	Environment    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// NocoDBConfig points at the NocoDB REST API and the table ids backing each record type.
type NocoDBConfig struct {
	URL            string
	Token          string
	Timeout        time.Duration
	ProcessesTable string
	UploadsTable   string
	RelationsTable string
	AuditLogsTable string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
	URLTTL    time.Duration
}

type ExtractionConfig struct {
	Backend  string // http | vertex
	APIURL   string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type VertexConfig struct {
	ProjectID string
	Region    string
	Model     string
}

// AuthConfig configures verification of tokens issued by the hosted auth provider.
// JWTSecret verifies HS256 tokens; OIDCIssuer switches to discovery-based verification.
type AuthConfig struct {
	JWTSecret    string
	Audience     string
	OIDCIssuer   string
	OIDCClientID string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type AuditConfig struct {
	Sink string // nocodb | mongo | none
}

type UploadConfig struct {
	MaxBytes int64
}

// LoadConfig loads configuration from environment variables and an optional .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("NOCODB_TIMEOUT", 15)
	viper.SetDefault("NOCODB_TABLE_PROCESSES", "processes")
	viper.SetDefault("NOCODB_TABLE_UPLOADS", "uploads")
	viper.SetDefault("NOCODB_TABLE_RELATIONS", "process_documents")
	viper.SetDefault("NOCODB_TABLE_AUDIT", "audit_logs")
	viper.SetDefault("STORAGE_BUCKET", "documents")
	viper.SetDefault("STORAGE_URL_TTL_MINUTES", 60)
	viper.SetDefault("EXTRACTION_BACKEND", "http")
	viper.SetDefault("EXTRACTION_TIMEOUT", 120)
	viper.SetDefault("EXTRACTION_CACHE_TTL_HOURS", 72)
	viper.SetDefault("VERTEX_REGION", "us-central1")
	viper.SetDefault("VERTEX_MODEL", "gemini-1.5-pro")
	viper.SetDefault("AUTH_AUDIENCE", "authenticated")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("MONGODB_DATABASE", "importflow")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 10)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("AUDIT_SINK", "nocodb")
	viper.SetDefault("UPLOAD_MAX_BYTES", 25<<20)

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Host:           viper.GetString("SERVER_HOST"),
			Environment:    viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:    60 * time.Second,
			WriteTimeout:   180 * time.Second,
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		NocoDB: NocoDBConfig{
			URL:            strings.TrimRight(viper.GetString("NOCODB_URL"), "/"),
			Token:          viper.GetString("NOCODB_TOKEN"),
			Timeout:        time.Duration(viper.GetInt("NOCODB_TIMEOUT")) * time.Second,
			ProcessesTable: viper.GetString("NOCODB_TABLE_PROCESSES"),
			UploadsTable:   viper.GetString("NOCODB_TABLE_UPLOADS"),
			RelationsTable: viper.GetString("NOCODB_TABLE_RELATIONS"),
			AuditLogsTable: viper.GetString("NOCODB_TABLE_AUDIT"),
		},
		Storage: StorageConfig{
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Region:    viper.GetString("STORAGE_REGION"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			URLTTL:    time.Duration(viper.GetInt("STORAGE_URL_TTL_MINUTES")) * time.Minute,
		},
		Extraction: ExtractionConfig{
			Backend:  strings.ToLower(viper.GetString("EXTRACTION_BACKEND")),
			APIURL:   strings.TrimRight(viper.GetString("EXTRACTION_API_URL"), "/"),
			APIKey:   viper.GetString("EXTRACTION_API_KEY"),
			Timeout:  time.Duration(viper.GetInt("EXTRACTION_TIMEOUT")) * time.Second,
			CacheTTL: time.Duration(viper.GetInt("EXTRACTION_CACHE_TTL_HOURS")) * time.Hour,
		},
		Vertex: VertexConfig{
			ProjectID: viper.GetString("VERTEX_PROJECT_ID"),
			Region:    viper.GetString("VERTEX_REGION"),
			Model:     viper.GetString("VERTEX_MODEL"),
		},
		Auth: AuthConfig{
			JWTSecret:    viper.GetString("AUTH_JWT_SECRET"),
			Audience:     viper.GetString("AUTH_AUDIENCE"),
			OIDCIssuer:   viper.GetString("AUTH_OIDC_ISSUER"),
			OIDCClientID: viper.GetString("AUTH_OIDC_CLIENT_ID"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Audit: AuditConfig{
			Sink: strings.ToLower(viper.GetString("AUDIT_SINK")),
		},
		Upload: UploadConfig{
			MaxBytes: viper.GetInt64("UPLOAD_MAX_BYTES"),
		},
	}

	return cfg, nil
}

// Validate reports the first missing setting the server cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.NocoDB.URL == "":
		return errors.New("NOCODB_URL is required")
	case c.NocoDB.Token == "":
		return errors.New("NOCODB_TOKEN is required")
	case c.NocoDB.ProcessesTable == "" || c.NocoDB.UploadsTable == "" || c.NocoDB.RelationsTable == "":
		return errors.New("NocoDB table ids for processes, uploads and relations are required")
	}
	switch c.Extraction.Backend {
	case "http":
		if c.Extraction.APIURL == "" {
			return errors.New("EXTRACTION_API_URL is required for the http extraction backend")
		}
	case "vertex":
		if c.Vertex.ProjectID == "" {
			return errors.New("VERTEX_PROJECT_ID is required for the vertex extraction backend")
		}
	default:
		return errors.New("EXTRACTION_BACKEND must be http or vertex")
	}
	if c.Audit.Sink == "mongo" && c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI is required when AUDIT_SINK=mongo")
	}
	return nil
}

// AuthConfigured reports whether any token verification method is set.
func (c *Config) AuthConfigured() bool {
	return c.Auth.JWTSecret != "" || (c.Auth.OIDCIssuer != "" && c.Auth.OIDCClientID != "")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
