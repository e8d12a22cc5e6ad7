package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/importflow/importflow/backend/go-services/handlers"
	"github.com/importflow/importflow/backend/go-services/internal/app"
	"github.com/importflow/importflow/backend/go-services/internal/audit"
	"github.com/importflow/importflow/backend/go-services/internal/config"
	dochandler "github.com/importflow/importflow/backend/go-services/internal/document/handler"
	exthandler "github.com/importflow/importflow/backend/go-services/internal/extraction/handler"
	"github.com/importflow/importflow/backend/go-services/internal/oidc"
	prochandler "github.com/importflow/importflow/backend/go-services/internal/process/handler"
	"github.com/importflow/importflow/backend/go-services/pkg/logger"
	"github.com/importflow/importflow/backend/go-services/pkg/metrics"
	"github.com/importflow/importflow/backend/go-services/pkg/middleware"
)

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to initialize: %v", err)
	}
	defer a.Close(context.Background())

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	handlers.RegisterHealth(r, a.Ready)
	handlers.RegisterSwagger(r)
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := apiGroup(r, authMiddleware(ctx, cfg), rateLimiter(cfg.RateLimit, a.Redis))
	handlers.RegisterMe(api)
	prochandler.RegisterProcessRoutes(api, a.Processes)
	dochandler.RegisterDocumentRoutes(api, a.Documents, cfg.Upload.MaxBytes)
	exthandler.RegisterExtractionRoutes(api, a.Pipeline)
	audit.RegisterAuditRoutes(api, a.Audit)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting importflow API on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// apiGroup mounts the limiter after auth so buckets are keyed by the verified
// subject.
func apiGroup(r *gin.Engine, auth, limit gin.HandlerFunc) *gin.RouterGroup {
	api := r.Group("/api/v1")
	api.Use(auth)
	if limit != nil {
		api.Use(limit)
	}
	return api
}

// rateLimiter returns nil when limiting is off. The Redis window is used only
// when a client is connected.
func rateLimiter(rc config.RateLimitConfig, rdb *redis.Client) gin.HandlerFunc {
	if !rc.Enabled {
		return nil
	}
	if rc.UseRedis && rdb != nil {
		win := time.Duration(rc.WindowSeconds) * time.Second
		return middleware.RedisRateLimitMiddleware(rdb, rc.RPS, rc.Burst, win)
	}
	return middleware.RateLimitMiddleware(rc.RPS, rc.Burst)
}

// authMiddleware prefers OIDC discovery when an issuer is configured, then the
// shared HS256 secret. With neither, every API request is refused.
func authMiddleware(ctx context.Context, cfg *config.Config) gin.HandlerFunc {
	if cfg.Auth.OIDCIssuer != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID)
		if err == nil {
			logger.Infof("auth: OIDC issuer %s", cfg.Auth.OIDCIssuer)
			return middleware.AuthMiddleware(ver)
		}
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if cfg.Auth.JWTSecret != "" {
		ver, err := oidc.NewHS256Verifier(cfg.Auth.JWTSecret, cfg.Auth.Audience)
		if err == nil {
			logger.Infof("auth: HS256 tokens, audience %q", cfg.Auth.Audience)
			return middleware.AuthMiddleware(ver)
		}
		logger.Warnf("failed to initialize HS256 verifier: %v", err)
	}
	logger.Warnf("no token verifier configured; /api/v1 answers 503")
	return middleware.DenyAll()
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
