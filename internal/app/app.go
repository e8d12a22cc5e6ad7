// Package app wires configuration into the services shared by the API server
// and the batch commands.
package app

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/importflow/importflow/backend/go-services/internal/audit"
	"github.com/importflow/importflow/backend/go-services/internal/config"
	"github.com/importflow/importflow/backend/go-services/internal/database"
	docrepo "github.com/importflow/importflow/backend/go-services/internal/document/repository"
	docsvc "github.com/importflow/importflow/backend/go-services/internal/document/service"
	"github.com/importflow/importflow/backend/go-services/internal/extraction"
	"github.com/importflow/importflow/backend/go-services/internal/nocodb"
	procrepo "github.com/importflow/importflow/backend/go-services/internal/process/repository"
	procsvc "github.com/importflow/importflow/backend/go-services/internal/process/service"
	"github.com/importflow/importflow/backend/go-services/internal/storage"
	"github.com/importflow/importflow/backend/go-services/pkg/logger"
)

const auditCollection = "audit_logs"

// App holds the connected clients and services.
type App struct {
	Config    *config.Config
	NocoDB    *nocodb.Client
	Storage   *storage.MinIOStorage
	Redis     *redis.Client
	Audit     *audit.Recorder
	Processes procsvc.Service
	Documents docsvc.Service
	Pipeline  *extraction.Pipeline

	extractor extraction.Extractor
	mongo     *mongo.Client
}

// New connects to NocoDB, object storage and the optional Redis and MongoDB
// backends. Redis and MongoDB failures are logged and the features they back
// are turned off.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg}
	a.NocoDB = nocodb.NewClient(cfg.NocoDB.URL, cfg.NocoDB.Token, cfg.NocoDB.Timeout)

	store, err := storage.NewMinIOStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Warnf("storage bucket %s not ensured: %v", cfg.Storage.Bucket, err)
	}
	a.Storage = store

	if cfg.Redis.Host != "" {
		a.Redis = connectRedis(ctx, cfg.Redis)
	}
	a.Audit = audit.NewRecorder(a.auditRepo(ctx))

	drepo := docrepo.NewNocoDBRepo(a.NocoDB, cfg.NocoDB.UploadsTable, cfg.NocoDB.RelationsTable)
	a.Processes = procsvc.NewService(
		procrepo.NewNocoDBRepo(a.NocoDB, cfg.NocoDB.ProcessesTable),
		procsvc.WithRelationCleaner(drepo),
	)
	opts := docsvc.Options{
		MaxBytes: cfg.Upload.MaxBytes,
		URLTTL:   cfg.Storage.URLTTL,
	}
	var cache extraction.Cache
	if a.Redis != nil {
		cache = extraction.NewRedisCache(a.Redis, cfg.Extraction.CacheTTL)
		opts.OnDelete = extraction.InvalidateOnDelete(cache)
	}
	a.Documents = docsvc.NewService(drepo, store, a.Processes, a.Audit, opts)

	ext, err := extraction.NewExtractor(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("extraction backend: %w", err)
	}
	a.extractor = ext
	a.Pipeline = extraction.NewPipeline(ext, a.Documents, a.Processes, a.Audit, cache)

	logger.Infof("app ready: audit=%s redis=%v extraction=%s", cfg.Audit.Sink, a.Redis != nil, cfg.Extraction.Backend)
	return a, nil
}

func connectRedis(ctx context.Context, rc config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(rc.Host, rc.Port),
		Password: rc.Password,
		DB:       rc.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		logger.Warnf("failed to connect to Redis (%s:%s): %v", rc.Host, rc.Port, err)
		_ = client.Close()
		return nil
	}
	logger.Infof("connected to Redis %s:%s", rc.Host, rc.Port)
	return client
}

// auditRepo picks the sink named by AUDIT_SINK. A nil repository disables auditing.
func (a *App) auditRepo(ctx context.Context) audit.Repository {
	cfg := a.Config
	switch strings.ToLower(cfg.Audit.Sink) {
	case "none", "off":
		return nil
	case "mongo":
		client, col, err := database.MongoCollection(ctx, cfg.MongoDB, auditCollection)
		if err != nil {
			logger.Warnf("audit disabled: %v", err)
			return nil
		}
		repo, err := audit.NewMongoRepo(ctx, col)
		if err != nil {
			logger.Warnf("audit disabled: %v", err)
			_ = client.Disconnect(ctx)
			return nil
		}
		a.mongo = client
		return repo
	default:
		return audit.NewNocoDBRepo(a.NocoDB, cfg.NocoDB.AuditLogsTable)
	}
}

// Ready checks the dependencies every request needs.
func (a *App) Ready(ctx context.Context) map[string]error {
	deps := map[string]error{
		"nocodb":  a.NocoDB.Ping(ctx, a.Config.NocoDB.ProcessesTable),
		"storage": a.Storage.Ping(ctx),
	}
	if a.Redis != nil {
		deps["redis"] = a.Redis.Ping(ctx).Err()
	}
	return deps
}

// Close releases the backend clients.
func (a *App) Close(ctx context.Context) {
	if a.extractor != nil {
		if err := a.extractor.Close(); err != nil {
			logger.Warnf("extraction backend close: %v", err)
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.mongo != nil {
		_ = a.mongo.Disconnect(ctx)
	}
}
