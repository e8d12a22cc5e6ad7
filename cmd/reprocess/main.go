// Command reprocess runs the extraction pipeline again for uploads that are
// still pending or ended in error.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/importflow/importflow/backend/go-services/internal/app"
	"github.com/importflow/importflow/backend/go-services/internal/config"
	"github.com/importflow/importflow/backend/go-services/internal/document"
	"github.com/importflow/importflow/backend/go-services/internal/extraction"
	"github.com/importflow/importflow/backend/go-services/internal/models"
	"github.com/importflow/importflow/backend/go-services/pkg/logger"
)

func main() {
	processID := pflag.String("process", "", "only uploads linked to this process id")
	limit := pflag.Int("limit", 100, "maximum number of uploads to run")
	force := pflag.Bool("force", false, "ignore cached results")
	dryRun := pflag.Bool("dry-run", false, "list the uploads without running them")
	pflag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to initialize: %v", err)
	}
	failed := run(ctx, a, *processID, *limit, *force, *dryRun)
	a.Close(context.Background())
	stop()
	if failed > 0 {
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, processID string, limit int, force, dryRun bool) int {
	uploads, err := candidates(ctx, a, processID, limit)
	if err != nil {
		logger.Errorf("failed to list uploads: %v", err)
		return 1
	}
	logger.Infof("reprocess: %d uploads to run", len(uploads))

	var ok, failed int
	for _, u := range uploads {
		if ctx.Err() != nil {
			logger.Warnf("reprocess: interrupted")
			break
		}
		if dryRun {
			logger.Infof("reprocess: would run %s (%s, %s)", u.FileHash, u.FileName, u.Status)
			continue
		}
		res, err := a.Pipeline.Run(ctx, extraction.Request{
			FileHash:     u.FileHash,
			ProcessID:    processID,
			DocumentType: u.DocumentType,
			ActorID:      "reprocess",
			Force:        force,
		})
		if err != nil {
			failed++
			logger.Errorf("reprocess: %s failed: %v", u.FileHash, err)
			continue
		}
		ok++
		logger.Infof("reprocess: %s -> %s (cached=%v)", u.FileHash, res.DocumentType, res.Cached)
	}
	logger.Infof("reprocess: done, %d completed, %d failed", ok, failed)
	return failed
}

// candidates returns pending or errored uploads, optionally restricted to one process.
func candidates(ctx context.Context, a *app.App, processID string, limit int) ([]*document.Upload, error) {
	var all []*document.Upload
	if processID != "" {
		linked, err := a.Documents.ListByProcess(ctx, processID)
		if err != nil {
			return nil, err
		}
		for _, u := range linked {
			if u.Status == models.StatusPending || u.Status == models.StatusError {
				all = append(all, u)
			}
		}
	} else {
		list, err := a.Documents.List(ctx, document.Filter{
			Statuses: []string{models.StatusPending, models.StatusError},
			Limit:    limit,
		})
		if err != nil {
			return nil, err
		}
		all = list
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
