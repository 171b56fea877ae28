// Package bootstrap provides dependency initialization for the watermarking
// service.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/peerwaya/watermark-kit/internal/config"
	"github.com/peerwaya/watermark-kit/internal/job"
	"github.com/peerwaya/watermark-kit/internal/pipeline"
	"github.com/peerwaya/watermark-kit/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	JobService *job.Service
	Storage    storage.Storage
	// FileRoots are the directories the file endpoints may read and delete
	// from.
	FileRoots []string
}

// Close drains in-flight jobs and stops callback dispatch.
func (d *Dependencies) Close() {
	d.JobService.Close()
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	runner, err := pipeline.New(pipeline.Config{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	svc := job.NewService(job.ServiceConfig{
		Repo:      job.NewMemoryRepository(),
		Runner:    runner,
		Publisher: store,
		Logger:    logger,
		OutputDir: cfg.OutputDir,
	})

	return &Dependencies{
		JobService: svc,
		Storage:    store,
		FileRoots:  []string{cfg.TempDir, cfg.OutputDir},
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
