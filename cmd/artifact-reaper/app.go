package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taigrr/artifact-reaper/internal/artifactory"
	"github.com/taigrr/artifact-reaper/internal/catalog"
	"github.com/taigrr/artifact-reaper/internal/config"
	"github.com/taigrr/artifact-reaper/internal/deleter"
	"github.com/taigrr/artifact-reaper/internal/filesystem"
	"github.com/taigrr/artifact-reaper/internal/logging"
	"github.com/taigrr/artifact-reaper/internal/metrics"
	"github.com/taigrr/artifact-reaper/internal/pathfilter"
	"github.com/taigrr/artifact-reaper/internal/report"
	"github.com/taigrr/artifact-reaper/internal/retry"
	"github.com/taigrr/artifact-reaper/internal/timestamp"
	"github.com/taigrr/artifact-reaper/internal/walker"
)

// Catalog names inside the store.
const (
	devCatalog     = "dev_catalog.txt"
	releaseCatalog = "release_catalog.txt"
	metricsJob     = "artifact-reaper"
)

// backend is a repository the reaper can walk and delete from.
type backend interface {
	walker.Fetcher
	deleter.Remover
}

// app holds everything built from one configuration.
type app struct {
	cfg         config.Config
	runID       string
	started     time.Time
	today       timestamp.Date
	logger      *zap.Logger
	metrics     *metrics.Metrics
	store       catalog.Store
	backend     backend
	writer      *report.Writer
	normalizer  *timestamp.Normalizer
	folderRules *pathfilter.Matcher
	fileRules   *pathfilter.Matcher
	local       bool
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	runID := uuid.NewString()

	base, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	logger := logging.WithRun(base, runID)

	folderRules, err := pathfilter.New(cfg.FolderRules())
	if err != nil {
		return nil, fmt.Errorf("%w: skip_folders: %w", config.ErrConfiguration, err)
	}
	fileRules, err := pathfilter.New(cfg.SkipFiles)
	if err != nil {
		return nil, fmt.Errorf("%w: skip_files: %w", config.ErrConfiguration, err)
	}

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	a := &app{
		cfg:         cfg,
		runID:       runID,
		started:     started,
		today:       cfg.TodayDate(started),
		logger:      logger,
		metrics:     metrics.New(),
		store:       store,
		writer:      report.NewWriter(cfg.OutputDir),
		folderRules: folderRules,
		fileRules:   fileRules,
	}

	format := cfg.Format()
	if dir, ok := cfg.LocalMirror(); ok {
		a.backend = filesystem.New(dir)
		a.local = true
		format = timestamp.FormatOS
	} else {
		policy := retry.DefaultPolicy()
		policy.Attempts = cfg.HTTP.Retries + 1
		a.backend = artifactory.New(artifactory.Config{
			BaseURL:  cfg.BaseURL,
			User:     cfg.User,
			Password: cfg.Password,
			Timeout:  cfg.HTTP.Timeout,
			Retry:    policy,
		}, logger)
	}
	a.normalizer = timestamp.New(format)

	logger.Info("starting",
		zap.String("version", version),
		zap.String("dev_repo", cfg.DevRepo),
		zap.String("release_repo", cfg.ReleaseRepo),
		zap.Int("max_days", cfg.MaxDays),
		zap.Stringer("today", a.today),
		zap.Strings("skip_folders", cfg.FolderRules()),
		zap.Strings("skip_files", cfg.SkipFiles),
		zap.Bool("enforce", cfg.Enforce))
	return a, nil
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (catalog.Store, error) {
	if cfg.CatalogStore != config.StoreS3 {
		return catalog.NewFileStore(cfg.OutputDir, logger), nil
	}
	client, err := catalog.NewS3Client(ctx, cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("s3 catalog store: %w", err)
	}
	return catalog.NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix, logger), nil
}

// close exports metrics and flushes the logger.
func (a *app) close() {
	if err := a.metrics.Export(a.cfg.Metrics.Textfile, a.cfg.Metrics.Pushgateway, metricsJob); err != nil {
		a.logger.Warn("metrics export failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) hasCredentials() bool {
	return a.local || a.cfg.HasCredentials()
}
