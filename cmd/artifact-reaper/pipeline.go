package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/taigrr/artifact-reaper/internal/catalog"
	"github.com/taigrr/artifact-reaper/internal/classify"
	"github.com/taigrr/artifact-reaper/internal/confirm"
	"github.com/taigrr/artifact-reaper/internal/deleter"
	"github.com/taigrr/artifact-reaper/internal/report"
	"github.com/taigrr/artifact-reaper/internal/types"
	"github.com/taigrr/artifact-reaper/internal/walker"
)

// errIncompleteRelease stops deletion when the release catalog may be
// missing entries.
var errIncompleteRelease = errors.New("release catalog incomplete")

// scanResult is the outcome of walking the configured repositories.
type scanResult struct {
	dev       catalog.Catalog
	release   catalog.Catalog
	skipped   []types.SkipRecord
	truncated bool
	// releaseFailures counts release items that could not be fetched.
	releaseFailures int
}

// walkDev applies the exclusion rules and the item cap.
func (a *app) walkDev(ctx context.Context) (*walker.Result, error) {
	return a.walk(ctx, walker.Config{
		Repo:        a.cfg.DevRepo,
		FolderRules: a.folderRules,
		FileRules:   a.fileRules,
		MaxItems:    a.cfg.MaxItems,
		Field:       a.cfg.Field(),
	})
}

// walkRelease records the full release tree: no exclusion rules, no cap.
func (a *app) walkRelease(ctx context.Context) (*walker.Result, error) {
	return a.walk(ctx, walker.Config{
		Repo:  a.cfg.ReleaseRepo,
		Field: a.cfg.Field(),
	})
}

func (a *app) walk(ctx context.Context, cfg walker.Config) (*walker.Result, error) {
	return walker.New(a.backend, cfg, a.logger, a.metrics).Walk(ctx)
}

// scan walks the development repository and, unless in single-repo mode,
// the release repository, then persists both catalogs.
func (a *app) scan(ctx context.Context) (*scanResult, error) {
	devRes, err := a.walkDev(ctx)
	if err != nil {
		return nil, err
	}
	res := &scanResult{
		dev:       devRes.Catalog,
		release:   catalog.Catalog{},
		skipped:   devRes.Skipped,
		truncated: devRes.Truncated,
	}
	if err := a.store.Save(ctx, devCatalog, res.dev); err != nil {
		return nil, err
	}

	if a.cfg.SingleRepo() {
		return res, nil
	}

	relRes, err := a.walkRelease(ctx)
	if err != nil {
		return nil, err
	}
	res.release = relRes.Catalog
	res.skipped = append(res.skipped, relRes.Skipped...)
	for _, rec := range relRes.Skipped {
		if rec.Reason == types.SkipAttention {
			res.releaseFailures++
		}
	}
	if res.releaseFailures > 0 {
		a.logger.Warn("release scan had failures, deletion will be refused",
			zap.Int("failures", res.releaseFailures))
	}
	if err := a.store.Save(ctx, releaseCatalog, res.release); err != nil {
		return nil, err
	}
	return res, nil
}

// deletable reports whether the scanned release catalog is complete enough
// to act on the delete list.
func (s *scanResult) deletable() error {
	if s.releaseFailures > 0 {
		return fmt.Errorf("%w: %d release items could not be fetched", errIncompleteRelease, s.releaseFailures)
	}
	return nil
}

// load restores the catalogs of an earlier scan.
func (a *app) load(ctx context.Context) (*scanResult, error) {
	dev, err := a.store.Load(ctx, devCatalog)
	if err != nil {
		return nil, fmt.Errorf("load development catalog: %w", err)
	}
	a.logger.Info("catalog loaded", zap.String("name", devCatalog), zap.Int("entries", len(dev)))

	res := &scanResult{dev: dev, release: catalog.Catalog{}}
	if a.cfg.SingleRepo() {
		return res, nil
	}
	rel, err := a.store.Load(ctx, releaseCatalog)
	if err != nil {
		return nil, fmt.Errorf("load release catalog: %w", err)
	}
	a.logger.Info("catalog loaded", zap.String("name", releaseCatalog), zap.Int("entries", len(rel)))
	res.release = rel
	return res, nil
}

func (a *app) classifier() (*classify.Classifier, error) {
	mapper := classify.PathMapper(nil)
	if !a.cfg.SingleRepo() {
		mapper = classify.RootMapper(a.cfg.DevRepo, a.cfg.ReleaseRepo)
	}
	return classify.New(classify.Config{
		Threshold:  a.cfg.MaxDays,
		Today:      a.today,
		Normalizer: a.normalizer,
		Mapper:     mapper,
		Match:      a.cfg.Match(),
	}, a.logger, a.metrics)
}

// classify partitions the scanned catalogs and writes the lists and summary.
func (a *app) classify(scan *scanResult) (*classify.Result, error) {
	c, err := a.classifier()
	if err != nil {
		return nil, err
	}
	res := c.Classify(scan.dev, scan.release)

	header := report.Header{
		Threshold:   a.cfg.MaxDays,
		Field:       a.cfg.Field(),
		FolderRules: a.folderRules.Rules(),
		FileRules:   a.fileRules.Rules(),
		ReleaseRepo: a.cfg.ReleaseRepo,
	}
	if err := a.writer.WriteAll(res, scan.skipped, header); err != nil {
		return nil, err
	}

	summary := report.Summary{
		RunID:         a.runID,
		Started:       a.started,
		Finished:      time.Now(),
		Today:         a.today.String(),
		ThresholdDays: a.cfg.MaxDays,
		Field:         string(a.cfg.Field()),
		DevRepo:       a.cfg.DevRepo,
		ReleaseRepo:   a.cfg.ReleaseRepo,
		Enforce:       a.cfg.Enforce,
		Truncated:     scan.truncated,
		Counts: report.Counts{
			Dev:     len(scan.dev),
			Release: len(scan.release),
			Keep:    len(res.Keep),
			Delete:  len(res.Delete),
			Skip:    len(res.Skip) + len(scan.skipped),
		},
	}
	if err := a.writer.WriteSummary(summary); err != nil {
		return nil, err
	}

	a.logger.Info("lists written",
		zap.String("dir", a.cfg.OutputDir),
		zap.Int("keep", summary.Counts.Keep),
		zap.Int("delete", summary.Counts.Delete),
		zap.Int("skip", summary.Counts.Skip))
	return res, nil
}

// execute runs the deletion executor over keys.
func (a *app) execute(ctx context.Context, keys []string) (*deleter.Summary, error) {
	cfg := deleter.Config{
		Enforce:        a.cfg.Enforce,
		DeleteOne:      a.cfg.DeleteOne,
		HasCredentials: a.hasCredentials(),
	}
	if a.cfg.Interactive {
		cfg.Confirmer = confirm.NewPrompter(os.Stdin, os.Stderr)
	}

	e, err := deleter.New(a.backend, cfg, a.logger, a.metrics)
	if err != nil {
		if errors.Is(err, deleter.ErrMissingCredentials) {
			return nil, fmt.Errorf("%w: set user and password to enforce deletions", err)
		}
		return nil, err
	}
	return e.Run(ctx, keys)
}

func describe(sum *deleter.Summary) string {
	s := fmt.Sprintf("deleted %d, failed %d, probed %d, planned %d, declined %d",
		sum.Count(deleter.ActionDeleted),
		sum.Count(deleter.ActionFailed),
		sum.Count(deleter.ActionProbed),
		sum.Count(deleter.ActionPlanned),
		sum.Count(deleter.ActionDeclined))
	if sum.Quit {
		s += " (stopped)"
	}
	return s
}
