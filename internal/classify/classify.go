// Package classify decides, for every development catalog entry, whether it
// is kept, deleted or skipped.
package classify

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/taigrr/artifact-reaper/internal/catalog"
	"github.com/taigrr/artifact-reaper/internal/metrics"
	"github.com/taigrr/artifact-reaper/internal/timestamp"
	"github.com/taigrr/artifact-reaper/internal/types"
	"github.com/taigrr/artifact-reaper/internal/uri"
)

// ErrConsistency is logged when a release match cannot be confirmed.
var ErrConsistency = errors.New("release key matched but is not in the release catalog")

// MatchMode selects how a derived release key is looked up.
type MatchMode string

const (
	// MatchExact requires the derived key to be a release catalog key.
	MatchExact MatchMode = "exact"
	// MatchSubstring accepts the derived key anywhere inside a release key,
	// for layouts that nest releases below extra folders.
	MatchSubstring MatchMode = "substring"
)

// ParseMatchMode validates a match mode name. Empty means MatchExact.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(s) {
	case "", MatchExact:
		return MatchExact, nil
	case MatchSubstring:
		return MatchSubstring, nil
	default:
		return "", fmt.Errorf("unknown release match mode %q", s)
	}
}

// PathMapper derives the release-side key of a development key.
type PathMapper interface {
	MapKey(devKey string) string
}

// PathMapperFunc adapts a function to PathMapper.
type PathMapperFunc func(devKey string) string

// MapKey calls f.
func (f PathMapperFunc) MapKey(devKey string) string {
	return f(devKey)
}

// RootMapper replaces the repository segment devRepo with relRepo.
// Keys outside devRepo are returned unchanged.
func RootMapper(devRepo, relRepo string) PathMapper {
	return PathMapperFunc(func(devKey string) string {
		repo, rest := uri.SplitKey(devKey)
		if repo != devRepo {
			return devKey
		}
		return uri.Key(relRepo, rest)
	})
}

// Config is the immutable input of a classification run besides the catalogs.
type Config struct {
	Threshold  int            // maximum age in whole days
	Today      timestamp.Date // reference date for ages
	Normalizer *timestamp.Normalizer
	Mapper     PathMapper
	Match      MatchMode
}

// Result partitions the development catalog. Each slice is in path order.
type Result struct {
	Keep   []types.Record
	Delete []types.Record
	Skip   []types.Record
}

// Len returns the number of classified entries.
func (r *Result) Len() int {
	return len(r.Keep) + len(r.Delete) + len(r.Skip)
}

// Records returns all records ordered by path.
func (r *Result) Records() []types.Record {
	all := make([]types.Record, 0, r.Len())
	all = append(all, r.Keep...)
	all = append(all, r.Delete...)
	all = append(all, r.Skip...)
	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })
	return all
}

// Paths returns the paths of one partition.
func Paths(records []types.Record) []string {
	paths := make([]string, len(records))
	for i, rec := range records {
		paths[i] = rec.Path
	}
	return paths
}

// Classifier applies the retention rules.
type Classifier struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New validates cfg and returns a Classifier. logger and m may be nil.
func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) (*Classifier, error) {
	if cfg.Threshold < 0 {
		return nil, fmt.Errorf("threshold must not be negative: %d", cfg.Threshold)
	}
	if cfg.Today.IsZero() {
		return nil, errors.New("reference date is required")
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = timestamp.New(timestamp.FormatArtifactory)
	}
	if cfg.Mapper == nil {
		cfg.Mapper = PathMapperFunc(func(k string) string { return k })
	}
	match, err := ParseMatchMode(string(cfg.Match))
	if err != nil {
		return nil, err
	}
	cfg.Match = match
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{cfg: cfg, logger: logger, metrics: m}, nil
}

// Classify partitions dev against rel. Every dev key lands in exactly one
// partition.
func (c *Classifier) Classify(dev, rel catalog.Catalog) *Result {
	return c.ClassifyWith(dev, rel, NewReleaseIndex(rel, c.cfg.Match))
}

// ClassifyWith is Classify with a caller-supplied release index, such as one
// built from a cached listing. Every match the index reports is confirmed
// against rel before an entry is kept as released.
func (c *Classifier) ClassifyWith(dev, rel catalog.Catalog, index ReleaseIndex) *Result {
	res := &Result{}

	for _, key := range dev.Keys() {
		rec := c.classifyOne(key, dev[key], index, rel)
		switch rec.Outcome {
		case types.OutcomeKeep:
			res.Keep = append(res.Keep, rec)
		case types.OutcomeDelete:
			res.Delete = append(res.Delete, rec)
		default:
			res.Skip = append(res.Skip, rec)
		}
		c.metrics.ObserveClassification(string(rec.Outcome), string(rec.Reason))
	}

	c.logger.Info("classification finished",
		zap.Int("keep", len(res.Keep)),
		zap.Int("delete", len(res.Delete)),
		zap.Int("skip", len(res.Skip)),
		zap.Int("threshold_days", c.cfg.Threshold),
		zap.Stringer("today", c.cfg.Today))
	return res
}

func (c *Classifier) classifyOne(key, raw string, index ReleaseIndex, rel catalog.Catalog) types.Record {
	relKey := c.cfg.Mapper.MapKey(key)

	if matched, ok := index.Lookup(relKey); ok {
		if _, present := rel[matched]; !present {
			c.logger.Error("release match not confirmed, skipping",
				zap.String("key", key), zap.String("release_key", relKey),
				zap.Error(ErrConsistency))
			return types.Record{Path: key, Outcome: types.OutcomeSkip, Reason: types.ReasonConsistency}
		}
		c.logger.Debug("listed in release catalog, kept", zap.String("key", key), zap.String("release_key", matched))
		return types.Record{Path: key, Outcome: types.OutcomeKeep, Reason: types.ReasonReleased}
	}

	date, err := c.cfg.Normalizer.Normalize(raw)
	if err != nil {
		c.logger.Warn("unparseable timestamp, skipping", zap.String("key", key), zap.Error(err))
		return types.Record{Path: key, Outcome: types.OutcomeSkip, Reason: types.ReasonMalformed}
	}

	age := c.cfg.Today.DaysSince(date)
	if age > c.cfg.Threshold {
		c.logger.Debug("not in releases, marked for removal",
			zap.String("key", key), zap.Int("age_days", age), zap.Int("threshold_days", c.cfg.Threshold))
		return types.Record{Path: key, Outcome: types.OutcomeDelete, Reason: types.ReasonStale, AgeDays: age}
	}
	c.logger.Debug("not in releases, too young",
		zap.String("key", key), zap.Int("age_days", age), zap.Int("threshold_days", c.cfg.Threshold))
	return types.Record{Path: key, Outcome: types.OutcomeKeep, Reason: types.ReasonYoung, AgeDays: age}
}

// ReleaseIndex finds the release key matching a derived key.
type ReleaseIndex interface {
	Lookup(key string) (string, bool)
}

type releaseIndex struct {
	mode   MatchMode
	exact  map[string]struct{}
	sorted []string
}

// NewReleaseIndex indexes the keys of rel for the given mode.
func NewReleaseIndex(rel catalog.Catalog, mode MatchMode) ReleaseIndex {
	idx := &releaseIndex{mode: mode, exact: make(map[string]struct{}, len(rel))}
	for k := range rel {
		idx.exact[k] = struct{}{}
	}
	if mode == MatchSubstring {
		idx.sorted = rel.Keys()
	}
	return idx
}

// Lookup returns the release key that satisfies key. Substring mode returns
// the first match in path order.
func (idx *releaseIndex) Lookup(key string) (string, bool) {
	if _, ok := idx.exact[key]; ok {
		return key, true
	}
	if idx.mode != MatchSubstring || key == "" {
		return "", false
	}
	for _, candidate := range idx.sorted {
		if strings.Contains(candidate, key) {
			return candidate, true
		}
	}
	return "", false
}
