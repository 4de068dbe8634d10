// Package walker flattens a remote repository tree into a catalog.
//
// The walk is depth-first in listing order, one fetch at a time. Exclusion
// rules are checked before a child is fetched, so an excluded folder costs
// no requests and yields a single skip record for its whole subtree.
package walker

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taigrr/artifact-reaper/internal/catalog"
	"github.com/taigrr/artifact-reaper/internal/metrics"
	"github.com/taigrr/artifact-reaper/internal/pathfilter"
	"github.com/taigrr/artifact-reaper/internal/types"
	"github.com/taigrr/artifact-reaper/internal/uri"
)

// ErrTransport marks a fetch that produced no usable data.
var ErrTransport = errors.New("transport failure")

// Fetcher returns the listing or file metadata for a catalog key such as
// "/npm-dev/foo/1.0.0". A nil node with a nil error counts as a failure.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (*types.DirectoryNode, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, key string) (*types.DirectoryNode, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, key string) (*types.DirectoryNode, error) {
	return f(ctx, key)
}

// Decision tells the walk what to do with a node.
type Decision int

const (
	// Continue visits the node.
	Continue Decision = iota
	// SkipSubtree leaves the node (and anything below it) unvisited.
	SkipSubtree
	// Abort ends the whole walk.
	Abort
)

func (d Decision) String() string {
	switch d {
	case Continue:
		return "continue"
	case SkipSubtree:
		return "skip-subtree"
	case Abort:
		return "abort"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Config is the immutable walk configuration.
type Config struct {
	Repo        string
	FolderRules *pathfilter.Matcher // matched against the in-repository folder path
	FileRules   *pathfilter.Matcher // matched against the file name
	MaxItems    int                 // 0 means unlimited
	Field       types.TimestampField
}

// Result is the outcome of one walk.
type Result struct {
	Catalog   catalog.Catalog
	Skipped   []types.SkipRecord
	Visited   int
	Truncated bool
	Elapsed   time.Duration
}

// Walker walks one repository.
type Walker struct {
	fetcher Fetcher
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Walker. logger and m may be nil.
func New(fetcher Fetcher, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Field == "" {
		cfg.Field = types.FieldCreated
	}
	return &Walker{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.With(zap.String("repo", cfg.Repo)),
		metrics: m,
	}
}

// Walk fetches the repository root and traverses it. Only a failed root
// fetch or a cancelled context is returned as an error.
func (w *Walker) Walk(ctx context.Context) (*Result, error) {
	rootKey := uri.Key(w.cfg.Repo)
	root, err := w.fetch(ctx, rootKey)
	if err != nil {
		return nil, fmt.Errorf("fetch repository root %s: %w", rootKey, err)
	}
	return w.Traverse(ctx, root, make(catalog.Catalog))
}

// Traverse walks below root, adding files to cat.
func (w *Walker) Traverse(ctx context.Context, root *types.DirectoryNode, cat catalog.Catalog) (*Result, error) {
	start := time.Now()
	if cat == nil {
		cat = make(catalog.Catalog)
	}

	st := &walk{
		Walker: w,
		result: &Result{Catalog: cat},
		seen:   make(map[string]struct{}),
	}

	rootPath := path.Join("/", root.Path)
	if st.folderExcluded(rootPath) {
		st.skip(uri.Key(w.cfg.Repo, rootPath), types.SkipFolder)
	} else {
		st.visit(ctx, root, rootPath)
	}

	st.result.Elapsed = time.Since(start)
	w.metrics.ObserveScan(w.cfg.Repo, len(cat), st.result.Elapsed)
	w.logger.Info("walk finished",
		zap.Int("files", len(cat)),
		zap.Int("visited", st.result.Visited),
		zap.Int("skipped", len(st.result.Skipped)),
		zap.Bool("truncated", st.result.Truncated),
		zap.Duration("elapsed", st.result.Elapsed))

	if err := ctx.Err(); err != nil {
		return st.result, err
	}
	return st.result, nil
}

func (w *Walker) fetch(ctx context.Context, key string) (*types.DirectoryNode, error) {
	node, err := w.fetcher.Fetch(ctx, key)
	switch {
	case err != nil:
		err = fmt.Errorf("%w: %w", ErrTransport, err)
	case node == nil:
		err = fmt.Errorf("%w: empty response", ErrTransport)
	case len(node.Errors) > 0:
		err = fmt.Errorf("%w: server error %d %s", ErrTransport, node.Errors[0].Status, node.Errors[0].Message)
	}
	w.metrics.ObserveFetch(err == nil)
	if err != nil {
		return nil, err
	}
	return node, nil
}

// walk carries the mutable state of a single traversal.
type walk struct {
	*Walker
	result      *Result
	seen        map[string]struct{}
	capReported bool
}

func (st *walk) folderExcluded(folderPath string) bool {
	return st.cfg.FolderRules.IsExcluded(folderPath)
}

func (st *walk) skip(key string, reason types.SkipReason) {
	st.result.Skipped = append(st.result.Skipped, types.SkipRecord{Path: key, Reason: reason})
	st.metrics.ObserveSkip(string(reason))
}

// decide runs the checks that must happen before a child is fetched.
// Excluded children are pruned before the item cap is consulted and do not
// count toward it.
func (st *walk) decide(ctx context.Context, child types.Child, childPath string) Decision {
	if ctx.Err() != nil {
		return Abort
	}

	if child.Folder {
		if rule, ok := st.cfg.FolderRules.Match(childPath); ok {
			st.logger.Info("skipping folder", zap.String("path", childPath), zap.String("rule", rule))
			return SkipSubtree
		}
	} else {
		name := strings.TrimPrefix(child.URI, "/")
		if rule, ok := st.cfg.FileRules.Match(name); ok {
			st.logger.Info("skipping file", zap.String("path", childPath), zap.String("rule", rule))
			return SkipSubtree
		}
	}

	if st.cfg.MaxItems > 0 && st.result.Visited >= st.cfg.MaxItems {
		if !st.capReported {
			st.logger.Warn("item cap reached, stopping walk", zap.Int("max_items", st.cfg.MaxItems))
			st.capReported = true
		}
		st.result.Truncated = true
		return Abort
	}

	st.result.Visited++
	st.metrics.ObserveVisit()
	return Continue
}

// visit processes every child of node and reports whether the walk must stop.
func (st *walk) visit(ctx context.Context, node *types.DirectoryNode, nodePath string) Decision {
	for _, child := range node.Children {
		childPath := path.Join(nodePath, child.URI)
		key := uri.Key(st.cfg.Repo, childPath)

		switch st.decide(ctx, child, childPath) {
		case Abort:
			return Abort
		case SkipSubtree:
			if child.Folder {
				st.skip(key, types.SkipFolder)
			} else {
				st.skip(key, types.SkipFile)
			}
			continue
		}

		if child.Folder {
			if _, dup := st.seen[key]; dup {
				st.logger.Warn("folder listed twice, not descending again", zap.String("key", key))
				st.skip(key, types.SkipAttention)
				continue
			}
			st.seen[key] = struct{}{}
		}

		st.logger.Debug("processing", zap.String("key", key), zap.Int("item", st.result.Visited))
		fetched, err := st.fetch(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return Abort
			}
			st.logger.Warn("fetch failed, needs attention", zap.String("key", key), zap.Error(err))
			st.skip(key, types.SkipAttention)
			continue
		}

		if child.Folder {
			if st.visit(ctx, fetched, childPath) == Abort {
				return Abort
			}
			continue
		}

		ts := fetched.Timestamp(st.cfg.Field)
		if ts == "" {
			st.logger.Info("no date info, ignoring", zap.String("key", key), zap.String("field", string(st.cfg.Field)))
			st.skip(key, types.SkipNullDate)
			continue
		}
		st.result.Catalog[key] = ts
	}
	return Continue
}
