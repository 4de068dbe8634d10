// Package deleter executes a delete list against a repository backend.
package deleter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/taigrr/artifact-reaper/internal/metrics"
	"github.com/taigrr/artifact-reaper/internal/uri"
)

// ErrMissingCredentials is returned when enforcement is requested without
// credentials for the backend.
var ErrMissingCredentials = errors.New("deletion requires credentials")

// Remover is the deletion boundary. Both calls return the HTTP status.
type Remover interface {
	Delete(ctx context.Context, key string) (int, error)
	Probe(ctx context.Context, key string) (int, error)
}

// Answer is a per-item confirmation reply.
type Answer int

const (
	AnswerYes Answer = iota
	AnswerNo
	AnswerQuit
)

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	case AnswerQuit:
		return "quit"
	default:
		return fmt.Sprintf("Answer(%d)", int(a))
	}
}

// Confirmer is asked before each deletion when set.
type Confirmer interface {
	Confirm(ctx context.Context, key string) (Answer, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, key string) (Answer, error)

// Confirm calls f.
func (f ConfirmerFunc) Confirm(ctx context.Context, key string) (Answer, error) {
	return f(ctx, key)
}

// Action is what happened to one item.
type Action string

const (
	ActionDeleted  Action = "deleted"
	ActionFailed   Action = "failed"
	ActionProbed   Action = "probed"
	ActionPlanned  Action = "planned"
	ActionDeclined Action = "declined"
)

// Result is the outcome for one key.
type Result struct {
	Key    string
	Action Action
	Status int
	Err    error
}

// Summary collects the results of a run.
type Summary struct {
	Results []Result
	Quit    bool
}

// Count returns how many results have the given action.
func (s *Summary) Count(a Action) int {
	n := 0
	for _, r := range s.Results {
		if r.Action == a {
			n++
		}
	}
	return n
}

// Config controls the executor. The zero value is a plan-only dry run.
type Config struct {
	Enforce        bool
	DeleteOne      bool
	HasCredentials bool
	Confirmer      Confirmer
}

// Executor applies a delete list.
type Executor struct {
	remover Remover
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates an Executor. Enforcing without credentials fails with
// ErrMissingCredentials.
func New(remover Remover, cfg Config, logger *zap.Logger, m *metrics.Metrics) (*Executor, error) {
	if cfg.Enforce && !cfg.HasCredentials {
		return nil, ErrMissingCredentials
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{remover: remover, cfg: cfg, logger: logger, metrics: m}, nil
}

// Success reports whether status is in the 2xx range.
func Success(status int) bool {
	return status >= 200 && status <= 299
}

// Run processes keys in order. Comment lines are skipped and storage API
// URLs are reduced to item paths. Per-item failures never stop the batch.
func (e *Executor) Run(ctx context.Context, keys []string) (*Summary, error) {
	sum := &Summary{}
	e.logger.Info("processing delete list", zap.Int("items", len(keys)), zap.Bool("enforce", e.cfg.Enforce))

	for _, raw := range keys {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		key := strings.TrimSpace(raw)
		if key == "" || strings.HasPrefix(key, "#") {
			continue
		}
		key = uri.StripStorageAPI(key)

		res, stop, err := e.one(ctx, key)
		if err != nil {
			return sum, err
		}
		if stop && res.Action == "" {
			sum.Quit = true
			e.logger.Info("stopped by user")
			break
		}
		sum.Results = append(sum.Results, res)
		e.metrics.ObserveDeletion(string(res.Action))
		if stop {
			break
		}
	}

	e.logger.Info("delete list done",
		zap.Int("deleted", sum.Count(ActionDeleted)),
		zap.Int("failed", sum.Count(ActionFailed)),
		zap.Int("probed", sum.Count(ActionProbed)),
		zap.Int("declined", sum.Count(ActionDeclined)),
		zap.Bool("quit", sum.Quit))
	return sum, nil
}

// one handles a single key. stop ends the batch; an empty Action with stop
// means the user quit before anything happened to key.
func (e *Executor) one(ctx context.Context, key string) (Result, bool, error) {
	log := e.logger.With(zap.String("key", key))

	if !e.cfg.Enforce {
		if !e.cfg.HasCredentials {
			log.Info("would delete")
			return Result{Key: key, Action: ActionPlanned}, false, nil
		}
		status, err := e.remover.Probe(ctx, key)
		return e.record(log, key, ActionProbed, status, err), false, nil
	}

	if e.cfg.Confirmer != nil {
		ans, err := e.cfg.Confirmer.Confirm(ctx, key)
		if err != nil {
			return Result{}, false, fmt.Errorf("confirm %s: %w", key, err)
		}
		switch ans {
		case AnswerQuit:
			return Result{}, true, nil
		case AnswerNo:
			log.Info("skipped by user")
			return Result{Key: key, Action: ActionDeclined}, false, nil
		}
	}

	log.Info("deleting")
	status, err := e.remover.Delete(ctx, key)
	res := e.record(log, key, ActionDeleted, status, err)
	return res, e.cfg.DeleteOne && res.Action == ActionDeleted, nil
}

func (e *Executor) record(log *zap.Logger, key string, ok Action, status int, err error) Result {
	if err == nil && !Success(status) {
		err = fmt.Errorf("non-success status %d", status)
	}
	if err != nil {
		log.Warn("request failed", zap.Int("status", status), zap.Error(err))
		return Result{Key: key, Action: ActionFailed, Status: status, Err: err}
	}
	log.Debug("request succeeded", zap.Int("status", status))
	return Result{Key: key, Action: ok, Status: status}
}
