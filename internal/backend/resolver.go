package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"invoicing-api/internal/domain"
)

// Attempt is one entry of a preference list: a backend id and how to construct it.
type Attempt[T any] struct {
	Backend string
	Open    func(ctx context.Context) (T, error)
}

// Failure records why an attempt was skipped.
type Failure struct {
	Backend string
	Err     error
}

// Resolution is the outcome of walking a preference list.
type Resolution[T any] struct {
	Repository T
	Backend    string
	Failures   []Failure
}

// Fallback reports whether the chosen backend was not the first preference.
func (r Resolution[T]) Fallback() bool {
	return len(r.Failures) > 0
}

// Resolver logs and counts backend selection.
type Resolver struct {
	logger  *logrus.Logger
	metrics *Metrics
}

func NewResolver(logger *logrus.Logger, metrics *Metrics) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{logger: logger, metrics: metrics}
}

// Resolve tries attempts in order and returns the first one that opens.
// When every attempt fails the error wraps domain.ErrBackendUnavailable and
// the returned Resolution still lists each failure.
func Resolve[T any](ctx context.Context, r *Resolver, aggregate string, attempts ...Attempt[T]) (Resolution[T], error) {
	if r == nil {
		r = NewResolver(nil, nil)
	}
	logger := r.logger.WithField("aggregate", aggregate)

	var res Resolution[T]
	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		repo, err := attempt.Open(ctx)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Backend: attempt.Backend, Err: err})
			r.metrics.failed(aggregate, attempt.Backend)
			logger.WithFields(logrus.Fields{
				"backend": attempt.Backend,
				"cause":   err.Error(),
			}).Warn("backend unavailable, trying next")
			continue
		}

		res.Repository = repo
		res.Backend = attempt.Backend
		r.metrics.selected(aggregate, attempt.Backend)
		logger.WithField("backend", attempt.Backend).Info("backend selected")
		return res, nil
	}

	if len(res.Failures) == 0 {
		return res, fmt.Errorf("%w: %s: no backends configured", domain.ErrBackendUnavailable, aggregate)
	}
	causes := make([]error, 0, len(res.Failures))
	for _, f := range res.Failures {
		causes = append(causes, fmt.Errorf("%s: %w", f.Backend, f.Err))
	}
	logger.Error("no backend available")
	return res, fmt.Errorf("%w: %s: %w", domain.ErrBackendUnavailable, aggregate, errors.Join(causes...))
}
