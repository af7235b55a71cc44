// Package retry provides the one bounded-backoff policy shared by every
// browser action and login flow. Transient failures (navigation timeouts,
// elements that have not settled yet) are retried with exponential backoff;
// structural failures pass through untouched on the first occurrence.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Classifier reports whether an error is transient and worth retrying.
// Anything it rejects is surfaced immediately.
type Classifier func(error) bool

// Policy is a reusable bounded-backoff retry policy. The zero value is not
// usable; construct with NewPolicy.
type Policy struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	transient       Classifier
	logger          *zap.Logger
}

// Option mutates a Policy during construction.
type Option func(*Policy)

// WithMaxInterval caps the backoff interval.
func WithMaxInterval(d time.Duration) Option {
	return func(p *Policy) { p.maxInterval = d }
}

// WithLogger attaches a logger for per-attempt diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(p *Policy) { p.logger = l }
}

// NewPolicy builds a policy that allows maxRetries retry attempts beyond the
// initial one, backing off exponentially from initialInterval. transient
// decides which errors are retryable; a nil classifier retries everything.
func NewPolicy(maxRetries int, initialInterval time.Duration, transient Classifier, opts ...Option) *Policy {
	if initialInterval <= 0 {
		initialInterval = time.Second
	}
	p := &Policy{
		maxRetries:      maxRetries,
		initialInterval: initialInterval,
		maxInterval:     30 * time.Second,
		transient:       transient,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Do runs op, retrying transient failures until the budget is spent. It
// returns the number of retry attempts consumed (not counting the first
// attempt) together with the final error, nil on success. Cancellation is
// honored between attempts; the in-flight attempt sees ctx directly.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	retries := 0

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialInterval
	b.MaxInterval = p.maxInterval
	// The op's own timeouts bound each attempt; the policy only bounds the
	// attempt count.
	b.MaxElapsedTime = 0

	wrapped := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if p.transient != nil && !p.transient(err) {
			return backoff.Permanent(err)
		}
		if retries >= p.maxRetries {
			return backoff.Permanent(err)
		}
		retries++
		p.logger.Debug("retrying after transient failure",
			zap.Int("attempt", retries),
			zap.Int("max_retries", p.maxRetries),
			zap.Error(err),
		)
		return err
	}

	err := backoff.Retry(wrapped, backoff.WithContext(b, ctx))

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return retries, err
}

// MaxRetries exposes the configured retry budget.
func (p *Policy) MaxRetries() int { return p.maxRetries }
