// Package humanoid paces browser interactions on a human timescale.
// Every delay is sampled from a gaussian rather than fixed, and a slow
// fatigue drift lengthens pauses as the session ages. The latency cost is
// deliberate: instant, metronomic interaction is the clearest automation
// signature a site can observe.
package humanoid

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
)

// Pacer manages the timing state of one session's interactions.
type Pacer struct {
	cfg    config.HumanoidConfig
	logger *zap.Logger

	mu sync.Mutex
	// rng is guarded by mu; math/rand sources are not safe for
	// concurrent use.
	rng *rand.Rand
	// fatigue ranges 0.0 (fresh) to 1.0 (exhausted) and scales every
	// sampled pause by up to 2x.
	fatigue float64
	actions int
}

// Option configures a Pacer at construction.
type Option func(*Pacer)

// WithRand fixes the random source. Test use only.
func WithRand(rng *rand.Rand) Option {
	return func(p *Pacer) { p.rng = rng }
}

// NewPacer builds a pacer for one session.
func NewPacer(cfg config.HumanoidConfig, logger *zap.Logger, opts ...Option) *Pacer {
	p := &Pacer{
		cfg:    cfg,
		logger: logger.Named("humanoid"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enabled reports whether pacing is active. A disabled pacer makes every
// wait a no-op, which tests rely on.
func (p *Pacer) Enabled() bool { return p.cfg.Enabled }

// CognitivePause sleeps for a sampled "thinking" interval using the
// configured mean and deviation. Called between every pair of UI steps.
func (p *Pacer) CognitivePause(ctx context.Context) error {
	return p.Pause(ctx, p.cfg.PauseMeanMs, p.cfg.PauseStdDevMs)
}

// Pause sleeps for a gaussian-sampled duration around meanMs. The fatigue
// factor stretches the sample; negative samples collapse to zero.
func (p *Pacer) Pause(ctx context.Context, meanMs, stdDevMs float64) error {
	if !p.cfg.Enabled {
		return nil
	}

	p.mu.Lock()
	sample := meanMs + p.rng.NormFloat64()*stdDevMs
	factor := 1.0 + p.fatigue
	p.mu.Unlock()

	d := time.Duration(sample*factor) * time.Millisecond
	if d <= 0 {
		return nil
	}
	return p.sleep(ctx, d)
}

// Hesitate holds for duration in small irregular increments so the wait
// does not read as one flat sleep in timing traces.
func (p *Pacer) Hesitate(ctx context.Context, duration time.Duration) error {
	if !p.cfg.Enabled || duration <= 0 {
		return p.sleep(ctx, duration)
	}

	deadline := time.Now().Add(duration)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}

		p.mu.Lock()
		step := time.Duration(50+p.rng.Intn(120)) * time.Millisecond
		p.mu.Unlock()
		if step > remaining {
			step = remaining
		}
		if err := p.sleep(ctx, step); err != nil {
			return err
		}
	}
}

// KeyInterval returns the hold time before the next keystroke.
func (p *Pacer) KeyInterval() time.Duration {
	if !p.cfg.Enabled {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	sample := p.cfg.KeyHoldMeanMs + p.rng.NormFloat64()*p.cfg.KeyHoldStdDevMs
	if sample < 15 {
		// Physiological floor; no one types faster.
		sample = 15
	}
	return time.Duration(sample*(1.0+p.fatigue/2)) * time.Millisecond
}

// ActionCompleted records one finished action and advances fatigue.
func (p *Pacer) ActionCompleted() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.actions++
	p.fatigue += p.cfg.FatigueGrowth
	if p.fatigue > 1.0 {
		p.fatigue = 1.0
	}
	p.logger.Debug("fatigue updated",
		zap.Int("actions", p.actions),
		zap.Float64("fatigue", p.fatigue),
	)
}

// Fatigue reports the current fatigue level.
func (p *Pacer) Fatigue() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fatigue
}

// sleep waits for d or until ctx is done, whichever comes first.
func (p *Pacer) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
