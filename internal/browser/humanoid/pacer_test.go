package humanoid

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
)

func testConfig() config.HumanoidConfig {
	return config.HumanoidConfig{
		Enabled:         true,
		PauseMeanMs:     20,
		PauseStdDevMs:   5,
		KeyHoldMeanMs:   60,
		KeyHoldStdDevMs: 20,
		FatigueGrowth:   0.1,
	}
}

func newTestPacer(cfg config.HumanoidConfig) *Pacer {
	return NewPacer(cfg, zap.NewNop(), WithRand(rand.New(rand.NewSource(42))))
}

func TestDisabledPacerIsInstant(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	p := newTestPacer(cfg)

	start := time.Now()
	require.NoError(t, p.CognitivePause(context.Background()))
	require.NoError(t, p.Pause(context.Background(), 5000, 0))
	assert.Zero(t, p.KeyInterval())
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestPauseRespectsCancellation(t *testing.T) {
	p := newTestPacer(testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Pause(ctx, 10_000, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHesitateCoversDuration(t *testing.T) {
	p := newTestPacer(testConfig())

	start := time.Now()
	require.NoError(t, p.Hesitate(context.Background(), 150*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestHesitateCancellationMidWait(t *testing.T) {
	p := newTestPacer(testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Hesitate(ctx, 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestKeyIntervalFloor(t *testing.T) {
	cfg := testConfig()
	cfg.KeyHoldMeanMs = 1
	cfg.KeyHoldStdDevMs = 0
	p := newTestPacer(cfg)

	for i := 0; i < 20; i++ {
		assert.GreaterOrEqual(t, p.KeyInterval(), 15*time.Millisecond)
	}
}

func TestFatigueAccumulatesAndSaturates(t *testing.T) {
	p := newTestPacer(testConfig())
	assert.Zero(t, p.Fatigue())

	for i := 0; i < 25; i++ {
		p.ActionCompleted()
	}
	assert.Equal(t, 1.0, p.Fatigue())
}

func TestPauseVariesBetweenSamples(t *testing.T) {
	p := newTestPacer(testConfig())

	// Two keystroke intervals from a live rng should almost never match.
	a := p.KeyInterval()
	b := p.KeyInterval()
	c := p.KeyInterval()
	assert.False(t, a == b && b == c, "sampled intervals are suspiciously constant")
}
