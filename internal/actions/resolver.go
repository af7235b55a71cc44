// Package actions executes the user-visible operations against an
// authenticated browser session: direct messages, likes, comments, and
// follower scrapes. Target resolution is isolated behind TargetResolver so
// the executor logic stays free of DOM knowledge.
package actions

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
	"github.com/xkilldash9x/sockpuppet-cli/internal/browser"
	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
	"github.com/xkilldash9x/sockpuppet-cli/internal/instagram"
)

// TargetResolver turns logical targets (a handle, a post URL) into an open,
// settled page ready for interaction. A target that provably does not
// exist surfaces as TargetNotFound; everything else is a plain error the
// retry policy may treat as transient.
type TargetResolver interface {
	// OpenProfile opens handle's profile page.
	OpenProfile(ctx context.Context, handle string) error
	// OpenThread opens a direct-message thread with handle, with the
	// message input ready.
	OpenThread(ctx context.Context, handle string) error
	// OpenPost opens the post at postURL with its action bar rendered.
	OpenPost(ctx context.Context, postURL string) error
	// OpenFollowers opens handle's followers dialog.
	OpenFollowers(ctx context.Context, handle string) error
}

// Resolver is the production TargetResolver over a live driver.
type Resolver struct {
	driver browser.Driver
	cfg    *config.Config
	logger *zap.Logger

	// pollInterval paces element readiness polling.
	pollInterval time.Duration
}

var _ TargetResolver = (*Resolver)(nil)

// NewResolver builds a resolver bound to a driver.
func NewResolver(driver browser.Driver, cfg *config.Config, logger *zap.Logger) *Resolver {
	return &Resolver{
		driver:       driver,
		cfg:          cfg,
		logger:       logger.Named("resolver"),
		pollInterval: 500 * time.Millisecond,
	}
}

func (r *Resolver) OpenProfile(ctx context.Context, handle string) error {
	if err := r.driver.Navigate(ctx, instagram.ProfileURL(handle)); err != nil {
		return fmt.Errorf("failed to open profile %q: %w", handle, err)
	}
	return r.rejectMissing(ctx, fmt.Sprintf("profile %q does not exist", handle))
}

func (r *Resolver) OpenThread(ctx context.Context, handle string) error {
	if err := r.OpenProfile(ctx, handle); err != nil {
		return err
	}

	clicked, err := instagram.ClickButtonWithText(ctx, r.driver,
		`div[role="button"], button`, []string{"Message"})
	if err != nil {
		return fmt.Errorf("failed to open message thread with %q: %w", handle, err)
	}
	if !clicked {
		return schemas.NewActionError(schemas.CodeTargetNotFound,
			fmt.Sprintf("profile %q offers no message entry point", handle), nil)
	}

	if _, err := r.waitForAny(ctx, instagram.MessageTextarea); err != nil {
		return fmt.Errorf("message input never rendered for %q: %w", handle, err)
	}
	return nil
}

func (r *Resolver) OpenPost(ctx context.Context, postURL string) error {
	if err := r.driver.Navigate(ctx, postURL); err != nil {
		return fmt.Errorf("failed to open post %q: %w", postURL, err)
	}
	return r.rejectMissing(ctx, fmt.Sprintf("post %q does not exist", postURL))
}

func (r *Resolver) OpenFollowers(ctx context.Context, handle string) error {
	if err := r.driver.Navigate(ctx, instagram.FollowersURL(handle)); err != nil {
		return fmt.Errorf("failed to open followers of %q: %w", handle, err)
	}
	if err := r.rejectMissing(ctx, fmt.Sprintf("profile %q does not exist", handle)); err != nil {
		return err
	}
	if _, err := r.waitForAny(ctx, instagram.FollowersDialog); err != nil {
		return fmt.Errorf("followers dialog never rendered for %q: %w", handle, err)
	}
	return nil
}

// rejectMissing converts the not-available stub into TargetNotFound.
func (r *Resolver) rejectMissing(ctx context.Context, detail string) error {
	missing, err := instagram.PageMissing(ctx, r.driver)
	if err != nil {
		return fmt.Errorf("missing-page probe failed: %w", err)
	}
	if missing {
		return schemas.NewActionError(schemas.CodeTargetNotFound, detail, nil)
	}
	return nil
}

// waitForAny polls the candidate list until one selector exists or the
// element timeout elapses.
func (r *Resolver) waitForAny(ctx context.Context, candidates []string) (string, error) {
	timeout := r.cfg.Network.ElementTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		sel, found, err := instagram.FirstExisting(ctx, r.driver, candidates)
		if err != nil {
			return "", err
		}
		if found {
			return sel, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("none of %d candidate selectors appeared within %s", len(candidates), timeout)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}
