package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
	"github.com/xkilldash9x/sockpuppet-cli/internal/browser"
	"github.com/xkilldash9x/sockpuppet-cli/internal/browser/humanoid"
	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
	"github.com/xkilldash9x/sockpuppet-cli/internal/instagram"
	"github.com/xkilldash9x/sockpuppet-cli/internal/retry"
)

// followersDialogHTML pulls the followers dialog markup for off-page
// parsing.
const followersDialogHTML = `(() => {
	const d = document.querySelector('div[role="dialog"]');
	return d ? d.innerHTML : "";
})()`

// followersDialogScroll drives the dialog's scroll container to its
// current bottom so the next page of rows loads.
const followersDialogScroll = `(() => {
	const d = document.querySelector('div[role="dialog"]');
	if (!d) return false;
	const list = d.querySelector('ul') ? d.querySelector('ul').parentElement : d;
	list.scrollTop = list.scrollHeight;
	return true;
})()`

// staleScrollLimit is how many consecutive scrolls may yield no new rows
// before the list is considered fully enumerated.
const staleScrollLimit = 3

// Executor runs actions against one authenticated session. One action is
// in flight at a time; the facade above serializes callers.
type Executor struct {
	driver   browser.Driver
	resolver TargetResolver
	cfg      *config.Config
	policy   *retry.Policy
	limiter  *rate.Limiter
	pacer    *humanoid.Pacer
	logger   *zap.Logger
	account  string

	pollInterval time.Duration
}

// NewExecutor wires an executor over a driver and resolver. The rate
// limiter enforces the configured floor between consecutive actions. A
// driver that carries its own pacer shares it with the executor, so typing
// cadence and action pauses draw on one fatigue state.
func NewExecutor(driver browser.Driver, resolver TargetResolver, cfg *config.Config, logger *zap.Logger) *Executor {
	log := logger.Named("actions")

	limit := rate.Inf
	if cfg.Pacing.MinActionInterval > 0 {
		limit = rate.Every(cfg.Pacing.MinActionInterval)
	}

	pacer := humanoid.NewPacer(cfg.Browser.Humanoid, log)
	if paced, ok := driver.(interface{ Pacer() *humanoid.Pacer }); ok {
		if p := paced.Pacer(); p != nil {
			pacer = p
		}
	}

	return &Executor{
		driver:   driver,
		resolver: resolver,
		cfg:      cfg,
		policy: retry.NewPolicy(
			cfg.Pacing.MaxRetries,
			cfg.Pacing.RetryInitialInterval,
			actionTransient,
			retry.WithLogger(log),
		),
		limiter:      rate.NewLimiter(limit, 1),
		pacer:        pacer,
		logger:       log,
		account:      cfg.Account.Username,
		pollInterval: 500 * time.Millisecond,
	}
}

// actionTransient: typed verdicts (target gone, blocked, challenge) pass
// through on first sight; everything else is retried.
func actionTransient(err error) bool {
	var ae *schemas.ActionError
	var se *schemas.SessionError
	return !errors.As(err, &ae) && !errors.As(err, &se)
}

// SendMessage delivers a direct message, attaching media first when
// requested, and confirms the message appears in the thread.
func (e *Executor) SendMessage(ctx context.Context, req schemas.SendMessageRequest) (schemas.ActionResult, error) {
	e.logger.Info("Sending direct message.", zap.String("target", req.TargetHandle))
	return e.execute(ctx, func(ctx context.Context) (string, error) {
		if err := e.resolver.OpenThread(ctx, req.TargetHandle); err != nil {
			return "", e.withHazards(ctx, err)
		}

		if req.MediaPath != "" {
			if err := e.attachMedia(ctx, req.MediaPath); err != nil {
				return "", e.withHazards(ctx, err)
			}
		}

		inputSel, err := e.awaitAny(ctx, instagram.MessageTextarea)
		if err != nil {
			return "", e.withHazards(ctx, err)
		}
		if err := e.driver.Type(ctx, inputSel, req.Text); err != nil {
			return "", fmt.Errorf("failed to enter message text: %w", err)
		}

		clicked, err := instagram.ClickButtonWithText(ctx, e.driver,
			`div[role="button"], button`, []string{"Send"})
		if err != nil {
			return "", fmt.Errorf("failed to send message: %w", err)
		}
		if !clicked {
			return "", fmt.Errorf("send control not found in thread")
		}

		if err := e.awaitCondition(ctx, func(ctx context.Context) (bool, error) {
			return instagram.TextVisible(ctx, e.driver, req.Text)
		}); err != nil {
			return "", e.withHazards(ctx, fmt.Errorf("message delivery unconfirmed: %w", err))
		}
		return "", nil
	})
}

// LikePost likes the post unless it is already liked, in which case it
// succeeds without touching the toggle.
func (e *Executor) LikePost(ctx context.Context, req schemas.LikePostRequest) (schemas.ActionResult, error) {
	e.logger.Info("Liking post.", zap.String("post", req.PostURL))
	return e.execute(ctx, func(ctx context.Context) (string, error) {
		if err := e.resolver.OpenPost(ctx, req.PostURL); err != nil {
			return "", e.withHazards(ctx, err)
		}

		liked, present, err := instagram.Liked(ctx, e.driver)
		if err != nil {
			return "", fmt.Errorf("like-state probe failed: %w", err)
		}
		if !present {
			return "", e.withHazards(ctx, schemas.NewActionError(schemas.CodeTargetNotFound,
				"post renders no like control", nil))
		}
		if liked {
			return schemas.DetailAlreadyLiked, nil
		}

		likeSel, found, err := instagram.FirstExisting(ctx, e.driver, instagram.PostLikeButton)
		if err != nil || !found {
			return "", fmt.Errorf("like control vanished (found=%v): %w", found, err)
		}
		if err := e.driver.Click(ctx, likeSel); err != nil {
			return "", fmt.Errorf("failed to click like: %w", err)
		}

		if err := e.awaitCondition(ctx, func(ctx context.Context) (bool, error) {
			nowLiked, _, err := instagram.Liked(ctx, e.driver)
			return nowLiked, err
		}); err != nil {
			return "", e.withHazards(ctx, fmt.Errorf("like did not register: %w", err))
		}
		return "", nil
	})
}

// CommentOnPost posts the caller-supplied text and confirms it appears
// attributed to the authenticated account.
func (e *Executor) CommentOnPost(ctx context.Context, req schemas.CommentOnPostRequest) (schemas.ActionResult, error) {
	e.logger.Info("Commenting on post.", zap.String("post", req.PostURL))
	if strings.TrimSpace(req.CommentText) == "" {
		return schemas.ActionResult{}, schemas.NewActionError(schemas.CodeCommentGenerationFailed,
			"refusing to post an empty comment", nil)
	}

	return e.execute(ctx, func(ctx context.Context) (string, error) {
		if err := e.resolver.OpenPost(ctx, req.PostURL); err != nil {
			return "", e.withHazards(ctx, err)
		}

		inputSel, err := e.awaitAny(ctx, instagram.PostCommentTextarea)
		if err != nil {
			return "", e.withHazards(ctx, err)
		}
		if err := e.driver.Click(ctx, inputSel); err != nil {
			return "", fmt.Errorf("failed to focus comment input: %w", err)
		}
		if err := e.driver.Type(ctx, inputSel, req.CommentText); err != nil {
			return "", fmt.Errorf("failed to enter comment text: %w", err)
		}

		clicked, err := instagram.ClickButtonWithText(ctx, e.driver,
			`div[role="button"], button`, []string{"Post"})
		if err != nil {
			return "", fmt.Errorf("failed to submit comment: %w", err)
		}
		if !clicked {
			return "", fmt.Errorf("comment submit control not found")
		}

		if err := e.awaitCondition(ctx, func(ctx context.Context) (bool, error) {
			return instagram.CommentAttributed(ctx, e.driver, e.account, req.CommentText)
		}); err != nil {
			return "", e.withHazards(ctx, fmt.Errorf("comment attribution unconfirmed: %w", err))
		}
		return "", nil
	})
}

// ScrapeFollowers enumerates followers by scrolling the dialog until the
// requested count, the natural end of the list, or a block signal. A
// blocked scrape still returns everything collected so far.
func (e *Executor) ScrapeFollowers(ctx context.Context, req schemas.ScrapeFollowersRequest) (schemas.ActionResult, error) {
	e.logger.Info("Scraping followers.",
		zap.String("target", req.TargetHandle),
		zap.Int("max_count", req.MaxCount))

	if err := e.limiter.Wait(ctx); err != nil {
		return schemas.ActionResult{}, err
	}

	retries, err := e.policy.Do(ctx, func(ctx context.Context) error {
		if err := e.resolver.OpenFollowers(ctx, req.TargetHandle); err != nil {
			return e.withHazards(ctx, err)
		}
		return nil
	})
	if err != nil {
		return schemas.ActionResult{RetriesUsed: retries}, e.finalizeError(err, retries)
	}

	followers, detail, err := e.scrollFollowers(ctx, req.MaxCount)
	result := schemas.ActionResult{
		Success:     err == nil,
		Detail:      detail,
		RetriesUsed: retries,
		Followers:   followers,
	}
	if err != nil {
		return result, e.finalizeError(err, retries)
	}
	e.pacer.ActionCompleted()
	return result, nil
}

// DescribePost opens the post and collects its caption and published image
// alt text for comment generation.
func (e *Executor) DescribePost(ctx context.Context, postURL string) (schemas.PostContext, error) {
	retries, err := e.policy.Do(ctx, func(ctx context.Context) error {
		if err := e.resolver.OpenPost(ctx, postURL); err != nil {
			return e.withHazards(ctx, err)
		}
		return nil
	})
	if err != nil {
		return schemas.PostContext{}, e.finalizeError(err, retries)
	}

	var post schemas.PostContext
	if sel, found, err := instagram.FirstExisting(ctx, e.driver, instagram.PostCaption); err == nil && found {
		if caption, err := e.driver.Text(ctx, sel); err == nil {
			post.Caption = strings.TrimSpace(caption)
		}
	}

	var alt string
	expr := `(() => {
		const img = document.querySelector('article img[alt], div[role="presentation"] img[alt]');
		return img ? img.getAttribute('alt') : "";
	})()`
	if err := e.driver.Evaluate(ctx, expr, &alt); err == nil {
		// The site pads machine-generated alt text with boilerplate.
		alt = strings.TrimSpace(strings.TrimPrefix(alt, "Photo by"))
		if alt != "" && !strings.Contains(alt, "profile picture") {
			post.ImageDescription = alt
		}
	}
	return post, nil
}

// RecentPostURLs returns up to max post links from handle's profile grid,
// newest first as the grid presents them.
func (e *Executor) RecentPostURLs(ctx context.Context, handle string, max int) ([]string, error) {
	retries, err := e.policy.Do(ctx, func(ctx context.Context) error {
		if err := e.resolver.OpenProfile(ctx, handle); err != nil {
			return e.withHazards(ctx, err)
		}
		return nil
	})
	if err != nil {
		return nil, e.finalizeError(err, retries)
	}

	var hrefs []string
	expr := `Array.from(document.querySelectorAll('a[href*="/p/"], a[href*="/reel/"]')).map(a => a.getAttribute('href'))`
	if err := e.driver.Evaluate(ctx, expr, &hrefs); err != nil {
		return nil, fmt.Errorf("failed to collect post links: %w", err)
	}

	seen := make(map[string]bool)
	var urls []string
	for _, href := range hrefs {
		if href == "" || seen[href] {
			continue
		}
		seen[href] = true
		if strings.HasPrefix(href, "/") {
			href = instagram.BaseURL + href
		}
		urls = append(urls, href)
		if len(urls) == max {
			break
		}
	}
	return urls, nil
}

// execute wraps one action attempt in the rate limiter and retry policy
// and maps the outcome to the uniform result/error contract.
func (e *Executor) execute(ctx context.Context, attempt func(ctx context.Context) (string, error)) (schemas.ActionResult, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return schemas.ActionResult{}, err
	}

	var detail string
	retries, err := e.policy.Do(ctx, func(ctx context.Context) error {
		d, err := attempt(ctx)
		detail = d
		return err
	})

	result := schemas.ActionResult{
		Success:     err == nil,
		Detail:      detail,
		RetriesUsed: retries,
	}
	if err != nil {
		return result, e.finalizeError(err, retries)
	}
	e.pacer.ActionCompleted()
	return result, nil
}

// finalizeError stamps the retry count onto typed errors and wraps
// everything else as TransientFailure.
func (e *Executor) finalizeError(err error, retries int) error {
	var ae *schemas.ActionError
	if errors.As(err, &ae) {
		ae.Retries = retries
		return ae
	}
	var se *schemas.SessionError
	if errors.As(err, &se) {
		return se
	}
	return &schemas.ActionError{
		Code:    schemas.CodeTransientFailure,
		Detail:  "retry budget exhausted",
		Retries: retries,
		Cause:   err,
	}
}

// withHazards re-examines the page after a failure: a challenge or block
// indicator explains the failure better than the step error does.
func (e *Executor) withHazards(ctx context.Context, err error) error {
	if challenged, probeErr := instagram.ChallengePresent(ctx, e.driver); probeErr == nil && challenged {
		return schemas.NewSessionError(schemas.CodeChallengeRequired,
			"verification interposed mid-session", err)
	}
	if blocked, probeErr := instagram.Blocked(ctx, e.driver); probeErr == nil && blocked {
		return schemas.NewActionError(schemas.CodeBlockedOrRateLimited,
			schemas.DetailRateLimited, err)
	}
	return err
}

// attachMedia uploads the file and waits for the attachment preview, the
// signal the upload settled.
func (e *Executor) attachMedia(ctx context.Context, path string) error {
	fileSel, found, err := instagram.FirstExisting(ctx, e.driver, instagram.MessageFileInput)
	if err != nil || !found {
		return fmt.Errorf("file input not available (found=%v): %w", found, err)
	}
	if err := e.driver.Upload(ctx, fileSel, path); err != nil {
		return fmt.Errorf("media upload failed: %w", err)
	}
	if _, err := e.awaitAny(ctx, instagram.MessageAttachmentPreview); err != nil {
		return fmt.Errorf("attachment preview never appeared: %w", err)
	}
	return nil
}

// scrollFollowers drives the dialog until a stop condition and returns the
// collected records with the stop detail. maxCount <= 0 means the entire
// list: only end-of-list or a block stops the scrape.
func (e *Executor) scrollFollowers(ctx context.Context, maxCount int) ([]schemas.FollowerRecord, string, error) {
	seen := make(map[string]bool)
	var followers []schemas.FollowerRecord
	stale := 0

	for {
		if blocked, err := instagram.Blocked(ctx, e.driver); err == nil && blocked {
			e.logger.Warn("Block signal during follower scrape, returning partial results.",
				zap.Int("collected", len(followers)))
			return followers, schemas.DetailRateLimited, schemas.NewActionError(
				schemas.CodeBlockedOrRateLimited, schemas.DetailRateLimited, nil)
		}
		if challenged, err := instagram.ChallengePresent(ctx, e.driver); err == nil && challenged {
			return followers, schemas.DetailRateLimited, schemas.NewSessionError(
				schemas.CodeChallengeRequired, "verification interposed during scrape", nil)
		}

		var markup string
		if err := e.driver.Evaluate(ctx, followersDialogHTML, &markup); err != nil {
			return followers, "", fmt.Errorf("failed to read followers dialog: %w", err)
		}
		records, err := instagram.ParseFollowers(strings.NewReader(markup))
		if err != nil {
			return followers, "", err
		}

		grew := false
		for _, rec := range records {
			if seen[rec.Handle] {
				continue
			}
			seen[rec.Handle] = true
			followers = append(followers, rec)
			grew = true
			if maxCount > 0 && len(followers) >= maxCount {
				return followers, schemas.DetailMaxCount, nil
			}
		}

		if !grew {
			stale++
			if stale >= staleScrollLimit {
				return followers, schemas.DetailEndOfList, nil
			}
		} else {
			stale = 0
		}

		if err := e.driver.Evaluate(ctx, followersDialogScroll, nil); err != nil {
			return followers, "", fmt.Errorf("failed to scroll followers dialog: %w", err)
		}
		if err := e.scrapePause(ctx); err != nil {
			return followers, "", err
		}
	}
}

// scrapePause spaces scroll iterations, humanoid when enabled.
func (e *Executor) scrapePause(ctx context.Context) error {
	if e.pacer.Enabled() {
		return e.pacer.Pause(ctx, 700, 250)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.pollInterval):
		return nil
	}
}

// awaitAny polls the candidates until one exists or the element timeout
// elapses.
func (e *Executor) awaitAny(ctx context.Context, candidates []string) (string, error) {
	var match string
	err := e.awaitCondition(ctx, func(ctx context.Context) (bool, error) {
		sel, found, err := instagram.FirstExisting(ctx, e.driver, candidates)
		if err != nil {
			return false, err
		}
		match = sel
		return found, nil
	})
	if err != nil {
		return "", fmt.Errorf("expected element never appeared: %w", err)
	}
	return match, nil
}

// awaitCondition polls check until it reports true or the action timeout
// elapses.
func (e *Executor) awaitCondition(ctx context.Context, check func(ctx context.Context) (bool, error)) error {
	timeout := e.cfg.Network.ActionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		ok, err := check(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("condition not met within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.pollInterval):
		}
	}
}
