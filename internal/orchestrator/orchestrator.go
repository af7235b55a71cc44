// Package orchestrator is the facade the CLI drives: one Init, a series of
// serialized actions, one Close. It owns nothing below it except the
// gating and the challenge bookkeeping; the session manager and executor
// do the work.
package orchestrator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
	"github.com/xkilldash9x/sockpuppet-cli/internal/actions"
)

// SessionManager is the slice of the session manager the facade needs.
type SessionManager interface {
	Init(ctx context.Context) error
	Invalidate(reason string)
	Close(ctx context.Context) error
	State() schemas.SessionState
	Info() schemas.SessionInfo
}

// Executor is the slice of the action executor the facade needs.
type Executor interface {
	SendMessage(ctx context.Context, req schemas.SendMessageRequest) (schemas.ActionResult, error)
	LikePost(ctx context.Context, req schemas.LikePostRequest) (schemas.ActionResult, error)
	CommentOnPost(ctx context.Context, req schemas.CommentOnPostRequest) (schemas.ActionResult, error)
	ScrapeFollowers(ctx context.Context, req schemas.ScrapeFollowersRequest) (schemas.ActionResult, error)
	DescribePost(ctx context.Context, postURL string) (schemas.PostContext, error)
	RecentPostURLs(ctx context.Context, handle string, max int) ([]string, error)
}

var _ Executor = (*actions.Executor)(nil)

// PostInteraction is one post's outcome within InteractWithPosts.
type PostInteraction struct {
	PostURL   string `json:"post_url"`
	Liked     bool   `json:"liked"`
	Commented bool   `json:"commented"`
	Comment   string `json:"comment,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Orchestrator serializes all access to one session. A mutex, not a queue:
// one caller at a time, the rest wait.
type Orchestrator struct {
	manager   SessionManager
	executor  Executor
	generator schemas.CommentGenerator
	logger    *zap.Logger

	mu          sync.Mutex
	initialized bool
}

// New wires the facade.
func New(manager SessionManager, executor Executor, generator schemas.CommentGenerator, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		manager:   manager,
		executor:  executor,
		generator: generator,
		logger:    logger.Named("orchestrator"),
	}
}

// Init establishes the session. Required before any action.
func (o *Orchestrator) Init(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.manager.Init(ctx); err != nil {
		return err
	}
	o.initialized = true
	return nil
}

// Info returns the log-safe session snapshot.
func (o *Orchestrator) Info() schemas.SessionInfo {
	return o.manager.Info()
}

// SendMessage delivers a direct message.
func (o *Orchestrator) SendMessage(ctx context.Context, req schemas.SendMessageRequest) (schemas.ActionResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.gate(); err != nil {
		return schemas.ActionResult{}, err
	}
	res, err := o.executor.SendMessage(ctx, req)
	return res, o.observe(err)
}

// LikePost likes one post.
func (o *Orchestrator) LikePost(ctx context.Context, req schemas.LikePostRequest) (schemas.ActionResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.gate(); err != nil {
		return schemas.ActionResult{}, err
	}
	res, err := o.executor.LikePost(ctx, req)
	return res, o.observe(err)
}

// CommentOnPost comments on one post. With empty CommentText the comment is
// generated from the post's own context in the requested tone; a generation
// failure aborts before anything touches the post.
func (o *Orchestrator) CommentOnPost(ctx context.Context, req schemas.CommentOnPostRequest, tone schemas.CommentTone) (schemas.ActionResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.gate(); err != nil {
		return schemas.ActionResult{}, err
	}

	if req.CommentText == "" {
		text, err := o.generateComment(ctx, req.PostURL, tone)
		if err != nil {
			return schemas.ActionResult{}, o.observe(err)
		}
		req.CommentText = text
	}

	res, err := o.executor.CommentOnPost(ctx, req)
	return res, o.observe(err)
}

// ScrapeFollowers enumerates followers of a profile.
func (o *Orchestrator) ScrapeFollowers(ctx context.Context, req schemas.ScrapeFollowersRequest) (schemas.ActionResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.gate(); err != nil {
		return schemas.ActionResult{}, err
	}
	res, err := o.executor.ScrapeFollowers(ctx, req)
	return res, o.observe(err)
}

// InteractWithPosts opens a profile and works through its first maxPosts
// posts, liking each and commenting with generated text. A block or
// challenge stops the run; per-post failures are recorded and skipped.
func (o *Orchestrator) InteractWithPosts(ctx context.Context, targetHandle string, maxPosts int, tone schemas.CommentTone) ([]PostInteraction, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.gate(); err != nil {
		return nil, err
	}
	if maxPosts <= 0 {
		maxPosts = 3
	}

	urls, err := o.executor.RecentPostURLs(ctx, targetHandle, maxPosts)
	if err != nil {
		return nil, o.observe(err)
	}

	var outcomes []PostInteraction
	for _, postURL := range urls {
		interaction := PostInteraction{PostURL: postURL}

		likeRes, err := o.executor.LikePost(ctx, schemas.LikePostRequest{PostURL: postURL})
		if err != nil {
			interaction.Detail = err.Error()
			outcomes = append(outcomes, interaction)
			if halt := o.observe(err); o.shouldHalt(err) {
				return outcomes, halt
			}
			continue
		}
		interaction.Liked = true
		if likeRes.Detail != "" {
			interaction.Detail = likeRes.Detail
		}

		text, err := o.generateComment(ctx, postURL, tone)
		if err == nil {
			_, err = o.executor.CommentOnPost(ctx, schemas.CommentOnPostRequest{
				PostURL:     postURL,
				CommentText: text,
			})
		}
		if err != nil {
			interaction.Detail = err.Error()
			outcomes = append(outcomes, interaction)
			if halt := o.observe(err); o.shouldHalt(err) {
				return outcomes, halt
			}
			continue
		}
		interaction.Commented = true
		interaction.Comment = text
		outcomes = append(outcomes, interaction)
	}
	return outcomes, nil
}

// Close releases the session. Always safe.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.manager.Close(ctx)
}

// gate fails fast unless Init succeeded and the session is still
// authenticated. Called with the mutex held.
func (o *Orchestrator) gate() error {
	if !o.initialized {
		return schemas.NewSessionError(schemas.CodeSessionNotReady,
			"no successful Init on this orchestrator", nil)
	}
	if state := o.manager.State(); state != schemas.StateAuthenticated {
		return schemas.NewSessionError(schemas.CodeSessionNotReady,
			"session state is "+string(state), nil)
	}
	return nil
}

// observe drops the session when a challenge surfaced mid-action. The
// error passes through unchanged.
func (o *Orchestrator) observe(err error) error {
	if err == nil {
		return nil
	}
	if code, ok := schemas.SessionCode(err); ok && code == schemas.CodeChallengeRequired {
		o.manager.Invalidate("challenge observed mid-session")
	}
	return err
}

// shouldHalt reports whether an error ends a composite run rather than
// skipping one post.
func (o *Orchestrator) shouldHalt(err error) bool {
	if schemas.IsBlocked(err) {
		return true
	}
	_, isSession := schemas.SessionCode(err)
	return isSession
}

func (o *Orchestrator) generateComment(ctx context.Context, postURL string, tone schemas.CommentTone) (string, error) {
	post, err := o.executor.DescribePost(ctx, postURL)
	if err != nil {
		return "", err
	}
	text, err := o.generator.Generate(ctx, post, tone)
	if err != nil {
		return "", err
	}
	o.logger.Debug("Generated comment.", zap.String("post", postURL), zap.Int("length", len(text)))
	return text, nil
}
