package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
	"github.com/xkilldash9x/sockpuppet-cli/internal/browser/humanoid"
	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
)

// fakeDriver scripts the page the executor drives. Evaluate emulates the
// in-page scripts: marker scans and text-matched clicks over bodyText,
// dialog markup reads, scroll stepping, and href collection.
type fakeDriver struct {
	mu       sync.Mutex
	location string
	existing map[string]bool
	bodyText string

	// dialogPages holds successive followers-dialog markups; scrolling
	// advances through them.
	dialogPages []string
	scrolls     int
	// blockAfterScrolls, when positive, raises the block dialog after
	// that many scrolls.
	blockAfterScrolls int

	hrefs []string

	navFailures int
	typed       map[string]string
	clicked     []string
	uploaded    []string
	navigated   []string

	onClick    func(selector string)
	onNavigate func(url string)
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		existing: make(map[string]bool),
		typed:    make(map[string]string),
	}
}

func (f *fakeDriver) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.navFailures > 0 {
		f.navFailures--
		return errors.New("net::ERR_TIMED_OUT")
	}
	f.navigated = append(f.navigated, url)
	f.location = url
	if f.onNavigate != nil {
		f.onNavigate(url)
	}
	return nil
}

func (f *fakeDriver) Location(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.location, nil
}

func (f *fakeDriver) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.existing[selector] {
		return errors.New("element not visible")
	}
	return nil
}

func (f *fakeDriver) Exists(_ context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[selector], nil
}

func (f *fakeDriver) Click(_ context.Context, selector string) error {
	f.mu.Lock()
	f.clicked = append(f.clicked, selector)
	hook := f.onClick
	f.mu.Unlock()
	if hook != nil {
		hook(selector)
	}
	return nil
}

func (f *fakeDriver) Type(_ context.Context, selector, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typed[selector] = text
	// Typed text becomes visible on the page, the way a sent message or
	// posted comment would.
	f.bodyText += "\n" + text
	return nil
}

func (f *fakeDriver) Upload(_ context.Context, selector, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, path)
	return nil
}

func (f *fakeDriver) Evaluate(_ context.Context, expr string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch v := out.(type) {
	case nil:
		if strings.Contains(expr, "scrollTop") {
			f.scrolls++
			if f.blockAfterScrolls > 0 && f.scrolls >= f.blockAfterScrolls {
				f.bodyText += "\nAction Blocked"
			}
		}
		return nil
	case *string:
		*v = f.currentDialogPage()
		return nil
	case *[]string:
		*v = append([]string(nil), f.hrefs...)
		return nil
	case *bool:
		*v = false
		isClick := strings.Contains(expr, "el.click()")
		for i, part := range strings.Split(expr, `"`) {
			if i%2 == 1 && part != "" && strings.Contains(f.bodyText, part) {
				if isClick {
					f.clicked = append(f.clicked, "text:"+part)
					f.bodyText = strings.ReplaceAll(f.bodyText, part, "")
				}
				*v = true
				return nil
			}
		}
		return nil
	}
	return nil
}

func (f *fakeDriver) currentDialogPage() string {
	if len(f.dialogPages) == 0 {
		return ""
	}
	idx := f.scrolls
	if idx >= len(f.dialogPages) {
		idx = len(f.dialogPages) - 1
	}
	return f.dialogPages[idx]
}

func (f *fakeDriver) Text(_ context.Context, selector string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.typed[selector], nil
}

func (f *fakeDriver) Cookies(context.Context) (*schemas.CookieJar, error) {
	return &schemas.CookieJar{}, nil
}

func (f *fakeDriver) SetCookies(context.Context, *schemas.CookieJar) error { return nil }
func (f *fakeDriver) Close(context.Context) error                          { return nil }

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Account.Username = "me_myself"
	cfg.Account.Password = "pw"
	cfg.Browser.Humanoid.Enabled = false
	cfg.Network.ActionTimeout = 50 * time.Millisecond
	cfg.Network.ElementTimeout = 30 * time.Millisecond
	cfg.Pacing.MinActionInterval = 0
	cfg.Pacing.MaxRetries = 2
	cfg.Pacing.RetryInitialInterval = time.Millisecond
	return cfg
}

func newTestExecutor(t *testing.T, drv *fakeDriver) *Executor {
	t.Helper()
	cfg := testConfig()
	resolver := NewResolver(drv, cfg, zap.NewNop())
	resolver.pollInterval = time.Millisecond
	e := NewExecutor(drv, resolver, cfg, zap.NewNop())
	e.pollInterval = time.Millisecond
	return e
}

// pacedDriver is a fakeDriver that exposes its own pacer, like the real
// browser session does.
type pacedDriver struct {
	*fakeDriver
	pacer *humanoid.Pacer
}

func (d *pacedDriver) Pacer() *humanoid.Pacer { return d.pacer }

func TestNewExecutorSharesDriverPacer(t *testing.T) {
	cfg := testConfig()
	shared := humanoid.NewPacer(cfg.Browser.Humanoid, zap.NewNop())
	drv := &pacedDriver{fakeDriver: newFakeDriver(), pacer: shared}

	e := NewExecutor(drv, NewResolver(drv, cfg, zap.NewNop()), cfg, zap.NewNop())
	assert.Same(t, shared, e.pacer, "driver-supplied pacer is adopted")

	plain := newFakeDriver()
	e2 := NewExecutor(plain, NewResolver(plain, cfg, zap.NewNop()), cfg, zap.NewNop())
	require.NotNil(t, e2.pacer)
	assert.NotSame(t, shared, e2.pacer)
}

// followersPage renders a dialog holding handles user_<from> .. user_<to>.
func followersPage(from, to int) string {
	var sb strings.Builder
	sb.WriteString(`<div role="dialog"><ul>`)
	for i := from; i <= to; i++ {
		fmt.Fprintf(&sb, `<li><a href="/user_%d/"><span>user_%d</span></a></li>`, i, i)
	}
	sb.WriteString(`</ul></div>`)
	return sb.String()
}

func TestLikePostHappyPath(t *testing.T) {
	drv := newFakeDriver()
	drv.existing[`section svg[aria-label="Like"]`] = true
	drv.onClick = func(selector string) {
		if selector == `section svg[aria-label="Like"]` {
			drv.mu.Lock()
			drv.existing[`section svg[aria-label="Like"]`] = false
			drv.existing[`section svg[aria-label="Unlike"]`] = true
			drv.mu.Unlock()
		}
	}

	e := newTestExecutor(t, drv)
	res, err := e.LikePost(context.Background(), schemas.LikePostRequest{
		PostURL: "https://www.instagram.com/p/Cxyz123/",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Detail)
	assert.Zero(t, res.RetriesUsed)
	assert.Contains(t, drv.clicked, `section svg[aria-label="Like"]`)
}

func TestLikePostAlreadyLiked(t *testing.T) {
	drv := newFakeDriver()
	drv.existing[`section svg[aria-label="Unlike"]`] = true

	e := newTestExecutor(t, drv)
	res, err := e.LikePost(context.Background(), schemas.LikePostRequest{
		PostURL: "https://www.instagram.com/p/Cxyz123/",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, schemas.DetailAlreadyLiked, res.Detail)
	assert.Empty(t, drv.clicked, "no toggle issued on an already-liked post")
}

func TestLikePostTargetNotFound(t *testing.T) {
	drv := newFakeDriver()
	drv.onNavigate = func(string) {
		drv.bodyText = "Sorry, this page isn't available."
	}

	e := newTestExecutor(t, drv)
	_, err := e.LikePost(context.Background(), schemas.LikePostRequest{
		PostURL: "https://www.instagram.com/p/gone/",
	})
	require.Error(t, err)
	code, ok := schemas.ActionCode(err)
	require.True(t, ok)
	assert.Equal(t, schemas.CodeTargetNotFound, code)
	assert.Len(t, drv.navigated, 1, "target resolution failure is never retried")
}

func TestLikePostTransientRetriesThenSuccess(t *testing.T) {
	drv := newFakeDriver()
	drv.navFailures = 2
	drv.existing[`section svg[aria-label="Unlike"]`] = true

	e := newTestExecutor(t, drv)
	res, err := e.LikePost(context.Background(), schemas.LikePostRequest{
		PostURL: "https://www.instagram.com/p/Cxyz123/",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.RetriesUsed)
}

func TestLikePostRetryBudgetExhausted(t *testing.T) {
	drv := newFakeDriver()
	drv.navFailures = 10

	e := newTestExecutor(t, drv)
	_, err := e.LikePost(context.Background(), schemas.LikePostRequest{
		PostURL: "https://www.instagram.com/p/Cxyz123/",
	})
	require.Error(t, err)

	var ae *schemas.ActionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, schemas.CodeTransientFailure, ae.Code)
	assert.Equal(t, 2, ae.Retries)
}

func TestLikePostBlockedSignal(t *testing.T) {
	drv := newFakeDriver()
	// Post opens, like control present, but the click bounces off an
	// action-blocked dialog.
	drv.existing[`section svg[aria-label="Like"]`] = true
	drv.onClick = func(selector string) {
		drv.mu.Lock()
		drv.bodyText = "Action Blocked\nTry Again Later"
		drv.mu.Unlock()
	}

	e := newTestExecutor(t, drv)
	_, err := e.LikePost(context.Background(), schemas.LikePostRequest{
		PostURL: "https://www.instagram.com/p/Cxyz123/",
	})
	require.Error(t, err)
	assert.True(t, schemas.IsBlocked(err))
}

func TestLikePostChallengeMidAction(t *testing.T) {
	drv := newFakeDriver()
	drv.existing[`section svg[aria-label="Like"]`] = true
	drv.onClick = func(string) {
		drv.mu.Lock()
		drv.location = "https://www.instagram.com/challenge/action/9/"
		drv.mu.Unlock()
	}

	e := newTestExecutor(t, drv)
	_, err := e.LikePost(context.Background(), schemas.LikePostRequest{
		PostURL: "https://www.instagram.com/p/Cxyz123/",
	})
	require.Error(t, err)
	code, ok := schemas.SessionCode(err)
	require.True(t, ok)
	assert.Equal(t, schemas.CodeChallengeRequired, code)
}

func TestSendMessageHappyPath(t *testing.T) {
	drv := newFakeDriver()
	drv.bodyText = "Message"
	drv.onNavigate = func(string) {
		drv.existing[`textarea[placeholder="Message..."]`] = true
		drv.bodyText += "\nSend"
	}

	e := newTestExecutor(t, drv)
	res, err := e.SendMessage(context.Background(), schemas.SendMessageRequest{
		TargetHandle: "friend",
		Text:         "hey, long time!",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "hey, long time!", drv.typed[`textarea[placeholder="Message..."]`])
	assert.Contains(t, drv.clicked, "text:Message")
	assert.Contains(t, drv.clicked, "text:Send")
}

func TestSendMessageWithMedia(t *testing.T) {
	drv := newFakeDriver()
	drv.bodyText = "Message"
	drv.onNavigate = func(string) {
		drv.existing[`textarea[placeholder="Message..."]`] = true
		drv.existing[`input[type="file"]`] = true
		drv.existing[`div[role="dialog"] img`] = true
		drv.bodyText += "\nSend"
	}

	e := newTestExecutor(t, drv)
	res, err := e.SendMessage(context.Background(), schemas.SendMessageRequest{
		TargetHandle: "friend",
		Text:         "look at this",
		MediaPath:    "/tmp/photo.jpg",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"/tmp/photo.jpg"}, drv.uploaded)
}

func TestSendMessageNoMessageEntryPoint(t *testing.T) {
	drv := newFakeDriver()
	// Profile renders but offers no Message button.
	drv.bodyText = "posts followers following"

	e := newTestExecutor(t, drv)
	_, err := e.SendMessage(context.Background(), schemas.SendMessageRequest{
		TargetHandle: "private_account",
		Text:         "hi",
	})
	require.Error(t, err)
	code, ok := schemas.ActionCode(err)
	require.True(t, ok)
	assert.Equal(t, schemas.CodeTargetNotFound, code)
}

func TestCommentOnPostHappyPath(t *testing.T) {
	drv := newFakeDriver()
	drv.existing[`textarea[aria-label="Add a comment…"]`] = true
	drv.bodyText = "Post"

	e := newTestExecutor(t, drv)
	res, err := e.CommentOnPost(context.Background(), schemas.CommentOnPostRequest{
		PostURL:     "https://www.instagram.com/p/Cxyz123/",
		CommentText: "what a shot!",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "what a shot!", drv.typed[`textarea[aria-label="Add a comment…"]`])
}

func TestCommentOnPostRejectsEmptyText(t *testing.T) {
	drv := newFakeDriver()
	e := newTestExecutor(t, drv)

	_, err := e.CommentOnPost(context.Background(), schemas.CommentOnPostRequest{
		PostURL: "https://www.instagram.com/p/Cxyz123/",
	})
	require.Error(t, err)
	code, _ := schemas.ActionCode(err)
	assert.Equal(t, schemas.CodeCommentGenerationFailed, code)
	assert.Empty(t, drv.navigated, "nothing posted, nothing opened")
}

func TestScrapeFollowersNaturalEnd(t *testing.T) {
	drv := newFakeDriver()
	drv.existing[`div[role="dialog"]`] = true
	// The list holds 30 followers; the request asks for 50.
	drv.dialogPages = []string{followersPage(1, 15), followersPage(1, 30)}

	e := newTestExecutor(t, drv)
	res, err := e.ScrapeFollowers(context.Background(), schemas.ScrapeFollowersRequest{
		TargetHandle: "target",
		MaxCount:     50,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, schemas.DetailEndOfList, res.Detail)
	assert.Len(t, res.Followers, 30)
	assert.Equal(t, "user_1", res.Followers[0].Handle)
	assert.Equal(t, "user_30", res.Followers[29].Handle)
}

func TestScrapeFollowersMaxCount(t *testing.T) {
	drv := newFakeDriver()
	drv.existing[`div[role="dialog"]`] = true
	drv.dialogPages = []string{followersPage(1, 40)}

	e := newTestExecutor(t, drv)
	res, err := e.ScrapeFollowers(context.Background(), schemas.ScrapeFollowersRequest{
		TargetHandle: "target",
		MaxCount:     25,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, schemas.DetailMaxCount, res.Detail)
	assert.Len(t, res.Followers, 25)
}

func TestScrapeFollowersZeroMaxScrapesEntireList(t *testing.T) {
	drv := newFakeDriver()
	drv.existing[`div[role="dialog"]`] = true
	drv.dialogPages = []string{followersPage(1, 30), followersPage(1, 60)}

	e := newTestExecutor(t, drv)
	res, err := e.ScrapeFollowers(context.Background(), schemas.ScrapeFollowersRequest{
		TargetHandle: "target",
		MaxCount:     0,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, schemas.DetailEndOfList, res.Detail, "no cap: only the list end stops the scrape")
	assert.Len(t, res.Followers, 60)
}

func TestScrapeFollowersBlockedPartial(t *testing.T) {
	drv := newFakeDriver()
	drv.existing[`div[role="dialog"]`] = true
	drv.dialogPages = []string{followersPage(1, 12)}
	drv.blockAfterScrolls = 1

	e := newTestExecutor(t, drv)
	res, err := e.ScrapeFollowers(context.Background(), schemas.ScrapeFollowersRequest{
		TargetHandle: "target",
		MaxCount:     100,
	})
	require.Error(t, err)
	assert.True(t, schemas.IsBlocked(err))
	assert.False(t, res.Success)
	assert.Equal(t, schemas.DetailRateLimited, res.Detail)
	assert.Len(t, res.Followers, 12, "partial results survive the block")
}

func TestScrapeFollowersTargetNotFound(t *testing.T) {
	drv := newFakeDriver()
	drv.onNavigate = func(string) {
		drv.bodyText = "Sorry, this page isn't available."
	}

	e := newTestExecutor(t, drv)
	res, err := e.ScrapeFollowers(context.Background(), schemas.ScrapeFollowersRequest{
		TargetHandle: "ghost",
		MaxCount:     10,
	})
	require.Error(t, err)
	code, _ := schemas.ActionCode(err)
	assert.Equal(t, schemas.CodeTargetNotFound, code)
	assert.Empty(t, res.Followers)
}

func TestDescribePostCollectsAltText(t *testing.T) {
	drv := newFakeDriver()
	drv.existing[`article h1`] = true
	drv.typed[`article h1`] = "golden hour at the pier"

	e := newTestExecutor(t, drv)
	post, err := e.DescribePost(context.Background(), "https://www.instagram.com/p/Cxyz123/")
	require.NoError(t, err)
	assert.Equal(t, "golden hour at the pier", post.Caption)
}

func TestRecentPostURLs(t *testing.T) {
	drv := newFakeDriver()
	drv.hrefs = []string{"/p/AAA/", "/p/BBB/", "/p/AAA/", "/reel/CCC/", "/p/DDD/"}

	e := newTestExecutor(t, drv)
	urls, err := e.RecentPostURLs(context.Background(), "target", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.instagram.com/p/AAA/",
		"https://www.instagram.com/p/BBB/",
		"https://www.instagram.com/reel/CCC/",
	}, urls)
}
