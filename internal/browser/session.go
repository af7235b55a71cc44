// Package browser owns the one live Chrome instance and exposes it through
// the Driver interface. One Session means one browser process, one browsing
// context, one account; nothing above this package touches chromedp
// directly.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
	"github.com/xkilldash9x/sockpuppet-cli/internal/browser/humanoid"
	"github.com/xkilldash9x/sockpuppet-cli/internal/browser/stealth"
	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
)

// Session is the live browser context. It implements Driver.
type Session struct {
	id      string
	cfg     *config.Config
	logger  *zap.Logger
	pacer   *humanoid.Pacer
	persona stealth.Persona

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu       sync.Mutex
	isClosed bool
}

var _ Driver = (*Session)(nil)

// NewSession launches the browser process, creates the browsing context,
// and applies the stealth persona. proxyAddr, when non-empty, routes all
// browser traffic through the local forwarder. The returned session must be
// Closed on every path, including after a later initialization failure.
func NewSession(ctx context.Context, cfg *config.Config, logger *zap.Logger, proxyAddr string) (*Session, error) {
	sessionID := uuid.New().String()
	persona := stealth.FromConfig(cfg.Browser)

	s := &Session{
		id:      sessionID,
		cfg:     cfg,
		logger:  logger.Named("browser").With(zap.String("session_id", sessionID)),
		pacer:   humanoid.NewPacer(cfg.Browser.Humanoid, logger),
		persona: persona,
	}

	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, ExecOptions(cfg, proxyAddr)...)
	s.browserCtx, s.browserCancel = chromedp.NewContext(s.allocCtx)

	// The first Run on a fresh chromedp context starts the browser
	// process and connects CDP.
	if err := chromedp.Run(s.browserCtx); err != nil {
		s.Close(context.Background())
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	tasks := chromedp.Tasks{
		stealth.Apply(persona, s.logger),
		emulation.SetDeviceMetricsOverride(
			int64(cfg.Browser.Viewport.Width),
			int64(cfg.Browser.Viewport.Height),
			1.0, false,
		),
	}
	if len(cfg.Network.Headers) > 0 {
		headers := make(network.Headers, len(cfg.Network.Headers))
		for k, v := range cfg.Network.Headers {
			headers[k] = v
		}
		tasks = append(tasks, network.SetExtraHTTPHeaders(headers))
	}

	if err := chromedp.Run(s.browserCtx, tasks); err != nil {
		s.Close(context.Background())
		return nil, fmt.Errorf("failed to initialize browser session: %w", err)
	}

	s.logger.Debug("Browser session started.")
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Pacer exposes the session's pacing state to the action layer.
func (s *Session) Pacer() *humanoid.Pacer { return s.pacer }

// Navigate loads url, waits for the DOM to be ready, then holds through the
// configured post-load settle window.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))

	opCtx, opCancel := CombineContext(s.browserCtx, ctx)
	defer opCancel()

	if err := s.pacer.CognitivePause(opCtx); err != nil {
		return err
	}

	navTimeout := s.cfg.Network.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 45 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(opCtx, navTimeout)
	defer navCancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if navCtx.Err() == context.DeadlineExceeded && opCtx.Err() == nil {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		if opCtx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", opCtx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	if wait := s.cfg.Network.PostLoadWait; wait > 0 {
		if err := s.pacer.Hesitate(opCtx, wait); err != nil {
			return err
		}
	}
	return nil
}

// Location reports the current page URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

// WaitVisible blocks until the selector is visible or the timeout elapses.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.cfg.Network.ElementTimeout
	}

	opCtx, opCancel := CombineContext(s.browserCtx, ctx)
	defer opCancel()
	waitCtx, waitCancel := context.WithTimeout(opCtx, timeout)
	defer waitCancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("element %q not visible within %s: %w", selector, timeout, err)
	}
	return nil
}

// Exists reports whether the selector matches any element right now.
func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	expr := fmt.Sprintf(`document.querySelector(%q) !== null`, selector)
	if err := s.run(ctx, chromedp.Evaluate(expr, &found)); err != nil {
		return false, fmt.Errorf("existence probe for %q failed: %w", selector, err)
	}
	return found, nil
}

// Click scrolls the element into view, pauses, then clicks it.
func (s *Session) Click(ctx context.Context, selector string) error {
	s.logger.Debug("Clicking.", zap.String("selector", selector))

	opCtx, opCancel := CombineContext(s.browserCtx, ctx)
	defer opCancel()

	if err := s.pacer.Pause(opCtx, 400, 150); err != nil {
		return err
	}

	clickCtx, clickCancel := context.WithTimeout(opCtx, s.cfg.Network.ElementTimeout)
	defer clickCancel()

	err := chromedp.Run(clickCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("click failed for selector %q: %w", selector, err)
	}
	return nil
}

// Type focuses the element and sends text with per-keystroke pacing. With
// pacing disabled the whole string is sent in one burst.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	s.logger.Debug("Typing.", zap.String("selector", selector), zap.Int("text_length", len(text)))

	opCtx, opCancel := CombineContext(s.browserCtx, ctx)
	defer opCancel()

	// Budget scales with text length so long messages are not cut off
	// mid-keystroke.
	budget := s.cfg.Network.ElementTimeout + time.Duration(len(text))*400*time.Millisecond
	typeCtx, typeCancel := context.WithTimeout(opCtx, budget)
	defer typeCancel()

	if err := chromedp.Run(typeCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to focus %q for typing: %w", selector, err)
	}

	if !s.pacer.Enabled() {
		if err := chromedp.Run(typeCtx, chromedp.SendKeys(selector, text, chromedp.ByQuery)); err != nil {
			return fmt.Errorf("type failed for selector %q: %w", selector, err)
		}
		return nil
	}

	for _, r := range text {
		if err := chromedp.Run(typeCtx, chromedp.KeyEvent(string(r))); err != nil {
			return fmt.Errorf("keystroke failed while typing into %q: %w", selector, err)
		}
		if err := s.pacer.Hesitate(typeCtx, s.pacer.KeyInterval()); err != nil {
			return err
		}
	}
	return nil
}

// Upload attaches a local file to the file input matching the selector.
func (s *Session) Upload(ctx context.Context, selector, path string) error {
	s.logger.Debug("Uploading file.", zap.String("selector", selector))

	opCtx, opCancel := CombineContext(s.browserCtx, ctx)
	defer opCancel()
	upCtx, upCancel := context.WithTimeout(opCtx, s.cfg.Network.ActionTimeout)
	defer upCancel()

	if err := chromedp.Run(upCtx, chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("upload failed for selector %q: %w", selector, err)
	}
	return nil
}

// Evaluate runs expr in the page and stores the result in out (nil to
// discard).
func (s *Session) Evaluate(ctx context.Context, expr string, out any) error {
	if err := s.run(ctx, chromedp.Evaluate(expr, out)); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	return nil
}

// Text returns the visible text of the first match for selector.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	var out string
	opCtx, opCancel := CombineContext(s.browserCtx, ctx)
	defer opCancel()
	txtCtx, txtCancel := context.WithTimeout(opCtx, s.cfg.Network.ElementTimeout)
	defer txtCancel()

	if err := chromedp.Run(txtCtx, chromedp.Text(selector, &out, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return "", fmt.Errorf("text read failed for selector %q: %w", selector, err)
	}
	return out, nil
}

// Cookies captures the browsing context's full cookie set.
func (s *Session) Cookies(ctx context.Context) (*schemas.CookieJar, error) {
	var cdpCookies []*network.Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(c context.Context) (err error) {
		cdpCookies, err = storage.GetCookies().Do(c)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to capture cookies: %w", err)
	}
	return jarFromCDP(cdpCookies), nil
}

// SetCookies restores a saved jar onto the browsing context.
func (s *Session) SetCookies(ctx context.Context, jar *schemas.CookieJar) error {
	params := cookieParamsFromJar(jar)
	if len(params) == 0 {
		return fmt.Errorf("refusing to apply an empty cookie jar")
	}

	err := s.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		return storage.SetCookies(params).Do(c)
	}))
	if err != nil {
		return fmt.Errorf("failed to restore cookies: %w", err)
	}
	s.logger.Debug("Cookie jar applied.", zap.Int("cookies", len(params)))
	return nil
}

// Close shuts the browser down. Idempotent, and safe to call after a
// failed launch.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")

	if s.browserCtx != nil {
		// Graceful CDP shutdown first; the cancel below is the hard
		// stop.
		if err := chromedp.Cancel(s.browserCtx); err != nil {
			s.logger.Debug("Graceful browser shutdown failed.", zap.Error(err))
		}
	}
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	return nil
}

// run executes actions against the session honoring the caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.browserCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}
