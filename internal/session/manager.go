// Package session owns the authentication lifecycle of the one browser
// session: restore-from-jar, credential login, the authenticated gate the
// action layer goes through, and teardown.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
	"github.com/xkilldash9x/sockpuppet-cli/internal/browser"
	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
	"github.com/xkilldash9x/sockpuppet-cli/internal/cookies"
	"github.com/xkilldash9x/sockpuppet-cli/internal/instagram"
	"github.com/xkilldash9x/sockpuppet-cli/internal/retry"
)

// Manager drives one session through
// Uninitialized -> Authenticating -> Authenticated -> Closed, with
// AuthFailed terminal. It is constructed per account and never shared
// across accounts.
type Manager struct {
	cfg    *config.Config
	driver browser.Driver
	store  schemas.CookieStore
	policy *retry.Policy
	logger *zap.Logger

	// pollInterval paces the login outcome probe loop.
	pollInterval time.Duration

	mu    sync.Mutex
	state schemas.SessionState
	info  schemas.SessionInfo
}

// NewManager wires a manager over an already-launched driver. The driver's
// lifetime belongs to the manager from here on: Close releases it.
func NewManager(cfg *config.Config, driver browser.Driver, store schemas.CookieStore, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:    cfg,
		driver: driver,
		store:  store,
		logger: logger.Named("session").With(zap.String("account", cfg.Account.Username)),

		pollInterval: 500 * time.Millisecond,
		state:        schemas.StateUninitialized,
		info: schemas.SessionInfo{
			ID:      uuid.New().String(),
			Account: cfg.Account.Username,
			State:   schemas.StateUninitialized,
		},
	}
	m.policy = retry.NewPolicy(
		cfg.Pacing.MaxRetries,
		cfg.Pacing.RetryInitialInterval,
		loginTransient,
		retry.WithLogger(m.logger),
	)
	return m
}

// loginTransient treats every failure without a structural verdict as
// retryable. Challenge and credential rejections arrive as SessionErrors
// and pass through on first sight.
func loginTransient(err error) bool {
	var se *schemas.SessionError
	return !errors.As(err, &se)
}

// State returns the current lifecycle state.
func (m *Manager) State() schemas.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Info returns a log-safe snapshot of the session.
func (m *Manager) Info() schemas.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info
}

// Init establishes the authenticated session: cookie restore first,
// credential login as the fallback. It must be called exactly once, before
// any Handle.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	if m.state != schemas.StateUninitialized {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("init called in state %s", state)
	}
	m.state = schemas.StateAuthenticating
	m.info.State = schemas.StateAuthenticating
	m.info.StartedAt = time.Now().UTC()
	m.mu.Unlock()

	if m.tryRestore(ctx) {
		m.setAuthenticated(true)
		m.persistJar(ctx)
		return nil
	}

	return m.Login(ctx, schemas.Credential{
		Username: m.cfg.Account.Username,
		Password: m.cfg.Account.Password,
	})
}

// Login authenticates with credentials. Transient failures are retried
// within the policy budget; a challenge demand or explicit credential
// rejection ends the flow immediately. Any failure is terminal for the
// manager.
func (m *Manager) Login(ctx context.Context, creds schemas.Credential) error {
	if err := creds.Validate(); err != nil {
		m.fail()
		return schemas.NewSessionError(schemas.CodeInvalidCredentials, "incomplete credential", err)
	}

	m.mu.Lock()
	if m.state != schemas.StateAuthenticating {
		if m.state != schemas.StateUninitialized {
			state := m.state
			m.mu.Unlock()
			return fmt.Errorf("login called in state %s", state)
		}
		m.info.StartedAt = time.Now().UTC()
	}
	m.state = schemas.StateAuthenticating
	m.info.State = schemas.StateAuthenticating
	m.mu.Unlock()

	retries, err := m.policy.Do(ctx, func(ctx context.Context) error {
		return m.attemptLogin(ctx, creds)
	})
	if err != nil {
		m.fail()
		var se *schemas.SessionError
		if errors.As(err, &se) {
			return se
		}
		return schemas.NewSessionError(schemas.CodeAuthenticationFailed,
			fmt.Sprintf("login did not succeed after %d retries", retries), err)
	}

	m.dismissPrompts(ctx)
	m.setAuthenticated(false)
	m.persistJar(ctx)

	m.logger.Info("Login complete.", zap.Int("retries", retries))
	return nil
}

// Handle returns the driver for action execution, only while
// Authenticated.
func (m *Manager) Handle() (browser.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != schemas.StateAuthenticated {
		return nil, schemas.NewSessionError(schemas.CodeSessionNotReady,
			fmt.Sprintf("session state is %s", m.state), nil)
	}
	return m.driver, nil
}

// Invalidate drops an authenticated session to AuthFailed. The action layer
// calls this when a challenge or suspension appears mid-session; every
// subsequent Handle fails until a human resolves it and a fresh manager
// re-inits.
func (m *Manager) Invalidate(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == schemas.StateClosed {
		return
	}
	m.logger.Warn("Session invalidated.", zap.String("reason", reason))
	m.state = schemas.StateAuthFailed
	m.info.State = schemas.StateAuthFailed
}

// Close releases the browser. Safe on every path, including after a failed
// Init, and idempotent. An authenticated session flushes its jar one last
// time so cookies rotated during the run survive for the next restore.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	alreadyClosed := m.state == schemas.StateClosed
	wasAuthenticated := m.state == schemas.StateAuthenticated
	m.state = schemas.StateClosed
	m.info.State = schemas.StateClosed
	m.mu.Unlock()

	if alreadyClosed {
		return nil
	}
	m.logger.Debug("Closing session.")

	if wasAuthenticated {
		// Close is usually reached through an interrupt, with ctx already
		// canceled; the flush runs on a detached context of its own.
		flushCtx, cancel := context.WithTimeout(browser.Detach(ctx), 10*time.Second)
		m.persistJar(flushCtx)
		cancel()
	}

	if err := m.driver.Close(ctx); err != nil {
		return fmt.Errorf("failed to close browser session: %w", err)
	}
	return nil
}

// tryRestore applies the stored jar and verifies it against an
// authenticated-only page. Every failure is a clean miss: the caller falls
// back to credential login.
func (m *Manager) tryRestore(ctx context.Context) bool {
	key := m.cfg.Account.ResolveJarKey()

	jar, err := m.store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, cookies.ErrNotFound) {
			m.logger.Warn("Cookie store load failed, falling back to login.", zap.Error(err))
		}
		return false
	}
	if jar.Empty() {
		return false
	}
	if jar.Account != "" && jar.Account != key {
		m.logger.Warn("Stored jar belongs to a different account, ignoring.",
			zap.String("jar_account", jar.Account))
		return false
	}

	if err := m.driver.SetCookies(ctx, jar); err != nil {
		m.logger.Warn("Failed to apply stored cookies.", zap.Error(err))
		return false
	}
	if err := m.driver.Navigate(ctx, instagram.HomeURL); err != nil {
		m.logger.Warn("Verification navigation failed.", zap.Error(err))
		return false
	}

	loggedIn, err := instagram.LoggedIn(ctx, m.driver)
	if err != nil {
		m.logger.Warn("Session verification probe failed.", zap.Error(err))
		return false
	}
	if !loggedIn {
		m.logger.Info("Stored session no longer valid, falling back to login.")
		return false
	}

	m.logger.Info("Session restored from cookie jar.", zap.Int("cookies", len(jar.Cookies)))
	return true
}

// attemptLogin performs one full login attempt. SessionError returns are
// structural verdicts; plain errors are transient.
func (m *Manager) attemptLogin(ctx context.Context, creds schemas.Credential) error {
	if err := m.driver.Navigate(ctx, instagram.LoginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	if challenged, err := instagram.ChallengePresent(ctx, m.driver); err != nil {
		return fmt.Errorf("challenge probe failed: %w", err)
	} else if challenged {
		return schemas.NewSessionError(schemas.CodeChallengeRequired,
			"verification demanded before login", nil)
	}

	userSel, found, err := instagram.FirstExisting(ctx, m.driver, instagram.LoginUsernameInput)
	if err != nil || !found {
		return fmt.Errorf("login form did not render (found=%v): %w", found, err)
	}
	passSel, found, err := instagram.FirstExisting(ctx, m.driver, instagram.LoginPasswordInput)
	if err != nil || !found {
		return fmt.Errorf("password field did not render (found=%v): %w", found, err)
	}

	if err := m.driver.Type(ctx, userSel, creds.Username); err != nil {
		return fmt.Errorf("failed to enter username: %w", err)
	}
	if err := m.driver.Type(ctx, passSel, creds.Password); err != nil {
		return fmt.Errorf("failed to enter password: %w", err)
	}

	submitSel, found, err := instagram.FirstExisting(ctx, m.driver, instagram.LoginSubmitButton)
	if err != nil || !found {
		return fmt.Errorf("submit button did not render (found=%v): %w", found, err)
	}
	if err := m.driver.Click(ctx, submitSel); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	return m.awaitLoginOutcome(ctx)
}

// awaitLoginOutcome polls the page until one of the three verdicts appears
// or the action timeout elapses.
func (m *Manager) awaitLoginOutcome(ctx context.Context) error {
	timeout := m.cfg.Network.ActionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		if rejected, err := instagram.CredentialsRejected(ctx, m.driver); err == nil && rejected {
			return schemas.NewSessionError(schemas.CodeInvalidCredentials,
				"the site rejected the username/password pair", nil)
		}
		if challenged, err := instagram.ChallengePresent(ctx, m.driver); err == nil && challenged {
			return schemas.NewSessionError(schemas.CodeChallengeRequired,
				"verification demanded after submit", nil)
		}
		loggedIn, err := instagram.LoggedIn(ctx, m.driver)
		if err != nil {
			return fmt.Errorf("login outcome probe failed: %w", err)
		}
		if loggedIn {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("login outcome not settled within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
}

// dismissPrompts clears the save-login and notification interstitials. Best
// effort: a prompt that never appears is not an error.
func (m *Manager) dismissPrompts(ctx context.Context) {
	for i := 0; i < 2; i++ {
		clicked, err := instagram.ClickButtonWithText(ctx, m.driver,
			instagram.DismissPromptButtons[0], instagram.DismissPromptTexts)
		if err != nil || !clicked {
			return
		}
		m.logger.Debug("Dismissed post-login prompt.")
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.pollInterval):
		}
	}
}

// persistJar captures the live cookie set and saves it. A store failure is
// logged, not fatal: the session itself is healthy.
func (m *Manager) persistJar(ctx context.Context) {
	jar, err := m.driver.Cookies(ctx)
	if err != nil {
		m.logger.Warn("Failed to capture cookies for persistence.", zap.Error(err))
		return
	}
	if jar.Empty() {
		m.logger.Warn("Captured cookie jar is empty, not persisting.")
		return
	}
	key := m.cfg.Account.ResolveJarKey()
	if err := m.store.Save(ctx, key, jar); err != nil {
		m.logger.Warn("Failed to persist cookie jar.", zap.Error(err))
		return
	}
	m.logger.Debug("Cookie jar persisted.", zap.Int("cookies", len(jar.Cookies)))
}

func (m *Manager) setAuthenticated(restored bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = schemas.StateAuthenticated
	m.info.State = schemas.StateAuthenticated
	m.info.RestoredFromJar = restored
}

func (m *Manager) fail() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = schemas.StateAuthFailed
	m.info.State = schemas.StateAuthFailed
}
