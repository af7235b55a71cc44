package schemas

import (
	"errors"
	"fmt"
)

// SessionErrorCode classifies failures of session establishment and access.
// Using a custom type ensures only predefined constants can be used where a
// code is expected.
type SessionErrorCode string

const (
	// CodeAuthenticationFailed covers login flows that exhausted their
	// retry budget on network or timing failures without a structural
	// verdict.
	CodeAuthenticationFailed SessionErrorCode = "AUTHENTICATION_FAILED"
	// CodeInvalidCredentials is terminal: the site explicitly rejected the
	// username/password pair. Retrying burns the account.
	CodeInvalidCredentials SessionErrorCode = "INVALID_CREDENTIALS"
	// CodeChallengeRequired is terminal for the process: the site demands a
	// verification step only a human can complete.
	CodeChallengeRequired SessionErrorCode = "CHALLENGE_REQUIRED"
	// CodeSessionNotReady gates every action: the session is not in the
	// Authenticated state.
	CodeSessionNotReady SessionErrorCode = "SESSION_NOT_READY"
)

// ActionErrorCode classifies failures of individual actions.
type ActionErrorCode string

const (
	// CodeTargetNotFound means the handle, post, or on-page element could
	// not be resolved within its bounded wait. Never retried; the target is
	// assumed private, deleted, or renamed.
	CodeTargetNotFound ActionErrorCode = "TARGET_NOT_FOUND"
	// CodeTransientFailure means the bounded retry budget was exhausted on
	// timing/network failures that were each individually retryable.
	CodeTransientFailure ActionErrorCode = "TRANSIENT_FAILURE"
	// CodeBlockedOrRateLimited means the site signalled automated-traffic
	// suppression. The caller should halt further actions on the account.
	CodeBlockedOrRateLimited ActionErrorCode = "BLOCKED_OR_RATE_LIMITED"
	// CodeCommentGenerationFailed means the text-generation collaborator
	// failed; the comment action aborts without posting anything.
	CodeCommentGenerationFailed ActionErrorCode = "COMMENT_GENERATION_FAILED"
)

// SessionError is the typed error surfaced by the session manager and by
// the facade's action gate.
type SessionError struct {
	Code   SessionErrorCode
	Reason string
	Cause  error
}

func (e *SessionError) Error() string {
	if e.Reason == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// Unwrap exposes the underlying cause to errors.Is/errors.As chains.
func (e *SessionError) Unwrap() error { return e.Cause }

// NewSessionError builds a SessionError. Cause may be nil for structural
// failures that have no underlying error.
func NewSessionError(code SessionErrorCode, reason string, cause error) *SessionError {
	return &SessionError{Code: code, Reason: reason, Cause: cause}
}

// ActionError is the typed error surfaced by executor operations.
type ActionError struct {
	Code ActionErrorCode
	// Detail mirrors ActionResult.Detail for callers that work from the
	// error alone.
	Detail string
	// Retries is the number of retry attempts consumed before surfacing.
	Retries int
	Cause   error
}

func (e *ActionError) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Unwrap exposes the underlying cause to errors.Is/errors.As chains.
func (e *ActionError) Unwrap() error { return e.Cause }

// NewActionError builds an ActionError.
func NewActionError(code ActionErrorCode, detail string, cause error) *ActionError {
	return &ActionError{Code: code, Detail: detail, Cause: cause}
}

// SessionCode extracts the SessionErrorCode from err, unwrapping as needed.
// The second return is false when err carries no SessionError.
func SessionCode(err error) (SessionErrorCode, bool) {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return "", false
}

// ActionCode extracts the ActionErrorCode from err, unwrapping as needed.
func ActionCode(err error) (ActionErrorCode, bool) {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Code, true
	}
	return "", false
}

// IsBlocked reports whether err (or anything it wraps) is the block/rate
// limit signal. Exposed because this one code doubles as an account-level
// circuit breaker for callers.
func IsBlocked(err error) bool {
	code, ok := ActionCode(err)
	return ok && code == CodeBlockedOrRateLimited
}
