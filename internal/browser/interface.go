package browser

import (
	"context"
	"time"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
)

// Driver is the surface the session manager and action executor use to
// operate the browser. The concrete implementation is Session; tests
// substitute a scripted fake so no Chrome binary is ever required.
//
// Every method takes the caller's context and honors its deadline; drivers
// never block past the deadline of the context they were handed.
type Driver interface {
	// Navigate loads url and waits for the page to settle.
	Navigate(ctx context.Context, url string) error
	// Location reports the current page URL.
	Location(ctx context.Context) (string, error)

	// WaitVisible blocks until the selector matches a visible element or
	// the timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Exists reports whether the selector currently matches any element,
	// without waiting.
	Exists(ctx context.Context, selector string) (bool, error)

	// Click activates the first element matching the selector.
	Click(ctx context.Context, selector string) error
	// Type sends text to the element matching the selector, paced like a
	// human typist when pacing is enabled.
	Type(ctx context.Context, selector, text string) error
	// Upload attaches a local file to the file input matching the
	// selector.
	Upload(ctx context.Context, selector, path string) error

	// Evaluate runs the JavaScript expression and unmarshals its result
	// into out. out may be nil when the result is irrelevant.
	Evaluate(ctx context.Context, expr string, out any) error
	// Text returns the visible text of the first element matching the
	// selector.
	Text(ctx context.Context, selector string) (string, error)

	// Cookies captures the context's full cookie set.
	Cookies(ctx context.Context) (*schemas.CookieJar, error)
	// SetCookies applies a saved jar to the context.
	SetCookies(ctx context.Context, jar *schemas.CookieJar) error

	// Close releases the browser resource. Safe to call more than once
	// and after a failed start.
	Close(ctx context.Context) error
}
