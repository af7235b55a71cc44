package browser

import (
	"context"
	"time"
)

// CombineContext creates a context derived from ctx1 (the session context,
// carrying CDP connection values) that is canceled when either ctx1 or ctx2
// (the operational context carrying the caller's deadline) is canceled.
// chromedp operations must always run on a context that inherits the
// session's values, so the operational deadline cannot simply be passed
// through.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}

// valueOnlyContext inherits all values from its parent but ignores the
// parent's deadline and cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context carrying ctx's values that outlives ctx's
// cancellation. Needed for cleanup operations on the CDP connection after
// the operation that triggered them has already been canceled.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
