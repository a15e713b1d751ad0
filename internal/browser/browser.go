package browser

import (
	"context"
	"time"

	"github.com/v0xg/webnav/internal/extract"
	"github.com/v0xg/webnav/internal/session"
)

// Pool hands out fresh pages from a shared browser process. Implementations
// must be safe for concurrent use; each caller owns the page it receives.
type Pool interface {
	Page(ctx context.Context) (Page, error)
	Close() error
}

// Page is the surface the step executor drives. Timeouts are per operation;
// there is no plan-level deadline.
type Page interface {
	Navigate(url string) error
	SetViewport(width, height int) error
	SetUserAgent(ua string) error
	SetCookies(cookies []session.Cookie) error
	Cookies() ([]session.Cookie, error)

	WaitVisible(selector string, timeout time.Duration) error
	// WaitIdle waits for network traffic to settle. A timeout is reported as
	// an error so callers can apply their documented treat-as-non-fatal
	// policy instead of silently swallowing it.
	WaitIdle(timeout time.Duration) error
	// WaitNavigation returns a waiter to invoke after triggering a
	// navigation. The waiter returns when the navigation settles or the
	// timeout elapses, whichever is first.
	WaitNavigation(timeout time.Duration) func()

	Click(selector string, timeout time.Duration) error
	Type(selector, value string, timeout time.Duration) error
	Select(selector, value string, timeout time.Duration) error
	ScrollBottom() error

	Text(selector string, timeout time.Duration) (string, error)
	InputValue(selector string, timeout time.Duration) (string, error)
	ListItems(selector string, limit int) ([]extract.Item, error)
	TableRows(selector string, limit int) ([][]string, error)
	Links(selector string) ([]extract.Link, error)
	Has(selector string) (bool, error)

	// OpenSibling opens a new page in the same browser process, for
	// drill-down visits that share authentication state.
	OpenSibling(ctx context.Context) (Page, error)
	Close() error
}
