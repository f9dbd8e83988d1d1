package crawler

import (
	"context"
	"time"

	"sjsage522/pricewatch/helpers"
)

// Identity is the browser fingerprint presented for one page session.
type Identity struct {
	UserAgent string
	Width     int
	Height    int
	Headers   map[string]string
}

// NewIdentity picks a random desktop user agent with a 1920x1080 viewport.
func NewIdentity() Identity {
	return Identity{
		UserAgent: helpers.RandomUserAgent(),
		Width:     1920,
		Height:    1080,
		Headers:   helpers.BrowserHeaders(),
	}
}

// Browser is a running browser session shared by one fleet run.
type Browser interface {
	NewPage(ctx context.Context, id Identity) (Page, error)
	Close() error
}

// Page is a single isolated page. Deadlines come from the context.
type Page interface {
	// Navigate loads url and returns the HTTP status of the main document.
	Navigate(ctx context.Context, url string) (int, error)
	// WaitVisible blocks until selector matches a visible element.
	WaitVisible(ctx context.Context, selector string) error
	ScrollBy(ctx context.Context, dy int) error
	// Text returns the text content of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)
	Close() error
}

// Launcher starts a Browser.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (Browser, error)

// Launch calls f
func (f LauncherFunc) Launch(ctx context.Context) (Browser, error) {
	return f(ctx)
}

// SleepFunc waits for d unless ctx ends first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// JitterFunc returns a random duration in [min, max].
type JitterFunc func(min, max time.Duration) time.Duration
