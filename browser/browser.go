package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Options for starting Chrome and bounding driver operations
type Options struct {
	Headless     bool
	ChromeBinary string

	// ActionTimeout bounds every driver operation but navigation
	ActionTimeout time.Duration

	// NavigateTimeout bounds navigation
	NavigateTimeout time.Duration
}

// Browser a running Chrome instance handing out isolated sessions
type Browser struct {
	options Options
	logger  log.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// Start launches Chrome. Close must be called to stop it.
func Start(options Options, logger log.Logger) (*Browser, error) {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	if options.Headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if options.ChromeBinary != "" {
		opts = append(opts, chromedp.ExecPath(options.ChromeBinary))
	}
	opts = append(opts,
		chromedp.WindowSize(1366, 900),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", ""),
		chromedp.Flag("no-first-run", ""),
		chromedp.Flag("no-default-browser-check", ""),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	level.Debug(logger).Log("msg", "starting chrome", "headless", options.Headless, "binary", options.ChromeBinary)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}
	level.Info(logger).Log("msg", "chrome started", "headless", options.Headless)

	return &Browser{
		options:       options,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// NewSession opens a tab in a fresh browser context: no cookies or storage are shared with
// other sessions. The returned cancel func closes the tab.
func (b *Browser) NewSession() (*Driver, context.CancelFunc, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx, chromedp.WithNewBrowserContext())
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("open session: %w", err)
	}
	return NewDriver(tabCtx, b.options), cancel, nil
}

// Close stops Chrome
func (b *Browser) Close() {
	b.browserCancel()
	b.allocCancel()
	level.Info(b.logger).Log("msg", "chrome stopped")
}
