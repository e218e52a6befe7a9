package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

// Driver implements verify.Driver on a chromedp tab.
// Selectors are resolved with DOM search, so CSS selectors and XPath expressions both work.
type Driver struct {
	tabCtx          context.Context
	actionTimeout   time.Duration
	navigateTimeout time.Duration
}

// NewDriver wraps a chromedp tab context
func NewDriver(tabCtx context.Context, options Options) *Driver {
	return &Driver{
		tabCtx:          tabCtx,
		actionTimeout:   options.ActionTimeout,
		navigateTimeout: options.NavigateTimeout,
	}
}

// run executes actions on the tab, bounded by timeout and cancelled together with ctx
func (d *Driver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var runCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(d.tabCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(d.tabCtx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, d.navigateTimeout, chromedp.Navigate(url))
}

func (d *Driver) Click(ctx context.Context, selector string) error {
	return d.run(ctx, d.actionTimeout, chromedp.Click(selector, chromedp.BySearch))
}

// Fill replaces the value of an input. The text is typed key by key so the page sees
// regular input events.
func (d *Driver) Fill(ctx context.Context, selector string, text string) error {
	actions := []chromedp.Action{
		chromedp.WaitVisible(selector, chromedp.BySearch),
		chromedp.Clear(selector, chromedp.BySearch),
	}
	if text != "" {
		actions = append(actions, chromedp.SendKeys(selector, text, chromedp.BySearch))
	}
	return d.run(ctx, d.actionTimeout, actions...)
}

func (d *Driver) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := d.run(ctx, d.actionTimeout, chromedp.Text(selector, &text, chromedp.BySearch))
	return text, err
}

func (d *Driver) WaitVisible(ctx context.Context, selector string) error {
	return d.run(ctx, d.actionTimeout, chromedp.WaitVisible(selector, chromedp.BySearch))
}

func (d *Driver) Location(ctx context.Context) (string, error) {
	var location string
	err := d.run(ctx, d.actionTimeout, chromedp.Location(&location))
	return location, err
}

// Visible checks the first match only, and does not wait for it to appear.
func (d *Driver) Visible(ctx context.Context, selector string) (bool, error) {
	var visible bool
	err := d.run(ctx, d.actionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(selector, &nodes, chromedp.BySearch, chromedp.AtLeast(0)).Do(ctx); err != nil {
			return err
		}
		if len(nodes) == 0 {
			return nil
		}
		// nodes without a box model are not rendered
		_, err := dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
		visible = err == nil
		return nil
	}))
	return visible, err
}

func (d *Driver) Texts(ctx context.Context, selector string) ([]string, error) {
	var texts []string
	err := d.run(ctx, d.actionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(selector, &nodes, chromedp.BySearch).Do(ctx); err != nil {
			return fmt.Errorf("query %s: %w", selector, err)
		}
		for _, n := range nodes {
			var text string
			if err := chromedp.Text([]cdp.NodeID{n.NodeID}, &text, chromedp.ByNodeID).Do(ctx); err != nil {
				return fmt.Errorf("text of %s: %w", selector, err)
			}
			texts = append(texts, text)
		}
		return nil
	}))
	return texts, err
}
