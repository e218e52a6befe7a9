// Package verifytest provides an in-memory converter page for testing code built on
// verify.Driver without a browser.
package verifytest

import (
	"context"
	"fmt"
	"go-currency-converter-e2e/domain"
	"go-currency-converter-e2e/verify"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultWaitTimeout bounds WaitVisible on an element that is not shown
const DefaultWaitTimeout = 200 * time.Millisecond

// Driver simulates the converter page behind verify.DefaultSelectors.
// It is safe for concurrent use, though a page is normally driven by one scenario.
type Driver struct {
	// Base the page url the conversion locations are built on
	Base string

	// Rates the table the page converts with, relative to any base
	Rates domain.Rates

	// Skew multiplies every displayed result, 1 when zero. Used to simulate a page that
	// disagrees with the rate provider.
	Skew float64

	// Format renders a displayed result, defaults to "%.6f <code>"
	Format func(value float64, to domain.Currency) string

	// Options the entries of the currency list
	Options []string

	// WaitTimeout how long WaitVisible waits for an element that is not shown,
	// DefaultWaitTimeout when zero. Nothing on the fake page appears later.
	WaitTimeout time.Duration

	// Fail makes Click, Fill, Text and WaitVisible on a selector return the error
	Fail map[string]error

	lock      sync.Mutex
	selectors verify.Selectors
	cookies   bool
	amount    string
	from      domain.Currency
	to        domain.Currency
	open      *verify.Slot
	converted bool
	location  string
	calls     []string
}

// NewDriver returns a page showing the consent prompt, converting 1 USD to EUR.
func NewDriver(base string, rates domain.Rates) *Driver {
	return &Driver{
		Base:      base,
		Rates:     rates,
		Fail:      map[string]error{},
		selectors: verify.DefaultSelectors(),
		cookies:   true,
		amount:    "1",
		from:      "USD",
		to:        "EUR",
	}
}

// Calls the driver methods invoked so far, as "method selector" strings.
func (d *Driver) Calls() []string {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]string(nil), d.calls...)
}

// State the amount text and currencies currently on the page.
func (d *Driver) State() (amount string, from domain.Currency, to domain.Currency) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.amount, d.from, d.to
}

func (d *Driver) record(method, selector string) error {
	d.calls = append(d.calls, strings.TrimSpace(method+" "+selector))
	return d.Fail[selector]
}

func (d *Driver) Navigate(_ context.Context, rawURL string) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.record("navigate", rawURL); err != nil {
		return err
	}
	d.location = rawURL
	d.converted = false
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	q := u.Query()
	if q.Has("Amount") && q.Has("From") && q.Has("To") {
		d.amount = q.Get("Amount")
		d.from = domain.Currency(q.Get("From"))
		d.to = domain.Currency(q.Get("To"))
		d.converted = true
	}
	return nil
}

func (d *Driver) Click(_ context.Context, selector string) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.record("click", selector); err != nil {
		return err
	}

	switch selector {
	case d.selectors.AcceptCookies:
		if !d.cookies {
			return fmt.Errorf("element not visible: %s", selector)
		}
		d.cookies = false
		return nil
	case d.selectors.FromCurrency:
		slot := verify.From
		d.open = &slot
		return nil
	case d.selectors.ToCurrency:
		slot := verify.To
		d.open = &slot
		return nil
	case d.selectors.Convert:
		if d.invalidAmount() != "" {
			return nil
		}
		d.converted = true
		d.updateLocation()
		return nil
	case d.selectors.Swap:
		d.from, d.to = d.to, d.from
		d.updateLocation()
		return nil
	}

	for code := range d.Rates {
		if selector != fmt.Sprintf(d.selectors.CurrencyOption, code) {
			continue
		}
		if d.open == nil {
			return fmt.Errorf("currency list closed: %s", selector)
		}
		if *d.open == verify.From {
			d.from = code
		} else {
			d.to = code
		}
		d.open = nil
		d.updateLocation()
		return nil
	}
	return fmt.Errorf("no element: %s", selector)
}

func (d *Driver) Fill(_ context.Context, selector string, text string) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.record("fill", selector); err != nil {
		return err
	}
	if selector != d.selectors.Amount {
		return fmt.Errorf("not an input: %s", selector)
	}
	d.amount = text
	return nil
}

func (d *Driver) Text(_ context.Context, selector string) (string, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.record("text", selector); err != nil {
		return "", err
	}

	switch selector {
	case d.selectors.Result:
		if !d.converted {
			return "", fmt.Errorf("no result shown")
		}
		return d.result()
	case d.selectors.AmountError:
		message := d.invalidAmount()
		if message == "" {
			return "", fmt.Errorf("no error shown")
		}
		return message, nil
	}
	return "", fmt.Errorf("no element: %s", selector)
}

func (d *Driver) WaitVisible(ctx context.Context, selector string) error {
	d.lock.Lock()
	if err := d.record("wait", selector); err != nil {
		d.lock.Unlock()
		return err
	}
	visible := d.visible(selector)
	d.lock.Unlock()

	if visible {
		return nil
	}
	wait := d.WaitTimeout
	if wait == 0 {
		wait = DefaultWaitTimeout
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("waiting for %s: %w", selector, context.DeadlineExceeded)
	}
}

func (d *Driver) Location(_ context.Context) (string, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.location, nil
}

func (d *Driver) Visible(_ context.Context, selector string) (bool, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.visible(selector), nil
}

func (d *Driver) Texts(_ context.Context, selector string) ([]string, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if err := d.record("texts", selector); err != nil {
		return nil, err
	}
	if selector != d.selectors.FromCurrencyOptions || d.open == nil {
		return nil, nil
	}
	return append([]string(nil), d.Options...), nil
}

func (d *Driver) visible(selector string) bool {
	switch selector {
	case d.selectors.AcceptCookies:
		return d.cookies
	case d.selectors.Result:
		return d.converted
	case d.selectors.AmountError:
		return d.invalidAmount() != ""
	case d.selectors.FromCurrencyOptions:
		return d.open != nil && *d.open == verify.From
	}
	return false
}

// invalidAmount the message the page shows for the typed amount, empty when accepted
func (d *Driver) invalidAmount() string {
	f, err := strconv.ParseFloat(d.amount, 64)
	switch {
	case err != nil || math.IsNaN(f) || math.IsInf(f, 0):
		return domain.MessageInvalidAmount
	case f < 0.005:
		return domain.MessageAmountTooSmall
	}
	return ""
}

func (d *Driver) result() (string, error) {
	f, _ := strconv.ParseFloat(d.amount, 64)
	if f < 0.01 {
		f = 0.01
	}
	if f > 1e16 {
		f = 1e16
	}
	fromRate, ok := d.Rates[d.from]
	if !ok {
		return "", fmt.Errorf("unknown currency %v", d.from)
	}
	toRate, ok := d.Rates[d.to]
	if !ok {
		return "", fmt.Errorf("unknown currency %v", d.to)
	}
	value := f * float64(toRate) / float64(fromRate)
	if d.Skew != 0 {
		value *= d.Skew
	}
	if d.Format != nil {
		return d.Format(value, d.to), nil
	}
	return fmt.Sprintf("%.6f %s", value, d.to), nil
}

func (d *Driver) updateLocation() {
	if !d.converted {
		return
	}
	d.location = fmt.Sprintf("%s/convert/?Amount=%s&From=%s&To=%s", strings.TrimSuffix(d.Base, "/"), d.amount, d.from, d.to)
}
