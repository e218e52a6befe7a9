package verify

import (
	"context"
	"errors"
	"fmt"
	"go-currency-converter-e2e/domain"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Driver browser automation primitives the page object is built on.
// Selectors are CSS selectors or XPath expressions.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector string, text string) error
	Text(ctx context.Context, selector string) (string, error)
	WaitVisible(ctx context.Context, selector string) error
	Location(ctx context.Context) (string, error)

	// Visible reports whether selector currently matches a visible element, without waiting.
	Visible(ctx context.Context, selector string) (bool, error)

	// Texts returns the text of every element matching selector, in document order.
	Texts(ctx context.Context, selector string) ([]string, error)
}

// Selectors locate the converter page elements.
type Selectors struct {
	Amount        string
	FromCurrency  string
	ToCurrency    string
	Convert       string
	Result        string
	AcceptCookies string
	Swap          string
	AmountError   string

	// CurrencyOption is a format string, %s is replaced by the currency code
	CurrencyOption string

	// FromCurrencyOptions matches every entry of the opened "from" list
	FromCurrencyOptions string
}

// DefaultSelectors locators of the live converter page.
func DefaultSelectors() Selectors {
	return Selectors{
		Amount:              "#amount",
		FromCurrency:        "input[aria-describedby='midmarketFromCurrency-current-selection']",
		ToCurrency:          "input[aria-describedby='midmarketToCurrency-current-selection']",
		Convert:             `//button[normalize-space()="Convert"]`,
		Result:              ".sc-63d8b7e3-1.bMdPIi",
		AcceptCookies:       "//button[normalize-space()='Accept']",
		Swap:                "button[aria-label='Swap currencies']",
		AmountError:         ".sc-52d95371-0.fkpUOL.relative.top-1",
		CurrencyOption:      "//div[@class='flex' and contains(normalize-space(), '%s')]",
		FromCurrencyOptions: `#midmarketFromCurrency-listbox li[role="option"]`,
	}
}

// Slot which of the two currency selectors
type Slot int

const (
	From Slot = iota
	To
)

func (s Slot) String() string {
	if s == From {
		return "from"
	}
	return "to"
}

const (
	// DefaultCookieWait how long AcceptCookies waits for the consent prompt
	DefaultCookieWait = 5 * time.Second

	// DefaultURLWait how long ExpectURL waits for the location to settle
	DefaultURLWait = 5 * time.Second

	urlPollInterval = 100 * time.Millisecond
)

// Page the converter page object
type Page struct {
	driver    Driver
	selectors Selectors

	// CookieWait bounds the wait for the consent prompt. A prompt that does not show up
	// within it is treated as already dismissed.
	CookieWait time.Duration

	// URLWait bounds how long ExpectURL polls the location
	URLWait time.Duration
}

// NewPage constructs a valid Page
func NewPage(driver Driver, selectors Selectors) *Page {
	return &Page{
		driver:     driver,
		selectors:  selectors,
		CookieWait: DefaultCookieWait,
		URLWait:    DefaultURLWait,
	}
}

// ConversionURL the page location that encodes req, e.g. <base>/convert/?Amount=100&From=USD&To=EUR
func ConversionURL(base string, req domain.Request) string {
	q := url.Values{}
	q.Set("Amount", FormatAmount(req.Amount))
	q.Set("From", string(req.From))
	q.Set("To", string(req.To))
	return strings.TrimSuffix(base, "/") + "/convert/?" + q.Encode()
}

// Open navigates to url
func (p *Page) Open(ctx context.Context, url string) error {
	if err := p.driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("open %v: %w", url, err)
	}
	return nil
}

// OpenConversion navigates straight to the conversion of req through the query string.
func (p *Page) OpenConversion(ctx context.Context, base string, req domain.Request) error {
	return p.Open(ctx, ConversionURL(base, req))
}

// AcceptCookies dismisses the consent prompt. Safe to call when it is already gone.
func (p *Page) AcceptCookies(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, p.CookieWait)
	defer cancel()

	if err := p.driver.WaitVisible(waitCtx, p.selectors.AcceptCookies); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return fmt.Errorf("accept cookies: %w", err)
	}
	if err := p.driver.Click(ctx, p.selectors.AcceptCookies); err != nil {
		return fmt.Errorf("accept cookies: %w", err)
	}
	return nil
}

// EnterAmount clears the amount input and types amount as is.
func (p *Page) EnterAmount(ctx context.Context, amount domain.Amount) error {
	if err := p.driver.Fill(ctx, p.selectors.Amount, ""); err != nil {
		return fmt.Errorf("clear amount: %w", err)
	}
	if err := p.driver.Fill(ctx, p.selectors.Amount, FormatAmount(amount)); err != nil {
		return fmt.Errorf("enter amount: %w", err)
	}
	return nil
}

// SelectCurrency opens the selector for slot and picks the entry containing code.
func (p *Page) SelectCurrency(ctx context.Context, code domain.Currency, slot Slot) error {
	if !code.Valid() {
		return fmt.Errorf("select %v currency: %w: %q", slot, domain.ErrInvalidCurrency, string(code))
	}
	dropdown := p.selectors.FromCurrency
	if slot == To {
		dropdown = p.selectors.ToCurrency
	}
	if err := p.driver.Click(ctx, dropdown); err != nil {
		return fmt.Errorf("open %v currency: %w", slot, err)
	}
	if err := p.driver.Click(ctx, fmt.Sprintf(p.selectors.CurrencyOption, code)); err != nil {
		return fmt.Errorf("select %v currency %v: %w", slot, code, err)
	}
	return nil
}

// Convert triggers the conversion
func (p *Page) Convert(ctx context.Context) error {
	if err := p.driver.Click(ctx, p.selectors.Convert); err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	return nil
}

// Swap exchanges the from and to currencies in place
func (p *Page) Swap(ctx context.Context) error {
	if err := p.driver.Click(ctx, p.selectors.Swap); err != nil {
		return fmt.Errorf("swap: %w", err)
	}
	return nil
}

// Result waits for the displayed result and parses it.
func (p *Page) Result(ctx context.Context) (float64, error) {
	if err := p.driver.WaitVisible(ctx, p.selectors.Result); err != nil {
		return 0, fmt.Errorf("wait for result: %w", err)
	}
	text, err := p.driver.Text(ctx, p.selectors.Result)
	if err != nil {
		return 0, fmt.Errorf("read result: %w", err)
	}
	return ParseResult(text)
}

// ErrorMessage waits for the amount error and returns its text.
func (p *Page) ErrorMessage(ctx context.Context) (string, error) {
	if err := p.driver.WaitVisible(ctx, p.selectors.AmountError); err != nil {
		return "", fmt.Errorf("wait for amount error: %w", err)
	}
	text, err := p.driver.Text(ctx, p.selectors.AmountError)
	if err != nil {
		return "", fmt.Errorf("read amount error: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// ErrorVisible reports whether the amount error is shown right now.
func (p *Page) ErrorVisible(ctx context.Context) (bool, error) {
	visible, err := p.driver.Visible(ctx, p.selectors.AmountError)
	if err != nil {
		return false, fmt.Errorf("amount error visibility: %w", err)
	}
	return visible, nil
}

// CurrentURL the page location
func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	location, err := p.driver.Location(ctx)
	if err != nil {
		return "", fmt.Errorf("location: %w", err)
	}
	return location, nil
}

// ExpectURL fails with *domain.URLMismatch unless the page location equals want exactly
// within URLWait. The page rewrites its location asynchronously after a change.
func (p *Page) ExpectURL(ctx context.Context, want string) error {
	deadline := time.Now().Add(p.URLWait)
	for {
		got, err := p.CurrentURL(ctx)
		if err != nil {
			return err
		}
		if got == want {
			return nil
		}
		if !time.Now().Before(deadline) {
			return &domain.URLMismatch{Actual: got, Expected: want}
		}
		select {
		case <-time.After(urlPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// CurrencyOptions opens the "from" selector and lists its entries.
func (p *Page) CurrencyOptions(ctx context.Context) ([]string, error) {
	if err := p.driver.Click(ctx, p.selectors.FromCurrency); err != nil {
		return nil, fmt.Errorf("open from currency: %w", err)
	}
	if err := p.driver.WaitVisible(ctx, p.selectors.FromCurrencyOptions); err != nil {
		return nil, fmt.Errorf("wait for currency list: %w", err)
	}
	texts, err := p.driver.Texts(ctx, p.selectors.FromCurrencyOptions)
	if err != nil {
		return nil, fmt.Errorf("read currency list: %w", err)
	}
	options := make([]string, 0, len(texts))
	for _, t := range texts {
		options = append(options, strings.TrimSpace(t))
	}
	return options, nil
}

var (
	nonNumeric    = regexp.MustCompile(`[^0-9.\-]+`)
	leadingNumber = regexp.MustCompile(`^-?(?:[0-9]+\.?[0-9]*|\.[0-9]+)`)
)

// ParseResult strips every character but digits, '.' and '-' from text and parses the
// leading number of what is left. Trailing garbage after the number is ignored.
func ParseResult(text string) (float64, error) {
	clean := nonNumeric.ReplaceAllString(text, "")
	number := leadingNumber.FindString(clean)
	if number == "" {
		return 0, &domain.ResultParseError{Text: text}
	}
	f, err := strconv.ParseFloat(number, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, &domain.ResultParseError{Text: text}
	}
	return f, nil
}
