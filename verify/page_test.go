package verify_test

import (
	"context"
	"errors"
	"go-currency-converter-e2e/domain"
	"go-currency-converter-e2e/verify"
	"go-currency-converter-e2e/verify/verifytest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "https://converter.example/currencyconverter"

var testRates = domain.Rates{
	"USD": 1.0,
	"EUR": 0.92,
	"GBP": 0.79,
	"TRY": 32.5,
}

func newPage(d verify.Driver) *verify.Page {
	page := verify.NewPage(d, verify.DefaultSelectors())
	page.CookieWait = 10 * time.Millisecond
	page.URLWait = 0
	return page
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		text    string
		want    float64
		wantErr bool
	}{
		{"92.00 Euros", 92, false},
		{"1,234,567.891 EUR", 1234567.891, false},
		{"9,200,000,000,000,000.00 Euros", 9.2e15, false},
		{"0.0092", 0.0092, false},
		{"-3.5", -3.5, false},
		{"92.1 - rate", 92.1, false},
		{"1.2.3", 1.2, false},
		{".5", 0.5, false},
		{"Euros", 0, true},
		{"", 0, true},
		{"-", 0, true},
		{"...", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := verify.ParseResult(tt.text)
			if tt.wantErr {
				var parseErr *domain.ResultParseError
				require.True(t, errors.As(err, &parseErr))
				assert.Equal(t, tt.text, parseErr.Text)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConversionURL(t *testing.T) {
	req := domain.Request{Amount: 100, From: "USD", To: "EUR"}

	assert.Equal(t, base+"/convert/?Amount=100&From=USD&To=EUR", verify.ConversionURL(base, req))
	assert.Equal(t, base+"/convert/?Amount=100&From=USD&To=EUR", verify.ConversionURL(base+"/", req))
	assert.Equal(t, base+"/convert/?Amount=10.5&From=TRY&To=GBP",
		verify.ConversionURL(base, domain.Request{Amount: 10.5, From: "TRY", To: "GBP"}))
}

func TestPage_AcceptCookiesIdempotent(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	page := newPage(d)
	ctx := context.Background()

	require.NoError(t, page.AcceptCookies(ctx))
	require.NoError(t, page.AcceptCookies(ctx))

	clicks := 0
	for _, c := range d.Calls() {
		if c == "click "+verify.DefaultSelectors().AcceptCookies {
			clicks++
		}
	}
	assert.Equal(t, 1, clicks)
}

func TestPage_AcceptCookiesCancelled(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	page := newPage(d)
	require.NoError(t, page.AcceptCookies(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, page.AcceptCookies(ctx), context.Canceled)
}

func TestPage_AcceptCookiesGoneDefaultWait(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	page := verify.NewPage(d, verify.DefaultSelectors())
	ctx := context.Background()

	require.NoError(t, page.AcceptCookies(ctx))
	require.NoError(t, page.AcceptCookies(ctx), "a prompt that never shows up counts as dismissed")
}

func TestPage_ResultNotShown(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	page := newPage(d)

	done := make(chan error, 1)
	go func() {
		_, err := page.Result(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "wait for result")
	case <-time.After(5 * time.Second):
		t.Fatal("Result did not return for a page without a result")
	}
}

func TestPage_EnterAmountClearsFirst(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	page := newPage(d)

	require.NoError(t, page.EnterAmount(context.Background(), 333333.33333))

	amount, _, _ := d.State()
	assert.Equal(t, "333333.33333", amount)
	sel := verify.DefaultSelectors().Amount
	assert.Equal(t, []string{"fill " + sel, "fill " + sel}, d.Calls())
}

func TestPage_SelectCurrency(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	page := newPage(d)
	ctx := context.Background()

	require.NoError(t, page.SelectCurrency(ctx, "TRY", verify.From))
	require.NoError(t, page.SelectCurrency(ctx, "GBP", verify.To))

	_, from, to := d.State()
	assert.Equal(t, domain.Currency("TRY"), from)
	assert.Equal(t, domain.Currency("GBP"), to)

	err := page.SelectCurrency(ctx, "x']|//a['", verify.From)
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)
}

func TestPage_ConvertAndSwap(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	page := newPage(d)
	ctx := context.Background()

	require.NoError(t, page.EnterAmount(ctx, 100))
	require.NoError(t, page.SelectCurrency(ctx, "USD", verify.From))
	require.NoError(t, page.SelectCurrency(ctx, "EUR", verify.To))
	require.NoError(t, page.Convert(ctx))

	got, err := page.Result(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 92.0, got, 1e-6)
	require.NoError(t, page.ExpectURL(ctx, base+"/convert/?Amount=100&From=USD&To=EUR"))

	require.NoError(t, page.Swap(ctx))
	got, err = page.Result(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 100/0.92, got, 1e-6)

	err = page.ExpectURL(ctx, base+"/convert/?Amount=100&From=USD&To=EUR")
	var urlErr *domain.URLMismatch
	require.True(t, errors.As(err, &urlErr))
	assert.Equal(t, base+"/convert/?Amount=100&From=EUR&To=USD", urlErr.Actual)
}

func TestPage_ResultParseError(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	d.Format = func(float64, domain.Currency) string { return "N/A" }
	page := newPage(d)
	ctx := context.Background()

	require.NoError(t, page.OpenConversion(ctx, base, domain.Request{Amount: 1, From: "USD", To: "EUR"}))

	_, err := page.Result(ctx)
	var parseErr *domain.ResultParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestPage_ErrorMessage(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	page := newPage(d)
	ctx := context.Background()

	require.NoError(t, page.EnterAmount(ctx, 10))
	visible, err := page.ErrorVisible(ctx)
	require.NoError(t, err)
	assert.False(t, visible)

	require.NoError(t, page.EnterAmount(ctx, -1))
	visible, err = page.ErrorVisible(ctx)
	require.NoError(t, err)
	assert.True(t, visible)

	message, err := page.ErrorMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Please enter an amount greater than 0", message)
}

func TestPage_CurrencyOptions(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	d.Options = []string{" USD US Dollar ", "EUR Euro", "GBP British Pound"}
	page := newPage(d)

	options, err := page.CurrencyOptions(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"USD US Dollar", "EUR Euro", "GBP British Pound"}, options)
}

func TestPage_DriverErrorsWrapped(t *testing.T) {
	boom := errors.New("node not found")
	d := verifytest.NewDriver(base, testRates)
	d.Fail[verify.DefaultSelectors().Convert] = boom
	page := newPage(d)

	err := page.Convert(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "convert")
}
