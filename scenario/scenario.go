package scenario

import (
	"context"
	"fmt"
	"go-currency-converter-e2e/domain"
	"go-currency-converter-e2e/verify"
	"math"
)

// Env what a scenario runs against: one page in its own browser session.
type Env struct {
	// PageURL base url of the converter page
	PageURL string

	Page     *verify.Page
	Verifier verify.Service
}

// Scenario one end-to-end check of the converter page
type Scenario struct {
	Name string

	// PinRates judges every verification of the scenario against a single rate table
	PinRates bool

	Run func(ctx context.Context, env Env) error
}

// PopularCurrencies the entries the currency list shows first, in any order
var PopularCurrencies = []string{
	"USD US Dollar",
	"EUR Euro",
	"GBP British Pound",
	"CAD Canadian Dollar",
	"AUD Australian Dollar",
}

// ConvertAmounts the amounts converted from USD to EUR by the convert-amount scenarios
var ConvertAmounts = []domain.Amount{10, 10.5, 0.5, 100.5, 1000, 333333.33333, 500000000}

// All the scenarios of the suite, in run order
func All() []Scenario {
	all := []Scenario{
		{Name: "convert-and-swap", PinRates: true, Run: convertAndSwap},
	}
	for _, amount := range ConvertAmounts {
		all = append(all, convertAmount(amount))
	}
	return append(all,
		rejected("negative-amount", -1),
		rejected("below-minimum", 0.0041),
		rejected("non-numeric", domain.Amount(math.NaN())),
		Scenario{Name: "query-string", Run: queryString},
		Scenario{Name: "dropdown-order", Run: dropdownOrder},
		Scenario{Name: "uri-updates", Run: uriUpdates},
	)
}

// convertAndSwap converts an amount beyond the page maximum, then swaps the currencies.
func convertAndSwap(ctx context.Context, env Env) error {
	outcome, err := env.Verifier.Verify(ctx, domain.Request{Amount: 9999999999999999, From: "TRY", To: "EUR"})
	if err != nil {
		return err
	}
	_, err = env.Verifier.VerifySwap(ctx, outcome)
	return err
}

func convertAmount(amount domain.Amount) Scenario {
	return Scenario{
		Name: "convert-amount-" + verify.FormatAmount(amount),
		Run: func(ctx context.Context, env Env) error {
			_, err := env.Verifier.Verify(ctx, domain.Request{Amount: amount, From: "USD", To: "EUR"})
			return err
		},
	}
}

// rejected checks the page refuses amount with the matching message
func rejected(name string, amount domain.Amount) Scenario {
	return Scenario{
		Name: name,
		Run: func(ctx context.Context, env Env) error {
			outcome, err := env.Verifier.Verify(ctx, domain.Request{Amount: amount, From: "USD", To: "EUR"})
			if err != nil {
				return err
			}
			if !outcome.Rejected() {
				return fmt.Errorf("amount %v was converted, expected a rejection", verify.FormatAmount(amount))
			}
			return nil
		},
	}
}

func queryString(ctx context.Context, env Env) error {
	req := domain.Request{Amount: 100, From: "USD", To: "EUR"}
	if err := env.Page.OpenConversion(ctx, env.PageURL, req); err != nil {
		return err
	}
	_, err := env.Verifier.VerifyDisplayed(ctx, req)
	return err
}

func dropdownOrder(ctx context.Context, env Env) error {
	if err := env.Page.AcceptCookies(ctx); err != nil {
		return err
	}
	options, err := env.Page.CurrencyOptions(ctx)
	if err != nil {
		return err
	}
	return CheckCurrencyOrder(options)
}

// uriUpdates checks the location tracks the conversion, then a change of both currencies.
func uriUpdates(ctx context.Context, env Env) error {
	req := domain.Request{Amount: 100, From: "USD", To: "EUR"}

	if err := env.Page.AcceptCookies(ctx); err != nil {
		return err
	}
	if err := env.Page.EnterAmount(ctx, req.Amount); err != nil {
		return err
	}
	if err := env.Page.SelectCurrency(ctx, req.From, verify.From); err != nil {
		return err
	}
	if err := env.Page.SelectCurrency(ctx, req.To, verify.To); err != nil {
		return err
	}
	if err := env.Page.Convert(ctx); err != nil {
		return err
	}
	if _, err := env.Page.Result(ctx); err != nil {
		return err
	}
	if err := env.Page.ExpectURL(ctx, verify.ConversionURL(env.PageURL, req)); err != nil {
		return err
	}

	req.From, req.To = "TRY", "GBP"
	if err := env.Page.SelectCurrency(ctx, req.From, verify.From); err != nil {
		return err
	}
	if err := env.Page.SelectCurrency(ctx, req.To, verify.To); err != nil {
		return err
	}
	return env.Page.ExpectURL(ctx, verify.ConversionURL(env.PageURL, req))
}

// CheckCurrencyOrder fails with *domain.OrderMismatch unless every popular currency is
// among the first five options and the options after them are sorted.
func CheckCurrencyOrder(options []string) error {
	n := len(PopularCurrencies)
	if len(options) < n {
		return &domain.OrderMismatch{Reason: fmt.Sprintf("%d options listed, want at least %d", len(options), n)}
	}

	head := map[string]bool{}
	for _, o := range options[:n] {
		head[o] = true
	}
	for _, popular := range PopularCurrencies {
		if !head[popular] {
			return &domain.OrderMismatch{Reason: fmt.Sprintf("%q not among the first %d options", popular, n)}
		}
	}

	rest := options[n:]
	for i := 1; i < len(rest); i++ {
		if rest[i] < rest[i-1] {
			return &domain.OrderMismatch{Reason: fmt.Sprintf("%q listed before %q", rest[i-1], rest[i])}
		}
	}
	return nil
}
