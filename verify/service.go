package verify

import (
	"context"
	"errors"
	"fmt"
	"go-currency-converter-e2e/domain"
	"go-currency-converter-e2e/oracle"
)

// Service verifies conversions shown by the converter page against the rate oracle
type Service interface {
	// Verify drives the page through one conversion of req and judges the result.
	// Amounts the page must refuse yield an Outcome with Rejection set instead, accepted
	// amounts must not show an amount error.
	Verify(ctx context.Context, req domain.Request) (domain.Outcome, error)

	// VerifySwap swaps the currencies of the conversion that produced prev and judges
	// the reverse result, without entering the amount again. It fails when the oracle no
	// longer gives the rate prev was judged with.
	VerifySwap(ctx context.Context, prev domain.Outcome) (domain.Outcome, error)

	// VerifyDisplayed judges the result currently on the page against req, without
	// driving any input. Used after opening a conversion through the query string.
	VerifyDisplayed(ctx context.Context, req domain.Request) (domain.Outcome, error)
}

// service verification workflow over a Page
type service struct {
	page   *Page
	oracle oracle.Service
}

// NewService constructs a valid Service
func NewService(page *Page, o oracle.Service) Service {
	return &service{
		page:   page,
		oracle: o,
	}
}

func (s *service) Verify(ctx context.Context, req domain.Request) (domain.Outcome, error) {
	submitted, err := Normalize(req.Amount)
	var rejected *domain.ValidationRejected
	if errors.As(err, &rejected) {
		return s.verifyRejection(ctx, req, rejected)
	}

	rate, err := s.oracle.FetchRate(ctx, req.From, req.To)
	if err != nil {
		return domain.Outcome{Request: req}, fmt.Errorf("verify: %w", err)
	}

	if err := s.page.AcceptCookies(ctx); err != nil {
		return domain.Outcome{Request: req}, err
	}
	if err := s.page.EnterAmount(ctx, req.Amount); err != nil {
		return domain.Outcome{Request: req}, err
	}
	if err := s.expectNoAmountError(ctx); err != nil {
		return domain.Outcome{Request: req}, err
	}
	if err := s.page.SelectCurrency(ctx, req.From, From); err != nil {
		return domain.Outcome{Request: req}, err
	}
	if err := s.page.SelectCurrency(ctx, req.To, To); err != nil {
		return domain.Outcome{Request: req}, err
	}
	if err := s.page.Convert(ctx); err != nil {
		return domain.Outcome{Request: req}, err
	}

	actual, err := s.page.Result(ctx)
	if err != nil {
		return domain.Outcome{Request: req}, err
	}
	return judge(req, rate, submitted, actual)
}

func (s *service) VerifySwap(ctx context.Context, prev domain.Outcome) (domain.Outcome, error) {
	req := prev.Request.Reverse()
	if prev.Rejected() {
		return domain.Outcome{Request: req}, fmt.Errorf("swap after rejected amount %v", float64(prev.Request.Amount))
	}

	if err := s.page.Swap(ctx); err != nil {
		return domain.Outcome{Request: req}, err
	}

	// both directions come from one table, the forward one must still be the rate prev was judged with
	forward, rate, err := s.oracle.FetchPair(ctx, prev.Request.From, prev.Request.To)
	if err != nil {
		return domain.Outcome{Request: req}, fmt.Errorf("verify swap: %w", err)
	}
	if !Equivalent(float64(forward), float64(prev.Rate)) {
		return domain.Outcome{Request: req}, fmt.Errorf("verify swap: rate %v -> %v moved from %v to %v",
			prev.Request.From, prev.Request.To, float64(prev.Rate), float64(forward))
	}

	actual, err := s.page.Result(ctx)
	if err != nil {
		return domain.Outcome{Request: req}, err
	}
	return judge(req, rate, prev.Submitted, actual)
}

func (s *service) VerifyDisplayed(ctx context.Context, req domain.Request) (domain.Outcome, error) {
	submitted, err := Normalize(req.Amount)
	if err != nil {
		return domain.Outcome{Request: req}, fmt.Errorf("verify displayed: %w", err)
	}

	if err := s.page.AcceptCookies(ctx); err != nil {
		return domain.Outcome{Request: req}, err
	}
	actual, err := s.page.Result(ctx)
	if err != nil {
		return domain.Outcome{Request: req}, err
	}

	rate, err := s.oracle.FetchRate(ctx, req.From, req.To)
	if err != nil {
		return domain.Outcome{Request: req}, fmt.Errorf("verify displayed: %w", err)
	}
	return judge(req, rate, submitted, actual)
}

// expectNoAmountError fails with *domain.MessageMismatch when the page shows an amount
// error for an amount it must accept.
func (s *service) expectNoAmountError(ctx context.Context) error {
	visible, err := s.page.ErrorVisible(ctx)
	if err != nil {
		return err
	}
	if !visible {
		return nil
	}
	message, err := s.page.ErrorMessage(ctx)
	if err != nil {
		return err
	}
	return &domain.MessageMismatch{Actual: message, Expected: ""}
}

// verifyRejection types the amount and checks the page refuses it with the expected message.
// The workflow stops there: no currency is selected and nothing is converted.
func (s *service) verifyRejection(ctx context.Context, req domain.Request, rejected *domain.ValidationRejected) (domain.Outcome, error) {
	outcome := domain.Outcome{Request: req}

	if err := s.page.AcceptCookies(ctx); err != nil {
		return outcome, err
	}
	if err := s.page.EnterAmount(ctx, req.Amount); err != nil {
		return outcome, err
	}
	message, err := s.page.ErrorMessage(ctx)
	if err != nil {
		return outcome, err
	}

	outcome.Rejection = message
	if message != rejected.Message {
		return outcome, &domain.MessageMismatch{Actual: message, Expected: rejected.Message}
	}
	return outcome, nil
}

// judge compares actual with submitted * rate
func judge(req domain.Request, rate domain.Rate, submitted domain.Amount, actual float64) (domain.Outcome, error) {
	expected := float64(submitted) * float64(rate)
	outcome := domain.Outcome{
		Request:         req,
		Rate:            rate,
		Submitted:       submitted,
		Actual:          actual,
		Expected:        expected,
		WithinTolerance: Equivalent(actual, expected),
	}
	if !outcome.WithinTolerance {
		return outcome, &domain.ToleranceMismatch{Request: req, Actual: actual, Expected: expected}
	}
	return outcome, nil
}
