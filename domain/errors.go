package domain

import (
	"errors"
	"fmt"
)

// Messages shown by the converter page under the amount input.
const (
	MessageAmountTooSmall = "Please enter an amount greater than 0"
	MessageInvalidAmount  = "Please enter a valid amount"
)

// ErrInvalidCurrency is returned for empty or malformed currency codes.
var ErrInvalidCurrency = errors.New("invalid currency code")

// RateFetchError the rate provider could not be read.
type RateFetchError struct {
	// StatusCode of the provider response, 0 when no response was received
	StatusCode int
	Err        error
}

func (e *RateFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("rate fetch failed: HTTP error code: %d", e.StatusCode)
	}
	return fmt.Sprintf("rate fetch failed: %v", e.Err)
}

func (e *RateFetchError) Unwrap() error {
	return e.Err
}

// RateLookupError a currency is missing from the fetched rate table.
type RateLookupError struct {
	Currency Currency
}

func (e *RateLookupError) Error() string {
	return fmt.Sprintf("no usable rate for currency: %v", e.Currency)
}

// ValidationRejected the amount is outside what the page accepts.
// This is an expected outcome, the page must show Message.
type ValidationRejected struct {
	Amount  Amount
	Message string
}

func (e *ValidationRejected) Error() string {
	return fmt.Sprintf("amount %v rejected: %q", float64(e.Amount), e.Message)
}

// ResultParseError the displayed result is not a number.
type ResultParseError struct {
	Text string
}

func (e *ResultParseError) Error() string {
	return fmt.Sprintf("failed to parse conversion result: %q", e.Text)
}

// ToleranceMismatch the displayed result is not close enough to the expected one.
type ToleranceMismatch struct {
	Request  Request
	Actual   float64
	Expected float64
}

func (e *ToleranceMismatch) Error() string {
	return fmt.Sprintf("%v %v -> %v: actual %v, expected %v",
		float64(e.Request.Amount), e.Request.From, e.Request.To, e.Actual, e.Expected)
}

// MessageMismatch the page showed a different validation message than expected.
type MessageMismatch struct {
	Actual   string
	Expected string
}

func (e *MessageMismatch) Error() string {
	return fmt.Sprintf("error message: got %q, want %q", e.Actual, e.Expected)
}

// URLMismatch the page location does not reflect the conversion state.
type URLMismatch struct {
	Actual   string
	Expected string
}

func (e *URLMismatch) Error() string {
	return fmt.Sprintf("page url: got %q, want %q", e.Actual, e.Expected)
}

// OrderMismatch the currency list is not in the expected order.
type OrderMismatch struct {
	Reason string
}

func (e *OrderMismatch) Error() string {
	return "currency order: " + e.Reason
}
