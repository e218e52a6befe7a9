package verify

import (
	"go-currency-converter-e2e/domain"
	"math"
	"strconv"
)

// Amount bounds enforced by the converter page.
const (
	// MinAmount smallest amount the page accepts
	MinAmount domain.Amount = 0.005

	// ClampedMinimum accepted amounts below it are converted as if it had been typed
	ClampedMinimum domain.Amount = 0.01

	// MaxAmount larger amounts are converted as MaxAmount
	MaxAmount domain.Amount = 1e16
)

// Normalize maps a requested amount to the amount the page actually converts.
// Amounts the page refuses return a *domain.ValidationRejected carrying the message the
// page shows. Normalize is idempotent on the amounts it accepts.
func Normalize(amount domain.Amount) (domain.Amount, error) {
	f := float64(amount)
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, &domain.ValidationRejected{Amount: amount, Message: domain.MessageInvalidAmount}
	case amount < 0:
		return 0, &domain.ValidationRejected{Amount: amount, Message: domain.MessageAmountTooSmall}
	case amount < MinAmount:
		return 0, &domain.ValidationRejected{Amount: amount, Message: domain.MessageAmountTooSmall}
	case amount < ClampedMinimum:
		return ClampedMinimum, nil
	case amount >= MaxAmount:
		return MaxAmount, nil
	}
	return amount, nil
}

// FormatAmount renders an amount the way it is typed into the page: the shortest decimal
// form without an exponent.
func FormatAmount(amount domain.Amount) string {
	f := float64(amount)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
