package domain

// Currency a currency code
type Currency string

// Valid reports whether c looks like an ISO 4217 code: three upper-case ASCII letters.
func (c Currency) Valid() bool {
	if len(c) != 3 {
		return false
	}
	for i := 0; i < len(c); i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return false
		}
	}
	return true
}

// Amount a monetary amount... which should be a float...
// NaN is allowed and stands for non-numeric input typed into the page.
type Amount float64

// Rate an exchange rate
type Rate float64

// Rates maps currency codes to rates, all relative to one base currency.
// A Rates value is one snapshot of the provider and must not be modified.
type Rates map[Currency]Rate

// Request a single conversion to verify
type Request struct {
	Amount Amount
	From   Currency
	To     Currency
}

// Reverse returns the same amount converted the other way round.
func (r Request) Reverse() Request {
	return Request{Amount: r.Amount, From: r.To, To: r.From}
}

// Outcome the result of verifying one Request against the page.
type Outcome struct {
	Request Request

	// Rate the oracle rate from Request.From to Request.To
	Rate Rate

	// Submitted the normalized amount the expectation was computed from
	Submitted Amount

	// Actual the number read from the page
	Actual float64

	// Expected Submitted * Rate
	Expected float64

	WithinTolerance bool

	// Rejection the error text shown by the page when the amount was refused.
	// Empty for conversions that went through.
	Rejection string
}

// Rejected reports whether the page refused the amount instead of converting it.
func (o Outcome) Rejected() bool {
	return o.Rejection != ""
}
