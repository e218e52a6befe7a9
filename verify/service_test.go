package verify_test

import (
	"context"
	"errors"
	"go-currency-converter-e2e/domain"
	"go-currency-converter-e2e/oracle"
	"go-currency-converter-e2e/verify"
	"go-currency-converter-e2e/verify/verifytest"
	"math"
	"strings"
	"testing"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ratesMock struct {
	rates domain.Rates
	err   error
	calls int
}

func (m *ratesMock) Rates(_ context.Context) (domain.Rates, error) {
	m.calls++
	return m.rates, m.err
}

func newService(d *verifytest.Driver, rs *ratesMock) verify.Service {
	return verify.NewLoggingService(log.NewNopLogger(), verify.NewService(newPage(d), oracle.NewService(rs)))
}

func TestService_Verify(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	rs := &ratesMock{rates: testRates}
	s := newService(d, rs)

	outcome, err := s.Verify(context.Background(), domain.Request{Amount: 100, From: "USD", To: "EUR"})

	require.NoError(t, err)
	assert.True(t, outcome.WithinTolerance)
	assert.InDelta(t, 92.0, outcome.Expected, 1e-9)
	assert.InDelta(t, 92.0, outcome.Actual, 1e-6)
	assert.Equal(t, domain.Rate(0.92), outcome.Rate)
	assert.Equal(t, domain.Amount(100), outcome.Submitted)
	assert.False(t, outcome.Rejected())
	assert.Equal(t, 1, rs.calls)
}

func TestService_VerifyAmounts(t *testing.T) {
	for _, amount := range []domain.Amount{10, 10.5, 0.5, 100.50, 1000, 333333.33333, 500000000, 0.005, 0.0099, 9999999999999999} {
		d := verifytest.NewDriver(base, testRates)
		s := newService(d, &ratesMock{rates: testRates})

		outcome, err := s.Verify(context.Background(), domain.Request{Amount: amount, From: "USD", To: "EUR"})

		require.NoError(t, err, "amount %v", float64(amount))
		assert.True(t, outcome.WithinTolerance)
		typed, _, _ := d.State()
		assert.Equal(t, verify.FormatAmount(amount), typed, "the unnormalized amount is typed")
	}
}

func TestService_VerifyClampedExpectation(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	s := newService(d, &ratesMock{rates: testRates})

	outcome, err := s.Verify(context.Background(), domain.Request{Amount: 0.007, From: "USD", To: "EUR"})

	require.NoError(t, err)
	assert.Equal(t, domain.Amount(0.01), outcome.Submitted)
	assert.InDelta(t, 0.0092, outcome.Expected, 1e-12)
}

func TestService_VerifyToleranceMismatch(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	d.Skew = 1.001
	s := newService(d, &ratesMock{rates: testRates})

	outcome, err := s.Verify(context.Background(), domain.Request{Amount: 100, From: "USD", To: "EUR"})

	var mismatch *domain.ToleranceMismatch
	require.True(t, errors.As(err, &mismatch))
	assert.InDelta(t, 92.092, mismatch.Actual, 1e-6)
	assert.InDelta(t, 92.0, mismatch.Expected, 1e-9)
	assert.False(t, outcome.WithinTolerance)
	assert.Contains(t, err.Error(), "92.092")
}

func TestService_VerifyDisplayTruncation(t *testing.T) {
	d := verifytest.NewDriver(base, domain.Rates{"USD": 1.0, "EUR": 0.92})
	d.Format = func(float64, domain.Currency) string { return "91.999 Euros" }
	s := newService(d, &ratesMock{rates: domain.Rates{"USD": 1.0, "EUR": 0.92}})

	outcome, err := s.Verify(context.Background(), domain.Request{Amount: 100, From: "USD", To: "EUR"})

	// 0.001 off 92 is above the absolute epsilon and 1.09e-5 relative, above the relative one
	var mismatch *domain.ToleranceMismatch
	assert.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 91.999, outcome.Actual)
}

func TestService_VerifyRejected(t *testing.T) {
	tests := []struct {
		name    string
		amount  domain.Amount
		message string
	}{
		{"negative", -1, "Please enter an amount greater than 0"},
		{"below minimum", 0.0041, "Please enter an amount greater than 0"},
		{"non numeric", domain.Amount(math.NaN()), "Please enter a valid amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := verifytest.NewDriver(base, testRates)
			rs := &ratesMock{rates: testRates}
			s := newService(d, rs)

			outcome, err := s.Verify(context.Background(), domain.Request{Amount: tt.amount, From: "USD", To: "EUR"})

			require.NoError(t, err)
			assert.True(t, outcome.Rejected())
			assert.Equal(t, tt.message, outcome.Rejection)
			assert.Equal(t, 0, rs.calls, "no rate is fetched for a rejected amount")
			for _, c := range d.Calls() {
				assert.False(t, strings.HasPrefix(c, "click "+verify.DefaultSelectors().Convert), "no conversion after rejection")
				assert.False(t, strings.HasPrefix(c, "click "+verify.DefaultSelectors().FromCurrency), "no currency selection after rejection")
			}
		})
	}
}

type wrongMessageDriver struct {
	*verifytest.Driver
}

func (d wrongMessageDriver) Text(ctx context.Context, selector string) (string, error) {
	if selector == verify.DefaultSelectors().AmountError {
		return "Something else", nil
	}
	return d.Driver.Text(ctx, selector)
}

func TestService_VerifyRejectedWrongMessage(t *testing.T) {
	d := wrongMessageDriver{verifytest.NewDriver(base, testRates)}
	s := verify.NewService(newPage(d), oracle.NewService(&ratesMock{rates: testRates}))

	outcome, err := s.Verify(context.Background(), domain.Request{Amount: -1, From: "USD", To: "EUR"})

	var mismatch *domain.MessageMismatch
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "Something else", mismatch.Actual)
	assert.Equal(t, domain.MessageAmountTooSmall, mismatch.Expected)
	assert.Equal(t, "Something else", outcome.Rejection)
}

// amountErrorDriver shows an amount error whatever was typed
type amountErrorDriver struct {
	*verifytest.Driver
}

func (d amountErrorDriver) Visible(ctx context.Context, selector string) (bool, error) {
	if selector == verify.DefaultSelectors().AmountError {
		return true, nil
	}
	return d.Driver.Visible(ctx, selector)
}

func (d amountErrorDriver) WaitVisible(ctx context.Context, selector string) error {
	if selector == verify.DefaultSelectors().AmountError {
		return nil
	}
	return d.Driver.WaitVisible(ctx, selector)
}

func (d amountErrorDriver) Text(ctx context.Context, selector string) (string, error) {
	if selector == verify.DefaultSelectors().AmountError {
		return " Please enter an amount greater than 0 ", nil
	}
	return d.Driver.Text(ctx, selector)
}

func TestService_VerifyAcceptedAmountShowsError(t *testing.T) {
	fake := verifytest.NewDriver(base, testRates)
	s := verify.NewService(newPage(amountErrorDriver{fake}), oracle.NewService(&ratesMock{rates: testRates}))

	_, err := s.Verify(context.Background(), domain.Request{Amount: 0.005, From: "USD", To: "EUR"})

	var mismatch *domain.MessageMismatch
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, domain.MessageAmountTooSmall, mismatch.Actual)
	assert.Empty(t, mismatch.Expected)
	for _, c := range fake.Calls() {
		assert.False(t, strings.HasPrefix(c, "click "+verify.DefaultSelectors().Convert), "no conversion once the error shows")
	}
}

func TestService_VerifyRateErrors(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	s := newService(d, &ratesMock{err: &domain.RateFetchError{StatusCode: 401}})

	_, err := s.Verify(context.Background(), domain.Request{Amount: 100, From: "USD", To: "EUR"})

	var fetchErr *domain.RateFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Empty(t, d.Calls(), "the page is not driven when the oracle fails")

	s = newService(d, &ratesMock{rates: domain.Rates{"USD": 1}})
	_, err = s.Verify(context.Background(), domain.Request{Amount: 100, From: "USD", To: "EUR"})

	var lookupErr *domain.RateLookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, domain.Currency("EUR"), lookupErr.Currency)
}

func TestService_VerifySwap(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	rs := &ratesMock{rates: testRates}
	s := newService(d, rs)
	ctx := context.Background()

	outcome, err := s.Verify(ctx, domain.Request{Amount: 9999999999999999, From: "TRY", To: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(1e16), outcome.Submitted)

	swapped, err := s.VerifySwap(ctx, outcome)
	require.NoError(t, err)
	assert.Equal(t, domain.Request{Amount: 9999999999999999, From: "EUR", To: "TRY"}, swapped.Request)
	assert.True(t, swapped.WithinTolerance)
	assert.InDelta(t, 1.0, float64(outcome.Rate*swapped.Rate), 1e-12)
	assert.Equal(t, 2, rs.calls)
}

// movingRates returns a different table on every call
type movingRates struct {
	tables []domain.Rates
	calls  int
}

func (m *movingRates) Rates(_ context.Context) (domain.Rates, error) {
	table := m.tables[m.calls%len(m.tables)]
	m.calls++
	return table, nil
}

func TestService_VerifySwapRatesMoved(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	rs := &movingRates{tables: []domain.Rates{testRates, {"USD": 1.0, "EUR": 0.95}}}
	s := verify.NewService(newPage(d), oracle.NewService(rs))
	ctx := context.Background()

	outcome, err := s.Verify(ctx, domain.Request{Amount: 100, From: "USD", To: "EUR"})
	require.NoError(t, err)

	_, err = s.VerifySwap(ctx, outcome)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "moved from 0.92 to 0.95")
}

func TestService_VerifySwapAfterRejection(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	s := newService(d, &ratesMock{rates: testRates})

	_, err := s.VerifySwap(context.Background(), domain.Outcome{
		Request:   domain.Request{Amount: -1, From: "USD", To: "EUR"},
		Rejection: domain.MessageAmountTooSmall,
	})

	assert.Error(t, err)
}

func TestService_VerifyDisplayed(t *testing.T) {
	d := verifytest.NewDriver(base, testRates)
	s := newService(d, &ratesMock{rates: testRates})
	ctx := context.Background()
	req := domain.Request{Amount: 100, From: "USD", To: "EUR"}

	require.NoError(t, newPage(d).OpenConversion(ctx, base, req))
	outcome, err := s.VerifyDisplayed(ctx, req)

	require.NoError(t, err)
	assert.True(t, outcome.WithinTolerance)
	for _, c := range d.Calls() {
		assert.False(t, strings.HasPrefix(c, "fill "), "no input is driven")
	}
}

func TestInstrumentingService(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := verify.NewMetrics(reg)
	ctx := context.Background()

	d := verifytest.NewDriver(base, testRates)
	s := verify.NewInstrumentingService(metrics, newService(d, &ratesMock{rates: testRates}))
	_, _ = s.Verify(ctx, domain.Request{Amount: 100, From: "USD", To: "EUR"})
	_, _ = s.Verify(ctx, domain.Request{Amount: -1, From: "USD", To: "EUR"})

	skewed := verifytest.NewDriver(base, testRates)
	skewed.Skew = 2
	s = verify.NewInstrumentingService(metrics, newService(skewed, &ratesMock{rates: testRates}))
	_, _ = s.Verify(ctx, domain.Request{Amount: 100, From: "USD", To: "EUR"})

	s = verify.NewInstrumentingService(metrics, newService(verifytest.NewDriver(base, testRates), &ratesMock{err: errors.New("down")}))
	_, _ = s.Verify(ctx, domain.Request{Amount: 100, From: "USD", To: "EUR"})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OutcomesTotal.WithLabelValues("verify", "match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OutcomesTotal.WithLabelValues("verify", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OutcomesTotal.WithLabelValues("verify", "mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OutcomesTotal.WithLabelValues("verify", "error")))
}
