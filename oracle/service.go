package oracle

import (
	"context"
	"fmt"
	"go-currency-converter-e2e/domain"
	"go-currency-converter-e2e/rates"
	"math"
)

// Service interface for looking up the authoritative rate between two currencies
type Service interface {
	// FetchRate returns how many units of to one unit of from buys.
	FetchRate(ctx context.Context, from domain.Currency, to domain.Currency) (domain.Rate, error)

	// FetchPair returns both directions between a and b, computed from one rate snapshot.
	FetchPair(ctx context.Context, a domain.Currency, b domain.Currency) (forward domain.Rate, reverse domain.Rate, err error)
}

// service rate oracle backed by a rate table provider
type service struct {
	// ratesService to fetch rate tables. Every call is a fresh snapshot.
	ratesService rates.Service
}

// NewService constructs a valid Service
func NewService(s rates.Service) Service {
	return &service{
		ratesService: s,
	}
}

// FetchRate computes the cross rate table[to] / table[from] from a freshly fetched table.
func (s *service) FetchRate(ctx context.Context, from domain.Currency, to domain.Currency) (domain.Rate, error) {
	if err := checkCodes(from, to); err != nil {
		return 0, err
	}
	table, err := s.ratesService.Rates(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch rate [%v -> %v]: %w", from, to, err)
	}
	return CrossRate(table, from, to)
}

// FetchPair computes both directions from a single fetch.
func (s *service) FetchPair(ctx context.Context, a domain.Currency, b domain.Currency) (domain.Rate, domain.Rate, error) {
	if err := checkCodes(a, b); err != nil {
		return 0, 0, err
	}
	table, err := s.ratesService.Rates(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch pair [%v <-> %v]: %w", a, b, err)
	}
	forward, err := CrossRate(table, a, b)
	if err != nil {
		return 0, 0, err
	}
	reverse, err := CrossRate(table, b, a)
	if err != nil {
		return 0, 0, err
	}
	return forward, reverse, nil
}

// CrossRate divides the base relative rates of to and from.
// Missing, zero, negative and non-finite entries are lookup errors, never NaN results.
func CrossRate(table domain.Rates, from domain.Currency, to domain.Currency) (domain.Rate, error) {
	fromRate, err := lookup(table, from)
	if err != nil {
		return 0, err
	}
	toRate, err := lookup(table, to)
	if err != nil {
		return 0, err
	}
	return toRate / fromRate, nil
}

func lookup(table domain.Rates, currency domain.Currency) (domain.Rate, error) {
	rate, ok := table[currency]
	if !ok || !(rate > 0) || math.IsInf(float64(rate), 0) {
		return 0, &domain.RateLookupError{Currency: currency}
	}
	return rate, nil
}

func checkCodes(codes ...domain.Currency) error {
	for _, c := range codes {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", domain.ErrInvalidCurrency, string(c))
		}
	}
	return nil
}
