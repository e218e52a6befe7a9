package oracle

import (
	"context"
	"go-currency-converter-e2e/domain"
	"time"

	"github.com/go-kit/log"
)

// loggingService decorates an oracle.Service with logging
type loggingService struct {
	logger log.Logger
	next   Service
}

// NewLoggingService returns a new instance of a logging Service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

func (s *loggingService) FetchRate(ctx context.Context, from domain.Currency, to domain.Currency) (rate domain.Rate, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "fetch_rate",
			"from", from,
			"to", to,
			"rate", rate,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FetchRate(ctx, from, to)
}

func (s *loggingService) FetchPair(ctx context.Context, a domain.Currency, b domain.Currency) (forward domain.Rate, reverse domain.Rate, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "fetch_pair",
			"a", a,
			"b", b,
			"forward", forward,
			"reverse", reverse,
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FetchPair(ctx, a, b)
}
