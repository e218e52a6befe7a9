package verify

import (
	"context"
	"go-currency-converter-e2e/domain"
	"time"

	"github.com/go-kit/log"
)

// loggingService decorates a verify.Service with logging
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

func (s *loggingService) Verify(ctx context.Context, req domain.Request) (outcome domain.Outcome, err error) {
	defer func(begin time.Time) {
		s.log("verify", outcome, time.Since(begin), err)
	}(time.Now())
	return s.next.Verify(ctx, req)
}

func (s *loggingService) VerifySwap(ctx context.Context, prev domain.Outcome) (outcome domain.Outcome, err error) {
	defer func(begin time.Time) {
		s.log("verify_swap", outcome, time.Since(begin), err)
	}(time.Now())
	return s.next.VerifySwap(ctx, prev)
}

func (s *loggingService) VerifyDisplayed(ctx context.Context, req domain.Request) (outcome domain.Outcome, err error) {
	defer func(begin time.Time) {
		s.log("verify_displayed", outcome, time.Since(begin), err)
	}(time.Now())
	return s.next.VerifyDisplayed(ctx, req)
}

func (s *loggingService) log(method string, outcome domain.Outcome, took time.Duration, err error) {
	s.logger.Log(
		"method", method,
		"amount", FormatAmount(outcome.Request.Amount),
		"from", outcome.Request.From,
		"to", outcome.Request.To,
		"rate", outcome.Rate,
		"actual", outcome.Actual,
		"expected", outcome.Expected,
		"within_tolerance", outcome.WithinTolerance,
		"rejection", outcome.Rejection,
		"took", took,
		"err", err,
	)
}
