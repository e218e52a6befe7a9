package verify

import (
	"context"
	"errors"
	"go-currency-converter-e2e/domain"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collected around verifications
type Metrics struct {
	OutcomesTotal *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
}

// NewMetrics creates and registers the verification metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "converter_check",
			Subsystem: "verify",
			Name:      "outcomes_total",
			Help:      "Verification outcomes by method and result",
		}, []string{"method", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "converter_check",
			Subsystem: "verify",
			Name:      "duration_seconds",
			Help:      "Time spent driving the page per verification",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"method"}),
	}
	reg.MustRegister(m.OutcomesTotal, m.Duration)
	return m
}

// instrumentingService decorates a verify.Service with prometheus metrics
type instrumentingService struct {
	next    Service
	metrics *Metrics
}

// NewInstrumentingService returns a new instrumenting service
func NewInstrumentingService(metrics *Metrics, s Service) Service {
	return &instrumentingService{
		next:    s,
		metrics: metrics,
	}
}

func (s *instrumentingService) Verify(ctx context.Context, req domain.Request) (outcome domain.Outcome, err error) {
	defer s.observe("verify", time.Now(), &outcome, &err)
	return s.next.Verify(ctx, req)
}

func (s *instrumentingService) VerifySwap(ctx context.Context, prev domain.Outcome) (outcome domain.Outcome, err error) {
	defer s.observe("verify_swap", time.Now(), &outcome, &err)
	return s.next.VerifySwap(ctx, prev)
}

func (s *instrumentingService) VerifyDisplayed(ctx context.Context, req domain.Request) (outcome domain.Outcome, err error) {
	defer s.observe("verify_displayed", time.Now(), &outcome, &err)
	return s.next.VerifyDisplayed(ctx, req)
}

func (s *instrumentingService) observe(method string, begin time.Time, outcome *domain.Outcome, err *error) {
	s.metrics.OutcomesTotal.WithLabelValues(method, resultLabel(*outcome, *err)).Inc()
	s.metrics.Duration.WithLabelValues(method).Observe(time.Since(begin).Seconds())
}

// resultLabel one of match, rejected, mismatch, error
func resultLabel(outcome domain.Outcome, err error) string {
	var mismatch *domain.ToleranceMismatch
	switch {
	case err == nil && outcome.Rejected():
		return "rejected"
	case err == nil:
		return "match"
	case errors.As(err, &mismatch):
		return "mismatch"
	}
	return "error"
}
