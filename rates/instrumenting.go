package rates

import (
	"context"
	"errors"
	"go-currency-converter-e2e/domain"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collected around rate provider calls
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
}

// NewMetrics creates and registers the rate provider metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "converter_check",
			Subsystem: "rates",
			Name:      "requests_total",
			Help:      "Rate provider requests by outcome",
		}, []string{"status"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "converter_check",
			Subsystem: "rates",
			Name:      "request_duration_seconds",
			Help:      "Rate provider request latency",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDuration)
	return m
}

// instrumentingService decorates a rates.Service with prometheus metrics
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

func (s *instrumentingService) Rates(ctx context.Context) (rates domain.Rates, err error) {
	defer func(begin time.Time) {
		s.metrics.RequestsTotal.WithLabelValues(statusLabel(err)).Inc()
		s.metrics.RequestDuration.Observe(time.Since(begin).Seconds())
	}(time.Now())
	return s.next.Rates(ctx)
}

// statusLabel maps an error to "ok", the HTTP status code, or "error"
func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var fetchErr *domain.RateFetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		return strconv.Itoa(fetchErr.StatusCode)
	}
	return "error"
}
