package http

import (
	"encoding/json"
	"errors"
	"go-currency-converter-e2e/domain"
	"go-currency-converter-e2e/scenario"
	"io"
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server dependencies for HTTP Server functions
type Server struct {
	Session scenario.SessionFunc
	Suite   *scenario.Suite
	Logger  log.Logger
	router  *http.ServeMux
}

// NewServer wires the verification endpoints and the metrics of gatherer.
func NewServer(session scenario.SessionFunc, suite *scenario.Suite, gatherer prometheus.Gatherer, logger log.Logger) *Server {
	server := &Server{
		Session: session,
		Suite:   suite,
		Logger:  logger,
		router:  http.NewServeMux(),
	}
	server.routes(gatherer)
	return server
}

func (s *Server) routes(gatherer prometheus.Gatherer) {
	s.router.Handle("/api/verify", s.verify())
	s.router.Handle("/api/scenarios", s.scenarios())
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

// verify produces HTTP handler verifying one conversion on a fresh page
func (s *Server) verify() http.HandlerFunc {

	// request for unmarshalling JSON requests posted by clients
	type request struct {
		FromCurrency domain.Currency
		ToCurrency   domain.Currency
		Amount       domain.Amount
	}

	// response for marshalling the outcome returned to clients
	type response struct {
		FromCurrency    domain.Currency `json:"fromCurrency"`
		ToCurrency      domain.Currency `json:"toCurrency"`
		Amount          domain.Amount   `json:"amount"`
		Submitted       domain.Amount   `json:"submitted"`
		Rate            domain.Rate     `json:"rate"`
		Actual          float64         `json:"actual"`
		Expected        float64         `json:"expected"`
		WithinTolerance bool            `json:"withinTolerance"`
		Rejection       string          `json:"rejection,omitempty"`
		Error           string          `json:"error,omitempty"`
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		rw.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			rw.Write([]byte(`{"error": "method not allowed"}`))
			return
		}

		bytes, err := io.ReadAll(r.Body)
		if err != nil {
			rw.WriteHeader(http.StatusBadRequest)
			rw.Write([]byte(`{"error": "invalid request"}`))
			return
		}

		var request request
		err = json.Unmarshal(bytes, &request)
		if err != nil {
			rw.WriteHeader(http.StatusBadRequest)
			rw.Write([]byte(`{"error": "invalid json"}`))
			return
		}
		if !request.FromCurrency.Valid() || !request.ToCurrency.Valid() {
			rw.WriteHeader(http.StatusBadRequest)
			rw.Write([]byte(`{"error": "invalid currency code"}`))
			return
		}

		env, release, err := s.Session(r.Context(), scenario.SessionOptions{Logger: s.Logger})
		if err != nil {
			level.Error(s.Logger).Log("msg", "failed to open session", "err", err)
			rw.WriteHeader(http.StatusInternalServerError)
			rw.Write([]byte(`{"error": "failed to open session"}`))
			return
		}
		defer release()

		if err := env.Page.Open(r.Context(), env.PageURL); err != nil {
			level.Error(s.Logger).Log("msg", "failed to open page", "err", err)
			rw.WriteHeader(http.StatusBadGateway)
			rw.Write([]byte(`{"error": "failed to open page"}`))
			return
		}

		outcome, err := env.Verifier.Verify(r.Context(), domain.Request{
			Amount: request.Amount,
			From:   request.FromCurrency,
			To:     request.ToCurrency,
		})

		response := response{
			FromCurrency:    request.FromCurrency,
			ToCurrency:      request.ToCurrency,
			Amount:          request.Amount,
			Submitted:       outcome.Submitted,
			Rate:            outcome.Rate,
			Actual:          outcome.Actual,
			Expected:        outcome.Expected,
			WithinTolerance: outcome.WithinTolerance,
			Rejection:       outcome.Rejection,
		}
		if err != nil {
			response.Error = err.Error()
		}

		rw.WriteHeader(verifyStatus(err))
		enc := json.NewEncoder(rw)
		if err := enc.Encode(&response); err != nil {
			level.Error(s.Logger).Log("msg", "failed json encoding", "err", err)
		}
	}
}

// verifyStatus maps a verification error to the response status.
// A page that disagrees with the oracle is a failed check, not a failed request.
func verifyStatus(err error) int {
	var (
		tolerance *domain.ToleranceMismatch
		message   *domain.MessageMismatch
		parse     *domain.ResultParseError
		fetch     *domain.RateFetchError
		lookup    *domain.RateLookupError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &tolerance), errors.As(err, &message), errors.As(err, &parse):
		return http.StatusUnprocessableEntity
	case errors.As(err, &lookup), errors.Is(err, domain.ErrInvalidCurrency):
		return http.StatusBadRequest
	case errors.As(err, &fetch):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// scenarios produces HTTP handler running the scenario suite on POST, or the scenarios
// named by repeated name query parameters.
func (s *Server) scenarios() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			rw.Write([]byte(`{"error": "method not allowed"}`))
			return
		}

		report, err := s.Suite.Run(r.Context(), r.URL.Query()["name"]...)
		if err != nil {
			rw.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(rw).Encode(map[string]string{"error": err.Error()})
			return
		}

		if report.Failed > 0 {
			rw.WriteHeader(http.StatusUnprocessableEntity)
		}
		enc := json.NewEncoder(rw)
		if err := enc.Encode(&report); err != nil {
			level.Error(s.Logger).Log("msg", "failed json encoding", "err", err)
		}
	}
}
