package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"go-currency-converter-e2e/domain"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Service wraps the rate provider REST endpoint
type Service interface {
	// Rates loads one snapshot of the rate table.
	Rates(ctx context.Context) (domain.Rates, error)
}

// Credentials for the rate provider. A token takes precedence over basic auth.
type Credentials struct {
	Token    string
	Username string
	Password string
}

// service rate provider API
type service struct {
	// url of the rate table endpoint
	url string

	// client for HTTP requests
	client *resty.Client
}

// NewService constructs a valid rates Service reading from url.
func NewService(url string, credentials Credentials, timeout time.Duration) Service {
	client := resty.New().SetTimeout(timeout)
	switch {
	case credentials.Token != "":
		client.SetAuthToken(credentials.Token)
	case credentials.Username != "":
		client.SetBasicAuth(credentials.Username, credentials.Password)
	}
	return &service{
		url:    url,
		client: client,
	}
}

// Rates loads the current rate table.
// Rates are not cached, each call is a fresh request.
func (s *service) Rates(ctx context.Context) (domain.Rates, error) {
	type Response struct {
		Base  string
		Rates map[string]json.Number // maps currency codes to rates
	}

	httpResponse, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(s.url)
	if err != nil {
		return nil, &domain.RateFetchError{Err: fmt.Errorf("http get: %w", err)}
	}
	if !httpResponse.IsSuccess() {
		return nil, &domain.RateFetchError{StatusCode: httpResponse.StatusCode()}
	}

	var response Response
	err = json.Unmarshal(httpResponse.Body(), &response)
	if err != nil {
		return nil, &domain.RateFetchError{Err: fmt.Errorf("decoding json: %w", err)}
	}
	if len(response.Rates) == 0 {
		return nil, &domain.RateFetchError{Err: fmt.Errorf("no rates in response")}
	}

	rates := domain.Rates{}
	for k, v := range response.Rates {
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return nil, &domain.RateFetchError{Err: fmt.Errorf("bad rate value for %v: %w", k, err)}
		}
		rates[domain.Currency(k)] = domain.Rate(f)
	}

	return rates, nil
}
