package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/flight-delays/internal/delays"
)

// DefaultAirlabsURL is the Airlabs delays endpoint.
const DefaultAirlabsURL = "https://airlabs.co/api/v9/delays"

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 32 << 20

// AirlabsProvider implements the delays.Provider interface for Airlabs.
type AirlabsProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// AirlabsOption customizes an AirlabsProvider.
type AirlabsOption func(*AirlabsProvider)

// WithBaseURL overrides the delays endpoint.
func WithBaseURL(u string) AirlabsOption {
	return func(p *AirlabsProvider) {
		if u != "" {
			p.baseURL = u
		}
	}
}

// WithBackoff enables retries on transport errors, 429 and 5xx.
func WithBackoff(b BackoffConfig) AirlabsOption {
	return func(p *AirlabsProvider) {
		p.httpCfg.Backoff = b
	}
}

func NewAirlabsProvider(client *http.Client, apiKey string, opts ...AirlabsOption) *AirlabsProvider {
	p := &AirlabsProvider{
		name:    "airlabs",
		apiKey:  apiKey,
		baseURL: DefaultAirlabsURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      0,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
			Terminal: hasErrorObject,
		},
		circuit: newCircuitBreaker("airlabs"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *AirlabsProvider) Name() string {
	return p.name
}

// FetchDelays performs one GET against the delays endpoint. A payload-level
// error object is returned inside the response, not as an error.
func (p *AirlabsProvider) FetchDelays(ctx context.Context, params delays.FetchParams) (delays.ProviderResponse, error) {
	if p.apiKey == "" {
		return delays.ProviderResponse{}, fmt.Errorf("airlabs api key is not configured")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("api_key", p.apiKey)
		values.Set("delay", strconv.Itoa(params.MinDelay))
		values.Set("type", string(params.Direction))
		if params.ArrivalAirportCode != "" {
			values.Set("arr_iata", params.ArrivalAirportCode)
		}
		if params.DepartureAirportCode != "" {
			values.Set("dep_iata", params.DepartureAirportCode)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		// Quota and outage notices arrive as 429 or 5xx with an error object.
		var se *statusError
		if errors.As(err, &se) {
			if payload, derr := decodePayload(bytes.NewReader(se.Body)); derr == nil && payload.Error != nil {
				return payload, nil
			}
		}
		return delays.ProviderResponse{}, err
	}
	defer resp.Body.Close()

	payload, err := decodePayload(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return delays.ProviderResponse{}, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}
		return delays.ProviderResponse{}, fmt.Errorf("decode airlabs response: %w", err)
	}

	// Airlabs reports key and quota problems in the body; anything else
	// outside 2xx without an error object is unexpected.
	if (resp.StatusCode < 200 || resp.StatusCode >= 300) && payload.Error == nil {
		return delays.ProviderResponse{}, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}

	return payload, nil
}

func hasErrorObject(body []byte) bool {
	payload, err := decodePayload(bytes.NewReader(body))
	return err == nil && payload.Error != nil
}

func decodePayload(r io.Reader) (delays.ProviderResponse, error) {
	var payload delays.ProviderResponse
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return delays.ProviderResponse{}, err
	}
	return payload, nil
}
