package delays

import (
	"context"
	"encoding/json"
)

// RawItem is a single entry of the provider's response array, before validation.
// Delayed is left untyped since providers send numbers, numeric strings or null.
type RawItem struct {
	AirlineIATA string `json:"airline_iata"`
	FlightIATA  string `json:"flight_iata"`
	DepIATA     string `json:"dep_iata"`
	DepICAO     string `json:"dep_icao"`
	ArrIATA     string `json:"arr_iata"`
	ArrICAO     string `json:"arr_icao"`
	Delayed     any    `json:"delayed"`
	DepTimeUTC  string `json:"dep_time_utc"`
	ArrTimeUTC  string `json:"arr_time_utc"`
}

// ProviderError is the error object a provider embeds in an otherwise successful response.
type ProviderError struct {
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code,omitempty"`
}

// ProviderResponse is the decoded upstream payload.
type ProviderResponse struct {
	Error    *ProviderError `json:"error,omitempty"`
	Response []RawItem      `json:"response"`
}

// Provider abstracts the upstream delay-data source.
type Provider interface {
	Name() string
	FetchDelays(ctx context.Context, params FetchParams) (ProviderResponse, error)
}

// Store is the contract every persistence backend must satisfy.
type Store interface {
	// UpsertDelays writes the batch atomically, overwriting non-key fields on conflict.
	UpsertDelays(ctx context.Context, records []DelayRecord) (UpsertStats, error)
	// AggregateDelays computes count and mean delay for one airport and direction.
	// Departures match on departure airport/time, arrivals on arrival airport/time.
	AggregateDelays(ctx context.Context, airport string, dir Direction, window TimeWindow) (Aggregate, error)
	ListDelays(ctx context.Context) ([]DelayRecord, error)
	Close() error
}
