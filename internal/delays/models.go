package delays

import (
	"time"
)

// Direction tells whether a record concerns the arrival or departure leg.
type Direction string

const (
	DirectionArrivals   Direction = "arrivals"
	DirectionDepartures Direction = "departures"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionArrivals || d == DirectionDepartures
}

// ParseDirection converts a raw query or config value into a Direction.
func ParseDirection(s string) (Direction, bool) {
	d := Direction(s)
	return d, d.Valid()
}

const (
	// ProviderTimeLayout is the layout of dep_time_utc / arr_time_utc in provider payloads.
	ProviderTimeLayout = "2006-01-02 15:04"
	// QueryTimeLayout is the layout accepted by the summary time window.
	QueryTimeLayout = "2006-01-02 15:04:05"
)

// DelayRecord is one observed flight delay event.
// (FlightIATA, DepTime, Direction) identifies a record.
type DelayRecord struct {
	AirlineIATA string    `json:"airline_iata"`
	FlightIATA  string    `json:"flight_iata"`
	DepIATA     string    `json:"dep_iata"`
	DepICAO     string    `json:"dep_icao"`
	ArrIATA     string    `json:"arr_iata"`
	ArrICAO     string    `json:"arr_icao"`
	Delayed     int       `json:"delayed"`
	Direction   Direction `json:"flight_type"`
	DepTime     time.Time `json:"dep_time"` // always UTC
	ArrTime     time.Time `json:"arr_time"` // always UTC
}

// RecordKey is the uniqueness key of a DelayRecord.
type RecordKey struct {
	FlightIATA string
	DepTime    time.Time
	Direction  Direction
}

// Key returns the record's uniqueness key.
func (r DelayRecord) Key() RecordKey {
	return RecordKey{
		FlightIATA: r.FlightIATA,
		DepTime:    r.DepTime.UTC(),
		Direction:  r.Direction,
	}
}

// DelaySummary is the aggregated view for one airport and direction.
type DelaySummary struct {
	AirportCode      string    `json:"airport_code"`
	ArrivalDeparture Direction `json:"arrival_departure"`
	AverageDelay     float64   `json:"average_delay"`
	TotalFlights     int       `json:"total_flights"`
}

// TimeWindow is an inclusive, optionally open-ended time range.
type TimeWindow struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether ts falls inside the window (bounds inclusive).
func (w TimeWindow) Contains(ts time.Time) bool {
	if w.From != nil && ts.Before(*w.From) {
		return false
	}
	if w.To != nil && ts.After(*w.To) {
		return false
	}
	return true
}

// Aggregate holds the raw group-by result the store computes for one direction.
type Aggregate struct {
	Count        int
	AverageDelay float64
}

// FetchParams are the filters for a single pipeline run.
type FetchParams struct {
	Direction            Direction `json:"flight_type"`
	MinDelay             int       `json:"min_delayed_time"`
	ArrivalAirportCode   string    `json:"arrival_airport_code,omitempty"`
	DepartureAirportCode string    `json:"departure_airport_code,omitempty"`
}

// FetchResult describes what a pipeline run did.
type FetchResult struct {
	RunID          string    `json:"run_id"`
	Direction      Direction `json:"flight_type"`
	Received       int       `json:"received"`
	Dropped        int       `json:"dropped"`
	BelowThreshold int       `json:"below_threshold"`
	Inserted       int       `json:"inserted"`
	Updated        int       `json:"updated"`
	ProviderError  string    `json:"provider_error,omitempty"`
}

// Written is the number of rows inserted or updated by the run.
func (r FetchResult) Written() int {
	return r.Inserted + r.Updated
}

// UpsertStats counts how an upsert batch landed.
type UpsertStats struct {
	Inserted int
	Updated  int
}
