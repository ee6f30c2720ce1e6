package delays

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/flight-delays/internal/common"
	"github.com/i474232898/flight-delays/internal/metrics"
)

// Service orchestrates the provider, the store and the summary queries.
type Service struct {
	store    Store
	provider Provider
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService creates a new Service. m may be nil.
func NewService(store Store, provider Provider, m *metrics.Metrics) *Service {
	return &Service{
		store:    store,
		provider: provider,
		metrics:  m,
		logger:   slog.Default().With("component", "delays"),
	}
}

// Validate checks and canonicalizes fetch parameters in place.
func (p *FetchParams) Validate() error {
	if !p.Direction.Valid() {
		return fmt.Errorf("%w: flight_type must be arrivals or departures", ErrInvalidParams)
	}
	if p.MinDelay < 0 {
		return fmt.Errorf("%w: min_delayed_time must be >= 0", ErrInvalidParams)
	}
	p.ArrivalAirportCode = common.NormalizeCode(p.ArrivalAirportCode)
	p.DepartureAirportCode = common.NormalizeCode(p.DepartureAirportCode)
	if p.ArrivalAirportCode != "" && !common.IsIATA(p.ArrivalAirportCode) {
		return fmt.Errorf("%w: arrival_airport_code must be 3 letters", ErrInvalidParams)
	}
	if p.DepartureAirportCode != "" && !common.IsIATA(p.DepartureAirportCode) {
		return fmt.Errorf("%w: departure_airport_code must be 3 letters", ErrInvalidParams)
	}
	return nil
}

// FetchAndStore runs the fetch-normalize-upsert pipeline once.
//
// A provider-reported error ends the run without touching the store and is
// returned in FetchResult.ProviderError with a nil error. Transport, decode
// and storage failures are returned wrapped in ErrUpstream or ErrStorage.
func (s *Service) FetchAndStore(ctx context.Context, params FetchParams) (FetchResult, error) {
	if err := params.Validate(); err != nil {
		return FetchResult{}, err
	}

	start := time.Now()
	result := FetchResult{
		RunID:     uuid.NewString(),
		Direction: params.Direction,
	}
	flightType := string(params.Direction)
	log := s.logger.With("run_id", result.RunID, "flight_type", flightType, "min_delay", params.MinDelay)

	resp, err := s.provider.FetchDelays(ctx, params)
	if err != nil {
		log.Error("error fetching delay data", "provider", s.provider.Name(), "error", err)
		s.metrics.ObserveRun(flightType, metrics.OutcomeUpstreamError, time.Since(start).Seconds())
		return result, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	if resp.Error != nil {
		log.Error("provider reported an error", "provider", s.provider.Name(), "message", resp.Error.Message)
		result.ProviderError = resp.Error.Message
		s.metrics.ObserveRun(flightType, metrics.OutcomeProviderError, time.Since(start).Seconds())
		return result, nil
	}

	result.Received = len(resp.Response)
	if result.Received == 0 {
		log.Info("no delay data available with the specified filters")
		s.metrics.ObserveRun(flightType, metrics.OutcomeEmpty, time.Since(start).Seconds())
		return result, nil
	}

	records := make([]DelayRecord, 0, len(resp.Response))
	index := make(map[RecordKey]int, len(resp.Response))
	for _, item := range resp.Response {
		rec, ok := Normalize(item, params.Direction)
		if !ok {
			result.Dropped++
			level := slog.LevelWarn
			if strings.TrimSpace(item.DepTimeUTC) == "" || strings.TrimSpace(item.ArrTimeUTC) == "" {
				level = slog.LevelDebug
			}
			log.Log(ctx, level, "dropping malformed item",
				"flight_iata", item.FlightIATA,
				"dep_time_utc", item.DepTimeUTC,
				"arr_time_utc", item.ArrTimeUTC)
			continue
		}
		if rec.Delayed < params.MinDelay {
			result.BelowThreshold++
			continue
		}
		// Later observations of the same key win.
		if i, seen := index[rec.Key()]; seen {
			records[i] = rec
			continue
		}
		index[rec.Key()] = len(records)
		records = append(records, rec)
	}
	s.metrics.AddDropped(flightType, "malformed", result.Dropped)
	s.metrics.AddDropped(flightType, "below_threshold", result.BelowThreshold)

	if len(records) == 0 {
		log.Info("no delay data available after processing",
			"received", result.Received,
			"dropped", result.Dropped,
			"below_threshold", result.BelowThreshold)
		s.metrics.ObserveRun(flightType, metrics.OutcomeEmpty, time.Since(start).Seconds())
		return result, nil
	}

	stats, err := s.store.UpsertDelays(ctx, records)
	if err != nil {
		log.Error("failed to store delay records", "records", len(records), "error", err)
		s.metrics.ObserveRun(flightType, metrics.OutcomeStorageError, time.Since(start).Seconds())
		return result, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	result.Inserted = stats.Inserted
	result.Updated = stats.Updated

	log.Info("records inserted/updated successfully",
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"dropped", result.Dropped,
		"below_threshold", result.BelowThreshold)
	s.metrics.AddWritten(flightType, stats.Inserted, stats.Updated)
	s.metrics.ObserveRun(flightType, metrics.OutcomeWritten, time.Since(start).Seconds())
	return result, nil
}

// ParseWindow parses optional summary bounds in QueryTimeLayout as UTC.
// Empty strings leave the corresponding bound open.
func ParseWindow(from, to string) (TimeWindow, error) {
	var w TimeWindow
	if from = strings.TrimSpace(from); from != "" {
		t, err := time.ParseInLocation(QueryTimeLayout, from, time.UTC)
		if err != nil {
			return TimeWindow{}, fmt.Errorf("%w: date_time_from %q", ErrInvalidTime, from)
		}
		w.From = &t
	}
	if to = strings.TrimSpace(to); to != "" {
		t, err := time.ParseInLocation(QueryTimeLayout, to, time.UTC)
		if err != nil {
			return TimeWindow{}, fmt.Errorf("%w: date_time_to %q", ErrInvalidTime, to)
		}
		w.To = &t
	}
	return w, nil
}

// Summary returns average delay and flight counts for an airport, departures
// first, then arrivals. Directions with no matching records are omitted; if
// both are empty ErrNotFound is returned.
func (s *Service) Summary(ctx context.Context, airport, from, to string) ([]DelaySummary, error) {
	airport = common.NormalizeCode(airport)
	if !common.IsIATA(airport) {
		return nil, fmt.Errorf("%w: airport_code must be 3 letters", ErrInvalidParams)
	}

	window, err := ParseWindow(from, to)
	if err != nil {
		return nil, err
	}

	summary := make([]DelaySummary, 0, 2)
	for _, dir := range []Direction{DirectionDepartures, DirectionArrivals} {
		agg, err := s.store.AggregateDelays(ctx, airport, dir, window)
		if err != nil {
			return nil, fmt.Errorf("%w: aggregate %s for %s: %w", ErrStorage, dir, airport, err)
		}
		if agg.Count == 0 {
			continue
		}
		summary = append(summary, DelaySummary{
			AirportCode:      airport,
			ArrivalDeparture: dir,
			AverageDelay:     agg.AverageDelay,
			TotalFlights:     agg.Count,
		})
	}

	if len(summary) == 0 {
		return nil, ErrNotFound
	}
	return summary, nil
}

// ListDelays returns every stored record.
func (s *Service) ListDelays(ctx context.Context) ([]DelayRecord, error) {
	records, err := s.store.ListDelays(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list delays: %w", ErrStorage, err)
	}
	return records, nil
}
