package store

import (
	"context"
	"sort"
	"sync"

	"github.com/i474232898/flight-delays/internal/delays"
)

// MemoryStore is a concurrency-safe in-memory implementation of delays.Store.
// Contents are lost when the process exits.
type MemoryStore struct {
	mu sync.RWMutex

	// key: (flight, departure time, direction), value: latest observation
	data map[delays.RecordKey]delays.DelayRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[delays.RecordKey]delays.DelayRecord),
	}
}

// UpsertDelays inserts or overwrites each record under its key.
func (s *MemoryStore) UpsertDelays(ctx context.Context, records []delays.DelayRecord) (delays.UpsertStats, error) {
	if err := ctx.Err(); err != nil {
		return delays.UpsertStats{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var stats delays.UpsertStats
	for _, rec := range records {
		rec.DepTime = rec.DepTime.UTC()
		rec.ArrTime = rec.ArrTime.UTC()
		key := rec.Key()
		if _, ok := s.data[key]; ok {
			stats.Updated++
		} else {
			stats.Inserted++
		}
		s.data[key] = rec
	}
	return stats, nil
}

// AggregateDelays computes count and mean delay for one airport and direction.
func (s *MemoryStore) AggregateDelays(ctx context.Context, airport string, dir delays.Direction, window delays.TimeWindow) (delays.Aggregate, error) {
	if err := ctx.Err(); err != nil {
		return delays.Aggregate{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		agg delays.Aggregate
		sum int
	)
	for _, rec := range s.data {
		code, ts := rec.DepIATA, rec.DepTime
		if dir == delays.DirectionArrivals {
			code, ts = rec.ArrIATA, rec.ArrTime
		}
		if code != airport || !window.Contains(ts) {
			continue
		}
		agg.Count++
		sum += rec.Delayed
	}
	if agg.Count > 0 {
		agg.AverageDelay = float64(sum) / float64(agg.Count)
	}
	return agg, nil
}

// ListDelays returns all records ordered by departure time, then flight.
func (s *MemoryStore) ListDelays(ctx context.Context) ([]delays.DelayRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	result := make([]delays.DelayRecord, 0, len(s.data))
	for _, rec := range s.data {
		result = append(result, rec)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return lessRecord(result[i], result[j])
	})
	return result, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func lessRecord(a, b delays.DelayRecord) bool {
	if !a.DepTime.Equal(b.DepTime) {
		return a.DepTime.Before(b.DepTime)
	}
	if a.FlightIATA != b.FlightIATA {
		return a.FlightIATA < b.FlightIATA
	}
	return a.Direction < b.Direction
}
