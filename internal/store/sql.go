package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/flight-delays/internal/delays"
)

// dbTimeLayout is how timestamps are written to text columns.
const dbTimeLayout = "2006-01-02 15:04:05"

// dialect captures what differs between the SQL backends.
type dialect struct {
	name       string
	schema     string
	positional bool // $1, $2, ... instead of ?
	timeArg    func(time.Time) any
}

// SQLStore implements delays.Store on top of database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		return nil, fmt.Errorf("create %s schema: %w", d.name, err)
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// DB exposes the underlying handle.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders for dialects that use numbered parameters.
func (s *SQLStore) rebind(query string) string {
	if !s.dialect.positional {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const (
	existsQuery = `SELECT COUNT(*) FROM delays WHERE flight_iata = ? AND dep_time = ? AND flight_type = ?`

	upsertQuery = `
		INSERT INTO delays (
			airline_iata, flight_iata, dep_iata, dep_icao,
			arr_iata, arr_icao, delayed, flight_type, dep_time, arr_time
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (flight_iata, dep_time, flight_type) DO UPDATE SET
			airline_iata = excluded.airline_iata,
			dep_iata = excluded.dep_iata,
			dep_icao = excluded.dep_icao,
			arr_iata = excluded.arr_iata,
			arr_icao = excluded.arr_icao,
			delayed = excluded.delayed,
			arr_time = excluded.arr_time`

	listQuery = `
		SELECT airline_iata, flight_iata, dep_iata, dep_icao,
		       arr_iata, arr_icao, delayed, flight_type, dep_time, arr_time
		FROM delays
		ORDER BY dep_time, flight_iata, flight_type`
)

// UpsertDelays writes the batch in a single transaction.
func (s *SQLStore) UpsertDelays(ctx context.Context, records []delays.DelayRecord) (stats delays.UpsertStats, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existsStmt, err := tx.PrepareContext(ctx, s.rebind(existsQuery))
	if err != nil {
		return stats, fmt.Errorf("prepare exists: %w", err)
	}
	defer existsStmt.Close()

	upsertStmt, err := tx.PrepareContext(ctx, s.rebind(upsertQuery))
	if err != nil {
		return stats, fmt.Errorf("prepare upsert: %w", err)
	}
	defer upsertStmt.Close()

	for _, rec := range records {
		depTime := s.dialect.timeArg(rec.DepTime)

		var n int
		if err = existsStmt.QueryRowContext(ctx, rec.FlightIATA, depTime, string(rec.Direction)).Scan(&n); err != nil {
			return delays.UpsertStats{}, fmt.Errorf("check %s: %w", rec.FlightIATA, err)
		}

		if _, err = upsertStmt.ExecContext(ctx,
			rec.AirlineIATA,
			rec.FlightIATA,
			rec.DepIATA,
			nullString(rec.DepICAO),
			rec.ArrIATA,
			nullString(rec.ArrICAO),
			rec.Delayed,
			string(rec.Direction),
			depTime,
			s.dialect.timeArg(rec.ArrTime),
		); err != nil {
			return delays.UpsertStats{}, fmt.Errorf("upsert %s: %w", rec.FlightIATA, err)
		}

		if n > 0 {
			stats.Updated++
		} else {
			stats.Inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return delays.UpsertStats{}, fmt.Errorf("commit: %w", err)
	}
	return stats, nil
}

// AggregateDelays computes count and mean delay for one airport and direction.
func (s *SQLStore) AggregateDelays(ctx context.Context, airport string, dir delays.Direction, window delays.TimeWindow) (delays.Aggregate, error) {
	codeCol, timeCol := "dep_iata", "dep_time"
	if dir == delays.DirectionArrivals {
		codeCol, timeCol = "arr_iata", "arr_time"
	}

	conds := []string{codeCol + " = ?"}
	args := []any{airport}
	switch {
	case window.From != nil && window.To != nil:
		conds = append(conds, timeCol+" BETWEEN ? AND ?")
		args = append(args, s.dialect.timeArg(*window.From), s.dialect.timeArg(*window.To))
	case window.From != nil:
		conds = append(conds, timeCol+" >= ?")
		args = append(args, s.dialect.timeArg(*window.From))
	case window.To != nil:
		conds = append(conds, timeCol+" <= ?")
		args = append(args, s.dialect.timeArg(*window.To))
	}

	query := "SELECT COUNT(*), AVG(delayed) FROM delays WHERE " + strings.Join(conds, " AND ")

	var (
		count int
		avg   sql.NullFloat64
	)
	if err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&count, &avg); err != nil {
		return delays.Aggregate{}, fmt.Errorf("aggregate %s: %w", dir, err)
	}
	return delays.Aggregate{Count: count, AverageDelay: avg.Float64}, nil
}

// ListDelays returns all records ordered by departure time, then flight.
func (s *SQLStore) ListDelays(ctx context.Context) ([]delays.DelayRecord, error) {
	rows, err := s.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("query delays: %w", err)
	}
	defer rows.Close()

	var result []delays.DelayRecord
	for rows.Next() {
		var (
			rec              delays.DelayRecord
			depICAO, arrICAO sql.NullString
			direction        string
			depRaw, arrRaw   any
		)
		if err := rows.Scan(
			&rec.AirlineIATA,
			&rec.FlightIATA,
			&rec.DepIATA,
			&depICAO,
			&rec.ArrIATA,
			&arrICAO,
			&rec.Delayed,
			&direction,
			&depRaw,
			&arrRaw,
		); err != nil {
			return nil, fmt.Errorf("scan delay: %w", err)
		}
		rec.DepICAO = depICAO.String
		rec.ArrICAO = arrICAO.String
		rec.Direction = delays.Direction(direction)
		if rec.DepTime, err = scanTime(depRaw); err != nil {
			return nil, fmt.Errorf("scan dep_time of %s: %w", rec.FlightIATA, err)
		}
		if rec.ArrTime, err = scanTime(arrRaw); err != nil {
			return nil, fmt.Errorf("scan arr_time of %s: %w", rec.FlightIATA, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delays: %w", err)
	}
	return result, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// scanTime accepts native time values and the text encodings the drivers produce.
func scanTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseDBTime(t)
	case []byte:
		return parseDBTime(string(t))
	case nil:
		return time.Time{}, errors.New("null timestamp")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func parseDBTime(s string) (time.Time, error) {
	for _, layout := range []string{dbTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
