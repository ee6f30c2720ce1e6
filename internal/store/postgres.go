package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS delays (
    airline_iata TEXT,
    flight_iata  TEXT NOT NULL,
    dep_iata     TEXT NOT NULL,
    dep_icao     TEXT,
    arr_iata     TEXT NOT NULL,
    arr_icao     TEXT,
    delayed      INTEGER NOT NULL DEFAULT 0 CHECK (delayed >= 0),
    flight_type  TEXT NOT NULL CHECK (flight_type IN ('arrivals', 'departures')),
    dep_time     TIMESTAMP NOT NULL,
    arr_time     TIMESTAMP NOT NULL,
    PRIMARY KEY (flight_iata, dep_time, flight_type)
);

CREATE INDEX IF NOT EXISTS idx_delays_dep ON delays(dep_iata, dep_time);
CREATE INDEX IF NOT EXISTS idx_delays_arr ON delays(arr_iata, arr_time);
`

// OpenPostgres connects to PostgreSQL and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	s, err := newSQLStore(ctx, db, dialect{
		name:       "postgres",
		schema:     postgresSchema,
		positional: true,
		timeArg: func(t time.Time) any {
			// TIMESTAMP columns drop the zone; hand pq a zoneless UTC wall clock.
			return t.UTC().Format(dbTimeLayout)
		},
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
