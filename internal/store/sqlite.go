package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Timestamps are kept as fixed-width UTC text so lexical and
// chronological order agree for BETWEEN and ORDER BY.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS delays (
    airline_iata TEXT,
    flight_iata  TEXT NOT NULL,
    dep_iata     TEXT NOT NULL,
    dep_icao     TEXT,
    arr_iata     TEXT NOT NULL,
    arr_icao     TEXT,
    delayed      INTEGER NOT NULL DEFAULT 0 CHECK (delayed >= 0),
    flight_type  TEXT NOT NULL CHECK (flight_type IN ('arrivals', 'departures')),
    dep_time     TEXT NOT NULL,
    arr_time     TEXT NOT NULL,
    PRIMARY KEY (flight_iata, dep_time, flight_type)
);

CREATE INDEX IF NOT EXISTS idx_delays_dep ON delays(dep_iata, dep_time);
CREATE INDEX IF NOT EXISTS idx_delays_arr ON delays(arr_iata, arr_time);
`

// OpenSQLite opens or creates a SQLite database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// A single writer avoids SQLITE_BUSY between the scheduler and handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	s, err := newSQLStore(ctx, db, dialect{
		name:   "sqlite",
		schema: sqliteSchema,
		timeArg: func(t time.Time) any {
			return t.UTC().Format(dbTimeLayout)
		},
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
