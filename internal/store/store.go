// Package store provides the persistence backends for delay records.
package store

import (
	"context"
	"fmt"

	"github.com/i474232898/flight-delays/internal/delays"
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	SQLitePath  string
	PostgresDSN string
}

// Open returns the store named by opts.Backend.
func Open(ctx context.Context, opts Options) (delays.Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		s, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendPostgres:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres backend requires a DSN")
		}
		s, err := OpenPostgres(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
