package delays

import "errors"

var (
	// ErrNotFound is returned when a summary query matches no records in either direction.
	ErrNotFound = errors.New("no data found for the specified parameters")
	// ErrInvalidTime is returned when a summary bound is not in QueryTimeLayout.
	ErrInvalidTime = errors.New("invalid date format, use 'YYYY-MM-DD HH:MM:SS'")
	// ErrInvalidParams is returned for bad directions, thresholds or airport codes.
	ErrInvalidParams = errors.New("invalid parameters")
	// ErrUpstream wraps transport and decode failures talking to the provider.
	ErrUpstream = errors.New("upstream provider request failed")
	// ErrStorage wraps failures of the persistence backend.
	ErrStorage = errors.New("storage operation failed")
)
