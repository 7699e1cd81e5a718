package domain

import "errors"

var (
	// ErrRemoteCallTimeout is returned when a fitness API call exceeds its deadline.
	ErrRemoteCallTimeout = errors.New("remote call timed out")
	// ErrRemoteCall covers failed, malformed or empty fitness API responses.
	ErrRemoteCall = errors.New("remote call failed")
	// ErrCacheIO wraps failures of the local workout cache.
	ErrCacheIO = errors.New("cache io failed")
	// ErrJobInFlight is returned when a job of the same kind is already running.
	ErrJobInFlight = errors.New("job already in flight")
)
