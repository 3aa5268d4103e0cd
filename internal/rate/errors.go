package rate

import "errors"

var (
	// ErrRateLimited is returned when a budget is exhausted for the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures.
	ErrRedisUnavailable = errors.New("rate limiter redis unavailable")
)
