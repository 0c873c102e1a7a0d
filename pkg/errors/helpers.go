package errors

import (
	"context"
)

// CheckContext returns an error if the context is canceled or timed out.
// This provides a standardized way to check and wrap context errors.
func CheckContext(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return Wrap(err, Canceled, operation+" canceled")
	}
	return nil
}

// IsTransient reports whether an error is worth retrying: timeouts,
// rate limits and context-free network hiccups fall in this bucket,
// programming and configuration errors never do.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	e, ok := err.(*Error)
	if !ok {
		// Unknown error shapes from caller callbacks are treated as
		// transient once; the retry bound keeps this safe.
		return true
	}
	switch e.Code() {
	case Timeout, RateLimitExceeded:
		return true
	default:
		return false
	}
}

// CodeOf extracts the ErrorCode from an error, Unknown if it is not ours.
func CodeOf(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code()
	}
	return Unknown
}
