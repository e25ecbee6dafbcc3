package nscache

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports a contract violation: empty key, negative
// TTL, negative size bound. It is never retryable.
type ValidationError struct {
	Op     string // contract operation, e.g. "Set"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("nscache: %s: %s", e.Op, e.Reason)
}

// ConnectionError reports a remote backend failure: dial/read/write
// errors and pool exhaustion. Retryable distinguishes transient
// transport conditions from permanent ones (e.g. a closed client).
type ConnectionError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("nscache: %s: backend: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient backend failure worth
// backing off and retrying. Validation errors and logical misses are
// never retryable.
func IsRetryable(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce) && ce.Retryable
}

// ValidateKey rejects empty keys. Backends call it at the top of every
// operation so validation behavior is uniform across implementations.
func ValidateKey(op, key string) error {
	if key == "" {
		return &ValidationError{Op: op, Reason: "empty key"}
	}
	return nil
}

// ValidateTTL rejects negative TTLs (0 means "use the default").
func ValidateTTL(op string, ttl time.Duration) error {
	if ttl < 0 {
		return &ValidationError{Op: op, Reason: "negative ttl"}
	}
	return nil
}
