package cache

import "errors"

// RetryableError marks a fetch failure that may succeed when repeated, such
// as a 5xx response or a dropped connection. Clients never cache it.
type RetryableError struct {
	Err error
}

// Retryable marks err as retryable. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether any error in err's chain came from [Retryable].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
