package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// AdapterError carries the HTTP status and retryability of a failed
// provider call. Stages route on this classification: a transient failure
// is retried in place or spent against the run's step budget, a fatal one
// ends the run.
type AdapterError struct {
	Status    int
	Temporary bool
	Err       error
}

func (e *AdapterError) Error() string {
	if e == nil {
		return "adapter error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("adapter error (status=%d)", e.Status)
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient classifies a model-call failure as worth retrying. Deadline
// expiry, network timeouts, rate limiting, and provider-side 5xx responses
// are transient; everything else, including deliberate cancellation and
// auth failures, is fatal.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Temporary || retryableStatus(adapterErr.Status)
	}
	return false
}

// retryableStatus reports whether a provider HTTP status is worth another
// attempt: 429 rate limiting and the 5xx server range.
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status < 600)
}
