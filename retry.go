// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"fmt"
	"math"
	"time"
)

// RetryPolicy is an exponential backoff with a cap.
//
// Invariants enforced at construction: MaxAttempts >= 1, Multiplier > 0,
// MaxDelay >= InitialDelay.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy returns the spec default: {max_attempts=3,
// initial_delay=5s, max_delay=60s, multiplier=2.0}.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: 5 * time.Second, MaxDelay: 60 * time.Second, Multiplier: 2.0}
}

// NewRetryPolicy validates and returns a [RetryPolicy].
func NewRetryPolicy(maxAttempts int, initialDelay, maxDelay time.Duration, multiplier float64) (RetryPolicy, error) {
	p := RetryPolicy{MaxAttempts: maxAttempts, InitialDelay: initialDelay, MaxDelay: maxDelay, Multiplier: multiplier}
	if err := p.Validate(); err != nil {
		return RetryPolicy{}, err
	}
	return p, nil
}

// Validate checks the policy's invariants.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: max_attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.Multiplier <= 0 {
		return fmt.Errorf("retry policy: multiplier must be > 0, got %f", p.Multiplier)
	}
	if p.MaxDelay < p.InitialDelay {
		return fmt.Errorf("retry policy: max_delay (%s) must be >= initial_delay (%s)", p.MaxDelay, p.InitialDelay)
	}
	return nil
}

// DelayForRetry returns min(initial * multiplier^index, max_delay).
func (p RetryPolicy) DelayForRetry(index int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(index))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// ShouldRetry reports whether another attempt should be made, given the
// zero-based attempt index just completed.
func (p RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts-1
}

// RetryableErrorKind classifies a [RetryableError].
type RetryableErrorKind int

const (
	// RetryableErrorHttp delegates retryability to the wrapped
	// [HttpError].
	RetryableErrorHttp RetryableErrorKind = iota
	// RetryableErrorNonSuccessStatus means the server responded
	// with a non-2xx status.
	RetryableErrorNonSuccessStatus
	// RetryableErrorTemplate means body template rendering failed —
	// a configuration error, never retryable.
	RetryableErrorTemplate
)

// RetryableError is the error type the webhook sender's retry loop
// classifies on each attempt.
type RetryableError struct {
	Kind RetryableErrorKind

	// Http is set for RetryableErrorHttp.
	Http *HttpError

	// Status and BodyText are set for RetryableErrorNonSuccessStatus.
	Status   int
	BodyText string

	// Message is set for RetryableErrorTemplate.
	Message string
}

// Error implements the error interface.
func (e *RetryableError) Error() string {
	switch e.Kind {
	case RetryableErrorHttp:
		return e.Http.Error()
	case RetryableErrorNonSuccessStatus:
		return fmt.Sprintf("webhook: non-success status %d: %s", e.Status, e.BodyText)
	default:
		return fmt.Sprintf("webhook: template error: %s", e.Message)
	}
}

// IsRetryable implements the spec's retryability classification:
//   - Http delegates to the wrapped [HttpError].
//   - NonSuccessStatus is retryable iff status >= 500, or status is 408
//     or 429; other 4xx statuses are not retryable.
//   - Template is never retryable (a configuration error).
func (e *RetryableError) IsRetryable() bool {
	switch e.Kind {
	case RetryableErrorHttp:
		return e.Http.IsRetryable()
	case RetryableErrorNonSuccessStatus:
		return e.Status >= 500 || e.Status == 408 || e.Status == 429
	default:
		return false
	}
}
