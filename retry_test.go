// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 5*time.Second, p.InitialDelay)
	assert.Equal(t, 60*time.Second, p.MaxDelay)
	assert.Equal(t, 2.0, p.Multiplier)
}

func TestRetryPolicyValidate(t *testing.T) {
	_, err := NewRetryPolicy(0, time.Second, time.Minute, 2.0)
	assert.ErrorContains(t, err, "max_attempts")

	_, err = NewRetryPolicy(3, time.Second, time.Minute, 0)
	assert.ErrorContains(t, err, "multiplier")

	_, err = NewRetryPolicy(3, time.Minute, time.Second, 2.0)
	assert.ErrorContains(t, err, "max_delay")

	p, err := NewRetryPolicy(3, time.Second, time.Minute, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 3, p.MaxAttempts)
}

// TestRetryDelayMonotonicityAndBound checks delay_for_retry(i) <=
// delay_for_retry(i+1), never exceeding max_delay.
func TestRetryDelayMonotonicityAndBound(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, InitialDelay: 10 * time.Millisecond, MaxDelay: 100 * time.Millisecond, Multiplier: 2.0}

	var prev time.Duration
	for i := 0; i < 10; i++ {
		d := p.DelayForRetry(i)
		assert.GreaterOrEqual(t, d, prev)
		assert.LessOrEqual(t, d, p.MaxDelay)
		prev = d
	}
}

func TestRetryDelayExactSchedule(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, InitialDelay: 10 * time.Millisecond, MaxDelay: 100 * time.Millisecond, Multiplier: 2.0}
	assert.Equal(t, 10*time.Millisecond, p.DelayForRetry(0))
	assert.Equal(t, 20*time.Millisecond, p.DelayForRetry(1))
	assert.Equal(t, 40*time.Millisecond, p.DelayForRetry(2))
}

func TestShouldRetry(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3}
	assert.True(t, p.ShouldRetry(0))
	assert.True(t, p.ShouldRetry(1))
	assert.False(t, p.ShouldRetry(2))
}

func TestRetryableErrorIsRetryable(t *testing.T) {
	httpErr := &RetryableError{Kind: RetryableErrorHttp, Http: &HttpError{Kind: HttpErrorConnection}}
	assert.True(t, httpErr.IsRetryable())

	invalidURLErr := &RetryableError{Kind: RetryableErrorHttp, Http: &HttpError{Kind: HttpErrorInvalidURL}}
	assert.False(t, invalidURLErr.IsRetryable())

	serverErr := &RetryableError{Kind: RetryableErrorNonSuccessStatus, Status: 503}
	assert.True(t, serverErr.IsRetryable())

	rateLimited := &RetryableError{Kind: RetryableErrorNonSuccessStatus, Status: 429}
	assert.True(t, rateLimited.IsRetryable())

	timeout408 := &RetryableError{Kind: RetryableErrorNonSuccessStatus, Status: 408}
	assert.True(t, timeout408.IsRetryable())

	badRequest := &RetryableError{Kind: RetryableErrorNonSuccessStatus, Status: 400}
	assert.False(t, badRequest.IsRetryable())

	tmpl := &RetryableError{Kind: RetryableErrorTemplate, Message: "bad var"}
	assert.False(t, tmpl.IsRetryable())
}
