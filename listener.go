// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"context"
	"fmt"
)

// ApiError is the error reported by an [ApiListener]'s stream.
type ApiError struct {
	// Native wraps a platform-native API error. Nil when Stopped is
	// true.
	Native error
	// Stopped is true when the listener was stopped deliberately
	// (e.g. by [ApiListener.Close]) rather than failing.
	Stopped bool
}

// Error implements the error interface.
func (e *ApiError) Error() string {
	if e.Stopped {
		return "api listener: stopped"
	}
	return fmt.Sprintf("api listener: native error: %v", e.Native)
}

// ApiNotification is a single item produced by an [ApiListener]'s stream.
//
// A notification carries no payload ("something changed; re-fetch").
// Exactly one of Err being nil (a notification) or non-nil (the
// terminal error) holds for any given item; the stream sends no further
// items after one with a non-nil Err.
type ApiNotification struct {
	Err *ApiError
}

// ApiListener is a single-use stream of OS-native change notifications.
//
// Constructing an implementation registers with the OS; closing it
// releases that registration. [ApiListener.Stream] may only be called
// once: the returned channel terminates permanently on the first error
// or when the underlying OS stream ends, and is never reopened.
// Notification coalescing is allowed — bursts of OS events may collapse
// into a single notification.
//
// The concrete OS implementation is an external collaborator specified
// only by this contract; ipwatch ships no such implementation.
type ApiListener interface {
	// Stream returns the notification channel. The channel is closed
	// when the stream ends, optionally preceded by one final item
	// whose Err is set when the end was caused by an error.
	Stream(ctx context.Context) <-chan ApiNotification

	// Close releases the OS registration. Safe to call more than
	// once.
	Close() error
}
