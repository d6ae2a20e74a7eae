// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"context"
	"fmt"

	"github.com/ipwatch-project/ipwatch/internal/platformerr"
)

// Fetcher enumerates the host's network adapters.
//
// Implementations must be safe for concurrent callers and are expected
// to return quickly (tens of milliseconds); blocking is allowed but
// should never be unbounded.
//
// The concrete OS implementation (adapter enumeration on a given
// platform) is an external collaborator specified only by this contract;
// ipwatch ships no such implementation.
type Fetcher interface {
	Fetch(ctx context.Context) ([]AdapterSnapshot, error)
}

// FetcherFunc adapts a function to the [Fetcher] interface.
type FetcherFunc func(ctx context.Context) ([]AdapterSnapshot, error)

var _ Fetcher = FetcherFunc(nil)

// Fetch implements [Fetcher].
func (f FetcherFunc) Fetch(ctx context.Context) ([]AdapterSnapshot, error) {
	return f(ctx)
}

// FetchErrorKind classifies a [FetchError].
type FetchErrorKind int

const (
	// FetchErrorOpaque wraps an OS-native error with no further
	// classification.
	FetchErrorOpaque FetchErrorKind = iota
	// FetchErrorPermissionDenied means the process lacks the
	// privilege to enumerate adapters.
	FetchErrorPermissionDenied
	// FetchErrorPlatform means the platform layer failed in a way
	// that is not a permission problem (e.g. an unsupported OS
	// API, a malformed response from the OS).
	FetchErrorPlatform
)

// FetchError is the error type returned by a [Fetcher].
//
// Fetch errors are always transient from the monitor's point of view:
// the polling monitor logs them and retries on the next tick; they are
// never fatal to the process.
type FetchError struct {
	Kind FetchErrorKind

	// Context describes the operation that was denied. Only set for
	// FetchErrorPermissionDenied.
	Context string

	// Message describes the platform failure. Only set for
	// FetchErrorPlatform.
	Message string

	// Native is the wrapped OS-native error, always present.
	Native error
}

// NewPermissionDeniedFetchError builds a [*FetchError] of kind
// [FetchErrorPermissionDenied].
func NewPermissionDeniedFetchError(context string, native error) *FetchError {
	return &FetchError{Kind: FetchErrorPermissionDenied, Context: context, Native: native}
}

// NewPlatformFetchError builds a [*FetchError] of kind
// [FetchErrorPlatform].
func NewPlatformFetchError(message string, native error) *FetchError {
	return &FetchError{Kind: FetchErrorPlatform, Message: message, Native: native}
}

// NewOpaqueFetchError builds a [*FetchError] of kind [FetchErrorOpaque].
func NewOpaqueFetchError(native error) *FetchError {
	return &FetchError{Kind: FetchErrorOpaque, Native: native}
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrorPermissionDenied:
		return fmt.Sprintf("fetch: permission denied (%s): %v", e.Context, e.Native)
	case FetchErrorPlatform:
		return fmt.Sprintf("fetch: platform error: %s: %v", e.Message, e.Native)
	default:
		return fmt.Sprintf("fetch: %v", e.Native)
	}
}

// Unwrap returns the wrapped OS-native error.
func (e *FetchError) Unwrap() error {
	return e.Native
}

// NewFetchErrorFromNative classifies an OS-native error returned while
// enumerating adapters into a [*FetchError], using the platform-specific
// errno recognizer in internal/platformerr. A concrete [Fetcher]
// implementation for a given OS calls this instead of constructing a
// [*FetchError] kind directly.
func NewFetchErrorFromNative(context string, native error) *FetchError {
	switch platformerr.Classify(native) {
	case platformerr.PermissionDenied:
		return NewPermissionDeniedFetchError(context, native)
	case platformerr.Platform:
		return NewPlatformFetchError("adapter enumeration failed", native)
	default:
		return NewOpaqueFetchError(native)
	}
}
