// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"context"
	"sync"
)

// ShutdownSignal is the single cancellation signal threaded into every
// stage of the pipeline (fetcher, monitor, debouncer, webhook sender).
// Resolving it fans out to every stage selecting on [ShutdownSignal.Done]
// or the equivalent [ShutdownSignal.Context].
//
// Unlike a bare [context.CancelFunc], [ShutdownSignal.Trigger] records
// the first cause and is safe to call more than once (later calls are
// no-ops), matching the "drop releases the registration" lifecycle the
// rest of the package follows for OS-owned resources.
type ShutdownSignal struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	once   sync.Once
}

// NewShutdownSignal derives a [*ShutdownSignal] from parent. The signal
// resolves when parent is done even if [ShutdownSignal.Trigger] is never
// called.
func NewShutdownSignal(parent context.Context) *ShutdownSignal {
	ctx, cancel := context.WithCancelCause(parent)
	return &ShutdownSignal{ctx: ctx, cancel: cancel}
}

// Context returns the derived context that every stage should select on.
func (s *ShutdownSignal) Context() context.Context {
	return s.ctx
}

// Done returns the channel closed when the signal resolves.
func (s *ShutdownSignal) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Trigger resolves the signal with cause. Only the first call has any
// effect; subsequent calls are no-ops.
func (s *ShutdownSignal) Trigger(cause error) {
	s.once.Do(func() {
		s.cancel(cause)
	})
}

// OnDone registers release to run exactly once when ctx is done,
// returning a stop function that unregisters the watch (mirroring
// [context.AfterFunc]). Use this to guarantee deterministic release of
// an OS-owned resource (e.g. an [ApiListener]'s registration) even along
// early-return paths, without requiring every caller to remember to
// invoke Close explicitly.
func OnDone(ctx context.Context, release func()) (stop func() bool) {
	return context.AfterFunc(ctx, release)
}
